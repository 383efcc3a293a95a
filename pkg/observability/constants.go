// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package observability provides OpenTelemetry tracing and Prometheus
// metrics for pipeline execution and agent loop sessions.
//
// The observability system has three main components:
//
//  1. Tracing: OpenTelemetry spans with OTLP export
//  2. Metrics: Prometheus counters and histograms
//  3. Debug: in-memory span capture for status inspection
package observability

// =============================================================================
// Service Attributes (OpenTelemetry Semantic Conventions)
// =============================================================================

const (
	AttrServiceName     = "service.name"
	AttrServiceVersion  = "service.version"
	AttrServiceInstance = "service.instance.id"
)

// =============================================================================
// GenAI Semantic Conventions (OpenTelemetry GenAI SIG)
// =============================================================================

const (
	// AttrGenAISystem identifies the GenAI system producing the span.
	AttrGenAISystem = "gen_ai.system"

	// AttrGenAIOperationName is the operation being performed.
	// Values: "chat", "text_completion", "execute_tool"
	AttrGenAIOperationName = "gen_ai.operation.name"

	AttrGenAIRequestModel        = "gen_ai.request.model"
	AttrGenAIRequestTemperature  = "gen_ai.request.temperature"
	AttrGenAIRequestTopP         = "gen_ai.request.top_p"
	AttrGenAIRequestMaxTokens    = "gen_ai.request.max_tokens"
	AttrGenAIResponseFinishReason = "gen_ai.response.finish_reason"
	AttrGenAIUsageInputTokens    = "gen_ai.usage.input_tokens"
	AttrGenAIUsageOutputTokens   = "gen_ai.usage.output_tokens"
	AttrGenAIToolName            = "gen_ai.tool.name"
	AttrGenAIToolDescription     = "gen_ai.tool.description"
	AttrGenAIToolCallID          = "gen_ai.tool.call.id"
)

// =============================================================================
// Pipeline and Session Attributes
// =============================================================================

const (
	// AttrPipelineGraphName names the executing pipeline graph.
	AttrPipelineGraphName = "attractor.pipeline.graph_name"

	// AttrPipelineGoal is the goal string the pipeline was run with.
	AttrPipelineGoal = "attractor.pipeline.goal"

	// AttrStageNodeID is the graph node ID a stage span covers.
	AttrStageNodeID = "attractor.stage.node_id"

	// AttrStageHandler is the handler kind executing a stage.
	AttrStageHandler = "attractor.stage.handler"

	// AttrSessionID is the agent loop session ID.
	AttrSessionID = "attractor.session.id"

	// AttrSessionDepth is a session's subagent nesting depth.
	AttrSessionDepth = "attractor.session.depth"

	// AttrLLMRequest is the serialized LLM request, captured only when
	// payload capture is enabled.
	AttrLLMRequest = "attractor.llm.request"

	// AttrLLMResponse is the serialized LLM response, captured only when
	// payload capture is enabled.
	AttrLLMResponse = "attractor.llm.response"

	// AttrToolArgs is the serialized tool call arguments.
	AttrToolArgs = "attractor.tool.args"

	// AttrToolResponse is the serialized tool call result.
	AttrToolResponse = "attractor.tool.response"
)

// =============================================================================
// HTTP Attributes
// =============================================================================

const (
	AttrHTTPMethod       = "http.method"
	AttrHTTPPath         = "http.route"
	AttrHTTPStatusCode   = "http.status_code"
	AttrHTTPRequestSize  = "http.request.body.size"
	AttrHTTPResponseSize = "http.response.body.size"
)

// =============================================================================
// Error Attributes
// =============================================================================

const (
	AttrErrorType    = "error.type"
	AttrErrorMessage = "error.message"
)

// =============================================================================
// Span Names
// =============================================================================

const (
	// SpanPipelineRun is the top-level span for one pipeline execution.
	SpanPipelineRun = "attractor.pipeline.run"

	// SpanStageExecute covers one node's handler execution, including retries.
	SpanStageExecute = "attractor.stage.execute"

	// SpanSessionRun covers one ProcessInput call on an agent loop session.
	SpanSessionRun = "attractor.session.run"

	// SpanLLMCall is a span for an LLM API call.
	SpanLLMCall = "attractor.llm.call"

	// SpanToolExecution is a span for tool execution.
	SpanToolExecution = "attractor.tool.execute"

	// SpanHTTPRequest is a span for HTTP request handling on the debug server.
	SpanHTTPRequest = "attractor.http.request"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	DefaultServiceName  = "attractor"
	DefaultSamplingRate = 1.0
	DefaultOTLPEndpoint = "localhost:4317"
	DefaultMetricsPath  = "/metrics"
)

// =============================================================================
// GenAI Operation Names (for AttrGenAIOperationName)
// =============================================================================

const (
	OpChat           = "chat"
	OpTextCompletion = "text_completion"
	OpToolCall       = "execute_tool"
)
