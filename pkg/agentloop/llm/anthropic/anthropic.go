// Package anthropic is a concrete llm.Client adapter over the real
// Anthropic SDK, grounding the provider-neutral boundary (pkg/agentloop/llm)
// against one real vendor. It is additive: the core never imports it
// directly, only through the llm.Client interface.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/attractor-run/attractor/pkg/agentloop/llm"
)

// Client adapts the Anthropic SDK to llm.Client.
type Client struct {
	sdk          anthropic.Client
	defaultModel string
}

// Config configures a new Client.
type Config struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
}

// New constructs a Client. APIKey is required.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.DefaultModel
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	return &Client{sdk: anthropic.NewClient(opts...), defaultModel: model}, nil
}

// Complete implements llm.Client.
func (c *Client) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	params, err := c.buildParams(req)
	if err != nil {
		return llm.Response{}, err
	}
	msg, err := c.sdk.Messages.New(ctx, params)
	if err != nil {
		return llm.Response{}, wrapError(err)
	}
	return toResponse(msg), nil
}

// Stream implements llm.Client.
func (c *Client) Stream(ctx context.Context, req llm.Request) (<-chan llm.StreamChunk, error) {
	params, err := c.buildParams(req)
	if err != nil {
		return nil, err
	}
	out := make(chan llm.StreamChunk)
	stream := c.sdk.Messages.NewStreaming(ctx, params)

	go func() {
		defer close(out)
		accumulated := anthropic.Message{}
		for stream.Next() {
			ev := stream.Current()
			if err := accumulated.Accumulate(ev); err != nil {
				out <- llm.StreamChunk{Type: llm.StreamError, Err: err}
				return
			}
			if delta, ok := ev.AsAny().(anthropic.ContentBlockDeltaEvent); ok {
				if delta.Delta.Text != "" {
					out <- llm.StreamChunk{Type: llm.StreamTextDelta, Text: delta.Delta.Text}
				}
			}
		}
		if err := stream.Err(); err != nil {
			out <- llm.StreamChunk{Type: llm.StreamError, Err: wrapError(err)}
			return
		}
		final := toResponse(&accumulated)
		out <- llm.StreamChunk{Type: llm.StreamFinish, Final: &final}
	}()
	return out, nil
}

// Close implements llm.Client. The SDK client owns no closeable resources
// beyond its pooled HTTP transport.
func (c *Client) Close() error { return nil }

func (c *Client) buildParams(req llm.Request) (anthropic.MessageNewParams, error) {
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}
	maxTokens := int64(req.Params.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
	}

	for _, m := range req.Messages {
		switch m.Role {
		case llm.RoleSystem:
			params.System = append(params.System, anthropic.TextBlockParam{Text: m.Content})
		case llm.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, tc.Arguments, tc.Name))
			}
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(blocks...))
		case llm.RoleTool:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(m.ToolCallID, m.Content, false),
			))
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	for _, t := range req.Tools {
		schemaJSON, err := json.Marshal(t.Parameters)
		if err != nil {
			return params, fmt.Errorf("anthropic: marshal tool schema %s: %w", t.Name, err)
		}
		var schema anthropic.ToolInputSchemaParam
		if err := json.Unmarshal(schemaJSON, &schema); err != nil {
			return params, fmt.Errorf("anthropic: invalid tool schema %s: %w", t.Name, err)
		}
		toolParam := anthropic.ToolUnionParamOfTool(schema, t.Name)
		if toolParam.OfTool != nil {
			toolParam.OfTool.Description = anthropic.String(t.Description)
		}
		params.Tools = append(params.Tools, toolParam)
	}

	if req.Params.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Params.Temperature)
	}
	if req.Params.TopP != nil {
		params.TopP = anthropic.Float(*req.Params.TopP)
	}
	if len(req.Params.StopSequences) > 0 {
		params.StopSequences = req.Params.StopSequences
	}

	return params, nil
}

func toResponse(msg *anthropic.Message) llm.Response {
	resp := llm.Response{Provider: "anthropic", Raw: msg}
	for _, block := range msg.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			resp.Text += b.Text
		case anthropic.ToolUseBlock:
			var args map[string]any
			_ = json.Unmarshal(b.Input, &args)
			resp.ToolCalls = append(resp.ToolCalls, llm.ToolCall{
				ID:        b.ID,
				Name:      b.Name,
				Arguments: args,
				RawArgs:   string(b.Input),
			})
		}
	}
	resp.Usage = llm.Usage{
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
	}
	switch msg.StopReason {
	case anthropic.StopReasonMaxTokens:
		resp.FinishReason = llm.FinishLength
	case anthropic.StopReasonToolUse:
		resp.FinishReason = llm.FinishToolCalls
	case anthropic.StopReasonEndTurn, anthropic.StopReasonStopSequence:
		resp.FinishReason = llm.FinishStop
	default:
		resp.FinishReason = llm.FinishOther
	}
	return resp
}

func wrapError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return llm.NewFromStatus("anthropic", apiErr.StatusCode, apiErr.Error(), err)
	}
	return &llm.Error{Kind: llm.ErrNetwork, Provider: "anthropic", Cause: err}
}
