package session

// Config bounds one Session's behavior.
type Config struct {
	MaxToolRoundsPerInput int
	MaxTurns              int // 0 disables the check
	ReasoningEffort       string
	EnableLoopDetection   bool
	LoopDetectionWindow   int
	MaxSubagentDepth      int
	UserInstructions      string // caller-supplied override, highest prompt priority
}

// DefaultConfig returns the boundary's baseline limits.
func DefaultConfig() Config {
	return Config{
		MaxToolRoundsPerInput: 50,
		MaxTurns:              0,
		EnableLoopDetection:   true,
		LoopDetectionWindow:   10,
		MaxSubagentDepth:      2,
	}
}
