package config

// Normalize folds the flat v1 fields into their v2 nested home, with
// v1 values taking precedence whenever both are set. This lets an
// existing v1 config file keep working unchanged after the schema grew
// the cli./event_loop. nesting.
func (c *Config) Normalize() {
	if c.V1.Agent != "" {
		c.CLI.Backend = c.V1.Agent
	}
	if c.V1.PromptFile != "" {
		c.EventLoop.PromptFile = c.V1.PromptFile
	}
	if c.V1.CompletionPromise != "" {
		c.EventLoop.CompletionPromise = c.V1.CompletionPromise
	}
	if c.V1.MaxIterations != 0 {
		c.EventLoop.MaxIterations = c.V1.MaxIterations
	}
	if c.V1.MaxRuntime != 0 {
		c.EventLoop.MaxRuntimeSeconds = c.V1.MaxRuntime
	}
	if c.V1.MaxCost != nil {
		c.EventLoop.MaxCostUSD = c.V1.MaxCost
	}
}
