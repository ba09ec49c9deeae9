// Package config loads and validates the YAML configuration that shapes
// one loop run: the CLI backend to drive, the event-loop limits, the
// hat topology, and the memories/tasks/parallel feature toggles.
package config

import "time"

// CLIConfig selects and shapes the backend subprocess the loop drives.
type CLIConfig struct {
	Backend     string `mapstructure:"backend"`      // claude|kiro|gemini|codex|amp|copilot|opencode|custom
	Command     string `mapstructure:"command"`      // required when Backend == "custom"
	Args        []string `mapstructure:"args"`
	PromptMode  string `mapstructure:"prompt_mode"`  // arg|stdin
	DefaultMode string `mapstructure:"default_mode"` // autonomous|interactive
	IdleTimeoutSecs int `mapstructure:"idle_timeout_secs"`
}

// EventLoopConfig carries the scheduler's termination limits and the
// objective prompt source.
type EventLoopConfig struct {
	Prompt             string        `mapstructure:"prompt"`
	PromptFile         string        `mapstructure:"prompt_file"`
	CompletionPromise  string        `mapstructure:"completion_promise"`
	MaxIterations      int           `mapstructure:"max_iterations"`
	MaxRuntimeSeconds  int           `mapstructure:"max_runtime_seconds"`
	MaxCostUSD         *float64      `mapstructure:"max_cost_usd"`
	MaxConsecutiveFailures int       `mapstructure:"max_consecutive_failures"`
	StartingEvent      string        `mapstructure:"starting_event"`

	// Not decoded from the file (mapstructure "-") and not read by
	// Normalize, which takes v1 values from Config.V1.
	AgentV1             string `mapstructure:"-"`
	MaxRuntimeV1Seconds int    `mapstructure:"-"`
}

// CoreConfig names the orientation surfaces a solo loop reads from.
type CoreConfig struct {
	Scratchpad  string   `mapstructure:"scratchpad"`
	SpecsDir    string   `mapstructure:"specs_dir"`
	Guardrails  []string `mapstructure:"guardrails"`
}

// HatConfig is one entry of the hats.<id> map.
type HatConfig struct {
	Name             string   `mapstructure:"name"`
	Description      string   `mapstructure:"description"`
	Triggers         []string `mapstructure:"triggers"`
	Publishes        []string `mapstructure:"publishes"`
	Instructions     string   `mapstructure:"instructions"`
	Backend          string   `mapstructure:"backend"`
	DefaultPublishes string   `mapstructure:"default_publishes"`
	MaxActivations   int      `mapstructure:"max_activations"`
}

// EventMeta is one entry of the events.<topic> map: metadata the prompt
// composer uses to annotate the topology table.
type EventMeta struct {
	Description string `mapstructure:"description"`
	OnTrigger   string `mapstructure:"on_trigger"`
	OnPublish   string `mapstructure:"on_publish"`
}

// MemoriesFilter narrows which memories are injected.
type MemoriesFilter struct {
	Types  []string `mapstructure:"types"`
	Tags   []string `mapstructure:"tags"`
	Recent int      `mapstructure:"recent"` // whole days; 0 means unfiltered
}

// MemoriesConfig controls the memory-injection prelude.
type MemoriesConfig struct {
	Enabled bool           `mapstructure:"enabled"`
	Inject  string         `mapstructure:"inject"` // auto|manual|none
	Budget  int            `mapstructure:"budget"` // tokens
	Filter  MemoriesFilter `mapstructure:"filter"`
}

// TasksConfig toggles the markdown task-store collaborator.
type TasksConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// FeaturesConfig gates optional subsystems.
type FeaturesConfig struct {
	Parallel bool `mapstructure:"parallel"`
}

// TUIConfig configures the optional terminal dashboard observer.
type TUIConfig struct {
	PrefixKey string `mapstructure:"prefix_key"` // "ctrl-<char>"
}

// Config is the fully-resolved, validated run configuration.
type Config struct {
	CLI       CLIConfig            `mapstructure:"cli"`
	EventLoop EventLoopConfig      `mapstructure:"event_loop"`
	Core      CoreConfig           `mapstructure:"core"`
	Hats      map[string]HatConfig `mapstructure:"hats"`
	Events    map[string]EventMeta `mapstructure:"events"`
	Memories  MemoriesConfig       `mapstructure:"memories"`
	Tasks     TasksConfig          `mapstructure:"tasks"`
	Features  FeaturesConfig       `mapstructure:"features"`
	TUI       TUIConfig            `mapstructure:"tui"`

	// V1 compatibility: flat top-level fields that normalize into the
	// nested shape above, with v1 values taking precedence when present.
	V1 V1CompatConfig `mapstructure:",squash"`
}

// V1CompatConfig holds the flat v1 config fields. See Normalize.
type V1CompatConfig struct {
	Agent             string  `mapstructure:"agent"`
	PromptFile        string  `mapstructure:"prompt_file"`
	CompletionPromise string  `mapstructure:"completion_promise"`
	MaxIterations     int     `mapstructure:"max_iterations"`
	MaxRuntime        int     `mapstructure:"max_runtime"`
	MaxCost           *float64 `mapstructure:"max_cost"`
}

// IdleTimeout returns the configured idle timeout as a Duration,
// defaulting to 30s.
func (c CLIConfig) IdleTimeout() time.Duration {
	if c.IdleTimeoutSecs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.IdleTimeoutSecs) * time.Second
}

// MaxRuntime returns the configured max runtime as a Duration.
func (e EventLoopConfig) MaxRuntime() time.Duration {
	return time.Duration(e.MaxRuntimeSeconds) * time.Second
}
