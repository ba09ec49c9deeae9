package config

import "github.com/spf13/viper"

// DefaultCompletionPromise is the token the coordinator must emit to
// signal a completed objective, absent an override.
const DefaultCompletionPromise = "LOOP_COMPLETE"

// SetDefaults populates v with the built-in defaults before any file
// or environment layer is merged in.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("cli.prompt_mode", "arg")
	v.SetDefault("cli.default_mode", "autonomous")
	v.SetDefault("cli.idle_timeout_secs", 30)

	v.SetDefault("event_loop.completion_promise", DefaultCompletionPromise)
	v.SetDefault("event_loop.max_iterations", 100)
	v.SetDefault("event_loop.max_runtime_seconds", 14400)
	v.SetDefault("event_loop.max_consecutive_failures", 5)

	v.SetDefault("core.scratchpad", "SCRATCHPAD.md")
	v.SetDefault("core.specs_dir", "specs")

	v.SetDefault("memories.inject", "auto")
	v.SetDefault("memories.budget", 2000)

	v.SetDefault("tui.prefix_key", "ctrl-a")
}

// DefaultConfigYAML is written by `ralph init` when no config file
// exists yet.
const DefaultConfigYAML = `# Ralph loop configuration.

cli:
  backend: claude
  default_mode: autonomous
  idle_timeout_secs: 30

event_loop:
  prompt_file: PROMPT.md
  completion_promise: LOOP_COMPLETE
  max_iterations: 100
  max_runtime_seconds: 14400
  max_consecutive_failures: 5

core:
  scratchpad: SCRATCHPAD.md
  specs_dir: specs
  guardrails:
    - "Make one focused change per iteration."
    - "Never leave the working tree broken."

hats: {}

memories:
  enabled: false

tasks:
  enabled: false

features:
  parallel: false
`
