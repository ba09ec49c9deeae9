// Package backend describes how to invoke a particular coding-agent CLI:
// its binary name, fixed flags, and how a prompt is handed to it. Each
// named backend mirrors one real tool's command-line conventions.
package backend

import (
	"fmt"
	"os"

	"github.com/google/shlex"
	"github.com/rs/zerolog/log"
)

// OutputFormat distinguishes backends that emit newline-delimited JSON
// (parseable event/tool-use streams) from those that only emit text.
type OutputFormat int

const (
	// Text is the default: the backend's stdout is opaque prose.
	Text OutputFormat = iota
	// StreamJSON marks a backend emitting Claude's --output-format
	// stream-json NDJSON protocol.
	StreamJSON
)

// PromptMode selects how a composed prompt reaches the backend process.
type PromptMode int

const (
	// PromptArg passes the prompt as a command-line argument (after an
	// optional flag).
	PromptArg PromptMode = iota
	// PromptStdin writes the prompt to the subprocess's stdin.
	PromptStdin
)

// claudeLongPromptThreshold is the character count above which the
// claude backend switches from a positional argument to a temp-file
// indirection, to stay under the shell/exec argv length a long prompt
// would otherwise exceed.
const claudeLongPromptThreshold = 7000

// CustomBackendError reports that a "custom" backend was requested
// without a command to run.
type CustomBackendError struct{}

func (CustomBackendError) Error() string {
	return "custom backend requires a command to be specified"
}

// Descriptor is an immutable description of one backend invocation
// style: the binary, its fixed leading args, how the prompt is passed,
// and the output format its stdout carries.
type Descriptor struct {
	Command      string
	Args         []string
	PromptMode   PromptMode
	PromptFlag   string // empty means positional
	OutputFormat OutputFormat
}

// CustomConfig carries the user-supplied shape of a "custom" backend:
// an arbitrary command line plus how the prompt should be attached.
type CustomConfig struct {
	Command    string
	Args       []string
	PromptMode string // "arg" or "stdin"
	PromptFlag string
}

// Claude is the headless Claude Code backend: NDJSON streaming via
// --output-format stream-json, prompt passed with -p.
func Claude() Descriptor {
	return Descriptor{
		Command:      "claude",
		Args:         []string{"--dangerously-skip-permissions", "--verbose", "--output-format", "stream-json"},
		PromptMode:   PromptArg,
		PromptFlag:   "-p",
		OutputFormat: StreamJSON,
	}
}

// ClaudeInteractive drops -p/--output-format/--verbose so Claude's own
// TUI renders, passing the prompt as a positional argument instead.
func ClaudeInteractive() Descriptor {
	return Descriptor{
		Command:      "claude",
		Args:         []string{"--dangerously-skip-permissions"},
		PromptMode:   PromptArg,
		OutputFormat: Text,
	}
}

// Kiro runs kiro-cli headlessly with every tool pre-trusted.
func Kiro() Descriptor {
	return Descriptor{
		Command:      "kiro-cli",
		Args:         []string{"chat", "--no-interactive", "--trust-all-tools"},
		PromptMode:   PromptArg,
		OutputFormat: Text,
	}
}

// KiroWithAgent is Kiro scoped to a named agent profile, with optional
// extra trailing args.
func KiroWithAgent(agent string, extraArgs []string) Descriptor {
	d := Kiro()
	d.Args = append(d.Args, "--agent", agent)
	d.Args = append(d.Args, extraArgs...)
	return d
}

// Gemini runs gemini-cli headlessly with auto-approval.
func Gemini() Descriptor {
	return Descriptor{
		Command:      "gemini",
		Args:         []string{"--yolo"},
		PromptMode:   PromptArg,
		PromptFlag:   "-p",
		OutputFormat: Text,
	}
}

// Codex runs codex exec in full-auto mode.
func Codex() Descriptor {
	return Descriptor{
		Command:      "codex",
		Args:         []string{"exec", "--full-auto"},
		PromptMode:   PromptArg,
		OutputFormat: Text,
	}
}

// Amp runs amp with every tool pre-approved.
func Amp() Descriptor {
	return Descriptor{
		Command:      "amp",
		Args:         []string{"--dangerously-allow-all"},
		PromptMode:   PromptArg,
		PromptFlag:   "-x",
		OutputFormat: Text,
	}
}

// Copilot runs the GitHub Copilot CLI headlessly with every tool
// pre-approved.
func Copilot() Descriptor {
	return Descriptor{
		Command:      "copilot",
		Args:         []string{"--allow-all-tools"},
		PromptMode:   PromptArg,
		PromptFlag:   "-p",
		OutputFormat: Text,
	}
}

// Opencode runs the `opencode run` headless subcommand.
func Opencode() Descriptor {
	return Descriptor{
		Command:      "opencode",
		Args:         []string{"run"},
		PromptMode:   PromptArg,
		OutputFormat: Text,
	}
}

// Custom builds a Descriptor from user configuration; command is
// required.
func Custom(cfg CustomConfig) (Descriptor, error) {
	if cfg.Command == "" {
		return Descriptor{}, CustomBackendError{}
	}
	mode := PromptArg
	if cfg.PromptMode == "stdin" {
		mode = PromptStdin
	}
	return Descriptor{
		Command:      cfg.Command,
		Args:         append([]string(nil), cfg.Args...),
		PromptMode:   mode,
		PromptFlag:   cfg.PromptFlag,
		OutputFormat: Text,
	}, nil
}

// CustomFromCommandLine parses a single shell-style command-line
// string (as a user might paste from a README) into a Custom
// Descriptor with the prompt appended positionally.
func CustomFromCommandLine(line string) (Descriptor, error) {
	fields, err := shlex.Split(line)
	if err != nil {
		return Descriptor{}, fmt.Errorf("parsing custom backend command: %w", err)
	}
	if len(fields) == 0 {
		return Descriptor{}, CustomBackendError{}
	}
	return Descriptor{
		Command:      fields[0],
		Args:         fields[1:],
		PromptMode:   PromptArg,
		OutputFormat: Text,
	}, nil
}

// FromName resolves one of the built-in backend names; custom backends
// are not resolvable by name alone (they need a command).
func FromName(name string) (Descriptor, error) {
	switch name {
	case "claude":
		return Claude(), nil
	case "kiro":
		return Kiro(), nil
	case "gemini":
		return Gemini(), nil
	case "codex":
		return Codex(), nil
	case "amp":
		return Amp(), nil
	case "copilot":
		return Copilot(), nil
	case "opencode":
		return Opencode(), nil
	default:
		return Descriptor{}, fmt.Errorf("unknown backend %q", name)
	}
}

// FromNameWithArgs resolves a named backend and appends extraArgs.
func FromNameWithArgs(name string, extraArgs []string) (Descriptor, error) {
	d, err := FromName(name)
	if err != nil {
		return Descriptor{}, err
	}
	d.Args = append(append([]string(nil), d.Args...), extraArgs...)
	return d, nil
}

// ForInteractivePrompt returns the interactive variant of the named
// backend: the headless descriptor with the flags that would otherwise
// force non-interactive exit stripped out.
func ForInteractivePrompt(name string) (Descriptor, error) {
	switch name {
	case "claude":
		return ClaudeInteractive(), nil
	case "kiro":
		return Descriptor{
			Command: "kiro-cli", Args: []string{"chat", "--trust-all-tools"},
			PromptMode: PromptArg, OutputFormat: Text,
		}, nil
	case "gemini":
		return Descriptor{
			Command: "gemini", Args: []string{"--yolo"},
			PromptMode: PromptArg, PromptFlag: "-i", OutputFormat: Text,
		}, nil
	case "codex":
		return Descriptor{Command: "codex", PromptMode: PromptArg, OutputFormat: Text}, nil
	case "amp":
		return Descriptor{
			Command: "amp", PromptMode: PromptArg, PromptFlag: "-x", OutputFormat: Text,
		}, nil
	case "copilot":
		return Descriptor{
			Command: "copilot", PromptMode: PromptArg, PromptFlag: "-p", OutputFormat: Text,
		}, nil
	case "opencode":
		return Descriptor{
			Command: "opencode", PromptMode: PromptArg, PromptFlag: "--prompt", OutputFormat: Text,
		}, nil
	default:
		return Descriptor{}, fmt.Errorf("unknown backend %q", name)
	}
}

// filterArgsForInteractive strips the flags that would force a
// backend into non-interactive headless execution, so its native TUI
// can render while still receiving an initial prompt.
func (d Descriptor) filterArgsForInteractive(args []string) []string {
	var drop string
	switch d.Command {
	case "kiro-cli":
		drop = "--no-interactive"
	case "codex":
		drop = "--full-auto"
	case "amp":
		drop = "--dangerously-allow-all"
	case "copilot":
		drop = "--allow-all-tools"
	default:
		return args
	}
	out := args[:0:0]
	for _, a := range args {
		if a != drop {
			out = append(out, a)
		}
	}
	return out
}

// BuiltCommand is the fully-resolved invocation for one subprocess
// launch.
type BuiltCommand struct {
	Command  string
	Args     []string
	Stdin    string // non-empty only when PromptMode is PromptStdin
	UseStdin bool
	TempFile string // path to a temp file the caller must remove, if set
}

// BuildCommand resolves prompt into a concrete argv/stdin payload for
// d, applying interactive-mode flag filtering and, for claude with a
// prompt over claudeLongPromptThreshold characters, writing the prompt
// to a temp file and instructing Claude to read it instead of passing
// it inline.
func BuildCommand(d Descriptor, prompt string, interactive bool) (BuiltCommand, error) {
	args := append([]string(nil), d.Args...)
	if interactive {
		args = d.filterArgsForInteractive(args)
	}

	switch d.PromptMode {
	case PromptStdin:
		return BuiltCommand{Command: d.Command, Args: args, Stdin: prompt, UseStdin: true}, nil
	default:
		promptText := prompt
		var tempPath string
		if d.Command == "claude" && len(prompt) > claudeLongPromptThreshold {
			f, err := os.CreateTemp("", "ralph-prompt-*.md")
			if err != nil {
				log.Warn().Err(err).Msg("failed to create prompt temp file, falling back to inline prompt")
			} else {
				if _, err := f.WriteString(prompt); err != nil {
					log.Warn().Err(err).Msg("failed to write prompt temp file, falling back to inline prompt")
					f.Close()
					os.Remove(f.Name())
				} else {
					f.Close()
					tempPath = f.Name()
					promptText = fmt.Sprintf("Please read and execute the task in %s", tempPath)
				}
			}
		}

		if d.PromptFlag != "" {
			args = append(args, d.PromptFlag)
		}
		args = append(args, promptText)

		log.Debug().
			Str("command", d.Command).
			Int("args_count", len(args)).
			Int("prompt_len", len(prompt)).
			Bool("interactive", interactive).
			Bool("uses_temp_file", tempPath != "").
			Msg("built CLI command")

		return BuiltCommand{Command: d.Command, Args: args, TempFile: tempPath}, nil
	}
}
