package cmdutil

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/ralph-loop/ralph/internal/config"
	"github.com/ralph-loop/ralph/internal/iostreams"
)

// Factory provides shared dependencies for CLI commands. Configuration
// is lazily loaded and cached for the lifetime of one command invocation.
type Factory struct {
	// Configuration from flags (set before command execution)
	WorkDir    string
	ConfigFile string // explicit --config path, overrides the WorkDir-relative default
	Debug      bool

	// Version info (set at build time via ldflags)
	Version string
	Commit  string

	// IO streams for input/output (for testability)
	IOStreams *iostreams.IOStreams

	configOnce sync.Once
	configData *config.Config
	configErr  error
}

// New creates a new Factory with the given version information.
func New(version, commit string) *Factory {
	ios := iostreams.NewIOStreams()

	if ios.IsOutputTTY() {
		ios.DetectTerminalTheme()
		if os.Getenv("NO_COLOR") != "" {
			ios.SetColorEnabled(false)
		}
	} else {
		ios.SetColorEnabled(false)
	}

	if os.Getenv("CI") != "" {
		ios.SetNeverPrompt(true)
	}

	return &Factory{
		Version:   version,
		Commit:    commit,
		IOStreams: ios,
	}
}

// Config returns the loaded, validated run configuration, loading it on
// first call. A validation error is reported verbatim as the returned
// error; Config never returns a config alongside a non-nil error.
func (f *Factory) Config() (*config.Config, error) {
	f.configOnce.Do(func() {
		path := f.ConfigFile
		if path == "" {
			// WorkDir-relative default; absent file means defaults-only.
			candidate := filepath.Join(f.WorkDir, "ralph.yml")
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
			}
		}
		cfg, verr, err := config.Load(path)
		switch {
		case err != nil:
			f.configErr = err
		case verr != nil:
			f.configErr = verr
		default:
			f.configData = cfg
		}
	})
	return f.configData, f.configErr
}

// ResetConfig clears the cached configuration and its sync.Once guard,
// forcing a reload (including re-reading the file) on next access.
func (f *Factory) ResetConfig() {
	f.configOnce = sync.Once{}
	f.configData = nil
	f.configErr = nil
}
