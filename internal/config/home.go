package config

import (
	"os"
	"path/filepath"
)

// HomeEnv is the environment variable that overrides the ralph home
// directory used for the optional user-level config layer.
const HomeEnv = "RALPH_HOME"

// DefaultHomeDir is the directory name created under the user's home
// directory when RALPH_HOME is unset.
const DefaultHomeDir = ".ralph"

// Home returns the ralph home directory: $RALPH_HOME if set, else
// ~/.ralph.
func Home() (string, error) {
	if home := os.Getenv(HomeEnv); home != "" {
		return home, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, DefaultHomeDir), nil
}

// UserConfigFile returns the path to the optional user-level config
// overlay, $RALPH_HOME/config.yaml.
func UserConfigFile() (string, error) {
	home, err := Home()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "config.yaml"), nil
}
