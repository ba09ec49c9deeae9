package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envPrefix is the prefix every bound environment variable carries,
// e.g. RALPH_EVENT_LOOP_MAX_ITERATIONS.
const envPrefix = "RALPH"

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	bindEnvKeysFromSchema(v)
	SetDefaults(v)
	return v
}

// bindEnvKeysFromSchema walks the Config struct via reflection to
// enumerate every leaf mapstructure path and binds it to its RALPH_*
// environment variable. This replaces a manually maintained key list,
// eliminating the "added a field but forgot its env var" class of bug.
func bindEnvKeysFromSchema(v *viper.Viper) {
	replacer := strings.NewReplacer(".", "_")
	for _, path := range collectLeafPaths(reflect.TypeOf(Config{}), "") {
		envVar := envPrefix + "_" + strings.ToUpper(replacer.Replace(path))
		if err := v.BindEnv(path, envVar); err != nil {
			panic(fmt.Sprintf("config: BindEnv(%q, %q) failed: %v", path, envVar, err))
		}
	}
}

// collectLeafPaths walks a struct type and returns every dotted path
// to a non-struct field, recursing into embedded/nested structs (maps
// are leaves — their keys aren't known statically).
func collectLeafPaths(t reflect.Type, prefix string) []string {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}

	var paths []string
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "-" {
			continue
		}
		if tag == ",squash" {
			paths = append(paths, collectLeafPaths(field.Type, prefix)...)
			continue
		}
		if tag == "" {
			continue
		}

		fullPath := tag
		if prefix != "" {
			fullPath = prefix + "." + tag
		}

		ft := field.Type
		if ft.Kind() == reflect.Ptr {
			ft = ft.Elem()
		}
		switch {
		case ft == reflect.TypeOf(time.Duration(0)):
			paths = append(paths, fullPath)
		case ft.Kind() == reflect.Struct:
			paths = append(paths, collectLeafPaths(ft, fullPath)...)
		default:
			// Maps (hats, events) and slices are leaves: their shape
			// isn't known until the file is parsed.
			paths = append(paths, fullPath)
		}
	}
	return paths
}

// Load reads the run configuration from the given file path (if
// non-empty), overlays the optional user-level file at
// $RALPH_HOME/config.yaml, and merges environment-variable overrides,
// then normalizes v1 fields and validates the result.
func Load(projectConfigPath string) (*Config, *ValidationError, error) {
	v := newViper()

	if userFile, err := UserConfigFile(); err == nil {
		if _, statErr := os.Stat(userFile); statErr == nil {
			v.SetConfigFile(userFile)
			if err := v.ReadInConfig(); err != nil {
				return nil, nil, fmt.Errorf("reading user config %s: %w", userFile, err)
			}
		}
	}

	if projectConfigPath != "" {
		v.SetConfigFile(projectConfigPath)
		if err := v.MergeInConfig(); err != nil {
			return nil, nil, fmt.Errorf("reading config %s: %w", projectConfigPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.Normalize()

	if _, err := cfg.Validate(); err != nil {
		if verr, ok := err.(*ValidationError); ok {
			return &cfg, verr, nil
		}
		return nil, nil, err
	}

	return &cfg, nil, nil
}
