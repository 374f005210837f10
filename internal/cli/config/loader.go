package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

type (
	loggerKey struct{}
	configKey struct{}
)

// Package-level koanf instance and source tracking.
var (
	k              = koanf.New(".")
	configFileUsed string
	envFileUsed    string
)

// flagKeys maps flag names to config keys where they differ.
var flagKeys = map[string]string{
	"doctor": "doctor_id",
}

// LoadOptions selects where configuration is read from.
type LoadOptions struct {
	// ConfigFile is an explicit config file; docdor.yaml / docdor.yml in the
	// working directory are tried when empty.
	ConfigFile string
	// EnvFile is a dotenv file merged into the process environment.
	// Variables that are already set are never overwritten.
	EnvFile string
	Flags   *pflag.FlagSet
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	envFileUsed = ""
}

// LoadConfig loads configuration from the default .env file, the config file,
// environment variables and flags.
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	return LoadConfigFrom(LoadOptions{
		ConfigFile: cfgFile,
		EnvFile:    DefaultEnvFile,
		Flags:      flags,
	})
}

// LoadConfigFrom loads configuration from the given sources.
// Precedence (highest to lowest): flags > DOCDOR_* env > VITE_BACKEND_URL >
// config file > defaults. A .env file only feeds the environment.
func LoadConfigFrom(opts LoadOptions) (*Config, error) {
	k = koanf.New(".")

	// 0. Merge .env into the environment first so the env providers see it
	envFileUsed = ""
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err == nil {
			envFileUsed = opts.EnvFile
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error reading env file %s: %w", opts.EnvFile, err)
		}
	}

	// 1. Defaults
	def := Default()
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"backend_url":       def.BackendURL,
		"doctor_id":         def.DoctorID,
		"verbose":           def.Verbose,
		"output":            def.OutputFormat,
		"ui.port":           def.UI.Port,
		"ui.auto_open":      def.UI.AutoOpen,
		"ui.watch":          def.UI.Watch,
		"ui.session_secret": def.UI.SessionSecret,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	configFileUsed = findConfigFile(opts.ConfigFile)
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. VITE_BACKEND_URL alias
	if v := strings.TrimSpace(os.Getenv(ViteBackendURLEnv)); v != "" {
		if err := k.Load(confmap.Provider(map[string]interface{}{"backend_url": v}, "."), nil); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", ViteBackendURLEnv, err)
		}
	}

	// 4. DOCDOR_ environment variables
	// Transform: DOCDOR_BACKEND_URL -> backend_url, DOCDOR_UI_AUTO_OPEN -> ui.auto_open
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 5. Flags (only those explicitly set)
	if opts.Flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(opts.Flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed || f.Name == "config" {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			if mapped, ok := flagKeys[f.Name]; ok {
				key = mapped
			}
			return key, posflag.FlagVal(opts.Flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 6. Unmarshal into Config struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.BackendURL = strings.TrimRight(strings.TrimSpace(cfg.BackendURL), "/")
	cfg.DoctorID = strings.TrimSpace(cfg.DoctorID)
	cfg.OutputFormat = strings.ToLower(strings.TrimSpace(cfg.OutputFormat))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps a DOCDOR_ variable name to its config key.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	if rest, ok := strings.CutPrefix(key, "ui_"); ok {
		return "ui." + rest
	}
	return key
}

// findConfigFile finds the config file to use.
// Priority: explicit path > docdor.yaml > docdor.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"docdor.yaml", "docdor.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetEnvFileUsed returns the .env file that was merged, if any.
func GetEnvFileUsed() string {
	return envFileUsed
}

// NewLogger returns a text logger writing to w, at debug level when verbose.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
			return l
		}
	}
	return slog.New(slog.DiscardHandler)
}

// ConfigKey returns the context key used for storing the loaded config.
func ConfigKey() interface{} {
	return configKey{}
}

// GetConfig retrieves the config from the command context, or the defaults.
func GetConfig(ctx context.Context) *Config {
	if ctx != nil {
		if c, ok := ctx.Value(configKey{}).(*Config); ok {
			return c
		}
	}
	return Default()
}
