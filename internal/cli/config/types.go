// Package config loads DocDor CLI configuration.
//
// Sources, highest priority first: command-line flags, DOCDOR_* environment
// variables, VITE_BACKEND_URL, the docdor.yaml config file, a .env file in the
// working directory, and built-in defaults.
package config

// Defaults.
const (
	DefaultBackendURL = "http://localhost:8000"
	DefaultDoctorID   = "mock-doctor"
	DefaultOutput     = "auto"
	DefaultUIPort     = 8765
	DefaultEnvFile    = ".env"
)

// Environment.
const (
	EnvPrefix = "DOCDOR_"
	// ViteBackendURLEnv is the build-time variable the original web client
	// read its backend from. It is honored as an alias for backend_url.
	ViteBackendURLEnv = "VITE_BACKEND_URL"
)

// Output modes for commands that print results.
const (
	OutputAuto     = "auto"
	OutputText     = "text"
	OutputMarkdown = "markdown"
	OutputJSON     = "json"
)

// OutputModes lists the accepted values of --output.
var OutputModes = []string{OutputAuto, OutputText, OutputMarkdown, OutputJSON}

// UIConfig holds configuration for the preview server.
type UIConfig struct {
	Port          int    `koanf:"port"`
	AutoOpen      bool   `koanf:"auto_open"`
	Watch         bool   `koanf:"watch"`
	SessionSecret string `koanf:"session_secret"`
}

// Config holds all CLI configuration options.
type Config struct {
	BackendURL   string   `koanf:"backend_url"`
	DoctorID     string   `koanf:"doctor_id"`
	Verbose      bool     `koanf:"verbose"`
	OutputFormat string   `koanf:"output"`
	UI           UIConfig `koanf:"ui"`
}

// Default returns the configuration used when nothing else is provided.
func Default() *Config {
	return &Config{
		BackendURL:   DefaultBackendURL,
		DoctorID:     DefaultDoctorID,
		OutputFormat: DefaultOutput,
		UI: UIConfig{
			Port:     DefaultUIPort,
			AutoOpen: true,
		},
	}
}
