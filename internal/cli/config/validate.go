package config

import (
	"fmt"
	"net/url"
	"slices"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := ValidateBackendURL(c.BackendURL); err != nil {
		return err
	}
	if c.DoctorID == "" {
		return fmt.Errorf("doctor_id is required")
	}
	if !slices.Contains(OutputModes, c.OutputFormat) {
		return fmt.Errorf("invalid output format %q (expected one of %v)", c.OutputFormat, OutputModes)
	}
	if c.UI.Port < 0 || c.UI.Port > 65535 {
		return fmt.Errorf("invalid ui.port %d", c.UI.Port)
	}
	return nil
}

// ValidateBackendURL requires an absolute http or https URL.
func ValidateBackendURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid backend_url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid backend_url %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid backend_url %q: missing host", raw)
	}
	return nil
}
