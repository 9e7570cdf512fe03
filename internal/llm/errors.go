package llm

import (
	"errors"
	"fmt"
)

// ConfigError reports that no credential is available for a provider.
// It is fatal for the operation and never retried.
type ConfigError struct {
	Provider string
	EnvVar   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("no API key configured for %s (set llm.api_key in the config file or %s)", e.Provider, e.EnvVar)
}

// UpstreamError wraps a failed completion call: a non-2xx status, a transport
// failure, or a reply that carries no completion.
type UpstreamError struct {
	Provider   string
	StatusCode int // 0 for transport failures
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s API request failed with status %d: %s", e.Provider, e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s API request failed: %v", e.Provider, e.Err)
	default:
		return fmt.Sprintf("%s API request failed: %s", e.Provider, e.Message)
	}
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err is (or wraps) a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
