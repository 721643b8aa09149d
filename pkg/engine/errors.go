package engine

import "fmt"

// ConfigError reports an invalid ruleset configuration. A [Checker] cannot be
// constructed from a configuration that produces one.
type ConfigError struct {
	Err error
}

// NewConfigError wraps err as a [*ConfigError].
func NewConfigError(err error) *ConfigError {
	return &ConfigError{Err: err}
}

func configErrorf(format string, args ...any) *ConfigError {
	return &ConfigError{Err: fmt.Errorf(format, args...)}
}

func (e *ConfigError) Error() string {
	return "invalid configuration: " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
