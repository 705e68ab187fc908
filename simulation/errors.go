package simulation

import "fmt"

// A ConfigurationError describes invalid settings. It is fatal: the run
// aborts before any event is processed.
type ConfigurationError struct {
	Param  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Param, e.Reason)
}

func configErr(param, reason string) *ConfigurationError {
	return &ConfigurationError{Param: param, Reason: reason}
}
