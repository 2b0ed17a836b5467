package roadmap

import "fmt"

// ErrNotInitialized is returned when a provider is used before Init is called.
type ErrNotInitialized struct {
	Provider string
}

func (e *ErrNotInitialized) Error() string {
	return e.Provider + " provider not initialized; call Init() first"
}

// AuthError marks rejected credentials, distinguished from generic
// connectivity failures so callers can report it as fatal rather than
// retryable.
type AuthError struct {
	Provider string
	Err      error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s authentication failed: %v", e.Provider, e.Err)
	}
	return e.Provider + " authentication failed"
}

func (e *AuthError) Unwrap() error { return e.Err }

// ConfigError marks a missing or malformed configuration field.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config field %s: %s", e.Field, e.Reason)
}
