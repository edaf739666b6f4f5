package payment

import (
	"errors"
	"fmt"
)

// ErrUnknownOrder marks a callback referencing an order the store does
// not know. The event stays logged and acknowledged, no transition runs.
var ErrUnknownOrder = errors.New("order not found for callback")

// ConfigError reports missing or incomplete provider credentials. It is
// fatal for that provider's operations and never silently downgraded.
type ConfigError struct {
	Provider string
	Reason   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("provider %s misconfigured: %s", e.Provider, e.Reason)
}

// IsConfigError reports whether err is a provider configuration error.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// ProviderError is a definitive rejection from the provider (4xx, business
// error code). Retrying with the same request will not help.
type ProviderError struct {
	Provider string
	Code     string
	Message  string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s rejected request: code=%s message=%s", e.Provider, e.Code, e.Message)
}
