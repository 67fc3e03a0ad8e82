package config

import (
	"fmt"
	"strings"
)

// ConfigError reports missing or invalid configuration. It is fatal for the
// operation that needs the keys, never for the whole process.
type ConfigError struct {
	Keys   []string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", strings.Join(e.Keys, ", "), e.Reason)
}
