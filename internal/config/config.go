package config

import "fmt"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Tools: ToolsConfig{
			TimeoutSeconds: 15,
			MaxAttempts:    3,
		},
		Session: SessionConfig{
			TTLMinutes: 5,
			Store:      "memory",
		},
		Gateway: GatewayConfig{
			Port: 18790,
			Bind: "loopback",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
