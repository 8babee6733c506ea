// internal/workers/hr-query/process-hr-query/config.go
package processhrquery

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig(timeout time.Duration) *Config {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &Config{Timeout: timeout}
}
