package logging

import (
	"go.uber.org/zap"
)

// New builds the process-wide logger. Development mode uses the console
// encoder; anything else gets production JSON output.
func New(env string) (*zap.Logger, error) {
	if env == "development" {
		cfg := zap.NewDevelopmentConfig()
		return cfg.Build()
	}

	return zap.NewProduction()
}
