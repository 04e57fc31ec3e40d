package config

import (
	"go.uber.org/zap"
)

// NewLogger builds a JSON production logger, or a console logger for development.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	if cfg.IsDevelopment() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
