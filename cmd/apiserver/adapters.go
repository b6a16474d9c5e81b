package main

import (
	"github.com/turtacn/competeiq/internal/bootstrap"
	"github.com/turtacn/competeiq/internal/config"
	"github.com/turtacn/competeiq/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/competeiq/internal/interfaces/http/handlers"
)

func healthCheckers(infra *bootstrap.Infrastructure) []handlers.HealthChecker {
	checks := infra.Checks()
	out := make([]handlers.HealthChecker, 0, len(checks))
	for _, c := range checks {
		out = append(out, handlers.NewChecker(c.Name, c.Fn))
	}
	return out
}

// watchLogLevel applies log.level changes without a restart. Other settings
// need one.
func watchLogLevel(path string, logger logging.Logger) {
	err := config.Watch(path, func(cfg *config.Config) {
		if logging.SetLevel(logger, cfg.Log.Level) {
			logger.Info("Log level updated", logging.String("level", cfg.Log.Level))
		}
	}, func(err error) {
		logger.Warn("Ignoring invalid configuration change", logging.Err(err))
	})
	if err != nil {
		logger.Warn("Configuration watch disabled", logging.Err(err))
	}
}
