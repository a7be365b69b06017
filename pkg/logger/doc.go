// Package logger builds the service's slog.Logger: JSON or text output,
// static service attributes, and shared attribute helpers so log keys
// stay consistent across packages.
//
//	log := logger.New(
//	    logger.WithProduction("notifyd"),
//	    logger.WithLevel(slog.LevelInfo),
//	)
//	logger.SetAsDefault(log)
package logger
