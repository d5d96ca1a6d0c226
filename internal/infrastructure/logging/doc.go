// Package logging provides structured logging using uber/zap.
//
// Two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Components receive the embedded *zap.Logger and name themselves
// (logger.Named("terminal")), attaching structured fields such as
// zap.String("session_id", id).
//
// Example Usage:
//
//	logger := logging.NewFromSettings(cfg.Logging.Level, cfg.Logging.Development)
//	defer logger.Sync()
//	logger.Info("Server starting", zap.String("addr", cfg.Addr()))
package logging
