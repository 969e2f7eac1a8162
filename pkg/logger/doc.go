// Package logger builds *slog.Logger values with functional options,
// environment presets and attributes pulled from context.Context.
//
// New picks slog.NewTextHandler or slog.NewJSONHandler from the configured
// Format and wraps it in LogHandlerDecorator, which runs the registered
// ContextExtractor callbacks on every record. Helper constructors in attr.go
// keep attribute keys consistent across packages.
//
// # Usage
//
//	log := logger.New(
//	    logger.WithEnvironment(logger.EnvProduction, "notifyd"),
//	    logger.WithContextValue("request_id", ctxKeyRequestID),
//	)
//	logger.SetAsDefault(log)
//
//	log.InfoContext(ctx, "digest sent",
//	    logger.UserID(42),
//	    logger.Count(3),
//	)
//
// Services that read configuration from the environment use NewFromConfig
// with a Config loaded by the config package.
package logger
