// Package logger builds slog loggers for dataguard services.
//
// Loggers write JSON or text to stdout and append request-scoped attributes
// through context extractors, so a tenant slug or request id resolved by a
// middleware shows up on every record logged with that context:
//
//	log, err := logger.New(logger.Config{Level: "info"},
//	    middlewares.RequestIDExtractor(),
//	    tenant.SlugExtractor(),
//	)
//	log.InfoContext(ctx, "tenant resolved")
//	// {"level":"INFO","msg":"tenant resolved","request_id":"...","tenant_slug":"acme"}
//
// Setting SentryDSN forwards warnings and errors to Sentry as well; errors
// become issues. Call Flush before exit so buffered events are delivered.
//
// Library packages take a *slog.Logger through a WithLogger option and fall
// back to NewNope.
package logger
