// Package middlewares provides net/http middleware for the request path of a
// dataguard service. Every middleware has the func(http.Handler) http.Handler
// shape and plugs into chi or any other router.
//
// A typical stack:
//
//	r := chi.NewRouter()
//	r.Use(
//	    middlewares.RequestID(),
//	    middlewares.Recover(middlewares.WithRecoverLogger(log)),
//	    middlewares.Timeout(10*time.Second),
//	    middlewares.ResolveTenant(resolver, middlewares.WithTrustForwardedHost()),
//	    middlewares.RequestScope(registry),
//	)
//
// ResolveTenant stores the tenant in the request context; RequestScope then
// opens one loader scope per request so GraphQL field resolvers share batches
// through scope.LoadEntity and scope.LoadRelated.
//
// Errors raised by the middlewares go through an ErrorHandler. The default
// one maps tenant errors to status codes with StatusCode and writes a small
// JSON body.
//
// RequestIDExtractor plugs the request id into logger.New so every record
// logged with the request context carries it.
package middlewares
