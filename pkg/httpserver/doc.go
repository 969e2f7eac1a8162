// Package httpserver runs an http.Handler with configured timeouts and a
// graceful shutdown driven by context cancellation, and provides JSON
// liveness and readiness handlers.
//
//	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))
//	r := chi.NewRouter()
//	r.Get("/readyz", httpserver.HealthCheckHandler(log, 2*time.Second,
//		httpserver.Check{Name: "postgres", Func: pg.Healthcheck(pool)},
//	))
//	err := srv.Run(ctx, r) // returns after ctx is cancelled and requests drained
//
// Run wraps listener failures with ErrStart and Shutdown wraps drain
// failures with ErrShutdown.
package httpserver
