package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// Check is a named readiness dependency such as a database ping.
type Check struct {
	Name string
	Func func(context.Context) error
}

type healthResponse struct {
	Status string            `json:"status"`
	Failed map[string]string `json:"failed,omitempty"`
}

// HealthCheckHandler serves liveness when no checks are given and readiness
// otherwise. Every check runs with timeout; any failure answers 503 with the
// failing check names.
func HealthCheckHandler(log *slog.Logger, timeout time.Duration, checks ...Check) http.HandlerFunc {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}

		if len(checks) > 0 {
			ctx := r.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			for _, c := range checks {
				if err := c.Func(ctx); err != nil {
					log.LogAttrs(ctx, slog.LevelError, "Readiness check failed",
						slog.String("check", c.Name), logger.Error(err))
					if resp.Failed == nil {
						resp.Failed = make(map[string]string)
					}
					resp.Failed[c.Name] = err.Error()
				}
			}
		}

		code := http.StatusOK
		if len(resp.Failed) > 0 {
			resp.Status = "unavailable"
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
