package handle

import (
	"context"
	"net/http"
	"time"

	"weighline/internal/weighing/app/core"
)

const healthTimeout = 2 * time.Second

// Health reports the service as up and whether the recipe backend answers.
func Health(db core.IPinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]string{
			"status":   "ok",
			"database": "up",
		}
		if db == nil {
			resp["database"] = "unknown"
			jsonResponse(w, http.StatusOK, resp)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		if err := db.IsAlive(ctx); err != nil {
			resp["status"] = "degraded"
			resp["database"] = "down"
			jsonResponse(w, http.StatusServiceUnavailable, resp)
			return
		}
		jsonResponse(w, http.StatusOK, resp)
	}
}
