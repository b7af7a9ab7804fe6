package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/investorcenter/ic-engine/internal/api/handlers"
	"github.com/investorcenter/ic-engine/pkg/logger"
)

// NewRouter creates and configures the HTTP router.
// SSOT: route registration happens in this function only.
func NewRouter(
	scores *handlers.ScoresHandler,
	backtests *handlers.BacktestHandler,
	health *handlers.HealthHandler,
	log *logger.Logger,
) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", health.Check).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Scoring
	api.HandleFunc("/scores/calculate", scores.Calculate).Methods("POST")
	api.HandleFunc("/scores/{ticker}", scores.GetScore).Methods("GET")
	api.HandleFunc("/scores/{ticker}/history", scores.GetHistory).Methods("GET")
	api.HandleFunc("/scores/{ticker}/changes", scores.GetChanges).Methods("GET")
	api.HandleFunc("/lifecycle/{ticker}", scores.GetLifecycle).Methods("GET")
	api.HandleFunc("/sectors/{sector}/stats", scores.GetSectorStats).Methods("GET")

	// Backtesting
	api.HandleFunc("/backtest", backtests.Submit).Methods("POST")
	api.HandleFunc("/backtest/{id}", backtests.GetJob).Methods("GET")
	api.HandleFunc("/backtest/{id}/result", backtests.GetResult).Methods("GET")
	api.HandleFunc("/backtest/{id}/stream", backtests.Stream).Methods("GET")
	api.HandleFunc("/backtest/{id}/cancel", backtests.Cancel).Methods("POST")

	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// loggingMiddleware logs HTTP requests.
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics.
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
