package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/investorcenter/ic-engine/internal/backtest"
	"github.com/investorcenter/ic-engine/internal/contracts"
	"github.com/investorcenter/ic-engine/pkg/logger"
)

// BacktestHandler serves backtest job endpoints.
// SSOT: backtest API handlers live in this struct only.
type BacktestHandler struct {
	runner   *backtest.Runner
	upgrader websocket.Upgrader
	logger   *logger.Logger
}

// NewBacktestHandler creates a new backtest handler.
func NewBacktestHandler(runner *backtest.Runner, log *logger.Logger) *BacktestHandler {
	return &BacktestHandler{
		runner: runner,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Progress streams carry no sensitive state; same-origin
			// enforcement belongs to the gateway in front of us.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: log,
	}
}

// SubmitRequest is the body of POST /api/backtest. Dates are
// YYYY-MM-DD; everything else mirrors the job config.
type SubmitRequest struct {
	StartDate          string   `json:"start_date"`
	EndDate            string   `json:"end_date"`
	Frequency          string   `json:"frequency"`
	TransactionCostBps float64  `json:"transaction_cost_bps"`
	SlippageBps        float64  `json:"slippage_bps"`
	BenchmarkTicker    string   `json:"benchmark_ticker,omitempty"`
	UseSmoothed        bool     `json:"use_smoothed"`
	Universe           []string `json:"universe,omitempty"`
	MarketCapMin       float64  `json:"market_cap_min,omitempty"`
	MarketCapMax       float64  `json:"market_cap_max,omitempty"`
	ExcludeSectors     []string `json:"exclude_sectors,omitempty"`
}

// Submit queues a new backtest job and returns it immediately.
// POST /api/backtest
func (h *BacktestHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		respondError(w, http.StatusBadRequest, "start_date must be YYYY-MM-DD")
		return
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		respondError(w, http.StatusBadRequest, "end_date must be YYYY-MM-DD")
		return
	}

	cfg := contracts.BacktestConfig{
		StartDate:          start,
		EndDate:            end,
		Frequency:          contracts.RebalanceFrequency(req.Frequency),
		TransactionCostBps: req.TransactionCostBps,
		SlippageBps:        req.SlippageBps,
		BenchmarkTicker:    req.BenchmarkTicker,
		UseSmoothed:        req.UseSmoothed,
		Universe:           req.Universe,
		MarketCapMin:       req.MarketCapMin,
		MarketCapMax:       req.MarketCapMax,
		ExcludeSectors:     req.ExcludeSectors,
	}

	job, err := h.runner.Submit(r.Context(), cfg)
	if err != nil {
		h.logger.WithError(err).Warn("Backtest submission rejected")
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusAccepted, job)
}

// GetJob returns a job's current status and progress.
// GET /api/backtest/{id}
func (h *BacktestHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	job, err := h.runner.Job(r.Context(), id)
	if err != nil {
		if errors.Is(err, backtest.ErrJobNotFound) {
			respondError(w, http.StatusNotFound, "No backtest job "+id)
			return
		}
		h.logger.WithError(err).Error("Failed to load backtest job")
		respondError(w, http.StatusInternalServerError, "Failed to load backtest job")
		return
	}
	respondJSON(w, http.StatusOK, job)
}

// GetResult returns a completed job's summary.
// GET /api/backtest/{id}/result
func (h *BacktestHandler) GetResult(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	summary, err := h.runner.Summary(r.Context(), id)
	if err != nil {
		if errors.Is(err, backtest.ErrJobNotFound) {
			respondError(w, http.StatusNotFound, "No result for backtest job "+id)
			return
		}
		h.logger.WithError(err).Error("Failed to load backtest result")
		respondError(w, http.StatusInternalServerError, "Failed to load backtest result")
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// Cancel stops a running job.
// POST /api/backtest/{id}/cancel
func (h *BacktestHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	h.runner.Cancel(id)
	respondJSON(w, http.StatusOK, map[string]string{"status": "cancelling", "id": id})
}

// Stream pushes job snapshots over a websocket until the job reaches
// a terminal state or the client goes away.
// GET /api/backtest/{id}/stream
func (h *BacktestHandler) Stream(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	// Validate before upgrading so a bad ID gets a proper 404.
	job, err := h.runner.Job(r.Context(), id)
	if err != nil {
		if errors.Is(err, backtest.ErrJobNotFound) {
			respondError(w, http.StatusNotFound, "No backtest job "+id)
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to load backtest job")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	updates, unsubscribe := h.runner.Subscribe(id)
	defer unsubscribe()

	// Initial snapshot so the client sees current progress even when
	// no update is in flight.
	if err := conn.WriteJSON(job); err != nil {
		return
	}
	if job.Status == contracts.JobCompleted || job.Status == contracts.JobFailed {
		return
	}

	// Drain client frames so pings and close frames are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case snapshot, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(snapshot); err != nil {
				return
			}
			if snapshot.Status == contracts.JobCompleted || snapshot.Status == contracts.JobFailed {
				return
			}
		}
	}
}
