package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/investorcenter/ic-engine/internal/data/repos"
	"github.com/investorcenter/ic-engine/internal/pipeline"
	"github.com/investorcenter/ic-engine/internal/sector"
	"github.com/investorcenter/ic-engine/pkg/logger"
)

const defaultHistoryLimit = 90

// ScoresHandler serves score, lifecycle, and sector endpoints.
// SSOT: scoring API handlers live in this struct only.
type ScoresHandler struct {
	pipeline  *pipeline.Pipeline
	scores    *repos.ScoreRepository
	changes   *repos.ChangeRepository
	lifecycle *repos.LifecycleRepository
	sectors   *repos.SectorStatsRepository
	calc      *sector.Calculator
	logger    *logger.Logger
}

// NewScoresHandler creates a new scores handler.
func NewScoresHandler(
	p *pipeline.Pipeline,
	scores *repos.ScoreRepository,
	changes *repos.ChangeRepository,
	lifecycle *repos.LifecycleRepository,
	sectors *repos.SectorStatsRepository,
	calc *sector.Calculator,
	log *logger.Logger,
) *ScoresHandler {
	return &ScoresHandler{
		pipeline:  p,
		scores:    scores,
		changes:   changes,
		lifecycle: lifecycle,
		sectors:   sectors,
		calc:      calc,
		logger:    log,
	}
}

// CalculateRequest is the body of POST /api/scores/calculate.
type CalculateRequest struct {
	AsOf string `json:"as_of,omitempty"` // YYYY-MM-DD, defaults to today
}

// Calculate runs the full scoring pipeline synchronously.
// POST /api/scores/calculate
func (h *ScoresHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req CalculateRequest
	if r.Body != nil {
		// An empty body means "score as of now".
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	asOf := time.Now()
	if req.AsOf != "" {
		parsed, err := time.Parse("2006-01-02", req.AsOf)
		if err != nil {
			respondError(w, http.StatusBadRequest, "as_of must be YYYY-MM-DD")
			return
		}
		asOf = parsed
	}

	stats, err := h.pipeline.ComputeDailyScores(r.Context(), asOf)
	if err != nil {
		h.logger.WithError(err).Error("Scoring run failed")
		respondError(w, http.StatusInternalServerError, "Scoring run failed")
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

// GetScore returns a ticker's latest score, or the score for an exact
// date when ?date=YYYY-MM-DD is given.
// GET /api/scores/{ticker}
func (h *ScoresHandler) GetScore(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(mux.Vars(r)["ticker"])

	if dateStr := r.URL.Query().Get("date"); dateStr != "" {
		date, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		score, err := h.scores.GetScore(r.Context(), ticker, date)
		if err != nil {
			h.logger.WithError(err).Error("Failed to load score")
			respondError(w, http.StatusInternalServerError, "Failed to load score")
			return
		}
		if score == nil {
			respondError(w, http.StatusNotFound, "No score for "+ticker+" on "+dateStr)
			return
		}
		respondJSON(w, http.StatusOK, score)
		return
	}

	score, err := h.scores.LatestScore(r.Context(), ticker, time.Now().AddDate(0, 0, 1))
	if err != nil {
		h.logger.WithError(err).Error("Failed to load score")
		respondError(w, http.StatusInternalServerError, "Failed to load score")
		return
	}
	if score == nil {
		respondError(w, http.StatusNotFound, "No score for "+ticker)
		return
	}
	respondJSON(w, http.StatusOK, score)
}

// GetHistory returns a ticker's score history, newest first.
// GET /api/scores/{ticker}/history?limit=N
func (h *ScoresHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(mux.Vars(r)["ticker"])

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 1000 {
			respondError(w, http.StatusBadRequest, "limit must be 1-1000")
			return
		}
		limit = parsed
	}

	history, err := h.scores.History(r.Context(), ticker, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load score history")
		respondError(w, http.StatusInternalServerError, "Failed to load score history")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"ticker": ticker,
		"count":  len(history),
		"scores": history,
	})
}

// GetChanges returns a ticker's explained score changes, newest first.
// GET /api/scores/{ticker}/changes?limit=N&significant=true
func (h *ScoresHandler) GetChanges(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(mux.Vars(r)["ticker"])

	limit := 30
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 1000 {
			respondError(w, http.StatusBadRequest, "limit must be 1-1000")
			return
		}
		limit = parsed
	}
	significantOnly := r.URL.Query().Get("significant") == "true"

	changes, err := h.changes.Changes(r.Context(), ticker, limit, significantOnly)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load score changes")
		respondError(w, http.StatusInternalServerError, "Failed to load score changes")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"ticker":  ticker,
		"count":   len(changes),
		"changes": changes,
	})
}

// GetLifecycle returns a ticker's current stage classification.
// GET /api/lifecycle/{ticker}
func (h *ScoresHandler) GetLifecycle(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(mux.Vars(r)["ticker"])

	classification, err := h.lifecycle.Latest(r.Context(), ticker)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load classification")
		respondError(w, http.StatusInternalServerError, "Failed to load classification")
		return
	}
	if classification == nil {
		respondError(w, http.StatusNotFound, "No classification for "+ticker)
		return
	}
	respondJSON(w, http.StatusOK, classification)
}

// GetSectorStats returns one sector's distribution for a metric.
// With ?value=N it also reports where that value falls in the
// distribution, inversion applied for lower-is-better metrics.
// GET /api/sectors/{sector}/stats?metric=pe_ratio&value=23.5
func (h *ScoresHandler) GetSectorStats(w http.ResponseWriter, r *http.Request) {
	sectorName := mux.Vars(r)["sector"]
	metric := r.URL.Query().Get("metric")
	if metric == "" {
		respondError(w, http.StatusBadRequest, "metric query parameter is required")
		return
	}

	stats, err := h.sectors.Stats(r.Context(), sectorName, metric)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load sector stats")
		respondError(w, http.StatusInternalServerError, "Failed to load sector stats")
		return
	}
	if stats == nil {
		respondError(w, http.StatusNotFound, "No stats for "+sectorName+"/"+metric)
		return
	}

	if raw := r.URL.Query().Get("value"); raw != "" {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "value must be a number")
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"stats":      stats,
			"value":      value,
			"percentile": h.calc.Percentile(stats, value),
		})
		return
	}

	respondJSON(w, http.StatusOK, stats)
}
