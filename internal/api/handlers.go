// Package api serves the HTTP interface: trigger runs, inspect them and
// read recorded prices.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/maltedev/price-tracker/internal/jobs"
	"github.com/maltedev/price-tracker/internal/models"
)

// RunManager is the part of *jobs.Manager the handlers use.
type RunManager interface {
	Submit(date time.Time, trigger jobs.Trigger) (jobs.Run, error)
	GetRun(id string) (jobs.Run, error)
	ListRuns() []jobs.Run
	GetStats() jobs.Stats
}

type DatasetReader interface {
	Load(ctx context.Context) (models.Dataset, error)
}

type Handlers struct {
	runs    RunManager
	dataset DatasetReader
	ping    func(ctx context.Context) error
	logger  *slog.Logger
	now     func() time.Time
}

// NewHandlers wires the handlers. ping may be nil when there is no
// backing service to check.
func NewHandlers(runs RunManager, dataset DatasetReader, ping func(ctx context.Context) error, logger *slog.Logger) *Handlers {
	return &Handlers{
		runs:    runs,
		dataset: dataset,
		ping:    ping,
		logger:  logger.With("component", "api"),
		now:     time.Now,
	}
}

// CreateRunRequest represents the request to trigger a run
type CreateRunRequest struct {
	// Date in DD.MM.YYYY; empty means today.
	Date string `json:"date"`
}

// PriceResponse is one recorded price
type PriceResponse struct {
	Date        string `json:"date"`
	Brand       string `json:"brand"`
	ProductName string `json:"product_name"`
	Price       string `json:"price"`
}

// PricesResponse lists the prices recorded for one date
type PricesResponse struct {
	Date   string          `json:"date"`
	Prices []PriceResponse `json:"prices"`
}

// CreateRun queues a run and returns it without waiting for the result.
func (h *Handlers) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	date := h.now()
	if req.Date != "" {
		d, err := models.ParseDate(req.Date)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		date = d
	}

	run, err := h.runs.Submit(models.Day(date), jobs.TriggerAPI)
	if errors.Is(err, jobs.ErrRunInProgress) {
		h.respondError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("failed to submit run", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to submit run")
		return
	}

	h.respondJSON(w, http.StatusAccepted, run)
}

func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	if runID == "" {
		h.respondError(w, http.StatusBadRequest, "run ID is required")
		return
	}

	run, err := h.runs.GetRun(runID)
	if errors.Is(err, jobs.ErrRunNotFound) {
		h.respondError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to get run", "error", err, "run_id", runID)
		h.respondError(w, http.StatusInternalServerError, "failed to get run")
		return
	}

	h.respondJSON(w, http.StatusOK, run)
}

func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.runs.ListRuns())
}

func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.runs.GetStats())
}

// GetPrices returns the prices of ?date=DD.MM.YYYY, or of the most recent
// recorded date when no date is given.
func (h *Handlers) GetPrices(w http.ResponseWriter, r *http.Request) {
	ds, err := h.dataset.Load(r.Context())
	if err != nil {
		h.logger.Error("failed to load dataset", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to load prices")
		return
	}

	var date time.Time
	if q := r.URL.Query().Get("date"); q != "" {
		date, err = models.ParseDate(q)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	} else {
		for _, d := range ds.Dates() {
			if d.After(date) {
				date = d
			}
		}
	}

	resp := PricesResponse{Prices: []PriceResponse{}}
	if !date.IsZero() {
		resp.Date = models.FormatDate(date)
		for _, rec := range ds.ForDate(date) {
			resp.Prices = append(resp.Prices, PriceResponse{
				Date:        models.FormatDate(rec.Date),
				Brand:       rec.Brand,
				ProductName: rec.ProductName,
				Price:       rec.Price.String(),
			})
		}
	}

	h.respondJSON(w, http.StatusOK, resp)
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status": "ok",
		"runs":   h.runs.GetStats(),
	}

	status := http.StatusOK
	if h.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.ping(ctx); err != nil {
			health["status"] = "error"
			health["message"] = "storage unreachable"
			status = http.StatusServiceUnavailable
		}
	}

	h.respondJSON(w, status, health)
}

// Helper methods
func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
