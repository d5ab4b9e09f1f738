package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/maltedev/price-tracker/internal/jobs"
	"github.com/maltedev/price-tracker/internal/models"
	"github.com/maltedev/price-tracker/internal/parser"
	"github.com/maltedev/price-tracker/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type idleExecutor struct{}

func (idleExecutor) Execute(ctx context.Context, runID string, date time.Time) (report.Report, error) {
	return report.Report{RunID: runID}, nil
}

type stubDataset struct {
	ds  models.Dataset
	err error
}

func (s stubDataset) Load(ctx context.Context) (models.Dataset, error) {
	return s.ds, s.err
}

func testDataset(t *testing.T) models.Dataset {
	t.Helper()
	row := func(date, brand, product, price string) models.ScrapeRecord {
		d, err := models.ParseDate(date)
		require.NoError(t, err)
		p, err := parser.ParsePrice(price)
		require.NoError(t, err)
		return models.ScrapeRecord{Date: d, Brand: brand, ProductName: product, Price: p}
	}
	return models.Dataset{
		row("02.01.2025", "A", "X", "49,99"),
		row("02.01.2025", "B", "Y", "1.234,56"),
		row("01.01.2025", "A", "X", "45,00"),
	}
}

func newTestServer(t *testing.T, ds DatasetReader, ping func(context.Context) error) (http.Handler, *jobs.Manager) {
	t.Helper()
	manager := jobs.NewManager(idleExecutor{}, slog.Default())
	h := NewHandlers(manager, ds, ping, slog.Default())
	h.now = func() time.Time { return time.Date(2025, 3, 4, 15, 30, 0, 0, time.UTC) }
	return NewRouter(h, nil, []string{"*"}), manager
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateRun(t *testing.T) {
	t.Run("defaults to today", func(t *testing.T) {
		srv, _ := newTestServer(t, stubDataset{}, nil)

		rec := do(t, srv, http.MethodPost, "/api/v1/runs", "")

		require.Equal(t, http.StatusAccepted, rec.Code)
		var run jobs.Run
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
		assert.NotEmpty(t, run.ID)
		assert.Equal(t, jobs.StatusPending, run.Status)
		assert.Equal(t, time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC), run.Date)
	})

	t.Run("explicit date", func(t *testing.T) {
		srv, _ := newTestServer(t, stubDataset{}, nil)

		rec := do(t, srv, http.MethodPost, "/api/v1/runs", `{"date":"01.01.2025"}`)

		require.Equal(t, http.StatusAccepted, rec.Code)
		var run jobs.Run
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
		assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), run.Date)
	})

	t.Run("bad date", func(t *testing.T) {
		srv, _ := newTestServer(t, stubDataset{}, nil)

		rec := do(t, srv, http.MethodPost, "/api/v1/runs", `{"date":"2025-01-01"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("bad body", func(t *testing.T) {
		srv, _ := newTestServer(t, stubDataset{}, nil)

		rec := do(t, srv, http.MethodPost, "/api/v1/runs", `{`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("conflict while a run is active", func(t *testing.T) {
		srv, _ := newTestServer(t, stubDataset{}, nil)

		first := do(t, srv, http.MethodPost, "/api/v1/runs", "")
		second := do(t, srv, http.MethodPost, "/api/v1/runs", "")

		assert.Equal(t, http.StatusAccepted, first.Code)
		assert.Equal(t, http.StatusConflict, second.Code)
	})
}

func TestGetRun(t *testing.T) {
	srv, manager := newTestServer(t, stubDataset{}, nil)
	run, err := manager.Submit(time.Now(), jobs.TriggerAPI)
	require.NoError(t, err)

	rec := do(t, srv, http.MethodGet, "/api/v1/runs/"+run.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), run.ID)

	rec = do(t, srv, http.MethodGet, "/api/v1/runs/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/v1/runs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []jobs.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	assert.Len(t, runs, 1)
}

func TestGetPrices(t *testing.T) {
	srv, _ := newTestServer(t, stubDataset{ds: testDataset(t)}, nil)

	t.Run("latest date by default", func(t *testing.T) {
		rec := do(t, srv, http.MethodGet, "/api/v1/prices", "")

		require.Equal(t, http.StatusOK, rec.Code)
		var resp PricesResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "02.01.2025", resp.Date)
		require.Len(t, resp.Prices, 2)
		assert.Equal(t, "1234.56", resp.Prices[1].Price)
	})

	t.Run("given date", func(t *testing.T) {
		rec := do(t, srv, http.MethodGet, "/api/v1/prices?date=01.01.2025", "")

		require.Equal(t, http.StatusOK, rec.Code)
		var resp PricesResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Prices, 1)
		assert.Equal(t, "45.00", resp.Prices[0].Price)
	})

	t.Run("date without rows", func(t *testing.T) {
		rec := do(t, srv, http.MethodGet, "/api/v1/prices?date=05.01.2025", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"date":"05.01.2025","prices":[]}`, rec.Body.String())
	})

	t.Run("invalid date", func(t *testing.T) {
		rec := do(t, srv, http.MethodGet, "/api/v1/prices?date=yesterday", "")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetPricesLoadError(t *testing.T) {
	srv, _ := newTestServer(t, stubDataset{err: errors.New("boom")}, nil)

	rec := do(t, srv, http.MethodGet, "/api/v1/prices", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, stubDataset{}, nil)
	rec := do(t, srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	srv, _ = newTestServer(t, stubDataset{}, func(context.Context) error { return errors.New("connection refused") })
	rec = do(t, srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
