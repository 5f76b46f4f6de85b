package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/hairizuan-noorazman/firesweep/internal/uuidutil"
	"github.com/hairizuan-noorazman/firesweep/logger"
	"github.com/hairizuan-noorazman/firesweep/results"
	"github.com/hairizuan-noorazman/firesweep/storage"
	"github.com/hairizuan-noorazman/firesweep/testutil"
	"github.com/hairizuan-noorazman/firesweep/uartlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T) (*mux.Router, *results.SQLStore, *storage.LocalStorage) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	testutil.AutoMigrate(t, db, &results.Record{})
	log := logger.NewTestLogger()
	store := results.NewSQLStore(db, log)
	archive, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	return newTestRouter(NewResultsHandler(store, archive, log)), store, archive
}

func newTestRouter(h *ResultsHandler) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/health", HealthHandler).Methods("GET")
	router.HandleFunc("/api/v1/sweeps", h.ListSweeps).Methods("GET")
	router.HandleFunc("/api/v1/sweeps/{id}/results", h.ListBySweep).Methods("GET")
	router.HandleFunc("/api/v1/results/{id}", h.GetByID).Methods("GET")
	router.HandleFunc("/api/v1/results/{id}/log", h.GetLog).Methods("GET")
	return router
}

func seed(t *testing.T, store results.Store, runs int) (sweepID string, first *results.Record) {
	t.Helper()
	id := uuidutil.New()
	for run := 1; run <= runs; run++ {
		r := results.NewRecord(id, results.Row{
			HWConfig: "hw_null_prefetcher_10",
			Workload: "coremark.json",
			Run:      run,
			Metrics:  uartlog.Metrics{uartlog.FMR: "915.27"},
		})
		require.NoError(t, store.Create(context.Background(), r))
		if first == nil {
			first = r
		}
	}
	return id.String(), first
}

func get(router http.Handler, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestHealthHandler(t *testing.T) {
	router, _, _ := setupRouter(t)
	w := get(router, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}

func TestResultsHandler_ListSweeps(t *testing.T) {
	router, store, _ := setupRouter(t)
	seed(t, store, 2)
	seed(t, store, 3)
	seed(t, store, 1)

	type sweepsResponse struct {
		Items  []results.SweepSummary `json:"items"`
		Total  int                    `json:"total"`
		Limit  int                    `json:"limit"`
		Offset int                    `json:"offset"`
	}

	tests := []struct {
		name       string
		target     string
		wantItems  int
		wantLimit  int
		wantOffset int
	}{
		{name: "default page", target: "/api/v1/sweeps", wantItems: 3, wantLimit: defaultLimit},
		{name: "first page of one", target: "/api/v1/sweeps?limit=1", wantItems: 1, wantLimit: 1},
		{name: "last page", target: "/api/v1/sweeps?limit=2&offset=2", wantItems: 1, wantLimit: 2, wantOffset: 2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := get(router, tc.target)
			require.Equal(t, http.StatusOK, w.Code)

			var resp sweepsResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Len(t, resp.Items, tc.wantItems)
			assert.Equal(t, 3, resp.Total, "total counts every stored sweep, not the page")
			assert.Equal(t, tc.wantLimit, resp.Limit)
			assert.Equal(t, tc.wantOffset, resp.Offset)
		})
	}
}

func TestResultsHandler_ListBySweep(t *testing.T) {
	router, store, _ := setupRouter(t)
	sweepID, _ := seed(t, store, 3)

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantItems  int
		wantTotal  int
	}{
		{
			name:       "all runs",
			target:     "/api/v1/sweeps/" + sweepID + "/results",
			wantStatus: http.StatusOK,
			wantItems:  3,
			wantTotal:  3,
		},
		{
			name:       "paginated",
			target:     "/api/v1/sweeps/" + sweepID + "/results?limit=2&offset=2",
			wantStatus: http.StatusOK,
			wantItems:  1,
			wantTotal:  3,
		},
		{
			name:       "invalid limit falls back to default",
			target:     "/api/v1/sweeps/" + sweepID + "/results?limit=abc",
			wantStatus: http.StatusOK,
			wantItems:  3,
			wantTotal:  3,
		},
		{
			name:       "unknown sweep",
			target:     "/api/v1/sweeps/" + uuidutil.New().String() + "/results",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "invalid sweep ID",
			target:     "/api/v1/sweeps/not-a-uuid/results",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := get(router, tc.target)
			require.Equal(t, tc.wantStatus, w.Code, w.Body.String())
			if tc.wantStatus != http.StatusOK {
				return
			}

			var resp struct {
				Items []results.Record `json:"items"`
				Total int              `json:"total"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Len(t, resp.Items, tc.wantItems)
			assert.Equal(t, tc.wantTotal, resp.Total)
		})
	}
}

func TestResultsHandler_GetByID(t *testing.T) {
	router, store, _ := setupRouter(t)
	_, first := seed(t, store, 1)

	t.Run("found", func(t *testing.T) {
		w := get(router, "/api/v1/results/"+first.ID.String())
		require.Equal(t, http.StatusOK, w.Code)

		var got results.Record
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, first.ID, got.ID)
		assert.Equal(t, 1, got.RunIndex)
		assert.Equal(t, "915.27", got.Metrics[uartlog.FMR])
	})

	t.Run("not found", func(t *testing.T) {
		w := get(router, "/api/v1/results/"+uuidutil.New().String())
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("invalid ID", func(t *testing.T) {
		w := get(router, "/api/v1/results/123")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid result ID")
	})
}

func TestResultsHandler_GetLog(t *testing.T) {
	ctx := context.Background()
	router, store, archive := setupRouter(t)

	sweepID, archived := seed(t, store, 1)
	key := storage.RunLogKey(sweepID, archived.HWConfig, archived.Workload, archived.RunIndex)
	require.NoError(t, archive.Put(ctx, key, strings.NewReader("FMR: 915.27\n")))
	require.NoError(t, store.Update(ctx, archived.ID, results.SetLogKey(key)))

	_, unarchived := seed(t, store, 1)

	_, lost := seed(t, store, 1)
	require.NoError(t, store.Update(ctx, lost.ID, results.SetLogKey("gone/uartlog")))

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "archived log",
			target:     "/api/v1/results/" + archived.ID.String() + "/log",
			wantStatus: http.StatusOK,
			wantBody:   "FMR: 915.27\n",
		},
		{
			name:       "result without archived log",
			target:     "/api/v1/results/" + unarchived.ID.String() + "/log",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "archived log missing from the archive",
			target:     "/api/v1/results/" + lost.ID.String() + "/log",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "unknown result",
			target:     "/api/v1/results/" + uuidutil.New().String() + "/log",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "invalid ID",
			target:     "/api/v1/results/abc/log",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := get(router, tc.target)
			require.Equal(t, tc.wantStatus, w.Code, w.Body.String())
			if tc.wantBody != "" {
				assert.Equal(t, tc.wantBody, w.Body.String())
				assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
			}
		})
	}

	t.Run("archive not configured", func(t *testing.T) {
		noArchive := newTestRouter(NewResultsHandler(store, nil, logger.NewTestLogger()))
		w := get(noArchive, "/api/v1/results/"+archived.ID.String()+"/log")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
