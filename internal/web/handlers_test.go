package web_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"solarscout/internal/database"
	"solarscout/internal/models"
	"solarscout/internal/web"
)

func newTestMux(t *testing.T) (*http.ServeMux, *database.DB) {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	mux := http.NewServeMux()
	web.NewHandler(db).RegisterRoutes(mux)
	return mux, db
}

func seedRun(t *testing.T, db *database.DB, at time.Time) {
	t.Helper()
	rep := models.RunReport{
		StartedAt:  at,
		FinishedAt: at.Add(20 * time.Second),
		Branches: []models.BranchReport{{
			Platform: models.PlatformMastodon,
			Results:  []models.PublishResult{{Unit: 1, Success: true, RemoteID: "42"}},
		}},
	}
	if err := db.RecordRun(rep); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	mux, _ := newTestMux(t)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want ok", body["status"])
	}
}

func TestLastRunEndpoint(t *testing.T) {
	t.Parallel()

	mux, db := newTestMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/lastrun", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status before any run = %d, want 404", rec.Code)
	}

	seedRun(t, db, time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC))

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/lastrun", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var run database.RunRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &run); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if run.Status != models.RunSuccess {
		t.Errorf("run status = %s, want %s", run.Status, models.RunSuccess)
	}
	if len(run.Report.Branches) != 1 {
		t.Errorf("got %d branches, want 1", len(run.Report.Branches))
	}
}

func TestRunsEndpoint(t *testing.T) {
	t.Parallel()

	mux, db := newTestMux(t)
	base := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		seedRun(t, db, base.Add(time.Duration(i)*time.Hour))
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs?limit=2", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Total int                  `json:"total"`
		Runs  []database.RunRecord `json:"runs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body.Total != 4 {
		t.Errorf("total = %d, want 4", body.Total)
	}
	if len(body.Runs) != 2 {
		t.Errorf("got %d runs, want 2", len(body.Runs))
	}
}

func TestRunsEndpoint_InvalidLimit(t *testing.T) {
	t.Parallel()

	mux, _ := newTestMux(t)
	for _, raw := range []string{"abc", "0", "-3"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs?limit="+raw, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("limit=%q: status = %d, want 400", raw, rec.Code)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	mux, _ := newTestMux(t)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Errorf("metrics body is empty")
	}
}
