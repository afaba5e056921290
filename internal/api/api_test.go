package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tempo/internal/database"
	"tempo/internal/logger"
	"tempo/internal/services"
)

type stubClock struct{ now time.Time }

func (c *stubClock) Now() time.Time { return c.now }

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Meta  map[string]any  `json:"meta"`
	Error *AppError       `json:"error"`
}

func setupRouter(t *testing.T, now time.Time) (*gin.Engine, *services.ServiceManager, *stubClock) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.New("sqlite3", filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	clk := &stubClock{now: now}
	log := logger.NewNop()
	sm := services.NewServiceManager(db, clk, services.DefaultReportTTL, log)
	require.NoError(t, sm.Category.SeedDefaults(context.Background()))

	return NewRouter(sm, log), sm, clk
}

func do(t *testing.T, r *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func TestCreateActivityAndClockInOut(t *testing.T) {
	r, _, clk := setupRouter(t, time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC))

	w, env := do(t, r, http.MethodPost, "/api/activities", map[string]any{
		"title":      "Deep work",
		"date":       "2026-02-10",
		"start_time": "09:00",
		"end_time":   "10:00",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct{ ID string }
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.NotEmpty(t, created.ID)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	clk.now = time.Date(2026, 2, 10, 9, 10, 0, 0, time.UTC)
	w, env = do(t, r, http.MethodPost, "/api/activities/"+created.ID+"/clock-in", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var session database.Session
	require.NoError(t, json.Unmarshal(env.Data, &session))
	assert.Equal(t, database.StatusActive, session.Status)
	assert.Equal(t, 10, session.LateByMin)

	clk.now = time.Date(2026, 2, 10, 9, 50, 0, 0, time.UTC)
	w, env = do(t, r, http.MethodPost, "/api/sessions/"+session.ID+"/clock-out", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &session))
	assert.Equal(t, database.StatusCompleted, session.Status)
	require.NotNil(t, session.ActualDurationMin)
	assert.Equal(t, 40, *session.ActualDurationMin)

	w, env = do(t, r, http.MethodGet, "/api/reports/daily/2026-02-10?fresh=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var report database.DailyReport
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, 60, report.TotalPlannedMin)
	assert.Equal(t, 40, report.TotalActualMin)
}

func TestCreateActivityRejectsInvalidInput(t *testing.T) {
	r, _, _ := setupRouter(t, time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC))

	w, env := do(t, r, http.MethodPost, "/api/activities", map[string]any{
		"title":      "Backwards",
		"date":       "2026-02-10",
		"start_time": "10:00",
		"end_time":   "09:00",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, http.StatusBadRequest, env.Error.Code)
}

func TestUnknownActivityIs404(t *testing.T) {
	r, _, _ := setupRouter(t, time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC))

	for _, tc := range []struct{ method, path string }{
		{http.MethodDelete, "/api/activities/nope"},
		{http.MethodPost, "/api/activities/nope/clock-in"},
		{http.MethodPost, "/api/activities/nope/missed"},
	} {
		w, _ := do(t, r, tc.method, tc.path, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, tc.path)
	}
}

func TestTodayBoard(t *testing.T) {
	r, sm, _ := setupRouter(t, time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	past, err := sm.Activity.Add(ctx, services.ActivitySpec{Title: "Gym", Date: "2026-02-10", StartTime: "07:00", EndTime: "08:00"})
	require.NoError(t, err)
	next, err := sm.Activity.Add(ctx, services.ActivitySpec{Title: "Read", Date: "2026-02-10", StartTime: "18:00", EndTime: "19:00"})
	require.NoError(t, err)

	w, env := do(t, r, http.MethodGet, "/api/today", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var today TodayResponse
	require.NoError(t, json.Unmarshal(env.Data, &today))
	assert.Equal(t, "2026-02-10", today.Date)
	require.Len(t, today.Board.Missed, 1)
	assert.Equal(t, past, today.Board.Missed[0].ID)
	require.Len(t, today.Board.Upcoming, 1)
	assert.Equal(t, next, today.Board.Upcoming[0].ID)
	assert.Nil(t, today.Board.Active)
}

func TestCopyWeekEndpoint(t *testing.T) {
	r, sm, _ := setupRouter(t, time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC))
	_, err := sm.Activity.Add(context.Background(), services.ActivitySpec{Title: "Gym", Date: "2026-02-10", StartTime: "07:00", EndTime: "08:00"})
	require.NoError(t, err)

	w, _ := do(t, r, http.MethodPost, "/api/weeks/2026-W07/copy", map[string]string{"to": "2026-W08"})
	require.Equal(t, http.StatusCreated, w.Code)

	w, env := do(t, r, http.MethodGet, "/api/weeks/2026-W08/activities", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []database.Activity
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "2026-02-17", list[0].Date)

	w, _ = do(t, r, http.MethodPost, "/api/weeks/bogus/copy", map[string]string{"to": "2026-W08"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBackupRoundTripOverHTTP(t *testing.T) {
	r, sm, _ := setupRouter(t, time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC))
	_, err := sm.Activity.Add(context.Background(), services.ActivitySpec{Title: "Gym", Date: "2026-02-10", StartTime: "07:00", EndTime: "08:00"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/backup", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	exported := w.Body.Bytes()

	var b database.Backup
	require.NoError(t, json.Unmarshal(exported, &b))
	assert.Equal(t, database.BackupVersion, b.Version)
	assert.Len(t, b.Activities, 1)

	req = httptest.NewRequest(http.MethodPost, "/api/backup", bytes.NewReader(exported))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	b.Version = 2
	w2, _ := do(t, r, http.MethodPost, "/api/backup", b)
	assert.Equal(t, http.StatusBadRequest, w2.Code)
}

func TestPreferencesEndpoints(t *testing.T) {
	r, _, _ := setupRouter(t, time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC))

	w, env := do(t, r, http.MethodGet, "/api/preferences", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var prefs database.Preferences
	require.NoError(t, json.Unmarshal(env.Data, &prefs))
	assert.Equal(t, database.DefaultPreferences, prefs)

	prefs.TimeFormat = "24h"
	w, _ = do(t, r, http.MethodPut, "/api/preferences", prefs)
	require.Equal(t, http.StatusOK, w.Code)

	prefs.TimeFormat = "hex"
	w, _ = do(t, r, http.MethodPut, "/api/preferences", prefs)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
