package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScheduler bool

func (f fakeScheduler) Running() bool { return bool(f) }

type healthBody struct {
	Database  string `json:"database"`
	Scheduler bool   `json:"scheduler"`
}

func getHealth(t *testing.T, hc *HealthController) (int, healthBody) {
	t.Helper()
	r := gin.New()
	r.GET("/healthz", hc.Health)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	var body healthBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestHealthReportsDatabaseAndScheduler(t *testing.T) {
	db := newTestDB(t)

	code, body := getHealth(t, &HealthController{DB: db, Scheduler: fakeScheduler(true)})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, healthBody{Database: "ok", Scheduler: true}, body)

	code, body = getHealth(t, &HealthController{DB: db, Scheduler: fakeScheduler(false)})
	assert.Equal(t, http.StatusOK, code)
	assert.False(t, body.Scheduler)

	code, body = getHealth(t, &HealthController{DB: db})
	assert.Equal(t, http.StatusOK, code)
	assert.False(t, body.Scheduler)
}

func TestHealthFailsWhenDatabaseIsDown(t *testing.T) {
	db := newTestDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	code, body := getHealth(t, &HealthController{DB: db, Scheduler: fakeScheduler(true)})
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unavailable", body.Database)
	assert.True(t, body.Scheduler)
}
