package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"barberpro-backend/config"
	"barberpro-backend/models"
	"barberpro-backend/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

type stubSender struct {
	mu    sync.Mutex
	count int
}

func (s *stubSender) ProviderID() string { return "stub" }

func (s *stubSender) Send(context.Context, services.Credentials, string, string) (*services.SendResult, error) {
	s.mu.Lock()
	s.count++
	s.mu.Unlock()
	return &services.SendResult{Status: http.StatusOK}, nil
}

// testEnv is a router over real reminder services, authenticated as one barbershop.
type testEnv struct {
	db     *gorm.DB
	shop   models.Barbershop
	barber models.Barber
	sender *stubSender
	router *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	log := zap.NewNop()

	env := &testEnv{db: db, sender: &stubSender{}}
	env.shop = models.Barbershop{Name: "Navalha de Ouro", IsActive: true, BitSafiraToken: "t", BitSafiraInstanceID: "i"}
	require.NoError(t, db.Create(&env.shop).Error)
	env.barber = models.Barber{BarbershopID: env.shop.ID, Name: "Carlos", IsActive: true}
	require.NoError(t, db.Create(&env.barber).Error)

	queue := services.NewQueueRepository(db)
	shops := services.NewShopStore(db)
	logs := services.NewRingBufferLogSink(50)
	syncer := services.NewSynchronizer(shops, queue, 24*time.Hour, time.Now, log)
	dispatcher := services.NewDispatcher(shops, queue, env.sender, logs, services.DispatcherConfig{}, time.Now, log)

	appointments := &AppointmentController{DB: db, Sync: syncer, Location: time.UTC, Log: log}
	templates := &TemplateController{DB: db, Sync: syncer, Log: log}
	reminders := &ReminderController{DB: db, Queue: queue, Sync: syncer, Dispatcher: dispatcher, Logs: logs, Now: time.Now, Log: log}

	r := gin.New()
	api := r.Group("/api")
	api.Use(func(c *gin.Context) {
		c.Set("barbershopId", env.shop.ID.String())
		c.Next()
	})
	api.POST("/appointments", appointments.CreateAppointment)
	api.PUT("/appointments/:id", appointments.UpdateAppointment)
	api.DELETE("/appointments/:id", appointments.DeleteAppointment)
	api.GET("/message-templates", templates.GetTemplates)
	api.POST("/message-templates", templates.CreateTemplate)
	api.GET("/reminders/queue", reminders.GetQueue)
	api.DELETE("/reminders/queue/:id", reminders.CancelEntry)
	api.POST("/reminders/queue/:id/retry", reminders.RetryEntry)
	api.POST("/reminders/run", reminders.Run)
	api.GET("/reminders/logs", reminders.GetLogs)
	env.router = r
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) createAppointment(t *testing.T, start time.Time) models.Appointment {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/appointments", gin.H{
		"clientName":  "João",
		"clientPhone": "(11) 98888-7777",
		"barberId":    e.barber.ID,
		"startTime":   start,
		"status":      "confirmed",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var appt models.Appointment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &appt))
	return appt
}

type queueListing struct {
	Data []struct {
		ID            uuid.UUID `json:"id"`
		AppointmentID uuid.UUID `json:"appointmentId"`
		TemplateType  string    `json:"templateType"`
		Status        string    `json:"status"`
		ScheduledFor  time.Time `json:"scheduledFor"`
		ClientName    string    `json:"clientName"`
	} `json:"data"`
}

func (e *testEnv) queue(t *testing.T, query string) queueListing {
	t.Helper()
	w := e.do(t, http.MethodGet, "/api/reminders/queue"+query, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out queueListing
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}
