package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"barberpro-backend/config"
	"barberpro-backend/models"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var refTime = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

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

// testClock is a manually advanced time source.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(start time.Time) *testClock {
	return &testClock{now: start}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func intPtr(v int) *int { return &v }

// seedShop creates an active barbershop with the given template overrides.
func seedShop(t *testing.T, db *gorm.DB, overrides ...models.MessageTemplate) *models.Barbershop {
	t.Helper()
	shop := models.Barbershop{
		Name:                "Navalha de Ouro",
		IsActive:            true,
		BitSafiraToken:      "shop-token",
		BitSafiraInstanceID: "shop-instance",
		Address:             models.Address{Street: "Rua Augusta", Number: "100", City: "São Paulo", State: "SP"},
	}
	require.NoError(t, db.Create(&shop).Error)
	for i := range overrides {
		overrides[i].BarbershopID = shop.ID
		require.NoError(t, db.Create(&overrides[i]).Error)
	}
	return &shop
}

// onlyReminder disables every default except the 24h reminder.
func onlyReminder(hours int) []models.MessageTemplate {
	return []models.MessageTemplate{
		{Name: "Lembrete", Type: "Lembrete de Agendamento", Content: "Oi {cliente}, até {horario}!", Enabled: true, ReminderHoursBefore: intPtr(hours)},
		{Name: "Confirmação", Type: "Confirmação de Agendamento", Content: "Confirmado", Enabled: false},
		{Name: "Pesquisa", Type: "Pesquisa de Satisfação", Content: "Nota?", Enabled: false},
	}
}

func seedBarber(t *testing.T, db *gorm.DB, shop *models.Barbershop, name string) *models.Barber {
	t.Helper()
	b := models.Barber{BarbershopID: shop.ID, Name: name, IsActive: true}
	require.NoError(t, db.Create(&b).Error)
	return &b
}

func seedAppointment(t *testing.T, db *gorm.DB, shop *models.Barbershop, createdAt, start time.Time, mutate ...func(*models.Appointment)) *models.Appointment {
	t.Helper()
	appt := models.Appointment{
		BarbershopID: shop.ID,
		ClientName:   "João",
		ClientPhone:  "(11) 98888-7777",
		BarberID:     shop.ID,
		ServiceIDs:   []string{},
		StartTime:    start.UTC(),
		EndTime:      start.UTC().Add(30 * time.Minute),
		Status:       models.AppointmentConfirmed,
		CreatedAt:    createdAt.UTC(),
	}
	for _, m := range mutate {
		m(&appt)
	}
	require.NoError(t, db.Create(&appt).Error)
	return &appt
}

type sentMessage struct {
	Creds Credentials
	Phone string
	Body  string
}

// recordingSender records every message and fails while err is set.
type recordingSender struct {
	mu   sync.Mutex
	err  error
	sent []sentMessage
}

func (s *recordingSender) ProviderID() string { return "recording" }

func (s *recordingSender) Send(_ context.Context, creds Credentials, phone, body string) (*SendResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.sent = append(s.sent, sentMessage{Creds: creds, Phone: phone, Body: body})
	return &SendResult{Status: 200}, nil
}

func (s *recordingSender) Sent() []sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentMessage(nil), s.sent...)
}

// pipeline wires the reminder components against one test database.
type pipeline struct {
	db         *gorm.DB
	clock      *testClock
	queue      *GormQueueRepository
	shops      *GormShopStore
	logs       *RingBufferLogSink
	sender     *recordingSender
	sync       *Synchronizer
	dispatcher *Dispatcher
}

func newPipeline(t *testing.T, cfg DispatcherConfig) *pipeline {
	t.Helper()
	db := newTestDB(t)
	p := &pipeline{
		db:     db,
		clock:  newTestClock(refTime),
		queue:  NewQueueRepository(db),
		shops:  NewShopStore(db),
		logs:   NewRingBufferLogSink(200),
		sender: &recordingSender{},
	}
	p.sync = NewSynchronizer(p.shops, p.queue, 24*time.Hour, p.clock.Now, zap.NewNop())
	p.dispatcher = NewDispatcher(p.shops, p.queue, p.sender, p.logs, cfg, p.clock.Now, zap.NewNop())
	return p
}
