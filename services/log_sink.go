package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"barberpro-backend/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LogSink stores reminder dispatch logs. Entries are append-only.
type LogSink interface {
	Append(ctx context.Context, entries ...models.ReminderLog) error
	List(ctx context.Context, filter LogFilter) ([]models.ReminderLog, error)
}

// LogFilter narrows a log listing. A nil BarbershopID lists every tenant; Limit <= 0 means
// no limit.
type LogFilter struct {
	BarbershopID *uuid.UUID
	Limit        int
}

func stampLogs(entries []models.ReminderLog) {
	now := time.Now().UTC()
	for i := range entries {
		if entries[i].ID == uuid.Nil {
			entries[i].ID = uuid.New()
		}
		if entries[i].SentAt.IsZero() {
			entries[i].SentAt = now
		}
	}
}

// PersistentLogSink writes logs to the reminder_logs table.
type PersistentLogSink struct {
	db *gorm.DB
}

func NewPersistentLogSink(db *gorm.DB) *PersistentLogSink {
	return &PersistentLogSink{db: db}
}

func (s *PersistentLogSink) Append(ctx context.Context, entries ...models.ReminderLog) error {
	if len(entries) == 0 {
		return nil
	}
	stampLogs(entries)
	if err := s.db.WithContext(ctx).Create(&entries).Error; err != nil {
		return storageErr("append reminder logs", err)
	}
	return nil
}

func (s *PersistentLogSink) List(ctx context.Context, filter LogFilter) ([]models.ReminderLog, error) {
	q := s.db.WithContext(ctx).Order("sent_at DESC")
	if filter.BarbershopID != nil {
		q = q.Where("barbershop_id = ?", *filter.BarbershopID)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var logs []models.ReminderLog
	if err := q.Find(&logs).Error; err != nil {
		return nil, storageErr("list reminder logs", err)
	}
	return logs, nil
}

// RingBufferLogSink keeps the most recent logs in memory, newest first.
type RingBufferLogSink struct {
	mu       sync.RWMutex
	capacity int
	entries  []models.ReminderLog
}

func NewRingBufferLogSink(capacity int) *RingBufferLogSink {
	if capacity <= 0 {
		capacity = 200
	}
	return &RingBufferLogSink{capacity: capacity}
}

func (s *RingBufferLogSink) Append(_ context.Context, entries ...models.ReminderLog) error {
	if len(entries) == 0 {
		return nil
	}
	stampLogs(entries)

	s.mu.Lock()
	defer s.mu.Unlock()

	fresh := make([]models.ReminderLog, 0, len(entries)+len(s.entries))
	for i := len(entries) - 1; i >= 0; i-- {
		fresh = append(fresh, entries[i])
	}
	fresh = append(fresh, s.entries...)
	if len(fresh) > s.capacity {
		fresh = fresh[:s.capacity]
	}
	s.entries = fresh
	return nil
}

func (s *RingBufferLogSink) List(_ context.Context, filter LogFilter) ([]models.ReminderLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ReminderLog, 0, len(s.entries))
	for _, e := range s.entries {
		if filter.BarbershopID != nil && e.BarbershopID != *filter.BarbershopID {
			continue
		}
		out = append(out, e)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

// FallbackLogSink writes to primary and falls back to secondary when primary fails.
// Listings merge both so entries written during an outage stay visible.
type FallbackLogSink struct {
	primary   LogSink
	secondary LogSink
	log       *zap.Logger
}

func NewFallbackLogSink(primary, secondary LogSink, log *zap.Logger) *FallbackLogSink {
	return &FallbackLogSink{primary: primary, secondary: secondary, log: log}
}

func (s *FallbackLogSink) Append(ctx context.Context, entries ...models.ReminderLog) error {
	if len(entries) == 0 {
		return nil
	}
	stampLogs(entries)
	if err := s.primary.Append(ctx, entries...); err != nil {
		s.log.Warn("reminder log store unavailable, keeping logs in memory",
			zap.Int("count", len(entries)), zap.Error(err))
		return s.secondary.Append(ctx, entries...)
	}
	return nil
}

func (s *FallbackLogSink) List(ctx context.Context, filter LogFilter) ([]models.ReminderLog, error) {
	buffered, err := s.secondary.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	stored, err := s.primary.List(ctx, filter)
	if err != nil {
		s.log.Warn("reminder log store unavailable, listing in-memory logs", zap.Error(err))
		return buffered, nil
	}
	return mergeLogs(stored, buffered, filter.Limit), nil
}

func mergeLogs(a, b []models.ReminderLog, limit int) []models.ReminderLog {
	seen := make(map[uuid.UUID]struct{}, len(a)+len(b))
	out := make([]models.ReminderLog, 0, len(a)+len(b))
	for _, list := range [][]models.ReminderLog{a, b} {
		for _, e := range list {
			if _, dup := seen[e.ID]; dup {
				continue
			}
			seen[e.ID] = struct{}{}
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SentAt.After(out[j].SentAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
