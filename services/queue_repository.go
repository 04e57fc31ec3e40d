package services

import (
	"context"
	"errors"
	"time"

	"barberpro-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QueueRepository stores reminder queue entries.
type QueueRepository interface {
	ListEntries(ctx context.Context, barbershopID uuid.UUID, status string) ([]models.ReminderQueueEntry, error)
	ListDue(ctx context.Context, barbershopID uuid.UUID, now time.Time) ([]models.ReminderQueueEntry, error)
	Find(ctx context.Context, appointmentID uuid.UUID, templateType string) (*models.ReminderQueueEntry, error)
	Upsert(ctx context.Context, entry models.ReminderQueueEntry) (bool, error)
	RemoveEntriesForAppointment(ctx context.Context, appointmentID uuid.UUID) (int64, error)
	RemoveEntryByID(ctx context.Context, id uuid.UUID) error

	Claim(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	MarkSent(ctx context.Context, id uuid.UUID, attempts int, sentAt time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, attempts int, lastError string, retryAt *time.Time) error
	MarkSkipped(ctx context.Context, id uuid.UUID, reason string) error
	Cancel(ctx context.Context, barbershopID, id uuid.UUID) error
	Requeue(ctx context.Context, barbershopID, id uuid.UUID, now time.Time) error
	ReleaseStale(ctx context.Context, claimedBefore time.Time) (int64, error)
}

type GormQueueRepository struct {
	db *gorm.DB
}

func NewQueueRepository(db *gorm.DB) *GormQueueRepository {
	return &GormQueueRepository{db: db}
}

// ListEntries returns the tenant's entries ordered by ascending scheduled time. An empty
// status lists every entry.
func (r *GormQueueRepository) ListEntries(ctx context.Context, barbershopID uuid.UUID, status string) ([]models.ReminderQueueEntry, error) {
	q := r.db.WithContext(ctx).Where("barbershop_id = ?", barbershopID)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var entries []models.ReminderQueueEntry
	if err := q.Order("scheduled_for ASC, created_at ASC").Find(&entries).Error; err != nil {
		return nil, storageErr("list queue entries", err)
	}
	return entries, nil
}

// ListDue returns pending entries scheduled at or before now, oldest first.
func (r *GormQueueRepository) ListDue(ctx context.Context, barbershopID uuid.UUID, now time.Time) ([]models.ReminderQueueEntry, error) {
	var entries []models.ReminderQueueEntry
	err := r.db.WithContext(ctx).
		Where("barbershop_id = ? AND status = ? AND scheduled_for <= ?", barbershopID, models.QueuePending, now.UTC()).
		Order("scheduled_for ASC, created_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, storageErr("list due entries", err)
	}
	return entries, nil
}

// Find returns nil without error when no entry exists for the key.
func (r *GormQueueRepository) Find(ctx context.Context, appointmentID uuid.UUID, templateType string) (*models.ReminderQueueEntry, error) {
	var entry models.ReminderQueueEntry
	err := r.db.WithContext(ctx).
		Where("appointment_id = ? AND template_type = ?", appointmentID, templateType).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("find queue entry", err)
	}
	return &entry, nil
}

// Upsert creates the entry for (appointment, template type) or reschedules the existing
// one. Only the planned time is compared: an entry whose plan is unchanged is left as is,
// so a sent reminder is not sent again after an unrelated edit and a retry keeps its
// backoff and attempt count. Entries cancelled by an operator or currently
// claimed by a dispatcher are never touched. It reports whether a row was written.
func (r *GormQueueRepository) Upsert(ctx context.Context, entry models.ReminderQueueEntry) (bool, error) {
	if entry.AppointmentID == uuid.Nil || entry.TemplateType == "" {
		return false, &InvariantError{Msg: "queue entry requires appointment id and template type"}
	}
	scheduled := entry.ScheduledFor.UTC()

	existing, err := r.Find(ctx, entry.AppointmentID, entry.TemplateType)
	if err != nil {
		return false, err
	}

	if existing == nil {
		created := models.ReminderQueueEntry{
			BarbershopID:  entry.BarbershopID,
			AppointmentID: entry.AppointmentID,
			TemplateType:  entry.TemplateType,
			PlannedFor:    scheduled,
			ScheduledFor:  scheduled,
			Status:        models.QueuePending,
		}
		res := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "appointment_id"}, {Name: "template_type"}},
				DoNothing: true,
			}).
			Create(&created)
		if res.Error != nil {
			return false, storageErr("create queue entry", res.Error)
		}
		return res.RowsAffected > 0, nil
	}

	switch existing.Status {
	case models.QueueCancelled, models.QueueInFlight:
		return false, nil
	}
	planned := existing.PlannedFor
	if planned.IsZero() {
		planned = existing.ScheduledFor
	}
	if planned.Equal(scheduled) && existing.BarbershopID == entry.BarbershopID {
		return false, nil
	}

	err = r.db.WithContext(ctx).Model(&models.ReminderQueueEntry{}).
		Where("id = ?", existing.ID).
		Updates(map[string]interface{}{
			"barbershop_id": entry.BarbershopID,
			"planned_for":   scheduled,
			"scheduled_for": scheduled,
			"status":        models.QueuePending,
			"attempts":      0,
			"last_error":    "",
			"sent_at":       nil,
			"claimed_at":    nil,
		}).Error
	if err != nil {
		return false, storageErr("reschedule queue entry", err)
	}
	return true, nil
}

func (r *GormQueueRepository) RemoveEntriesForAppointment(ctx context.Context, appointmentID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("appointment_id = ?", appointmentID).
		Delete(&models.ReminderQueueEntry{})
	if res.Error != nil {
		return 0, storageErr("remove appointment entries", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *GormQueueRepository) RemoveEntryByID(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.ReminderQueueEntry{})
	if res.Error != nil {
		return storageErr("remove queue entry", res.Error)
	}
	return nil
}

// Claim moves a pending entry to in_flight. Only one caller can win the claim, which keeps
// two pollers from sending the same reminder.
func (r *GormQueueRepository) Claim(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	claimedAt := now.UTC()
	res := r.db.WithContext(ctx).Model(&models.ReminderQueueEntry{}).
		Where("id = ? AND status = ?", id, models.QueuePending).
		Updates(map[string]interface{}{
			"status":     models.QueueInFlight,
			"claimed_at": claimedAt,
		})
	if res.Error != nil {
		return false, storageErr("claim queue entry", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *GormQueueRepository) MarkSent(ctx context.Context, id uuid.UUID, attempts int, sentAt time.Time) error {
	at := sentAt.UTC()
	return r.update(ctx, "mark entry sent", id, map[string]interface{}{
		"status":     models.QueueSent,
		"attempts":   attempts,
		"last_error": "",
		"sent_at":    at,
		"claimed_at": nil,
	})
}

// MarkFailed records a failed attempt. A non-nil retryAt puts the entry back to pending at
// that time, leaving its planned time alone; otherwise the entry stays in error until an operator requeues it.
func (r *GormQueueRepository) MarkFailed(ctx context.Context, id uuid.UUID, attempts int, lastError string, retryAt *time.Time) error {
	fields := map[string]interface{}{
		"status":     models.QueueError,
		"attempts":   attempts,
		"last_error": lastError,
		"claimed_at": nil,
	}
	if retryAt != nil {
		fields["status"] = models.QueuePending
		fields["scheduled_for"] = retryAt.UTC()
	}
	return r.update(ctx, "mark entry failed", id, fields)
}

func (r *GormQueueRepository) MarkSkipped(ctx context.Context, id uuid.UUID, reason string) error {
	return r.update(ctx, "mark entry skipped", id, map[string]interface{}{
		"status":     models.QueueSkipped,
		"last_error": reason,
		"claimed_at": nil,
	})
}

// Cancel marks a tenant's entry as cancelled. The row stays as a tombstone so the next
// synchronization does not recreate it.
func (r *GormQueueRepository) Cancel(ctx context.Context, barbershopID, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Model(&models.ReminderQueueEntry{}).
		Where("id = ? AND barbershop_id = ?", id, barbershopID).
		Updates(map[string]interface{}{
			"status":     models.QueueCancelled,
			"last_error": "Cancelled by operator.",
			"claimed_at": nil,
		})
	if res.Error != nil {
		return storageErr("cancel queue entry", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// Requeue puts a failed, skipped or cancelled entry back to pending, due immediately. The
// attempt count and planned time are kept.
func (r *GormQueueRepository) Requeue(ctx context.Context, barbershopID, id uuid.UUID, now time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.ReminderQueueEntry{}).
		Where("id = ? AND barbershop_id = ? AND status IN ?", id, barbershopID,
			[]string{models.QueueError, models.QueueSkipped, models.QueueCancelled}).
		Updates(map[string]interface{}{
			"status":        models.QueuePending,
			"scheduled_for": now.UTC(),
			"last_error":    "",
			"claimed_at":    nil,
		})
	if res.Error != nil {
		return storageErr("requeue entry", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// ReleaseStale returns claims older than claimedBefore to pending. A claim only gets that
// old when the process that made it died mid-send.
func (r *GormQueueRepository) ReleaseStale(ctx context.Context, claimedBefore time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.ReminderQueueEntry{}).
		Where("status = ? AND claimed_at < ?", models.QueueInFlight, claimedBefore.UTC()).
		Updates(map[string]interface{}{
			"status":     models.QueuePending,
			"claimed_at": nil,
		})
	if res.Error != nil {
		return 0, storageErr("release stale claims", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *GormQueueRepository) update(ctx context.Context, op string, id uuid.UUID, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&models.ReminderQueueEntry{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return storageErr(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrEntryNotFound
	}
	return nil
}
