package services

import (
	"context"
	"errors"
	"time"

	"barberpro-backend/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Clock returns the current time. Tests replace it to move time forward.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now()
}

// Synchronizer reconciles queue entries with appointments and template configuration.
// It is the only component that creates or deletes queue entries.
type Synchronizer struct {
	shops       ShopStore
	queue       QueueRepository
	surveyDelay time.Duration
	now         Clock
	log         *zap.Logger
}

func NewSynchronizer(shops ShopStore, queue QueueRepository, surveyDelay time.Duration, now Clock, log *zap.Logger) *Synchronizer {
	if now == nil {
		now = systemClock
	}
	if surveyDelay <= 0 {
		surveyDelay = 24 * time.Hour
	}
	return &Synchronizer{
		shops:       shops,
		queue:       queue,
		surveyDelay: surveyDelay,
		now:         now,
		log:         log,
	}
}

// SyncReport summarizes a barbershop reconciliation.
type SyncReport struct {
	Appointments int `json:"appointments"`
	Failed       int `json:"failed"`
}

// SyncAppointment makes the appointment's queue entries match its current state and the
// barbershop's enabled templates.
func (s *Synchronizer) SyncAppointment(ctx context.Context, appt *models.Appointment) error {
	if appt == nil || appt.ID == uuid.Nil {
		return &InvariantError{Msg: "sync requires a persisted appointment"}
	}
	shop, err := s.shops.Barbershop(ctx, appt.BarbershopID)
	if err != nil {
		return err
	}
	return s.syncWith(ctx, appt, TemplatesFor(shop))
}

// SyncBarbershop reconciles every current appointment of the barbershop. Appointments
// that fail are logged and counted; only failing to load the barbershop or its
// appointments is returned as an error.
func (s *Synchronizer) SyncBarbershop(ctx context.Context, barbershopID uuid.UUID) (SyncReport, error) {
	var report SyncReport

	shop, err := s.shops.Barbershop(ctx, barbershopID)
	if err != nil {
		return report, err
	}
	templates := TemplatesFor(shop)

	since := s.now().UTC().Add(-s.surveyDelay)
	appts, err := s.shops.AppointmentsStartingAfter(ctx, barbershopID, since)
	if err != nil {
		return report, err
	}

	for i := range appts {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Appointments++
		if err := s.syncWith(ctx, &appts[i], templates); err != nil {
			report.Failed++
			s.log.Warn("appointment sync failed",
				zap.String("barbershop_id", barbershopID.String()),
				zap.String("appointment_id", appts[i].ID.String()),
				zap.Error(err))
		}
	}
	return report, nil
}

// RemoveAppointment deletes every queue entry of a deleted appointment.
func (s *Synchronizer) RemoveAppointment(ctx context.Context, appointmentID uuid.UUID) error {
	removed, err := s.queue.RemoveEntriesForAppointment(ctx, appointmentID)
	if err != nil {
		return err
	}
	s.log.Debug("removed appointment queue entries",
		zap.String("appointment_id", appointmentID.String()),
		zap.Int64("count", removed))
	return nil
}

// entryPlan is what the queue should hold for one kind of one appointment.
type entryPlan struct {
	scheduledFor time.Time
	wanted       bool
	// expired means the kind stopped applying because its moment passed. An entry that
	// was already sent is kept as history.
	expired bool
}

func (s *Synchronizer) syncWith(ctx context.Context, appt *models.Appointment, templates []models.MessageTemplate) error {
	now := s.now().UTC()
	for _, kind := range QueueKinds {
		plan := s.planFor(appt, kind, templates, now)
		if plan.wanted {
			_, err := s.queue.Upsert(ctx, models.ReminderQueueEntry{
				BarbershopID:  appt.BarbershopID,
				AppointmentID: appt.ID,
				TemplateType:  string(kind),
				ScheduledFor:  plan.scheduledFor,
			})
			if err != nil {
				return err
			}
			continue
		}
		if err := s.removeKind(ctx, appt.ID, kind, plan.expired); err != nil {
			return err
		}
	}
	return nil
}

func (s *Synchronizer) planFor(appt *models.Appointment, kind TemplateKind, templates []models.MessageTemplate, now time.Time) entryPlan {
	if appt.Status == models.AppointmentCancelled {
		return entryPlan{}
	}
	tpl, ok := FindEnabledTemplate(templates, kind)
	if !ok {
		return entryPlan{}
	}

	start := appt.StartTime.UTC()
	switch kind {
	case KindConfirmation:
		if !start.After(now) {
			return entryPlan{expired: true}
		}
		created := appt.CreatedAt
		if created.IsZero() {
			created = now
		}
		return entryPlan{wanted: true, scheduledFor: truncate(created)}
	case KindReminder:
		if tpl.ReminderHoursBefore == nil || *tpl.ReminderHoursBefore <= 0 {
			return entryPlan{}
		}
		if appt.Status == models.AppointmentCompleted || !start.After(now) {
			return entryPlan{expired: true}
		}
		hours := time.Duration(*tpl.ReminderHoursBefore) * time.Hour
		return entryPlan{wanted: true, scheduledFor: truncate(start.Add(-hours))}
	case KindSurvey:
		return entryPlan{wanted: true, scheduledFor: truncate(start.Add(s.surveyDelay))}
	}
	return entryPlan{}
}

func (s *Synchronizer) removeKind(ctx context.Context, appointmentID uuid.UUID, kind TemplateKind, keepSent bool) error {
	entry, err := s.queue.Find(ctx, appointmentID, string(kind))
	if err != nil || entry == nil {
		return err
	}
	if keepSent && entry.Status == models.QueueSent {
		return nil
	}
	if err := s.queue.RemoveEntryByID(ctx, entry.ID); err != nil && !errors.Is(err, ErrEntryNotFound) {
		return err
	}
	return nil
}

func truncate(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}
