package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"barberpro-backend/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DispatcherConfig tunes send attempts and message rendering.
type DispatcherConfig struct {
	// MaxAttempts is the number of sends tried before an entry stays in error.
	MaxAttempts  int
	RetryBackoff time.Duration
	// Fallback is used for whatever credential the barbershop does not define.
	Fallback Credentials
	Location *time.Location
}

// EntryResult is the outcome of one due entry.
type EntryResult struct {
	EntryID       uuid.UUID `json:"entryId"`
	AppointmentID uuid.UUID `json:"appointmentId"`
	TemplateType  string    `json:"templateType"`
	Status        string    `json:"status"`
	Message       string    `json:"message,omitempty"`
}

// DispatchResult aggregates one barbershop run. Processed counts send attempts, whether
// they succeeded or not.
type DispatchResult struct {
	Processed int           `json:"processed"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	Results   []EntryResult `json:"results"`
}

// Dispatcher sends due queue entries and records the outcome of each one.
type Dispatcher struct {
	shops  ShopStore
	queue  QueueRepository
	sender Sender
	logs   LogSink
	cfg    DispatcherConfig
	now    Clock
	log    *zap.Logger
}

func NewDispatcher(shops ShopStore, queue QueueRepository, sender Sender, logs LogSink, cfg DispatcherConfig, now Clock, log *zap.Logger) *Dispatcher {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if now == nil {
		now = systemClock
	}
	return &Dispatcher{
		shops:  shops,
		queue:  queue,
		sender: sender,
		logs:   logs,
		cfg:    cfg,
		now:    now,
		log:    log,
	}
}

// dispatchRun holds what every entry of one barbershop run shares.
type dispatchRun struct {
	shop      *models.Barbershop
	templates []models.MessageTemplate
	barbers   map[uuid.UUID]string
	services  map[string]models.Service
	creds     Credentials
	result    DispatchResult
}

// ProcessBarbershop sends every due entry of the barbershop in scheduled order. Send
// failures are recorded on the entry and never returned; storage failures and invariant
// violations abort the run.
func (d *Dispatcher) ProcessBarbershop(ctx context.Context, barbershopID uuid.UUID) (DispatchResult, error) {
	shop, err := d.shops.Barbershop(ctx, barbershopID)
	if err != nil {
		return DispatchResult{}, err
	}

	due, err := d.queue.ListDue(ctx, barbershopID, d.now())
	if err != nil {
		return DispatchResult{}, err
	}
	if len(due) == 0 {
		return DispatchResult{Results: []EntryResult{}}, nil
	}

	run := &dispatchRun{
		shop:      shop,
		templates: TemplatesFor(shop),
		creds:     d.credentialsFor(shop),
		result:    DispatchResult{Results: make([]EntryResult, 0, len(due))},
	}
	if run.barbers, err = d.shops.BarberNames(ctx, barbershopID); err != nil {
		return run.result, err
	}
	if run.services, err = d.shops.ServicesByID(ctx, barbershopID); err != nil {
		return run.result, err
	}

	for _, entry := range due {
		if err := ctx.Err(); err != nil {
			return run.result, err
		}
		if err := d.dispatchEntry(ctx, run, entry); err != nil {
			d.log.Error("reminder dispatch aborted",
				zap.String("barbershop_id", barbershopID.String()),
				zap.String("entry_id", entry.ID.String()),
				zap.Error(err))
			return run.result, err
		}
	}

	d.log.Info("reminder dispatch finished",
		zap.String("barbershop_id", barbershopID.String()),
		zap.Int("processed", run.result.Processed),
		zap.Int("skipped", run.result.Skipped),
		zap.Int("failed", run.result.Failed))
	return run.result, nil
}

func (d *Dispatcher) dispatchEntry(ctx context.Context, run *dispatchRun, entry models.ReminderQueueEntry) error {
	if entry.AppointmentID == uuid.Nil {
		if err := d.queue.MarkFailed(ctx, entry.ID, entry.Attempts, "queue entry has no appointment id", nil); err != nil && !errors.Is(err, ErrEntryNotFound) {
			return err
		}
		return &InvariantError{Msg: fmt.Sprintf("queue entry %s has no appointment id", entry.ID)}
	}

	now := d.now().UTC()
	claimed, err := d.queue.Claim(ctx, entry.ID, now)
	if err != nil {
		return err
	}
	if !claimed {
		// Another poller or a concurrent sync got there first.
		return nil
	}

	appt, err := d.shops.Appointment(ctx, entry.AppointmentID)
	if err != nil {
		return err
	}

	kind := TemplateKind(entry.TemplateType)
	label := kindLabel(kind)
	if reason := skipReason(appt, run.shop.ID, kind, now); reason != "" {
		return d.skip(ctx, run, entry, appt, fmt.Sprintf("%s skipped: %s.", label, reason))
	}
	tpl, ok := FindEnabledTemplate(run.templates, kind)
	if !ok {
		return d.skip(ctx, run, entry, appt, label+" skipped: template disabled or not found.")
	}
	if appt.ClientPhone == "" {
		return d.skip(ctx, run, entry, appt, label+" skipped: client has no WhatsApp number.")
	}

	body := RenderTemplate(tpl.Content, d.renderContext(run, appt))
	attempts := entry.Attempts + 1
	res, sendErr := d.sender.Send(ctx, run.creds, appt.ClientPhone, body)
	run.result.Processed++

	if sendErr != nil {
		var retryAt *time.Time
		if attempts < d.cfg.MaxAttempts {
			next := now.Add(d.cfg.RetryBackoff)
			retryAt = &next
		}
		if err := d.queue.MarkFailed(ctx, entry.ID, attempts, sendErr.Error(), retryAt); err != nil && !errors.Is(err, ErrEntryNotFound) {
			return err
		}
		run.result.Failed++
		run.result.Results = append(run.result.Results, entryResult(entry, models.QueueError, sendErr.Error()))
		d.appendLog(ctx, logFor(entry, appt, models.LogError, sendErr.Error(), fmt.Sprintf("Attempt %d of %d.", attempts, d.cfg.MaxAttempts)))
		d.log.Warn("reminder send failed",
			zap.String("barbershop_id", run.shop.ID.String()),
			zap.String("entry_id", entry.ID.String()),
			zap.String("template_type", entry.TemplateType),
			zap.Int("attempts", attempts),
			zap.Bool("retry", retryAt != nil),
			zap.Error(sendErr))
		return nil
	}

	if err := d.queue.MarkSent(ctx, entry.ID, attempts, d.now()); err != nil && !errors.Is(err, ErrEntryNotFound) {
		return err
	}
	details := "Message sent. Scheduled for: " + entry.ScheduledFor.UTC().Format(time.RFC3339)
	if res != nil && res.Message != "" {
		details += ". Provider: " + res.Message
	}
	run.result.Results = append(run.result.Results, entryResult(entry, models.QueueSent, ""))
	d.appendLog(ctx, logFor(entry, appt, models.LogSuccess, body, details))
	return nil
}

func (d *Dispatcher) skip(ctx context.Context, run *dispatchRun, entry models.ReminderQueueEntry, appt *models.Appointment, reason string) error {
	if err := d.queue.MarkSkipped(ctx, entry.ID, reason); err != nil && !errors.Is(err, ErrEntryNotFound) {
		return err
	}
	run.result.Skipped++
	run.result.Results = append(run.result.Results, entryResult(entry, models.QueueSkipped, reason))
	d.appendLog(ctx, logFor(entry, appt, models.LogSkipped, reason, ""))
	return nil
}

// skipReason returns why the appointment no longer wants a message of this kind, or "".
func skipReason(appt *models.Appointment, shopID uuid.UUID, kind TemplateKind, now time.Time) string {
	switch {
	case appt == nil:
		return "appointment not found"
	case appt.BarbershopID != shopID:
		return "appointment belongs to another barbershop"
	case appt.Status == models.AppointmentCancelled:
		return "appointment cancelled"
	case appt.Status == models.AppointmentCompleted && kind != KindSurvey:
		return "appointment completed"
	case kind == KindReminder && !appt.StartTime.After(now):
		return "appointment already started"
	}
	return ""
}

func (d *Dispatcher) credentialsFor(shop *models.Barbershop) Credentials {
	creds := Credentials{Token: shop.BitSafiraToken, InstanceID: shop.BitSafiraInstanceID}
	if creds.Token == "" {
		creds.Token = d.cfg.Fallback.Token
	}
	if creds.InstanceID == "" {
		creds.InstanceID = d.cfg.Fallback.InstanceID
	}
	return creds
}

func (d *Dispatcher) renderContext(run *dispatchRun, appt *models.Appointment) RenderContext {
	rc := RenderContext{
		ClientName:     appt.ClientName,
		BarbershopName: run.shop.Name,
		Address:        run.shop.Address.Format(),
		BarberName:     run.barbers[appt.BarberID],
		StartTime:      appt.StartTime,
		Location:       d.cfg.Location,
	}
	for _, id := range appt.ServiceIDs {
		svc, ok := run.services[id]
		if !ok {
			continue
		}
		rc.Services = append(rc.Services, svc.Name)
		rc.TotalPrice += svc.Price
	}
	return rc
}

// appendLog never fails the dispatch; the sink falls back on its own.
func (d *Dispatcher) appendLog(ctx context.Context, entry models.ReminderLog) {
	if entry.SentAt.IsZero() {
		entry.SentAt = d.now().UTC()
	}
	if err := d.logs.Append(ctx, entry); err != nil {
		d.log.Warn("reminder log lost",
			zap.String("barbershop_id", entry.BarbershopID.String()),
			zap.String("template_type", entry.TemplateType),
			zap.Error(err))
	}
}

func entryResult(entry models.ReminderQueueEntry, status, message string) EntryResult {
	return EntryResult{
		EntryID:       entry.ID,
		AppointmentID: entry.AppointmentID,
		TemplateType:  entry.TemplateType,
		Status:        status,
		Message:       message,
	}
}

func logFor(entry models.ReminderQueueEntry, appt *models.Appointment, status, message, details string) models.ReminderLog {
	apptID := entry.AppointmentID
	l := models.ReminderLog{
		BarbershopID:  entry.BarbershopID,
		AppointmentID: &apptID,
		TemplateType:  entry.TemplateType,
		Status:        status,
		Message:       message,
		Details:       details,
	}
	if appt != nil {
		l.ClientName = appt.ClientName
		l.ClientPhone = appt.ClientPhone
	}
	return l
}

func kindLabel(kind TemplateKind) string {
	switch kind {
	case KindReminder:
		return "Reminder"
	case KindSurvey:
		return "Survey"
	case KindConfirmation:
		return "Confirmation"
	}
	return "Message"
}
