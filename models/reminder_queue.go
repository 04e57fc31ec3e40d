package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	QueuePending   = "pending"
	QueueInFlight  = "in_flight"
	QueueSent      = "sent"
	QueueError     = "error"
	QueueSkipped   = "skipped"
	QueueCancelled = "cancelled"
)

// ReminderQueueEntry is derived from an appointment and a template kind. At most one row
// exists per (appointment_id, template_type).
type ReminderQueueEntry struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	BarbershopID  uuid.UUID `gorm:"type:uuid;index:idx_queue_shop_status;not null" json:"barbershopId"`
	AppointmentID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_queue_appointment_type;not null" json:"appointmentId"`
	TemplateType  string    `gorm:"type:varchar(40);uniqueIndex:idx_queue_appointment_type;not null" json:"templateType"`
	// PlannedFor is the time derived from the appointment and template. ScheduledFor starts
	// equal to it and moves on retries and manual resends.
	PlannedFor   time.Time  `json:"plannedFor"`
	ScheduledFor time.Time  `gorm:"index;not null" json:"scheduledFor"`
	Status       string     `gorm:"type:varchar(20);index:idx_queue_shop_status;not null" json:"status"`
	Attempts     int        `gorm:"not null;default:0" json:"attempts"`
	LastError    string     `gorm:"type:text" json:"lastError,omitempty"`
	SentAt       *time.Time `json:"sentAt,omitempty"`
	ClaimedAt    *time.Time `json:"-"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func (ReminderQueueEntry) TableName() string {
	return "reminder_queue"
}

func (e *ReminderQueueEntry) BeforeCreate(tx *gorm.DB) (err error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Status == "" {
		e.Status = QueuePending
	}
	if e.PlannedFor.IsZero() {
		e.PlannedFor = e.ScheduledFor
	}
	return
}
