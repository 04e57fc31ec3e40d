// models/reminder_log.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	LogSuccess = "success"
	LogError   = "error"
	LogSkipped = "skipped"
)

// ReminderLog is an append-only record of one dispatch outcome.
type ReminderLog struct {
	ID            uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	BarbershopID  uuid.UUID  `gorm:"type:uuid;index;not null" json:"barbershopId"`
	AppointmentID *uuid.UUID `gorm:"type:uuid;index" json:"appointmentId"` // may point at a deleted appointment
	ClientName    string     `json:"clientName,omitempty"`
	ClientPhone   string     `json:"clientPhone,omitempty"`
	TemplateType  string     `gorm:"type:varchar(40)" json:"templateType,omitempty"`
	Status        string     `gorm:"type:varchar(20)" json:"status"` // success, error, skipped
	Message       string     `gorm:"type:text" json:"message"`
	SentAt        time.Time  `gorm:"index" json:"sentAt"`
	Details       string     `gorm:"type:text" json:"details,omitempty"`
}

func (r *ReminderLog) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return
}
