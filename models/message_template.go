package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageTemplate is a barbershop override of one of the WhatsApp message templates.
type MessageTemplate struct {
	ID                  uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	BarbershopID        uuid.UUID `gorm:"type:uuid;index;not null" json:"barbershopId"`
	Name                string    `gorm:"not null" json:"name"`
	Type                string    `gorm:"not null" json:"type"`
	Content             string    `gorm:"type:text;not null" json:"content"`
	Enabled             bool      `json:"enabled"`
	ReminderHoursBefore *int      `json:"reminderHoursBefore,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

func (t *MessageTemplate) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return
}
