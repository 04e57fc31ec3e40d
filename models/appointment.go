package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	AppointmentPending   = "pending"
	AppointmentConfirmed = "confirmed"
	AppointmentCompleted = "completed"
	AppointmentCancelled = "cancelled"
)

type Appointment struct {
	ID           uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	BarbershopID uuid.UUID  `gorm:"type:uuid;index;not null" json:"barbershopId"`
	ClientID     *uuid.UUID `gorm:"type:uuid" json:"clientId,omitempty"`
	ClientName   string     `gorm:"not null" json:"clientName"`
	ClientPhone  string     `json:"clientPhone"`
	BarberID     uuid.UUID  `gorm:"type:uuid;index" json:"barberId"`
	ServiceIDs   []string   `gorm:"serializer:json" json:"serviceIds"`
	StartTime    time.Time  `gorm:"index;not null" json:"startTime"`
	EndTime      time.Time  `json:"endTime"`
	Status       string     `gorm:"type:varchar(20);default:'pending'" json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func (a *Appointment) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = AppointmentPending
	}
	return
}
