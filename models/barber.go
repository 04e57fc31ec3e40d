package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Barber struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	BarbershopID uuid.UUID `gorm:"type:uuid;index;not null" json:"barbershopId"`
	Name         string    `gorm:"not null" json:"name"`
	Phone        string    `json:"phone"`
	IsActive     bool      `gorm:"default:true" json:"isActive"`
}

func (b *Barber) BeforeCreate(tx *gorm.DB) (err error) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return
}
