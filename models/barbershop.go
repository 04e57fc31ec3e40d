package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Barbershop struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Name     string    `gorm:"not null" json:"name"`
	Phone    string    `json:"phone"`
	Address  Address   `gorm:"type:jsonb" json:"address"`
	IsActive bool      `gorm:"default:true" json:"isActive"`

	// WhatsApp provider credentials; empty values fall back to the process configuration.
	BitSafiraToken      string `json:"-"`
	BitSafiraInstanceID string `json:"bitsafiraInstanceId"`

	MessageTemplates []MessageTemplate `gorm:"foreignKey:BarbershopID" json:"messageTemplates,omitempty"`
	Barbers          []Barber          `gorm:"foreignKey:BarbershopID" json:"-"`
	Services         []Service         `gorm:"foreignKey:BarbershopID" json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (b *Barbershop) BeforeCreate(tx *gorm.DB) (err error) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return
}

// Address is stored as a JSON document next to the barbershop row.
type Address struct {
	Street       string `json:"street,omitempty"`
	Number       string `json:"number,omitempty"`
	Complement   string `json:"complement,omitempty"`
	Neighborhood string `json:"neighborhood,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
}

func (a Address) Value() (driver.Value, error) {
	raw, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (a *Address) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*a = Address{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("type assertion to []byte failed")
	}
	if len(raw) == 0 {
		*a = Address{}
		return nil
	}
	return json.Unmarshal(raw, a)
}

// Format renders "street, number complement - neighborhood - city - state", skipping blanks.
func (a Address) Format() string {
	line := joinNonEmpty(", ", a.Street, a.Number)
	if c := strings.TrimSpace(a.Complement); c != "" {
		line = strings.TrimSpace(line + " " + c)
	}
	rest := joinNonEmpty(" - ", a.Neighborhood, a.City, a.State)
	return joinNonEmpty(" - ", line, rest)
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
