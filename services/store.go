package services

import (
	"context"
	"errors"
	"time"

	"barberpro-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ShopStore reads the tenant data the reminder pipeline renders and schedules from.
type ShopStore interface {
	Barbershop(ctx context.Context, id uuid.UUID) (*models.Barbershop, error)
	ActiveBarbershopIDs(ctx context.Context) ([]uuid.UUID, error)
	Appointment(ctx context.Context, id uuid.UUID) (*models.Appointment, error)
	AppointmentsStartingAfter(ctx context.Context, barbershopID uuid.UUID, after time.Time) ([]models.Appointment, error)
	BarberNames(ctx context.Context, barbershopID uuid.UUID) (map[uuid.UUID]string, error)
	ServicesByID(ctx context.Context, barbershopID uuid.UUID) (map[string]models.Service, error)
}

// GormShopStore implements ShopStore on gorm.
type GormShopStore struct {
	db *gorm.DB
}

func NewShopStore(db *gorm.DB) *GormShopStore {
	return &GormShopStore{db: db}
}

// Barbershop loads an active barbershop with its template overrides.
func (s *GormShopStore) Barbershop(ctx context.Context, id uuid.UUID) (*models.Barbershop, error) {
	var shop models.Barbershop
	err := s.db.WithContext(ctx).
		Preload("MessageTemplates").
		Where("id = ? AND is_active = ?", id, true).
		First(&shop).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBarbershopNotFound
		}
		return nil, storageErr("load barbershop", err)
	}
	return &shop, nil
}

func (s *GormShopStore) ActiveBarbershopIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.db.WithContext(ctx).Model(&models.Barbershop{}).
		Where("is_active = ?", true).
		Order("created_at ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, storageErr("list active barbershops", err)
	}
	return ids, nil
}

// Appointment returns nil, nil when the appointment does not exist.
func (s *GormShopStore) Appointment(ctx context.Context, id uuid.UUID) (*models.Appointment, error) {
	var appt models.Appointment
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&appt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, storageErr("load appointment", err)
	}
	return &appt, nil
}

func (s *GormShopStore) AppointmentsStartingAfter(ctx context.Context, barbershopID uuid.UUID, after time.Time) ([]models.Appointment, error) {
	var appts []models.Appointment
	err := s.db.WithContext(ctx).
		Where("barbershop_id = ? AND start_time > ?", barbershopID, after.UTC()).
		Order("start_time ASC").
		Find(&appts).Error
	if err != nil {
		return nil, storageErr("list appointments", err)
	}
	return appts, nil
}

func (s *GormShopStore) BarberNames(ctx context.Context, barbershopID uuid.UUID) (map[uuid.UUID]string, error) {
	var barbers []models.Barber
	if err := s.db.WithContext(ctx).Where("barbershop_id = ?", barbershopID).Find(&barbers).Error; err != nil {
		return nil, storageErr("list barbers", err)
	}
	names := make(map[uuid.UUID]string, len(barbers))
	for _, b := range barbers {
		names[b.ID] = b.Name
	}
	return names, nil
}

func (s *GormShopStore) ServicesByID(ctx context.Context, barbershopID uuid.UUID) (map[string]models.Service, error) {
	var services []models.Service
	if err := s.db.WithContext(ctx).Where("barbershop_id = ?", barbershopID).Find(&services).Error; err != nil {
		return nil, storageErr("list services", err)
	}
	byID := make(map[string]models.Service, len(services))
	for _, svc := range services {
		byID[svc.ID.String()] = svc
	}
	return byID, nil
}

// TemplatesFor merges the default templates with the barbershop overrides.
func TemplatesFor(shop *models.Barbershop) []models.MessageTemplate {
	return MergeTemplates(DefaultTemplates(), shop.MessageTemplates)
}
