package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"barberpro-backend/models"
	"barberpro-backend/services"
	"barberpro-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultAppointmentLength = 30 * time.Minute

// QueueSyncer keeps reminder queue entries in step with appointment writes.
type QueueSyncer interface {
	SyncAppointment(ctx context.Context, appt *models.Appointment) error
	RemoveAppointment(ctx context.Context, appointmentID uuid.UUID) error
}

// AppointmentController persists appointments and then reconciles their reminders.
// Reminder failures are logged and never fail the request.
type AppointmentController struct {
	DB       *gorm.DB
	Sync     QueueSyncer
	Location *time.Location
	Log      *zap.Logger
}

type CreateAppointmentInput struct {
	ClientID    *uuid.UUID `json:"clientId"`
	ClientName  string     `json:"clientName" binding:"required"`
	ClientPhone string     `json:"clientPhone"`
	BarberID    uuid.UUID  `json:"barberId" binding:"required"`
	ServiceIDs  []string   `json:"serviceIds"`
	StartTime   time.Time  `json:"startTime" binding:"required"`
	EndTime     *time.Time `json:"endTime"`
	Status      string     `json:"status" binding:"omitempty,oneof=pending confirmed completed cancelled"`
}

type UpdateAppointmentInput struct {
	ClientName  *string    `json:"clientName"`
	ClientPhone *string    `json:"clientPhone"`
	BarberID    *uuid.UUID `json:"barberId"`
	ServiceIDs  *[]string  `json:"serviceIds"`
	StartTime   *time.Time `json:"startTime"`
	EndTime     *time.Time `json:"endTime"`
	Status      *string    `json:"status" binding:"omitempty,oneof=pending confirmed completed cancelled"`
}

func (ac *AppointmentController) CreateAppointment(c *gin.Context) {
	shopID, ok := barbershopID(c)
	if !ok {
		return
	}

	var input CreateAppointmentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	if input.ClientPhone != "" && !utils.ValidatePhone(input.ClientPhone) {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid client phone number")
		return
	}

	ctx := c.Request.Context()
	if !ac.barberExists(c, shopID, input.BarberID) {
		return
	}

	appt := models.Appointment{
		BarbershopID: shopID,
		ClientID:     input.ClientID,
		ClientName:   input.ClientName,
		ClientPhone:  input.ClientPhone,
		BarberID:     input.BarberID,
		ServiceIDs:   input.ServiceIDs,
		StartTime:    input.StartTime.UTC(),
		Status:       input.Status,
	}
	if appt.ServiceIDs == nil {
		appt.ServiceIDs = []string{}
	}
	if input.EndTime != nil {
		appt.EndTime = input.EndTime.UTC()
	} else {
		appt.EndTime = appt.StartTime.Add(ac.duration(ctx, shopID, appt.ServiceIDs))
	}
	if appt.EndTime.Before(appt.StartTime) {
		utils.RespondWithError(c, http.StatusBadRequest, "endTime must not be before startTime")
		return
	}

	if err := ac.DB.WithContext(ctx).Create(&appt).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create appointment")
		return
	}

	ac.syncQueue(ctx, &appt)
	c.JSON(http.StatusCreated, appt)
}

// GetAppointments lists appointments, optionally for one local day (?date=YYYY-MM-DD)
// and one status.
func (ac *AppointmentController) GetAppointments(c *gin.Context) {
	shopID, ok := barbershopID(c)
	if !ok {
		return
	}

	q := ac.DB.WithContext(c.Request.Context()).Where("barbershop_id = ?", shopID)
	if date := c.Query("date"); date != "" {
		from, to, err := utils.DayRange(date, ac.Location)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, err.Error())
			return
		}
		q = q.Where("start_time >= ? AND start_time < ?", from, to)
	}
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}

	var appts []models.Appointment
	if err := q.Order("start_time ASC").Find(&appts).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve appointments")
		return
	}

	c.JSON(http.StatusOK, appts)
}

func (ac *AppointmentController) GetAppointment(c *gin.Context) {
	appt, ok := ac.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, appt)
}

func (ac *AppointmentController) UpdateAppointment(c *gin.Context) {
	var input UpdateAppointmentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	appt, ok := ac.load(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if input.ClientName != nil {
		appt.ClientName = *input.ClientName
	}
	if input.ClientPhone != nil {
		if *input.ClientPhone != "" && !utils.ValidatePhone(*input.ClientPhone) {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid client phone number")
			return
		}
		appt.ClientPhone = *input.ClientPhone
	}
	if input.BarberID != nil {
		if !ac.barberExists(c, appt.BarbershopID, *input.BarberID) {
			return
		}
		appt.BarberID = *input.BarberID
	}
	if input.ServiceIDs != nil {
		appt.ServiceIDs = *input.ServiceIDs
	}
	if input.StartTime != nil {
		length := appt.EndTime.Sub(appt.StartTime)
		appt.StartTime = input.StartTime.UTC()
		if input.EndTime == nil {
			appt.EndTime = appt.StartTime.Add(length)
		}
	}
	if input.EndTime != nil {
		appt.EndTime = input.EndTime.UTC()
	}
	if appt.EndTime.Before(appt.StartTime) {
		utils.RespondWithError(c, http.StatusBadRequest, "endTime must not be before startTime")
		return
	}
	if input.Status != nil {
		appt.Status = *input.Status
	}

	if err := ac.DB.WithContext(ctx).Save(appt).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update appointment")
		return
	}

	ac.syncQueue(ctx, appt)
	c.JSON(http.StatusOK, appt)
}

func (ac *AppointmentController) DeleteAppointment(c *gin.Context) {
	shopID, ok := barbershopID(c)
	if !ok {
		return
	}
	apptID, ok := pathID(c, "appointment")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	result := ac.DB.WithContext(ctx).
		Where("barbershop_id = ? AND id = ?", shopID, apptID).
		Delete(&models.Appointment{})
	if result.Error != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete appointment")
		return
	}
	if result.RowsAffected == 0 {
		utils.RespondWithError(c, http.StatusNotFound, "Appointment not found")
		return
	}

	if err := ac.Sync.RemoveAppointment(ctx, apptID); err != nil {
		ac.Log.Warn("reminder queue cleanup failed",
			zap.String("barbershop_id", shopID.String()),
			zap.String("appointment_id", apptID.String()),
			zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"message": "Appointment deleted successfully"})
}

func (ac *AppointmentController) syncQueue(ctx context.Context, appt *models.Appointment) {
	if err := ac.Sync.SyncAppointment(ctx, appt); err != nil {
		ac.Log.Warn("reminder queue sync failed",
			zap.String("barbershop_id", appt.BarbershopID.String()),
			zap.String("appointment_id", appt.ID.String()),
			zap.Bool("storage", services.IsStorageError(err)),
			zap.Error(err))
	}
}

func (ac *AppointmentController) load(c *gin.Context) (*models.Appointment, bool) {
	shopID, ok := barbershopID(c)
	if !ok {
		return nil, false
	}
	apptID, ok := pathID(c, "appointment")
	if !ok {
		return nil, false
	}

	var appt models.Appointment
	if err := ac.DB.WithContext(c.Request.Context()).
		Where("barbershop_id = ? AND id = ?", shopID, apptID).
		First(&appt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Appointment not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return nil, false
	}
	return &appt, true
}

func (ac *AppointmentController) barberExists(c *gin.Context, shopID, barberID uuid.UUID) bool {
	var count int64
	if err := ac.DB.WithContext(c.Request.Context()).Model(&models.Barber{}).
		Where("barbershop_id = ? AND id = ?", shopID, barberID).
		Count(&count).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return false
	}
	if count == 0 {
		utils.RespondWithError(c, http.StatusBadRequest, "Barber not found")
		return false
	}
	return true
}

// duration sums the service lengths, falling back to a default slot.
func (ac *AppointmentController) duration(ctx context.Context, shopID uuid.UUID, serviceIDs []string) time.Duration {
	if len(serviceIDs) == 0 {
		return defaultAppointmentLength
	}
	var minutes int64
	err := ac.DB.WithContext(ctx).Model(&models.Service{}).
		Where("barbershop_id = ? AND id IN ?", shopID, serviceIDs).
		Select("COALESCE(SUM(duration), 0)").
		Scan(&minutes).Error
	if err != nil || minutes <= 0 {
		return defaultAppointmentLength
	}
	return time.Duration(minutes) * time.Minute
}
