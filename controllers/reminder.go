// controllers/reminder.go
package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"barberpro-backend/models"
	"barberpro-backend/services"
	"barberpro-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultLogLimit = 200
	maxLogLimit     = 1000
)

// BarbershopDispatcher sends one barbershop's due reminders.
type BarbershopDispatcher interface {
	ProcessBarbershop(ctx context.Context, barbershopID uuid.UUID) (services.DispatchResult, error)
}

// FleetDispatcher sends due reminders for every barbershop.
type FleetDispatcher interface {
	DispatchAll(ctx context.Context) ([]services.TenantRun, error)
}

// ReminderController exposes queue inspection, manual runs and dispatch logs.
type ReminderController struct {
	DB         *gorm.DB
	Queue      services.QueueRepository
	Sync       TenantResyncer
	Dispatcher BarbershopDispatcher
	Fleet      FleetDispatcher
	Logs       services.LogSink
	Now        func() time.Time
	Log        *zap.Logger
}

// QueueItem is a queue entry with the appointment fields shown next to it.
type QueueItem struct {
	models.ReminderQueueEntry
	ClientName       string     `json:"clientName,omitempty"`
	ClientPhone      string     `json:"clientPhone,omitempty"`
	AppointmentStart *time.Time `json:"appointmentStart,omitempty"`
}

var queueStatuses = map[string]bool{
	models.QueuePending:   true,
	models.QueueInFlight:  true,
	models.QueueSent:      true,
	models.QueueError:     true,
	models.QueueSkipped:   true,
	models.QueueCancelled: true,
}

// GetQueue lists the barbershop's queue. ?status= filters, ?sync=1 reconciles first.
func (rc *ReminderController) GetQueue(c *gin.Context) {
	shopID, ok := barbershopID(c)
	if !ok {
		return
	}
	status := c.Query("status")
	if status != "" && !queueStatuses[status] {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid status filter")
		return
	}
	ctx := c.Request.Context()

	if wantSync, _ := strconv.ParseBool(c.DefaultQuery("sync", "false")); wantSync {
		if _, err := rc.Sync.SyncBarbershop(ctx, shopID); err != nil {
			rc.Log.Warn("queue sync before listing failed", zap.String("barbershop_id", shopID.String()), zap.Error(err))
		}
	}

	entries, err := rc.Queue.ListEntries(ctx, shopID, status)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve reminder queue")
		return
	}

	ids := make([]uuid.UUID, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.AppointmentID)
	}
	var appts []models.Appointment
	if len(ids) > 0 {
		if err := rc.DB.WithContext(ctx).Where("id IN ?", ids).Find(&appts).Error; err != nil {
			utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve appointments")
			return
		}
	}
	byID := make(map[uuid.UUID]models.Appointment, len(appts))
	for _, a := range appts {
		byID[a.ID] = a
	}

	items := make([]QueueItem, 0, len(entries))
	for _, e := range entries {
		item := QueueItem{ReminderQueueEntry: e}
		if a, ok := byID[e.AppointmentID]; ok {
			start := a.StartTime
			item.ClientName = a.ClientName
			item.ClientPhone = a.ClientPhone
			item.AppointmentStart = &start
		}
		items = append(items, item)
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

// CancelEntry cancels one queued message. The entry stays as cancelled so it is not
// rescheduled.
func (rc *ReminderController) CancelEntry(c *gin.Context) {
	shopID, ok := barbershopID(c)
	if !ok {
		return
	}
	entryID, ok := pathID(c, "queue entry")
	if !ok {
		return
	}

	if err := rc.Queue.Cancel(c.Request.Context(), shopID, entryID); err != nil {
		if errors.Is(err, services.ErrEntryNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Queue entry not found")
			return
		}
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to cancel queue entry")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Queue entry cancelled"})
}

// RetryEntry puts a failed, skipped or cancelled entry back in the queue, due now.
func (rc *ReminderController) RetryEntry(c *gin.Context) {
	shopID, ok := barbershopID(c)
	if !ok {
		return
	}
	entryID, ok := pathID(c, "queue entry")
	if !ok {
		return
	}

	if err := rc.Queue.Requeue(c.Request.Context(), shopID, entryID, rc.now()); err != nil {
		if errors.Is(err, services.ErrEntryNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Queue entry not found or not retryable")
			return
		}
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to requeue entry")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Queue entry requeued"})
}

// Run dispatches the barbershop's due messages now.
func (rc *ReminderController) Run(c *gin.Context) {
	shopID, ok := barbershopID(c)
	if !ok {
		return
	}

	result, err := rc.Dispatcher.ProcessBarbershop(c.Request.Context(), shopID)
	if err != nil {
		if errors.Is(err, services.ErrBarbershopNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Barbershop not found")
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     err.Error(),
			"processed": result.Processed,
			"skipped":   result.Skipped,
			"failed":    result.Failed,
			"results":   result.Results,
		})
		return
	}

	message := "Message run finished."
	if result.Processed == 0 && result.Skipped == 0 {
		message = "No pending messages."
	}
	c.JSON(http.StatusOK, gin.H{
		"message":   message,
		"processed": result.Processed,
		"skipped":   result.Skipped,
		"failed":    result.Failed,
		"results":   result.Results,
	})
}

// GetLogs lists the barbershop's dispatch logs, newest first.
func (rc *ReminderController) GetLogs(c *gin.Context) {
	shopID, ok := barbershopID(c)
	if !ok {
		return
	}
	rc.listLogs(c, &shopID)
}

// RunAll dispatches due messages for every barbershop. Failures are reported per
// barbershop next to the counts of the others.
func (rc *ReminderController) RunAll(c *gin.Context) {
	runs, err := rc.Fleet.DispatchAll(c.Request.Context())
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to list barbershops: "+err.Error())
		return
	}

	var processed, skipped, failed, errored int
	for _, r := range runs {
		processed += r.Processed
		skipped += r.Skipped
		failed += r.Failed
		if r.Error != "" {
			errored++
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"processed": processed,
		"skipped":   skipped,
		"failed":    failed,
		"errors":    errored,
		"results":   runs,
	})
}

// GetAllLogs lists logs across barbershops, optionally narrowed by ?barbershopId=.
func (rc *ReminderController) GetAllLogs(c *gin.Context) {
	var filter *uuid.UUID
	if raw := c.Query("barbershopId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid barbershop ID format")
			return
		}
		filter = &id
	}
	rc.listLogs(c, filter)
}

func (rc *ReminderController) listLogs(c *gin.Context, shopID *uuid.UUID) {
	limit := defaultLogLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = min(n, maxLogLimit)
	}

	logs, err := rc.Logs.List(c.Request.Context(), services.LogFilter{BarbershopID: shopID, Limit: limit})
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve logs")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": logs})
}

func (rc *ReminderController) now() time.Time {
	if rc.Now != nil {
		return rc.Now()
	}
	return time.Now()
}
