package controllers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"barberpro-backend/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAppointmentQueuesMessages(t *testing.T) {
	env := newTestEnv(t)
	appt := env.createAppointment(t, time.Now().Add(48*time.Hour))

	listing := env.queue(t, "")
	require.Len(t, listing.Data, 2)
	kinds := map[string]string{}
	for _, item := range listing.Data {
		assert.Equal(t, appt.ID, item.AppointmentID)
		assert.Equal(t, "João", item.ClientName)
		kinds[item.TemplateType] = item.Status
	}
	assert.Equal(t, map[string]string{"confirmation": models.QueuePending, "reminder": models.QueuePending}, kinds)
}

func TestCancelledAppointmentLeavesQueue(t *testing.T) {
	env := newTestEnv(t)
	appt := env.createAppointment(t, time.Now().Add(48*time.Hour))

	w := env.do(t, http.MethodPut, "/api/appointments/"+appt.ID.String(), map[string]string{"status": "cancelled"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Empty(t, env.queue(t, "").Data)
}

func TestDeletedAppointmentLeavesQueue(t *testing.T) {
	env := newTestEnv(t)
	appt := env.createAppointment(t, time.Now().Add(48*time.Hour))

	w := env.do(t, http.MethodDelete, "/api/appointments/"+appt.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Empty(t, env.queue(t, "").Data)
}

func TestGetQueueRejectsUnknownStatus(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/api/reminders/queue?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancelAndRetryQueueEntry(t *testing.T) {
	env := newTestEnv(t)
	env.createAppointment(t, time.Now().Add(48*time.Hour))
	entry := env.queue(t, "?status=pending").Data[0]

	w := env.do(t, http.MethodDelete, "/api/reminders/queue/"+entry.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, env.queue(t, "?status=cancelled").Data, 1)

	w = env.do(t, http.MethodPost, "/api/reminders/queue/"+entry.ID.String()+"/retry", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, env.queue(t, "?status=pending").Data, 2)

	w = env.do(t, http.MethodDelete, "/api/reminders/queue/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodDelete, "/api/reminders/queue/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRunSendsDueMessagesAndLogsThem(t *testing.T) {
	env := newTestEnv(t)
	env.createAppointment(t, time.Now().Add(48*time.Hour))

	w := env.do(t, http.MethodPost, "/api/reminders/run", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var run struct {
		Processed int `json:"processed"`
		Skipped   int `json:"skipped"`
		Failed    int `json:"failed"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))
	assert.Equal(t, 1, run.Processed)
	assert.Zero(t, run.Failed)
	assert.Equal(t, 1, env.sender.count)

	sent := env.queue(t, "?status=sent").Data
	require.Len(t, sent, 1)
	assert.Equal(t, "confirmation", sent[0].TemplateType)

	w = env.do(t, http.MethodGet, "/api/reminders/logs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var logs struct {
		Data []models.ReminderLog `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &logs))
	require.Len(t, logs.Data, 1)
	assert.Equal(t, models.LogSuccess, logs.Data[0].Status)

	w = env.do(t, http.MethodPost, "/api/reminders/run", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "No pending messages.")
	assert.Equal(t, 1, env.sender.count)
}

func TestGetLogsRejectsBadLimit(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/api/reminders/logs?limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
