package controllers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisablingReminderTemplateResyncsQueue(t *testing.T) {
	env := newTestEnv(t)
	env.createAppointment(t, time.Now().Add(48*time.Hour))
	require.Len(t, env.queue(t, "").Data, 2)

	w := env.do(t, http.MethodPost, "/api/message-templates", gin.H{
		"name":                "Lembrete",
		"type":                "lembrete de agendamento",
		"content":             "Até amanhã, {cliente}!",
		"enabled":             false,
		"reminderHoursBefore": 24,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	listing := env.queue(t, "").Data
	require.Len(t, listing, 1)
	assert.Equal(t, "confirmation", listing[0].TemplateType)

	w = env.do(t, http.MethodGet, "/api/message-templates", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var views []struct {
		Type      string `json:"type"`
		Kind      string `json:"kind"`
		Enabled   bool   `json:"enabled"`
		IsDefault bool   `json:"isDefault"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &views))
	reminders := 0
	for _, v := range views {
		if v.Kind == "reminder" {
			reminders++
			assert.False(t, v.Enabled)
			assert.False(t, v.IsDefault)
		}
	}
	assert.Equal(t, 1, reminders)
}

func TestCreateTemplateValidation(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/message-templates", gin.H{
		"name": "Reminder", "type": "Reminder", "content": "z",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, "reminders need hours")

	w = env.do(t, http.MethodPost, "/api/message-templates", gin.H{
		"name": "Lembrete", "type": "Lembrete de Agendamento", "content": "x", "reminderHoursBefore": 2,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.do(t, http.MethodPost, "/api/message-templates", gin.H{
		"name": "Outro", "type": "LEMBRETE DE AGENDAMENTO", "content": "y", "reminderHoursBefore": 3,
	})
	assert.Equal(t, http.StatusConflict, w.Code, "same type")

	w = env.do(t, http.MethodPost, "/api/message-templates", gin.H{
		"name": "Lembrete curto", "type": "Lembrete", "content": "y", "reminderHoursBefore": 1,
	})
	assert.Equal(t, http.StatusConflict, w.Code, "same kind under another label")

	w = env.do(t, http.MethodPost, "/api/message-templates", gin.H{
		"name": "Aniversário", "type": "Aniversário", "content": "parabéns",
	})
	assert.Equal(t, http.StatusCreated, w.Code, "templates without a kind never conflict")
}

func TestCustomLabelReminderReplacesDefault(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/message-templates", gin.H{
		"name": "Lembrete curto", "type": "Lembrete", "content": "Daqui a pouco, {cliente}!", "reminderHoursBefore": 2,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	start := time.Now().Add(48 * time.Hour).Truncate(time.Second)
	appt := env.createAppointment(t, start)

	var reminder *time.Time
	for _, item := range env.queue(t, "").Data {
		if item.AppointmentID == appt.ID && item.TemplateType == "reminder" {
			at := item.ScheduledFor
			reminder = &at
		}
	}
	require.NotNil(t, reminder)
	assert.WithinDuration(t, start.Add(-2*time.Hour), *reminder, time.Second)
}
