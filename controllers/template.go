package controllers

import (
	"context"
	"errors"
	"net/http"

	"barberpro-backend/models"
	"barberpro-backend/services"
	"barberpro-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TenantResyncer rebuilds a barbershop's whole reminder queue.
type TenantResyncer interface {
	SyncBarbershop(ctx context.Context, barbershopID uuid.UUID) (services.SyncReport, error)
}

// TemplateController manages a barbershop's message template overrides. Every change
// resynchronizes the barbershop's queue.
type TemplateController struct {
	DB   *gorm.DB
	Sync TenantResyncer
	Log  *zap.Logger
}

// CreateTemplateInput defines the expected JSON structure
type CreateTemplateInput struct {
	Name                string `json:"name" binding:"required"`
	Type                string `json:"type" binding:"required"`
	Content             string `json:"content" binding:"required"`
	Enabled             *bool  `json:"enabled"`
	ReminderHoursBefore *int   `json:"reminderHoursBefore" binding:"omitempty,min=1,max=720"`
}

// UpdateTemplateInput defines the expected JSON structure
type UpdateTemplateInput struct {
	Name                *string `json:"name"`
	Content             *string `json:"content"`
	Enabled             *bool   `json:"enabled"`
	ReminderHoursBefore *int    `json:"reminderHoursBefore" binding:"omitempty,min=1,max=720"`
}

// templateView is a template as the barbershop currently uses it.
type templateView struct {
	models.MessageTemplate
	Kind      services.TemplateKind `json:"kind,omitempty"`
	IsDefault bool                  `json:"isDefault"`
}

// GetTemplates returns the default templates merged with the barbershop overrides.
func (tc *TemplateController) GetTemplates(c *gin.Context) {
	shopID, ok := barbershopID(c)
	if !ok {
		return
	}

	var overrides []models.MessageTemplate
	if err := tc.DB.WithContext(c.Request.Context()).
		Where("barbershop_id = ?", shopID).
		Order("created_at ASC").
		Find(&overrides).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve templates")
		return
	}

	merged := services.MergeTemplates(services.DefaultTemplates(), overrides)
	views := make([]templateView, 0, len(merged))
	for _, t := range merged {
		kind, _ := services.KindOf(t)
		views = append(views, templateView{MessageTemplate: t, Kind: kind, IsDefault: t.ID == uuid.Nil})
	}
	c.JSON(http.StatusOK, views)
}

// CreateTemplate stores an override. Only one override may exist per template type and
// per template kind.
func (tc *TemplateController) CreateTemplate(c *gin.Context) {
	shopID, ok := barbershopID(c)
	if !ok {
		return
	}

	var input CreateTemplateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	ctx := c.Request.Context()

	template := models.MessageTemplate{
		BarbershopID:        shopID,
		Name:                input.Name,
		Type:                input.Type,
		Content:             input.Content,
		Enabled:             input.Enabled == nil || *input.Enabled,
		ReminderHoursBefore: input.ReminderHoursBefore,
	}
	kind, hasKind := services.KindOf(template)
	if kind == services.KindReminder && template.ReminderHoursBefore == nil {
		utils.RespondWithError(c, http.StatusBadRequest, "reminderHoursBefore is required for reminder templates")
		return
	}

	var existing []models.MessageTemplate
	if err := tc.DB.WithContext(ctx).Where("barbershop_id = ?", shopID).Find(&existing).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}
	normalized := services.NormalizeTemplateType(input.Type)
	for _, t := range existing {
		if services.NormalizeTemplateType(t.Type) == normalized {
			utils.RespondWithError(c, http.StatusConflict, "Template for this type already exists")
			return
		}
		if other, ok := services.KindOf(t); hasKind && ok && other == kind {
			utils.RespondWithError(c, http.StatusConflict, "Template for this kind already exists: "+t.Type)
			return
		}
	}

	if err := tc.DB.WithContext(ctx).Create(&template).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create template")
		return
	}

	tc.resync(ctx, shopID)
	c.JSON(http.StatusCreated, template)
}

// UpdateTemplate updates an existing override
func (tc *TemplateController) UpdateTemplate(c *gin.Context) {
	shopID, ok := barbershopID(c)
	if !ok {
		return
	}
	templateID, ok := pathID(c, "template")
	if !ok {
		return
	}

	var input UpdateTemplateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	ctx := c.Request.Context()

	var template models.MessageTemplate
	if err := tc.DB.WithContext(ctx).
		Where("barbershop_id = ? AND id = ?", shopID, templateID).
		First(&template).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Template not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if input.Name != nil {
		template.Name = *input.Name
	}
	if input.Content != nil {
		template.Content = *input.Content
	}
	if input.Enabled != nil {
		template.Enabled = *input.Enabled
	}
	if input.ReminderHoursBefore != nil {
		template.ReminderHoursBefore = input.ReminderHoursBefore
	}

	if err := tc.DB.WithContext(ctx).Save(&template).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update template")
		return
	}

	tc.resync(ctx, shopID)
	c.JSON(http.StatusOK, template)
}

// DeleteTemplate removes an override; the default template of that type applies again.
func (tc *TemplateController) DeleteTemplate(c *gin.Context) {
	shopID, ok := barbershopID(c)
	if !ok {
		return
	}
	templateID, ok := pathID(c, "template")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	result := tc.DB.WithContext(ctx).
		Where("barbershop_id = ? AND id = ?", shopID, templateID).
		Delete(&models.MessageTemplate{})
	if result.Error != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete template")
		return
	}
	if result.RowsAffected == 0 {
		utils.RespondWithError(c, http.StatusNotFound, "Template not found")
		return
	}

	tc.resync(ctx, shopID)
	c.JSON(http.StatusOK, gin.H{"message": "Template deleted successfully"})
}

// Resync rebuilds the barbershop's reminder queue on demand.
func (tc *TemplateController) Resync(c *gin.Context) {
	shopID, ok := barbershopID(c)
	if !ok {
		return
	}

	report, err := tc.Sync.SyncBarbershop(c.Request.Context(), shopID)
	if err != nil {
		if errors.Is(err, services.ErrBarbershopNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Barbershop not found")
			return
		}
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to synchronize reminder queue")
		return
	}
	c.JSON(http.StatusOK, report)
}

func (tc *TemplateController) resync(ctx context.Context, shopID uuid.UUID) {
	report, err := tc.Sync.SyncBarbershop(ctx, shopID)
	if err != nil {
		tc.Log.Warn("reminder queue resync failed", zap.String("barbershop_id", shopID.String()), zap.Error(err))
		return
	}
	if report.Failed > 0 {
		tc.Log.Warn("reminder queue resync incomplete",
			zap.String("barbershop_id", shopID.String()),
			zap.Int("failed", report.Failed))
	}
}
