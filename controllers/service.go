// controllers/service.go
package controllers

import (
	"errors"
	"net/http"

	"barberpro-backend/models"
	"barberpro-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ServiceController manages the services a barbershop offers. Names and prices feed the
// {servico} and {valor} message placeholders.
type ServiceController struct {
	DB *gorm.DB
}

// CreateServiceInput defines the expected JSON structure for creating a service
type CreateServiceInput struct {
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description"`
	Price       float64 `json:"price" binding:"min=0"`
	Duration    int     `json:"duration" binding:"min=0"` // in minutes
}

// UpdateServiceInput defines the expected JSON structure for updating a service
type UpdateServiceInput struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price" binding:"omitempty,min=0"`
	Duration    *int     `json:"duration" binding:"omitempty,min=0"`
	IsActive    *bool    `json:"isActive"`
}

// CreateService creates a new service for the barbershop
func (sc *ServiceController) CreateService(c *gin.Context) {
	shopID, ok := barbershopID(c)
	if !ok {
		return
	}

	var input CreateServiceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	service := models.Service{
		BarbershopID: shopID,
		Name:         input.Name,
		Description:  input.Description,
		Price:        input.Price,
		Duration:     input.Duration,
		IsActive:     true,
	}
	if err := sc.DB.WithContext(c.Request.Context()).Create(&service).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create service")
		return
	}

	c.JSON(http.StatusCreated, service)
}

// GetServices retrieves all services for the barbershop
func (sc *ServiceController) GetServices(c *gin.Context) {
	shopID, ok := barbershopID(c)
	if !ok {
		return
	}

	var services []models.Service
	if err := sc.DB.WithContext(c.Request.Context()).
		Where("barbershop_id = ?", shopID).
		Order("name ASC").
		Find(&services).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve services")
		return
	}

	c.JSON(http.StatusOK, services)
}

// GetService retrieves a specific service by ID
func (sc *ServiceController) GetService(c *gin.Context) {
	service, ok := sc.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, service)
}

// UpdateService updates an existing service
func (sc *ServiceController) UpdateService(c *gin.Context) {
	var input UpdateServiceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	service, ok := sc.load(c)
	if !ok {
		return
	}

	if input.Name != nil {
		service.Name = *input.Name
	}
	if input.Description != nil {
		service.Description = *input.Description
	}
	if input.Price != nil {
		service.Price = *input.Price
	}
	if input.Duration != nil {
		service.Duration = *input.Duration
	}
	if input.IsActive != nil {
		service.IsActive = *input.IsActive
	}

	if err := sc.DB.WithContext(c.Request.Context()).Save(service).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update service")
		return
	}

	c.JSON(http.StatusOK, service)
}

// DeleteService removes a service. Appointments keep the id; rendering skips unknown ids.
func (sc *ServiceController) DeleteService(c *gin.Context) {
	shopID, ok := barbershopID(c)
	if !ok {
		return
	}
	serviceID, ok := pathID(c, "service")
	if !ok {
		return
	}

	result := sc.DB.WithContext(c.Request.Context()).
		Where("barbershop_id = ? AND id = ?", shopID, serviceID).
		Delete(&models.Service{})
	if result.Error != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete service")
		return
	}
	if result.RowsAffected == 0 {
		utils.RespondWithError(c, http.StatusNotFound, "Service not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Service deleted successfully"})
}

func (sc *ServiceController) load(c *gin.Context) (*models.Service, bool) {
	shopID, ok := barbershopID(c)
	if !ok {
		return nil, false
	}
	serviceID, ok := pathID(c, "service")
	if !ok {
		return nil, false
	}

	var service models.Service
	if err := sc.DB.WithContext(c.Request.Context()).
		Where("barbershop_id = ? AND id = ?", shopID, serviceID).
		First(&service).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Service not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return nil, false
	}
	return &service, true
}
