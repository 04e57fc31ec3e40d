package controllers

import (
	"errors"
	"net/http"

	"barberpro-backend/models"
	"barberpro-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// BarberController manages barbers. Their names fill the {barbeiro} placeholder.
type BarberController struct {
	DB *gorm.DB
}

type CreateBarberInput struct {
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone"`
}

type UpdateBarberInput struct {
	Name     *string `json:"name"`
	Phone    *string `json:"phone"`
	IsActive *bool   `json:"isActive"`
}

func (bc *BarberController) CreateBarber(c *gin.Context) {
	shopID, ok := barbershopID(c)
	if !ok {
		return
	}

	var input CreateBarberInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	if input.Phone != "" && !utils.ValidatePhone(input.Phone) {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid phone number")
		return
	}

	barber := models.Barber{
		BarbershopID: shopID,
		Name:         input.Name,
		Phone:        input.Phone,
		IsActive:     true,
	}
	if err := bc.DB.WithContext(c.Request.Context()).Create(&barber).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create barber")
		return
	}

	c.JSON(http.StatusCreated, barber)
}

func (bc *BarberController) GetBarbers(c *gin.Context) {
	shopID, ok := barbershopID(c)
	if !ok {
		return
	}

	var barbers []models.Barber
	if err := bc.DB.WithContext(c.Request.Context()).
		Where("barbershop_id = ?", shopID).
		Order("name ASC").
		Find(&barbers).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve barbers")
		return
	}

	c.JSON(http.StatusOK, barbers)
}

func (bc *BarberController) UpdateBarber(c *gin.Context) {
	shopID, ok := barbershopID(c)
	if !ok {
		return
	}
	barberID, ok := pathID(c, "barber")
	if !ok {
		return
	}

	var input UpdateBarberInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var barber models.Barber
	if err := bc.DB.WithContext(c.Request.Context()).
		Where("barbershop_id = ? AND id = ?", shopID, barberID).
		First(&barber).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Barber not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if input.Name != nil {
		barber.Name = *input.Name
	}
	if input.Phone != nil {
		if *input.Phone != "" && !utils.ValidatePhone(*input.Phone) {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid phone number")
			return
		}
		barber.Phone = *input.Phone
	}
	if input.IsActive != nil {
		barber.IsActive = *input.IsActive
	}

	if err := bc.DB.WithContext(c.Request.Context()).Save(&barber).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update barber")
		return
	}

	c.JSON(http.StatusOK, barber)
}

func (bc *BarberController) DeleteBarber(c *gin.Context) {
	shopID, ok := barbershopID(c)
	if !ok {
		return
	}
	barberID, ok := pathID(c, "barber")
	if !ok {
		return
	}

	result := bc.DB.WithContext(c.Request.Context()).
		Where("barbershop_id = ? AND id = ?", shopID, barberID).
		Delete(&models.Barber{})
	if result.Error != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete barber")
		return
	}
	if result.RowsAffected == 0 {
		utils.RespondWithError(c, http.StatusNotFound, "Barber not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Barber deleted successfully"})
}
