package controllers

import (
	"net/http"

	"barberpro-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// barbershopID reads the tenant set by utils.AuthMiddleware. It answers the request
// itself when the tenant is missing.
func barbershopID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get("barbershopId")
	if !exists {
		utils.RespondWithError(c, http.StatusUnauthorized, "Barbershop ID not found in context")
		return uuid.Nil, false
	}
	raw, _ := value.(string)
	id, err := uuid.Parse(raw)
	if err != nil {
		utils.RespondWithError(c, http.StatusUnauthorized, "Invalid barbershop ID format")
		return uuid.Nil, false
	}
	return id, true
}

// pathID parses the :id path parameter.
func pathID(c *gin.Context, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid "+label+" ID format")
		return uuid.Nil, false
	}
	return id, true
}
