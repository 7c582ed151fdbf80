package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shenikar/campus_safety_system/internal/service"
)

// @Summary Build a safe walking route
// @Description Build a walking route between two points that avoids active incidents near the straight line.
// @Tags Routes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param route body SafeRouteRequest true "Safe route request"
// @Success 200 {object} service.SafeRouteResult
// @Failure 400 {object} map[string]string "Invalid request body or validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 502 {object} map[string]string "Routing provider unavailable"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /routes/safe-route [post]
func (h *Handler) safeRoute(c *gin.Context) {
	log := h.logger.WithField("method", "safeRoute")

	if _, ok := currentUser(c); !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var input SafeRouteRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.routeService.SafeRoute(c.Request.Context(), service.SafeRouteRequest{
		StartLat:    input.StartLat,
		StartLng:    input.StartLng,
		EndLat:      input.EndLat,
		EndLng:      input.EndLng,
		AvoidRadius: input.AvoidRadius,
	})
	if err != nil {
		log.WithError(err).Error("Failed to build safe route in service")
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
