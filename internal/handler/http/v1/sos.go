package v1

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// @Summary Submit an SOS signal
// @Description Persist an SOS signal and broadcast an emergency alert to all connected sessions.
// @Tags SOS
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param sos body SubmitSOSRequest true "SOS signal request"
// @Success 201 {object} SOSLogResponse
// @Failure 400 {object} map[string]string "Invalid request body or validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /sos [post]
func (h *Handler) submitSOS(c *gin.Context) {
	log := h.logger.WithField("method", "submitSOS")

	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var input SubmitSOSRequest
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

	sosLog, err := h.sosService.Submit(c.Request.Context(), user.ID, input.Latitude, input.Longitude)
	if err != nil {
		log.WithError(err).Error("Failed to submit SOS signal in service")
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ModelToSOSLogResponse(sosLog))
}

// @Summary SOS history
// @Description List SOS signals, newest first. Admins see all users, others see only their own.
// @Tags SOS
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum number of records" default(50) minimum(1) maximum(100)
// @Success 200 {array} SOSLogResponse
// @Failure 400 {object} map[string]string "Invalid limit"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /sos/history [get]
func (h *Handler) sosHistory(c *gin.Context) {
	log := h.logger.WithField("method", "sosHistory")

	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		var err error
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 100"})
			return
		}
	}

	logs, err := h.sosService.History(c.Request.Context(), user, limit)
	if err != nil {
		log.WithError(err).Error("Failed to load SOS history in service")
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ModelsToSOSLogResponses(logs))
}
