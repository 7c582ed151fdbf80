package v1

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shenikar/campus_safety_system/internal/models"
)

// defaultNearbyRadius - радиус поиска инцидентов по умолчанию в метрах
const defaultNearbyRadius = 500.0

// @Summary Report a new incident
// @Description Report a new safety incident. The incident starts in pending status.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param incident body CreateIncidentRequest true "Incident report request"
// @Success 201 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid request body or validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents [post]
func (h *Handler) createIncident(c *gin.Context) {
	log := h.logger.WithField("method", "createIncident")

	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var input CreateIncidentRequest
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

	incident, err := h.incidentService.Report(c.Request.Context(), user.ID,
		models.IncidentCategory(input.Category), input.Description, input.Latitude, input.Longitude)
	if err != nil {
		log.WithError(err).Error("Failed to report incident in service")
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ModelToIncidentResponse(incident))
}

// @Summary Find nearby incidents
// @Description Find pending and active incidents within a radius of a point, newest first.
// @Tags Incidents
// @Accept json
// @Produce json
// @Param lat query number true "Latitude"
// @Param lng query number true "Longitude"
// @Param radius query number false "Radius in meters" default(500)
// @Success 200 {array} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents [get]
func (h *Handler) listNearbyIncidents(c *gin.Context) {
	log := h.logger.WithField("method", "listNearbyIncidents")

	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lat"})
		return
	}
	lng, err := strconv.ParseFloat(c.Query("lng"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lng"})
		return
	}
	radius := defaultNearbyRadius
	if raw := c.Query("radius"); raw != "" {
		radius, err = strconv.ParseFloat(raw, 64)
		if err != nil || radius < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid radius"})
			return
		}
	}

	incidents, err := h.incidentService.FindNearby(c.Request.Context(), lat, lng, radius)
	if err != nil {
		log.WithError(err).Error("Failed to find nearby incidents in service")
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ModelsToIncidentResponses(incidents))
}

// @Summary Get an incident
// @Description Get a single incident by ID.
// @Tags Incidents
// @Produce json
// @Param id path string true "Incident ID"
// @Success 200 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid incident ID"
// @Failure 404 {object} map[string]string "Incident not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents/{id} [get]
func (h *Handler) getIncident(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid incident ID"})
		return
	}
	log := h.logger.WithField("method", "getIncident").WithField("id", id)

	incident, err := h.incidentService.GetIncident(c.Request.Context(), id)
	if err != nil {
		log.WithError(err).Warn("Failed to get incident in service")
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ModelToIncidentResponse(incident))
}

// @Summary Vote on incident truthfulness
// @Description Cast or flip a vote on an incident. Voting the same way twice is rejected.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Incident ID"
// @Param vote body CastVoteRequest true "Vote request"
// @Success 200 {object} VoteResponse
// @Failure 400 {object} map[string]string "Invalid incident ID or request body"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Incident not found"
// @Failure 409 {object} map[string]string "Duplicate vote"
// @Failure 422 {object} map[string]string "Incident is resolved"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents/{id}/vote [post]
func (h *Handler) castVote(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid incident ID"})
		return
	}
	log := h.logger.WithField("method", "castVote").WithField("id", id)

	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var input CastVoteRequest
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

	vote, err := h.voteService.Cast(c.Request.Context(), id, user.ID, *input.IsTruthful)
	if err != nil {
		log.WithError(err).Warn("Failed to cast vote in service")
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ModelToVoteResponse(vote))
}

// @Summary Resolve an incident
// @Description Mark an active or rejected incident as resolved. Author or admin only.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Incident ID"
// @Success 200 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid incident ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Incident not found"
// @Failure 422 {object} map[string]string "Illegal status transition"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents/{id}/resolve [patch]
func (h *Handler) resolveIncident(c *gin.Context) {
	h.transitionIncident(c, "resolveIncident", h.incidentService.Resolve)
}

// @Summary Approve a pending incident
// @Description Approve a pending incident, making it active. Admin only.
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Incident ID"
// @Success 200 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid incident ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Incident not found"
// @Failure 422 {object} map[string]string "Illegal status transition"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /admin/incidents/{id}/approve [patch]
func (h *Handler) approveIncident(c *gin.Context) {
	h.transitionIncident(c, "approveIncident", h.incidentService.Approve)
}

// @Summary Reject a pending incident
// @Description Reject a pending incident. Admin only.
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Incident ID"
// @Success 200 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid incident ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Incident not found"
// @Failure 422 {object} map[string]string "Illegal status transition"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /admin/incidents/{id}/reject [patch]
func (h *Handler) rejectIncident(c *gin.Context) {
	h.transitionIncident(c, "rejectIncident", h.incidentService.Reject)
}

// transitionIncident - общий код обработчиков переходов статуса
func (h *Handler) transitionIncident(c *gin.Context, method string, transition func(ctx context.Context, id uuid.UUID, actor *models.User) (*models.Incident, error)) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid incident ID"})
		return
	}
	log := h.logger.WithField("method", method).WithField("id", id)

	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	incident, err := transition(c.Request.Context(), id, user)
	if err != nil {
		log.WithError(err).Warn("Incident status transition failed in service")
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ModelToIncidentResponse(incident))
}

// @Summary List all incidents
// @Description List all incidents regardless of status, optionally filtered. Admin only.
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param status query string false "Status filter" Enums(pending, active, rejected, resolved)
// @Success 200 {array} IncidentResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /admin/incidents [get]
func (h *Handler) listAllIncidents(c *gin.Context) {
	log := h.logger.WithField("method", "listAllIncidents")

	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	incidents, err := h.incidentService.ListAll(c.Request.Context(), user, models.IncidentStatus(c.Query("status")))
	if err != nil {
		log.WithError(err).Warn("Failed to list incidents in service")
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ModelsToIncidentResponses(incidents))
}
