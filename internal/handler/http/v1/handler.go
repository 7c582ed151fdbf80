package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shenikar/campus_safety_system/internal/broadcast"
	"github.com/shenikar/campus_safety_system/internal/config"
	"github.com/shenikar/campus_safety_system/internal/models"
	"github.com/shenikar/campus_safety_system/internal/service"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	incidentService service.IncidentService
	voteService     service.VoteService
	sosService      service.SOSService
	userService     service.UserService
	routeService    service.RouteService
	hub             *broadcast.Hub
	logger          *logrus.Logger
	validate        *validator.Validate
	cfg             *config.Config
}

type Services struct {
	Incidents service.IncidentService
	Votes     service.VoteService
	SOS       service.SOSService
	Users     service.UserService
	Routes    service.RouteService
}

func NewHandler(services Services, hub *broadcast.Hub, logger *logrus.Logger, cfg *config.Config) *Handler {
	return &Handler{
		incidentService: services.Incidents,
		voteService:     services.Votes,
		sosService:      services.SOS,
		userService:     services.Users,
		routeService:    services.Routes,
		hub:             hub,
		logger:          logger,
		validate:        validator.New(),
		cfg:             cfg,
	}
}

// respondError сопоставляет доменную ошибку со стабильным HTTP-статусом.
// Каждый вид ошибки из таксономии получает свой код, остальное - 500
// без утечки внутренних деталей.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrAuth):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
	case errors.Is(err, models.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, service.ErrAdminCodeInvalid):
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid admin signup code"})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, models.ErrDuplicateVote):
		c.JSON(http.StatusConflict, gin.H{"error": "you already voted this way"})
	case errors.Is(err, service.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
	case errors.Is(err, models.ErrInvalidState):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid incident state"})
	case errors.Is(err, models.ErrUpstreamUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": "routing provider unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// @Summary Get application health status
// @Description Get health status of the application
// @Tags System
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string "Status OK"
// @Router /system/health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
