package v1

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes регистрирует все маршруты API v1
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	// Публичные маршруты: регистрация, вход, поиск инцидентов рядом
	auth := api.Group("/auth")
	{
		auth.POST("/register", h.register)
		auth.POST("/login", h.login)
	}

	api.GET("/incidents", h.listNearbyIncidents)
	api.GET("/incidents/:id", h.getIncident)

	// WebSocket проверяет токен сам, до апгрейда
	api.GET("/ws", h.serveWS)

	// Маршрут Health-check
	api.GET("/system/health", h.healthCheck)

	// Маршруты, требующие аутентификации
	authed := api.Group("", h.AuthMiddleware())
	{
		authed.GET("/users/me", h.getProfile)
		authed.PATCH("/users/me", h.updateProfile)

		authed.POST("/incidents", h.createIncident)
		authed.POST("/incidents/:id/vote", h.castVote)
		authed.PATCH("/incidents/:id/resolve", h.resolveIncident)

		authed.POST("/sos", h.submitSOS)
		authed.GET("/sos/history", h.sosHistory)

		authed.POST("/routes/safe-route", h.safeRoute)

		// Админские маршруты; права проверяются в сервисном слое,
		// чтобы сохранить порядок ошибок: существование -> статус -> права
		admin := authed.Group("/admin")
		{
			admin.PATCH("/incidents/:id/approve", h.approveIncident)
			admin.PATCH("/incidents/:id/reject", h.rejectIncident)
			admin.GET("/incidents", h.listAllIncidents)
			admin.GET("/users", h.listUsers)
			admin.DELETE("/users/:id", h.deleteUser)
		}
	}
}
