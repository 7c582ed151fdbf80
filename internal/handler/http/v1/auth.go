package v1

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shenikar/campus_safety_system/internal/models"
)

// currentUserKey - ключ контекста Gin с разрешенной идентичностью
const currentUserKey = "currentUser"

// bearerToken извлекает bearer-токен из заголовка Authorization
func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" && strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

// AuthMiddleware - middleware аутентификации по bearer-токену.
// Разрешает токен в активного пользователя через шлюз идентичности
// и кладет его в контекст запроса.
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			h.logger.Warn("Bearer token missing from request")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		user, err := h.userService.Authenticate(c.Request.Context(), token)
		if err != nil {
			h.logger.WithError(err).Warn("Failed to authenticate request")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		c.Set(currentUserKey, user)
		c.Next()
	}
}

// currentUser возвращает идентичность, разрешенную middleware
func currentUser(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get(currentUserKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*models.User)
	return user, ok
}
