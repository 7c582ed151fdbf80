package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shenikar/campus_safety_system/internal/service"
)

// @Summary Register a new user
// @Description Register a new account. Admin role requires the correct admin signup code.
// @Tags Auth
// @Accept json
// @Produce json
// @Param user body RegisterRequest true "Registration request"
// @Success 201 {object} UserResponse
// @Failure 400 {object} map[string]string "Invalid request body or validation error"
// @Failure 403 {object} map[string]string "Invalid admin signup code"
// @Failure 409 {object} map[string]string "Email already taken"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /auth/register [post]
func (h *Handler) register(c *gin.Context) {
	log := h.logger.WithField("method", "register")

	var input RegisterRequest
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

	user, err := h.userService.Register(c.Request.Context(), service.RegisterInput{
		Email:     input.Email,
		Password:  input.Password,
		FullName:  input.FullName,
		Phone:     input.Phone,
		City:      input.City,
		AdminCode: input.AdminCode,
	})
	if err != nil {
		log.WithError(err).Warn("Failed to register user in service")
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ModelToUserResponse(user))
}

// @Summary Log in
// @Description Exchange email and password for a bearer token.
// @Tags Auth
// @Accept json
// @Produce json
// @Param credentials body LoginRequest true "Login request"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} map[string]string "Invalid request body"
// @Failure 401 {object} map[string]string "Invalid credentials"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /auth/login [post]
func (h *Handler) login(c *gin.Context) {
	log := h.logger.WithField("method", "login")

	var input LoginRequest
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

	token, user, err := h.userService.Login(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		log.Warn("Login attempt failed")
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, LoginResponse{
		AccessToken: token,
		User:        ModelToUserResponse(user),
	})
}

// @Summary Get own profile
// @Description Return the profile of the authenticated user.
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} UserResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /users/me [get]
func (h *Handler) getProfile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	c.JSON(http.StatusOK, ModelToUserResponse(user))
}

// @Summary Update own profile
// @Description Update profile fields of the authenticated user. Omitted fields stay unchanged.
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param profile body UpdateProfileRequest true "Profile update request"
// @Success 200 {object} UserResponse
// @Failure 400 {object} map[string]string "Invalid request body or validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /users/me [patch]
func (h *Handler) updateProfile(c *gin.Context) {
	log := h.logger.WithField("method", "updateProfile")

	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var input UpdateProfileRequest
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

	updated, err := h.userService.UpdateProfile(c.Request.Context(), user.ID, service.ProfileUpdate{
		Password: input.Password,
		FullName: input.FullName,
		Phone:    input.Phone,
		City:     input.City,
	})
	if err != nil {
		log.WithError(err).Error("Failed to update profile in service")
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ModelToUserResponse(updated))
}

// @Summary List all users
// @Description List all registered users. Admin only.
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} UserResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /admin/users [get]
func (h *Handler) listUsers(c *gin.Context) {
	log := h.logger.WithField("method", "listUsers")

	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	users, err := h.userService.ListUsers(c.Request.Context(), user)
	if err != nil {
		log.WithError(err).Warn("Failed to list users in service")
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ModelsToUserResponses(users))
}

// @Summary Delete a user
// @Description Delete a user account with all their incidents, votes and SOS logs. Admin only; admins and self cannot be deleted.
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 204 "Deleted"
// @Failure 400 {object} map[string]string "Invalid user ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "User not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /admin/users/{id} [delete]
func (h *Handler) deleteUser(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return
	}
	log := h.logger.WithField("method", "deleteUser").WithField("id", id)

	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	if err := h.userService.DeleteUser(c.Request.Context(), user, id); err != nil {
		log.WithError(err).Warn("Failed to delete user in service")
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
