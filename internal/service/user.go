package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shenikar/campus_safety_system/internal/auth"
	"github.com/shenikar/campus_safety_system/internal/config"
	"github.com/shenikar/campus_safety_system/internal/models"
	"github.com/sirupsen/logrus"
)

// UserRepository определяет контракт для работы с бд пользователей
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Update(ctx context.Context, user *models.User) error
	DeleteCascade(ctx context.Context, id uuid.UUID) error
}

// RegisterInput - данные регистрации нового пользователя
type RegisterInput struct {
	Email     string
	Password  string
	FullName  string
	Phone     string
	City      string
	AdminCode string
}

// ProfileUpdate - изменяемые поля профиля; nil означает "не менять"
type ProfileUpdate struct {
	FullName *string
	Phone    *string
	City     *string
	Password *string
}

// UserService определяет контракт для учетных записей и шлюза идентичности
type UserService interface {
	Register(ctx context.Context, input RegisterInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (string, *models.User, error)
	// Authenticate - шлюз идентичности: превращает bearer-токен в пользователя.
	// Любой сбой (токен, отсутствие пользователя, неактивность) - ErrAuth.
	Authenticate(ctx context.Context, token string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, update ProfileUpdate) (*models.User, error)
	ListUsers(ctx context.Context, actor *models.User) ([]*models.User, error)
	DeleteUser(ctx context.Context, actor *models.User, targetID uuid.UUID) error
}

type userService struct {
	repo   UserRepository
	tokens *auth.TokenManager
	cfg    *config.Config
	logger *logrus.Logger
}

func NewUserService(repo UserRepository, tokens *auth.TokenManager, cfg *config.Config, logger *logrus.Logger) UserService {
	return &userService{
		repo:   repo,
		tokens: tokens,
		cfg:    cfg,
		logger: logger,
	}
}

// Register создает пользователя. Роль admin выдается только при совпадении
// секретного кода из конфигурации; пустой код в конфигурации полностью
// отключает саморегистрацию администраторов.
func (s *userService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "user",
		"method":  "Register",
		"email":   input.Email,
	})
	log.Info("Attempting to register a new user")

	if err := auth.ValidatePassword(input.Password); err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}

	role := models.RoleStudent
	if input.AdminCode != "" {
		if s.cfg.AdminSignupCode == "" || input.AdminCode != s.cfg.AdminSignupCode {
			log.Warn("Invalid admin signup code provided")
			return nil, fmt.Errorf("service: %w", ErrAdminCodeInvalid)
		}
		role = models.RoleAdmin
	}

	hashed, err := auth.HashPassword(input.Password)
	if err != nil {
		log.WithError(err).Error("Failed to hash password")
		return nil, fmt.Errorf("service: could not hash password: %w", err)
	}

	user := &models.User{
		Email:          input.Email,
		HashedPassword: hashed,
		Role:           role,
		FullName:       input.FullName,
		Phone:          input.Phone,
		City:           input.City,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		log.WithError(err).Warn("Failed to create user in repository")
		return nil, fmt.Errorf("service: could not register user: %w", err)
	}

	log.WithField("user_id", user.ID).WithField("role", user.Role).Info("User registered successfully")
	return user, nil
}

// Login проверяет учетные данные и выпускает токен доступа
func (s *userService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "user",
		"method":  "Login",
		"email":   email,
	})

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		log.WithError(err).Warn("Login attempt for unknown email")
		return "", nil, fmt.Errorf("service: invalid credentials: %w", models.ErrAuth)
	}

	if err := auth.CheckPassword(password, user.HashedPassword); err != nil {
		log.Warn("Login attempt with wrong password")
		return "", nil, fmt.Errorf("service: invalid credentials: %w", models.ErrAuth)
	}

	if !user.IsActive {
		log.Warn("Login attempt for inactive user")
		return "", nil, fmt.Errorf("service: user is inactive: %w", models.ErrAuth)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		log.WithError(err).Error("Failed to issue token")
		return "", nil, fmt.Errorf("service: could not issue token: %w", err)
	}

	log.WithField("user_id", user.ID).Info("User logged in")
	return token, user, nil
}

// Authenticate разрешает bearer-токен в активного пользователя
func (s *userService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	userID, err := s.tokens.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service: user from token not found: %w", models.ErrAuth)
	}

	if !user.IsActive {
		return nil, fmt.Errorf("service: user is inactive: %w", models.ErrAuth)
	}
	return user, nil
}

// GetByID возвращает пользователя по его UUID
func (s *userService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service: could not get user: %w", err)
	}
	return user, nil
}

// UpdateProfile обновляет профиль текущего пользователя
func (s *userService) UpdateProfile(ctx context.Context, userID uuid.UUID, update ProfileUpdate) (*models.User, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "user",
		"method":  "UpdateProfile",
		"user_id": userID,
	})

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		log.WithError(err).Warn("User not found for profile update")
		return nil, fmt.Errorf("service: %w", err)
	}

	if update.FullName != nil {
		user.FullName = *update.FullName
	}
	if update.Phone != nil {
		user.Phone = *update.Phone
	}
	if update.City != nil {
		user.City = *update.City
	}
	if update.Password != nil {
		if err := auth.ValidatePassword(*update.Password); err != nil {
			return nil, fmt.Errorf("service: %w", err)
		}
		hashed, err := auth.HashPassword(*update.Password)
		if err != nil {
			log.WithError(err).Error("Failed to hash new password")
			return nil, fmt.Errorf("service: could not hash password: %w", err)
		}
		user.HashedPassword = hashed
	}

	if err := s.repo.Update(ctx, user); err != nil {
		log.WithError(err).Error("Failed to update user in repository")
		return nil, fmt.Errorf("service: could not update profile: %w", err)
	}

	log.Info("Profile updated successfully")
	return user, nil
}

// ListUsers возвращает всех пользователей, только для администратора
func (s *userService) ListUsers(ctx context.Context, actor *models.User) ([]*models.User, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "user",
		"method":  "ListUsers",
		"actor":   actor.ID,
	})

	if !actor.Role.IsAdmin() {
		log.Warn("Non-admin attempted to list users")
		return nil, fmt.Errorf("service: listing users requires admin role: %w", models.ErrForbidden)
	}

	users, err := s.repo.List(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to list users from repository")
		return nil, fmt.Errorf("service: could not list users: %w", err)
	}

	log.WithField("count", len(users)).Info("Users listed successfully")
	return users, nil
}

// DeleteUser удаляет пользователя со всеми зависимыми записями.
// Администратор не может удалить себя или другого администратора;
// проверки выполняются до любых мутаций.
func (s *userService) DeleteUser(ctx context.Context, actor *models.User, targetID uuid.UUID) error {
	log := s.logger.WithFields(logrus.Fields{
		"service": "user",
		"method":  "DeleteUser",
		"actor":   actor.ID,
		"target":  targetID,
	})
	log.Info("Attempting to delete user")

	if !actor.Role.IsAdmin() {
		log.Warn("Non-admin attempted to delete a user")
		return fmt.Errorf("service: deleting users requires admin role: %w", models.ErrForbidden)
	}

	if targetID == actor.ID {
		log.Warn("Admin attempted to delete own account")
		return fmt.Errorf("service: cannot delete yourself: %w", models.ErrForbidden)
	}

	target, err := s.repo.GetByID(ctx, targetID)
	if err != nil {
		log.WithError(err).Warn("Target user not found for delete")
		return fmt.Errorf("service: %w", err)
	}

	if target.Role.IsAdmin() {
		log.Warn("Attempted to delete another admin")
		return fmt.Errorf("service: cannot delete admin users: %w", models.ErrForbidden)
	}

	if err := s.repo.DeleteCascade(ctx, targetID); err != nil {
		log.WithError(err).Error("Failed to delete user in repository")
		return fmt.Errorf("service: could not delete user: %w", err)
	}

	log.Info("User deleted successfully")
	return nil
}
