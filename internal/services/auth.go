package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"wikihub/internal/logger"
	"wikihub/internal/models"
	"wikihub/internal/repository"
	"wikihub/internal/utils"

	"go.uber.org/zap"
)

var ErrInvalidCredentials = errors.New("неверный email или пароль")

type AuthService struct {
	repo      repository.UserRepo
	jwtSecret string
	tokenTTL  time.Duration
}

func NewAuthService(repo repository.UserRepo, jwtSecret string, tokenTTL time.Duration) *AuthService {
	return &AuthService{repo: repo, jwtSecret: jwtSecret, tokenTTL: tokenTTL}
}

func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	logger.Log.Info("Регистрация пользователя (service)", zap.String("email", req.Email))
	if err := checkStruct(req); err != nil {
		return nil, err
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		logger.Log.Error("Ошибка хеширования пароля", zap.Error(err))
		return nil, err
	}

	user := &models.User{Email: req.Email, PasswordHash: hashed, Role: models.RoleUser}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, &models.ConflictError{Message: err.Error()}
		}
		logger.Log.Error("Ошибка создания пользователя", zap.Error(err))
		return nil, err
	}
	logger.Log.Info("Пользователь зарегистрирован (service)", zap.Int64("user_id", user.ID))
	return s.issue(user)
}

func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	logger.Log.Info("Попытка входа (service)", zap.String("email", req.Email))
	if err := checkStruct(req); err != nil {
		return nil, err
	}

	user, err := s.repo.GetUserByEmail(ctx, req.Email)
	if errors.Is(err, models.ErrNotFound) {
		logger.Log.Warn("Пользователь не найден (service)", zap.String("email", req.Email))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !utils.CheckPasswordHash(req.Password, user.PasswordHash) {
		logger.Log.Warn("Неверный пароль (service)", zap.Int64("user_id", user.ID))
		return nil, ErrInvalidCredentials
	}

	logger.Log.Info("Вход выполнен (service)", zap.Int64("user_id", user.ID))
	return s.issue(user)
}

func (s *AuthService) issue(user *models.User) (*models.AuthResponse, error) {
	token, err := utils.GenerateToken(s.jwtSecret, user.ID, user.Role, s.tokenTTL)
	if err != nil {
		logger.Log.Error("Ошибка генерации access-токена", zap.Error(err))
		return nil, err
	}
	return &models.AuthResponse{Token: token, User: *user}, nil
}

func (s *AuthService) ListUsers(ctx context.Context) ([]*models.User, error) {
	users, err := s.repo.GetAllUsers(ctx)
	if users == nil && err == nil {
		users = []*models.User{}
	}
	return users, err
}

// UpdateRole меняет роль пользователя. Свою роль менять нельзя.
func (s *AuthService) UpdateRole(ctx context.Context, who models.Identity, userID int64, req models.UpdateRoleRequest) (*models.User, error) {
	logger.Log.Info("Смена роли (service)", zap.Int64("actor", who.ID), zap.Int64("user_id", userID), zap.String("role", req.Role))
	if !who.IsAdmin() {
		return nil, &models.ForbiddenError{Reason: "менять роли может только администратор"}
	}
	if who.ID == userID {
		return nil, &models.ForbiddenError{Reason: "нельзя изменить собственную роль"}
	}
	if err := checkStruct(req); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateRole(ctx, userID, req.Role); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, &models.NotFoundError{Entity: "пользователь", ID: userID}
		}
		return nil, err
	}
	user, err := s.repo.GetUserByID(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, &models.NotFoundError{Entity: "пользователь", ID: userID}
	}
	return user, err
}
