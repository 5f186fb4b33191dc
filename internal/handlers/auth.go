package handlers

import (
	"encoding/json"
	"net/http"

	"wikihub/internal/logger"
	"wikihub/internal/models"
	"wikihub/internal/services"
	helpers "wikihub/internal/utils/helpres"

	"go.uber.org/zap"
)

type AuthHandler struct {
	svc *services.AuthService
}

func NewAuthHandler(svc *services.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Register godoc
// @Summary      Регистрация
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  models.RegisterRequest  true  "Email и пароль"
// @Success      201  {object}  models.AuthResponse
// @Failure      409  {object}  ConflictResponse
// @Router       /api/auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Log.Warn("Некорректный JSON при регистрации", zap.Error(err))
		writeError(w, r, models.NewValidationError("", "invalid json"))
		return
	}
	resp, err := h.svc.Register(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusCreated, resp)
}

// Login godoc
// @Summary      Вход
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  models.LoginRequest  true  "Email и пароль"
// @Success      200  {object}  models.AuthResponse
// @Failure      401  {object}  helpers.ErrorResponse
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Log.Warn("Некорректный JSON при входе", zap.Error(err))
		writeError(w, r, models.NewValidationError("", "invalid json"))
		return
	}
	resp, err := h.svc.Login(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusOK, resp)
}

// GetUsers godoc
// @Summary      Список пользователей (только админ)
// @Tags         admin
// @Produce      json
// @Success      200  {array}  models.User
// @Security     BearerAuth
// @Router       /api/admin/users [get]
func (h *AuthHandler) GetUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusOK, users)
}

// UpdateRole godoc
// @Summary      Сменить роль пользователя (только админ)
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        id    path  int                       true  "ID пользователя"
// @Param        body  body  models.UpdateRoleRequest  true  "Роль"
// @Success      200  {object}  models.User
// @Failure      403  {object}  helpers.ErrorResponse
// @Security     BearerAuth
// @Router       /api/admin/users/{id}/role [put]
// @Router       /api/admin/users/{id}/role [patch]
func (h *AuthHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	who, err := identity(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req models.UpdateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, models.NewValidationError("", "invalid json"))
		return
	}
	user, err := h.svc.UpdateRole(r.Context(), who, id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusOK, user)
}
