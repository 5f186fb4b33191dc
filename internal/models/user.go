package models

import "time"

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=admin user"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Identity: уже аутентифицированный пользователь запроса.
type Identity struct {
	ID   int64
	Role string
}

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// CanModify: админ или создатель статьи.
func (i Identity) CanModify(a *Article) bool {
	if i.IsAdmin() {
		return true
	}
	return a.CreatorID != nil && *a.CreatorID == i.ID
}
