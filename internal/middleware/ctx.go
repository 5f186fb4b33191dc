package middleware

import (
	"context"

	"wikihub/internal/models"
	"wikihub/internal/reqctx"
)

// IdentityFromContext возвращает пользователя, положенного JWTAuth.
func IdentityFromContext(ctx context.Context) (models.Identity, bool) {
	id, ok := reqctx.GetUserID(ctx)
	if !ok {
		return models.Identity{}, false
	}
	role, _ := reqctx.GetRole(ctx)
	return models.Identity{ID: id, Role: role}, true
}
