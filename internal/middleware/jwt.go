package middleware

import (
	"net/http"
	"strings"

	"wikihub/internal/logger"
	"wikihub/internal/reqctx"
	"wikihub/internal/utils"

	"go.uber.org/zap"
)

func JWTAuth(secret string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			logger.WithCtx(r.Context()).Warn("JWTAuth: отсутствует access token")
			http.Error(w, "Отсутствует access token", http.StatusUnauthorized)
			return
		}

		userID, role, err := utils.ParseToken(secret, strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			logger.WithCtx(r.Context()).Warn("JWTAuth: неверный или просроченный токен", zap.Error(err))
			http.Error(w, "Неверный или просроченный токен", http.StatusUnauthorized)
			return
		}

		ctx := reqctx.WithUserID(r.Context(), userID)
		ctx = reqctx.WithRole(ctx, role)

		logger.WithCtx(ctx).Debug("JWTAuth: токен валиден", zap.String("role", role))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
