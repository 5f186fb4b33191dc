package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"wikihub/internal/logger"
	"wikihub/internal/middleware"
	"wikihub/internal/models"
	"wikihub/internal/services"
	helpers "wikihub/internal/utils/helpres"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// PartialResponse: версия сохранена, но ответ собрать не удалось.
type PartialResponse struct {
	Partial   bool   `json:"partial"`
	ArticleID int64  `json:"articleId"`
	Version   int    `json:"version"`
	Error     string `json:"error"`
}

type ConflictResponse struct {
	Error          string `json:"error"`
	ArticleID      int64  `json:"articleId,omitempty"`
	ExpectedBase   int    `json:"expectedVersion,omitempty"`
	CurrentVersion int    `json:"currentVersion,omitempty"`
}

// writeError переводит доменные ошибки в HTTP-ответ.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.WithCtx(r.Context())

	var (
		quota     *models.QuotaError
		media     *models.UnsupportedMediaTypeError
		invalid   *models.ValidationError
		conflict  *models.ConflictError
		forbidden *models.ForbiddenError
		partial   *models.PartialEditError
		tooLarge  *http.MaxBytesError
	)
	switch {
	case errors.As(err, &partial):
		log.Error("Правка сохранена частично", zap.Int64("article_id", partial.ArticleID), zap.Int("version", partial.Version), zap.Error(err))
		helpers.JSON(w, http.StatusMultiStatus, PartialResponse{
			Partial:   true,
			ArticleID: partial.ArticleID,
			Version:   partial.Version,
			Error:     partial.Err.Error(),
		})
	case errors.As(err, &tooLarge):
		helpers.Error(w, http.StatusRequestEntityTooLarge, "превышен допустимый размер запроса")
	case errors.As(err, &quota):
		helpers.FieldError(w, http.StatusRequestEntityTooLarge, "files", err.Error())
	case errors.As(err, &media):
		helpers.FieldError(w, http.StatusUnsupportedMediaType, "files", err.Error())
	case errors.As(err, &invalid):
		helpers.FieldError(w, http.StatusBadRequest, invalid.Field, invalid.Message)
	case errors.Is(err, models.ErrValidation):
		helpers.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrNotFound):
		helpers.Error(w, http.StatusNotFound, err.Error())
	case errors.As(err, &conflict):
		helpers.JSON(w, http.StatusConflict, ConflictResponse{
			Error:          err.Error(),
			ArticleID:      conflict.ArticleID,
			ExpectedBase:   conflict.Expected,
			CurrentVersion: conflict.Current,
		})
	case errors.As(err, &forbidden):
		helpers.Error(w, http.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		helpers.Error(w, http.StatusUnauthorized, err.Error())
	default:
		log.Error("Внутренняя ошибка", zap.String("path", r.URL.Path), zap.Error(err))
		helpers.Error(w, http.StatusInternalServerError, "внутренняя ошибка сервера")
	}
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, models.NewValidationError(name, "некорректный идентификатор")
	}
	return id, nil
}

func identity(r *http.Request) (models.Identity, error) {
	who, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		return models.Identity{}, &models.ForbiddenError{Reason: "требуется авторизация"}
	}
	return who, nil
}
