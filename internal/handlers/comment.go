package handlers

import (
	"encoding/json"
	"net/http"

	"wikihub/internal/models"
	"wikihub/internal/services"
	helpers "wikihub/internal/utils/helpres"
)

type CommentHandler struct {
	svc *services.CommentService
}

func NewCommentHandler(svc *services.CommentService) *CommentHandler {
	return &CommentHandler{svc: svc}
}

// List godoc
// @Summary      Комментарии статьи
// @Tags         comments
// @Produce      json
// @Param        id  path  int  true  "ID статьи"
// @Success      200  {array}  models.Comment
// @Security     BearerAuth
// @Router       /api/articles/{id}/comments [get]
func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, err := h.svc.List(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusOK, list)
}

// Create godoc
// @Summary      Добавить комментарий
// @Tags         comments
// @Accept       json
// @Produce      json
// @Param        id    path  int                          true  "ID статьи"
// @Param        body  body  models.CreateCommentRequest  true  "Комментарий"
// @Success      201  {object}  models.Comment
// @Security     BearerAuth
// @Router       /api/articles/{id}/comments [post]
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req models.CreateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, models.NewValidationError("", "invalid json"))
		return
	}
	c, err := h.svc.Create(r.Context(), id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusCreated, c)
}

// Update godoc
// @Summary      Изменить комментарий
// @Tags         comments
// @Accept       json
// @Produce      json
// @Param        commentId  path  int                          true  "ID комментария"
// @Param        body       body  models.UpdateCommentRequest  true  "Изменения"
// @Success      200  {object}  models.Comment
// @Security     BearerAuth
// @Router       /api/comments/{commentId} [put]
func (h *CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "commentId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req models.UpdateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, models.NewValidationError("", "invalid json"))
		return
	}
	c, err := h.svc.Update(r.Context(), id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusOK, c)
}

// Delete godoc
// @Summary      Удалить комментарий
// @Tags         comments
// @Param        commentId  path  int  true  "ID комментария"
// @Success      204
// @Security     BearerAuth
// @Router       /api/comments/{commentId} [delete]
func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "commentId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
