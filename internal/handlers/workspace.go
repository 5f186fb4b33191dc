package handlers

import (
	"encoding/json"
	"net/http"

	"wikihub/internal/models"
	"wikihub/internal/services"
	helpers "wikihub/internal/utils/helpres"
)

type WorkspaceHandler struct {
	svc *services.WorkspaceService
}

func NewWorkspaceHandler(svc *services.WorkspaceService) *WorkspaceHandler {
	return &WorkspaceHandler{svc: svc}
}

// List godoc
// @Summary      Список пространств
// @Tags         workspaces
// @Produce      json
// @Success      200  {array}  models.Workspace
// @Security     BearerAuth
// @Router       /api/workspaces [get]
func (h *WorkspaceHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusOK, list)
}

// Get godoc
// @Summary      Пространство по ID
// @Tags         workspaces
// @Produce      json
// @Param        id  path  int  true  "ID пространства"
// @Success      200  {object}  models.Workspace
// @Security     BearerAuth
// @Router       /api/workspaces/{id} [get]
func (h *WorkspaceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	ws, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusOK, ws)
}

// Create godoc
// @Summary      Создать пространство (только админ)
// @Tags         workspaces
// @Accept       json
// @Produce      json
// @Param        body  body  models.WorkspaceRequest  true  "Пространство"
// @Success      201  {object}  models.Workspace
// @Failure      409  {object}  ConflictResponse
// @Security     BearerAuth
// @Router       /api/admin/workspaces [post]
func (h *WorkspaceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.WorkspaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, models.NewValidationError("", "invalid json"))
		return
	}
	ws, err := h.svc.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusCreated, ws)
}

// Update godoc
// @Summary      Изменить пространство (только админ)
// @Tags         workspaces
// @Accept       json
// @Produce      json
// @Param        id    path  int                      true  "ID пространства"
// @Param        body  body  models.WorkspaceRequest  true  "Пространство"
// @Success      200  {object}  models.Workspace
// @Security     BearerAuth
// @Router       /api/admin/workspaces/{id} [put]
func (h *WorkspaceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req models.WorkspaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, models.NewValidationError("", "invalid json"))
		return
	}
	ws, err := h.svc.Update(r.Context(), id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusOK, ws)
}

// Delete godoc
// @Summary      Удалить пространство (только админ)
// @Description  Отказ 409, пока на пространство ссылаются статьи или их версии.
// @Tags         workspaces
// @Param        id  path  int  true  "ID пространства"
// @Success      204
// @Failure      409  {object}  ConflictResponse
// @Security     BearerAuth
// @Router       /api/admin/workspaces/{id} [delete]
func (h *WorkspaceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
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
