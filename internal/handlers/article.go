package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"wikihub/internal/logger"
	"wikihub/internal/models"
	"wikihub/internal/services"
	helpers "wikihub/internal/utils/helpres"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type ArticleHandler struct {
	svc     *services.LineageService
	uploads *Uploads
}

func NewArticleHandler(svc *services.LineageService, uploads *Uploads) *ArticleHandler {
	return &ArticleHandler{svc: svc, uploads: uploads}
}

// List godoc
// @Summary      Список статей
// @Description  Последние версии статей, новые сверху. Поиск по заголовку и тексту.
// @Tags         articles
// @Produce      json
// @Param        page         query  int     false  "Страница (с 1)"
// @Param        limit        query  int     false  "Размер страницы (до 50)"
// @Param        workspaceId  query  int     false  "Фильтр по пространству"
// @Param        q            query  string  false  "Поиск"
// @Success      200  {object}  models.ArticlePage
// @Security     BearerAuth
// @Router       /api/articles [get]
func (h *ArticleHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := models.ArticleListParams{Query: q.Get("q")}
	p.Page, _ = strconv.Atoi(q.Get("page"))
	p.Limit, _ = strconv.Atoi(q.Get("limit"))
	if ws := q.Get("workspaceId"); ws != "" {
		id, err := strconv.ParseInt(ws, 10, 64)
		if err != nil || id <= 0 {
			writeError(w, r, models.NewValidationError("workspaceId", "некорректный идентификатор"))
			return
		}
		p.WorkspaceID = id
	}

	page, err := h.svc.List(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusOK, page)
}

// Get godoc
// @Summary      Просмотр статьи
// @Description  Последняя версия или версия N (?version=N). Старые версии только для чтения.
// @Tags         articles
// @Produce      json
// @Param        id       path   int     true   "ID статьи"
// @Param        version  query  string  false  "Номер версии или latest"
// @Success      200  {object}  models.ArticleView
// @Failure      404  {object}  helpers.ErrorResponse
// @Security     BearerAuth
// @Router       /api/articles/{id} [get]
func (h *ArticleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	sel, err := parseSelector(r.URL.Query().Get("version"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.view(w, r, id, sel)
}

// GetVersion godoc
// @Summary      Просмотр конкретной версии статьи
// @Tags         articles
// @Produce      json
// @Param        id       path  int  true  "ID статьи"
// @Param        version  path  int  true  "Номер версии"
// @Success      200  {object}  models.ArticleView
// @Failure      404  {object}  helpers.ErrorResponse
// @Security     BearerAuth
// @Router       /api/articles/{id}/versions/{version} [get]
func (h *ArticleHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	sel, err := parseSelector(mux.Vars(r)["version"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.view(w, r, id, sel)
}

func (h *ArticleHandler) view(w http.ResponseWriter, r *http.Request, id int64, sel models.VersionSelector) {
	view, err := h.svc.Get(r.Context(), id, sel)
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusOK, view)
}

// Versions godoc
// @Summary      История версий
// @Tags         articles
// @Produce      json
// @Param        id  path  int  true  "ID статьи"
// @Success      200  {object}  models.VersionList
// @Security     BearerAuth
// @Router       /api/articles/{id}/versions [get]
func (h *ArticleHandler) Versions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, err := h.svc.ListVersions(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusOK, list)
}

// Create godoc
// @Summary      Создать статью
// @Description  multipart/form-data: title, content, workspaceId, files[]. Также принимает JSON без файлов.
// @Tags         articles
// @Accept       multipart/form-data
// @Produce      json
// @Param        title        formData  string  true   "Заголовок"
// @Param        content      formData  string  true   "Контент (HTML)"
// @Param        workspaceId  formData  int     true   "Пространство"
// @Param        files        formData  file    false  "Вложения (до 10)"
// @Success      201  {object}  models.ArticleView
// @Success      207  {object}  PartialResponse
// @Failure      400  {object}  helpers.ErrorResponse
// @Failure      413  {object}  helpers.ErrorResponse
// @Failure      415  {object}  helpers.ErrorResponse
// @Security     BearerAuth
// @Router       /api/articles [post]
func (h *ArticleHandler) Create(w http.ResponseWriter, r *http.Request) {
	who, err := identity(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var (
		req   models.CreateArticleRequest
		files []models.StagedUpload
	)
	if isMultipart(r) {
		form, cleanup, err := h.uploads.parse(w, r)
		defer cleanup()
		if err != nil {
			writeError(w, r, err)
			return
		}
		req.Title, _ = form.value("title")
		req.Content, _ = form.value("content")
		if v, ok := form.value("workspaceId"); ok {
			if req.WorkspaceID, err = parseID("workspaceId", v); err != nil {
				writeError(w, r, err)
				return
			}
		}
		files = form.files
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WithCtx(r.Context()).Warn("ошибка декодирования JSON при создании статьи", zap.Error(err))
		writeError(w, r, models.NewValidationError("", "invalid json"))
		return
	}

	view, err := h.svc.Create(r.Context(), who, req, files)
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusCreated, view)
}

// Update godoc
// @Summary      Правка статьи
// @Description  Создаёт новую версию. deleted: JSON-массив serverFilename, которые не переносятся.
// @Description  baseVersion: версия, на основе которой сделана правка; при расхождении 409.
// @Tags         articles
// @Accept       multipart/form-data
// @Produce      json
// @Param        id           path      int     true   "ID статьи"
// @Param        title        formData  string  false  "Заголовок"
// @Param        content      formData  string  false  "Контент (HTML)"
// @Param        workspaceId  formData  int     false  "Пространство"
// @Param        deleted      formData  string  false  "JSON-массив имён файлов"
// @Param        baseVersion  formData  int     false  "Базовая версия"
// @Param        files        formData  file    false  "Новые вложения"
// @Success      200  {object}  models.ArticleView
// @Success      207  {object}  PartialResponse
// @Failure      409  {object}  ConflictResponse
// @Security     BearerAuth
// @Router       /api/articles/{id} [put]
func (h *ArticleHandler) Update(w http.ResponseWriter, r *http.Request) {
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

	var (
		req   models.UpdateArticleRequest
		files []models.StagedUpload
	)
	if isMultipart(r) {
		form, cleanup, err := h.uploads.parse(w, r)
		defer cleanup()
		if err != nil {
			writeError(w, r, err)
			return
		}
		if req, err = updateFromForm(form); err != nil {
			writeError(w, r, err)
			return
		}
		files = form.files
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WithCtx(r.Context()).Warn("ошибка декодирования JSON при обновлении статьи", zap.Error(err))
		writeError(w, r, models.NewValidationError("", "invalid json"))
		return
	}

	view, err := h.svc.Update(r.Context(), who, id, req, files)
	if err != nil {
		writeError(w, r, err)
		return
	}
	helpers.JSON(w, http.StatusOK, view)
}

// Delete godoc
// @Summary      Удалить статью
// @Description  Удаляет статью со всеми версиями, вложениями, комментариями и файлами.
// @Tags         articles
// @Param        id  path  int  true  "ID статьи"
// @Success      204
// @Failure      403  {object}  helpers.ErrorResponse
// @Failure      404  {object}  helpers.ErrorResponse
// @Security     BearerAuth
// @Router       /api/articles/{id} [delete]
func (h *ArticleHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
	if err := h.svc.Delete(r.Context(), who, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func updateFromForm(form *articleForm) (models.UpdateArticleRequest, error) {
	var req models.UpdateArticleRequest
	if v, ok := form.value("title"); ok {
		req.Title = &v
	}
	if v, ok := form.value("content"); ok {
		req.Content = &v
	}
	if v, ok := form.value("workspaceId"); ok && strings.TrimSpace(v) != "" {
		id, err := parseID("workspaceId", v)
		if err != nil {
			return req, err
		}
		req.WorkspaceID = &id
	}
	req.Deleted, _ = form.value("deleted")
	if v, ok := form.value("baseVersion"); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n < 1 {
			return req, models.NewValidationError("baseVersion", "некорректный номер версии")
		}
		req.BaseVersion = &n
	}
	return req, nil
}

func parseSelector(raw string) (models.VersionSelector, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "latest") {
		return models.LatestVersion(), nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return models.VersionSelector{}, models.NewValidationError("version", "ожидается номер версии или latest")
	}
	return models.VersionNumber(n), nil
}

func parseID(field, raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, models.NewValidationError(field, "некорректный идентификатор")
	}
	return id, nil
}
