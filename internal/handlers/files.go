package handlers

import (
	"net/http"
	"time"

	"wikihub/internal/storage"
	helpers "wikihub/internal/utils/helpres"

	"github.com/gorilla/mux"
)

type FileHandler struct {
	blobs *storage.BlobStore
}

func NewFileHandler(blobs *storage.BlobStore) *FileHandler {
	return &FileHandler{blobs: blobs}
}

// Download godoc
// @Summary      Скачать вложение
// @Tags         files
// @Param        articleId  path  int     true  "ID статьи"
// @Param        fileName   path  string  true  "serverFilename"
// @Success      200
// @Failure      404  {object}  helpers.ErrorResponse
// @Router       /uploads/{articleId}/{fileName} [get]
func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "articleId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	name := mux.Vars(r)["fileName"]
	f, err := h.blobs.Open(id, name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeContent(w, r, name, st.ModTime(), f)
}

type HealthResponse struct {
	OK   bool   `json:"ok"`
	Time string `json:"time"`
}

// Health godoc
// @Summary      Проверка доступности
// @Tags         system
// @Produce      json
// @Success      200  {object}  HealthResponse
// @Router       /api/health [get]
func Health(w http.ResponseWriter, r *http.Request) {
	helpers.JSON(w, http.StatusOK, HealthResponse{OK: true, Time: time.Now().UTC().Format(time.RFC3339)})
}
