package handlers

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"wikihub/internal/logger"
	"wikihub/internal/models"
	"wikihub/internal/storage"

	"go.uber.org/zap"
)

const filesField = "files"

// Uploads принимает multipart-запросы и складывает файлы во временную зону.
type Uploads struct {
	blobs    *storage.BlobStore
	maxFiles int
	maxBytes int64
}

func NewUploads(blobs *storage.BlobStore, maxFiles, maxUploadMB int) *Uploads {
	return &Uploads{blobs: blobs, maxFiles: maxFiles, maxBytes: int64(maxUploadMB) << 20}
}

// articleForm: поля формы статьи. Отсутствующее поле отличается от пустого.
type articleForm struct {
	values map[string][]string
	files  []models.StagedUpload
}

func (f *articleForm) value(key string) (string, bool) {
	v, ok := f.values[key]
	if !ok || len(v) == 0 {
		return "", false
	}
	return v[0], true
}

func isMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "multipart/form-data"
}

// parse разбирает форму и переносит файлы в staging. Вызывающий обязан
// вызвать cleanup после операции: файлы, которые так и не были перенесены
// в каталог статьи, удаляются.
func (u *Uploads) parse(w http.ResponseWriter, r *http.Request) (*articleForm, func(), error) {
	r.Body = http.MaxBytesReader(w, r.Body, u.maxBytes)
	if err := r.ParseMultipartForm(u.maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, func() {}, err
		}
		return nil, func() {}, models.NewValidationError("", "ошибка разбора формы")
	}

	form := &articleForm{values: r.MultipartForm.Value}
	cleanup := func() {
		for _, f := range form.files {
			if err := u.blobs.RemoveStaged(f.TempPath); err != nil {
				logger.WithCtx(r.Context()).Warn("Не удалось удалить временный файл", zap.String("path", f.TempPath), zap.Error(err))
			}
		}
		_ = r.MultipartForm.RemoveAll()
	}

	headers := r.MultipartForm.File[filesField]
	if len(headers) > u.maxFiles {
		return nil, cleanup, &models.QuotaError{Limit: u.maxFiles, Got: len(headers)}
	}
	for _, fh := range headers {
		staged, err := u.stage(fh)
		if err != nil {
			return nil, cleanup, err
		}
		form.files = append(form.files, staged)
	}
	return form, cleanup, nil
}

func (u *Uploads) stage(fh *multipart.FileHeader) (models.StagedUpload, error) {
	src, err := fh.Open()
	if err != nil {
		return models.StagedUpload{}, &models.StorageError{Op: "open", Path: fh.Filename, Err: err}
	}
	defer src.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(src, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return models.StagedUpload{}, &models.StorageError{Op: "read", Path: fh.Filename, Err: err}
	}
	head = head[:n]

	mimeType := fh.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(head)
	}

	tmp, err := u.blobs.Stage(io.MultiReader(bytes.NewReader(head), src))
	if err != nil {
		return models.StagedUpload{}, err
	}
	return models.StagedUpload{
		TempPath:     tmp,
		OriginalName: filepath.Base(strings.ReplaceAll(fh.Filename, `\`, "/")),
		MimeType:     mimeType,
	}, nil
}
