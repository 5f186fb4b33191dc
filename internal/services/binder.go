package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"wikihub/internal/logger"
	"wikihub/internal/metrics"
	"wikihub/internal/models"
	"wikihub/internal/repository"
	"wikihub/internal/storage"

	"go.uber.org/zap"
)

type UploadPolicy struct {
	MaxAttachments int
	AllowedMIME    []string
}

func DefaultUploadPolicy() UploadPolicy {
	return UploadPolicy{
		MaxAttachments: 10,
		AllowedMIME:    []string{"image/jpeg", "image/png", "image/gif", "application/pdf"},
	}
}

// AttachmentBinder привязывает файлы к версиям и переносит их между версиями.
type AttachmentBinder struct {
	blobs   *storage.BlobStore
	policy  UploadPolicy
	allowed map[string]struct{}
	now     func() time.Time
}

func NewAttachmentBinder(blobs *storage.BlobStore, policy UploadPolicy) *AttachmentBinder {
	allowed := make(map[string]struct{}, len(policy.AllowedMIME))
	for _, m := range policy.AllowedMIME {
		allowed[strings.ToLower(strings.TrimSpace(m))] = struct{}{}
	}
	if policy.MaxAttachments <= 0 {
		policy.MaxAttachments = DefaultUploadPolicy().MaxAttachments
	}
	return &AttachmentBinder{blobs: blobs, policy: policy, allowed: allowed, now: time.Now}
}

func (b *AttachmentBinder) MaxAttachments() int { return b.policy.MaxAttachments }

// ParseDeletionList разбирает поле deleted: JSON-массив строк или пусто.
func (b *AttachmentBinder) ParseDeletionList(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		return nil, models.NewValidationError("deleted", "ожидается JSON-массив строк")
	}
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			return nil, models.NewValidationError("deleted", "пустое имя файла")
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out, nil
}

// CheckUploads проверяет MIME-типы до того, как что-либо попадёт в каталог статьи.
func (b *AttachmentBinder) CheckUploads(files []models.StagedUpload) error {
	for _, f := range files {
		mt := normalizeMIME(f.MimeType)
		if _, ok := b.allowed[mt]; !ok {
			return &models.UnsupportedMediaTypeError{FileName: f.OriginalName, MimeType: f.MimeType}
		}
	}
	return nil
}

func (b *AttachmentBinder) CheckQuota(kept, added int) error {
	if total := kept + added; total > b.policy.MaxAttachments {
		return &models.QuotaError{Limit: b.policy.MaxAttachments, Got: total}
	}
	return nil
}

// Place перемещает загруженные файлы в каталог статьи. При ошибке уже
// перемещённые файлы удаляются. Строки в БД здесь не создаются.
func (b *AttachmentBinder) Place(ctx context.Context, articleID int64, files []models.StagedUpload) ([]models.PlacedFile, error) {
	placed := make([]models.PlacedFile, 0, len(files))
	for _, f := range files {
		name, err := b.blobs.Commit(articleID, f.TempPath, f.OriginalName)
		if err != nil {
			b.Discard(ctx, articleID, placed)
			return nil, err
		}
		placed = append(placed, models.PlacedFile{
			ServerFilename:   name,
			OriginalFilename: f.OriginalName,
			MimeType:         normalizeMIME(f.MimeType),
		})
	}
	return placed, nil
}

// Discard удаляет файлы, на которые так и не появились строки.
func (b *AttachmentBinder) Discard(ctx context.Context, articleID int64, placed []models.PlacedFile) {
	for _, p := range placed {
		if err := b.blobs.Remove(articleID, p.ServerFilename); err != nil {
			metrics.BlobCleanupFailures.Inc()
			logger.WithCtx(ctx).Error("Не удалось удалить непривязанный файл",
				zap.Int64("article_id", articleID), zap.String("file", p.ServerFilename), zap.Error(err))
			continue
		}
		metrics.BlobFilesRemoved.WithLabelValues("discarded").Inc()
	}
}

func (b *AttachmentBinder) BindOnCreate(ctx context.Context, r repository.Repos, articleID, versionID int64, placed []models.PlacedFile) ([]models.Attachment, error) {
	return b.insert(ctx, r, articleID, versionID, placed, "create")
}

func (b *AttachmentBinder) BindAdditional(ctx context.Context, r repository.Repos, articleID, versionID int64, placed []models.PlacedFile) ([]models.Attachment, error) {
	return b.insert(ctx, r, articleID, versionID, placed, "additional")
}

func (b *AttachmentBinder) insert(ctx context.Context, r repository.Repos, articleID, versionID int64, placed []models.PlacedFile, kind string) ([]models.Attachment, error) {
	now := b.now()
	out := make([]models.Attachment, 0, len(placed))
	for _, p := range placed {
		a := models.Attachment{
			ArticleID:        articleID,
			ArticleVersionID: versionID,
			ServerFilename:   p.ServerFilename,
			OriginalFilename: p.OriginalFilename,
			MimeType:         p.MimeType,
			UploadedAt:       now,
		}
		if err := r.Attachments.Insert(ctx, &a); err != nil {
			return nil, fmt.Errorf("привязка %s к версии %d: %w", p.ServerFilename, versionID, err)
		}
		metrics.AttachmentsBound.WithLabelValues(kind).Inc()
		out = append(out, a)
	}
	return out, nil
}

// CarryForward создаёт для newVersionID новые строки на те же файлы, что
// были у prevVersionID, кроме перечисленных в deletions. Файлы не копируются.
// Возвращает перенесённые строки и имена, которые действительно были сняты.
func (b *AttachmentBinder) CarryForward(ctx context.Context, r repository.Repos, prevVersionID, newVersionID int64, deletions []string) ([]models.Attachment, []string, error) {
	prev, err := r.Attachments.ListByVersion(ctx, prevVersionID)
	if err != nil {
		return nil, nil, fmt.Errorf("вложения версии %d: %w", prevVersionID, err)
	}

	drop := make(map[string]struct{}, len(deletions))
	for _, d := range deletions {
		drop[d] = struct{}{}
	}

	carried := make([]models.Attachment, 0, len(prev))
	var removed []string
	for _, p := range prev {
		if _, ok := drop[p.ServerFilename]; ok {
			removed = append(removed, p.ServerFilename)
			continue
		}
		a := models.Attachment{
			ArticleID:        p.ArticleID,
			ArticleVersionID: newVersionID,
			ServerFilename:   p.ServerFilename,
			OriginalFilename: p.OriginalFilename,
			MimeType:         p.MimeType,
			UploadedAt:       p.UploadedAt,
		}
		if err := r.Attachments.Insert(ctx, &a); err != nil {
			return nil, nil, fmt.Errorf("перенос %s в версию %d: %w", p.ServerFilename, newVersionID, err)
		}
		metrics.AttachmentsBound.WithLabelValues("carried").Inc()
		carried = append(carried, a)
	}
	if len(removed) < len(drop) {
		logger.WithCtx(ctx).Debug("Часть имён из deleted не найдена в предыдущей версии",
			zap.Int64("version_id", prevVersionID),
			zap.Int("requested", len(drop)),
			zap.Int("removed", len(removed)),
		)
	}
	return carried, removed, nil
}

// ReleaseUnreferenced удаляет с диска файлы, на которые не осталось ни одной
// строки. Ссылки считаются до удаления; ошибки только логируются.
func (b *AttachmentBinder) ReleaseUnreferenced(ctx context.Context, r repository.Repos, articleID int64, names []string) []string {
	var released []string
	for _, n := range names {
		refs, err := r.Attachments.CountReferences(ctx, articleID, n)
		if err != nil {
			logger.WithCtx(ctx).Error("Не удалось посчитать ссылки на файл",
				zap.Int64("article_id", articleID), zap.String("file", n), zap.Error(err))
			continue
		}
		if refs > 0 || !b.blobs.Exists(articleID, n) {
			continue
		}
		if err := b.blobs.Remove(articleID, n); err != nil {
			metrics.BlobCleanupFailures.Inc()
			logger.WithCtx(ctx).Error("Не удалось удалить файл без ссылок",
				zap.Int64("article_id", articleID), zap.String("file", n), zap.Error(err))
			continue
		}
		metrics.BlobFilesRemoved.WithLabelValues("unreferenced").Inc()
		released = append(released, n)
	}
	return released
}

func normalizeMIME(m string) string {
	m = strings.ToLower(strings.TrimSpace(m))
	if i := strings.IndexByte(m, ';'); i >= 0 {
		m = strings.TrimSpace(m[:i])
	}
	return m
}
