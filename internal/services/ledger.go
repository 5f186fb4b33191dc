package services

import (
	"context"
	"errors"
	"fmt"

	"wikihub/internal/logger"
	"wikihub/internal/metrics"
	"wikihub/internal/models"
	"wikihub/internal/repository"

	"go.uber.org/zap"
)

// VersionLedger ведёт журнал версий и указатель текущей версии статьи.
// Все методы получают репозитории явно, чтобы работать внутри транзакции.
type VersionLedger struct{}

func NewVersionLedger() *VersionLedger { return &VersionLedger{} }

func (l *VersionLedger) CreateInitial(ctx context.Context, r repository.Repos, articleID int64, title, content string, workspaceID int64) (*models.ArticleVersion, error) {
	v := &models.ArticleVersion{
		ArticleID:   articleID,
		Version:     1,
		Title:       title,
		Content:     content,
		WorkspaceID: workspaceID,
	}
	if err := r.Versions.Insert(ctx, v); err != nil {
		if errors.Is(err, models.ErrVersionTaken) {
			metrics.VersionConflicts.Inc()
			return nil, &models.ConflictError{ArticleID: articleID, Expected: 0, Current: 1}
		}
		return nil, fmt.Errorf("создание версии 1: %w", err)
	}
	metrics.VersionsCreated.WithLabelValues("create").Inc()
	return v, nil
}

// CreateNext вставляет версию read.CurrentVersion+1 и сдвигает указатель.
// read: снимок статьи, на основании которого вызывающий строит правку.
func (l *VersionLedger) CreateNext(ctx context.Context, r repository.Repos, read *models.Article, title, content string, workspaceID int64) (*models.ArticleVersion, error) {
	next := read.CurrentVersion + 1
	v := &models.ArticleVersion{
		ArticleID:   read.ID,
		Version:     next,
		Title:       title,
		Content:     content,
		WorkspaceID: workspaceID,
	}

	if err := r.Versions.Insert(ctx, v); err != nil {
		if errors.Is(err, models.ErrVersionTaken) {
			metrics.VersionConflicts.Inc()
			return nil, &models.ConflictError{ArticleID: read.ID, Expected: read.CurrentVersion, Current: next}
		}
		return nil, fmt.Errorf("создание версии %d: %w", next, err)
	}

	ok, err := r.Articles.AdvanceVersion(ctx, read.ID, read.CurrentVersion, next, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("сдвиг текущей версии: %w", err)
	}
	if !ok {
		metrics.VersionConflicts.Inc()
		current := next
		if a, gerr := r.Articles.GetByID(ctx, read.ID); gerr == nil {
			current = a.CurrentVersion
		}
		return nil, &models.ConflictError{ArticleID: read.ID, Expected: read.CurrentVersion, Current: current}
	}

	metrics.VersionsCreated.WithLabelValues("update").Inc()
	return v, nil
}

func (l *VersionLedger) Get(ctx context.Context, r repository.Repos, articleID int64, version int) (*models.ArticleVersion, error) {
	if version < 1 {
		return nil, models.NewValidationError("version", "номер версии должен быть положительным")
	}
	v, err := r.Versions.Get(ctx, articleID, version)
	if errors.Is(err, models.ErrNotFound) {
		return nil, &models.NotFoundError{Entity: "версия", ID: fmt.Sprintf("%d/%d", articleID, version)}
	}
	return v, err
}

// List: версии от новой к старой.
func (l *VersionLedger) List(ctx context.Context, r repository.Repos, articleID int64) ([]models.VersionSummary, error) {
	return r.Versions.List(ctx, articleID)
}

// Repair пересчитывает указатель текущей версии по журналу.
// Указатель никогда не уменьшается.
func (l *VersionLedger) Repair(ctx context.Context, r repository.Repos, articleID int64) (bool, error) {
	a, err := r.Articles.GetByID(ctx, articleID)
	if err != nil {
		return false, err
	}
	max, err := r.Versions.MaxVersion(ctx, articleID)
	if err != nil {
		return false, err
	}
	if max == 0 || max == a.CurrentVersion {
		return false, nil
	}
	if max < a.CurrentVersion {
		logger.WithCtx(ctx).Error("Указатель версии опережает журнал, ремонт невозможен",
			zap.Int64("article_id", articleID),
			zap.Int("current_version", a.CurrentVersion),
			zap.Int("ledger_max", max),
		)
		return false, fmt.Errorf("статья %d: указатель %d больше максимума журнала %d", articleID, a.CurrentVersion, max)
	}
	if err := r.Articles.SetCurrentVersion(ctx, articleID, max); err != nil {
		return false, err
	}
	logger.WithCtx(ctx).Warn("Указатель текущей версии восстановлен по журналу",
		zap.Int64("article_id", articleID),
		zap.Int("was", a.CurrentVersion),
		zap.Int("now", max),
	)
	return true, nil
}
