package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"wikihub/internal/logger"
	"wikihub/internal/metrics"
	"wikihub/internal/models"
	"wikihub/internal/repository"
	"wikihub/internal/storage"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

// EditState: шаг правки статьи. Failed достижим из любого шага.
type EditState string

const (
	StateValidated          EditState = "validated"
	StateVersionCreated     EditState = "version_created"
	StateAttachmentsCarried EditState = "attachments_carried"
	StateAttachmentsApplied EditState = "attachments_applied"
	StateCommitted          EditState = "committed"
	StateFailed             EditState = "failed"
)

type editTrace struct {
	log   *zap.Logger
	op    string
	state EditState
	start time.Time
}

// newEditTrace: при создании id ещё нет, article_id привязывается через bind.
func newEditTrace(ctx context.Context, op string, articleID int64) *editTrace {
	t := &editTrace{
		log:   logger.WithCtx(ctx).With(zap.String("op", op)),
		op:    op,
		start: time.Now(),
	}
	if articleID > 0 {
		t.bind(articleID)
	}
	return t
}

func (t *editTrace) bind(articleID int64) {
	t.log = t.log.With(zap.Int64("article_id", articleID))
}

func (t *editTrace) to(s EditState) {
	t.log.Debug("Переход состояния правки", zap.String("from", string(t.state)), zap.String("to", string(s)))
	t.state = s
	if s == StateCommitted {
		metrics.EditDuration.WithLabelValues(t.op, "ok").Observe(time.Since(t.start).Seconds())
	}
}

func (t *editTrace) fail(err error) {
	t.log.Warn("Правка не выполнена", zap.String("state", string(t.state)), zap.Error(err))
	t.state = StateFailed
	metrics.EditDuration.WithLabelValues(t.op, "failed").Observe(time.Since(t.start).Seconds())
}

// LineageService создаёт, правит и удаляет статьи вместе с журналом версий,
// вложениями и файлами.
type LineageService struct {
	store     repository.Store
	ledger    *VersionLedger
	binder    *AttachmentBinder
	aggregate *ArticleAggregate
	blobs     *storage.BlobStore
	notifier  Notifier
	policy    *bluemonday.Policy
	retries   int
	now       func() time.Time
}

func NewLineageService(
	store repository.Store,
	ledger *VersionLedger,
	binder *AttachmentBinder,
	aggregate *ArticleAggregate,
	blobs *storage.BlobStore,
	notifier Notifier,
	retries int,
) *LineageService {
	if notifier == nil {
		notifier = NopNotifier()
	}
	if retries < 0 {
		retries = 0
	}
	p := bluemonday.UGCPolicy()
	p.AllowElements("img")
	p.AllowAttrs("src", "alt").OnElements("img")
	return &LineageService{
		store:     store,
		ledger:    ledger,
		binder:    binder,
		aggregate: aggregate,
		blobs:     blobs,
		notifier:  notifier,
		policy:    p,
		retries:   retries,
		now:       time.Now,
	}
}

func (s *LineageService) sanitize(field, raw string) (string, error) {
	clean := strings.TrimSpace(s.policy.Sanitize(raw))
	if clean == "" {
		return "", models.NewValidationError(field, "после очистки HTML контент пуст")
	}
	return clean, nil
}

func (s *LineageService) Create(ctx context.Context, who models.Identity, req models.CreateArticleRequest, files []models.StagedUpload) (*models.ArticleView, error) {
	tr := newEditTrace(ctx, "create", 0)

	req.Title = strings.TrimSpace(req.Title)
	if err := checkStruct(req); err != nil {
		tr.fail(err)
		return nil, err
	}
	content, err := s.sanitize("content", req.Content)
	if err != nil {
		tr.fail(err)
		return nil, err
	}
	if err := s.binder.CheckUploads(files); err != nil {
		tr.fail(err)
		return nil, err
	}
	if err := s.binder.CheckQuota(0, len(files)); err != nil {
		tr.fail(err)
		return nil, err
	}
	if err := s.requireWorkspace(ctx, s.store.Repos(), req.WorkspaceID); err != nil {
		tr.fail(err)
		return nil, err
	}
	tr.to(StateValidated)

	var (
		article models.Article
		placed  []models.PlacedFile
	)
	err = s.store.InTx(ctx, func(r repository.Repos) error {
		article = models.Article{WorkspaceID: req.WorkspaceID, CurrentVersion: 1}
		if who.ID > 0 {
			creator := who.ID
			article.CreatorID = &creator
		}
		if err := r.Articles.Create(ctx, &article); err != nil {
			return fmt.Errorf("создание статьи: %w", err)
		}
		tr.bind(article.ID)

		v, err := s.ledger.CreateInitial(ctx, r, article.ID, req.Title, content, req.WorkspaceID)
		if err != nil {
			return err
		}
		tr.to(StateVersionCreated)

		placed, err = s.binder.Place(ctx, article.ID, files)
		if err != nil {
			return err
		}
		if _, err := s.binder.BindOnCreate(ctx, r, article.ID, v.ID, placed); err != nil {
			return err
		}
		tr.to(StateAttachmentsApplied)
		return nil
	})
	if err != nil {
		if article.ID > 0 {
			s.binder.Discard(ctx, article.ID, placed)
			if rmErr := s.blobs.RemoveArticleDir(article.ID); rmErr != nil {
				metrics.BlobCleanupFailures.Inc()
				tr.log.Error("Не удалось убрать каталог несозданной статьи", zap.Error(rmErr))
			}
		}
		tr.fail(err)
		return nil, err
	}
	tr.to(StateCommitted)
	tr.log.Info("Статья создана", zap.Int("attachments", len(placed)))

	s.notifier.Notify(EventArticleCreated, newArticleEvent(EventArticleCreated, article.ID, req.Title, 1, s.now()))

	view, err := s.aggregate.ProjectView(ctx, article.ID, models.LatestVersion())
	if err != nil {
		return nil, &models.PartialEditError{ArticleID: article.ID, Version: 1, Err: err}
	}
	return view, nil
}

// Update создаёт следующую версию. Без BaseVersion проигранная гонка
// повторяется до retries раз, с BaseVersion сразу возвращается ConflictError.
func (s *LineageService) Update(ctx context.Context, who models.Identity, articleID int64, req models.UpdateArticleRequest, files []models.StagedUpload) (*models.ArticleView, error) {
	tr := newEditTrace(ctx, "update", articleID)

	if articleID <= 0 {
		err := models.NewValidationError("id", "некорректный идентификатор статьи")
		tr.fail(err)
		return nil, err
	}
	if req.Title != nil {
		t := strings.TrimSpace(*req.Title)
		req.Title = &t
	}
	if err := checkStruct(req); err != nil {
		tr.fail(err)
		return nil, err
	}
	if req.Content != nil {
		clean, err := s.sanitize("content", *req.Content)
		if err != nil {
			tr.fail(err)
			return nil, err
		}
		req.Content = &clean
	}
	deletions, err := s.binder.ParseDeletionList(req.Deleted)
	if err != nil {
		tr.fail(err)
		return nil, err
	}
	if err := s.binder.CheckUploads(files); err != nil {
		tr.fail(err)
		return nil, err
	}
	if req.WorkspaceID != nil {
		if err := s.requireWorkspace(ctx, s.store.Repos(), *req.WorkspaceID); err != nil {
			tr.fail(err)
			return nil, err
		}
	}
	tr.to(StateValidated)

	for attempt := 0; ; attempt++ {
		version, err := s.updateOnce(ctx, tr, who, articleID, req, deletions, files)
		var conflict *models.ConflictError
		if errors.As(err, &conflict) && req.BaseVersion == nil && attempt < s.retries {
			tr.log.Info("Гонка за номер версии проиграна, повтор",
				zap.Int("attempt", attempt+1), zap.Int("current", conflict.Current))
			tr.state = StateValidated
			continue
		}
		if err != nil {
			tr.fail(err)
			return nil, err
		}
		tr.to(StateCommitted)
		tr.log.Info("Статья обновлена", zap.Int("version", version.Version))

		s.notifier.Notify(EventArticleUpdated, newArticleEvent(EventArticleUpdated, articleID, version.Title, version.Version, s.now()))

		view, err := s.aggregate.ProjectView(ctx, articleID, models.VersionNumber(version.Version))
		if err != nil {
			return nil, &models.PartialEditError{ArticleID: articleID, Version: version.Version, Err: err}
		}
		return view, nil
	}
}

func (s *LineageService) updateOnce(ctx context.Context, tr *editTrace, who models.Identity, articleID int64, req models.UpdateArticleRequest, deletions []string, files []models.StagedUpload) (*models.ArticleVersion, error) {
	var (
		next    *models.ArticleVersion
		placed  []models.PlacedFile
		removed []string
	)
	err := s.store.InTx(ctx, func(r repository.Repos) error {
		a, err := r.Articles.GetForUpdate(ctx, articleID)
		if errors.Is(err, models.ErrNotFound) || (err == nil && a.Deleting) {
			return &models.NotFoundError{Entity: "статья", ID: articleID}
		}
		if err != nil {
			return err
		}
		if !who.CanModify(a) {
			return &models.ForbiddenError{Reason: "править статью может только автор или администратор"}
		}
		if req.BaseVersion != nil && *req.BaseVersion != a.CurrentVersion {
			metrics.VersionConflicts.Inc()
			return &models.ConflictError{ArticleID: articleID, Expected: *req.BaseVersion, Current: a.CurrentVersion}
		}

		prev, err := r.Versions.Get(ctx, articleID, a.CurrentVersion)
		if err != nil {
			return fmt.Errorf("текущая версия %d статьи %d: %w", a.CurrentVersion, articleID, err)
		}

		title, content, workspaceID := prev.Title, prev.Content, prev.WorkspaceID
		if req.Title != nil {
			title = *req.Title
		}
		if req.Content != nil {
			content = *req.Content
		}
		if req.WorkspaceID != nil {
			workspaceID = *req.WorkspaceID
		}

		next, err = s.ledger.CreateNext(ctx, r, a, title, content, workspaceID)
		if err != nil {
			return err
		}
		tr.to(StateVersionCreated)

		carried, dropped, err := s.binder.CarryForward(ctx, r, prev.ID, next.ID, deletions)
		if err != nil {
			return err
		}
		removed = dropped
		if len(dropped) < len(deletions) {
			tr.log.Debug("Часть имён из списка удаления не найдена в предыдущей версии",
				zap.Int("requested", len(deletions)), zap.Int("dropped", len(dropped)))
		}
		tr.to(StateAttachmentsCarried)

		if err := s.binder.CheckQuota(len(carried), len(files)); err != nil {
			return err
		}
		placed, err = s.binder.Place(ctx, articleID, files)
		if err != nil {
			return err
		}
		if _, err := s.binder.BindAdditional(ctx, r, articleID, next.ID, placed); err != nil {
			return err
		}
		tr.to(StateAttachmentsApplied)
		return nil
	})
	if err != nil {
		s.binder.Discard(ctx, articleID, placed)
		return nil, err
	}

	// Прежние версии продолжают ссылаться на снятые файлы, поэтому обычно
	// здесь ничего не удаляется.
	s.binder.ReleaseUnreferenced(ctx, s.store.Repos(), articleID, removed)
	return next, nil
}

// Delete: пометка deleting, удаление каталога, затем удаление строк.
// Ошибки файловой системы только логируются.
func (s *LineageService) Delete(ctx context.Context, who models.Identity, articleID int64) error {
	tr := newEditTrace(ctx, "delete", articleID)

	var title string
	err := s.store.InTx(ctx, func(r repository.Repos) error {
		a, err := r.Articles.GetForUpdate(ctx, articleID)
		if errors.Is(err, models.ErrNotFound) {
			return &models.NotFoundError{Entity: "статья", ID: articleID}
		}
		if err != nil {
			return err
		}
		if !who.CanModify(a) {
			return &models.ForbiddenError{Reason: "удалить статью может только автор или администратор"}
		}
		if v, err := r.Versions.Get(ctx, articleID, a.CurrentVersion); err == nil {
			title = v.Title
		}
		if a.Deleting {
			tr.log.Warn("Статья уже помечена на удаление, удаление продолжается")
			return nil
		}
		if _, err := r.Articles.MarkDeleting(ctx, articleID); err != nil {
			return fmt.Errorf("пометка на удаление: %w", err)
		}
		return nil
	})
	if err != nil {
		tr.fail(err)
		return err
	}

	if err := s.blobs.RemoveArticleDir(articleID); err != nil {
		metrics.BlobCleanupFailures.Inc()
		tr.log.Error("Каталог статьи удалён не полностью", zap.Error(err))
	}

	err = s.store.InTx(ctx, func(r repository.Repos) error {
		if err := r.Attachments.DeleteByArticle(ctx, articleID); err != nil {
			return fmt.Errorf("удаление вложений: %w", err)
		}
		if err := r.Comments.DeleteByArticle(ctx, articleID); err != nil {
			return fmt.Errorf("удаление комментариев: %w", err)
		}
		if err := r.Versions.DeleteByArticle(ctx, articleID); err != nil {
			return fmt.Errorf("удаление версий: %w", err)
		}
		return r.Articles.Delete(ctx, articleID)
	})
	if err != nil {
		tr.fail(err)
		return err
	}
	tr.to(StateCommitted)
	tr.log.Info("Статья удалена")

	s.notifier.Notify(EventArticleDeleted, newArticleEvent(EventArticleDeleted, articleID, title, 0, s.now()))
	return nil
}

func (s *LineageService) Get(ctx context.Context, articleID int64, sel models.VersionSelector) (*models.ArticleView, error) {
	if articleID <= 0 {
		return nil, models.NewValidationError("id", "некорректный идентификатор статьи")
	}
	return s.aggregate.ProjectView(ctx, articleID, sel)
}

func (s *LineageService) List(ctx context.Context, p models.ArticleListParams) (*models.ArticlePage, error) {
	return s.aggregate.List(ctx, p)
}

func (s *LineageService) ListVersions(ctx context.Context, articleID int64) (*models.VersionList, error) {
	if articleID <= 0 {
		return nil, models.NewValidationError("id", "некорректный идентификатор статьи")
	}
	return s.aggregate.ListVersions(ctx, articleID)
}

func (s *LineageService) requireWorkspace(ctx context.Context, r repository.Repos, id int64) error {
	ok, err := r.Workspaces.Exists(ctx, id)
	if err != nil {
		return fmt.Errorf("проверка пространства %d: %w", id, err)
	}
	if !ok {
		return &models.NotFoundError{Entity: "пространство", ID: id}
	}
	return nil
}
