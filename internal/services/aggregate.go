package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"wikihub/internal/logger"
	"wikihub/internal/models"
	"wikihub/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 50
)

// ArticleAggregate собирает ответы для чтения. Блокировок не берёт.
type ArticleAggregate struct {
	store     repository.Store
	ledger    *VersionLedger
	urlPrefix string
}

func NewArticleAggregate(store repository.Store, ledger *VersionLedger, urlPrefix string) *ArticleAggregate {
	return &ArticleAggregate{
		store:     store,
		ledger:    ledger,
		urlPrefix: strings.TrimRight(urlPrefix, "/"),
	}
}

func (g *ArticleAggregate) ProjectView(ctx context.Context, articleID int64, sel models.VersionSelector) (*models.ArticleView, error) {
	return g.projectWith(ctx, g.store.Repos(), articleID, sel)
}

func (g *ArticleAggregate) projectWith(ctx context.Context, r repository.Repos, articleID int64, sel models.VersionSelector) (*models.ArticleView, error) {
	article, err := loadArticle(ctx, r, articleID)
	if err != nil {
		return nil, err
	}

	// Указатель может отставать от журнала до read-repair; последней считается max.
	maxVersion, err := r.Versions.MaxVersion(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("максимальная версия статьи %d: %w", articleID, err)
	}
	if maxVersion > article.CurrentVersion {
		logger.WithCtx(ctx).Warn("Указатель версии отстаёт от журнала",
			zap.Int64("article_id", articleID),
			zap.Int("current_version", article.CurrentVersion),
			zap.Int("ledger_max", maxVersion),
		)
		lagging := *article
		lagging.CurrentVersion = maxVersion
		article = &lagging
	}

	number := article.CurrentVersion
	if !sel.Latest {
		number = sel.Number
	}
	version, err := g.ledger.Get(ctx, r, articleID, number)
	if err != nil {
		return nil, err
	}

	var (
		attachments []models.Attachment
		comments    []models.Comment
		workspace   *models.Workspace
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		attachments, err = r.Attachments.ListByVersion(egCtx, version.ID)
		return err
	})
	eg.Go(func() error {
		var err error
		comments, err = r.Comments.ListByArticle(egCtx, articleID)
		return err
	})
	eg.Go(func() error {
		w, err := r.Workspaces.GetByID(egCtx, version.WorkspaceID)
		if errors.Is(err, models.ErrNotFound) {
			logger.WithCtx(ctx).Warn("Пространство версии не найдено",
				zap.Int64("article_id", articleID), zap.Int64("workspace_id", version.WorkspaceID))
			return nil
		}
		workspace = w
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("сборка представления статьи %d: %w", articleID, err)
	}

	view := Project(article, version, attachments, comments, workspace, g.urlPrefix)
	return &view, nil
}

// Project строит представление из уже прочитанных данных и ничего не меняет.
// Вложения берутся только те, что переданы для этой версии.
func Project(a *models.Article, v *models.ArticleVersion, attachments []models.Attachment, comments []models.Comment, w *models.Workspace, urlPrefix string) models.ArticleView {
	view := models.ArticleView{
		ID:            a.ID,
		Title:         v.Title,
		Content:       v.Content,
		Attachments:   make([]models.AttachmentView, 0, len(attachments)),
		Comments:      make([]models.CommentView, 0, len(comments)),
		CreatorID:     a.CreatorID,
		ViewVersion:   v.Version,
		LatestVersion: a.CurrentVersion,
		IsLatest:      v.Version == a.CurrentVersion,
		Readonly:      v.Version != a.CurrentVersion,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
	for _, at := range attachments {
		if at.ArticleVersionID != v.ID {
			continue
		}
		view.Attachments = append(view.Attachments, models.AttachmentView{
			ID:           at.ID,
			FileName:     at.ServerFilename,
			OriginalName: at.OriginalFilename,
			MimeType:     at.MimeType,
			URL:          fmt.Sprintf("%s/%d/%s", urlPrefix, a.ID, at.ServerFilename),
		})
	}
	for _, c := range comments {
		view.Comments = append(view.Comments, models.CommentView{
			ID:        c.ID,
			Author:    c.Author,
			Content:   c.Content,
			CreatedAt: c.CreatedAt,
		})
	}
	if w != nil {
		view.Workspace = &models.WorkspaceView{ID: w.ID, Name: w.Name, Label: w.Label}
	}
	return view
}

func (g *ArticleAggregate) List(ctx context.Context, p models.ArticleListParams) (*models.ArticlePage, error) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = defaultPageLimit
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
	p.Query = strings.TrimSpace(p.Query)

	items, total, err := g.store.Repos().Articles.List(ctx, p)
	if err != nil {
		logger.WithCtx(ctx).Error("Ошибка получения списка статей (repo)", zap.Error(err))
		return nil, err
	}
	if items == nil {
		items = []models.ArticleSummary{}
	}
	pages := 0
	if total > 0 {
		pages = (total + p.Limit - 1) / p.Limit
	}
	return &models.ArticlePage{Items: items, Page: p.Page, Limit: p.Limit, Total: total, Pages: pages}, nil
}

func (g *ArticleAggregate) ListVersions(ctx context.Context, articleID int64) (*models.VersionList, error) {
	r := g.store.Repos()
	article, err := loadArticle(ctx, r, articleID)
	if err != nil {
		return nil, err
	}
	versions, err := g.ledger.List(ctx, r, articleID)
	if err != nil {
		return nil, err
	}
	if versions == nil {
		versions = []models.VersionSummary{}
	}
	latest := article.CurrentVersion
	if len(versions) > 0 && versions[0].Version > latest {
		latest = versions[0].Version
	}
	return &models.VersionList{ArticleID: articleID, LatestVersion: latest, Versions: versions}, nil
}

// loadArticle прячет статьи, которые уже удаляются.
func loadArticle(ctx context.Context, r repository.Repos, id int64) (*models.Article, error) {
	a, err := r.Articles.GetByID(ctx, id)
	if errors.Is(err, models.ErrNotFound) || (err == nil && a.Deleting) {
		return nil, &models.NotFoundError{Entity: "статья", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}
