package services

import (
	"context"
	"errors"
	"strings"

	"wikihub/internal/logger"
	"wikihub/internal/models"
	"wikihub/internal/repository"

	"go.uber.org/zap"
)

// CommentService: комментарии принадлежат статье, а не версии.
type CommentService struct {
	store repository.Store
}

func NewCommentService(store repository.Store) *CommentService {
	return &CommentService{store: store}
}

func (s *CommentService) Create(ctx context.Context, articleID int64, req models.CreateCommentRequest) (*models.Comment, error) {
	log := logger.WithCtx(ctx)
	req.Content = strings.TrimSpace(req.Content)
	if err := checkStruct(req); err != nil {
		return nil, err
	}

	c := &models.Comment{ArticleID: articleID, Author: trimAuthor(req.Author), Content: req.Content}
	// строка статьи блокируется, чтобы не писать в статью, которую уже удаляют
	err := s.store.InTx(ctx, func(r repository.Repos) error {
		a, err := r.Articles.GetForUpdate(ctx, articleID)
		if errors.Is(err, models.ErrNotFound) || (err == nil && a.Deleting) {
			return &models.NotFoundError{Entity: "статья", ID: articleID}
		}
		if err != nil {
			return err
		}
		return r.Comments.Create(ctx, c)
	})
	if err != nil {
		log.Warn("Комментарий не создан", zap.Int64("article_id", articleID), zap.Error(err))
		return nil, err
	}
	log.Info("Комментарий создан", zap.Int64("article_id", articleID), zap.Int64("comment_id", c.ID))
	return c, nil
}

func (s *CommentService) List(ctx context.Context, articleID int64) ([]models.Comment, error) {
	r := s.store.Repos()
	if _, err := loadArticle(ctx, r, articleID); err != nil {
		return nil, err
	}
	list, err := r.Comments.ListByArticle(ctx, articleID)
	if list == nil && err == nil {
		list = []models.Comment{}
	}
	return list, err
}

func (s *CommentService) Update(ctx context.Context, id int64, req models.UpdateCommentRequest) (*models.Comment, error) {
	if req.Content != nil {
		c := strings.TrimSpace(*req.Content)
		req.Content = &c
	}
	if err := checkStruct(req); err != nil {
		return nil, err
	}

	r := s.store.Repos()
	c, err := r.Comments.GetByID(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, &models.NotFoundError{Entity: "комментарий", ID: id}
	}
	if err != nil {
		return nil, err
	}
	if req.Author != nil {
		c.Author = trimAuthor(req.Author)
	}
	if req.Content != nil {
		c.Content = *req.Content
	}
	if err := r.Comments.Update(ctx, c); err != nil {
		logger.WithCtx(ctx).Error("Ошибка обновления комментария (repo)", zap.Int64("comment_id", id), zap.Error(err))
		return nil, err
	}
	return c, nil
}

func (s *CommentService) Delete(ctx context.Context, id int64) error {
	ok, err := s.store.Repos().Comments.Delete(ctx, id)
	if err != nil {
		logger.WithCtx(ctx).Error("Ошибка удаления комментария (repo)", zap.Int64("comment_id", id), zap.Error(err))
		return err
	}
	if !ok {
		return &models.NotFoundError{Entity: "комментарий", ID: id}
	}
	logger.WithCtx(ctx).Info("Комментарий удалён", zap.Int64("comment_id", id))
	return nil
}

func trimAuthor(a *string) *string {
	if a == nil {
		return nil
	}
	v := strings.TrimSpace(*a)
	if v == "" {
		return nil
	}
	return &v
}
