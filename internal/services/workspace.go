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

type WorkspaceService struct {
	store repository.Store
}

func NewWorkspaceService(store repository.Store) *WorkspaceService {
	return &WorkspaceService{store: store}
}

func (s *WorkspaceService) List(ctx context.Context) ([]models.Workspace, error) {
	list, err := s.store.Repos().Workspaces.List(ctx)
	if list == nil && err == nil {
		list = []models.Workspace{}
	}
	return list, err
}

func (s *WorkspaceService) Get(ctx context.Context, id int64) (*models.Workspace, error) {
	w, err := s.store.Repos().Workspaces.GetByID(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, &models.NotFoundError{Entity: "пространство", ID: id}
	}
	return w, err
}

func (s *WorkspaceService) Create(ctx context.Context, req models.WorkspaceRequest) (*models.Workspace, error) {
	req = normalizeWorkspace(req)
	if err := checkStruct(req); err != nil {
		return nil, err
	}
	w := &models.Workspace{Name: req.Name, Label: req.Label}
	if err := s.store.Repos().Workspaces.Create(ctx, w); err != nil {
		return nil, mapWorkspaceErr(err, 0)
	}
	logger.WithCtx(ctx).Info("Пространство создано", zap.Int64("workspace_id", w.ID), zap.String("name", w.Name))
	return w, nil
}

func (s *WorkspaceService) Update(ctx context.Context, id int64, req models.WorkspaceRequest) (*models.Workspace, error) {
	req = normalizeWorkspace(req)
	if err := checkStruct(req); err != nil {
		return nil, err
	}
	w := &models.Workspace{ID: id, Name: req.Name, Label: req.Label}
	if err := s.store.Repos().Workspaces.Update(ctx, w); err != nil {
		return nil, mapWorkspaceErr(err, id)
	}
	return s.Get(ctx, id)
}

// Delete отказывает, пока на пространство ссылаются статьи или их история.
func (s *WorkspaceService) Delete(ctx context.Context, id int64) error {
	r := s.store.Repos()
	n, err := r.Articles.CountByWorkspace(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return &models.ConflictError{Message: repository.ErrWorkspaceInUse.Error()}
	}
	ok, err := r.Workspaces.Delete(ctx, id)
	if err != nil {
		return mapWorkspaceErr(err, id)
	}
	if !ok {
		return &models.NotFoundError{Entity: "пространство", ID: id}
	}
	logger.WithCtx(ctx).Info("Пространство удалено", zap.Int64("workspace_id", id))
	return nil
}

func normalizeWorkspace(req models.WorkspaceRequest) models.WorkspaceRequest {
	req.Name = strings.ToLower(strings.TrimSpace(req.Name))
	req.Label = strings.TrimSpace(req.Label)
	return req
}

func mapWorkspaceErr(err error, id int64) error {
	switch {
	case errors.Is(err, repository.ErrWorkspaceNameTaken), errors.Is(err, repository.ErrWorkspaceInUse):
		return &models.ConflictError{Message: err.Error()}
	case errors.Is(err, models.ErrNotFound):
		return &models.NotFoundError{Entity: "пространство", ID: id}
	}
	return err
}
