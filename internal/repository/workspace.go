package repository

import (
	"context"
	"errors"

	"wikihub/internal/models"
)

// ErrWorkspaceNameTaken: имя пространства уже занято.
var ErrWorkspaceNameTaken = errors.New("имя пространства уже занято")

// ErrWorkspaceInUse: на пространство ссылаются статьи или их версии.
var ErrWorkspaceInUse = errors.New("пространство используется статьями")

type WorkspaceRepo interface {
	Create(ctx context.Context, w *models.Workspace) error
	GetByID(ctx context.Context, id int64) (*models.Workspace, error)
	List(ctx context.Context) ([]models.Workspace, error)
	Update(ctx context.Context, w *models.Workspace) error
	Delete(ctx context.Context, id int64) (bool, error)
	Exists(ctx context.Context, id int64) (bool, error)
}

type workspaceRepo struct{ db DBTX }

func (r *workspaceRepo) Create(ctx context.Context, w *models.Workspace) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO workspaces (name, label) VALUES ($1, $2) RETURNING id, created_at, updated_at`,
		w.Name, w.Label,
	).Scan(&w.ID, &w.CreatedAt, &w.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrWorkspaceNameTaken
	}
	return err
}

func (r *workspaceRepo) GetByID(ctx context.Context, id int64) (*models.Workspace, error) {
	var w models.Workspace
	err := r.db.QueryRow(ctx,
		`SELECT id, name, label, created_at, updated_at FROM workspaces WHERE id = $1`, id,
	).Scan(&w.ID, &w.Name, &w.Label, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &w, nil
}

func (r *workspaceRepo) List(ctx context.Context) ([]models.Workspace, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, label, created_at, updated_at FROM workspaces ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Workspace
	for rows.Next() {
		var w models.Workspace
		if err := rows.Scan(&w.ID, &w.Name, &w.Label, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, w)
	}
	return list, rows.Err()
}

func (r *workspaceRepo) Update(ctx context.Context, w *models.Workspace) error {
	err := r.db.QueryRow(ctx,
		`UPDATE workspaces SET name = $2, label = $3, updated_at = NOW() WHERE id = $1 RETURNING updated_at`,
		w.ID, w.Name, w.Label,
	).Scan(&w.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrWorkspaceNameTaken
	}
	return notFound(err)
}

func (r *workspaceRepo) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM workspaces WHERE id = $1`, id)
	if isForeignKeyViolation(err) {
		return false, ErrWorkspaceInUse
	}
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *workspaceRepo) Exists(ctx context.Context, id int64) (bool, error) {
	var ok bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM workspaces WHERE id = $1)`, id).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}
