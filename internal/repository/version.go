package repository

import (
	"context"
	"fmt"

	"wikihub/internal/models"
)

// VersionRepo: журнал версий, только вставка и чтение.
type VersionRepo interface {
	Insert(ctx context.Context, v *models.ArticleVersion) error
	Get(ctx context.Context, articleID int64, version int) (*models.ArticleVersion, error)
	List(ctx context.Context, articleID int64) ([]models.VersionSummary, error)
	MaxVersion(ctx context.Context, articleID int64) (int, error)
	DeleteByArticle(ctx context.Context, articleID int64) error
}

type versionRepo struct{ db DBTX }

func (r *versionRepo) Insert(ctx context.Context, v *models.ArticleVersion) error {
	const q = `
		INSERT INTO article_versions (article_id, version, title, content, workspace_id, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, q, v.ArticleID, v.Version, v.Title, v.Content, v.WorkspaceID).Scan(&v.ID, &v.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("статья %d, версия %d: %w", v.ArticleID, v.Version, models.ErrVersionTaken)
	}
	return err
}

func (r *versionRepo) Get(ctx context.Context, articleID int64, version int) (*models.ArticleVersion, error) {
	const q = `
		SELECT id, article_id, version, title, content, workspace_id, created_at
		FROM article_versions WHERE article_id = $1 AND version = $2
	`
	var v models.ArticleVersion
	if err := r.db.QueryRow(ctx, q, articleID, version).Scan(
		&v.ID, &v.ArticleID, &v.Version, &v.Title, &v.Content, &v.WorkspaceID, &v.CreatedAt,
	); err != nil {
		return nil, notFound(err)
	}
	return &v, nil
}

func (r *versionRepo) List(ctx context.Context, articleID int64) ([]models.VersionSummary, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, version, title, created_at
		FROM article_versions WHERE article_id = $1
		ORDER BY version DESC
	`, articleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.VersionSummary
	for rows.Next() {
		var s models.VersionSummary
		if err := rows.Scan(&s.ID, &s.Version, &s.Title, &s.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

func (r *versionRepo) MaxVersion(ctx context.Context, articleID int64) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM article_versions WHERE article_id = $1`, articleID).Scan(&n)
	return n, err
}

func (r *versionRepo) DeleteByArticle(ctx context.Context, articleID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM article_versions WHERE article_id = $1`, articleID)
	return err
}
