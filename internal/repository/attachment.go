package repository

import (
	"context"

	"wikihub/internal/models"
)

type AttachmentRepo interface {
	Insert(ctx context.Context, a *models.Attachment) error
	ListByVersion(ctx context.Context, versionID int64) ([]models.Attachment, error)
	// CountReferences считает строки любых версий, ссылающиеся на файл статьи.
	CountReferences(ctx context.Context, articleID int64, serverFilename string) (int, error)
	ListFilenames(ctx context.Context, articleID int64) ([]string, error)
	DeleteByArticle(ctx context.Context, articleID int64) error
}

type attachmentRepo struct{ db DBTX }

func (r *attachmentRepo) Insert(ctx context.Context, a *models.Attachment) error {
	const q = `
		INSERT INTO attachments (article_id, article_version_id, server_filename, original_filename, mime_type, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	return r.db.QueryRow(ctx, q,
		a.ArticleID,
		a.ArticleVersionID,
		a.ServerFilename,
		a.OriginalFilename,
		a.MimeType,
		a.UploadedAt,
	).Scan(&a.ID)
}

func (r *attachmentRepo) ListByVersion(ctx context.Context, versionID int64) ([]models.Attachment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, article_id, article_version_id, server_filename, original_filename, mime_type, uploaded_at
		FROM attachments WHERE article_version_id = $1
		ORDER BY id
	`, versionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Attachment
	for rows.Next() {
		var a models.Attachment
		if err := rows.Scan(&a.ID, &a.ArticleID, &a.ArticleVersionID, &a.ServerFilename, &a.OriginalFilename, &a.MimeType, &a.UploadedAt); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

func (r *attachmentRepo) CountReferences(ctx context.Context, articleID int64, serverFilename string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM attachments WHERE article_id = $1 AND server_filename = $2`,
		articleID, serverFilename,
	).Scan(&n)
	return n, err
}

func (r *attachmentRepo) ListFilenames(ctx context.Context, articleID int64) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT server_filename FROM attachments WHERE article_id = $1`, articleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func (r *attachmentRepo) DeleteByArticle(ctx context.Context, articleID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM attachments WHERE article_id = $1`, articleID)
	return err
}
