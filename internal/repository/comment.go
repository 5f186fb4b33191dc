package repository

import (
	"context"

	"wikihub/internal/models"
)

type CommentRepo interface {
	Create(ctx context.Context, c *models.Comment) error
	GetByID(ctx context.Context, id int64) (*models.Comment, error)
	Update(ctx context.Context, c *models.Comment) error
	Delete(ctx context.Context, id int64) (bool, error)
	ListByArticle(ctx context.Context, articleID int64) ([]models.Comment, error)
	DeleteByArticle(ctx context.Context, articleID int64) error
}

type commentRepo struct{ db DBTX }

func (r *commentRepo) Create(ctx context.Context, c *models.Comment) error {
	const q = `
		INSERT INTO comments (article_id, author, content, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRow(ctx, q, c.ArticleID, c.Author, c.Content).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (r *commentRepo) GetByID(ctx context.Context, id int64) (*models.Comment, error) {
	var c models.Comment
	err := r.db.QueryRow(ctx,
		`SELECT id, article_id, author, content, created_at, updated_at FROM comments WHERE id = $1`, id,
	).Scan(&c.ID, &c.ArticleID, &c.Author, &c.Content, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *commentRepo) Update(ctx context.Context, c *models.Comment) error {
	return r.db.QueryRow(ctx,
		`UPDATE comments SET author = $2, content = $3, updated_at = NOW() WHERE id = $1 RETURNING updated_at`,
		c.ID, c.Author, c.Content,
	).Scan(&c.UpdatedAt)
}

func (r *commentRepo) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *commentRepo) ListByArticle(ctx context.Context, articleID int64) ([]models.Comment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, article_id, author, content, created_at, updated_at
		FROM comments WHERE article_id = $1
		ORDER BY created_at ASC, id ASC
	`, articleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Comment
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.ArticleID, &c.Author, &c.Content, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

func (r *commentRepo) DeleteByArticle(ctx context.Context, articleID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM comments WHERE article_id = $1`, articleID)
	return err
}
