package repository

import (
	"context"
	"fmt"
	"strings"

	"wikihub/internal/models"
)

type ArticleRepo interface {
	Create(ctx context.Context, a *models.Article) error
	GetByID(ctx context.Context, id int64) (*models.Article, error)
	// GetForUpdate блокирует строку статьи до конца транзакции.
	GetForUpdate(ctx context.Context, id int64) (*models.Article, error)
	// AdvanceVersion: compare-and-set указателя текущей версии.
	AdvanceVersion(ctx context.Context, id int64, from, to int, workspaceID int64) (bool, error)
	SetCurrentVersion(ctx context.Context, id int64, version int) error
	MarkDeleting(ctx context.Context, id int64) (bool, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, p models.ArticleListParams) ([]models.ArticleSummary, int, error)
	ListIDs(ctx context.Context) ([]int64, error)
	CountByWorkspace(ctx context.Context, workspaceID int64) (int, error)
}

type articleRepo struct{ db DBTX }

const articleColumns = `id, workspace_id, creator_id, current_version, deleting, created_at, updated_at`

func scanArticle(row interface{ Scan(dest ...any) error }) (*models.Article, error) {
	var a models.Article
	if err := row.Scan(&a.ID, &a.WorkspaceID, &a.CreatorID, &a.CurrentVersion, &a.Deleting, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (r *articleRepo) Create(ctx context.Context, a *models.Article) error {
	const q = `
		INSERT INTO articles (workspace_id, creator_id, current_version, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	if a.CurrentVersion == 0 {
		a.CurrentVersion = 1
	}
	return r.db.QueryRow(ctx, q, a.WorkspaceID, a.CreatorID, a.CurrentVersion).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

func (r *articleRepo) GetByID(ctx context.Context, id int64) (*models.Article, error) {
	return scanArticle(r.db.QueryRow(ctx, `SELECT `+articleColumns+` FROM articles WHERE id = $1`, id))
}

func (r *articleRepo) GetForUpdate(ctx context.Context, id int64) (*models.Article, error) {
	return scanArticle(r.db.QueryRow(ctx, `SELECT `+articleColumns+` FROM articles WHERE id = $1 FOR UPDATE`, id))
}

func (r *articleRepo) AdvanceVersion(ctx context.Context, id int64, from, to int, workspaceID int64) (bool, error) {
	const q = `
		UPDATE articles
		SET current_version = $3, workspace_id = $4, updated_at = NOW()
		WHERE id = $1 AND current_version = $2 AND NOT deleting
	`
	tag, err := r.db.Exec(ctx, q, id, from, to, workspaceID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *articleRepo) SetCurrentVersion(ctx context.Context, id int64, version int) error {
	tag, err := r.db.Exec(ctx, `UPDATE articles SET current_version = $2 WHERE id = $1`, id, version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *articleRepo) MarkDeleting(ctx context.Context, id int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `UPDATE articles SET deleting = TRUE WHERE id = $1 AND NOT deleting`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *articleRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM articles WHERE id = $1`, id)
	return err
}

func (r *articleRepo) List(ctx context.Context, p models.ArticleListParams) ([]models.ArticleSummary, int, error) {
	where := []string{"NOT a.deleting"}
	args := []interface{}{}
	i := 1

	if p.WorkspaceID > 0 {
		where = append(where, fmt.Sprintf("a.workspace_id = $%d", i))
		args = append(args, p.WorkspaceID)
		i++
	}
	if q := strings.TrimSpace(p.Query); q != "" {
		where = append(where, fmt.Sprintf("(v.title ILIKE $%d OR regexp_replace(v.content, '<[^>]*>', '', 'g') ILIKE $%d)", i, i))
		args = append(args, "%"+escapeLike(q)+"%")
		i++
	}

	from := `
		FROM articles a
		JOIN article_versions v ON v.article_id = a.id AND v.version = a.current_version
		WHERE ` + strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) `+from, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sql := `SELECT a.id, v.title, a.workspace_id, a.current_version, a.created_at, a.updated_at ` + from +
		fmt.Sprintf(" ORDER BY a.created_at DESC, a.id DESC LIMIT $%d OFFSET $%d", i, i+1)
	args = append(args, p.Limit, (p.Page-1)*p.Limit)

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	list := make([]models.ArticleSummary, 0, p.Limit)
	for rows.Next() {
		var s models.ArticleSummary
		if err := rows.Scan(&s.ID, &s.Title, &s.WorkspaceID, &s.CurrentVersion, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, 0, err
		}
		list = append(list, s)
	}
	return list, total, rows.Err()
}

func (r *articleRepo) ListIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM articles WHERE NOT deleting ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *articleRepo) CountByWorkspace(ctx context.Context, workspaceID int64) (int, error) {
	var n int
	// история тоже держит ссылку на пространство
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(DISTINCT a.id)
		FROM articles a
		LEFT JOIN article_versions v ON v.article_id = a.id
		WHERE a.workspace_id = $1 OR v.workspace_id = $1
	`, workspaceID).Scan(&n)
	return n, err
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
