package repository

import (
	"context"
	"errors"

	"wikihub/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// DBTX: общее подмножество pgxpool.Pool и pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repos: набор репозиториев поверх одного соединения или транзакции.
type Repos struct {
	Articles    ArticleRepo
	Versions    VersionRepo
	Attachments AttachmentRepo
	Comments    CommentRepo
	Workspaces  WorkspaceRepo
}

// Store выдаёт репозитории вне транзакции и внутри неё.
type Store interface {
	Repos() Repos
	InTx(ctx context.Context, fn func(r Repos) error) error
}

type pgStore struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

func (s *pgStore) Repos() Repos { return newRepos(s.pool) }

// InTx коммитит, если fn вернула nil, иначе откатывает.
func (s *pgStore) InTx(ctx context.Context, fn func(r Repos) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(newRepos(tx))
	})
}

func newRepos(db DBTX) Repos {
	return Repos{
		Articles:    &articleRepo{db: db},
		Versions:    &versionRepo{db: db},
		Attachments: &attachmentRepo{db: db},
		Comments:    &commentRepo{db: db},
		Workspaces:  &workspaceRepo{db: db},
	}
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation
}
