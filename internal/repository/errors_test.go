package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"wikihub/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

// failingDB отвечает одной и той же ошибкой на любой запрос.
type failingDB struct{ err error }

func (d failingDB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, d.err
}

func (d failingDB) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, d.err }

func (d failingDB) QueryRow(context.Context, string, ...any) pgx.Row { return errRow{err: d.err} }

func TestPgErrorClassification(t *testing.T) {
	unique := &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "article_versions_article_id_version_key"}
	fk := &pgconn.PgError{Code: pgForeignKeyViolation}

	tests := []struct {
		name       string
		err        error
		unique, fk bool
	}{
		{"unique", unique, true, false},
		{"wrapped unique", fmt.Errorf("insert: %w", unique), true, false},
		{"foreign key", fmt.Errorf("delete: %w", fk), false, true},
		{"other pg code", &pgconn.PgError{Code: "40001"}, false, false},
		{"plain error", errors.New("connection reset"), false, false},
		{"nil", nil, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.unique, isUniqueViolation(tt.err))
			assert.Equal(t, tt.fk, isForeignKeyViolation(tt.err))
		})
	}
}

func TestNotFound(t *testing.T) {
	assert.ErrorIs(t, notFound(pgx.ErrNoRows), models.ErrNotFound)
	assert.ErrorIs(t, notFound(fmt.Errorf("scan: %w", pgx.ErrNoRows)), models.ErrNotFound)

	other := errors.New("timeout")
	assert.Same(t, other, notFound(other))
}

func TestVersionInsert_UniqueViolationIsVersionTaken(t *testing.T) {
	db := failingDB{err: fmt.Errorf("query: %w", &pgconn.PgError{Code: pgUniqueViolation})}
	repo := &versionRepo{db: db}

	err := repo.Insert(context.Background(), &models.ArticleVersion{ArticleID: 7, Version: 3})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrVersionTaken)
	assert.Contains(t, err.Error(), "статья 7, версия 3")
}

func TestVersionInsert_OtherErrorsPassThrough(t *testing.T) {
	cause := errors.New("connection reset")
	repo := &versionRepo{db: failingDB{err: cause}}

	err := repo.Insert(context.Background(), &models.ArticleVersion{ArticleID: 7, Version: 3})
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, models.ErrVersionTaken)
}

func TestWorkspaceRepo_MapsConstraintErrors(t *testing.T) {
	ctx := context.Background()

	taken := &workspaceRepo{db: failingDB{err: &pgconn.PgError{Code: pgUniqueViolation}}}
	assert.ErrorIs(t, taken.Create(ctx, &models.Workspace{Name: "general"}), ErrWorkspaceNameTaken)

	inUse := &workspaceRepo{db: failingDB{err: &pgconn.PgError{Code: pgForeignKeyViolation}}}
	ok, err := inUse.Delete(ctx, 1)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrWorkspaceInUse)
}
