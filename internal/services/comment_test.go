package services

import (
	"testing"

	"wikihub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComments_BelongToArticleNotVersion(t *testing.T) {
	e := newTestEnv(t)
	svc := NewCommentService(e.store)
	view := e.create(t, "Статья")

	author := "  Аня "
	c, err := svc.Create(e.ctx, view.ID, models.CreateCommentRequest{Author: &author, Content: " Спасибо "})
	require.NoError(t, err)
	assert.Equal(t, "Аня", *c.Author)
	assert.Equal(t, "Спасибо", c.Content)

	e.edit(t, view.ID, "")
	for _, sel := range []models.VersionSelector{models.VersionNumber(1), models.LatestVersion()} {
		got, err := e.lineage.Get(e.ctx, view.ID, sel)
		require.NoError(t, err)
		require.Len(t, got.Comments, 1)
		assert.Equal(t, c.ID, got.Comments[0].ID)
	}
}

func TestComments_CRUD(t *testing.T) {
	e := newTestEnv(t)
	svc := NewCommentService(e.store)
	view := e.create(t, "Статья")

	c, err := svc.Create(e.ctx, view.ID, models.CreateCommentRequest{Content: "первый"})
	require.NoError(t, err)
	assert.Nil(t, c.Author)

	text := "исправлено"
	updated, err := svc.Update(e.ctx, c.ID, models.UpdateCommentRequest{Content: &text})
	require.NoError(t, err)
	assert.Equal(t, text, updated.Content)

	list, err := svc.List(e.ctx, view.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, text, list[0].Content)

	require.NoError(t, svc.Delete(e.ctx, c.ID))
	assert.ErrorIs(t, svc.Delete(e.ctx, c.ID), models.ErrNotFound)

	list, err = svc.List(e.ctx, view.ID)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestComments_RejectedForMissingOrDeletingArticle(t *testing.T) {
	e := newTestEnv(t)
	svc := NewCommentService(e.store)
	view := e.create(t, "Статья")

	_, err := svc.Create(e.ctx, 999, models.CreateCommentRequest{Content: "x"})
	assert.ErrorIs(t, err, models.ErrNotFound)

	e.store.mutate(func(s *memState) {
		a := s.articles[view.ID]
		a.Deleting = true
		s.articles[view.ID] = a
	})
	_, err = svc.Create(e.ctx, view.ID, models.CreateCommentRequest{Content: "x"})
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.Create(e.ctx, view.ID, models.CreateCommentRequest{Content: "   "})
	assert.ErrorIs(t, err, models.ErrValidation)
}
