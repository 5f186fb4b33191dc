package services

import (
	"testing"
	"time"

	"wikihub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProject_HistoricalVersion(t *testing.T) {
	creator := int64(3)
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	a := &models.Article{ID: 7, CurrentVersion: 3, CreatorID: &creator, CreatedAt: created, UpdatedAt: created}
	v := &models.ArticleVersion{ID: 20, ArticleID: 7, Version: 2, Title: "Старый", Content: "<p>x</p>", WorkspaceID: 1}
	attachments := []models.Attachment{
		{ID: 1, ArticleVersionID: 20, ServerFilename: "1-a.png", OriginalFilename: "a.png", MimeType: "image/png"},
		{ID: 2, ArticleVersionID: 21, ServerFilename: "2-b.png", OriginalFilename: "b.png", MimeType: "image/png"},
	}
	author := "Аня"
	comments := []models.Comment{{ID: 5, ArticleID: 7, Author: &author, Content: "ок"}}

	view := Project(a, v, attachments, comments, nil, "/uploads")

	assert.Equal(t, int64(7), view.ID)
	assert.Equal(t, "Старый", view.Title)
	assert.Equal(t, 2, view.ViewVersion)
	assert.Equal(t, 3, view.LatestVersion)
	assert.True(t, view.Readonly)
	assert.False(t, view.IsLatest)
	require.Len(t, view.Attachments, 1, "rows of other versions are not shown")
	assert.Equal(t, "/uploads/7/1-a.png", view.Attachments[0].URL)
	require.Len(t, view.Comments, 1)
	assert.Equal(t, &author, view.Comments[0].Author)
	assert.Nil(t, view.Workspace)
	assert.Equal(t, &creator, view.CreatorID)
	assert.Equal(t, created, view.CreatedAt)
}

func TestProject_DoesNotTouchInputs(t *testing.T) {
	a := &models.Article{ID: 1, CurrentVersion: 1}
	v := &models.ArticleVersion{ID: 1, ArticleID: 1, Version: 1, Title: "T"}
	w := &models.Workspace{ID: 2, Name: "work", Label: "Работа"}

	view := Project(a, v, nil, nil, w, "")

	assert.Equal(t, models.Article{ID: 1, CurrentVersion: 1}, *a)
	assert.True(t, view.IsLatest)
	assert.NotNil(t, view.Attachments)
	assert.NotNil(t, view.Comments)
	assert.Equal(t, &models.WorkspaceView{ID: 2, Name: "work", Label: "Работа"}, view.Workspace)
}

func TestAggregate_ListClampsPaging(t *testing.T) {
	e := newTestEnv(t)
	for i := 0; i < 3; i++ {
		e.create(t, "Статья")
	}

	page, err := e.aggregate.List(e.ctx, models.ArticleListParams{Page: -1, Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 50, page.Limit)
	assert.Equal(t, 1, page.Pages)

	page, err = e.aggregate.List(e.ctx, models.ArticleListParams{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.Pages)
	assert.Len(t, page.Items, 1)

	page, err = e.aggregate.List(e.ctx, models.ArticleListParams{Query: "нет такого"})
	require.NoError(t, err)
	assert.NotNil(t, page.Items)
	assert.Equal(t, 0, page.Pages)
}

func TestAggregate_MissingWorkspaceIsTolerated(t *testing.T) {
	e := newTestEnv(t)
	view := e.create(t, "Статья")
	e.store.mutate(func(s *memState) { delete(s.workspaces, e.ws.ID) })

	got, err := e.aggregate.ProjectView(e.ctx, view.ID, models.LatestVersion())
	require.NoError(t, err)
	assert.Nil(t, got.Workspace)
}

func TestAggregate_ListVersionsOfUnknownArticle(t *testing.T) {
	e := newTestEnv(t)

	_, err := e.aggregate.ListVersions(e.ctx, 12345)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAggregate_LaggingPointerServesLedgerMax(t *testing.T) {
	e := newTestEnv(t)
	logs := observeLogs(t)
	id := seedArticle(t, e, 3)
	e.store.mutate(func(s *memState) {
		a := s.articles[id]
		a.CurrentVersion = 1
		s.articles[id] = a
	})

	view, err := e.aggregate.ProjectView(e.ctx, id, models.LatestVersion())
	require.NoError(t, err)
	assert.Equal(t, 3, view.ViewVersion)
	assert.Equal(t, 3, view.LatestVersion)
	assert.True(t, view.IsLatest)
	assert.False(t, view.Readonly)

	first, err := e.aggregate.ProjectView(e.ctx, id, models.VersionNumber(1))
	require.NoError(t, err)
	assert.True(t, first.Readonly)

	list, err := e.aggregate.ListVersions(e.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, list.LatestVersion)

	assert.Equal(t, 1, e.store.snapshot().articles[id].CurrentVersion, "чтение не чинит указатель")
	warned := logs.FilterMessage("Указатель версии отстаёт от журнала").All()
	require.NotEmpty(t, warned)
	assert.Equal(t, id, warned[0].ContextMap()["article_id"])
	assert.Equal(t, int64(3), warned[0].ContextMap()["ledger_max"])
}
