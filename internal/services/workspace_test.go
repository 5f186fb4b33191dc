package services

import (
	"testing"

	"wikihub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkspace_CreateNormalizesName(t *testing.T) {
	e := newTestEnv(t)
	svc := NewWorkspaceService(e.store)

	w, err := svc.Create(e.ctx, models.WorkspaceRequest{Name: "  Ideas ", Label: " Идеи "})
	require.NoError(t, err)
	assert.Equal(t, "ideas", w.Name)
	assert.Equal(t, "Идеи", w.Label)

	_, err = svc.Create(e.ctx, models.WorkspaceRequest{Name: "IDEAS", Label: "x"})
	var conflict *models.ConflictError
	assert.ErrorAs(t, err, &conflict)

	_, err = svc.Create(e.ctx, models.WorkspaceRequest{Name: "", Label: "x"})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestWorkspace_DeleteRefusedWhileReferenced(t *testing.T) {
	e := newTestEnv(t)
	svc := NewWorkspaceService(e.store)
	work := e.store.addWorkspace("work")
	view := e.create(t, "Статья")

	// статья переехала, но версия 1 всё ещё ссылается на general
	_, err := e.lineage.Update(e.ctx, e.author, view.ID, models.UpdateArticleRequest{WorkspaceID: &work.ID}, nil)
	require.NoError(t, err)

	var conflict *models.ConflictError
	assert.ErrorAs(t, svc.Delete(e.ctx, e.ws.ID), &conflict)
	assert.ErrorAs(t, svc.Delete(e.ctx, work.ID), &conflict)

	require.NoError(t, e.lineage.Delete(e.ctx, e.author, view.ID))
	assert.NoError(t, svc.Delete(e.ctx, work.ID))
	assert.ErrorIs(t, svc.Delete(e.ctx, work.ID), models.ErrNotFound)

	list, err := svc.List(e.ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "general", list[0].Name)
}

func TestWorkspace_UpdateAndGet(t *testing.T) {
	e := newTestEnv(t)
	svc := NewWorkspaceService(e.store)

	w, err := svc.Update(e.ctx, e.ws.ID, models.WorkspaceRequest{Name: "main", Label: "Главное"})
	require.NoError(t, err)
	assert.Equal(t, "Главное", w.Label)

	_, err = svc.Update(e.ctx, 500, models.WorkspaceRequest{Name: "x", Label: "x"})
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.Get(e.ctx, 500)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
