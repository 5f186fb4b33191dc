package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSweeper(e *testEnv, grace time.Duration, shift time.Duration) *Sweeper {
	s := NewSweeper(e.store, e.blobs, e.ledger, grace)
	s.now = func() time.Time { return time.Now().Add(shift) }
	return s
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestSweeper_RemovesOnlyExpiredOrphans(t *testing.T) {
	e := newTestEnv(t)
	view := e.create(t, "Статья", e.png(t, "a.png"))
	kept := view.Attachments[0].FileName

	e.png(t, "abandoned.png")
	writeFile(t, filepath.Join(e.blobs.ArticleDir(view.ID), "999-orphan.png"))
	writeFile(t, filepath.Join(e.blobs.ArticleDir(404), "1-ghost.png"))

	young, err := newTestSweeper(e, time.Hour, 0).SweepOrphans(e.ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepReport{}, young, "nothing is old enough yet")

	rep, err := newTestSweeper(e, time.Hour, 2*time.Hour).SweepOrphans(e.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.StagedRemoved)
	assert.Equal(t, 1, rep.UnreferencedRemoved)
	assert.Equal(t, 1, rep.DirsRemoved)
	assert.Zero(t, rep.Failures)

	assert.Equal(t, []string{kept}, e.filesOnDisk(t, view.ID))
	assert.Empty(t, e.filesOnDisk(t, 404))
	assert.Zero(t, e.stagedCount(t))
}

func TestSweeper_KeepsFilesReferencedByHistory(t *testing.T) {
	e := newTestEnv(t)
	view := e.create(t, "Статья", e.png(t, "a.png"))
	e.edit(t, view.ID, `["`+view.Attachments[0].FileName+`"]`)

	rep, err := newTestSweeper(e, time.Minute, time.Hour).SweepOrphans(e.ctx)
	require.NoError(t, err)
	assert.Zero(t, rep.UnreferencedRemoved)
	assert.Len(t, e.filesOnDisk(t, view.ID), 1)
}

func TestSweeper_RepairLedger(t *testing.T) {
	e := newTestEnv(t)
	healthy := seedArticle(t, e, 2)
	lagging := seedArticle(t, e, 3)
	broken := seedArticle(t, e, 1)
	e.store.mutate(func(s *memState) {
		a := s.articles[lagging]
		a.CurrentVersion = 1
		s.articles[lagging] = a
		b := s.articles[broken]
		b.CurrentVersion = 4
		s.articles[broken] = b
	})

	rep, err := newTestSweeper(e, time.Hour, 0).RepairLedger(e.ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Checked)
	assert.Equal(t, []int64{lagging}, rep.Repaired)
	assert.Equal(t, []int64{broken}, rep.Failed)

	st := e.store.snapshot()
	assert.Equal(t, 2, st.articles[healthy].CurrentVersion)
	assert.Equal(t, 3, st.articles[lagging].CurrentVersion)
	assert.Equal(t, 4, st.articles[broken].CurrentVersion)
}

func TestSweeper_StartStopsWithContext(t *testing.T) {
	e := newTestEnv(t)
	e.png(t, "abandoned.png")
	s := NewSweeper(e.store, e.blobs, e.ledger, 0)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		entries, err := os.ReadDir(e.blobs.StagingDir())
		return err == nil && len(entries) == 0
	}, 2*time.Second, 10*time.Millisecond)
	cancel()
}
