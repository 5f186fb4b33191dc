package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"wikihub/internal/logger"
	"wikihub/internal/models"
	"wikihub/internal/storage"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordedEvent struct {
	Event   string
	Payload ArticleEvent
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (n *recordingNotifier) Notify(event string, payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	ev, _ := payload.(ArticleEvent)
	n.events = append(n.events, recordedEvent{Event: event, Payload: ev})
}

func (n *recordingNotifier) list() []recordedEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]recordedEvent(nil), n.events...)
}

type testEnv struct {
	ctx       context.Context
	store     *memStore
	blobs     *storage.BlobStore
	ledger    *VersionLedger
	binder    *AttachmentBinder
	aggregate *ArticleAggregate
	lineage   *LineageService
	notifier  *recordingNotifier
	ws        models.Workspace
	author    models.Identity
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	blobs, err := storage.NewBlobStore(t.TempDir())
	require.NoError(t, err)

	store := newMemStore()
	ledger := NewVersionLedger()
	binder := NewAttachmentBinder(blobs, DefaultUploadPolicy())
	aggregate := NewArticleAggregate(store, ledger, "/uploads/")
	notifier := &recordingNotifier{}

	return &testEnv{
		ctx:       context.Background(),
		store:     store,
		blobs:     blobs,
		ledger:    ledger,
		binder:    binder,
		aggregate: aggregate,
		lineage:   NewLineageService(store, ledger, binder, aggregate, blobs, notifier, 3),
		notifier:  notifier,
		ws:        store.addWorkspace("general"),
		author:    models.Identity{ID: 10, Role: models.RoleUser},
	}
}

// stage кладёт файл во временную зону, как это делает обработчик загрузки.
func (e *testEnv) stage(t *testing.T, name, mime string) models.StagedUpload {
	t.Helper()
	path, err := e.blobs.Stage(strings.NewReader("content of " + name))
	require.NoError(t, err)
	return models.StagedUpload{TempPath: path, OriginalName: name, MimeType: mime}
}

func (e *testEnv) png(t *testing.T, name string) models.StagedUpload {
	return e.stage(t, name, "image/png")
}

func (e *testEnv) create(t *testing.T, title string, files ...models.StagedUpload) *models.ArticleView {
	t.Helper()
	view, err := e.lineage.Create(e.ctx, e.author, models.CreateArticleRequest{
		Title:       title,
		Content:     "<p>" + title + "</p>",
		WorkspaceID: e.ws.ID,
	}, files)
	require.NoError(t, err)
	return view
}

func (e *testEnv) edit(t *testing.T, id int64, deleted string, files ...models.StagedUpload) *models.ArticleView {
	t.Helper()
	view, err := e.lineage.Update(e.ctx, e.author, id, models.UpdateArticleRequest{Deleted: deleted}, files)
	require.NoError(t, err)
	return view
}

func fileNames(view *models.ArticleView) []string {
	out := make([]string, 0, len(view.Attachments))
	for _, a := range view.Attachments {
		out = append(out, a.FileName)
	}
	return out
}

func attachmentIDs(view *models.ArticleView) []int64 {
	out := make([]int64, 0, len(view.Attachments))
	for _, a := range view.Attachments {
		out = append(out, a.ID)
	}
	return out
}

// filesOnDisk: имена файлов в каталоге статьи.
func (e *testEnv) filesOnDisk(t *testing.T, articleID int64) []string {
	t.Helper()
	entries, err := os.ReadDir(e.blobs.ArticleDir(articleID))
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	var out []string
	for _, en := range entries {
		out = append(out, en.Name())
	}
	return out
}

func (e *testEnv) stagedCount(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir(filepath.Clean(e.blobs.StagingDir()))
	require.NoError(t, err)
	return len(entries)
}

// observeLogs подменяет глобальный logger.Log на время теста.
func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	prev := logger.Log
	logger.Log = zap.New(core)
	t.Cleanup(func() { logger.Log = prev })
	return logs
}
