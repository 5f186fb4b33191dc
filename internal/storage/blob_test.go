package storage

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"wikihub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *BlobStore {
	t.Helper()
	b, err := NewBlobStore(t.TempDir())
	require.NoError(t, err)
	return b
}

func TestSanitizeName(t *testing.T) {
	tests := map[string]string{
		"photo.png":           "photo.png",
		"my photo (1).jpg":    "my_photo__1_.jpg",
		"../../etc/passwd":    "passwd",
		`C:\Users\me\doc.pdf`: "doc.pdf",
		"отчёт.pdf":           "_____.pdf",
		"":                    "file",
		"/":                   "file",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeName(in), "input %q", in)
	}
}

func TestNextName_UniqueWithinSameMillisecond(t *testing.T) {
	b := newStore(t)
	fixed := time.UnixMilli(1_700_000_000_000)
	b.now = func() time.Time { return fixed }

	first := b.NextName("a.png")
	second := b.NextName("a.png")

	assert.Equal(t, "1700000000000-a.png", first)
	assert.Equal(t, "1700000000001-a.png", second)
}

func TestStageAndCommit(t *testing.T) {
	b := newStore(t)

	tmp, err := b.Stage(strings.NewReader("payload"))
	require.NoError(t, err)
	assert.Equal(t, b.StagingDir(), filepath.Dir(tmp))

	name, err := b.Commit(7, tmp, "scheme v2.png")
	require.NoError(t, err)
	assert.Regexp(t, `^\d+-scheme_v2\.png$`, name)
	assert.NoFileExists(t, tmp)
	assert.True(t, b.Exists(7, name))

	f, err := b.Open(7, name)
	require.NoError(t, err)
	defer f.Close()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestPath_RejectsTraversal(t *testing.T) {
	b := newStore(t)

	for _, name := range []string{"../x", "a/b", "..", ".", ""} {
		_, err := b.Path(1, name)
		assert.ErrorIs(t, err, models.ErrValidation, "name %q", name)
	}
	assert.False(t, b.Exists(1, "../../secret"))
}

func TestOpen_MissingFile(t *testing.T) {
	b := newStore(t)

	_, err := b.Open(1, "1-none.png")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestRemove(t *testing.T) {
	b := newStore(t)
	tmp, err := b.Stage(strings.NewReader("x"))
	require.NoError(t, err)
	name, err := b.Commit(3, tmp, "a.png")
	require.NoError(t, err)

	require.NoError(t, b.Remove(3, name))
	assert.False(t, b.Exists(3, name))
	assert.NoError(t, b.Remove(3, name), "missing file is not an error")
}

func TestRemoveStaged_OnlyInsideStaging(t *testing.T) {
	b := newStore(t)
	outside := filepath.Join(b.Root(), "victim.txt")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o644))

	err := b.RemoveStaged(outside)
	var serr *models.StorageError
	require.True(t, errors.As(err, &serr))
	assert.FileExists(t, outside)

	tmp, err := b.Stage(strings.NewReader("x"))
	require.NoError(t, err)
	require.NoError(t, b.RemoveStaged(tmp))
	assert.NoFileExists(t, tmp)
}

func TestRemoveArticleDir(t *testing.T) {
	b := newStore(t)
	for i := 0; i < 3; i++ {
		tmp, err := b.Stage(strings.NewReader("x"))
		require.NoError(t, err)
		_, err = b.Commit(5, tmp, "f.png")
		require.NoError(t, err)
	}
	files, err := b.List(5)
	require.NoError(t, err)
	assert.Len(t, files, 3)

	require.NoError(t, b.RemoveArticleDir(5))
	assert.NoDirExists(t, b.ArticleDir(5))
	assert.NoError(t, b.RemoveArticleDir(5))
}

func TestListArticleDirs(t *testing.T) {
	b := newStore(t)
	for _, d := range []string{"12", "3", "notes", "-1"} {
		require.NoError(t, os.MkdirAll(filepath.Join(b.Root(), d), 0o755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(b.Root(), "42"), []byte("x"), 0o644))

	ids, err := b.ListArticleDirs()
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 12}, ids)

	staged, err := b.ListStaged()
	require.NoError(t, err)
	assert.Empty(t, staged)
}
