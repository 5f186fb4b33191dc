package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"wikihub/internal/models"

	"github.com/google/uuid"
)

const stagingDirName = "tmp"

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_.-]`)

type FileInfo struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// BlobStore хранит файлы в <root>/<articleID>/<serverFilename>,
// загрузки до привязки к статье лежат в <root>/tmp.
type BlobStore struct {
	root string

	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewBlobStore(root string) (*BlobStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	b := &BlobStore{root: abs, now: time.Now}
	if err := os.MkdirAll(b.StagingDir(), 0o755); err != nil {
		return nil, &models.StorageError{Op: "mkdir", Path: b.StagingDir(), Err: err}
	}
	return b, nil
}

func (b *BlobStore) Root() string { return b.root }

func (b *BlobStore) StagingDir() string { return filepath.Join(b.root, stagingDirName) }

func (b *BlobStore) ArticleDir(articleID int64) string {
	return filepath.Join(b.root, strconv.FormatInt(articleID, 10))
}

// Path возвращает путь к файлу статьи; имя не может выйти за пределы каталога.
func (b *BlobStore) Path(articleID int64, serverFilename string) (string, error) {
	name := filepath.Base(serverFilename)
	if name != serverFilename || name == "." || name == ".." || name == "" {
		return "", models.NewValidationError("fileName", "некорректное имя файла")
	}
	return filepath.Join(b.ArticleDir(articleID), name), nil
}

// SanitizeName оставляет только [a-zA-Z0-9_.-].
func SanitizeName(original string) string {
	base := filepath.Base(strings.ReplaceAll(original, `\`, "/"))
	if base == "." || base == "/" || base == "" {
		base = "file"
	}
	return unsafeChars.ReplaceAllString(base, "_")
}

// nextPrefix: строго возрастающий миллисекундный префикс.
func (b *BlobStore) nextPrefix() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := b.now().UnixMilli()
	if n <= b.last {
		n = b.last + 1
	}
	b.last = n
	return n
}

func (b *BlobStore) NextName(original string) string {
	return fmt.Sprintf("%d-%s", b.nextPrefix(), SanitizeName(original))
}

// Stage сохраняет поток во временную зону под случайным именем.
func (b *BlobStore) Stage(r io.Reader) (string, error) {
	path := filepath.Join(b.StagingDir(), uuid.NewString())
	dst, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", &models.StorageError{Op: "create", Path: path, Err: err}
	}
	if _, err := io.Copy(dst, r); err != nil {
		dst.Close()
		_ = os.Remove(path)
		return "", &models.StorageError{Op: "write", Path: path, Err: err}
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(path)
		return "", &models.StorageError{Op: "close", Path: path, Err: err}
	}
	return path, nil
}

// Commit перемещает файл из временной зоны в каталог статьи и возвращает
// серверное имя. Имя уникально в каталоге статьи.
func (b *BlobStore) Commit(articleID int64, tempPath, originalName string) (string, error) {
	dir := b.ArticleDir(articleID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &models.StorageError{Op: "mkdir", Path: dir, Err: err}
	}

	for attempt := 0; attempt < 5; attempt++ {
		name := b.NextName(originalName)
		dst := filepath.Join(dir, name)
		if _, err := os.Lstat(dst); err == nil {
			continue
		}
		if err := moveFile(tempPath, dst); err != nil {
			return "", &models.StorageError{Op: "move", Path: dst, Err: err}
		}
		return name, nil
	}
	return "", &models.StorageError{Op: "move", Path: dir, Err: errors.New("не удалось подобрать свободное имя")}
}

func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	// другой том, копируем и удаляем источник
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return err
	}
	return os.Remove(src)
}

func (b *BlobStore) Open(articleID int64, serverFilename string) (*os.File, error) {
	p, err := b.Path(articleID, serverFilename)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &models.NotFoundError{Entity: "файл", ID: serverFilename}
	}
	return f, err
}

func (b *BlobStore) Exists(articleID int64, serverFilename string) bool {
	p, err := b.Path(articleID, serverFilename)
	if err != nil {
		return false
	}
	_, err = os.Stat(p)
	return err == nil
}

// Remove удаляет файл статьи; отсутствие файла ошибкой не считается.
func (b *BlobStore) Remove(articleID int64, serverFilename string) error {
	p, err := b.Path(articleID, serverFilename)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &models.StorageError{Op: "remove", Path: p, Err: err}
	}
	return nil
}

// RemoveStaged удаляет файл из временной зоны.
func (b *BlobStore) RemoveStaged(tempPath string) error {
	if filepath.Dir(tempPath) != b.StagingDir() {
		return &models.StorageError{Op: "remove", Path: tempPath, Err: errors.New("файл вне временной зоны")}
	}
	if err := os.Remove(tempPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &models.StorageError{Op: "remove", Path: tempPath, Err: err}
	}
	return nil
}

// RemoveArticleDir удаляет каталог статьи целиком, продолжая после ошибок
// отдельных файлов; все ошибки возвращаются вместе.
func (b *BlobStore) RemoveArticleDir(articleID int64) error {
	dir := b.ArticleDir(articleID)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return &models.StorageError{Op: "readdir", Path: dir, Err: err}
	}

	var errs []error
	for _, e := range entries {
		p := filepath.Join(dir, e.Name())
		if err := os.RemoveAll(p); err != nil {
			errs = append(errs, &models.StorageError{Op: "remove", Path: p, Err: err})
		}
	}
	if err := os.Remove(dir); err != nil && !errors.Is(err, fs.ErrNotExist) {
		errs = append(errs, &models.StorageError{Op: "rmdir", Path: dir, Err: err})
	}
	return errors.Join(errs...)
}

func (b *BlobStore) List(articleID int64) ([]FileInfo, error) {
	return listDir(b.ArticleDir(articleID))
}

func (b *BlobStore) ListStaged() ([]FileInfo, error) {
	return listDir(b.StagingDir())
}

// ListArticleDirs возвращает id статей, для которых есть каталог.
func (b *BlobStore) ListArticleDirs() ([]int64, error) {
	entries, err := os.ReadDir(b.root)
	if err != nil {
		return nil, &models.StorageError{Op: "readdir", Path: b.root, Err: err}
	}
	var ids []int64
	for _, e := range entries {
		if !e.IsDir() || e.Name() == stagingDirName {
			continue
		}
		id, err := strconv.ParseInt(e.Name(), 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (b *BlobStore) DirModTime(articleID int64) (time.Time, error) {
	st, err := os.Stat(b.ArticleDir(articleID))
	if err != nil {
		return time.Time{}, err
	}
	return st.ModTime(), nil
}

func listDir(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &models.StorageError{Op: "readdir", Path: dir, Err: err}
	}
	out := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, FileInfo{Name: e.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
