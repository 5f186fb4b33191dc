package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"wikihub/internal/models"
	"wikihub/internal/repository"
)

// memState: таблицы in-memory хранилища. Транзакция работает на копии.
type memState struct {
	seq         map[string]int64
	articles    map[int64]models.Article
	versions    map[int64]models.ArticleVersion
	attachments map[int64]models.Attachment
	comments    map[int64]models.Comment
	workspaces  map[int64]models.Workspace
}

func newMemState() *memState {
	return &memState{
		seq:         map[string]int64{},
		articles:    map[int64]models.Article{},
		versions:    map[int64]models.ArticleVersion{},
		attachments: map[int64]models.Attachment{},
		comments:    map[int64]models.Comment{},
		workspaces:  map[int64]models.Workspace{},
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for k, v := range s.seq {
		c.seq[k] = v
	}
	for k, v := range s.articles {
		c.articles[k] = v
	}
	for k, v := range s.versions {
		c.versions[k] = v
	}
	for k, v := range s.attachments {
		c.attachments[k] = v
	}
	for k, v := range s.comments {
		c.comments[k] = v
	}
	for k, v := range s.workspaces {
		c.workspaces[k] = v
	}
	return c
}

func (s *memState) next(table string) int64 {
	s.seq[table]++
	return s.seq[table]
}

// memStore: Store для тестов: транзакции выполняются по одной,
// при ошибке изменения отбрасываются.
type memStore struct {
	txMu   sync.Mutex
	dataMu sync.RWMutex
	state  *memState

	// хуки для имитации сбоев
	failCommit        error
	failCommentList   error
	versionInsertHook func(v *models.ArticleVersion) error
}

func newMemStore() *memStore {
	return &memStore{state: newMemState()}
}

// memView: доступ к таблицам: напрямую к зафиксированному состоянию или к копии транзакции.
type memView interface {
	read(fn func(s *memState) error) error
	write(fn func(s *memState) error) error
}

type directView struct{ m *memStore }

func (d directView) read(fn func(s *memState) error) error {
	d.m.dataMu.RLock()
	defer d.m.dataMu.RUnlock()
	return fn(d.m.state)
}

func (d directView) write(fn func(s *memState) error) error {
	d.m.dataMu.Lock()
	defer d.m.dataMu.Unlock()
	return fn(d.m.state)
}

type txView struct{ s *memState }

func (t txView) read(fn func(s *memState) error) error  { return fn(t.s) }
func (t txView) write(fn func(s *memState) error) error { return fn(t.s) }

func (m *memStore) Repos() repository.Repos { return m.repos(directView{m: m}) }

func (m *memStore) repos(v memView) repository.Repos {
	return repository.Repos{
		Articles:    &memArticles{v: v},
		Versions:    &memVersions{v: v, m: m},
		Attachments: &memAttachments{v: v},
		Comments:    &memComments{v: v, m: m},
		Workspaces:  &memWorkspaces{v: v},
	}
}

func (m *memStore) InTx(ctx context.Context, fn func(r repository.Repos) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.dataMu.RLock()
	work := m.state.clone()
	m.dataMu.RUnlock()

	if err := fn(m.repos(txView{s: work})); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.failCommit != nil {
		err := m.failCommit
		m.failCommit = nil
		return err
	}
	m.dataMu.Lock()
	m.state = work
	m.dataMu.Unlock()
	return nil
}

// snapshot возвращает копию зафиксированного состояния для проверок.
func (m *memStore) snapshot() *memState {
	m.dataMu.RLock()
	defer m.dataMu.RUnlock()
	return m.state.clone()
}

func (m *memStore) mutate(fn func(s *memState)) {
	m.dataMu.Lock()
	defer m.dataMu.Unlock()
	fn(m.state)
}

func (m *memStore) addWorkspace(name string) models.Workspace {
	var w models.Workspace
	m.mutate(func(s *memState) {
		now := time.Now()
		w = models.Workspace{ID: s.next("workspaces"), Name: name, Label: strings.ToUpper(name[:1]) + name[1:], CreatedAt: now, UpdatedAt: now}
		s.workspaces[w.ID] = w
	})
	return w
}

// versionsOf: строки журнала статьи по возрастанию номера.
func (s *memState) versionsOf(articleID int64) []models.ArticleVersion {
	var out []models.ArticleVersion
	for _, v := range s.versions {
		if v.ArticleID == articleID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out
}

func (s *memState) attachmentsOf(versionID int64) []models.Attachment {
	var out []models.Attachment
	for _, a := range s.attachments {
		if a.ArticleVersionID == versionID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ─── articles ───

type memArticles struct{ v memView }

func (r *memArticles) Create(_ context.Context, a *models.Article) error {
	return r.v.write(func(s *memState) error {
		now := time.Now()
		a.ID = s.next("articles")
		a.CreatedAt, a.UpdatedAt = now, now
		s.articles[a.ID] = *a
		return nil
	})
}

func (r *memArticles) GetByID(_ context.Context, id int64) (*models.Article, error) {
	var out *models.Article
	err := r.v.read(func(s *memState) error {
		a, ok := s.articles[id]
		if !ok {
			return models.ErrNotFound
		}
		out = &a
		return nil
	})
	return out, err
}

func (r *memArticles) GetForUpdate(ctx context.Context, id int64) (*models.Article, error) {
	return r.GetByID(ctx, id)
}

func (r *memArticles) AdvanceVersion(_ context.Context, id int64, from, to int, workspaceID int64) (bool, error) {
	var ok bool
	err := r.v.write(func(s *memState) error {
		a, found := s.articles[id]
		if !found || a.CurrentVersion != from || a.Deleting {
			return nil
		}
		a.CurrentVersion, a.WorkspaceID, a.UpdatedAt = to, workspaceID, time.Now()
		s.articles[id] = a
		ok = true
		return nil
	})
	return ok, err
}

func (r *memArticles) SetCurrentVersion(_ context.Context, id int64, version int) error {
	return r.v.write(func(s *memState) error {
		a, ok := s.articles[id]
		if !ok {
			return models.ErrNotFound
		}
		a.CurrentVersion = version
		s.articles[id] = a
		return nil
	})
}

func (r *memArticles) MarkDeleting(_ context.Context, id int64) (bool, error) {
	var ok bool
	err := r.v.write(func(s *memState) error {
		a, found := s.articles[id]
		if !found || a.Deleting {
			return nil
		}
		a.Deleting = true
		s.articles[id] = a
		ok = true
		return nil
	})
	return ok, err
}

func (r *memArticles) Delete(_ context.Context, id int64) error {
	return r.v.write(func(s *memState) error {
		delete(s.articles, id)
		return nil
	})
}

func (r *memArticles) List(_ context.Context, p models.ArticleListParams) ([]models.ArticleSummary, int, error) {
	var all []models.ArticleSummary
	err := r.v.read(func(s *memState) error {
		q := strings.ToLower(p.Query)
		for _, a := range s.articles {
			if a.Deleting || (p.WorkspaceID > 0 && a.WorkspaceID != p.WorkspaceID) {
				continue
			}
			var cur models.ArticleVersion
			for _, v := range s.versions {
				if v.ArticleID == a.ID && v.Version == a.CurrentVersion {
					cur = v
				}
			}
			if q != "" && !strings.Contains(strings.ToLower(cur.Title), q) && !strings.Contains(strings.ToLower(cur.Content), q) {
				continue
			}
			all = append(all, models.ArticleSummary{
				ID: a.ID, Title: cur.Title, WorkspaceID: a.WorkspaceID,
				CurrentVersion: a.CurrentVersion, CreatedAt: a.CreatedAt, UpdatedAt: a.UpdatedAt,
			})
		}
		return nil
	})
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := len(all)
	from := (p.Page - 1) * p.Limit
	if from > total {
		from = total
	}
	to := from + p.Limit
	if to > total {
		to = total
	}
	return all[from:to], total, err
}

func (r *memArticles) ListIDs(_ context.Context) ([]int64, error) {
	var ids []int64
	err := r.v.read(func(s *memState) error {
		for id, a := range s.articles {
			if !a.Deleting {
				ids = append(ids, id)
			}
		}
		return nil
	})
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, err
}

func (r *memArticles) CountByWorkspace(_ context.Context, workspaceID int64) (int, error) {
	n := 0
	err := r.v.read(func(s *memState) error {
		for _, a := range s.articles {
			used := a.WorkspaceID == workspaceID
			for _, v := range s.versions {
				if v.ArticleID == a.ID && v.WorkspaceID == workspaceID {
					used = true
				}
			}
			if used {
				n++
			}
		}
		return nil
	})
	return n, err
}

// ─── versions ───

type memVersions struct {
	v memView
	m *memStore
}

func (r *memVersions) Insert(_ context.Context, v *models.ArticleVersion) error {
	if hook := r.m.versionInsertHook; hook != nil {
		if err := hook(v); err != nil {
			return err
		}
	}
	return r.v.write(func(s *memState) error {
		for _, existing := range s.versions {
			if existing.ArticleID == v.ArticleID && existing.Version == v.Version {
				return fmt.Errorf("статья %d, версия %d: %w", v.ArticleID, v.Version, models.ErrVersionTaken)
			}
		}
		v.ID = s.next("versions")
		v.CreatedAt = time.Now()
		s.versions[v.ID] = *v
		return nil
	})
}

func (r *memVersions) Get(_ context.Context, articleID int64, version int) (*models.ArticleVersion, error) {
	var out *models.ArticleVersion
	err := r.v.read(func(s *memState) error {
		for _, v := range s.versions {
			if v.ArticleID == articleID && v.Version == version {
				v := v
				out = &v
				return nil
			}
		}
		return models.ErrNotFound
	})
	return out, err
}

func (r *memVersions) List(_ context.Context, articleID int64) ([]models.VersionSummary, error) {
	var out []models.VersionSummary
	err := r.v.read(func(s *memState) error {
		vs := s.versionsOf(articleID)
		for i := len(vs) - 1; i >= 0; i-- {
			out = append(out, models.VersionSummary{ID: vs[i].ID, Version: vs[i].Version, Title: vs[i].Title, CreatedAt: vs[i].CreatedAt})
		}
		return nil
	})
	return out, err
}

func (r *memVersions) MaxVersion(_ context.Context, articleID int64) (int, error) {
	max := 0
	err := r.v.read(func(s *memState) error {
		for _, v := range s.versions {
			if v.ArticleID == articleID && v.Version > max {
				max = v.Version
			}
		}
		return nil
	})
	return max, err
}

func (r *memVersions) DeleteByArticle(_ context.Context, articleID int64) error {
	return r.v.write(func(s *memState) error {
		for id, v := range s.versions {
			if v.ArticleID == articleID {
				delete(s.versions, id)
			}
		}
		return nil
	})
}

// ─── attachments ───

type memAttachments struct{ v memView }

func (r *memAttachments) Insert(_ context.Context, a *models.Attachment) error {
	return r.v.write(func(s *memState) error {
		for _, existing := range s.attachments {
			if existing.ArticleVersionID == a.ArticleVersionID && existing.ServerFilename == a.ServerFilename {
				return fmt.Errorf("вложение %s уже привязано к версии %d", a.ServerFilename, a.ArticleVersionID)
			}
		}
		a.ID = s.next("attachments")
		s.attachments[a.ID] = *a
		return nil
	})
}

func (r *memAttachments) ListByVersion(_ context.Context, versionID int64) ([]models.Attachment, error) {
	var out []models.Attachment
	err := r.v.read(func(s *memState) error {
		out = s.attachmentsOf(versionID)
		return nil
	})
	return out, err
}

func (r *memAttachments) CountReferences(_ context.Context, articleID int64, serverFilename string) (int, error) {
	n := 0
	err := r.v.read(func(s *memState) error {
		for _, a := range s.attachments {
			if a.ArticleID == articleID && a.ServerFilename == serverFilename {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *memAttachments) ListFilenames(_ context.Context, articleID int64) ([]string, error) {
	seen := map[string]struct{}{}
	var out []string
	err := r.v.read(func(s *memState) error {
		for _, a := range s.attachments {
			if a.ArticleID != articleID {
				continue
			}
			if _, ok := seen[a.ServerFilename]; !ok {
				seen[a.ServerFilename] = struct{}{}
				out = append(out, a.ServerFilename)
			}
		}
		return nil
	})
	sort.Strings(out)
	return out, err
}

func (r *memAttachments) DeleteByArticle(_ context.Context, articleID int64) error {
	return r.v.write(func(s *memState) error {
		for id, a := range s.attachments {
			if a.ArticleID == articleID {
				delete(s.attachments, id)
			}
		}
		return nil
	})
}

// ─── comments ───

type memComments struct {
	v memView
	m *memStore
}

func (r *memComments) Create(_ context.Context, c *models.Comment) error {
	return r.v.write(func(s *memState) error {
		now := time.Now()
		c.ID = s.next("comments")
		c.CreatedAt, c.UpdatedAt = now, now
		s.comments[c.ID] = *c
		return nil
	})
}

func (r *memComments) GetByID(_ context.Context, id int64) (*models.Comment, error) {
	var out *models.Comment
	err := r.v.read(func(s *memState) error {
		c, ok := s.comments[id]
		if !ok {
			return models.ErrNotFound
		}
		out = &c
		return nil
	})
	return out, err
}

func (r *memComments) Update(_ context.Context, c *models.Comment) error {
	return r.v.write(func(s *memState) error {
		if _, ok := s.comments[c.ID]; !ok {
			return models.ErrNotFound
		}
		c.UpdatedAt = time.Now()
		s.comments[c.ID] = *c
		return nil
	})
}

func (r *memComments) Delete(_ context.Context, id int64) (bool, error) {
	var ok bool
	err := r.v.write(func(s *memState) error {
		_, ok = s.comments[id]
		delete(s.comments, id)
		return nil
	})
	return ok, err
}

func (r *memComments) ListByArticle(_ context.Context, articleID int64) ([]models.Comment, error) {
	if r.m.failCommentList != nil {
		return nil, r.m.failCommentList
	}
	var out []models.Comment
	err := r.v.read(func(s *memState) error {
		for _, c := range s.comments {
			if c.ArticleID == articleID {
				out = append(out, c)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r *memComments) DeleteByArticle(_ context.Context, articleID int64) error {
	return r.v.write(func(s *memState) error {
		for id, c := range s.comments {
			if c.ArticleID == articleID {
				delete(s.comments, id)
			}
		}
		return nil
	})
}

// ─── workspaces ───

type memWorkspaces struct{ v memView }

func (r *memWorkspaces) Create(_ context.Context, w *models.Workspace) error {
	return r.v.write(func(s *memState) error {
		for _, existing := range s.workspaces {
			if existing.Name == w.Name {
				return repository.ErrWorkspaceNameTaken
			}
		}
		now := time.Now()
		w.ID = s.next("workspaces")
		w.CreatedAt, w.UpdatedAt = now, now
		s.workspaces[w.ID] = *w
		return nil
	})
}

func (r *memWorkspaces) GetByID(_ context.Context, id int64) (*models.Workspace, error) {
	var out *models.Workspace
	err := r.v.read(func(s *memState) error {
		w, ok := s.workspaces[id]
		if !ok {
			return models.ErrNotFound
		}
		out = &w
		return nil
	})
	return out, err
}

func (r *memWorkspaces) List(_ context.Context) ([]models.Workspace, error) {
	var out []models.Workspace
	err := r.v.read(func(s *memState) error {
		for _, w := range s.workspaces {
			out = append(out, w)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

func (r *memWorkspaces) Update(_ context.Context, w *models.Workspace) error {
	return r.v.write(func(s *memState) error {
		old, ok := s.workspaces[w.ID]
		if !ok {
			return models.ErrNotFound
		}
		for _, existing := range s.workspaces {
			if existing.ID != w.ID && existing.Name == w.Name {
				return repository.ErrWorkspaceNameTaken
			}
		}
		w.CreatedAt, w.UpdatedAt = old.CreatedAt, time.Now()
		s.workspaces[w.ID] = *w
		return nil
	})
}

func (r *memWorkspaces) Delete(_ context.Context, id int64) (bool, error) {
	var ok bool
	err := r.v.write(func(s *memState) error {
		for _, a := range s.articles {
			if a.WorkspaceID == id {
				return repository.ErrWorkspaceInUse
			}
		}
		_, ok = s.workspaces[id]
		delete(s.workspaces, id)
		return nil
	})
	return ok, err
}

func (r *memWorkspaces) Exists(_ context.Context, id int64) (bool, error) {
	var ok bool
	err := r.v.read(func(s *memState) error {
		_, ok = s.workspaces[id]
		return nil
	})
	return ok, err
}
