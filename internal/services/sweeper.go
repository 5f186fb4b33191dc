package services

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"wikihub/internal/logger"
	"wikihub/internal/metrics"
	"wikihub/internal/models"
	"wikihub/internal/repository"
	"wikihub/internal/storage"

	"go.uber.org/zap"
)

type SweepReport struct {
	StagedRemoved       int `json:"stagedRemoved"`
	UnreferencedRemoved int `json:"unreferencedRemoved"`
	DirsRemoved         int `json:"dirsRemoved"`
	Failures            int `json:"failures"`
}

type RepairReport struct {
	Checked  int     `json:"checked"`
	Repaired []int64 `json:"repaired"`
	Failed   []int64 `json:"failed"`
}

// Sweeper убирает файлы, на которые не появилось строк, и чинит указатели
// текущих версий. Всё моложе grace не трогается: это могут быть правки в работе.
type Sweeper struct {
	store  repository.Store
	blobs  *storage.BlobStore
	ledger *VersionLedger
	grace  time.Duration
	now    func() time.Time
}

func NewSweeper(store repository.Store, blobs *storage.BlobStore, ledger *VersionLedger, grace time.Duration) *Sweeper {
	return &Sweeper{store: store, blobs: blobs, ledger: ledger, grace: grace, now: time.Now}
}

func (s *Sweeper) expired(t time.Time) bool {
	return s.now().Sub(t) >= s.grace
}

func (s *Sweeper) SweepOrphans(ctx context.Context) (SweepReport, error) {
	log := logger.WithCtx(ctx)
	var rep SweepReport

	staged, err := s.blobs.ListStaged()
	if err != nil {
		return rep, err
	}
	for _, f := range staged {
		if !s.expired(f.ModTime) {
			continue
		}
		if err := s.blobs.RemoveStaged(filepath.Join(s.blobs.StagingDir(), f.Name)); err != nil {
			rep.Failures++
			metrics.BlobCleanupFailures.Inc()
			log.Warn("Не удалось удалить временный файл", zap.String("file", f.Name), zap.Error(err))
			continue
		}
		rep.StagedRemoved++
		metrics.BlobFilesRemoved.WithLabelValues("staged").Inc()
	}

	r := s.store.Repos()
	ids, err := r.Articles.ListIDs(ctx)
	if err != nil {
		return rep, err
	}
	live := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		live[id] = struct{}{}
	}

	dirs, err := s.blobs.ListArticleDirs()
	if err != nil {
		return rep, err
	}
	for _, id := range dirs {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		if _, ok := live[id]; !ok {
			s.sweepDir(ctx, id, &rep)
			continue
		}
		s.sweepFiles(ctx, r, id, &rep)
	}

	log.Info("Очистка файлов завершена",
		zap.Int("staged", rep.StagedRemoved),
		zap.Int("unreferenced", rep.UnreferencedRemoved),
		zap.Int("dirs", rep.DirsRemoved),
		zap.Int("failures", rep.Failures),
	)
	return rep, nil
}

func (s *Sweeper) sweepDir(ctx context.Context, id int64, rep *SweepReport) {
	mt, err := s.blobs.DirModTime(id)
	if err != nil || !s.expired(mt) {
		return
	}
	if err := s.blobs.RemoveArticleDir(id); err != nil {
		rep.Failures++
		metrics.BlobCleanupFailures.Inc()
		logger.WithCtx(ctx).Warn("Не удалось удалить каталог без статьи", zap.Int64("article_id", id), zap.Error(err))
		return
	}
	rep.DirsRemoved++
	metrics.BlobFilesRemoved.WithLabelValues("orphan_dir").Inc()
}

func (s *Sweeper) sweepFiles(ctx context.Context, r repository.Repos, id int64, rep *SweepReport) {
	log := logger.WithCtx(ctx)
	files, err := s.blobs.List(id)
	if err != nil {
		rep.Failures++
		log.Warn("Не удалось прочитать каталог статьи", zap.Int64("article_id", id), zap.Error(err))
		return
	}
	for _, f := range files {
		if !s.expired(f.ModTime) {
			continue
		}
		refs, err := r.Attachments.CountReferences(ctx, id, f.Name)
		if err != nil {
			rep.Failures++
			log.Warn("Не удалось посчитать ссылки", zap.Int64("article_id", id), zap.String("file", f.Name), zap.Error(err))
			continue
		}
		if refs > 0 {
			continue
		}
		if err := s.blobs.Remove(id, f.Name); err != nil {
			rep.Failures++
			metrics.BlobCleanupFailures.Inc()
			log.Warn("Не удалось удалить файл без ссылок", zap.Int64("article_id", id), zap.String("file", f.Name), zap.Error(err))
			continue
		}
		rep.UnreferencedRemoved++
		metrics.BlobFilesRemoved.WithLabelValues("orphan").Inc()
	}
}

// RepairLedger сверяет указатель текущей версии с журналом для всех статей.
func (s *Sweeper) RepairLedger(ctx context.Context) (RepairReport, error) {
	log := logger.WithCtx(ctx)
	rep := RepairReport{Repaired: []int64{}, Failed: []int64{}}

	ids, err := s.store.Repos().Articles.ListIDs(ctx)
	if err != nil {
		return rep, err
	}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		rep.Checked++
		var fixed bool
		err := s.store.InTx(ctx, func(r repository.Repos) error {
			if _, err := r.Articles.GetForUpdate(ctx, id); err != nil {
				return err
			}
			var err error
			fixed, err = s.ledger.Repair(ctx, r, id)
			return err
		})
		if errors.Is(err, models.ErrNotFound) {
			continue
		}
		if err != nil {
			rep.Failed = append(rep.Failed, id)
			log.Error("Ошибка ремонта указателя версии", zap.Int64("article_id", id), zap.Error(err))
			continue
		}
		if fixed {
			rep.Repaired = append(rep.Repaired, id)
		}
	}
	log.Info("Ремонт указателей завершён",
		zap.Int("checked", rep.Checked), zap.Int("repaired", len(rep.Repaired)), zap.Int("failed", len(rep.Failed)))
	return rep, nil
}

// Start запускает периодическую очистку до отмены ctx.
func (s *Sweeper) Start(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if _, err := s.RepairLedger(ctx); err != nil {
					logger.Log.Error("Периодический ремонт указателей завершился ошибкой", zap.Error(err))
				}
				if _, err := s.SweepOrphans(ctx); err != nil {
					logger.Log.Error("Периодическая очистка файлов завершилась ошибкой", zap.Error(err))
				}
			}
		}
	}()
}
