package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	VersionsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wikihub_article_versions_created_total",
		Help: "Созданные версии статей по типу операции",
	}, []string{"op"})

	VersionConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wikihub_article_version_conflicts_total",
		Help: "Проигранные гонки за номер версии",
	})

	AttachmentsBound = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wikihub_attachments_bound_total",
		Help: "Строки вложений по способу привязки",
	}, []string{"kind"})

	BlobFilesRemoved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wikihub_blob_files_removed_total",
		Help: "Удалённые с диска файлы по причине",
	}, []string{"reason"})

	BlobCleanupFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wikihub_blob_cleanup_failures_total",
		Help: "Ошибки файловой очистки, не прервавшие операцию",
	})

	EditDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wikihub_lineage_operation_seconds",
		Help:    "Длительность операций create/update/delete",
		Buckets: prometheus.DefBuckets,
	}, []string{"op", "outcome"})
)
