// internal/services/notifier.go
package services

import "time"

const (
	EventArticleCreated = "article-created"
	EventArticleUpdated = "article-updated"
	EventArticleDeleted = "article-deleted"
)

// Notifier: порт уведомлений. Вызов не должен блокироваться,
// результат не ждём и не повторяем.
type Notifier interface {
	Notify(event string, payload any)
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, any) {}

func NopNotifier() Notifier { return nopNotifier{} }

type ArticleEvent struct {
	Type      string `json:"type"`
	ID        int64  `json:"id"`
	Title     string `json:"title,omitempty"`
	Version   int    `json:"version,omitempty"`
	Timestamp string `json:"timestamp"`
}

func newArticleEvent(kind string, id int64, title string, version int, at time.Time) ArticleEvent {
	return ArticleEvent{
		Type:      kind,
		ID:        id,
		Title:     title,
		Version:   version,
		Timestamp: at.UTC().Format(time.RFC3339Nano),
	}
}
