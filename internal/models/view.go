package models

import "time"

// ArticleView: ответ на просмотр статьи (последней или исторической версии).
type ArticleView struct {
	ID            int64            `json:"id"`
	Title         string           `json:"title"`
	Content       string           `json:"content"`
	Attachments   []AttachmentView `json:"attachments"`
	Comments      []CommentView    `json:"comments"`
	Workspace     *WorkspaceView   `json:"workspace"`
	CreatorID     *int64           `json:"creatorId,omitempty"`
	ViewVersion   int              `json:"viewVersion"`
	LatestVersion int              `json:"latestVersion"`
	IsLatest      bool             `json:"isLatest"`
	Readonly      bool             `json:"readonly"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

type AttachmentView struct {
	ID           int64  `json:"id"`
	FileName     string `json:"fileName"`
	OriginalName string `json:"originalName"`
	MimeType     string `json:"mimeType"`
	URL          string `json:"url"`
}

type CommentView struct {
	ID        int64     `json:"id"`
	Author    *string   `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type WorkspaceView struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Label string `json:"label"`
}
