package models

import "time"

// Article: корень идентичности; заголовок и контент живут в версиях.
type Article struct {
	ID             int64     `db:"id"              json:"id"`
	WorkspaceID    int64     `db:"workspace_id"    json:"workspaceId"`
	CreatorID      *int64    `db:"creator_id"      json:"creatorId,omitempty"`
	CurrentVersion int       `db:"current_version" json:"currentVersion"`
	Deleting       bool      `db:"deleting"        json:"-"`
	CreatedAt      time.Time `db:"created_at"      json:"createdAt"`
	UpdatedAt      time.Time `db:"updated_at"      json:"updatedAt"`
}

// ArticleVersion: неизменяемый снимок статьи.
type ArticleVersion struct {
	ID          int64     `db:"id"           json:"id"`
	ArticleID   int64     `db:"article_id"   json:"articleId"`
	Version     int       `db:"version"      json:"version"`
	Title       string    `db:"title"        json:"title"`
	Content     string    `db:"content"      json:"content"`
	WorkspaceID int64     `db:"workspace_id" json:"workspaceId"`
	CreatedAt   time.Time `db:"created_at"   json:"createdAt"`
}

type VersionSummary struct {
	ID        int64     `json:"id"`
	Version   int       `json:"version"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}

type VersionList struct {
	ArticleID     int64            `json:"articleId"`
	LatestVersion int              `json:"latestVersion"`
	Versions      []VersionSummary `json:"versions"`
}

// ArticleSummary: строка списка статей, поля берутся из текущей версии.
type ArticleSummary struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	WorkspaceID    int64     `json:"workspaceId"`
	CurrentVersion int       `json:"currentVersion"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type ArticlePage struct {
	Items []ArticleSummary `json:"items"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
	Total int              `json:"total"`
	Pages int              `json:"pages"`
}

type ArticleListParams struct {
	Page        int
	Limit       int
	WorkspaceID int64
	Query       string
}

// swagger:model CreateArticleRequest
type CreateArticleRequest struct {
	Title       string `json:"title"       validate:"required,min=1,max=200" example:"Как устроены версии"`
	Content     string `json:"content"     validate:"required,min=1"         example:"<p>Контент</p>"`
	WorkspaceID int64  `json:"workspaceId" validate:"required,gt=0"          example:"1"`
}

// swagger:model UpdateArticleRequest
type UpdateArticleRequest struct {
	Title       *string `json:"title,omitempty"       validate:"omitempty,min=1,max=200"`
	Content     *string `json:"content,omitempty"     validate:"omitempty,min=1"`
	WorkspaceID *int64  `json:"workspaceId,omitempty" validate:"omitempty,gt=0"`
	// Deleted: JSON-массив serverFilename, которые не переносятся в новую версию.
	Deleted string `json:"deleted,omitempty"`
	// BaseVersion: версия, которую видел редактор; при расхождении ConflictError.
	BaseVersion *int `json:"baseVersion,omitempty" validate:"omitempty,gt=0"`
}

// VersionSelector выбирает последнюю или конкретную версию.
type VersionSelector struct {
	Latest bool
	Number int
}

func LatestVersion() VersionSelector { return VersionSelector{Latest: true} }

func VersionNumber(n int) VersionSelector { return VersionSelector{Number: n} }
