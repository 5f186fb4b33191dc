package models

import "time"

type Workspace struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Label     string    `json:"label"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type WorkspaceRequest struct {
	Name  string `json:"name"  validate:"required,min=1,max=100"`
	Label string `json:"label" validate:"required,min=1,max=200"`
}

type Comment struct {
	ID        int64     `json:"id"`
	ArticleID int64     `json:"articleId"`
	Author    *string   `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type CreateCommentRequest struct {
	Author  *string `json:"author"`
	Content string  `json:"content" validate:"required,min=1"`
}

type UpdateCommentRequest struct {
	Author  *string `json:"author"`
	Content *string `json:"content" validate:"omitempty,min=1"`
}
