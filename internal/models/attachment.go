package models

import "time"

// Attachment привязывает файл к одной версии. При переносе в новую версию
// создаётся новая строка с тем же ServerFilename.
type Attachment struct {
	ID               int64     `db:"id"                 json:"id"`
	ArticleID        int64     `db:"article_id"         json:"articleId"`
	ArticleVersionID int64     `db:"article_version_id" json:"articleVersionId"`
	ServerFilename   string    `db:"server_filename"    json:"serverFilename"`
	OriginalFilename string    `db:"original_filename"  json:"originalFilename"`
	MimeType         string    `db:"mime_type"          json:"mimeType"`
	UploadedAt       time.Time `db:"uploaded_at"        json:"uploadedAt"`
}

// StagedUpload: файл, уже лежащий во временной зоне загрузок.
type StagedUpload struct {
	TempPath     string
	OriginalName string
	MimeType     string
}

// PlacedFile: файл, перемещённый в каталог статьи, но ещё не привязанный к строке.
type PlacedFile struct {
	ServerFilename   string
	OriginalFilename string
	MimeType         string
}
