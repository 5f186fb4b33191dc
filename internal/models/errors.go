package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound возвращают репозитории, когда строки нет.
	ErrNotFound = errors.New("не найдено")
	// ErrVersionTaken: нарушение уникальности (article_id, version).
	ErrVersionTaken = errors.New("номер версии уже занят")
	// ErrValidation: общий маркер для всех ошибок входных данных.
	ErrValidation = errors.New("некорректные данные")
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Message: msg}
}

type QuotaError struct {
	Limit int
	Got   int
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("слишком много вложений: %d, максимум %d", e.Got, e.Limit)
}

func (e *QuotaError) Is(target error) bool { return target == ErrValidation }

type UnsupportedMediaTypeError struct {
	FileName string
	MimeType string
}

func (e *UnsupportedMediaTypeError) Error() string {
	return fmt.Sprintf("недопустимый тип файла %q (%s): разрешены только изображения и PDF", e.FileName, e.MimeType)
}

func (e *UnsupportedMediaTypeError) Is(target error) bool { return target == ErrValidation }

type NotFoundError struct {
	Entity string
	ID     any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v не найден(а)", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ConflictError: гонка за номер версии проиграна или ресурс занят.
type ConflictError struct {
	ArticleID int64
	Expected  int
	Current   int
	Message   string
}

func (e *ConflictError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("статья %d уже изменена: ожидалась версия %d, текущая %d", e.ArticleID, e.Expected, e.Current)
}

type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("хранилище: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string {
	if e.Reason == "" {
		return "доступ запрещён"
	}
	return e.Reason
}

// PartialEditError: версия уже закоммичена, но последующий шаг не удался.
// Повторная правка создаст следующую версию.
type PartialEditError struct {
	ArticleID int64
	Version   int
	Err       error
}

func (e *PartialEditError) Error() string {
	return fmt.Sprintf("статья %d: версия %d сохранена частично: %v", e.ArticleID, e.Version, e.Err)
}

func (e *PartialEditError) Unwrap() error { return e.Err }
