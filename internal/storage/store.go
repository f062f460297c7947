package storage

import "context"

// Store хранит интервью и профили пользователей
type Store interface {
	SaveInterview(ctx context.Context, rec *InterviewRecord) error
	GetInterview(ctx context.Context, id string) (*InterviewRecord, error)
	// ListInterviews возвращает интервью пользователя, новые первыми.
	// Пустой userID означает все интервью.
	ListInterviews(ctx context.Context, userID string) ([]InterviewRecord, error)
	SaveUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	Close() error
}
