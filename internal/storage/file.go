package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

const (
	interviewsDir   = "interviews"
	usersDir        = "users"
	interviewPrefix = "interview_"
	userPrefix      = "user_"
)

// FileStore хранит записи в JSON файлах, по файлу на запись
type FileStore struct {
	dir string
	mu  sync.RWMutex
}

// NewFileStore создает файловое хранилище в каталоге dir
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = "results"
	}
	for _, sub := range []string{interviewsDir, usersDir} {
		path := filepath.Join(dir, sub)
		if err := os.MkdirAll(path, 0755); err != nil {
			return nil, fmt.Errorf("ошибка создания директории %s: %w", path, err)
		}
	}
	return &FileStore{dir: dir}, nil
}

// SaveInterview сохраняет интервью в JSON файл
func (s *FileStore) SaveInterview(_ context.Context, rec *InterviewRecord) error {
	if err := validID(rec.ID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(s.path(interviewsDir, interviewPrefix, rec.ID), rec)
}

// GetInterview загружает интервью из JSON файла
func (s *FileStore) GetInterview(_ context.Context, id string) (*InterviewRecord, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rec InterviewRecord
	if err := s.read(s.path(interviewsDir, interviewPrefix, id), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListInterviews читает все интервью из каталога и фильтрует по пользователю
func (s *FileStore) ListInterviews(_ context.Context, userID string) ([]InterviewRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dir := filepath.Join(s.dir, interviewsDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения директории %s: %w", dir, err)
	}

	records := []InterviewRecord{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" || !strings.HasPrefix(name, interviewPrefix) {
			continue
		}

		var rec InterviewRecord
		if err := s.read(filepath.Join(dir, name), &rec); err != nil {
			return nil, err
		}
		if userID != "" && rec.UserID != userID {
			continue
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

// SaveUser сохраняет профиль пользователя
func (s *FileStore) SaveUser(_ context.Context, user *User) error {
	if err := validID(user.ID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(s.path(usersDir, userPrefix, user.ID), user)
}

// GetUser загружает профиль пользователя
func (s *FileStore) GetUser(_ context.Context, id string) (*User, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var user User
	if err := s.read(s.path(usersDir, userPrefix, id), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) path(sub, prefix, id string) string {
	return filepath.Join(s.dir, sub, prefix+id+".json")
}

func (s *FileStore) write(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("ошибка сериализации: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("ошибка записи файла %s: %w", path, err)
	}
	return nil
}

func (s *FileStore) read(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("ошибка чтения файла %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("ошибка десериализации %s: %w", path, err)
	}
	return nil
}

// validID не пускает в имя файла разделители путей
func validID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return fmt.Errorf("invalid record id %q", id)
	}
	return nil
}
