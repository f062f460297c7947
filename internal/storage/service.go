package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Service сохраняет интервью поверх Store
type Service struct {
	store  Store
	logger zerolog.Logger
	now    func() time.Time
}

// NewService создает сервис сохранения
func NewService(store Store, logger zerolog.Logger) *Service {
	return &Service{store: store, logger: logger, now: time.Now}
}

// SaveInterview проверяет обязательные поля и сохраняет интервью.
// Ошибка уровня приложения возвращается в SaveResult.Error, транспортная вторым значением.
func (s *Service) SaveInterview(ctx context.Context, req SaveRequest) (SaveResult, error) {
	if missing := req.Missing(); len(missing) > 0 {
		return SaveResult{Error: "Missing required fields: " + strings.Join(missing, ", ")}, nil
	}

	rec := &InterviewRecord{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		Role:      req.Role,
		Type:      req.Type,
		Level:     req.Level,
		Amount:    req.Amount,
		TechStack: cleanList(req.TechStack),
		Questions: []string{},
		Finalized: true,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.SaveInterview(ctx, rec); err != nil {
		s.logger.Error().Err(err).Str("user_id", req.UserID).Msg("save interview failed")
		return SaveResult{Error: "Failed to save interview"}, fmt.Errorf("save interview: %w", err)
	}

	s.logger.Info().Str("interview_id", rec.ID).Str("user_id", rec.UserID).Msg("interview saved")
	return SaveResult{Success: true, Data: rec}, nil
}

// CreateInterview сохраняет интервью со сгенерированными вопросами
func (s *Service) CreateInterview(ctx context.Context, rec *InterviewRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now().UTC()
	}
	rec.TechStack = cleanList(rec.TechStack)
	rec.Questions = cleanList(rec.Questions)
	return s.store.SaveInterview(ctx, rec)
}

func (s *Service) GetInterview(ctx context.Context, id string) (*InterviewRecord, error) {
	return s.store.GetInterview(ctx, id)
}

func (s *Service) ListInterviews(ctx context.Context, userID string) ([]InterviewRecord, error) {
	return s.store.ListInterviews(ctx, userID)
}

func (s *Service) SaveUser(ctx context.Context, user *User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now().UTC()
	}
	return s.store.SaveUser(ctx, user)
}

func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	return s.store.GetUser(ctx, id)
}

// SplitList разбирает список через запятую, как его присылает форма
func SplitList(raw string) []string {
	return cleanList(strings.Split(raw, ","))
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
