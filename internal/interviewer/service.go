// Package interviewer генерирует вопросы интервью через LLM и сохраняет готовое интервью.
package interviewer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"interview-voice-agent/internal/api"
	"interview-voice-agent/internal/config"
	"interview-voice-agent/internal/metrics"
	"interview-voice-agent/internal/prompts"
	"interview-voice-agent/internal/storage"
)

// ErrInvalidRequest возвращается, если запрос на генерацию не прошел проверку
var ErrInvalidRequest = errors.New("invalid generation request")

// Completer отвечает на промпт текстом
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Store сохраняет сгенерированное интервью
type Store interface {
	CreateInterview(ctx context.Context, rec *storage.InterviewRecord) error
}

// GenerateRequest содержит параметры генерации
type GenerateRequest struct {
	Type      string
	Role      string
	Level     string
	TechStack []string
	Amount    int
	UserID    string
}

// Service представляет сервис генерации вопросов
type Service struct {
	llm    Completer
	store  Store
	cfg    *config.Config
	logger zerolog.Logger
}

// New создает сервис генерации
func New(llm Completer, store Store, cfg *config.Config, logger zerolog.Logger) *Service {
	return &Service{llm: llm, store: store, cfg: cfg, logger: logger}
}

// Generate запрашивает вопросы у модели и сохраняет интервью с finalized=true.
// Один запрос без повторов.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*storage.InterviewRecord, error) {
	req, err := s.normalize(req)
	if err != nil {
		return nil, err
	}

	prompt := prompts.GenerateQuestionsPrompt(prompts.QuestionParams{
		Role:      req.Role,
		Level:     req.Level,
		TechStack: req.TechStack,
		Type:      req.Type,
		Amount:    req.Amount,
	})

	raw, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("ошибка генерации вопросов: %w", err)
	}

	questions, err := ParseQuestions(raw)
	if err != nil {
		return nil, err
	}
	metrics.QuestionsGenerated.Add(float64(len(questions)))

	rec := &storage.InterviewRecord{
		UserID:    req.UserID,
		Role:      req.Role,
		Type:      req.Type,
		Level:     req.Level,
		Amount:    strconv.Itoa(req.Amount),
		TechStack: req.TechStack,
		Questions: questions,
		Finalized: true,
	}
	if err := s.store.CreateInterview(ctx, rec); err != nil {
		return nil, fmt.Errorf("ошибка сохранения интервью: %w", err)
	}

	s.logger.Info().
		Str("interview_id", rec.ID).
		Str("user_id", rec.UserID).
		Int("questions", len(questions)).
		Msg("interview generated")
	return rec, nil
}

func (s *Service) normalize(req GenerateRequest) (GenerateRequest, error) {
	req.Role = strings.TrimSpace(req.Role)
	req.Level = strings.TrimSpace(req.Level)
	req.Type = strings.TrimSpace(req.Type)
	req.UserID = strings.TrimSpace(req.UserID)

	var missing []string
	if req.Role == "" {
		missing = append(missing, "role")
	}
	if req.Level == "" {
		missing = append(missing, "level")
	}
	if req.Type == "" {
		missing = append(missing, "type")
	}
	if req.UserID == "" {
		missing = append(missing, "userID")
	}
	if len(missing) > 0 {
		return req, fmt.Errorf("%w: missing %s", ErrInvalidRequest, strings.Join(missing, ", "))
	}

	if s.cfg != nil {
		if len(s.cfg.Form.Types) > 0 && !s.cfg.IsKnownType(req.Type) {
			s.logger.Warn().Str("type", req.Type).Msg("unknown interview type")
		}
		if len(s.cfg.Form.Levels) > 0 && !s.cfg.IsKnownLevel(req.Level) {
			s.logger.Warn().Str("level", req.Level).Msg("unknown seniority level")
		}
	}

	defaultAmount, maxAmount := 5, 20
	if s.cfg != nil {
		defaultAmount, maxAmount = s.cfg.GetDefaultAmount(), s.cfg.GetMaxAmount()
	}
	if req.Amount <= 0 {
		req.Amount = defaultAmount
	}
	if req.Amount > maxAmount {
		return req, fmt.Errorf("%w: amount must not exceed %d", ErrInvalidRequest, maxAmount)
	}
	return req, nil
}

// ParseQuestions разбирает JSON массив вопросов из ответа модели
func ParseQuestions(raw string) ([]string, error) {
	cleaned := api.CleanJSONResponse(raw)
	if start, end := strings.Index(cleaned, "["), strings.LastIndex(cleaned, "]"); start >= 0 && end > start {
		cleaned = cleaned[start : end+1]
	}

	var questions []string
	if err := json.Unmarshal([]byte(cleaned), &questions); err != nil {
		return nil, fmt.Errorf("ошибка разбора вопросов: %w", err)
	}

	out := make([]string, 0, len(questions))
	for _, q := range questions {
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
	}
	if len(out) == 0 {
		return nil, errors.New("модель не вернула ни одного вопроса")
	}
	return out, nil
}
