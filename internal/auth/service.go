package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"interview-voice-agent/internal/storage"
)

const (
	msgUnexpected         = "An unexpected error occurred"
	msgInvalidCredentials = "Invalid email or password."
)

// Profiles хранит профили пользователей
type Profiles interface {
	SaveUser(ctx context.Context, user *storage.User) error
	GetUser(ctx context.Context, id string) (*storage.User, error)
}

// Account объединяет пользователя провайдера и профиль
type Account struct {
	ID           string        `json:"id"`
	Email        string        `json:"email"`
	AccessToken  string        `json:"access_token,omitempty"`
	RefreshToken string        `json:"refresh_token,omitempty"`
	Profile      *storage.User `json:"profile,omitempty"`
}

// Result — ответ в формате {success, data|error, warning}
type Result struct {
	Success bool     `json:"success"`
	Data    *Account `json:"data,omitempty"`
	Error   string   `json:"error,omitempty"`
	Warning string   `json:"warning,omitempty"`
}

// Service связывает провайдера аутентификации и профили
type Service struct {
	provider *Client
	profiles Profiles
	logger   zerolog.Logger
}

func NewService(provider *Client, profiles Profiles, logger zerolog.Logger) *Service {
	return &Service{provider: provider, profiles: profiles, logger: logger}
}

// SignUp создает учетную запись и профиль пользователя
func (s *Service) SignUp(ctx context.Context, name, email, password string) Result {
	user, err := s.provider.SignUp(ctx, email, password)
	if err != nil {
		s.logger.Error().Err(err).Msg("auth signup error")
		return Result{Error: providerMessage(err)}
	}
	if user == nil {
		return Result{Error: "User already exists"}
	}

	profile := &storage.User{ID: user.ID, Name: strings.TrimSpace(name), Email: email}
	if err := s.profiles.SaveUser(ctx, profile); err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("profile creation error")
		return Result{Error: err.Error()}
	}

	return Result{Success: true, Data: &Account{ID: user.ID, Email: user.Email, Profile: profile}}
}

// SignIn выполняет вход и подгружает профиль. Без профиля вход все равно успешен.
func (s *Service) SignIn(ctx context.Context, email, password string) Result {
	session, err := s.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		s.logger.Warn().Err(err).Msg("signin error")
		msg := providerMessage(err)
		if strings.Contains(msg, "Invalid login credentials") {
			msg = msgInvalidCredentials
		}
		return Result{Error: msg}
	}
	if session.User == nil {
		return Result{Error: "Sign in failed"}
	}

	account := &Account{
		ID:           session.User.ID,
		Email:        session.User.Email,
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
	}
	profile, err := s.profiles.GetUser(ctx, session.User.ID)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", account.ID).Msg("profile fetch error")
		return Result{Success: true, Data: account, Warning: "Signed in but couldn't load profile"}
	}
	account.Profile = profile
	return Result{Success: true, Data: account}
}

// CurrentUser возвращает пользователя по access token
func (s *Service) CurrentUser(ctx context.Context, accessToken string) Result {
	if accessToken == "" {
		return Result{Error: "No authenticated user found"}
	}
	user, err := s.provider.GetUser(ctx, accessToken)
	if err != nil {
		s.logger.Warn().Err(err).Msg("get user error")
		return Result{Error: providerMessage(err)}
	}
	if user == nil || user.ID == "" {
		return Result{Error: "No authenticated user found"}
	}

	account := &Account{ID: user.ID, Email: user.Email}
	profile, err := s.profiles.GetUser(ctx, user.ID)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("user found, but profile fetch failed")
		return Result{Success: true, Data: account, Warning: "User authenticated but profile not found"}
	}
	account.Profile = profile
	return Result{Success: true, Data: account}
}

func providerMessage(err error) string {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Message
	}
	if errors.Is(err, ErrNotConfigured) {
		return "Authentication is not configured"
	}
	return msgUnexpected
}
