// Package auth проксирует регистрацию и вход во внешний провайдер аутентификации
// (GoTrue-совместимый REST) и ведет профили пользователей в хранилище.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ErrNotConfigured возвращается, если не задан адрес провайдера или ключ
var ErrNotConfigured = errors.New("auth provider is not configured")

// ProviderUser описывает пользователя в терминах провайдера
type ProviderUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session содержит токены после входа
type Session struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	ExpiresIn    int           `json:"expires_in"`
	User         *ProviderUser `json:"user"`
}

// ProviderError описывает ошибку, которую вернул провайдер
type ProviderError struct {
	Status  int
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("auth provider error (status %d): %s", e.Status, e.Message)
}

// Client представляет HTTP клиент провайдера аутентификации
type Client struct {
	baseURL string
	anonKey string
	client  *http.Client
	logger  zerolog.Logger
}

// NewClient создает клиент провайдера
func NewClient(baseURL, anonKey string, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUp регистрирует учетную запись. Провайдер может вернуть пользователя
// напрямую или внутри сессии, если подтверждение почты отключено.
func (c *Client) SignUp(ctx context.Context, email, password string) (*ProviderUser, error) {
	var resp struct {
		ProviderUser
		User *ProviderUser `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/v1/signup", "", credentials{email, password}, &resp); err != nil {
		return nil, err
	}
	if resp.User != nil && resp.User.ID != "" {
		return resp.User, nil
	}
	if resp.ID == "" {
		return nil, nil
	}
	return &resp.ProviderUser, nil
}

// SignInWithPassword выполняет вход по паролю
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	var session Session
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", "", credentials{email, password}, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// GetUser возвращает пользователя по access token
func (c *Client) GetUser(ctx context.Context, accessToken string) (*ProviderUser, error) {
	var user ProviderUser
	if err := c.do(ctx, http.MethodGet, "/auth/v1/user", accessToken, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	if c.baseURL == "" || c.anonKey == "" {
		return ErrNotConfigured
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal auth request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create auth request: %w", err)
	}
	if token == "" {
		token = c.anonKey
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("auth request %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read auth response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return &ProviderError{Status: resp.StatusCode, Message: errorMessage(data)}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode auth response: %w", err)
	}
	return nil
}

// errorMessage достает текст ошибки из любого из форматов ответа провайдера
func errorMessage(data []byte) string {
	var payload struct {
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		ErrorDescription string `json:"error_description"`
		Error            string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err == nil {
		for _, msg := range []string{payload.Msg, payload.Message, payload.ErrorDescription, payload.Error} {
			if msg != "" {
				return msg
			}
		}
	}
	if text := strings.TrimSpace(string(data)); text != "" {
		return text
	}
	return "unknown error"
}
