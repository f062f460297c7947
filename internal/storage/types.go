package storage

import (
	"errors"
	"time"
)

// ErrNotFound возвращается, если запись не найдена
var ErrNotFound = errors.New("record not found")

// InterviewRecord представляет сохраненную конфигурацию интервью
type InterviewRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userid"`
	Role      string    `json:"role"`
	Type      string    `json:"type"`
	Level     string    `json:"level"`
	Amount    string    `json:"amount,omitempty"`
	TechStack []string  `json:"techstack"`
	Questions []string  `json:"questions"`
	Finalized bool      `json:"finalized"`
	CreatedAt time.Time `json:"createdAt"`
}

// User описывает профиль пользователя, связанный с учетной записью провайдера авторизации
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// SaveRequest содержит данные интервью, которые сохраняются по окончании звонка
type SaveRequest struct {
	Role      string   `json:"role"`
	Type      string   `json:"type"`
	Level     string   `json:"level"`
	Amount    string   `json:"amount,omitempty"`
	UserID    string   `json:"userId"`
	TechStack []string `json:"techstack,omitempty"`
}

// Missing возвращает имена незаполненных обязательных полей
func (r SaveRequest) Missing() []string {
	var missing []string
	if r.Role == "" {
		missing = append(missing, "role")
	}
	if r.Type == "" {
		missing = append(missing, "type")
	}
	if r.Level == "" {
		missing = append(missing, "level")
	}
	if r.UserID == "" {
		missing = append(missing, "userId")
	}
	return missing
}

// SaveResult — результат сохранения в формате {success, data|error}
type SaveResult struct {
	Success bool             `json:"success"`
	Data    *InterviewRecord `json:"data,omitempty"`
	Error   string           `json:"error,omitempty"`
}
