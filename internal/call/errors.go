package call

import (
	"errors"
	"fmt"
)

// ErrNotIdle возвращается из Start, если звонок уже начат
var ErrNotIdle = errors.New("call is not idle")

// Kind — класс ошибки звонка
type Kind string

const (
	EnvironmentError   Kind = "environment"
	PermissionError    Kind = "permission"
	ConfigurationError Kind = "configuration"
	ProviderError      Kind = "provider"
	PersistenceError   Kind = "persistence"
)

// Сообщения, которые не приходят из проверок устройства
const (
	MsgVoiceNotConfigured = "Voice provider configuration is missing. Please check your environment variables."
	MsgWorkflowMissing    = "Voice workflow ID is missing. Please check your environment variables."
	MsgQuestionsMissing   = "No interview questions were provided. Please generate questions before starting the interview."
	MsgStartFailed        = "Failed to start call. Please try again."
)

// Error — ошибка звонка. Message показывается пользователю как есть.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is сравнивает ошибки по Kind, чтобы работало errors.Is(err, &Error{Kind: ...})
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf возвращает класс ошибки или пустую строку
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
