// Package device проверяет, может ли клиент захватывать звук с микрофона.
package device

import (
	"errors"
	"fmt"
	"strings"
)

// Сообщения для пользователя при неподдерживаемом окружении
const (
	MsgInsecureContext = "Microphone access requires HTTPS. Please use a secure connection."
	MsgLegacyMediaAPI  = "Your browser uses an older version of the Media API. Please update your browser or use a modern browser like Chrome, Firefox, or Safari."
	MsgNoMediaDevices  = "Media devices are not supported in this browser. Please use a modern browser like Chrome, Firefox, or Safari."
	MsgNoGetUserMedia  = "Microphone access is not supported in this browser. Please use a modern browser like Chrome, Firefox, or Safari."
)

// Сообщения при отказе в доступе к микрофону
const (
	MsgPermissionDenied = "Microphone permission denied. Please allow microphone access in your browser settings and try again."
	MsgNoMicrophone     = "No microphone found. Please connect a microphone and try again."
	MsgMicrophoneBusy   = "Microphone is already in use by another application. Please close other applications using the microphone and try again."
)

// ErrUnsupported оборачивает все ошибки окружения
var ErrUnsupported = errors.New("audio capture unsupported")

// Capabilities описывает то, что клиент сообщил о своем окружении
type Capabilities struct {
	SecureContext      bool `json:"secure_context"`
	Localhost          bool `json:"localhost"`
	MediaDevices       bool `json:"media_devices"`
	LegacyGetUserMedia bool `json:"legacy_get_user_media"`
	GetUserMedia       bool `json:"get_user_media"`
}

// UnsupportedError сообщает, что окружение не позволяет захватывать звук
type UnsupportedError struct {
	Message string
}

func (e *UnsupportedError) Error() string { return e.Message }

func (e *UnsupportedError) Unwrap() error { return ErrUnsupported }

// Check проверяет окружение в том же порядке, в каком это делает браузерный клиент:
// защищенный контекст, наличие mediaDevices, наличие getUserMedia.
func (c Capabilities) Check() error {
	if !c.SecureContext && !c.Localhost {
		return &UnsupportedError{Message: MsgInsecureContext}
	}
	if !c.MediaDevices {
		if c.LegacyGetUserMedia {
			return &UnsupportedError{Message: MsgLegacyMediaAPI}
		}
		return &UnsupportedError{Message: MsgNoMediaDevices}
	}
	if !c.GetUserMedia {
		return &UnsupportedError{Message: MsgNoGetUserMedia}
	}
	return nil
}

// PermissionError сообщает об отказе в доступе к микрофону
type PermissionError struct {
	Name    string
	Message string
}

func (e *PermissionError) Error() string { return e.Message }

// PermissionFailure переводит имя ошибки getUserMedia в сообщение для пользователя
func PermissionFailure(name, message string) *PermissionError {
	name = strings.TrimSpace(name)
	switch name {
	case "NotAllowedError", "PermissionDeniedError":
		return &PermissionError{Name: name, Message: MsgPermissionDenied}
	case "NotFoundError", "DevicesNotFoundError":
		return &PermissionError{Name: name, Message: MsgNoMicrophone}
	case "NotReadableError", "TrackStartError":
		return &PermissionError{Name: name, Message: MsgMicrophoneBusy}
	}

	detail := strings.TrimSpace(message)
	if detail == "" {
		detail = name
	}
	if detail == "" {
		detail = "unknown error"
	}
	return &PermissionError{Name: name, Message: fmt.Sprintf("Microphone access failed: %s", detail)}
}
