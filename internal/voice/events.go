package voice

import "strings"

// Event — событие голосовой сессии. Набор вариантов закрыт.
type Event interface {
	eventType() string
}

// Speaker — автор реплики в транскрипте
type Speaker string

const (
	SpeakerCaller    Speaker = "caller"
	SpeakerAssistant Speaker = "assistant"
	SpeakerSystem    Speaker = "system"
)

// ParseSpeaker переводит роль из протокола провайдера в Speaker
func ParseSpeaker(role string) (Speaker, bool) {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "user", "caller":
		return SpeakerCaller, true
	case "assistant", "bot":
		return SpeakerAssistant, true
	case "system":
		return SpeakerSystem, true
	}
	return "", false
}

// TranscriptKind отличает финальный транскрипт от промежуточного
type TranscriptKind int

const (
	Interim TranscriptKind = iota
	Final
)

type SessionStarted struct{}

func (SessionStarted) eventType() string { return "call-start" }

type SessionEnded struct{}

func (SessionEnded) eventType() string { return "call-end" }

// Transcript несет распознанную реплику
type Transcript struct {
	Speaker Speaker
	Text    string
	Kind    TranscriptKind
}

func (Transcript) eventType() string { return "transcript" }

type SpeechStarted struct{}

func (SpeechStarted) eventType() string { return "speech-start" }

type SpeechEnded struct{}

func (SpeechEnded) eventType() string { return "speech-end" }

// ProviderError сообщает об ошибке внутри сессии. Сам по себе звонок не завершает.
type ProviderError struct {
	Err error
}

func (ProviderError) eventType() string { return "error" }

// Name возвращает имя события в протоколе провайдера
func Name(e Event) string {
	if e == nil {
		return ""
	}
	return e.eventType()
}
