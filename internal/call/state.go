package call

import (
	"fmt"
	"strings"

	"interview-voice-agent/internal/voice"
)

// State — состояние звонка
type State int

const (
	Idle State = iota
	Connecting
	Active
	Finished
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Active:
		return "active"
	case Finished:
		return "finished"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// canMove проверяет допустимость перехода.
// Вперед по цепочке, либо Connecting -> Idle при неудачном старте.
func canMove(from, to State) bool {
	switch {
	case from == Connecting && to == Idle:
		return true
	case from == Finished:
		return false
	case to == Finished:
		return true
	default:
		return to == from+1
	}
}

// TranscriptEntry хранит финальную реплику. После добавления не меняется.
type TranscriptEntry struct {
	Speaker voice.Speaker `json:"speaker"`
	Text    string        `json:"text"`
}

// InterviewConfig содержит параметры интервью, заданные до звонка
type InterviewConfig struct {
	Role      string   `json:"role"`
	Type      string   `json:"type"`
	Level     string   `json:"level"`
	Amount    string   `json:"amount,omitempty"`
	UserID    string   `json:"userId"`
	TechStack []string `json:"techstack,omitempty"`
}

func (c InterviewConfig) clone() InterviewConfig {
	c.TechStack = append([]string(nil), c.TechStack...)
	return c
}

// Mode — режим запуска звонка
type Mode string

const (
	// ModeGenerate запускает workflow генерации интервью
	ModeGenerate Mode = "generate"
	// ModeInterview запускает интервьюера с готовым списком вопросов
	ModeInterview Mode = "interview"
)

// StartRequest содержит параметры Start
type StartRequest struct {
	Mode      Mode
	Username  string
	UserID    string
	Questions []string
}

// Snapshot описывает наблюдаемое состояние звонка
type Snapshot struct {
	State       State             `json:"state"`
	Transcript  []TranscriptEntry `json:"transcript"`
	Speaking    bool              `json:"speaking"`
	ErrorNote   string            `json:"error,omitempty"`
	LastMessage string            `json:"last_message,omitempty"`
}

// FormatQuestions собирает вопросы в строки вида "- вопрос".
// Пустые вопросы отбрасываются.
func FormatQuestions(questions []string) string {
	lines := make([]string, 0, len(questions))
	for _, q := range questions {
		if q = strings.TrimSpace(q); q != "" {
			lines = append(lines, "- "+q)
		}
	}
	return strings.Join(lines, "\n")
}
