package voice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const defaultConnectTimeout = 15 * time.Second

var (
	// ErrNotConfigured возвращается, если не задан адрес шлюза или токен
	ErrNotConfigured = errors.New("voice provider is not configured")
	// ErrSessionOpen возвращается при попытке открыть вторую сессию
	ErrSessionOpen = errors.New("voice session already open")
	// ErrStopped возвращается из Start, если Stop пришел во время подключения
	ErrStopped = errors.New("voice session stopped while connecting")
)

// Assistant описывает фиксированного ассистента-интервьюера
type Assistant struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	FirstMessage string `json:"first_message,omitempty"`
	SystemPrompt string `json:"system_prompt,omitempty"`
	Voice        string `json:"voice,omitempty"`
	Model        string `json:"model,omitempty"`
}

// Descriptor определяет, что запускать: workflow или ассистента
type Descriptor struct {
	WorkflowID string
	Assistant  *Assistant
}

type startFrame struct {
	Type           string            `json:"type"`
	WorkflowID     string            `json:"workflow_id,omitempty"`
	Assistant      *Assistant        `json:"assistant,omitempty"`
	VariableValues map[string]string `json:"variable_values,omitempty"`
}

type controlFrame struct {
	Type string `json:"type"`
}

type serverFrame struct {
	Type           string `json:"type"`
	Role           string `json:"role,omitempty"`
	Transcript     string `json:"transcript,omitempty"`
	TranscriptType string `json:"transcriptType,omitempty"`
	Message        string `json:"message,omitempty"`
}

type subscriber struct {
	ch   chan Event
	done chan struct{}
	once sync.Once
}

// Client представляет клиент голосового шлюза поверх WebSocket.
// Создается явно и освобождается через Close.
type Client struct {
	url    string
	token  string
	dialer *websocket.Dialer
	logger zerolog.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	dialing  bool
	stopped  bool
	loopDone chan struct{}
	subs     map[int]*subscriber
	nextSub  int

	writeMu sync.Mutex
}

// New создает клиент голосового шлюза
func New(url, token string, logger zerolog.Logger) *Client {
	return &Client{
		url:    strings.TrimSpace(url),
		token:  strings.TrimSpace(token),
		dialer: &websocket.Dialer{HandshakeTimeout: defaultConnectTimeout},
		logger: logger,
		subs:   make(map[int]*subscriber),
	}
}

// Subscribe возвращает канал событий и функцию отписки.
// События доставляются в порядке получения от шлюза.
func (c *Client) Subscribe() (<-chan Event, func()) {
	sub := &subscriber{
		ch:   make(chan Event, 64),
		done: make(chan struct{}),
	}

	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = sub
	c.mu.Unlock()

	unsubscribe := func() {
		sub.once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
			close(sub.done)
		})
	}
	return sub.ch, unsubscribe
}

// Start открывает голосовую сессию
func (c *Client) Start(ctx context.Context, d Descriptor, vars map[string]string) error {
	if c.url == "" || c.token == "" {
		return ErrNotConfigured
	}
	if d.WorkflowID == "" && d.Assistant == nil {
		return fmt.Errorf("descriptor needs a workflow id or an assistant")
	}

	c.mu.Lock()
	if c.conn != nil || c.dialing {
		c.mu.Unlock()
		return ErrSessionOpen
	}
	c.dialing = true
	c.stopped = false
	c.mu.Unlock()

	conn, err := c.dial(ctx, d, vars)

	c.mu.Lock()
	c.dialing = false
	if err == nil && c.stopped {
		c.mu.Unlock()
		_ = conn.Close()
		return ErrStopped
	}
	if err != nil {
		c.mu.Unlock()
		return err
	}
	done := make(chan struct{})
	c.conn = conn
	c.loopDone = done
	c.mu.Unlock()

	go c.readLoop(conn, done)
	return nil
}

func (c *Client) dial(ctx context.Context, d Descriptor, vars map[string]string) (*websocket.Conn, error) {
	dialCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, defaultConnectTimeout)
		defer cancel()
	}

	headers := make(http.Header)
	headers.Set("Authorization", "Bearer "+c.token)

	conn, resp, err := c.dialer.DialContext(dialCtx, c.url, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial voice gateway (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial voice gateway: %w", err)
	}

	frame := startFrame{
		Type:           "start",
		WorkflowID:     d.WorkflowID,
		Assistant:      d.Assistant,
		VariableValues: vars,
	}
	if err := conn.WriteJSON(frame); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("send start frame: %w", err)
	}
	return conn, nil
}

// Stop просит шлюз завершить сессию и закрывает соединение.
// Без открытой сессии ничего не делает.
func (c *Client) Stop() {
	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		if c.dialing {
			c.stopped = true
		}
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.writeMu.Lock()
	if err := conn.WriteJSON(controlFrame{Type: "stop"}); err != nil {
		c.logger.Debug().Err(err).Msg("send stop frame")
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(2*time.Second))
	c.writeMu.Unlock()
	_ = conn.Close()
}

// Close завершает сессию и дожидается остановки цикла чтения
func (c *Client) Close() error {
	c.Stop()

	c.mu.Lock()
	done := c.loopDone
	c.mu.Unlock()
	if done != nil {
		<-done
	}
	return nil
}

func (c *Client) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer func() {
		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.mu.Unlock()
		_ = conn.Close()
		c.emit(SessionEnded{})
		close(done)
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) &&
				!errors.Is(err, net.ErrClosed) {
				c.emit(ProviderError{Err: fmt.Errorf("read voice frame: %w", err)})
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		event, err := decodeFrame(data)
		if err != nil {
			c.logger.Warn().Err(err).Msg("skip malformed voice frame")
			continue
		}
		if event == nil {
			continue
		}
		if _, ended := event.(SessionEnded); ended {
			// call-end от шлюза: SessionEnded отправит defer, после закрытия соединения
			return
		}
		c.emit(event)
	}
}

func (c *Client) emit(event Event) {
	c.mu.Lock()
	subs := make([]*subscriber, 0, len(c.subs))
	for _, sub := range c.subs {
		subs = append(subs, sub)
	}
	c.mu.Unlock()

	for _, sub := range subs {
		select {
		case sub.ch <- event:
		case <-sub.done:
		}
	}
}

func decodeFrame(data []byte) (Event, error) {
	var frame serverFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("decode voice frame: %w", err)
	}

	switch strings.TrimSpace(frame.Type) {
	case "call-start":
		return SessionStarted{}, nil
	case "call-end":
		return SessionEnded{}, nil
	case "speech-start":
		return SpeechStarted{}, nil
	case "speech-end":
		return SpeechEnded{}, nil
	case "transcript":
		speaker, ok := ParseSpeaker(frame.Role)
		if !ok {
			return nil, fmt.Errorf("unknown transcript role %q", frame.Role)
		}
		kind := Interim
		if frame.TranscriptType == "final" {
			kind = Final
		}
		return Transcript{Speaker: speaker, Text: frame.Transcript, Kind: kind}, nil
	case "error":
		msg := strings.TrimSpace(frame.Message)
		if msg == "" {
			msg = "unknown provider error"
		}
		return ProviderError{Err: errors.New(msg)}, nil
	case "":
		return nil, fmt.Errorf("voice frame missing type")
	default:
		return nil, nil
	}
}
