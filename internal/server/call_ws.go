package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"interview-voice-agent/internal/call"
	"interview-voice-agent/internal/device"
	"interview-voice-agent/internal/metrics"
	"interview-voice-agent/internal/voice"
)

const (
	helloTimeout = 15 * time.Second
	writeTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// clientFrame описывает сообщение от браузера
type clientFrame struct {
	Type         string              `json:"type"`
	Capabilities *device.Capabilities `json:"capabilities,omitempty"`
	Config       *callConfig         `json:"config,omitempty"`
	Mode         string              `json:"mode,omitempty"`
	Username     string              `json:"username,omitempty"`
	Questions    []string            `json:"questions,omitempty"`
	Granted      bool                `json:"granted,omitempty"`
	Error        *permissionError    `json:"error,omitempty"`
}

type callConfig struct {
	Role      string     `json:"role"`
	Type      string     `json:"type"`
	Level     string     `json:"level"`
	Amount    flexString `json:"amount"`
	UserID    string     `json:"userId"`
	TechStack stringList `json:"techstack"`
}

type permissionError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// serverFrame описывает сообщение браузеру
type serverFrame struct {
	Type     string         `json:"type"`
	Snapshot *call.Snapshot `json:"snapshot,omitempty"`
	To       string         `json:"to,omitempty"`
	Message  string         `json:"message,omitempty"`
}

// callSession обслуживает один звонок поверх одного WebSocket соединения
type callSession struct {
	id       string
	conn     *websocket.Conn
	logger   zerolog.Logger
	ctx      context.Context
	out      chan serverFrame
	mic      *remoteMicrophone
	hello    clientFrame
	starts   sync.WaitGroup
	provider VoiceProvider
	ctrl     *call.Controller
}

func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	s.calls.Add(1)
	defer s.calls.Done()
	metrics.ActiveCalls.Inc()
	defer metrics.ActiveCalls.Dec()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sess := &callSession{
		id:   uuid.NewString(),
		conn: conn,
		ctx:  ctx,
		out:  make(chan serverFrame, 16),
	}
	sess.logger = s.logger.With().Str("call_id", sess.id).Logger()
	sess.mic = &remoteMicrophone{send: sess.send}

	// закрываем сокет при остановке сервера, чтобы ReadJSON вернулся
	go func() {
		select {
		case <-s.stop:
			_ = conn.Close()
		case <-ctx.Done():
		}
	}()
	defer conn.Close()

	if err := sess.readHello(); err != nil {
		sess.logger.Warn().Err(err).Msg("call handshake failed")
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		_ = conn.WriteJSON(serverFrame{Type: "error", Message: err.Error()})
		return
	}

	if err := s.openCall(sess); err != nil {
		sess.logger.Error().Err(err).Msg("open call")
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		_ = conn.WriteJSON(serverFrame{Type: "error", Message: err.Error()})
		return
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		sess.writeLoop()
	}()

	sess.logger.Info().Str("mode", sess.hello.Mode).Msg("call session opened")
	sess.readLoop()

	// клиент ушел: отменяем ожидание микрофона, завершаем звонок и освобождаем провайдера
	cancel()
	sess.starts.Wait()
	sess.ctrl.Stop()
	if err := sess.provider.Close(); err != nil {
		sess.logger.Warn().Err(err).Msg("close voice provider")
	}
	_ = sess.ctrl.Close()
	<-writerDone
	sess.logger.Info().Str("state", sess.ctrl.State().String()).Msg("call session closed")
}

func (s *Server) openCall(sess *callSession) error {
	if s.deps.NewProvider == nil {
		return errors.New("voice provider is not available")
	}
	sess.provider = s.deps.NewProvider()

	var cfg call.InterviewConfig
	if c := sess.hello.Config; c != nil {
		cfg = call.InterviewConfig{
			Role:      strings.TrimSpace(c.Role),
			Type:      strings.TrimSpace(c.Type),
			Level:     strings.TrimSpace(c.Level),
			Amount:    string(c.Amount),
			UserID:    strings.TrimSpace(c.UserID),
			TechStack: c.TechStack,
		}
	}

	var assistant *voice.Assistant
	if s.deps.Catalogue != nil {
		iv := s.deps.Catalogue.Interviewer
		assistant = &voice.Assistant{
			ID:           iv.ID,
			Name:         iv.Name,
			FirstMessage: iv.FirstMessage,
			SystemPrompt: iv.SystemPrompt,
			Voice:        iv.Voice,
			Model:        iv.Model,
		}
	}

	redirectTo := s.deps.App.Call.RedirectPath
	opts := call.Options{
		Provider:      sess.provider,
		Microphone:    sess.mic,
		Config:        cfg,
		WorkflowID:    s.deps.App.Voice.WorkflowID,
		Assistant:     assistant,
		RedirectDelay: s.deps.App.Call.RedirectDelay,
		OnRedirect:    func() { sess.send(serverFrame{Type: "redirect", To: redirectTo}) },
		Logger:        sess.logger.With().Str("component", "call").Logger(),
	}
	if sess.hello.Capabilities != nil {
		opts.Environment = *sess.hello.Capabilities
	}
	if s.deps.Interviews != nil {
		opts.Persister = s.deps.Interviews
	}

	ctrl, err := call.New(opts)
	if err != nil {
		_ = sess.provider.Close()
		return err
	}
	sess.ctrl = ctrl
	return nil
}

func (sess *callSession) readHello() error {
	_ = sess.conn.SetReadDeadline(time.Now().Add(helloTimeout))
	if err := sess.conn.ReadJSON(&sess.hello); err != nil {
		return errors.New("expected hello frame")
	}
	_ = sess.conn.SetReadDeadline(time.Time{})

	if sess.hello.Type != "hello" {
		return errors.New("expected hello frame")
	}
	switch call.Mode(sess.hello.Mode) {
	case call.ModeGenerate, call.ModeInterview:
	case "":
		sess.hello.Mode = string(call.ModeInterview)
	default:
		return errors.New("unknown call mode")
	}
	return nil
}

func (sess *callSession) readLoop() {
	for {
		var frame clientFrame
		if err := sess.conn.ReadJSON(&frame); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				sess.logger.Debug().Err(err).Msg("call socket read ended")
			}
			return
		}

		switch frame.Type {
		case "start":
			sess.start()
		case "stop":
			sess.ctrl.Stop()
		case "dismiss":
			sess.ctrl.DismissError()
		case "permission":
			sess.mic.resolve(frame)
		default:
			sess.send(serverFrame{Type: "error", Message: "unknown frame type"})
		}
	}
}

// start запускает звонок в отдельной горутине: Start ждет ответа на запрос микрофона,
// а ответ приходит через readLoop
func (sess *callSession) start() {
	req := call.StartRequest{
		Mode:      call.Mode(sess.hello.Mode),
		Username:  sess.hello.Username,
		Questions: sess.hello.Questions,
	}
	if sess.hello.Config != nil {
		req.UserID = strings.TrimSpace(sess.hello.Config.UserID)
	}

	sess.starts.Add(1)
	go func() {
		defer sess.starts.Done()
		if err := sess.ctrl.Start(sess.ctx, req); err != nil {
			if errors.Is(err, call.ErrNotIdle) {
				sess.send(serverFrame{Type: "error", Message: "call already started"})
			}
		}
	}()
}

func (sess *callSession) writeLoop() {
	updates := sess.ctrl.Updates()
	for {
		var frame serverFrame
		select {
		case snap, ok := <-updates:
			if !ok {
				return
			}
			frame = serverFrame{Type: "state", Snapshot: &snap}
		case frame = <-sess.out:
		}

		_ = sess.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := sess.conn.WriteJSON(frame); err != nil {
			sess.logger.Debug().Err(err).Msg("call socket write failed")
		}
	}
}

// send ставит сообщение в очередь записи. Возвращает false, если соединение закрыто.
func (sess *callSession) send(frame serverFrame) bool {
	select {
	case sess.out <- frame:
		return true
	case <-sess.ctx.Done():
		return false
	}
}

// remoteMicrophone спрашивает разрешение на микрофон у браузера
type remoteMicrophone struct {
	send func(serverFrame) bool

	mu      sync.Mutex
	pending chan error
}

func (m *remoteMicrophone) Request(ctx context.Context) error {
	ch := make(chan error, 1)
	m.mu.Lock()
	m.pending = ch
	m.mu.Unlock()

	if !m.send(serverFrame{Type: "permission_request"}) {
		return ctx.Err()
	}
	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *remoteMicrophone) resolve(frame clientFrame) {
	m.mu.Lock()
	ch := m.pending
	m.pending = nil
	m.mu.Unlock()
	if ch == nil {
		return
	}

	if frame.Granted {
		ch <- nil
		return
	}
	var name, message string
	if frame.Error != nil {
		name, message = frame.Error.Name, frame.Error.Message
	}
	if name == "" && message == "" {
		name = "NotAllowedError"
	}
	ch <- device.PermissionFailure(name, message)
}
