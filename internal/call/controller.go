// Package call управляет жизненным циклом одного голосового интервью:
// старт сессии у провайдера, сбор транскрипта, сохранение и переход со страницы звонка.
package call

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"interview-voice-agent/internal/device"
	"interview-voice-agent/internal/metrics"
	"interview-voice-agent/internal/storage"
	"interview-voice-agent/internal/voice"
)

const (
	DefaultRedirectDelay  = 2 * time.Second
	defaultPersistTimeout = 15 * time.Second
	updatesBuffer         = 32
)

// Environment проверяет, что клиент может захватывать звук
type Environment interface {
	Check() error
}

// Microphone запрашивает доступ к микрофону. Может ждать ответа пользователя.
type Microphone interface {
	Request(ctx context.Context) error
}

// Provider — голосовой провайдер
type Provider interface {
	Start(ctx context.Context, d voice.Descriptor, vars map[string]string) error
	Stop()
	Subscribe() (<-chan voice.Event, func())
}

// Persister сохраняет интервью по окончании звонка
type Persister interface {
	SaveInterview(ctx context.Context, req storage.SaveRequest) (storage.SaveResult, error)
}

// Options задает зависимости и параметры контроллера
type Options struct {
	Provider    Provider
	Environment Environment
	Microphone  Microphone
	Persister   Persister

	Config     InterviewConfig
	WorkflowID string
	Assistant  *voice.Assistant

	RedirectDelay  time.Duration
	OnRedirect     func()
	PersistTimeout time.Duration

	Logger zerolog.Logger
}

// Controller управляет одним звонком. После Finished не переиспользуется.
type Controller struct {
	provider    Provider
	env         Environment
	mic         Microphone
	persister   Persister
	cfg         InterviewConfig
	workflowID  string
	assistant   *voice.Assistant
	delay       time.Duration
	onRedirect  func()
	saveTimeout time.Duration
	logger      zerolog.Logger

	mu         sync.Mutex
	state      State
	starting   bool
	transcript []TranscriptEntry
	speaking   bool
	errNote    string
	redirect   *time.Timer
	closed     bool
	updates    chan Snapshot

	events      <-chan voice.Event
	unsubscribe func()
	quit        chan struct{}
	done        chan struct{}
	closeOnce   sync.Once
	wg          sync.WaitGroup
}

// New создает контроллер, подписывается на события провайдера и запускает диспетчер
func New(opts Options) (*Controller, error) {
	if opts.Provider == nil {
		return nil, errors.New("call: provider is required")
	}
	if opts.RedirectDelay <= 0 {
		opts.RedirectDelay = DefaultRedirectDelay
	}
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = defaultPersistTimeout
	}

	c := &Controller{
		provider:    opts.Provider,
		env:         opts.Environment,
		mic:         opts.Microphone,
		persister:   opts.Persister,
		cfg:         opts.Config.clone(),
		workflowID:  opts.WorkflowID,
		assistant:   opts.Assistant,
		delay:       opts.RedirectDelay,
		onRedirect:  opts.OnRedirect,
		saveTimeout: opts.PersistTimeout,
		logger:      opts.Logger,
		state:       Idle,
		transcript:  []TranscriptEntry{},
		updates:     make(chan Snapshot, updatesBuffer),
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	c.events, c.unsubscribe = c.provider.Subscribe()

	go c.dispatch()
	return c, nil
}

// Start проверяет окружение, получает микрофон и открывает сессию у провайдера.
// При ошибке состояние возвращается в Idle, а текст ошибки попадает в ErrorNote.
func (c *Controller) Start(ctx context.Context, req StartRequest) error {
	c.mu.Lock()
	if c.closed || c.state != Idle || c.starting {
		c.mu.Unlock()
		return ErrNotIdle
	}
	c.starting = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.starting = false
		c.mu.Unlock()
	}()

	if c.env != nil {
		if err := c.env.Check(); err != nil {
			return c.fail(newError(EnvironmentError, userMessage(err, MsgStartFailed), err))
		}
	}
	if c.mic != nil {
		if err := c.mic.Request(ctx); err != nil {
			return c.fail(newError(PermissionError, permissionMessage(err), err))
		}
	}

	c.mu.Lock()
	if c.state != Idle {
		// Stop во время проверок
		c.mu.Unlock()
		return ErrNotIdle
	}
	c.moveLocked(Connecting)
	c.mu.Unlock()

	descriptor, vars, cerr := c.describe(req)
	if cerr != nil {
		return c.fail(cerr)
	}

	c.logger.Info().Str("mode", string(req.Mode)).Msg("starting voice session")
	if err := c.provider.Start(ctx, descriptor, vars); err != nil {
		if errors.Is(err, voice.ErrNotConfigured) {
			return c.fail(newError(ConfigurationError, MsgVoiceNotConfigured, err))
		}
		return c.fail(newError(ProviderError, MsgStartFailed, err))
	}

	c.mu.Lock()
	if c.state == Connecting {
		c.moveLocked(Active)
	}
	c.mu.Unlock()
	return nil
}

func (c *Controller) describe(req StartRequest) (voice.Descriptor, map[string]string, *Error) {
	switch req.Mode {
	case ModeGenerate:
		if c.workflowID == "" {
			return voice.Descriptor{}, nil, newError(ConfigurationError, MsgWorkflowMissing, nil)
		}
		return voice.Descriptor{WorkflowID: c.workflowID}, map[string]string{
			"username": req.Username,
			"userid":   req.UserID,
		}, nil
	case ModeInterview:
		if c.assistant == nil {
			return voice.Descriptor{}, nil, newError(ConfigurationError, MsgVoiceNotConfigured, nil)
		}
		questions := FormatQuestions(req.Questions)
		if questions == "" {
			return voice.Descriptor{}, nil, newError(ConfigurationError, MsgQuestionsMissing, nil)
		}
		return voice.Descriptor{Assistant: c.assistant}, map[string]string{"questions": questions}, nil
	}
	return voice.Descriptor{}, nil, newError(ConfigurationError, MsgStartFailed,
		fmt.Errorf("unknown call mode %q", req.Mode))
}

// fail возвращает звонок в Idle, если он еще не завершен, и выставляет ErrorNote
func (c *Controller) fail(err *Error) error {
	metrics.RecordStartFailure(string(err.Kind))

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Connecting {
		c.moveLocked(Idle)
	}
	if c.state != Idle {
		// Stop пришел во время подключения: звонок уже завершен
		c.logger.Info().Err(err).Str("state", c.state.String()).Msg("start aborted")
		return err
	}

	c.errNote = err.Message
	c.logger.Warn().Err(err).Str("kind", string(err.Kind)).Msg("call start failed")
	c.publishLocked()
	return err
}

// Stop просит провайдера завершить сессию и переводит звонок в Finished.
// Безопасен в любом состоянии.
func (c *Controller) Stop() {
	c.provider.Stop()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Finished {
		c.moveLocked(Finished)
	}
}

// DismissError сбрасывает ErrorNote
func (c *Controller) DismissError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.errNote == "" {
		return
	}
	c.errNote = ""
	c.publishLocked()
}

// Snapshot возвращает копию текущего состояния
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// State возвращает текущее состояние
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Updates возвращает канал снимков состояния. Закрывается в Close.
// Если читатель отстает, старые снимки вытесняются новыми.
func (c *Controller) Updates() <-chan Snapshot {
	return c.updates
}

// Close отписывается от провайдера, отменяет переход и ждет фоновые задачи
func (c *Controller) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.stopRedirectLocked()
		c.mu.Unlock()

		close(c.quit)
		<-c.done
		c.unsubscribe()
		c.wg.Wait()

		c.mu.Lock()
		close(c.updates)
		c.mu.Unlock()
	})
	return nil
}

func (c *Controller) dispatch() {
	defer close(c.done)
	for {
		select {
		case <-c.quit:
			return
		case ev, ok := <-c.events:
			if !ok {
				return
			}
			c.handle(ev)
		}
	}
}

func (c *Controller) handle(ev voice.Event) {
	c.mu.Lock()
	if c.state != Connecting && c.state != Active {
		c.mu.Unlock()
		c.logger.Debug().Str("event", voice.Name(ev)).Str("state", c.state.String()).Msg("event ignored")
		return
	}

	persist := false
	switch e := ev.(type) {
	case voice.SessionStarted:
		if c.state == Connecting {
			c.moveLocked(Active)
		}
	case voice.SessionEnded:
		c.moveLocked(Finished)
		persist = true
	case voice.Transcript:
		if e.Kind != voice.Final {
			break
		}
		c.transcript = append(c.transcript, TranscriptEntry{Speaker: e.Speaker, Text: e.Text})
		metrics.TranscriptEntries.WithLabelValues(string(e.Speaker)).Inc()
		c.publishLocked()
	case voice.SpeechStarted:
		c.speaking = true
		c.publishLocked()
	case voice.SpeechEnded:
		c.speaking = false
		c.publishLocked()
	case voice.ProviderError:
		c.logger.Error().Err(e.Err).Str("state", c.state.String()).Msg("voice provider error")
	}
	c.mu.Unlock()

	if persist {
		c.persist()
	}
}

// persist один раз сохраняет интервью в фоне. Результат только логируется.
func (c *Controller) persist() {
	req := storage.SaveRequest{
		Role:      c.cfg.Role,
		Type:      c.cfg.Type,
		Level:     c.cfg.Level,
		Amount:    c.cfg.Amount,
		UserID:    c.cfg.UserID,
		TechStack: c.cfg.TechStack,
	}
	if missing := req.Missing(); len(missing) > 0 {
		c.logger.Info().Strs("missing", missing).Msg("missing interview data, skipping save")
		metrics.RecordPersist("skipped")
		return
	}
	if c.persister == nil {
		c.logger.Warn().Msg("no persister configured, skipping save")
		metrics.RecordPersist("skipped")
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), c.saveTimeout)
		defer cancel()

		res, err := c.persister.SaveInterview(ctx, req)
		switch {
		case err != nil:
			c.logger.Error().Err(newError(PersistenceError, "save interview", err)).Msg("error saving interview data")
			metrics.RecordPersist("failed")
		case !res.Success:
			c.logger.Error().Err(newError(PersistenceError, res.Error, nil)).Msg("failed to save interview data")
			metrics.RecordPersist("failed")
		default:
			ev := c.logger.Info()
			if res.Data != nil {
				ev = ev.Str("interview_id", res.Data.ID)
			}
			ev.Msg("interview data saved")
			metrics.RecordPersist("saved")
		}
	}()
}

// moveLocked выполняет переход и публикует снимок. Вызывается под c.mu.
func (c *Controller) moveLocked(to State) {
	from := c.state
	if !canMove(from, to) {
		c.logger.Error().Str("from", from.String()).Str("to", to.String()).Msg("illegal call state transition")
		return
	}
	c.state = to
	if to != Idle {
		c.errNote = ""
	}

	switch to {
	case Active:
		metrics.InterviewsStarted.Inc()
	case Finished:
		metrics.InterviewsCompleted.Inc()
		c.scheduleRedirectLocked()
	}

	c.logger.Info().Str("from", from.String()).Str("to", to.String()).Msg("call state changed")
	c.publishLocked()
}

func (c *Controller) scheduleRedirectLocked() {
	if c.closed || c.redirect != nil || c.onRedirect == nil {
		return
	}
	c.wg.Add(1)
	c.redirect = time.AfterFunc(c.delay, func() {
		defer c.wg.Done()
		c.onRedirect()
	})
}

func (c *Controller) stopRedirectLocked() {
	if c.redirect != nil && c.redirect.Stop() {
		c.wg.Done()
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:      c.state,
		Transcript: append([]TranscriptEntry(nil), c.transcript...),
		Speaking:   c.speaking,
		ErrorNote:  c.errNote,
	}
	if n := len(c.transcript); n > 0 {
		snap.LastMessage = c.transcript[n-1].Text
	}
	return snap
}

// publishLocked отправляет снимок без блокировки, вытесняя самый старый
func (c *Controller) publishLocked() {
	if c.closed {
		return
	}
	snap := c.snapshotLocked()
	for {
		select {
		case c.updates <- snap:
			return
		default:
		}
		select {
		case <-c.updates:
		default:
		}
	}
}

func userMessage(err error, fallback string) string {
	var unsupported *device.UnsupportedError
	if errors.As(err, &unsupported) {
		return unsupported.Message
	}
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return fallback
}

func permissionMessage(err error) string {
	var perm *device.PermissionError
	if errors.As(err, &perm) {
		return perm.Message
	}
	return device.PermissionFailure("", err.Error()).Message
}
