package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/klaxon/internal/model"
)

// session is the single active playback. It is only touched with the
// controller mutex held.
type session struct {
	id        string
	asset     string
	handle    Handle
	preparing bool
	createdAt time.Time
	startedAt time.Time
}

// Controller owns at most one looping alert playback session.
//
// All methods are safe for concurrent use. The asynchronous readiness
// callback re-checks the session identity it was registered for, so a
// Stop that lands before preparation completes suppresses playback.
type Controller struct {
	mu      sync.Mutex
	logger  *slog.Logger
	backend Backend
	asset   string
	session *session
	closed  bool

	onChange func(model.SessionEvent)
	now      func() time.Time
}

// NewController creates a controller that plays asset through backend.
func NewController(backend Backend, asset string, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		logger:  logger,
		backend: backend,
		asset:   asset,
		now:     time.Now,
	}
}

// SetOnChange sets the callback invoked after every session lifecycle change.
// The callback runs without the controller lock held.
func (c *Controller) SetOnChange(fn func(model.SessionEvent)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// SetAsset changes the asset used by the next session. An active session keeps
// playing its current asset.
func (c *Controller) SetAsset(asset string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.asset = asset
}

// Asset returns the asset used for new sessions.
func (c *Controller) Asset() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.asset
}

// Start begins looping the alert tone.
//
// Without a session it opens the asset, configures looping alarm-class output
// and prepares it asynchronously; output begins once preparation completes.
// With a prepared session that is not playing it resumes playback. Otherwise
// it does nothing. Open failures wrap ErrResourceUnavailable.
func (c *Controller) Start() error {
	events, err := c.start()
	c.emit(events)
	return err
}

func (c *Controller) start() ([]model.SessionEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}

	if s := c.session; s != nil {
		if s.preparing {
			c.logger.Debug("start ignored, session still preparing", "session", s.id)
			return nil, nil
		}
		if s.handle.IsPlaying() {
			c.logger.Debug("start ignored, already playing", "session", s.id)
			return nil, nil
		}
		if err := s.handle.Start(); err != nil {
			return nil, fmt.Errorf("failed to resume playback: %w", err)
		}
		s.startedAt = c.now()
		c.logger.Info("alert playback resumed", "session", s.id)
		return []model.SessionEvent{c.event(model.SessionStarted, s.id, nil)}, nil
	}

	id, err := model.NewSessionID()
	if err != nil {
		return nil, err
	}

	handle, err := c.backend.Open(c.asset)
	if err != nil {
		if !errors.Is(err, ErrResourceUnavailable) {
			err = fmt.Errorf("%w: %w", ErrResourceUnavailable, err)
		}
		c.logger.Error("failed to open alert asset", "asset", c.asset, "error", err)
		return nil, err
	}

	handle.SetAttributes(model.AlarmAttributes())
	handle.SetLooping(true)

	s := &session{
		id:        id,
		asset:     c.asset,
		handle:    handle,
		preparing: true,
		createdAt: c.now(),
	}
	c.session = s

	handle.PrepareAsync(
		func() { c.onPrepared(id) },
		func(err error) { c.onPrepareFailed(id, err) },
	)

	c.logger.Info("alert session created", "session", id, "asset", s.asset)
	return []model.SessionEvent{c.event(model.SessionCreated, id, nil)}, nil
}

// onPrepared starts output for session id if it is still current.
func (c *Controller) onPrepared(id string) {
	c.emit(c.prepared(id))
}

func (c *Controller) prepared(id string) []model.SessionEvent {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.session
	if s == nil || s.id != id {
		c.logger.Debug("discarding stale ready signal", "session", id)
		return nil
	}

	s.preparing = false
	if err := s.handle.Start(); err != nil {
		c.logger.Error("failed to start alert playback", "session", id, "error", err)
		c.releaseLocked(s)
		c.session = nil
		return []model.SessionEvent{c.event(model.SessionFailed, id, err)}
	}

	s.startedAt = c.now()
	c.logger.Info("alert playback started", "session", id)
	return []model.SessionEvent{c.event(model.SessionStarted, id, nil)}
}

// onPrepareFailed clears session id if preparation failed while it was current.
func (c *Controller) onPrepareFailed(id string, err error) {
	c.emit(c.prepareFailed(id, err))
}

func (c *Controller) prepareFailed(id string, err error) []model.SessionEvent {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.session
	if s == nil || s.id != id {
		c.logger.Debug("discarding stale prepare failure", "session", id, "error", err)
		return nil
	}

	c.logger.Error("alert preparation failed", "session", id, "asset", s.asset, "error", err)
	c.releaseLocked(s)
	c.session = nil
	return []model.SessionEvent{c.event(model.SessionFailed, id, err)}
}

// Stop halts playback if running, releases the handle and clears the session.
// It is a no-op without a session. Release failures are logged, not returned.
func (c *Controller) Stop() {
	c.emit(c.stop())
}

func (c *Controller) stop() []model.SessionEvent {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.session
	if s == nil {
		return nil
	}
	c.session = nil

	if !s.preparing && s.handle.IsPlaying() {
		s.handle.Stop()
	}
	c.releaseLocked(s)

	c.logger.Info("alert session stopped", "session", s.id)
	return []model.SessionEvent{c.event(model.SessionStopped, s.id, nil)}
}

// Teardown stops any session and rejects further Start calls.
func (c *Controller) Teardown() {
	c.Stop()

	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.logger.Debug("audio controller torn down")
}

// Status returns a snapshot of the current session.
func (c *Controller) Status() model.SessionInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.session
	if s == nil {
		return model.InactiveSession()
	}

	state := model.SessionPaused
	switch {
	case s.preparing:
		state = model.SessionPreparing
	case s.handle.IsPlaying():
		state = model.SessionPlaying
	}

	return model.SessionInfo{
		ID:        s.id,
		State:     state,
		StateName: state.String(),
		Asset:     s.asset,
		CreatedAt: s.createdAt,
		StartedAt: s.startedAt,
	}
}

// releaseLocked releases the session handle, swallowing failures.
func (c *Controller) releaseLocked(s *session) {
	if err := s.handle.Release(); err != nil {
		c.logger.Warn("failed to release alert handle", "session", s.id,
			"error", fmt.Errorf("%w: %w", ErrReleaseFailure, err))
	}
}

func (c *Controller) event(kind model.SessionEventKind, id string, err error) model.SessionEvent {
	return model.SessionEvent{Kind: kind, SessionID: id, Err: err, At: c.now()}
}

func (c *Controller) emit(events []model.SessionEvent) {
	if len(events) == 0 {
		return
	}
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()

	if fn == nil {
		return
	}
	for _, e := range events {
		fn(e)
	}
}
