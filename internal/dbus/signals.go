package dbus

import (
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/klaxon/internal/model"
)

// EmitPlaybackStarted emits the PlaybackStarted signal.
// This signal is emitted once audio output actually begins, not when the
// session is created.
func (s *Server) EmitPlaybackStarted(sessionID string) error {
	return s.emitSignal(SignalPlaybackStarted, sessionID)
}

// EmitPlaybackStopped emits the PlaybackStopped signal.
// This signal is emitted when a session ends, by request or because the
// asset could not be prepared.
func (s *Server) EmitPlaybackStopped(sessionID string) error {
	return s.emitSignal(SignalPlaybackStopped, sessionID)
}

func (s *Server) emitSignal(name, sessionID string) error {
	s.mu.RLock()
	e := s.emit
	s.mu.RUnlock()

	if e == nil {
		return fmt.Errorf("not connected to D-Bus")
	}

	if err := e.Emit(dbus.ObjectPath(Path), Interface+"."+name, sessionID); err != nil {
		return fmt.Errorf("failed to emit %s signal: %w", name, err)
	}

	s.logger.Debug("emitted signal", "signal", name, "session", sessionID)
	return nil
}

// HandleSessionEvent forwards controller lifecycle events as signals.
// Created events produce no signal.
func (s *Server) HandleSessionEvent(e model.SessionEvent) {
	var err error
	switch e.Kind {
	case model.SessionStarted:
		err = s.EmitPlaybackStarted(e.SessionID)
	case model.SessionStopped, model.SessionFailed:
		err = s.EmitPlaybackStopped(e.SessionID)
	default:
		return
	}
	if err != nil {
		s.logger.Debug("failed to forward session event", "kind", e.Kind.String(), "error", err)
	}
}

// Connection returns the underlying D-Bus connection.
func (s *Server) Connection() *dbus.Conn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn
}
