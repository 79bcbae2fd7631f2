package model

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// SessionState is the lifecycle state of an active playback session.
type SessionState int

const (
	// SessionInactive means no session exists.
	SessionInactive SessionState = iota
	// SessionPreparing means the asset is opened and decoding asynchronously.
	SessionPreparing
	// SessionPlaying means audio output is running.
	SessionPlaying
	// SessionPaused means the session holds a prepared handle that is not playing.
	SessionPaused
)

// String returns the string representation of SessionState.
func (s SessionState) String() string {
	switch s {
	case SessionInactive:
		return "inactive"
	case SessionPreparing:
		return "preparing"
	case SessionPlaying:
		return "playing"
	case SessionPaused:
		return "paused"
	default:
		return "unknown"
	}
}

// NewSessionID generates a ULID identifying a playback session.
func NewSessionID() (string, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return "", fmt.Errorf("failed to generate ULID: %w", err)
	}
	return id.String(), nil
}

// SessionInfo is a point-in-time snapshot of the controller's session.
type SessionInfo struct {
	ID        string       `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	State     SessionState `json:"-" yaml:"-"`
	StateName string       `json:"state" yaml:"state"`
	Asset     string       `json:"asset,omitempty" yaml:"asset,omitempty"`
	CreatedAt time.Time    `json:"created_at,omitzero" yaml:"created_at,omitempty"`
	StartedAt time.Time    `json:"started_at,omitzero" yaml:"started_at,omitempty"`
}

// Active reports whether a session exists.
func (s SessionInfo) Active() bool {
	return s.State != SessionInactive
}

// Playing reports whether audio output is running.
func (s SessionInfo) Playing() bool {
	return s.State == SessionPlaying
}

// InactiveSession returns the snapshot used when no session exists.
func InactiveSession() SessionInfo {
	return SessionInfo{State: SessionInactive, StateName: SessionInactive.String()}
}

// SessionEventKind distinguishes session lifecycle events.
type SessionEventKind int

const (
	// SessionCreated fires when start() opens a new session.
	SessionCreated SessionEventKind = iota
	// SessionStarted fires when audio output actually begins.
	SessionStarted
	// SessionStopped fires when a session is released.
	SessionStopped
	// SessionFailed fires when asynchronous preparation fails.
	SessionFailed
)

// String returns the string representation of SessionEventKind.
func (k SessionEventKind) String() string {
	switch k {
	case SessionCreated:
		return "created"
	case SessionStarted:
		return "started"
	case SessionStopped:
		return "stopped"
	case SessionFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SessionEvent reports a session lifecycle change.
type SessionEvent struct {
	Kind      SessionEventKind
	SessionID string
	Err       error
	At        time.Time
}
