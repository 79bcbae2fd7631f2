package audio

import (
	"errors"

	"github.com/jmylchreest/klaxon/internal/model"
)

// Errors returned by the controller and backends.
var (
	// ErrResourceUnavailable means the alert asset could not be opened or decoded.
	ErrResourceUnavailable = errors.New("alert resource unavailable")
	// ErrReleaseFailure means a handle could not be released cleanly.
	ErrReleaseFailure = errors.New("failed to release audio handle")
	// ErrClosed is returned by Start after Teardown.
	ErrClosed = errors.New("audio controller closed")
	// ErrNotPrepared is returned by Handle.Start before preparation completes.
	ErrNotPrepared = errors.New("audio handle not prepared")
	// ErrReleased is returned when a released handle is used.
	ErrReleased = errors.New("audio handle released")
)

// Backend opens audio resources.
type Backend interface {
	// Open acquires a handle to asset. Failures wrap ErrResourceUnavailable.
	Open(asset string) (Handle, error)
}

// Handle is a single native player instance. A handle is owned by exactly one
// session and is unusable after Release.
type Handle interface {
	SetLooping(looping bool)
	SetAttributes(attrs model.AudioAttributes)

	// PrepareAsync starts preparing the resource. Exactly one of onReady or
	// onError is invoked later from another goroutine, never from within the
	// call. Neither is invoked if the handle is released first.
	PrepareAsync(onReady func(), onError func(error))

	Start() error
	Stop()
	IsPlaying() bool
	Release() error
}
