// Package bridge dispatches named host commands to the emergency audio
// controller.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ChannelName identifies the command channel the bridge listens on.
const ChannelName = "emergency_audio_channel"

// Command names accepted by the bridge.
const (
	MethodPlay = "playEmergencySound"
	MethodStop = "stopEmergencySound"
)

// ErrNotImplemented is returned for commands the bridge does not know.
var ErrNotImplemented = errors.New("method not implemented")

// Status is the outcome of a dispatched command.
type Status int

const (
	StatusSuccess Status = iota
	StatusNotImplemented
	StatusError
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusNotImplemented:
		return "not_implemented"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Result is the acknowledgement returned to the caller. Successful commands
// carry no value.
type Result struct {
	Method string
	Status Status
	Err    error
}

// OK reports whether the command succeeded.
func (r Result) OK() bool {
	return r.Status == StatusSuccess
}

// Error returns the failure as an error, or nil on success.
func (r Result) Error() error {
	switch r.Status {
	case StatusSuccess:
		return nil
	case StatusNotImplemented:
		return fmt.Errorf("%w: %s", ErrNotImplemented, r.Method)
	default:
		return r.Err
	}
}

// Controller is the playback controller driven by the bridge.
type Controller interface {
	Start() error
	Stop()
}

// Observer is notified after every dispatched command.
type Observer func(method string, status Status, elapsed time.Duration)

// Bridge maps command names to controller operations.
type Bridge struct {
	controller Controller
	logger     *slog.Logger
	observer   Observer
}

// New creates a bridge for controller.
func New(controller Controller, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		controller: controller,
		logger:     logger,
	}
}

// SetObserver sets the callback invoked after each dispatch.
func (b *Bridge) SetObserver(fn Observer) {
	b.observer = fn
}

// Methods returns the command names the bridge handles.
func Methods() []string {
	return []string{MethodPlay, MethodStop}
}

// Dispatch runs the named command. Unknown commands return
// StatusNotImplemented and leave the controller untouched.
func (b *Bridge) Dispatch(ctx context.Context, method string) Result {
	start := time.Now()
	res := b.dispatch(ctx, method)

	b.logger.Debug("bridge call", "channel", ChannelName, "method", method, "status", res.Status.String())
	if b.observer != nil {
		b.observer(method, res.Status, time.Since(start))
	}
	return res
}

func (b *Bridge) dispatch(ctx context.Context, method string) Result {
	if err := ctx.Err(); err != nil {
		return Result{Method: method, Status: StatusError, Err: err}
	}

	switch method {
	case MethodPlay:
		if err := b.controller.Start(); err != nil {
			b.logger.Error("failed to start emergency sound", "error", err)
			return Result{Method: method, Status: StatusError, Err: err}
		}
		return Result{Method: method, Status: StatusSuccess}

	case MethodStop:
		b.controller.Stop()
		return Result{Method: method, Status: StatusSuccess}

	default:
		b.logger.Warn("unknown bridge method", "method", method)
		return Result{Method: method, Status: StatusNotImplemented}
	}
}
