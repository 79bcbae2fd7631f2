package dbus

import (
	"errors"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/klaxon/internal/audio"
	"github.com/jmylchreest/klaxon/internal/bridge"
	"github.com/jmylchreest/klaxon/internal/config"
	"github.com/jmylchreest/klaxon/internal/model"
)

const (
	// Interface is the klaxon interface name.
	Interface = "io.github.jmylchreest.Klaxon"
	// Path is the klaxon object path.
	Path = "/io/github/jmylchreest/Klaxon"
	// DefaultBusName is the bus name claimed when none is configured.
	DefaultBusName = config.DefaultBusName
)

// D-Bus error names.
const (
	ErrorNotImplemented      = Interface + ".Error.NotImplemented"
	ErrorResourceUnavailable = Interface + ".Error.ResourceUnavailable"
	ErrorFailed              = Interface + ".Error.Failed"
)

// Signal names.
const (
	SignalPlaybackStarted = "PlaybackStarted"
	SignalPlaybackStopped = "PlaybackStopped"
)

// ChannelTuple is the wire form of a channel descriptor: (sssss).
type ChannelTuple struct {
	ID          string
	Name        string
	Description string
	Importance  string
	Sound       string
}

// ChannelToTuple converts a descriptor for transmission. Audio attributes
// are not sent.
func ChannelToTuple(c model.ChannelDescriptor) ChannelTuple {
	return ChannelTuple{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		Importance:  c.ImportanceName(),
		Sound:       c.Sound,
	}
}

// ToChannel converts a received tuple back to a descriptor.
func (t ChannelTuple) ToChannel() model.ChannelDescriptor {
	importance := model.ImportanceDefault
	if level, err := config.ParseImportance(t.Importance); err == nil {
		importance = level
	}
	return model.ChannelDescriptor{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Importance:  importance,
		Sound:       t.Sound,
	}
}

// StatusReply is the GetStatus reply: (b active, b playing, s session_id,
// x started_at). started_at is Unix milliseconds, 0 before output begins.
type StatusReply struct {
	Active    bool
	Playing   bool
	SessionID string
	StartedAt int64
}

// StatusFromSession converts a session snapshot for transmission.
func StatusFromSession(info model.SessionInfo) StatusReply {
	reply := StatusReply{
		Active:    info.Active(),
		Playing:   info.Playing(),
		SessionID: info.ID,
	}
	if !info.StartedAt.IsZero() {
		reply.StartedAt = info.StartedAt.UnixMilli()
	}
	return reply
}

// ToSession converts a status reply back to a session snapshot.
func (r StatusReply) ToSession() model.SessionInfo {
	if !r.Active {
		return model.InactiveSession()
	}

	state := model.SessionPreparing
	switch {
	case r.Playing:
		state = model.SessionPlaying
	case r.StartedAt != 0:
		state = model.SessionPaused
	}

	info := model.SessionInfo{
		ID:        r.SessionID,
		State:     state,
		StateName: state.String(),
	}
	if r.StartedAt != 0 {
		info.StartedAt = time.UnixMilli(r.StartedAt)
	}
	return info
}

// resultError converts a failed bridge result to a D-Bus error.
func resultError(res bridge.Result) *dbus.Error {
	switch res.Status {
	case bridge.StatusSuccess:
		return nil
	case bridge.StatusNotImplemented:
		return dbus.NewError(ErrorNotImplemented, []any{fmt.Sprintf("method %q not implemented", res.Method)})
	}

	msg := "unknown error"
	if res.Err != nil {
		msg = res.Err.Error()
	}
	if errors.Is(res.Err, audio.ErrResourceUnavailable) {
		return dbus.NewError(ErrorResourceUnavailable, []any{msg})
	}
	return dbus.NewError(ErrorFailed, []any{msg})
}

// callError maps a D-Bus error reply back to the package sentinel errors.
func callError(err error) error {
	if err == nil {
		return nil
	}

	var name, msg string
	var de dbus.Error
	var dep *dbus.Error
	switch {
	case errors.As(err, &de):
		name, msg = de.Name, de.Error()
	case errors.As(err, &dep):
		name, msg = dep.Name, dep.Error()
	default:
		return err
	}

	switch name {
	case ErrorNotImplemented:
		return fmt.Errorf("%w: %s", bridge.ErrNotImplemented, msg)
	case ErrorResourceUnavailable:
		return fmt.Errorf("%w: %s", audio.ErrResourceUnavailable, msg)
	default:
		return err
	}
}

// Signal is a playback signal received from the daemon.
type Signal struct {
	Name      string
	SessionID string
}

// parseSignal extracts a playback signal from a raw D-Bus signal.
func parseSignal(sig *dbus.Signal) (Signal, bool) {
	if sig == nil || sig.Path != Path {
		return Signal{}, false
	}

	var name string
	switch sig.Name {
	case Interface + "." + SignalPlaybackStarted:
		name = SignalPlaybackStarted
	case Interface + "." + SignalPlaybackStopped:
		name = SignalPlaybackStopped
	default:
		return Signal{}, false
	}

	if len(sig.Body) < 1 {
		return Signal{}, false
	}
	id, ok := sig.Body[0].(string)
	if !ok {
		return Signal{}, false
	}
	return Signal{Name: name, SessionID: id}, true
}
