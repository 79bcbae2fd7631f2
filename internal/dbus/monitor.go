package dbus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"
)

// Monitor subscribes to the daemon's playback signals.
type Monitor struct {
	conn   *dbus.Conn
	logger *slog.Logger
}

// NewMonitor creates a monitor on conn.
func NewMonitor(conn *dbus.Conn, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{conn: conn, logger: logger}
}

// matchOptions selects klaxon signals from the daemon object.
func matchOptions() []dbus.MatchOption {
	return []dbus.MatchOption{
		dbus.WithMatchObjectPath(dbus.ObjectPath(Path)),
		dbus.WithMatchInterface(Interface),
	}
}

// Watch delivers playback signals until ctx is done. The returned channel is
// closed when watching stops.
func (m *Monitor) Watch(ctx context.Context) (<-chan Signal, error) {
	opts := matchOptions()
	if err := m.conn.AddMatchSignalContext(ctx, opts...); err != nil {
		return nil, fmt.Errorf("failed to add match rule: %w", err)
	}

	raw := make(chan *dbus.Signal, 16)
	m.conn.Signal(raw)

	out := make(chan Signal, 16)
	go func() {
		defer close(out)
		defer func() {
			m.conn.RemoveSignal(raw)
			if err := m.conn.RemoveMatchSignal(opts...); err != nil {
				m.logger.Debug("failed to remove match rule", "error", err)
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case sig, ok := <-raw:
				if !ok {
					return
				}
				s, ok := parseSignal(sig)
				if !ok {
					continue
				}
				m.logger.Debug("received signal", "signal", s.Name, "session", s.SessionID)
				select {
				case out <- s:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	m.logger.Debug("watching playback signals", "interface", Interface)
	return out, nil
}
