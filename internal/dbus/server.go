package dbus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/jmylchreest/klaxon/internal/bridge"
	"github.com/jmylchreest/klaxon/internal/config"
	"github.com/jmylchreest/klaxon/internal/model"
)

// Dispatcher runs bridge commands.
type Dispatcher interface {
	Dispatch(ctx context.Context, method string) bridge.Result
}

// StatusProvider reports the current playback session.
type StatusProvider interface {
	Status() model.SessionInfo
}

// ChannelLister lists registered notification channels.
type ChannelLister interface {
	List() []model.ChannelDescriptor
}

// emitter sends D-Bus signals. *dbus.Conn implements it.
type emitter interface {
	Emit(path dbus.ObjectPath, name string, values ...any) error
}

// Server exports the klaxon interface on the bus.
type Server struct {
	conn    *dbus.Conn
	emit    emitter
	logger  *slog.Logger
	busName string

	dispatcher Dispatcher
	status     StatusProvider
	channels   ChannelLister

	mu      sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
}

// NewServer creates a new Server.
func NewServer(dispatcher Dispatcher, status StatusProvider, channels ChannelLister, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		logger:     logger,
		busName:    DefaultBusName,
		dispatcher: dispatcher,
		status:     status,
		channels:   channels,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// SetBusName overrides the bus name requested on Start.
func (s *Server) SetBusName(name string) {
	if name != "" {
		s.busName = name
	}
}

// BusName returns the bus name requested on Start.
func (s *Server) BusName() string {
	return s.busName
}

// Connect opens a private connection to the named bus ("session" or "system").
func Connect(bus string) (*dbus.Conn, error) {
	switch bus {
	case "", config.BusSession:
		conn, err := dbus.ConnectSessionBus()
		if err != nil {
			return nil, fmt.Errorf("failed to connect to session bus: %w", err)
		}
		return conn, nil
	case config.BusSystem:
		conn, err := dbus.ConnectSystemBus()
		if err != nil {
			return nil, fmt.Errorf("failed to connect to system bus: %w", err)
		}
		return conn, nil
	default:
		return nil, fmt.Errorf("unknown bus %q", bus)
	}
}

// Start exports the klaxon object on conn and claims the bus name.
func (s *Server) Start(conn *dbus.Conn) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.mu.Unlock()

	if err := conn.Export(s, Path, Interface); err != nil {
		return fmt.Errorf("failed to export object: %w", err)
	}

	node := &introspect.Node{
		Name: Path,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    Interface,
				Methods: klaxonMethods(),
				Signals: klaxonSignals(),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), Path,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	reply, err := conn.RequestName(s.busName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already taken", s.busName)
	}

	s.mu.Lock()
	s.conn = conn
	s.emit = conn
	s.running = true
	s.mu.Unlock()

	s.logger.Info("D-Bus server started", "bus_name", s.busName, "interface", Interface, "path", Path)
	return nil
}

// Stop releases the bus name and unexports the object. The connection is
// left open for the caller to close.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false
	s.cancel()

	if _, err := s.conn.ReleaseName(s.busName); err != nil {
		s.logger.Warn("failed to release bus name", "error", err)
	}
	_ = s.conn.Export(nil, Path, Interface)
	_ = s.conn.Export(nil, Path, "org.freedesktop.DBus.Introspectable")

	s.logger.Info("D-Bus server stopped")
	return nil
}

func (s *Server) dispatch(method string) *dbus.Error {
	res := s.dispatcher.Dispatch(s.ctx, method)
	return resultError(res)
}

// PlayEmergencySound starts the alert tone.
// D-Bus method: PlayEmergencySound()
func (s *Server) PlayEmergencySound() *dbus.Error {
	s.logger.Debug("PlayEmergencySound called")
	return s.dispatch(bridge.MethodPlay)
}

// StopEmergencySound stops the alert tone.
// D-Bus method: StopEmergencySound()
func (s *Server) StopEmergencySound() *dbus.Error {
	s.logger.Debug("StopEmergencySound called")
	return s.dispatch(bridge.MethodStop)
}

// Invoke runs a bridge command by name.
// D-Bus method: Invoke(s)
func (s *Server) Invoke(method string) *dbus.Error {
	s.logger.Debug("Invoke called", "method", method)
	return s.dispatch(method)
}

// GetStatus reports the current session.
// D-Bus method: GetStatus() -> (bbsx)
func (s *Server) GetStatus() (bool, bool, string, int64, *dbus.Error) {
	r := StatusFromSession(s.status.Status())
	return r.Active, r.Playing, r.SessionID, r.StartedAt, nil
}

// ListChannels returns the registered notification channels.
// D-Bus method: ListChannels() -> a(sssss)
func (s *Server) ListChannels() ([]ChannelTuple, *dbus.Error) {
	list := s.channels.List()
	result := make([]ChannelTuple, 0, len(list))
	for _, c := range list {
		result = append(result, ChannelToTuple(c))
	}
	return result, nil
}

// klaxonMethods returns the D-Bus method introspection data.
func klaxonMethods() []introspect.Method {
	return []introspect.Method{
		{Name: "PlayEmergencySound"},
		{Name: "StopEmergencySound"},
		{
			Name: "Invoke",
			Args: []introspect.Arg{
				{Name: "method", Type: "s", Direction: "in"},
			},
		},
		{
			Name: "GetStatus",
			Args: []introspect.Arg{
				{Name: "active", Type: "b", Direction: "out"},
				{Name: "playing", Type: "b", Direction: "out"},
				{Name: "session_id", Type: "s", Direction: "out"},
				{Name: "started_at", Type: "x", Direction: "out"},
			},
		},
		{
			Name: "ListChannels",
			Args: []introspect.Arg{
				{Name: "channels", Type: "a(sssss)", Direction: "out"},
			},
		},
	}
}

// klaxonSignals returns the D-Bus signal introspection data.
func klaxonSignals() []introspect.Signal {
	return []introspect.Signal{
		{
			Name: SignalPlaybackStarted,
			Args: []introspect.Arg{
				{Name: "session_id", Type: "s"},
			},
		},
		{
			Name: SignalPlaybackStopped,
			Args: []introspect.Arg{
				{Name: "session_id", Type: "s"},
			},
		},
	}
}
