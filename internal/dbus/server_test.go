package dbus

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/klaxon/internal/audio"
	"github.com/jmylchreest/klaxon/internal/bridge"
	"github.com/jmylchreest/klaxon/internal/channel"
	"github.com/jmylchreest/klaxon/internal/model"
)

type emitted struct {
	path dbus.ObjectPath
	name string
	body []any
}

type fakeEmitter struct {
	signals []emitted
	err     error
}

func (f *fakeEmitter) Emit(path dbus.ObjectPath, name string, values ...any) error {
	if f.err != nil {
		return f.err
	}
	f.signals = append(f.signals, emitted{path, name, values})
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testServer struct {
	*Server
	backend  *audio.MockBackend
	ctrl     *audio.Controller
	registry *channel.Registry
	emitter  *fakeEmitter
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	backend := audio.NewMockBackend()
	ctrl := audio.NewController(backend, "alert.wav", discardLogger())
	registry := channel.NewRegistry(discardLogger())
	require.NoError(t, registry.CreateChannel(model.EmergencyChannel("alert.wav")))
	require.NoError(t, registry.CreateChannel(model.DefaultChannel()))

	s := NewServer(bridge.New(ctrl, discardLogger()), ctrl, registry, discardLogger())
	em := &fakeEmitter{}
	s.emit = em
	ctrl.SetOnChange(s.HandleSessionEvent)

	return &testServer{Server: s, backend: backend, ctrl: ctrl, registry: registry, emitter: em}
}

func TestServer_PlayAndStop(t *testing.T) {
	s := newTestServer(t)

	assert.Nil(t, s.PlayEmergencySound())
	s.backend.Last().Ready()

	active, playing, id, startedAt, derr := s.GetStatus()
	require.Nil(t, derr)
	assert.True(t, active)
	assert.True(t, playing)
	assert.NotEmpty(t, id)
	assert.NotZero(t, startedAt)

	assert.Nil(t, s.StopEmergencySound())
	active, _, _, _, _ = s.GetStatus()
	assert.False(t, active)

	require.Len(t, s.emitter.signals, 2)
	assert.Equal(t, Interface+".PlaybackStarted", s.emitter.signals[0].name)
	assert.Equal(t, Interface+".PlaybackStopped", s.emitter.signals[1].name)
	assert.Equal(t, dbus.ObjectPath(Path), s.emitter.signals[0].path)
	assert.Equal(t, []any{id}, s.emitter.signals[0].body)
}

func TestServer_Invoke(t *testing.T) {
	s := newTestServer(t)

	assert.Nil(t, s.Invoke(bridge.MethodPlay))
	assert.True(t, s.ctrl.Status().Active())

	derr := s.Invoke("volumeUp")
	require.NotNil(t, derr)
	assert.Equal(t, ErrorNotImplemented, derr.Name)
	assert.True(t, s.ctrl.Status().Active(), "unknown methods leave the session alone")

	assert.Nil(t, s.Invoke(bridge.MethodStop))
	assert.False(t, s.ctrl.Status().Active())
}

func TestServer_PlayResourceUnavailable(t *testing.T) {
	s := newTestServer(t)
	s.backend.SetOpenError(errors.New("no such file"))

	derr := s.PlayEmergencySound()
	require.NotNil(t, derr)
	assert.Equal(t, ErrorResourceUnavailable, derr.Name)
	assert.Empty(t, s.emitter.signals)
}

func TestServer_ListChannels(t *testing.T) {
	s := newTestServer(t)

	channels, derr := s.ListChannels()
	require.Nil(t, derr)
	require.Len(t, channels, 2)
	assert.Equal(t, "default_channel", channels[0].ID)
	assert.Equal(t, "", channels[0].Sound)
	assert.Equal(t, "emergency_channel", channels[1].ID)
	assert.Equal(t, "alert.wav", channels[1].Sound)
	assert.Equal(t, "high", channels[1].Importance)
}

func TestServer_HandleSessionEvent(t *testing.T) {
	s := newTestServer(t)
	at := time.Now()

	s.HandleSessionEvent(model.SessionEvent{Kind: model.SessionCreated, SessionID: "a", At: at})
	assert.Empty(t, s.emitter.signals)

	s.HandleSessionEvent(model.SessionEvent{Kind: model.SessionFailed, SessionID: "a", At: at})
	require.Len(t, s.emitter.signals, 1)
	assert.Equal(t, Interface+".PlaybackStopped", s.emitter.signals[0].name)

	// Emit failures are logged, not propagated
	s.emitter.err = errors.New("bus closed")
	assert.NotPanics(t, func() {
		s.HandleSessionEvent(model.SessionEvent{Kind: model.SessionStarted, SessionID: "b", At: at})
	})
}

func TestServer_EmitWithoutConnection(t *testing.T) {
	s := NewServer(nil, nil, nil, discardLogger())
	err := s.EmitPlaybackStarted("x")
	assert.ErrorContains(t, err, "not connected")
}

func TestServer_StopWhenNotRunning(t *testing.T) {
	s := NewServer(nil, nil, nil, discardLogger())
	assert.NoError(t, s.Stop())
}

func TestServer_BusName(t *testing.T) {
	s := NewServer(nil, nil, nil, discardLogger())
	assert.Equal(t, "io.github.jmylchreest.Klaxon", s.BusName())

	s.SetBusName("io.github.jmylchreest.Klaxon.Test")
	assert.Equal(t, "io.github.jmylchreest.Klaxon.Test", s.BusName())

	s.SetBusName("")
	assert.Equal(t, "io.github.jmylchreest.Klaxon.Test", s.BusName())
}

func TestConnect_UnknownBus(t *testing.T) {
	_, err := Connect("carrier-pigeon")
	assert.ErrorContains(t, err, "unknown bus")
}

func TestIntrospection(t *testing.T) {
	names := make([]string, 0)
	for _, m := range klaxonMethods() {
		names = append(names, m.Name)
	}
	assert.ElementsMatch(t, []string{
		"PlayEmergencySound", "StopEmergencySound", "Invoke", "GetStatus", "ListChannels",
	}, names)

	signals := klaxonSignals()
	require.Len(t, signals, 2)
	assert.Equal(t, SignalPlaybackStarted, signals[0].Name)
	assert.Equal(t, SignalPlaybackStopped, signals[1].Name)
}

func TestServer_DispatchUsesServerContext(t *testing.T) {
	var got context.Context
	s := NewServer(dispatchFunc(func(ctx context.Context, method string) bridge.Result {
		got = ctx
		return bridge.Result{Method: method, Status: bridge.StatusSuccess}
	}), nil, nil, discardLogger())

	assert.Nil(t, s.PlayEmergencySound())
	require.NotNil(t, got)
	assert.NoError(t, got.Err())
}

type dispatchFunc func(ctx context.Context, method string) bridge.Result

func (f dispatchFunc) Dispatch(ctx context.Context, method string) bridge.Result {
	return f(ctx, method)
}
