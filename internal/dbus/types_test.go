package dbus

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/klaxon/internal/audio"
	"github.com/jmylchreest/klaxon/internal/bridge"
	"github.com/jmylchreest/klaxon/internal/model"
)

func TestChannelTuple(t *testing.T) {
	desc := model.EmergencyChannel("/usr/share/klaxon/alert.ogg")

	tuple := ChannelToTuple(desc)
	assert.Equal(t, ChannelTuple{
		ID:          "emergency_channel",
		Name:        "Emergency Notifications",
		Description: "Used for emergency alerts",
		Importance:  "high",
		Sound:       "/usr/share/klaxon/alert.ogg",
	}, tuple)

	back := tuple.ToChannel()
	assert.Equal(t, desc.ID, back.ID)
	assert.Equal(t, model.ImportanceHigh, back.Importance)
	assert.Nil(t, back.Attributes, "attributes are not transmitted")
}

func TestChannelTuple_UnknownImportance(t *testing.T) {
	back := ChannelTuple{ID: "x", Name: "X", Importance: "urgent"}.ToChannel()
	assert.Equal(t, model.ImportanceDefault, back.Importance)
}

func TestStatusFromSession(t *testing.T) {
	started := time.UnixMilli(1_760_000_000_000)

	tests := []struct {
		name string
		info model.SessionInfo
		want StatusReply
	}{
		{
			name: "inactive",
			info: model.InactiveSession(),
			want: StatusReply{},
		},
		{
			name: "preparing",
			info: model.SessionInfo{ID: "s1", State: model.SessionPreparing},
			want: StatusReply{Active: true, SessionID: "s1"},
		},
		{
			name: "playing",
			info: model.SessionInfo{ID: "s1", State: model.SessionPlaying, StartedAt: started},
			want: StatusReply{Active: true, Playing: true, SessionID: "s1", StartedAt: started.UnixMilli()},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFromSession(tt.info))
		})
	}
}

func TestStatusReply_ToSession(t *testing.T) {
	tests := []struct {
		name  string
		reply StatusReply
		want  model.SessionState
	}{
		{"inactive", StatusReply{}, model.SessionInactive},
		{"preparing", StatusReply{Active: true, SessionID: "s"}, model.SessionPreparing},
		{"playing", StatusReply{Active: true, Playing: true, SessionID: "s", StartedAt: 1}, model.SessionPlaying},
		{"paused", StatusReply{Active: true, SessionID: "s", StartedAt: 1}, model.SessionPaused},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := tt.reply.ToSession()
			assert.Equal(t, tt.want, info.State)
			assert.Equal(t, tt.want.String(), info.StateName)
		})
	}
}

func TestResultError(t *testing.T) {
	assert.Nil(t, resultError(bridge.Result{Status: bridge.StatusSuccess}))

	e := resultError(bridge.Result{Method: "bogus", Status: bridge.StatusNotImplemented})
	require.NotNil(t, e)
	assert.Equal(t, ErrorNotImplemented, e.Name)
	assert.Contains(t, e.Error(), "bogus")

	e = resultError(bridge.Result{
		Status: bridge.StatusError,
		Err:    fmt.Errorf("%w: missing.wav", audio.ErrResourceUnavailable),
	})
	require.NotNil(t, e)
	assert.Equal(t, ErrorResourceUnavailable, e.Name)

	e = resultError(bridge.Result{Status: bridge.StatusError, Err: errors.New("boom")})
	require.NotNil(t, e)
	assert.Equal(t, ErrorFailed, e.Name)
}

func TestCallError(t *testing.T) {
	assert.NoError(t, callError(nil))

	err := callError(*dbus.NewError(ErrorNotImplemented, []any{"nope"}))
	assert.ErrorIs(t, err, bridge.ErrNotImplemented)

	err = callError(dbus.NewError(ErrorResourceUnavailable, []any{"missing"}))
	assert.ErrorIs(t, err, audio.ErrResourceUnavailable)

	other := dbus.NewError("org.freedesktop.DBus.Error.ServiceUnknown", []any{"no daemon"})
	assert.Equal(t, other, callError(other))

	plain := errors.New("connection reset")
	assert.Equal(t, plain, callError(plain))
}

func TestParseSignal(t *testing.T) {
	tests := []struct {
		name   string
		sig    *dbus.Signal
		want   Signal
		wantOK bool
	}{
		{
			name:   "started",
			sig:    &dbus.Signal{Path: Path, Name: Interface + ".PlaybackStarted", Body: []any{"s1"}},
			want:   Signal{Name: SignalPlaybackStarted, SessionID: "s1"},
			wantOK: true,
		},
		{
			name:   "stopped",
			sig:    &dbus.Signal{Path: Path, Name: Interface + ".PlaybackStopped", Body: []any{"s1"}},
			want:   Signal{Name: SignalPlaybackStopped, SessionID: "s1"},
			wantOK: true,
		},
		{
			name: "other path",
			sig:  &dbus.Signal{Path: "/elsewhere", Name: Interface + ".PlaybackStarted", Body: []any{"s1"}},
		},
		{
			name: "other member",
			sig:  &dbus.Signal{Path: Path, Name: Interface + ".Something", Body: []any{"s1"}},
		},
		{
			name: "empty body",
			sig:  &dbus.Signal{Path: Path, Name: Interface + ".PlaybackStarted"},
		},
		{
			name: "wrong body type",
			sig:  &dbus.Signal{Path: Path, Name: Interface + ".PlaybackStarted", Body: []any{uint32(1)}},
		},
		{
			name: "nil",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseSignal(tt.sig)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
