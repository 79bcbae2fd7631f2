package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/klaxon/internal/dbus"
	"github.com/jmylchreest/klaxon/internal/model"
)

type fakeClient struct {
	session  model.SessionInfo
	channels []model.ChannelDescriptor
	err      error
	plays    int
	stops    int
}

func (c *fakeClient) Play(context.Context) error {
	if c.err != nil {
		return c.err
	}
	c.plays++
	c.session = model.SessionInfo{
		ID:        "01JBX0S9Y2P5W4M3N7Q8R6T1VZ",
		State:     model.SessionPlaying,
		StateName: model.SessionPlaying.String(),
		StartedAt: time.Now().Add(-2 * time.Minute),
	}
	return nil
}

func (c *fakeClient) Stop(context.Context) error {
	if c.err != nil {
		return c.err
	}
	c.stops++
	c.session = model.InactiveSession()
	return nil
}

func (c *fakeClient) Status(context.Context) (model.SessionInfo, error) {
	if c.err != nil {
		return model.SessionInfo{}, c.err
	}
	return c.session, nil
}

func (c *fakeClient) Channels(context.Context) ([]model.ChannelDescriptor, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.channels, nil
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func readyModel(t *testing.T, c *fakeClient) Model {
	t.Helper()
	m := New(c, nil)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	updated, _ = updated.Update(m.loadStatus())
	return updated.(Model)
}

// press sends a key and runs the resulting command once.
func press(t *testing.T, m Model, msg tea.KeyMsg) (Model, tea.Msg) {
	t.Helper()
	updated, cmd := m.Update(msg)
	require.NotNil(t, cmd)
	return updated.(Model), cmd()
}

func TestModel_ViewBeforeReady(t *testing.T) {
	m := New(&fakeClient{session: model.InactiveSession()}, nil)
	assert.Equal(t, "Initializing...", m.View())
}

func TestModel_PlayAndStop(t *testing.T) {
	c := &fakeClient{session: model.InactiveSession()}
	m := readyModel(t, c)
	assert.Contains(t, m.View(), "SILENT")

	m, msg := press(t, m, runeKey('p'))
	require.IsType(t, actionResultMsg{}, msg)
	assert.Equal(t, 1, c.plays)

	updated, _ := m.Update(msg)
	updated, _ = updated.Update(updated.(Model).loadStatus())
	m = updated.(Model)
	assert.True(t, m.session.Playing())
	view := m.View()
	assert.Contains(t, view, "ALARM SOUNDING")
	assert.Contains(t, view, "01JBX0S9Y2P5W4M3N7Q8R6T1VZ")
	assert.Contains(t, view, "ago")

	_, msg = press(t, m, runeKey('s'))
	require.IsType(t, actionResultMsg{}, msg)
	assert.Equal(t, 1, c.stops)
}

func TestModel_ToggleFollowsSession(t *testing.T) {
	c := &fakeClient{session: model.InactiveSession()}
	m := readyModel(t, c)

	space := tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}

	_, msg := press(t, m, space)
	assert.Equal(t, actionResultMsg{action: "play"}, msg)

	updated, _ := m.Update(m.loadStatus())
	m = updated.(Model)
	require.True(t, m.session.Active())

	_, msg = press(t, m, space)
	assert.Equal(t, actionResultMsg{action: "stop"}, msg)
	assert.Equal(t, 1, c.plays)
	assert.Equal(t, 1, c.stops)
}

func TestModel_DaemonUnreachable(t *testing.T) {
	c := &fakeClient{err: errors.New("name has no owner")}
	m := readyModel(t, c)

	assert.False(t, m.connected)
	assert.True(t, m.statusErr)
	view := m.View()
	assert.Contains(t, view, "DAEMON OFFLINE")
	assert.Contains(t, view, "name has no owner")

	// Recovers once the daemon answers again
	c.err = nil
	c.session = model.InactiveSession()
	updated, _ := m.Update(m.loadStatus())
	m = updated.(Model)
	assert.True(t, m.connected)
	assert.Empty(t, m.statusMsg)
}

func TestModel_ActionFailureShowsError(t *testing.T) {
	c := &fakeClient{session: model.InactiveSession()}
	m := readyModel(t, c)

	updated, cmd := m.Update(actionResultMsg{action: "play", err: errors.New("resource unavailable")})
	require.NotNil(t, cmd)
	m = updated.(Model)

	updated, _ = m.Update(setStatus("Failed to play: resource unavailable", true)())
	m = updated.(Model)
	assert.True(t, m.statusErr)
	assert.Contains(t, m.View(), "Failed to play: resource unavailable")

	updated, _ = m.Update(clearStatusMsg{})
	assert.Empty(t, updated.(Model).statusMsg)
}

func TestModel_ChannelsPanel(t *testing.T) {
	c := &fakeClient{
		session: model.InactiveSession(),
		channels: []model.ChannelDescriptor{
			model.DefaultChannel(),
			model.EmergencyChannel("/usr/share/sounds/klaxon/siren.ogg"),
		},
	}
	m := readyModel(t, c)
	assert.NotContains(t, m.View(), "Channels")

	m, msg := press(t, m, runeKey('c'))
	require.True(t, m.showChannels)

	updated, _ := m.Update(msg)
	m = updated.(Model)
	view := m.View()
	assert.Contains(t, view, "Channels")
	assert.Contains(t, view, model.EmergencyChannelID)
	assert.Contains(t, view, "siren.ogg")
	assert.Contains(t, view, "default sound")

	updated, cmd := m.Update(runeKey('c'))
	assert.Nil(t, cmd)
	assert.False(t, updated.(Model).showChannels)
}

func TestModel_SignalTriggersRefresh(t *testing.T) {
	signals := make(chan dbus.Signal, 1)
	c := &fakeClient{session: model.InactiveSession()}
	m := New(c, signals)

	signals <- dbus.Signal{Name: dbus.SignalPlaybackStarted, SessionID: "abc"}
	msg := m.waitForSignal()
	require.Equal(t, signalMsg{signal: dbus.Signal{Name: dbus.SignalPlaybackStarted, SessionID: "abc"}}, msg)

	_, cmd := m.Update(msg)
	assert.NotNil(t, cmd)

	close(signals)
	assert.Nil(t, m.waitForSignal())
	assert.Nil(t, New(c, nil).waitForSignal())
}

func TestModel_HelpAndQuit(t *testing.T) {
	m := readyModel(t, &fakeClient{session: model.InactiveSession()})

	updated, _ := m.Update(runeKey('?'))
	m = updated.(Model)
	assert.True(t, m.help.ShowAll)
	assert.Contains(t, m.View(), "sound alarm")

	_, cmd := m.Update(runeKey('q'))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestBuildKeybindBar_FitsWidth(t *testing.T) {
	m := New(&fakeClient{}, nil)

	full := m.buildKeybindBar(0)
	assert.Contains(t, full, "refresh")

	narrow := m.buildKeybindBar(20)
	assert.Contains(t, narrow, "space")
	assert.NotContains(t, narrow, "refresh")

	m.session = model.SessionInfo{State: model.SessionPlaying}
	assert.Contains(t, m.buildKeybindBar(0), "silence")
	assert.False(t, strings.Contains(m.buildKeybindBar(0), "space sound"))
}
