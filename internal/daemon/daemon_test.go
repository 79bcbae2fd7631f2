package daemon

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/klaxon/internal/audio"
	"github.com/jmylchreest/klaxon/internal/bridge"
	"github.com/jmylchreest/klaxon/internal/config"
	"github.com/jmylchreest/klaxon/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDaemon(t *testing.T, cfg *config.DaemonConfig) (*Daemon, *audio.MockBackend) {
	t.Helper()
	if cfg == nil {
		cfg = config.DefaultDaemonConfig()
	}
	cfg.Reload.Enabled = false

	backend := audio.NewMockBackend()
	d := New(cfg, Options{
		ConfigPath: filepath.Join(t.TempDir(), "klaxond.toml"),
		Backend:    backend,
		Logger:     discardLogger(),
	})
	return d, backend
}

func TestDaemon_StartRegistersChannels(t *testing.T) {
	d, _ := newTestDaemon(t, nil)
	ctx := context.Background()

	require.NoError(t, d.Start(ctx, nil))
	defer d.Shutdown(ctx)

	channels := d.Registry().List()
	require.Len(t, channels, 2)
	assert.Equal(t, model.DefaultChannelID, channels[0].ID)
	assert.Equal(t, model.EmergencyChannelID, channels[1].ID)
	assert.Equal(t, config.BuiltinSiren, channels[1].Sound)
	assert.Equal(t, 2.0, testutil.ToFloat64(d.Metrics().ChannelsRegistered))
}

func TestDaemon_BridgeDrivesController(t *testing.T) {
	d, backend := newTestDaemon(t, nil)
	ctx := context.Background()
	require.NoError(t, d.Start(ctx, nil))
	defer d.Shutdown(ctx)

	res := d.Bridge().Dispatch(ctx, bridge.MethodPlay)
	require.True(t, res.OK())
	assert.Equal(t, []string{config.BuiltinSiren}, backend.Opened())

	backend.Last().Ready()
	assert.Equal(t, model.SessionPlaying, d.Controller().Status().State)
	assert.Equal(t, 1.0, testutil.ToFloat64(d.Metrics().PlaybackActive))

	res = d.Bridge().Dispatch(ctx, bridge.MethodStop)
	require.True(t, res.OK())
	assert.False(t, d.Controller().Status().Active())
	assert.Equal(t, 0.0, testutil.ToFloat64(d.Metrics().PlaybackActive))

	assert.Equal(t, 1.0, testutil.ToFloat64(d.Metrics().BridgeCalls.WithLabelValues(bridge.MethodPlay, "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(d.Metrics().SessionEvents.WithLabelValues("stopped")))
}

func TestDaemon_ShutdownStopsPlayback(t *testing.T) {
	d, backend := newTestDaemon(t, nil)
	ctx := context.Background()
	require.NoError(t, d.Start(ctx, nil))

	require.True(t, d.Bridge().Dispatch(ctx, bridge.MethodPlay).OK())
	h := backend.Last()
	h.Ready()

	require.NoError(t, d.Shutdown(ctx))
	assert.True(t, h.Released())
	assert.False(t, d.Controller().Status().Active())

	res := d.Bridge().Dispatch(ctx, bridge.MethodPlay)
	assert.Equal(t, bridge.StatusError, res.Status)
	assert.ErrorIs(t, res.Err, audio.ErrClosed)
}

func TestDaemon_ApplyConfig(t *testing.T) {
	d, backend := newTestDaemon(t, nil)
	ctx := context.Background()
	require.NoError(t, d.Start(ctx, nil))
	defer d.Shutdown(ctx)

	require.True(t, d.Bridge().Dispatch(ctx, bridge.MethodPlay).OK())
	backend.Last().Ready()

	cfg := config.DefaultDaemonConfig()
	cfg.Audio.Asset = "/opt/alerts/tornado.ogg"
	cfg.Channels.Emergency.Name = "Severe Weather"
	d.ApplyConfig(cfg)

	// The playing session keeps its asset until it ends
	assert.Equal(t, config.BuiltinSiren, d.Controller().Status().Asset)
	assert.True(t, d.Controller().Status().Playing())

	emergency, ok := d.Registry().Get(model.EmergencyChannelID)
	require.True(t, ok)
	assert.Equal(t, "Severe Weather", emergency.Name)
	assert.Equal(t, "/opt/alerts/tornado.ogg", emergency.Sound)
	assert.Equal(t, 2, d.Registry().Count())

	d.Bridge().Dispatch(ctx, bridge.MethodStop)
	d.Bridge().Dispatch(ctx, bridge.MethodPlay)
	assert.Equal(t, []string{config.BuiltinSiren, "/opt/alerts/tornado.ogg"}, backend.Opened())
	assert.Same(t, cfg, d.Config())
}

func TestDaemon_ApplyConfigAdjustsLogLevel(t *testing.T) {
	level := new(slog.LevelVar)
	cfg := config.DefaultDaemonConfig()
	cfg.Reload.Enabled = false
	d := New(cfg, Options{
		ConfigPath: filepath.Join(t.TempDir(), "klaxond.toml"),
		Backend:    audio.NewMockBackend(),
		LogLevel:   level,
		Logger:     discardLogger(),
	})

	next := config.DefaultDaemonConfig()
	next.Log.Level = "debug"
	d.ApplyConfig(next)
	assert.Equal(t, slog.LevelDebug, level.Level())
}

func TestDaemon_ReloadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "klaxond.toml")
	cfg := config.DefaultDaemonConfig()
	cfg.Reload.Enabled = false

	backend := audio.NewMockBackend()
	d := New(cfg, Options{ConfigPath: path, Backend: backend, Logger: discardLogger()})
	ctx := context.Background()
	require.NoError(t, d.Start(ctx, nil))
	defer d.Shutdown(ctx)

	require.NoError(t, os.WriteFile(path, []byte(`
[audio]
asset = "/srv/klaxon/evacuate.wav"
`), 0o644))
	require.NoError(t, d.Reload())
	assert.Equal(t, "/srv/klaxon/evacuate.wav", d.Controller().Asset())

	// An invalid file keeps the previous config
	require.NoError(t, os.WriteFile(path, []byte(`
[audio]
volume = 400
`), 0o644))
	assert.Error(t, d.Reload())
	assert.Equal(t, "/srv/klaxon/evacuate.wav", d.Config().Audio.Asset)
	assert.Equal(t, 1.0, testutil.ToFloat64(d.Metrics().ConfigReloads.WithLabelValues("failure")))
}

func TestConfigWatcher_PicksUpChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "klaxond.toml")
	require.NoError(t, os.WriteFile(path, []byte("[audio]\nvolume = 50\n"), 0o644))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, past, past))

	w := NewConfigWatcher(path, discardLogger())
	w.SetPollInterval(20 * time.Millisecond)

	reloaded := make(chan *config.DaemonConfig, 1)
	w.SetReloadCallback(func(cfg *config.DaemonConfig) { reloaded <- cfg })

	initial := config.DefaultDaemonConfig()
	require.NoError(t, w.Start(context.Background(), initial))
	defer w.Stop()
	assert.Same(t, initial, w.GetCurrentConfig())

	require.NoError(t, os.WriteFile(path, []byte("[audio]\nvolume = 25\n"), 0o644))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, 25, cfg.Audio.Volume)
		assert.Same(t, cfg, w.GetCurrentConfig())
	case <-time.After(5 * time.Second):
		t.Fatal("config change not detected")
	}
}

func TestConfigWatcher_InvalidConfigCallsErrorCallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "klaxond.toml")
	w := NewConfigWatcher(path, discardLogger())

	var gotErr error
	w.SetErrorCallback(func(err error) { gotErr = err })
	reloads := 0
	w.SetReloadCallback(func(*config.DaemonConfig) { reloads++ })

	require.NoError(t, os.WriteFile(path, []byte("not = [valid"), 0o644))
	assert.Error(t, w.Reload())
	assert.Error(t, gotErr)
	assert.Zero(t, reloads)
	assert.Nil(t, w.GetCurrentConfig())
}

func TestConfigWatcher_StopIdempotent(t *testing.T) {
	w := NewConfigWatcher(filepath.Join(t.TempDir(), "klaxond.toml"), discardLogger())
	w.Stop()

	require.NoError(t, w.Start(context.Background(), config.DefaultDaemonConfig()))
	require.NoError(t, w.Start(context.Background(), config.DefaultDaemonConfig()))
	w.Stop()
	w.Stop()
}

func TestNewConfigWatcher_DefaultPath(t *testing.T) {
	w := NewConfigWatcher("", discardLogger())
	assert.Equal(t, config.DaemonConfigPath(), w.Path())
}
