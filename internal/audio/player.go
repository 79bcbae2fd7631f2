package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"

	"github.com/jmylchreest/klaxon/internal/model"
)

// output is the audio device. The default implementation is the beep speaker.
type output interface {
	Init(sampleRate beep.SampleRate, bufferSize int) error
	Play(s ...beep.Streamer)
	Lock()
	Unlock()
	Close()
}

type speakerOutput struct{}

func (speakerOutput) Init(sr beep.SampleRate, n int) error { return speaker.Init(sr, n) }
func (speakerOutput) Play(s ...beep.Streamer)              { speaker.Play(s...) }
func (speakerOutput) Lock()                                { speaker.Lock() }
func (speakerOutput) Unlock()                              { speaker.Unlock() }
func (speakerOutput) Close()                               { speaker.Close() }

// Player is the beep Backend. It decodes assets into memory, caches the
// decoded buffers per path and plays them through the speaker.
type Player struct {
	mu     sync.Mutex
	logger *slog.Logger
	out    output

	// Volume control (0.0 to 1.0)
	volume float64

	// Speaker buffer length
	latency time.Duration

	// Whether speaker has been initialized
	initialized bool

	// Sample rate for the speaker
	sampleRate beep.SampleRate

	// Decoded sound cache keyed by asset
	cache      map[string]*beep.Buffer
	cacheMutex sync.RWMutex
}

// NewPlayer creates a new beep-backed player.
func NewPlayer(logger *slog.Logger) *Player {
	if logger == nil {
		logger = slog.Default()
	}

	return &Player{
		logger:     logger,
		out:        speakerOutput{},
		volume:     1.0,
		latency:    100 * time.Millisecond,
		sampleRate: beep.SampleRate(44100),
		cache:      make(map[string]*beep.Buffer),
	}
}

// SetVolume sets the playback volume (0.0 to 1.0) for handles started afterwards.
func (p *Player) SetVolume(volume float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.volume = min(max(volume, 0), 1)
	p.logger.Debug("volume set", "volume", p.volume)
}

// GetVolume returns the current volume.
func (p *Player) GetVolume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// SetLatency sets the speaker buffer length. It only takes effect before the
// speaker is first initialised.
func (p *Player) SetLatency(latency time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.latency = latency
}

// Open implements Backend. File assets are opened and their headers decoded
// synchronously so a missing or undecodable asset fails here; the audio data
// is read during PrepareAsync.
func (p *Player) Open(asset string) (Handle, error) {
	if asset == "" {
		return nil, fmt.Errorf("%w: empty asset", ErrResourceUnavailable)
	}

	h := &beepHandle{player: p, asset: asset}

	if buf := p.cached(asset); buf != nil {
		h.buffer = buf
		return h, nil
	}

	if asset == model.BuiltinSirenAsset {
		return h, nil
	}

	f, err := os.Open(asset)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrResourceUnavailable, err)
	}

	streamer, format, err := decode(f, asset)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %w", ErrResourceUnavailable, err)
	}

	h.file = f
	h.source = streamer
	h.format = format
	return h, nil
}

// decode picks a decoder by file extension.
func decode(f *os.File, path string) (beep.StreamSeekCloser, beep.Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav":
		return wav.Decode(f)
	case ".ogg":
		return vorbis.Decode(f)
	case ".mp3":
		return mp3.Decode(f)
	default:
		return nil, beep.Format{}, fmt.Errorf("unsupported audio format: %s", ext)
	}
}

func (p *Player) cached(asset string) *beep.Buffer {
	p.cacheMutex.RLock()
	defer p.cacheMutex.RUnlock()
	return p.cache[asset]
}

func (p *Player) store(asset string, buf *beep.Buffer) {
	p.cacheMutex.Lock()
	defer p.cacheMutex.Unlock()
	p.cache[asset] = buf
}

// ClearCache clears the sound cache.
func (p *Player) ClearCache() {
	p.cacheMutex.Lock()
	defer p.cacheMutex.Unlock()
	p.cache = make(map[string]*beep.Buffer)
	p.logger.Debug("sound cache cleared")
}

// InvalidateCache removes a specific asset from the cache.
func (p *Player) InvalidateCache(asset string) {
	p.cacheMutex.Lock()
	defer p.cacheMutex.Unlock()
	delete(p.cache, asset)
}

// ensureInitialized initializes the speaker if not already done.
func (p *Player) ensureInitialized(sampleRate beep.SampleRate) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return nil
	}

	bufferSize := sampleRate.N(p.latency)
	if err := p.out.Init(sampleRate, bufferSize); err != nil {
		return fmt.Errorf("failed to initialize speaker: %w", err)
	}

	p.sampleRate = sampleRate
	p.initialized = true
	p.logger.Debug("speaker initialized", "sample_rate", sampleRate, "latency", p.latency)
	return nil
}

func (p *Player) currentSampleRate() beep.SampleRate {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sampleRate
}

// Close stops all playback and releases the speaker.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		p.out.Close()
		p.initialized = false
	}

	p.ClearCache()
	p.logger.Debug("audio player closed")
}

// streamFor wraps buf for playback: optional looping, resampling to the
// speaker rate and volume.
func (p *Player) streamFor(buf *beep.Buffer, looping bool) beep.Streamer {
	p.mu.Lock()
	volume := p.volume
	sampleRate := p.sampleRate
	p.mu.Unlock()

	var streamer beep.Streamer = buf.Streamer(0, buf.Len())
	if looping {
		streamer = beep.Loop(-1, buf.Streamer(0, buf.Len()))
	}

	if buf.Format().SampleRate != sampleRate {
		streamer = beep.Resample(4, buf.Format().SampleRate, sampleRate, streamer)
	}

	if volume < 1.0 {
		streamer = &effects.Volume{
			Streamer: streamer,
			Base:     10,
			Volume:   volumeToDecibels(volume) / 20,
			Silent:   volume == 0,
		}
	}

	return streamer
}

// volumeToDecibels converts a linear volume (0-1) to decibels.
func volumeToDecibels(volume float64) float64 {
	if volume <= 0 {
		return -100 // Effectively silent
	}
	return 20 * math.Log10(volume)
}

type handleState int

const (
	handleIdle handleState = iota
	handlePreparing
	handlePrepared
	handlePlaying
	handleStopped
	handleReleased
)

// beepHandle is one playback instance. Its ctrl is attached to the speaker
// mixer on first Start and detached on Release.
type beepHandle struct {
	mu     sync.Mutex
	player *Player
	asset  string
	state  handleState

	looping bool
	attrs   model.AudioAttributes

	// Pending source, owned by the prepare goroutine while preparing
	file   *os.File
	source beep.StreamSeekCloser
	format beep.Format

	buffer *beep.Buffer
	ctrl   *beep.Ctrl
}

func (h *beepHandle) SetLooping(looping bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.looping = looping
}

func (h *beepHandle) SetAttributes(attrs model.AudioAttributes) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.attrs = attrs
}

func (h *beepHandle) PrepareAsync(onReady func(), onError func(error)) {
	h.mu.Lock()
	if h.state != handleIdle {
		h.mu.Unlock()
		return
	}
	h.state = handlePreparing
	h.mu.Unlock()

	go func() {
		err := h.prepare()

		h.mu.Lock()
		if h.state == handleReleased {
			_ = h.closeSource()
			h.mu.Unlock()
			return
		}
		if err != nil {
			_ = h.closeSource()
			h.state = handleIdle
			h.mu.Unlock()
			onError(err)
			return
		}
		// Everything is buffered; the decoder is no longer needed.
		if err := h.closeSource(); err != nil {
			h.player.logger.Debug("failed to close decoded asset", "asset", h.asset, "error", err)
		}
		h.state = handlePrepared
		h.mu.Unlock()
		onReady()
	}()
}

// prepare fills the buffer and initialises the speaker. It runs without the
// handle lock; the source fields are not touched by other methods while the
// handle is preparing.
func (h *beepHandle) prepare() error {
	p := h.player

	if h.buffer == nil {
		var buf *beep.Buffer
		if h.source == nil {
			var err error
			buf, err = sirenBuffer(p.currentSampleRate())
			if err != nil {
				return fmt.Errorf("%w: %w", ErrResourceUnavailable, err)
			}
		} else {
			buf = beep.NewBuffer(h.format)
			buf.Append(h.source)
			if err := h.source.Err(); err != nil {
				return fmt.Errorf("%w: failed to decode sound: %w", ErrResourceUnavailable, err)
			}
		}
		h.buffer = buf
		p.store(h.asset, buf)
		p.logger.Debug("decoded sound", "asset", h.asset, "samples", buf.Len())
	}

	return p.ensureInitialized(h.buffer.Format().SampleRate)
}

func (h *beepHandle) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch h.state {
	case handleReleased:
		return ErrReleased
	case handleIdle, handlePreparing:
		return ErrNotPrepared
	case handlePlaying:
		return nil
	}

	out := h.player.out
	if h.ctrl == nil {
		h.ctrl = &beep.Ctrl{Streamer: h.player.streamFor(h.buffer, h.looping)}
		out.Play(h.ctrl)
	} else {
		out.Lock()
		h.ctrl.Paused = false
		out.Unlock()
	}

	h.state = handlePlaying
	h.player.logger.Debug("handle started", "asset", h.asset, "attributes", h.attrs.String())
	return nil
}

func (h *beepHandle) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != handlePlaying || h.ctrl == nil {
		return
	}

	out := h.player.out
	out.Lock()
	h.ctrl.Paused = true
	out.Unlock()
	h.state = handleStopped
}

func (h *beepHandle) IsPlaying() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state == handlePlaying
}

func (h *beepHandle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state == handleReleased {
		return nil
	}
	wasPreparing := h.state == handlePreparing
	h.state = handleReleased

	if h.ctrl != nil {
		// A nil streamer makes the mixer drop the ctrl on its next pass.
		out := h.player.out
		out.Lock()
		h.ctrl.Streamer = nil
		out.Unlock()
		h.ctrl = nil
	}

	if wasPreparing {
		// The prepare goroutine closes the source when it sees the release.
		return nil
	}
	return h.closeSource()
}

// closeSource closes the decoder and file, if still open.
func (h *beepHandle) closeSource() error {
	var errs []error
	if h.source != nil {
		if err := h.source.Close(); err != nil {
			errs = append(errs, err)
		}
		h.source = nil
	}
	if h.file != nil {
		if err := h.file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			errs = append(errs, err)
		}
		h.file = nil
	}
	return errors.Join(errs...)
}

// Verify Player implements Backend at compile time.
var _ Backend = (*Player)(nil)
