package audio

import (
	"fmt"
	"sync"

	"github.com/jmylchreest/klaxon/internal/model"
)

// MockBackend is a test double for Backend. Preparation never completes on
// its own; tests call MockHandle.Ready or MockHandle.Fail.
type MockBackend struct {
	mu      sync.Mutex
	openErr error
	opened  []string
	handles []*MockHandle
}

// NewMockBackend creates a new mock backend.
func NewMockBackend() *MockBackend {
	return &MockBackend{}
}

// SetOpenError makes every following Open fail with err.
func (b *MockBackend) SetOpenError(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.openErr = err
}

// Open implements Backend.
func (b *MockBackend) Open(asset string) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.opened = append(b.opened, asset)
	if b.openErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrResourceUnavailable, b.openErr)
	}
	h := &MockHandle{asset: asset}
	b.handles = append(b.handles, h)
	return h, nil
}

// Opened returns the assets passed to Open, in order.
func (b *MockBackend) Opened() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.opened...)
}

// Handles returns every handle created so far.
func (b *MockBackend) Handles() []*MockHandle {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*MockHandle(nil), b.handles...)
}

// Last returns the most recently opened handle, or nil.
func (b *MockBackend) Last() *MockHandle {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.handles) == 0 {
		return nil
	}
	return b.handles[len(b.handles)-1]
}

// MockHandle is a test double for Handle.
type MockHandle struct {
	mu         sync.Mutex
	asset      string
	looping    bool
	attrs      model.AudioAttributes
	playing    bool
	released   bool
	onReady    func()
	onError    func(error)
	prepares   int
	starts     int
	stops      int
	releases   int
	startErr   error
	releaseErr error
}

func (h *MockHandle) SetLooping(looping bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.looping = looping
}

func (h *MockHandle) SetAttributes(attrs model.AudioAttributes) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.attrs = attrs
}

func (h *MockHandle) PrepareAsync(onReady func(), onError func(error)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.prepares++
	h.onReady = onReady
	h.onError = onError
}

func (h *MockHandle) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return ErrReleased
	}
	h.starts++
	if h.startErr != nil {
		return h.startErr
	}
	h.playing = true
	return nil
}

func (h *MockHandle) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stops++
	h.playing = false
}

func (h *MockHandle) IsPlaying() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.playing
}

func (h *MockHandle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.releases++
	h.released = true
	h.playing = false
	return h.releaseErr
}

// Ready fires the readiness callback registered by PrepareAsync, the way a
// backend would once decoding completes. Callbacks fire even after Release
// so tests can exercise stale signals.
func (h *MockHandle) Ready() {
	h.mu.Lock()
	fn := h.onReady
	h.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Fail fires the error callback registered by PrepareAsync.
func (h *MockHandle) Fail(err error) {
	h.mu.Lock()
	fn := h.onError
	h.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}

// Interrupt simulates output halting outside the controller's control.
func (h *MockHandle) Interrupt() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.playing = false
}

// SetStartError makes Start fail with err.
func (h *MockHandle) SetStartError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.startErr = err
}

// SetReleaseError makes Release fail with err.
func (h *MockHandle) SetReleaseError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.releaseErr = err
}

func (h *MockHandle) Asset() string { return h.asset }

func (h *MockHandle) Looping() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.looping
}

func (h *MockHandle) Attributes() model.AudioAttributes {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.attrs
}

func (h *MockHandle) Released() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.released
}

// Counts returns how often PrepareAsync, Start, Stop and Release were called.
func (h *MockHandle) Counts() (prepares, starts, stops, releases int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.prepares, h.starts, h.stops, h.releases
}

// Verify mocks implement the interfaces at compile time.
var (
	_ Backend = (*MockBackend)(nil)
	_ Handle  = (*MockHandle)(nil)
)
