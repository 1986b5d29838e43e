package graphics

import "fmt"

// HeadlessBackend implements Backend with no window and no I/O side effects,
// for running the emulator under test or as a batch ROM runner.
type HeadlessBackend struct {
	initialized bool
	config      Config
}

// HeadlessWindow implements Window for headless operation.
type HeadlessWindow struct {
	title      string
	width      int
	height     int
	running    bool
	frameCount int
}

// NewHeadlessBackend creates a new headless graphics backend.
func NewHeadlessBackend() Backend {
	return &HeadlessBackend{}
}

func (b *HeadlessBackend) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("headless backend already initialized")
	}
	b.config = config
	b.initialized = true
	return nil
}

func (b *HeadlessBackend) CreateWindow(title string, width, height int) (Window, error) {
	if !b.initialized {
		return nil, fmt.Errorf("backend not initialized")
	}
	return &HeadlessWindow{title: title, width: width, height: height, running: true}, nil
}

func (b *HeadlessBackend) Cleanup() error {
	b.initialized = false
	return nil
}

func (b *HeadlessBackend) IsHeadless() bool { return true }
func (b *HeadlessBackend) GetName() string  { return "Headless" }

func (w *HeadlessWindow) SetTitle(title string)          { w.title = title }
func (w *HeadlessWindow) GetSize() (width, height int)   { return w.width, w.height }
func (w *HeadlessWindow) ShouldClose() bool              { return !w.running }
func (w *HeadlessWindow) SwapBuffers()                   {}
func (w *HeadlessWindow) PollEvents() []InputEvent       { return nil }

// RenderFrame just counts frames; headless mode exists to run a cartridge
// to completion without a display.
func (w *HeadlessWindow) RenderFrame(frameBuffer [256 * 240]uint32) error {
	w.frameCount++
	return nil
}

func (w *HeadlessWindow) Cleanup() error {
	w.running = false
	return nil
}

// GetFrameCount returns the number of frames rendered so far.
func (w *HeadlessWindow) GetFrameCount() int { return w.frameCount }
