// Package graphics provides an abstraction layer for different rendering
// backends (Ebitengine, headless, terminal).
package graphics

// Backend represents a graphics rendering backend.
type Backend interface {
	// Initialize initializes the graphics backend.
	Initialize(config Config) error

	// CreateWindow creates a window for rendering (a no-op stand-in for
	// headless/terminal backends).
	CreateWindow(title string, width, height int) (Window, error)

	// Cleanup releases all resources.
	Cleanup() error

	// IsHeadless returns true if running in headless mode.
	IsHeadless() bool

	// GetName returns the backend name for identification.
	GetName() string
}

// Window represents a rendering window.
type Window interface {
	// SetTitle sets the window title.
	SetTitle(title string)

	// GetSize returns window dimensions.
	GetSize() (width, height int)

	// ShouldClose returns true if window should close.
	ShouldClose() bool

	// SwapBuffers presents the rendered frame.
	SwapBuffers()

	// PollEvents processes input events.
	PollEvents() []InputEvent

	// RenderFrame renders a NES frame buffer to the window. Pixels are
	// 0xRRGGBBAA words, per spec.md §6's framebuffer format.
	RenderFrame(frameBuffer [256 * 240]uint32) error

	// Cleanup releases window resources.
	Cleanup() error
}

// Config contains configuration for graphics backends.
type Config struct {
	WindowTitle  string
	WindowWidth  int
	WindowHeight int
	Fullscreen   bool
	VSync        bool

	Filter      string // "nearest", "linear"
	AspectRatio string // "4:3", "16:9", "original"

	Headless bool
	Debug    bool
}

// InputEvent represents an input event from the window.
type InputEvent struct {
	Type      InputEventType
	Key       Key
	Button    Button
	Pressed   bool
	Modifiers ModifierKey
}

// InputEventType represents the type of input event.
type InputEventType int

const (
	InputEventTypeKey InputEventType = iota
	InputEventTypeButton
	InputEventTypeQuit
)

// Key represents keyboard keys.
type Key int

const (
	KeyUnknown Key = iota
	KeyEscape
	KeyEnter
	KeySpace
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyW
	KeyA
	KeyS
	KeyD
	KeyJ
	KeyK
	KeyF1
)

// Button represents controller buttons. The NES's second controller port
// is an explicit non-goal, so only player-one buttons are mapped.
type Button int

const (
	ButtonUnknown Button = iota
	ButtonA
	ButtonB
	ButtonSelect
	ButtonStart
	ButtonUp
	ButtonDown
	ButtonLeft
	ButtonRight
)

// ModifierKey represents modifier keys.
type ModifierKey int

const (
	ModifierNone  ModifierKey = 0
	ModifierShift ModifierKey = 1 << iota
	ModifierCtrl
	ModifierAlt
	ModifierSuper
)

// BackendType identifies a graphics backend variant.
type BackendType string

const (
	BackendEbitengine BackendType = "ebitengine"
	BackendHeadless   BackendType = "headless"
	BackendTerminal   BackendType = "terminal"
)

// CreateBackend creates a graphics backend of the specified type.
func CreateBackend(backendType BackendType) (Backend, error) {
	switch backendType {
	case BackendHeadless:
		return NewHeadlessBackend(), nil
	case BackendTerminal:
		return NewTerminalBackend(), nil
	default:
		return NewEbitengineBackend(), nil
	}
}

// pixelRGB splits a framebuffer word into its color channels, discarding
// alpha (always opaque; see ppu.FrameBuffer).
func pixelRGB(pixel uint32) (r, g, b uint8) {
	return uint8(pixel >> 24), uint8(pixel >> 16), uint8(pixel >> 8)
}

// AsEbitengineWindow tries to cast a Window to *EbitengineWindow.
func AsEbitengineWindow(window Window) (*EbitengineWindow, bool) {
	ebitengineWindow, ok := window.(*EbitengineWindow)
	return ebitengineWindow, ok
}
