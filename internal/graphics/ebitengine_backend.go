//go:build !headless
// +build !headless

package graphics

import (
	"fmt"
	"image"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// EbitengineBackend implements Backend using Ebitengine.
type EbitengineBackend struct {
	initialized bool
	config      Config
	game        *EbitengineGame
}

// EbitengineWindow implements Window for Ebitengine.
type EbitengineWindow struct {
	backend            *EbitengineBackend
	title              string
	width              int
	height             int
	game               *EbitengineGame
	running            bool
	events             []InputEvent
	emulatorUpdateFunc func() error
}

// EbitengineGame implements ebiten.Game for the emulator.
type EbitengineGame struct {
	window       *EbitengineWindow
	frameImage   *ebiten.Image
	nesWidth     int
	nesHeight    int
	windowWidth  int
	windowHeight int
	imageBuffer  *image.RGBA
}

// NewEbitengineBackend creates a new Ebitengine graphics backend.
func NewEbitengineBackend() Backend {
	return &EbitengineBackend{}
}

func (b *EbitengineBackend) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("ebitengine backend already initialized")
	}
	b.config = config
	b.initialized = true
	return nil
}

func (b *EbitengineBackend) CreateWindow(title string, width, height int) (Window, error) {
	if !b.initialized {
		return nil, fmt.Errorf("backend not initialized")
	}
	if b.config.Headless {
		return nil, fmt.Errorf("cannot create window in headless mode")
	}

	game := &EbitengineGame{
		nesWidth:     256,
		nesHeight:    240,
		windowWidth:  width,
		windowHeight: height,
		frameImage:   ebiten.NewImage(256, 240),
		imageBuffer:  image.NewRGBA(image.Rect(0, 0, 256, 240)),
	}

	window := &EbitengineWindow{
		backend: b,
		title:   title,
		width:   width,
		height:  height,
		game:    game,
		running: true,
	}
	game.window = window
	b.game = game

	ebiten.SetWindowTitle(title)
	ebiten.SetWindowSize(width, height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetVsyncEnabled(b.config.VSync)
	if b.config.Fullscreen {
		ebiten.SetFullscreen(true)
	}
	ebiten.SetScreenFilterEnabled(b.config.Filter == "linear")

	return window, nil
}

func (b *EbitengineBackend) Cleanup() error {
	b.initialized = false
	return nil
}

func (b *EbitengineBackend) IsHeadless() bool { return b.config.Headless }
func (b *EbitengineBackend) GetName() string  { return "Ebitengine" }

func (w *EbitengineWindow) SetTitle(title string) {
	w.title = title
	ebiten.SetWindowTitle(title)
}

func (w *EbitengineWindow) GetSize() (width, height int) { return w.width, w.height }
func (w *EbitengineWindow) ShouldClose() bool            { return !w.running }
func (w *EbitengineWindow) SwapBuffers()                 {}

// PollEvents returns input events accumulated since the last call.
func (w *EbitengineWindow) PollEvents() []InputEvent {
	events := w.events
	w.events = nil
	return events
}

// RenderFrame converts the framebuffer's 0xRRGGBBAA words into an
// *ebiten.Image via a reusable RGBA buffer.
func (w *EbitengineWindow) RenderFrame(frameBuffer [256 * 240]uint32) error {
	if w.game == nil {
		return fmt.Errorf("game not initialized")
	}
	img := w.game.imageBuffer
	for y := 0; y < 240; y++ {
		for x := 0; x < 256; x++ {
			r, g, b := pixelRGB(frameBuffer[y*256+x])
			img.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
		}
	}
	w.game.frameImage.ReplacePixels(img.Pix)
	return nil
}

func (w *EbitengineWindow) Cleanup() error {
	w.running = false
	return nil
}

// Run starts the Ebitengine game loop; it blocks until the window closes.
func (w *EbitengineWindow) Run() error {
	if w.game == nil {
		return fmt.Errorf("game not initialized")
	}
	return ebiten.RunGame(w.game)
}

// SetEmulatorUpdateFunc registers the callback driven once per Ebitengine
// update tick (nominally 60 Hz), which the app package uses to poll input
// and present ready frames; the System clock runs in its own goroutine.
func (w *EbitengineWindow) SetEmulatorUpdateFunc(updateFunc func() error) {
	w.emulatorUpdateFunc = updateFunc
}

func (g *EbitengineGame) Update() error {
	if g.window == nil {
		return nil
	}
	g.processInput()
	if g.window.emulatorUpdateFunc != nil {
		return g.window.emulatorUpdateFunc()
	}
	return nil
}

func (g *EbitengineGame) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{R: 0, G: 0, B: 0, A: 255})
	if g.frameImage == nil {
		return
	}

	op := &ebiten.DrawImageOptions{}
	scaleX := float64(g.windowWidth) / float64(g.nesWidth)
	scaleY := float64(g.windowHeight) / float64(g.nesHeight)
	scale := scaleX
	if scaleY < scaleX {
		scale = scaleY
	}
	offsetX := (float64(g.windowWidth) - float64(g.nesWidth)*scale) / 2
	offsetY := (float64(g.windowHeight) - float64(g.nesHeight)*scale) / 2

	op.GeoM.Scale(scale, scale)
	op.GeoM.Translate(offsetX, offsetY)
	screen.DrawImage(g.frameImage, op)
}

func (g *EbitengineGame) Layout(outsideWidth, outsideHeight int) (screenWidth, screenHeight int) {
	g.windowWidth = outsideWidth
	g.windowHeight = outsideHeight
	return outsideWidth, outsideHeight
}

var keyMappings = map[ebiten.Key]Key{
	ebiten.KeyEscape:     KeyEscape,
	ebiten.KeyEnter:      KeyEnter,
	ebiten.KeySpace:      KeySpace,
	ebiten.KeyArrowUp:    KeyUp,
	ebiten.KeyArrowDown:  KeyDown,
	ebiten.KeyArrowLeft:  KeyLeft,
	ebiten.KeyArrowRight: KeyRight,
	ebiten.KeyW:          KeyW,
	ebiten.KeyA:          KeyA,
	ebiten.KeyS:          KeyS,
	ebiten.KeyD:          KeyD,
	ebiten.KeyJ:          KeyJ,
	ebiten.KeyK:          KeyK,
}

var buttonMappings = map[Key]Button{
	KeyUp:    ButtonUp,
	KeyDown:  ButtonDown,
	KeyLeft:  ButtonLeft,
	KeyRight: ButtonRight,
	KeyW:     ButtonUp,
	KeyS:     ButtonDown,
	KeyA:     ButtonLeft,
	KeyD:     ButtonRight,
	KeyJ:     ButtonA,
	KeyK:     ButtonB,
	KeyEnter: ButtonStart,
	KeySpace: ButtonSelect,
}

// processInput translates just-pressed/just-released Ebitengine keys into
// InputEvents, mapping the subset that corresponds to NES controller
// buttons into button events.
func (g *EbitengineGame) processInput() {
	if g.window == nil {
		return
	}

	var events []InputEvent
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		events = append(events, InputEvent{Type: InputEventTypeQuit, Pressed: true})
	}

	for ebitenKey, key := range keyMappings {
		var pressed bool
		switch {
		case inpututil.IsKeyJustPressed(ebitenKey):
			pressed = true
		case inpututil.IsKeyJustReleased(ebitenKey):
			pressed = false
		default:
			continue
		}

		if button, ok := buttonMappings[key]; ok {
			events = append(events, InputEvent{Type: InputEventTypeButton, Button: button, Pressed: pressed})
		} else {
			events = append(events, InputEvent{Type: InputEventTypeKey, Key: key, Pressed: pressed})
		}
	}

	g.window.events = append(g.window.events, events...)
}
