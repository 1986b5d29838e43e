package app

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"nesgo/internal/audio"
	"nesgo/internal/cartridge"
	"nesgo/internal/controller"
	"nesgo/internal/graphics"
	"nesgo/internal/system"
)

// Application wires the graphics backend, the System clock, and the
// pause/resume/quit control surface into a runnable emulator. The
// execution task (Emulator.Run) is started in its own goroutine; this
// struct drives the video task, polling input and presenting frames.
type Application struct {
	config *Config

	graphicsBackend graphics.Backend
	window          graphics.Window

	emulator *Emulator
	audio    *audio.Player
	romPath  string
	cart     *cartridge.Cartridge

	headless    bool
	initialized bool
}

// ApplicationError wraps a component/operation pair around the underlying
// failure, for callers that want to report which subsystem broke.
type ApplicationError struct {
	Component string
	Operation string
	Err       error
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("application %s error during %s: %v", e.Component, e.Operation, e.Err)
}

// NewApplication creates a GUI application, loading configuration from
// configPath (or defaults, if empty).
func NewApplication(configPath string) (*Application, error) {
	return NewApplicationWithMode(configPath, false)
}

// NewApplicationWithMode creates an application, optionally forcing
// headless mode regardless of configuration.
func NewApplicationWithMode(configPath string, headless bool) (*Application, error) {
	app := &Application{
		config:   NewConfig(),
		headless: headless,
	}

	if configPath != "" {
		if err := app.config.LoadFromFile(configPath); err != nil {
			fmt.Printf("could not load config from %s, using defaults: %v\n", configPath, err)
		}
	}

	if err := app.initializeGraphicsBackend(headless); err != nil {
		return nil, &ApplicationError{Component: "graphics", Operation: "initialize", Err: err}
	}

	app.initialized = true
	return app, nil
}

func (app *Application) initializeGraphicsBackend(headless bool) error {
	var backendType graphics.BackendType
	switch {
	case headless:
		backendType = graphics.BackendHeadless
	case app.config.Video.Backend == "headless":
		backendType = graphics.BackendHeadless
	case app.config.Video.Backend == "terminal":
		backendType = graphics.BackendTerminal
	default:
		backendType = graphics.BackendEbitengine
	}

	backend, err := graphics.CreateBackend(backendType)
	if err != nil {
		return fmt.Errorf("create backend: %w", err)
	}
	app.graphicsBackend = backend

	graphicsConfig := graphics.Config{
		WindowTitle:  "nesgo",
		WindowWidth:  app.config.Window.Width,
		WindowHeight: app.config.Window.Height,
		Fullscreen:   app.config.Window.Fullscreen,
		VSync:        app.config.Video.VSync,
		Filter:       app.config.Video.Filter,
		AspectRatio:  app.config.Video.AspectRatio,
		Headless:     headless,
		Debug:        app.config.Debug.EnableLogging,
	}

	if err := app.graphicsBackend.Initialize(graphicsConfig); err != nil {
		if backendType != graphics.BackendEbitengine {
			return fmt.Errorf("initialize backend: %w", err)
		}
		fmt.Printf("ebitengine backend failed (%v), falling back to headless\n", err)
		app.graphicsBackend, err = graphics.CreateBackend(graphics.BackendHeadless)
		if err != nil {
			return fmt.Errorf("create fallback headless backend: %w", err)
		}
		graphicsConfig.Headless = true
		if err := app.graphicsBackend.Initialize(graphicsConfig); err != nil {
			return fmt.Errorf("initialize fallback headless backend: %w", err)
		}
	}

	window, err := app.graphicsBackend.CreateWindow(graphicsConfig.WindowTitle, graphicsConfig.WindowWidth, graphicsConfig.WindowHeight)
	if err != nil {
		return fmt.Errorf("create window: %w", err)
	}
	app.window = window

	return nil
}

// LoadROM loads a cartridge, wires a fresh System to it, and starts the
// execution task.
func (app *Application) LoadROM(romPath string) error {
	if !app.initialized {
		return errors.New("application not initialized")
	}

	cart, err := cartridge.Load(romPath)
	if err != nil {
		return &ApplicationError{Component: "cartridge", Operation: "load ROM", Err: err}
	}
	app.cart = cart
	app.romPath = romPath

	app.emulator = NewEmulator(system.New(cart), app.config)

	if app.window != nil {
		app.window.SetTitle(fmt.Sprintf("nesgo - %s", filepath.Base(romPath)))
	}

	if app.config.Audio.Enabled {
		player, err := audio.NewPlayer(app.config.Audio.SampleRate, app.emulator.AudioParams)
		if err != nil {
			fmt.Printf("audio unavailable, continuing silently: %v\n", err)
		} else {
			player.SetVolume(float64(app.config.Audio.Volume))
			player.Start()
			app.audio = player
		}
	}

	go app.emulator.Run()
	return nil
}

// Run drives the video task: poll input, consume ready frames, present
// them, and pace to roughly 60fps. Ebitengine backends instead hand this
// loop to ebiten's own ticker via SetEmulatorUpdateFunc, since ebiten must
// own the render thread.
func (app *Application) Run() error {
	if !app.initialized {
		return errors.New("application not initialized")
	}

	if ebitengineWindow, ok := graphics.AsEbitengineWindow(app.window); ok {
		ebitengineWindow.SetEmulatorUpdateFunc(func() error {
			app.processInput()
			app.presentFrame()
			if app.window.ShouldClose() {
				app.Stop()
			}
			return nil
		})
		return ebitengineWindow.Run()
	}

	for !app.emulator.IsQuit() {
		app.processInput()
		app.presentFrame()
		if app.window != nil && app.window.ShouldClose() {
			app.Stop()
		}
		time.Sleep(16 * time.Millisecond)
	}
	return nil
}

func (app *Application) presentFrame() {
	if app.window == nil || app.emulator == nil {
		return
	}
	if frame, ready := app.emulator.ConsumeFrame(); ready {
		app.window.RenderFrame(frame)
		app.window.SwapBuffers()
	}
}

func (app *Application) processInput() {
	if app.window == nil || app.emulator == nil {
		return
	}

	for _, event := range app.window.PollEvents() {
		switch event.Type {
		case graphics.InputEventTypeQuit:
			app.Stop()
		case graphics.InputEventTypeButton:
			if button, ok := graphicsButtonToControllerButton(event.Button); ok {
				app.emulator.SetButton(button, event.Pressed)
			}
		}
	}
}

func graphicsButtonToControllerButton(b graphics.Button) (controller.Button, bool) {
	switch b {
	case graphics.ButtonA:
		return controller.ButtonA, true
	case graphics.ButtonB:
		return controller.ButtonB, true
	case graphics.ButtonSelect:
		return controller.ButtonSelect, true
	case graphics.ButtonStart:
		return controller.ButtonStart, true
	case graphics.ButtonUp:
		return controller.ButtonUp, true
	case graphics.ButtonDown:
		return controller.ButtonDown, true
	case graphics.ButtonLeft:
		return controller.ButtonLeft, true
	case graphics.ButtonRight:
		return controller.ButtonRight, true
	default:
		return 0, false
	}
}

// SetControllerButtons sets all eight player-one button states at once.
func (app *Application) SetControllerButtons(buttons [8]bool) {
	if app.emulator != nil {
		app.emulator.ApplyInput(buttons)
	}
}

// DumpRegisters writes a plain-text snapshot of CPU/PPU register state,
// replacing the SMB-specific watchpoint/execution-log debugger this was
// learned from with a generic, ROM-agnostic dump.
func (app *Application) DumpRegisters() string {
	if app.emulator == nil {
		return ""
	}
	c := app.emulator.System.CPU
	p := app.emulator.System.PPU
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "PC=%04X A=%02X X=%02X Y=%02X SP=%02X\n", c.PC, c.A, c.X, c.Y, c.SP)
	fmt.Fprintf(&buf, "scanline=%d pixel=%d vramAddr=%04X frame=%d\n", p.Scanline, p.Pixel, p.VRAMAddr, p.FrameCount)
	return buf.String()
}

func (app *Application) Stop()    { app.emulator.Quit() }
func (app *Application) Pause()   { app.emulator.Pause() }
func (app *Application) Resume()  { app.emulator.Resume() }
func (app *Application) Reset()   { app.emulator.Reset() }
func (app *Application) IsPaused() bool {
	return app.emulator != nil && app.emulator.IsPaused()
}
func (app *Application) IsRunning() bool {
	return app.emulator != nil && !app.emulator.IsQuit()
}
func (app *Application) GetFrameCount() uint64 {
	if app.emulator == nil {
		return 0
	}
	return app.emulator.FrameCount()
}
func (app *Application) GetConfig() *Config { return app.config }
func (app *Application) GetROMPath() string { return app.romPath }
func (app *Application) GetUptime() time.Duration {
	if app.emulator == nil {
		return 0
	}
	return app.emulator.Uptime()
}

// Cleanup releases the graphics backend and window.
func (app *Application) Cleanup() error {
	if app.emulator != nil {
		app.emulator.Quit()
	}
	if app.audio != nil {
		app.audio.Close()
	}
	if app.window != nil {
		app.window.Cleanup()
	}
	if app.graphicsBackend != nil {
		return app.graphicsBackend.Cleanup()
	}
	return nil
}
