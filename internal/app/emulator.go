package app

import (
	"sync/atomic"
	"time"

	"nesgo/internal/apu"
	"nesgo/internal/controller"
	"nesgo/internal/system"
)

// cpuHz is the NTSC CPU clock rate the execution task paces itself against.
const cpuHz = 1789773

// cyclesPerBatch is the cycle count the execution task accumulates before
// spinning on a wall-clock timer to align to 1ms, per the pacing model.
const cyclesPerBatch = 1789

// Emulator owns the System clock and exposes the shouldEmulate/shouldPause/
// shouldQuit control surface the execution task observes at least once per
// instruction.
type Emulator struct {
	System *system.System
	config *Config

	shouldEmulate atomic.Bool
	shouldPause   atomic.Bool
	shouldQuit    atomic.Bool

	frameCount    uint64
	lastResetTime time.Time
}

// NewEmulator wires a System to its control surface. The execution task is
// not started until Run is called.
func NewEmulator(sys *system.System, config *Config) *Emulator {
	e := &Emulator{System: sys, config: config, lastResetTime: time.Now()}
	e.shouldEmulate.Store(true)
	return e
}

// Run is the execution task: an outer loop over shouldQuit and an inner
// loop over shouldEmulate/shouldPause, replacing the goto-based thread
// lifecycle of the system this was learned from. It blocks; callers run it
// in its own goroutine.
func (e *Emulator) Run() {
	for !e.shouldQuit.Load() {
		for e.shouldEmulate.Load() && !e.shouldPause.Load() && !e.shouldQuit.Load() {
			if !e.runBatch() {
				e.shouldQuit.Store(true)
				break
			}
		}
		if !e.shouldQuit.Load() {
			time.Sleep(time.Millisecond)
		}
	}
}

// runBatch executes CPU instructions until roughly cyclesPerBatch cycles
// have accumulated, then spins on a wall-clock timer to align to 1ms,
// pacing the execution task at ~1.789 MHz. The control flags are checked
// before every instruction, and the batch ends early when one of them asks
// the task to stop. Returns false on a CPU error.
func (e *Emulator) runBatch() bool {
	start := time.Now()
	var cycles uint64
	for cycles < cyclesPerBatch {
		if e.shouldQuit.Load() || e.shouldPause.Load() || !e.shouldEmulate.Load() {
			return true
		}
		n, err := e.System.Step()
		if err != nil {
			return false
		}
		cycles += uint64(n)
	}
	for time.Since(start) < time.Millisecond {
	}
	return true
}

// Pause suspends the execution task without losing state.
func (e *Emulator) Pause() { e.shouldPause.Store(true) }

// Resume un-suspends a paused execution task.
func (e *Emulator) Resume() { e.shouldPause.Store(false) }

// Quit tells the execution task to stop. It only sets shouldQuit and
// returns at once; Run exits on its next check of the flag.
func (e *Emulator) Quit() { e.shouldQuit.Store(true) }

// IsPaused reports whether the execution task is currently suspended.
func (e *Emulator) IsPaused() bool { return e.shouldPause.Load() }

// IsQuit reports whether the execution task has been told to stop.
func (e *Emulator) IsQuit() bool { return e.shouldQuit.Load() }

// ConsumeFrame polls the frame-ready flag the PPU sets on entering vblank.
// If a frame is ready, it copies the framebuffer out and clears the flag,
// mirroring the video task's "natural hand-off" presentation window.
func (e *Emulator) ConsumeFrame() (frame [256 * 240]uint32, ready bool) {
	if !e.System.PPU.FrameReady {
		return frame, false
	}
	frame = e.System.PPU.FrameBuffer
	e.System.PPU.FrameReady = false
	e.frameCount++
	return frame, true
}

// ApplyInput updates the live controller button state. Per the concurrency
// model, this is a racy, lock-free write: the execution task may observe a
// stale value for up to one instruction.
func (e *Emulator) ApplyInput(buttons [8]bool) {
	e.System.Controller1.SetButtons(buttons)
}

// SetButton updates a single controller button.
func (e *Emulator) SetButton(button controller.Button, pressed bool) {
	e.System.Controller1.SetButton(button, pressed)
}

// AudioParams returns the APU's published oscillator parameters for the
// audio task's renderer to sample lock-free.
func (e *Emulator) AudioParams() apu.AudioParams {
	return e.System.APU.Audio
}

// FrameCount returns the number of frames the video task has consumed.
func (e *Emulator) FrameCount() uint64 { return e.frameCount }

// Uptime returns time elapsed since the emulator was created or last reset.
func (e *Emulator) Uptime() time.Duration { return time.Since(e.lastResetTime) }

// Reset reinitializes the System without reloading the cartridge and clears
// frame bookkeeping.
func (e *Emulator) Reset() {
	e.System.Reset()
	e.frameCount = 0
	e.lastResetTime = time.Now()
}
