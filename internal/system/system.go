// Package system implements the top-level clock that drives one CPU
// instruction and its matching APU, PPU, controller, and mapper work.
package system

import (
	"nesgo/internal/apu"
	"nesgo/internal/bus"
	"nesgo/internal/cartridge"
	"nesgo/internal/controller"
	"nesgo/internal/cpu"
	"nesgo/internal/ppu"
)

// System owns one cartridge session's Bus and the components wired to it.
type System struct {
	Bus         *bus.Bus
	CPU         *cpu.CPU
	PPU         *ppu.PPU
	APU         *apu.APU
	Controller1 *controller.Controller
	Mapper      cartridge.Mapper
}

// New wires a fresh Bus to the given cartridge's mapper and resets every
// component to its power-on state.
func New(cart *cartridge.Cartridge) *System {
	b := bus.New()
	s := &System{
		Bus:         b,
		CPU:         cpu.New(b),
		PPU:         ppu.New(b),
		APU:         apu.New(b),
		Controller1: controller.New(b),
		Mapper:      cart.Mapper,
	}

	s.Mapper.Load(b)
	s.CPU.Reset()
	s.PPU.Reset()
	s.APU.Reset()
	s.Controller1.Reset()

	// PC loads from the reset vector on the first Step, after the mapper
	// has already installed the initial PRG banks above.
	return s
}

// Step runs one CPU instruction (or one interrupt-service/DMA step) and the
// APU, controller, mapper, and PPU work that belongs to it: one APU
// tick(N), one controller observation, one mapper monitor, one PPU
// observation tick, and 3N-1 additional plain PPU ticks. Returns N, the CPU
// cycles consumed, for callers pacing real-time execution.
func (s *System) Step() (uint8, error) {
	s.PPU.PreparePPUDataRead()

	n, err := s.CPU.Step()
	if err != nil {
		return n, err
	}

	if s.Bus.HasWrite && s.Bus.LastWriteAddr == 0x4014 {
		s.CPU.RequestDMA(s.Bus.LastWriteData)
	}

	if s.APU.Tick(n) {
		s.CPU.RequestIRQ()
	}

	s.Controller1.Observe()
	s.Mapper.Monitor(s.Bus)

	if s.PPU.Tick(true) {
		s.CPU.RequestNMI()
	}
	for i := 0; i < 3*int(n)-1; i++ {
		s.PPU.Tick(false)
	}

	s.Bus.ClearLatches()
	return n, nil
}

// Reset reinitializes every component to its power-on state without
// reloading the cartridge.
func (s *System) Reset() {
	s.Bus.Reset()
	s.CPU.Reset()
	s.PPU.Reset()
	s.APU.Reset()
	s.Controller1.Reset()
	s.Mapper.Load(s.Bus)
}
