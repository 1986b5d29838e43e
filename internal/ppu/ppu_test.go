package ppu

import (
	"testing"

	"nesgo/internal/bus"
)

func newTestPPU() (*bus.Bus, *PPU) {
	b := bus.New()
	return b, New(b)
}

func TestScanlineAndPixelStayInBounds(t *testing.T) {
	b, p := newTestPPU()
	_ = b
	for i := 0; i < 400000; i++ {
		p.Tick(false)
		if p.Scanline < 0 || p.Scanline > 261 {
			t.Fatalf("scanline out of range: %d", p.Scanline)
		}
		if p.Pixel < 0 || p.Pixel > 340 {
			t.Fatalf("pixel out of range: %d", p.Pixel)
		}
	}
}

func TestStatusReadClearsVblankAndBothToggles(t *testing.T) {
	b, p := newTestPPU()
	p.Bus.RAM[0x2002] = 0x80
	p.AddrHighNext = false
	p.ScrollXNext = false

	b.ReadCPU(0x2002)
	p.Observe()

	if b.RAM[0x2002]&0x80 != 0 {
		t.Fatal("expected vblank flag cleared by PPUSTATUS read")
	}
	if !p.AddrHighNext || !p.ScrollXNext {
		t.Fatal("expected both address/scroll toggles reset by PPUSTATUS read")
	}
}

func TestPPUAddrTwoWriteThenDataAdvancesByIncrement(t *testing.T) {
	b, p := newTestPPU()
	p.Bus.VRAM[0x0305] = 0x42
	p.Bus.VRAM[0x0306] = 0x43

	writeRegister(b, p, 0x2006, 0x03)
	writeRegister(b, p, 0x2006, 0x05)

	if p.VRAMAddr != 0x0305 {
		t.Fatalf("expected VRAMAddr 0x0305 after two PPUADDR writes, got %#04x", p.VRAMAddr)
	}

	// First PPUDATA read returns the stale buffer, then primes the buffer
	// with the byte actually at the address and advances by the
	// configured increment.
	first := readRegister(b, p, 0x2007)
	if first != 0 {
		t.Fatalf("expected stale (zero) buffered read first, got %#02x", first)
	}

	second := readRegister(b, p, 0x2007)
	if second != 0x42 {
		t.Fatalf("expected buffered read to surface 0x42, got %#02x", second)
	}
	if p.VRAMAddr != 0x0307 {
		t.Fatalf("expected VRAMAddr incremented twice by 1, got %#04x", p.VRAMAddr)
	}
}

func TestPaletteReadIsImmediateNotBuffered(t *testing.T) {
	b, p := newTestPPU()
	p.Bus.VRAM[0x3F05] = 0x16

	writeRegister(b, p, 0x2006, 0x3F)
	writeRegister(b, p, 0x2006, 0x05)

	if got := readRegister(b, p, 0x2007); got != 0x16 {
		t.Fatalf("expected immediate palette read, got %#02x", got)
	}
}

func TestVblankSetsFlagAndPostsNMIWhenEnabled(t *testing.T) {
	b, p := newTestPPU()
	writeRegister(b, p, 0x2000, 0x80) // enable NMI on vblank

	nmiSeen := false
	for i := 0; i < 400000 && !nmiSeen; i++ {
		if p.Tick(false) {
			nmiSeen = true
		}
	}
	if !nmiSeen {
		t.Fatal("expected NMI to post on entering vblank")
	}
	if p.Bus.RAM[0x2002]&0x80 == 0 {
		t.Fatal("expected vblank flag set in PPUSTATUS")
	}
}

func TestSpriteOverflowFlaggedWithMoreThanEightInRange(t *testing.T) {
	b, p := newTestPPU()
	for i := 0; i < 9; i++ {
		b.OAM[i*4] = 10 // Y such that scanline 11 is within an 8px sprite
	}

	p.Scanline = 10
	p.Pixel = 341
	p.Tick(false)

	if p.Bus.RAM[0x2002]&0x20 == 0 {
		t.Fatal("expected sprite overflow flag set with 9 sprites in range")
	}
}

func writeRegister(b *bus.Bus, p *PPU, addr uint16, value uint8) {
	b.WriteCPU(addr, value)
	p.Observe()
	b.ClearLatches()
}

// readRegister returns the value the CPU read, before Observe re-primes
// the register for the next read.
func readRegister(b *bus.Bus, p *PPU, addr uint16) uint8 {
	v := b.ReadCPU(addr)
	p.Observe()
	b.ClearLatches()
	return v
}
