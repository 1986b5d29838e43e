package controller

import (
	"testing"

	"nesgo/internal/bus"
)

func newTestController() (*bus.Bus, *Controller) {
	b := bus.New()
	return b, New(b)
}

func strobeWrite(b *bus.Bus, c *Controller, value uint8) {
	b.WriteCPU(0x4016, value)
	c.Observe()
	b.ClearLatches()
}

func readPort(b *bus.Bus, c *Controller, addr uint16) uint8 {
	b.ReadCPU(addr)
	c.Observe()
	result := b.RAM[addr]
	b.ClearLatches()
	return result
}

func TestStrobeHighAlwaysReturnsLiveButtonA(t *testing.T) {
	b, c := newTestController()
	c.SetButtons([8]bool{true, false, false, false, false, false, false, false})
	strobeWrite(b, c, 0x01)

	if got := readPort(b, c, 0x4016); got&1 != 1 {
		t.Fatalf("expected button A bit set while strobing, got %#02x", got)
	}
	c.SetButton(ButtonA, false)
	if got := readPort(b, c, 0x4016); got&1 != 0 {
		t.Fatalf("expected live button A state reflected while strobing, got %#02x", got)
	}
}

func TestStrobeFallingEdgeLatchesAndShiftsInOrder(t *testing.T) {
	b, c := newTestController()
	c.SetButtons([8]bool{true, true, false, false, false, true, false, false}) // A,B,Down set
	strobeWrite(b, c, 0x01)
	strobeWrite(b, c, 0x00) // falling edge latches snapshot

	want := []uint8{1, 1, 0, 0, 0, 1, 0, 0}
	for i, w := range want {
		got := readPort(b, c, 0x4016) & 1
		if got != w {
			t.Fatalf("bit %d: want %d got %d", i, w, got)
		}
	}
}

func TestTwentyFourReadWraparound(t *testing.T) {
	b, c := newTestController()
	c.SetButton(ButtonA, true)
	strobeWrite(b, c, 0x01)
	strobeWrite(b, c, 0x00)

	for i := 0; i < 8; i++ {
		readPort(b, c, 0x4016)
	}
	for i := 8; i < 24; i++ {
		if got := readPort(b, c, 0x4016) & 1; got != 0 {
			t.Fatalf("read %d: expected 0 padding bit, got %d", i, got)
		}
	}
	// the 24th read should have wrapped the counter and reloaded the snapshot
	if got := readPort(b, c, 0x4016) & 1; got != 1 {
		t.Fatalf("expected wraparound to replay button A bit, got %d", got)
	}
}

func TestSecondControllerLowBitPermanentlyClear(t *testing.T) {
	b, c := newTestController()
	b.RAM[0x4017] = 0xFF

	readPort(b, c, 0x4017)
	if b.RAM[0x4017]&1 != 0 {
		t.Fatal("expected $4017 low bit permanently cleared")
	}
}
