package apu

import (
	"testing"

	"nesgo/internal/bus"
)

func newTestAPU() (*bus.Bus, *APU) {
	b := bus.New()
	return b, New(b)
}

func writeReg(b *bus.Bus, a *APU, addr uint16, value uint8) {
	b.WriteCPU(addr, value)
	a.Tick(0)
	b.ClearLatches()
}

func TestPulseTimerHighLoadsLengthOnlyWhenEnabled(t *testing.T) {
	b, a := newTestAPU()
	writeReg(b, a, 0x4000, 0x00)
	writeReg(b, a, 0x4003, 0x08) // length index 1 -> 254, but channel disabled

	if a.Pulse0.LengthCounter != 0 {
		t.Fatalf("expected length counter to stay 0 while channel disabled, got %d", a.Pulse0.LengthCounter)
	}

	writeReg(b, a, 0x4015, 0x01) // enable pulse0
	writeReg(b, a, 0x4003, 0x08)
	if a.Pulse0.LengthCounter != 254 {
		t.Fatalf("expected length counter loaded once enabled, got %d", a.Pulse0.LengthCounter)
	}
}

func TestChannelEnableClearsLengthImmediately(t *testing.T) {
	b, a := newTestAPU()
	writeReg(b, a, 0x4015, 0x01)
	writeReg(b, a, 0x4003, 0x08)
	if a.Pulse0.LengthCounter == 0 {
		t.Fatal("setup: expected a nonzero length counter")
	}

	writeReg(b, a, 0x4015, 0x00)
	if a.Pulse0.LengthCounter != 0 {
		t.Fatalf("expected disabling $4015 to zero the length counter immediately, got %d", a.Pulse0.LengthCounter)
	}
}

func TestFourStepModePostsIRQOnStepThreeUnlessInhibited(t *testing.T) {
	b, a := newTestAPU()
	writeReg(b, a, 0x4017, 0x00) // 4-step, IRQ enabled

	irqSeen := false
	for i := 0; i < frameSequencerPeriod*5; i++ {
		if a.Tick(1) {
			irqSeen = true
			break
		}
	}
	if !irqSeen {
		t.Fatal("expected frame IRQ within five frame-sequencer periods")
	}
}

func TestFourStepModeSuppressesIRQWhenInhibited(t *testing.T) {
	b, a := newTestAPU()
	writeReg(b, a, 0x4017, 0x40) // IRQ inhibit set

	for i := 0; i < frameSequencerPeriod*5; i++ {
		if a.Tick(1) {
			t.Fatal("expected no IRQ while inhibit flag is set")
		}
	}
}

func TestPulseImplicitlyOffBelowTimerFloor(t *testing.T) {
	b, a := newTestAPU()
	writeReg(b, a, 0x4015, 0x01)
	writeReg(b, a, 0x4002, 0x04) // timer low = 4, stays below 8 with high=0
	writeReg(b, a, 0x4003, 0x08)

	a.Tick(1)
	if !a.Audio.Pulse0.Off {
		t.Fatal("expected pulse channel implicitly off with timer below 8")
	}
}

func TestTriangleTimerHighLoadsLengthWhenEnabled(t *testing.T) {
	b, a := newTestAPU()
	writeReg(b, a, 0x4015, 0x04) // enable triangle
	writeReg(b, a, 0x4008, 0x00) // halt clear, linear load 0
	writeReg(b, a, 0x400B, 0x08)

	if a.Triangle.LengthCounter != 254 {
		t.Fatalf("expected triangle length loaded, got %d", a.Triangle.LengthCounter)
	}
}
