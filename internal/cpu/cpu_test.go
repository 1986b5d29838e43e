package cpu

import (
	"errors"
	"testing"

	"nesgo/internal/bus"
)

func newTestCPU() *CPU {
	b := bus.New()
	c := New(b)
	c.PC = 0x8000
	return c
}

func TestResetLoadsVectorAndClearsFlags(t *testing.T) {
	c := newTestCPU()
	c.Bus.RAM[resetVector] = 0x00
	c.Bus.RAM[resetVector+1] = 0x80
	c.Reset()

	if _, err := c.Step(); err != nil {
		t.Fatalf("reset step: %v", err)
	}
	if c.PC != 0x8000 {
		t.Fatalf("expected PC loaded from reset vector, got %#04x", c.PC)
	}
	if !c.U {
		t.Fatal("U flag must always read true")
	}
	if !c.I {
		t.Fatal("I flag must be set after reset")
	}
}

func TestPushPullAccumulatorRoundTrip(t *testing.T) {
	c := newTestCPU()
	c.A = 0x42
	c.Bus.RAM[0x8000] = 0x48 // PHA
	c.Bus.RAM[0x8001] = 0xA9 // LDA #$00
	c.Bus.RAM[0x8002] = 0x00
	c.Bus.RAM[0x8003] = 0x68 // PLA

	if _, err := c.Step(); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Step(); err != nil {
		t.Fatal(err)
	}
	if c.A != 0 {
		t.Fatalf("expected A cleared by LDA, got %#02x", c.A)
	}
	if _, err := c.Step(); err != nil {
		t.Fatal(err)
	}
	if c.A != 0x42 {
		t.Fatalf("expected A restored to 0x42 by PLA, got %#02x", c.A)
	}
}

func TestPushPullStatusDiscardsBAndForcesU(t *testing.T) {
	c := newTestCPU()
	c.N, c.C = true, true
	c.Bus.RAM[0x8000] = 0x08 // PHP
	c.Bus.RAM[0x8001] = 0x28 // PLP

	if _, err := c.Step(); err != nil {
		t.Fatal(err)
	}
	c.N, c.C = false, false // scramble flags before PLP restores them
	if _, err := c.Step(); err != nil {
		t.Fatal(err)
	}

	if !c.N || !c.C {
		t.Fatal("expected N and C restored by PLP")
	}
	if c.B {
		t.Fatal("B must be discarded by PLP")
	}
	if !c.U {
		t.Fatal("U must always be forced true")
	}
}

func TestAdcSbcIdentity(t *testing.T) {
	c := newTestCPU()
	c.A = 0x50
	c.C = false
	c.adc(0x10)
	afterAdc := c.A

	c.A = afterAdc
	c.C = true
	c.adc(^uint8(0x10))
	if c.A != 0x50 {
		t.Fatalf("ADC/SBC should be inverse operations, got %#02x", c.A)
	}
}

func TestAdcOverflowFlag(t *testing.T) {
	c := newTestCPU()
	c.A = 0x7F
	c.C = false
	c.adc(0x01)
	if c.A != 0x80 {
		t.Fatalf("expected 0x80, got %#02x", c.A)
	}
	if !c.V {
		t.Fatal("expected signed overflow when adding two positives yields a negative")
	}
	if !c.N {
		t.Fatal("expected N set for 0x80")
	}
}

func TestBranchPageCrossAddsExtraCycle(t *testing.T) {
	c := newTestCPU()
	c.PC = 0x80FD
	c.Z = true
	c.Bus.RAM[0x80FD] = 0xF0 // BEQ
	c.Bus.RAM[0x80FE] = 0x05 // +5 from the $80FF base lands on $8104, crossing a page

	cycles, err := c.Step()
	if err != nil {
		t.Fatal(err)
	}
	if cycles != 4 {
		t.Fatalf("expected 2 base + 1 taken + 1 page-cross = 4 cycles, got %d", cycles)
	}
}

func TestInvalidOpcodeIsFatal(t *testing.T) {
	c := newTestCPU()
	c.Bus.RAM[0x8000] = 0xFF // not in the legal opcode set
	_, err := c.Step()
	if err == nil {
		t.Fatal("expected invalid opcode error")
	}
	var invalid *InvalidOpcodeError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected *InvalidOpcodeError, got %T", err)
	}
}

func TestOAMDMATakes513Cycles(t *testing.T) {
	c := newTestCPU()
	c.RequestDMA(0x02)

	var total int
	for c.Pending == InterruptDMA {
		cycles, err := c.Step()
		if err != nil {
			t.Fatal(err)
		}
		total += int(cycles)
	}
	if total != 513 {
		t.Fatalf("expected 256*2 + 1 = 513 cycles for the DMA transfer, got %d", total)
	}
}

func TestNMIHasPriorityOverPendingIRQAndIsNeverMasked(t *testing.T) {
	c := newTestCPU()
	c.I = true
	c.RequestIRQ()
	c.RequestNMI()
	if c.Pending != InterruptNMI {
		t.Fatalf("expected NMI to take priority, got %v", c.Pending)
	}

	c.Bus.RAM[nmiVector] = 0x00
	c.Bus.RAM[nmiVector+1] = 0x90
	if _, err := c.Step(); err != nil {
		t.Fatal(err)
	}
	if c.PC != 0x9000 {
		t.Fatalf("expected NMI serviced despite I set, PC=%#04x", c.PC)
	}
}
