package cartridge

import (
	"bytes"
	"testing"

	"nesgo/internal/bus"
)

// buildINES assembles a minimal iNES image for tests.
func buildINES(mapperID uint8, mirrorVertical bool, prgBanks, chrBanks int) []byte {
	var buf bytes.Buffer
	buf.WriteString("NES\x1A")
	buf.WriteByte(uint8(prgBanks))
	buf.WriteByte(uint8(chrBanks))
	flags6 := (mapperID & 0x0F) << 4
	if mirrorVertical {
		flags6 |= 0x01
	}
	buf.WriteByte(flags6)
	buf.WriteByte((mapperID & 0xF0))
	buf.Write(make([]byte, 8)) // PRG-RAM size + padding

	for i := 0; i < prgBanks; i++ {
		bank := make([]byte, 16384)
		bank[0] = uint8(i + 1) // tag each bank so tests can tell them apart
		buf.Write(bank)
	}
	for i := 0; i < chrBanks; i++ {
		bank := make([]byte, 8192)
		bank[0] = uint8(i + 1)
		buf.Write(bank)
	}
	return buf.Bytes()
}

func TestLoadFromReaderRejectsBadMagic(t *testing.T) {
	data := buildINES(0, false, 1, 1)
	data[0] = 'X'
	if _, err := LoadFromReader(bytes.NewReader(data)); err == nil {
		t.Fatal("expected error for bad magic")
	}
}

func TestLoadFromReaderRejectsZeroPRG(t *testing.T) {
	data := buildINES(0, false, 0, 1)
	if _, err := LoadFromReader(bytes.NewReader(data)); err == nil {
		t.Fatal("expected error for zero PRG banks")
	}
}

func TestLoadFromReaderUnimplementedMapper(t *testing.T) {
	data := buildINES(4, false, 1, 1)
	if _, err := LoadFromReader(bytes.NewReader(data)); err == nil {
		t.Fatal("expected error for unimplemented mapper")
	}
}

func TestNROMMirrorsSinglePRGBank(t *testing.T) {
	data := buildINES(0, false, 1, 1)
	cart, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	b := bus.New()
	cart.Mapper.Load(b)

	if b.RAM[0x8000] != b.RAM[0xC000] {
		t.Fatalf("single PRG bank should be mirrored to both windows")
	}
}

func TestNROMMirroringMode(t *testing.T) {
	data := buildINES(0, true, 1, 1)
	cart, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	b := bus.New()
	cart.Mapper.Load(b)
	if b.Mirroring != bus.MirrorVertical {
		t.Fatalf("expected vertical mirroring, got %v", b.Mirroring)
	}
}
