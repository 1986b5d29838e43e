package cartridge

import "nesgo/internal/bus"

// cnrom is iNES mapper 3 (CxROM): PRG is fixed, and any write to
// $8000-$FFFF selects an 8KB CHR bank (as its two 4KB halves) using the
// low 2 bits of the written value.
type cnrom struct {
	cart *Cartridge
}

func newCNROM(cart *Cartridge) *cnrom {
	return &cnrom{cart: cart}
}

func (m *cnrom) Load(b *bus.Bus) {
	b.Mirroring = m.cart.Header.Mirroring
	loadPRG(b, 0, m.cart.PRGBanks[0])
	if len(m.cart.PRGBanks) > 1 {
		loadPRG(b, 1, m.cart.PRGBanks[1])
	} else {
		loadPRG(b, 1, m.cart.PRGBanks[0])
	}
	m.selectCHR(b, 0)
}

func (m *cnrom) Monitor(b *bus.Bus) {
	if !b.HasWrite || b.LastWriteAddr < 0x8000 {
		return
	}
	m.selectCHR(b, int(b.LastWriteData&0x03))
}

func (m *cnrom) selectCHR(b *bus.Bus, bank8k int) {
	halves := len(m.cart.CHRBanks)
	lo := (bank8k * 2) % halves
	hi := lo + 1
	if hi >= halves {
		hi = 0
	}
	loadCHR(b, 0, m.cart.CHRBanks[lo])
	loadCHR(b, 1, m.cart.CHRBanks[hi])
}
