package cartridge

import "nesgo/internal/bus"

// unrom is iNES mapper 2 (UxROM): the low PRG window is bank-switched by
// writing the bank number to any address in $8000-$FFFF; the high window is
// permanently fixed to the cartridge's last PRG bank.
type unrom struct {
	cart *Cartridge
}

func newUNROM(cart *Cartridge) *unrom {
	return &unrom{cart: cart}
}

func (m *unrom) Load(b *bus.Bus) {
	b.Mirroring = m.cart.Header.Mirroring
	loadPRG(b, 0, m.cart.PRGBanks[0])
	loadPRG(b, 1, m.cart.PRGBanks[len(m.cart.PRGBanks)-1])
	loadCHR(b, 0, m.cart.CHRBanks[0])
	loadCHR(b, 1, m.cart.CHRBanks[1])
}

func (m *unrom) Monitor(b *bus.Bus) {
	if !b.HasWrite || b.LastWriteAddr < 0x8000 {
		return
	}
	bank := int(b.LastWriteData) % len(m.cart.PRGBanks)
	loadPRG(b, 0, m.cart.PRGBanks[bank])
}
