package cartridge

import "nesgo/internal/bus"

// nrom is iNES mapper 0: no bank switching. Grounded on the teacher's
// mapper000.go, adapted from read-dispatch to the spec's write-into-Bus
// model.
type nrom struct {
	cart *Cartridge
}

func newNROM(cart *Cartridge) *nrom {
	return &nrom{cart: cart}
}

func (m *nrom) Load(b *bus.Bus) {
	b.Mirroring = m.cart.Header.Mirroring
	loadPRG(b, 0, m.cart.PRGBanks[0])
	if len(m.cart.PRGBanks) > 1 {
		loadPRG(b, 1, m.cart.PRGBanks[1])
	} else {
		loadPRG(b, 1, m.cart.PRGBanks[0])
	}
	loadCHR(b, 0, m.cart.CHRBanks[0])
	loadCHR(b, 1, m.cart.CHRBanks[1])
}

// Monitor is a no-op: NROM has no registers.
func (m *nrom) Monitor(b *bus.Bus) {}
