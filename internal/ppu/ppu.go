// Package ppu implements the NES picture processing unit: the
// scanline/pixel state machine, the $2000-$2007 register side effects,
// background and sprite pixel generation, and the compositor that
// produces the final 256x240 framebuffer.
package ppu

import "nesgo/internal/bus"

const (
	frameWidth  = 256
	frameHeight = 240
)

// The pixel-generator functions OR these into the low byte of the
// palette entries they return, as meta information for the
// compositor. Values match the constants the algorithm was grounded
// on so the tag space stays exactly as wide as the cases it encodes.
const (
	tagTransparentBackground         uint32 = 0x12
	tagOpaqueBackground              uint32 = 0x34
	tagTransparentSprite             uint32 = 0x56
	tagOpaqueSpriteBackgroundPriority uint32 = 0x78
	tagOpaqueSpriteForeground        uint32 = 0x41
	tagOpaqueSpriteZero              uint32 = 0xBC
)

// sentinelSpritePixel marks "no sprite occupies this pixel", distinct
// from any tagged color since none of the tags above ever occupy a
// whole byte on their own once OR'd onto a 24-bit RGB value.
const sentinelSpritePixel uint32 = 0xFE

// spriteSlotEmpty marks an unused slot in the per-scanline sprite
// buffer. Safe as a sentinel because sprite buffer entries are always
// multiples of 4 (OAM byte offsets), and 0xFE is not one.
const spriteSlotEmpty uint8 = 0xFE

// nesColorPalette is the 64-entry NES master palette, one 0xRRGGBB00
// entry per index. The low byte is reserved for the pixel-pipeline
// tag bits and is masked off before a pixel reaches the framebuffer.
var nesColorPalette = [64]uint32{
	0x75757500, 0x271B8F00, 0x0000AB00, 0x47009F00,
	0x8F007700, 0xAB001300, 0xA7000000, 0x7F0B0000,
	0x432F0000, 0x00470000, 0x00510000, 0x003F1700,
	0x1B3F5F00, 0x00000000, 0x00000000, 0x00000000,

	0xBCBCBC00, 0x0073EF00, 0x233BEF00, 0x8300F300,
	0xBF00BF00, 0xE7005B00, 0xDB2B0000, 0xCB4F0F00,
	0x8B730000, 0x00970000, 0x00AB0000, 0x00933B00,
	0x00838B00, 0x00000000, 0x00000000, 0x00000000,

	0xFFFFFF00, 0x3FBFFF00, 0x5F97FF00, 0xA78BFD00,
	0xF77BFF00, 0xFF77B700, 0xFF776300, 0xFF9B3B00,
	0xF3BF3F00, 0x83D31300, 0x4FDF4B00, 0x58F89800,
	0x00EBDB00, 0x00000000, 0x00000000, 0x00000000,

	0xFFFFFF00, 0xABE7FF00, 0xC7D7FF00, 0xD7CBFF00,
	0xFFC7FF00, 0xFFC7DB00, 0xFFBFB300, 0xFFDBAB00,
	0xFFE7A300, 0xE3FFA300, 0xABF3BF00, 0xB3FFCF00,
	0x9FFFF300, 0x00000000, 0x00000000, 0x00000000,
}

// PPU is the picture processing unit. It reads and writes exclusively
// through the shared Bus, the way the CPU does, so the two stay in
// sync through the Bus's observation latches rather than a direct
// reference to each other.
type PPU struct {
	Bus *bus.Bus

	Scanline int
	Pixel    int

	VRAMAddr      uint16
	NameTableBase uint16
	FineX, FineY  uint8

	AddrHighNext bool
	ScrollXNext  bool

	addrHiLatch   uint8
	readBuffer    uint8
	vramIncrement uint16

	SpriteSize8x8  bool
	bgPatternBase  uint16
	sprPatternBase uint16

	NMIEnable bool

	ShowLeftBackground bool
	ShowLeftSprites    bool
	ShowBackground     bool
	ShowSprites        bool

	spriteIndexes [8]uint8

	FrameBuffer [frameWidth * frameHeight]uint32
	FrameReady  bool
	FrameCount  uint64
}

// New creates a PPU wired to the given Bus, already reset.
func New(b *bus.Bus) *PPU {
	p := &PPU{Bus: b}
	p.Reset()
	return p
}

// Reset puts every register back to its power-on state. Mirroring
// itself lives on the Bus and survives a PPU reset; it is set once by
// the mapper on cartridge load.
func (p *PPU) Reset() {
	p.Scanline = 0
	p.Pixel = 0
	p.VRAMAddr = 0
	p.NameTableBase = 0x2000
	p.FineX, p.FineY = 0, 0
	p.AddrHighNext, p.ScrollXNext = true, true
	p.addrHiLatch = 0
	p.readBuffer = 0
	p.vramIncrement = 1
	p.SpriteSize8x8 = true
	p.bgPatternBase, p.sprPatternBase = 0, 0
	p.NMIEnable = false
	p.ShowLeftBackground, p.ShowLeftSprites = false, false
	p.ShowBackground, p.ShowSprites = false, false
	p.FrameReady = false
	for i := range p.spriteIndexes {
		p.spriteIndexes[i] = spriteSlotEmpty
	}
}

// Tick advances the PPU by one dot. When observe is true it first
// processes this CPU step's register reads/writes, exactly once per
// step (spec: one observation tick plus 3N-1 plain ticks). It returns
// true the instant an NMI should be posted to the CPU, replacing the
// callback a tighter coupling would otherwise need.
func (p *PPU) Tick(observe bool) bool {
	if observe {
		p.Observe()
	}

	if p.Scanline < 240 && p.Pixel < 256 && p.ShowBackground {
		bg := p.backgroundPixel()
		spr := sentinelSpritePixel
		if p.ShowSprites {
			spr = p.spritePixel()
		}
		p.writeFramebuffer(p.multiplex(bg, spr))
	}

	nmi := false
	p.Pixel++
	if p.Pixel > 340 {
		p.Pixel = 0
		p.Scanline++

		if p.Scanline < 240 {
			p.evaluateSprites()
		}

		switch {
		case p.Scanline > 261:
			p.Scanline = 0
		case p.Scanline == 1:
			p.Bus.RAM[0x2002] &^= 0xE0 // clear vblank, sprite0hit, overflow
		case p.Scanline == 241:
			p.Bus.RAM[0x2002] |= 0x80
			p.FrameReady = true
			p.FrameCount++
			if p.NMIEnable {
				nmi = true
			}
		}
	}

	return nmi
}

// Observe processes this CPU step's Bus read/write latches, applying
// the $2000-$2007 register side effects, then primes $2007 with the
// value a read will see before the next Observe call. Priming here,
// right after any address/buffer change this step made, is what lets
// the CPU see the correct immediate-or-buffered PPUDATA value on its
// very next instruction without the PPU needing a reference into the
// CPU's read path.
func (p *PPU) Observe() {
	b := p.Bus

	if b.HasRead {
		switch b.LastReadAddr {
		case 0x2002:
			b.RAM[0x2002] &^= 0x80
			p.AddrHighNext = true
			p.ScrollXNext = true
		case 0x2007:
			coerced := bus.CoerceVRAMAddress(p.VRAMAddr)
			p.readBuffer = b.ReadVRAM(coerced)
			p.VRAMAddr += p.vramIncrement
		}
	}

	if b.HasWrite {
		switch b.LastWriteAddr {
		case 0x2000:
			p.writeCtrl(b.LastWriteData)
		case 0x2001:
			p.writeMask(b.LastWriteData)
		case 0x2004:
			addr := b.RAM[0x2003]
			b.OAM[addr] = b.LastWriteData
			b.RAM[0x2003] = addr + 1
		case 0x2005:
			p.writeScroll(b.LastWriteData)
		case 0x2006:
			p.writeAddr(b.LastWriteData)
		case 0x2007:
			coerced := bus.CoerceVRAMAddress(p.VRAMAddr)
			b.WriteVRAM(coerced, b.LastWriteData)
			p.VRAMAddr += p.vramIncrement
		}
	}

	p.primeDataRegister()
}

// PreparePPUDataRead exists purely to document and pin down where the
// $2007 buffered/immediate split is decided: Observe already primes
// the register at the end of every step, so by the time the CPU's
// next instruction can possibly read $2007, Bus.RAM[0x2007] already
// holds the right value. Nothing additional needs to run before
// Step; this is a no-op kept so the system package has an explicit,
// named call site to document the ordering it depends on.
func (p *PPU) PreparePPUDataRead() {}

func (p *PPU) primeDataRegister() {
	coerced := bus.CoerceVRAMAddress(p.VRAMAddr)
	if coerced >= 0x3F00 {
		p.Bus.RAM[0x2007] = p.Bus.ReadVRAM(coerced)
	} else {
		p.Bus.RAM[0x2007] = p.readBuffer
	}
}

func (p *PPU) writeCtrl(data uint8) {
	switch data & 0x03 {
	case 0:
		p.NameTableBase = 0x2000
	case 1:
		p.NameTableBase = 0x2400
	case 2:
		p.NameTableBase = 0x2800
	case 3:
		p.NameTableBase = 0x2C00
	}
	p.SpriteSize8x8 = data&0x20 == 0
	p.bgPatternBase = 0
	if data&0x10 != 0 {
		p.bgPatternBase = 0x1000
	}
	p.sprPatternBase = 0
	if data&0x08 != 0 {
		p.sprPatternBase = 0x1000
	}
	p.vramIncrement = 1
	if data&0x04 != 0 {
		p.vramIncrement = 32
	}
	p.NMIEnable = data&0x80 != 0
}

func (p *PPU) writeMask(data uint8) {
	p.ShowLeftBackground = data&0x02 != 0
	p.ShowLeftSprites = data&0x04 != 0
	p.ShowBackground = data&0x08 != 0
	p.ShowSprites = data&0x10 != 0
}

func (p *PPU) writeScroll(data uint8) {
	if p.ScrollXNext {
		p.FineX = data
	} else {
		p.FineY = data
	}
	p.ScrollXNext = !p.ScrollXNext
}

// writeAddr handles the two-write PPUADDR protocol. The low-byte write
// carries a vertical-mirroring nametable rebase: only NameTableBase is
// rebased, VRAMAddr itself always keeps the un-rebased combined
// address.
func (p *PPU) writeAddr(data uint8) {
	if p.AddrHighNext {
		p.addrHiLatch = data
		p.AddrHighNext = false
		return
	}

	combined := (uint16(p.addrHiLatch) << 8) | uint16(data)
	if p.Bus.Mirroring == bus.MirrorVertical && combined >= 0x2800 {
		rebased := combined - 0x0800
		if rebased > 0x23FF {
			p.NameTableBase = 0x2000
		} else {
			p.NameTableBase = 0x2400
		}
	}
	p.VRAMAddr = combined
	p.AddrHighNext = true
}

// evaluateSprites runs a single linear scan of the 64 OAM entries
// against the scanline that just became current, recording up to 8
// byte offsets into the sprite buffer and flagging overflow on a 9th
// hit. Remaining slots are filled with the empty sentinel.
func (p *PPU) evaluateSprites() {
	height := 8
	if !p.SpriteSize8x8 {
		height = 16
	}

	found := 0
	for i := 0; i < 64; i++ {
		off := uint8(i * 4)
		diff := p.Scanline - (int(p.Bus.OAM[off]) + 1)
		if diff >= 0 && diff < height {
			if found == 8 {
				p.Bus.RAM[0x2002] |= 0x20
				break
			}
			p.spriteIndexes[found] = off
			found++
		}
	}
	for i := found; i < 8; i++ {
		p.spriteIndexes[i] = spriteSlotEmpty
	}
}

func (p *PPU) nesColor(index uint8) uint32 {
	return nesColorPalette[index&0x3F]
}

func (p *PPU) universalBackground() uint32 {
	return p.nesColor(p.Bus.ReadVRAM(0x3F00))
}

// backgroundPixel computes the background color at the current
// scanline/pixel, applying fine scroll and the nametable wraparound
// at the screen edges before the tile/attribute lookup.
func (p *PPU) backgroundPixel() uint32 {
	x := uint16(p.Pixel) + uint16(p.FineX)
	y := uint16(p.Scanline) + uint16(p.FineY)
	ntBase := p.NameTableBase
	xOverflowed := false

	if x >= 256 {
		xOverflowed = true
		if p.Bus.Mirroring == bus.MirrorVertical {
			ntBase = neighborHoriz(p.NameTableBase)
		}
		x -= 256 - uint16(p.FineX)
	}

	if y >= 240 {
		switch p.Bus.Mirroring {
		case bus.MirrorHorizontal:
			ntBase = neighborVert(p.NameTableBase)
		case bus.MirrorVertical:
			if !xOverflowed {
				ntBase = p.NameTableBase
			}
		}
		y -= 240 - uint16(p.FineY)
	}

	tileAddr := (x >> 3) + ((y >> 3) << 5)
	patternIndex := p.Bus.ReadVRAM(tileAddr + ntBase)
	patternAddr := uint16(patternIndex)*16 + p.bgPatternBase

	row := y & 0x07
	mask := uint8(0x80) >> (x & 0x07)
	lo := p.Bus.ReadVRAM(patternAddr + row)
	hi := p.Bus.ReadVRAM(patternAddr + row + 8)

	var colorSelect uint8
	if lo&mask != 0 {
		colorSelect |= 0x01
	}
	if hi&mask != 0 {
		colorSelect |= 0x02
	}
	if colorSelect == 0 {
		return p.universalBackground() | tagTransparentBackground
	}

	attrIdx := ((y >> 5) << 3) | (x >> 5)
	attrByte := p.Bus.ReadVRAM(attrIdx + 0x3C0 + ntBase)

	var paletteSelect uint8
	switch ((x & 0x10) >> 4) | ((y & 0x10) >> 3) {
	case 0:
		paletteSelect = attrByte & 0x03
	case 1:
		paletteSelect = (attrByte >> 2) & 0x03
	case 2:
		paletteSelect = (attrByte >> 4) & 0x03
	case 3:
		paletteSelect = (attrByte >> 6) & 0x03
	}

	paletteAddr := 0x3F01 + uint16(paletteSelect)*4
	colorIndex := p.Bus.ReadVRAM(paletteAddr + uint16(colorSelect-1))
	return p.nesColor(colorIndex) | tagOpaqueBackground
}

// spritePixel searches the current scanline's sprite buffer for the
// first sprite occupying this pixel column with a non-transparent
// color, honoring OAM priority order (lower OAM index wins when both
// sprites would otherwise show).
func (p *PPU) spritePixel() uint32 {
	if p.Pixel < 8 && !p.ShowLeftSprites {
		return sentinelSpritePixel
	}
	if p.spriteIndexes[0] == spriteSlotEmpty {
		return sentinelSpritePixel
	}

	for _, idx := range p.spriteIndexes {
		if idx == spriteSlotEmpty {
			continue
		}

		xPos := uint16(p.Bus.OAM[idx+3]) + 7
		diff := int(xPos) - p.Pixel
		if diff < 0 || diff >= 8 {
			continue
		}

		yPos := uint16(p.Bus.OAM[idx]) + 1
		attrs := p.Bus.OAM[idx+2]
		tile := p.Bus.OAM[idx+1]

		patternBase := p.sprPatternBase
		correction := false
		if !p.SpriteSize8x8 {
			if tile&0x01 != 0 {
				patternBase = 0x1000
				correction = true
			} else {
				patternBase = 0
			}
		}
		patternAddr := uint16(tile)*16 + patternBase
		if !p.SpriteSize8x8 && (uint16(p.Scanline)-yPos) >= 8 {
			patternAddr += 16
		}
		if correction {
			patternAddr -= 16
		}

		flipH := attrs&0x40 != 0
		flipV := attrs&0x80 != 0
		colorSelect := p.spritePatternBits(flipH, flipV, xPos, yPos, patternAddr)
		if colorSelect == 0 {
			continue // transparent: keep searching lower-priority sprites
		}

		paletteAddr := 0x3F11 + uint16(attrs&0x03)*4
		color := p.nesColor(p.Bus.ReadVRAM(paletteAddr + uint16(colorSelect-1)))

		switch {
		case idx == 0:
			return color | tagOpaqueSpriteZero
		case attrs&0x20 == 0:
			return color | tagOpaqueSpriteForeground
		default:
			return color | tagOpaqueSpriteBackgroundPriority
		}
	}

	return p.universalBackground() | tagTransparentSprite
}

// spritePatternBits folds the four flip-variant pattern fetches the
// hardware needs (no flip, H, V, both) into one row/mask computation.
func (p *PPU) spritePatternBits(flipH, flipV bool, xPos, yPos, patternAddr uint16) uint8 {
	var row uint16
	if flipV {
		row = (yPos - (uint16(p.Scanline) + 1)) & 0x07
		if !p.SpriteSize8x8 {
			if (uint16(p.Scanline) - yPos) >= 8 {
				patternAddr -= 16
			} else {
				patternAddr += 16
			}
		}
	} else {
		row = (uint16(p.Scanline) - yPos) & 0x07
	}

	diff := uint8((xPos - uint16(p.Pixel)) & 0x07)
	var mask uint8
	if flipH {
		mask = 0x80 >> diff
	} else {
		mask = 1 << diff
	}

	lo := p.Bus.ReadVRAM(patternAddr + row)
	hi := p.Bus.ReadVRAM(patternAddr + row + 8)

	var out uint8
	if lo&mask != 0 {
		out |= 0x01
	}
	if hi&mask != 0 {
		out |= 0x02
	}
	return out
}

// multiplex picks between the background and sprite pixel this tick
// computed, setting the sprite-0-hit flag when both are opaque.
func (p *PPU) multiplex(bg, spr uint32) uint32 {
	if spr == sentinelSpritePixel {
		return bg
	}

	bgTag := bg & 0xFF
	sprTag := spr & 0xFF

	if sprTag == tagOpaqueSpriteZero && bgTag == tagOpaqueBackground {
		p.Bus.RAM[0x2002] |= 0x40
		if p.Bus.OAM[2]&0x20 != 0 {
			return bg
		}
		return spr
	}

	if (sprTag == tagOpaqueSpriteForeground || bgTag == tagTransparentBackground) && sprTag != tagTransparentSprite {
		return spr
	}
	return bg
}

func (p *PPU) writeFramebuffer(pixel uint32) {
	idx := p.Scanline*frameWidth + p.Pixel
	p.FrameBuffer[idx] = (pixel &^ 0xFF) | 0xFF
}

// neighborHoriz returns the horizontally adjacent nametable base
// (A<->B, C<->D), used when the X coordinate wraps under vertical
// mirroring.
func neighborHoriz(base uint16) uint16 {
	switch base {
	case 0x2000:
		return 0x2400
	case 0x2400:
		return 0x2000
	case 0x2800:
		return 0x2C00
	case 0x2C00:
		return 0x2800
	}
	return base
}

// neighborVert returns the vertically adjacent nametable base
// (A<->C, B<->D), used when the Y coordinate wraps under horizontal
// mirroring.
func neighborVert(base uint16) uint16 {
	switch base {
	case 0x2000:
		return 0x2800
	case 0x2400:
		return 0x2C00
	case 0x2800:
		return 0x2000
	case 0x2C00:
		return 0x2400
	}
	return base
}
