package vdp

const (
	vdp2VRAMSize  = 0x80000
	vdp2VRAMWords = vdp2VRAMSize / 2
	vdp2VRAMMask  = vdp2VRAMSize - 1

	vdp2CRAMSize  = 0x1000
	vdp2CRAMWords = vdp2CRAMSize / 2
	vdp2CRAMMask  = vdp2CRAMSize - 1

	vdp2RegMask = 0x1FF
)

// vdp2State holds VDP2 registers and memories. Like vdp1State it is plain
// data so copies are independent.
type vdp2State struct {
	regs [vdp2RegWords]uint16
	vram [vdp2VRAMWords]uint16
	cram [vdp2CRAMWords]uint16
}

func (s *vdp2State) vram8(addr uint32) uint8 {
	return wordByte(s.vram[(addr&vdp2VRAMMask)>>1], addr)
}

func (s *vdp2State) vram16(addr uint32) uint16 {
	return s.vram[(addr&vdp2VRAMMask)>>1]
}

func (s *vdp2State) vram32(addr uint32) uint32 {
	return uint32(s.vram16(addr))<<16 | uint32(s.vram16(addr+2))
}

func (s *vdp2State) writeVRAM8(addr uint32, val uint8) {
	i := (addr & vdp2VRAMMask) >> 1
	s.vram[i] = mergeByte(s.vram[i], addr, val)
}

func (s *vdp2State) writeVRAM16(addr uint32, val uint16) {
	s.vram[(addr&vdp2VRAMMask)>>1] = val
}

func (s *vdp2State) cram16(addr uint32) uint16 {
	return s.cram[(addr&vdp2CRAMMask)>>1]
}

func (s *vdp2State) cram32(addr uint32) uint32 {
	return uint32(s.cram16(addr))<<16 | uint32(s.cram16(addr+2))
}

// writeCRAM16 stores a color RAM word. In color mode 0 the lower and upper
// halves mirror each other. Returns the word indices written.
func (s *vdp2State) writeCRAM16(addr uint32, val uint16) (int, int) {
	i := int((addr & vdp2CRAMMask) >> 1)
	s.cram[i] = val
	if fCRMD.get(s.regs[:]) == 0 {
		j := i ^ 0x400
		s.cram[j] = val
		return i, j
	}
	return i, i
}

func (s *vdp2State) writeCRAM8(addr uint32, val uint8) (int, int) {
	w := mergeByte(s.cram16(addr), addr, val)
	return s.writeCRAM16(addr, w)
}

// writeReg stores the writable bits of a register. Returns false for
// addresses with no writable bits.
func (s *vdp2State) writeReg(off uint32, val uint16) bool {
	i := (off & vdp2RegMask) >> 1
	if i >= vdp2RegWords || vdp2WriteMask[i] == 0 {
		return false
	}
	s.regs[i] = val & vdp2WriteMask[i]
	return true
}

// cramMode returns RAMCTL CRMD with the reserved mode 3 folded into 2.
func (s *vdp2State) cramMode() uint16 {
	m := fCRMD.get(s.regs[:])
	if m == 3 {
		return 2
	}
	return m
}

// rgb555 converts a 5:5:5 color to 0x00RRGGBB.
func rgb555(c uint16) uint32 {
	r := uint32(c&0x1F) << 3
	g := uint32(c>>5&0x1F) << 3
	b := uint32(c>>10&0x1F) << 3
	return r<<16 | g<<8 | b
}

// rgb888 converts the hardware 8:8:8 layout (blue in bits 23-16) to
// 0x00RRGGBB.
func rgb888(c uint32) uint32 {
	return (c&0xFF)<<16 | c&0xFF00 | c>>16&0xFF
}

// cramColor is one resolved color RAM entry.
type cramColor struct {
	rgb uint32
	msb bool
}

// colorCache holds color RAM decoded for the current color mode, indexed
// by color number.
type colorCache struct {
	mode   uint16
	colors [vdp2CRAMWords]cramColor
}

// rebuild decodes the whole color RAM.
func (c *colorCache) rebuild(s *vdp2State) {
	c.mode = s.cramMode()
	for i := range c.colors {
		c.update(s, i)
	}
}

// update refreshes the entry covering color RAM word i.
func (c *colorCache) update(s *vdp2State, i int) {
	switch c.mode {
	case 2:
		n := i >> 1
		if n >= 0x400 {
			return
		}
		v := uint32(s.cram[n*2])<<16 | uint32(s.cram[n*2+1])
		c.colors[n] = cramColor{rgb: rgb888(v), msb: v&0x80000000 != 0}
	default:
		v := s.cram[i]
		c.colors[i] = cramColor{rgb: rgb555(v), msb: v&0x8000 != 0}
	}
}

// lookup returns the color for a color number, masked to the mode's range.
func (c *colorCache) lookup(n uint32) cramColor {
	switch c.mode {
	case 1:
		return c.colors[n&0x7FF]
	default:
		return c.colors[n&0x3FF]
	}
}
