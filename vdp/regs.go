package vdp

// regField names a bit field inside a 16-bit hardware register. Registers
// are stored as raw words and fields are extracted with explicit offsets so
// nothing depends on host struct layout.
type regField struct {
	off   uint16 // byte offset of the register within its bank
	shift uint8
	width uint8
}

func (f regField) mask() uint16 {
	return uint16(1)<<f.width - 1
}

// get extracts the field from a raw register bank.
func (f regField) get(raw []uint16) uint16 {
	return (raw[f.off>>1] >> f.shift) & f.mask()
}

// on reports whether a one bit field is set.
func (f regField) on(raw []uint16) bool {
	return f.get(raw) != 0
}

// set stores val into the field, leaving the rest of the register intact.
func (f regField) set(raw []uint16, val uint16) {
	w := &raw[f.off>>1]
	m := f.mask() << f.shift
	*w = (*w &^ m) | ((val << f.shift) & m)
}

// mergeByte replaces one byte of a big-endian word. addr bit 0 selects the
// low byte.
func mergeByte(word uint16, addr uint32, val uint8) uint16 {
	if addr&1 == 0 {
		return word&0x00FF | uint16(val)<<8
	}
	return word&0xFF00 | uint16(val)
}

// wordByte extracts one byte of a big-endian word.
func wordByte(word uint16, addr uint32) uint8 {
	if addr&1 == 0 {
		return uint8(word >> 8)
	}
	return uint8(word)
}

// sext sign-extends the low bits of v.
func sext(v uint32, bits uint) int32 {
	shift := 32 - bits
	return int32(v<<shift) >> shift
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
