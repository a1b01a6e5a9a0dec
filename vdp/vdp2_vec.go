package vdp

// Whole-line array operations. Each stage of the compositor and window
// evaluator is a sequence of these calls over the visible width; the
// boolean mask selects computed versus original values.

func fillBool(dst []bool, v bool) {
	for i := range dst {
		dst[i] = v
	}
}

func fillU8(dst []uint8, v uint8) {
	for i := range dst {
		dst[i] = v
	}
}

func fillU32(dst []uint32, v uint32) {
	for i := range dst {
		dst[i] = v
	}
}

// fillRange sets dst[i] = true for lo <= i <= hi, clipped to dst.
func fillRange(dst []bool, lo, hi int) {
	lo = max(lo, 0)
	hi = min(hi, len(dst)-1)
	for i := lo; i <= hi; i++ {
		dst[i] = true
	}
}

func andMask(dst, a, b []bool) {
	for i := range dst {
		dst[i] = a[i] && b[i]
	}
}

func orMask(dst, a, b []bool) {
	for i := range dst {
		dst[i] = a[i] || b[i]
	}
}

func andNotMask(dst, a, b []bool) {
	for i := range dst {
		dst[i] = a[i] && !b[i]
	}
}

// xorScalar inverts a when inv is set.
func xorScalar(dst, a []bool, inv bool) {
	for i := range dst {
		dst[i] = a[i] != inv
	}
}

// maskGreater sets dst[i] = a[i] > b[i].
func maskGreater(dst []bool, a, b []uint8) {
	for i := range dst {
		dst[i] = a[i] > b[i]
	}
}

// maskAtLeast sets dst[i] = a[i] != 0 && a[i] >= b[i].
func maskAtLeast(dst []bool, a, b []uint8) {
	for i := range dst {
		dst[i] = a[i] != 0 && a[i] >= b[i]
	}
}

// maskFlag sets dst[i] = flags[i]&bit != 0.
func maskFlag(dst []bool, flags []uint8, bit uint8) {
	for i := range dst {
		dst[i] = flags[i]&bit != 0
	}
}

// maskLookup sets dst[i] = table[ids[i]].
func maskLookup(dst []bool, ids []uint8, table *[numSlots]bool) {
	for i := range dst {
		dst[i] = table[ids[i]]
	}
}

func selU8(dst []uint8, m []bool, a []uint8) {
	for i := range dst {
		if m[i] {
			dst[i] = a[i]
		}
	}
}

func selU8Scalar(dst []uint8, m []bool, v uint8) {
	for i := range dst {
		if m[i] {
			dst[i] = v
		}
	}
}

func selU32(dst []uint32, m []bool, a []uint32) {
	for i := range dst {
		if m[i] {
			dst[i] = a[i]
		}
	}
}

// gatherU32 sets dst[i] = src[ids[i]][i].
func gatherU32(dst []uint32, ids []uint8, src *[numSlots][]uint32) {
	for i := range dst {
		dst[i] = src[ids[i]][i]
	}
}

func gatherU8(dst []uint8, ids []uint8, src *[numSlots][]uint8) {
	for i := range dst {
		dst[i] = src[ids[i]][i]
	}
}

// blendRatio mixes a and b per channel: (a*(32-r) + b*r) / 32.
func blendRatio(dst, a, b []uint32, ratio []uint8) {
	for i := range dst {
		r := uint32(ratio[i] & 0x1F)
		ia := 32 - r
		ca, cb := a[i], b[i]
		rr := ((ca>>16&0xFF)*ia + (cb>>16&0xFF)*r) >> 5
		gg := ((ca>>8&0xFF)*ia + (cb>>8&0xFF)*r) >> 5
		bb := ((ca&0xFF)*ia + (cb&0xFF)*r) >> 5
		dst[i] = rr<<16 | gg<<8 | bb
	}
}

// addSaturate adds a and b per channel, clamping at 255.
func addSaturate(dst, a, b []uint32) {
	for i := range dst {
		ca, cb := a[i], b[i]
		rr := min(ca>>16&0xFF+cb>>16&0xFF, 0xFF)
		gg := min(ca>>8&0xFF+cb>>8&0xFF, 0xFF)
		bb := min(ca&0xFF+cb&0xFF, 0xFF)
		dst[i] = rr<<16 | gg<<8 | bb
	}
}

// average is a 1:1 mix of a and b.
func average(dst, a, b []uint32) {
	for i := range dst {
		dst[i] = ((a[i] & 0xFEFEFE) + (b[i] & 0xFEFEFE)) >> 1
	}
}

func halve(dst, a []uint32) {
	for i := range dst {
		dst[i] = (a[i] & 0xFEFEFE) >> 1
	}
}

// colorOffset adds signed per-channel offsets, clamping to [0, 255].
func colorOffset(dst, a []uint32, off [3]int32) {
	for i := range dst {
		c := a[i]
		rr := clampInt(int(int32(c>>16&0xFF)+off[0]), 0, 0xFF)
		gg := clampInt(int(int32(c>>8&0xFF)+off[1]), 0, 0xFF)
		bb := clampInt(int(int32(c&0xFF)+off[2]), 0, 0xFF)
		dst[i] = uint32(rr)<<16 | uint32(gg)<<8 | uint32(bb)
	}
}

// packRGBA writes 0x00RRGGBB colors as opaque RGBA bytes.
func packRGBA(dst []byte, src []uint32) {
	for i, c := range src {
		o := i * 4
		dst[o] = uint8(c >> 16)
		dst[o+1] = uint8(c >> 8)
		dst[o+2] = uint8(c)
		dst[o+3] = 0xFF
	}
}
