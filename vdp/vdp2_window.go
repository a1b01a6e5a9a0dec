package vdp

// windowSet holds the per-line window areas and the resulting per-consumer
// masks. A true mask entry hides the consumer at that dot.
type windowSet struct {
	w0   [maxLineWidth]bool
	w1   [maxLineWidth]bool
	sw   [maxLineWidth]bool
	tmp  [maxLineWidth]bool
	mask [numWindows][maxLineWidth]bool
}

// windowControl returns the WCTL byte for a consumer.
func windowControl(raw []uint16, consumer int) uint16 {
	v := raw[(regWCTLA>>1)+consumer/2]
	if consumer&1 != 0 {
		v >>= 8
	}
	return v & 0xFF
}

// windowRange computes the horizontal extent of window n on a line, from
// the static position registers or the line window table.
func (r *renderer) windowRange(n, line, field int) (lo, hi int, ok bool) {
	raw := r.mem.regs[:]
	base := (regWPSX0 >> 1) + n*4
	sx := int(raw[base])
	sy := int(raw[base+1])
	ex := int(raw[base+2])
	ey := int(raw[base+3])

	y := line
	if r.geom.interlace == InterlaceDouble {
		y = line*2 + field
	}
	if y < sy || y > ey {
		return 0, 0, false
	}

	upper := regLWTA0U
	if n == 1 {
		upper = regLWTA1U
	}
	if raw[upper>>1]&0x8000 != 0 {
		addr := tableAddr(raw, upper) + uint32(y)*4
		sx = int(r.mem.vram16(addr) & 0x3FF)
		ex = int(r.mem.vram16(addr+2) & 0x3FF)
	}
	if !r.geom.hiRes {
		sx >>= 1
		ex >>= 1
	}
	if sx > ex {
		return 0, 0, false
	}
	return sx, ex, true
}

// computeWindows builds the window masks for every consumer. The sprite
// layer for the line must already be drawn since it supplies the sprite
// window.
func (r *renderer) computeWindows(ls *lineSet, line, field int) {
	w := r.geom.width
	ws := &ls.win
	fillBool(ws.w0[:w], false)
	fillBool(ws.w1[:w], false)
	if lo, hi, ok := r.windowRange(0, line, field); ok {
		fillRange(ws.w0[:w], lo, hi)
	}
	if lo, hi, ok := r.windowRange(1, line, field); ok {
		fillRange(ws.w1[:w], lo, hi)
	}
	maskFlag(ws.sw[:w], ls.layers[layerSprite].flags[:w], pixSpriteWin)

	raw := r.mem.regs[:]
	for c := 0; c < numWindows; c++ {
		r.combineWindows(ws, windowControl(raw, c), c, w)
	}
}

// combineWindows evaluates one consumer's window logic. With no window
// enabled the consumer is never hidden.
func (r *renderer) combineWindows(ws *windowSet, ctl uint16, c, w int) {
	dst := ws.mask[c][:w]
	and := ctl&0x80 != 0
	sources := [3]struct {
		area   []bool
		enable bool
		invert bool
	}{
		{ws.w0[:w], ctl&0x02 != 0, ctl&0x01 != 0},
		{ws.w1[:w], ctl&0x08 != 0, ctl&0x04 != 0},
		{ws.sw[:w], ctl&0x20 != 0 && c != winRP, ctl&0x10 != 0},
	}

	enabled := false
	fillBool(dst, and)
	tmp := ws.tmp[:w]
	for _, s := range sources {
		if !s.enable {
			continue
		}
		enabled = true
		xorScalar(tmp, s.area, s.invert)
		if and {
			andMask(dst, dst, tmp)
		} else {
			orMask(dst, dst, tmp)
		}
	}
	if !enabled {
		fillBool(dst, false)
	}
}
