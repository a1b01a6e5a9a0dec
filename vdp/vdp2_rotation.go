package vdp

const rotTableSize = 0x60

// rotTable is a decoded rotation parameter table. Fixed-point fields keep
// 10 fractional bits, kx/ky keep 16.
type rotTable struct {
	xst, yst, zst int64
	dxst, dyst    int64
	dx, dy        int64
	a, b, c       int64
	d, e, f       int64
	px, py, pz    int64
	cx, cy, cz    int64
	mx, my        int64
	kx, ky        int64
	kast          int64
	dkast, dkax   int64
}

// rotAccum holds the per-frame running values of one parameter set.
type rotAccum struct {
	xst int64
	yst int64
	ka  int64
}

// rotLine caches the per-dot results for one parameter set on one line.
type rotLine struct {
	valid bool
	hasLC bool
	x     [maxLineWidth]int32
	y     [maxLineWidth]int32
	trans [maxLineWidth]bool
	lc    [maxLineWidth]uint8
}

// coefControl is the KTCTL byte for one parameter set.
type coefControl struct {
	enable  bool
	oneWord bool
	mode    uint16
	lineCol bool
	offset  uint32
}

type rotationState struct {
	frameStart bool
	tbl        [2]rotTable
	line       [2]rotLine
}

func (r *renderer) decodeRotTable(base uint32) rotTable {
	m := r.mem
	l := func(off uint32) uint32 { return m.vram32(base + off) }
	h := func(off uint32) uint16 { return m.vram16(base + off) }
	return rotTable{
		xst:   int64(sext(l(0x00)>>6, 23)),
		yst:   int64(sext(l(0x04)>>6, 23)),
		zst:   int64(sext(l(0x08)>>6, 23)),
		dxst:  int64(sext(l(0x0C)>>6, 13)),
		dyst:  int64(sext(l(0x10)>>6, 13)),
		dx:    int64(sext(l(0x14)>>6, 13)),
		dy:    int64(sext(l(0x18)>>6, 13)),
		a:     int64(sext(l(0x1C)>>6, 14)),
		b:     int64(sext(l(0x20)>>6, 14)),
		c:     int64(sext(l(0x24)>>6, 14)),
		d:     int64(sext(l(0x28)>>6, 14)),
		e:     int64(sext(l(0x2C)>>6, 14)),
		f:     int64(sext(l(0x30)>>6, 14)),
		px:    int64(sext(uint32(h(0x34)), 14)),
		py:    int64(sext(uint32(h(0x36)), 14)),
		pz:    int64(sext(uint32(h(0x38)), 14)),
		cx:    int64(sext(uint32(h(0x3C)), 14)),
		cy:    int64(sext(uint32(h(0x3E)), 14)),
		cz:    int64(sext(uint32(h(0x40)), 14)),
		mx:    int64(sext(l(0x44)>>6, 24)),
		my:    int64(sext(l(0x48)>>6, 24)),
		kx:    int64(sext(l(0x4C), 24)),
		ky:    int64(sext(l(0x50), 24)),
		kast:  int64(l(0x54) >> 6),
		dkast: int64(sext(l(0x58)>>6, 20)),
		dkax:  int64(sext(l(0x5C)>>6, 20)),
	}
}

func (r *renderer) coefControl(pi int) coefControl {
	raw := r.mem.regs[:]
	v := raw[regKTCTL>>1] >> (uint(pi) * 8)
	off := raw[regKTAOF>>1] >> (uint(pi) * 8) & 7
	return coefControl{
		enable:  v&1 != 0,
		oneWord: v>>1&1 != 0,
		mode:    v >> 2 & 3,
		lineCol: v>>4&1 != 0,
		offset:  uint32(off),
	}
}

// rotationActive reports whether any rotation layer needs coordinates.
func (r *renderer) rotationActive() bool {
	return r.rbg0[0].enabled || r.rbg1.enabled || r.vdp1.rotationFB()
}

// prepareRotation reads both parameter tables and computes per-dot
// coordinates for the line.
func (r *renderer) prepareRotation(line int) {
	if !r.rotationActive() {
		r.rot.line[0].valid = false
		r.rot.line[1].valid = false
		return
	}
	raw := r.mem.regs[:]
	base := tableAddr(raw, regRPTAU) &^ 0xFF
	reload := raw[regRPRCTL>>1]
	for pi := 0; pi < 2; pi++ {
		t := r.decodeRotTable(base + uint32(pi)*0x80)
		r.rot.tbl[pi] = t
		acc := &r.frame.rot[pi]
		ctl := reload >> (uint(pi) * 8)
		if r.rot.frameStart || ctl&1 != 0 {
			acc.xst = t.xst
		}
		if r.rot.frameStart || ctl&2 != 0 {
			acc.yst = t.yst
		}
		if r.rot.frameStart || ctl&4 != 0 {
			acc.ka = t.kast
		}
		r.computeRotLine(pi, &t, acc)
	}
	r.rot.frameStart = false
}

// advanceRotation steps the accumulators to the next line.
func (r *renderer) advanceRotation() {
	for pi := 0; pi < 2; pi++ {
		t := &r.rot.tbl[pi]
		acc := &r.frame.rot[pi]
		acc.xst += t.dxst
		acc.yst += t.dyst
		acc.ka += t.dkast
	}
}

// coefficient reads one coefficient table entry. Returns the value with
// 16 fractional bits, the transparency bit and the line color bits.
func (r *renderer) coefficient(cc coefControl, index uint32) (int64, bool, uint8) {
	raw := r.mem.regs[:]
	inCRAM := fCRKTE.on(raw)
	if cc.oneWord {
		addr := (cc.offset<<16 + index) * 2
		var v uint16
		if inCRAM {
			v = r.mem.cram16(0x800 + addr&0x7FF)
		} else {
			v = r.mem.vram16(addr)
		}
		return int64(sext(uint32(v&0x7FFF), 15)) << 6, v&0x8000 != 0, 0
	}
	addr := (cc.offset<<16 + index) * 4
	var v uint32
	if inCRAM {
		v = r.mem.cram32(0x800 + addr&0x7FF)
	} else {
		v = r.mem.vram32(addr)
	}
	return int64(sext(v&0xFFFFFF, 24)), v&0x80000000 != 0, uint8(v >> 24 & 0x7F)
}

// computeRotLine applies the rotation matrix across the line.
func (r *renderer) computeRotLine(pi int, t *rotTable, acc *rotAccum) {
	rl := &r.rot.line[pi]
	rl.valid = true
	cc := r.coefControl(pi)
	rl.hasLC = cc.enable && cc.lineCol && !cc.oneWord

	xs := acc.xst - t.px<<10
	ys := acc.yst - t.py<<10
	zs := t.zst - t.pz<<10
	xsp := (t.a*xs + t.b*ys + t.c*zs) >> 10
	ysp := (t.d*xs + t.e*ys + t.f*zs) >> 10
	xp := t.a*(t.px-t.cx) + t.b*(t.py-t.cy) + t.c*(t.pz-t.cz) + t.cx<<10 + t.mx
	yp := t.d*(t.px-t.cx) + t.e*(t.py-t.cy) + t.f*(t.pz-t.cz) + t.cy<<10 + t.my
	dX := (t.a*t.dx + t.b*t.dy) >> 10
	dY := (t.d*t.dx + t.e*t.dy) >> 10

	w := r.geom.width
	for h := 0; h < w; h++ {
		kx, ky := t.kx, t.ky
		xph := xp
		rl.trans[h] = false
		if cc.enable {
			idx := uint32((acc.ka + t.dkax*int64(h)) >> 10)
			k, tr, lc := r.coefficient(cc, idx)
			rl.trans[h] = tr
			rl.lc[h] = lc
			switch cc.mode {
			case 0:
				kx, ky = k, k
			case 1:
				kx = k
			case 2:
				ky = k
			case 3:
				xph = k >> 6
			}
		}
		X := (kx*(xsp+dX*int64(h)))>>16 + xph
		Y := (ky*(ysp+dY*int64(h)))>>16 + yp
		rl.x[h] = int32(X >> 10)
		rl.y[h] = int32(Y >> 10)
	}
}
