package vdp

// pixelFormat is one character/bitmap color encoding. The renderer picks
// the format once when layer parameters are derived, so the dot loop only
// calls through a fixed function value.
type pixelFormat struct {
	palette   bool
	cellBytes uint32
	msb       uint32 // opacity bit for RGB formats
	fetch     func(s *vdp2State, base, idx uint32) uint32
}

var pixelFormats = [5]pixelFormat{
	{palette: true, cellBytes: 32, fetch: fetch4bpp},
	{palette: true, cellBytes: 64, fetch: fetch8bpp},
	{palette: true, cellBytes: 128, fetch: fetch11bit},
	{cellBytes: 128, msb: 0x8000, fetch: fetch16bpp},
	{cellBytes: 256, msb: 0x80000000, fetch: fetch32bpp},
}

func fetch4bpp(s *vdp2State, base, idx uint32) uint32 {
	b := s.vram8(base + idx>>1)
	if idx&1 == 0 {
		return uint32(b >> 4)
	}
	return uint32(b & 0xF)
}

func fetch8bpp(s *vdp2State, base, idx uint32) uint32 {
	return uint32(s.vram8(base + idx))
}

func fetch11bit(s *vdp2State, base, idx uint32) uint32 {
	return uint32(s.vram16(base+idx*2)) & 0x7FF
}

func fetch16bpp(s *vdp2State, base, idx uint32) uint32 {
	return uint32(s.vram16(base + idx*2))
}

func fetch32bpp(s *vdp2State, base, idx uint32) uint32 {
	return s.vram32(base + idx*4)
}

// Window consumers.
const (
	winNBG0 = iota
	winNBG1
	winNBG2
	winNBG3
	winRBG0
	winSprite
	winRP
	winCC
	numWindows
)

// bgParams are the addressing and display settings of one background,
// derived from registers when they change.
type bgParams struct {
	id      layerID
	win     int
	sfIdx   int // bit index in BGON/SFSEL/SFPRMD/SFCCMD/MZCTL
	enabled bool
	tpOn    bool
	bitmap  bool
	format  *pixelFormat
	colors  uint8

	charDots  int
	pn        patternNameControl
	planeW    int
	planeH    int
	planesX   int
	planes    [16]uint32
	pageBytes uint32
	pageCells int
	mapW      int
	mapH      int

	bmW    int
	bmH    int
	bmBase uint32
	bmPal  uint32
	bmSPR  bool
	bmSCC  bool

	cramOff  uint32
	prio     uint8
	sfPrio   uint16
	sfCC     uint16
	sfCodes  uint8
	ccEnable bool
	ratio    uint8
	delay    bool
	mosaic   bool

	scrollX   uint32 // 11.8
	scrollY   uint32
	zoomX     uint32 // 3.8
	zoomY     uint32
	scroll    scrollControl
	lineTable uint32

	overflow uint16
	overPN   uint16
}

// bgDot is one resolved background dot.
type bgDot struct {
	color uint32
	prio  uint8
	flags uint8
	ok    bool
}

// setupLayer fills the settings shared by every background kind.
func (r *renderer) setupLayer(p *bgParams, cc charControl, pn patternNameControl) {
	raw := r.mem.regs[:]
	p.tpOn = bgTransparentOn(raw, p.sfIdx)
	p.colors = min(cc.colors, 4)
	p.format = &pixelFormats[p.colors]
	p.bitmap = cc.bitmap
	p.pn = pn
	p.charDots = 8
	p.pageCells = 64
	if cc.charSz2 {
		p.charDots = 16
		p.pageCells = 32
	}
	switch {
	case cc.charSz2 && pn.oneWord:
		p.pageBytes = 0x800
	case cc.charSz2:
		p.pageBytes = 0x1000
	case pn.oneWord:
		p.pageBytes = 0x2000
	default:
		p.pageBytes = 0x4000
	}

	p.cramOff = cramOffset(raw, p.id) << 8
	p.prio = layerPriority(raw, p.id)
	p.sfPrio = raw[regSFPRMD>>1] >> (uint(p.sfIdx) * 2) & 3
	p.sfCC = raw[regSFCCMD>>1] >> (uint(p.sfIdx) * 2) & 3
	code := raw[regSFCODE>>1]
	if raw[regSFSEL>>1]>>uint(p.sfIdx)&1 != 0 {
		code >>= 8
	}
	p.sfCodes = uint8(code)
	p.ccEnable = raw[regCCCTL>>1]>>layerBit(p.id)&1 != 0
	p.ratio = ccRatio(raw, p.id)
	p.mosaic = raw[regMZCTL>>1]>>uint(p.sfIdx)&1 != 0
}

// setupPlanes computes plane base addresses. sel is 0-3 for NBG or 4/5 for
// rotation parameter A/B; across is the number of planes per map row.
func (r *renderer) setupPlanes(p *bgParams, sel, across int) {
	raw := r.mem.regs[:]
	p.planeW, p.planeH = planeSize(raw, sel)
	p.planesX = across
	p.mapW = across * p.planeW * 512
	p.mapH = across * p.planeH * 512
	pages := uint32(p.planeW * p.planeH)
	off := mapOffset(raw, sel)
	for i := 0; i < across*across; i++ {
		n := (off<<6 | mapPlane(raw, sel, i)) &^ (pages - 1)
		p.planes[i] = n * p.pageBytes & vdp2VRAMMask
	}
}

func bitmapDims(size uint8) (int, int) {
	switch size & 3 {
	case 0:
		return 512, 256
	case 1:
		return 512, 512
	case 2:
		return 1024, 256
	default:
		return 1024, 512
	}
}

func (r *renderer) setupBitmap(p *bgParams, cc charControl, sel, palIdx int) {
	raw := r.mem.regs[:]
	p.bmW, p.bmH = bitmapDims(cc.bmSize)
	p.bmBase = mapOffset(raw, sel) * 0x20000
	pal, spr, scc := bitmapPalette(raw, palIdx)
	p.bmPal = uint32(pal) << 8
	p.bmSPR = spr
	p.bmSCC = scc
}

func (r *renderer) deriveNBG(n int) {
	raw := r.mem.regs[:]
	p := &r.nbg[n]
	*p = bgParams{id: layerNBG0 + layerID(n), win: winNBG0 + n, sfIdx: n}
	p.enabled = bgEnabled(raw, n)
	if n == 0 && bgEnabled(raw, 5) {
		p.enabled = false
	}
	cc := nbgCharControl(raw, n)
	if n >= 2 {
		cc.bitmap = false
	}
	r.setupLayer(p, cc, pnControl(raw, n))
	r.setupPlanes(p, n, 2)
	if p.bitmap {
		r.setupBitmap(p, cc, n, n)
	} else {
		p.delay = r.accessDelay(n)
	}

	if n < 2 {
		p.scrollX = nbgScrollX(raw, n)
		p.scrollY = nbgScrollY(raw, n)
		p.zoomX = nbgZoomX(raw, n)
		p.zoomY = nbgZoomY(raw, n)
		p.scroll = nbgScrollControl(raw, n)
		upper := regLSTA0U
		if n == 1 {
			upper = regLSTA1U
		}
		p.lineTable = tableAddr(raw, upper)
	} else {
		x, y := nbgIntScroll(raw, n)
		p.scrollX = x << 8
		p.scrollY = y << 8
		p.zoomX = 0x100
		p.zoomY = 0x100
	}
}

// deriveRBG0 sets up RBG0 as seen through rotation parameter pi.
func (r *renderer) deriveRBG0(pi int) {
	raw := r.mem.regs[:]
	p := &r.rbg0[pi]
	*p = bgParams{id: layerRBG0, win: winRBG0, sfIdx: 4}
	p.enabled = bgEnabled(raw, 4)
	cc := nbgCharControl(raw, 4)
	r.setupLayer(p, cc, pnControl(raw, 4))
	r.setupPlanes(p, 4+pi, 4)
	if p.bitmap {
		r.setupBitmap(p, charControl{bmSize: cc.bmSize & 1}, 4+pi, 4)
	}
	p.overflow = overflowMode(raw, pi)
	p.overPN = raw[(regOVPNRA>>1)+pi]
}

// deriveRBG1 sets up RBG1, which uses parameter B with NBG0's character
// settings and occupies NBG0's slot.
func (r *renderer) deriveRBG1() {
	raw := r.mem.regs[:]
	p := &r.rbg1
	*p = bgParams{id: layerNBG0, win: winNBG0, sfIdx: 0}
	p.enabled = bgEnabled(raw, 5)
	cc := nbgCharControl(raw, 0)
	cc.bitmap = false
	r.setupLayer(p, cc, pnControl(raw, 0))
	r.setupPlanes(p, 5, 4)
	p.overflow = overflowMode(raw, 1)
	p.overPN = raw[regOVPNRB>>1]
}

// accessDelay reports whether NBGn's character pattern read is scheduled
// ahead of its pattern name read in the VRAM cycle pattern registers. The
// hardware then pairs each character read with the previous cell's
// pattern name.
func (r *renderer) accessDelay(n int) bool {
	raw := r.mem.regs[:]
	pnSlot, chSlot := -1, -1
	for bank := 0; bank < 4; bank++ {
		for t := 0; t < 8; t++ {
			w := raw[(regCYCA0L>>1)+bank*2+t/4]
			code := w >> (12 - 4*uint(t%4)) & 0xF
			switch int(code) {
			case n:
				if pnSlot < 0 || t < pnSlot {
					pnSlot = t
				}
			case 4 + n:
				if chSlot < 0 || t < chSlot {
					chSlot = t
				}
			}
		}
	}
	return pnSlot >= 0 && chSlot >= 0 && chSlot < pnSlot
}

// patternName is a decoded character descriptor.
type patternName struct {
	char uint32 // in 0x20 byte units
	pal  uint32 // color number base
	hf   bool
	vf   bool
	spr  bool
	scc  bool
}

func (p *bgParams) decodePN2(v uint32) patternName {
	w0 := uint16(v >> 16)
	pn := patternName{
		char: v & 0x7FFF,
		vf:   w0&0x8000 != 0,
		hf:   w0&0x4000 != 0,
		spr:  w0&0x2000 != 0,
		scc:  w0&0x1000 != 0,
	}
	switch p.colors {
	case 0:
		pn.pal = uint32(w0&0x7F) << 4
	case 1:
		pn.pal = uint32(w0&0x70) << 4
	}
	return pn
}

func (p *bgParams) decodePN1(w uint16) patternName {
	c := p.pn
	pn := patternName{spr: c.spr, scc: c.scc}
	if p.colors == 0 {
		pn.pal = (uint32(c.palSup)<<4 | uint32(w>>12)) << 4
	} else {
		pn.pal = uint32(w>>12&7) << 8
	}
	sup := uint32(c.charSup)
	if !c.auxMode {
		pn.vf = w&0x800 != 0
		pn.hf = w&0x400 != 0
		n := uint32(w & 0x3FF)
		if p.charDots == 16 {
			pn.char = (sup&0x1C)<<10 | n<<2 | sup&3
		} else {
			pn.char = (sup&0x1F)<<10 | n
		}
	} else {
		n := uint32(w & 0xFFF)
		if p.charDots == 16 {
			pn.char = (sup&0x10)<<10 | n<<2 | sup&3
		} else {
			pn.char = (sup&0x1C)<<10 | n
		}
	}
	return pn
}

// patternNameAt reads the descriptor covering map coordinate (x, y). The
// coordinate must already be wrapped into the map.
func (r *renderer) patternNameAt(p *bgParams, x, y int) patternName {
	pw := p.planeW * 512
	ph := p.planeH * 512
	base := p.planes[(y/ph)*p.planesX+x/pw]
	px, py := x%pw, y%ph
	page := (py>>9)*p.planeW + px>>9
	addr := base + uint32(page)*p.pageBytes
	shift := 3
	if p.charDots == 16 {
		shift = 4
	}
	idx := uint32(((py&511)>>shift)*p.pageCells + (px&511)>>shift)
	if p.pn.oneWord {
		return p.decodePN1(r.mem.vram16(addr + idx*2))
	}
	return p.decodePN2(r.mem.vram32(addr + idx*4))
}

// sampleTile resolves a tile-mode dot at plane coordinate (x, y).
func (r *renderer) sampleTile(p *bgParams, x, y int) bgDot {
	mx := x & (p.mapW - 1)
	my := y & (p.mapH - 1)
	nx := mx
	if p.delay {
		nx = (mx - p.charDots) & (p.mapW - 1)
	}
	return r.sampleChar(p, r.patternNameAt(p, nx, my), mx, my)
}

// sampleChar reads the dot at (x, y) of the character described by pn.
func (r *renderer) sampleChar(p *bgParams, pn patternName, x, y int) bgDot {
	cd := p.charDots
	cx := x & (cd - 1)
	cy := y & (cd - 1)
	if pn.hf {
		cx = cd - 1 - cx
	}
	if pn.vf {
		cy = cd - 1 - cy
	}
	cell := uint32(0)
	if cd == 16 {
		cell = uint32((cy>>3)*2 + cx>>3)
	}
	addr := pn.char*0x20 + cell*p.format.cellBytes
	idx := uint32((cy&7)*8 + cx&7)
	return r.resolveDot(p, addr, idx, pn.pal, pn.spr, pn.scc)
}

// sampleBitmap resolves a bitmap dot with wraparound.
func (r *renderer) sampleBitmap(p *bgParams, x, y int) bgDot {
	bx := x & (p.bmW - 1)
	by := y & (p.bmH - 1)
	return r.resolveDot(p, p.bmBase, uint32(by*p.bmW+bx), p.bmPal, p.bmSPR, p.bmSCC)
}

// resolveDot fetches a raw dot and applies transparency, color lookup and
// the special priority/color calculation rules.
func (r *renderer) resolveDot(p *bgParams, base, idx, pal uint32, spr, scc bool) bgDot {
	f := p.format
	raw := f.fetch(r.mem, base, idx)
	var d bgDot
	var msb, special bool
	if f.palette {
		if raw == 0 && !p.tpOn {
			return d
		}
		c := r.colors.lookup((pal + raw + p.cramOff) & 0x7FF)
		d.color = c.rgb
		msb = c.msb
		special = p.sfCodes>>(raw>>1&7)&1 != 0
	} else {
		if raw&f.msb == 0 && !p.tpOn {
			return d
		}
		if f.msb == 0x8000 {
			d.color = rgb555(uint16(raw))
		} else {
			d.color = rgb888(raw & 0xFFFFFF)
		}
		msb = true
	}

	d.prio = p.prio
	switch p.sfPrio {
	case 1:
		d.prio = d.prio&^1 | boolByte(spr)
	case 2:
		d.prio = d.prio&^1 | boolByte(spr && special)
	}
	if d.prio == 0 {
		return bgDot{}
	}

	cond := true
	switch p.sfCC {
	case 1:
		cond = scc
	case 2:
		cond = scc && special
	case 3:
		cond = msb
	}
	if cond && p.ccEnable {
		d.flags = pixCC
	}
	d.ok = true
	return d
}

func (l *layerLine) put(i int, d bgDot, ratio uint8) {
	l.color[i] = d.color
	l.prio[i] = d.prio
	l.flags[i] = d.flags
	l.ratio[i] = ratio
}

// mosaicSize returns the horizontal and vertical mosaic block sizes.
func (r *renderer) mosaicSize() (int, int) {
	raw := r.mem.regs[:]
	return int(fMZSZH.get(raw)) + 1, int(fMZSZV.get(raw)) + 1
}

// drawBackgrounds renders every background layer for the line.
func (r *renderer) drawBackgrounds(ls *lineSet, line, field int) {
	w := r.geom.width
	for l := layerRBG0; l <= layerNBG3; l++ {
		ls.layers[l].clear(w)
	}
	fillBool(ls.rbgLCSel[:w], false)

	raw := r.mem.regs[:]
	if r.rbg0[0].enabled {
		r.drawRotation(ls, &r.rbg0[0], &r.rbg0[1], fRPMD.get(raw))
	}
	if r.rbg1.enabled {
		r.drawRotation(ls, &r.rbg1, &r.rbg1, 1)
	}
	for n := range r.nbg {
		if r.nbg[n].enabled {
			r.drawNBG(ls, n, line, field)
		}
	}
}

// nbgLineOffset returns the 11.8 vertical distance of a line from the
// layer's scroll origin, after the field offset of double-density interlace
// and vertical mosaic. The screen scroll value or a vertical cell scroll
// value is added to it.
func (r *renderer) nbgLineOffset(p *bgParams, n, line, field int) uint32 {
	double := r.geom.interlace == InterlaceDouble
	if n >= 2 {
		v := line
		if double {
			v = line*2 + field
		}
		if p.mosaic {
			_, mv := r.mosaicSize()
			v -= v % mv
		}
		return uint32(v) << 8
	}
	acc := r.frame.nbgY[n]
	if double && field != 0 {
		acc += p.zoomY
	}
	if p.mosaic {
		_, mv := r.mosaicSize()
		step := uint32(1)
		if double {
			step = 2
		}
		acc -= p.zoomY * uint32(line%mv) * step
	}
	return acc
}

// lineTableRow returns the line scroll table row for a line. In
// double-density interlace every field line has its own row.
func (r *renderer) lineTableRow(line, field int, interval uint) uint32 {
	if r.geom.interlace == InterlaceDouble {
		line = line*2 + field
	}
	return uint32(line / int(interval))
}

// drawNBG renders one normal background.
func (r *renderer) drawNBG(ls *lineSet, n, line, field int) {
	p := &r.nbg[n]
	if p.prio == 0 {
		return
	}
	w := r.geom.width
	out := &ls.layers[p.id]
	mask := ls.win.mask[p.win][:w]

	x := p.scrollX
	off := r.nbgLineOffset(p, n, line, field)
	y := p.scrollY + off
	zx := p.zoomX

	if n < 2 {
		sc := p.scroll
		if sc.lineX || sc.lineY || sc.lineZoom {
			size := uint32(4 * (boolToInt(sc.lineX) + boolToInt(sc.lineY) + boolToInt(sc.lineZoom)))
			addr := p.lineTable + r.lineTableRow(line, field, sc.lineInterval)*size
			if sc.lineX {
				x += r.mem.vram32(addr) >> 8 & 0x7FFFF
				addr += 4
			}
			if sc.lineY {
				y = p.scrollY + r.mem.vram32(addr)>>8&0x7FFFF
				addr += 4
			}
			if sc.lineZoom {
				zx = r.mem.vram32(addr) >> 8 & 0x7FF
			}
		}
	}

	var vcs []uint32
	if n < 2 && p.scroll.vcell {
		vcs = r.cellScroll(ls, n, w)
	}

	for i := 0; i < w; i++ {
		if !mask[i] {
			yy := y
			if vcs != nil {
				yy = vcs[i>>3] + off
			}
			var d bgDot
			if p.bitmap {
				d = r.sampleBitmap(p, int(x>>8), int(yy>>8))
			} else {
				d = r.sampleTile(p, int(x>>8), int(yy>>8))
			}
			if d.ok {
				out.put(i, d, p.ratio)
			}
		}
		x += zx
	}

	if p.mosaic {
		mh, _ := r.mosaicSize()
		applyMosaic(out, w, mh)
	}
}

// cellScroll reads the vertical cell scroll table for the line. NBG0 and
// NBG1 interleave their entries when both use it.
func (r *renderer) cellScroll(ls *lineSet, n, w int) []uint32 {
	raw := r.mem.regs[:]
	base := tableAddr(raw, regVCSTAU)
	stride := uint32(4)
	if r.nbg[0].scroll.vcell && r.nbg[1].scroll.vcell {
		stride = 8
		if n == 1 {
			base += 4
		}
	}
	cols := (w + 7) / 8
	out := ls.comp.vcs[:cols]
	for c := range out {
		out[c] = r.mem.vram32(base+uint32(c)*stride) >> 8 & 0x7FFFF
	}
	return out
}

// applyMosaic replicates the first dot of each block across the block.
func applyMosaic(l *layerLine, w, size int) {
	if size <= 1 {
		return
	}
	for i := 0; i < w; i++ {
		s := i - i%size
		if s == i {
			continue
		}
		l.color[i] = l.color[s]
		l.prio[i] = l.prio[s]
		l.flags[i] = l.flags[s]
		l.ratio[i] = l.ratio[s]
	}
}

// drawRotation renders RBG0 (or RBG1 with a == b) from the per-dot
// coordinates computed for this line.
func (r *renderer) drawRotation(ls *lineSet, a, b *bgParams, mode uint16) {
	if a.prio == 0 {
		return
	}
	w := r.geom.width
	out := &ls.layers[a.id]
	mask := ls.win.mask[a.win][:w]
	rpWin := ls.win.mask[winRP][:w]
	ra := &r.rot.line[0]
	rb := &r.rot.line[1]

	for i := 0; i < w; i++ {
		if mask[i] {
			continue
		}
		pi := 0
		switch mode {
		case 1:
			pi = 1
		case 2:
			if !ra.valid || ra.trans[i] {
				pi = 1
			}
		case 3:
			if rpWin[i] {
				pi = 1
			}
		}
		rl, p := ra, a
		if pi == 1 {
			rl, p = rb, b
		}
		if !rl.valid || rl.trans[i] {
			continue
		}
		d := r.sampleRotation(p, int(rl.x[i]), int(rl.y[i]))
		if !d.ok {
			continue
		}
		out.put(i, d, p.ratio)
		if rl.hasLC && a.id == layerRBG0 {
			ls.rbgLCSel[i] = true
			ls.rbgLC[i] = rl.lc[i]
		}
	}

	if a.mosaic {
		mh, _ := r.mosaicSize()
		applyMosaic(out, w, mh)
	}
}

// sampleRotation applies the screen-over process before fetching.
func (r *renderer) sampleRotation(p *bgParams, x, y int) bgDot {
	w, h := p.mapW, p.mapH
	if p.bitmap {
		w, h = p.bmW, p.bmH
	}
	outside := x < 0 || y < 0 || x >= w || y >= h
	switch p.overflow {
	case 1:
		if outside && !p.bitmap {
			var pn patternName
			if p.pn.oneWord {
				pn = p.decodePN1(p.overPN)
			} else {
				pn = p.decodePN2(uint32(p.overPN))
			}
			return r.sampleChar(p, pn, x, y)
		}
	case 2:
		if outside {
			return bgDot{}
		}
	case 3:
		if x < 0 || y < 0 || x >= 512 || y >= 512 {
			return bgDot{}
		}
	}
	if p.bitmap {
		return r.sampleBitmap(p, x, y)
	}
	return r.sampleTile(p, x, y)
}
