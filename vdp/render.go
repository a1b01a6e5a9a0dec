package vdp

import "image"

const (
	// MaxScreenWidth and MaxScreenHeight bound the output frame: 704 dots
	// in high resolution and 256 lines doubled by double-density interlace.
	MaxScreenWidth  = 704
	MaxScreenHeight = 512

	maxLineWidth = MaxScreenWidth
)

// DisplaySize returns the size a frame occupies on a 4:3 display, in high
// resolution dots and double-density lines. Low resolution frames are
// doubled on the axis that needs it.
func DisplaySize(width, height int) (int, int) {
	if width < 640 {
		width *= 2
	}
	if height < 448 {
		height *= 2
	}
	return width, height
}

// layerID orders the layers for priority tie-breaks: lower wins.
type layerID uint8

const (
	layerSprite layerID = iota
	layerRBG0
	layerNBG0 // RBG1 takes this slot when enabled
	layerNBG1
	layerNBG2
	layerNBG3
	layerBack
	layerLineColor

	numLayers = 6
	numSlots  = 8
)

// Pixel flags carried in layer buffers.
const (
	pixCC        uint8 = 1 << iota // color calculation condition met
	pixSpriteWin                   // sprite window area
)

// layerLine is one layer's output for one scanline. A zero priority marks
// the dot transparent.
type layerLine struct {
	color [maxLineWidth]uint32
	prio  [maxLineWidth]uint8
	flags [maxLineWidth]uint8
	ratio [maxLineWidth]uint8
}

func (l *layerLine) clear(w int) {
	fillU8(l.prio[:w], 0)
	fillU8(l.flags[:w], 0)
}

// lineSet is everything needed to render one scanline of one field. The
// deinterlace worker owns a second set.
type lineSet struct {
	layers [numLayers]layerLine
	win    windowSet

	back      [maxLineWidth]uint32
	lineColor [maxLineWidth]uint32
	lcRatio   [maxLineWidth]uint8
	backRatio [maxLineWidth]uint8

	rbgLC    [maxLineWidth]uint8 // coefficient line color, low 7 bits
	rbgLCSel [maxLineWidth]bool

	shadowPrio [maxLineWidth]uint8
	meshPrio   [maxLineWidth]uint8
	meshColor  [maxLineWidth]uint32

	comp   compositeScratch
	pixels [maxLineWidth]uint32
}

// screenGeometry is the display format decoded from TVMD.
type screenGeometry struct {
	width     int
	height    int // active lines per field
	hiRes     bool
	wide      bool // 352/704 dot class
	interlace InterlaceMode
	pal       bool
}

// outputHeight is the number of framebuffer rows per frame.
func (g screenGeometry) outputHeight() int {
	if g.interlace == InterlaceDouble {
		return g.height * 2
	}
	return g.height
}

func decodeGeometry(raw []uint16, pal bool) screenGeometry {
	g := screenGeometry{interlace: interlaceMode(raw), pal: pal}
	h := fHRESO.get(raw) & 3
	g.wide = h&1 != 0
	g.hiRes = h&2 != 0
	switch h {
	case 0:
		g.width = 320
	case 1:
		g.width = 352
	case 2:
		g.width = 640
	default:
		g.width = 704
	}
	g.height = verticalTiming(pal, fVRESO.get(raw)).active
	return g
}

// frameState is the per-frame derived state that must survive a save
// state taken mid-frame.
type frameState struct {
	field int
	line  int
	nbgY  [2]uint32 // accumulated vertical zoom for NBG0/NBG1, 11.8
	rot   [2]rotAccum
}

// renderer turns register and memory state into scanlines. The bus side
// owns one bound to the authoritative state; the render goroutine owns one
// bound to its private copy.
type renderer struct {
	mem  *vdp2State
	vdp1 *VDP1
	pal  bool

	colors colorCache
	dirty  bool
	geom   screenGeometry

	nbg   [4]bgParams
	rbg0  [2]bgParams // parameter A and B plane settings
	rbg1  bgParams
	cp    compositeParams
	sp    spriteParams
	rot   rotationState
	frame frameState

	deinterlace bool
	primary     *lineSet
	alt         *lineSet

	// altBegin/altEnd hand the alternate field line to the deinterlace
	// worker. Nil means render inline.
	altBegin func(line int)
	altEnd   func()

	out *image.RGBA
}

func newRenderer(mem *vdp2State, v1 *VDP1, pal bool) *renderer {
	r := &renderer{
		mem:     mem,
		vdp1:    v1,
		pal:     pal,
		dirty:   true,
		primary: &lineSet{},
		out:     image.NewRGBA(image.Rect(0, 0, MaxScreenWidth, MaxScreenHeight)),
	}
	r.colors.rebuild(mem)
	return r
}

// ensureAlt allocates the alternate field line set on first use.
func (r *renderer) ensureAlt() *lineSet {
	if r.alt == nil {
		r.alt = &lineSet{}
	}
	return r.alt
}

// regWritten records a register write so derived parameters are rebuilt
// before the next line.
func (r *renderer) regWritten(off uint32) {
	r.dirty = true
	if off&vdp2RegMask == regRAMCTL && r.mem.cramMode() != r.colors.mode {
		r.colors.rebuild(r.mem)
	}
}

// cramWritten refreshes the color cache for the touched words.
func (r *renderer) cramWritten(i, j int) {
	r.colors.update(r.mem, i)
	if j != i {
		r.colors.update(r.mem, j)
	}
}

// refresh rebuilds derived parameters when registers changed.
func (r *renderer) refresh() {
	if !r.dirty {
		return
	}
	r.dirty = false
	raw := r.mem.regs[:]
	r.geom = decodeGeometry(raw, r.pal)
	for n := range r.nbg {
		r.deriveNBG(n)
	}
	r.deriveRBG0(0)
	r.deriveRBG0(1)
	r.deriveRBG1()
	r.deriveComposite()
	r.deriveSprite()
}

// beginFrame resets the per-frame accumulators.
func (r *renderer) beginFrame(field int) {
	r.frame.field = field
	r.frame.line = 0
	r.frame.nbgY = [2]uint32{}
	r.rot.frameStart = true
}

// drawLine renders active line `line` into the output frame, plus the
// alternate field line when deinterlacing double-density interlace.
func (r *renderer) drawLine(line int) {
	r.refresh()
	g := r.geom
	if line >= g.height {
		return
	}
	r.frame.line = line
	field := r.frame.field

	r.prepareRotation(line)

	row := line
	double := g.interlace == InterlaceDouble
	if double {
		row = line*2 + field
	}
	withAlt := double && r.deinterlace
	if withAlt {
		if r.altBegin != nil {
			r.altBegin(line)
		} else {
			r.renderAlt(line)
		}
	}
	r.renderLine(r.primary, line, field, row)
	if withAlt && r.altEnd != nil {
		r.altEnd()
	}

	r.advanceLine()
}

// renderAlt renders the other field's line for line. It only reads
// renderer state, so it may run on the deinterlace goroutine while the
// primary line renders.
func (r *renderer) renderAlt(line int) {
	field := r.frame.field ^ 1
	r.renderLine(r.ensureAlt(), line, field, line*2+field)
}

// renderLine produces one output row.
func (r *renderer) renderLine(ls *lineSet, line, field, row int) {
	g := r.geom
	w := g.width
	dst := r.out.Pix[row*r.out.Stride : row*r.out.Stride+w*4]

	raw := r.mem.regs[:]
	if !fDISP.on(raw) {
		border := uint32(0)
		if fBDCLMD.on(raw) {
			border = r.backColor(line)
		}
		fillU32(ls.pixels[:w], border)
		packRGBA(dst, ls.pixels[:w])
		return
	}

	r.drawSprite(ls, line, field)
	r.computeWindows(ls, line, field)
	r.maskSprite(ls)
	r.drawBackgrounds(ls, line, field)
	r.fillBackAndLineColor(ls, line)
	r.composite(ls, w)
	packRGBA(dst, ls.pixels[:w])
}

// advanceLine steps the per-line accumulators after a line is drawn.
func (r *renderer) advanceLine() {
	step := uint32(1)
	if r.geom.interlace == InterlaceDouble {
		step = 2
	}
	for n := 0; n < 2; n++ {
		r.frame.nbgY[n] += r.nbg[n].zoomY * step
	}
	r.advanceRotation()
}

// backColor returns the back screen color for a line.
func (r *renderer) backColor(line int) uint32 {
	raw := r.mem.regs[:]
	addr := tableAddr(raw, regBKTAU)
	if fBKCLMD.on(raw) {
		addr += uint32(line) * 2
	}
	return rgb555(r.mem.vram16(addr))
}

// lineColorNumber returns the line color screen color number for a line.
func (r *renderer) lineColorNumber(line int) uint32 {
	raw := r.mem.regs[:]
	addr := tableAddr(raw, regLCTAU)
	if fLCCLMD.on(raw) {
		addr += uint32(line) * 2
	}
	return uint32(r.mem.vram16(addr)) & 0x7FF
}

// fillBackAndLineColor prepares the two fixed-color screens.
func (r *renderer) fillBackAndLineColor(ls *lineSet, line int) {
	w := r.geom.width
	fillU32(ls.back[:w], r.backColor(line))
	fillU8(ls.backRatio[:w], r.cp.backRatio)
	fillU8(ls.lcRatio[:w], r.cp.lcRatio)

	lc := r.lineColorNumber(line)
	fillU32(ls.lineColor[:w], r.colors.lookup(lc).rgb)

	// RBG0 coefficient data may replace the low 7 bits per dot.
	for x := 0; x < w; x++ {
		if ls.rbgLCSel[x] {
			ls.lineColor[x] = r.colors.lookup(lc&0x780 | uint32(ls.rbgLC[x])).rgb
		}
	}
}

// frameView describes the output frame in the current geometry.
func (r *renderer) frameView() *Frame {
	g := r.geom
	return &Frame{
		Pix:       r.out.Pix,
		Stride:    r.out.Stride,
		Width:     g.width,
		Height:    g.outputHeight(),
		Field:     r.frame.field,
		Interlace: g.interlace,
	}
}
