package vdp

type point struct {
	x, y int32
}

// gouraud is a 5:5:5 shading value split into channels. 0x10 is neutral.
type gouraud struct {
	r, g, b int32
}

func gouraudFrom(v uint16) gouraud {
	return gouraud{int32(v & 0x1F), int32(v >> 5 & 0x1F), int32(v >> 10 & 0x1F)}
}

func lerpGouraud(a, b gouraud, i, n int) gouraud {
	return gouraud{lerpInt(a.r, b.r, i, n), lerpInt(a.g, b.g, i, n), lerpInt(a.b, b.b, i, n)}
}

// lerpInt steps from a to b in n steps and returns step i, rounded to
// nearest.
func lerpInt(a, b int32, i, n int) int32 {
	if n == 0 {
		return a
	}
	d := int(b-a) * i
	if d >= 0 {
		return a + int32((d+n/2)/n)
	}
	return a - int32((-d+n/2)/n)
}

func lerpPoint(a, b point, i, n int) point {
	return point{lerpInt(a.x, b.x, i, n), lerpInt(a.y, b.y, i, n)}
}

func edgeLen(a, b point) int {
	return max(absInt(int(b.x-a.x)), absInt(int(b.y-a.y)))
}

// texStep walks one texture axis from 0 to size-1 over n steps, the way
// the edge and span counters advance: a whole increment per step plus a
// carry from the remainder, so step i lands on floor(i*(size-1)/n).
type texStep struct {
	pos  int
	inc  int
	rem  int
	frac int
	n    int
}

func newTexStep(size, n int) texStep {
	if n <= 0 || size <= 1 {
		return texStep{}
	}
	d := size - 1
	return texStep{inc: d / n, rem: d % n, n: n}
}

func (s *texStep) next() {
	if s.n == 0 {
		return
	}
	s.pos += s.inc
	s.frac += s.rem
	if s.frac >= s.n {
		s.frac -= s.n
		s.pos++
	}
}

type meshPixel struct {
	idx   uint32
	color uint16
}

// drawParams holds the per-command drawing settings resolved before any
// pixel is written.
type drawParams struct {
	colr      uint16
	colorMode uint16
	ccMode    uint16
	msbOn     bool
	hss       bool
	userClip  bool
	clipOut   bool
	mesh      bool
	transMesh bool
	endCodes  bool
	drawTrans bool
	preClip   bool
	rmw       bool // pixels read the framebuffer before writing

	gouraud bool
	grd     [4]gouraud

	textured bool
	texAddr  uint32
	texW     int
	texH     int
	flipH    bool
	flipV    bool
	lut      [16]uint16
	endRun   int

	fb    *[vdp1FBWords]uint16
	marks *[vdp1MeshBytes]uint8
	mode  fbMode
	die   bool
	dil   int32
	eos   int
}

func (v *VDP1) setupDraw(c *vdp1Command, textured bool) drawParams {
	r := v.regs[:]
	p := drawParams{
		colr:      c.colr,
		colorMode: c.pmod >> 3 & 7,
		ccMode:    c.pmod & 7,
		msbOn:     c.pmod&pmodMSBOn != 0,
		hss:       c.pmod&pmodHSS != 0,
		userClip:  c.pmod&pmodUserClip != 0,
		clipOut:   c.pmod&pmodClipMode != 0,
		mesh:      c.pmod&pmodMesh != 0,
		endCodes:  c.pmod&pmodEndCode == 0,
		drawTrans: c.pmod&pmodTransDraw != 0,
		preClip:   c.pmod&pmodPreClip == 0,
		textured:  textured,
		fb:        &v.fb[v.drawFB],
		marks:     &v.mesh[v.drawFB],
		mode:      v.fbMode(),
		die:       fDIE.on(r),
		dil:       int32(fDIL.get(r)),
		eos:       int(fEOS.get(r)),
	}
	p.transMesh = p.mesh && v.transparentMesh && !p.mode.bpp8
	if p.mode.bpp8 {
		p.ccMode = 0
	}
	switch p.ccMode {
	case 1, 3, 7:
		p.rmw = true
	}
	p.rmw = p.rmw || p.msbOn || p.transMesh
	if p.ccMode&4 != 0 {
		p.gouraud = true
		base := uint32(c.grda) << 3
		for i := range p.grd {
			p.grd[i] = gouraudFrom(v.readVRAM16(base + uint32(i)*2))
		}
	}
	if textured {
		p.texAddr = uint32(c.srca) << 3
		p.texW = int(c.size>>8&0x3F) * 8
		p.texH = int(c.size & 0xFF)
		p.flipH = c.ctrl&cmdFlipH != 0
		p.flipV = c.ctrl&cmdFlipV != 0
		if p.colorMode == 1 {
			base := uint32(c.colr) << 3
			for i := range p.lut {
				p.lut[i] = v.readVRAM16(base + uint32(i)*2)
			}
		}
	}
	return p
}

// visible reports whether the bounding box of pts overlaps the system clip
// rectangle.
func (v *VDP1) visible(pts ...point) bool {
	minX, maxX := pts[0].x, pts[0].x
	minY, maxY := pts[0].y, pts[0].y
	for _, pt := range pts[1:] {
		minX = min(minX, pt.x)
		maxX = max(maxX, pt.x)
		minY = min(minY, pt.y)
		maxY = max(maxY, pt.y)
	}
	return maxX >= 0 && maxY >= 0 && minX <= v.sysClipX && minY <= v.sysClipY
}

func (v *VDP1) local(x, y int32) point {
	return point{x + v.localX, y + v.localY}
}

func (v *VDP1) drawNormalSprite(c *vdp1Command) int {
	p := v.setupDraw(c, true)
	if p.texW == 0 || p.texH == 0 {
		return 0
	}
	a := v.local(c.xa, c.ya)
	w, h := int32(p.texW-1), int32(p.texH-1)
	return v.drawQuad(&p, [4]point{a, {a.x + w, a.y}, {a.x + w, a.y + h}, {a.x, a.y + h}})
}

// zoomAxis positions a scaled sprite edge around a zoom point: 1 anchors
// the start, 2 the center and 3 the end.
func zoomAxis(pos, size int32, anchor uint16) (int32, int32) {
	switch anchor {
	case 2:
		return pos - size/2, pos + size - size/2
	case 3:
		return pos - size, pos
	default:
		return pos, pos + size
	}
}

func (v *VDP1) drawScaledSprite(c *vdp1Command) int {
	p := v.setupDraw(c, true)
	if p.texW == 0 || p.texH == 0 {
		return 0
	}
	var x0, y0, x1, y1 int32
	if zp := c.zoomPoint(); zp == 0 {
		x0, y0, x1, y1 = c.xa, c.ya, c.xc, c.yc
	} else {
		x0, x1 = zoomAxis(c.xa, c.xb, zp&3)
		y0, y1 = zoomAxis(c.ya, c.yb, zp>>2)
	}
	a := v.local(x0, y0)
	b := v.local(x1, y1)
	return v.drawQuad(&p, [4]point{a, {b.x, a.y}, b, {a.x, b.y}})
}

func (v *VDP1) drawDistortedSprite(c *vdp1Command) int {
	p := v.setupDraw(c, true)
	if p.texW == 0 || p.texH == 0 {
		return 0
	}
	return v.drawQuad(&p, [4]point{
		v.local(c.xa, c.ya), v.local(c.xb, c.yb),
		v.local(c.xc, c.yc), v.local(c.xd, c.yd),
	})
}

func (v *VDP1) drawPolygon(c *vdp1Command) int {
	p := v.setupDraw(c, false)
	return v.drawQuad(&p, [4]point{
		v.local(c.xa, c.ya), v.local(c.xb, c.yb),
		v.local(c.xc, c.yc), v.local(c.xd, c.yd),
	})
}

func (v *VDP1) drawPolyline(c *vdp1Command) int {
	p := v.setupDraw(c, false)
	pts := [4]point{
		v.local(c.xa, c.ya), v.local(c.xb, c.yb),
		v.local(c.xc, c.yc), v.local(c.xd, c.yd),
	}
	if p.preClip && !v.visible(pts[:]...) {
		return 0
	}
	cycles := 0
	for i := 0; i < 4; i++ {
		j := (i + 1) & 3
		cycles += v.drawSpan(&p, pts[i], pts[j], 0, p.grd[i], p.grd[j], false)
	}
	v.commitMesh(&p)
	return cycles
}

func (v *VDP1) drawLine(c *vdp1Command) int {
	p := v.setupDraw(c, false)
	a := v.local(c.xa, c.ya)
	b := v.local(c.xb, c.yb)
	if p.preClip && !v.visible(a, b) {
		return 0
	}
	cycles := v.drawSpan(&p, a, b, 0, p.grd[0], p.grd[1], false)
	v.commitMesh(&p)
	return cycles
}

// drawQuad fills a quad by stepping the A->D and B->C edges together and
// drawing one span per step.
func (v *VDP1) drawQuad(p *drawParams, q [4]point) int {
	if p.preClip && !v.visible(q[:]...) {
		return 0
	}
	a, b, c, d := q[0], q[1], q[2], q[3]
	steps := max(edgeLen(a, d), edgeLen(b, c))
	var tv texStep
	if p.textured {
		tv = newTexStep(p.texH, steps)
	}
	cycles := 0
	for i := 0; i <= steps; i++ {
		l := lerpPoint(a, d, i, steps)
		r := lerpPoint(b, c, i, steps)
		ty := tv.pos
		if p.flipV {
			ty = p.texH - 1 - ty
		}
		var gl, gr gouraud
		if p.gouraud {
			gl = lerpGouraud(p.grd[0], p.grd[3], i, steps)
			gr = lerpGouraud(p.grd[1], p.grd[2], i, steps)
		}
		cycles += v.drawSpan(p, l, r, ty, gl, gr, true)
		tv.next()
	}
	v.commitMesh(p)
	return cycles
}

// spanClipped reports whether the span from a to b lies wholly on one side
// of the system clip rectangle.
func (v *VDP1) spanClipped(a, b point) bool {
	return (a.x < 0 && b.x < 0) || (a.y < 0 && b.y < 0) ||
		(a.x > v.sysClipX && b.x > v.sysClipX) ||
		(a.y > v.sysClipY && b.y > v.sysClipY)
}

// drawSpan draws a line from a to b. Quad spans set aa so a diagonal step
// also fills the pixel beside it, leaving no holes between adjacent spans.
func (v *VDP1) drawSpan(p *drawParams, a, b point, ty int, ga, gb gouraud, aa bool) int {
	if v.spanClipped(a, b) {
		return 1
	}
	n := edgeLen(a, b)
	p.endRun = 0
	var tu texStep
	if p.textured {
		tu = newTexStep(p.texW, n)
	}
	px, py := a.x, a.y
	count := 1
	for i := 0; i <= n; i++ {
		x := lerpInt(a.x, b.x, i, n)
		y := lerpInt(a.y, b.y, i, n)
		color, draw, stop := v.spanColor(p, tu.pos, n, ty)
		tu.next()
		if stop {
			break
		}
		if draw {
			g := ga
			if p.gouraud {
				g = lerpGouraud(ga, gb, i, n)
			}
			if aa && i > 0 && x != px && y != py {
				v.plot(p, x, py, color, g)
				count++
			}
			v.plot(p, x, y, color, g)
			count++
		}
		px, py = x, y
	}
	if p.rmw {
		count *= 2
	}
	return count
}

// texColumn maps the stepped column u of a span n steps long to the texel
// actually sampled.
func (p *drawParams) texColumn(u, n int) int {
	if p.hss && p.texW > n+1 {
		u = u&^1 | p.eos
		if u >= p.texW {
			u = p.texW - 1
		}
	}
	if p.flipH {
		u = p.texW - 1 - u
	}
	return u
}

// spanColor resolves the color at stepped column u of a span. stop is set
// once two end codes have been seen on the span.
func (v *VDP1) spanColor(p *drawParams, u, n, ty int) (color uint16, draw, stop bool) {
	if !p.textured {
		return p.colr, true, false
	}
	c, end, trans := v.texel(p, p.texColumn(u, n), ty)
	if end && p.endCodes {
		p.endRun++
		return 0, false, p.endRun >= 2
	}
	p.endRun = 0
	if trans && !p.drawTrans {
		return 0, false, false
	}
	return c, true, false
}

// texel fetches texture pixel (u, ty) and maps it through the command's
// color mode.
func (v *VDP1) texel(p *drawParams, u, ty int) (color uint16, end, trans bool) {
	switch p.colorMode {
	case 0, 1:
		b := v.readVRAM8(p.texAddr + uint32(ty*p.texW/2+u/2))
		nib := uint16(b >> 4)
		if u&1 != 0 {
			nib = uint16(b & 0xF)
		}
		if p.colorMode == 0 {
			return p.colr&0xFFF0 | nib, nib == 0xF, nib == 0
		}
		return p.lut[nib], nib == 0xF, nib == 0
	case 2, 3, 4:
		b := uint16(v.readVRAM8(p.texAddr + uint32(ty*p.texW+u)))
		switch p.colorMode {
		case 2:
			color = p.colr&0xFFC0 | b&0x3F
		case 3:
			color = p.colr&0xFF80 | b&0x7F
		default:
			color = p.colr&0xFF00 | b
		}
		return color, b == 0xFF, b == 0
	default:
		w := v.readVRAM16(p.texAddr + uint32(ty*p.texW+u)*2)
		return w, w == 0x7FFF, w == 0
	}
}

// plot writes one pixel through clipping, mesh and color calculation.
func (v *VDP1) plot(p *drawParams, x, y int32, color uint16, g gouraud) {
	if x < 0 || y < 0 || x > v.sysClipX || y > v.sysClipY {
		return
	}
	if p.userClip {
		inside := x >= v.userClip[0] && x <= v.userClip[2] &&
			y >= v.userClip[1] && y <= v.userClip[3]
		if inside == p.clipOut {
			return
		}
	}
	if p.mesh && !p.transMesh && (x^y)&1 != 0 {
		return
	}
	fy := y
	if p.die {
		if y&1 != p.dil {
			return
		}
		fy = y >> 1
	}
	if int(x) >= p.mode.width || int(fy) >= p.mode.height {
		return
	}

	if p.mode.bpp8 {
		idx := uint32(int(fy)*p.mode.width + int(x))
		w := &p.fb[(idx>>1)&(vdp1FBWords-1)]
		c := uint8(color)
		if p.msbOn {
			c = wordByte(*w, idx) | 0x80
		}
		*w = mergeByte(*w, idx, c)
		return
	}

	idx := (uint32(fy)*vdp1FBStride + uint32(x)) & (vdp1FBWords - 1)
	old := p.fb[idx]
	if p.msbOn {
		p.fb[idx] = old | 0x8000
		return
	}
	c := color
	if p.gouraud {
		c = applyGouraud(c, g)
	}
	switch p.ccMode {
	case 1:
		if old&0x8000 == 0 {
			return
		}
		c = halfLuminance(old)
	case 2, 6:
		c = halfLuminance(c)
	case 3, 7:
		if old&0x8000 != 0 {
			c = halfTransparent(old, c)
		}
	}
	if p.transMesh {
		v.stageMesh(idx, c)
		return
	}
	p.fb[idx] = c
	p.marks[idx>>3] &^= 1 << (idx & 7)
}

// stageMesh holds a transparent mesh pixel until the primitive ends. A
// pixel the primitive already staged keeps its first color, so every
// location is blended once.
func (v *VDP1) stageMesh(idx uint32, c uint16) {
	if v.meshSeen == nil {
		v.meshSeen = make([]uint8, vdp1MeshBytes)
	}
	bit := uint8(1) << (idx & 7)
	if v.meshSeen[idx>>3]&bit != 0 {
		return
	}
	v.meshSeen[idx>>3] |= bit
	v.meshStage = append(v.meshStage, meshPixel{idx, c})
}

// commitMesh blends the pixels staged by a transparent mesh primitive.
// Pixels landing on an empty location are written as-is and marked so the
// compositor blends them with whatever lies beneath.
func (v *VDP1) commitMesh(p *drawParams) {
	if !p.transMesh {
		return
	}
	for _, m := range v.meshStage {
		old := p.fb[m.idx]
		bit := uint8(1) << (m.idx & 7)
		v.meshSeen[m.idx>>3] &^= bit
		if old == 0 {
			p.fb[m.idx] = m.color
			p.marks[m.idx>>3] |= bit
			continue
		}
		p.fb[m.idx] = halfTransparent(old, m.color)
	}
	v.meshStage = v.meshStage[:0]
}

func applyGouraud(c uint16, g gouraud) uint16 {
	r := clampInt(int(c&0x1F)+int(g.r)-0x10, 0, 31)
	gg := clampInt(int(c>>5&0x1F)+int(g.g)-0x10, 0, 31)
	b := clampInt(int(c>>10&0x1F)+int(g.b)-0x10, 0, 31)
	return c&0x8000 | uint16(b)<<10 | uint16(gg)<<5 | uint16(r)
}

func halfLuminance(c uint16) uint16 {
	return c&0x8000 | (c&0x7BDE)>>1
}

func halfTransparent(a, b uint16) uint16 {
	return b&0x8000 | ((a&0x7BDE)+(b&0x7BDE))>>1
}
