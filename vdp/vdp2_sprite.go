package vdp

// spriteLayout describes one of the 16 sprite data formats. Types 0-7 are
// word sized, 8-F byte sized.
type spriteLayout struct {
	prShift uint8
	prBits  uint8
	ccShift uint8
	ccBits  uint8
	dcBits  uint8
	sd      bool // bit 15 is the shadow/sprite window bit
}

var spriteLayouts = [16]spriteLayout{
	{prShift: 14, prBits: 2, ccShift: 11, ccBits: 3, dcBits: 11},
	{prShift: 13, prBits: 3, ccShift: 11, ccBits: 2, dcBits: 11},
	{prShift: 14, prBits: 1, ccShift: 11, ccBits: 3, dcBits: 11, sd: true},
	{prShift: 13, prBits: 2, ccShift: 11, ccBits: 2, dcBits: 11, sd: true},
	{prShift: 13, prBits: 2, ccShift: 10, ccBits: 3, dcBits: 10, sd: true},
	{prShift: 12, prBits: 3, ccShift: 11, ccBits: 1, dcBits: 11, sd: true},
	{prShift: 12, prBits: 3, ccShift: 10, ccBits: 2, dcBits: 10, sd: true},
	{prShift: 12, prBits: 3, ccShift: 9, ccBits: 3, dcBits: 9, sd: true},
	{prShift: 7, prBits: 1, dcBits: 7},
	{prShift: 7, prBits: 1, ccShift: 6, ccBits: 1, dcBits: 6},
	{prShift: 6, prBits: 2, dcBits: 6},
	{ccShift: 6, ccBits: 2, dcBits: 6},
	{prShift: 7, prBits: 1, dcBits: 8},
	{prShift: 7, prBits: 1, ccShift: 6, ccBits: 1, dcBits: 8},
	{prShift: 6, prBits: 2, dcBits: 8},
	{ccShift: 6, ccBits: 2, dcBits: 8},
}

// spriteParams are the sprite layer settings derived from SPCTL and the
// sprite priority/ratio registers.
type spriteParams struct {
	layout      spriteLayout
	byteData    bool
	rgbMode     bool
	winEnable   bool
	transShadow bool
	prio        [8]uint8
	ratio       [8]uint8
	ccMode      uint16
	ccNum       uint8
	ccEnable    bool
	cramOff     uint32
}

func (r *renderer) deriveSprite() {
	raw := r.mem.regs[:]
	t := fSPTYPE.get(raw)
	sp := &r.sp
	*sp = spriteParams{
		layout:      spriteLayouts[t],
		byteData:    t >= 8,
		rgbMode:     fSPCLMD.on(raw),
		winEnable:   fSPWINEN.on(raw),
		transShadow: fTPSDSL.on(raw),
		ccMode:      fSPCCCS.get(raw),
		ccNum:       uint8(fSPCCN.get(raw)),
		ccEnable:    raw[regCCCTL>>1]>>layerBit(layerSprite)&1 != 0,
		cramOff:     cramOffset(raw, layerSprite) << 8,
	}
	for i := 0; i < 8; i++ {
		p := raw[(regPRISA>>1)+i/2]
		c := raw[(regCCRSA>>1)+i/2]
		if i&1 != 0 {
			p >>= 8
			c >>= 8
		}
		sp.prio[i] = uint8(p & 7)
		sp.ratio[i] = uint8(c & 0x1F)
	}
}

// spriteCond evaluates the sprite color calculation condition.
func (sp *spriteParams) spriteCond(prio uint8, msb bool) bool {
	switch sp.ccMode {
	case 0:
		return prio <= sp.ccNum
	case 1:
		return prio == sp.ccNum
	case 2:
		return prio >= sp.ccNum
	default:
		return msb
	}
}

// drawSprite decodes the VDP1 display framebuffer into the sprite layer.
func (r *renderer) drawSprite(ls *lineSet, line, field int) {
	w := r.geom.width
	out := &ls.layers[layerSprite]
	out.clear(w)
	fillU8(ls.shadowPrio[:w], 0)
	fillU8(ls.meshPrio[:w], 0)

	v1 := r.vdp1
	fb := v1.displayFB()
	marks := v1.displayMesh()
	mode := v1.fbMode()
	rot := &r.rot.line[0]
	rotFB := v1.rotationFB() && rot.valid

	for i := 0; i < w; i++ {
		fx, fy := i, line
		switch {
		case rotFB:
			fx, fy = int(rot.x[i]), int(rot.y[i])
		case r.geom.hiRes && !mode.bpp8:
			fx = i >> 1
		}
		if fx < 0 || fy < 0 || fx >= mode.width || fy >= mode.height {
			continue
		}
		if mode.bpp8 {
			bi := uint32(fy*mode.width + fx)
			raw := uint16(wordByte(fb[(bi>>1)&(vdp1FBWords-1)], bi))
			r.decodeSpriteDot(ls, i, raw, false)
			continue
		}
		idx := uint32(fy*vdp1FBStride+fx) & (vdp1FBWords - 1)
		mesh := marks[idx>>3]>>(idx&7)&1 != 0
		r.decodeSpriteDot(ls, i, fb[idx], mesh)
	}
}

// decodeSpriteDot classifies one framebuffer dot as normal, shadow,
// sprite window or transparent.
func (r *renderer) decodeSpriteDot(ls *lineSet, i int, raw uint16, mesh bool) {
	if raw == 0 {
		return
	}
	sp := &r.sp
	if !sp.byteData && sp.rgbMode && raw&0x8000 != 0 {
		prio := sp.prio[0]
		r.emitSprite(ls, i, rgb555(raw), prio, sp.ratio[0], sp.spriteCond(prio, true), mesh)
		return
	}

	l := sp.layout
	data := raw
	if sp.byteData {
		data &= 0xFF
	}
	dcMask := uint16(1)<<l.dcBits - 1
	dc := data & dcMask
	prio := sp.prio[data>>l.prShift&(uint16(1)<<l.prBits-1)]
	ratio := sp.ratio[data>>l.ccShift&(uint16(1)<<l.ccBits-1)]
	if l.prBits == 0 {
		prio = sp.prio[0]
	}
	if l.ccBits == 0 {
		ratio = sp.ratio[0]
	}

	if l.sd && raw&0x8000 != 0 {
		if sp.winEnable {
			ls.layers[layerSprite].flags[i] |= pixSpriteWin
			return
		}
		if dc != 0 || sp.transShadow {
			ls.shadowPrio[i] = prio
		}
		return
	}
	if !sp.byteData && dc == dcMask-1 {
		ls.shadowPrio[i] = prio
		return
	}
	if dc == 0 {
		return
	}
	c := r.colors.lookup(uint32(dc) + sp.cramOff)
	r.emitSprite(ls, i, c.rgb, prio, ratio, sp.spriteCond(prio, c.msb), mesh)
}

func (r *renderer) emitSprite(ls *lineSet, i int, color uint32, prio, ratio uint8, cond, mesh bool) {
	if prio == 0 {
		return
	}
	if mesh {
		ls.meshPrio[i] = prio
		ls.meshColor[i] = color
		return
	}
	out := &ls.layers[layerSprite]
	out.color[i] = color
	out.prio[i] = prio
	out.ratio[i] = ratio
	if cond && r.sp.ccEnable {
		out.flags[i] |= pixCC
	}
}

// maskSprite hides sprite output under the sprite layer's window.
func (r *renderer) maskSprite(ls *lineSet) {
	w := r.geom.width
	m := ls.win.mask[winSprite][:w]
	selU8Scalar(ls.layers[layerSprite].prio[:w], m, 0)
	selU8Scalar(ls.shadowPrio[:w], m, 0)
	selU8Scalar(ls.meshPrio[:w], m, 0)
}
