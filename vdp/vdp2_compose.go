package vdp

// compositeScratch holds the per-line working arrays of the compositor.
// Index 0 is the top candidate.
type compositeScratch struct {
	id    [3][maxLineWidth]uint8
	pri   [3][maxLineWidth]uint8
	col   [3][maxLineWidth]uint32
	gt    [3][maxLineWidth]bool
	id3   [maxLineWidth]uint8 // candidate pushed down by the line color screen
	col3  [maxLineWidth]uint32
	lcIns [maxLineWidth]bool
	flags [maxLineWidth]uint8
	ratio [maxLineWidth]uint8
	res   [maxLineWidth]uint32
	m     [maxLineWidth]bool
	m2    [maxLineWidth]bool
	zero  [maxLineWidth]uint8

	// vcs caches the vertical cell scroll values of one line.
	vcs [maxLineWidth/8 + 1]uint32
}

// compositeParams are the per-slot compositor switches derived from the
// color calculation, line color, shadow and color offset registers.
type compositeParams struct {
	ccEnable [numSlots]bool
	lcEnable [numSlots]bool
	sdEnable [numSlots]bool
	coEnable [numSlots]bool
	coSelB   [numSlots]bool

	additive    bool
	secondRatio bool
	extended    extendedCC

	offA [3]int32
	offB [3]int32

	lcRatio   uint8
	backRatio uint8
}

// extendedCC selects how far extended color calculation reaches below the
// second image. It depends on the color RAM mode.
type extendedCC uint8

const (
	extOff       extendedCC = iota
	extLineColor            // RAM mode 1: only the line color screen mixes
	extFull                 // RAM mode 0: second and third images mix
)

// lineColorBit maps a layer to its LNCLEN bit. The sprite sits at bit 5.
func lineColorBit(l layerID) uint {
	if l == layerSprite {
		return 5
	}
	return layerBit(l)
}

func (r *renderer) deriveComposite() {
	raw := r.mem.regs[:]
	cp := &r.cp
	*cp = compositeParams{
		additive:    fCCMD.on(raw),
		secondRatio: fCCRTMD.on(raw),
		lcRatio:     uint8(raw[regCCRLB>>1]) & 0x1F,
		backRatio:   uint8(raw[regCCRLB>>1]>>8) & 0x1F,
	}
	if fEXCCEN.on(raw) {
		switch r.mem.cramMode() {
		case 0:
			cp.extended = extFull
		case 1:
			cp.extended = extLineColor
		}
	}

	ccctl := raw[regCCCTL>>1]
	lnclen := raw[regLNCLEN>>1]
	sdctl := raw[regSDCTL>>1]
	clofen := raw[regCLOFEN>>1]
	clofsl := raw[regCLOFSL>>1]
	for l := layerSprite; l <= layerBack; l++ {
		b := layerBit(l)
		if l != layerBack {
			cp.ccEnable[l] = ccctl>>b&1 != 0
			cp.lcEnable[l] = lnclen>>lineColorBit(l)&1 != 0
		}
		if l != layerSprite {
			cp.sdEnable[l] = sdctl>>b&1 != 0
		}
		cp.coEnable[l] = clofen>>b&1 != 0
		cp.coSelB[l] = clofsl>>b&1 != 0
	}
	// LCCCEN: the line color screen takes part in extended color calculation.
	cp.ccEnable[layerLineColor] = ccctl>>5&1 != 0

	for c := 0; c < 3; c++ {
		cp.offA[c] = sext(uint32(raw[(regCOAR>>1)+c]), 9)
		cp.offB[c] = sext(uint32(raw[(regCOAR>>1)+3+c]), 9)
	}
}

// composite merges the layer buffers of ls into ls.pixels. It only reads
// layer state, so compositing the same line twice gives the same output.
func (r *renderer) composite(ls *lineSet, w int) {
	c := &ls.comp
	cp := &r.cp

	var colorSrc [numSlots][]uint32
	var flagSrc, ratioSrc [numSlots][]uint8
	for l := 0; l < numLayers; l++ {
		colorSrc[l] = ls.layers[l].color[:w]
		flagSrc[l] = ls.layers[l].flags[:w]
		ratioSrc[l] = ls.layers[l].ratio[:w]
	}
	colorSrc[layerBack] = ls.back[:w]
	colorSrc[layerLineColor] = ls.lineColor[:w]
	flagSrc[layerBack] = c.zero[:w]
	flagSrc[layerLineColor] = c.zero[:w]
	ratioSrc[layerBack] = ls.backRatio[:w]
	ratioSrc[layerLineColor] = ls.lcRatio[:w]

	id0, id1, id2 := c.id[0][:w], c.id[1][:w], c.id[2][:w]
	pri0, pri1, pri2 := c.pri[0][:w], c.pri[1][:w], c.pri[2][:w]
	gt0, gt1, gt2 := c.gt[0][:w], c.gt[1][:w], c.gt[2][:w]
	col0, col1, col2 := c.col[0][:w], c.col[1][:w], c.col[2][:w]
	m, m2, res := c.m[:w], c.m2[:w], c.res[:w]

	// Top three by priority. Layers are visited in tie-break order and only
	// a strictly greater priority displaces a candidate. The back screen
	// fills every unused slot.
	for k := 0; k < 3; k++ {
		fillU8(c.id[k][:w], uint8(layerBack))
		fillU8(c.pri[k][:w], 0)
	}
	for l := 0; l < numLayers; l++ {
		pr := ls.layers[l].prio[:w]
		maskGreater(gt0, pr, pri0)
		maskGreater(gt1, pr, pri1)
		maskGreater(gt2, pr, pri2)

		selU8Scalar(id2, gt2, uint8(l))
		selU8(pri2, gt2, pr)
		selU8(id2, gt1, id1)
		selU8(pri2, gt1, pri1)

		selU8Scalar(id1, gt1, uint8(l))
		selU8(pri1, gt1, pr)
		selU8(id1, gt0, id0)
		selU8(pri1, gt0, pri0)

		selU8Scalar(id0, gt0, uint8(l))
		selU8(pri0, gt0, pr)
	}

	// Line color screen slides in under a top layer with LNCLEN set.
	id3, col3, lc := c.id3[:w], c.col3[:w], c.lcIns[:w]
	copy(id3, id2)
	maskLookup(lc, id0, &cp.lcEnable)
	selU8(id2, lc, id1)
	selU8Scalar(id1, lc, uint8(layerLineColor))

	gatherU32(col0, id0, &colorSrc)
	gatherU32(col1, id1, &colorSrc)
	gatherU32(col2, id2, &colorSrc)
	gatherU8(c.flags[:w], id0, &flagSrc)
	if cp.secondRatio {
		gatherU8(c.ratio[:w], id1, &ratioSrc)
	} else {
		gatherU8(c.ratio[:w], id0, &ratioSrc)
	}

	// Extended color calculation mixes the images under the top one before
	// the top blend. Without the line color screen the second and third mix
	// 1:1 when the second has color calculation enabled. With it, the image
	// under the line color screen first mixes 1:1 with the one below it
	// under the same condition, then the line color screen mixes 1:1 with
	// the result, giving 2:1:1.
	if cp.extended != extOff {
		if cp.extended == extFull {
			maskLookup(m, id1, &cp.ccEnable)
			andNotMask(m, m, lc)
			average(res, col1, col2)
			selU32(col1, m, res)

			gatherU32(col3, id3, &colorSrc)
			maskLookup(m, id2, &cp.ccEnable)
			andMask(m, m, lc)
			average(res, col2, col3)
			selU32(col2, m, res)
		}
		maskLookup(m, id1, &cp.ccEnable)
		andMask(m, m, lc)
		average(res, col1, col2)
		selU32(col1, m, res)
	}

	maskFlag(m, c.flags[:w], pixCC)
	andNotMask(m, m, ls.win.mask[winCC][:w])
	if cp.additive {
		addSaturate(res, col0, col1)
	} else {
		blendRatio(res, col0, col1, c.ratio[:w])
	}
	selU32(col0, m, res)

	maskAtLeast(m, ls.shadowPrio[:w], pri0)
	maskLookup(m2, id0, &cp.sdEnable)
	andMask(m, m, m2)
	halve(res, col0)
	selU32(col0, m, res)

	maskAtLeast(m, ls.meshPrio[:w], pri0)
	average(res, col0, ls.meshColor[:w])
	selU32(col0, m, res)

	maskLookup(m, id0, &cp.coEnable)
	maskLookup(m2, id0, &cp.coSelB)
	andNotMask(m2, m, m2)
	colorOffset(res, col0, cp.offA)
	selU32(col0, m2, res)
	maskLookup(m2, id0, &cp.coSelB)
	andMask(m2, m, m2)
	colorOffset(res, col0, cp.offB)
	selU32(col0, m2, res)

	copy(ls.pixels[:w], col0)
}
