package vdp

// hPhase is the horizontal position within a line.
type hPhase uint8

const (
	hActive hPhase = iota
	hRightBorder
	hSync
	hLeftBorder
	numHPhases
)

// vPhase is the vertical position within a field.
type vPhase uint8

const (
	vActive vPhase = iota
	vBottomBorder
	vBlankingAndSync
	vCounterSkip
	vTopBorder
	vLastLine
)

func (p vPhase) String() string {
	switch p {
	case vActive:
		return "active"
	case vBottomBorder:
		return "bottom border"
	case vBlankingAndSync:
		return "blanking"
	case vCounterSkip:
		return "counter skip"
	case vTopBorder:
		return "top border"
	}
	return "last line"
}

// cyclesPerDot converts normal resolution dots to system clock cycles.
// High resolution modes run two dots in the same time.
const cyclesPerDot = 4

// hDots holds the phase lengths in dots for the 320 and 352 dot classes.
var hDots = [2][numHPhases]int{
	{320, 27, 55, 25},
	{352, 19, 55, 29},
}

// vTiming is the number of lines spent in each vertical phase.
type vTiming struct {
	active int
	bottom int
	blank  int
	skip   int
	top    int
	last   int
}

var (
	ntsc224 = vTiming{224, 8, 13, 1, 16, 1}
	ntsc240 = vTiming{240, 1, 13, 1, 7, 1}
	pal224  = vTiming{224, 32, 16, 1, 39, 1}
	pal240  = vTiming{240, 24, 16, 1, 31, 1}
	pal256  = vTiming{256, 16, 16, 1, 23, 1}
)

// verticalTiming returns the line table for a video standard and VRESO
// setting. Settings the standard does not support select the nearest one.
func verticalTiming(pal bool, vres uint16) vTiming {
	if !pal {
		if vres == 0 {
			return ntsc224
		}
		return ntsc240
	}
	switch vres {
	case 0:
		return pal224
	case 1:
		return pal240
	}
	return pal256
}

// lines is the field length. The short field of an interlaced frame drops
// one top border line.
func (t vTiming) lines(short bool) int {
	n := t.active + t.bottom + t.blank + t.skip + t.top + t.last
	if short {
		n--
	}
	return n
}

// skipStart is the first line of the counter skip phase.
func (t vTiming) skipStart() int {
	return t.active + t.bottom + t.blank
}

func (t vTiming) phaseAt(line int, short bool) vPhase {
	top := t.top
	if short {
		top--
	}
	bounds := [...]int{t.active, t.bottom, t.blank, t.skip, top}
	for p, n := range bounds {
		if line < n {
			return vPhase(p)
		}
		line -= n
	}
	return vLastLine
}

func (v *Video) vtiming() vTiming {
	return verticalTiming(v.pal, fVRESO.get(v.vdp2.regs[:]))
}

// shortField reports whether the current field is the short one.
func (v *Video) shortField() bool {
	return interlaceMode(v.vdp2.regs[:]) != InterlaceNone && v.field == 1
}

func (v *Video) phaseCycles(p hPhase) int64 {
	class := 0
	if fHRESO.get(v.vdp2.regs[:])&1 != 0 {
		class = 1
	}
	return int64(hDots[class][p] * cyclesPerDot)
}

// Update advances the video timing to now and returns the timestamp of the
// next phase change.
func (v *Video) Update(now int64) int64 {
	v.advanceVDP1(now)
	for now >= v.nextEvent {
		v.enterNextPhase()
		v.nextEvent += v.phaseCycles(v.hPhase)
	}
	return v.nextEvent
}

// Sync brings VDP1 drawing and the counter clock up to now without
// crossing a phase boundary.
func (v *Video) Sync(now int64) {
	v.advanceVDP1(now)
}

func (v *Video) advanceVDP1(now int64) {
	if now > v.now {
		v.runVDP1(now - v.now)
		v.now = now
	}
	v.pollDrawEnd()
}

func (v *Video) enterNextPhase() {
	v.hPhase = (v.hPhase + 1) % numHPhases
	switch v.hPhase {
	case hActive:
		v.lineStart = v.nextEvent
		if v.vPhase == vActive {
			v.drawLine(v.line)
		}
	case hRightBorder:
		v.hblank = true
		if v.sink != nil {
			v.sink.HBlankIn()
		}
		if v.vPhase == vActive && v.line == v.vtiming().active-1 {
			v.enterVBlank()
		}
	case hLeftBorder:
		v.nextLine()
	}
	if v.hPhase == hActive {
		v.hblank = false
	}
}

// enterVBlank runs at the right border of the last active line.
func (v *Video) enterVBlank() {
	v.vdp1VBlankIn()
	if interlaceMode(v.vdp2.regs[:]) != InterlaceNone {
		v.field ^= 1
	} else {
		v.field = 0
	}
	v.vblank = true
	if v.sink != nil {
		v.sink.VBlankIn()
	}
}

func (v *Video) nextLine() {
	vt := v.vtiming()
	short := v.shortField()
	prev := v.vPhase
	v.line++
	if v.line >= vt.lines(short) {
		v.endFrame()
	}
	v.vPhase = vt.phaseAt(v.line, short)
	if v.vPhase == vBlankingAndSync && prev != vBlankingAndSync {
		v.emitFrame()
	}
}

// endFrame wraps the line counter and starts the next frame.
func (v *Video) endFrame() {
	v.line = 0
	if v.vdp1FrameChange() && v.onSwap != nil {
		v.onSwap()
	}
	v.vblank = false
	if v.sink != nil {
		v.sink.VBlankOut()
	}
	v.beginFrame()
}

// hcount returns the horizontal counter: bits 9-1 hold the dot in normal
// resolution, bits 9-0 in high resolution.
func (v *Video) hcount() uint16 {
	d := v.now - v.lineStart
	if d < 0 {
		d = 0
	}
	if fHRESO.get(v.vdp2.regs[:])&2 != 0 {
		return uint16(d/2) & 0x3FF
	}
	return uint16(d/cyclesPerDot<<1) & 0x3FF
}

// vcount returns the vertical counter. From the counter skip phase on the
// counter jumps so the last line reads 0x1FF.
func (v *Video) vcount() uint16 {
	vt := v.vtiming()
	c := v.line
	if c >= vt.skipStart() {
		c = 0x200 - (vt.lines(v.shortField()) - c)
	}
	if interlaceMode(v.vdp2.regs[:]) == InterlaceDouble {
		return uint16(c<<1|v.field) & 0x3FF
	}
	return uint16(c) & 0x1FF
}

// latchCounters captures HCNT/VCNT.
func (v *Video) latchCounters() {
	v.hcntLatch = v.hcount()
	v.vcntLatch = v.vcount()
}

// ExternalLatch is the external HV latch input. It only latches when
// EXLTEN is set.
func (v *Video) ExternalLatch() {
	if !fEXLTEN.on(v.vdp2.regs[:]) {
		return
	}
	v.latchCounters()
	v.exLatched = true
}

// tvstat assembles the TVSTAT register.
func (v *Video) tvstat() uint16 {
	var s uint16
	if v.exLatched {
		s |= tvstatEXLTFG
	}
	if v.vblank || !fDISP.on(v.vdp2.regs[:]) {
		s |= tvstatVBLANK
	}
	if v.hblank {
		s |= tvstatHBLANK
	}
	if v.field == 1 {
		s |= tvstatODD
	}
	if v.pal {
		s |= tvstatPAL
	}
	return s
}
