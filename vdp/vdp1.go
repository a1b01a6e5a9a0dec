package vdp

import "github.com/user-none/emss/logger"

const (
	vdp1VRAMSize  = 0x80000
	vdp1VRAMWords = vdp1VRAMSize / 2
	vdp1VRAMMask  = vdp1VRAMSize - 1

	vdp1FBSize    = 0x40000
	vdp1FBWords   = vdp1FBSize / 2
	vdp1FBMask    = vdp1FBSize - 1
	vdp1MeshBytes = vdp1FBWords / 8

	vdp1FBStride = 512 // words per framebuffer row in 16bpp modes
)

// vdp1State is the complete VDP1 hardware state. It holds no pointers so a
// plain assignment produces an independent copy.
type vdp1State struct {
	vram [vdp1VRAMWords]uint16
	fb   [2][vdp1FBWords]uint16
	mesh [2][vdp1MeshBytes]uint8 // transparent mesh marks, one bit per pixel

	regs [vdp1RegWords]uint16
	edsr uint16
	lopr uint16
	copr uint16

	drawFB       uint8 // framebuffer being drawn; the other is displayed
	pendingSwap  bool  // manual frame change requested (FCM=1, FCT=1)
	pendingErase bool  // manual erase requested (FCM=1, FCT=0)

	drawing  bool
	cmdAddr  uint32 // byte address of the next command
	retAddr  uint32
	retValid bool
	cmdCount uint32
	budget   int64

	sysClipX, sysClipY int32
	userClip           [4]int32 // x0, y0, x1, y1
	localX, localY     int32
}

// VDP1 is the sprite/polygon drawing processor.
type VDP1 struct {
	vdp1State

	// remote marks a bus-side copy whose drawing runs on the render
	// goroutine. Memory and register writes still land here so reads stay
	// coherent, but commands are never executed.
	remote bool

	transparentMesh bool
	meshStage       []meshPixel
	meshSeen        []uint8 // staged indices, one bit per pixel

	onDrawEnd func()
}

// NewVDP1 returns a VDP1 in its power-on state.
func NewVDP1() *VDP1 {
	v := &VDP1{}
	v.reset(true)
	return v
}

func (v *VDP1) reset(hard bool) {
	if hard {
		v.vdp1State = vdp1State{}
	} else {
		vram, fb := v.vram, v.fb
		v.vdp1State = vdp1State{vram: vram, fb: fb}
	}
	v.edsr = edsrCEF | edsrBEF
	v.sysClipX = 0x3FF
	v.sysClipY = 0x1FF
	v.meshStage = v.meshStage[:0]
	clear(v.meshSeen)
}

// clone returns an independent copy for use on another goroutine. Hooks
// are not copied.
func (v *VDP1) clone() *VDP1 {
	c := &VDP1{transparentMesh: v.transparentMesh}
	c.vdp1State = v.vdp1State
	return c
}

// VRAM access.

func (v *VDP1) readVRAM8(addr uint32) uint8 {
	return wordByte(v.vram[(addr&vdp1VRAMMask)>>1], addr)
}

func (v *VDP1) readVRAM16(addr uint32) uint16 {
	return v.vram[(addr&vdp1VRAMMask)>>1]
}

func (v *VDP1) writeVRAM8(addr uint32, val uint8) {
	i := (addr & vdp1VRAMMask) >> 1
	v.vram[i] = mergeByte(v.vram[i], addr, val)
}

func (v *VDP1) writeVRAM16(addr uint32, val uint16) {
	v.vram[(addr&vdp1VRAMMask)>>1] = val
}

// Framebuffer access from the bus always targets the draw framebuffer.

func (v *VDP1) readFB16(addr uint32) uint16 {
	return v.fb[v.drawFB][(addr&vdp1FBMask)>>1]
}

func (v *VDP1) writeFB8(addr uint32, val uint8) {
	fb := &v.fb[v.drawFB]
	i := (addr & vdp1FBMask) >> 1
	fb[i] = mergeByte(fb[i], addr, val)
}

func (v *VDP1) writeFB16(addr uint32, val uint16) {
	v.fb[v.drawFB][(addr&vdp1FBMask)>>1] = val
}

// readReg16 returns a register value as seen by the CPU.
func (v *VDP1) readReg16(off uint32) uint16 {
	switch off & 0x1E {
	case regEDSR:
		return v.edsr
	case regLOPR:
		return v.lopr
	case regCOPR:
		return v.copr
	case regMODR:
		return v.modr()
	}
	return 0
}

// peekReg16 returns the latched value of any register, including the
// write-only ones.
func (v *VDP1) peekReg16(off uint32) uint16 {
	off &= 0x1E
	if off < vdp1RegWords*2 {
		return v.regs[off>>1]
	}
	return v.readReg16(off)
}

// modr mirrors the mode settings with the chip version in the top nibble.
func (v *VDP1) modr() uint16 {
	r := v.regs[:]
	m := uint16(vdp1Version) << 12
	m |= fPTM.get(r) >> 1 << 8
	m |= fEOS.get(r) << 7
	m |= fDIE.get(r) << 6
	m |= fDIL.get(r) << 5
	m |= fFCM.get(r) << 4
	m |= fVBE.get(r) << 3
	m |= fTVM.get(r)
	return m
}

// writeReg16 latches a register write and performs its side effects.
func (v *VDP1) writeReg16(off uint32, val uint16) {
	off &= 0x1E
	switch {
	case off == regENDR:
		if v.drawing {
			logger.Logf("vdp1", "draw forced to stop at %05x", v.cmdAddr)
		}
		v.drawing = false
		v.budget = 0
		return
	case off >= vdp1RegWords*2:
		logger.Logf("vdp1", "write to read-only register %02x ignored", off)
		return
	}
	v.regs[off>>1] = val & vdp1WriteMask[off>>1]

	switch off {
	case regPTMR:
		if fPTM.get(v.regs[:]) == ptmNow {
			v.startDraw()
		}
	case regFBCR:
		r := v.regs[:]
		if fFCM.on(r) {
			if fFCT.on(r) {
				v.pendingSwap = true
			} else {
				v.pendingErase = true
			}
		}
	}
}

// startDraw begins a command list pass at address 0. The end flag of the
// pass before moves into BEF.
func (v *VDP1) startDraw() {
	v.edsr = (v.edsr & edsrCEF) >> 1
	v.cmdAddr = 0
	v.retValid = false
	v.cmdCount = 0
	v.budget = 0
	if v.remote {
		return
	}
	v.drawing = true
}

// finishDraw ends the pass as if the end bit had been fetched.
func (v *VDP1) finishDraw() {
	v.drawing = false
	v.budget = 0
	v.edsr |= edsrCEF
	if v.onDrawEnd != nil {
		v.onDrawEnd()
	}
}

// run advances drawing by cycles. Commands execute whole; a command that
// overruns its budget is charged against the next call.
func (v *VDP1) run(cycles int64) {
	if !v.drawing || v.remote {
		return
	}
	v.budget += cycles
	for v.drawing && v.budget > 0 {
		v.budget -= int64(v.step())
	}
}

// runToEnd executes the whole command list regardless of budget.
func (v *VDP1) runToEnd() {
	for v.drawing && !v.remote {
		v.step()
	}
}

// fbMode describes the framebuffer layout selected by TVMR.
type fbMode struct {
	bpp8   bool
	width  int // pixels per row
	height int
}

func (v *VDP1) fbMode() fbMode {
	switch fTVM.get(v.regs[:]) {
	case 1:
		return fbMode{bpp8: true, width: 1024, height: 256}
	case 3:
		return fbMode{bpp8: true, width: 512, height: 512}
	default:
		return fbMode{width: 512, height: 256}
	}
}

// rotationFB reports whether the framebuffer is sampled through rotation
// parameter A by VDP2.
func (v *VDP1) rotationFB() bool {
	return fTVM.get(v.regs[:])&2 != 0
}

// eraseDisplay fills the erase rectangle of the display framebuffer with
// EWDR. X coordinates are in units of 8 (16bpp) or 16 (8bpp) pixels.
func (v *VDP1) eraseDisplay() {
	r := v.regs[:]
	disp := v.drawFB ^ 1
	fb := &v.fb[disp]
	val := r[regEWDR>>1]
	ewlr := r[regEWLR>>1]
	ewrr := r[regEWRR>>1]

	x1 := int(ewlr>>9&0x3F) * 8
	y1 := int(ewlr & 0x1FF)
	x3 := int(ewrr>>9&0x7F) * 8
	y3 := int(ewrr & 0x1FF)

	m := v.fbMode()
	rowWords := vdp1FBStride
	rows := m.height
	if m.bpp8 {
		rowWords = m.width / 2
	}
	if x3 > rowWords {
		x3 = rowWords
	}
	if y3 >= rows {
		y3 = rows - 1
	}
	for y := y1; y <= y3; y++ {
		row := y * rowWords
		for x := x1; x < x3; x++ {
			i := (row + x) & (vdp1FBWords - 1)
			fb[i] = val
			v.mesh[disp][i>>3] = 0
		}
	}
}

// swapBuffers exchanges the draw and display framebuffers.
func (v *VDP1) swapBuffers() {
	v.drawFB ^= 1
}

// vblankIn applies the frame-change erase policy at the start of vertical
// blanking. Returns true when the display framebuffer was erased.
func (v *VDP1) vblankIn() bool {
	r := v.regs[:]
	erase := !fFCM.on(r) || v.pendingErase || (fVBE.on(r) && v.pendingSwap)
	v.pendingErase = false
	if erase {
		v.eraseDisplay()
	}
	return erase
}

// frameChange applies the swap policy at the end of the frame. Returns
// true when the framebuffers were swapped.
func (v *VDP1) frameChange() bool {
	r := v.regs[:]
	swap := !fFCM.on(r) || v.pendingSwap
	if swap {
		v.pendingSwap = false
		v.swapBuffers()
	}
	if swap && fPTM.get(r) == ptmOnSwap {
		v.startDraw()
	}
	return swap
}

// copyDisplay takes what VDP2 reads from src: the framebuffer selection,
// the display half and its mesh marks.
func (v *VDP1) copyDisplay(src *VDP1) {
	v.regs = src.regs
	v.drawFB = src.drawFB
	d := src.drawFB ^ 1
	v.fb[d] = src.fb[d]
	v.mesh[d] = src.mesh[d]
}

// displayFB returns the framebuffer VDP2 reads from.
func (v *VDP1) displayFB() *[vdp1FBWords]uint16 {
	return &v.fb[v.drawFB^1]
}

func (v *VDP1) displayMesh() *[vdp1MeshBytes]uint8 {
	return &v.mesh[v.drawFB^1]
}
