package vdp

import "github.com/user-none/emss/logger"

// Config selects the video standard and rendering options.
type Config struct {
	Region Region

	// Threaded renders scanlines on a separate goroutine that owns a
	// private copy of the video state.
	Threaded bool

	// VDP1OnRenderThread runs VDP1 command lists on the render goroutine.
	// Only meaningful when Threaded is set.
	VDP1OnRenderThread bool

	// Deinterlace renders both fields of a double-density interlaced frame
	// every field.
	Deinterlace bool

	// TransparentMesh blends mesh primitives at 50% instead of drawing a
	// checkerboard.
	TransparentMesh bool
}

// Frame is a completed frame. Pix is RGBA and is reused for the next frame,
// so a callback must copy what it keeps.
type Frame struct {
	Pix       []byte
	Stride    int
	Width     int
	Height    int
	Field     int
	Interlace InterlaceMode
}

// FrameFunc receives each completed frame. With threaded rendering it is
// called on the render goroutine.
type FrameFunc func(f *Frame)

// InterruptSink receives the interrupts the video chips raise.
type InterruptSink interface {
	HBlankIn()
	VBlankIn()
	VBlankOut()
	VDP1DrawEnd()
}

// Scheduler drives Update. Register is called once from New; the callback
// is invoked at each returned timestamp.
type Scheduler interface {
	Register(update func(now int64) int64)
}

// Window identifies one of the bus-visible areas.
type Window uint8

const (
	WindowVDP1VRAM Window = iota
	WindowVDP1FB
	WindowVDP1Regs
	WindowVDP2VRAM
	WindowVDP2CRAM
	WindowVDP2Regs
)

func (w Window) String() string {
	switch w {
	case WindowVDP1VRAM:
		return "VDP1 VRAM"
	case WindowVDP1FB:
		return "VDP1 framebuffer"
	case WindowVDP1Regs:
		return "VDP1 registers"
	case WindowVDP2VRAM:
		return "VDP2 VRAM"
	case WindowVDP2CRAM:
		return "VDP2 CRAM"
	case WindowVDP2Regs:
		return "VDP2 registers"
	}
	return "unknown"
}

// Physical address ranges of the windows.
const (
	addrVDP1VRAM = 0x5C00000
	addrVDP1FB   = 0x5C80000
	addrVDP1Regs = 0x5D00000
	addrVDP2VRAM = 0x5E00000
	addrVDP2CRAM = 0x5F00000
	addrVDP2Regs = 0x5F80000
	addrEnd      = 0x6000000
)

// MapAddress decodes a physical address into a window and an offset
// within it.
func MapAddress(phys uint32) (Window, uint32, bool) {
	a := phys & 0x7FFFFFF
	switch {
	case a < addrVDP1VRAM || a >= addrEnd:
		return 0, 0, false
	case a < addrVDP1FB:
		return WindowVDP1VRAM, a - addrVDP1VRAM, true
	case a < addrVDP1Regs:
		return WindowVDP1FB, a - addrVDP1FB, true
	case a < addrVDP2VRAM:
		return WindowVDP1Regs, a - addrVDP1Regs, true
	case a < addrVDP2CRAM:
		return WindowVDP2VRAM, a - addrVDP2VRAM, true
	case a < addrVDP2Regs:
		return WindowVDP2CRAM, a - addrVDP2CRAM, true
	}
	return WindowVDP2Regs, a - addrVDP2Regs, true
}

// chipSet is one complete copy of the video state plus a renderer bound
// to it.
type chipSet struct {
	vdp1 *VDP1
	vdp2 *vdp2State
	r    *renderer

	quiet bool // mirror copy; the bus side already logged
}

func (c *chipSet) write8(w Window, addr uint32, val uint8) {
	switch w {
	case WindowVDP1VRAM:
		c.vdp1.writeVRAM8(addr, val)
	case WindowVDP1FB:
		c.vdp1.writeFB8(addr, val)
	case WindowVDP1Regs:
		c.vdp1.writeReg16(addr, mergeByte(c.vdp1.peekReg16(addr), addr, val))
	case WindowVDP2VRAM:
		c.vdp2.writeVRAM8(addr, val)
	case WindowVDP2CRAM:
		c.r.cramWritten(c.vdp2.writeCRAM8(addr, val))
	case WindowVDP2Regs:
		i := (addr & vdp2RegMask) >> 1
		cur := uint16(0)
		if i < vdp2RegWords {
			cur = c.vdp2.regs[i]
		}
		c.writeVDP2Reg(addr, mergeByte(cur, addr, val))
	}
}

func (c *chipSet) write16(w Window, addr uint32, val uint16) {
	switch w {
	case WindowVDP1VRAM:
		c.vdp1.writeVRAM16(addr, val)
	case WindowVDP1FB:
		c.vdp1.writeFB16(addr, val)
	case WindowVDP1Regs:
		c.vdp1.writeReg16(addr, val)
	case WindowVDP2VRAM:
		c.vdp2.writeVRAM16(addr, val)
	case WindowVDP2CRAM:
		c.r.cramWritten(c.vdp2.writeCRAM16(addr, val))
	case WindowVDP2Regs:
		c.writeVDP2Reg(addr, val)
	}
}

func (c *chipSet) writeVDP2Reg(addr uint32, val uint16) {
	if !c.vdp2.writeReg(addr, val) {
		if !c.quiet {
			logger.Logf("vdp2", "write %04x to register %03x ignored", val, addr&vdp2RegMask)
		}
		return
	}
	c.r.regWritten(addr)
}

// poke16 stores a value without triggering register side effects.
func (c *chipSet) poke16(w Window, addr uint32, val uint16) {
	switch w {
	case WindowVDP1Regs:
		off := addr & 0x1E
		if off < vdp1RegWords*2 {
			c.vdp1.regs[off>>1] = val & vdp1WriteMask[off>>1]
		}
	case WindowVDP2Regs:
		i := (addr & vdp2RegMask) >> 1
		if i < vdp2RegWords {
			c.vdp2.regs[i] = val
			c.r.regWritten(addr)
		}
	default:
		c.write16(w, addr, val)
	}
}

func (c *chipSet) poke8(w Window, addr uint32, val uint8) {
	switch w {
	case WindowVDP1Regs:
		c.poke16(w, addr, mergeByte(c.vdp1.peekReg16(addr), addr, val))
	case WindowVDP2Regs:
		i := (addr & vdp2RegMask) >> 1
		if i < vdp2RegWords {
			c.poke16(w, addr, mergeByte(c.vdp2.regs[i], addr, val))
		}
	default:
		c.write8(w, addr, val)
	}
}

// apply replays a mirrored bus access.
func (c *chipSet) apply(ev *renderEvent) {
	switch {
	case ev.kind == evPoke && ev.size == 1:
		c.poke8(ev.win, ev.addr, uint8(ev.val))
	case ev.kind == evPoke:
		c.poke16(ev.win, ev.addr, uint16(ev.val))
	case ev.size == 1:
		c.write8(ev.win, ev.addr, uint8(ev.val))
	default:
		c.write16(ev.win, ev.addr, uint16(ev.val))
	}
}

// Video is the complete video subsystem: VDP1, VDP2 and the timing that
// ties them together. All methods must be called from one goroutine.
type Video struct {
	chipSet

	cfg     Config
	pal     bool
	sink    InterruptSink
	onFrame FrameFunc
	onSwap  func()

	timingState

	rt *renderThread
}

// timingState is the phase machine position and counter state.
type timingState struct {
	hPhase    hPhase
	vPhase    vPhase
	line      int
	field     int
	now       int64
	nextEvent int64
	lineStart int64
	vblank    bool
	hblank    bool

	hcntLatch uint16
	vcntLatch uint16
	exLatched bool
}

// New creates the video subsystem in its power-on state. sched and sink
// may be nil.
func New(cfg Config, sched Scheduler, sink InterruptSink) *Video {
	v := &Video{
		cfg:  cfg,
		pal:  cfg.Region == RegionPAL,
		sink: sink,
	}
	v.vdp1 = NewVDP1()
	v.vdp1.transparentMesh = cfg.TransparentMesh
	v.vdp1.onDrawEnd = v.drawEnded
	v.vdp2 = &vdp2State{}
	v.r = newRenderer(v.vdp2, v.vdp1, v.pal)
	v.r.deinterlace = cfg.Deinterlace
	v.Reset(true)

	if sched != nil {
		sched.Register(v.Update)
	}
	if cfg.Threaded {
		v.startRenderThread()
	}
	return v
}

// Reset returns both chips to their reset state. A soft reset keeps the
// memories.
func (v *Video) Reset(hard bool) {
	v.vdp1.reset(hard)
	if hard {
		*v.vdp2 = vdp2State{}
	} else {
		v.vdp2.regs = [vdp2RegWords]uint16{}
	}
	v.r.colors.rebuild(v.vdp2)
	v.r.dirty = true
	v.r.rot = rotationState{}

	v.timingState = timingState{
		hPhase:    hLeftBorder,
		vPhase:    vActive,
		now:       v.now,
		nextEvent: v.now,
		lineStart: v.now,
		hblank:    true,
	}
	v.r.beginFrame(0)

	if v.rt != nil {
		v.rt.resync(&v.chipSet)
	}
}

// Close stops the render goroutines, if any.
func (v *Video) Close() error {
	return v.stopRenderThread()
}

// Barrier blocks until the render goroutine has applied every queued
// event, including pending frame callbacks. Without threaded rendering it
// returns at once.
func (v *Video) Barrier() {
	if v.rt != nil {
		v.rt.barrier(nil)
	}
}

// Config returns the configuration with runtime toggles applied.
func (v *Video) Config() Config {
	return v.cfg
}

// SetFrameFunc sets the frame-complete callback.
func (v *Video) SetFrameFunc(fn FrameFunc) {
	v.onFrame = fn
	if v.rt != nil {
		v.rt.barrier(func(*chipSet) {
			v.rt.onFrame = fn
		})
	}
}

// SetSwapFunc sets the callback run after each VDP1 framebuffer swap.
func (v *Video) SetSwapFunc(fn func()) {
	v.onSwap = fn
}

// SetThreaded starts or stops the render goroutine.
func (v *Video) SetThreaded(on bool) error {
	v.cfg.Threaded = on
	if on {
		if v.rt == nil {
			v.startRenderThread()
		}
		return nil
	}
	return v.stopRenderThread()
}

// SetVDP1OnRenderThread moves VDP1 command execution between the bus side
// and the render goroutine.
func (v *Video) SetVDP1OnRenderThread(on bool) {
	v.cfg.VDP1OnRenderThread = on
	if v.rt != nil && v.vdp1.remote != on {
		v.rt.moveVDP1(v.vdp1, on)
	}
}

// SetDeinterlace toggles rendering both fields in double-density interlace.
func (v *Video) SetDeinterlace(on bool) {
	v.cfg.Deinterlace = on
	v.r.deinterlace = on
	if v.rt != nil {
		v.rt.barrier(func(s *chipSet) {
			s.r.deinterlace = on
		})
	}
}

// SetTransparentMesh toggles 50% blending of mesh primitives.
func (v *Video) SetTransparentMesh(on bool) {
	v.cfg.TransparentMesh = on
	v.vdp1.transparentMesh = on
	if v.rt != nil {
		v.rt.barrier(func(s *chipSet) {
			s.vdp1.transparentMesh = on
		})
	}
}

func (v *Video) startRenderThread() {
	v.rt = startRenderThread(&v.chipSet, v.cfg.VDP1OnRenderThread, v.onFrame)
}

func (v *Video) stopRenderThread() error {
	if v.rt == nil {
		return nil
	}
	err := v.rt.stop(&v.chipSet)
	v.rt = nil
	v.r.dirty = true
	return err
}

// drawEnded reports a finished VDP1 command list.
func (v *Video) drawEnded() {
	if v.sink != nil {
		v.sink.VDP1DrawEnd()
	}
}

// pollDrawEnd collects draw-end reports from a remote VDP1.
func (v *Video) pollDrawEnd() {
	if v.rt == nil {
		return
	}
	for {
		select {
		case <-v.rt.status:
			v.vdp1.edsr |= edsrCEF
			v.drawEnded()
		default:
			return
		}
	}
}

func (v *Video) runVDP1(cycles int64) {
	if v.rt != nil && v.vdp1.remote {
		v.rt.send(renderEvent{kind: evVDP1Run, cycles: cycles})
		return
	}
	v.vdp1.run(cycles)
}

func (v *Video) vdp1VBlankIn() {
	erased := v.vdp1.vblankIn()
	if v.rt != nil {
		v.rt.vblankIn(v.vdp1, erased)
	}
}

func (v *Video) vdp1FrameChange() bool {
	swapped := v.vdp1.frameChange()
	if v.rt != nil {
		v.rt.frameChange(v.vdp1, swapped)
	}
	return swapped
}

func (v *Video) drawLine(line int) {
	if v.rt != nil {
		v.rt.send(renderEvent{kind: evDrawLine, val: uint32(line)})
		return
	}
	v.r.drawLine(line)
}

func (v *Video) beginFrame() {
	v.r.beginFrame(v.field)
	if v.rt != nil {
		v.rt.send(renderEvent{kind: evBeginFrame, val: uint32(v.field)})
	}
}

func (v *Video) emitFrame() {
	if v.rt != nil {
		v.rt.send(renderEvent{kind: evFrame})
		return
	}
	if v.onFrame != nil {
		v.onFrame(v.r.frameView())
	}
}

func (v *Video) mirror(kind eventKind, w Window, addr uint32, size uint8, val uint32) {
	if v.rt != nil {
		v.rt.send(renderEvent{kind: kind, win: w, addr: addr, size: size, val: val})
	}
}

// Bus access.

func (v *Video) Read8(w Window, addr uint32) uint8 {
	return wordByte(v.read16(w, addr, true), addr)
}

func (v *Video) Read16(w Window, addr uint32) uint16 {
	return v.read16(w, addr, true)
}

func (v *Video) Read32(w Window, addr uint32) uint32 {
	return uint32(v.read16(w, addr, true))<<16 | uint32(v.read16(w, addr+2, true))
}

// Peek variants read without side effects and return write-only register
// latches.
func (v *Video) Peek8(w Window, addr uint32) uint8 {
	return wordByte(v.read16(w, addr, false), addr)
}

func (v *Video) Peek16(w Window, addr uint32) uint16 {
	return v.read16(w, addr, false)
}

func (v *Video) Peek32(w Window, addr uint32) uint32 {
	return uint32(v.read16(w, addr, false))<<16 | uint32(v.read16(w, addr+2, false))
}

// read16 serves VDP1 framebuffer and status reads from the render goroutine
// when VDP1 draws there, since the bus side copy never executes commands.
func (v *Video) read16(w Window, addr uint32, live bool) uint16 {
	remote := v.rt != nil && v.vdp1.remote
	switch w {
	case WindowVDP1VRAM:
		return v.vdp1.readVRAM16(addr)
	case WindowVDP1FB:
		if remote {
			return v.rt.readVDP1(func(s *VDP1) uint16 { return s.readFB16(addr) })
		}
		return v.vdp1.readFB16(addr)
	case WindowVDP1Regs:
		if !live {
			return v.vdp1.peekReg16(addr)
		}
		if remote {
			return v.rt.readVDP1(func(s *VDP1) uint16 { return s.readReg16(addr) })
		}
		return v.vdp1.readReg16(addr)
	case WindowVDP2VRAM:
		return v.vdp2.vram16(addr)
	case WindowVDP2CRAM:
		return v.vdp2.cram16(addr)
	case WindowVDP2Regs:
		return v.readVDP2Reg(addr, live)
	}
	return 0
}

func (v *Video) readVDP2Reg(addr uint32, live bool) uint16 {
	off := addr & vdp2RegMask
	switch off {
	case regTVSTAT:
		s := v.tvstat()
		if live {
			if !fEXLTEN.on(v.vdp2.regs[:]) {
				v.latchCounters()
			}
			v.exLatched = false
		}
		return s
	case regHCNT:
		return v.hcntLatch
	case regVCNT:
		return v.vcntLatch
	}
	i := off >> 1
	if i >= vdp2RegWords {
		if live {
			logger.Logf("vdp2", "read from register %03x ignored", off)
		}
		return 0
	}
	return v.vdp2.regs[i]
}

func (v *Video) Write8(w Window, addr uint32, val uint8) {
	v.chipSet.write8(w, addr, val)
	v.mirror(evWrite, w, addr, 1, uint32(val))
}

func (v *Video) Write16(w Window, addr uint32, val uint16) {
	v.chipSet.write16(w, addr, val)
	v.mirror(evWrite, w, addr, 2, uint32(val))
}

func (v *Video) Write32(w Window, addr uint32, val uint32) {
	v.Write16(w, addr, uint16(val>>16))
	v.Write16(w, addr+2, uint16(val))
}

// Poke variants write without register side effects.
func (v *Video) Poke8(w Window, addr uint32, val uint8) {
	v.chipSet.poke8(w, addr, val)
	v.mirror(evPoke, w, addr, 1, uint32(val))
}

func (v *Video) Poke16(w Window, addr uint32, val uint16) {
	v.chipSet.poke16(w, addr, val)
	v.mirror(evPoke, w, addr, 2, uint32(val))
}

func (v *Video) Poke32(w Window, addr uint32, val uint32) {
	v.Poke16(w, addr, uint16(val>>16))
	v.Poke16(w, addr+2, uint16(val))
}

// Debug accessors.

// Resolution returns the output frame size for the current display mode.
func (v *Video) Resolution() (width, height int) {
	v.r.refresh()
	return v.r.geom.width, v.r.geom.outputHeight()
}

func (v *Video) InterlaceMode() InterlaceMode {
	return interlaceMode(v.vdp2.regs[:])
}

// Field returns the current field parity.
func (v *Video) Field() int {
	return v.field
}

// Line returns the current line and vertical phase name.
func (v *Video) Line() (int, string) {
	return v.line, v.vPhase.String()
}

// VDP1Registers returns the latched VDP1 registers TVMR through MODR.
func (v *Video) VDP1Registers() []uint16 {
	regs := make([]uint16, 0, regMODR/2+1)
	for off := uint32(0); off <= regMODR; off += 2 {
		regs = append(regs, v.vdp1.peekReg16(off))
	}
	return regs
}

// VDP2Registers returns a copy of the VDP2 register file.
func (v *Video) VDP2Registers() []uint16 {
	regs := make([]uint16, vdp2RegWords)
	copy(regs, v.vdp2.regs[:])
	return regs
}

// ScrollState is the scroll position of a normal background.
type ScrollState struct {
	Enabled bool
	X, Y    uint32 // 11.8 fixed point
	ZoomX   uint32 // 3.8 fixed point
	ZoomY   uint32
}

// LayerScroll returns the scroll state of NBG n.
func (v *Video) LayerScroll(n int) ScrollState {
	if n < 0 || n > 3 {
		return ScrollState{}
	}
	v.r.refresh()
	p := &v.r.nbg[n]
	return ScrollState{
		Enabled: p.enabled,
		X:       p.scrollX,
		Y:       p.scrollY,
		ZoomX:   p.zoomX,
		ZoomY:   p.zoomY,
	}
}
