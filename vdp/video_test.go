package vdp

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/go-test/deep"
)

// testSink counts the interrupts raised by the video subsystem.
type testSink struct {
	hblank    int
	vblankIn  int
	vblankOut int
	drawEnd   int
}

func (s *testSink) HBlankIn()    { s.hblank++ }
func (s *testSink) VBlankIn()    { s.vblankIn++ }
func (s *testSink) VBlankOut()   { s.vblankOut++ }
func (s *testSink) VDP1DrawEnd() { s.drawEnd++ }

// testScheduler records the callback registered by New.
type testScheduler struct {
	update func(now int64) int64
}

func (s *testScheduler) Register(update func(now int64) int64) {
	s.update = update
}

// runFrame steps the timing one phase at a time until the line counter
// wraps back to 0, and returns the timestamp of the next pending phase.
func runFrame(v *Video, now int64) int64 {
	left := false
	for {
		now = v.Update(now)
		if v.line != 0 {
			left = true
		} else if left {
			return now
		}
	}
}

// runToLine steps the timing until the line counter reads line.
func runToLine(v *Video, now int64, line int) int64 {
	for v.line != line {
		now = v.Update(now)
	}
	return now
}

// frameRecorder keeps a copy of every frame it receives.
type frameRecorder struct {
	frames [][]byte
}

func (fr *frameRecorder) record(f *Frame) {
	out := make([]byte, 0, f.Width*f.Height*4)
	for y := 0; y < f.Height; y++ {
		out = append(out, f.Pix[y*f.Stride:y*f.Stride+f.Width*4]...)
	}
	fr.frames = append(fr.frames, out)
}

func TestMapAddress(t *testing.T) {
	tests := []struct {
		phys uint32
		win  Window
		off  uint32
		ok   bool
	}{
		{0x05C00010, WindowVDP1VRAM, 0x10, true},
		{0x05C80002, WindowVDP1FB, 0x2, true},
		{0x05D00010, WindowVDP1Regs, 0x10, true},
		{0x25E00010, WindowVDP2VRAM, 0x10, true},
		{0x05F00FFE, WindowVDP2CRAM, 0xFFE, true},
		{0x05F80004, WindowVDP2Regs, 0x4, true},
		{0x05BFFFFE, 0, 0, false},
		{0x06000000, 0, 0, false},
	}
	for _, tc := range tests {
		win, off, ok := MapAddress(tc.phys)
		if win != tc.win || off != tc.off || ok != tc.ok {
			t.Errorf("0x%08X: expected (%v, 0x%X, %v), got (%v, 0x%X, %v)",
				tc.phys, tc.win, tc.off, tc.ok, win, off, ok)
		}
	}
}

func TestNew_RegistersWithScheduler(t *testing.T) {
	sched := &testScheduler{}
	v := New(Config{}, sched, nil)
	if sched.update == nil {
		t.Fatal("expected Update registered")
	}
	next := sched.update(0)
	if next != int64(hDots[0][hActive]*cyclesPerDot) {
		t.Errorf("expected next event at %d, got %d", hDots[0][hActive]*cyclesPerDot, next)
	}
	if v.hPhase != hActive {
		t.Errorf("expected active phase, got %d", v.hPhase)
	}
}

func TestVideo_LinesPerFrame(t *testing.T) {
	tests := []struct {
		name   string
		region Region
		tvmd   uint16
		lines  int
		height int
	}{
		{"NTSC 224", RegionNTSC, 0x8000, 263, 224},
		{"NTSC 240", RegionNTSC, 0x8010, 263, 240},
		{"NTSC 256 falls back to 240", RegionNTSC, 0x8020, 263, 240},
		{"PAL 224", RegionPAL, 0x8000, 313, 224},
		{"PAL 240", RegionPAL, 0x8010, 313, 240},
		{"PAL 256", RegionPAL, 0x8020, 313, 256},
		{"PAL reserved falls back to 256", RegionPAL, 0x8030, 313, 256},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sink := &testSink{}
			v := New(Config{Region: tc.region}, nil, sink)
			reg(v, regTVMD, tc.tvmd)

			runFrame(v, 0)
			if sink.hblank != tc.lines {
				t.Errorf("expected %d lines, got %d", tc.lines, sink.hblank)
			}
			if sink.vblankIn != 1 || sink.vblankOut != 1 {
				t.Errorf("expected one VBlank in/out, got %d/%d", sink.vblankIn, sink.vblankOut)
			}
			if _, h := v.Resolution(); h != tc.height {
				t.Errorf("expected height %d, got %d", tc.height, h)
			}
		})
	}
}

func TestVideo_InterlacedFieldLengths(t *testing.T) {
	sink := &testSink{}
	v := New(Config{}, nil, sink)
	reg(v, regTVMD, 0x80C0)

	now := runFrame(v, 0)
	first := sink.hblank
	if v.Field() != 1 {
		t.Errorf("expected field 1 after the first frame, got %d", v.Field())
	}
	runFrame(v, now)
	second := sink.hblank - first

	if first+second != 525 {
		t.Errorf("expected 525 lines over two fields, got %d+%d", first, second)
	}
	if first == second {
		t.Errorf("expected fields of different length, both %d", first)
	}
	if w, h := v.Resolution(); w != 320 || h != 448 {
		t.Errorf("expected 320x448, got %dx%d", w, h)
	}
	if v.InterlaceMode() != InterlaceDouble {
		t.Errorf("expected double interlace, got %v", v.InterlaceMode())
	}
}

func TestVideo_VerticalCounter(t *testing.T) {
	v := New(Config{}, nil, nil)
	reg(v, regTVMD, 0x8000)

	tests := []struct {
		line int
		want uint16
	}{
		{0, 0},
		{223, 223},
		{244, 244},
		{245, 0x1EE},
		{262, 0x1FF},
	}
	now := int64(0)
	for _, tc := range tests {
		now = runToLine(v, now, tc.line)
		if got := v.vcount(); got != tc.want {
			t.Errorf("line %d: expected VCNT 0x%03X, got 0x%03X", tc.line, tc.want, got)
		}
	}
	if _, phase := v.Line(); phase != "last line" {
		t.Errorf("expected last line phase, got %q", phase)
	}
}

func TestVideo_TVSTAT(t *testing.T) {
	v := New(Config{Region: RegionPAL}, nil, nil)
	if s := v.Read16(WindowVDP2Regs, regTVSTAT); s&tvstatVBLANK == 0 {
		t.Error("expected VBLANK while the display is off")
	}
	if s := v.Read16(WindowVDP2Regs, regTVSTAT); s&tvstatPAL == 0 {
		t.Error("expected PAL flag")
	}

	reg(v, regTVMD, 0x8000)
	now := v.Update(0)
	s := v.Read16(WindowVDP2Regs, regTVSTAT)
	if s&(tvstatVBLANK|tvstatHBLANK) != 0 {
		t.Errorf("expected active display, got TVSTAT 0x%04X", s)
	}

	now = v.Update(now)
	if s := v.Read16(WindowVDP2Regs, regTVSTAT); s&tvstatHBLANK == 0 {
		t.Errorf("expected HBLANK at the right border, got TVSTAT 0x%04X", s)
	}

	for !v.vblank {
		now = v.Update(now)
	}
	if s := v.Read16(WindowVDP2Regs, regTVSTAT); s&tvstatVBLANK == 0 {
		t.Errorf("expected VBLANK, got TVSTAT 0x%04X", s)
	}
}

func TestVideo_CounterLatchOnStatusRead(t *testing.T) {
	v := New(Config{}, nil, nil)
	reg(v, regTVMD, 0x8000)
	v.Update(0)
	v.Sync(40)

	v.ExternalLatch()
	s := v.Read16(WindowVDP2Regs, regTVSTAT)
	if s&tvstatEXLTFG != 0 {
		t.Error("expected external latch ignored without EXLTEN")
	}
	if got := v.Read16(WindowVDP2Regs, regHCNT); got != 20 {
		t.Errorf("expected HCNT 20, got %d", got)
	}
	if got := v.Read16(WindowVDP2Regs, regVCNT); got != 0 {
		t.Errorf("expected VCNT 0, got %d", got)
	}
}

func TestVideo_ExternalLatch(t *testing.T) {
	v := New(Config{}, nil, nil)
	reg(v, regTVMD, 0x8000)
	reg(v, regEXTEN, 0x0200)
	v.Update(0)
	v.Sync(80)

	v.ExternalLatch()
	if s := v.Read16(WindowVDP2Regs, regTVSTAT); s&tvstatEXLTFG == 0 {
		t.Error("expected EXLTFG after an external latch")
	}
	if s := v.Read16(WindowVDP2Regs, regTVSTAT); s&tvstatEXLTFG != 0 {
		t.Error("expected EXLTFG cleared by the status read")
	}

	// Status reads do not latch while EXLTEN is set.
	v.Sync(200)
	v.Read16(WindowVDP2Regs, regTVSTAT)
	if got := v.Read16(WindowVDP2Regs, regHCNT); got != 40 {
		t.Errorf("expected HCNT 40 from the external latch, got %d", got)
	}
}

func TestVideo_PeekDoesNotLatch(t *testing.T) {
	v := New(Config{}, nil, nil)
	reg(v, regTVMD, 0x8000)
	reg(v, regEXTEN, 0x0200)
	v.Update(0)
	v.ExternalLatch()

	if s := v.Peek16(WindowVDP2Regs, regTVSTAT); s&tvstatEXLTFG == 0 {
		t.Fatal("expected EXLTFG")
	}
	if s := v.Peek16(WindowVDP2Regs, regTVSTAT); s&tvstatEXLTFG == 0 {
		t.Error("expected peek to leave EXLTFG set")
	}
}

func TestVideo_VDP1Registers(t *testing.T) {
	v := New(Config{}, nil, nil)
	v.Write16(WindowVDP1Regs, regEWDR, 0xABCD)
	if got := v.Read16(WindowVDP1Regs, regEWDR); got != 0 {
		t.Errorf("expected write-only register to read 0, got 0x%04X", got)
	}
	if got := v.Peek16(WindowVDP1Regs, regEWDR); got != 0xABCD {
		t.Errorf("expected peek 0xABCD, got 0x%04X", got)
	}
	regs := v.VDP1Registers()
	if len(regs) != regMODR/2+1 {
		t.Fatalf("expected %d registers, got %d", regMODR/2+1, len(regs))
	}
	if regs[regEWDR/2] != 0xABCD {
		t.Errorf("expected EWDR 0xABCD, got 0x%04X", regs[regEWDR/2])
	}
}

func TestVideo_ByteAccess(t *testing.T) {
	v := New(Config{}, nil, nil)
	v.Write8(WindowVDP2VRAM, 0x100, 0x12)
	v.Write8(WindowVDP2VRAM, 0x101, 0x34)
	if got := v.Read16(WindowVDP2VRAM, 0x100); got != 0x1234 {
		t.Errorf("expected 0x1234, got 0x%04X", got)
	}
	if got := v.Read8(WindowVDP2VRAM, 0x101); got != 0x34 {
		t.Errorf("expected 0x34, got 0x%02X", got)
	}
	v.Write32(WindowVDP1VRAM, 0x200, 0xDEADBEEF)
	if got := v.Read32(WindowVDP1VRAM, 0x200); got != 0xDEADBEEF {
		t.Errorf("expected 0xDEADBEEF, got 0x%08X", got)
	}
	v.Write8(WindowVDP2Regs, regPRINA, 0x05)
	if got := v.Peek16(WindowVDP2Regs, regPRINA); got != 0x0500 {
		t.Errorf("expected PRINA 0x0500, got 0x%04X", got)
	}
}

func TestVideo_PokeSkipsSideEffects(t *testing.T) {
	sink := &testSink{}
	v := New(Config{}, nil, sink)
	endCommand(v.vdp1, 0)
	v.Poke16(WindowVDP1Regs, regPTMR, ptmNow)
	if v.vdp1.drawing {
		t.Error("expected poke not to start a draw")
	}
	v.Write16(WindowVDP1Regs, regPTMR, ptmNow)
	if !v.vdp1.drawing {
		t.Error("expected write to start a draw")
	}
}

// writeLineList stores a one line command list through the bus: a line
// at row 10 from x 10 to 50, preceded by a local coordinate command.
func writeLineList(v *Video) {
	cmds := [][]uint16{
		{opLocalCoord},
		{opLine, 0, 0, 0x7FFF, 0, 0, coord(10), coord(10), coord(50), coord(10)},
		{cmdEnd},
	}
	for i, c := range cmds {
		for j, w := range c {
			v.Write16(WindowVDP1VRAM, uint32(i*0x20+j*2), w)
		}
	}
}

func TestVideo_VDP1DrawAndSwap(t *testing.T) {
	sink := &testSink{}
	v := New(Config{}, nil, sink)
	reg(v, regTVMD, 0x8000)
	writeLineList(v)
	v.Write16(WindowVDP1Regs, regPTMR, ptmNow)

	runFrame(v, 0)

	if sink.drawEnd != 1 {
		t.Errorf("expected 1 draw end, got %d", sink.drawEnd)
	}
	if got := v.Read16(WindowVDP1Regs, regEDSR); got != edsrCEF|edsrBEF {
		t.Errorf("expected EDSR 0x%X, got 0x%X", edsrCEF|edsrBEF, got)
	}
	if got := v.Read16(WindowVDP1Regs, regLOPR); got != 0x20>>3 {
		t.Errorf("expected LOPR 0x%X, got 0x%X", 0x20>>3, got)
	}
	if got := v.vdp1.displayFB()[10*vdp1FBStride+10]; got != 0x7FFF {
		t.Errorf("expected the drawn line displayed, got 0x%04X", got)
	}
}

func TestVideo_SwapCallback(t *testing.T) {
	v := New(Config{}, nil, nil)
	swaps := 0
	v.SetSwapFunc(func() { swaps++ })
	now := runFrame(v, 0)
	runFrame(v, now)
	if swaps != 2 {
		t.Errorf("expected 2 swaps in one-cycle mode, got %d", swaps)
	}
}

func TestVideo_LayerScroll(t *testing.T) {
	v := New(Config{}, nil, nil)
	setupSolidNBG0(v, red)
	reg(v, regSCXIN0, 12)
	reg(v, regSCXIN0+2, 0x8000)

	s := v.LayerScroll(0)
	want := ScrollState{Enabled: true, X: 12<<8 | 0x80, ZoomX: 0x100, ZoomY: 0x100}
	if diff := deep.Equal(s, want); diff != nil {
		t.Errorf("%v\n%s", diff, spew.Sdump(s))
	}
	if s := v.LayerScroll(4); s != (ScrollState{}) {
		t.Errorf("expected zero state for an invalid layer, got %+v", s)
	}
}

func TestVideo_SoftResetKeepsMemory(t *testing.T) {
	v := New(Config{}, nil, nil)
	v.Write16(WindowVDP2VRAM, 0x100, 0x1234)
	v.Write16(WindowVDP2CRAM, 0x10, 0x4321)
	reg(v, regTVMD, 0x8000)
	v.Reset(false)

	if got := v.Read16(WindowVDP2VRAM, 0x100); got != 0x1234 {
		t.Errorf("expected VRAM kept, got 0x%04X", got)
	}
	if got := v.Read16(WindowVDP2CRAM, 0x10); got != 0x4321 {
		t.Errorf("expected CRAM kept, got 0x%04X", got)
	}
	if got := v.Peek16(WindowVDP2Regs, regTVMD); got != 0 {
		t.Errorf("expected registers cleared, got TVMD 0x%04X", got)
	}

	v.Reset(true)
	if got := v.Read16(WindowVDP2VRAM, 0x100); got != 0 {
		t.Errorf("expected VRAM cleared, got 0x%04X", got)
	}
}

func TestWindowString(t *testing.T) {
	if s := WindowVDP2CRAM.String(); s != "VDP2 CRAM" {
		t.Errorf("expected \"VDP2 CRAM\", got %q", s)
	}
	if s := Window(99).String(); s != "unknown" {
		t.Errorf("expected \"unknown\", got %q", s)
	}
}

func TestDisplaySize(t *testing.T) {
	tests := []struct {
		w, h  int
		wantW int
		wantH int
	}{
		{320, 224, 640, 448},
		{704, 240, 704, 480},
		{352, 512, 704, 512},
		{640, 448, 640, 448},
	}

	for _, tt := range tests {
		w, h := DisplaySize(tt.w, tt.h)
		if w != tt.wantW || h != tt.wantH {
			t.Errorf("%dx%d: expected %dx%d, got %dx%d", tt.w, tt.h, tt.wantW, tt.wantH, w, h)
		}
	}
}

func TestVideo_WideAccess(t *testing.T) {
	v := New(Config{}, nil, nil)
	v.Write32(WindowVDP2VRAM, 0x200, 0x12345678)
	if got := v.Read32(WindowVDP2VRAM, 0x200); got != 0x12345678 {
		t.Errorf("expected 0x12345678, got 0x%08X", got)
	}
	if got := v.Peek32(WindowVDP2VRAM, 0x200); got != 0x12345678 {
		t.Errorf("expected peek 0x12345678, got 0x%08X", got)
	}
	if got := v.Peek8(WindowVDP2VRAM, 0x201); got != 0x34 {
		t.Errorf("expected 0x34, got 0x%02X", got)
	}

	v.Poke32(WindowVDP1VRAM, 0x40, 0xCAFEBABE)
	if got := v.Read16(WindowVDP1VRAM, 0x42); got != 0xBABE {
		t.Errorf("expected 0xBABE, got 0x%04X", got)
	}
	v.Poke8(WindowVDP2Regs, regTVMD, 0x80)
	if got := v.Peek16(WindowVDP2Regs, regTVMD); got != 0x8000 {
		t.Errorf("expected TVMD 0x8000, got 0x%04X", got)
	}
}
