package vdp

import (
	"testing"

	"github.com/go-test/deep"
)

// busWrite is one recorded bus access.
type busWrite struct {
	win  Window
	addr uint32
	val  uint16
}

// patternWrites builds 1000 VRAM writes: 16 characters with distinct
// colors followed by pattern names that tile them across NBG0's plane.
func patternWrites() []busWrite {
	writes := make([]busWrite, 0, 1000)
	for i := 0; i < 256; i++ {
		val := uint16((i/16)%15+1) * 0x1111
		writes = append(writes, busWrite{WindowVDP2VRAM, 0x20 + uint32(i)*2, val})
	}
	for j := 0; len(writes) < 1000; j++ {
		val := uint16(0)
		if j&1 != 0 {
			val = uint16((j/2)%16 + 1)
		}
		writes = append(writes, busWrite{WindowVDP2VRAM, 0x4000 + uint32(j)*2, val})
	}
	return writes
}

// runPatternScenario plays the pattern writes interleaved with timing
// updates and records two full frames.
func runPatternScenario(t *testing.T, cfg Config) ([][]byte, []byte) {
	t.Helper()
	v := New(cfg, nil, nil)
	rec := &frameRecorder{}
	v.SetFrameFunc(rec.record)

	setupSolidNBG0(v, red)
	for k := 1; k < 16; k++ {
		v.Write16(WindowVDP2CRAM, uint32(k)*2, uint16(k*0x0843))
	}

	now := int64(0)
	for i, w := range patternWrites() {
		v.Write16(w.win, w.addr, w.val)
		if i%10 == 9 {
			now = v.Update(now)
		}
	}
	now = runFrame(v, now)
	runFrame(v, now)
	v.Barrier()

	state, err := v.Serialize()
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	if err := v.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	return rec.frames, state
}

func TestRenderThread_MatchesSynchronous(t *testing.T) {
	syncFrames, syncState := runPatternScenario(t, Config{})
	thrFrames, thrState := runPatternScenario(t, Config{Threaded: true})

	if len(syncFrames) != 2 || len(thrFrames) != 2 {
		t.Fatalf("expected 2 frames each, got %d and %d", len(syncFrames), len(thrFrames))
	}
	for i := range syncFrames {
		if diff := deep.Equal(syncFrames[i], thrFrames[i]); diff != nil {
			t.Errorf("frame %d differs: %v", i, diff)
		}
	}
	if diff := deep.Equal(syncState, thrState); diff != nil {
		t.Errorf("save states differ: %v", diff)
	}
}

func TestRenderThread_VDP1OnRenderThread(t *testing.T) {
	sink := &testSink{}
	v := New(Config{Threaded: true, VDP1OnRenderThread: true}, nil, sink)
	reg(v, regTVMD, 0x8000)
	writeLineList(v)
	v.Write16(WindowVDP1Regs, regPTMR, ptmNow)

	now := runFrame(v, 0)
	v.Barrier()
	v.Update(now)

	if sink.drawEnd != 1 {
		t.Errorf("expected 1 draw end, got %d", sink.drawEnd)
	}
	if got := v.Read16(WindowVDP1Regs, regEDSR); got&edsrCEF == 0 {
		t.Errorf("expected CEF, got EDSR 0x%X", got)
	}
	if err := v.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if v.vdp1.remote {
		t.Error("expected VDP1 back on the bus side")
	}
	if got := v.vdp1.displayFB()[10*vdp1FBStride+10]; got != 0x7FFF {
		t.Errorf("expected the remotely drawn line displayed, got 0x%04X", got)
	}
}

func TestRenderThread_MoveVDP1(t *testing.T) {
	v := New(Config{Threaded: true}, nil, nil)
	defer v.Close()
	v.Write16(WindowVDP1VRAM, 0x100, 0xBEEF)

	v.SetVDP1OnRenderThread(true)
	if !v.vdp1.remote {
		t.Fatal("expected the bus copy marked remote")
	}
	v.SetVDP1OnRenderThread(false)
	if v.vdp1.remote {
		t.Fatal("expected VDP1 back on the bus side")
	}
	if got := v.Read16(WindowVDP1VRAM, 0x100); got != 0xBEEF {
		t.Errorf("expected VRAM preserved, got 0x%04X", got)
	}
}

func TestRenderThread_Deinterlace(t *testing.T) {
	setup := func(v *Video) {
		setupSolidNBG0(v, red)
		reg(v, regTVMD, 0x80C0)
		// Each character row uses its own color so the two fields differ.
		for row := uint32(0); row < 8; row++ {
			val := uint16(row+1) * 0x1111
			v.Write16(WindowVDP2VRAM, row*4, val)
			v.Write16(WindowVDP2VRAM, row*4+2, val)
			v.Write16(WindowVDP2CRAM, (row+1)*2, uint16(row+1)*0x0421)
		}
	}
	run := func(cfg Config) [][]byte {
		v := New(cfg, nil, nil)
		rec := &frameRecorder{}
		v.SetFrameFunc(rec.record)
		setup(v)
		now := runFrame(v, 0)
		runFrame(v, now)
		v.Barrier()
		v.Close()
		return rec.frames
	}

	syncFrames := run(Config{Deinterlace: true})
	thrFrames := run(Config{Deinterlace: true, Threaded: true})

	if len(syncFrames) != 2 || len(thrFrames) != 2 {
		t.Fatalf("expected 2 frames each, got %d and %d", len(syncFrames), len(thrFrames))
	}
	for i := range syncFrames {
		if len(syncFrames[i]) != 320*448*4 {
			t.Fatalf("frame %d: expected 320x448, got %d bytes", i, len(syncFrames[i]))
		}
		if diff := deep.Equal(syncFrames[i], thrFrames[i]); diff != nil {
			t.Errorf("frame %d differs: %v", i, diff)
		}
	}

	// Both fields are present in every deinterlaced frame: row 1 is the
	// odd field's first line and must not be left black.
	f := syncFrames[0]
	if f[320*4] == 0 && f[320*4+1] == 0 && f[320*4+2] == 0 {
		t.Error("expected the alternate field rendered")
	}
}

func TestRenderThread_SetThreadedOff(t *testing.T) {
	v := New(Config{Threaded: true}, nil, nil)
	rec := &frameRecorder{}
	v.SetFrameFunc(rec.record)
	setupSolidNBG0(v, red)

	now := runFrame(v, 0)
	if err := v.SetThreaded(false); err != nil {
		t.Fatalf("SetThreaded failed: %v", err)
	}
	runFrame(v, now)

	if len(rec.frames) < 1 {
		t.Fatal("expected a frame after leaving threaded mode")
	}
	last := rec.frames[len(rec.frames)-1]
	if last[0] != 0xF8 || last[3] != 0xFF {
		t.Errorf("expected red, got % X", last[:4])
	}
}

func TestRenderThread_ResetResyncs(t *testing.T) {
	v := New(Config{Threaded: true}, nil, nil)
	defer v.Close()
	rec := &frameRecorder{}
	v.SetFrameFunc(rec.record)
	setupSolidNBG0(v, red)
	v.Reset(true)
	setupSolidNBG0(v, blue)

	runFrame(v, 0)
	v.Barrier()

	if len(rec.frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(rec.frames))
	}
	if p := rec.frames[0][:4]; p[0] != 0 || p[2] != 0xF8 {
		t.Errorf("expected blue, got % X", p)
	}
}

func TestRenderThread_LocalVDP1SendsDisplayOnly(t *testing.T) {
	v := New(Config{Threaded: true}, nil, nil)
	defer v.Close()
	reg(v, regTVMD, 0x8000)
	writeLineList(v)
	v.Write16(WindowVDP1Regs, regPTMR, ptmNow)

	runFrame(v, 0)

	idx := 10*vdp1FBStride + 10
	if got := v.vdp1.displayFB()[idx]; got != 0x7FFF {
		t.Fatalf("expected the line displayed on the bus side, got 0x%04X", got)
	}
	v.rt.barrier(func(s *chipSet) {
		if s.vdp1.drawFB != v.vdp1.drawFB {
			t.Errorf("expected draw framebuffer %d, got %d", v.vdp1.drawFB, s.vdp1.drawFB)
		}
		if got := s.vdp1.displayFB()[idx]; got != 0x7FFF {
			t.Errorf("expected the displayed line copied to the render side, got 0x%04X", got)
		}
		if s.vdp1.drawing {
			t.Error("expected the render side copy idle")
		}
	})
}

func TestRenderThread_RemoteVDP1Reads(t *testing.T) {
	v := New(Config{Threaded: true, VDP1OnRenderThread: true}, nil, nil)
	defer v.Close()
	writeLineList(v)
	v.Write16(WindowVDP1Regs, regPTMR, ptmNow)
	v.runVDP1(1 << 20)

	if got := v.Read16(WindowVDP1Regs, regLOPR); got != 0x20>>3 {
		t.Errorf("expected LOPR 0x%X, got 0x%X", 0x20>>3, got)
	}
	if got := v.Read16(WindowVDP1Regs, regCOPR); got != 0x40>>3 {
		t.Errorf("expected COPR 0x%X, got 0x%X", 0x40>>3, got)
	}
	if got := v.Read16(WindowVDP1Regs, regEDSR); got&edsrCEF == 0 {
		t.Errorf("expected CEF, got EDSR 0x%X", got)
	}
	addr := uint32(10*vdp1FBStride+10) * 2
	if got := v.Read16(WindowVDP1FB, addr); got != 0x7FFF {
		t.Errorf("expected the remotely drawn pixel, got 0x%04X", got)
	}
	if got := v.vdp1.readFB16(addr); got != 0 {
		t.Errorf("expected the bus side copy untouched, got 0x%04X", got)
	}
}
