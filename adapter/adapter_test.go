package adapter

import (
	"testing"

	"github.com/go-test/deep"
	emucore "github.com/user-none/eblitui/api"
	"github.com/user-none/emss/vdp"
)

// redState returns a save state of a video showing a red back screen.
func redState(t *testing.T, region vdp.Region) []byte {
	t.Helper()
	v := vdp.New(vdp.Config{Region: region}, nil, nil)
	defer v.Close()
	v.Write16(vdp.WindowVDP2Regs, 0x000, 0x8000)
	v.Write16(vdp.WindowVDP2VRAM, 0, 0x001F)
	state, err := v.Serialize()
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	return state
}

func TestFactory_SystemInfo(t *testing.T) {
	info := (&Factory{}).SystemInfo()
	if info.ScreenWidth != vdp.MaxScreenWidth || info.MaxScreenHeight != vdp.MaxScreenHeight {
		t.Errorf("expected %dx%d, got %dx%d", vdp.MaxScreenWidth, vdp.MaxScreenHeight,
			info.ScreenWidth, info.MaxScreenHeight)
	}
	if info.SerializeSize != vdp.StateSize {
		t.Errorf("expected serialize size %d, got %d", vdp.StateSize, info.SerializeSize)
	}
	var keys []string
	for _, o := range info.CoreOptions {
		keys = append(keys, o.Key)
	}
	if diff := deep.Equal(keys, []string{"deinterlace", "transparent_mesh", "threaded", "vdp1_thread"}); diff != nil {
		t.Errorf("unexpected core options: %v", diff)
	}
}

func TestFactory_DetectRegion(t *testing.T) {
	f := &Factory{}
	tests := []struct {
		name string
		rom  []byte
		want emucore.Region
	}{
		{"ntsc state", redState(t, vdp.RegionNTSC), emucore.RegionNTSC},
		{"pal state", redState(t, vdp.RegionPAL), emucore.RegionPAL},
		{"not a state", []byte("garbage"), emucore.RegionNTSC},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, fromDB := f.DetectRegion(tt.rom)
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
			if fromDB {
				t.Error("expected header based detection")
			}
		})
	}
}

func TestFactory_CreateEmulatorRejectsBadState(t *testing.T) {
	f := &Factory{}
	if _, err := f.CreateEmulator([]byte("garbage"), emucore.RegionNTSC); err == nil {
		t.Error("expected an error for a non-state file")
	}
	if _, err := f.CreateEmulator(redState(t, vdp.RegionPAL), emucore.RegionNTSC); err == nil {
		t.Error("expected an error for a state from another region")
	}
}

func TestEmulator_RunFrame(t *testing.T) {
	emu, err := (&Factory{}).CreateEmulator(redState(t, vdp.RegionNTSC), emucore.RegionNTSC)
	if err != nil {
		t.Fatalf("CreateEmulator failed: %v", err)
	}
	defer emu.Close()

	if emu.GetFramebuffer() != nil {
		t.Error("expected no framebuffer before the first frame")
	}
	emu.RunFrame()

	if emu.GetFramebufferStride() != 320*4 {
		t.Errorf("expected stride %d, got %d", 320*4, emu.GetFramebufferStride())
	}
	if emu.GetActiveHeight() != 224 {
		t.Errorf("expected height 224, got %d", emu.GetActiveHeight())
	}
	fb := emu.GetFramebuffer()
	if len(fb) != 320*4*224 {
		t.Fatalf("expected %d bytes, got %d", 320*4*224, len(fb))
	}
	if diff := deep.Equal(fb[len(fb)-4:], []byte{0xF8, 0, 0, 0xFF}); diff != nil {
		t.Errorf("unexpected last pixel: %v", diff)
	}
	if emu.GetAudioSamples() != nil {
		t.Error("expected no audio")
	}
	if diff := deep.Equal(emu.GetTiming(), emucore.Timing{FPS: 60, Scanlines: 263}); diff != nil {
		t.Errorf("unexpected timing: %v", diff)
	}
}

func TestEmulator_SetOption(t *testing.T) {
	emu, err := (&Factory{}).CreateEmulator(redState(t, vdp.RegionNTSC), emucore.RegionNTSC)
	if err != nil {
		t.Fatalf("CreateEmulator failed: %v", err)
	}
	e := emu.(*Emulator)
	defer e.Close()

	e.SetOption("deinterlace", "true")
	e.SetOption("transparent_mesh", "true")
	e.SetOption("threaded", "false")
	e.SetOption("vdp1_thread", "true")
	e.SetOption("unknown", "true")

	want := vdp.Config{
		Region:             vdp.RegionNTSC,
		VDP1OnRenderThread: true,
		Deinterlace:        true,
		TransparentMesh:    true,
	}
	if diff := deep.Equal(e.session.Video().Config(), want); diff != nil {
		t.Errorf("unexpected config: %v", diff)
	}

	e.RunFrame()
	if e.GetActiveHeight() != 224 {
		t.Errorf("expected height 224 after toggles, got %d", e.GetActiveHeight())
	}
}

func TestEmulator_SetRegion(t *testing.T) {
	emu, err := (&Factory{}).CreateEmulator(redState(t, vdp.RegionNTSC), emucore.RegionNTSC)
	if err != nil {
		t.Fatalf("CreateEmulator failed: %v", err)
	}
	defer emu.Close()

	emu.SetRegion(emucore.RegionPAL)
	if emu.GetRegion() != emucore.RegionPAL {
		t.Errorf("expected PAL, got %v", emu.GetRegion())
	}
	if diff := deep.Equal(emu.GetTiming(), emucore.Timing{FPS: 50, Scanlines: 313}); diff != nil {
		t.Errorf("unexpected timing: %v", diff)
	}

	// The NTSC state does not load, so the display stays off.
	emu.RunFrame()
	fb := emu.GetFramebuffer()
	if len(fb) < 4 {
		t.Fatalf("expected a frame, got %d bytes", len(fb))
	}
	if diff := deep.Equal(fb[:4], []byte{0, 0, 0, 0xFF}); diff != nil {
		t.Errorf("expected a blank frame: %v", diff)
	}
}

func TestEmulator_SaveStateRoundTrip(t *testing.T) {
	emu, err := (&Factory{}).CreateEmulator(redState(t, vdp.RegionNTSC), emucore.RegionNTSC)
	if err != nil {
		t.Fatalf("CreateEmulator failed: %v", err)
	}
	defer emu.Close()
	s := emu.(emucore.SaveStater)

	emu.RunFrame()
	state, err := s.Serialize()
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	if len(state) != vdp.StateSize {
		t.Errorf("expected %d bytes, got %d", vdp.StateSize, len(state))
	}
	if err := s.Deserialize(state); err != nil {
		t.Errorf("Deserialize failed: %v", err)
	}
	if err := s.Deserialize(state[:10]); err == nil {
		t.Error("expected a short state to be rejected")
	}
}
