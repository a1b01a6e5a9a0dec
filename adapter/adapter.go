package adapter

import (
	"fmt"

	emucore "github.com/user-none/eblitui/api"
	"github.com/user-none/emss/cli"
	"github.com/user-none/emss/logger"
	"github.com/user-none/emss/vdp"
)

const (
	Name    = "emss"
	Version = "0.1.0"
)

// Compile-time interface checks.
var (
	_ emucore.CoreFactory = (*Factory)(nil)
	_ emucore.Emulator    = (*Emulator)(nil)
	_ emucore.SaveStater  = (*Emulator)(nil)
)

// Factory implements emucore.CoreFactory for the video subsystem. The
// "ROM" a front-end loads is a video save state: the subsystem has no CPU,
// so a captured state is the only content it can run.
type Factory struct{}

// SystemInfo returns system metadata for UI configuration.
func (f *Factory) SystemInfo() emucore.SystemInfo {
	return emucore.SystemInfo{
		Name:            Name,
		ConsoleName:     "Sega Saturn Video",
		Extensions:      []string{".vstate", ".state"},
		ScreenWidth:     vdp.MaxScreenWidth,
		MaxScreenHeight: vdp.MaxScreenHeight,
		AspectRatio:     4.0 / 3.0,
		SampleRate:      48000,
		Players:         1,
		CoreOptions: []emucore.CoreOption{
			{
				Key:         "deinterlace",
				Label:       "Deinterlace",
				Description: "Render both fields of double-density interlace",
				Type:        emucore.CoreOptionBool,
				Default:     "false",
				Category:    emucore.CoreOptionCategoryVideo,
			},
			{
				Key:         "transparent_mesh",
				Label:       "Transparent Mesh",
				Description: "Blend mesh sprites instead of dithering them",
				Type:        emucore.CoreOptionBool,
				Default:     "false",
				Category:    emucore.CoreOptionCategoryVideo,
			},
			{
				Key:         "threaded",
				Label:       "Render Thread",
				Description: "Render scanlines on a separate goroutine",
				Type:        emucore.CoreOptionBool,
				Default:     "true",
				Category:    emucore.CoreOptionCategoryCore,
			},
			{
				Key:         "vdp1_thread",
				Label:       "VDP1 on Render Thread",
				Description: "Run VDP1 command lists on the render goroutine",
				Type:        emucore.CoreOptionBool,
				Default:     "false",
				Category:    emucore.CoreOptionCategoryCore,
			},
		},
		DataDirName:   Name,
		CoreName:      Name,
		CoreVersion:   Version,
		SerializeSize: vdp.StateSize,
	}
}

// CreateEmulator creates a video session and restores the state in rom.
func (f *Factory) CreateEmulator(rom []byte, region emucore.Region) (emucore.Emulator, error) {
	e := &Emulator{
		state: append([]byte(nil), rom...),
		cfg:   vdp.Config{Region: region, Threaded: true},
	}
	if err := e.start(); err != nil {
		return nil, err
	}
	return e, nil
}

// DetectRegion reads the region from the state header.
// The bool return is false since detection is header based,
// not a database lookup.
func (f *Factory) DetectRegion(rom []byte) (emucore.Region, bool) {
	r, _ := vdp.StateRegion(rom)
	return r, false
}

// Emulator runs a loaded video state frame by frame for a front-end.
type Emulator struct {
	session *cli.Session
	cfg     vdp.Config
	state   []byte // state the session was created from

	pix    []byte
	width  int
	height int
}

// start builds a session for e.cfg and loads e.state into it.
func (e *Emulator) start() error {
	s := cli.NewSession(e.cfg)
	if err := s.LoadState(e.state); err != nil {
		s.Close()
		return fmt.Errorf("load video state: %w", err)
	}
	e.session = s
	e.pix = nil
	e.width, e.height = 0, 0
	return nil
}

// RunFrame runs one video frame.
func (e *Emulator) RunFrame() {
	e.pix, e.width, e.height = e.session.RunFrame()
}

// GetFramebuffer returns the last frame as RGBA bytes.
func (e *Emulator) GetFramebuffer() []byte {
	return e.pix
}

// GetFramebufferStride returns the stride (bytes per row) of the framebuffer.
// Frames are packed, so the stride follows the current horizontal resolution.
func (e *Emulator) GetFramebufferStride() int {
	return e.width * 4
}

// GetActiveHeight returns the height of the last frame. Double-density
// interlace reports both fields.
func (e *Emulator) GetActiveHeight() int {
	return e.height
}

// GetAudioSamples returns nil. The video subsystem produces no sound.
func (e *Emulator) GetAudioSamples() []int16 {
	return nil
}

// SetInput is ignored; there is no input device.
func (e *Emulator) SetInput(player int, buttons uint32) {}

// GetRegion returns the session's region.
func (e *Emulator) GetRegion() emucore.Region {
	return e.cfg.Region
}

// SetRegion restarts the session in region. A state captured in another
// region cannot be loaded, so the video powers on blank in that case.
func (e *Emulator) SetRegion(region emucore.Region) {
	if region == e.cfg.Region {
		return
	}
	e.cfg = e.session.Video().Config()
	e.cfg.Region = region
	e.session.Close()

	e.session = cli.NewSession(e.cfg)
	if err := e.session.LoadState(e.state); err != nil {
		logger.Logf("adapter", "state not loaded after region change: %v", err)
	}
	e.pix = nil
	e.width, e.height = 0, 0
}

// GetTiming returns timing information for the session's region.
func (e *Emulator) GetTiming() emucore.Timing {
	return vdp.GetTiming(e.cfg.Region)
}

// SetOption applies a core option.
func (e *Emulator) SetOption(key string, value string) {
	on := value == "true"
	v := e.session.Video()
	switch key {
	case "deinterlace":
		v.SetDeinterlace(on)
	case "transparent_mesh":
		v.SetTransparentMesh(on)
	case "threaded":
		if err := v.SetThreaded(on); err != nil {
			logger.Logf("adapter", "render thread stop: %v", err)
		}
	case "vdp1_thread":
		v.SetVDP1OnRenderThread(on)
	}
	e.cfg = v.Config()
}

// Serialize creates a save state of the video.
func (e *Emulator) Serialize() ([]byte, error) {
	return e.session.Video().Serialize()
}

// Deserialize restores a save state of the video.
func (e *Emulator) Deserialize(data []byte) error {
	return e.session.LoadState(data)
}

// Close stops the session's render goroutines.
func (e *Emulator) Close() {
	if err := e.session.Close(); err != nil {
		logger.Logf("adapter", "close: %v", err)
	}
}
