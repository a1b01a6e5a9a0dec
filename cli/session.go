package cli

import (
	"fmt"
	"os"

	"github.com/user-none/emss/vdp"
)

// Session drives a Video from a free-running clock with no CPU attached.
// It is the video's scheduler and interrupt sink, and keeps a packed copy
// of the last completed frame.
type Session struct {
	video  *vdp.Video
	update func(now int64) int64
	now    int64

	frameDone bool
	frames    int
	drawEnds  int

	pix    []byte
	width  int
	height int
}

// NewSession creates a video in its power-on state.
func NewSession(cfg vdp.Config) *Session {
	s := &Session{
		pix: make([]byte, vdp.MaxScreenWidth*vdp.MaxScreenHeight*4),
	}
	s.video = vdp.New(cfg, s, s)
	s.video.SetFrameFunc(s.captureFrame)
	return s
}

// LoadStateFile restores a video save state from path.
func (s *Session) LoadStateFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := s.LoadState(data); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// LoadState restores a video save state from memory. The session clock
// restarts at zero.
func (s *Session) LoadState(data []byte) error {
	if err := s.video.Deserialize(data); err != nil {
		return err
	}
	s.now = 0
	return nil
}

// SaveStateFile writes the current video state to path.
func (s *Session) SaveStateFile(path string) error {
	data, err := s.video.Serialize()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Register implements vdp.Scheduler.
func (s *Session) Register(update func(now int64) int64) {
	s.update = update
}

// HBlankIn implements vdp.InterruptSink.
func (s *Session) HBlankIn() {}

// VBlankIn implements vdp.InterruptSink.
func (s *Session) VBlankIn() {}

// VBlankOut implements vdp.InterruptSink.
func (s *Session) VBlankOut() {
	s.frameDone = true
}

// VDP1DrawEnd implements vdp.InterruptSink.
func (s *Session) VDP1DrawEnd() {
	s.drawEnds++
}

// captureFrame runs on the render goroutine when threaded. RunFrame reads
// the copy only after a barrier.
func (s *Session) captureFrame(f *vdp.Frame) {
	row := f.Width * 4
	for y := 0; y < f.Height; y++ {
		copy(s.pix[y*row:(y+1)*row], f.Pix[y*f.Stride:y*f.Stride+row])
	}
	s.width = f.Width
	s.height = f.Height
}

// RunFrame advances to the end of the current frame and returns the last
// completed frame packed at width*4 bytes per row. The slice is reused by
// the next call.
func (s *Session) RunFrame() (pix []byte, width, height int) {
	s.frameDone = false
	for !s.frameDone {
		s.now = s.update(s.now)
	}
	s.frames++
	s.video.Barrier()
	return s.pix[:s.width*s.height*4], s.width, s.height
}

// Frames returns the number of frames run.
func (s *Session) Frames() int {
	return s.frames
}

// DrawEnds returns the number of VDP1 draw-end interrupts seen.
func (s *Session) DrawEnds() int {
	return s.drawEnds
}

// Video returns the driven video subsystem. It must only be used from the
// goroutine calling RunFrame.
func (s *Session) Video() *vdp.Video {
	return s.video
}

// Close stops the video's render goroutines.
func (s *Session) Close() error {
	return s.video.Close()
}
