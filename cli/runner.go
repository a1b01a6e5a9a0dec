// Package cli runs the video subsystem in a window or headless, driven by
// a free-running clock.
package cli

import (
	"fmt"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	emubridge "github.com/user-none/emss/bridge/ebiten"
	"github.com/user-none/emss/logger"
	"github.com/user-none/emss/ui"
	"github.com/user-none/emss/vdp"
)

// Runner shows a Session in an Ebiten window. The video runs on its own
// goroutine paced to the region frame rate; the Ebiten thread polls keys
// and draws from the shared framebuffer.
type Runner struct {
	session     *Session
	presenter   *emubridge.Presenter
	snapshotDir string
	fps         int

	control     *ui.VideoControl
	toggles     *ui.SharedToggles
	framebuffer *ui.SharedFramebuffer
	videoDone   chan struct{}
}

// NewRunner starts the video goroutine for s. Snapshots are written to
// snapshotDir.
func NewRunner(s *Session, region vdp.Region, snapshotDir string) *Runner {
	r := &Runner{
		session:     s,
		presenter:   emubridge.NewPresenter(),
		snapshotDir: snapshotDir,
		fps:         vdp.GetTiming(region).FPS,
		control:     ui.NewVideoControl(),
		toggles:     &ui.SharedToggles{},
		framebuffer: ui.NewSharedFramebuffer(),
		videoDone:   make(chan struct{}),
	}

	go r.videoLoop()

	return r
}

// Close stops the video goroutine.
func (r *Runner) Close() {
	r.control.Stop()
	<-r.videoDone
}

func (r *Runner) videoLoop() {
	defer close(r.videoDone)

	frameTime := time.Second / time.Duration(r.fps)
	lastFrameTime := time.Now()

	for {
		if !r.control.CheckPause() {
			return
		}

		pix, w, h := r.session.RunFrame()
		r.framebuffer.Update(pix, w*4, w, h)
		r.applyToggles(pix, w, h)

		sleepTime := frameTime - time.Since(lastFrameTime)
		if sleepTime > time.Millisecond {
			time.Sleep(sleepTime)
		}
		lastFrameTime = time.Now()
	}
}

// applyToggles runs on the video goroutine, which owns the Video.
func (r *Runner) applyToggles(pix []byte, w, h int) {
	deinterlace, mesh, threaded, snapshot := r.toggles.Take()
	v := r.session.Video()
	cfg := v.Config()
	if deinterlace {
		v.SetDeinterlace(!cfg.Deinterlace)
		logger.Logf("viewer", "deinterlace %v", !cfg.Deinterlace)
	}
	if mesh {
		v.SetTransparentMesh(!cfg.TransparentMesh)
		logger.Logf("viewer", "transparent mesh %v", !cfg.TransparentMesh)
	}
	if threaded {
		if err := v.SetThreaded(!cfg.Threaded); err != nil {
			logger.Logf("viewer", "threaded rendering: %v", err)
		} else {
			logger.Logf("viewer", "threaded rendering %v", !cfg.Threaded)
		}
	}
	if snapshot && w > 0 {
		path, err := WritePNG(r.snapshotDir, r.session.Frames(), pix, w, h)
		if err != nil {
			logger.Logf("viewer", "snapshot failed: %v", err)
			return
		}
		logger.Logf("viewer", "snapshot written to %s", path)
	}
}

// Update implements ebiten.Game.
func (r *Runner) Update() error {
	if !ebiten.IsFocused() {
		return nil
	}

	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		if r.control.IsPaused() {
			r.control.RequestResume()
		} else {
			r.control.RequestPause()
		}
	}

	r.toggles.Set(
		inpututil.IsKeyJustPressed(ebiten.KeyI),
		inpututil.IsKeyJustPressed(ebiten.KeyM),
		inpututil.IsKeyJustPressed(ebiten.KeyT),
		inpututil.IsKeyJustPressed(ebiten.KeyP),
	)
	return nil
}

// Draw implements ebiten.Game.
func (r *Runner) Draw(screen *ebiten.Image) {
	pixels, width, height := r.framebuffer.Read()
	if height == 0 {
		return
	}
	r.presenter.DrawFrame(screen, pixels, width, height)
}

// Layout implements ebiten.Game.
func (r *Runner) Layout(outsideWidth, outsideHeight int) (int, int) {
	return r.presenter.Layout(outsideWidth, outsideHeight)
}

// Title describes the session for the window title.
func Title(s *Session, region vdp.Region) string {
	w, h := s.Video().Resolution()
	return fmt.Sprintf("vdpview %s %dx%d %s", regionName(region), w, h, s.Video().InterlaceMode())
}

func regionName(r vdp.Region) string {
	if r == vdp.RegionPAL {
		return "PAL"
	}
	return "NTSC"
}
