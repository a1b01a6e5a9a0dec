package ui

import (
	"sync"
	"time"

	"github.com/user-none/emss/vdp"
)

// SharedToggles collects viewer key presses on the Ebiten thread until the
// video goroutine applies them between frames.
type SharedToggles struct {
	mu          sync.Mutex
	deinterlace bool
	mesh        bool
	threaded    bool
	snapshot    bool
}

// Set records toggle requests. Requests accumulate until Take.
func (st *SharedToggles) Set(deinterlace, mesh, threaded, snapshot bool) {
	st.mu.Lock()
	st.deinterlace = st.deinterlace || deinterlace
	st.mesh = st.mesh || mesh
	st.threaded = st.threaded || threaded
	st.snapshot = st.snapshot || snapshot
	st.mu.Unlock()
}

// Take returns the pending requests and clears them.
func (st *SharedToggles) Take() (deinterlace, mesh, threaded, snapshot bool) {
	st.mu.Lock()
	deinterlace = st.deinterlace
	mesh = st.mesh
	threaded = st.threaded
	snapshot = st.snapshot
	st.deinterlace = false
	st.mesh = false
	st.threaded = false
	st.snapshot = false
	st.mu.Unlock()
	return
}

// SharedFramebuffer holds the last completed frame written by the video
// goroutine and read by Ebiten's Draw(). Rows are packed at width*4 bytes.
type SharedFramebuffer struct {
	mu          sync.Mutex
	writePixels []byte // Written by the video goroutine under lock
	readPixels  []byte // Snapshot copied on Read for safe external use
	width       int
	height      int
}

// NewSharedFramebuffer creates a framebuffer sized for the largest frame.
func NewSharedFramebuffer() *SharedFramebuffer {
	return &SharedFramebuffer{
		writePixels: make([]byte, vdp.MaxScreenWidth*vdp.MaxScreenHeight*4),
		readPixels:  make([]byte, vdp.MaxScreenWidth*vdp.MaxScreenHeight*4),
	}
}

// Update copies a frame, repacking rows from stride to width*4.
func (sf *SharedFramebuffer) Update(pixels []byte, stride, width, height int) {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	if width > vdp.MaxScreenWidth || height > vdp.MaxScreenHeight {
		return
	}
	row := width * 4
	for y := 0; y < height; y++ {
		src := y * stride
		if src+row > len(pixels) {
			height = y
			break
		}
		copy(sf.writePixels[y*row:(y+1)*row], pixels[src:src+row])
	}
	sf.width = width
	sf.height = height
}

// Read returns a snapshot of the current frame. The returned slice stays
// valid until the next Read.
func (sf *SharedFramebuffer) Read() (pixels []byte, width, height int) {
	sf.mu.Lock()
	width = sf.width
	height = sf.height
	n := width * height * 4
	if n > 0 {
		copy(sf.readPixels[:n], sf.writePixels[:n])
	}
	pixels = sf.readPixels[:n]
	sf.mu.Unlock()
	return
}

// VideoControl coordinates pause, resume and stop between the Ebiten
// thread and the video goroutine.
type VideoControl struct {
	mu       sync.Mutex
	pauseReq bool
	paused   bool
	stopReq  bool
	ackCh    chan struct{}
}

// NewVideoControl creates a control in the running state.
func NewVideoControl() *VideoControl {
	return &VideoControl{
		ackCh: make(chan struct{}, 1),
	}
}

// RequestPause asks the video goroutine to pause and blocks until it
// acknowledges.
func (vc *VideoControl) RequestPause() {
	vc.mu.Lock()
	if vc.paused || vc.pauseReq || vc.stopReq {
		vc.mu.Unlock()
		return
	}
	vc.pauseReq = true
	vc.mu.Unlock()

	<-vc.ackCh
}

// RequestResume lets a paused video goroutine continue.
func (vc *VideoControl) RequestResume() {
	vc.mu.Lock()
	vc.pauseReq = false
	vc.paused = false
	vc.mu.Unlock()
}

// CheckPause is called by the video goroutine between frames. It blocks
// while paused and returns false once the goroutine should exit.
func (vc *VideoControl) CheckPause() bool {
	vc.mu.Lock()
	if vc.stopReq {
		vc.mu.Unlock()
		return false
	}
	if !vc.pauseReq {
		vc.mu.Unlock()
		return true
	}
	vc.paused = true
	vc.mu.Unlock()

	select {
	case vc.ackCh <- struct{}{}:
	default:
	}

	for {
		vc.mu.Lock()
		if vc.stopReq {
			vc.mu.Unlock()
			return false
		}
		if !vc.pauseReq {
			vc.paused = false
			vc.mu.Unlock()
			return true
		}
		vc.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}
}

// Stop signals the video goroutine to exit.
func (vc *VideoControl) Stop() {
	vc.mu.Lock()
	vc.stopReq = true
	vc.pauseReq = false
	vc.mu.Unlock()
}

// IsPaused reports whether the video goroutine is parked in CheckPause.
func (vc *VideoControl) IsPaused() bool {
	vc.mu.Lock()
	p := vc.paused
	vc.mu.Unlock()
	return p
}
