package vdp

import (
	"sync/atomic"

	"github.com/user-none/emss/logger"
	"golang.org/x/sync/errgroup"
)

type eventKind uint8

const (
	evWrite eventKind = iota
	evPoke
	evVDP1Run
	evBeginFrame
	evDrawLine
	evFrame
	evBarrier
	evQuit
)

// renderEvent is one message from the bus side to the render goroutine.
type renderEvent struct {
	kind   eventKind
	win    Window
	size   uint8
	addr   uint32
	val    uint32
	cycles int64

	fn   func(s *chipSet)
	done chan struct{}
}

const (
	renderQueueDepth = 4096
	statusQueueDepth = 64
)

// renderThread owns the render goroutine and its private chip state. The
// bus side stays authoritative and mirrors every access through events.
type renderThread struct {
	side    chipSet
	onFrame FrameFunc

	events  chan renderEvent
	status  chan struct{}
	discard atomic.Bool

	altBegin chan int
	altEnd   chan struct{}

	g *errgroup.Group
}

func startRenderThread(bus *chipSet, remoteVDP1 bool, onFrame FrameFunc) *renderThread {
	rt := &renderThread{
		onFrame:  onFrame,
		events:   make(chan renderEvent, renderQueueDepth),
		status:   make(chan struct{}, statusQueueDepth),
		altBegin: make(chan int),
		altEnd:   make(chan struct{}),
		g:        new(errgroup.Group),
	}

	v1 := bus.vdp1.clone()
	v1.onDrawEnd = rt.drawEnded
	v2 := &vdp2State{}
	*v2 = *bus.vdp2
	r := newRenderer(v2, v1, bus.r.pal)
	r.deinterlace = bus.r.deinterlace
	r.frame = bus.r.frame
	r.rot = bus.r.rot
	r.altBegin = func(line int) { rt.altBegin <- line }
	r.altEnd = func() { <-rt.altEnd }
	rt.side = chipSet{vdp1: v1, vdp2: v2, r: r, quiet: true}

	if remoteVDP1 {
		bus.vdp1.remote = true
		bus.vdp1.drawing = false
	} else {
		v1.remote = true
		v1.drawing = false
	}

	rt.g.Go(rt.deinterlaceLoop)
	rt.g.Go(rt.loop)
	return rt
}

func (rt *renderThread) loop() error {
	defer close(rt.altBegin)
	s := &rt.side
	for ev := range rt.events {
		switch ev.kind {
		case evQuit:
			return nil
		case evWrite, evPoke:
			s.apply(&ev)
		case evVDP1Run:
			s.vdp1.run(ev.cycles)
		case evBarrier:
			if ev.fn != nil {
				ev.fn(s)
			}
			close(ev.done)
		default:
			if rt.discard.Load() {
				continue
			}
			rt.render(&ev)
		}
	}
	return nil
}

func (rt *renderThread) render(ev *renderEvent) {
	s := &rt.side
	switch ev.kind {
	case evBeginFrame:
		s.r.beginFrame(int(ev.val))
	case evDrawLine:
		s.r.drawLine(int(ev.val))
	case evFrame:
		if rt.onFrame != nil {
			rt.onFrame(s.r.frameView())
		}
	}
}

// deinterlaceLoop renders the alternate field line while the render
// goroutine draws the primary one.
func (rt *renderThread) deinterlaceLoop() error {
	for line := range rt.altBegin {
		rt.side.r.renderAlt(line)
		rt.altEnd <- struct{}{}
	}
	return nil
}

// drawEnded runs on the render goroutine when its VDP1 finishes a list.
func (rt *renderThread) drawEnded() {
	select {
	case rt.status <- struct{}{}:
	default:
		logger.Logf("vdp", "draw end status queue full, report dropped")
	}
}

func (rt *renderThread) send(ev renderEvent) {
	rt.events <- ev
}

// barrier runs fn on the render goroutine after every queued event and
// blocks until it returns.
func (rt *renderThread) barrier(fn func(s *chipSet)) {
	done := make(chan struct{})
	rt.events <- renderEvent{kind: evBarrier, fn: fn, done: done}
	<-done
}

// vblankIn mirrors the VDP1 erase at vertical blanking. Whichever side
// draws is authoritative for the framebuffers; a bus side VDP1 only sends
// the display half it erased.
func (rt *renderThread) vblankIn(bus *VDP1, erased bool) {
	if !bus.remote && !erased {
		return
	}
	rt.barrier(func(s *chipSet) {
		if bus.remote {
			s.vdp1.vblankIn()
			return
		}
		s.vdp1.copyDisplay(bus)
	})
}

// frameChange mirrors the VDP1 framebuffer swap. A bus side VDP1 sends
// only the half that became the display framebuffer.
func (rt *renderThread) frameChange(bus *VDP1, swapped bool) {
	if !bus.remote && !swapped {
		return
	}
	rt.barrier(func(s *chipSet) {
		if bus.remote {
			s.vdp1.frameChange()
			return
		}
		s.vdp1.copyDisplay(bus)
	})
}

// readVDP1 runs fn against the render side VDP1 once it has caught up with
// every queued event.
func (rt *renderThread) readVDP1(fn func(v *VDP1) uint16) uint16 {
	var val uint16
	rt.barrier(func(s *chipSet) {
		val = fn(s.vdp1)
	})
	return val
}

// moveVDP1 hands command execution to the render goroutine (remote) or
// back to the bus side.
func (rt *renderThread) moveVDP1(bus *VDP1, remote bool) {
	rt.barrier(func(s *chipSet) {
		if remote {
			s.vdp1.vdp1State = bus.vdp1State
			s.vdp1.remote = false
			bus.remote = true
			bus.drawing = false
			return
		}
		bus.vdp1State = s.vdp1.vdp1State
		bus.remote = false
		s.vdp1.remote = true
		s.vdp1.drawing = false
	})
}

// pull copies render-side state the bus side does not track itself: the
// VDP1 state when it draws remotely and the per-frame accumulators.
func (rt *renderThread) pull(bus *chipSet) {
	rt.barrier(func(s *chipSet) {
		if bus.vdp1.remote {
			bus.vdp1.vdp1State = s.vdp1.vdp1State
		}
		bus.r.frame = s.r.frame
		bus.r.rot = s.r.rot
	})
}

// resync replaces the render-side state with the bus side's, after a
// reset or a state load.
func (rt *renderThread) resync(bus *chipSet) {
	rt.barrier(func(s *chipSet) {
		remote := bus.vdp1.remote
		s.vdp1.vdp1State = bus.vdp1.vdp1State
		if remote {
			bus.vdp1.drawing = false
		} else {
			s.vdp1.drawing = false
		}
		*s.vdp2 = *bus.vdp2
		s.r.colors.rebuild(s.vdp2)
		s.r.dirty = true
		s.r.frame = bus.r.frame
		s.r.rot = bus.r.rot
	})
}

// stop drops pending render work, returns VDP1 to the bus side and joins
// both goroutines.
func (rt *renderThread) stop(bus *chipSet) error {
	rt.discard.Store(true)
	if bus.vdp1.remote {
		rt.moveVDP1(bus.vdp1, false)
	}
	rt.pull(bus)
	rt.send(renderEvent{kind: evQuit})
	return rt.g.Wait()
}
