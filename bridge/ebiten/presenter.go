// Package ebiten presents video frames in an Ebiten window.
package ebiten

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/user-none/emss/vdp"
)

// Presenter scales packed RGBA frames onto the Ebiten screen at the 4:3
// display aspect.
type Presenter struct {
	offscreen *ebiten.Image           // Native resolution frame
	drawOpts  ebiten.DrawImageOptions // Reused every frame
}

// NewPresenter creates a presenter with no frame uploaded.
func NewPresenter() *Presenter {
	return &Presenter{}
}

// Layout implements ebiten.Game.
func (p *Presenter) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}

// DrawFrame uploads a frame whose rows are packed at width*4 bytes and
// draws it centered on screen. Low resolution axes are stretched so every
// mode fills the same display footprint.
func (p *Presenter) DrawFrame(screen *ebiten.Image, pixels []byte, width, height int) {
	if width == 0 || height == 0 || len(pixels) < width*height*4 {
		return
	}

	if p.offscreen == nil || p.offscreen.Bounds().Dx() != width || p.offscreen.Bounds().Dy() != height {
		if p.offscreen != nil {
			p.offscreen.Deallocate()
		}
		p.offscreen = ebiten.NewImage(width, height)
	}
	p.offscreen.WritePixels(pixels[:width*height*4])

	dispW, dispH := vdp.DisplaySize(width, height)
	screenW, screenH := screen.Bounds().Dx(), screen.Bounds().Dy()
	scale := float64(screenW) / float64(dispW)
	if s := float64(screenH) / float64(dispH); s < scale {
		scale = s
	}
	sx := scale * float64(dispW) / float64(width)
	sy := scale * float64(dispH) / float64(height)

	offsetX := (float64(screenW) - float64(dispW)*scale) / 2
	offsetY := (float64(screenH) - float64(dispH)*scale) / 2

	p.drawOpts = ebiten.DrawImageOptions{}
	p.drawOpts.GeoM.Scale(sx, sy)
	p.drawOpts.GeoM.Translate(offsetX, offsetY)
	p.drawOpts.Filter = ebiten.FilterNearest
	screen.DrawImage(p.offscreen, &p.drawOpts)
}
