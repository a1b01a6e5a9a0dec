package cli

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/user-none/emss/vdp"
	"golang.org/x/image/draw"
)

// EncodePNG writes a packed RGBA frame as a PNG stretched to its 4:3
// display size.
func EncodePNG(w io.Writer, pix []byte, width, height int) error {
	if width <= 0 || height <= 0 || len(pix) < width*height*4 {
		return fmt.Errorf("invalid frame %dx%d with %d bytes", width, height, len(pix))
	}
	src := &image.RGBA{
		Pix:    pix[:width*height*4],
		Stride: width * 4,
		Rect:   image.Rect(0, 0, width, height),
	}
	dw, dh := vdp.DisplaySize(width, height)
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return png.Encode(w, dst)
}

// WritePNG writes a frame to dir as frame_NNNNN.png and returns the path.
func WritePNG(dir string, n int, pix []byte, width, height int) (string, error) {
	path := filepath.Join(dir, fmt.Sprintf("frame_%05d.png", n))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := EncodePNG(f, pix, width, height); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}

// DumpFrames runs count frames and writes every one to dir.
func DumpFrames(s *Session, count int, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	for i := 0; i < count; i++ {
		pix, w, h := s.RunFrame()
		if w == 0 {
			continue
		}
		if _, err := WritePNG(dir, i, pix, w, h); err != nil {
			return err
		}
	}
	return nil
}
