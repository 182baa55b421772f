package emvid

import (
	"image"
)

// CurrentStill returns an independent copy of the current frame as an
// image.Image, suitable for encoding or handing to other libraries. The
// copy shares no memory with the engine, so it stays valid across seeks and
// source changes. Returns nil when no frame has been presented yet.
func (p *Player) CurrentStill() image.Image {
	p.mu.Lock()
	frame := p.current
	p.mu.Unlock()
	if frame == nil {
		return nil
	}
	return frame.Image()
}

// Image converts the frame into a standalone *image.RGBA. The pixel data is
// copied; mutating the result does not affect playback.
func (f *VideoFrame) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	copy(img.Pix, f.Data)
	return img
}
