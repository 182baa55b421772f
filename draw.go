package emvid

import "github.com/hajimehoshi/ebiten/v2"

// A FrameCanvas holds the reusable GPU-side image a host blits decoded
// frames into. One canvas per player is enough: frames of one source all
// share the source's resolution.
type FrameCanvas struct {
	img  *ebiten.Image
	last *VideoFrame
}

// NewFrameCanvas creates a canvas for the given source.
func NewFrameCanvas(src *MediaSource) *FrameCanvas {
	w, h := src.Width, src.Height
	if w <= 0 || h <= 0 {
		w, h = 1, 1
	}
	return &FrameCanvas{img: ebiten.NewImage(w, h)}
}

// Update uploads the frame's pixels unless the canvas already shows that
// frame, and returns the image. A nil frame returns the last contents.
func (c *FrameCanvas) Update(frame *VideoFrame) *ebiten.Image {
	if frame == nil || frame == c.last {
		return c.img
	}
	c.img.WritePixels(frame.Data)
	c.last = frame
	return c.img
}

// Image returns the canvas contents without uploading anything.
func (c *FrameCanvas) Image() *ebiten.Image { return c.img }

// Draw scales the frame into the viewport with [ebiten.FilterLinear],
// taking as much space as possible while preserving the aspect ratio.
//
// Extra viewport space is left untouched, so black bars are whatever the
// host drew underneath.
//
// Common usage:
//
//	frame := player.CurrentFrame()
//	emvid.Draw(screen, canvas.Update(frame))
func Draw(viewport, frame *ebiten.Image) {
	geom, filter := CalcProjection(viewport, frame)
	var opts ebiten.DrawImageOptions
	opts.GeoM = geom
	opts.Filter = filter
	viewport.DrawImage(frame, &opts)
}

// CalcProjection returns the GeoM and the recommended ebiten.Filter to
// project the frame into the given viewport. If you don't need the specific
// parameters, see [Draw]() instead.
func CalcProjection(viewport, frame *ebiten.Image) (ebiten.GeoM, ebiten.Filter) {
	frameBounds := frame.Bounds()
	viewBounds := viewport.Bounds()
	vwWidth, vwHeight := viewBounds.Dx(), viewBounds.Dy()
	frWidth, frHeight := frameBounds.Dx(), frameBounds.Dy()

	tx, ty := float64(viewBounds.Min.X), float64(viewBounds.Min.Y)

	var geom ebiten.GeoM
	filter := ebiten.FilterLinear
	wf, hf := float64(vwWidth)/float64(frWidth), float64(vwHeight)/float64(frHeight)
	sf := min(wf, hf)
	if sf == 1.0 {
		offx := (float64(vwWidth) - float64(frWidth)) / 2
		offy := (float64(vwHeight) - float64(frHeight)) / 2
		geom.Translate(tx+offx, ty+offy)
	} else {
		sfrWidth := float64(frWidth) * sf
		sfrHeight := float64(frHeight) * sf
		geom.Scale(sf, sf)
		geom.Translate(tx+(float64(vwWidth)-sfrWidth)/2, ty+(float64(vwHeight)-sfrHeight)/2)
	}
	return geom, filter
}
