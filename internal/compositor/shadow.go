package compositor

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
)

// Shadow tuning. These are design constants, not request parameters: the
// margin is twice the offset so the blurred shadow is never clipped at the
// canvas edge.
const (
	shadowAlpha     = 180 // black at ~70% opacity
	shadowBlurSigma = 15.0
	canvasMargin    = 30
	shadowOffset    = canvasMargin / 2
)

// AddShadow composites a soft drop shadow behind the subject. The input must
// already have its background removed; its alpha channel is the shadow
// stencil. The result is a new canvas enlarged by canvasMargin on each axis,
// with the shadow offset down-and-right and the untouched foreground pasted
// over it at the origin.
func AddShadow(fg *image.NRGBA) *image.NRGBA {
	bounds := fg.Bounds()

	// The stencil is extracted before anything else touches the image.
	stencil := alphaMask(fg)

	layer := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	shadowColor := image.NewUniform(color.NRGBA{A: shadowAlpha})
	draw.DrawMask(layer, layer.Bounds(), shadowColor, image.Point{}, stencil, bounds.Min, draw.Src)

	blurred := imaging.Blur(layer, shadowBlurSigma)

	canvas := imaging.New(bounds.Dx()+canvasMargin, bounds.Dy()+canvasMargin, color.NRGBA{})
	canvas = imaging.Overlay(canvas, blurred, image.Pt(shadowOffset, shadowOffset), 1.0)
	canvas = imaging.Overlay(canvas, fg, image.Pt(0, 0), 1.0)
	return canvas
}

// alphaMask copies the alpha plane of img into a single-channel stencil.
func alphaMask(img *image.NRGBA) *image.Alpha {
	bounds := img.Bounds()
	mask := image.NewAlpha(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		si := img.PixOffset(bounds.Min.X, y)
		mi := mask.PixOffset(bounds.Min.X, y)
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			mask.Pix[mi] = img.Pix[si+3]
			si += 4
			mi++
		}
	}
	return mask
}
