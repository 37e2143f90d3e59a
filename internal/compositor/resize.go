package compositor

import (
	"image"

	xdraw "golang.org/x/image/draw"
)

// FitWithin scales img down so its longest side is at most maxDim, keeping
// the aspect ratio. It returns the input unchanged when maxDim is zero or
// the image already fits. Images are never scaled up.
func FitWithin(img *image.NRGBA, maxDim int) *image.NRGBA {
	if maxDim <= 0 {
		return img
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	longest := width
	if height > longest {
		longest = height
	}
	if longest <= maxDim {
		return img
	}

	ratio := float64(maxDim) / float64(longest)
	newWidth := int(float64(width) * ratio)
	newHeight := int(float64(height) * ratio)
	if newWidth < 1 {
		newWidth = 1
	}
	if newHeight < 1 {
		newHeight = 1
	}

	dst := image.NewNRGBA(image.Rect(0, 0, newWidth, newHeight))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, xdraw.Over, nil)
	return dst
}
