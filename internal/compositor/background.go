package compositor

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"
)

// Color is the requested background fill.
type Color int

const (
	// ColorNone keeps the transparent background.
	ColorNone Color = iota
	ColorWhite
	ColorBlack
)

// ParseColor validates the background_color form value. The empty string
// means no fill; anything other than white or black (case-insensitive) is a
// client error.
func ParseColor(value string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return ColorNone, nil
	case "white":
		return ColorWhite, nil
	case "black":
		return ColorBlack, nil
	default:
		return ColorNone, fmt.Errorf("background_color must be 'white' or 'black'")
	}
}

// String returns the form-value spelling, empty for ColorNone.
func (c Color) String() string {
	switch c {
	case ColorWhite:
		return "white"
	case ColorBlack:
		return "black"
	default:
		return ""
	}
}

// ApplyBackground flattens img onto a solid fill. ColorNone is the identity:
// the input is returned untouched with its transparency preserved. Otherwise
// the result is fully opaque, so the PNG encoder writes it without an alpha
// channel.
func ApplyBackground(img *image.NRGBA, c Color) image.Image {
	if c == ColorNone {
		return img
	}

	fill := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	if c == ColorBlack {
		fill = color.NRGBA{A: 255}
	}

	bounds := img.Bounds()
	background := imaging.New(bounds.Dx(), bounds.Dy(), fill)
	return imaging.Overlay(background, img, image.Pt(0, 0), 1.0)
}
