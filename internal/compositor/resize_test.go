package compositor

import (
	"image"
	"testing"
)

func TestFitWithinDisabled(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 500, 300))
	if out := FitWithin(img, 0); out != img {
		t.Fatal("expected identity when the clamp is disabled")
	}
}

func TestFitWithinAlreadySmall(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 100, 60))
	if out := FitWithin(img, 100); out != img {
		t.Fatal("expected identity when the image already fits")
	}
}

func TestFitWithinScalesDownKeepingAspect(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 200, 100))

	out := FitWithin(img, 50)

	if got := out.Bounds().Dx(); got != 50 {
		t.Fatalf("expected width 50, got %d", got)
	}
	if got := out.Bounds().Dy(); got != 25 {
		t.Fatalf("expected height 25, got %d", got)
	}
}
