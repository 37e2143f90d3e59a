package compositor

import (
	"image"
	"image/color"
	"testing"
)

func TestParseColor(t *testing.T) {
	cases := []struct {
		in      string
		want    Color
		wantErr bool
	}{
		{"", ColorNone, false},
		{"white", ColorWhite, false},
		{"black", ColorBlack, false},
		{"WHITE", ColorWhite, false},
		{" Black ", ColorBlack, false},
		{"green", ColorNone, true},
		{"transparent", ColorNone, true},
	}

	for _, tc := range cases {
		got, err := ParseColor(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseColor(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseColor(%q): unexpected error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseColor(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestApplyBackgroundNoneIsIdentity(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	img.SetNRGBA(1, 1, color.NRGBA{R: 200, G: 10, B: 30, A: 128})

	out := ApplyBackground(img, ColorNone)

	same, ok := out.(*image.NRGBA)
	if !ok || same != img {
		t.Fatal("expected the identical image back for ColorNone")
	}
}

func TestApplyBackgroundWhiteFlattens(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255}) // opaque red
	img.SetNRGBA(1, 0, color.NRGBA{})               // fully transparent
	img.SetNRGBA(2, 0, color.NRGBA{G: 255, A: 128}) // half-transparent green

	out := ApplyBackground(img, ColorWhite)

	flat, ok := out.(*image.NRGBA)
	if !ok {
		t.Fatalf("expected *image.NRGBA, got %T", out)
	}
	if !flat.Opaque() {
		t.Fatal("expected fully opaque output")
	}

	if px := flat.NRGBAAt(0, 0); px.R != 255 || px.G != 0 || px.B != 0 {
		t.Fatalf("opaque subject pixel changed: %+v", px)
	}
	if px := flat.NRGBAAt(1, 0); px.R != 255 || px.G != 255 || px.B != 255 {
		t.Fatalf("transparent pixel should reveal white fill, got %+v", px)
	}

	// Half-transparent green over white: green channel stays saturated,
	// red/blue land near the midpoint.
	px := flat.NRGBAAt(2, 0)
	if px.G < 250 {
		t.Fatalf("expected saturated green channel, got %+v", px)
	}
	if px.R < 115 || px.R > 140 || px.B < 115 || px.B > 140 {
		t.Fatalf("expected blended red/blue near midpoint, got %+v", px)
	}
}

func TestApplyBackgroundBlackFlattens(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, G: 255, B: 255, A: 255})

	out := ApplyBackground(img, ColorBlack)

	flat, ok := out.(*image.NRGBA)
	if !ok {
		t.Fatalf("expected *image.NRGBA, got %T", out)
	}
	if px := flat.NRGBAAt(0, 0); px.R != 255 || px.A != 255 {
		t.Fatalf("opaque subject pixel changed: %+v", px)
	}
	if px := flat.NRGBAAt(1, 0); px.R != 0 || px.G != 0 || px.B != 0 || px.A != 255 {
		t.Fatalf("transparent pixel should reveal black fill, got %+v", px)
	}
}
