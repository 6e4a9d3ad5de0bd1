package mask

import (
	"image"
	"image/color"
	"testing"

	"gocv.io/x/gocv"
)

var greenRange = ColorRange{HueMin: 50, HueMax: 70, SatMin: 100, SatMax: 255}

func TestColorRange_Disabled(t *testing.T) {
	tests := []struct {
		name string
		r    ColorRange
		want bool
	}{
		{name: "all zero", r: ColorRange{}, want: true},
		{name: "hue max set", r: ColorRange{HueMax: 180}, want: false},
		{name: "sat min set", r: ColorRange{SatMin: 1}, want: false},
		{name: "full range", r: ColorRange{0, 180, 50, 255}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.Disabled(); got != tt.want {
				t.Errorf("Disabled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestColorRange_Contains(t *testing.T) {
	tests := []struct {
		name    string
		h, s, v int
		want    bool
	}{
		{name: "inside", h: 60, s: 200, v: 200, want: true},
		{name: "hue boundary inclusive", h: 70, s: 200, v: 200, want: true},
		{name: "hue outside", h: 71, s: 200, v: 200, want: false},
		{name: "saturation low", h: 60, s: 99, v: 200, want: false},
		{name: "value too dark", h: 60, s: 200, v: 29, want: false},
		{name: "value min inclusive", h: 60, s: 200, v: 30, want: true},
		{name: "value max", h: 60, s: 200, v: 255, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := greenRange.Contains(tt.h, tt.s, tt.v); got != tt.want {
				t.Errorf("Contains(%d,%d,%d) = %v, want %v", tt.h, tt.s, tt.v, got, tt.want)
			}
		})
	}
}

func TestMasker_SolidFrames(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	m := NewMasker()
	defer m.Close()

	tests := []struct {
		name     string
		bgr      gocv.Scalar
		wantFull bool
	}{
		{name: "bright green matches", bgr: gocv.NewScalar(0, 255, 0, 0), wantFull: true},
		{name: "gray has no saturation", bgr: gocv.NewScalar(128, 128, 128, 0), wantFull: false},
		{name: "dark green below value floor", bgr: gocv.NewScalar(0, 20, 0, 0), wantFull: false},
		{name: "red outside hue", bgr: gocv.NewScalar(0, 0, 255, 0), wantFull: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := gocv.NewMatWithSizeFromScalar(tt.bgr, 120, 160, gocv.MatTypeCV8UC3)
			defer frame.Close()

			out := m.Compute(frame, greenRange)
			defer out.Close()

			if out.Rows() != 120 || out.Cols() != 160 || out.Channels() != 1 {
				t.Fatalf("mask geometry %dx%dx%d, want 160x120x1", out.Cols(), out.Rows(), out.Channels())
			}

			nonZero := gocv.CountNonZero(out)
			if tt.wantFull && nonZero != 120*160 {
				t.Errorf("nonZero = %d, want full mask", nonZero)
			}
			if !tt.wantFull && nonZero != 0 {
				t.Errorf("nonZero = %d, want empty mask", nonZero)
			}
		})
	}
}

func TestMasker_RemovesSpecksKeepsBlob(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	m := NewMasker()
	defer m.Close()

	frame := gocv.NewMatWithSize(240, 320, gocv.MatTypeCV8UC3)
	defer frame.Close()
	frame.SetTo(gocv.NewScalar(0, 0, 0, 0))

	green := color.RGBA{G: 255}
	// speck smaller than the opening element
	gocv.Rectangle(&frame, image.Rect(10, 10, 14, 14), green, -1)
	// pointer blob
	gocv.Circle(&frame, image.Pt(200, 120), 30, green, -1)

	out := m.Compute(frame, greenRange)
	defer out.Close()

	if v := out.GetUCharAt(12, 12); v != 0 {
		t.Errorf("speck pixel = %d, want 0 after opening", v)
	}
	if v := out.GetUCharAt(120, 200); v != 255 {
		t.Errorf("blob center = %d, want 255", v)
	}
}

func TestMasker_BinaryOutput(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	m := NewMasker()
	defer m.Close()

	frame := gocv.NewMatWithSize(100, 100, gocv.MatTypeCV8UC3)
	defer frame.Close()
	frame.SetTo(gocv.NewScalar(40, 40, 40, 0))
	gocv.Circle(&frame, image.Pt(50, 50), 25, color.RGBA{G: 200, B: 30}, -1)

	out := m.Compute(frame, greenRange)
	defer out.Close()

	for y := 0; y < out.Rows(); y++ {
		for x := 0; x < out.Cols(); x++ {
			if v := out.GetUCharAt(y, x); v != 0 && v != 255 {
				t.Fatalf("mask value at (%d,%d) = %d, want 0 or 255", x, y, v)
			}
		}
	}
}

func TestMasker_ClosedReturnsEmpty(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	m := NewMasker()
	m.Close()
	m.Close()

	frame := gocv.NewMatWithSize(10, 10, gocv.MatTypeCV8UC3)
	defer frame.Close()

	out := m.Compute(frame, greenRange)
	defer out.Close()
	if !out.Empty() {
		t.Error("Compute after Close should return an empty mat")
	}
}
