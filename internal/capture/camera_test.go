package capture

import (
	"errors"
	"image"
	"testing"

	"gocv.io/x/gocv"
)

func TestOptions_Defaults(t *testing.T) {
	tests := []struct {
		name string
		in   Options
		want Options
	}{
		{name: "zero", in: Options{}, want: Options{Width: DefaultWidth, Height: DefaultHeight, FPS: DefaultFPS}},
		{name: "negative", in: Options{Width: -1, Height: -1, FPS: -1}, want: Options{Width: DefaultWidth, Height: DefaultHeight, FPS: DefaultFPS}},
		{name: "explicit", in: Options{Width: 320, Height: 240, FPS: 30}, want: Options{Width: 320, Height: 240, FPS: 30}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.withDefaults(); got != tt.want {
				t.Errorf("withDefaults() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNewCamera_Closed(t *testing.T) {
	cam := NewCamera(1, Options{FPS: 24})

	if cam.IsOpen() {
		t.Error("camera should not be open before Open()")
	}
	if got := cam.FPS(); got != 24 {
		t.Errorf("FPS() = %d, want 24", got)
	}
	if _, err := cam.ReadFrame(); !errors.Is(err, ErrCameraNotOpen) {
		t.Errorf("ReadFrame() error = %v, want ErrCameraNotOpen", err)
	}
	if err := cam.Close(); err != nil {
		t.Errorf("Close() before Open() = %v, want nil", err)
	}
}

func TestCamera_SetFPS(t *testing.T) {
	cam := NewCamera(0, Options{})

	// Steps run in order; non-positive values keep the previous rate.
	steps := []struct {
		set, want int
	}{
		{10, 10},
		{30, 30},
		{1, 1},
		{0, 1},
		{-5, 1},
	}
	for _, s := range steps {
		cam.SetFPS(s.set)
		if got := cam.FPS(); got != s.want {
			t.Errorf("SetFPS(%d): FPS() = %d, want %d", s.set, got, s.want)
		}
	}
}

func TestNormalizeFrame(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	size := image.Pt(64, 48)
	tests := []struct {
		name    string
		rows    int
		cols    int
		matType gocv.MatType
	}{
		{"bgr same size", 48, 64, gocv.MatTypeCV8UC3},
		{"bgr larger", 96, 128, gocv.MatTypeCV8UC3},
		{"gray", 48, 64, gocv.MatTypeCV8UC1},
		{"bgra smaller", 24, 32, gocv.MatTypeCV8UC4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := gocv.NewMatWithSize(tt.rows, tt.cols, tt.matType)
			defer src.Close()

			out := normalizeFrame(src, size)
			defer out.Close()

			if out.Cols() != size.X || out.Rows() != size.Y {
				t.Errorf("size = %dx%d, want %dx%d", out.Cols(), out.Rows(), size.X, size.Y)
			}
			if out.Channels() != 3 {
				t.Errorf("channels = %d, want 3", out.Channels())
			}
		})
	}
}

func TestCamera_OpenClose_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cam := NewCamera(0, Options{Width: 320, Height: 240})
	if err := cam.Open(); err != nil {
		t.Skipf("skipping test - camera not available: %v", err)
	}
	if !cam.IsOpen() {
		t.Error("IsOpen() should return true after Open()")
	}

	mat, err := cam.ReadFrame()
	if err != nil {
		t.Errorf("ReadFrame() failed: %v", err)
	} else {
		if mat.Cols() != 320 || mat.Rows() != 240 {
			t.Errorf("frame = %dx%d, want 320x240", mat.Cols(), mat.Rows())
		}
		mat.Close()
	}

	if err := cam.Close(); err != nil {
		t.Errorf("Close() failed: %v", err)
	}
	if cam.IsOpen() {
		t.Error("IsOpen() should return false after Close()")
	}
}
