// Package frame provides a bounds-checked accessor over interleaved 8-bit pixel buffers.
//
// A Frame describes a buffer by width, height, channel count and row stride.
// The stride may exceed width*channels when rows are padded. All pixel access
// goes through At/Set and friends, which ignore coordinates outside the buffer.
package frame

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

// Channels is the channel count of video frames handled by the engine (BGR).
const Channels = 3

// ErrInvalidFrame is returned when a buffer does not match the described geometry.
var ErrInvalidFrame = errors.New("invalid frame geometry")

// Frame is a mutable view over an interleaved pixel buffer.
// A Frame never owns the memory it points at.
type Frame struct {
	data     []byte
	width    int
	height   int
	channels int
	stride   int
}

// New wraps a 3-channel BGR buffer with the given row stride.
func New(data []byte, width, height, stride int) (*Frame, error) {
	return NewWithChannels(data, width, height, Channels, stride)
}

// NewWithChannels wraps a buffer with an arbitrary channel count (1, 3 or 4).
func NewWithChannels(data []byte, width, height, channels, stride int) (*Frame, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: size %dx%d", ErrInvalidFrame, width, height)
	}
	if channels != 1 && channels != 3 && channels != 4 {
		return nil, fmt.Errorf("%w: %d channels", ErrInvalidFrame, channels)
	}
	if stride < width*channels {
		return nil, fmt.Errorf("%w: stride %d < %d", ErrInvalidFrame, stride, width*channels)
	}
	need := stride*(height-1) + width*channels
	if len(data) < need {
		return nil, fmt.Errorf("%w: buffer has %d bytes, need %d", ErrInvalidFrame, len(data), need)
	}

	return &Frame{
		data:     data,
		width:    width,
		height:   height,
		channels: channels,
		stride:   stride,
	}, nil
}

// FromMat returns a view sharing memory with an 8-bit Mat.
// Writes through the view modify the Mat.
func FromMat(m *gocv.Mat) (*Frame, error) {
	if m == nil || m.Empty() {
		return nil, fmt.Errorf("%w: empty mat", ErrInvalidFrame)
	}
	if !m.IsContinuous() {
		return nil, fmt.Errorf("%w: mat is not continuous", ErrInvalidFrame)
	}
	switch m.Type() {
	case gocv.MatTypeCV8UC1, gocv.MatTypeCV8UC3, gocv.MatTypeCV8UC4:
	default:
		return nil, fmt.Errorf("%w: unsupported mat type %v", ErrInvalidFrame, m.Type())
	}

	data, err := m.DataPtrUint8()
	if err != nil {
		return nil, fmt.Errorf("map mat data: %w", err)
	}

	return NewWithChannels(data, m.Cols(), m.Rows(), m.Channels(), m.Step())
}

// Width returns the frame width in pixels.
func (f *Frame) Width() int { return f.width }

// Height returns the frame height in pixels.
func (f *Frame) Height() int { return f.height }

// Channels returns the number of interleaved channels per pixel.
func (f *Frame) Channels() int { return f.channels }

// Stride returns the number of bytes per row.
func (f *Frame) Stride() int { return f.stride }

// Bytes returns the underlying buffer.
func (f *Frame) Bytes() []byte { return f.data }

// Contains reports whether (x, y) addresses a pixel of the frame.
func (f *Frame) Contains(x, y int) bool {
	return x >= 0 && y >= 0 && x < f.width && y < f.height
}

// Offset returns the byte offset of channel 0 at (x, y), or -1 when outside the frame.
func (f *Frame) Offset(x, y int) int {
	if !f.Contains(x, y) {
		return -1
	}
	return y*f.stride + x*f.channels
}

// At returns channel c of pixel (x, y). Out-of-range access returns 0.
func (f *Frame) At(x, y, c int) uint8 {
	off := f.Offset(x, y)
	if off < 0 || c < 0 || c >= f.channels {
		return 0
	}
	return f.data[off+c]
}

// Set writes channel c of pixel (x, y). It reports false and writes nothing
// when the coordinates or channel are out of range.
func (f *Frame) Set(x, y, c int, v uint8) bool {
	off := f.Offset(x, y)
	if off < 0 || c < 0 || c >= f.channels {
		return false
	}
	f.data[off+c] = v
	return true
}

// Pixel returns the channels of pixel (x, y).
func (f *Frame) Pixel(x, y int) ([]uint8, bool) {
	off := f.Offset(x, y)
	if off < 0 {
		return nil, false
	}
	return f.data[off : off+f.channels : off+f.channels], true
}

// Row returns the pixel bytes of row y without padding.
func (f *Frame) Row(y int) []uint8 {
	if y < 0 || y >= f.height {
		return nil
	}
	start := y * f.stride
	return f.data[start : start+f.width*f.channels]
}

// Fill sets every pixel to the given channel values.
func (f *Frame) Fill(px ...uint8) {
	if len(px) != f.channels {
		return
	}
	for y := 0; y < f.height; y++ {
		row := f.Row(y)
		for i := 0; i < len(row); i += f.channels {
			copy(row[i:i+f.channels], px)
		}
	}
}

// Clone returns a deep copy with a tightly packed stride.
func (f *Frame) Clone() *Frame {
	stride := f.width * f.channels
	data := make([]byte, stride*f.height)
	for y := 0; y < f.height; y++ {
		copy(data[y*stride:(y+1)*stride], f.Row(y))
	}
	return &Frame{
		data:     data,
		width:    f.width,
		height:   f.height,
		channels: f.channels,
		stride:   stride,
	}
}

// Equal reports whether both frames have the same geometry and pixel values.
// Row padding is not compared.
func (f *Frame) Equal(o *Frame) bool {
	if f.width != o.width || f.height != o.height || f.channels != o.channels {
		return false
	}
	for y := 0; y < f.height; y++ {
		a, b := f.Row(y), o.Row(y)
		for i := range a {
			if a[i] != b[i] {
				return false
			}
		}
	}
	return true
}

// ToMat copies the frame into a new contiguous Mat.
// The caller is responsible for closing the returned Mat.
func (f *Frame) ToMat() (gocv.Mat, error) {
	mt := gocv.MatTypeCV8UC3
	switch f.channels {
	case 1:
		mt = gocv.MatTypeCV8UC1
	case 4:
		mt = gocv.MatTypeCV8UC4
	}

	mat := gocv.NewMatWithSize(f.height, f.width, mt)
	dst, err := FromMat(&mat)
	if err != nil {
		mat.Close()
		return gocv.NewMat(), err
	}
	for y := 0; y < f.height; y++ {
		copy(dst.Row(y), f.Row(y))
	}
	return mat, nil
}

// CopyFromMat overwrites the frame pixels with the contents of m.
// The Mat must have the same size and channel count.
func (f *Frame) CopyFromMat(m *gocv.Mat) error {
	src, err := FromMat(m)
	if err != nil {
		return err
	}
	if src.width != f.width || src.height != f.height || src.channels != f.channels {
		return fmt.Errorf("%w: mat %dx%dx%d does not match frame %dx%dx%d", ErrInvalidFrame,
			src.width, src.height, src.channels, f.width, f.height, f.channels)
	}
	for y := 0; y < f.height; y++ {
		copy(f.Row(y), src.Row(y))
	}
	return nil
}
