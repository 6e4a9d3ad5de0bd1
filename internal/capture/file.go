package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/ayusman/pointerzone/internal/log"
	ffmpeg "github.com/u2takey/ffmpeg-go"
	"gocv.io/x/gocv"
)

// FileSource decodes a video file with ffmpeg into raw BGR frames.
// Frames are scaled to the configured size and resampled to the configured rate.
type FileSource struct {
	path   string
	width  int
	height int
	loop   bool

	mu      sync.Mutex
	fps     int
	running bool
	cancel  context.CancelFunc
	reader  *io.PipeReader
	done    chan struct{}
	buf     []byte
}

// NewFileSource creates a source for the video at path. When loop is set the
// file restarts after its last frame.
func NewFileSource(path string, opts Options, loop bool) *FileSource {
	opts = opts.withDefaults()
	return &FileSource{
		path:   path,
		width:  opts.Width,
		height: opts.Height,
		fps:    opts.FPS,
		loop:   loop,
		buf:    make([]byte, opts.Width*opts.Height*3),
	}
}

// Path returns the video file path.
func (s *FileSource) Path() string {
	return s.path
}

// Open starts the decoder.
func (s *FileSource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	if _, err := os.Stat(s.path); err != nil {
		return fmt.Errorf("open video: %w", err)
	}

	s.start()
	s.running = true
	return nil
}

// start launches ffmpeg writing bgr24 frames into a pipe. Must hold s.mu.
func (s *FileSource) start() {
	ctx, cancel := context.WithCancel(context.Background())
	r, w := io.Pipe()

	var stderr io.Writer = io.Discard
	if log.Enabled(log.LevelDebug) {
		stderr = os.Stderr
	}

	cmd := ffmpeg.Input(s.path).
		Output("pipe:1", ffmpeg.KwArgs{
			"format":  "rawvideo",
			"pix_fmt": "bgr24",
			"s":       fmt.Sprintf("%dx%d", s.width, s.height),
			"r":       strconv.Itoa(s.fps),
		}).
		WithOutput(w).
		WithErrorOutput(stderr)
	cmd.Context = ctx

	done := make(chan struct{})
	go func() {
		defer close(done)
		err := cmd.Run()
		if err != nil && ctx.Err() == nil {
			log.Warn("ffmpeg %s: %v", s.path, err)
		}
		if err == nil {
			err = io.EOF
		}
		w.CloseWithError(err)
	}()

	s.cancel = cancel
	s.reader = r
	s.done = done
}

// stop terminates ffmpeg and waits for it. Must hold s.mu.
func (s *FileSource) stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.reader.Close()
	<-s.done
	s.cancel = nil
	s.reader = nil
	s.done = nil
}

// Close stops the decoder.
func (s *FileSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stop()
	s.running = false
	return nil
}

// ReadFrame returns the next decoded frame.
// The caller is responsible for closing the returned Mat.
func (s *FileSource) ReadFrame() (*gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil, ErrCameraNotOpen
	}

	_, err := io.ReadFull(s.reader, s.buf)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		if !s.loop {
			return nil, ErrEndOfStream
		}
		log.Debug("restarting %s", s.path)
		s.stop()
		s.start()
		_, err = io.ReadFull(s.reader, s.buf)
	}
	if err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}

	view, err := gocv.NewMatFromBytes(s.height, s.width, gocv.MatTypeCV8UC3, s.buf)
	if err != nil {
		return nil, err
	}
	defer view.Close()

	mat := view.Clone()
	return &mat, nil
}

// SetFPS changes the output rate. It takes effect when the decoder restarts.
// Values less than or equal to 0 are ignored.
func (s *FileSource) SetFPS(fps int) {
	if fps <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fps = fps
}

// FPS returns the output frame rate.
func (s *FileSource) FPS() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fps
}

// IsOpen reports whether the decoder is running.
func (s *FileSource) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
