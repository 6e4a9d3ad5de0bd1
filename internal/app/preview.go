package app

import (
	"sync"

	"github.com/ayusman/pointerzone/internal/log"
	"gocv.io/x/gocv"
)

// previewBuffer keeps the latest annotated frame as JPEG and wakes viewers
// when a new one arrives. Frames are only encoded while someone watches.
type previewBuffer struct {
	mu      sync.Mutex
	latest  []byte
	seq     uint64
	viewers map[chan struct{}]struct{}
	closed  bool
}

func (p *previewBuffer) init() {
	p.viewers = make(map[chan struct{}]struct{})
}

func (p *previewBuffer) publish(frame *gocv.Mat) {
	p.mu.Lock()
	watched := len(p.viewers) > 0 && !p.closed
	p.mu.Unlock()
	if !watched {
		return
	}

	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		log.Warn("[APP] encoding preview: %v", err)
		return
	}
	data := append([]byte(nil), buf.GetBytes()...)
	buf.Close()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.latest = data
	p.seq++
	for ch := range p.viewers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (p *previewBuffer) frame() ([]byte, uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latest, p.seq
}

func (p *previewBuffer) watch() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	p.viewers[ch] = struct{}{}
	p.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			if _, ok := p.viewers[ch]; ok {
				delete(p.viewers, ch)
				close(ch)
			}
			p.mu.Unlock()
		})
	}
}

func (p *previewBuffer) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	for ch := range p.viewers {
		delete(p.viewers, ch)
		close(ch)
	}
}

// LatestFrame returns the most recent annotated frame as JPEG together with
// its sequence number. It is nil until a viewer has been watching.
func (a *App) LatestFrame() ([]byte, uint64) {
	return a.preview.frame()
}

// WatchFrames registers a preview viewer. The channel receives a signal for
// every new frame and is closed by cancel or when the app closes.
func (a *App) WatchFrames() (<-chan struct{}, func()) {
	return a.preview.watch()
}
