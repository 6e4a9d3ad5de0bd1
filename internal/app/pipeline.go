package app

import (
	"errors"
	"time"

	"github.com/ayusman/pointerzone/internal/capture"
	"github.com/ayusman/pointerzone/internal/log"
	"gocv.io/x/gocv"
)

// runPipeline is the frame loop. Every tick it reads a frame, runs it through
// the engine and publishes the annotated result to the preview.
//
// The tick rate follows scene activity: the camera rate while something
// moves, IdleFPS once the scene has been still for the idle timeout. The
// engine runs on every frame either way so hover state stays current.
func (a *App) runPipeline(stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	activeFPS := a.camera.FPS()
	if activeFPS <= 0 {
		activeFPS = capture.DefaultFPS
	}
	active := true

	ticker := time.NewTicker(time.Second / time.Duration(activeFPS))
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
		}

		frame, err := a.camera.ReadFrame()
		if errors.Is(err, capture.ErrEndOfStream) || errors.Is(err, capture.ErrNoFrames) {
			log.Info("[APP] frame source ended")
			return
		}
		if err != nil {
			log.Warn("[APP] reading frame: %v", err)
			continue
		}

		moving, changed := a.activity.Observe(frame)
		if moving != active {
			active = moving
			fps := activeFPS
			if !active {
				fps = min(IdleFPS, activeFPS)
			}
			ticker.Reset(time.Second / time.Duration(fps))

			a.mu.Lock()
			a.active = active
			a.fps = fps
			a.mu.Unlock()
			log.Debug("[APP] scene active=%v (%.2f%% changed), %d fps", active, changed, fps)
		}

		a.processFrame(frame)
		frame.Close()
	}
}

// processFrame runs one frame through the engine and the preview.
func (a *App) processFrame(frame *gocv.Mat) {
	if a.IsEnabled() {
		res := a.engine.Process(frame)
		a.mu.Lock()
		a.last = res
		a.mu.Unlock()
	}

	a.mu.Lock()
	a.frames++
	a.mu.Unlock()

	a.preview.publish(frame)
}
