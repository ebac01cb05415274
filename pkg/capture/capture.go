// Package capture defines the stream acquisition contract the recording
// session depends on. How permission prompts or OS capture back ends work
// is up to the Acquirer implementation.
package capture

import (
	"errors"
	"image"
	"sync"

	"github.com/gopxl/beep"
)

var (
	// ErrDenied is returned when the user refuses a capture permission.
	ErrDenied = errors.New("capture permission denied")
	// ErrFailed is returned on a device error during acquisition.
	ErrFailed = errors.New("capture device failed")
)

// Acquirer hands out camera and display streams.
type Acquirer interface {
	// AcquireCamera returns the webcam video plus the microphone track.
	AcquireCamera() (*Streams, error)
	// AcquireDisplay returns the captured screen video and, when the
	// platform provides one, the system audio track.
	AcquireDisplay() (*Streams, error)
}

// Streams is one acquired source pair. Audio may be nil for displays.
type Streams struct {
	Video *VideoTrack
	Audio *AudioTrack
}

func (s *Streams) Stop() {
	if s == nil {
		return
	}
	if s.Video != nil {
		s.Video.Stop()
	}
	if s.Audio != nil {
		s.Audio.Stop()
	}
}

// FrameFunc yields the current raw frame of a track. The bool reports
// whether the frame is decodable yet; callers skip the frame otherwise.
type FrameFunc func() (*image.RGBA, bool)

// VideoTrack is a pull source of raw RGBA frames.
type VideoTrack struct {
	frame FrameFunc

	mu      sync.Mutex
	stopped bool
	onEnded []func()
}

func NewVideoTrack(frame FrameFunc) *VideoTrack {
	return &VideoTrack{frame: frame}
}

// Frame returns the track's current frame.
func (t *VideoTrack) Frame() (*image.RGBA, bool) {
	if t.Stopped() {
		return nil, false
	}
	return t.frame()
}

// Size reports the native resolution of the current frame, or zeros when
// the track is not decodable yet.
func (t *VideoTrack) Size() (w, h int) {
	img, ok := t.Frame()
	if !ok {
		return 0, 0
	}
	return img.Rect.Dx(), img.Rect.Dy()
}

// OnEnded registers a callback fired once when the track terminates,
// either by Stop or by an external end (the OS "stop sharing" action).
func (t *VideoTrack) OnEnded(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		go fn()
		return
	}
	t.onEnded = append(t.onEnded, fn)
}

// Stop terminates the track. Repeated calls are no-ops.
func (t *VideoTrack) Stop() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.stopped = true
	ended := t.onEnded
	t.onEnded = nil
	t.mu.Unlock()
	for _, fn := range ended {
		fn()
	}
}

func (t *VideoTrack) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// AudioTrack is a pull source of stereo samples.
type AudioTrack struct {
	streamer beep.Streamer

	mu      sync.Mutex
	stopped bool
}

func NewAudioTrack(s beep.Streamer) *AudioTrack {
	return &AudioTrack{streamer: s}
}

// Stream implements beep.Streamer. A stopped track drains to silence.
func (t *AudioTrack) Stream(samples [][2]float64) (int, bool) {
	if t.Stopped() {
		return 0, false
	}
	return t.streamer.Stream(samples)
}

// Err implements beep.Streamer.
func (t *AudioTrack) Err() error { return nil }

func (t *AudioTrack) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
}

func (t *AudioTrack) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}
