// Package encoder turns the composed video frames and the mixed audio
// track into the recording artifact's binary segments. Segments are
// delivered asynchronously, in order, through a chunk callback; their
// concatenation is the final container.
package encoder

import (
	"errors"
	"image"
	"time"
)

// The one negotiated encoding: PNG frame stream plus PCM/WAV audio,
// multiplexed into a zip container with an ffconcat manifest.
const (
	Codec = "png+pcm/zip"
	Ext   = "zip"
)

// ErrUnsupported is returned when the requested encoding cannot be
// initialized.
var ErrUnsupported = errors.New("encoder: unsupported encoding")

type (
	// Frame is one composed video frame.
	Frame struct {
		Image    *image.RGBA
		Duration time.Duration
	}
	// PCM is a slice of interleaved stereo samples.
	PCM struct {
		Samples  []int16
		Duration time.Duration
	}
)

// ChunkFunc receives every output segment in delivery order.
type ChunkFunc func(chunk []byte)

// Session is one encoder run bound to a single recording.
//
// RequestStop is cooperative: the session flushes whatever is buffered
// and closes Done when the artifact tail has been delivered. There is no
// hard abort of in-flight encoding.
type Session interface {
	WriteVideo(Frame)
	WriteAudio(PCM)
	RequestStop()
	Done() <-chan struct{}
	Err() error
}

type Options struct {
	Codec     string
	Fps       float64
	Frequency int
}

func (o *Options) validate() error {
	if o.Codec != "" && o.Codec != Codec {
		return ErrUnsupported
	}
	if o.Fps <= 0 || o.Frequency <= 0 {
		return ErrUnsupported
	}
	return nil
}

// chunkWriter forwards every write downstream as one owned segment.
// The zip layer writes strictly sequentially, so segment order equals
// container byte order.
type chunkWriter struct {
	emit ChunkFunc
	n    int64
}

func (w *chunkWriter) Write(p []byte) (int, error) {
	if len(p) > 0 {
		w.emit(append([]byte(nil), p...))
		w.n += int64(len(p))
	}
	return len(p), nil
}
