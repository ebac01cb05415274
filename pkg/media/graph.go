// Package media wires the session's audio graph: microphone and system
// audio tracks are mixed into one output track pulled by the encoder.
package media

import (
	"sync"

	"github.com/gopxl/beep"
)

// Graph mixes any number of stereo sources into one output track.
type Graph struct {
	mu    sync.Mutex
	mixer beep.Mixer
	rate  int
	buf   [][2]float64
}

func NewGraph(sampleRate int) *Graph {
	return &Graph{rate: sampleRate}
}

func (g *Graph) SampleRate() int { return g.rate }

// AddTrack connects a source to the mix.
func (g *Graph) AddTrack(s beep.Streamer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.mixer.Add(s)
}

// Read pulls len(out)/2 stereo frames from the mix and converts them to
// interleaved int16 PCM. It always fills out completely, the mixer keeps
// streaming silence when sources drain.
func (g *Graph) Read(out []int16) int {
	frames := len(out) / 2
	g.mu.Lock()
	defer g.mu.Unlock()
	if cap(g.buf) < frames {
		g.buf = make([][2]float64, frames)
	}
	buf := g.buf[:frames]
	for i := range buf {
		buf[i] = [2]float64{}
	}
	g.mixer.Stream(buf)
	for i, f := range buf {
		out[i*2] = toPCM(f[0])
		out[i*2+1] = toPCM(f[1])
	}
	return frames * 2
}

// Close detaches all sources.
func (g *Graph) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.mixer.Clear()
}

// toPCM converts one float sample with a soft limiter before the hard clip,
// so summed tracks saturate instead of wrapping.
func toPCM(v float64) int16 {
	if v > 0.8 {
		v = 0.8 + 0.2*(1.0-1.0/(1.0+(v-0.8)*5.0))
	} else if v < -0.8 {
		v = -0.8 - 0.2*(1.0-1.0/(1.0+(-v-0.8)*5.0))
	}
	if v > 1.0 {
		v = 1.0
	} else if v < -1.0 {
		v = -1.0
	}
	return int16(v * 32767)
}
