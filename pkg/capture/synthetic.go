package capture

import (
	"image"
	"image/color"
	"sync/atomic"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"golang.org/x/image/draw"
)

// Synthetic is an Acquirer producing generated sources: a gradient display
// with a moving bar, a checkerboard camera, and sine test tones. It stands
// in wherever no OS capture back end is wired (headless runs, tests).
type Synthetic struct {
	DisplayW, DisplayH int
	CameraW, CameraH   int
	SampleRate         int

	// Deny simulates a refused permission prompt.
	Deny bool

	// WarmupFrames makes sources undecodable for the first n frames.
	WarmupFrames int
}

func NewSynthetic() *Synthetic {
	return &Synthetic{
		DisplayW: 1920, DisplayH: 1080,
		CameraW: 1280, CameraH: 720,
		SampleRate: 48000,
	}
}

func (s *Synthetic) AcquireCamera() (*Streams, error) {
	if s.Deny {
		return nil, ErrDenied
	}
	tone, err := generators.SineTone(beep.SampleRate(s.SampleRate), 440)
	if err != nil {
		return nil, err
	}
	return &Streams{
		Video: NewVideoTrack(patternSource(checker(s.CameraW, s.CameraH), s.WarmupFrames)),
		Audio: NewAudioTrack(tone),
	}, nil
}

func (s *Synthetic) AcquireDisplay() (*Streams, error) {
	if s.Deny {
		return nil, ErrDenied
	}
	tone, err := generators.SineTone(beep.SampleRate(s.SampleRate), 220)
	if err != nil {
		return nil, err
	}
	return &Streams{
		Video: NewVideoTrack(barSource(s.DisplayW, s.DisplayH, s.WarmupFrames)),
		Audio: NewAudioTrack(tone),
	}, nil
}

// patternSource serves the same frame forever after the warmup.
func patternSource(img *image.RGBA, warmup int) FrameFunc {
	var n int64
	return func() (*image.RGBA, bool) {
		if atomic.AddInt64(&n, 1) <= int64(warmup) {
			return nil, false
		}
		return img, true
	}
}

// barSource redraws a vertical bar sweeping over a gradient each pull.
func barSource(w, h, warmup int) FrameFunc {
	base := gradient(w, h)
	cur := image.NewRGBA(base.Rect)
	var n int64
	return func() (*image.RGBA, bool) {
		i := atomic.AddInt64(&n, 1)
		if i <= int64(warmup) {
			return nil, false
		}
		copy(cur.Pix, base.Pix)
		x := int(i*4) % w
		for y := 0; y < h; y++ {
			cur.SetRGBA(x, y, color.RGBA{R: 255, A: 255})
		}
		return cur, true
	}
}

func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(x * 255 / w),
				G: uint8(y * 255 / h),
				B: 128,
				A: 255,
			})
		}
	}
	return img
}

const checkerCell = 32

func checker(w, h int) *image.RGBA {
	// render small, then scale to the requested native size
	img := image.NewRGBA(image.Rect(0, 0, checkerCell*8, checkerCell*8))
	for y := 0; y < img.Rect.Dy(); y++ {
		for x := 0; x < img.Rect.Dx(); x++ {
			c := color.RGBA{B: 192, A: 255}
			if (x/checkerCell+y/checkerCell)%2 == 0 {
				c = color.RGBA{R: 192, G: 192, B: 192, A: 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(out, out.Bounds(), img, img.Bounds(), draw.Src, nil)
	return out
}
