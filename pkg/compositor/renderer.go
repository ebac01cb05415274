// Package compositor draws the display stream and the camera overlay into
// one off-screen surface, one frame per pacing tick, and hands each
// composed frame to a sink.
package compositor

import (
	"image"
	"image/draw"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/gg"

	"github.com/omnirec/omnirec/pkg/logger"
	"github.com/omnirec/omnirec/pkg/overlay"
)

// Source is a pull source of raw frames. The bool reports whether the
// frame is decodable yet.
type Source interface {
	Frame() (*image.RGBA, bool)
}

// FrameSink receives every composed frame together with its display time.
type FrameSink func(frame *image.RGBA, d time.Duration)

// Renderer runs a paced draw loop over a gg drawing surface.
// The loop is cooperative: Stop raises a flag observed at the top of the
// next tick, so cancellation is at most one tick late. A tick always runs
// to completion before the next one is scheduled.
type Renderer struct {
	fps    float64
	log    *logger.Logger
	active atomic.Bool
	done   chan struct{}

	display   Source
	camera    Source
	conf      func() overlay.Config
	container overlay.Bounds
	sink      FrameSink

	mu   sync.Mutex
	dc   *gg.Context
	w, h int
}

func NewRenderer(fps float64, log *logger.Logger) *Renderer {
	if fps <= 0 {
		fps = 30
	}
	return &Renderer{fps: fps, log: log}
}

// Start begins the draw loop. The conf accessor is re-read every tick,
// never cached, so concurrent gesture updates land on the next frame.
func (r *Renderer) Start(display, camera Source, conf func() overlay.Config, container overlay.Bounds, sink FrameSink) {
	if !r.active.CompareAndSwap(false, true) {
		return
	}
	r.display, r.camera, r.conf, r.container, r.sink = display, camera, conf, container, sink
	r.done = make(chan struct{})
	r.log.Info().Msgf("compositor started, %v fps, container %.0fx%.0f", r.fps, container.W, container.H)
	go r.loop()
}

// Stop requests the loop to end. The surface is not frozen synchronously;
// one more tick may still compose.
func (r *Renderer) Stop() {
	if r.active.CompareAndSwap(true, false) {
		<-r.done
		r.log.Info().Msg("compositor stopped")
	}
}

// Surface returns a copy of the last composed frame, or nil before the
// first frame.
func (r *Renderer) Surface() *image.RGBA {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dc == nil {
		return nil
	}
	return clone(r.dc.Image())
}

func (r *Renderer) loop() {
	interval := time.Duration(float64(time.Second) / r.fps)
	tick := time.NewTicker(interval)
	defer tick.Stop()
	defer close(r.done)
	for range tick.C {
		if !r.active.Load() {
			return
		}
		if r.renderOnce() && r.sink != nil {
			r.mu.Lock()
			frame := clone(r.dc.Image())
			r.mu.Unlock()
			r.sink(frame, interval)
		}
	}
}

// renderOnce composes one frame. It returns false when the display source
// has nothing decodable yet, which skips the frame without error.
func (r *Renderer) renderOnce() bool {
	base, ok := r.display.Frame()
	if !ok {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// recording resolution follows the capture resolution, the base
	// layer is never up- or downscaled
	w, h := base.Rect.Dx(), base.Rect.Dy()
	if r.dc == nil || w != r.w || h != r.h {
		r.dc = gg.NewContext(w, h)
		r.w, r.h = w, h
		r.log.Debug().Msgf("surface resized to %dx%d", w, h)
	}
	dc := r.dc

	dc.ClearWithColor(gg.RGB(0, 0, 0))
	dc.DrawImageEx(gg.ImageBufFromImage(base), gg.DrawImageOptions{
		DstWidth:  float64(w),
		DstHeight: float64(h),
	})

	conf := r.conf()
	if conf.Visible && !r.container.Empty() {
		if cam, ok := r.camera.Frame(); ok {
			r.drawOverlay(dc, cam, conf)
		}
	}
	return true
}

func (r *Renderer) drawOverlay(dc *gg.Context, cam *image.RGBA, conf overlay.Config) {
	// container pixels to surface pixels
	scaleX := float64(r.w) / r.container.W
	scaleY := float64(r.h) / r.container.H
	dstX := conf.Position.X * scaleX
	dstY := conf.Position.Y * scaleY
	dstW := conf.Size.W * scaleX
	dstH := conf.Size.H * scaleY
	if dstW <= 0 || dstH <= 0 {
		return
	}

	// zoom is a centered source crop: magnification by cropping, the
	// destination rectangle never changes
	zoom := math.Max(1, conf.Zoom)
	nw, nh := float64(cam.Rect.Dx()), float64(cam.Rect.Dy())
	cropW := nw / zoom
	cropH := nh / zoom
	cropX := (nw - cropW) / 2
	cropY := (nh - cropH) / 2

	dc.SetFillBrush(gg.NewCustomBrush(cropBrush(cam, dstX, dstY, dstW, dstH, cropX, cropY, cropW, cropH)))
	shapePath(dc, conf.Shape, dstX, dstY, dstW, dstH)
	_ = dc.Fill()

	if conf.BorderWidth > 0 {
		dc.SetHexColor(conf.BorderColor)
		// keep the visual border width independent of the
		// surface/container resolution mismatch
		dc.SetLineWidth(conf.BorderWidth * scaleX)
		shapePath(dc, conf.Shape, dstX, dstY, dstW, dstH)
		_ = dc.Stroke()
	}
}

// shapePath traces the overlay outline: an ellipse inscribed in the
// destination rectangle for circle, the rectangle itself otherwise.
func shapePath(dc *gg.Context, shape overlay.Shape, x, y, w, h float64) {
	if shape == overlay.Circle {
		dc.DrawEllipse(x+w/2, y+h/2, w/2, h/2)
	} else {
		dc.DrawRectangle(x, y, w, h)
	}
}

// cropBrush samples the camera's crop region through the destination
// rectangle mapping, so filling the shape path clips, crops and scales in
// a single pass.
func cropBrush(src *image.RGBA, dstX, dstY, dstW, dstH, cropX, cropY, cropW, cropH float64) gg.ColorFunc {
	maxX := cropX + cropW - 1
	maxY := cropY + cropH - 1
	return func(x, y float64) gg.RGBA {
		sx := cropX + (x-dstX)*cropW/dstW
		sy := cropY + (y-dstY)*cropH/dstH
		sx = math.Min(math.Max(sx, cropX), maxX)
		sy = math.Min(math.Max(sy, cropY), maxY)
		c := src.RGBAAt(int(sx), int(sy))
		return gg.RGBA{
			R: float64(c.R) / 255,
			G: float64(c.G) / 255,
			B: float64(c.B) / 255,
			A: float64(c.A) / 255,
		}
	}
}

func clone(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, src, b.Min, draw.Src)
	return dst
}
