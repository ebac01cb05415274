package compositor

import (
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/omnirec/omnirec/pkg/logger"
	"github.com/omnirec/omnirec/pkg/overlay"
)

type stillSource struct {
	img *image.RGBA
	ok  bool
}

func (s stillSource) Frame() (*image.RGBA, bool) { return s.img, s.ok }

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func newTestRenderer(display, camera *image.RGBA, conf overlay.Config, container overlay.Bounds) *Renderer {
	r := NewRenderer(30, logger.Default())
	r.display = stillSource{img: display, ok: true}
	r.camera = stillSource{img: camera, ok: camera != nil}
	r.conf = func() overlay.Config { return conf }
	r.container = container
	return r
}

func near(c color.RGBA, r, g, b uint8) bool {
	d := func(a, b uint8) int {
		if a > b {
			return int(a - b)
		}
		return int(b - a)
	}
	return d(c.R, r) <= 12 && d(c.G, g) <= 12 && d(c.B, b) <= 12
}

func TestRenderSkipsUndecodableDisplay(t *testing.T) {
	r := NewRenderer(30, logger.Default())
	r.display = stillSource{ok: false}
	r.camera = stillSource{ok: false}
	r.conf = overlay.DefaultConfig
	if r.renderOnce() {
		t.Fatal("composed a frame without a decodable display frame")
	}
	if r.Surface() != nil {
		t.Fatal("surface exists before the first frame")
	}
}

func TestRenderBaseMatchesDisplay(t *testing.T) {
	base := solid(320, 180, color.RGBA{R: 10, G: 200, B: 30, A: 255})
	conf := overlay.DefaultConfig()
	conf.Visible = false
	r := newTestRenderer(base, nil, conf, overlay.Bounds{W: 320, H: 180})

	if !r.renderOnce() {
		t.Fatal("renderOnce failed")
	}
	out := r.Surface()
	if got := out.Bounds(); got.Dx() != 320 || got.Dy() != 180 {
		t.Fatalf("surface %v, want 320x180", got)
	}
	if c := out.RGBAAt(160, 90); !near(c, 10, 200, 30) {
		t.Errorf("base pixel = %v", c)
	}
}

func TestOverlayHiddenLeavesBase(t *testing.T) {
	base := solid(400, 400, color.RGBA{B: 255, A: 255})
	cam := solid(200, 200, color.RGBA{R: 255, A: 255})
	conf := overlay.Config{
		Shape:    overlay.Rectangle,
		Position: overlay.Position{X: 100, Y: 100},
		Size:     overlay.Size{W: 200, H: 200},
		Visible:  false,
		Zoom:     1,
	}
	r := newTestRenderer(base, cam, conf, overlay.Bounds{W: 400, H: 400})
	r.renderOnce()

	if c := r.Surface().RGBAAt(200, 200); !near(c, 0, 0, 255) {
		t.Errorf("hidden overlay leaked into the frame: %v", c)
	}
}

func TestOverlayRectangleDrawsCamera(t *testing.T) {
	base := solid(400, 400, color.RGBA{B: 255, A: 255})
	cam := solid(200, 200, color.RGBA{R: 255, A: 255})
	conf := overlay.Config{
		Shape:    overlay.Rectangle,
		Position: overlay.Position{X: 100, Y: 100},
		Size:     overlay.Size{W: 200, H: 200},
		Visible:  true,
		Zoom:     1,
	}
	r := newTestRenderer(base, cam, conf, overlay.Bounds{W: 400, H: 400})
	r.renderOnce()
	out := r.Surface()

	if c := out.RGBAAt(200, 200); !near(c, 255, 0, 0) {
		t.Errorf("overlay interior = %v, want camera red", c)
	}
	if c := out.RGBAAt(50, 50); !near(c, 0, 0, 255) {
		t.Errorf("outside overlay = %v, want base blue", c)
	}
}

func TestOverlayMapsContainerToSurface(t *testing.T) {
	// surface is twice the container, overlay coordinates must scale
	base := solid(800, 900, color.RGBA{B: 255, A: 255})
	cam := solid(100, 100, color.RGBA{R: 255, A: 255})
	conf := overlay.Config{
		Shape:    overlay.Rectangle,
		Position: overlay.Position{X: 100, Y: 100},
		Size:     overlay.Size{W: 100, H: 100},
		Visible:  true,
		Zoom:     1,
	}
	r := newTestRenderer(base, cam, conf, overlay.Bounds{W: 400, H: 450})
	r.renderOnce()
	out := r.Surface()

	// container (100,100)-(200,200) maps to surface (200,200)-(400,400)
	if c := out.RGBAAt(300, 300); !near(c, 255, 0, 0) {
		t.Errorf("scaled overlay interior = %v, want red", c)
	}
	if c := out.RGBAAt(150, 300); !near(c, 0, 0, 255) {
		t.Errorf("left of scaled overlay = %v, want blue", c)
	}
}

func TestCircleClipsCorners(t *testing.T) {
	base := solid(400, 400, color.RGBA{B: 255, A: 255})
	cam := solid(200, 200, color.RGBA{R: 255, A: 255})
	conf := overlay.Config{
		Shape:    overlay.Circle,
		Position: overlay.Position{X: 100, Y: 100},
		Size:     overlay.Size{W: 200, H: 200},
		Visible:  true,
		Zoom:     1,
	}
	r := newTestRenderer(base, cam, conf, overlay.Bounds{W: 400, H: 400})
	r.renderOnce()
	out := r.Surface()

	if c := out.RGBAAt(200, 200); !near(c, 255, 0, 0) {
		t.Errorf("circle center = %v, want red", c)
	}
	// the rectangle corner lies outside the inscribed ellipse
	if c := out.RGBAAt(105, 105); !near(c, 0, 0, 255) {
		t.Errorf("circle corner = %v, want base blue", c)
	}
}

func TestZoomCropsCenter(t *testing.T) {
	// camera: 50px white frame around a green center
	cam := solid(200, 200, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	for y := 50; y < 150; y++ {
		for x := 50; x < 150; x++ {
			cam.SetRGBA(x, y, color.RGBA{G: 255, A: 255})
		}
	}
	base := solid(400, 400, color.RGBA{A: 255})
	conf := overlay.Config{
		Shape:    overlay.Rectangle,
		Position: overlay.Position{X: 100, Y: 100},
		Size:     overlay.Size{W: 200, H: 200},
		Visible:  true,
		Zoom:     1,
	}
	container := overlay.Bounds{W: 400, H: 400}

	r := newTestRenderer(base, cam, conf, container)
	r.renderOnce()
	if c := r.Surface().RGBAAt(110, 200); !near(c, 255, 255, 255) {
		t.Errorf("zoom 1 edge = %v, want white border", c)
	}

	// zoom 2 crops to the camera's central green square
	conf.Zoom = 2
	r = newTestRenderer(base, cam, conf, container)
	r.renderOnce()
	if c := r.Surface().RGBAAt(110, 200); !near(c, 0, 255, 0) {
		t.Errorf("zoom 2 edge = %v, want cropped green", c)
	}
}

func TestBorderStroke(t *testing.T) {
	base := solid(400, 400, color.RGBA{A: 255})
	cam := solid(200, 200, color.RGBA{B: 255, A: 255})
	conf := overlay.Config{
		Shape:       overlay.Rectangle,
		Position:    overlay.Position{X: 100, Y: 100},
		Size:        overlay.Size{W: 200, H: 200},
		Visible:     true,
		BorderColor: "#ff0000",
		BorderWidth: 8,
		Zoom:        1,
	}
	r := newTestRenderer(base, cam, conf, overlay.Bounds{W: 400, H: 400})
	r.renderOnce()
	out := r.Surface()

	// the stroke is centered on the outline
	if c := out.RGBAAt(100, 200); !near(c, 255, 0, 0) {
		t.Errorf("border pixel = %v, want red", c)
	}

	conf.BorderWidth = 0
	r = newTestRenderer(base, cam, conf, overlay.Bounds{W: 400, H: 400})
	r.renderOnce()
	if c := r.Surface().RGBAAt(106, 200); !near(c, 0, 0, 255) {
		t.Errorf("borderless edge = %v, want camera blue", c)
	}
}

func TestLoopDeliversFramesToSink(t *testing.T) {
	base := solid(64, 64, color.RGBA{B: 255, A: 255})
	cam := solid(32, 32, color.RGBA{R: 255, A: 255})

	frames := make(chan *image.RGBA, 64)
	r := NewRenderer(100, logger.Default())
	r.Start(
		stillSource{img: base, ok: true},
		stillSource{img: cam, ok: true},
		overlay.DefaultConfig,
		overlay.Bounds{W: 64, H: 64},
		func(f *image.RGBA, d time.Duration) {
			if d <= 0 {
				t.Errorf("frame duration = %v", d)
			}
			select {
			case frames <- f:
			default:
			}
		},
	)

	select {
	case f := <-frames:
		if f.Bounds().Dx() != 64 {
			t.Errorf("frame width = %d", f.Bounds().Dx())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no frame within 2s")
	}
	r.Stop()

	// a second stop must not block or panic
	r.Stop()
}
