package overlay

import "github.com/omnirec/omnirec/pkg/logger"

type Mode uint8

const (
	ModeNone Mode = iota
	ModeDrag
	ModeResize
)

// Pointer is a pointer event coordinate in container pixels.
type Pointer struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// gesture is the ephemeral state of one drag or resize interaction.
// It exists from pointer-down to pointer-up and is never shared.
type gesture struct {
	mode   Mode
	offset Pointer
	bounds Bounds
}

// Controller interprets pointer gestures against the container bounds and
// publishes clamped position/size updates into the store.
type Controller struct {
	store *Store
	cur   gesture
	log   *logger.Logger
}

func NewController(store *Store, log *logger.Logger) *Controller {
	return &Controller{store: store, log: log}
}

// BeginGesture starts a drag or resize. The container bounds are measured
// once here and cached for the whole gesture.
func (c *Controller) BeginGesture(p Pointer, mode Mode, bounds Bounds) {
	c.cur = gesture{mode: mode, bounds: bounds}
	if mode == ModeDrag {
		conf := c.store.Load()
		c.cur.offset = Pointer{X: p.X - conf.Position.X, Y: p.Y - conf.Position.Y}
	}
	c.log.Debug().Msgf("gesture begin: %v @ %.0fx%.0f", mode, bounds.W, bounds.H)
}

// PointerMove applies one pointer update. Each call publishes synchronously;
// the last move before the next composited frame wins.
func (c *Controller) PointerMove(p Pointer) {
	if c.cur.mode == ModeNone || c.cur.bounds.Empty() {
		return
	}
	switch c.cur.mode {
	case ModeDrag:
		c.drag(p)
	case ModeResize:
		c.resize(p)
	}
}

// PointerUp ends the gesture. Whatever the last clamp produced is final.
func (c *Controller) PointerUp() {
	c.cur = gesture{}
}

// Mode reports the active gesture mode.
func (c *Controller) Mode() Mode { return c.cur.mode }

func (c *Controller) drag(p Pointer) {
	c.store.Update(func(conf *Config) {
		conf.Position = Position{
			X: clamp(p.X-c.cur.offset.X, 0, c.cur.bounds.W-conf.Size.W),
			Y: clamp(p.Y-c.cur.offset.Y, 0, c.cur.bounds.H-conf.Size.H),
		}
	})
}

func (c *Controller) resize(p Pointer) {
	c.store.Update(func(conf *Config) {
		w := clamp(p.X-conf.Position.X, MinSize, MaxSize)
		h := clamp(p.Y-conf.Position.Y, MinSize, MaxSize)
		// shrink further so the overlay stays inside the container,
		// the position never moves during a resize
		conf.Size = Size{
			W: min(w, c.cur.bounds.W-conf.Position.X),
			H: min(h, c.cur.bounds.H-conf.Position.Y),
		}
	})
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
