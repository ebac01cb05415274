// Package overlay holds the camera overlay configuration and the pointer
// gesture controller that repositions and resizes the overlay inside the
// container region.
package overlay

import (
	"strconv"
	"sync/atomic"
)

type Shape uint8

const (
	Circle Shape = iota
	Rectangle
)

func (s Shape) String() string {
	if s == Rectangle {
		return "rectangle"
	}
	return "circle"
}

func (s Shape) MarshalJSON() ([]byte, error) { return []byte(strconv.Quote(s.String())), nil }

func (s *Shape) UnmarshalJSON(b []byte) error {
	name, err := strconv.Unquote(string(b))
	if err != nil {
		return err
	}
	*s = ParseShape(name)
	return nil
}

// ParseShape maps a shape name to its value, defaulting to circle.
func ParseShape(name string) Shape {
	if name == "rectangle" {
		return Rectangle
	}
	return Circle
}

// Overlay size limits, in container pixels.
const (
	MinSize = 100.0
	MaxSize = 480.0
)

// Position is the top-left offset of the overlay in container pixels.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is the overlay dimensions in container pixels.
type Size struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Bounds is the pixel size of the container region.
type Bounds struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

func (b Bounds) Empty() bool { return b.W <= 0 || b.H <= 0 }

// Config is the overlay configuration record.
// It is a value type; every published mutation replaces the whole record.
type Config struct {
	Shape       Shape    `json:"shape"`
	Position    Position `json:"position"`
	Size        Size     `json:"size"`
	Visible     bool     `json:"visible"`
	BorderColor string   `json:"borderColor"`
	BorderWidth float64  `json:"borderWidth"`
	Zoom        float64  `json:"zoom"`
}

func DefaultConfig() Config {
	return Config{
		Shape:       Circle,
		Position:    Position{X: 20, Y: 20},
		Size:        Size{W: 240, H: 240},
		Visible:     true,
		BorderColor: "#ffffff",
		BorderWidth: 4,
		Zoom:        1,
	}
}

// Store is the single source of truth for the overlay configuration.
// Writers (the gesture controller and the control surface) swap the whole
// record; the renderer re-reads it every frame. Concurrent writes resolve
// to last-write-wins, both writers carry the same current user intent.
type Store struct {
	v atomic.Pointer[Config]
}

func NewStore(c Config) *Store {
	s := &Store{}
	s.v.Store(&c)
	return s
}

// Load returns a copy of the current record.
func (s *Store) Load() Config { return *s.v.Load() }

// Store publishes a new record.
func (s *Store) Store(c Config) { s.v.Store(&c) }

// Update applies fn to a copy of the current record and publishes the result.
func (s *Store) Update(fn func(*Config)) Config {
	c := *s.v.Load()
	fn(&c)
	s.v.Store(&c)
	return c
}
