package config

import (
	"time"
)

type Config struct {
	Recorder   Recorder
	Overlay    Overlay
	Control    Control
	Monitoring Monitoring
	Debug      bool
}

// Recorder holds the capture/composite/encode pipeline settings.
type Recorder struct {
	// Fps is the pacing rate of the composite renderer and the
	// capture rate of its output surface.
	Fps float64 `fig:"fps" default:"30"`
	// Frequency is the audio sample rate of the mixed output track.
	Frequency int `fig:"frequency" default:"48000"`
	// Dir is where the instance lock lives; artifacts stay in memory
	// until exported.
	Dir string `fig:"dir" default:"./recordings"`
	// Name is the artifact name template.
	// Supported placeholders: %date:go_time_format%, %rand:len%.
	Name string `fig:"name" default:"omni-record-%date:2006-01-02T15-04-05%"`
	// StopTimeout bounds the wait for the encoder to flush after a
	// stop request.
	StopTimeout time.Duration `fig:"stop_timeout" default:"10s"`
	// Container is the user-facing region, in pixels, that defines
	// valid overlay coordinates.
	Container struct {
		W float64 `fig:"w" default:"1280"`
		H float64 `fig:"h" default:"720"`
	}
}

// Overlay holds the camera overlay defaults applied at session start.
type Overlay struct {
	Shape       string  `fig:"shape" default:"circle"`
	X           float64 `fig:"x" default:"20"`
	Y           float64 `fig:"y" default:"20"`
	W           float64 `fig:"w" default:"240"`
	H           float64 `fig:"h" default:"240"`
	BorderColor string  `fig:"border_color" default:"#ffffff"`
	BorderWidth float64 `fig:"border_width" default:"4"`
	Zoom        float64 `fig:"zoom" default:"1"`
}

// Control is the intent endpoint of the external control surface.
type Control struct {
	Port int `fig:"port" default:"8080"`
}

type Monitoring struct {
	Port             int    `fig:"port" default:"6601"`
	URLPrefix        string `fig:"url_prefix"`
	MetricEnabled    bool   `fig:"metric_enabled" default:"true"`
	ProfilingEnabled bool   `fig:"profiling_enabled"`
}
