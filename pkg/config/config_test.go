package config

import (
	"os"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	var conf Config
	if err := LoadConfigEnv(&conf); err != nil {
		t.Fatal(err)
	}
	if conf.Recorder.Fps != 30 {
		t.Errorf("fps = %v, want 30", conf.Recorder.Fps)
	}
	if conf.Recorder.Frequency != 48000 {
		t.Errorf("frequency = %v, want 48000", conf.Recorder.Frequency)
	}
	if conf.Recorder.StopTimeout != 10*time.Second {
		t.Errorf("stop timeout = %v, want 10s", conf.Recorder.StopTimeout)
	}
	if conf.Recorder.Container.W != 1280 || conf.Recorder.Container.H != 720 {
		t.Errorf("container = %vx%v, want 1280x720", conf.Recorder.Container.W, conf.Recorder.Container.H)
	}
	if conf.Overlay.Shape != "circle" || conf.Overlay.Zoom != 1 {
		t.Errorf("overlay defaults = %+v", conf.Overlay)
	}
	if conf.Control.Port != 8080 || conf.Monitoring.Port != 6601 {
		t.Errorf("ports = %d/%d", conf.Control.Port, conf.Monitoring.Port)
	}
}

func TestEnvOverride(t *testing.T) {
	if err := os.Setenv("OMNIREC_RECORDER_FPS", "24"); err != nil {
		t.Fatal(err)
	}
	defer os.Unsetenv("OMNIREC_RECORDER_FPS")

	var conf Config
	if err := LoadConfigEnv(&conf); err != nil {
		t.Fatal(err)
	}
	if conf.Recorder.Fps != 24 {
		t.Errorf("fps = %v, want env override 24", conf.Recorder.Fps)
	}
}
