package encoder

import (
	"archive/zip"
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/omnirec/omnirec/pkg/logger"
)

func testFrame(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x), G: uint8(y), A: 255})
		}
	}
	return img
}

func TestSessionRejectsUnknownCodec(t *testing.T) {
	_, err := NewSession(Options{Codec: "h264", Fps: 30, Frequency: 48000}, func([]byte) {}, logger.Default())
	if err != ErrUnsupported {
		t.Fatalf("err = %v, want ErrUnsupported", err)
	}
	_, err = NewSession(Options{Codec: Codec, Fps: 0, Frequency: 48000}, func([]byte) {}, logger.Default())
	if err != ErrUnsupported {
		t.Fatalf("zero fps err = %v, want ErrUnsupported", err)
	}
}

func TestSessionProducesValidContainer(t *testing.T) {
	var chunks [][]byte
	s, err := NewSession(Options{Codec: Codec, Fps: 30, Frequency: 48000}, func(c []byte) {
		if len(c) == 0 {
			t.Error("zero-length segment emitted")
		}
		chunks = append(chunks, c)
	}, logger.Default())
	if err != nil {
		t.Fatal(err)
	}

	const frames = 3
	for i := 0; i < frames; i++ {
		s.WriteVideo(Frame{Image: testFrame(32, 24), Duration: time.Second / 30})
		// the video channel holds one frame; give the session time to
		// take it so none of the three is dropped
		time.Sleep(20 * time.Millisecond)
	}
	s.WriteAudio(PCM{Samples: make([]int16, 1920), Duration: 20 * time.Millisecond})

	s.RequestStop()
	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("session did not finish")
	}
	if err := s.Err(); err != nil {
		t.Fatalf("session error: %v", err)
	}

	// concatenated segments must form the container byte for byte
	var blob []byte
	for _, c := range chunks {
		blob = append(blob, c...)
	}
	zr, err := zip.NewReader(bytes.NewReader(blob), int64(len(blob)))
	if err != nil {
		t.Fatalf("invalid container: %v", err)
	}

	got := map[string]bool{}
	for _, f := range zr.File {
		got[f.Name] = true
	}
	for i := 1; i <= frames; i++ {
		name := fmt.Sprintf("video/f%07d.png", i)
		if !got[name] {
			t.Errorf("missing %v", name)
		}
	}
	if !got["audio.wav"] {
		t.Error("missing audio.wav")
	}
	if !got["input.txt"] {
		t.Error("missing input.txt")
	}

	for _, f := range zr.File {
		switch f.Name {
		case "audio.wav":
			rc, err := f.Open()
			if err != nil {
				t.Fatal(err)
			}
			wav, _ := io.ReadAll(rc)
			rc.Close()
			if len(wav) != riffHeaderSize+1920*2 {
				t.Errorf("wav size = %d, want %d", len(wav), riffHeaderSize+1920*2)
			}
			if string(wav[:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
				t.Errorf("bad riff header: %q %q", wav[:4], wav[8:12])
			}
		case "input.txt":
			rc, err := f.Open()
			if err != nil {
				t.Fatal(err)
			}
			manifest, _ := io.ReadAll(rc)
			rc.Close()
			text := string(manifest)
			if !strings.HasPrefix(text, "ffconcat version 1.0\n") {
				t.Errorf("manifest header: %q", text)
			}
			if n := strings.Count(text, "file video/"); n != frames {
				t.Errorf("manifest lists %d frames, want %d", n, frames)
			}
		}
	}
}

func TestWriteVideoDropsWhenBusy(t *testing.T) {
	s, err := NewSession(Options{Codec: Codec, Fps: 30, Frequency: 48000}, func([]byte) {}, logger.Default())
	if err != nil {
		t.Fatal(err)
	}
	// flooding must never block the caller
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			s.WriteVideo(Frame{Image: testFrame(64, 64), Duration: time.Second / 30})
		}
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("WriteVideo blocked")
	}
	s.RequestStop()
	<-s.Done()
}

func TestWriteAudioUnblocksOnStop(t *testing.T) {
	s, err := NewSession(Options{Codec: Codec, Fps: 30, Frequency: 48000}, func([]byte) {}, logger.Default())
	if err != nil {
		t.Fatal(err)
	}
	s.RequestStop()
	<-s.Done()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.WriteAudio(PCM{Samples: make([]int16, 64)})
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WriteAudio blocked after stop")
	}

	// a second stop request is a no-op
	s.RequestStop()
}

func TestRiffHeaderLayout(t *testing.T) {
	h := riffWavHeader(1000, 48000)
	if len(h) != riffHeaderSize {
		t.Fatalf("header len = %d", len(h))
	}
	if string(h[:4]) != "RIFF" || string(h[8:12]) != "WAVE" || string(h[12:16]) != "fmt " {
		t.Fatalf("bad chunk ids: %q", h[:16])
	}
	if string(h[36:40]) != "data" {
		t.Fatalf("bad data id: %q", h[36:40])
	}
}
