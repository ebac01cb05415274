package media

import (
	"testing"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
)

func TestGraphSilenceWithoutTracks(t *testing.T) {
	g := NewGraph(48000)
	out := make([]int16, 960)
	out[0], out[1] = 123, -123
	if n := g.Read(out); n != 960 {
		t.Fatalf("Read = %d, want 960", n)
	}
	for i, v := range out {
		if v != 0 {
			t.Fatalf("sample %d = %d, want silence", i, v)
		}
	}
}

func TestGraphMixesTracks(t *testing.T) {
	g := NewGraph(48000)
	tone, err := generators.SineTone(beep.SampleRate(48000), 440)
	if err != nil {
		t.Fatal(err)
	}
	g.AddTrack(tone)

	out := make([]int16, 960)
	g.Read(out)
	var nonZero int
	for _, v := range out {
		if v != 0 {
			nonZero++
		}
	}
	if nonZero == 0 {
		t.Fatal("tone produced only silence")
	}
}

func TestGraphCloseDetachesTracks(t *testing.T) {
	g := NewGraph(48000)
	tone, _ := generators.SineTone(beep.SampleRate(48000), 440)
	g.AddTrack(tone)
	g.Close()

	out := make([]int16, 64)
	g.Read(out)
	for i, v := range out {
		if v != 0 {
			t.Fatalf("sample %d = %d after close, want silence", i, v)
		}
	}
}

func TestPCMConversionSaturates(t *testing.T) {
	if got := toPCM(0); got != 0 {
		t.Errorf("toPCM(0) = %d", got)
	}
	if got := toPCM(5); got > 32767 || got < 30000 {
		t.Errorf("toPCM(5) = %d, want near full scale", got)
	}
	if got := toPCM(-5); got < -32767 || got > -30000 {
		t.Errorf("toPCM(-5) = %d, want near negative full scale", got)
	}
	if hi, in := toPCM(0.5), toPCM(0.79); hi >= in {
		t.Errorf("limiter reordered samples: %d >= %d", hi, in)
	}
}

func TestBufferBatches(t *testing.T) {
	b := NewBuffer(8)
	var batches []Samples
	onFull := func(s Samples) {
		out := make(Samples, len(s))
		copy(out, s)
		batches = append(batches, out)
	}

	b.Write(Samples{1, 2, 3, 4}, onFull)
	if len(batches) != 0 {
		t.Fatalf("callback fired on underflow: %d", len(batches))
	}
	b.Write(Samples{5, 6, 7, 8, 9, 10}, onFull)
	if len(batches) != 1 {
		t.Fatalf("batches = %d, want 1", len(batches))
	}
	want := Samples{1, 2, 3, 4, 5, 6, 7, 8}
	for i, v := range want {
		if batches[0][i] != v {
			t.Fatalf("batch = %v, want %v", batches[0], want)
		}
	}
}
