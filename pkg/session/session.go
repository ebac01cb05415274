package session

import (
	"errors"
	"image"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/omnirec/omnirec/pkg/capture"
	"github.com/omnirec/omnirec/pkg/compositor"
	"github.com/omnirec/omnirec/pkg/config"
	"github.com/omnirec/omnirec/pkg/encoder"
	"github.com/omnirec/omnirec/pkg/logger"
	"github.com/omnirec/omnirec/pkg/media"
	"github.com/omnirec/omnirec/pkg/monitoring"
	"github.com/omnirec/omnirec/pkg/overlay"
)

var (
	// ErrBusy is returned by Start while a recording is in progress
	// or still being started or stopped.
	ErrBusy = errors.New("session: recording already in progress")
	// ErrEncoderStall is recorded when the encoder does not finish
	// flushing within the stop timeout.
	ErrEncoderStall = errors.New("session: encoder did not flush in time")
)

type State uint8

const (
	Idle State = iota
	Acquiring
	Live
	Stopping
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Acquiring:
		return "acquiring"
	case Live:
		return "live"
	case Stopping:
		return "stopping"
	}
	return "unknown"
}

// Session drives one recording at a time through the
// acquire -> compose -> encode pipeline.
//
// The camera stream is acquired on the first Start and kept across
// recordings so the overlay preview survives stop/start cycles. The
// display stream is acquired per recording and released on stop.
type Session struct {
	conf     config.Recorder
	acq      capture.Acquirer
	store    *overlay.Store
	renderer *compositor.Renderer
	metrics  *monitoring.Metrics
	log      *logger.Logger

	mu           sync.Mutex
	state        State
	lastErr      error
	hasRecording bool
	artifact     *Artifact
	chunks       [][]byte

	enc       encoder.Session
	camera    *capture.Streams
	display   *capture.Streams
	graph     *media.Graph
	audioStop chan struct{}
	audioDone chan struct{}
}

func New(conf config.Recorder, acq capture.Acquirer, store *overlay.Store, m *monitoring.Metrics, log *logger.Logger) *Session {
	fps := conf.Fps
	if fps <= 0 {
		fps = 30
	}
	return &Session{
		conf:     conf,
		acq:      acq,
		store:    store,
		renderer: compositor.NewRenderer(fps, log),
		metrics:  m,
		log:      log,
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// HasRecording reports whether a finished artifact is available for
// download. It turns false the moment a new recording begins stopping
// the previous artifact from being served mid-replacement.
func (s *Session) HasRecording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasRecording
}

func (s *Session) Artifact() *Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasRecording {
		return nil
	}
	return s.artifact
}

// Surface returns the most recent composite frame, for previews.
func (s *Session) Surface() *image.RGBA { return s.renderer.Surface() }

// Start begins a new recording. It fails with ErrBusy unless the
// session is idle. Acquisition and encoder failures reset the session
// to idle with the cause retrievable via Err.
func (s *Session) Start() error {
	s.mu.Lock()
	if s.state != Idle {
		s.mu.Unlock()
		return ErrBusy
	}
	s.state = Acquiring
	s.lastErr = nil
	s.hasRecording = false
	s.artifact = nil
	s.chunks = nil
	s.mu.Unlock()

	if err := s.start(); err != nil {
		s.mu.Lock()
		s.lastErr = err
		s.state = Idle
		s.mu.Unlock()
		if s.metrics != nil {
			s.metrics.Failures.WithLabelValues("start").Inc()
		}
		s.log.Error().Err(err).Msg("recording start failed")
		return err
	}

	s.mu.Lock()
	s.state = Live
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.RecordingsStarted.Inc()
	}
	s.log.Info().Msg("recording started")
	return nil
}

func (s *Session) start() error {
	if s.camera == nil {
		cam, err := s.acq.AcquireCamera()
		if err != nil {
			return err
		}
		s.camera = cam
	}

	display, err := s.acq.AcquireDisplay()
	if err != nil {
		return err
	}

	graph := media.NewGraph(s.conf.Frequency)
	if s.camera.Audio != nil {
		graph.AddTrack(s.camera.Audio)
	}
	if display.Audio != nil {
		graph.AddTrack(display.Audio)
	}

	enc, err := encoder.NewSession(encoder.Options{
		Codec:     encoder.Codec,
		Fps:       s.conf.Fps,
		Frequency: s.conf.Frequency,
	}, s.onChunk, s.log)
	if err != nil {
		display.Stop()
		return err
	}

	s.display = display
	s.graph = graph
	s.enc = enc

	s.renderer.Start(
		display.Video,
		s.camera.Video,
		s.store.Load,
		overlay.Bounds{W: s.conf.Container.W, H: s.conf.Container.H},
		func(frame *image.RGBA, d time.Duration) {
			if s.metrics != nil {
				s.metrics.FramesComposed.Inc()
			}
			enc.WriteVideo(encoder.Frame{Image: frame, Duration: d})
		},
	)

	s.audioStop = make(chan struct{})
	s.audioDone = make(chan struct{})
	go s.pumpAudio(graph, enc, s.audioStop, s.audioDone)

	// The user can end the share from outside the app; treat it as a
	// regular stop so the artifact still finalizes.
	display.Video.OnEnded(func() { go s.Stop() })
	return nil
}

// audio pump granularity
const (
	pumpRead  = 5 * time.Millisecond
	pumpBatch = 20 * time.Millisecond
)

func (s *Session) pumpAudio(graph *media.Graph, enc encoder.Session, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	rate := graph.SampleRate()
	readSamples := 2 * int(float64(rate)*pumpRead.Seconds())
	batchSamples := 2 * int(float64(rate)*pumpBatch.Seconds())
	buf := media.NewBuffer(batchSamples)
	in := make(media.Samples, readSamples)

	flush := func(batch media.Samples) {
		out := make([]int16, len(batch))
		copy(out, batch)
		enc.WriteAudio(encoder.PCM{Samples: out, Duration: pumpBatch})
	}

	t := time.NewTicker(pumpRead)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			n := graph.Read(in)
			buf.Write(in[:n], flush)
		}
	}
}

func (s *Session) onChunk(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	if s.metrics != nil {
		s.metrics.SegmentsBuffered.Inc()
		s.metrics.SegmentBytes.Add(float64(len(chunk)))
	}
	s.mu.Lock()
	s.chunks = append(s.chunks, chunk)
	s.mu.Unlock()
}

// Stop ends the current recording and finalizes the artifact. Stopping
// when no recording is live is a no-op.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.state != Live {
		s.mu.Unlock()
		return
	}
	s.state = Stopping
	s.mu.Unlock()

	s.enc.RequestStop()
	var errs *multierror.Error
	select {
	case <-s.enc.Done():
	case <-time.After(s.stopTimeout()):
		errs = multierror.Append(errs, ErrEncoderStall)
		if s.metrics != nil {
			s.metrics.Failures.WithLabelValues("stop").Inc()
		}
	}
	s.finalize(errs)
}

func (s *Session) stopTimeout() time.Duration {
	if s.conf.StopTimeout > 0 {
		return s.conf.StopTimeout
	}
	return 10 * time.Second
}

func (s *Session) finalize(errs *multierror.Error) {
	s.renderer.Stop()

	close(s.audioStop)
	<-s.audioDone

	s.display.Stop()
	s.display = nil
	s.graph.Close()
	s.graph = nil

	if err := s.enc.Err(); err != nil {
		errs = multierror.Append(errs, err)
	}
	s.enc = nil

	s.mu.Lock()
	name := parseName(s.conf.Name) + "." + encoder.Ext
	s.artifact = newArtifact(name, encoder.Codec, s.chunks)
	s.chunks = nil
	s.hasRecording = s.artifact.Size() > 0
	s.lastErr = errs.ErrorOrNil()
	s.state = Idle
	segments, size := s.artifact.Segments(), s.artifact.Size()
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordingsDone.Inc()
	}
	s.log.Info().
		Str("name", name).
		Int("segments", segments).
		Int("bytes", size).
		Msg("recording finished")
}

// Close releases the persistent camera stream. The session must be
// idle.
func (s *Session) Close() {
	s.mu.Lock()
	cam := s.camera
	s.camera = nil
	s.mu.Unlock()
	if cam != nil {
		cam.Stop()
	}
}
