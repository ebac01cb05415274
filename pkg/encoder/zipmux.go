package encoder

import (
	"archive/zip"
	"bytes"
	"fmt"
	"image/png"
	"strings"
	"sync"
	"time"

	"github.com/omnirec/omnirec/pkg/logger"
)

const (
	videoFile    = "video/f%07d.png"
	audioFile    = "audio.wav"
	manifestFile = "input.txt"
)

type pool struct{ sync.Pool }

func pngBuf() *pool                      { return &pool{sync.Pool{New: func() any { return &png.EncoderBuffer{} }}} }
func (p *pool) Get() *png.EncoderBuffer  { return p.Pool.Get().(*png.EncoderBuffer) }
func (p *pool) Put(b *png.EncoderBuffer) { p.Pool.Put(b) }

// zipSession multiplexes a PNG frame stream, a WAV audio stream, and an
// ffconcat manifest into one zip container written straight through the
// chunk callback. One goroutine owns the writer, so segments leave in
// container byte order.
type zipSession struct {
	opts Options
	log  *logger.Logger

	video chan Frame
	audio chan PCM
	stop  chan struct{}
	done  chan struct{}
	once  sync.Once

	zw *zip.Writer
	cw *chunkWriter

	penc   *png.Encoder
	pcm    bytes.Buffer
	vsync  []time.Duration
	frames uint32

	mu  sync.Mutex
	err error
}

// NewSession negotiates an encoder session delivering segments through
// onChunk. ErrUnsupported reports an encoding that cannot be initialized.
func NewSession(opts Options, onChunk ChunkFunc, log *logger.Logger) (Session, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	cw := &chunkWriter{emit: onChunk}
	s := &zipSession{
		opts:  opts,
		log:   log,
		video: make(chan Frame, 1),
		audio: make(chan PCM, 8),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
		zw:    zip.NewWriter(cw),
		cw:    cw,
		penc:  &png.Encoder{CompressionLevel: png.BestSpeed, BufferPool: pngBuf()},
	}
	go s.run()
	return s, nil
}

// WriteVideo hands one frame to the session. A frame arriving while the
// previous one is still being encoded is dropped, the stream stays
// realtime instead of lagging.
func (s *zipSession) WriteVideo(f Frame) {
	select {
	case s.video <- f:
	default:
	}
}

// WriteAudio hands one sample batch to the session. Audio is never
// dropped; the call blocks until the session takes it or stops.
func (s *zipSession) WriteAudio(p PCM) {
	select {
	case s.audio <- p:
	case <-s.stop:
	}
}

func (s *zipSession) RequestStop()          { s.once.Do(func() { close(s.stop) }) }
func (s *zipSession) Done() <-chan struct{} { return s.done }

func (s *zipSession) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *zipSession) setErr(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
}

func (s *zipSession) run() {
	defer close(s.done)
	for {
		select {
		case f := <-s.video:
			s.writeFrame(f)
		case p := <-s.audio:
			s.bufferAudio(p)
		case <-s.stop:
			s.drain()
			s.finalize()
			return
		}
	}
}

// drain empties whatever was queued before the stop was observed.
func (s *zipSession) drain() {
	for {
		select {
		case f := <-s.video:
			s.writeFrame(f)
		case p := <-s.audio:
			s.bufferAudio(p)
		default:
			return
		}
	}
}

func (s *zipSession) writeFrame(f Frame) {
	s.frames++
	w, err := s.zw.CreateHeader(&zip.FileHeader{
		Name:   fmt.Sprintf(videoFile, s.frames),
		Method: zip.Store, // png carries its own compression
	})
	if err != nil {
		s.setErr(err)
		return
	}
	if err = s.penc.Encode(w, f.Image); err != nil {
		s.setErr(err)
		return
	}
	if err = s.zw.Flush(); err != nil {
		s.setErr(err)
		return
	}
	s.vsync = append(s.vsync, f.Duration)
}

// bufferAudio keeps PCM in memory until finalize; the RIFF header needs
// the total data size and zip entries cannot be rewritten.
func (s *zipSession) bufferAudio(p PCM) {
	for _, v := range p.Samples {
		s.pcm.WriteByte(byte(v))
		s.pcm.WriteByte(byte(uint16(v) >> 8))
	}
}

func (s *zipSession) finalize() {
	if err := s.writeAudioEntry(); err != nil {
		s.setErr(err)
	}
	if err := s.writeManifest(); err != nil {
		s.setErr(err)
	}
	if err := s.zw.Close(); err != nil {
		s.setErr(err)
	}
	s.log.Debug().Msgf("encoder flushed: %d frames, %d audio bytes, %d container bytes",
		s.frames, s.pcm.Len(), s.cw.n)
}

func (s *zipSession) writeAudioEntry() error {
	w, err := s.zw.CreateHeader(&zip.FileHeader{Name: audioFile, Method: zip.Deflate})
	if err != nil {
		return err
	}
	if _, err = w.Write(riffWavHeader(uint32(s.pcm.Len()), s.opts.Frequency)); err != nil {
		return err
	}
	_, err = w.Write(s.pcm.Bytes())
	return err
}

// writeManifest emits an ffconcat demuxer file so the container can be
// transcoded offline in one pass:
//
//	ffmpeg -f concat -i input.txt -i audio.wav \
//	       -b:a 192K -crf 23 -pix_fmt yuv420p out.mp4
func (s *zipSession) writeManifest() error {
	w, err := s.zw.CreateHeader(&zip.FileHeader{Name: manifestFile, Method: zip.Deflate})
	if err != nil {
		return err
	}
	b := strings.Builder{}
	b.WriteString("ffconcat version 1.0\n")
	b.WriteString(meta("v", "1"))
	b.WriteString(meta("date", time.Now().Format("20060102")))
	b.WriteString(meta("fps", s.opts.Fps))
	b.WriteString(meta("freq", s.opts.Frequency))
	for i := uint32(1); i <= s.frames; i++ {
		dur := 1 / s.opts.Fps
		if int(i) <= len(s.vsync) && s.vsync[i-1] > 0 {
			dur = s.vsync[i-1].Seconds()
		}
		b.WriteString(fmt.Sprintf("file %s\nduration %f\n", fmt.Sprintf(videoFile, i), dur))
	}
	_, err = w.Write([]byte(b.String()))
	return err
}

func meta(key string, value any) string { return fmt.Sprintf("stream_meta %s '%v'\n", key, value) }
