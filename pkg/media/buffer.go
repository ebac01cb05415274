package media

// Buffer accumulates interleaved 16bit PCM samples into fixed-size
// batches. It is not safe for concurrent use; a single pump goroutine
// owns it. Every time the internal buffer fills, the callback fires
// with the full batch and writing continues from the start.
type (
	Buffer struct {
		s  Samples
		wi int
	}
	OnFull  func(s Samples)
	Samples []int16
)

// NewBuffer allocates a buffer of numSamples total samples
// (frames * channels).
func NewBuffer(numSamples int) Buffer { return Buffer{s: make(Samples, numSamples)} }

// Write copies samples into the buffer, invoking onFull each time the
// buffer fills. Overflowing input wraps and keeps filling, so a single
// large write may fire the callback several times.
func (b *Buffer) Write(s Samples, onFull OnFull) (r int) {
	for r < len(s) {
		w := copy(b.s[b.wi:], s[r:])
		r += w
		b.wi += w
		if b.wi == len(b.s) {
			b.wi = 0
			if onFull != nil {
				onFull(b.s)
			}
		}
	}
	return
}
