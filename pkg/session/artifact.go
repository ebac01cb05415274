package session

import (
	"math/rand/v2"
	"regexp"
	"strconv"
	"time"

	"github.com/gofrs/uuid"
)

// Artifact is one finished recording: an ordered, append-only sequence of
// container segments. Concatenated in arrival order the segments form the
// valid container; they are never reordered or deduplicated.
type Artifact struct {
	ID       uuid.UUID
	Name     string
	Codec    string
	Created  time.Time
	segments [][]byte
	size     int
}

func newArtifact(name, codec string, segments [][]byte) *Artifact {
	a := &Artifact{
		ID:       uuid.Must(uuid.NewV4()),
		Name:     name,
		Codec:    codec,
		Created:  time.Now(),
		segments: segments,
	}
	for _, s := range segments {
		a.size += len(s)
	}
	return a
}

func (a *Artifact) Segments() int { return len(a.segments) }
func (a *Artifact) Size() int     { return a.size }

// Bytes concatenates all segments in arrival order.
func (a *Artifact) Bytes() []byte {
	out := make([]byte, 0, a.size)
	for _, s := range a.segments {
		out = append(out, s...)
	}
	return out
}

// naming regexp
var (
	reDate = regexp.MustCompile(`%date:(.*?)%`)
	reRand = regexp.MustCompile(`%rand:(\d+)%`)
)

// parseName expands the artifact name template placeholders:
// %date:<go time layout>% and %rand:<n>%.
func parseName(name string) (out string) {
	out = name
	if d := reDate.FindStringSubmatch(out); d != nil {
		out = reDate.ReplaceAllString(out, time.Now().Format(d[1]))
	}
	if rnd := reRand.FindStringSubmatch(out); rnd != nil {
		out = reRand.ReplaceAllString(out, random(rnd[1]))
	}
	return
}

const letterBytes = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

func random(num string) string {
	n, err := strconv.Atoi(num)
	if err != nil {
		return ""
	}
	b := make([]byte, n)
	for i := range b {
		b[i] = letterBytes[rand.Int64()%int64(len(letterBytes))]
	}
	return string(b)
}
