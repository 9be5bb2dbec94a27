package router

import (
	"errors"
	"testing"
)

// chunkReader replays a scripted sequence of reads. A nil chunk models a
// serial read timeout, which surfaces as (0, nil).
type chunkReader struct {
	chunks [][]byte
	err    error
}

func (cr *chunkReader) Read(p []byte) (int, error) {
	if len(cr.chunks) == 0 {
		if cr.err != nil {
			return 0, cr.err
		}
		return 0, nil
	}
	chunk := cr.chunks[0]
	n := copy(p, chunk)
	if n < len(chunk) {
		cr.chunks[0] = chunk[n:]
	} else {
		cr.chunks = cr.chunks[1:]
	}
	return n, nil
}

func TestLineReaderAssemblesAcrossReads(t *testing.T) {
	lr := newLineReader(&chunkReader{chunks: [][]byte{
		[]byte("512|0|10"),
		[]byte("24\n256|"),
	}})
	line, ok, err := lr.Next()
	if err != nil || !ok {
		t.Fatalf("Next: %v %v", ok, err)
	}
	if line != "512|0|1024" {
		t.Errorf("line = %q", line)
	}
}

func TestLineReaderTimeoutReturnsNotReady(t *testing.T) {
	lr := newLineReader(&chunkReader{chunks: [][]byte{[]byte("partial")}})
	// First call consumes the partial chunk, then hits the timeout.
	line, ok, err := lr.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if ok {
		t.Errorf("got line %q, want not-ready", line)
	}
	// The partial data must survive for the next call.
	lr.r = &chunkReader{chunks: [][]byte{[]byte("|rest\n")}}
	line, ok, err = lr.Next()
	if err != nil || !ok {
		t.Fatalf("Next: %v %v", ok, err)
	}
	if line != "partial|rest" {
		t.Errorf("line = %q", line)
	}
}

func TestLineReaderMultipleLinesBuffered(t *testing.T) {
	lr := newLineReader(&chunkReader{chunks: [][]byte{[]byte("a\nb\nc\n")}})
	for _, want := range []string{"a", "b", "c"} {
		line, ok, err := lr.Next()
		if err != nil || !ok {
			t.Fatalf("Next: %v %v", ok, err)
		}
		if line != want {
			t.Errorf("line = %q, want %q", line, want)
		}
	}
}

func TestLineReaderPropagatesError(t *testing.T) {
	want := errors.New("port gone")
	lr := newLineReader(&chunkReader{err: want})
	if _, _, err := lr.Next(); !errors.Is(err, want) {
		t.Errorf("err = %v", err)
	}
}

func TestLineReaderDiscardsUnterminatedGarbage(t *testing.T) {
	garbage := make([]byte, maxLineBytes+100)
	for i := range garbage {
		garbage[i] = 'x'
	}
	lr := newLineReader(&chunkReader{chunks: [][]byte{garbage, []byte("ok\n")}})
	line, ok, err := lr.Next()
	if err != nil || !ok {
		t.Fatalf("Next: %v %v", ok, err)
	}
	if line != "ok" {
		t.Errorf("line = %q, want garbage dropped and %q", line, "ok")
	}
}
