package router

import (
	"bytes"
	"io"
)

// maxLineBytes bounds the pending buffer. A stream that produces this
// much without a terminator is garbage (wrong baud rate, noise) and is
// discarded silently.
const maxLineBytes = 4096

// lineReader assembles newline-terminated lines from a reader whose Read
// may legitimately return (0, nil) on timeout, which is how serial ports
// with a read timeout report a quiet link.
type lineReader struct {
	r       io.Reader
	scratch []byte
	pending []byte
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{
		r:       r,
		scratch: make([]byte, 256),
	}
}

// Next returns the next complete line without its terminator. ok is false
// when no full line is available yet (the caller should back off briefly
// and re-check external conditions before trying again).
func (lr *lineReader) Next() (line string, ok bool, err error) {
	for {
		if i := bytes.IndexByte(lr.pending, '\n'); i >= 0 {
			line := string(lr.pending[:i])
			lr.pending = lr.pending[i+1:]
			return line, true, nil
		}
		if len(lr.pending) > maxLineBytes {
			lr.pending = lr.pending[:0]
		}
		n, err := lr.r.Read(lr.scratch)
		if err != nil {
			return "", false, err
		}
		if n == 0 {
			return "", false, nil
		}
		lr.pending = append(lr.pending, lr.scratch[:n]...)
	}
}
