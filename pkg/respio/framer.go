package respio

import (
	"bytes"
	"errors"
	"io"

	"github.com/redlinedb/redline/pkg/common"
)

const (
	// MaxLineBuffer caps how many bytes the framer retains while waiting for
	// a CRLF. Malformed input past the cap drops the oldest bytes.
	MaxLineBuffer = 64 * common.KB

	readChunkSize = 8 * common.KB
)

var (
	ErrServerOverloaded = errors.New("redline: server refused connection: max number of clients reached")

	crlf = []byte(CRLF)
)

// Framer owns the byte buffer between the socket and the parser. Bytes go in
// through Feed (or are pulled from the underlying reader), complete
// CRLF-terminated lines come out in order. Stripped mode removes the CRLF,
// raw mode keeps it so bulk payloads containing CRLF survive reassembly.
type Framer struct {
	src        io.Reader
	buf        []byte
	chunk      []byte
	onOverload func()
}

func NewFramer(src io.Reader) *Framer {
	return &Framer{
		src:   src,
		chunk: make([]byte, readChunkSize),
	}
}

// SetOverloadHook registers the callback fired when the server announces its
// client limit. The hook runs at most once per notice, before the error is
// surfaced.
func (f *Framer) SetOverloadHook(fn func()) {
	f.onOverload = fn
}

// Feed appends raw bytes to the frame buffer. If the buffer exceeds
// MaxLineBuffer without containing a CRLF, only the trailing MaxLineBuffer
// bytes are retained.
func (f *Framer) Feed(p []byte) {
	f.buf = append(f.buf, p...)
	if len(f.buf) > MaxLineBuffer && !bytes.Contains(f.buf, crlf) {
		f.buf = f.buf[len(f.buf)-MaxLineBuffer:]
	}
}

func (f *Framer) Buffered() int {
	return len(f.buf)
}

// TryLine returns the next complete line if one is buffered. The returned
// slice is a copy and stays valid across further reads.
func (f *Framer) TryLine(raw bool) ([]byte, bool, error) {
	idx := bytes.Index(f.buf, crlf)
	if idx < 0 {
		return nil, false, nil
	}
	end := idx
	if raw {
		end = idx + 2
	}
	line := make([]byte, end)
	copy(line, f.buf[:end])
	f.buf = f.buf[idx+2:]

	if string(line[:idx]) == MaxClientsNotice {
		if f.onOverload != nil {
			f.onOverload()
		}
		return nil, false, ErrServerOverloaded
	}
	return line, true, nil
}

// ReadLine blocks until a complete line is available, filling the buffer
// from the underlying reader as needed.
func (f *Framer) ReadLine(raw bool) ([]byte, error) {
	for {
		line, ok, err := f.TryLine(raw)
		if err != nil {
			return nil, err
		}
		if ok {
			return line, nil
		}
		if err := f.fill(); err != nil {
			return nil, err
		}
	}
}

func (f *Framer) fill() error {
	if f.src == nil {
		return io.EOF
	}
	n, err := f.src.Read(f.chunk)
	if n > 0 {
		f.Feed(f.chunk[:n])
	}
	if err != nil {
		if n > 0 && errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}
