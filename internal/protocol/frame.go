package protocol

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/mcoot/tictactoe-server/internal/model"
)

// DefaultMaxFrameBytes is the largest accepted inbound frame
const DefaultMaxFrameBytes = 64 * 1024

// ErrFrameTooLarge is returned for a line longer than the limit. The line is
// discarded and the reader stays usable.
var ErrFrameTooLarge = fmt.Errorf("%w: frame too large", model.ErrProtocol)

// FrameReader splits a stream into newline-delimited frames
type FrameReader struct {
	r   *bufio.Reader
	max int
}

// NewFrameReader creates a FrameReader accepting frames up to max bytes
func NewFrameReader(r io.Reader, max int) *FrameReader {
	if max <= 0 {
		max = DefaultMaxFrameBytes
	}
	return &FrameReader{r: bufio.NewReaderSize(r, 4096), max: max}
}

// ReadFrame returns the next non-empty line without its line ending
func (f *FrameReader) ReadFrame() ([]byte, error) {
	var buf []byte
	tooLarge := false

	for {
		chunk, err := f.r.ReadSlice('\n')
		if !tooLarge {
			buf = append(buf, chunk...)
			// +2 leaves room for "\r\n"
			if len(buf) > f.max+2 {
				tooLarge = true
				buf = nil
			}
		}

		switch {
		case err == nil:
			line := bytes.TrimRight(buf, "\r\n")
			if tooLarge || len(line) > f.max {
				return nil, ErrFrameTooLarge
			}
			if len(bytes.TrimSpace(line)) == 0 {
				buf = buf[:0]
				continue
			}
			return line, nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		default:
			line := bytes.TrimRight(buf, "\r\n")
			if errors.Is(err, io.EOF) && !tooLarge && len(bytes.TrimSpace(line)) > 0 && len(line) <= f.max {
				return line, nil
			}
			return nil, err
		}
	}
}
