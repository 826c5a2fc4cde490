// Package terminal reads user input for the interactive chat.
package terminal

import (
	"bufio"
	"context"
	"io"
	"strings"
)

const maxLineSize = 1 << 20

type line struct {
	text string
	err  error
}

// Reader delivers input lines without blocking the caller past ctx.
// A single goroutine owns the underlying reader.
type Reader struct {
	lines chan line
}

// NewReader starts reading lines from in
func NewReader(in io.Reader) *Reader {
	r := &Reader{lines: make(chan line)}
	go r.scan(in)
	return r
}

func (r *Reader) scan(in io.Reader) {
	defer close(r.lines)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)
	for scanner.Scan() {
		r.lines <- line{text: strings.TrimRight(scanner.Text(), "\r")}
	}
	if err := scanner.Err(); err != nil {
		r.lines <- line{err: err}
	}
}

// ReadLine returns the next line of input. It returns io.EOF when the input
// is exhausted and ctx.Err() when ctx is done first.
func (r *Reader) ReadLine(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case l, ok := <-r.lines:
		if !ok {
			return "", io.EOF
		}
		return l.text, l.err
	}
}
