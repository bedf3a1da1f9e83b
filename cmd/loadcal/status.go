package main

import (
	"fmt"
	"io"
)

// statusLine rewrites a single progress line in place on a terminal
// stream. Output already emitted is never retracted; Done only moves to
// the next line.
type statusLine struct {
	w      io.Writer
	active bool
	width  int
}

func newStatusLine(w io.Writer) *statusLine {
	return &statusLine{w: w}
}

// Set replaces the current status line.
func (s *statusLine) Set(line string) {
	pad := ""
	if extra := s.width - len(line); extra > 0 {
		pad = fmt.Sprintf("%*s", extra, "")
	}
	fmt.Fprintf(s.w, "\r%s%s", line, pad)
	s.active = true
	s.width = len(line)
}

// Done finishes the status line, if one was shown.
func (s *statusLine) Done() {
	if s.active {
		fmt.Fprintln(s.w)
		s.active = false
		s.width = 0
	}
}
