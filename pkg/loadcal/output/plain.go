package output

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/benchkit/loadcal/pkg/loadcal/types"
)

// fmtPrecision is the rounding applied to elapsed times in text output.
const fmtPrecision = 10 * time.Millisecond

// PlainFormatter produces unstyled text output for scripts and logs.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Run) error {
	fmt.Fprintf(w, "run: %s", r.Kind)
	if len(r.Props) > 0 {
		fmt.Fprintf(w, " (%s)", strings.Join(r.Props, " "))
	}
	if r.ID != "" {
		fmt.Fprintf(w, " id=%s", r.ID)
	}
	fmt.Fprintf(w, " elapsed=%s\n", r.Elapsed.Round(fmtPrecision))

	fmt.Fprintf(w, "hash_size=%s rps_max=%d mem_size=%s mem_frac=%.3f chunk_pages=%d\n",
		types.FormatSize(r.Knobs.HashSize),
		r.Knobs.RPSMax,
		types.FormatSize(r.Knobs.MemSize),
		r.Knobs.MemFrac,
		r.Knobs.ChunkPages)

	return nil
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

// Ensure PlainFormatter implements Formatter.
var _ Formatter = (*PlainFormatter)(nil)
