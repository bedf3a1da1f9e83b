package output

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/benchkit/loadcal/pkg/loadcal/types"
)

// PrettyFormatter formats a run with colors and styling using lipgloss.
// It produces output suitable for interactive terminal display.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Run) error {
	w.WriteString(f.formatHeader(r))
	w.WriteString("\n")
	w.WriteString(f.formatKnobs(&r.Knobs))
	return nil
}

// formatHeader builds the header box with run metadata.
func (f *PrettyFormatter) formatHeader(r *Run) string {
	var lines []string

	title := TitleStyle.Render(fmt.Sprintf("loadcal %s", r.Kind))
	if len(r.Props) > 0 {
		title += "  " + LabelStyle.Render(strings.Join(r.Props, " "))
	}
	lines = append(lines, title)

	var infoParts []string
	if r.ID != "" {
		infoParts = append(infoParts,
			fmt.Sprintf("%s %s", LabelStyle.Render("id:"), ValueStyle.Render(r.ID)))
	}
	infoParts = append(infoParts,
		fmt.Sprintf("%s %s", LabelStyle.Render("elapsed:"),
			ValueStyle.Render(r.Elapsed.Round(fmtPrecision).String())))
	lines = append(lines, strings.Join(infoParts, "  "))

	return HeaderBox.Render(strings.Join(lines, "\n"))
}

// formatKnobs renders the calibrated parameter set, one field per line.
func (f *PrettyFormatter) formatKnobs(k *types.Knobs) string {
	rows := []struct {
		label string
		value string
		size  bool
	}{
		{"hash_size", types.FormatSize(k.HashSize), true},
		{"rps_max", fmt.Sprintf("%d", k.RPSMax), false},
		{"mem_size", types.FormatSize(k.MemSize), true},
		{"mem_frac", fmt.Sprintf("%.3f", k.MemFrac), false},
		{"chunk_pages", fmt.Sprintf("%d", k.ChunkPages), false},
	}

	var sb strings.Builder
	for _, row := range rows {
		label := LabelStyle.Render(fmt.Sprintf("%12s:", row.label))
		value := ValueStyle.Render(row.value)
		if row.size {
			value = SizeStyle.Render(row.value)
		}
		sb.WriteString(fmt.Sprintf("  %s %s\n", label, value))
	}
	return sb.String()
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

// Ensure PrettyFormatter implements Formatter.
var _ Formatter = (*PrettyFormatter)(nil)
