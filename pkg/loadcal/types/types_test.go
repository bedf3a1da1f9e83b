package types

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    uint64
		wantErr bool
	}{
		// Basic byte values
		{name: "plain bytes", input: "1024", want: 1024, wantErr: false},
		{name: "zero bytes", input: "0", want: 0, wantErr: false},
		{name: "bytes with B suffix", input: "512B", want: 512, wantErr: false},
		{name: "bytes with lowercase b", input: "512b", want: 512, wantErr: false},

		// Kilobytes
		{name: "kilobytes uppercase", input: "100K", want: 100 * 1024, wantErr: false},
		{name: "kilobytes lowercase", input: "100k", want: 100 * 1024, wantErr: false},
		{name: "kilobytes with B", input: "100KB", want: 100 * 1024, wantErr: false},
		{name: "kilobytes with iB", input: "100KiB", want: 100 * 1024, wantErr: false},

		// Megabytes and up
		{name: "megabytes", input: "50M", want: 50 * 1024 * 1024, wantErr: false},
		{name: "gigabytes", input: "2G", want: 2 * 1024 * 1024 * 1024, wantErr: false},
		{name: "terabytes", input: "1TiB", want: 1024 * 1024 * 1024 * 1024, wantErr: false},

		// Whitespace handling
		{name: "leading whitespace", input: "  100M", want: 100 * 1024 * 1024, wantErr: false},
		{name: "trailing whitespace", input: "100M  ", want: 100 * 1024 * 1024, wantErr: false},

		// Edge cases
		{name: "decimal values truncated", input: "1.5G", want: 1610612736, wantErr: false},

		// Error cases
		{name: "empty string", input: "", wantErr: true},
		{name: "only whitespace", input: "   ", wantErr: true},
		{name: "invalid suffix", input: "100X", wantErr: true},
		{name: "negative value", input: "-100M", wantErr: true},
		{name: "letters only", input: "abc", wantErr: true},
		{name: "suffix only", input: "M", wantErr: true},
		{name: "invalid format", input: "100M100", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSize(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseSize(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
				return
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseSize(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		name  string
		bytes uint64
		want  string
	}{
		{name: "zero", bytes: 0, want: "0 B"},
		{name: "bytes", bytes: 500, want: "500 B"},
		{name: "kilobytes", bytes: 1024, want: "1.0 KiB"},
		{name: "megabytes", bytes: 1024 * 1024, want: "1.0 MiB"},
		{name: "gigabytes", bytes: 1024 * 1024 * 1024, want: "1.0 GiB"},
		{name: "mixed size", bytes: 1536 * 1024, want: "1.5 MiB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatSize(tt.bytes)
			if got != tt.want {
				t.Errorf("FormatSize(%d) = %q, want %q", tt.bytes, got, tt.want)
			}
		})
	}
}

func TestFormatSizeDashed(t *testing.T) {
	if got := FormatSizeDashed(0); got != "-" {
		t.Errorf("FormatSizeDashed(0) = %q, want %q", got, "-")
	}
	if got := FormatSizeDashed(2 * GiB); got != "2.0 GiB" {
		t.Errorf("FormatSizeDashed(2GiB) = %q, want %q", got, "2.0 GiB")
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want string
	}{
		{name: "microseconds", d: 250 * time.Microsecond, want: "250us"},
		{name: "milliseconds", d: 42 * time.Millisecond, want: "42ms"},
		{name: "seconds", d: 1500 * time.Millisecond, want: "1.5s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDuration(tt.d); got != tt.want {
				t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
			}
		})
	}
}

func TestFormatDurationDashed(t *testing.T) {
	if got := FormatDurationDashed(0); got != "-" {
		t.Errorf("FormatDurationDashed(0) = %q, want %q", got, "-")
	}
	if got := FormatDurationDashed(5 * time.Millisecond); got != "5ms" {
		t.Errorf("FormatDurationDashed(5ms) = %q, want %q", got, "5ms")
	}
}

func TestKnobsJSONKeys(t *testing.T) {
	// The JSON field names are a stable interface consumed by later jobs.
	knobs := Knobs{
		HashSize:   MiB,
		RPSMax:     2000,
		MemSize:    8 * GiB,
		MemFrac:    1.0,
		ChunkPages: 25,
	}

	data, err := json.Marshal(knobs)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{
		`"hash_size"`, `"max_request_rate"`, `"memory_size"`,
		`"memory_fraction"`, `"chunk_size"`,
	} {
		if !strings.Contains(string(data), key) {
			t.Errorf("encoded knobs missing key %s: %s", key, data)
		}
	}
}
