package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func newTestFormatter(opts ...Option) (*Formatter, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	all := append([]Option{WithWriter(buf), WithColor(false)}, opts...)
	return NewFormatter(all...), buf
}

func TestColorizeDisabled(t *testing.T) {
	f, _ := newTestFormatter()
	if got := f.Colorize("hello", ColorGreen); got != "hello" {
		t.Errorf("expected plain text, got %q", got)
	}
}

func TestColorizeEnabled(t *testing.T) {
	f, _ := newTestFormatter(WithColor(true))
	got := f.Colorize("hello", ColorGreen)
	if !strings.HasPrefix(got, string(ColorGreen)) || !strings.HasSuffix(got, string(ColorReset)) {
		t.Errorf("expected color codes around text, got %q", got)
	}
}

func TestStatusLines(t *testing.T) {
	tests := []struct {
		name  string
		print func(f *Formatter) error
		want  string
	}{
		{
			name:  "success",
			print: func(f *Formatter) error { return f.Success("connected to %s", "host") },
			want:  "✓ connected to host\n",
		},
		{
			name:  "error",
			print: func(f *Formatter) error { return f.Error("build failed") },
			want:  "✗ build failed\n",
		},
		{
			name:  "warning",
			print: func(f *Formatter) error { return f.Warning("reconnecting") },
			want:  "⚠ reconnecting\n",
		},
		{
			name:  "info",
			print: func(f *Formatter) error { return f.Info("3 devices") },
			want:  "ℹ 3 devices\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, buf := newTestFormatter()
			if err := tt.print(f); err != nil {
				t.Fatalf("print failed: %v", err)
			}
			if buf.String() != tt.want {
				t.Errorf("got %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestHeader(t *testing.T) {
	f, buf := newTestFormatter()
	if err := f.Header("Status"); err != nil {
		t.Fatalf("Header failed: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0] != "Status" {
		t.Errorf("unexpected header line %q", lines[0])
	}
	if lines[1] != strings.Repeat("─", len("Status")) {
		t.Errorf("unexpected underline %q", lines[1])
	}
}

func TestItem(t *testing.T) {
	f, buf := newTestFormatter()
	if err := f.Item("state", "connected"); err != nil {
		t.Fatalf("Item failed: %v", err)
	}
	if buf.String() != "  state: connected\n" {
		t.Errorf("got %q", buf.String())
	}
}

func TestJSON(t *testing.T) {
	f, buf := newTestFormatter(WithFormat(FormatJSON))
	if err := f.JSON(map[string]int{"pending": 2}); err != nil {
		t.Fatalf("JSON failed: %v", err)
	}

	var decoded map[string]int
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["pending"] != 2 {
		t.Errorf("unexpected decoded value %v", decoded)
	}
}

func TestTableAlignment(t *testing.T) {
	f, buf := newTestFormatter()
	err := f.Table(
		[]string{"ID", "NAME"},
		[][]string{
			{"abc-123", "iPhone 16"},
			{"x", "iPad"},
		},
	)
	if err != nil {
		t.Fatalf("Table failed: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header, separator and 2 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "ID") || !strings.Contains(lines[0], "NAME") {
		t.Errorf("unexpected header row %q", lines[0])
	}
	// Second column of each row must start at the same offset.
	if strings.Index(lines[2], "iPhone") != strings.Index(lines[3], "iPad") {
		t.Errorf("columns misaligned:\n%q\n%q", lines[2], lines[3])
	}
}
