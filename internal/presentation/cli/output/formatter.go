// Package output provides CLI output formatting utilities.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Format represents the output format type.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Color represents ANSI color codes for terminal output.
type Color string

const (
	ColorReset  Color = "\033[0m"
	ColorRed    Color = "\033[31m"
	ColorGreen  Color = "\033[32m"
	ColorYellow Color = "\033[33m"
	ColorBlue   Color = "\033[34m"
	ColorCyan   Color = "\033[36m"
	ColorBold   Color = "\033[1m"
	ColorDim    Color = "\033[2m"
)

// IsColorSupported determines if color output should be enabled. It honors
// NO_COLOR and FORCE_COLOR and requires stdout to be a terminal.
func IsColorSupported() bool {
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return false
	}
	if _, exists := os.LookupEnv("FORCE_COLOR"); exists {
		return true
	}
	stat, err := os.Stdout.Stat()
	if err != nil || stat.Mode()&os.ModeCharDevice == 0 {
		return false
	}
	term := os.Getenv("TERM")
	return term != "" && term != "dumb"
}

// Formatter handles output formatting with optional color. Safe for
// concurrent use: push notifications and command output interleave.
type Formatter struct {
	mu           sync.Mutex
	writer       io.Writer
	format       Format
	colorEnabled bool
}

// Option is a functional option for configuring a Formatter.
type Option func(*Formatter)

// NewFormatter creates a new Formatter with the given options.
func NewFormatter(opts ...Option) *Formatter {
	f := &Formatter{
		writer:       os.Stdout,
		format:       FormatText,
		colorEnabled: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// WithWriter sets the output writer.
func WithWriter(w io.Writer) Option {
	return func(f *Formatter) { f.writer = w }
}

// WithFormat sets the output format.
func WithFormat(format Format) Option {
	return func(f *Formatter) { f.format = format }
}

// WithColor enables or disables colored output.
func WithColor(enabled bool) Option {
	return func(f *Formatter) { f.colorEnabled = enabled }
}

// Format returns the current output format.
func (f *Formatter) Format() Format {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.format
}

// Println writes formatted output with a newline.
func (f *Formatter) Println(format string, args ...any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, err := fmt.Fprintf(f.writer, format+"\n", args...)
	return err
}

// Colorize wraps text with ANSI color codes if color is enabled.
func (f *Formatter) Colorize(text string, color Color) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.colorEnabled {
		return text
	}
	return string(color) + text + string(ColorReset)
}

// Success prints a success message in green.
func (f *Formatter) Success(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return f.Println("%s", f.Colorize("✓ "+msg, ColorGreen))
}

// Error prints an error message in red.
func (f *Formatter) Error(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return f.Println("%s", f.Colorize("✗ "+msg, ColorRed))
}

// Warning prints a warning message in yellow.
func (f *Formatter) Warning(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return f.Println("%s", f.Colorize("⚠ "+msg, ColorYellow))
}

// Info prints an info message in blue.
func (f *Formatter) Info(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return f.Println("%s", f.Colorize("ℹ "+msg, ColorBlue))
}

// Dim returns text in dim/muted style.
func (f *Formatter) Dim(text string) string {
	return f.Colorize(text, ColorDim)
}

// Header outputs a section header with underline.
func (f *Formatter) Header(msg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.colorEnabled {
		fmt.Fprintf(f.writer, "%s%s%s\n", ColorBold, msg, ColorReset)
	} else {
		fmt.Fprintln(f.writer, msg)
	}
	fmt.Fprintln(f.writer, strings.Repeat("─", len(msg)))
	return nil
}

// Item outputs a key-value pair for structured display.
func (f *Formatter) Item(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.colorEnabled {
		_, err := fmt.Fprintf(f.writer, "  %s%s%s: %s\n", ColorDim, key, ColorReset, value)
		return err
	}
	_, err := fmt.Fprintf(f.writer, "  %s: %s\n", key, value)
	return err
}

// JSON marshals v with indentation and writes it.
func (f *Formatter) JSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, err = fmt.Fprintln(f.writer, string(data))
	return err
}

// Table writes rows as a simple aligned table.
func (f *Formatter) Table(headers []string, rows [][]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	writeRow := func(cells []string) {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			if i < len(widths) {
				parts[i] = fmt.Sprintf("%-*s", widths[i], cell)
			} else {
				parts[i] = cell
			}
		}
		fmt.Fprintln(f.writer, strings.TrimRight(strings.Join(parts, "  "), " "))
	}

	writeRow(headers)
	separators := make([]string, len(headers))
	for i := range headers {
		separators[i] = strings.Repeat("─", widths[i])
	}
	writeRow(separators)
	for _, row := range rows {
		writeRow(row)
	}
	return nil
}
