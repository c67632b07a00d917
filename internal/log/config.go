package log

import (
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Format represents the output format for logs
type Format int

const (
	// FormatJSON outputs logs in JSON format
	FormatJSON Format = iota
	// FormatText outputs logs in human-readable text format
	FormatText
	// FormatAuto picks text for terminals and JSON otherwise
	FormatAuto
)

// String returns the string representation of the format
func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatText:
		return "text"
	case FormatAuto:
		return "auto"
	default:
		return "json"
	}
}

// ParseFormat parses a string into a Format
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON
	case "text", "console":
		return FormatText
	case "auto", "":
		return FormatAuto
	default:
		return FormatJSON
	}
}

// Output represents where logs should be written
type Output struct {
	writer io.Writer
}

// Writer returns the underlying io.Writer
func (o Output) Writer() io.Writer {
	return o.writer
}

// IsTerminal reports whether the output is attached to a terminal.
func (o Output) IsTerminal() bool {
	f, ok := o.writer.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// NewOutput creates an Output from an io.Writer
func NewOutput(w io.Writer) Output {
	return Output{writer: w}
}

// OutputStdout creates an Output that writes to stdout
func OutputStdout() Output {
	return Output{writer: os.Stdout}
}

// OutputStderr creates an Output that writes to stderr
func OutputStderr() Output {
	return Output{writer: os.Stderr}
}

// Config holds configuration for the logger
type Config struct {
	// Level is the minimum log level to output
	Level Level

	// Format is the output format (JSON, Text or Auto)
	Format Format

	// Output is where logs should be written
	Output Output

	// AddSource includes source file and line number in logs
	AddSource bool

	// ServiceName is added to every record as "service"
	ServiceName string

	// ServiceVersion is added to every record as "version"
	ServiceVersion string
}

// DefaultConfig returns a sensible default configuration
// Logs at INFO level to stderr, text on a terminal and JSON otherwise
func DefaultConfig() Config {
	return Config{
		Level:          LevelInfo,
		Format:         FormatAuto,
		Output:         OutputStderr(),
		AddSource:      false,
		ServiceName:    "auditd",
		ServiceVersion: "dev",
	}
}

// DevelopmentConfig returns a configuration suitable for development
// Logs at DEBUG level in text format to stderr with source location
func DevelopmentConfig() Config {
	return Config{
		Level:          LevelDebug,
		Format:         FormatText,
		Output:         OutputStderr(),
		AddSource:      true,
		ServiceName:    "auditd",
		ServiceVersion: "dev",
	}
}

// resolvedFormat turns FormatAuto into a concrete format for the configured output.
func (c Config) resolvedFormat() Format {
	if c.Format != FormatAuto {
		return c.Format
	}
	if c.Output.IsTerminal() {
		return FormatText
	}
	return FormatJSON
}
