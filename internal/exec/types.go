package exec

import (
	"strings"
	"time"
)

// Stream identifies which output stream a line came from
type Stream int

const (
	// Stdout is the process's standard output
	Stdout Stream = iota
	// Stderr is the process's standard error
	Stderr
)

// String returns the conventional name of the stream
func (s Stream) String() string {
	if s == Stderr {
		return "stderr"
	}
	return "stdout"
}

// Command describes a process to launch
type Command struct {
	Path string   // Executable name or path, resolved via PATH
	Args []string // Arguments, not including Path
	Dir  string   // Working directory; empty means the caller's
	Env  []string // Extra KEY=VALUE pairs appended to the parent environment
}

// String renders the command line for logs
func (c Command) String() string {
	return strings.Join(append([]string{c.Path}, c.Args...), " ")
}

// Line is one line of process output with trailing whitespace removed
type Line struct {
	Stream Stream
	Text   string
}

// Exit is the outcome of a process that ran to completion or was killed
type Exit struct {
	// Code is the exit status, or -1 if the process was terminated by a signal
	Code int
	// Err is set when the process did not exit normally
	Err error
	// Duration is the wall time from start to reaping
	Duration time.Duration
}

// Success reports whether the process exited with status 0
func (e Exit) Success() bool {
	return e.Code == 0 && e.Err == nil
}
