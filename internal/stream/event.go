// Package stream delivers run events to a client as Server-Sent Events.
//
// Each event is written as a single "data:" frame holding a JSON object with
// a type and a data field:
//
//	data: {"type":"log","data":"Crawling /about"}
//
// Frames are flushed immediately so the client sees progress in real time.
package stream

// Kind is the type of a run event.
type Kind string

const (
	// KindStart is sent once after the run slot is reserved.
	KindStart Kind = "start"
	// KindLog carries one line of task output.
	KindLog Kind = "log"
	// KindDone is the terminal event of a successful run.
	KindDone Kind = "done"
	// KindError is the terminal event of a failed run.
	KindError Kind = "error"
)

// Terminal reports whether k ends a run's event sequence.
func (k Kind) Terminal() bool {
	return k == KindDone || k == KindError
}

// Event is one entry in a run's event sequence.
type Event struct {
	Type Kind   `json:"type"`
	Data string `json:"data"`
}

// Start builds a start event.
func Start(msg string) Event { return Event{Type: KindStart, Data: msg} }

// Log builds a log event.
func Log(line string) Event { return Event{Type: KindLog, Data: line} }

// Done builds a done event.
func Done(msg string) Event { return Event{Type: KindDone, Data: msg} }

// Error builds an error event.
func Error(msg string) Event { return Event{Type: KindError, Data: msg} }
