package pipeline

import (
	"time"

	"github.com/MrWong99/ocrlite/internal/transcript"
)

// EventKind classifies an [Event].
type EventKind string

const (
	// EventStatus carries a user-facing status line.
	EventStatus EventKind = "status"

	// EventEntry carries an accepted, translated and logged recognition.
	EventEntry EventKind = "entry"

	// EventState reports a lifecycle transition.
	EventState EventKind = "state"
)

// Event is one notification from the pipeline to its observers. The JSON
// encoding is what overlay clients receive.
type Event struct {
	Kind EventKind `json:"kind"`
	Time time.Time `json:"time"`

	// Message is the status line for EventStatus.
	Message string `json:"message,omitempty"`

	// Payload is the display text for EventEntry, formatted by [FormatPayload].
	Payload string `json:"payload,omitempty"`

	// Entry is the logged transcript entry for EventEntry.
	Entry *transcript.Entry `json:"entry,omitempty"`

	// State is the new lifecycle state for EventState.
	State State `json:"state,omitempty"`

	// SessionDir is the transcript session directory of the current run.
	SessionDir string `json:"session_dir,omitempty"`
}

// Observer receives pipeline events. Observers are called synchronously from
// the pipeline goroutines and must not block for long.
type Observer func(Event)

// Fanout returns an Observer that forwards each event to every non-nil
// observer in order.
func Fanout(observers ...Observer) Observer {
	var live []Observer
	for _, o := range observers {
		if o != nil {
			live = append(live, o)
		}
	}
	return func(e Event) {
		for _, o := range live {
			o(e)
		}
	}
}
