// Package transcript assembles accepted recognitions into dialogue windows and
// persists them as a session transcript.
//
// A [Writer] owns one session directory (session_<yyyyMMdd_HHmmss>) under a
// root log directory and keeps two synchronised outputs in it:
//
//   - transcript.jsonl: an append-only event log with one self-contained JSON
//     [Entry] per line.
//   - transcript.txt: a human-readable transcript with a header block, a
//     [DIALOGUE_WINDOW nnnn] marker at the start of every dialogue window, and
//     one [ENTRY nnnnn] block per logged recognition.
//
// Consecutive entries are grouped into the same dialogue window when they
// arrive within the merge gap and either extend one another (a renderer
// typing a line out incrementally) or are sufficiently similar. Both files
// are flushed after every entry; durability wins over batching.
package transcript

import (
	"context"
	"fmt"
	"image"
	"time"
)

const (
	// JSONLFileName is the name of the structured event log inside a session directory.
	JSONLFileName = "transcript.jsonl"

	// TextFileName is the name of the human-readable transcript inside a session directory.
	TextFileName = "transcript.txt"

	// SessionDirPrefix prefixes every session directory name.
	SessionDirPrefix = "session_"

	sessionDirLayout = "20060102_150405"
	timestampLayout  = "2006-01-02T15:04:05-07:00"
	headerTimeLayout = "2006-01-02T15:04:05"
	entryTimeLayout  = "2006-01-02 15:04:05"
)

// AttachedSource identifies the image source an entry was recognised from.
type AttachedSource struct {
	Handle string `json:"handle"`
	Title  string `json:"title"`
}

// Region is the region of interest in source pixel coordinates.
type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// RegionFromRect converts an [image.Rectangle] into a [Region].
func RegionFromRect(r image.Rectangle) Region {
	return Region{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// String formats the region as "x,y,width,height".
func (r Region) String() string {
	return fmt.Sprintf("%d,%d,%d,%d", r.X, r.Y, r.Width, r.Height)
}

// Entry is one logged recognition-and-translation outcome. Its JSON encoding
// is the line format of transcript.jsonl.
type Entry struct {
	EntryID          int            `json:"entry_id"`
	DialogueWindowID int            `json:"dialogue_window_id"`
	Timestamp        string         `json:"timestamp"`
	SourceLang       string         `json:"source_lang"`
	TargetLang       string         `json:"target_lang"`
	SourceText       string         `json:"source_text"`
	TranslatedText   string         `json:"translated_text"`
	Engine           string         `json:"engine"`
	AttachedWindow   AttachedSource `json:"attached_window"`
	ROI              Region         `json:"roi"`

	// Time is the unformatted entry time. It is not part of the line format.
	Time time.Time `json:"-"`
}

// Session describes the run a [Writer] records. It is fixed for the lifetime
// of the Writer.
type Session struct {
	SourceLang string
	TargetLang string

	// Engine is the label written into the header and every entry, usually
	// "<recogniser>+<translator>".
	Engine string

	Source AttachedSource
	Region Region
}

// Sink receives a copy of every entry after it has been written to disk.
// Sinks are mirrors: their failures are logged and never affect the files.
//
// Implementations must be safe for concurrent use.
type Sink interface {
	Append(ctx context.Context, sessionDir string, e Entry) error
}
