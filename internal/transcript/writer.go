package transcript

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	defaultWindowMergeGap       = 1600 * time.Millisecond
	defaultSameWindowSimilarity = 0.72
	defaultSinkTimeout          = 5 * time.Second
)

// ErrClosed is returned by [Writer.Log] after [Writer.Close].
var ErrClosed = errors.New("transcript: writer closed")

// Option is a functional option for configuring a [Writer].
type Option func(*Writer)

// WithSourceOnly omits the translated line from transcript.txt. The JSONL log
// always carries both texts. Default: true.
func WithSourceOnly(sourceOnly bool) Option {
	return func(w *Writer) {
		w.sourceOnly = sourceOnly
	}
}

// WithWindowMergeGap sets the pause after which the next entry always opens a
// new dialogue window. Default: 1.6s.
func WithWindowMergeGap(gap time.Duration) Option {
	return func(w *Writer) {
		if gap > 0 {
			w.mergeGap = gap
		}
	}
}

// WithSameWindowSimilarity sets the similarity below which two entries inside
// the merge gap are split into separate windows. Default: 0.72.
func WithSameWindowSimilarity(threshold float64) Option {
	return func(w *Writer) {
		w.sameWindowSimilarity = threshold
	}
}

// WithClock overrides the time source. Tests use it to control window gaps.
func WithClock(now func() time.Time) Option {
	return func(w *Writer) {
		if now != nil {
			w.now = now
		}
	}
}

// WithSinks attaches mirrors that receive every entry after it is persisted.
func WithSinks(sinks ...Sink) Option {
	return func(w *Writer) {
		w.sinks = append(w.sinks, sinks...)
	}
}

// Writer is the dialogue assembler and transcript writer for one session.
//
// All methods are safe for concurrent use. A single [Writer.Log] call's window
// decision and both file writes happen under one lock.
type Writer struct {
	session              Session
	dir                  string
	sourceOnly           bool
	mergeGap             time.Duration
	sameWindowSimilarity float64
	now                  func() time.Time
	sinks                []Sink
	sinkTimeout          time.Duration

	mu       sync.Mutex
	txtFile  *os.File
	jsonFile *os.File
	txt      *bufio.Writer
	jsonl    *bufio.Writer
	enc      *json.Encoder
	closed   bool

	entryID  int
	windowID int
	lastText string
	lastAt   time.Time
}

// NewWriter creates a fresh session directory under root, opens both
// transcript files and writes the header block. No file is touched before the
// directory exists.
func NewWriter(root string, session Session, opts ...Option) (*Writer, error) {
	w := &Writer{
		session:              session,
		sourceOnly:           true,
		mergeGap:             defaultWindowMergeGap,
		sameWindowSimilarity: defaultSameWindowSimilarity,
		now:                  time.Now,
		sinkTimeout:          defaultSinkTimeout,
	}
	for _, o := range opts {
		o(w)
	}

	started := w.now()
	dir, err := createSessionDir(root, SessionDirPrefix+started.Format(sessionDirLayout))
	if err != nil {
		return nil, err
	}
	w.dir = dir

	if w.txtFile, err = openAppend(filepath.Join(w.dir, TextFileName)); err != nil {
		return nil, err
	}
	if w.jsonFile, err = openAppend(filepath.Join(w.dir, JSONLFileName)); err != nil {
		w.txtFile.Close()
		return nil, err
	}
	w.txt = bufio.NewWriter(w.txtFile)
	w.jsonl = bufio.NewWriter(w.jsonFile)
	w.enc = json.NewEncoder(w.jsonl)
	w.enc.SetEscapeHTML(false)

	if err := w.writeHeader(started); err != nil {
		w.closeFiles()
		return nil, err
	}
	return w, nil
}

// createSessionDir creates root/name, or root/name_2, root/name_3 and so on
// when an earlier session already owns the name. An existing directory is
// never reused.
func createSessionDir(root, name string) (string, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", fmt.Errorf("transcript: create log root: %w", err)
	}
	dir := filepath.Join(root, name)
	for n := 2; ; n++ {
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			return dir, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("transcript: create session dir: %w", err)
		}
		dir = filepath.Join(root, fmt.Sprintf("%s_%d", name, n))
	}
}

func openAppend(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("transcript: open %s: %w", filepath.Base(path), err)
	}
	return f, nil
}

// Dir returns the session directory.
func (w *Writer) Dir() string {
	return w.dir
}

// Counters returns the last assigned entry and dialogue window ids. Both are 0
// before the first entry.
func (w *Writer) Counters() (entryID, windowID int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.entryID, w.windowID
}

// Log records one recognition. Blank sourceText is ignored; anything else
// always produces exactly one new entry, even when a write fails.
func (w *Writer) Log(sourceText, translatedText string) (Entry, error) {
	if strings.TrimSpace(sourceText) == "" {
		return Entry{}, nil
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return Entry{}, ErrClosed
	}

	now := w.now()
	newWindow := w.isNewWindow(sourceText, now)
	if newWindow {
		w.windowID++
	}
	w.entryID++

	e := Entry{
		EntryID:          w.entryID,
		DialogueWindowID: w.windowID,
		Timestamp:        now.Format(timestampLayout),
		SourceLang:       w.session.SourceLang,
		TargetLang:       w.session.TargetLang,
		SourceText:       sourceText,
		TranslatedText:   translatedText,
		Engine:           w.session.Engine,
		AttachedWindow:   w.session.Source,
		ROI:              w.session.Region,
		Time:             now,
	}

	err := errors.Join(w.writeJSONL(e), w.writeText(e, newWindow))

	w.lastText = sourceText
	w.lastAt = now
	sinks := w.sinks
	w.mu.Unlock()

	w.mirror(sinks, e)
	return e, err
}

// Close flushes and closes both files. Further Log calls return [ErrClosed].
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.closeFiles()
}

func (w *Writer) closeFiles() error {
	var errs []error
	if w.txt != nil {
		errs = append(errs, w.txt.Flush())
	}
	if w.jsonl != nil {
		errs = append(errs, w.jsonl.Flush())
	}
	if w.txtFile != nil {
		errs = append(errs, w.txtFile.Close())
	}
	if w.jsonFile != nil {
		errs = append(errs, w.jsonFile.Close())
	}
	return errors.Join(errs...)
}

// writeHeader writes the transcript.txt header block. Must be called before
// the Writer is shared.
func (w *Writer) writeHeader(started time.Time) error {
	rule := strings.Repeat("=", 72)
	fmt.Fprintln(w.txt, "OCR-Lite Transcript")
	fmt.Fprintf(w.txt, "Started At: %s\n", started.Format(headerTimeLayout))
	fmt.Fprintf(w.txt, "Source Lang: %s\n", w.session.SourceLang)
	fmt.Fprintf(w.txt, "Target Lang: %s\n", w.session.TargetLang)
	fmt.Fprintf(w.txt, "OCR Engine: %s\n", w.session.Engine)
	fmt.Fprintf(w.txt, "Attached Window: %s\n", w.session.Source.Title)
	fmt.Fprintf(w.txt, "Window Handle: %s\n", w.session.Source.Handle)
	fmt.Fprintf(w.txt, "ROI: %s\n", w.session.Region)
	fmt.Fprintln(w.txt, rule)
	fmt.Fprintln(w.txt)
	if err := w.txt.Flush(); err != nil {
		return fmt.Errorf("transcript: write header: %w", err)
	}
	return nil
}

// writeJSONL appends e to transcript.jsonl. Must be called with w.mu held.
func (w *Writer) writeJSONL(e Entry) error {
	if err := w.enc.Encode(e); err != nil {
		return fmt.Errorf("transcript: encode entry %d: %w", e.EntryID, err)
	}
	if err := w.jsonl.Flush(); err != nil {
		return fmt.Errorf("transcript: flush %s: %w", JSONLFileName, err)
	}
	return nil
}

// writeText appends e to transcript.txt. Must be called with w.mu held.
func (w *Writer) writeText(e Entry, newWindow bool) error {
	if newWindow {
		fmt.Fprintln(w.txt)
		fmt.Fprintln(w.txt, strings.Repeat("-", 72))
		fmt.Fprintf(w.txt, "[DIALOGUE_WINDOW %04d]\n", e.DialogueWindowID)
	}
	fmt.Fprintf(w.txt, "[ENTRY %05d] %s\n", e.EntryID, e.Time.Format(entryTimeLayout))
	fmt.Fprintf(w.txt, "SRC(%s): %s\n", e.SourceLang, e.SourceText)
	if !w.sourceOnly {
		fmt.Fprintf(w.txt, "TRN(%s): %s\n", e.TargetLang, e.TranslatedText)
	}
	fmt.Fprintln(w.txt)
	if err := w.txt.Flush(); err != nil {
		return fmt.Errorf("transcript: flush %s: %w", TextFileName, err)
	}
	return nil
}

func (w *Writer) mirror(sinks []Sink, e Entry) {
	if len(sinks) == 0 {
		return
	}
	// Each sink gets its own deadline so a slow one cannot starve the rest.
	for _, s := range sinks {
		ctx, cancel := context.WithTimeout(context.Background(), w.sinkTimeout)
		err := s.Append(ctx, w.dir, e)
		cancel()
		if err != nil {
			slog.Warn("transcript: sink append failed", "entry_id", e.EntryID, "err", err)
		}
	}
}
