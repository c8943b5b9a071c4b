package discord

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/MrWong99/ocrlite/internal/discord/mock"
	"github.com/MrWong99/ocrlite/internal/pipeline"
	"github.com/MrWong99/ocrlite/internal/transcript"
)

var t0 = time.Date(2026, 3, 1, 21, 4, 5, 0, time.UTC)

func entry(id, window int, src, trn string) pipeline.Event {
	return pipeline.Event{
		Kind: pipeline.EventEntry,
		Time: t0,
		Entry: &transcript.Entry{
			EntryID:          id,
			DialogueWindowID: window,
			SourceLang:       "ja",
			TargetLang:       "en",
			SourceText:       src,
			TranslatedText:   trn,
			Engine:           "tesseract+DeepL",
		},
	}
}

func state(s pipeline.State) pipeline.Event {
	return pipeline.Event{Kind: pipeline.EventState, Time: t0, State: s, SessionDir: "logs/session_20260301_210405"}
}

// runRelay starts r.Run and returns a func that stops it and waits.
func runRelay(t *testing.T, r *Relay) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := r.Run(ctx); err != nil {
			t.Errorf("Run: %v", err)
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

func waitCalls(t *testing.T, p *mock.Poster, sends, edits int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for len(p.Sends()) != sends || len(p.Edits()) != edits {
		if time.Now().After(deadline) {
			t.Fatalf("sends = %d, edits = %d; want %d, %d", len(p.Sends()), len(p.Edits()), sends, edits)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRelay_OneMessagePerDialogueWindow(t *testing.T) {
	t.Parallel()

	p := &mock.Poster{}
	r := NewRelay(p, "chan-1")
	stop := runRelay(t, r)
	defer stop()

	r.Observe(state(pipeline.StateRunning))
	r.Observe(entry(1, 1, "こんにち", "Hell"))
	r.Observe(entry(2, 1, "こんにちは", "Hello"))
	r.Observe(entry(3, 2, "さようなら", "Goodbye"))
	r.Observe(state(pipeline.StateIdle))
	waitCalls(t, p, 4, 1)

	sends := p.Sends()
	wantTitles := []string{"OCR started", "Dialogue #1", "Dialogue #2", "OCR stopped"}
	for i, want := range wantTitles {
		if sends[i].ChannelID != "chan-1" {
			t.Errorf("send[%d] channel = %q, want chan-1", i, sends[i].ChannelID)
		}
		if sends[i].Embed.Title != want {
			t.Errorf("send[%d] title = %q, want %q", i, sends[i].Embed.Title, want)
		}
	}
	if sends[0].Embed.Color != embedColorGreen || sends[3].Embed.Color != embedColorRed {
		t.Errorf("state colors = %#x, %#x", sends[0].Embed.Color, sends[3].Embed.Color)
	}
	if sends[0].Embed.Footer == nil || sends[0].Embed.Footer.Text != "logs/session_20260301_210405" {
		t.Errorf("start footer = %+v, want session dir", sends[0].Embed.Footer)
	}

	edit := p.Edits()[0]
	if edit.MessageID != "msg-2" {
		t.Errorf("edited message = %q, want msg-2", edit.MessageID)
	}
	if got := edit.Embed.Fields[0].Value; got != "こんにちは" {
		t.Errorf("edited source = %q, want こんにちは", got)
	}
}

func TestRelay_IgnoresStatusAndStopping(t *testing.T) {
	t.Parallel()

	p := &mock.Poster{}
	r := NewRelay(p, "chan-1")
	stop := runRelay(t, r)
	defer stop()

	r.Observe(pipeline.Event{Kind: pipeline.EventStatus, Message: "OCR error: boom"})
	r.Observe(state(pipeline.StateStopping))
	r.Observe(pipeline.Event{Kind: pipeline.EventEntry}) // no entry attached
	r.Observe(state(pipeline.StateRunning))
	waitCalls(t, p, 1, 0)

	if got := p.Sends()[0].Embed.Title; got != "OCR started" {
		t.Errorf("title = %q, want OCR started", got)
	}
}

func TestRelay_NewRunStartsNewMessage(t *testing.T) {
	t.Parallel()

	p := &mock.Poster{}
	r := NewRelay(p, "chan-1")
	stop := runRelay(t, r)
	defer stop()

	// Window ids restart at 1 for every session.
	r.Observe(entry(1, 1, "a", "A"))
	r.Observe(state(pipeline.StateIdle))
	r.Observe(state(pipeline.StateRunning))
	r.Observe(entry(1, 1, "b", "B"))
	waitCalls(t, p, 4, 0)
}

func TestRelay_EditFailureFallsBackToSend(t *testing.T) {
	t.Parallel()

	p := &mock.Poster{}
	p.SetEditErr(errors.New("unknown message"))
	r := NewRelay(p, "chan-1")
	stop := runRelay(t, r)
	defer stop()

	r.Observe(entry(1, 1, "a", "A"))
	r.Observe(entry(2, 1, "ab", "AB"))
	r.Observe(entry(3, 1, "abc", "ABC"))
	waitCalls(t, p, 3, 0)
}

func TestRelay_DropsWhenQueueFull(t *testing.T) {
	t.Parallel()

	r := NewRelay(&mock.Poster{}, "chan-1", WithQueueSize(1))
	for i := range 3 {
		r.Observe(entry(i+1, 1, "x", "y"))
	}
	if got := r.Dropped(); got != 2 {
		t.Errorf("Dropped() = %d, want 2", got)
	}
}

func TestEntryEmbed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		src, trn   string
		wantFields int
	}{
		{name: "translated", src: "こんにちは", trn: "Hello", wantFields: 2},
		{name: "passthrough", src: "Hello", trn: "Hello", wantFields: 1},
		{name: "source only", src: "こんにちは", trn: "", wantFields: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			embed := entryEmbed(entry(7, 3, tt.src, tt.trn))
			if len(embed.Fields) != tt.wantFields {
				t.Fatalf("fields = %d, want %d", len(embed.Fields), tt.wantFields)
			}
			if embed.Fields[0].Name != "Source (ja)" {
				t.Errorf("field name = %q", embed.Fields[0].Name)
			}
			if embed.Footer == nil || !strings.Contains(embed.Footer.Text, "tesseract+DeepL") {
				t.Errorf("footer = %+v, want engine label", embed.Footer)
			}
			if embed.Timestamp != "2026-03-01T21:04:05Z" {
				t.Errorf("timestamp = %q", embed.Timestamp)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("あ", maxFieldLen+10)
	got := truncate(long)
	if n := utf8.RuneCountInString(got); n != maxFieldLen {
		t.Errorf("truncated length = %d runes, want %d", n, maxFieldLen)
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("truncated text should end with an ellipsis")
	}
	if got := truncate("short"); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}
	if got := truncate(""); got == "" {
		t.Errorf("truncate(\"\") must not be empty")
	}
}
