// Package discord mirrors pipeline output into a Discord text channel.
//
// A [Relay] is a [pipeline.Observer]. Every dialogue window gets one embed
// message that is edited in place while the window's text grows, so a channel
// reads like the in-game dialogue log. Start and stop of the OCR loop are
// posted as green and red embeds.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/ocrlite/internal/pipeline"
)

// embedColorGreen is the embed sidebar color for a running loop.
const embedColorGreen = 0x2ECC71

// embedColorRed is the embed sidebar color once the loop has stopped.
const embedColorRed = 0xE74C3C

// embedColorBlue is the embed sidebar color for dialogue entries.
const embedColorBlue = 0x3498DB

// maxFieldLen is Discord's limit for an embed field value.
const maxFieldLen = 1024

const defaultQueueSize = 64

// Poster is the subset of [discordgo.Session] the relay needs.
type Poster interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

var _ Poster = (*discordgo.Session)(nil)

// Connect opens a bot session with the given token. The caller owns the
// returned session and must Close it.
func Connect(token string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages
	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("discord: open session: %w", err)
	}
	return session, nil
}

// Option is a functional option for configuring a [Relay].
type Option func(*Relay)

// WithQueueSize sets how many events may wait for delivery before new ones
// are dropped. Default: 64.
func WithQueueSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.queueSize = n
		}
	}
}

// Relay posts pipeline events to a Discord channel.
//
// Observe never blocks; delivery happens in [Relay.Run].
type Relay struct {
	poster    Poster
	channelID string
	queueSize int
	queue     chan pipeline.Event
	dropped   atomic.Int64

	// Owned by Run.
	windowID  int
	messageID string
}

// NewRelay creates a relay that posts to channelID through poster.
func NewRelay(poster Poster, channelID string, opts ...Option) *Relay {
	r := &Relay{
		poster:    poster,
		channelID: channelID,
		queueSize: defaultQueueSize,
	}
	for _, o := range opts {
		o(r)
	}
	r.queue = make(chan pipeline.Event, r.queueSize)
	return r
}

// Observe implements [pipeline.Observer]. Status events are not relayed.
func (r *Relay) Observe(e pipeline.Event) {
	switch {
	case e.Kind == pipeline.EventEntry && e.Entry != nil:
	case e.Kind == pipeline.EventState && e.State != pipeline.StateStopping:
	default:
		return
	}
	select {
	case r.queue <- e:
	default:
		if n := r.dropped.Add(1); n == 1 || n%100 == 0 {
			slog.Warn("discord: relay queue full, dropping events", "dropped", n)
		}
	}
}

// Dropped returns how many events were discarded because the queue was full.
func (r *Relay) Dropped() int64 {
	return r.dropped.Load()
}

// Run delivers queued events until ctx is cancelled. It always returns nil.
func (r *Relay) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-r.queue:
			r.deliver(ctx, e)
		}
	}
}

func (r *Relay) deliver(ctx context.Context, e pipeline.Event) {
	opt := discordgo.WithContext(ctx)

	if e.Kind == pipeline.EventState {
		// A new run starts a fresh window message.
		r.windowID, r.messageID = 0, ""
		if _, err := r.poster.ChannelMessageSendEmbed(r.channelID, stateEmbed(e), opt); err != nil {
			slog.Warn("discord: failed to post state", "state", e.State, "channel", r.channelID, "err", err)
		}
		return
	}

	embed := entryEmbed(e)
	if r.messageID != "" && e.Entry.DialogueWindowID == r.windowID {
		_, err := r.poster.ChannelMessageEditEmbed(r.channelID, r.messageID, embed, opt)
		if err == nil {
			return
		}
		slog.Warn("discord: failed to edit entry, posting a new message", "message_id", r.messageID, "err", err)
	}
	msg, err := r.poster.ChannelMessageSendEmbed(r.channelID, embed, opt)
	if err != nil {
		slog.Warn("discord: failed to post entry", "entry_id", e.Entry.EntryID, "channel", r.channelID, "err", err)
		return
	}
	r.windowID, r.messageID = e.Entry.DialogueWindowID, msg.ID
}

func stateEmbed(e pipeline.Event) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:     "OCR stopped",
		Color:     embedColorRed,
		Timestamp: timestamp(e.Time),
	}
	if e.State == pipeline.StateRunning {
		embed.Title = "OCR started"
		embed.Color = embedColorGreen
		if e.SessionDir != "" {
			embed.Footer = &discordgo.MessageEmbedFooter{Text: e.SessionDir}
		}
	}
	return embed
}

func entryEmbed(e pipeline.Event) *discordgo.MessageEmbed {
	ent := e.Entry
	fields := []*discordgo.MessageEmbedField{
		{Name: fieldName("Source", ent.SourceLang), Value: truncate(ent.SourceText)},
	}
	if ent.TranslatedText != "" && ent.TranslatedText != ent.SourceText {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  fieldName("Translation", ent.TargetLang),
			Value: truncate(ent.TranslatedText),
		})
	}
	return &discordgo.MessageEmbed{
		Title:  fmt.Sprintf("Dialogue #%d", ent.DialogueWindowID),
		Color:  embedColorBlue,
		Fields: fields,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("entry %d · %s", ent.EntryID, ent.Engine),
		},
		Timestamp: timestamp(e.Time),
	}
}

func fieldName(name, lang string) string {
	if lang == "" {
		return name
	}
	return fmt.Sprintf("%s (%s)", name, lang)
}

// truncate shortens s to fit an embed field, marking the cut with an ellipsis.
func truncate(s string) string {
	if s == "" {
		return "\u200b"
	}
	runes := []rune(s)
	if len(runes) <= maxFieldLen {
		return s
	}
	return string(runes[:maxFieldLen-1]) + "…"
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339)
}
