// Package mock provides test doubles for the Discord relay.
package mock

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// Call records a single send or edit.
type Call struct {
	ChannelID string
	MessageID string // empty for sends
	Embed     *discordgo.MessageEmbed
}

// Poster records embed sends and edits. It is safe for concurrent use.
type Poster struct {
	mu    sync.Mutex
	sends []Call
	edits []Call
	next  int

	// SendErr is returned by ChannelMessageSendEmbed when non-nil.
	SendErr error

	// EditErr is returned by ChannelMessageEditEmbed when non-nil.
	EditErr error
}

// ChannelMessageSendEmbed records the embed and returns a message with a
// sequential ID ("msg-1", "msg-2", ...).
func (m *Poster) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SendErr != nil {
		return nil, m.SendErr
	}
	m.next++
	id := fmt.Sprintf("msg-%d", m.next)
	m.sends = append(m.sends, Call{ChannelID: channelID, Embed: embed})
	return &discordgo.Message{ID: id, ChannelID: channelID}, nil
}

// ChannelMessageEditEmbed records the edit.
func (m *Poster) ChannelMessageEditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.EditErr != nil {
		return nil, m.EditErr
	}
	m.edits = append(m.edits, Call{ChannelID: channelID, MessageID: messageID, Embed: embed})
	return &discordgo.Message{ID: messageID, ChannelID: channelID}, nil
}

// Sends returns a copy of the recorded sends.
func (m *Poster) Sends() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.sends...)
}

// Edits returns a copy of the recorded edits.
func (m *Poster) Edits() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.edits...)
}

// SetEditErr sets EditErr under the lock.
func (m *Poster) SetEditErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EditErr = err
}
