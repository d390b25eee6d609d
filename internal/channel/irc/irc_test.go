package irc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DwirefS/ANF-AIOps-sub003/internal/config"
	"github.com/DwirefS/ANF-AIOps-sub003/internal/domain"
	"github.com/DwirefS/ANF-AIOps-sub003/internal/logging"
)

func testLogger() *logging.Logger {
	return logging.New(nil, "silent")
}

func TestNew(t *testing.T) {
	cfg := config.IRCConfig{
		Server:   "irc.libera.chat",
		Port:     6697,
		Nick:     "anfbot",
		Channels: []string{"#storage"},
		UseTLS:   true,
	}
	ch := New(cfg, testLogger())
	assert.Equal(t, "irc", ch.ID())
}

func TestStatus_NotStarted(t *testing.T) {
	ch := New(config.IRCConfig{}, testLogger())
	status := ch.Status()

	assert.Equal(t, "irc", status.ChannelID)
	assert.False(t, status.Connected)
	assert.False(t, status.Running)
	assert.Empty(t, status.LastError)
}

func TestDeliverInbound(t *testing.T) {
	ch := New(config.IRCConfig{Nick: "anfbot"}, testLogger())

	var received domain.InboundMessage
	ch.OnMessage(func(msg domain.InboundMessage) {
		received = msg
	})

	ch.deliverInbound("alice", "#storage", domain.ChatTypeGroup, "list-accounts")

	assert.NotEmpty(t, received.ID)
	assert.Equal(t, "irc", received.ChannelID)
	assert.Equal(t, "#storage", received.ConversationID)
	assert.Equal(t, "alice", received.UserID)
	assert.Equal(t, domain.ChatTypeGroup, received.ChatType)
	assert.Equal(t, "list-accounts", received.Body)
	assert.WithinDuration(t, time.Now(), received.Timestamp, time.Second)
}

func TestSend_NotConnected(t *testing.T) {
	ch := New(config.IRCConfig{}, testLogger())
	err := ch.Send(context.Background(), domain.OutboundMessage{
		To:       "#storage",
		Response: domain.RenderedResponse{Text: "hi"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not connected")
}

func TestStripAddress(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		want      string
		addressed bool
	}{
		{"colon", "anfbot: list-accounts", "list-accounts", true},
		{"comma", "anfbot, help", "help", true},
		{"space only", "anfbot list-accounts", "list-accounts", true},
		{"case-insensitive nick", "ANFBot: help", "help", true},
		{"surrounding whitespace", "  anfbot: help  ", "help", true},
		{"bare nick", "anfbot", "", true},
		{"not addressed", "let's create a volume later", "", false},
		{"nick as prefix of a word", "anfbottle of water", "", false},
		{"nick mid-sentence", "hey anfbot: help", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, addressed := stripAddress(tt.body, "anfbot")
			assert.Equal(t, tt.addressed, addressed)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitMessage_Short(t *testing.T) {
	result := splitMessage("hello world", 400)
	assert.Equal(t, []string{"hello world"}, result)
}

func TestSplitMessage_NewlinesBecomeSeparateLines(t *testing.T) {
	text := "Volumes list\ncount: 2\nitem 1: vol1"
	result := splitMessage(text, 400)
	assert.Equal(t, []string{"Volumes list", "count: 2", "item 1: vol1"}, result)
}

func TestSplitMessage_LongLine(t *testing.T) {
	text := "abcdefghijklmnopqrstuvwxyz"
	result := splitMessage(text, 10)
	require.Len(t, result, 3)
	for _, chunk := range result {
		assert.LessOrEqual(t, len(chunk), 10)
	}
}
