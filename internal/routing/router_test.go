package routing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DwirefS/ANF-AIOps-sub003/internal/channel"
	"github.com/DwirefS/ANF-AIOps-sub003/internal/domain"
	"github.com/DwirefS/ANF-AIOps-sub003/internal/logging"
)

type fakeHandler struct {
	resp domain.RenderedResponse
}

func (f *fakeHandler) Handle(_ context.Context, msg domain.InboundMessage) domain.RenderedResponse {
	return f.resp
}

type recordingChannel struct {
	id      string
	mu      sync.Mutex
	sent    []domain.OutboundMessage
	sendErr error
	handler func(domain.InboundMessage)
}

func (c *recordingChannel) ID() string                  { return c.id }
func (c *recordingChannel) Start(context.Context) error { return nil }
func (c *recordingChannel) Stop(context.Context) error  { return nil }

func (c *recordingChannel) Send(_ context.Context, msg domain.OutboundMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, msg)
	return nil
}

func (c *recordingChannel) OnMessage(handler func(domain.InboundMessage)) {
	c.handler = handler
}

func (c *recordingChannel) sentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func newFixture(t *testing.T, resp domain.RenderedResponse) (*Router, *recordingChannel) {
	t.Helper()
	log := logging.New(nil, "silent")
	reg := channel.NewRegistry(log)
	ch := &recordingChannel{id: "irc"}
	require.NoError(t, reg.Register(ch))
	return NewRouter(reg, &fakeHandler{resp: resp}, log), ch
}

func TestHandleInbound_GroupReplyGoesToConversation(t *testing.T) {
	router, ch := newFixture(t, domain.RenderedResponse{Text: "Accounts list\ncount: 0"})

	msg := domain.InboundMessage{
		ID:             "m1",
		ChannelID:      "irc",
		ConversationID: "#storage",
		UserID:         "alice",
		ChatType:       domain.ChatTypeGroup,
		Body:           "list-accounts",
	}
	router.HandleInbound(context.Background(), msg)

	require.Len(t, ch.sent, 1)
	assert.Equal(t, "#storage", ch.sent[0].To)
	assert.Equal(t, "m1", ch.sent[0].ReplyToID)
	assert.Equal(t, "Accounts list\ncount: 0", ch.sent[0].Response.Text)
}

func TestHandleInbound_DMReplyGoesToUser(t *testing.T) {
	router, ch := newFixture(t, domain.RenderedResponse{Text: "hi"})

	router.HandleInbound(context.Background(), domain.InboundMessage{
		ChannelID:      "irc",
		ConversationID: "alice",
		UserID:         "alice",
		ChatType:       domain.ChatTypeDM,
		Body:           "help",
	})

	require.Len(t, ch.sent, 1)
	assert.Equal(t, "alice", ch.sent[0].To)
}

func TestHandleInbound_EmptyResponseDropped(t *testing.T) {
	router, ch := newFixture(t, domain.RenderedResponse{})

	router.HandleInbound(context.Background(), domain.InboundMessage{
		ChannelID: "irc",
		UserID:    "alice",
		Body:      "help",
	})

	assert.Zero(t, ch.sentCount())
}

func TestHandleInbound_UnknownChannel(t *testing.T) {
	router, ch := newFixture(t, domain.RenderedResponse{Text: "hi"})

	// Reply cannot be routed; must not panic.
	router.HandleInbound(context.Background(), domain.InboundMessage{
		ChannelID: "slack",
		UserID:    "alice",
		Body:      "help",
	})
	assert.Zero(t, ch.sentCount())
}

func TestHandleInbound_SendFailureLogged(t *testing.T) {
	router, ch := newFixture(t, domain.RenderedResponse{Text: "hi"})
	ch.sendErr = errors.New("boom")

	router.HandleInbound(context.Background(), domain.InboundMessage{
		ChannelID: "irc",
		UserID:    "alice",
		Body:      "help",
	})
	assert.Zero(t, ch.sentCount())
}

func TestWire(t *testing.T) {
	router, ch := newFixture(t, domain.RenderedResponse{Text: "hi"})
	router.Wire()
	require.NotNil(t, ch.handler)

	ch.handler(domain.InboundMessage{
		ChannelID: "irc",
		UserID:    "alice",
		ChatType:  domain.ChatTypeDM,
		Body:      "help",
	})

	require.Eventually(t, func() bool {
		return ch.sentCount() == 1
	}, time.Second, 5*time.Millisecond)
}
