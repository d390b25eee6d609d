// Package routing connects chat transports to the dispatch engine.
package routing

import (
	"context"
	"time"

	"github.com/DwirefS/ANF-AIOps-sub003/internal/channel"
	"github.com/DwirefS/ANF-AIOps-sub003/internal/domain"
	"github.com/DwirefS/ANF-AIOps-sub003/internal/logging"
)

// Handler turns one inbound message into a rendered reply. The engine
// satisfies this.
type Handler interface {
	Handle(ctx context.Context, msg domain.InboundMessage) domain.RenderedResponse
}

// turnTimeout bounds one full turn including remote dispatch and retries.
const turnTimeout = 2 * time.Minute

// Router routes inbound messages to the engine and replies back through
// the originating channel.
type Router struct {
	channels *channel.Registry
	handler  Handler
	log      *logging.Logger
}

// NewRouter creates a message router.
func NewRouter(channels *channel.Registry, handler Handler, log *logging.Logger) *Router {
	return &Router{
		channels: channels,
		handler:  handler,
		log:      log.Sub("routing"),
	}
}

// HandleInbound processes an inbound message from any channel and sends
// the reply back through the channel it arrived on.
func (r *Router) HandleInbound(ctx context.Context, msg domain.InboundMessage) {
	r.log.Info().
		Str("channel", msg.ChannelID).
		Str("user", msg.UserID).
		Str("conversation", msg.ConversationID).
		Str("chatType", string(msg.ChatType)).
		Msg("routing inbound message")

	ctx, cancel := context.WithTimeout(ctx, turnTimeout)
	defer cancel()

	rendered := r.handler.Handle(ctx, msg)
	if rendered.Text == "" && rendered.Card == nil {
		r.log.Debug().Str("conversation", msg.ConversationID).Msg("empty response, nothing to send")
		return
	}

	reply := domain.OutboundMessage{
		ChannelID: msg.ChannelID,
		To:        replyTarget(msg),
		Response:  rendered,
		ReplyToID: msg.ID,
	}

	ch, ok := r.channels.Get(msg.ChannelID)
	if !ok {
		r.log.Error().Str("channel", msg.ChannelID).Msg("channel not found for reply")
		return
	}

	if err := ch.Send(ctx, reply); err != nil {
		r.log.Error().Err(err).
			Str("channel", msg.ChannelID).
			Str("to", reply.To).
			Msg("failed to send reply")
		return
	}

	r.log.Info().
		Str("channel", msg.ChannelID).
		Str("to", reply.To).
		Msg("reply sent")
}

// Wire registers HandleInbound as the message handler on all channels.
// Each turn runs in its own goroutine so one slow command cannot block a
// channel's read loop; the engine serializes turns per conversation.
func (r *Router) Wire() {
	for _, id := range r.channels.List() {
		ch, ok := r.channels.Get(id)
		if !ok {
			continue
		}
		ch.OnMessage(func(msg domain.InboundMessage) {
			go r.HandleInbound(context.Background(), msg)
		})
		r.log.Debug().Str("channel", id).Msg("wired message handler")
	}
}

// replyTarget determines where to send the response.
func replyTarget(msg domain.InboundMessage) string {
	if msg.ChatType == domain.ChatTypeDM {
		return msg.UserID
	}
	return msg.ConversationID
}
