package domain

import "context"

// Channel is a chat transport: it delivers inbound turns to a registered
// handler and accepts rendered replies for delivery.
type Channel interface {
	// ID returns the channel's identifier (e.g. "irc", "gateway").
	ID() string

	// Start begins processing messages. It may block until Stop or ctx
	// cancellation.
	Start(ctx context.Context) error

	// Stop shuts the channel down.
	Stop(ctx context.Context) error

	// Send delivers an outbound message.
	Send(ctx context.Context, msg OutboundMessage) error

	// OnMessage registers the handler invoked for each inbound message.
	OnMessage(handler func(msg InboundMessage))
}

// ChannelStatus reports a channel's runtime state.
type ChannelStatus struct {
	ChannelID string `json:"channelId"`
	Running   bool   `json:"running"`
	Connected bool   `json:"connected"`
	LastError string `json:"lastError,omitempty"`
}
