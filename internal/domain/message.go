package domain

import "time"

// ChatType classifies the conversation context.
type ChatType string

const (
	ChatTypeDM    ChatType = "dm"
	ChatTypeGroup ChatType = "group"
)

// InboundMessage is one conversational turn received from a chat transport.
type InboundMessage struct {
	ID             string    `json:"id"`
	ChannelID      string    `json:"channelId"`
	ConversationID string    `json:"conversationId"`
	UserID         string    `json:"userId"`
	UserName       string    `json:"userName,omitempty"`
	ChatType       ChatType  `json:"chatType"`
	Body           string    `json:"body"`
	Timestamp      time.Time `json:"timestamp"`
}

// OutboundMessage is a rendered reply to be delivered via a chat transport.
type OutboundMessage struct {
	ChannelID string           `json:"channelId"`
	To        string           `json:"to"`
	Response  RenderedResponse `json:"response"`
	ReplyToID string           `json:"replyToId,omitempty"`
}
