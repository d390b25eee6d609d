package gateway

import (
	"encoding/json"

	"github.com/DwirefS/ANF-AIOps-sub003/internal/domain"
)

// Protocol version supported by this server.
const ProtocolVersion = 1

// Frame types for the WebSocket protocol.
const (
	FrameTypeRequest  = "req"
	FrameTypeResponse = "res"
)

// Methods accepted over the WebSocket connection.
const (
	MethodConnect = "connect"
	MethodMessage = "message"
	MethodStatus  = "status"
)

// Frame is the envelope for all WebSocket messages. The Type field
// discriminates requests from responses.
type Frame struct {
	Type string `json:"type"`

	// Request fields
	ID     string          `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`

	// Response fields
	OK      *bool           `json:"ok,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   *ErrorShape     `json:"error,omitempty"`
}

// ErrorShape is the standard error format in response frames.
type ErrorShape struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ConnectParams are sent by the client in the initial "connect" request.
type ConnectParams struct {
	Auth   *ConnectAuth `json:"auth,omitempty"`
	Client string       `json:"client,omitempty"`
}

// ConnectAuth carries credentials in the connect request.
type ConnectAuth struct {
	Token string `json:"token,omitempty"`
}

// HelloOK is the server's response payload after successful authentication.
type HelloOK struct {
	Protocol int    `json:"protocol"`
	Version  string `json:"version"`
	ConnID   string `json:"connId"`
}

// MessageParams carry one conversational turn over the gateway.
type MessageParams struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
	UserName       string `json:"userName,omitempty"`
	Text           string `json:"text"`
}

// MessageResult is the rendered reply to a message request.
type MessageResult struct {
	Response domain.RenderedResponse `json:"response"`
}

// StatusResult reports gateway and channel health.
type StatusResult struct {
	UptimeSeconds int64                  `json:"uptimeSeconds"`
	Channels      []domain.ChannelStatus `json:"channels,omitempty"`
}

// NewResponse creates a success response frame.
func NewResponse(id string, payload any) (Frame, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, err
	}
	ok := true
	return Frame{
		Type:    FrameTypeResponse,
		ID:      id,
		OK:      &ok,
		Payload: raw,
	}, nil
}

// NewErrorResponse creates an error response frame.
func NewErrorResponse(id string, errShape ErrorShape) Frame {
	ok := false
	return Frame{
		Type:  FrameTypeResponse,
		ID:    id,
		OK:    &ok,
		Error: &errShape,
	}
}
