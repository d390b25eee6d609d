package domain

// Fact is a single name/value line in a response card.
type Fact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Action is a suggested follow-up command attached to a response card.
type Action struct {
	Label   string `json:"label"`
	Command string `json:"command"`
}

// Card is an optional structured rendering of a response for transports
// that support rich output.
type Card struct {
	Title   string   `json:"title"`
	Facts   []Fact   `json:"facts,omitempty"`
	Actions []Action `json:"actions,omitempty"`
}

// RenderedResponse is the engine's reply to one inbound turn. Text is the
// plain-text fallback and is always set; Card is present when the transport
// can render structured output.
type RenderedResponse struct {
	Text string `json:"text"`
	Card *Card  `json:"card,omitempty"`
}
