// Package render converts dispatch results into chat-compatible payloads:
// a structured card plus a plain-text fallback.
package render

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/DwirefS/ANF-AIOps-sub003/internal/dispatch"
	"github.com/DwirefS/ANF-AIOps-sub003/internal/domain"
	"github.com/DwirefS/ANF-AIOps-sub003/internal/logging"
)

// fallbackText is used when rendering itself fails. It is the only case in
// which an error kind is collapsed into a generic message.
const fallbackText = "Something went wrong while formatting the response. The operation result could not be displayed."

// Renderer renders dispatch results. Rendering never fails: an internal
// rendering error degrades to a generic plain-text response.
type Renderer struct {
	log *logging.Logger
}

// New creates a renderer.
func New(log *logging.Logger) *Renderer {
	return &Renderer{log: log.Sub("render")}
}

// Render converts a dispatch result into a rendered response.
func (r *Renderer) Render(res dispatch.Result) (out domain.RenderedResponse) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error().Any("panic", rec).Str("operation", res.Operation).Msg("render failure")
			out = domain.RenderedResponse{Text: fallbackText}
		}
	}()

	if res.OK() {
		return r.renderSuccess(res)
	}
	return r.renderError(res)
}

func (r *Renderer) renderSuccess(res dispatch.Result) domain.RenderedResponse {
	title := operationTitle(res.Operation)
	facts := payloadFacts(res.Payload)

	var b strings.Builder
	b.WriteString(title)
	for _, f := range facts {
		fmt.Fprintf(&b, "\n%s: %s", f.Name, f.Value)
	}
	if len(facts) == 0 {
		b.WriteString("\nDone.")
	}

	return domain.RenderedResponse{
		Text: b.String(),
		Card: &domain.Card{Title: title, Facts: facts},
	}
}

func (r *Renderer) renderError(res dispatch.Result) domain.RenderedResponse {
	var text string
	switch res.Kind {
	case dispatch.KindInvalidParameter:
		text = "Invalid input: " + res.Message
	case dispatch.KindTimeout:
		text = "The operation timed out. Please try again."
	case dispatch.KindRateLimited:
		secs := int(res.RetryAfter.Seconds())
		if secs <= 0 {
			secs = 1
		}
		text = fmt.Sprintf("The service is rate limiting requests. Please wait %ds and try again.", secs)
	case dispatch.KindUnauthorized:
		text = "Insufficient permissions, contact an administrator."
	case dispatch.KindNotFound:
		text = "The requested resource was not found. Check the names and try again."
	case dispatch.KindConflict:
		text = "The resource already exists or is busy with another operation. Check its state and retry."
	default:
		text = "The management service reported an internal error. Please try again later."
	}

	return domain.RenderedResponse{
		Text: text,
		Card: &domain.Card{Title: "Operation failed", Facts: []domain.Fact{
			{Name: "error", Value: string(res.Kind)},
		}},
	}
}

// operationTitle turns "anf.volumes.create" into "Volumes create".
func operationTitle(op string) string {
	if op == "" {
		return "Result"
	}
	parts := strings.Split(op, ".")
	if len(parts) > 1 {
		parts = parts[1:] // drop the service prefix
	}
	title := strings.Join(parts, " ")
	return strings.ToUpper(title[:1]) + title[1:]
}

// payloadFacts flattens an opaque JSON payload into an ordered fact list.
// Objects render one fact per key (sorted); arrays render a count plus one
// fact per element summary; scalars render a single fact.
func payloadFacts(payload json.RawMessage) []domain.Fact {
	if len(payload) == 0 {
		return nil
	}

	var value any
	if err := json.Unmarshal(payload, &value); err != nil {
		return []domain.Fact{{Name: "result", Value: strings.TrimSpace(string(payload))}}
	}

	switch v := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		facts := make([]domain.Fact, 0, len(v))
		for _, k := range keys {
			facts = append(facts, domain.Fact{Name: k, Value: formatValue(k, v[k])})
		}
		return facts
	case []any:
		facts := []domain.Fact{{Name: "count", Value: fmt.Sprintf("%d", len(v))}}
		for i, item := range v {
			facts = append(facts, domain.Fact{
				Name:  fmt.Sprintf("item %d", i+1),
				Value: summarize(item),
			})
		}
		return facts
	case nil:
		return nil
	default:
		return []domain.Fact{{Name: "result", Value: formatValue("result", v)}}
	}
}

// summarize renders one array element on a single line.
func summarize(item any) string {
	m, ok := item.(map[string]any)
	if !ok {
		return formatValue("", item)
	}
	// Prefer a name field when the element has one.
	for _, key := range []string{"name", "id"} {
		if v, ok := m[key].(string); ok {
			return v
		}
	}
	compact, err := json.Marshal(m)
	if err != nil {
		return fmt.Sprintf("%v", m)
	}
	return string(compact)
}
