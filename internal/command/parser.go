// Package command provides the chat command parser and the static command
// registry: the mapping from typed text to schema-defined remote operations.
package command

import (
	"fmt"
	"strings"
	"unicode"
)

// ParseError reports malformed command text. It is resolved locally and
// never reaches the remote boundary.
type ParseError struct {
	Message string
}

func (e *ParseError) Error() string { return "parse error: " + e.Message }

// Parsed is the result of tokenizing one line of command text.
type Parsed struct {
	// Command is the first whitespace-delimited token, lowercased.
	Command string
	// Params holds --key value pairs. Keys are lowercased; unknown keys are
	// preserved here and rejected later by schema validation, so staged
	// input during a multi-turn session is never silently dropped.
	Params map[string]string
	// Positional holds trailing bare tokens not attached to any --key.
	// Whether they are an error depends on the command's schema.
	Positional []string
}

// Parse tokenizes raw message text into a command name and a raw parameter
// map. It is a pure function: the same text always yields the same result.
//
// Accepted parameter forms: --key value, --key=value, --key "quoted value".
// Quoted values preserve internal whitespace and backslash-escaped quotes.
func Parse(text string) (Parsed, error) {
	tokens, err := tokenize(text)
	if err != nil {
		return Parsed{}, err
	}
	if len(tokens) == 0 {
		return Parsed{}, &ParseError{Message: "empty message"}
	}

	parsed := Parsed{
		Command: strings.ToLower(tokens[0]),
		Params:  make(map[string]string),
	}

	rest := tokens[1:]
	for i := 0; i < len(rest); i++ {
		tok := rest[i]
		if !strings.HasPrefix(tok, "--") {
			parsed.Positional = append(parsed.Positional, tok)
			continue
		}

		key := strings.TrimPrefix(tok, "--")
		if eq := strings.IndexByte(key, '='); eq >= 0 {
			// --key=value form
			val := key[eq+1:]
			key = strings.ToLower(key[:eq])
			if key == "" {
				return Parsed{}, &ParseError{Message: "empty parameter name in " + tok}
			}
			parsed.Params[key] = val
			continue
		}
		key = strings.ToLower(key)
		if key == "" {
			return Parsed{}, &ParseError{Message: "empty parameter name"}
		}
		if i+1 >= len(rest) || strings.HasPrefix(rest[i+1], "--") {
			return Parsed{}, &ParseError{Message: fmt.Sprintf("missing value for --%s", key)}
		}
		parsed.Params[key] = rest[i+1]
		i++
	}

	return parsed, nil
}

// tokenize splits text on whitespace while honoring double-quoted segments.
// Inside quotes, \" yields a literal quote and \\ a literal backslash.
func tokenize(text string) ([]string, error) {
	var (
		tokens  []string
		current strings.Builder
		inTok   bool
		quoted  bool
		escaped bool
	)

	flush := func() {
		if inTok {
			tokens = append(tokens, current.String())
			current.Reset()
			inTok = false
		}
	}

	for _, r := range text {
		switch {
		case escaped:
			if r != '"' && r != '\\' {
				current.WriteRune('\\')
			}
			current.WriteRune(r)
			escaped = false
		case quoted && r == '\\':
			escaped = true
			inTok = true
		case r == '"':
			quoted = !quoted
			inTok = true // "" is a valid empty token
		case !quoted && unicode.IsSpace(r):
			flush()
		default:
			current.WriteRune(r)
			inTok = true
		}
	}

	if quoted || escaped {
		return nil, &ParseError{Message: "unterminated quoted value"}
	}
	flush()
	return tokens, nil
}
