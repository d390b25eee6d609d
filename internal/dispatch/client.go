package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/DwirefS/ANF-AIOps-sub003/internal/logging"
)

// ClientConfig configures the HTTP tool-boundary client.
type ClientConfig struct {
	// BaseURL is the tool server root, e.g. "https://anf-mcp.internal".
	BaseURL string
	// APIKey is sent as the x-api-key header when set.
	APIKey string
	// OAuth, when set, fetches bearer tokens via the client-credentials
	// grant and attaches them to every call.
	OAuth *OAuthConfig
}

// OAuthConfig holds client-credentials settings for the tool server.
type OAuthConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// Client calls named operations on the tool server over HTTP. Operations
// map to POST {base}/tools/{operation} with a JSON parameter object; the
// response body is the opaque JSON payload.
type Client struct {
	cfg   ClientConfig
	http  *http.Client
	token oauth2.TokenSource
	log   *logging.Logger
}

// NewClient creates a tool-boundary client. The HTTP client carries no
// timeout of its own: per-call deadlines come from the dispatcher.
func NewClient(cfg ClientConfig, log *logging.Logger) *Client {
	c := &Client{
		cfg:  cfg,
		http: &http.Client{},
		log:  log.Sub("toolclient"),
	}
	if cfg.OAuth != nil {
		cc := clientcredentials.Config{
			TokenURL:     cfg.OAuth.TokenURL,
			ClientID:     cfg.OAuth.ClientID,
			ClientSecret: cfg.OAuth.ClientSecret,
			Scopes:       cfg.OAuth.Scopes,
		}
		c.token = cc.TokenSource(context.Background())
	}
	return c
}

// Call implements ToolCaller.
func (c *Client) Call(ctx context.Context, operation string, params map[string]any) (json.RawMessage, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encoding params: %w", err)
	}

	url := c.cfg.BaseURL + "/tools/" + operation
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("x-api-key", c.cfg.APIKey)
	}
	if c.token != nil {
		tok, err := c.token.Token()
		if err != nil {
			return nil, &ToolError{Kind: KindUnauthorized, Message: "token acquisition failed: " + err.Error()}
		}
		tok.SetAuthHeader(req)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return nil, &ToolError{Kind: KindTimeout, Message: "request deadline exceeded"}
		}
		return nil, &ToolError{Kind: KindRemoteInternal, Message: err.Error()}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, &ToolError{Kind: KindRemoteInternal, Message: "reading response: " + err.Error()}
	}

	c.log.Debug().
		Str("operation", operation).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("tool call completed")

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return payload, nil
	}
	return nil, classifyStatus(resp, payload)
}

// classifyStatus maps an HTTP error response to a ToolError kind.
func classifyStatus(resp *http.Response, body []byte) *ToolError {
	msg := remoteMessage(body)

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &ToolError{Kind: KindUnauthorized, Message: msg}
	case http.StatusNotFound:
		return &ToolError{Kind: KindNotFound, Message: msg}
	case http.StatusConflict:
		return &ToolError{Kind: KindConflict, Message: msg}
	case http.StatusTooManyRequests:
		return &ToolError{Kind: KindRateLimited, Message: msg, RetryAfter: retryAfter(resp)}
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return &ToolError{Kind: KindTimeout, Message: msg}
	default:
		return &ToolError{Kind: KindRemoteInternal, Message: fmt.Sprintf("status %d: %s", resp.StatusCode, msg)}
	}
}

// remoteMessage extracts a human-readable detail from an error body.
func remoteMessage(body []byte) string {
	var detail struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &detail); err == nil {
		if detail.Detail != "" {
			return detail.Detail
		}
		if detail.Message != "" {
			return detail.Message
		}
	}
	if len(body) == 0 {
		return "no detail provided"
	}
	const maxLen = 200
	s := string(body)
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	return s
}

// retryAfter reads the Retry-After header, in whole seconds.
func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 0
}
