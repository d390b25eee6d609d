// Package irc implements the IRC chat transport using the girc library.
package irc

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lrstanley/girc"

	"github.com/DwirefS/ANF-AIOps-sub003/internal/config"
	"github.com/DwirefS/ANF-AIOps-sub003/internal/domain"
	"github.com/DwirefS/ANF-AIOps-sub003/internal/logging"
)

// Channel implements domain.Channel for IRC. Group messages must address
// the bot by nick ("anfbot: list-accounts"); direct messages are taken
// as-is.
type Channel struct {
	cfg    config.IRCConfig
	client *girc.Client
	log    *logging.Logger

	mu      sync.RWMutex
	handler func(msg domain.InboundMessage)
	running bool
	lastErr string
}

// New creates an IRC channel from configuration.
func New(cfg config.IRCConfig, log *logging.Logger) *Channel {
	return &Channel{
		cfg: cfg,
		log: log.Sub("irc"),
	}
}

func (c *Channel) ID() string { return "irc" }

func (c *Channel) OnMessage(handler func(msg domain.InboundMessage)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = handler
}

// Status returns the current runtime status.
func (c *Channel) Status() domain.ChannelStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return domain.ChannelStatus{
		ChannelID: "irc",
		Connected: c.client != nil && c.client.IsConnected(),
		Running:   c.running,
		LastError: c.lastErr,
	}
}

// Start connects to the IRC server and begins processing messages.
func (c *Channel) Start(ctx context.Context) error {
	port := c.cfg.Port
	if port == 0 {
		if c.cfg.UseTLS {
			port = 6697
		} else {
			port = 6667
		}
	}

	gircCfg := girc.Config{
		Server:  c.cfg.Server,
		Port:    port,
		Nick:    c.cfg.Nick,
		User:    c.cfg.Nick,
		Name:    "NetApp Files Ops Bot",
		SSL:     c.cfg.UseTLS,
		Version: "anfbot/1.0",
	}

	if c.cfg.UseTLS {
		gircCfg.TLSConfig = &tls.Config{
			ServerName: c.cfg.Server,
		}
	}

	if c.cfg.SASL && c.cfg.Password != "" {
		gircCfg.SASL = &girc.SASLPlain{
			User: c.cfg.Nick,
			Pass: c.cfg.Password,
		}
	} else if c.cfg.Password != "" {
		gircCfg.ServerPass = c.cfg.Password
	}

	c.client = girc.New(gircCfg)
	c.client.Handlers.Add(girc.CONNECTED, c.onConnected)
	c.client.Handlers.Add(girc.PRIVMSG, c.onPrivmsg)
	c.client.Handlers.Add(girc.DISCONNECTED, c.onDisconnected)

	c.mu.Lock()
	c.running = true
	c.lastErr = ""
	c.mu.Unlock()

	c.log.Info().
		Str("server", c.cfg.Server).
		Int("port", port).
		Str("nick", c.cfg.Nick).
		Strs("channels", c.cfg.Channels).
		Bool("tls", c.cfg.UseTLS).
		Msg("connecting to IRC")

	// Connect() blocks, so run it aside and watch the context.
	errCh := make(chan error, 1)
	go func() {
		errCh <- c.client.Connect()
	}()

	select {
	case err := <-errCh:
		c.mu.Lock()
		c.running = false
		if err != nil {
			c.lastErr = err.Error()
		}
		c.mu.Unlock()
		if err != nil {
			return fmt.Errorf("irc connect: %w", err)
		}
		return nil
	case <-ctx.Done():
		c.client.Close()
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
		return ctx.Err()
	}
}

// Stop gracefully disconnects from the IRC server.
func (c *Channel) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil && c.client.IsConnected() {
		c.log.Info().Msg("disconnecting from IRC")
		c.client.Quit("anfbot shutting down")
	}
	c.running = false
	return nil
}

// Send delivers a rendered reply to an IRC channel or user.
func (c *Channel) Send(ctx context.Context, msg domain.OutboundMessage) error {
	if c.client == nil || !c.client.IsConnected() {
		return fmt.Errorf("irc: not connected")
	}
	if msg.To == "" {
		return fmt.Errorf("irc: no target specified")
	}

	// IRC has no card surface; the plain-text fallback carries the whole
	// response. PRIVMSG cannot embed newlines and lines cap around 512
	// bytes, so chunk first.
	lines := splitMessage(msg.Response.Text, 400)
	for _, line := range lines {
		c.client.Cmd.Message(msg.To, line)
	}

	c.log.Debug().
		Str("to", msg.To).
		Int("lines", len(lines)).
		Msg("sent IRC message")

	return nil
}

func (c *Channel) onConnected(_ *girc.Client, e girc.Event) {
	c.log.Info().Str("nick", c.client.GetNick()).Msg("connected to IRC")

	for _, ch := range c.cfg.Channels {
		c.log.Info().Str("channel", ch).Msg("joining channel")
		c.client.Cmd.Join(ch)
	}
}

func (c *Channel) onPrivmsg(_ *girc.Client, e girc.Event) {
	if e.Source == nil {
		return
	}
	nick := c.client.GetNick()
	if e.Source.Name == nick {
		return
	}

	body := e.Last()
	if e.IsAction() {
		body = e.StripAction()
	}

	if e.IsFromChannel() {
		// In a shared channel only addressed messages are commands.
		stripped, addressed := stripAddress(body, nick)
		if !addressed {
			return
		}
		c.deliverInbound(e.Source.Name, e.Params[0], domain.ChatTypeGroup, stripped)
		return
	}

	// Direct message: the whole body is the command text and the reply
	// target is the sender's nick.
	c.deliverInbound(e.Source.Name, e.Source.Name, domain.ChatTypeDM, body)
}

func (c *Channel) onDisconnected(_ *girc.Client, e girc.Event) {
	c.log.Warn().Msg("disconnected from IRC")
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
}

func (c *Channel) deliverInbound(nick, conversationID string, chatType domain.ChatType, body string) {
	msg := domain.InboundMessage{
		ID:             uuid.New().String(),
		ChannelID:      "irc",
		ConversationID: conversationID,
		UserID:         nick,
		UserName:       nick,
		ChatType:       chatType,
		Body:           body,
		Timestamp:      time.Now(),
	}

	c.mu.RLock()
	handler := c.handler
	c.mu.RUnlock()

	if handler != nil {
		handler(msg)
	}
}

// stripAddress checks whether a channel message addresses the given nick
// ("anfbot: text", "anfbot, text", or "anfbot text") and returns the
// remainder. The nick match is case-insensitive.
func stripAddress(body, nick string) (string, bool) {
	trimmed := strings.TrimSpace(body)
	if len(trimmed) < len(nick) || !strings.EqualFold(trimmed[:len(nick)], nick) {
		return "", false
	}
	rest := trimmed[len(nick):]
	if rest == "" {
		return "", true
	}
	switch rest[0] {
	case ':', ',':
		return strings.TrimSpace(rest[1:]), true
	case ' ', '\t':
		return strings.TrimSpace(rest), true
	default:
		return "", false
	}
}

// splitMessage breaks a long message into chunks suitable for IRC. Each
// newline in the input produces a separate chunk; lines longer than
// maxLen are further split at the byte boundary.
func splitMessage(text string, maxLen int) []string {
	var chunks []string
	for _, line := range strings.Split(text, "\n") {
		if line == "" {
			chunks = append(chunks, line)
		}
		for len(line) > maxLen {
			chunks = append(chunks, line[:maxLen])
			line = line[maxLen:]
		}
		if line != "" {
			chunks = append(chunks, line)
		}
	}
	if len(chunks) == 0 {
		return []string{text}
	}
	return chunks
}
