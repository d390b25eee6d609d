// Package gateway exposes the dispatch engine over HTTP and WebSocket for
// programmatic clients and operator tooling.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/DwirefS/ANF-AIOps-sub003/internal/channel"
	"github.com/DwirefS/ANF-AIOps-sub003/internal/config"
	"github.com/DwirefS/ANF-AIOps-sub003/internal/domain"
	"github.com/DwirefS/ANF-AIOps-sub003/internal/logging"
	"github.com/DwirefS/ANF-AIOps-sub003/internal/version"
)

// MessageHandler processes one conversational turn and returns the reply.
type MessageHandler func(ctx context.Context, msg domain.InboundMessage) domain.RenderedResponse

// Server is the gateway HTTP + WebSocket server.
type Server struct {
	cfg      config.GatewayConfig
	token    string
	log      *logging.Logger
	handler  MessageHandler
	channels *channel.Registry

	startedAt  time.Time
	httpServer *http.Server
	upgrader   websocket.Upgrader
	limiter    *authRateLimiter
}

// New creates a gateway server. The channel registry may be nil when no
// chat transports are configured.
func New(cfg config.GatewayConfig, handler MessageHandler, channels *channel.Registry, log *logging.Logger) *Server {
	return &Server{
		cfg:      cfg,
		token:    ResolveToken(cfg.Auth),
		log:      log.Sub("gateway"),
		handler:  handler,
		channels: channels,
		limiter:  newAuthRateLimiter(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return r.Header.Get("Origin") == "" },
		},
	}
}

// ID implements domain.Channel's naming convention for status reporting.
func (s *Server) ID() string { return "gateway" }

func bindAddr(cfg config.GatewayConfig) string {
	if cfg.Bind == "lan" {
		return fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	}
	return fmt.Sprintf("127.0.0.1:%d", cfg.Port)
}

// Start begins listening. It blocks until the context is cancelled or an
// error occurs.
func (s *Server) Start(ctx context.Context) error {
	addr := bindAddr(s.cfg)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ws", s.handleWebSocket)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(l net.Listener) context.Context { return ctx },
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.startedAt = time.Now()
	s.log.Info().
		Str("addr", ln.Addr().String()).
		Str("bind", s.cfg.Bind).
		Msg("gateway server ready")

	go func() {
		<-ctx.Done()
		s.log.Info().Msg("shutting down gateway server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the server's listen address, or empty string if not started.
func (s *Server) Addr() string {
	if s.httpServer != nil {
		return s.httpServer.Addr
	}
	return ""
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{
		"status":        "ok",
		"version":       version.Version,
		"uptimeSeconds": int64(time.Since(s.startedAt).Seconds()),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}

// handleWebSocket upgrades HTTP to WebSocket and runs the connection loop.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.allow(r.RemoteAddr) {
		s.log.Warn().Str("remote", r.RemoteAddr).Msg("rate limited, too many failed auth attempts")
		http.Error(w, "too many requests", http.StatusTooManyRequests)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	conn.SetReadLimit(1 << 20)

	connID, err := s.handshake(conn)
	if err != nil {
		s.log.Warn().Err(err).Msg("handshake failed")
		s.limiter.recordFailure(conn.RemoteAddr().String())
		conn.Close()
		return
	}
	defer conn.Close()

	s.readLoop(r.Context(), conn, connID)
}

// handshake reads the connect request, authenticates, and sends hello-ok.
func (s *Server) handshake(conn *websocket.Conn) (string, error) {
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))

	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", fmt.Errorf("reading connect: %w", err)
	}

	var frame Frame
	if err := json.Unmarshal(msg, &frame); err != nil {
		return "", fmt.Errorf("parsing connect frame: %w", err)
	}
	if frame.Type != FrameTypeRequest || frame.Method != MethodConnect {
		sendErrorAndClose(conn, frame.ID, "protocol_error", "expected connect request")
		return "", fmt.Errorf("expected connect request, got type=%s method=%s", frame.Type, frame.Method)
	}

	var params ConnectParams
	if err := json.Unmarshal(frame.Params, &params); err != nil {
		sendErrorAndClose(conn, frame.ID, "invalid_params", "invalid connect params")
		return "", fmt.Errorf("parsing connect params: %w", err)
	}

	authResult := Authorize(s.token, params.Auth)
	if !authResult.OK {
		sendErrorAndClose(conn, frame.ID, "unauthorized", authResult.Reason)
		return "", fmt.Errorf("auth failed: %s", authResult.Reason)
	}

	conn.SetReadDeadline(time.Time{})

	connID := uuid.New().String()
	hello := HelloOK{
		Protocol: ProtocolVersion,
		Version:  version.Version,
		ConnID:   connID,
	}
	resp, err := NewResponse(frame.ID, hello)
	if err != nil {
		return "", fmt.Errorf("creating hello response: %w", err)
	}
	if err := conn.WriteJSON(resp); err != nil {
		return "", fmt.Errorf("sending hello: %w", err)
	}

	s.log.Info().
		Str("connId", connID).
		Str("client", params.Client).
		Msg("client authenticated")

	return connID, nil
}

// readLoop processes incoming frames from an authenticated client.
func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, connID string) {
	for {
		var frame Frame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug().Str("connId", connID).Msg("client closed connection")
			} else {
				s.log.Warn().Err(err).Str("connId", connID).Msg("read error")
			}
			return
		}

		if frame.Type != FrameTypeRequest {
			s.log.Debug().Str("type", frame.Type).Msg("ignoring non-request frame")
			continue
		}

		resp := s.dispatch(ctx, connID, frame)
		if err := conn.WriteJSON(resp); err != nil {
			s.log.Warn().Err(err).Str("connId", connID).Msg("write error")
			return
		}
	}
}

// dispatch routes a request frame to the appropriate handler.
func (s *Server) dispatch(ctx context.Context, connID string, frame Frame) Frame {
	switch frame.Method {
	case MethodMessage:
		return s.handleMessage(ctx, connID, frame)
	case MethodStatus:
		return s.handleStatus(frame)
	default:
		return NewErrorResponse(frame.ID, ErrorShape{
			Code:    "method_not_found",
			Message: "unknown method: " + frame.Method,
		})
	}
}

func (s *Server) handleMessage(ctx context.Context, connID string, frame Frame) Frame {
	var params MessageParams
	if err := json.Unmarshal(frame.Params, &params); err != nil {
		return NewErrorResponse(frame.ID, ErrorShape{Code: "invalid_params", Message: "invalid message params"})
	}
	if params.UserID == "" || params.Text == "" {
		return NewErrorResponse(frame.ID, ErrorShape{Code: "invalid_params", Message: "userId and text are required"})
	}
	if params.ConversationID == "" {
		// Fall back to a per-connection conversation.
		params.ConversationID = connID
	}

	inbound := domain.InboundMessage{
		ID:             uuid.New().String(),
		ChannelID:      "gateway",
		ConversationID: params.ConversationID,
		UserID:         params.UserID,
		UserName:       params.UserName,
		ChatType:       domain.ChatTypeDM,
		Body:           params.Text,
		Timestamp:      time.Now(),
	}

	rendered := s.handler(ctx, inbound)

	resp, err := NewResponse(frame.ID, MessageResult{Response: rendered})
	if err != nil {
		return NewErrorResponse(frame.ID, ErrorShape{Code: "internal", Message: "encoding response"})
	}
	return resp
}

func (s *Server) handleStatus(frame Frame) Frame {
	result := StatusResult{
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
	}
	if s.channels != nil {
		result.Channels = s.channels.Status()
	}
	resp, err := NewResponse(frame.ID, result)
	if err != nil {
		return NewErrorResponse(frame.ID, ErrorShape{Code: "internal", Message: "encoding response"})
	}
	return resp
}

// sendErrorAndClose sends an error response and closes the connection.
func sendErrorAndClose(conn *websocket.Conn, reqID, code, message string) {
	conn.WriteJSON(NewErrorResponse(reqID, ErrorShape{Code: code, Message: message}))
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, message))
}

// authRateLimiter tracks failed auth attempts per IP.
type authRateLimiter struct {
	mu       sync.Mutex
	failures map[string][]time.Time
}

const (
	authRateWindow   = 5 * time.Minute
	authRateMaxFails = 10
)

func newAuthRateLimiter() *authRateLimiter {
	return &authRateLimiter{failures: make(map[string][]time.Time)}
}

func (l *authRateLimiter) allow(remoteAddr string) bool {
	host, _, _ := net.SplitHostPort(remoteAddr)
	if host == "" {
		host = remoteAddr
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-authRateWindow)
	recent := l.failures[host]
	filtered := recent[:0]
	for _, t := range recent {
		if t.After(cutoff) {
			filtered = append(filtered, t)
		}
	}
	if len(filtered) == 0 {
		delete(l.failures, host)
		return true
	}
	l.failures[host] = filtered
	return len(filtered) < authRateMaxFails
}

func (l *authRateLimiter) recordFailure(remoteAddr string) {
	host, _, _ := net.SplitHostPort(remoteAddr)
	if host == "" {
		host = remoteAddr
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures[host] = append(l.failures[host], time.Now())
}
