package gateway

import (
	"crypto/subtle"
	"os"

	"github.com/DwirefS/ANF-AIOps-sub003/internal/config"
)

// AuthResult is the outcome of an authentication attempt.
type AuthResult struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// ResolveToken resolves the gateway token from config and environment.
// Precedence: config value, then ANFBOT_GATEWAY_TOKEN, then empty.
func ResolveToken(cfg config.GatewayAuth) string {
	if cfg.Token != "" {
		return cfg.Token
	}
	return os.Getenv("ANFBOT_GATEWAY_TOKEN")
}

// Authorize checks the client-supplied token against the server token.
func Authorize(serverToken string, clientAuth *ConnectAuth) AuthResult {
	if serverToken == "" {
		return AuthResult{OK: false, Reason: "server token not configured"}
	}
	if clientAuth == nil || clientAuth.Token == "" {
		return AuthResult{OK: false, Reason: "token required"}
	}
	if !safeEqual(clientAuth.Token, serverToken) {
		return AuthResult{OK: false, Reason: "token_mismatch"}
	}
	return AuthResult{OK: true}
}

// safeEqual performs a constant-time string comparison, without an early
// return on length mismatch.
func safeEqual(a, b string) bool {
	lenMatch := subtle.ConstantTimeEq(int32(len(a)), int32(len(b)))
	cmp := subtle.ConstantTimeCompare([]byte(a), []byte(b))
	return subtle.ConstantTimeSelect(lenMatch, cmp, 0) == 1
}
