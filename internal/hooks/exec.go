package hooks

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"

	"github.com/DwirefS/ANF-AIOps-sub003/internal/config"
)

const defaultExecTimeout = 10 * time.Second

// RegisterConfigHooks wires the shell-command hooks from configuration
// into the manager. Each command receives the event payload as JSON on
// stdin via the ANFBOT_HOOK_PAYLOAD environment variable.
func RegisterConfigHooks(m *Manager, cfg config.HooksConfig) {
	register := func(event string, entries []config.HookEntry) {
		for i, entry := range entries {
			name := fmt.Sprintf("%s[%d]", event, i)
			m.On(event, name, execHandler(entry))
		}
	}

	register(EventCommandDispatched, cfg.CommandDispatched)
	register(EventCommandDenied, cfg.CommandDenied)
	register(EventGatewayStart, cfg.GatewayStart)
	register(EventGatewayStop, cfg.GatewayStop)
}

// execHandler builds a Handler that runs the configured shell command.
func execHandler(entry config.HookEntry) Handler {
	timeout := defaultExecTimeout
	if entry.Timeout > 0 {
		timeout = time.Duration(entry.Timeout) * time.Millisecond
	}

	return func(ctx context.Context, p Payload) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		payload, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("encoding hook payload: %w", err)
		}

		cmd := exec.CommandContext(ctx, "sh", "-c", entry.Command)
		cmd.Env = append(cmd.Environ(), "ANFBOT_HOOK_PAYLOAD="+string(payload))

		if out, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("hook command failed: %w (output: %s)", err, out)
		}
		return nil
	}
}
