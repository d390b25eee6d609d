package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/DwirefS/ANF-AIOps-sub003/internal/authz"
	"github.com/DwirefS/ANF-AIOps-sub003/internal/channel"
	"github.com/DwirefS/ANF-AIOps-sub003/internal/channel/irc"
	"github.com/DwirefS/ANF-AIOps-sub003/internal/command"
	"github.com/DwirefS/ANF-AIOps-sub003/internal/config"
	"github.com/DwirefS/ANF-AIOps-sub003/internal/dispatch"
	"github.com/DwirefS/ANF-AIOps-sub003/internal/engine"
	"github.com/DwirefS/ANF-AIOps-sub003/internal/gateway"
	"github.com/DwirefS/ANF-AIOps-sub003/internal/hooks"
	"github.com/DwirefS/ANF-AIOps-sub003/internal/identity"
	"github.com/DwirefS/ANF-AIOps-sub003/internal/render"
	"github.com/DwirefS/ANF-AIOps-sub003/internal/routing"
	"github.com/DwirefS/ANF-AIOps-sub003/internal/store"
)

func newServeCmd() *cobra.Command {
	var (
		port int
		bind string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the bot: chat channels plus the gateway server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}

			if port != 0 {
				cfg.Gateway.Port = port
			}
			if bind != "" {
				cfg.Gateway.Bind = bind
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
			}

			if err := paths.EnsureDirs(); err != nil {
				return fmt.Errorf("creating data directories: %w", err)
			}

			// Block until SIGINT/SIGTERM
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			hookMgr := hooks.NewManager(log)
			hooks.RegisterConfigHooks(hookMgr, cfg.Hooks)

			// Session store: SQLite or in-memory, both swept periodically.
			var sessions store.SessionStore
			if cfg.Session.Store == "sqlite" {
				db, err := store.Open(paths.SessionDBPath(), log)
				if err != nil {
					return fmt.Errorf("opening session database: %w", err)
				}
				defer db.Close()
				sqliteStore := store.NewSQLiteStore(db)
				sqliteStore.StartSweeper(ctx, time.Minute)
				sessions = sqliteStore
				log.Info().Str("path", paths.SessionDBPath()).Msg("using SQLite session store")
			} else {
				memStore := store.NewMemoryStore(log)
				memStore.StartSweeper(ctx, time.Minute)
				sessions = memStore
				log.Info().Msg("using in-memory session store")
			}

			eng := buildEngine(cfg, sessions, hookMgr)

			// Channel registry with IRC if configured
			channels := channel.NewRegistry(log)
			if cfg.Channels.IRC != nil {
				if err := channels.Register(irc.New(*cfg.Channels.IRC, log)); err != nil {
					return err
				}
			}

			if channels.Count() > 0 {
				router := routing.NewRouter(channels, eng, log)
				router.Wire()
				channels.StartAll(ctx)
				defer channels.StopAll(context.Background())
				log.Info().Int("channels", channels.Count()).Msg("message routing active")
			}

			srv := gateway.New(cfg.Gateway, eng.Handle, channels, log)

			hookMgr.Emit(ctx, hooks.EventGatewayStart, map[string]any{"port": cfg.Gateway.Port})
			defer hookMgr.Emit(context.Background(), hooks.EventGatewayStop, nil)

			return srv.Start(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override gateway port")
	cmd.Flags().StringVar(&bind, "bind", "", "override bind mode (loopback, lan)")

	return cmd
}

// buildEngine wires the registry, guard, tool dispatcher, and renderer
// into an engine per the loaded configuration.
func buildEngine(cfg config.Config, sessions store.SessionStore, hookMgr *hooks.Manager) *engine.Engine {
	registry := command.NewRegistry(command.Catalog())

	roles := authz.DefaultRoles()
	for name, perms := range cfg.Identity.Roles {
		roles[name] = perms
	}
	var sink authz.Sink
	if hookMgr != nil {
		sink = &hookAuditSink{hooks: hookMgr}
	}
	guard := authz.NewGuard(roles, authz.NewAuditor(sink, log), log)

	resolver := identity.NewStaticResolver(identityUsers(cfg), cfg.Identity.TenantID, cfg.Identity.SubscriptionID)

	client := dispatch.NewClient(toolClientConfig(cfg.Tools), log)
	dispatcher := dispatch.NewDispatcher(client, dispatch.Policy{
		MaxAttempts:    cfg.Tools.MaxAttempts,
		InitialBackoff: time.Second,
		CallTimeout:    time.Duration(cfg.Tools.TimeoutSeconds) * time.Second,
	}, log)

	var invoker engine.Invoker = dispatcher
	if hookMgr != nil {
		invoker = &hookInvoker{inner: dispatcher, hooks: hookMgr}
	}

	return engine.New(
		engine.Config{SessionTTL: time.Duration(cfg.Session.TTLMinutes) * time.Minute},
		registry,
		guard,
		sessions,
		invoker,
		render.New(log),
		resolver,
		log,
	)
}

func identityUsers(cfg config.Config) map[string]identity.User {
	users := make(map[string]identity.User, len(cfg.Identity.Users))
	for id, entry := range cfg.Identity.Users {
		users[id] = identity.User{Roles: entry.Roles, Grants: entry.Grants}
	}
	return users
}

func toolClientConfig(cfg config.ToolsConfig) dispatch.ClientConfig {
	out := dispatch.ClientConfig{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
	}
	if cfg.OAuth != nil {
		out.OAuth = &dispatch.OAuthConfig{
			TokenURL:     cfg.OAuth.TokenURL,
			ClientID:     cfg.OAuth.ClientID,
			ClientSecret: cfg.OAuth.ClientSecret,
			Scopes:       cfg.OAuth.Scopes,
		}
	}
	return out
}

// hookInvoker emits a lifecycle event after every dispatched command.
type hookInvoker struct {
	inner engine.Invoker
	hooks *hooks.Manager
}

func (h *hookInvoker) Invoke(ctx context.Context, def *command.Definition, params map[string]string) dispatch.Result {
	res := h.inner.Invoke(ctx, def, params)
	h.hooks.EmitAsync(ctx, hooks.EventCommandDispatched, map[string]any{
		"command":   def.Name,
		"operation": def.Operation,
		"kind":      string(res.Kind),
		"attempts":  res.Attempts,
	})
	return res
}

// hookAuditSink forwards authorization denials to the hook system.
type hookAuditSink struct {
	hooks *hooks.Manager
}

func (s *hookAuditSink) Record(e authz.Entry) error {
	s.hooks.Emit(context.Background(), hooks.EventCommandDenied, map[string]any{
		"user":              e.UserID,
		"command":           e.Command,
		"missingPermission": e.Missing,
		"reason":            e.Reason,
	})
	return nil
}
