package cli

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/DwirefS/ANF-AIOps-sub003/internal/config"
	"github.com/DwirefS/ANF-AIOps-sub003/internal/domain"
	"github.com/DwirefS/ANF-AIOps-sub003/internal/store"
)

func newMessageCmd() *cobra.Command {
	var (
		user         string
		conversation string
	)

	cmd := &cobra.Command{
		Use:   "message [text]",
		Short: "Run one command turn locally and print the response",
		Long: "Feeds one chat turn through the dispatch engine without any channel attached. " +
			"Useful for trying commands against the configured tool service.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")

			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}

			// No configured users means local experimentation: grant the
			// implicit caller the admin role.
			if len(cfg.Identity.Users) == 0 {
				if user == "" {
					user = "local"
				}
				cfg.Identity.Users = map[string]config.UserEntry{
					user: {Roles: []string{"admin"}},
				}
			}
			if user == "" {
				return fmt.Errorf("--user is required when identity.users is configured")
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			eng := buildEngine(cfg, store.NewMemoryStore(log), nil)

			resp := eng.Handle(ctx, domain.InboundMessage{
				ID:             uuid.New().String(),
				ChannelID:      "cli",
				ConversationID: conversation,
				UserID:         user,
				ChatType:       domain.ChatTypeDM,
				Body:           text,
				Timestamp:      time.Now(),
			})

			fmt.Println(resp.Text)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "user ID to run the command as")
	cmd.Flags().StringVar(&conversation, "conversation", "cli", "conversation ID for session continuity")

	return cmd
}
