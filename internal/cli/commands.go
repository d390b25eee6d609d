package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/DwirefS/ANF-AIOps-sub003/internal/command"
)

func newCommandsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "commands",
		Short: "List the chat commands the bot understands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := command.NewRegistry(command.Catalog())
			for _, def := range registry.All() {
				usage, err := registry.Describe(def.Name)
				if err != nil {
					return err
				}
				fmt.Println(usage)
			}
			return nil
		},
	}
}
