// File: cmd/run.go
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xkilldash9x/deskops/internal/agent"
	"github.com/xkilldash9x/deskops/internal/config"
	"github.com/xkilldash9x/deskops/internal/observability"
)

// newRunCmd creates the `run` command: one instruction, one run, exit.
func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run \"<instruction>\"",
		Short: "Executes a single instruction and exits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return err
			}

			session, err := agent.NewSession(ctx, cfg, logger, os.Stdout)
			if err != nil {
				return fmt.Errorf("starting session: %w", err)
			}
			defer session.Close()

			session.Console().Ack()
			_, runDir, err := session.RunInstruction(ctx, args[0])
			if err != nil {
				return err
			}
			session.Console().LogsAt(runDir)
			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(newRunCmd())
}
