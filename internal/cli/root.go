package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigFile string
	LogMode    string
}

// NewRootCommand creates the groupcart command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "groupcart",
		Short: "Group order backend",
		Long:  "Shared-cart group ordering: realtime session gateway, payment splits and order submission.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.exportEnv()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "", "YAML config file (overrides CONFIG_FILE)")
	cmd.PersistentFlags().StringVar(&opts.LogMode, "log-mode", "", "development|production (overrides LOG_MODE)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))

	return cmd
}
