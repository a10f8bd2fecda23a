package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/groupcart-backend/internal/app"
	"github.com/yungbote/groupcart-backend/internal/data/db"
)

func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, cfg, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync()

			database, err := app.OpenDatabase(log, cfg)
			if err != nil {
				return err
			}
			defer database.Close()

			if err := db.AutoMigrateAll(database.DB()); err != nil {
				return fmt.Errorf("automigrate: %w", err)
			}
			log.Info("migrations applied", "driver", database.Driver())
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
