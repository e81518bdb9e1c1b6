// Command migrate applies the backend schema, seeds demo data and manages accounts.
package main

import (
	"fmt"
	"os"

	"busdriver/internal/config"
	"busdriver/internal/database"
	"busdriver/internal/logging"
	"busdriver/internal/middleware"
	"busdriver/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var skipSeed bool

	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Apply the sync backend schema",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(func(cfg *config.ServerConfig, db *sqlx.DB, log *zap.SugaredLogger) error {
				if err := database.Migrate(db, log); err != nil {
					return err
				}
				if skipSeed {
					return nil
				}
				if err := database.SeedAccounts(db, cfg.SeedDriverPIN, cfg.SeedDispatcherPIN, log); err != nil {
					return err
				}
				return database.SeedRoutes(db, models.NowMillis(), log)
			})
		},
	}
	root.Flags().BoolVar(&skipSeed, "no-seed", false, "only apply the schema")

	root.AddCommand(newAccountCmd())
	return root
}

func newAccountCmd() *cobra.Command {
	var name, role string

	cmd := &cobra.Command{
		Use:   "account <id> <pin>",
		Short: "Create an account or reset its PIN",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if role != middleware.RoleDriver && role != middleware.RoleDispatcher {
				return fmt.Errorf("role must be %q or %q", middleware.RoleDriver, middleware.RoleDispatcher)
			}
			if name == "" {
				name = args[0]
			}
			return withDB(func(_ *config.ServerConfig, db *sqlx.DB, log *zap.SugaredLogger) error {
				if err := database.UpsertAccount(db, args[0], name, args[1], role, models.NowMillis()); err != nil {
					return err
				}
				log.Infow("✅ Account saved", "id", args[0], "role", role)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name (defaults to the id)")
	cmd.Flags().StringVar(&role, "role", middleware.RoleDriver, "driver or dispatcher")
	return cmd
}

func withDB(fn func(cfg *config.ServerConfig, db *sqlx.DB, log *zap.SugaredLogger) error) error {
	cfg := config.LoadServer()

	log, err := logging.New("migrate", cfg.LogLevel, "console")
	if err != nil {
		return err
	}
	defer log.Sync()

	db, err := database.Connect(cfg.DatabaseURL, log)
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(cfg, db, log)
}
