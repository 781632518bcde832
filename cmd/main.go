package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"snippepay/internal/bootstrap"
	"snippepay/internal/config"
	"snippepay/internal/payment"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "snippe",
		Short:         "Snippe payment gateway for the storefront checkout",
		Version:       payment.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(paymentsCmd())
	rootCmd.AddCommand(balanceCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := zap.NewProduction()
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			defer logger.Sync()

			dbCfg, err := config.LoadDatabaseOnly()
			if err != nil {
				return err
			}
			db, err := config.NewDatabase(dbCfg, "production")
			if err != nil {
				return err
			}
			if err := bootstrap.Migrate(db); err != nil {
				return err
			}
			logger.Info("Schema migration completed")
			return nil
		},
	}
}
