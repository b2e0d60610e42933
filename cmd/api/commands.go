package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"uniqiita/internal/platform/database"
	"uniqiita/internal/platform/migrate"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := loadRuntime()
		if err != nil {
			return err
		}
		if cfg.UseInMemoryStore() {
			return errors.New("migrate requires DATA_STORE=postgres")
		}

		db, err := database.NewPostgres(cmd.Context(), cfg.DatabaseURL, dbPool(cfg))
		if err != nil {
			return err
		}
		defer db.Close()

		if err := migrate.Apply(cmd.Context(), db, logger); err != nil {
			return err
		}
		logger.Info("migrations applied")
		return nil
	},
}

var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Inspect identity provider credentials",
}

var credentialsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Resolve credentials, build the client and report readiness",
	Long: `Runs the same credential resolution the server performs at startup and
prints which source won. Credential contents are never printed.
Exits non-zero when the identity provider client could not be initialized.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := loadRuntime()
		if err != nil {
			return err
		}

		state := newCredentialManager(cfg, logger).Initialize(cmd.Context(), true)

		report := map[string]any{
			"ready":  state.Ready,
			"source": state.Source,
		}
		if state.Client != nil {
			report["project_id"] = state.Client.ProjectID
		}
		if state.Reason != "" {
			report["reason"] = state.Reason
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}

		if !state.Ready {
			return fmt.Errorf("identity provider not ready: %s", state.Reason)
		}
		return nil
	},
}

func init() {
	credentialsCmd.AddCommand(credentialsCheckCmd)
}
