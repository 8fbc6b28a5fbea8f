package main

import (
	"context"
	"fmt"

	"github.com/kursadbilgin/notify-engine/internal/app"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := loadEngine(context.Background(), app.Options{Migrate: true})
		if err != nil {
			return err
		}
		defer closeEngine(engine)

		fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
		return nil
	},
}
