package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Brownie44l1/lumistore/internal/config"
	"github.com/Brownie44l1/lumistore/internal/db"
	"github.com/Brownie44l1/lumistore/internal/logging"
)

func migrateCmd() *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				ms, err := db.Migrations()
				if err != nil {
					return err
				}
				for _, m := range ms {
					fmt.Println(m.Version)
				}
				return nil
			}
			return runMigrate(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "list embedded migrations without applying them")
	return cmd
}

func runMigrate(ctx context.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.DBUrl == "" {
		return fmt.Errorf("DB_URL is required")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	pool, err := db.NewPool(ctx, cfg.DBUrl, db.WithConns(cfg.DBMaxConns, cfg.DBMinConns))
	if err != nil {
		return err
	}
	defer pool.Close()

	n, err := db.Migrate(ctx, pool, log)
	if err != nil {
		return err
	}
	log.Info().Int("applied", n).Msg("migrations complete")
	return nil
}
