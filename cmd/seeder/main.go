//cmd/seeder/main.go
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/unclebandit/restaurant-crm-backend/internal/config"
	"github.com/unclebandit/restaurant-crm-backend/internal/db"
	"github.com/unclebandit/restaurant-crm-backend/internal/logger"
)

var (
	cfg  *config.Config
	log  *zap.Logger
	conn *sql.DB
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "seeder",
	Short: "Database maintenance for the restaurant CRM: migrations and seed data.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(); err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if log, err = logger.New(cfg.Server.LogLevel, cfg.Server.LogFormat, "restaurant-crm-seeder"); err != nil {
			return err
		}
		conn, err = db.Open(cmd.Context(), cfg.Database, log)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if conn != nil {
			conn.Close()
		}
		if log != nil {
			_ = log.Sync()
		}
	},
}

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down|status]",
	Short:     "Run the embedded goose migrations.",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down", "status"},
	RunE: func(cmd *cobra.Command, args []string) error {
		return db.Migrate(conn, args[0], log)
	},
}

var seedDir string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Execute every .sql file in the seed directory, in name order.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := seedFiles(seedDir)
		if err != nil {
			return err
		}
		for _, file := range files {
			if err := seedFile(cmd.Context(), file); err != nil {
				return err
			}
			log.Info("seeded", zap.String("file", file))
		}
		log.Info("database seeding completed", zap.Int("files", len(files)))
		return nil
	},
}

func seedFiles(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .sql files in %s", dir)
	}
	sort.Strings(files)
	return files, nil
}

func seedFile(ctx context.Context, file string) error {
	content, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", file, err)
	}
	return db.RunInTransaction(ctx, conn, log, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("failed to execute %s: %w", file, err)
		}
		return nil
	})
}

func init() {
	seedCmd.Flags().StringVar(&seedDir, "dir", "seed", "directory containing seed .sql files")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
