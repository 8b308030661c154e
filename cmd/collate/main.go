package main

import (
	"context"
	"fmt"
	"os"

	"collate/api/internal/config"
	"collate/api/internal/kv"
	"collate/api/internal/logging"
	"collate/api/internal/persist"

	"github.com/spf13/cobra"
)

var (
	cfg     config.Config
	logger  logging.Logger
	kvStore kv.Store
	store   *persist.Store
)

var rootCmd = &cobra.Command{
	Use:   "collate",
	Short: "Collate reviewer feedback from annotated copies of a document",
	Long: `collate merges independently annotated copies of a document into one
collated view and manages the saved projects of the collation service.

Documents are read through the configured extractor (--parser-cmd); files
ending in .json are read as extractor output directly.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = logging.New(logging.Config{
			Level: logging.ParseLevel(cfg.LogLevel),
			JSON:  cfg.LogJSON,
		})
		opened, err := kv.Open(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("open %s store: %w", cfg.Store, err)
		}
		kvStore = opened
		store = persist.New(kvStore, logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if kvStore != nil {
			_ = kvStore.Close()
		}
	},
}

func init() {
	cfg = config.Load()
	// The CLI logs warnings only unless asked otherwise.
	cfg.LogLevel = "warn"

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfg.Store, "store", cfg.Store, "Storage backend: memory, file, sqlite, postgres, redis, s3 or git")
	flags.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "Directory of the file backend")
	flags.StringVar(&cfg.SQLitePath, "sqlite-path", cfg.SQLitePath, "Database file of the sqlite backend")
	flags.StringVar(&cfg.DatabaseURL, "database-url", cfg.DatabaseURL, "Connection string of the postgres backend")
	flags.StringVar(&cfg.RedisURL, "redis-url", cfg.RedisURL, "URL of the redis backend")
	flags.StringVar(&cfg.S3Endpoint, "s3-endpoint", cfg.S3Endpoint, "Endpoint of the s3 backend")
	flags.StringVar(&cfg.S3Bucket, "s3-bucket", cfg.S3Bucket, "Bucket of the s3 backend")
	flags.StringVar(&cfg.GitDir, "git-dir", cfg.GitDir, "Repository of the git backend")
	flags.StringVar(&cfg.ParserCommand, "parser-cmd", cfg.ParserCommand, "Document extractor command")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn or error")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
