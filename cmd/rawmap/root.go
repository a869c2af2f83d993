package main

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq" // postgres driver
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/go-mizu/rawmap/internal/config"
	"github.com/go-mizu/rawmap/internal/logging"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	config   string
	driver   string
	dsn      string
	logLevel string
	output   string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "rawmap",
		Short: "Map raw SQL query results onto model descriptors",
		Long: `rawmap runs a hand-written SELECT and prints every row as a model instance.
Columns declared by the model become its attributes; any other column is kept
as an annotation. Only SELECT statements are accepted.`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.config, "config", "", "Config file (default: ./rawmap.{yaml,toml,json})")
	pf.StringVar(&g.driver, "driver", "", "Database driver: sqlite or postgres")
	pf.StringVar(&g.dsn, "dsn", "", "Data source name passed to the driver")
	pf.StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn, error, off")
	pf.StringVarP(&g.output, "output", "o", "", "Output format: json or yaml")

	root.AddCommand(newQueryCmd(g), newCountCmd(g), newValidateCmd())
	return root
}

// loadConfig resolves configuration. Precedence: flags > RAWMAP_* env > config file > defaults.
func (g *globalFlags) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(g.config)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("driver") {
		cfg.Driver = g.driver
	}
	if flags.Changed("dsn") {
		cfg.DSN = g.dsn
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = g.logLevel
	}
	if flags.Changed("output") {
		cfg.Output = g.output
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	return logging.New(cmd.ErrOrStderr(), logging.LevelFromString(cfg.Log.Level), cfg.Log.Format)
}

func openDB(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}
