package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"

	"github.com/james-darko/tablebuilder"
)

var (
	tablesFile   string
	driver       string
	dsn          string
	prefix       string
	tableOptions string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tablebuilder",
	Short: "Create and drop groups of related tables",
	Long: "Creates the tables of a YAML definition file together with their primary and foreign keys, " +
		"dropping everything again if any step fails. Without --dsn the database is read from DATABASE_URL.",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

// planCmd represents the plan command
var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the DDL steps for a definition file",
	Long:  `Compile the definition file and print the steps build would run, without touching a database.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config(cmd)
		tables, err := cfg.LoadTables()
		if err != nil {
			return err
		}
		plan, err := tablebuilder.Compile(tables, func(name string) string {
			return tablebuilder.RawTableName(name, cfg.Prefix)
		})
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), plan.String())
		return nil
	},
}

// buildCmd represents the build command
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Create the tables of a definition file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, b *tablebuilder.Builder, tables tablebuilder.Tables) error {
			return b.Build(ctx, tables)
		})
	},
}

// teardownCmd represents the teardown command
var teardownCmd = &cobra.Command{
	Use:   "teardown",
	Short: "Drop the tables of a definition file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, b *tablebuilder.Builder, tables tablebuilder.Tables) error {
			return b.Teardown(ctx, tables)
		})
	},
}

// config starts from the environment and applies the flags that were set.
func config(cmd *cobra.Command) tablebuilder.Config {
	cfg := tablebuilder.ConfigFromEnv()
	flags := cmd.Flags()
	if flags.Changed("file") {
		cfg.Tables = tablesFile
	}
	if flags.Changed("driver") {
		cfg.Driver = driver
	}
	if flags.Changed("dsn") {
		cfg.URL = dsn
	}
	if flags.Changed("prefix") {
		cfg.Prefix = prefix
	}
	return cfg
}

func run(cmd *cobra.Command, fn func(context.Context, *tablebuilder.Builder, tablebuilder.Tables) error) error {
	cfg := config(cmd)
	tables, err := cfg.LoadTables()
	if err != nil {
		return err
	}
	db, err := cfg.Open()
	if err != nil {
		return err
	}
	defer db.Close()
	var opts []tablebuilder.Option
	if cmd.Flags().Changed("table-options") {
		opts = append(opts, tablebuilder.WithTableOptions(tableOptions))
	}
	return fn(cmd.Context(), tablebuilder.New(cfg.Executor(db), opts...), tables)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&tablesFile, "file", "f", "", "YAML table definition file (default $DATABASE_TABLES)")
	rootCmd.PersistentFlags().StringVar(&driver, "driver", "", "Database driver: sqlite3, libsql, mysql or pgx (default $DATABASE_DRIVER, then sqlite3)")
	rootCmd.PersistentFlags().StringVar(&dsn, "dsn", "", "Data source name (default $DATABASE_URL)")
	rootCmd.PersistentFlags().StringVar(&prefix, "prefix", "", "Prefix for {{%name}} table names (default $TABLE_PREFIX)")
	rootCmd.PersistentFlags().StringVar(&tableOptions, "table-options", "", "Options appended to CREATE TABLE (default ENGINE=InnoDB on mysql)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every statement")

	rootCmd.AddCommand(planCmd, buildCmd, teardownCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
