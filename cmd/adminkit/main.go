// Command adminkit inspects permission tables, encodes list queries and
// talks to the HR resource API from the terminal.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fernandezvara/adminkit"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfg    Config
	logger *zap.Logger
)

func main() {
	cfg = loadConfig()

	rootCmd := &cobra.Command{
		Use:   "adminkit",
		Short: "adminkit - admin screen toolkit for the HR API",
		Long: `adminkit works with the same permission table, entity descriptors and
query strings the admin UI uses.

Quick Start:
  adminkit can hr_manager employee delete
  adminkit menu employee
  adminkit query encode --entity employee --sort name,-hiredAt --filter department=ops
  adminkit list --entity employee --query "page=2&pageSize=25"
  adminkit export --entity employee --out employees.xlsx
  adminkit migrate

Environment Variables:
  ADMINKIT_API_URL        Resource API base URL
  ADMINKIT_API_TOKEN      Bearer token
  ADMINKIT_SCOPE          Scope to act as
  ADMINKIT_PERMISSIONS    Permission table file (default: permissions.yaml)
  ADMINKIT_ENTITIES       Entity descriptor file (default: entities.yaml)
  ADMINKIT_DATABASE_URL   PostgreSQL URL for table configs and the audit log
  ADMINKIT_REDIS_ADDR     Redis address for table configs`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := adminkit.NewLogger(cfg.LogLevel, cfg.LogFormat, "adminkit-cli")
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfg.APIBaseURL, "api-url", cfg.APIBaseURL, "Resource API base URL")
	flags.StringVar(&cfg.APIToken, "token", cfg.APIToken, "Bearer token")
	flags.DurationVar(&cfg.APITimeout, "timeout", cfg.APITimeout, "Request timeout")
	flags.IntVar(&cfg.RetryCount, "retries", cfg.RetryCount, "Retries on transport errors")
	flags.StringVarP(&cfg.Scope, "scope", "s", cfg.Scope, "Scope to act as")
	flags.StringVar(&cfg.PermissionsFile, "permissions", cfg.PermissionsFile, "Permission table YAML")
	flags.StringVar(&cfg.EntitiesFile, "entities", cfg.EntitiesFile, "Entity descriptor YAML")
	flags.StringVar(&cfg.DatabaseURL, "db", cfg.DatabaseURL, "PostgreSQL URL")
	flags.IntVar(&cfg.DBMaxConns, "db-max-conns", cfg.DBMaxConns, "Maximum open database connections")
	flags.StringVar(&cfg.RedisAddr, "redis", cfg.RedisAddr, "Redis address")
	flags.IntVar(&cfg.RedisDB, "redis-db", cfg.RedisDB, "Redis database")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flags.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (console, json)")

	rootCmd.AddCommand(
		newCanCmd(),
		newMenuCmd(),
		newQueryCmd(),
		newListCmd(),
		newExportCmd(),
		newColumnsCmd(),
		newMigrateCmd(),
		newResetColumnsCmd(),
		newAuditCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errDenied) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
