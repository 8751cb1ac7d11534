package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fernandezvara/adminkit"
	"github.com/fernandezvara/dbkit"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// errDenied makes the process exit non-zero after "denied" was printed.
var errDenied = errors.New("denied")

func newCanCmd() *cobra.Command {
	var module string
	var all bool

	cmd := &cobra.Command{
		Use:   "can <scope> <resource> [action]",
		Short: "Check whether a scope may perform an action on a resource",
		Long: `Resolve one permission against the permission table.

Usage:
  adminkit can hr_manager employee delete     # prints allowed or denied
  adminkit can employee employee --all        # lists every allowed action

Exits with status 1 when the action is denied.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver, err := loadResolver()
			if err != nil {
				return err
			}
			scope, resource := adminkit.Scope(args[0]), args[1]

			if all || len(args) == 2 {
				for _, a := range resolver.Allowed(scope, resource) {
					fmt.Fprintln(cmd.OutOrStdout(), a)
				}
				return nil
			}

			action, err := adminkit.ParseAction(args[2])
			if err != nil {
				return err
			}
			if !resolver.Can(scope, module, resource, action) {
				fmt.Fprintln(cmd.OutOrStdout(), "denied")
				return errDenied
			}
			fmt.Fprintln(cmd.OutOrStdout(), "allowed")
			return nil
		},
	}
	cmd.Flags().StringVar(&module, "module", "", "Module (currently not used by the table)")
	cmd.Flags().BoolVar(&all, "all", false, "List every allowed action")
	return cmd
}

func newMenuCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "menu [scope]",
		Short: "List the entity screens a scope can navigate to",
		Long: `Print the navigation menu of a scope: every entity it may view, with
the icon its descriptor names. Defaults to --scope.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver, err := loadResolver()
			if err != nil {
				return err
			}
			descs, err := adminkit.LoadDescriptorsFile(cfg.EntitiesFile)
			if err != nil {
				return fmt.Errorf("failed to load entities: %w", err)
			}
			scope := adminkit.Scope(cfg.Scope)
			if len(args) == 1 {
				scope = adminkit.Scope(args[0])
			}

			// The terminal has no icon set; every named icon is accepted as-is.
			icons, err := adminkit.NewCapabilityRegistry()
			if err != nil {
				return err
			}
			for _, key := range descs.RequiredIcons() {
				if err := icons.Register(adminkit.Capability{Key: key, Label: key}); err != nil {
					return err
				}
			}

			menu, err := adminkit.BuildMenu(resolver.For(scope), descs, icons)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tTITLE\tICON")
			for _, entry := range menu {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", entry.Key, entry.Title, entry.Icon.Key)
			}
			return tw.Flush()
		},
	}
}

func newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Encode or decode list query strings",
	}

	var (
		entity   string
		page     int
		pageSize int
		sort     string
		filters  []string
	)
	encodeCmd := &cobra.Command{
		Use:   "encode",
		Short: "Print the canonical query string for the given paging, sort and filters",
		Long: `Build a query from flags and print its canonical form.

Usage:
  adminkit query encode --entity employee --page 2 --sort name,-hiredAt \
      --filter department=ops --filter hiredAfter=2024-01-01T00:00:00Z`,
		RunE: func(cmd *cobra.Command, args []string) error {
			desc, err := loadDescriptor(entity)
			if err != nil {
				return err
			}
			values := url.Values{}
			if page > 0 {
				values.Set("page", fmt.Sprint(page))
			}
			if pageSize > 0 {
				values.Set("pageSize", fmt.Sprint(pageSize))
			}
			if sort != "" {
				values.Set("sort", sort)
			}
			for _, f := range filters {
				k, v, ok := strings.Cut(f, "=")
				if !ok {
					return fmt.Errorf("filter %q is not key=value", f)
				}
				values.Set("filter["+k+"]", v)
			}

			codec := adminkit.NewQueryCodec(desc.Filters)
			q, err := codec.FromValues(values)
			if err != nil {
				return err
			}
			encoded, err := codec.Encode(q)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), encoded)
			return nil
		},
	}
	encodeCmd.Flags().StringVarP(&entity, "entity", "e", "", "Entity key")
	encodeCmd.Flags().IntVar(&page, "page", 0, "Page (default 1)")
	encodeCmd.Flags().IntVar(&pageSize, "page-size", 0, "Page size (default 10)")
	encodeCmd.Flags().StringVar(&sort, "sort", "", "Comma separated sort fields, - for descending")
	encodeCmd.Flags().StringArrayVar(&filters, "filter", nil, "Filter as key=value (repeatable)")
	_ = encodeCmd.MarkFlagRequired("entity")

	var decodeEntity string
	decodeCmd := &cobra.Command{
		Use:   "decode <query>",
		Short: "Parse a query string and print the resulting state as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			desc, err := loadDescriptor(decodeEntity)
			if err != nil {
				return err
			}
			q, err := adminkit.NewQueryCodec(desc.Filters).Decode(args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, q)
		},
	}
	decodeCmd.Flags().StringVarP(&decodeEntity, "entity", "e", "", "Entity key")
	_ = decodeCmd.MarkFlagRequired("entity")

	cmd.AddCommand(encodeCmd, decodeCmd)
	return cmd
}

func newListCmd() *cobra.Command {
	var entity, query, format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Fetch one page of an entity list",
		RunE: func(cmd *cobra.Command, args []string) error {
			screen, cleanup, err := openScreen(cmd.Context(), entity, query)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := scopedContext(cmd.Context())
			res, err := screen.Load(ctx)
			if err != nil {
				return err
			}
			if format == "json" {
				return printJSON(cmd, res)
			}

			columns := screen.Config().VisibleColumns(screen.Descriptor().Columns)
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			titles := make([]string, len(columns))
			for i, c := range columns {
				titles[i] = c.Title
			}
			fmt.Fprintln(tw, strings.Join(titles, "\t"))
			for _, row := range res.Data {
				cells := make([]string, len(columns))
				for i, c := range columns {
					if v, ok := row[c.Key]; ok && v != nil {
						cells[i] = fmt.Sprint(v)
					}
				}
				fmt.Fprintln(tw, strings.Join(cells, "\t"))
			}
			p := screen.Table().Pagination()
			fmt.Fprintf(tw, "\npage %d of %d (%d rows)\n", p.Page, max(p.TotalPages, 1), p.TotalCount)
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&entity, "entity", "e", "", "Entity key")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Query string, as produced by 'query encode'")
	cmd.Flags().StringVar(&format, "format", "table", "Output format (table, json)")
	_ = cmd.MarkFlagRequired("entity")
	return cmd
}

func newExportCmd() *cobra.Command {
	var entity, query, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export one page of an entity list to XLSX (visible columns only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			screen, cleanup, err := openScreen(cmd.Context(), entity, query)
			if err != nil {
				return err
			}
			defer cleanup()

			if _, err := screen.Load(scopedContext(cmd.Context())); err != nil {
				return err
			}

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := screen.Export(f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			logger.Info("exported", zap.String("entity", entity), zap.String("file", out))
			return nil
		},
	}
	cmd.Flags().StringVarP(&entity, "entity", "e", "", "Entity key")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Query string")
	cmd.Flags().StringVarP(&out, "out", "o", "export.xlsx", "Output file")
	_ = cmd.MarkFlagRequired("entity")
	return cmd
}

func newColumnsCmd() *cobra.Command {
	var show, hide []string
	var multiSort string

	cmd := &cobra.Command{
		Use:   "columns <entity>",
		Short: "Show or change the stored column visibility of an entity",
		Long: `Table preferences live in Redis (ADMINKIT_REDIS_ADDR) or PostgreSQL
(ADMINKIT_DATABASE_URL).

Usage:
  adminkit columns employee
  adminkit columns employee --hide salary --show email --multi-sort=true`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			desc, err := loadDescriptor(args[0])
			if err != nil {
				return err
			}
			store, cleanup, err := openConfigStore(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			current, err := adminkit.LoadTableConfig(ctx, store, desc)
			if err != nil {
				return err
			}
			changed := false
			for _, c := range show {
				if _, ok := current.Columns[c]; !ok {
					return fmt.Errorf("unknown column %q", c)
				}
				current.Columns[c], changed = true, true
			}
			for _, c := range hide {
				if _, ok := current.Columns[c]; !ok {
					return fmt.Errorf("unknown column %q", c)
				}
				current.Columns[c], changed = false, true
			}
			if multiSort != "" {
				current.MultiSort, changed = multiSort == "true", true
			}
			if changed {
				if err := store.Save(ctx, desc.Key, current); err != nil {
					return err
				}
			}
			return printJSON(cmd, current)
		},
	}
	cmd.Flags().StringSliceVar(&show, "show", nil, "Columns to show")
	cmd.Flags().StringSliceVar(&hide, "hide", nil, "Columns to hide")
	cmd.Flags().StringVar(&multiSort, "multi-sort", "", "Enable multi-column sort (true, false)")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the table config and audit log tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			result, err := db.Migrate(cmd.Context(), store.Migrations())
			if err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			for _, m := range result.Applied {
				fmt.Fprintf(cmd.OutOrStdout(), "Applied migration: %s\n", m.ID)
			}
			if len(result.Applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to apply")
			}
			return nil
		},
	}
}

func newResetColumnsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-columns",
		Short: "Restore the default column visibility of every entity",
		Long: `Writes the descriptor defaults of every entity in entities.yaml to
PostgreSQL in one transaction.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			descs, err := adminkit.LoadDescriptorsFile(cfg.EntitiesFile)
			if err != nil {
				return fmt.Errorf("failed to load entities: %w", err)
			}
			store, db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			defaults := make(map[string]adminkit.TableConfig, len(descs))
			for _, key := range descs.Keys() {
				desc, err := descs.Get(key)
				if err != nil {
					return err
				}
				defaults[key] = desc.DefaultTableConfig()
			}
			if err := store.ResetTableConfigs(cmd.Context(), defaults); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reset %d entities\n", len(defaults))
			return nil
		},
	}
}

func newAuditCmd() *cobra.Command {
	var entity, actor, operation, status string
	var limit int

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the mutation audit log",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			filter := adminkit.NewAuditLogFilter().
				WithEntity(entity).
				WithActor(actor).
				WithOperation(adminkit.MutationOperation(operation)).
				WithStatus(adminkit.TicketStatus(status)).
				WithPagination(limit, 0)
			logs, err := store.GetAuditLog(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return printJSON(cmd, logs)
		},
	}
	cmd.Flags().StringVarP(&entity, "entity", "e", "", "Entity key")
	cmd.Flags().StringVar(&actor, "actor", "", "Actor id")
	cmd.Flags().StringVar(&operation, "operation", "", "create, update, delete or upload")
	cmd.Flags().StringVar(&status, "status", "", "success or error")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum entries")
	return cmd
}

func loadResolver() (*adminkit.Resolver, error) {
	table, err := adminkit.LoadPermissionTableFile(cfg.PermissionsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load permissions: %w", err)
	}
	return adminkit.NewResolver(table), nil
}

func loadDescriptor(entity string) (adminkit.EntityDescriptor, error) {
	descs, err := adminkit.LoadDescriptorsFile(cfg.EntitiesFile)
	if err != nil {
		return adminkit.EntityDescriptor{}, fmt.Errorf("failed to load entities: %w", err)
	}
	return descs.Get(entity)
}

func scopedContext(ctx context.Context) context.Context {
	return adminkit.WithScope(ctx, adminkit.Scope(cfg.Scope))
}

// openScreen builds a screen for entity with the query applied. Stored
// column preferences are used when a config store is configured.
func openScreen(ctx context.Context, entity, query string) (*adminkit.Screen, func(), error) {
	desc, err := loadDescriptor(entity)
	if err != nil {
		return nil, nil, err
	}
	resolver, err := loadResolver()
	if err != nil {
		return nil, nil, err
	}

	deps := adminkit.ScreenDeps{
		API: adminkit.NewAPIClient(cfg.APIBaseURL,
			adminkit.WithToken(cfg.APIToken),
			adminkit.WithDefaultScope(adminkit.Scope(cfg.Scope)),
			adminkit.WithTimeout(cfg.APITimeout),
			adminkit.WithRetry(cfg.RetryCount, 500*time.Millisecond, 5*time.Second),
			adminkit.WithClientLogger(logger)),
		Selections: adminkit.NewSelectionStore(),
		Resolver:   resolver,
		Logger:     logger,
	}

	cleanup := func() {}
	if cfg.RedisAddr != "" || cfg.DatabaseURL != "" {
		store, closeStore, err := openConfigStore(ctx)
		if err != nil {
			return nil, nil, err
		}
		deps.Configs, cleanup = store, closeStore
	}

	screen, err := adminkit.NewScreen(deps, desc)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if _, err := screen.LoadConfig(ctx); err != nil {
		logger.Warn("using default columns", zap.Error(err))
	}
	if query != "" {
		q, err := adminkit.NewQueryCodec(desc.Filters).Decode(query)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		if _, err := screen.Table().Restore(q); err != nil {
			cleanup()
			return nil, nil, err
		}
	}
	return screen, cleanup, nil
}

// openConfigStore prefers Redis and falls back to PostgreSQL.
func openConfigStore(ctx context.Context) (adminkit.TableConfigStore, func(), error) {
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return adminkit.NewRedisTableConfigStore(client), func() { client.Close() }, nil
	}
	if cfg.DatabaseURL != "" {
		store, db, err := openStore()
		if err != nil {
			return nil, nil, err
		}
		return store, func() { db.Close() }, nil
	}
	return nil, nil, errors.New("no table config store: set ADMINKIT_REDIS_ADDR or ADMINKIT_DATABASE_URL")
}

func openDB() (*dbkit.DBKit, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("ADMINKIT_DATABASE_URL is not set")
	}
	db, err := dbkit.New(dbkit.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return db, nil
}

// openStore opens the database and applies the pool settings.
func openStore() (*adminkit.Store, *dbkit.DBKit, error) {
	db, err := openDB()
	if err != nil {
		return nil, nil, err
	}
	store := adminkit.NewStore(db, adminkit.WithStoreLogger(logger))
	pool := adminkit.DefaultPoolConfig()
	pool.MaxOpenConnections = cfg.DBMaxConns
	if err := store.ConfigurePool(pool); err != nil {
		db.Close()
		return nil, nil, err
	}
	return store, db, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
