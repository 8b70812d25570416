package faultline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kamilpajak/faultline/internal/cache"
	"github.com/kamilpajak/faultline/internal/config"
	"github.com/kamilpajak/faultline/internal/database"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the analysis cache",
	}

	var asJSON bool
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show cache statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(cmd, func(ctx context.Context, b cache.Backend) error {
				st, err := b.Stats(ctx)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if asJSON {
					enc := json.NewEncoder(w)
					enc.SetIndent("", "  ")
					return enc.Encode(st)
				}
				fmt.Fprintf(w, "Backend:  %s\n", st.Backend)
				if st.Location != "" {
					fmt.Fprintf(w, "Location: %s\n", st.Location)
				}
				fmt.Fprintf(w, "Entries:  %d (%d expired)\n", st.Entries, st.Expired)
				fmt.Fprintf(w, "Size:     %d bytes\n", st.TotalBytes)
				return nil
			})
		},
	}
	showCmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cache entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(cmd, func(ctx context.Context, b cache.Backend) error {
				n, err := b.Clear(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries\n", n)
				return nil
			})
		},
	}

	pruneCmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove expired and unreadable entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(cmd, func(ctx context.Context, b cache.Backend) error {
				n, err := b.Prune(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d entries\n", n)
				return nil
			})
		},
	}

	var down bool
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the Postgres cache schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath(cmd), lookupEnv)
			if err != nil {
				return err
			}
			if cfg.Cache.Backend != cache.BackendPostgres || cfg.Cache.DSN == "" {
				return fmt.Errorf("cache migrate needs cache.backend=postgres and cache.dsn")
			}
			if down {
				if err := database.MigrateDown(cfg.Cache.DSN); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Cache schema removed")
				return nil
			}
			if err := database.Migrate(cfg.Cache.DSN); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cache schema up to date")
			return nil
		},
	}
	migrateCmd.Flags().BoolVar(&down, "down", false, "Drop the cache schema instead")

	cmd.AddCommand(showCmd, clearCmd, pruneCmd, migrateCmd)
	return cmd
}

// withCache opens the configured backend for a maintenance command. Unlike
// analyze, a backend that cannot be opened is an error here.
func withCache(cmd *cobra.Command, fn func(ctx context.Context, b cache.Backend) error) error {
	cfg, err := config.Load(configPath(cmd), lookupEnv)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	b, err := cache.Open(ctx, cache.Options{
		Enabled:     true,
		Backend:     cfg.Cache.Backend,
		Dir:         cfg.Cache.Dir,
		DSN:         cfg.Cache.DSN,
		LockTimeout: cfg.LockTimeout(),
	})
	if err != nil {
		return fmt.Errorf("opening cache: %w", err)
	}
	defer b.Close()
	return fn(ctx, b)
}
