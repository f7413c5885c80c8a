package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitepack/internal/config"
)

// NewCacheCmd creates the cache command and its subcommands.
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the crawl cache",
		Long: `The crawl cache records which sites were crawled, when, and with which
depth and page limit. A later crawl with the same options is skipped while
the entry is fresh.

Examples:
  # Show how many crawls are recorded
  sitepack cache stats

  # Remove entries older than a week
  sitepack cache prune --max-age 168h

  # Remove every entry from a SQLite cache
  sitepack cache clear --cache-db ./cache.db`,
	}

	cmd.AddCommand(newCacheStatsCmd())
	cmd.AddCommand(newCachePruneCmd())
	cmd.AddCommand(newCacheClearCmd())

	return cmd
}

// addCacheFlags registers the cache backend flags.
func addCacheFlags(cmd *cobra.Command) {
	cmd.Flags().String("cache-file", "",
		"JSON cache file (default: $XDG_CACHE_HOME/sitepack/crawl-cache.json)")
	cmd.Flags().String("cache-db", "",
		"SQLite cache database, used instead of the JSON cache file")
}

// readCacheFlags applies the cache backend flags to cfg.
func readCacheFlags(cmd *cobra.Command, cfg *config.Config) error {
	file, err := cmd.Flags().GetString("cache-file")
	if err != nil {
		return err
	}
	if file != "" {
		cfg.CacheFile = file
	}
	cfg.CacheDB, err = cmd.Flags().GetString("cache-db")
	return err
}

func cacheConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	if err := readCacheFlags(cmd, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newCacheStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := cacheConfig(cmd)
			if err != nil {
				return err
			}
			logger := setupLogger(cmd.ErrOrStderr(), getVerboseFlag(cmd), false)

			c, closeCache, err := openCache(cfg, logger)
			if err != nil {
				return err
			}
			defer closeCache()

			s := c.Stats(cmd.Context())
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Entries:      %d\n", s.Count)
			fmt.Fprintf(out, "Total pages:  %d\n", s.TotalPages)
			fmt.Fprintf(out, "Total assets: %d\n", s.TotalAssets)
			if s.Count > 0 {
				fmt.Fprintf(out, "Oldest:       %s\n", s.Oldest.Local().Format(time.DateTime))
				fmt.Fprintf(out, "Newest:       %s\n", s.Newest.Local().Format(time.DateTime))
			}
			return nil
		},
	}
	addCacheFlags(cmd)
	return cmd
}

func newCachePruneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove cache entries older than --max-age",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := cacheConfig(cmd)
			if err != nil {
				return err
			}
			maxAge, err := cmd.Flags().GetDuration("max-age")
			if err != nil {
				return err
			}
			if maxAge <= 0 {
				return config.ErrInvalidCacheMaxAge
			}
			logger := setupLogger(cmd.ErrOrStderr(), getVerboseFlag(cmd), false)

			c, closeCache, err := openCache(cfg, logger)
			if err != nil {
				return err
			}
			defer closeCache()

			removed, err := c.Prune(cmd.Context(), maxAge)
			if err != nil {
				return fmt.Errorf("failed to prune cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries\n", removed)
			return nil
		},
	}
	addCacheFlags(cmd)
	cmd.Flags().Duration("max-age", config.DefaultCacheMaxAge,
		"Remove entries older than this")
	return cmd
}

func newCacheClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cache entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := cacheConfig(cmd)
			if err != nil {
				return err
			}
			logger := setupLogger(cmd.ErrOrStderr(), getVerboseFlag(cmd), false)

			c, closeCache, err := openCache(cfg, logger)
			if err != nil {
				return err
			}
			defer closeCache()

			if err := c.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("failed to clear cache: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared")
			return nil
		},
	}
	addCacheFlags(cmd)
	return cmd
}
