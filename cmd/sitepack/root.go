package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for sitepack.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sitepack",
		Short: "Crawl a website and package its content as a canonical site document",
		Long: `sitepack crawls a website within depth and page bounds, separates its
content (headings, paragraphs, images, lists, links) from navigation and
decoration, and normalizes it into a validated site document.

Each crawl writes a bundle directory with site.json (canonical document),
crawl.json (flat crawl result), the raw HTML of every page, and the
downloaded images. A crawl cache skips sites crawled recently with the
same options.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewCacheCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
