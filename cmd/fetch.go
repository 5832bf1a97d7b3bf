package main

import (
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lodging-cli/internal/config"
	"github.com/sells-group/lodging-cli/internal/fetcher"
)

var (
	fetchURL         string
	fetchDir         string
	fetchConcurrency int
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the survey workbooks linked from the statistics page",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("fetch"); err != nil {
			return err
		}

		pageURL := fetchURL
		if pageURL == "" {
			pageURL = cfg.Fetch.SourceURL
		}
		dir := fetchDir
		if dir == "" {
			dir = filepath.Join(cfg.Data.Dir, "raw")
		}

		m := &fetcher.Mirror{
			Fetcher:     newHTTPFetcher(cfg.Fetch),
			Dir:         dir,
			Concurrency: fetchConcurrency,
		}
		results, err := m.Sync(cmd.Context(), pageURL)
		if err != nil {
			return err
		}

		formatMirrorResults(cmd.OutOrStdout(), results)
		zap.L().Info("fetch complete",
			zap.String("page", pageURL),
			zap.String("dir", dir),
			zap.Int("workbooks", len(results)),
		)
		return nil
	},
}

func newHTTPFetcher(fc config.FetchConfig) *fetcher.HTTPFetcher {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:  fc.UserAgent,
		Timeout:    time.Duration(fc.TimeoutSecs) * time.Second,
		MaxRetries: fc.MaxRetries,
		RatePerSec: fc.RatePerSec,
	})
}

// formatMirrorResults writes one line per workbook to out.
func formatMirrorResults(out io.Writer, results []fetcher.MirrorResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "FILE\tSTATUS\tBYTES")
	var changed int
	for _, r := range results {
		status := "unchanged"
		if r.Changed {
			status = "downloaded"
			changed++
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\n", filepath.Base(r.Path), status, r.Bytes)
	}
	_, _ = fmt.Fprintf(w, "\nDownloaded:\t%d of %d\n", changed, len(results))
	_ = w.Flush()
}

func init() {
	fetchCmd.Flags().StringVar(&fetchURL, "url", "", "statistics page URL (default from config)")
	fetchCmd.Flags().StringVar(&fetchDir, "dir", "", "download directory (default <data.dir>/raw)")
	fetchCmd.Flags().IntVar(&fetchConcurrency, "concurrency", 2, "parallel downloads")
	rootCmd.AddCommand(fetchCmd)
}
