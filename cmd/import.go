package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lodging-cli/internal/ingest"
	"github.com/sells-group/lodging-cli/internal/store"
)

var importReplace bool

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Parse the source files and write their records to the store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("import"); err != nil {
			return err
		}
		src, err := newFileSource(ctx, cfg)
		if err != nil {
			return err
		}

		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := importRecords(ctx, src, st, importReplace)
		if err != nil {
			return err
		}

		zap.L().Info("import complete",
			zap.String("id", run.ID),
			zap.String("source", run.Source),
			zap.Int("files", run.Files),
			zap.Int("records", run.Records),
			zap.Bool("replaced", run.Replaced),
		)
		return nil
	},
}

// importRecords loads every file of src and writes the records to st,
// recording the run in the import history.
func importRecords(ctx context.Context, src ingest.Source, st store.Store, replace bool) (*store.ImportRun, error) {
	started := time.Now()

	loader := &ingest.Loader{Source: src, Concurrency: loadConcurrency}
	records, rep, err := loader.Records(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		return nil, eris.Wrap(err, "import: migrate store")
	}

	write := st.UpsertRecords
	if replace {
		write = st.ReplaceRecords
	}
	if _, err := write(ctx, records); err != nil {
		return nil, eris.Wrap(err, "import: write records")
	}

	return st.CreateImport(ctx, store.ImportRun{
		Source:     rep.Source,
		Files:      len(rep.Files),
		Records:    len(records),
		Replaced:   replace,
		StartedAt:  started,
		FinishedAt: time.Now(),
	})
}

var importsLimit int

var importsCmd = &cobra.Command{
	Use:   "imports",
	Short: "List recent imports into the store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("import"); err != nil {
			return err
		}
		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "imports: migrate store")
		}
		runs, err := st.ListImports(ctx, importsLimit)
		if err != nil {
			return err
		}
		formatImports(cmd.OutOrStdout(), runs)
		return nil
	},
}

// formatImports writes a tabular list of import runs to out.
func formatImports(out io.Writer, runs []store.ImportRun) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSOURCE\tFILES\tRECORDS\tMODE\tFINISHED\tDURATION")
	_, _ = fmt.Fprintln(w, "--\t------\t-----\t-------\t----\t--------\t--------")

	for _, r := range runs {
		mode := "upsert"
		if r.Replaced {
			mode = "replace"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\t%s\n",
			truncateID(r.ID),
			r.Source,
			r.Files,
			r.Records,
			mode,
			r.FinishedAt.Local().Format("2006-01-02 15:04"),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond),
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	importCmd.Flags().BoolVar(&importReplace, "replace", false, "replace every stored record instead of upserting")
	importsCmd.Flags().IntVar(&importsLimit, "limit", 20, "number of runs to list")
	rootCmd.AddCommand(importCmd, importsCmd)
}
