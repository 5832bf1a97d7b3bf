package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/lodging-cli/internal/analytics"
	"github.com/sells-group/lodging-cli/internal/model"
	"github.com/sells-group/lodging-cli/internal/report"
)

var queryFlags struct {
	file         string
	metrics      []string
	table        string
	category     string
	locationType string
	locations    []string
	year         int
	startYear    int
	endYear      int
	analysis     string
	result       string
	count        int
	format       string
}

var queryCmd = &cobra.Command{
	Use:   "query [question-type]",
	Short: "Answer one analytics question",
	Long: `Answer one analytics question over the loaded dataset.

Question types: basic-info, ranking, delta-count, delta-rate, change-analysis,
trend, comparison. A query can also be read from a YAML file with --file;
flags given on the command line override the file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("query"); err != nil {
			return err
		}
		format, err := report.ParseFormat(queryFlags.format)
		if err != nil {
			return err
		}
		q, err := buildQuery(cmd, args)
		if err != nil {
			return err
		}

		engine, err := newEngine(cfg)
		if err != nil {
			return err
		}
		snap, err := loadSnapshot(ctx, cfg)
		if err != nil {
			return eris.Wrap(err, "load dataset")
		}

		res, err := engine.Run(snap, applyQueryDefaults(q, cfg.Query))
		if err != nil {
			return err
		}
		return report.Render(cmd.OutOrStdout(), res, format)
	},
}

// buildQuery starts from --file when given and applies every flag the user
// set explicitly.
func buildQuery(cmd *cobra.Command, args []string) (analytics.Query, error) {
	var q analytics.Query
	if queryFlags.file != "" {
		data, err := os.ReadFile(queryFlags.file)
		if err != nil {
			return q, eris.Wrapf(err, "read query file %s", queryFlags.file)
		}
		if err := yaml.Unmarshal(data, &q); err != nil {
			return q, eris.Wrapf(err, "parse query file %s", queryFlags.file)
		}
	}
	if len(args) == 1 {
		q.Question = analytics.QuestionType(args[0])
	}
	if q.Question == "" {
		return q, eris.New("a question type is required (argument or question_type in --file)")
	}

	set := cmd.Flags().Changed
	if set("metric") {
		q.Metrics = nil
		for _, m := range queryFlags.metrics {
			q.Metrics = append(q.Metrics, model.Metric(m))
		}
	}
	if len(q.Metrics) == 0 {
		q.Metrics = []model.Metric{model.MetricFacilities}
	}
	if set("table") {
		q.Table = queryFlags.table
	}
	if set("category") {
		q.Category = queryFlags.category
	}
	if set("location-type") {
		q.LocationType = analytics.LocationType(queryFlags.locationType)
	}
	if set("location") {
		q.Locations = queryFlags.locations
	}
	if set("year") {
		q.Year = queryFlags.year
	}
	if set("start-year") {
		q.StartYear = queryFlags.startYear
	}
	if set("end-year") {
		q.EndYear = queryFlags.endYear
	}
	if set("analysis") {
		q.Analysis = analytics.AnalysisType(queryFlags.analysis)
	}
	if set("result") {
		q.ResultType = analytics.ResultType(queryFlags.result)
	}
	if set("count") {
		q.Count = queryFlags.count
	}
	return q, nil
}

func init() {
	f := queryCmd.Flags()
	f.StringVar(&queryFlags.file, "file", "", "read the query from a YAML file")
	f.StringSliceVarP(&queryFlags.metrics, "metric", "m", nil, "metric: facilities (default), rooms, capacity; repeatable for basic-info")
	f.StringVar(&queryFlags.table, "table", "", "source table or auto (default from config)")
	f.StringVar(&queryFlags.category, "category", "", "category (default total)")
	f.StringVar(&queryFlags.locationType, "location-type", "overall", "overall, municipality or area")
	f.StringSliceVarP(&queryFlags.locations, "location", "l", nil, "municipality or area names (repeatable)")
	f.IntVarP(&queryFlags.year, "year", "y", 0, "target year")
	f.IntVar(&queryFlags.startYear, "start-year", 0, "first year of a period")
	f.IntVar(&queryFlags.endYear, "end-year", 0, "last year of a period")
	f.StringVar(&queryFlags.analysis, "analysis", "yoy", "change analysis type: yoy or period")
	f.StringVar(&queryFlags.result, "result", "count", "change ranking key: count or rate")
	f.IntVarP(&queryFlags.count, "count", "n", 0, "ranking size (default from config)")
	f.StringVarP(&queryFlags.format, "format", "o", "markdown", "output format: markdown or json")
	rootCmd.AddCommand(queryCmd)
}
