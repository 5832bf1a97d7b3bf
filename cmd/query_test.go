package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lodging-cli/internal/analytics"
	"github.com/sells-group/lodging-cli/internal/config"
	"github.com/sells-group/lodging-cli/internal/model"
	"github.com/sells-group/lodging-cli/internal/report"
)

func TestQueryCommand_RankingJSON(t *testing.T) {
	testEnv(t)

	out, err := execute(t, "query", "ranking", "--metric", "rooms", "--year", "2024", "-o", "json")
	require.NoError(t, err)

	var res analytics.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, analytics.StatusOK, res.Status)
	assert.Equal(t, model.TableAccommodationType, res.Table)
	require.NotNil(t, res.Ranking)
	assert.Equal(t, 4, res.Ranking.ParticipantTotal, "prefecture row is excluded")
	require.Len(t, res.Ranking.Entries, 4)
	assert.Equal(t, "那覇市", res.Ranking.Entries[0].Entity)
	assert.Equal(t, "名護市", res.Ranking.Entries[1].Entity)
}

func TestQueryCommand_FromFileMarkdown(t *testing.T) {
	testEnv(t)

	path := filepath.Join(t.TempDir(), "q.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
question_type: 増減数ランキング
metrics: [客室数]
analysis_type: yoy
year: 2024
ranking_count: 2
`), 0o644))

	out, err := execute(t, "query", "--file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "## 増減数ランキング")
	assert.Contains(t, out, "**1位: 那覇市** - +20室 (+20.0%)")
	assert.Contains(t, out, "**1位: 名護市** - +20室 (+50.0%)")
	assert.Contains(t, out, "- 宮古島市: 2023年 のデータなし")
}

func TestQueryCommand_DiagnosticIsNotAnError(t *testing.T) {
	testEnv(t)

	out, err := execute(t, "query", "ranking", "--metric", "capacity", "--year", "2024")
	require.NoError(t, err)
	assert.Contains(t, out, "**回答できませんでした** (metric_unavailable)")
}

func TestQueryCommand_InvalidParameter(t *testing.T) {
	testEnv(t)

	_, err := execute(t, "query", "ranking")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid year")
}

func TestQueryCommand_NeedsQuestion(t *testing.T) {
	testEnv(t)

	_, err := execute(t, "query")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "question type is required")
}

func TestBuildQuery_FlagsOverrideFile(t *testing.T) {
	t.Cleanup(resetFlags)
	path := filepath.Join(t.TempDir(), "q.yaml")
	require.NoError(t, os.WriteFile(path, []byte("question_type: trend\nmetrics: [rooms]\nstart_year: 2010\nend_year: 2020\nlocation_type: area\nlocations: [北部]\n"), 0o644))

	queryFlags.file = path
	require.NoError(t, queryCmd.Flags().Set("end-year", "2024"))

	q, err := buildQuery(queryCmd, nil)
	require.NoError(t, err)
	assert.Equal(t, analytics.QuestionTrend, q.Question)
	assert.Equal(t, []model.Metric{model.MetricRooms}, q.Metrics)
	assert.Equal(t, 2010, q.StartYear)
	assert.Equal(t, 2024, q.EndYear)
	assert.Equal(t, analytics.LocationType("area"), q.LocationType)
	assert.Equal(t, []string{"北部"}, q.Locations)
}

func TestBuildQuery_BadFile(t *testing.T) {
	t.Cleanup(resetFlags)
	path := filepath.Join(t.TempDir(), "q.yaml")
	require.NoError(t, os.WriteFile(path, []byte("metrics: [rooms"), 0o644))
	queryFlags.file = path

	_, err := buildQuery(queryCmd, []string{"ranking"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse query file")
}

func TestApplyQueryDefaults(t *testing.T) {
	d := config.QueryConfig{Table: "scale_class", RankingCount: 7}

	q := applyQueryDefaults(analytics.Query{}, d)
	assert.Equal(t, "scale_class", q.Table)
	assert.Equal(t, 7, q.Count)

	q = applyQueryDefaults(analytics.Query{Table: "auto", Count: 3}, d)
	assert.Equal(t, "auto", q.Table)
	assert.Equal(t, 3, q.Count)
}

func TestDescribeCommand(t *testing.T) {
	testEnv(t)

	out, err := execute(t, "describe", "-o", "json")
	require.NoError(t, err)

	var cat report.Catalog
	require.NoError(t, json.Unmarshal([]byte(out), &cat))
	assert.Equal(t, fixtureRecords, cat.Records)
	require.Len(t, cat.Tables, 1)
	assert.Equal(t, model.TableAccommodationType, cat.Tables[0].Table)

	out, err = execute(t, "describe")
	require.NoError(t, err)
	assert.Contains(t, out, "accommodation_type")
	assert.Contains(t, out, "2023-2024 (2)")
}
