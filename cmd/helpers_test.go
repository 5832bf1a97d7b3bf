package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lodging-cli/internal/dataset"
	"github.com/sells-group/lodging-cli/internal/model"
)

const fixtureCSV = `year,city,metric,cat1,table,value
2023,那覇市,rooms,total,accommodation_type,100
2023,石垣市,rooms,total,accommodation_type,50
2023,名護市,rooms,total,accommodation_type,40
2024,那覇市,rooms,total,accommodation_type,120
2024,石垣市,rooms,total,accommodation_type,50
2024,名護市,rooms,total,accommodation_type,60
2024,宮古島市,rooms,total,accommodation_type,30
2024,那覇市,facilities,total,accommodation_type,12
2024,沖縄県,rooms,total,accommodation_type,260
`

// fixtureRecords is the number of data rows in fixtureCSV.
const fixtureRecords = 9

// writeFixture lays out a data directory holding fixtureCSV as the
// integrated long CSV.
func writeFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "processed", "all", "all_years_long.csv")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(fixtureCSV), 0o644))
	return dir
}

// fixtureSnapshot returns the fixture as an in-memory snapshot.
func fixtureSnapshot(t *testing.T) *dataset.Snapshot {
	t.Helper()
	b := dataset.NewBuilder()
	add := func(year int, city string, m model.Metric, v int64) {
		require.NoError(t, b.Add(model.Record{Year: year, City: city, Metric: m, Category: "total", Table: model.TableAccommodationType, Value: v}))
	}
	add(2023, "那覇市", model.MetricRooms, 100)
	add(2023, "石垣市", model.MetricRooms, 50)
	add(2023, "名護市", model.MetricRooms, 40)
	add(2024, "那覇市", model.MetricRooms, 120)
	add(2024, "石垣市", model.MetricRooms, 50)
	add(2024, "名護市", model.MetricRooms, 60)
	add(2024, "宮古島市", model.MetricRooms, 30)
	add(2024, "那覇市", model.MetricFacilities, 12)
	return b.Build()
}

// testEnv runs the test from an empty directory with configuration pointing
// at a fresh fixture and a temporary sqlite store. It returns the data dir.
func testEnv(t *testing.T) string {
	t.Helper()
	dataDir := writeFixture(t)

	work := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(work))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck

	t.Setenv("LODGING_DATA_DIR", dataDir)
	t.Setenv("LODGING_STORE_DATABASE_URL", filepath.Join(work, "lodging.db"))
	t.Setenv("LODGING_LOG_LEVEL", "error")
	t.Setenv("LODGING_LOG_FORMAT", "console")
	return dataDir
}

// execute runs the root command with args and returns its stdout. Flag
// state is reset around each run so runs do not leak into each other.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	t.Cleanup(resetFlags)

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func resetFlags() {
	var visit func(c *cobra.Command)
	visit = func(c *cobra.Command) {
		c.Flags().VisitAll(func(f *pflag.Flag) {
			if _, ok := f.Value.(pflag.SliceValue); !ok {
				_ = f.Value.Set(f.DefValue)
			}
			f.Changed = false
		})
		for _, sub := range c.Commands() {
			visit(sub)
		}
	}
	visit(rootCmd)
	queryFlags.metrics = nil
	queryFlags.locations = nil
}
