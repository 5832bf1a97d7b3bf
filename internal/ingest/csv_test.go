package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lodging-cli/internal/model"
)

func TestParseLongCSV(t *testing.T) {
	input := "\ufeffyear,municipality,metric,cat1,table,value,cat2\n" +
		"2024, 那覇市 ,facilities,total,accommodation_type,\"1,234\",\n" +
		"2024,那覇市,客室数,Hotel_Ryokan,accommodation_type,56,\n" +
		"2024,,rooms,total,accommodation_type,1,\n" +
		"2024,石垣市,guests,total,accommodation_type,9,\n" +
		"2024,石垣市,capacity,,accommodation_type,9,\n"

	recs, err := ParseLongCSV(context.Background(), strings.NewReader(input), "long_2024.csv")
	require.NoError(t, err)
	assert.Equal(t, []model.Record{
		{Year: 2024, City: "那覇市", Metric: model.MetricFacilities, Category: "total", Table: "accommodation_type", Value: 1234},
		{Year: 2024, City: "那覇市", Metric: model.MetricRooms, Category: "hotel_ryokan", Table: "accommodation_type", Value: 56},
	}, recs)
}

func TestParseLongCSV_BadValue(t *testing.T) {
	input := "year,city,metric,cat1,table,value\n" +
		"2024,那覇市,rooms,total,hotel_breakdown,???\n"

	_, err := ParseLongCSV(context.Background(), strings.NewReader(input), "long_2024.csv")
	var re *model.RecordError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "value", re.Field)
	assert.Equal(t, "long_2024.csv:2", re.Source)

	recs, err := ParseLongCSV(context.Background(), strings.NewReader(input), "long_2024_hotel_breakdown.csv")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Zero(t, recs[0].Value)
}

func TestParseLongCSV_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "missing columns",
			input: "year,city,metric\n2024,那覇市,rooms\n",
			want:  "missing columns cat1, table, value",
		},
		{
			name:  "bad year",
			input: "year,city,metric,cat1,table,value\nR6,那覇市,rooms,total,scale_class,1\n",
			want:  "invalid record year",
		},
		{
			name:  "negative value",
			input: "year,city,metric,cat1,table,value\n2024,那覇市,rooms,total,scale_class,-3\n",
			want:  "invalid record value",
		},
		{
			name:  "empty table",
			input: "year,city,metric,cat1,table,value\n2024,那覇市,rooms,total,,3\n",
			want:  "invalid record table",
		},
		{
			name:  "header only with missing columns",
			input: "year,city\n",
			want:  "missing columns",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLongCSV(context.Background(), strings.NewReader(tt.input), "bad.csv")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseLongCSV_Empty(t *testing.T) {
	recs, err := ParseLongCSV(context.Background(), strings.NewReader(""), "empty.csv")
	require.NoError(t, err)
	assert.Empty(t, recs)

	recs, err = ParseLongCSV(context.Background(), strings.NewReader("year,city,metric,cat1,table,value\n"), "header.csv")
	require.NoError(t, err)
	assert.Empty(t, recs)
}
