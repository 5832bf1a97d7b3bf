package ingest

import (
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/width"
)

// numberCleaner strips thousands separators and spaces left after width
// folding.
var numberCleaner = strings.NewReplacer(",", "", " ", "", "　", "", "\t", "")

// parseCount parses a published count. Dashes mark a zero cell.
func parseCount(s string) (int64, error) {
	s = numberCleaner.Replace(width.Narrow.String(strings.TrimSpace(s)))
	switch s {
	case "", "-", "−", "―", "‐":
		return 0, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, eris.Errorf("ingest: %q is not a whole number", s)
	}
	return int64(f), nil
}

// eras maps Japanese era prefixes to the Gregorian year before era year 1.
var eras = []struct {
	prefixes []string
	offset   int
}{
	{[]string{"昭和", "S"}, 1925},
	{[]string{"平成", "H"}, 1988},
	{[]string{"令和", "R"}, 2018},
}

// parseYear converts a survey year label such as "R5", "平成30年", "令和元年"
// or "2019" to a Gregorian year.
func parseYear(s string) (int, error) {
	label := strings.ToUpper(width.Narrow.String(strings.TrimSpace(s)))
	label = strings.TrimSpace(strings.TrimSuffix(label, "年"))
	label = strings.TrimSuffix(label, "度")

	offset := 0
	for _, era := range eras {
		for _, p := range era.prefixes {
			if rest, ok := strings.CutPrefix(label, p); ok {
				offset, label = era.offset, strings.TrimSpace(rest)
				break
			}
		}
		if offset != 0 {
			break
		}
	}
	if offset != 0 && label == "元" {
		return offset + 1, nil
	}

	n, err := strconv.Atoi(strings.TrimSuffix(label, ".0"))
	if err != nil || n <= 0 {
		return 0, eris.Errorf("ingest: unrecognized year %q", s)
	}
	return offset + n, nil
}
