// Package report renders analytics results for people (Markdown) and
// programs (JSON).
package report

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lodging-cli/internal/analytics"
)

// Format selects a renderer.
type Format string

// Format values.
const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// ParseFormat accepts "markdown", "md" and "json".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", eris.Errorf("report: unknown format %q (valid: markdown, json)", s)
	}
}

// Render writes res to w in format f.
func Render(w io.Writer, res *analytics.Result, f Format) error {
	if res == nil {
		return eris.New("report: nil result")
	}
	switch f {
	case FormatJSON:
		return JSON(w, res)
	case FormatMarkdown, "":
		return Markdown(w, res)
	default:
		return eris.Errorf("report: unknown format %q", f)
	}
}

// JSON writes v as indented JSON. Japanese text is left unescaped.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return eris.Wrap(enc.Encode(v), "report: encode json")
}
