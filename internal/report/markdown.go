package report

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/lodging-cli/internal/analytics"
	"github.com/sells-group/lodging-cli/internal/model"
)

var questionTitles = map[analytics.QuestionType]string{
	analytics.QuestionBasicInfo:      "基本情報",
	analytics.QuestionRanking:        "ランキング",
	analytics.QuestionDeltaCount:     "増減数ランキング",
	analytics.QuestionDeltaRate:      "増減率ランキング",
	analytics.QuestionChangeAnalysis: "増減・伸び率分析",
	analytics.QuestionTrend:          "期間推移分析",
	analytics.QuestionComparison:     "比較分析",
}

// mdWriter keeps the first write error. Counts go through the printer for
// digit grouping; years and ranks do not.
type mdWriter struct {
	w   io.Writer
	p   *message.Printer
	err error
}

func (m *mdWriter) line(format string, args ...any) {
	if m.err != nil {
		return
	}
	_, m.err = fmt.Fprintf(m.w, format+"\n", args...)
}

func (m *mdWriter) blank() { m.line("") }

func (m *mdWriter) count(v int64, metric model.Metric) string {
	return m.p.Sprintf("%d%s", v, metric.Unit())
}

func (m *mdWriter) delta(v int64, metric model.Metric) string {
	return m.p.Sprintf("%+d%s", v, metric.Unit())
}

func rate(r analytics.Rate) string {
	switch r.Kind() {
	case analytics.RateFinite:
		p, _ := r.Percent()
		return fmt.Sprintf("%+.1f%%", p)
	case analytics.RateUnbounded:
		return "新規"
	default:
		return "算出不可"
	}
}

func years(ys []int) string {
	parts := make([]string, len(ys))
	for i, y := range ys {
		parts[i] = fmt.Sprintf("%d年", y)
	}
	return strings.Join(parts, ", ")
}

// Markdown writes res as the dashboard-style text answer.
func Markdown(w io.Writer, res *analytics.Result) error {
	m := &mdWriter{w: w, p: message.NewPrinter(language.Japanese)}

	title := questionTitles[res.Question]
	if title == "" {
		title = string(res.Question)
	}
	m.line("## %s", title)
	m.blank()
	if res.Table != "" {
		m.line("- テーブル: %s", res.Table)
	}
	if res.Scope.Label != "" {
		m.line("- 対象: %s", res.Scope.Label)
	}
	m.line("- カテゴリ: %s", res.Category)
	switch {
	case res.Years != nil:
		m.line("- 期間: %d年 → %d年", res.Years.Baseline, res.Years.Comparison)
	case res.Year > 0:
		m.line("- 年: %d年", res.Year)
	}
	m.blank()

	if !res.OK() {
		writeDiagnostic(m, res)
		return m.err
	}

	switch {
	case res.Ranking != nil:
		writeRanking(m, res.Ranking)
	case res.Changes != nil:
		writeChanges(m, res.Changes)
	case res.Analysis != nil:
		writeAnalysis(m, res.Analysis)
	case res.Trend != nil:
		writeTrend(m, res.Trend)
	case res.Comparison != nil:
		writeComparison(m, res.Comparison)
	default:
		writeProfiles(m, res.Profiles)
		writeSummary(m, res.Summary)
	}

	if len(res.Skipped) > 0 {
		names := make([]string, len(res.Skipped))
		for i, s := range res.Skipped {
			names[i] = s.Label()
		}
		m.line("※ このテーブルにない指標: %s", strings.Join(names, ", "))
	}
	return m.err
}

func writeDiagnostic(m *mdWriter, res *analytics.Result) {
	m.line("**回答できませんでした** (%s)", res.Status)
	if res.Diagnostic == nil {
		return
	}
	d := res.Diagnostic
	m.blank()
	m.line("%s", d.Message)
	if len(d.AvailableTables) > 0 {
		m.line("- 利用可能なテーブル: %s", strings.Join(d.AvailableTables, ", "))
	}
	if len(d.AvailableMetrics) > 0 {
		names := make([]string, len(d.AvailableMetrics))
		for i, mt := range d.AvailableMetrics {
			names[i] = mt.Label()
		}
		m.line("- 利用可能な指標: %s", strings.Join(names, ", "))
	}
	if len(d.AvailableCategories) > 0 {
		m.line("- 利用可能なカテゴリ: %s", strings.Join(d.AvailableCategories, ", "))
	}
	if n := len(d.AvailableYears); n > 0 {
		m.line("- データのある年: %d年〜%d年", d.AvailableYears[0], d.AvailableYears[n-1])
	}
}

func writeEntries(m *mdWriter, entries []analytics.RankedEntry, metric model.Metric) {
	for _, e := range entries {
		m.line("**%d位: %s** - %s", e.Rank, e.Entity, m.count(int64(e.Value), metric))
	}
}

func writeRanking(m *mdWriter, r *analytics.ValueRanking) {
	m.line("### %s (%d年)", r.Metric.Label(), r.Year)
	m.blank()
	writeEntries(m, r.Entries, r.Metric)
	m.blank()
	m.line("対象 %d 件中 上位 %d 件", r.ParticipantTotal, len(r.Entries))
}

func writeChanges(m *mdWriter, c *analytics.ChangeRanking) {
	m.line("### %s (%d年 → %d年)", c.Metric.Label(), c.Years.Baseline, c.Years.Comparison)
	m.blank()
	for _, e := range c.Entries {
		m.line("**%d位: %s** - %s (%s)", e.Rank, e.Entity, m.delta(e.Delta, c.Metric), rate(e.Rate))
		m.line("　%s → %s", m.count(e.Baseline, c.Metric), m.count(e.Comparison, c.Metric))
	}
	m.blank()
	m.line("対象 %d 件中 上位 %d 件", c.ParticipantTotal, len(c.Entries))
	writeUnbounded(m, c.Unbounded, c.Metric)
	writeIncomparable(m, c.Incomparable)
}

func writeUnbounded(m *mdWriter, changes []analytics.Change, metric model.Metric) {
	if len(changes) == 0 {
		return
	}
	m.blank()
	m.line("### 新規 (基準年 0)")
	for _, c := range changes {
		m.line("- %s: %s", c.Entity, m.delta(c.Delta, metric))
	}
}

func writeIncomparable(m *mdWriter, inc []analytics.Incomparable) {
	if len(inc) == 0 {
		return
	}
	m.blank()
	m.line("### 比較不可")
	for _, i := range inc {
		m.line("- %s: %s のデータなし", i.Entity, years(i.Missing))
	}
}

func writeAnalysis(m *mdWriter, a *analytics.ChangeAnalysis) {
	m.line("### %s (%d年 → %d年)", a.Metric.Label(), a.Years.Baseline, a.Years.Comparison)
	for _, e := range a.Entries {
		m.blank()
		m.line("**%s**", e.Entity)
		m.line("- 増減数: %s (全体 %d位 / %d市町村)", m.delta(e.Delta, a.Metric), e.DeltaRank, a.ParticipantTotal)
		if e.RateRank > 0 {
			m.line("- 増減率: %s (全体 %d位 / %d市町村)", rate(e.Rate), e.RateRank, a.RateParticipants)
		} else {
			m.line("- 増減率: %s", rate(e.Rate))
		}
	}
	writeIncomparable(m, a.Incomparable)
}

func writeProfiles(m *mdWriter, profiles []analytics.EntityProfile) {
	for _, p := range profiles {
		if p.Area != "" {
			m.line("### %s (%sエリア)", p.Entity, p.Area)
		} else {
			m.line("### %s", p.Entity)
		}
		for _, s := range p.Standings {
			if s.NoData {
				m.line("- %s: データなし", s.Metric.Label())
				continue
			}
			m.line("- %s: %s (%d位 / %d)", s.Metric.Label(), m.count(s.Value, s.Metric), s.Rank, s.ParticipantTotal)
			for _, top := range s.TopMembers {
				m.line("　%d位: %s (%s)", top.Rank, top.Entity, m.count(int64(top.Value), s.Metric))
			}
		}
		m.blank()
	}
}

func writeSummary(m *mdWriter, summary []analytics.MetricSummary) {
	for _, s := range summary {
		m.line("### 県全体: %s", s.Metric.Label())
		m.line("- 合計: %s", m.count(s.Total, s.Metric))
		m.line("- 市町村数: %d", s.Municipalities)
		m.line("- 平均: %s", m.p.Sprintf("%.1f%s", s.Mean, s.Metric.Unit()))
		writeEntries(m, s.Top, s.Metric)
		m.blank()
	}
}

func writeTrend(m *mdWriter, t *analytics.TrendResult) {
	m.line("### %s (%d年〜%d年)", t.Metric.Label(), t.StartYear, t.EndYear)
	for _, s := range t.Series {
		m.blank()
		m.line("**%s**", s.Entity)
		m.blank()
		m.line("| 年 | %s |", t.Metric.Label())
		m.line("|---:|---:|")
		for _, p := range s.Points {
			m.line("| %d | %s |", p.Year, m.count(p.Value, t.Metric))
		}
		switch {
		case s.Change != nil:
			m.blank()
			m.line("期間増減: %s (%s)", m.delta(s.Change.Delta, t.Metric), rate(s.Change.Rate))
		case s.Incomparable != nil:
			m.blank()
			m.line("期間増減: %s のデータなし", years(s.Incomparable.Missing))
		}
	}
}

func writeComparison(m *mdWriter, c *analytics.ComparisonResult) {
	m.line("### %s (%d年)", c.Metric.Label(), c.Year)
	m.blank()
	writeEntries(m, c.Entries, c.Metric)
	m.blank()
	if c.Gap != nil {
		m.line("- 最大差: %s (%s と %s)", m.count(c.Gap.Difference, c.Metric), c.Gap.Top, c.Gap.Bottom)
	}
	m.line("- 合計: %s", m.count(c.Total, c.Metric))
	m.line("- 平均: %s", m.p.Sprintf("%.1f%s", c.Mean, c.Metric.Unit()))
	m.line("- 対象: %d 件", c.Participants)
	for _, a := range c.Composition {
		m.blank()
		m.line("**%sエリア** - %s", a.Area, m.count(a.Total, c.Metric))
		for _, top := range a.Top {
			m.line("　%d位: %s (%s)", top.Rank, top.Entity, m.count(int64(top.Value), c.Metric))
		}
	}
}
