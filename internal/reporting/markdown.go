// Package reporting renders comparison and security results as Markdown and
// delivers them to GitHub Actions surfaces (step summary, PR comments,
// commit statuses).
package reporting

import (
	"fmt"
	"strings"

	"github.com/xkilldash9x/pipewatch/api/schemas"
)

// commentMarker tags sticky PR comments so later runs update in place
// instead of stacking new comments.
const commentMarker = "<!-- pipewatch-report -->"

func statusEmoji(s schemas.Status) string {
	switch s {
	case schemas.StatusCritical:
		return "🔴"
	case schemas.StatusWarning:
		return "🟡"
	default:
		return "🟢"
	}
}

func trendEmoji(d schemas.TrendDirection) string {
	switch d {
	case schemas.TrendImproving:
		return "📈"
	case schemas.TrendDegrading:
		return "📉"
	default:
		return "➡️"
	}
}

// RenderComparison renders a benchmark comparison as a Markdown section.
func RenderComparison(c *schemas.Comparison) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s Benchmark Comparison\n\n", statusEmoji(c.Overall))
	if c.BaselineName != "" {
		fmt.Fprintf(&sb, "Baseline: `%s`\n\n", c.BaselineName)
	}

	sb.WriteString("| Metric | Current | Baseline | Change | Status |\n")
	sb.WriteString("|---|---:|---:|---:|:---:|\n")
	for _, d := range c.Deltas {
		baseline, change := "n/a", "n/a"
		if d.HasBaseline {
			baseline = formatValue(d.Baseline)
			if d.PercentDefined {
				change = fmt.Sprintf("%+.2f%%", d.ChangePercent)
			}
		}
		fmt.Fprintf(&sb, "| %s | %s | %s | %s | %s %s |\n",
			d.Metric, formatValue(d.Current), baseline, change, statusEmoji(d.Status), d.Status)
	}

	fmt.Fprintf(&sb, "\n**Overall:** %s %s\n", statusEmoji(c.Overall), c.Overall)
	return sb.String()
}

// RenderSecurity renders a security score as a Markdown section.
func RenderSecurity(score schemas.SecurityScore) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## 🔒 Security Score: %d/100 (%s)\n\n", score.Score, score.Category)
	fmt.Fprintf(&sb, "%d of %d dependencies vulnerable (penalty %d)\n\n",
		score.VulnerableCount, score.TotalDependencies, score.Penalty)

	sb.WriteString("| Severity | Count |\n|---|---:|\n")
	for _, sev := range schemas.Severities {
		fmt.Fprintf(&sb, "| %s | %d |\n", sev, score.SeverityCounts[sev])
	}
	return sb.String()
}

// RenderTrends renders trend lines for the analyzed metrics. Metrics with
// too little history are listed as having no trend rather than omitted.
func RenderTrends(trends []schemas.TrendResult, insufficient []string) string {
	if len(trends) == 0 && len(insufficient) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("## 📊 Trends\n\n")
	for _, tr := range trends {
		fmt.Fprintf(&sb, "- %s **%s**: %s (%s → %s over last %d)\n",
			trendEmoji(tr.Direction), tr.Metric, tr.Direction,
			formatValue(tr.First), formatValue(tr.Last), tr.Window)
	}
	for _, metric := range insufficient {
		fmt.Fprintf(&sb, "- **%s**: no trend (insufficient history)\n", metric)
	}
	return sb.String()
}

// RenderHealth renders a maintenance health report.
func RenderHealth(report *schemas.HealthReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## 🩺 Health: %s\n\n", report.Overall)
	sb.WriteString("| Check | Status | Detail |\n|---|:---:|---|\n")
	for _, check := range report.Checks {
		fmt.Fprintf(&sb, "| %s | %s | %s |\n", check.Name, check.Status, check.Detail)
	}
	return sb.String()
}

// Report assembles the full Markdown document from whichever sections are
// present; nil sections are skipped.
type Report struct {
	Comparison *schemas.Comparison
	Score      *schemas.SecurityScore
	Trends     []schemas.TrendResult
	NoTrendFor []string
	Health     *schemas.HealthReport
	RunURL     string
}

func (r *Report) Render() string {
	var sections []string
	if r.Comparison != nil {
		sections = append(sections, RenderComparison(r.Comparison))
	}
	if r.Score != nil {
		sections = append(sections, RenderSecurity(*r.Score))
	}
	if s := RenderTrends(r.Trends, r.NoTrendFor); s != "" {
		sections = append(sections, s)
	}
	if r.Health != nil {
		sections = append(sections, RenderHealth(r.Health))
	}
	if r.RunURL != "" {
		sections = append(sections, fmt.Sprintf("[Workflow run](%s)", r.RunURL))
	}
	return strings.Join(sections, "\n")
}

// RenderSticky renders the report with the sticky-comment marker prepended.
func (r *Report) RenderSticky() string {
	return commentMarker + "\n" + r.Render()
}

func formatValue(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}
