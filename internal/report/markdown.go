package report

import (
	"io"
	"strconv"

	"github.com/nao1215/linkscan/internal/model"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownWriter outputs reports in Markdown format for documentation
// and sharing, for example as a CI job summary.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.Report) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writeDeadLinks(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with crawl information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.Report) {
	md.H1("Linkscan Report")
	md.PlainText("")

	rows := [][]string{
		{"Seed", "`" + string(report.Seed) + "`"},
	}
	if report.ID != "" {
		rows = append(rows, []string{"Crawl ID", "`" + report.ID + "`"})
	}
	if !report.StartedAt.IsZero() {
		rows = append(rows,
			[]string{"Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			[]string{"Duration", report.Duration().Round(timeRounding).String()},
		)
	}
	rows = append(rows, []string{"Status", w.statusText(report)})

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) statusText(report *model.Report) string {
	switch {
	case report.ErrorMessage != "":
		return "❌ Error - " + report.ErrorMessage
	case report.Cancelled:
		return "⚠️ Cancelled (partial results)"
	default:
		return "✅ Complete"
	}
}

// writeSummary writes the count table, a status chart and an alert.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.Report) {
	md.H2("Summary")
	md.PlainText("")

	s := report.Summary
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Count"},
		Rows: [][]string{
			{"Pages crawled", strconv.Itoa(s.TotalPages)},
			{"Loaded", strconv.Itoa(s.OKPages)},
			{"Failed", strconv.Itoa(s.FailedPages)},
			{"Pages with dead links", strconv.Itoa(s.PagesWithDeadLinks)},
			{"**Dead links**", "**" + strconv.Itoa(s.DeadLinks) + "**"},
		},
	})
	md.PlainText("")

	if s.FailedPages > 0 {
		w.writePieChart(md, report)
	}

	switch {
	case report.ErrorMessage != "":
		md.Cautionf("The crawl was aborted: %s. Results are incomplete.", report.ErrorMessage)
	case s.DeadLinks > 0:
		md.Warningf("%d dead link(s) found on %d page(s).", s.DeadLinks, s.PagesWithDeadLinks)
	case report.Cancelled:
		md.Importantf("The crawl was cancelled after %d page(s); no dead links found so far.", s.TotalPages)
	default:
		md.Tip("No dead links found.")
	}
	md.PlainText("")
}

// writePieChart writes a mermaid pie chart of the failure statuses.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.Report) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Failed Pages by Status"),
		piechart.WithShowData(true),
	)

	for _, st := range failedStatuses(report) {
		chart.LabelAndIntValue(statusLabel(st), uint64(report.Summary.StatusCounts[st.String()])) //nolint:gosec // counts are non-negative
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeDeadLinks writes one section per page that has dead links.
func (w *MarkdownWriter) writeDeadLinks(md *markdown.Markdown, report *model.Report) {
	md.H2("Dead Links")
	md.PlainText("")

	if !report.HasDeadLinks() {
		md.PlainText("No dead links found.")
		md.PlainText("")
		return
	}

	for _, group := range report.DeadLinks {
		md.PlainText("### `" + truncateString(string(group.Page), 120) + "`")
		md.PlainText("")

		rows := make([][]string, len(group.DeadLinks))
		for i, dl := range group.DeadLinks {
			rows[i] = []string{"`" + string(dl.URL) + "`", dl.NetError.String()}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Dead Link", "Status"},
			Rows:   rows,
		})
		md.PlainText("")
	}
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [linkscan](https://github.com/nao1215/linkscan)*")
}
