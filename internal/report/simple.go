package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/linkscan/internal/model"
	"github.com/rodaine/table"
)

// SimpleWriter outputs human-readable text reports for terminal display.
// Dead links are listed in a table grouped by the page that contains them.
type SimpleWriter struct {
	baseWriter

	// verbose also lists every fetched page with its status.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables the per-page listing.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.Report) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeSummary(&sb, report)
	if w.verbose {
		w.writePages(&sb, report)
	}
	w.writeDeadLinks(&sb, report)

	return io.WriteString(w.output, sb.String())
}

func section(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

// timeRounding keeps durations readable.
const timeRounding = time.Millisecond

// writeHeader writes the report header with crawl information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.Report) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                         LINKSCAN REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Seed:           %s\n", report.Seed)
	if report.ID != "" {
		fmt.Fprintf(sb, "Crawl ID:       %s\n", report.ID)
	}
	if !report.StartedAt.IsZero() {
		fmt.Fprintf(sb, "Started:        %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST"))
		fmt.Fprintf(sb, "Duration:       %s\n", report.Duration().Round(timeRounding))
	}
	fmt.Fprintf(sb, "Status:         %s\n", crawlStatusText(report))
	sb.WriteString("\n")
}

// writeSummary writes page and dead-link counts plus the status breakdown.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, report *model.Report) {
	section(sb, "SUMMARY")

	s := report.Summary
	fmt.Fprintf(sb, "  %-23s%d\n", "Pages crawled:", s.TotalPages)
	fmt.Fprintf(sb, "  %-23s%d\n", "Loaded:", s.OKPages)
	fmt.Fprintf(sb, "  %-23s%d\n", "Failed:", s.FailedPages)
	fmt.Fprintf(sb, "  %-23s%d\n", "Pages with dead links:", s.PagesWithDeadLinks)
	fmt.Fprintf(sb, "  %-23s%d\n", "Dead links:", s.DeadLinks)
	sb.WriteString("\n")

	failed := failedStatuses(report)
	if len(failed) == 0 {
		return
	}
	sb.WriteString("  Failures by status:\n")
	for _, st := range failed {
		fmt.Fprintf(sb, "    %-22s %d\n", statusLabel(st)+":", s.StatusCounts[st.String()])
	}
	sb.WriteString("\n")
}

// writePages lists every fetched page.
func (w *SimpleWriter) writePages(sb *strings.Builder, report *model.Report) {
	section(sb, "PAGES")

	tbl := table.New("URL", "Status", "Time").WithWriter(sb)
	for _, p := range report.Pages {
		url := string(p.URL)
		if p.External {
			url += " (external)"
		}
		tbl.AddRow(url, p.Status.String(), fmt.Sprintf("%dms", p.DurationMS))
	}
	tbl.Print()
	sb.WriteString("\n")
}

// writeDeadLinks writes the dead links grouped by page.
func (w *SimpleWriter) writeDeadLinks(sb *strings.Builder, report *model.Report) {
	section(sb, "DEAD LINKS")

	if !report.HasDeadLinks() {
		sb.WriteString("  No dead links found\n\n")
		return
	}

	tbl := table.New("Page", "Count", "Dead Link", "Status").WithWriter(sb)
	for _, group := range report.DeadLinks {
		for i, dl := range group.DeadLinks {
			if i == 0 {
				tbl.AddRow(group.Page, len(group.DeadLinks), dl.URL, dl.NetError.String())
			} else {
				tbl.AddRow("", "", dl.URL, dl.NetError.String())
			}
		}
	}
	tbl.Print()
	sb.WriteString("\n")
}

// failedStatuses returns the non-OK statuses present in the report in
// declaration order.
func failedStatuses(report *model.Report) []model.NetStatus {
	var out []model.NetStatus
	for _, st := range model.AllNetStatuses() {
		if st.OK() {
			continue
		}
		if report.Summary.StatusCounts[st.String()] > 0 {
			out = append(out, st)
		}
	}
	return out
}
