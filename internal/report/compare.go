package report

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/linkscan/internal/model"
	"github.com/nao1215/markdown"
)

// Trend values describe how the number of dead links changed.
const (
	TrendImproved  = "improved"
	TrendWorsened  = "worsened"
	TrendUnchanged = "unchanged"
)

// CrawlMetadata summarizes one side of a comparison.
type CrawlMetadata struct {
	ID                 string    `json:"id"`
	StartedAt          time.Time `json:"started_at"`
	Pages              int       `json:"pages"`
	DeadLinks          int       `json:"dead_links"`
	PagesWithDeadLinks int       `json:"pages_with_dead_links"`
	Cancelled          bool      `json:"cancelled"`
}

// Comparison describes how the dead links of a seed changed between two crawls.
type Comparison struct {
	// Seed is the crawled seed URL.
	Seed model.URL `json:"seed"`

	// Previous and Current describe the compared crawls.
	Previous CrawlMetadata `json:"previous"`
	Current  CrawlMetadata `json:"current"`

	// NewDeadLinks are present in the current crawl but not in the previous one.
	NewDeadLinks []model.PageDeadLink `json:"new_dead_links,omitempty"`

	// FixedDeadLinks were present in the previous crawl but not in the current one.
	FixedDeadLinks []model.PageDeadLink `json:"fixed_dead_links,omitempty"`

	// UnchangedCount is the number of dead links present in both crawls.
	UnchangedCount int `json:"unchanged_count"`

	// Trend is TrendImproved, TrendWorsened or TrendUnchanged.
	Trend string `json:"trend"`
}

// Compare diffs the dead links of two reports of the same seed.
// A dead link is identified by its page, target URL and status, so a link
// whose failure changed from one status to another counts as fixed and new.
func Compare(previous, current *model.Report) *Comparison {
	c := &Comparison{
		Seed:     current.Seed,
		Previous: metadataOf(previous),
		Current:  metadataOf(current),
	}

	prev := previous.DeadLinkSet()
	cur := current.DeadLinkSet()

	for dl := range cur {
		if _, ok := prev[dl]; ok {
			c.UnchangedCount++
			continue
		}
		c.NewDeadLinks = append(c.NewDeadLinks, dl)
	}
	for dl := range prev {
		if _, ok := cur[dl]; !ok {
			c.FixedDeadLinks = append(c.FixedDeadLinks, dl)
		}
	}
	slices.SortFunc(c.NewDeadLinks, comparePageDeadLinks)
	slices.SortFunc(c.FixedDeadLinks, comparePageDeadLinks)

	switch {
	case c.Current.DeadLinks < c.Previous.DeadLinks:
		c.Trend = TrendImproved
	case c.Current.DeadLinks > c.Previous.DeadLinks:
		c.Trend = TrendWorsened
	default:
		c.Trend = TrendUnchanged
	}

	return c
}

func metadataOf(r *model.Report) CrawlMetadata {
	return CrawlMetadata{
		ID:                 r.ID,
		StartedAt:          r.StartedAt,
		Pages:              r.Summary.TotalPages,
		DeadLinks:          r.Summary.DeadLinks,
		PagesWithDeadLinks: r.Summary.PagesWithDeadLinks,
		Cancelled:          r.Cancelled,
	}
}

func comparePageDeadLinks(a, b model.PageDeadLink) int {
	if c := cmp.Compare(a.Page, b.Page); c != 0 {
		return c
	}
	return model.CompareDeadLinks(a.DeadLink, b.DeadLink)
}

// WriteJSON writes the comparison as indented JSON.
func (c *Comparison) WriteJSON(w io.Writer) error {
	data, err := marshalJSON(c, true, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// WriteText writes the comparison in human-readable format.
func (c *Comparison) WriteText(w io.Writer) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Crawl Comparison: %s\n", c.Seed)
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "\nTrend: %s\n", trendText(c.Trend))
	fmt.Fprintf(&sb, "\nPrevious crawl: %s  %s\n", c.Previous.StartedAt.Format("2006-01-02 15:04:05"), c.Previous.ID)
	fmt.Fprintf(&sb, "Current crawl:  %s  %s\n", c.Current.StartedAt.Format("2006-01-02 15:04:05"), c.Current.ID)

	sb.WriteString("\n")
	fmt.Fprintf(&sb, "  %-22s  %-10s  %-10s  %-10s\n", "Metric", "Previous", "Current", "Change")
	sb.WriteString("  " + strings.Repeat("-", 58) + "\n")
	for _, row := range c.metricRows() {
		fmt.Fprintf(&sb, "  %-22s  %-10d  %-10d  %-10s\n", row.name, row.previous, row.current, formatDelta(row.current-row.previous))
	}

	if len(c.NewDeadLinks) > 0 {
		fmt.Fprintf(&sb, "\nNew Dead Links (%d):\n", len(c.NewDeadLinks))
		for _, dl := range c.NewDeadLinks {
			fmt.Fprintf(&sb, "  [+] %s [%s]\n      on %s\n", dl.URL, dl.NetError, dl.Page)
		}
	}
	if len(c.FixedDeadLinks) > 0 {
		fmt.Fprintf(&sb, "\nFixed Dead Links (%d):\n", len(c.FixedDeadLinks))
		for _, dl := range c.FixedDeadLinks {
			fmt.Fprintf(&sb, "  [-] %s [%s]\n      on %s\n", dl.URL, dl.NetError, dl.Page)
		}
	}
	if c.UnchangedCount > 0 {
		fmt.Fprintf(&sb, "\nUnchanged: %d dead links\n", c.UnchangedCount)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// WriteMarkdown writes the comparison in Markdown format.
func (c *Comparison) WriteMarkdown(w io.Writer) error {
	md := markdown.NewMarkdown(w)

	md.H1("Crawl Comparison: " + string(c.Seed))
	md.PlainText("")
	md.H2("Summary")
	md.PlainText("")
	md.PlainText("**Trend:** " + trendText(c.Trend))
	md.PlainText("")

	rows := [][]string{
		{"Date", c.Previous.StartedAt.Format("2006-01-02 15:04"), c.Current.StartedAt.Format("2006-01-02 15:04"), "-"},
	}
	for _, row := range c.metricRows() {
		rows = append(rows, []string{
			row.name,
			strconv.Itoa(row.previous),
			strconv.Itoa(row.current),
			formatDelta(row.current - row.previous),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current", "Change"},
		Rows:   rows,
	})
	md.PlainText("")

	if len(c.NewDeadLinks) > 0 {
		md.H2(fmt.Sprintf("New Dead Links (%d)", len(c.NewDeadLinks)))
		md.PlainText("")
		items := make([]string, len(c.NewDeadLinks))
		for i, dl := range c.NewDeadLinks {
			items[i] = fmt.Sprintf("**%s** `%s` on `%s`", dl.NetError, dl.URL, dl.Page)
		}
		md.BulletList(items...)
		md.PlainText("")
	}
	if len(c.FixedDeadLinks) > 0 {
		md.H2(fmt.Sprintf("Fixed Dead Links (%d)", len(c.FixedDeadLinks)))
		md.PlainText("")
		items := make([]string, len(c.FixedDeadLinks))
		for i, dl := range c.FixedDeadLinks {
			items[i] = fmt.Sprintf("~~**%s** `%s` on `%s`~~", dl.NetError, dl.URL, dl.Page)
		}
		md.BulletList(items...)
		md.PlainText("")
	}
	if c.UnchangedCount > 0 {
		md.HorizontalRule()
		md.PlainText("")
		md.PlainTextf("*%d dead links unchanged*", c.UnchangedCount)
	}

	return md.Build()
}

type metricRow struct {
	name              string
	previous, current int
}

func (c *Comparison) metricRows() []metricRow {
	return []metricRow{
		{"Pages", c.Previous.Pages, c.Current.Pages},
		{"Pages with dead links", c.Previous.PagesWithDeadLinks, c.Current.PagesWithDeadLinks},
		{"Dead links", c.Previous.DeadLinks, c.Current.DeadLinks},
	}
}

// trendText formats the trend for display.
func trendText(trend string) string {
	switch trend {
	case TrendImproved:
		return "IMPROVED (fewer dead links)"
	case TrendWorsened:
		return "WORSENED (more dead links)"
	default:
		return "UNCHANGED"
	}
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}
