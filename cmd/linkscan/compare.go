package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/nao1215/linkscan/internal/database"
	"github.com/nao1215/linkscan/internal/report"
	"github.com/nao1215/linkscan/internal/urlnorm"
	"github.com/spf13/cobra"
)

// sinceLayout is the date format accepted by compare --since.
const sinceLayout = "2006-01-02"

// NewCompareCmd creates the compare command.
// It compares the dead links of archived crawls of the same seed.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <seed-url>",
		Short: "Compare dead links with an earlier crawl",
		Long: `Compare shows how the dead links of a seed changed between two archived crawls.

By default the latest crawl is compared with the one before it. The result lists:
- New dead links that appeared since the earlier crawl
- Fixed dead links that are no longer present
- The change in the number of dead links

A dead link whose failure changed (for example from HTTP 404 to a timeout)
is listed as both fixed and new.

Examples:
  # Compare the latest two crawls of a seed
  linkscan compare https://example.com/

  # Compare the latest crawl with a specific one (see "linkscan history")
  linkscan compare --with-id 5 https://example.com/

  # Compare with the first crawl since a date
  linkscan compare --since 2025-01-01 https://example.com/

  # Output the comparison as JSON
  linkscan compare --json https://example.com/`,
		Args: cobra.ExactArgs(1),
		RunE: runCompareCmd,
	}

	cmd.Flags().Int64P("with-id", "i", 0,
		"Compare with the crawl with this archive ID (see linkscan history)")
	cmd.Flags().StringP("since", "s", "",
		"Compare with the first crawl on or after this date (format: YYYY-MM-DD)")
	cmd.Flags().BoolP("json", "j", false, "Output comparison in JSON format")
	cmd.Flags().BoolP("markdown", "m", false, "Output comparison in Markdown format")
	cmd.Flags().String("db", "",
		"Archive database: SQLite file path or postgres:// URL (default: XDG data directory)")

	return cmd
}

// compareOptions select the crawls to compare and the output format.
type compareOptions struct {
	withID   int64
	since    time.Time
	json     bool
	markdown bool
}

func runCompareCmd(cmd *cobra.Command, args []string) error {
	opts, dsn, err := compareFlags(cmd)
	if err != nil {
		return err
	}

	// Validate arguments before opening the database.
	u, err := urlnorm.Normalize(args[0], "")
	if err != nil {
		return fmt.Errorf("invalid seed %q: %w", args[0], err)
	}

	ctx := cmd.Context()
	archive, err := openArchive(ctx, dsn)
	if err != nil {
		return err
	}
	defer archive.Close()

	comparison, err := compareCrawls(ctx, archive, string(u), opts)
	if err != nil {
		return err
	}
	return writeComparison(cmd.OutOrStdout(), comparison, opts)
}

func compareFlags(cmd *cobra.Command) (compareOptions, string, error) {
	var opts compareOptions
	var err error

	if opts.withID, err = cmd.Flags().GetInt64("with-id"); err != nil {
		return opts, "", err
	}
	since, err := cmd.Flags().GetString("since")
	if err != nil {
		return opts, "", err
	}
	if since != "" {
		if opts.since, err = time.ParseInLocation(sinceLayout, since, time.Local); err != nil {
			return opts, "", fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
		}
	}
	if opts.json, err = cmd.Flags().GetBool("json"); err != nil {
		return opts, "", err
	}
	if opts.markdown, err = cmd.Flags().GetBool("markdown"); err != nil {
		return opts, "", err
	}
	dsn, err := cmd.Flags().GetString("db")
	if err != nil {
		return opts, "", err
	}

	if opts.withID != 0 && !opts.since.IsZero() {
		return opts, "", errors.New("--with-id and --since cannot be used together")
	}
	if opts.json && opts.markdown {
		return opts, "", errors.New("--json and --markdown cannot be used together")
	}
	return opts, dsn, nil
}

// compareCrawls loads the two crawls selected by opts and diffs them.
// The latest crawl of seed is always the current one.
func compareCrawls(ctx context.Context, archive *database.Archive, seed string, opts compareOptions) (*report.Comparison, error) {
	history, err := archive.History(ctx, seed)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, fmt.Errorf("no crawls archived for %s", seed)
	}

	var previousID int64
	switch {
	case opts.withID != 0:
		previousID = opts.withID
	case !opts.since.IsZero():
		// History is newest first; take the oldest crawl on or after the date.
		for i := len(history) - 1; i >= 0; i-- {
			if !history[i].StartedAt.Before(opts.since) {
				previousID = history[i].ID
				break
			}
		}
		if previousID == 0 {
			return nil, fmt.Errorf("no crawls of %s since %s", seed, opts.since.Format(sinceLayout))
		}
	default:
		if len(history) < 2 {
			return nil, fmt.Errorf("at least 2 crawls are required for comparison (found %d)", len(history))
		}
		previousID = history[1].ID
	}

	if previousID == history[0].ID {
		return nil, errors.New("the selected crawl is the latest one; at least 2 crawls are required for comparison")
	}

	previous, err := archive.ReportByID(ctx, previousID)
	if err != nil {
		return nil, fmt.Errorf("failed to load crawl %d: %w", previousID, err)
	}
	if string(previous.Seed) != seed {
		return nil, fmt.Errorf("crawl %d belongs to %s, not %s", previousID, previous.Seed, seed)
	}

	current, err := archive.ReportByID(ctx, history[0].ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load crawl %d: %w", history[0].ID, err)
	}

	return report.Compare(previous, current), nil
}

func writeComparison(w io.Writer, c *report.Comparison, opts compareOptions) error {
	switch {
	case opts.json:
		return c.WriteJSON(w)
	case opts.markdown:
		return c.WriteMarkdown(w)
	default:
		return c.WriteText(w)
	}
}

