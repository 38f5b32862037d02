package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/nao1215/linkscan/internal/database"
	"github.com/nao1215/linkscan/internal/urlnorm"
	"github.com/rodaine/table"
	"github.com/spf13/cobra"
)

// historyTimeLayout is how crawl start times are listed.
const historyTimeLayout = "2006-01-02 15:04:05"

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [seed-url]",
		Short: "List archived crawls",
		Long: `History lists the crawls stored in the report archive, newest first.

With a seed URL only the crawls of that seed are listed. The ID column is
what "linkscan compare --with-id" expects.

Examples:
  # List every archived crawl
  linkscan history

  # List the crawls of one seed
  linkscan history https://example.com/

  # List the seeds that have been crawled
  linkscan history --list-seeds`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("list-seeds", "L", false, "List all crawled seeds")
	cmd.Flags().String("db", "",
		"Archive database: SQLite file path or postgres:// URL (default: XDG data directory)")

	return cmd
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	listSeeds, err := cmd.Flags().GetBool("list-seeds")
	if err != nil {
		return err
	}
	dsn, err := cmd.Flags().GetString("db")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database.
	var seed string
	if len(args) == 1 {
		u, err := urlnorm.Normalize(args[0], "")
		if err != nil {
			return fmt.Errorf("invalid seed %q: %w", args[0], err)
		}
		seed = string(u)
	}

	ctx := cmd.Context()
	archive, err := openArchive(ctx, dsn)
	if err != nil {
		return err
	}
	defer archive.Close()

	if listSeeds {
		return listCrawledSeeds(ctx, cmd.OutOrStdout(), archive)
	}
	return listHistory(ctx, cmd.OutOrStdout(), archive, seed)
}

func listCrawledSeeds(ctx context.Context, w io.Writer, archive *database.Archive) error {
	seeds, err := archive.ListSeeds(ctx)
	if err != nil {
		return err
	}
	if len(seeds) == 0 {
		fmt.Fprintln(w, "No crawls archived yet.")
		return nil
	}

	fmt.Fprintf(w, "Crawled seeds (%d):\n", len(seeds))
	for _, seed := range seeds {
		fmt.Fprintf(w, "  %s\n", seed)
	}
	return nil
}

func listHistory(ctx context.Context, w io.Writer, archive *database.Archive, seed string) error {
	history, err := archive.History(ctx, seed)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		if seed != "" {
			fmt.Fprintf(w, "No crawls archived for %s.\n", seed)
		} else {
			fmt.Fprintln(w, "No crawls archived yet.")
		}
		return nil
	}

	tbl := table.New("ID", "Seed", "Started", "Duration", "Pages", "Dead Links", "Status").WithWriter(w)
	for _, meta := range history {
		status := "complete"
		if meta.Cancelled {
			status = "cancelled"
		}
		tbl.AddRow(
			strconv.FormatInt(meta.ID, 10),
			meta.Seed,
			meta.StartedAt.Local().Format(historyTimeLayout),
			meta.FinishedAt.Sub(meta.StartedAt).Round(time.Second).String(),
			strconv.Itoa(meta.Pages),
			strconv.Itoa(meta.DeadLinks),
			status,
		)
	}
	tbl.Print()
	return nil
}
