// Package report renders crawl reports.
//
// Writers implement the Writer interface and produce one format each:
//   - SimpleWriter: human-readable text with a dead-link table
//   - JSONWriter: structured JSON for tool integration
//   - MarkdownWriter: Markdown with a status chart, for sharing
//   - CSVWriter: one row per dead link, for spreadsheets
//
// Progress prints the one-line-per-page progress output while a crawl
// runs, and Comparison describes how dead links changed between two
// archived crawls of the same seed.
package report
