// Package pipeline runs the per-seed work of a scan as a sequence of steps.
//
// A Scan carries one seed through the pipeline: the CrawlStep walks the
// site and builds the report, and the ArchiveStep stores the report so
// later crawls can be compared with it. Each step receives the Scan and
// fills in its part.
//
// BatchProcessor runs one pipeline per seed with bounded concurrency
// using errgroup.
package pipeline
