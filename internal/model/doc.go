// Package model defines the data types shared by the crawler, the report
// writers and the archive.
//
// This package contains the following main types:
//   - NetStatus: the terminal outcome of loading one URL
//   - WebPage: the immutable record of one fetch
//   - DeadLink: a link target that could not be loaded, plus the reason
//   - Report: the serializable summary of a finished crawl
//
// The types live in their own package so that crawler, report and database
// can all depend on them without importing each other.
package model
