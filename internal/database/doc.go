// Package database provides the report archive for linkscan.
//
// The archive stores every finished crawl report so that the history of
// a seed can be listed and two crawls can be compared. It uses SQLite
// (via the CGO-free modernc.org/sqlite) in the XDG data directory by
// default, and PostgreSQL (via pgx) when given a postgres:// URL, which
// lets several machines share one archive.
package database
