// Package main provides the entry point for the linkscan CLI.
//
// linkscan crawls a website from one or more seed URLs, records the
// network status of every page it reaches and reports the dead links
// found on each page of the site.
//
// Usage:
//
//	linkscan scan <seed-url>...
//	linkscan history [seed-url]
//	linkscan compare <seed-url>
//
// See --help for all available options.
package main

func main() {
	Execute()
}
