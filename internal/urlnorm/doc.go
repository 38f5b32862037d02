// Package urlnorm converts hrefs found on pages into canonical absolute URLs.
//
// The canonical form is what the crawler uses as its deduplication key, so
// two hrefs that point at the same resource must normalize to the same
// string. Normalization is purely syntactic; no network access is made.
package urlnorm
