// Package domain models the map layer catalog and the pure logic that
// browses it.
//
// # Catalog format
//
// The catalog is a CSV file whose first non-blank line is the header row.
// Each following line is one layer. Columns written by the harvester:
//
//	id, title, type, description, tags, owner, created, modified,
//	view_count, url, last_updated
//
// The reader does not enforce this schema. Rows are zipped positionally with
// whatever header the file has; short rows are padded with "" and recorded
// as a [ParseAnomaly].
//
// Lines are split by [ParseLine], a quote-toggle splitter rather than an
// RFC 4180 reader. See its documentation for the doubled-quote behavior.
//
// # Tags
//
// The tags column is a comma-separated list. Tokens are trimmed. The
// project marker [ReservedTag] is attached to every harvested layer and is
// therefore excluded from the tag index and cannot be selected.
//
// # Filtering
//
// [Filter] keeps records that carry every selected tag (AND) and whose title
// or description contains the search text, compared in lower case. The
// result keeps catalog order.
package domain
