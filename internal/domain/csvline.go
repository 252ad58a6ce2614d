package domain

import "strings"

// ParseLine splits one catalog line into fields. A double quote toggles
// quoted mode and is never copied into the field; commas inside quotes are
// kept as data. The last field is always emitted, even when empty.
//
// Known limitation: this is not an RFC 4180 reader. A doubled quote ("")
// inside a quoted field closes and immediately reopens the quote, so no
// literal quote character is produced. Catalog files rely on this, so it is
// kept as is.
func ParseLine(line string) []string {
	var (
		fields   []string
		current  strings.Builder
		inQuotes bool
	)

	for _, ch := range line {
		switch {
		case ch == '"':
			inQuotes = !inQuotes
		case ch == ',' && !inQuotes:
			fields = append(fields, current.String())
			current.Reset()
		default:
			current.WriteRune(ch)
		}
	}
	return append(fields, current.String())
}
