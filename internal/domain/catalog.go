package domain

import "strings"

// UnknownValue is shown for metadata the catalog does not provide.
const UnknownValue = "Unknown"

// ParseAnomaly records a data row whose field count differs from the header.
// Anomalies never abort a load: missing trailing fields become "" and extra
// fields are dropped.
type ParseAnomaly struct {
	Line int // 1-based position among non-blank lines
	Want int
	Got  int
}

// Catalog is a parsed catalog file.
type Catalog struct {
	Headers   []string
	Records   []Record
	Anomalies []ParseAnomaly
}

// ParseCatalog splits text into lines, skips blank ones, reads the first
// remaining line as the header row and zips every following line with it.
// Values are trimmed; positions past the parsed field count map to "".
func ParseCatalog(text string) Catalog {
	lines := nonBlankLines(text)
	if len(lines) == 0 {
		return Catalog{}
	}

	headers := ParseLine(lines[0])
	for i, h := range headers {
		headers[i] = strings.TrimSpace(h)
	}

	cat := Catalog{
		Headers: headers,
		Records: make([]Record, 0, len(lines)-1),
	}

	for i, line := range lines[1:] {
		values := ParseLine(line)
		if len(values) != len(headers) {
			cat.Anomalies = append(cat.Anomalies, ParseAnomaly{Line: i + 2, Want: len(headers), Got: len(values)})
		}

		rec := make(Record, len(headers))
		for j, h := range headers {
			var v string
			if j < len(values) {
				v = values[j]
			}
			rec[h] = strings.TrimSpace(v)
		}
		cat.Records = append(cat.Records, rec)
	}
	return cat
}

// Len returns the number of data rows.
func (c Catalog) Len() int { return len(c.Records) }

// LastUpdated returns the harvest stamp of the first record, or UnknownValue.
func (c Catalog) LastUpdated() string {
	if len(c.Records) == 0 {
		return UnknownValue
	}
	if v := c.Records[0][FieldLastUpdated]; v != "" {
		return v
	}
	return UnknownValue
}

func nonBlankLines(text string) []string {
	raw := strings.Split(text, "\n")
	out := make([]string, 0, len(raw))
	for _, l := range raw {
		if strings.TrimSpace(l) == "" {
			continue
		}
		out = append(out, l)
	}
	return out
}
