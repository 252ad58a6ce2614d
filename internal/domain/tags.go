package domain

import "sort"

// TagCount pairs a tag with the number of times it occurs in the catalog.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// TagIndex is the frequency table of catalog tags.
type TagIndex struct {
	counts  map[string]int
	ordered []TagCount
}

// BuildTagIndex counts every tag occurrence across records. Empty tokens and
// the reserved tag are skipped. Ordering is by descending count; ties keep
// the order in which tags first appeared.
func BuildTagIndex(records []Record) TagIndex {
	counts := make(map[string]int)
	var firstSeen []string

	for _, rec := range records {
		for _, tag := range rec.Tags() {
			if tag == "" || tag == ReservedTag {
				continue
			}
			if _, ok := counts[tag]; !ok {
				firstSeen = append(firstSeen, tag)
			}
			counts[tag]++
		}
	}

	ordered := make([]TagCount, len(firstSeen))
	for i, tag := range firstSeen {
		ordered[i] = TagCount{Tag: tag, Count: counts[tag]}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Count > ordered[j].Count
	})

	return TagIndex{counts: counts, ordered: ordered}
}

// Counts returns a copy of the tag → count mapping.
func (ix TagIndex) Counts() map[string]int {
	out := make(map[string]int, len(ix.counts))
	for k, v := range ix.counts {
		out[k] = v
	}
	return out
}

// Ordered returns the tags by descending count.
func (ix TagIndex) Ordered() []TagCount {
	out := make([]TagCount, len(ix.ordered))
	copy(out, ix.ordered)
	return out
}

// Count returns the occurrences of tag, 0 when unknown.
func (ix TagIndex) Count(tag string) int { return ix.counts[tag] }

// Len returns the number of distinct tags.
func (ix TagIndex) Len() int { return len(ix.ordered) }

// Top returns at most n tags by descending count.
func (ix TagIndex) Top(n int) []TagCount {
	if n > len(ix.ordered) {
		n = len(ix.ordered)
	}
	return ix.Ordered()[:n]
}

// TypeCount pairs a layer type with its number of records.
type TypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// TypeCounts returns the distribution of layer types, largest first. Records
// without a type are counted as UnknownValue.
func TypeCounts(records []Record) []TypeCount {
	counts := make(map[string]int)
	var order []string
	for _, rec := range records {
		t := rec[FieldType]
		if t == "" {
			t = UnknownValue
		}
		if _, ok := counts[t]; !ok {
			order = append(order, t)
		}
		counts[t]++
	}

	out := make([]TypeCount, len(order))
	for i, t := range order {
		out[i] = TypeCount{Type: t, Count: counts[t]}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}
