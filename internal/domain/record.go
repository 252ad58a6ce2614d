package domain

import "strings"

// ReservedTag marks layers that belong to the project. Every harvested layer
// carries it, so it is never indexed, displayed, or selectable.
const ReservedTag = "DVFM"

// Known catalog fields. The loader does not enforce a schema; these are the
// columns the harvester writes and the browser reads.
const (
	FieldID          = "id"
	FieldTitle       = "title"
	FieldType        = "type"
	FieldDescription = "description"
	FieldTags        = "tags"
	FieldOwner       = "owner"
	FieldCreated     = "created"
	FieldModified    = "modified"
	FieldViewCount   = "view_count"
	FieldURL         = "url"
	FieldLastUpdated = "last_updated"
)

// CatalogFields is the column order written by the harvester.
var CatalogFields = []string{
	FieldID, FieldTitle, FieldType, FieldDescription, FieldTags, FieldOwner,
	FieldCreated, FieldModified, FieldViewCount, FieldURL, FieldLastUpdated,
}

// Record is one catalog row keyed by header name.
type Record map[string]string

// Get returns the field value and whether the field exists.
func (r Record) Get(field string) (string, bool) {
	v, ok := r[field]
	return v, ok
}

// Title returns the record title, or "" when absent.
func (r Record) Title() string { return r[FieldTitle] }

// Description returns the record description, or "" when absent.
func (r Record) Description() string { return r[FieldDescription] }

// Tags splits the tags field on commas and trims each token. Empty tokens are
// kept so that membership checks see exactly what the row contains. A record
// without a tags value has no tags.
func (r Record) Tags() []string {
	raw := r[FieldTags]
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// HasTag reports whether tag appears in the record's parsed tag list.
func (r Record) HasTag(tag string) bool {
	for _, t := range r.Tags() {
		if t == tag {
			return true
		}
	}
	return false
}

// DisplayTags returns the record's tags without empty tokens and without the
// reserved tag.
func (r Record) DisplayTags() []string {
	tags := r.Tags()
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t == "" || t == ReservedTag {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Clone returns an independent copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
