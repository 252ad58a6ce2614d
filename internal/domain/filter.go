package domain

import (
	"sort"
	"strings"
)

// FilterState is the user's current filter: a set of selected tags combined
// with AND semantics plus a free-text search.
type FilterState struct {
	selected map[string]struct{}
	search   string
}

// NewFilterState returns an empty filter.
func NewFilterState() FilterState {
	return FilterState{selected: make(map[string]struct{})}
}

// Toggle flips tag's membership and reports whether the state changed. The
// reserved tag and the empty tag are not selectable.
func (f *FilterState) Toggle(tag string) bool {
	if !Selectable(tag) {
		return false
	}
	if f.selected == nil {
		f.selected = make(map[string]struct{})
	}
	if _, ok := f.selected[tag]; ok {
		delete(f.selected, tag)
	} else {
		f.selected[tag] = struct{}{}
	}
	return true
}

// Remove unselects tag. Removing an unselected tag is a no-op.
func (f *FilterState) Remove(tag string) {
	delete(f.selected, tag)
}

// Clear drops every selected tag and the search text.
func (f *FilterState) Clear() {
	f.selected = make(map[string]struct{})
	f.search = ""
}

// SetSearch replaces the search text.
func (f *FilterState) SetSearch(text string) { f.search = text }

// Search returns the current search text.
func (f FilterState) Search() string { return f.search }

// IsSelected reports whether tag is in the selected set.
func (f FilterState) IsSelected(tag string) bool {
	_, ok := f.selected[tag]
	return ok
}

// Selected returns the selected tags in sorted order.
func (f FilterState) Selected() []string {
	out := make([]string, 0, len(f.selected))
	for t := range f.selected {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Empty reports whether no tag is selected and the search is blank.
func (f FilterState) Empty() bool {
	return len(f.selected) == 0 && f.search == ""
}

// Clone returns an independent copy.
func (f FilterState) Clone() FilterState {
	out := FilterState{selected: make(map[string]struct{}, len(f.selected)), search: f.search}
	for t := range f.selected {
		out.selected[t] = struct{}{}
	}
	return out
}

// Selectable reports whether tag may be placed in a filter.
func Selectable(tag string) bool {
	return tag != "" && tag != ReservedTag
}

// Result is the outcome of applying a filter to the catalog.
type Result struct {
	Records     []Record
	ResultCount int
	TotalCount  int
}

// Filter returns the records that carry every selected tag and, when the
// search is non-empty, contain it (case-insensitively) in their title or
// description. Catalog order is preserved.
func Filter(records []Record, state FilterState) Result {
	search := strings.ToLower(state.search)
	selected := state.Selected()

	out := make([]Record, 0, len(records))
	for _, rec := range records {
		if !matchesTags(rec, selected) || !matchesSearch(rec, search) {
			continue
		}
		out = append(out, rec)
	}
	return Result{Records: out, ResultCount: len(out), TotalCount: len(records)}
}

func matchesTags(rec Record, selected []string) bool {
	if len(selected) == 0 {
		return true
	}
	tags := rec.Tags()
	for _, want := range selected {
		found := false
		for _, t := range tags {
			if t == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// matchesSearch expects an already lower-cased search string.
func matchesSearch(rec Record, search string) bool {
	if search == "" {
		return true
	}
	if title, ok := rec.Get(FieldTitle); ok && strings.Contains(strings.ToLower(title), search) {
		return true
	}
	if desc, ok := rec.Get(FieldDescription); ok && strings.Contains(strings.ToLower(desc), search) {
		return true
	}
	return false
}
