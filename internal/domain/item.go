package domain

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"
)

// HarvestedTypes lists the ArcGIS item types kept in the catalog.
var HarvestedTypes = []string{"Feature Service", "Feature Layer", "Map Service", "Image Service"}

const (
	itemURLPrefix   = "https://www.arcgis.com/home/item.html?id="
	lastUpdatedForm = "2006-01-02 15:04:05"
)

// Item is one result of the ArcGIS portal search API.
type Item struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Type        string   `json:"type"`
	Snippet     string   `json:"snippet"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Owner       string   `json:"owner"`
	Created     int64    `json:"created"`  // epoch milliseconds
	Modified    int64    `json:"modified"` // epoch milliseconds
	NumViews    int      `json:"numViews"`

	titleSet bool
}

// UnmarshalJSON records whether the title was present, so that only a missing
// title falls back to "Untitled".
func (it *Item) UnmarshalJSON(data []byte) error {
	type plain Item
	var raw struct {
		plain
		Title *string `json:"title"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*it = Item(raw.plain)
	if raw.Title != nil {
		it.Title = *raw.Title
		it.titleSet = true
	}
	return nil
}

func (it Item) title() string {
	if it.Title == "" && !it.titleSet {
		return "Untitled"
	}
	return it.Title
}

// ItemPage is one page of portal search results.
type ItemPage struct {
	Total     int
	Start     int
	NextStart int // -1 after the last page
	Items     []Item
}

// Harvestable reports whether the item's type belongs in the catalog.
func (it Item) Harvestable() bool {
	for _, t := range HarvestedTypes {
		if it.Type == t {
			return true
		}
	}
	return false
}

// ModifiedDate returns the item's modification day as YYYY-MM-DD (UTC).
func (it Item) ModifiedDate() string { return epochDate(it.Modified) }

// ItemToRecord converts a search result into a catalog row. defaultOwner is
// used when the item has no owner. The last_updated stamp comes from the
// package clock.
func ItemToRecord(it Item, defaultOwner string) Record {
	description := it.Snippet
	if description == "" {
		description = it.Description
	}

	return Record{
		FieldID:          it.ID,
		FieldTitle:       flatten(it.title()),
		FieldType:        orDefault(it.Type, UnknownValue),
		FieldDescription: flatten(description),
		FieldTags:        flatten(strings.Join(it.Tags, ",")),
		FieldOwner:       orDefault(it.Owner, defaultOwner),
		FieldCreated:     epochDate(it.Created),
		FieldModified:    it.ModifiedDate(),
		FieldViewCount:   strconv.Itoa(it.NumViews),
		FieldURL:         itemURLPrefix + it.ID,
		FieldLastUpdated: clock.Now().Format(lastUpdatedForm),
	}
}

// MergeRecords replaces existing rows that share an id with a fresh row,
// appends the fresh rows, and orders the result by modified date, newest
// first. Rows with equal dates keep their relative order.
func MergeRecords(existing, fresh []Record) []Record {
	replaced := make(map[string]struct{}, len(fresh))
	for _, r := range fresh {
		replaced[r[FieldID]] = struct{}{}
	}

	out := make([]Record, 0, len(existing)+len(fresh))
	for _, r := range existing {
		if _, ok := replaced[r[FieldID]]; ok {
			continue
		}
		out = append(out, r)
	}
	out = append(out, fresh...)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i][FieldModified] > out[j][FieldModified]
	})
	return out
}

func epochDate(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.DateOnly)
}

// flatten collapses line breaks so a value stays on one catalog line.
func flatten(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	return strings.Join(strings.Fields(s), " ")
}
