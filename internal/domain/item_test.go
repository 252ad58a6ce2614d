package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItem_Harvestable(t *testing.T) {
	for _, typ := range HarvestedTypes {
		assert.True(t, Item{Type: typ}.Harvestable(), typ)
	}
	assert.False(t, Item{Type: "Web Map"}.Harvestable())
	assert.False(t, Item{}.Harvestable())
}

func TestItemToRecord(t *testing.T) {
	SetClock(clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)))
	t.Cleanup(func() { SetClock(nil) })

	created := time.Date(2023, 1, 15, 12, 0, 0, 0, time.UTC).UnixMilli()
	modified := time.Date(2024, 3, 5, 23, 59, 0, 0, time.UTC).UnixMilli()

	t.Run("full item", func(t *testing.T) {
		rec := ItemToRecord(Item{
			ID:          "abc123",
			Title:       "Street Trees",
			Type:        "Feature Service",
			Snippet:     "Tree inventory",
			Description: "<p>long form</p>",
			Tags:        []string{"DVFM", "Trees"},
			Owner:       "someone",
			Created:     created,
			Modified:    modified,
			NumViews:    17,
		}, "fallback")

		assert.Equal(t, Record{
			"id":           "abc123",
			"title":        "Street Trees",
			"type":         "Feature Service",
			"description":  "Tree inventory",
			"tags":         "DVFM,Trees",
			"owner":        "someone",
			"created":      "2023-01-15",
			"modified":     "2024-03-05",
			"view_count":   "17",
			"url":          "https://www.arcgis.com/home/item.html?id=abc123",
			"last_updated": "2025-06-01 08:30:00",
		}, rec)
	})

	t.Run("defaults", func(t *testing.T) {
		rec := ItemToRecord(Item{ID: "x", Description: "only\r\nlong\nform"}, "fallback")

		assert.Equal(t, "Untitled", rec["title"])
		assert.Equal(t, UnknownValue, rec["type"])
		assert.Equal(t, "only long form", rec["description"])
		assert.Equal(t, "fallback", rec["owner"])
		assert.Equal(t, "", rec["tags"])
		assert.Equal(t, "0", rec["view_count"])
		assert.Equal(t, "1970-01-01", rec["created"])
	})
}

func TestItemToRecord_Title(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"present", `{"id":"a","title":"Street Trees"}`, "Street Trees"},
		{"missing", `{"id":"a"}`, "Untitled"},
		{"null", `{"id":"a","title":null}`, "Untitled"},
		{"empty", `{"id":"a","title":""}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var it Item
			require.NoError(t, json.Unmarshal([]byte(tt.body), &it))
			assert.Equal(t, "a", it.ID)
			assert.Equal(t, tt.want, ItemToRecord(it, "")[FieldTitle])
		})
	}
}

func TestMergeRecords(t *testing.T) {
	existing := []Record{
		{"id": "a", "modified": "2024-01-01", "title": "old a"},
		{"id": "b", "modified": "2024-02-01"},
		{"id": "c", "modified": "2024-01-01"},
	}
	fresh := []Record{
		{"id": "a", "modified": "2024-03-01", "title": "new a"},
		{"id": "d", "modified": "2024-01-01"},
	}

	merged := MergeRecords(existing, fresh)

	ids := make([]string, len(merged))
	for i, r := range merged {
		ids[i] = r["id"]
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids)
	assert.Equal(t, "new a", merged[0]["title"])
}

func TestMergeRecords_Empty(t *testing.T) {
	assert.Empty(t, MergeRecords(nil, nil))
}
