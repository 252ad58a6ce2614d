package domain

import "time"

// Card is the presentation form of a record consumed by card renderers.
type Card struct {
	Index       int      `json:"index"`
	Title       string   `json:"title"`
	Type        string   `json:"type"`
	TypeClass   string   `json:"type_class"`
	Icon        string   `json:"icon"`
	Description string   `json:"description,omitempty"`
	Owner       string   `json:"owner"`
	Created     string   `json:"created"`
	Modified    string   `json:"modified"`
	ViewCount   string   `json:"view_count"`
	URL         string   `json:"url"`
	Tags        []string `json:"tags"`
	Expanded    bool     `json:"expanded"`
}

type typeStyle struct {
	class string
	icon  string
}

var typeStyles = map[string]typeStyle{
	"Feature Service": {class: "feature-service", icon: "fa-draw-polygon"},
	"Web Map":         {class: "web-map", icon: "fa-map"},
	"StoryMap":        {class: "storymap", icon: "fa-book-open"},
	"Map Service":     {class: "map-service", icon: "fa-image"},
	"Image Service":   {class: "image-service", icon: "fa-image"},
}

const defaultIcon = "fa-layer-group"

// NewCard projects a record at position index of the filtered list.
func NewCard(index int, rec Record) Card {
	style, ok := typeStyles[rec[FieldType]]
	if !ok {
		style = typeStyle{icon: defaultIcon}
	}

	return Card{
		Index:       index,
		Title:       orDefault(rec.Title(), "Untitled"),
		Type:        orDefault(rec[FieldType], UnknownValue),
		TypeClass:   style.class,
		Icon:        style.icon,
		Description: rec.Description(),
		Owner:       orDefault(rec[FieldOwner], UnknownValue),
		Created:     orDefault(rec[FieldCreated], UnknownValue),
		Modified:    formatDisplayDate(rec[FieldModified]),
		ViewCount:   orDefault(rec[FieldViewCount], "0"),
		URL:         orDefault(rec[FieldURL], "#"),
		Tags:        rec.DisplayTags(),
	}
}

// NewCards projects every record; expanded is the index of the open card or -1.
func NewCards(records []Record, expanded int) []Card {
	cards := make([]Card, len(records))
	for i, rec := range records {
		cards[i] = NewCard(i, rec)
		cards[i].Expanded = i == expanded
	}
	return cards
}

// formatDisplayDate renders a YYYY-MM-DD date as "Jan 2, 2006". Unparsable
// values are returned unchanged.
func formatDisplayDate(s string) string {
	if s == "" {
		return UnknownValue
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return s
	}
	return t.Format("Jan 2, 2006")
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
