package browser

import (
	"fmt"
	"slices"

	"github.com/couchcryptid/layer-catalog-service/internal/domain"
)

// Status is the catalog load state.
type Status string

const (
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

// LoadFailedMessage is shown in place of results when the catalog cannot be fetched.
const LoadFailedMessage = "Failed to load data. Please try again."

// NoExpandedCard is the Expanded value when every card is collapsed.
const NoExpandedCard = -1

// View is an immutable snapshot of the browsing session handed to observers.
type View struct {
	Status       Status
	Message      string
	Headers      []string
	Records      []domain.Record // filtered, in catalog order
	ResultCount  int
	TotalCount   int
	Tags         []domain.TagCount
	SelectedTags []string
	Search       string
	Expanded     int
	LastUpdated  string
	Anomalies    int
}

// Empty reports a loaded catalog with no matching records. A failed load is
// never empty.
func (v View) Empty() bool {
	return v.Status == StatusReady && v.ResultCount == 0
}

// Summary is the result-count line, e.g. "Showing 3 of 12 layers".
func (v View) Summary() string {
	return fmt.Sprintf("Showing %d of %d layers", v.ResultCount, v.TotalCount)
}

// IsTagSelected reports whether tag is part of the selection.
func (v View) IsTagSelected(tag string) bool {
	return slices.Contains(v.SelectedTags, tag)
}

// Cards projects the filtered records into display cards.
func (v View) Cards() []domain.Card {
	return domain.NewCards(v.Records, v.Expanded)
}

// Observer receives a View after every state change.
type Observer func(View)
