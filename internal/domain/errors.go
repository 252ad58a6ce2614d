package domain

import "fmt"

// FetchError reports that the catalog could not be retrieved from its source.
// It is terminal for the load: the caller shows a failure state and does not
// retry.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch catalog %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
