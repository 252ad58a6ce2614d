package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/layer-catalog-service/internal/domain"
)

var errValidationFailed = errors.New("validation failed")

var validateCmd = &cobra.Command{
	Use:   "validate PATH",
	Short: "Check a catalog file for structural problems",
	Long: `Runs integrity checks over a catalog file as the browser would read it:
header columns, row field counts, layer ids, and tags.

Exits non-zero when any phase fails.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func runValidate(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}

	cat := domain.ParseCatalog(string(data))
	phases := validateCatalog(cat)
	if !report(cmd.OutOrStdout(), args[0], cat, phases) {
		return errValidationFailed
	}
	return nil
}

func validateCatalog(cat domain.Catalog) []*phase {
	return []*phase{
		validateHeaders(cat),
		validateRows(cat),
		validateIdentity(cat),
		validateTags(cat),
	}
}

func validateHeaders(cat domain.Catalog) *phase {
	p := &phase{name: "Header columns"}
	if len(cat.Headers) == 0 {
		p.errorf("no header row")
		return p
	}

	seen := make(map[string]int, len(cat.Headers))
	for i, h := range cat.Headers {
		if h == "" {
			p.errorf("column %d has an empty name", i+1)
			continue
		}
		if first, dup := seen[h]; dup {
			p.errorf("column %q appears at positions %d and %d", h, first+1, i+1)
			continue
		}
		seen[h] = i
	}
	for _, required := range []string{domain.FieldTitle, domain.FieldTags} {
		if _, ok := seen[required]; !ok {
			p.errorf("required column %q is missing", required)
		}
	}
	return p
}

func validateRows(cat domain.Catalog) *phase {
	p := &phase{name: "Row field counts"}
	for _, a := range cat.Anomalies {
		p.errorf("row %d: want %d fields, got %d", a.Line, a.Want, a.Got)
	}
	return p
}

func validateIdentity(cat domain.Catalog) *phase {
	p := &phase{name: "Layer ids"}
	if len(cat.Headers) == 0 {
		return p
	}
	if !hasColumn(cat, domain.FieldID) {
		p.errorf("no %q column", domain.FieldID)
		return p
	}

	first := make(map[string]int, len(cat.Records))
	for i, rec := range cat.Records {
		row := i + 2
		id := rec[domain.FieldID]
		if id == "" {
			p.errorf("row %d: empty id", row)
			continue
		}
		if prev, dup := first[id]; dup {
			p.errorf("row %d: id %s duplicates row %d", row, id, prev)
			continue
		}
		first[id] = row
	}
	return p
}

func validateTags(cat domain.Catalog) *phase {
	p := &phase{name: "Tags"}
	if !hasColumn(cat, domain.FieldTags) {
		return p
	}
	for i, rec := range cat.Records {
		row := i + 2
		tags := rec.Tags()
		if !rec.HasTag(domain.ReservedTag) {
			p.errorf("row %d (%s): missing %s tag", row, rec.Title(), domain.ReservedTag)
		}
		for _, t := range tags {
			if t == "" {
				p.errorf("row %d (%s): empty tag", row, rec.Title())
				break
			}
		}
	}
	return p
}

func hasColumn(cat domain.Catalog, name string) bool {
	for _, h := range cat.Headers {
		if h == name {
			return true
		}
	}
	return false
}

// report prints the phase table and error details. It returns true when every
// phase passed.
func report(w io.Writer, path string, cat domain.Catalog, phases []*phase) bool {
	fmt.Fprintf(w, "=== Catalog Validation: %s ===\n\n", path)

	allPassed := true
	for _, p := range phases {
		status := "PASS"
		if !p.passed() {
			status = fmt.Sprintf("FAIL (%d errors)", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-24s %s\n", p.name, status)
	}

	fmt.Fprintf(w, "\nRecords: %d, columns: %d, tags: %d\n",
		cat.Len(), len(cat.Headers), domain.BuildTagIndex(cat.Records).Len())

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(w, "\nAll validations passed.")
	} else {
		fmt.Fprintln(w, "\nValidation FAILED.")
	}
	return allPassed
}
