package diversity

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ErrSnapshotNotFound is returned (wrapped) by Sources which hold no
// snapshot for the requested selection.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Selector describes a sample selection. A nil DateRange selects every
// date; Filters are passed through to the underlying data service (e.g.
// country, pangoLineage).
type Selector struct {
	DateRange *DateRange
	Filters   map[string]string
}

// WithDateRange returns a copy of s restricted to d.
func (s Selector) WithDateRange(d DateRange) Selector {
	s.DateRange = &d
	return s
}

// String renders the selector canonically, with filters sorted by name.
func (s Selector) String() string {
	parts := make([]string, 0, len(s.Filters)+1)
	if s.DateRange != nil {
		parts = append(parts, "date="+s.DateRange.String())
	}
	keys := make([]string, 0, len(s.Filters))
	for k := range s.Filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+"="+s.Filters[k])
	}
	return strings.Join(parts, "&")
}

// SnapshotName is where file and object stores keep the snapshot of a
// selection: "<unit>/all" without a date range, "<unit>/<from>_<to>"
// otherwise. Filters aren't part of the name; a store holds one selection.
func SnapshotName(unit SequenceType, sel Selector) string {
	if sel.DateRange == nil {
		return unit.String() + "/all"
	}
	return unit.String() + "/" + sel.DateRange.String()
}

// Source is the interface for getting the mutation proportions of a
// selection. Implementations of Source should be safe for concurrent use;
// the Analyzer fetches weeks in parallel.
type Source interface {
	Proportions(ctx context.Context, unit SequenceType, sel Selector) ([]MutationRecord, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, unit SequenceType, sel Selector) ([]MutationRecord, error)

// Proportions calls f.
func (f SourceFunc) Proportions(ctx context.Context, unit SequenceType, sel Selector) ([]MutationRecord, error) {
	return f(ctx, unit, sel)
}
