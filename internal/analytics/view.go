// Package analytics holds the pure query operations behind the dashboard.
//
// Every operation reads a View and returns a fresh value. Nothing here mutates
// a Dataset, so a View can be shared by any number of readers.
package analytics

import (
	"sort"
	"strings"

	"zepto-analytics/internal/model"
)

// View is a read-only window over a Dataset. Filtering produces a new View
// holding indices into the same records; the records are never copied.
type View struct {
	ds      *model.Dataset
	indices []int // nil selects every record
}

// All returns a view over every record of ds.
func All(ds *model.Dataset) View {
	return View{ds: ds}
}

func (v View) Len() int {
	if v.indices != nil {
		return len(v.indices)
	}
	return v.ds.Len()
}

// At returns the i-th record of the view. The pointer must be treated as read-only.
func (v View) At(i int) *model.ProductRecord {
	if v.indices != nil {
		return &v.ds.Records[v.indices[i]]
	}
	return &v.ds.Records[i]
}

// Dataset returns the snapshot the view reads from.
func (v View) Dataset() *model.Dataset {
	return v.ds
}

// CategoryFilter selects records by category. An empty filter selects everything.
type CategoryFilter struct {
	set   map[string]struct{}
	order []string
}

// NewCategoryFilter trims and de-duplicates the given categories, dropping blanks.
func NewCategoryFilter(categories ...string) CategoryFilter {
	f := CategoryFilter{set: make(map[string]struct{})}
	for _, c := range categories {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, ok := f.set[c]; ok {
			continue
		}
		f.set[c] = struct{}{}
		f.order = append(f.order, c)
	}
	return f
}

func (f CategoryFilter) IsEmpty() bool {
	return len(f.set) == 0
}

func (f CategoryFilter) Contains(category string) bool {
	_, ok := f.set[category]
	return ok
}

// Categories returns the selected categories in the order first given.
func (f CategoryFilter) Categories() []string {
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

// Filter returns the view of ds restricted to f. Category matching is exact.
func Filter(ds *model.Dataset, f CategoryFilter) View {
	if f.IsEmpty() {
		return All(ds)
	}

	n := ds.Len()
	indices := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if f.Contains(ds.Records[i].Category) {
			indices = append(indices, i)
		}
	}
	return View{ds: ds, indices: indices}
}

// Categories lists the distinct categories of v in ascending order. Records
// without a category appear as model.Uncategorized.
func Categories(v View) []string {
	seen := make(map[string]struct{})
	var out []string
	for i := 0; i < v.Len(); i++ {
		c := v.At(i).Category
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
