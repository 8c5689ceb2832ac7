// Package checklist tracks which items of the fixed booking checklists have been ticked.
package checklist

import (
	"math"

	"github.com/tripexl/service-dispatch/internal/domain"
)

// CategoryCompletion is the state of one checklist category.
type CategoryCompletion struct {
	Selected []string `json:"selected"`
	Total    int      `json:"total"`
	Percent  int      `json:"percent"`
}

// Completion is a snapshot of every category, keyed by category.
type Completion map[Category]CategoryCompletion

// Tracker holds selected items against fixed reference lists. It is not safe for concurrent use.
type Tracker struct {
	refs     map[Category][]string
	known    map[Category]map[string]struct{}
	selected map[Category]map[string]struct{}
}

// NewTracker creates a Tracker over the given reference lists.
func NewTracker(refs map[Category][]string) *Tracker {
	t := &Tracker{
		refs:     make(map[Category][]string, len(refs)),
		known:    make(map[Category]map[string]struct{}, len(refs)),
		selected: make(map[Category]map[string]struct{}, len(refs)),
	}
	for cat, items := range refs {
		t.refs[cat] = append([]string(nil), items...)
		set := make(map[string]struct{}, len(items))
		for _, item := range items {
			set[item] = struct{}{}
		}
		t.known[cat] = set
		t.selected[cat] = make(map[string]struct{})
	}
	return t
}

// NewDefaultTracker creates a Tracker over DefaultReferenceLists.
func NewDefaultTracker() *Tracker {
	return NewTracker(DefaultReferenceLists)
}

// Select marks item as done. Selecting twice is a no-op.
func (t *Tracker) Select(cat Category, item string) error {
	if err := t.check(cat, item); err != nil {
		return err
	}
	t.selected[cat][item] = struct{}{}
	return nil
}

// Deselect clears item. Deselecting an unselected item is a no-op.
func (t *Tracker) Deselect(cat Category, item string) error {
	if err := t.check(cat, item); err != nil {
		return err
	}
	delete(t.selected[cat], item)
	return nil
}

// Set selects or deselects item.
func (t *Tracker) Set(cat Category, item string, selected bool) error {
	if selected {
		return t.Select(cat, item)
	}
	return t.Deselect(cat, item)
}

// IsSelected reports whether item is currently selected.
func (t *Tracker) IsSelected(cat Category, item string) bool {
	_, ok := t.selected[cat][item]
	return ok
}

// Selected returns the selected items of cat in reference-list order.
func (t *Tracker) Selected(cat Category) []string {
	out := make([]string, 0, len(t.selected[cat]))
	for _, item := range t.refs[cat] {
		if _, ok := t.selected[cat][item]; ok {
			out = append(out, item)
		}
	}
	return out
}

// CompletionPercent returns round(100 * selected / total) for cat, or 0 for an unknown or empty category.
func (t *Tracker) CompletionPercent(cat Category) int {
	return percent(len(t.selected[cat]), len(t.refs[cat]))
}

// Snapshot returns the completion of every category.
func (t *Tracker) Snapshot() Completion {
	out := make(Completion, len(t.refs))
	for cat, items := range t.refs {
		out[cat] = CategoryCompletion{
			Selected: t.Selected(cat),
			Total:    len(items),
			Percent:  t.CompletionPercent(cat),
		}
	}
	return out
}

// Reset clears every selection.
func (t *Tracker) Reset() {
	for cat := range t.selected {
		t.selected[cat] = make(map[string]struct{})
	}
}

func (t *Tracker) check(cat Category, item string) error {
	if _, ok := t.known[cat][item]; !ok {
		return domain.NewUnknownChecklistItemError(string(cat), item)
	}
	return nil
}

func percent(selected, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(selected) / float64(total)))
}
