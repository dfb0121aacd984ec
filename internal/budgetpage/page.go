// Package budgetpage holds the state of one budgets page view: the snapshot
// loaded when the page was rendered and the category currently selected in
// the budget form. Every event is a plain method call that runs the core
// matcher and renderer against that state.
//
// A Page is owned by a single caller and is not safe for concurrent use.
package budgetpage

import (
	"strings"

	"neuralbudget/internal/core"
)

// suggestDistance bounds the edit distance for "did you mean" hints.
const suggestDistance = 3

// View is the progress block as the page should show it.
type View struct {
	Label      string                `json:"label"`
	Progress   core.ProgressState    `json:"progress"`
	Matched    *core.CategorySummary `json:"matched,omitempty"`
	Suggestion string                `json:"suggestion,omitempty"`
}

type Page struct {
	snapshot core.Snapshot
	label    string
	view     View
	shown    bool
}

// New creates a page over an already decoded snapshot.
func New(snap core.Snapshot) *Page {
	if snap == nil {
		snap = core.Snapshot{}
	}
	return &Page{snapshot: snap}
}

// Load creates a page from the JSON array embedded in the rendered page.
func Load(data []byte) (*Page, error) {
	snap, err := core.ParseSnapshot(data)
	if err != nil {
		return nil, err
	}
	return New(snap), nil
}

// Snapshot returns the page's current snapshot.
func (p *Page) Snapshot() core.Snapshot {
	return p.snapshot
}

// Select handles a change of the category selector. An empty label hides the
// progress block; anything else shows it, zeroed when nothing matches.
func (p *Page) Select(label string) (View, bool) {
	p.label = label
	if label == "" {
		p.shown = false
		p.view = View{}
		return p.view, false
	}

	match, ok := core.FindMatch(label, p.snapshot)
	v := View{
		Label:    label,
		Progress: core.ComputeProgressState(match, ok),
	}
	if ok {
		v.Matched = &match
	} else if name, found := core.Suggest(label, p.snapshot, suggestDistance); found {
		v.Suggestion = name
	}

	p.view = v
	p.shown = true
	return v, true
}

// Current returns the last rendered view and whether it is visible.
func (p *Page) Current() (View, bool) {
	return p.view, p.shown
}

// Reset clears the form: no selection, block hidden.
func (p *Page) Reset() {
	p.label = ""
	p.view = View{}
	p.shown = false
}

// ApplyDeletion drops a budget the backend confirmed as deleted and re-renders
// the current selection against the smaller snapshot.
func (p *Page) ApplyDeletion(id int64) {
	p.snapshot = core.RemoveByID(p.snapshot, id)
	if p.shown {
		p.Select(p.label)
	}
}

// EditBudget preselects a category from a budget card. The selector value is
// resolved case-insensitively against the available options; when no option
// matches, the category is selected as given.
func (p *Page) EditBudget(category string, options []core.DropdownOption) (View, bool) {
	value := category
	for _, opt := range options {
		if strings.EqualFold(opt.Value, category) {
			value = opt.Value
			break
		}
	}
	return p.Select(value)
}
