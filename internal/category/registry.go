// Package category holds the fixed set of task categories and the mapping
// between their identifiers and the labels the record store uses.
package category

import "strings"

// Category identifiers.
const (
	Work     = "work"
	Personal = "personal"
	Shopping = "shopping"
	Health   = "health"
)

// All is the filter value that selects every category.
const All = "all"

// Default is the category unknown identifiers and labels fall back to.
const Default = Personal

// Category is a static task category.
type Category struct {
	ID          string
	DisplayName string

	// Color is a hex color token used when rendering the category.
	Color string

	// StoreLabel is the value the record store keeps in its category field.
	StoreLabel string
}

var builtin = []Category{
	{ID: Work, DisplayName: "Work", Color: "#5271FF", StoreLabel: "Work"},
	{ID: Personal, DisplayName: "Personal", Color: "#FF5757", StoreLabel: "Personal"},
	{ID: Shopping, DisplayName: "Shopping", Color: "#4CAF50", StoreLabel: "Shopping"},
	{ID: Health, DisplayName: "Health", Color: "#9C27B0", StoreLabel: "Health"},
}

// Registry is an immutable lookup table over the categories. It is safe for
// concurrent use.
type Registry struct {
	categories []Category
	byID       map[string]int
	byLabel    map[string]int
	fallback   int
}

// NewRegistry builds the registry of built-in categories.
func NewRegistry() *Registry {
	r := &Registry{
		categories: append([]Category(nil), builtin...),
		byID:       make(map[string]int, len(builtin)),
		byLabel:    make(map[string]int, len(builtin)),
	}
	for i, c := range r.categories {
		r.byID[c.ID] = i
		r.byLabel[c.StoreLabel] = i
		if c.ID == Default {
			r.fallback = i
		}
	}
	return r
}

// All returns the categories in display order.
func (r *Registry) All() []Category {
	return append([]Category(nil), r.categories...)
}

// Known reports whether id names a registered category.
func (r *Registry) Known(id string) bool {
	_, ok := r.byID[id]
	return ok
}

// ByID returns the category for id, or the default category when id is
// not registered.
func (r *Registry) ByID(id string) Category {
	if i, ok := r.byID[id]; ok {
		return r.categories[i]
	}
	return r.categories[r.fallback]
}

// DisplayNameFor returns the display name of id with the same fallback as ByID.
func (r *Registry) DisplayNameFor(id string) string {
	return r.ByID(id).DisplayName
}

// ColorFor returns the color token of id with the same fallback as ByID.
func (r *Registry) ColorFor(id string) string {
	return r.ByID(id).Color
}

// StoreLabel translates a category identifier into the store's label.
func (r *Registry) StoreLabel(id string) string {
	return r.ByID(id).StoreLabel
}

// FromStoreLabel translates a store label back into a category identifier.
// Unrecognized or legacy labels map to the default category. Matching is
// exact first, then case-insensitive.
func (r *Registry) FromStoreLabel(label string) string {
	if i, ok := r.byLabel[label]; ok {
		return r.categories[i].ID
	}
	for _, c := range r.categories {
		if strings.EqualFold(c.StoreLabel, label) || strings.EqualFold(c.ID, label) {
			return c.ID
		}
	}
	return Default
}

// Normalize returns id when it is registered and the default otherwise.
func (r *Registry) Normalize(id string) string {
	return r.ByID(id).ID
}

// ValidFilter reports whether f is "all" or a registered category.
func (r *Registry) ValidFilter(f string) bool {
	return f == All || r.Known(f)
}

// Filters returns "all" followed by every category identifier.
func (r *Registry) Filters() []string {
	out := make([]string, 0, len(r.categories)+1)
	out = append(out, All)
	for _, c := range r.categories {
		out = append(out, c.ID)
	}
	return out
}
