package document

import "strings"

// Filter narrows a search. Unset criteria match everything; set criteria
// are AND-ed. Title and Location match case-insensitive substrings.
type Filter struct {
	Year     *int
	Title    string
	Location string
}

// IsZero reports whether no criterion is set.
func (f Filter) IsZero() bool {
	return f.Year == nil && f.Title == "" && f.Location == ""
}

// Matches reports whether d satisfies every set criterion.
func (f Filter) Matches(d *Document) bool {
	if f.Year != nil && d.Year != *f.Year {
		return false
	}
	if f.Title != "" && !containsFold(d.Title, f.Title) {
		return false
	}
	if f.Location != "" && !containsFold(d.StorageLocation, f.Location) {
		return false
	}
	return true
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
