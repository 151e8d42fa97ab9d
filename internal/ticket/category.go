package ticket

import (
	"strings"
)

// Category is the coarse bucket that steers retrieval and drafting tone.
type Category string

const (
	CategoryBilling   Category = "Billing"
	CategoryTechnical Category = "Technical"
	CategorySecurity  Category = "Security"
	CategoryGeneral   Category = "General"
)

// Categories lists the closed enumeration in display order.
var Categories = []Category{CategoryBilling, CategoryTechnical, CategorySecurity, CategoryGeneral}

// Key is the lowercase form used to index the knowledge catalog.
func (c Category) Key() string {
	return strings.ToLower(string(c))
}

// ParseCategory maps a free-text label (typically the first line of a
// classifier response) onto the enumeration. ok is false when the label was
// not recognized and the General fallback was applied.
func ParseCategory(raw string) (c Category, ok bool) {
	label := strings.ToLower(strings.TrimSpace(raw))
	label = strings.Trim(label, " \t*_`\"'.:;,!-#")
	if rest, found := strings.CutPrefix(label, "category"); found {
		label = strings.Trim(rest, " \t*_`\"'.:;,!-#")
	}

	for _, k := range Categories {
		if label == k.Key() {
			return k, true
		}
	}

	// "This is a Security issue" style answers: accept only an unambiguous mention.
	var match Category
	hits := 0
	for _, k := range Categories {
		if containsWord(label, k.Key()) {
			match = k
			hits++
		}
	}
	if hits == 1 {
		return match, true
	}
	return CategoryGeneral, false
}

func containsWord(s, word string) bool {
	for _, f := range strings.FieldsFunc(s, func(r rune) bool {
		return (r < 'a' || r > 'z') && (r < '0' || r > '9')
	}) {
		if f == word {
			return true
		}
	}
	return false
}
