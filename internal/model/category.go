package model

import "sort"

// Display order for the well-known categories. Anything else sorts
// alphabetically between them and DefaultCategory.
var leadingCategories = []string{"Hackathon", "Workshop"}

type CategoryGroup struct {
	Category string  `json:"category"`
	Events   []Event `json:"events"`
}

// GroupByCategory buckets events by category, keeping the input order inside
// each bucket. Empty categories are reported as DefaultCategory.
func GroupByCategory(events []Event) []CategoryGroup {
	buckets := make(map[string][]Event)
	for _, e := range events {
		cat := e.Category
		if cat == "" {
			cat = DefaultCategory
		}
		buckets[cat] = append(buckets[cat], e)
	}

	groups := make([]CategoryGroup, 0, len(buckets))
	for _, cat := range leadingCategories {
		if evs, ok := buckets[cat]; ok {
			groups = append(groups, CategoryGroup{Category: cat, Events: evs})
			delete(buckets, cat)
		}
	}

	other, hasOther := buckets[DefaultCategory]
	delete(buckets, DefaultCategory)

	rest := make([]string, 0, len(buckets))
	for cat := range buckets {
		rest = append(rest, cat)
	}
	sort.Strings(rest)
	for _, cat := range rest {
		groups = append(groups, CategoryGroup{Category: cat, Events: buckets[cat]})
	}

	if hasOther {
		groups = append(groups, CategoryGroup{Category: DefaultCategory, Events: other})
	}
	return groups
}
