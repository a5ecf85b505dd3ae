package migration

import "sort"

// Sort returns a new slice of units sorted by Name in lexicographic order.
// The numeric prefix makes lexicographic order chronological.
func Sort(units []Unit) []Unit {
	sorted := make([]Unit, len(units))
	copy(sorted, units)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	return sorted
}
