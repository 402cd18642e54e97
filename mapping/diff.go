package mapping

import "sort"

// DiffSubjects computes the subscription changes between two subject
// sets. Subjects present in both appear in neither list; a reload
// keeps their subscriptions untouched so no message slips through a
// resubscribe gap. Both results come back sorted for deterministic
// apply order.
func DiffSubjects(current, next []string) (added, removed []string) {
	currentSet := make(map[string]struct{}, len(current))
	for _, s := range current {
		currentSet[s] = struct{}{}
	}
	nextSet := make(map[string]struct{}, len(next))
	for _, s := range next {
		nextSet[s] = struct{}{}
	}

	for s := range nextSet {
		if _, ok := currentSet[s]; !ok {
			added = append(added, s)
		}
	}
	for s := range currentSet {
		if _, ok := nextSet[s]; !ok {
			removed = append(removed, s)
		}
	}

	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}
