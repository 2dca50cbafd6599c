// Package diff classifies listings as new-or-known across runs and maintains
// the bounded run history. It only looks at listing ids and prices; how the
// listings were fetched is none of its business.
package diff

import (
	"sort"

	"audubonwatch/internal/listing"
)

// MarkNew sets is_new on every listing whose id was not present in the
// previous run and returns how many were marked.
func MarkNew(listings []listing.Listing, prevIDs map[string]struct{}) int {
	newCount := 0
	for i := range listings {
		_, known := prevIDs[listings[i].ID]
		listings[i].IsNew = !known
		if listings[i].IsNew {
			newCount++
		}
	}
	return newCount
}

// SortByPrice orders listings price descending with unpriced listings last.
// The sort is stable so same-priced listings keep their adapter order.
func SortByPrice(listings []listing.Listing) {
	sort.SliceStable(listings, func(i, j int) bool {
		pi, pj := listings[i].Price, listings[j].Price
		switch {
		case pi == nil:
			return false
		case pj == nil:
			return true
		default:
			return *pi > *pj
		}
	})
}

// AppendHistory appends one run summary and truncates from the front to the
// most recent MaxHistory entries.
func AppendHistory(history []listing.HistoryEntry, entry listing.HistoryEntry) []listing.HistoryEntry {
	history = append(history, entry)
	if len(history) > listing.MaxHistory {
		history = history[len(history)-listing.MaxHistory:]
	}
	return history
}
