// Package dedup collapses near-duplicate lots across auction-aggregator
// sources. Dealer inventories are independent stock and are never merged.
package dedup

import (
	"regexp"
	"strings"

	"github.com/antzucaro/matchr"

	"audubonwatch/internal/listing"
)

// groupKeyLen is how much of the normalized title forms the grouping key.
const groupKeyLen = 50

// minNormalizedLen is the shortest normalized title still discriminating
// enough to group on; below this the listing id is used instead.
const minNormalizedLen = 5

// similarityThreshold guards against distinct lots that merely share a
// prefix: a grouped candidate is only dropped when its full normalized title
// is this similar to the kept one.
const similarityThreshold = 0.85

// Boilerplate tokens carry no lot identity: artist name variants, edition
// and material words, and plate markers. Stripping them lets differently
// phrased descriptions of the same lot normalize to the same key.
var boilerplate = map[string]struct{}{
	"audubon": {}, "jj": {}, "j": {}, "john": {}, "james": {},
	"havell": {}, "bien": {}, "octavo": {}, "folio": {},
	"elephant": {}, "double": {}, "chromolithograph": {},
	"ed": {}, "edition": {}, "1st": {}, "first": {},
	"2nd": {}, "second": {}, "later": {},
	"print": {}, "prints": {}, "original": {}, "antique": {},
	"hand": {}, "colored": {}, "coloured": {},
	"plate": {}, "pl": {}, "plt": {}, "no": {},
}

var punctRe = regexp.MustCompile(`[^\w\s]`)

// Normalize reduces a title to the tokens that identify the lot.
func Normalize(title string) string {
	lower := strings.ToLower(title)
	stripped := punctRe.ReplaceAllString(lower, " ")

	var kept []string
	for _, tok := range strings.Fields(stripped) {
		if _, skip := boilerplate[tok]; skip {
			continue
		}
		kept = append(kept, tok)
	}
	return strings.Join(kept, " ")
}

// groupKey returns the grouping key for a normalized title, falling back to
// the listing id when the title is too short to be discriminating.
func groupKey(normalized, id string) string {
	if len(normalized) <= minNormalizedLen {
		return id
	}
	if len(normalized) > groupKeyLen {
		return normalized[:groupKeyLen]
	}
	return normalized
}

// Collapse keeps the first-seen listing per group among auction-aggregator
// sources and drops the rest, reporting the drop count. Listings from other
// sources pass through untouched, in their original order.
func Collapse(listings []listing.Listing, auctionKeys map[string]struct{}) ([]listing.Listing, int) {
	kept := make([]listing.Listing, 0, len(listings))
	seen := make(map[string]string) // group key -> kept normalized title
	dropped := 0

	for _, l := range listings {
		if _, auction := auctionKeys[l.SourceKey]; !auction {
			kept = append(kept, l)
			continue
		}

		normalized := Normalize(l.Title)
		key := groupKey(normalized, l.ID)

		prev, exists := seen[key]
		if exists && matchr.JaroWinkler(prev, normalized, false) >= similarityThreshold {
			dropped++
			continue
		}
		if !exists {
			seen[key] = normalized
		}
		kept = append(kept, l)
	}

	return kept, dropped
}
