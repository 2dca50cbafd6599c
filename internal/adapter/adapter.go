// Package adapter holds one SourceAdapter per monitored site. Adapters share
// no state; each produces normalized listings or fails on its own.
package adapter

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"audubonwatch/internal/classify"
	"audubonwatch/internal/listing"
)

// SourceAdapter is the one contract every site implements.
type SourceAdapter interface {
	// Name is the human-readable source name used in stats and error reports
	Name() string

	// Key is the stable source key used in listing identity
	Key() string

	// Fetch retrieves and normalizes the site's current listings
	Fetch(ctx context.Context) ([]listing.Listing, error)
}

// newListing assembles a listing with all derived attributes filled in.
// classText is what edition detection runs over; it usually includes the
// description since titles alone rarely name the printing.
func newListing(name, key, title, rawPrice, url, image, description, classText string, available bool) listing.Listing {
	l := listing.Listing{
		ID:          classify.MakeID(key, url),
		Source:      name,
		SourceKey:   key,
		Title:       title,
		Currency:    "USD",
		URL:         url,
		ImageURL:    image,
		Available:   available,
		Edition:     classify.ClassifyEdition(classText),
		Description: listing.TruncateDescription(description),
		ScrapedAt:   listing.Timestamp(time.Now()),
	}
	if price, ok := classify.ParsePrice(rawPrice); ok {
		l.SetPrice(price)
	}
	if plate, ok := classify.ExtractPlateNumber(title); ok {
		l.SetPlate(plate)
	}
	return l
}

// htmlToText flattens an HTML fragment to its visible text.
func htmlToText(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Text())
}

// dedupeByURL keeps the first listing per URL, preserving order. Catalog
// pages repeat products in carousels and grids; one card is enough.
func dedupeByURL(listings []listing.Listing) []listing.Listing {
	seen := make(map[string]struct{}, len(listings))
	out := make([]listing.Listing, 0, len(listings))
	for _, l := range listings {
		if _, dup := seen[l.URL]; dup {
			continue
		}
		seen[l.URL] = struct{}{}
		out = append(out, l)
	}
	return out
}
