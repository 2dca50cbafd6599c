package adapter

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"audubonwatch/internal/extract"
	"audubonwatch/internal/fetch"
	"audubonwatch/internal/listing"
	"audubonwatch/logger"
	"audubonwatch/pkg/errors"
)

// FirstDibsAdapter scrapes the 1stDibs search page. The site renders through
// React, so the primary path walks the JSON blobs embedded in script tags;
// HTML tiles are the fallback for partially rendered responses.
type FirstDibsAdapter struct {
	baseURL string
	engine  *fetch.Engine
	log     *logger.Logger
}

// NewFirstDibsAdapter creates the 1stDibs adapter
func NewFirstDibsAdapter(baseURL string, engine *fetch.Engine) *FirstDibsAdapter {
	return &FirstDibsAdapter{
		baseURL: baseURL,
		engine:  engine,
		log:     logger.ForAdapter("1stdibs"),
	}
}

func (a *FirstDibsAdapter) Name() string { return "1stDibs" }
func (a *FirstDibsAdapter) Key() string  { return "1stdibs" }

// tileSelectors is the HTML fallback chain for search result tiles.
var tileSelectors = []string{
	"[data-tn='search-result-item']",
	".search-result-item",
	".listing-tile",
}

func (a *FirstDibsAdapter) Fetch(ctx context.Context) ([]listing.Listing, error) {
	searchURL := a.baseURL + "/search/?q=audubon+birds+of+america+print&sort=price-desc"

	resp, err := a.engine.Fetch(ctx, searchURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, errors.NewExtract("1stdibs", "failed to parse search page", err)
	}

	listings := a.fromScripts(doc)
	listings = append(listings, a.fromTiles(doc)...)
	listings = dedupeByURL(listings)

	a.log.Info().Int("count", len(listings)).Msg("Collected listings")
	return listings, nil
}

// fromScripts walks every embedded application/json blob for listing-shaped
// records: an object with a title plus a price-like field.
func (a *FirstDibsAdapter) fromScripts(doc *goquery.Document) []listing.Listing {
	var listings []listing.Listing

	doc.Find(`script[type="application/json"]`).Each(func(_ int, script *goquery.Selection) {
		nodes := extract.WalkJSON([]byte(script.Text()), func(node map[string]any) bool {
			_, hasTitle := node["title"].(string)
			_, hasPrice := node["price"]
			_, hasAmount := node["amount"]
			return hasTitle && (hasPrice || hasAmount)
		}, extract.DefaultMaxDepth)

		for _, node := range nodes {
			if l, ok := a.fromNode(node); ok {
				listings = append(listings, l)
			}
		}
	})

	return listings
}

func (a *FirstDibsAdapter) fromNode(node map[string]any) (listing.Listing, bool) {
	title := extract.Str(node, "title")
	url := extract.Str(node, "url", "href", "link")
	if title == "" || url == "" {
		return listing.Listing{}, false
	}
	if !strings.HasPrefix(url, "http") {
		url = a.baseURL + url
	}

	rawPrice := extract.Str(node, "price", "amount")
	if rawPrice == "" {
		if v, ok := extract.Num(node, "price", "amount"); ok {
			rawPrice = fmt.Sprintf("%g", v)
		}
	}

	return newListing(
		a.Name(), a.Key(),
		title, rawPrice, url,
		extract.Str(node, "image", "imageUrl", "src"),
		"", title,
		true,
	), true
}

// fromTiles parses rendered search result tiles.
func (a *FirstDibsAdapter) fromTiles(doc *goquery.Document) []listing.Listing {
	var listings []listing.Listing

	extract.Containers(doc, tileSelectors).Each(func(_ int, tile *goquery.Selection) {
		href := extract.Attr("a", "href")(tile)
		if href == "" {
			return
		}
		url := extract.ResolveURL(a.baseURL, href)

		title := extract.First(tile, []extract.FieldRule{
			extract.Text("p"),
			extract.Text("h3"),
			extract.Text("span"),
		})
		if title == "" {
			return
		}

		rawPrice := extract.Text("[class*='price']")(tile)
		image := extract.First(tile, extract.ImageRules("img"))

		listings = append(listings, newListing(
			a.Name(), a.Key(),
			title, rawPrice, url, image,
			"", title,
			true,
		))
	})

	return listings
}
