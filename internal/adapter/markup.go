package adapter

import (
	"bytes"
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"audubonwatch/internal/classify"
	"audubonwatch/internal/extract"
	"audubonwatch/internal/fetch"
	"audubonwatch/internal/listing"
	"audubonwatch/logger"
	"audubonwatch/pkg/errors"
)

// MarkupPage is one catalog page to scrape. An EditionHint overrides text
// based edition detection when the page itself is edition-scoped.
type MarkupPage struct {
	URL         string
	EditionHint listing.Edition
}

// MarkupConfig describes an HTML catalog site declaratively: selector chains
// per field, link shape, and per-site quirks.
type MarkupConfig struct {
	SourceName string
	SourceKey  string
	BaseURL    string
	Pages      []MarkupPage

	// ContainerSelectors is the fallback chain locating listing cards.
	ContainerSelectors []string
	// LinkSelectors locate the product link inside a card, in order.
	LinkSelectors []string
	// LinkContains, when set, requires the href to contain it.
	LinkContains string
	// TitleSelectors locate the title, in order.
	TitleSelectors []string
	// UseFallbackTitle scans visible text lines when no selector matched.
	UseFallbackTitle bool
	// SkipTitlePrefixes drops cards whose title starts with one of these
	// (case-insensitive). Search pages inject promo tiles.
	SkipTitlePrefixes []string
	// TitleContains, when set, requires the title to contain it
	// (case-insensitive).
	TitleContains string

	PriceSelectors []string
	// SalePriceSelector, when set and matching, overrides the price.
	SalePriceSelector string

	ImageSelector string

	// CanonicalizeURL strips the query string off product URLs so tracking
	// parameters do not fork listing identity.
	CanonicalizeURL bool
	// ContinueOnPageError keeps walking remaining pages after a failure
	// instead of stopping.
	ContinueOnPageError bool
	// EnrichImages fetches detail pages for listings without an image.
	EnrichImages bool
}

// MarkupAdapter scrapes an HTML catalog site described by a MarkupConfig.
type MarkupAdapter struct {
	cfg      MarkupConfig
	engine   *fetch.Engine
	enricher *Enricher
	log      *logger.Logger
}

// NewMarkupAdapter creates an HTML catalog adapter
func NewMarkupAdapter(cfg MarkupConfig, engine *fetch.Engine) *MarkupAdapter {
	a := &MarkupAdapter{
		cfg:    cfg,
		engine: engine,
		log:    logger.ForAdapter(cfg.SourceKey),
	}
	if cfg.EnrichImages {
		a.enricher = NewEnricher(engine)
	}
	return a
}

func (a *MarkupAdapter) Name() string { return a.cfg.SourceName }
func (a *MarkupAdapter) Key() string  { return a.cfg.SourceKey }

// Fetch walks the configured pages in order. The adapter fails only when
// every page failed and nothing was collected.
func (a *MarkupAdapter) Fetch(ctx context.Context) ([]listing.Listing, error) {
	var listings []listing.Listing
	var lastErr error

	for _, page := range a.cfg.Pages {
		resp, err := a.engine.Fetch(ctx, page.URL)
		if err != nil {
			lastErr = err
			a.log.Warn().Str("url", page.URL).Err(err).Msg("Page fetch failed")
			if a.cfg.ContinueOnPageError {
				continue
			}
			break
		}

		pageListings, err := a.parsePage(resp.Body, page)
		if err != nil {
			lastErr = err
			if a.cfg.ContinueOnPageError {
				continue
			}
			break
		}
		listings = append(listings, pageListings...)
	}

	if len(listings) == 0 && lastErr != nil {
		return nil, lastErr
	}

	listings = dedupeByURL(listings)

	if a.enricher != nil {
		a.enricher.FillImages(ctx, listings)
	}

	a.log.Info().Int("count", len(listings)).Msg("Collected listings")
	return listings, nil
}

func (a *MarkupAdapter) parsePage(body []byte, page MarkupPage) ([]listing.Listing, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, errors.NewExtract(a.cfg.SourceKey, "failed to parse document", err)
	}

	var listings []listing.Listing
	extract.Containers(doc, a.cfg.ContainerSelectors).Each(func(_ int, card *goquery.Selection) {
		if l, ok := a.convert(card, page); ok {
			listings = append(listings, l)
		}
	})
	return listings, nil
}

func (a *MarkupAdapter) convert(card *goquery.Selection, page MarkupPage) (listing.Listing, bool) {
	href := extract.First(card, linkRules(a.cfg.LinkSelectors))
	if href == "" {
		return listing.Listing{}, false
	}
	if a.cfg.LinkContains != "" && !strings.Contains(href, a.cfg.LinkContains) {
		return listing.Listing{}, false
	}

	url := extract.ResolveURL(a.cfg.BaseURL, href)
	if a.cfg.CanonicalizeURL {
		url = strings.SplitN(url, "?", 2)[0]
	}

	title := extract.First(card, textRules(a.cfg.TitleSelectors))
	if title == "" && a.cfg.UseFallbackTitle {
		title = extract.FallbackTitle(card)
	}
	if title == "" {
		return listing.Listing{}, false
	}
	lowerTitle := strings.ToLower(title)
	for _, prefix := range a.cfg.SkipTitlePrefixes {
		if strings.HasPrefix(lowerTitle, prefix) {
			return listing.Listing{}, false
		}
	}
	if a.cfg.TitleContains != "" && !strings.Contains(lowerTitle, a.cfg.TitleContains) {
		return listing.Listing{}, false
	}

	rawPrice := extract.First(card, textRules(a.cfg.PriceSelectors))
	if a.cfg.SalePriceSelector != "" {
		if sale := extract.Text(a.cfg.SalePriceSelector)(card); sale != "" {
			if _, ok := classify.ParsePrice(sale); ok {
				rawPrice = sale
			}
		}
	}

	image := extract.First(card, extract.ImageRules(a.cfg.ImageSelector))
	if image != "" {
		image = extract.ResolveURL(page.URL, image)
	}

	l := newListing(
		a.cfg.SourceName, a.cfg.SourceKey,
		title, rawPrice, url, image,
		"", title,
		true,
	)
	if page.EditionHint != "" {
		l.Edition = page.EditionHint
	}
	return l, true
}

func textRules(selectors []string) []extract.FieldRule {
	rules := make([]extract.FieldRule, 0, len(selectors))
	for _, sel := range selectors {
		rules = append(rules, extract.Text(sel))
	}
	return rules
}

func linkRules(selectors []string) []extract.FieldRule {
	rules := make([]extract.FieldRule, 0, len(selectors))
	for _, sel := range selectors {
		rules = append(rules, extract.Attr(sel, "href"))
	}
	return rules
}
