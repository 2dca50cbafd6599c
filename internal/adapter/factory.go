package adapter

import (
	"fmt"

	"audubonwatch/config"
	"audubonwatch/internal/fetch"
	"audubonwatch/internal/listing"
)

// AuctionKeys names the auction-aggregator sources whose overlapping lots
// the deduplicator may collapse. Dealer inventories are never in this set.
func AuctionKeys() map[string]struct{} {
	return map[string]struct{}{
		"1stdibs": {},
		"ebay":    {},
	}
}

// CreateAdapters builds the fixed adapter sequence. Order matters twice:
// dealers come before auction aggregators so dedup keeps the dealer-adjacent
// auction copy last, and the persisted listing order is stable across runs.
func CreateAdapters(cfg *config.Config, engine *fetch.Engine) []SourceAdapter {
	ebayQuery := func(q string) string {
		return fmt.Sprintf("%s/sch/i.html?_nkw=%s&_sacat=0&LH_BIN=1&_sop=16", cfg.EbayURL, q)
	}

	return []SourceAdapter{
		NewShopifyAdapter(ShopifyConfig{
			SourceName:     "Princeton Audubon",
			SourceKey:      "princeton",
			BaseURL:        cfg.PrincetonURL,
			CollectionPath: "/collections/octavo-bird-originals",
			MaxPages:       10,
		}, engine),

		NewShopifyAdapter(ShopifyConfig{
			SourceName:     "Panteek",
			SourceKey:      "panteek",
			BaseURL:        cfg.PanteekURL,
			CollectionPath: "/collections/all",
			MaxPages:       20,
			TextFilter:     "audubon",
		}, engine),

		NewMarkupAdapter(MarkupConfig{
			SourceName: "The Old Print Shop",
			SourceKey:  "oldprintshop",
			BaseURL:    cfg.OldPrintShopURL,
			Pages: []MarkupPage{
				{URL: cfg.OldPrintShopURL + "/shop?subjectdetail=1544&sort-price=high-to-low&page=1"},
				{URL: cfg.OldPrintShopURL + "/shop?subjectdetail=1544&sort-price=high-to-low&page=2"},
				{URL: cfg.OldPrintShopURL + "/shop?subjectdetail=1544&sort-price=high-to-low&page=3"},
				{URL: cfg.OldPrintShopURL + "/shop?subjectdetail=1544&sort-price=high-to-low&page=4"},
				{URL: cfg.OldPrintShopURL + "/shop?subjectdetail=1544&sort-price=high-to-low&page=5"},
			},
			ContainerSelectors: []string{
				"li:has(a[href*='/product/'])",
				"div.product-card",
			},
			LinkSelectors:    []string{"a[href*='/product/']"},
			LinkContains:     "/product/",
			TitleSelectors:   []string{"h2", "h3"},
			UseFallbackTitle: true,
			PriceSelectors:   []string{".price", "[class*='price']"},
			ImageSelector:    "img",
			EnrichImages:     true,
		}, engine),

		NewMarkupAdapter(MarkupConfig{
			SourceName: "Antique Audubon",
			SourceKey:  "antiqueaudubon",
			BaseURL:    cfg.AntiqueAudubonURL,
			Pages: []MarkupPage{
				{
					URL:         cfg.AntiqueAudubonURL + "/store/c32/Octavo-First-Edition-Birds",
					EditionHint: listing.EditionOctavoFirst,
				},
				{
					URL:         cfg.AntiqueAudubonURL + "/store/c33/Octavo-Later-Edition-Birds",
					EditionHint: listing.EditionOctavoLater,
				},
			},
			ContainerSelectors: []string{
				".wsite-com-product-wrap",
				".wsite-com-category-product",
				"div[class*='product']",
			},
			LinkSelectors: []string{"a[href]"},
			TitleSelectors: []string{
				"[class*='product-title']",
				"[class*='product-name']",
				"h2",
				"h3",
			},
			PriceSelectors:      []string{"[class*='product-price']", "[class*='price']"},
			SalePriceSelector:   "[class*='sale']",
			ImageSelector:       "img",
			ContinueOnPageError: true,
		}, engine),

		NewMarkupAdapter(MarkupConfig{
			SourceName: "Audubon Art",
			SourceKey:  "audubonart",
			BaseURL:    cfg.AudubonArtURL,
			Pages: []MarkupPage{
				{URL: cfg.AudubonArtURL + "/product-category/audubon-1st-ed-octavo/"},
				{URL: cfg.AudubonArtURL + "/product-category/audubon-1st-ed-octavo/page/2/"},
				{URL: cfg.AudubonArtURL + "/product-category/audubon-1st-ed-octavo/page/3/"},
			},
			ContainerSelectors: []string{
				"li.product",
				".wc-block-grid__product",
				".product",
			},
			LinkSelectors:  []string{"a[href*='/product/']"},
			LinkContains:   "/product/",
			TitleSelectors: []string{"h2", "[class*='title']"},
			PriceSelectors: []string{"[class*='price']"},
			ImageSelector:  "img",
		}, engine),

		NewFirstDibsAdapter(cfg.FirstDibsURL, engine),

		NewMarkupAdapter(MarkupConfig{
			SourceName: "eBay",
			SourceKey:  "ebay",
			BaseURL:    cfg.EbayURL,
			Pages: []MarkupPage{
				{URL: ebayQuery("audubon+birds+america+original+print+octavo")},
				{URL: ebayQuery("audubon+birds+america+havell+print")},
				{URL: ebayQuery("audubon+birds+america+bien+print")},
			},
			ContainerSelectors: []string{
				".s-item",
				".srp-results .s-item__wrapper",
			},
			LinkSelectors:       []string{"a.s-item__link", "a[href*='ebay.com/itm/']"},
			LinkContains:        "/itm/",
			TitleSelectors:      []string{"[class*='s-item__title']"},
			SkipTitlePrefixes:   []string{"shop on ebay"},
			TitleContains:       "audubon",
			PriceSelectors:      []string{"[class*='s-item__price']"},
			ImageSelector:       "img",
			CanonicalizeURL:     true,
			ContinueOnPageError: true,
		}, engine),
	}
}
