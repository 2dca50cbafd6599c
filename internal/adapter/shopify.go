package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"audubonwatch/internal/fetch"
	"audubonwatch/internal/listing"
	"audubonwatch/logger"
	"audubonwatch/pkg/errors"
)

// shopifyMinBody accepts the empty-catalog document {"products":[]}.
const shopifyMinBody = 2

// ShopifyConfig describes one Shopify storefront.
type ShopifyConfig struct {
	SourceName     string
	SourceKey      string
	BaseURL        string
	CollectionPath string
	MaxPages       int
	// TextFilter, when set, drops products whose title+body does not
	// contain it (case-insensitive). Mixed-inventory stores need this.
	TextFilter string
}

// ShopifyAdapter reads a store's products.json API page by page.
type ShopifyAdapter struct {
	cfg    ShopifyConfig
	engine *fetch.Engine
	log    *logger.Logger
}

// NewShopifyAdapter creates a Shopify storefront adapter
func NewShopifyAdapter(cfg ShopifyConfig, engine *fetch.Engine) *ShopifyAdapter {
	return &ShopifyAdapter{
		cfg:    cfg,
		engine: engine,
		log:    logger.ForAdapter(cfg.SourceKey),
	}
}

func (a *ShopifyAdapter) Name() string { return a.cfg.SourceName }
func (a *ShopifyAdapter) Key() string  { return a.cfg.SourceKey }

type shopifyProduct struct {
	Title    string `json:"title"`
	Handle   string `json:"handle"`
	BodyHTML string `json:"body_html"`
	Variants []struct {
		Price     string `json:"price"`
		Available bool   `json:"available"`
	} `json:"variants"`
	Images []struct {
		Src string `json:"src"`
	} `json:"images"`
}

type shopifyPage struct {
	Products []shopifyProduct `json:"products"`
}

// Fetch pages through the collection until an empty page, a fetch failure or
// the page cap. A failure on the first page is a real error; later pages just
// end the walk.
func (a *ShopifyAdapter) Fetch(ctx context.Context) ([]listing.Listing, error) {
	var listings []listing.Listing

	for page := 1; page <= a.cfg.MaxPages; page++ {
		url := fmt.Sprintf("%s%s/products.json?page=%d&limit=250", a.cfg.BaseURL, a.cfg.CollectionPath, page)

		resp, err := a.engine.FetchMin(ctx, url, shopifyMinBody)
		if err != nil {
			if page == 1 {
				return nil, err
			}
			a.log.Warn().Int("page", page).Err(err).Msg("Stopping pagination on fetch failure")
			break
		}

		var parsed shopifyPage
		if err := json.Unmarshal(resp.Body, &parsed); err != nil {
			return nil, errors.NewExtract(a.cfg.SourceKey, "failed to decode products.json", err)
		}
		if len(parsed.Products) == 0 {
			break
		}

		for _, p := range parsed.Products {
			if l, ok := a.convert(p); ok {
				listings = append(listings, l)
			}
		}
	}

	a.log.Info().Int("count", len(listings)).Msg("Collected listings")
	return listings, nil
}

func (a *ShopifyAdapter) convert(p shopifyProduct) (listing.Listing, bool) {
	if len(p.Variants) == 0 {
		return listing.Listing{}, false
	}

	classText := p.Title + " " + p.BodyHTML
	if a.cfg.TextFilter != "" && !strings.Contains(strings.ToLower(classText), a.cfg.TextFilter) {
		return listing.Listing{}, false
	}

	variant := p.Variants[0]
	image := ""
	if len(p.Images) > 0 {
		image = p.Images[0].Src
	}
	url := a.cfg.BaseURL + "/products/" + p.Handle

	return newListing(
		a.cfg.SourceName, a.cfg.SourceKey,
		p.Title, variant.Price, url, image,
		htmlToText(p.BodyHTML), classText,
		variant.Available,
	), true
}
