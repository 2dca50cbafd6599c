package adapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"audubonwatch/internal/fetch"
	"audubonwatch/internal/listing"
)

func testEngine(t *testing.T) *fetch.Engine {
	t.Helper()
	return fetch.NewEngine(
		[]fetch.Strategy{fetch.NewPlainStrategy(5 * time.Second)},
		fetch.WithMinBodySize(2),
	)
}

const shopifyFixture = `{
	"products": [
		{
			"title": "Carolina Parrot, Plate 26 - Octavo 1st Ed",
			"handle": "carolina-parrot-26",
			"body_html": "<p>Original hand-colored lithograph from the first octavo edition, 1840.</p>",
			"variants": [{"price": "1250.00", "available": true}],
			"images": [{"src": "https://cdn.example.com/parrot.jpg"}]
		},
		{
			"title": "Snowy Heron, Plate 242",
			"handle": "snowy-heron-242",
			"body_html": "",
			"variants": [{"price": "890.00", "available": false}],
			"images": []
		},
		{
			"title": "No variants product",
			"handle": "broken",
			"variants": []
		}
	]
}`

func TestShopifyAdapter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/collections/octavo/products.json", r.URL.Path)
		if r.URL.Query().Get("page") == "1" {
			w.Write([]byte(shopifyFixture))
			return
		}
		w.Write([]byte(`{"products": []}`))
	}))
	defer server.Close()

	adapter := NewShopifyAdapter(ShopifyConfig{
		SourceName:     "Princeton Audubon",
		SourceKey:      "princeton",
		BaseURL:        server.URL,
		CollectionPath: "/collections/octavo",
		MaxPages:       10,
	}, testEngine(t))

	listings, err := adapter.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, listings, 2)

	first := listings[0]
	assert.Equal(t, "Princeton Audubon", first.Source)
	assert.Equal(t, "princeton", first.SourceKey)
	assert.Equal(t, server.URL+"/products/carolina-parrot-26", first.URL)
	require.NotNil(t, first.Price)
	assert.Equal(t, 1250.00, *first.Price)
	assert.True(t, first.Available)
	assert.Equal(t, listing.EditionOctavoFirst, first.Edition)
	require.NotNil(t, first.PlateNumber)
	assert.Equal(t, 26, *first.PlateNumber)
	assert.Equal(t, "https://cdn.example.com/parrot.jpg", first.ImageURL)
	assert.Contains(t, first.Description, "hand-colored lithograph")
	assert.NotContains(t, first.Description, "<p>")

	second := listings[1]
	require.NotNil(t, second.PlateNumber)
	assert.Equal(t, 242, *second.PlateNumber)
	assert.False(t, second.Available)
	assert.Equal(t, listing.EditionUnknown, second.Edition)
}

func TestShopifyAdapterTextFilter(t *testing.T) {
	fixture := `{"products": [
		{"title": "Audubon Wild Turkey", "handle": "turkey", "variants": [{"price": "450.00", "available": true}]},
		{"title": "Redoute Rose Print", "handle": "rose", "variants": [{"price": "120.00", "available": true}]}
	]}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "1" {
			w.Write([]byte(fixture))
			return
		}
		w.Write([]byte(`{"products": []}`))
	}))
	defer server.Close()

	adapter := NewShopifyAdapter(ShopifyConfig{
		SourceName:     "Panteek",
		SourceKey:      "panteek",
		BaseURL:        server.URL,
		CollectionPath: "/collections/all",
		MaxPages:       20,
		TextFilter:     "audubon",
	}, testEngine(t))

	listings, err := adapter.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "Audubon Wild Turkey", listings[0].Title)
}

func TestShopifyAdapterFirstPageFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	adapter := NewShopifyAdapter(ShopifyConfig{
		SourceName:     "Princeton Audubon",
		SourceKey:      "princeton",
		BaseURL:        server.URL,
		CollectionPath: "/collections/octavo",
		MaxPages:       10,
	}, testEngine(t))

	_, err := adapter.Fetch(context.Background())
	assert.Error(t, err)
}

const catalogFixture = `<html><body><ul>
	<li>
		<a href="/product/1001">
			<img src="/images/parrot-26.jpg">
		</a>
		<h2>Carolina Parrot, Plate 26, Havell Edition</h2>
		<span class="price">$125,000.00</span>
	</li>
	<li>
		<a href="/product/1002">
			<img src="/assets/logo.svg">
		</a>
		<h2>Snowy Heron, Plate 242, Octavo</h2>
		<span class="price">$2,400.00</span>
	</li>
	<li>
		<a href="/product/1001">
			<h2>Carolina Parrot, Plate 26, Havell Edition</h2>
		</a>
	</li>
</ul></body></html>`

func TestMarkupAdapter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/shop"):
			w.Write([]byte(catalogFixture))
		case r.URL.Path == "/product/1002":
			w.Write([]byte(`<html><body><img data-zoom-image="/images/heron-zoom.jpg" src="/images/heron.jpg"></body></html>`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	adapter := NewMarkupAdapter(MarkupConfig{
		SourceName:         "The Old Print Shop",
		SourceKey:          "oldprintshop",
		BaseURL:            server.URL,
		Pages:              []MarkupPage{{URL: server.URL + "/shop?page=1"}},
		ContainerSelectors: []string{"li:has(a[href*='/product/'])"},
		LinkSelectors:      []string{"a[href*='/product/']"},
		LinkContains:       "/product/",
		TitleSelectors:     []string{"h2", "h3"},
		UseFallbackTitle:   true,
		PriceSelectors:     []string{".price"},
		ImageSelector:      "img",
		EnrichImages:       true,
	}, testEngine(t))

	listings, err := adapter.Fetch(context.Background())
	require.NoError(t, err)
	// Third card is a repeat of product 1001 and is deduped by URL
	require.Len(t, listings, 2)

	first := listings[0]
	assert.Equal(t, "Carolina Parrot, Plate 26, Havell Edition", first.Title)
	assert.Equal(t, server.URL+"/product/1001", first.URL)
	require.NotNil(t, first.Price)
	assert.Equal(t, 125000.00, *first.Price)
	assert.Equal(t, listing.EditionHavell, first.Edition)
	assert.Equal(t, server.URL+"/images/parrot-26.jpg", first.ImageURL)

	// Second card's logo was rejected as decorative and the detail page
	// supplied the zoom image instead.
	second := listings[1]
	assert.Equal(t, server.URL+"/images/heron-zoom.jpg", second.ImageURL)
}

func TestMarkupAdapterEditionHint(t *testing.T) {
	fixture := `<html><body>
		<div class="wsite-com-product-wrap">
			<a href="/store/p100/wild-turkey">Wild Turkey Plate 1</a>
			<span class="product-title">Wild Turkey, Plate 1</span>
			<span class="product-price">$595.00</span>
			<span class="sale-price">$495.00</span>
		</div>
	</body></html>`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(fixture))
	}))
	defer server.Close()

	adapter := NewMarkupAdapter(MarkupConfig{
		SourceName: "Antique Audubon",
		SourceKey:  "antiqueaudubon",
		BaseURL:    server.URL,
		Pages: []MarkupPage{
			{URL: server.URL + "/store/c32", EditionHint: listing.EditionOctavoFirst},
		},
		ContainerSelectors: []string{".wsite-com-product-wrap"},
		LinkSelectors:      []string{"a[href]"},
		TitleSelectors:     []string{"[class*='product-title']"},
		PriceSelectors:     []string{"[class*='product-price']"},
		SalePriceSelector:  "[class*='sale']",
		ImageSelector:      "img",
	}, testEngine(t))

	listings, err := adapter.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, listings, 1)

	got := listings[0]
	// Page-level hint beats text detection, sale price beats list price
	assert.Equal(t, listing.EditionOctavoFirst, got.Edition)
	require.NotNil(t, got.Price)
	assert.Equal(t, 495.00, *got.Price)
}

const ebayFixture = `<html><body>
	<div class="s-item">
		<a class="s-item__link" href="https://www.ebay.com/itm/555?hash=abc&tracking=1"></a>
		<div class="s-item__title">Audubon Bien Chromolithograph Snowy Owl</div>
		<div class="s-item__price">$3,200.00</div>
	</div>
	<div class="s-item">
		<a class="s-item__link" href="https://www.ebay.com/itm/556"></a>
		<div class="s-item__title">Shop on eBay</div>
		<div class="s-item__price">$20.00</div>
	</div>
	<div class="s-item">
		<a class="s-item__link" href="https://www.ebay.com/itm/557"></a>
		<div class="s-item__title">Vintage Heron Art Print</div>
		<div class="s-item__price">$15.00</div>
	</div>
</body></html>`

func TestMarkupAdapterEbayFilters(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(ebayFixture))
	}))
	defer server.Close()

	adapter := NewMarkupAdapter(MarkupConfig{
		SourceName:          "eBay",
		SourceKey:           "ebay",
		BaseURL:             server.URL,
		Pages:               []MarkupPage{{URL: server.URL + "/sch/i.html?_nkw=audubon"}},
		ContainerSelectors:  []string{".s-item"},
		LinkSelectors:       []string{"a.s-item__link"},
		LinkContains:        "/itm/",
		TitleSelectors:      []string{"[class*='s-item__title']"},
		SkipTitlePrefixes:   []string{"shop on ebay"},
		TitleContains:       "audubon",
		PriceSelectors:      []string{"[class*='s-item__price']"},
		ImageSelector:       "img",
		CanonicalizeURL:     true,
		ContinueOnPageError: true,
	}, testEngine(t))

	listings, err := adapter.Fetch(context.Background())
	require.NoError(t, err)
	// Promo tile and non-Audubon listing are dropped
	require.Len(t, listings, 1)
	assert.Equal(t, "https://www.ebay.com/itm/555", listings[0].URL)
	assert.Equal(t, listing.EditionBien, listings[0].Edition)
}

const dibsFixture = `<html><body>
<script type="application/json">
{
	"pageProps": {
		"results": [
			{"title": "Audubon Columbia Jay Havell", "price": "18500", "url": "/art/prints/columbia-jay", "image": "https://cdn.example.com/jay.jpg"},
			{"title": "Audubon Roseate Spoonbill", "amount": 9200, "href": "https://www.1stdibs.com/art/prints/spoonbill"}
		]
	}
}
</script>
<div class="listing-tile">
	<a href="/art/prints/columbia-jay"></a>
	<p>Audubon Columbia Jay Havell</p>
	<span class="price">$18,500</span>
</div>
</body></html>`

func TestFirstDibsAdapter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(dibsFixture))
	}))
	defer server.Close()

	adapter := NewFirstDibsAdapter(server.URL, testEngine(t))

	listings, err := adapter.Fetch(context.Background())
	require.NoError(t, err)
	// The tile repeats the first script record and is deduped by URL
	require.Len(t, listings, 2)

	byTitle := map[string]listing.Listing{}
	for _, l := range listings {
		byTitle[l.Title] = l
	}

	jay, ok := byTitle["Audubon Columbia Jay Havell"]
	require.True(t, ok)
	assert.Equal(t, server.URL+"/art/prints/columbia-jay", jay.URL)
	require.NotNil(t, jay.Price)
	assert.Equal(t, 18500.00, *jay.Price)
	assert.Equal(t, listing.EditionHavell, jay.Edition)

	spoonbill, ok := byTitle["Audubon Roseate Spoonbill"]
	require.True(t, ok)
	require.NotNil(t, spoonbill.Price)
	assert.Equal(t, 9200.00, *spoonbill.Price)
}
