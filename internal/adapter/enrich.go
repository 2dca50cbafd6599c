package adapter

import (
	"bytes"
	"context"
	"net/url"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"audubonwatch/internal/extract"
	"audubonwatch/internal/fetch"
	"audubonwatch/internal/listing"
	"audubonwatch/logger"
)

// enrichWorkers bounds detail-page concurrency. Pacing is enforced per host
// regardless, so more workers would only help multi-host batches.
const enrichWorkers = 2

// Enricher fetches listing detail pages to recover images that catalog
// cards did not carry. Failures leave the image empty; never fatal.
type Enricher struct {
	engine *fetch.Engine
	log    *logger.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewEnricher creates a detail-page image enricher
func NewEnricher(engine *fetch.Engine) *Enricher {
	return &Enricher{
		engine:   engine,
		log:      logger.ForFetch(),
		limiters: make(map[string]*rate.Limiter),
	}
}

// limiter returns the per-host pacer, one request per second per host.
func (e *Enricher) limiter(host string) *rate.Limiter {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.limiters[host]
	if !ok {
		l = rate.NewLimiter(rate.Limit(1), 1)
		e.limiters[host] = l
	}
	return l
}

// FillImages fetches the detail page of every listing without an image and
// fills in the best image found, in place.
func (e *Enricher) FillImages(ctx context.Context, listings []listing.Listing) {
	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < enrichWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				e.fill(ctx, &listings[i])
			}
		}()
	}

	for i := range listings {
		if listings[i].ImageURL != "" {
			continue
		}
		select {
		case jobs <- i:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return
		}
	}
	close(jobs)
	wg.Wait()
}

func (e *Enricher) fill(ctx context.Context, l *listing.Listing) {
	u, err := url.Parse(l.URL)
	if err != nil {
		return
	}

	if err := e.limiter(u.Host).Wait(ctx); err != nil {
		return
	}

	resp, err := e.engine.Fetch(ctx, l.URL)
	if err != nil {
		e.log.Debug().Str("url", l.URL).Err(err).Msg("Detail enrichment fetch failed")
		return
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return
	}

	image := extract.First(doc.Selection, extract.ImageRules("img"))
	if image != "" {
		l.ImageURL = extract.ResolveURL(l.URL, image)
	}
}
