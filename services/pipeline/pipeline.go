// Package pipeline orchestrates one aggregation run: adapters in sequence,
// dedup, diff against the previous run, persistence, and publishing.
package pipeline

import (
	"context"
	"time"

	"audubonwatch/internal/adapter"
	"audubonwatch/internal/dedup"
	"audubonwatch/internal/diff"
	"audubonwatch/internal/listing"
	"audubonwatch/logger"
	"audubonwatch/services/publisher"
	"audubonwatch/services/state"
)

// Pipeline runs the fixed adapter sequence and assembles the run output.
type Pipeline struct {
	adapters    []adapter.SourceAdapter
	auctionKeys map[string]struct{}
	store       *state.Store
	pub         publisher.Publisher
	delay       time.Duration
	log         *logger.Logger
}

// New creates a pipeline. pub may be nil to disable publishing.
func New(adapters []adapter.SourceAdapter, auctionKeys map[string]struct{}, store *state.Store, pub publisher.Publisher, delay time.Duration) *Pipeline {
	return &Pipeline{
		adapters:    adapters,
		auctionKeys: auctionKeys,
		store:       store,
		pub:         pub,
		delay:       delay,
		log:         logger.ForPipeline(),
	}
}

// Run executes one full aggregation run. Adapter failures become per-source
// error entries; only state persistence failures abort the run.
func (p *Pipeline) Run(ctx context.Context) (*listing.RunOutput, error) {
	previous, err := p.store.Load()
	if err != nil {
		return nil, err
	}
	prevIDs := previous.PreviousIDs()

	var collected []listing.Listing
	var srcErrors []listing.SourceError

	for i, a := range p.adapters {
		if i > 0 && p.delay > 0 {
			select {
			case <-time.After(p.delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		p.log.Info().Str("source", a.Name()).Msg("Running adapter")
		results, err := a.Fetch(ctx)
		if err != nil {
			p.log.Error().Str("source", a.Name()).Err(err).Msg("Adapter failed")
			srcErrors = append(srcErrors, listing.SourceError{
				Source: a.Name(),
				Error:  err.Error(),
			})
			continue
		}
		collected = append(collected, results...)
	}

	deduped, dropped := dedup.Collapse(collected, p.auctionKeys)
	if dropped > 0 {
		p.log.Info().Int("dropped", dropped).Msg("Collapsed auction duplicates")
	}

	newCount := diff.MarkNew(deduped, prevIDs)
	diff.SortByPrice(deduped)

	now := listing.Timestamp(time.Now())
	output := &listing.RunOutput{
		Listings:   deduped,
		LastRun:    now,
		TotalCount: len(deduped),
		NewCount:   newCount,
		Sources:    sourceStats(deduped),
		Errors:     srcErrors,
		History: diff.AppendHistory(previous.History, listing.HistoryEntry{
			Date:     now,
			Total:    len(deduped),
			New:      newCount,
			BySource: sourceCounts(deduped),
		}),
	}
	if output.Errors == nil {
		output.Errors = []listing.SourceError{}
	}

	if err := p.store.Save(output); err != nil {
		return nil, err
	}

	if p.pub != nil && newCount > 0 {
		if err := p.pub.PublishNew(output.Listings); err != nil {
			p.log.Error().Err(err).Msg("Failed to publish new listings")
		}
	}

	p.log.Info().
		Int("total", output.TotalCount).
		Int("new", output.NewCount).
		Int("errors", len(output.Errors)).
		Msg("Run complete")
	return output, nil
}

// sourceStats tallies per-source counts from the collected listings. A
// source that produced nothing and raised no error gets no entry.
func sourceStats(listings []listing.Listing) map[string]listing.SourceStat {
	stats := make(map[string]listing.SourceStat)
	for _, l := range listings {
		s := stats[l.Source]
		s.Count++
		if l.IsNew {
			s.New++
		}
		stats[l.Source] = s
	}
	return stats
}

func sourceCounts(listings []listing.Listing) map[string]int {
	counts := make(map[string]int)
	for _, l := range listings {
		counts[l.Source]++
	}
	return counts
}
