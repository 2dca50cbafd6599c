package listing

import "time"

// Edition identifies which printing of Birds of America a listing belongs to.
type Edition string

const (
	EditionHavell      Edition = "Havell"
	EditionBien        Edition = "Bien"
	EditionOctavoFirst Edition = "Octavo 1st Ed"
	EditionOctavoLater Edition = "Octavo Later Ed"
	EditionOctavo      Edition = "Octavo"
	EditionUnknown     Edition = "Unknown"
)

// MaxDescriptionLen bounds the description carried on a listing.
const MaxDescriptionLen = 300

// Listing is one normalized print-for-sale record from one source.
type Listing struct {
	ID          string   `json:"id"`
	Source      string   `json:"source"`
	SourceKey   string   `json:"source_key"`
	Title       string   `json:"title"`
	Price       *float64 `json:"price"`
	Currency    string   `json:"currency"`
	URL         string   `json:"url"`
	ImageURL    string   `json:"image_url,omitempty"`
	Available   bool     `json:"available"`
	Edition     Edition  `json:"edition"`
	PlateNumber *int     `json:"plate_number"`
	Description string   `json:"description"`
	ScrapedAt   string   `json:"scraped_at"`
	IsNew       bool     `json:"is_new"`
}

// SetPrice assigns a price only when it is strictly positive.
func (l *Listing) SetPrice(v float64) {
	if v > 0 {
		l.Price = &v
	}
}

// SetPlate assigns a plate number; callers are expected to have validated the
// 1..500 range via classify.ExtractPlateNumber.
func (l *Listing) SetPlate(n int) {
	l.PlateNumber = &n
}

// TruncateDescription bounds the description to MaxDescriptionLen runes.
func TruncateDescription(s string) string {
	runes := []rune(s)
	if len(runes) <= MaxDescriptionLen {
		return s
	}
	return string(runes[:MaxDescriptionLen])
}

// SourceStat is the per-source tally in a RunOutput.
type SourceStat struct {
	Count int `json:"count"`
	New   int `json:"new"`
}

// SourceError records one adapter-level failure without aborting the run.
type SourceError struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

// HistoryEntry summarizes one past run.
type HistoryEntry struct {
	Date     string         `json:"date"`
	Total    int            `json:"total"`
	New      int            `json:"new"`
	BySource map[string]int `json:"by_source"`
}

// MaxHistory is the rolling history cap; the oldest entry is evicted first.
const MaxHistory = 90

// RunOutput is the persisted result of one aggregation run. Its JSON shape is
// fixed for compatibility with previously written state documents.
type RunOutput struct {
	Listings   []Listing             `json:"listings"`
	LastRun    string                `json:"last_run"`
	TotalCount int                   `json:"total_count"`
	NewCount   int                   `json:"new_count"`
	Sources    map[string]SourceStat `json:"sources"`
	Errors     []SourceError         `json:"errors"`
	History    []HistoryEntry        `json:"history"`
}

// PreviousIDs returns the set of listing ids carried in the output, used as
// the baseline for the next run's diff.
func (r *RunOutput) PreviousIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(r.Listings))
	for _, l := range r.Listings {
		ids[l.ID] = struct{}{}
	}
	return ids
}

// Timestamp formats t the way the state document stores times.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
