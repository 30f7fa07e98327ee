// Package aggregate merges paginated upstream batches into one
// de-duplicated collection.
package aggregate

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/web3guy0/marketboard/pkg/hashset"
	"github.com/web3guy0/marketboard/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// DEDUPLICATION
// ═══════════════════════════════════════════════════════════════════════════════

// Deduper rejects records whose ID or display title has already been seen.
// A Deduper is not safe for concurrent use; build one per aggregation.
type Deduper struct {
	ids     hashset.Set[string]
	titles  hashset.Set[string]
	skipped int
}

// NewDeduper returns an empty Deduper
func NewDeduper() *Deduper {
	return &Deduper{
		ids:    hashset.NewSet[string](),
		titles: hashset.NewSet[string](),
	}
}

// Accept reports whether a record with this id and title is new, and
// records both keys when it is. Records without an id are always rejected.
func (d *Deduper) Accept(id, title string) bool {
	if id == "" {
		d.skipped++
		return false
	}
	if d.ids.Has(id) || (title != "" && d.titles.Has(title)) {
		d.skipped++
		return false
	}
	d.ids.Set(id)
	if title != "" {
		d.titles.Set(title)
	}
	return true
}

// Skipped is the number of rejected records so far
func (d *Deduper) Skipped() int {
	return d.skipped
}

// Unique is the number of accepted records so far
func (d *Deduper) Unique() int {
	return d.ids.Len()
}

// ═══════════════════════════════════════════════════════════════════════════════
// PAGINATION
// ═══════════════════════════════════════════════════════════════════════════════

const (
	DefaultPageSize = 100
	DefaultMaxPages = 5
)

// Options bounds a pagination run
type Options struct {
	PageSize int
	MaxPages int
}

func (o Options) withDefaults() Options {
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.MaxPages <= 0 {
		o.MaxPages = DefaultMaxPages
	}
	return o
}

// PageFetcher returns the records at offset. A nil slice with ok=false means
// the page was not a list and pagination should stop quietly; an error
// aborts the whole run.
type PageFetcher[T any] func(ctx context.Context, offset, limit int) (records []T, ok bool, err error)

// Paginate pulls pages until one is empty, malformed, or short, or until
// MaxPages have been read.
func Paginate[T any](ctx context.Context, fetch PageFetcher[T], opts Options) ([]T, error) {
	opts = opts.withDefaults()

	var all []T
	for page := 0; page < opts.MaxPages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		offset := page * opts.PageSize
		records, ok, err := fetch(ctx, offset, opts.PageSize)
		if err != nil {
			return nil, fmt.Errorf("page at offset %d: %w", offset, err)
		}
		if !ok || len(records) == 0 {
			log.Debug().Int("offset", offset).Bool("list", ok).Msg("pagination stopped on empty page")
			break
		}

		all = append(all, records...)
		log.Debug().Int("offset", offset).Int("count", len(records)).Msg("page fetched")

		if len(records) < opts.PageSize {
			break
		}
	}
	return all, nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// MERGE
// ═══════════════════════════════════════════════════════════════════════════════

// Result is a merged, filtered, volume-sorted collection
type Result struct {
	Markets []types.Market
	Skipped int
}

// Merge de-duplicates markets in order, keeps the open ones, and sorts by
// volume descending. Ties keep their upstream order.
func Merge(markets []types.Market) Result {
	d := NewDeduper()
	out := make([]types.Market, 0, len(markets))
	for _, m := range markets {
		if !d.Accept(m.ID, dedupTitle(m)) {
			continue
		}
		if !m.Active || m.Closed {
			continue
		}
		out = append(out, m)
	}

	SortByVolume(out)
	return Result{Markets: out, Skipped: d.Skipped()}
}

// SortByVolume orders markets by volume descending in place
func SortByVolume(markets []types.Market) {
	sort.SliceStable(markets, func(i, j int) bool {
		return markets[i].Volume > markets[j].Volume
	})
}

// dedupTitle ignores the placeholder given to untitled records
func dedupTitle(m types.Market) string {
	if m.Title == types.UntitledMarket {
		return ""
	}
	return m.Title
}
