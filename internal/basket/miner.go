package basket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"retailcast/pkg/contracts/domain"
)

// Default mining limits
const (
	DefaultMaxItemsetSize        = 5
	DefaultMaxCandidatesPerLevel = 200000
	DefaultMaxFrequentItemsets   = 500000
	DefaultMiningTimeout         = 30 * time.Second
	DefaultMaxWorkers            = 4

	// minShardSize keeps small levels on a single goroutine
	minShardSize = 256
	// supportEpsilon absorbs float error when converting a support fraction to a count
	supportEpsilon = 1e-9
)

// Options bounds the work a single mining run may perform
type Options struct {
	MaxItemsetSize        int
	MaxCandidatesPerLevel int
	MaxFrequentItemsets   int
	Timeout               time.Duration
	MaxWorkers            int
}

// DefaultOptions returns the default mining limits
func DefaultOptions() Options {
	return Options{
		MaxItemsetSize:        DefaultMaxItemsetSize,
		MaxCandidatesPerLevel: DefaultMaxCandidatesPerLevel,
		MaxFrequentItemsets:   DefaultMaxFrequentItemsets,
		Timeout:               DefaultMiningTimeout,
		MaxWorkers:            DefaultMaxWorkers,
	}
}

// withDefaults replaces non-positive fields with defaults
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxItemsetSize <= 0 {
		o.MaxItemsetSize = d.MaxItemsetSize
	}
	if o.MaxCandidatesPerLevel <= 0 {
		o.MaxCandidatesPerLevel = d.MaxCandidatesPerLevel
	}
	if o.MaxFrequentItemsets <= 0 {
		o.MaxFrequentItemsets = d.MaxFrequentItemsets
	}
	if o.Timeout <= 0 {
		o.Timeout = d.Timeout
	}
	if o.MaxWorkers <= 0 {
		o.MaxWorkers = d.MaxWorkers
	}
	return o
}

// FrequentSet is a frequent itemset in dense-ID form
type FrequentSet struct {
	IDs   []int
	Count int
}

// MiningResult holds every frequent itemset found in one run
type MiningResult struct {
	index      *Index
	minSupport float64
	minCount   int
	levels     [][]FrequentSet
	counts     map[string]int
}

// Total returns the number of transactions mined
func (r *MiningResult) Total() int {
	return r.index.Len()
}

// Index returns the index the result was mined from
func (r *MiningResult) Index() *Index {
	return r.index
}

// MinSupport returns the support threshold used
func (r *MiningResult) MinSupport() float64 {
	return r.minSupport
}

// MinCount returns the support threshold as a transaction count
func (r *MiningResult) MinCount() int {
	return r.minCount
}

// Levels returns the frequent itemsets grouped by size, level k at index k-1
func (r *MiningResult) Levels() [][]FrequentSet {
	return r.levels
}

// Len returns the total number of frequent itemsets
func (r *MiningResult) Len() int {
	total := 0
	for _, level := range r.levels {
		total += len(level)
	}
	return total
}

// MaxSize returns the size of the largest frequent itemset
func (r *MiningResult) MaxSize() int {
	return len(r.levels)
}

// IsFrequent reports whether ids (sorted) is a frequent itemset
func (r *MiningResult) IsFrequent(ids []int) bool {
	_, ok := r.counts[setKey(ids)]
	return ok
}

// Count returns the support count of a sorted ID set, falling back to the
// index for sets that were not recorded as frequent
func (r *MiningResult) Count(ids []int) int {
	if c, ok := r.counts[setKey(ids)]; ok {
		return c
	}
	return r.index.Count(ids)
}

// Support returns the support fraction of a sorted ID set
func (r *MiningResult) Support(ids []int) float64 {
	return float64(r.Count(ids)) / float64(r.Total())
}

// Itemsets returns the frequent itemsets ordered by size ascending, support
// count descending, then item identifiers
func (r *MiningResult) Itemsets() []domain.ItemSet {
	out := make([]domain.ItemSet, 0, r.Len())
	n := float64(r.Total())
	for _, level := range r.levels {
		sorted := make([]FrequentSet, len(level))
		copy(sorted, level)
		sort.SliceStable(sorted, func(i, j int) bool {
			if sorted[i].Count != sorted[j].Count {
				return sorted[i].Count > sorted[j].Count
			}
			return lessIDs(sorted[i].IDs, sorted[j].IDs)
		})
		for _, fs := range sorted {
			out = append(out, domain.ItemSet{
				Items:   r.index.Items(fs.IDs),
				Support: float64(fs.Count) / n,
				Count:   fs.Count,
			})
		}
	}
	return out
}

// Miner enumerates frequent itemsets level by level
type Miner struct {
	opts   Options
	logger *slog.Logger
}

// NewMiner creates a miner with the given limits
func NewMiner(opts Options, logger *slog.Logger) *Miner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Miner{
		opts:   opts.withDefaults(),
		logger: logger.With(slog.String("component", "apriori_miner")),
	}
}

// MinCountFor converts a support fraction into a minimum transaction count
func MinCountFor(minSupport float64, n int) int {
	c := int(math.Ceil(minSupport*float64(n) - supportEpsilon))
	if c < 1 {
		c = 1
	}
	return c
}

// Mine finds every itemset whose support is at least minSupport. An empty
// result is a success.
func (m *Miner) Mine(ctx context.Context, idx *Index, minSupport float64) (*MiningResult, error) {
	if idx == nil || idx.Len() == 0 {
		return nil, fmt.Errorf("empty transaction index: %w", ErrInvalidInput)
	}
	if math.IsNaN(minSupport) || minSupport <= 0 || minSupport > 1 {
		return nil, fmt.Errorf("min_support %.6f outside (0, 1]: %w", minSupport, ErrInvalidInput)
	}

	start := time.Now()
	mineCtx, cancel := context.WithTimeout(ctx, m.opts.Timeout)
	defer cancel()

	result := &MiningResult{
		index:      idx,
		minSupport: minSupport,
		minCount:   MinCountFor(minSupport, idx.Len()),
		counts:     make(map[string]int),
	}

	m.logger.DebugContext(ctx, "starting apriori",
		slog.Float64("min_support", minSupport),
		slog.Int("min_count", result.minCount),
		slog.Int("transactions", idx.Len()),
		slog.Int("vocabulary", idx.VocabularySize()),
	)

	level := make([]FrequentSet, 0)
	for id := 0; id < idx.VocabularySize(); id++ {
		if c := idx.ItemCount(id); c >= result.minCount {
			level = append(level, FrequentSet{IDs: []int{id}, Count: c})
		}
	}

	for k := 1; len(level) > 0; k++ {
		if err := result.add(level, m.opts.MaxFrequentItemsets); err != nil {
			return nil, err
		}
		m.logger.DebugContext(ctx, "level complete",
			slog.Int("level", k),
			slog.Int("frequent", len(level)),
		)

		if k >= m.opts.MaxItemsetSize {
			break
		}

		candidates, err := m.generateCandidates(mineCtx, level, result)
		if err != nil {
			return nil, err
		}
		if len(candidates) == 0 {
			break
		}

		counts, err := m.countCandidates(mineCtx, idx, candidates)
		if err != nil {
			return nil, err
		}

		next := make([]FrequentSet, 0, len(candidates)/2)
		for i, cand := range candidates {
			if counts[i] >= result.minCount {
				next = append(next, FrequentSet{IDs: cand, Count: counts[i]})
			}
		}
		level = next
	}

	m.logger.InfoContext(ctx, "apriori completed",
		slog.Float64("min_support", minSupport),
		slog.Int("frequent_itemsets", result.Len()),
		slog.Int("max_size", result.MaxSize()),
		slog.Duration("duration", time.Since(start)),
	)

	return result, nil
}

// add records a level and enforces the total itemset ceiling
func (r *MiningResult) add(level []FrequentSet, limit int) error {
	if r.Len()+len(level) > limit {
		return fmt.Errorf("%d frequent itemsets exceed the limit of %d, %s: %w",
			r.Len()+len(level), limit, resourceGuidance, ErrResourceLimitExceeded)
	}
	for _, fs := range level {
		r.counts[setKey(fs.IDs)] = fs.Count
	}
	r.levels = append(r.levels, level)
	return nil
}

// generateCandidates joins itemsets sharing a (k-1)-prefix and prunes any
// candidate with an infrequent k-subset. Level input is sorted, so the
// output is sorted and duplicate-free.
func (m *Miner) generateCandidates(ctx context.Context, level []FrequentSet, result *MiningResult) ([][]int, error) {
	k := len(level[0].IDs)
	var candidates [][]int
	subset := make([]int, k)
	pruned := 0

	for i := 0; i < len(level); i++ {
		if i%minShardSize == 0 {
			if err := checkDeadline(ctx); err != nil {
				return nil, err
			}
		}
		a := level[i].IDs
		for j := i + 1; j < len(level); j++ {
			b := level[j].IDs
			if !samePrefix(a, b, k-1) {
				break
			}

			cand := make([]int, k+1)
			copy(cand, a)
			cand[k] = b[k-1]

			// Dropping either of the last two items yields a or b, so only
			// the earlier positions need checking.
			frequent := true
			for skip := 0; skip < k-1; skip++ {
				subset = subset[:0]
				subset = append(subset, cand[:skip]...)
				subset = append(subset, cand[skip+1:]...)
				if !result.IsFrequent(subset) {
					frequent = false
					break
				}
			}
			if !frequent {
				pruned++
				continue
			}

			candidates = append(candidates, cand)
			if len(candidates) > m.opts.MaxCandidatesPerLevel {
				return nil, fmt.Errorf("more than %d candidates of size %d, %s: %w",
					m.opts.MaxCandidatesPerLevel, k+1, resourceGuidance, ErrResourceLimitExceeded)
			}
		}
	}

	m.logger.DebugContext(ctx, "generated candidates",
		slog.Int("size", k+1),
		slog.Int("candidates", len(candidates)),
		slog.Int("pruned", pruned),
	)
	return candidates, nil
}

// countCandidates counts support for each candidate, sharding the work
// across workers. Each worker owns a disjoint range of the output slice.
func (m *Miner) countCandidates(ctx context.Context, idx *Index, candidates [][]int) ([]int, error) {
	counts := make([]int, len(candidates))

	workers := m.opts.MaxWorkers
	if shards := (len(candidates) + minShardSize - 1) / minShardSize; shards < workers {
		workers = shards
	}
	if workers < 1 {
		workers = 1
	}
	chunk := (len(candidates) + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for lo := 0; lo < len(candidates); lo += chunk {
		lo, hi := lo, lo+chunk
		if hi > len(candidates) {
			hi = len(candidates)
		}
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if (i-lo)%minShardSize == 0 {
					if err := checkDeadline(gctx); err != nil {
						return err
					}
				}
				counts[i] = idx.Count(candidates[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return counts, nil
}

// checkDeadline converts context expiry into a resource limit error
func checkDeadline(ctx context.Context) error {
	err := ctx.Err()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("mining time limit exceeded, %s: %w", resourceGuidance, ErrResourceLimitExceeded)
	default:
		return fmt.Errorf("mining cancelled: %w", err)
	}
}

func samePrefix(a, b []int, n int) bool {
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func lessIDs(a, b []int) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

// setKey encodes a sorted ID set as a map key
func setKey(ids []int) string {
	var b strings.Builder
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(id))
	}
	return b.String()
}
