package basket

import (
	"fmt"
	"sort"
	"strings"

	"retailcast/pkg/contracts/domain"
)

// Index is an inverted index from item to the transactions that contain it.
// It is read-only after construction and safe for concurrent counting.
type Index struct {
	vocab    []string
	ids      map[string]int
	postings [][]int32
	n        int
	items    int
}

// NewIndex builds the index for a transaction snapshot. Items are trimmed,
// duplicates within a transaction collapse, and item IDs follow the
// lexicographic order of the item identifiers.
func NewIndex(txns []domain.Transaction) (*Index, error) {
	if len(txns) == 0 {
		return nil, fmt.Errorf("no transactions provided: %w", ErrInvalidInput)
	}

	baskets := make([][]string, len(txns))
	seen := make(map[string]struct{})
	for i, txn := range txns {
		if len(txn.Items) == 0 {
			return nil, fmt.Errorf("transaction %d (%q) is empty: %w", i, txn.ID, ErrInvalidInput)
		}
		unique := make(map[string]struct{}, len(txn.Items))
		items := make([]string, 0, len(txn.Items))
		for _, raw := range txn.Items {
			item := strings.TrimSpace(raw)
			if item == "" {
				return nil, fmt.Errorf("transaction %d (%q) has a blank item: %w", i, txn.ID, ErrInvalidInput)
			}
			if _, dup := unique[item]; dup {
				continue
			}
			unique[item] = struct{}{}
			items = append(items, item)
			seen[item] = struct{}{}
		}
		baskets[i] = items
	}

	vocab := make([]string, 0, len(seen))
	for item := range seen {
		vocab = append(vocab, item)
	}
	sort.Strings(vocab)

	idx := &Index{
		vocab:    vocab,
		ids:      make(map[string]int, len(vocab)),
		postings: make([][]int32, len(vocab)),
		n:        len(txns),
	}
	for id, item := range vocab {
		idx.ids[item] = id
	}

	// Transactions are visited in order, so every postings list is sorted.
	for t, items := range baskets {
		for _, item := range items {
			id := idx.ids[item]
			idx.postings[id] = append(idx.postings[id], int32(t))
		}
		idx.items += len(items)
	}

	return idx, nil
}

// Len returns the number of transactions
func (idx *Index) Len() int {
	return idx.n
}

// Vocabulary returns the item identifiers in ID order
func (idx *Index) Vocabulary() []string {
	out := make([]string, len(idx.vocab))
	copy(out, idx.vocab)
	return out
}

// VocabularySize returns the number of distinct items
func (idx *Index) VocabularySize() int {
	return len(idx.vocab)
}

// AvgItemsPerTransaction returns the mean basket size after deduplication
func (idx *Index) AvgItemsPerTransaction() float64 {
	if idx.n == 0 {
		return 0
	}
	return float64(idx.items) / float64(idx.n)
}

// ID returns the dense ID of an item
func (idx *Index) ID(item string) (int, bool) {
	id, ok := idx.ids[item]
	return id, ok
}

// Item returns the identifier for a dense ID
func (idx *Index) Item(id int) string {
	return idx.vocab[id]
}

// Items maps dense IDs back to item identifiers
func (idx *Index) Items(ids []int) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = idx.vocab[id]
	}
	return out
}

// Postings returns the sorted transaction positions containing an item
func (idx *Index) Postings(id int) []int32 {
	return idx.postings[id]
}

// ItemCount returns the number of transactions containing an item
func (idx *Index) ItemCount(id int) int {
	return len(idx.postings[id])
}

// Count returns the number of transactions containing every item in ids.
// Postings are intersected shortest first, so the cost is bounded by the
// smallest list.
func (idx *Index) Count(ids []int) int {
	switch len(ids) {
	case 0:
		return idx.n
	case 1:
		return len(idx.postings[ids[0]])
	}

	lists := make([][]int32, len(ids))
	for i, id := range ids {
		lists[i] = idx.postings[id]
	}
	sort.Slice(lists, func(i, j int) bool { return len(lists[i]) < len(lists[j]) })

	acc := make([]int32, len(lists[0]))
	copy(acc, lists[0])
	for _, list := range lists[1:] {
		acc = intersect(acc, list)
		if len(acc) == 0 {
			return 0
		}
	}
	return len(acc)
}

// intersect keeps the elements of acc present in other, reusing acc's storage
func intersect(acc, other []int32) []int32 {
	out := acc[:0]
	i, j := 0, 0
	for i < len(acc) && j < len(other) {
		switch {
		case acc[i] == other[j]:
			out = append(out, acc[i])
			i++
			j++
		case acc[i] < other[j]:
			i++
		default:
			j++
		}
	}
	return out
}
