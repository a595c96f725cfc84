package catalog

import (
	"strings"

	"github.com/bits-and-blooms/bloom/v3"

	"github.com/xenking/vera-store/internal/domain/product"
)

const (
	trigramLen = 3

	// Names are short, so a small per-product filter keeps false positives
	// low without much memory.
	indexCapacity = 64
	indexFPR      = 0.01
)

// searchIndex keeps one bloom filter of lowercase name trigrams per product.
// A negative answer proves a query cannot match; a positive one still needs
// the exact substring check.
type searchIndex struct {
	filters []*bloom.BloomFilter
}

func newSearchIndex(products []product.Product) *searchIndex {
	idx := &searchIndex{filters: make([]*bloom.BloomFilter, len(products))}
	for i, p := range products {
		f := bloom.NewWithEstimates(indexCapacity, indexFPR)
		for _, g := range trigrams(strings.ToLower(p.Name)) {
			f.AddString(g)
		}
		idx.filters[i] = f
	}
	return idx
}

// mayContain reports whether product i might contain every gram.
func (idx *searchIndex) mayContain(i int, grams []string) bool {
	f := idx.filters[i]
	for _, g := range grams {
		if !f.TestString(g) {
			return false
		}
	}
	return true
}

// trigrams splits s into overlapping byte trigrams.
func trigrams(s string) []string {
	if len(s) < trigramLen {
		return nil
	}
	out := make([]string, 0, len(s)-trigramLen+1)
	for i := 0; i+trigramLen <= len(s); i++ {
		out = append(out, s[i:i+trigramLen])
	}
	return out
}
