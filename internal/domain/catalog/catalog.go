// Package catalog holds the immutable storefront catalogue: its generator,
// the filter engine deriving visible subsets, and a search index used to
// speed up free-text queries.
package catalog

import (
	"context"
	"slices"

	"github.com/go-faster/errors"

	"github.com/xenking/vera-store/internal/domain/product"
)

var _ product.Repository = (*Catalog)(nil)

// Catalog is a fixed, read-only product list. It is safe for concurrent use.
type Catalog struct {
	products []product.Product
	byID     map[int]int
	index    *searchIndex
}

// New validates products and builds a Catalog over them. Ids must be unique.
// The slice is copied; later changes by the caller are not observed.
func New(products []product.Product) (*Catalog, error) {
	c := &Catalog{
		products: slices.Clone(products),
		byID:     make(map[int]int, len(products)),
	}
	for i, p := range c.products {
		if err := p.Validate(); err != nil {
			return nil, errors.Wrapf(err, "product at position %d", i)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, errors.Errorf("duplicate product id %d", p.ID)
		}
		c.byID[p.ID] = i
	}
	c.index = newSearchIndex(c.products)
	return c, nil
}

// Len returns the number of products.
func (c *Catalog) Len() int {
	return len(c.products)
}

// All returns a copy of every product in catalogue order.
func (c *Catalog) All() []product.Product {
	return slices.Clone(c.products)
}

// Get returns the product with the given id.
func (c *Catalog) Get(id int) (product.Product, bool) {
	i, ok := c.byID[id]
	if !ok {
		return product.Product{}, false
	}
	return c.products[i], true
}

// CountByCategory returns the number of products in each real category.
func (c *Catalog) CountByCategory() map[product.Category]int {
	counts := make(map[product.Category]int, len(product.Categories()))
	for _, p := range c.products {
		counts[p.Category]++
	}
	return counts
}

// Filter applies f to the catalogue. Results match Apply exactly; queries of
// three or more bytes consult the search index first to skip products that
// cannot contain the query.
func (c *Catalog) Filter(f Filter) []product.Product {
	q := normalizeQuery(f.Query)
	if len(q) < trigramLen {
		return Apply(c.products, f)
	}

	grams := trigrams(q)
	out := make([]product.Product, 0)
	for i, p := range c.products {
		if !c.index.mayContain(i, grams) {
			continue
		}
		if f.Matches(p) {
			out = append(out, p)
		}
	}
	return out
}

// List implements product.Repository.
func (c *Catalog) List(_ context.Context) ([]product.Product, error) {
	return c.All(), nil
}

// GetByID implements product.Repository.
func (c *Catalog) GetByID(_ context.Context, id int) (*product.Product, error) {
	p, ok := c.Get(id)
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}
