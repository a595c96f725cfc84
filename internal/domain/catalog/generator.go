package catalog

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/vera-store/internal/domain/product"
)

const (
	// DefaultSize is the number of products in a storefront catalogue.
	DefaultSize = 300

	minPrice   = 200
	priceRange = 1500 // prices fall in [200, 1699]
)

var brands = []string{"Elysian", "Nordic", "Auric", "Lunar", "Minimal", "Craft", "Urban", "Modo"}

var types = map[product.Category][]string{
	product.CategoryLivingRoom: {"Sofa", "Armchair", "Coffee Table"},
	product.CategoryBedroom:    {"Bed", "Nightstand", "Dresser"},
	product.CategoryOffice:     {"Desk", "Task Chair", "Bookshelf"},
	product.CategoryDining:     {"Dining Table", "Chair Set", "Sideboard"},
	product.CategoryDecor:      {"Vase", "Mirror", "Sculpture"},
}

// imagePool holds photo identifiers known to resolve for each category.
var imagePool = map[product.Category][]string{
	product.CategoryLivingRoom: {"1555041469-a586c61ea9bc", "1493663284031-b7e3aefcae8e", "1586023492125-27b2c045efd7"},
	product.CategoryBedroom:    {"1505691938895-1758d7feb511", "1540518614846-7eded433c457", "1522771739844-6a9f6d5f14af"},
	product.CategoryOffice:     {"1524758631624-e2822e304c36", "1518455027359-f3f81040a9bb", "1493934558415-9d19f0b2944b"},
	product.CategoryDining:     {"1577145946459-1ff440f5de71", "1617806118233-f8e1801426a1", "1530099486328-2ca21fe76ea8"},
	product.CategoryDecor:      {"1581783898377-1c85bf937427", "1578500484720-6d9b49b4938d", "1519710164239-da123dc03ef4"},
}

var (
	ratingBase = decimal.RequireFromString("4.5")
	ratingSpan = decimal.RequireFromString("0.5")
)

// GeneratorConfig controls catalogue generation.
type GeneratorConfig struct {
	// Size is the number of products. Zero selects DefaultSize.
	Size int
	// Seed makes generation reproducible. Zero derives a seed from the clock.
	Seed uint64
}

// Generate builds a catalogue of cfg.Size products with ids 1..Size.
//
// Category, price and rating are drawn from the seeded source. Brand, type,
// flags and image reference depend only on the id and the drawn category.
func Generate(cfg GeneratorConfig) (*Catalog, error) {
	size := cfg.Size
	if size == 0 {
		size = DefaultSize
	}
	if size < 0 {
		return nil, errors.Errorf("catalog size must be positive, got %d", size)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	cats := product.Categories()
	products := make([]product.Product, 0, size)
	for id := 1; id <= size; id++ {
		category := cats[rng.IntN(len(cats))]
		price := decimal.NewFromInt(int64(minPrice + rng.IntN(priceRange)))
		rating := ratingBase.Add(ratingSpan.Mul(decimal.NewFromFloat(rng.Float64()))).Round(1)

		products = append(products, Build(id, category, price, rating))
	}

	return New(products)
}

// MustGenerate is like Generate but panics on error.
func MustGenerate(cfg GeneratorConfig) *Catalog {
	c, err := Generate(cfg)
	if err != nil {
		panic(err)
	}
	return c
}

// Build assembles the product with the given id and drawn attributes. Every
// other field is derived from id and category.
func Build(id int, category product.Category, price, rating decimal.Decimal) product.Product {
	kinds := types[category]
	pool := imagePool[category]

	var kind, ref string
	if len(kinds) > 0 {
		kind = kinds[id%len(kinds)]
	}
	if len(pool) > 0 {
		ref = pool[id%len(pool)]
	}

	return product.Product{
		ID:       id,
		Category: category,
		Name:     fmt.Sprintf("%s %s #%d", brands[id%len(brands)], kind, id),
		Price:    price,
		Rating:   rating,
		IsNew:    id%5 == 0,
		IsSummer: id%8 == 0,
		ImageRef: ref,
	}
}
