// Package asset turns product image references into displayable URLs. A
// product never ends up without an image: whenever a reference cannot be
// resolved, a placeholder seeded by the product id is used instead.
package asset

import (
	"context"
	"fmt"
	"strings"

	"github.com/xenking/vera-store/internal/domain/product"
)

// DefaultBaseURL serves the photo references used by the catalogue.
const DefaultBaseURL = "https://images.unsplash.com"

// Resolver returns a displayable image URL for a product. Implementations
// must not fail; they fall back to Fallback(p.ID) instead.
type Resolver interface {
	Resolve(ctx context.Context, p product.Product) string
}

// Fallback returns the deterministic placeholder image for a product id.
func Fallback(id int) string {
	return fmt.Sprintf("https://picsum.photos/seed/vera-%d/800/1000", id)
}

// URLBuilder builds photo URLs from image references.
type URLBuilder struct {
	base string
}

// NewURLBuilder returns a URLBuilder rooted at base. An empty base selects
// DefaultBaseURL.
func NewURLBuilder(base string) URLBuilder {
	if base == "" {
		base = DefaultBaseURL
	}
	return URLBuilder{base: strings.TrimRight(base, "/")}
}

// Build returns the URL for ref, or "" when ref is empty.
func (b URLBuilder) Build(ref string) string {
	if ref == "" {
		return ""
	}
	return b.base + "/photo-" + ref + "?auto=format&fit=crop&w=800&q=80"
}

// StaticResolver resolves references without contacting the asset host.
type StaticResolver struct {
	urls URLBuilder
}

// NewStaticResolver returns a StaticResolver using urls.
func NewStaticResolver(urls URLBuilder) *StaticResolver {
	return &StaticResolver{urls: urls}
}

// Resolve implements Resolver.
func (r *StaticResolver) Resolve(_ context.Context, p product.Product) string {
	if u := r.urls.Build(p.ImageRef); u != "" {
		return u
	}
	return Fallback(p.ID)
}
