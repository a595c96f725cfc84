package main

import (
	"bufio"
	"context"
	"io"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/vera-store/internal/domain/catalog"
	"github.com/xenking/vera-store/internal/domain/product"
)

const (
	gzipBlockSize = 256 << 10
	maxLineBytes  = 64 << 10
)

// writeCatalog encodes products as JSON lines and compresses them into w.
// Encoding and compression run concurrently, joined by a pipe.
func writeCatalog(ctx context.Context, w io.Writer, products []product.Product) error {
	pr, pw := io.Pipe()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		bw := bufio.NewWriter(pw)
		e := jx.GetEncoder()
		defer jx.PutEncoder(e)

		for _, p := range products {
			if err := ctx.Err(); err != nil {
				pw.CloseWithError(err)
				return err
			}
			e.Reset()
			p.Encode(e)
			if _, err := bw.Write(e.Bytes()); err != nil {
				pw.CloseWithError(err)
				return errors.Wrapf(err, "write product %d", p.ID)
			}
			if err := bw.WriteByte('\n'); err != nil {
				pw.CloseWithError(err)
				return err
			}
		}
		if err := bw.Flush(); err != nil {
			pw.CloseWithError(err)
			return errors.Wrap(err, "flush")
		}
		return pw.Close()
	})
	g.Go(func() error {
		gz := pgzip.NewWriter(w)
		if err := gz.SetConcurrency(gzipBlockSize, 4); err != nil {
			pr.CloseWithError(err)
			return errors.Wrap(err, "configure gzip")
		}
		if _, err := io.Copy(gz, pr); err != nil {
			pr.CloseWithError(err)
			return errors.Wrap(err, "compress")
		}
		if err := gz.Close(); err != nil {
			return errors.Wrap(err, "close gzip")
		}
		return nil
	})
	return g.Wait()
}

// readCatalog decompresses r and decodes one product per line.
func readCatalog(ctx context.Context, r io.Reader) ([]product.Product, error) {
	gz, err := pgzip.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "create gzip reader")
	}
	defer func() { _ = gz.Close() }()

	var (
		out  []product.Product
		line int
	)
	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 4096), maxLineBytes)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var p product.Product
		if err := p.Decode(jx.DecodeBytes(scanner.Bytes())); err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		out = append(out, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "scan")
	}
	return out, nil
}

// compare checks that products hold exactly the catalogue's products in order.
func compare(c *catalog.Catalog, products []product.Product) error {
	if len(products) != c.Len() {
		return errors.Errorf("read %d products, want %d", len(products), c.Len())
	}
	for i, got := range products {
		want, ok := c.Get(got.ID)
		if !ok {
			return errors.Errorf("line %d: unknown product %d", i+1, got.ID)
		}
		if got.ID != i+1 {
			return errors.Errorf("line %d: product %d out of order", i+1, got.ID)
		}
		if got.Name != want.Name || got.Category != want.Category ||
			!got.Price.Equal(want.Price) || !got.Rating.Equal(want.Rating) ||
			got.IsNew != want.IsNew || got.IsSummer != want.IsSummer ||
			got.ImageRef != want.ImageRef {
			return errors.Errorf("line %d: product %d differs", i+1, got.ID)
		}
	}
	return nil
}
