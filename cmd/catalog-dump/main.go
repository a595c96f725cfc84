// Command catalog-dump generates a catalogue and writes it as gzip-compressed
// JSON lines, one product per line, for fixtures and CDN preloading.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"

	"github.com/xenking/vera-store/internal/domain/catalog"
)

func main() {
	var (
		out    string
		size   int
		seed   uint64
		verify bool
	)

	flag.StringVar(&out, "out", "catalog.jsonl.gz", "output file")
	flag.IntVar(&size, "size", catalog.DefaultSize, "number of products")
	flag.Uint64Var(&seed, "seed", 0, "generator seed, 0 picks one from the clock")
	flag.BoolVar(&verify, "verify", false, "read the file back and compare it with the generated catalogue")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, out, catalog.GeneratorConfig{Size: size, Seed: seed}, verify); err != nil {
		slog.Error("catalog dump failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog dump completed", slog.String("out", out))
}

func run(ctx context.Context, out string, cfg catalog.GeneratorConfig, verify bool) error {
	c, err := catalog.Generate(cfg)
	if err != nil {
		return errors.Wrap(err, "generate catalog")
	}
	slog.Info("catalogue generated", slog.Int("products", c.Len()))

	if err := dumpFile(ctx, out, c); err != nil {
		return err
	}
	if !verify {
		return nil
	}

	slog.Info("verifying dump", slog.String("file", out))
	if err := verifyFile(ctx, out, c); err != nil {
		return errors.Wrap(err, "verify")
	}
	slog.Info("dump verified", slog.Int("products", c.Len()))
	return nil
}

func dumpFile(ctx context.Context, path string, c *catalog.Catalog) (rerr error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer func() {
		if err := f.Close(); err != nil && rerr == nil {
			rerr = errors.Wrapf(err, "close %s", path)
		}
	}()

	if err := writeCatalog(ctx, f, c.All()); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}

func verifyFile(ctx context.Context, path string, c *catalog.Catalog) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	products, err := readCatalog(ctx, f)
	if err != nil {
		return err
	}
	return compare(c, products)
}
