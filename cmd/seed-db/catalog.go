package main

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/shop-api/internal/domain/product"
)

// readCatalogs decodes every catalog file concurrently and returns the
// products in file order.
func readCatalogs(ctx context.Context, paths []string) ([]product.CreateRequest, error) {
	results := make([][]product.CreateRequest, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			items, err := readCatalogFile(ctx, path)
			if err != nil {
				return errors.Wrapf(err, "read catalog %s", path)
			}
			results[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []product.CreateRequest
	for _, items := range results {
		all = append(all, items...)
	}
	return all, nil
}

// readCatalogFile opens path, transparently decompressing .gz files.
func readCatalogFile(ctx context.Context, path string) ([]product.CreateRequest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if filepath.Ext(path) == ".gz" {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "create gzip reader")
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}
	return decodeCatalog(ctx, r)
}

// decodeCatalog reads a JSON array of products:
//
//	[{"name": "Mug", "description": "...", "price": "9.99", "stock": 10}]
func decodeCatalog(ctx context.Context, r io.Reader) ([]product.CreateRequest, error) {
	var items []product.CreateRequest
	d := jx.Decode(r, 4096)
	err := d.Arr(func(d *jx.Decoder) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		item, err := decodeProduct(d)
		if err != nil {
			return errors.Wrapf(err, "product #%d", len(items)+1)
		}
		items = append(items, item)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func decodeProduct(d *jx.Decoder) (product.CreateRequest, error) {
	var (
		req      product.CreateRequest
		hasPrice bool
	)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "name":
			v, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "name")
			}
			req.Name = v
		case "description":
			if d.Next() == jx.Null {
				return d.Null()
			}
			v, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "description")
			}
			req.Description = &v
		case "price":
			v, err := decodePrice(d)
			if err != nil {
				return errors.Wrap(err, "price")
			}
			req.Price = v
			hasPrice = true
		case "stock":
			v, err := d.Int()
			if err != nil {
				return errors.Wrap(err, "stock")
			}
			req.Stock = v
		default:
			return d.Skip()
		}
		return nil
	})
	if err != nil {
		return req, err
	}
	if req.Name == "" {
		return req, errors.New("name is required")
	}
	if !hasPrice {
		return req, errors.New("price is required")
	}
	return req, nil
}

// decodePrice accepts both 12.5 and "12.50".
func decodePrice(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromString(s)
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromString(string(n))
	default:
		return decimal.Decimal{}, errors.Errorf("unexpected %s", d.Next())
	}
}
