// Package source provides catalog.Source implementations: the local
// JSON file the storefront originally shipped with, and an upstream
// HTTP data endpoint serving the same wire format.
package source

import (
	"context"
	"os"

	"github.com/go-faster/errors"

	"github.com/stitchline/catalog-api/internal/catalog"
	"github.com/stitchline/catalog-api/internal/feed"
)

// File loads the catalog from a products JSON file on disk.
type File struct {
	path string
}

var _ catalog.Source = (*File)(nil)

// NewFile returns a Source reading from path on every Load.
func NewFile(path string) *File {
	return &File{path: path}
}

// Load reads and decodes the entire file.
func (f *File) Load(_ context.Context) ([]catalog.Product, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, errors.Wrap(err, "read products file")
	}
	products, err := feed.DecodeProducts(data)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", f.path)
	}
	return products, nil
}
