// Package store serves catalog items to the duplicate detector from
// PostgreSQL (pgvector), SQLite or Memgraph.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/agenthands/catalog-dedupe/internal/config"
	"github.com/agenthands/catalog-dedupe/internal/core/model"
	"github.com/agenthands/catalog-dedupe/internal/driver"
)

// ErrNotFound is returned by FindByID for unknown ids.
var ErrNotFound = errors.New("catalog item not found")

// RecordStore is what the detector reads. Every method returns only active
// items that carry a non-empty embedding.
type RecordStore interface {
	// FindByIDRange returns items with fromID <= id <= toID ordered by id.
	FindByIDRange(ctx context.Context, fromID, toID int64) ([]model.CatalogItem, error)
	FindByCategory(ctx context.Context, category string) ([]model.CatalogItem, error)
	FindAllWithEmbeddings(ctx context.Context) ([]model.CatalogItem, error)
}

// Catalog is the full store surface used by the HTTP server and the CLI.
type Catalog interface {
	RecordStore

	// FindByID returns the item whether or not it is active.
	FindByID(ctx context.Context, id int64) (*model.CatalogItem, error)
	// List returns up to limit active items ordered by id, with or without embeddings.
	List(ctx context.Context, limit int) ([]model.CatalogItem, error)
	CountActive(ctx context.Context) (int64, error)
	CountWithEmbeddings(ctx context.Context) (int64, error)
	Categories(ctx context.Context) ([]string, error)
	Upsert(ctx context.Context, items []model.CatalogItem) error
	Migrate(ctx context.Context) error
	Close() error
}

// Open connects the catalog named by cfg.Driver and runs Migrate when
// cfg.Migrate is set.
func Open(ctx context.Context, cfg config.StoreConfig, logger zerolog.Logger) (Catalog, error) {
	var (
		c   Catalog
		err error
	)
	switch cfg.Driver {
	case "postgres":
		c, err = NewPostgres(ctx, cfg.DSN, logger)
	case "sqlite":
		c, err = NewSQLite(ctx, cfg.DSN, logger)
	case "memgraph":
		var d *driver.MemgraphDriver
		d, err = driver.NewMemgraphDriver(ctx, cfg.URI, cfg.User, cfg.Password, logger)
		if err == nil {
			c = NewGraphStore(d, logger)
		}
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Migrate {
		if err := c.Migrate(ctx); err != nil {
			c.Close()
			return nil, err
		}
	}
	return c, nil
}

var (
	_ Catalog = (*SQLStore)(nil)
	_ Catalog = (*GraphStore)(nil)
)
