package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// SQL drivers.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/agenthands/catalog-dedupe/internal/core/model"
)

// SQLStore serves the catalog from a catalog_item table in PostgreSQL
// (embeddings as pgvector) or SQLite (embeddings as JSON text).
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	logger  zerolog.Logger
}

func NewPostgres(ctx context.Context, dsn string, logger zerolog.Logger) (*SQLStore, error) {
	s, err := openSQL(ctx, postgresDialect, dsn, logger)
	if err != nil {
		return nil, err
	}
	s.db.SetMaxOpenConns(10)
	s.db.SetMaxIdleConns(2)
	s.db.SetConnMaxLifetime(2 * time.Hour)
	s.db.SetConnMaxIdleTime(15 * time.Minute)
	return s, nil
}

// NewSQLite opens a SQLite database. ":memory:" is accepted; the pool is
// limited to one connection so every query sees the same database.
func NewSQLite(ctx context.Context, dsn string, logger zerolog.Logger) (*SQLStore, error) {
	s, err := openSQL(ctx, sqliteDialect, dsn, logger)
	if err != nil {
		return nil, err
	}
	s.db.SetMaxOpenConns(1)
	return s, nil
}

func openSQL(ctx context.Context, d dialect, dsn string, logger zerolog.Logger) (*SQLStore, error) {
	db, err := sql.Open(d.driverName, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s database", d.driverName)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "failed to ping %s database", d.driverName)
	}

	logger = logger.With().Str("component", "store").Str("driver", d.driverName).Logger()
	logger.Info().Msg("connected to catalog database")

	return &SQLStore{db: db, dialect: d, logger: logger}, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Migrate creates the catalog_item table and its indexes if missing.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "failed to migrate catalog schema")
		}
	}
	s.logger.Info().Msg("catalog schema ready")
	return nil
}

func (s *SQLStore) FindByIDRange(ctx context.Context, fromID, toID int64) ([]model.CatalogItem, error) {
	items, err := s.queryItems(ctx, s.withEmbedding(findByIDRangeQuery), fromID, toID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to find items in range %d..%d", fromID, toID)
	}
	return items, nil
}

func (s *SQLStore) FindByCategory(ctx context.Context, category string) ([]model.CatalogItem, error) {
	items, err := s.queryItems(ctx, s.withEmbedding(findByCategoryQuery), category)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to find items in category %q", category)
	}
	return items, nil
}

func (s *SQLStore) FindAllWithEmbeddings(ctx context.Context) ([]model.CatalogItem, error) {
	items, err := s.queryItems(ctx, s.withEmbedding(findAllWithEmbeddingsQuery))
	if err != nil {
		return nil, errors.Wrap(err, "failed to load items with embeddings")
	}
	return items, nil
}

func (s *SQLStore) FindByID(ctx context.Context, id int64) (*model.CatalogItem, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.rebind(findByIDQuery), id)
	item, err := s.scanItem(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to find item %d", id)
	}
	return &item, nil
}

func (s *SQLStore) List(ctx context.Context, limit int) ([]model.CatalogItem, error) {
	items, err := s.queryItems(ctx, listQuery, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list items")
	}
	return items, nil
}

func (s *SQLStore) CountActive(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, countActiveQuery).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "failed to count active items")
	}
	return n, nil
}

func (s *SQLStore) CountWithEmbeddings(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, s.withEmbedding(countWithEmbeddingsQuery)).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "failed to count items with embeddings")
	}
	return n, nil
}

func (s *SQLStore) Categories(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, categoriesQuery)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list categories")
	}
	defer rows.Close()

	categories := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, errors.Wrap(err, "failed to scan category")
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// Upsert inserts or replaces items by id in one transaction.
func (s *SQLStore) Upsert(ctx context.Context, items []model.CatalogItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin upsert")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.dialect.rebind(upsertQuery))
	if err != nil {
		return errors.Wrap(err, "failed to prepare upsert")
	}
	defer stmt.Close()

	now := time.Now()
	for _, item := range items {
		vec, err := s.dialect.encodeVector(item.Embedding)
		if err != nil {
			return errors.Wrapf(err, "failed to encode embedding of item %d", item.ID)
		}
		updated := item.UpdatedAt
		if updated.IsZero() {
			updated = now
		}
		_, err = stmt.ExecContext(ctx,
			item.ID,
			item.Code,
			item.Description,
			item.Brand,
			item.Category,
			item.Subcategory,
			item.Active,
			vec,
			item.EmbeddingModel,
			updated.Unix(),
		)
		if err != nil {
			return errors.Wrapf(err, "failed to upsert item %d", item.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit upsert")
	}
	s.logger.Debug().Int("items", len(items)).Msg("upserted catalog items")
	return nil
}

func (s *SQLStore) withEmbedding(query string) string {
	return fmt.Sprintf(query, s.dialect.hasEmbedding)
}

func (s *SQLStore) queryItems(ctx context.Context, query string, args ...any) ([]model.CatalogItem, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []model.CatalogItem{}
	for rows.Next() {
		item, err := s.scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *SQLStore) scanItem(row rowScanner) (model.CatalogItem, error) {
	var (
		item      model.CatalogItem
		updatedTs int64
	)
	vec := s.dialect.newVector()
	err := row.Scan(
		&item.ID,
		&item.Code,
		&item.Description,
		&item.Brand,
		&item.Category,
		&item.Subcategory,
		&item.Active,
		vec,
		&item.EmbeddingModel,
		&updatedTs,
	)
	if err != nil {
		return item, err
	}
	item.Embedding = vec.Slice()
	if updatedTs > 0 {
		item.UpdatedAt = time.Unix(updatedTs, 0).UTC()
	}
	return item, nil
}
