package store

// Queries use ? placeholders; the postgres dialect rebinds them to $n.
const (
	itemColumns = `id, code, description, brand, category, subcategory, active, embedding, embedding_model, updated_ts`

	findByIDRangeQuery = `
		SELECT ` + itemColumns + `
		FROM catalog_item
		WHERE id BETWEEN ? AND ? AND active AND %s
		ORDER BY id ASC
	`

	findByCategoryQuery = `
		SELECT ` + itemColumns + `
		FROM catalog_item
		WHERE category = ? AND active AND %s
		ORDER BY id ASC
	`

	findAllWithEmbeddingsQuery = `
		SELECT ` + itemColumns + `
		FROM catalog_item
		WHERE active AND %s
		ORDER BY id ASC
	`

	findByIDQuery = `
		SELECT ` + itemColumns + `
		FROM catalog_item
		WHERE id = ?
	`

	listQuery = `
		SELECT ` + itemColumns + `
		FROM catalog_item
		WHERE active
		ORDER BY id ASC
		LIMIT ?
	`

	countActiveQuery = `SELECT COUNT(*) FROM catalog_item WHERE active`

	countWithEmbeddingsQuery = `SELECT COUNT(*) FROM catalog_item WHERE active AND %s`

	categoriesQuery = `
		SELECT DISTINCT category
		FROM catalog_item
		WHERE active AND category <> ''
		ORDER BY category ASC
	`

	upsertQuery = `
		INSERT INTO catalog_item (` + itemColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			code = excluded.code,
			description = excluded.description,
			brand = excluded.brand,
			category = excluded.category,
			subcategory = excluded.subcategory,
			active = excluded.active,
			embedding = excluded.embedding,
			embedding_model = excluded.embedding_model,
			updated_ts = excluded.updated_ts
	`
)

var postgresSchema = []string{
	`CREATE EXTENSION IF NOT EXISTS vector`,
	`CREATE TABLE IF NOT EXISTS catalog_item (
		id              BIGINT PRIMARY KEY,
		code            TEXT NOT NULL DEFAULT '',
		description     TEXT NOT NULL DEFAULT '',
		brand           TEXT NOT NULL DEFAULT '',
		category        TEXT NOT NULL DEFAULT '',
		subcategory     TEXT NOT NULL DEFAULT '',
		active          BOOLEAN NOT NULL DEFAULT TRUE,
		embedding       vector,
		embedding_model TEXT NOT NULL DEFAULT '',
		updated_ts      BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_catalog_item_category ON catalog_item (category)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS catalog_item (
		id              INTEGER PRIMARY KEY,
		code            TEXT NOT NULL DEFAULT '',
		description     TEXT NOT NULL DEFAULT '',
		brand           TEXT NOT NULL DEFAULT '',
		category        TEXT NOT NULL DEFAULT '',
		subcategory     TEXT NOT NULL DEFAULT '',
		active          INTEGER NOT NULL DEFAULT 1,
		embedding       TEXT,
		embedding_model TEXT NOT NULL DEFAULT '',
		updated_ts      INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_catalog_item_category ON catalog_item (category)`,
}
