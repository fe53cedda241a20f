package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"pcstore/internal/model"
)

const productColumns = `
		SELECT
			p.id, p.name, COALESCE(p.slug, '') AS slug, COALESCE(p.description, '') AS description,
			COALESCE(p.brand, '') AS brand, p.price, p.stock,
			p.category_id, COALESCE(p.subcategory_id, '') AS subcategory_id,
			concat_ws(' > ', c.name, s.name) AS category_path,
			p.specifications, p.created_at, p.updated_at
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		LEFT JOIN categories s ON s.id = p.subcategory_id`

// schema is applied by EnsureSchema when auto-migration is on
var schema = []string{
	`CREATE TABLE IF NOT EXISTS categories (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		slug TEXT NOT NULL DEFAULT '',
		parent_id TEXT REFERENCES categories(id)
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		slug TEXT,
		description TEXT,
		brand TEXT,
		price NUMERIC(12, 2) NOT NULL DEFAULT 0,
		stock INTEGER NOT NULL DEFAULT 0,
		category_id TEXT NOT NULL REFERENCES categories(id),
		subcategory_id TEXT REFERENCES categories(id),
		specifications JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_products_category ON products (category_id)`,
	`CREATE INDEX IF NOT EXISTS idx_products_subcategory ON products (subcategory_id)`,
	`CREATE INDEX IF NOT EXISTS idx_products_price ON products (price)`,
	`CREATE TABLE IF NOT EXISTS assistant_logs (
		id UUID PRIMARY KEY,
		message TEXT NOT NULL,
		intent JSONB,
		preferences JSONB,
		product_ids TEXT[],
		strategies JSONB,
		took_ms BIGINT,
		clicked_product_id TEXT,
		action TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// PostgresRepository handles database operations
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, dsn string, maxConn, maxIdleConn int) (*PostgresRepository, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(maxConn)
	db.SetMaxIdleConns(maxIdleConn)
	db.SetConnMaxLifetime(5 * time.Minute) // Shorter lifetime to avoid stale connections
	db.SetConnMaxIdleTime(2 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{db: db}, nil
}

// NewPostgresRepositoryWithDB wraps an open handle
func NewPostgresRepositoryWithDB(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Close closes the database connection
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

// Ping checks the connection
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// EnsureSchema creates the tables the assistant reads and writes
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// UpsertCategories writes category rows, parents first
func (r *PostgresRepository) UpsertCategories(ctx context.Context, categories []model.Category) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT INTO categories (id, name, slug, parent_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, slug = EXCLUDED.slug, parent_id = EXCLUDED.parent_id
	`
	for _, c := range categories {
		if _, err := tx.ExecContext(ctx, query, c.ID, c.Name, c.Slug, c.ParentID); err != nil {
			return fmt.Errorf("failed to upsert category %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit categories: %w", err)
	}
	return nil
}

// FindByFilter runs the structured filter. Bias terms only order the rows
// unless the filter also has terms.
func (r *PostgresRepository) FindByFilter(ctx context.Context, f model.CatalogFilter, limit int) ([]model.Product, error) {
	query, args := buildFilterQuery(f, limit)
	return r.selectProducts(ctx, "find by filter", query, args...)
}

// FindByCategoryName matches a regex against category and subcategory names
func (r *PostgresRepository) FindByCategoryName(ctx context.Context, pattern string, limit int) ([]model.Product, error) {
	query := productColumns + `
		WHERE c.name ~* $1 OR s.name ~* $1
		ORDER BY p.id
		LIMIT $2`
	return r.selectProducts(ctx, "find by category name", query, pattern, limit)
}

// FindByName matches a regex against product names
func (r *PostgresRepository) FindByName(ctx context.Context, pattern string, limit int) ([]model.Product, error) {
	query := productColumns + `
		WHERE p.name ~* $1
		ORDER BY p.id
		LIMIT $2`
	return r.selectProducts(ctx, "find by name", query, pattern, limit)
}

// FindBySpecKeys returns products having any of the specification keys
func (r *PostgresRepository) FindBySpecKeys(ctx context.Context, keys []string, limit int) ([]model.Product, error) {
	lowered := make([]string, 0, len(keys))
	for _, k := range keys {
		lowered = append(lowered, strings.ToLower(k))
	}

	query := productColumns + `
		WHERE EXISTS (
			SELECT 1 FROM jsonb_object_keys(p.specifications) k WHERE lower(k) = ANY($1)
		)
		ORDER BY p.id
		LIMIT $2`
	return r.selectProducts(ctx, "find by spec keys", query, pq.Array(lowered), limit)
}

// ScanPrefix reads the first n products in id order
func (r *PostgresRepository) ScanPrefix(ctx context.Context, n int) ([]model.Product, error) {
	query := productColumns + `
		ORDER BY p.id
		LIMIT $1`
	return r.selectProducts(ctx, "scan catalog", query, n)
}

// GetProduct retrieves a single product by its ID
func (r *PostgresRepository) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	var product model.Product
	query := productColumns + `
		WHERE p.id = $1`
	if err := r.db.GetContext(ctx, &product, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.WrapError(model.ErrNotFound, "get product", fmt.Errorf("product %s", id))
		}
		return nil, model.WrapError(model.ErrTemporary, "get product", err)
	}
	return &product, nil
}

// ListCategories returns all category rows
func (r *PostgresRepository) ListCategories(ctx context.Context) ([]model.Category, error) {
	var categories []model.Category
	query := `SELECT id, name, slug, parent_id FROM categories ORDER BY id`
	if err := r.db.SelectContext(ctx, &categories, query); err != nil {
		return nil, model.WrapError(model.ErrTemporary, "list categories", err)
	}
	return categories, nil
}

// LogRecommendation logs an answered assistant request
func (r *PostgresRepository) LogRecommendation(ctx context.Context, rec model.RecommendationLog) error {
	intent, err := json.Marshal(rec.Intent)
	if err != nil {
		return fmt.Errorf("failed to encode intent: %w", err)
	}
	prefs, err := json.Marshal(rec.Preferences)
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}
	strategies, err := json.Marshal(rec.Strategies)
	if err != nil {
		return fmt.Errorf("failed to encode strategies: %w", err)
	}

	query := `
		INSERT INTO assistant_logs (id, message, intent, preferences, product_ids, strategies, took_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.db.ExecContext(ctx, query, rec.ID, rec.Message, intent, prefs, pq.Array(rec.ProductIDs), strategies, rec.Took)
	if err != nil {
		return fmt.Errorf("failed to log recommendation: %w", err)
	}
	return nil
}

// LogFeedback logs user feedback/action
func (r *PostgresRepository) LogFeedback(ctx context.Context, recommendationID, productID, action string) error {
	query := `
		UPDATE assistant_logs
		SET clicked_product_id = $2, action = $3
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, recommendationID, productID, action)
	if err != nil {
		return model.WrapError(model.ErrTemporary, "log feedback", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.WrapError(model.ErrNotFound, "log feedback", fmt.Errorf("recommendation %s", recommendationID))
	}
	return nil
}

func (r *PostgresRepository) selectProducts(ctx context.Context, op, query string, args ...interface{}) ([]model.Product, error) {
	var products []model.Product
	if err := r.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	return products, nil
}

// buildFilterQuery renders a CatalogFilter as SQL. Patterns are literal text
// and are escaped before they reach the regex operators.
func buildFilterQuery(f model.CatalogFilter, limit int) (string, []interface{}) {
	whereClauses := []string{"1=1"}
	args := []interface{}{}
	argIndex := 1

	if len(f.CategoryIDs) > 0 {
		whereClauses = append(whereClauses, fmt.Sprintf("(p.category_id = ANY($%d) OR p.subcategory_id = ANY($%d))", argIndex, argIndex))
		args = append(args, pq.Array(f.CategoryIDs))
		argIndex++
	}
	if brand := strings.TrimSpace(f.Brand); brand != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("p.brand ~* $%d", argIndex))
		args = append(args, regexp.QuoteMeta(brand))
		argIndex++
	}
	if f.PriceMax != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("p.price <= $%d", argIndex))
		args = append(args, *f.PriceMax)
		argIndex++
	}

	if len(f.Terms) > 0 {
		var orBlock []string
		for _, t := range append(append([]model.MatchTerm{}, f.Terms...), f.BiasTerms...) {
			if cond, ok := termCondition(t, &args, &argIndex); ok {
				orBlock = append(orBlock, cond)
			}
		}
		if len(orBlock) > 0 {
			whereClauses = append(whereClauses, "("+strings.Join(orBlock, " OR ")+")")
		}
	}

	orderBy := "p.id"
	var biasBlock []string
	for _, t := range f.BiasTerms {
		if cond, ok := termCondition(t, &args, &argIndex); ok {
			biasBlock = append(biasBlock, cond)
		}
	}
	if len(biasBlock) > 0 {
		orderBy = "CASE WHEN " + strings.Join(biasBlock, " OR ") + " THEN 0 ELSE 1 END, p.id"
	}

	query := fmt.Sprintf(`%s
		WHERE %s
		ORDER BY %s
		LIMIT $%d`, productColumns, strings.Join(whereClauses, " AND "), orderBy, argIndex)
	args = append(args, limit)

	return query, args
}

func termCondition(t model.MatchTerm, args *[]interface{}, argIndex *int) (string, bool) {
	pattern := strings.TrimSpace(t.Pattern)
	if pattern == "" {
		return "", false
	}
	escaped := regexp.QuoteMeta(pattern)

	var cond string
	switch t.Field {
	case model.FieldName:
		cond = fmt.Sprintf("p.name ~* $%d", *argIndex)
	case model.FieldDescription:
		cond = fmt.Sprintf("p.description ~* $%d", *argIndex)
	case model.FieldSpec:
		if t.SpecKey == "" {
			return "", false
		}
		cond = fmt.Sprintf(
			"EXISTS (SELECT 1 FROM jsonb_each_text(p.specifications) kv WHERE replace(replace(lower(kv.key), ' ', '_'), '-', '_') = $%d AND kv.value ~* $%d)",
			*argIndex, *argIndex+1)
		*args = append(*args, specKey(t.SpecKey), escaped)
		*argIndex += 2
		return cond, true
	default:
		cond = fmt.Sprintf("(p.name ~* $%d OR p.description ~* $%d OR p.specifications::text ~* $%d)", *argIndex, *argIndex, *argIndex)
	}

	*args = append(*args, escaped)
	*argIndex++
	return cond, true
}

func specKey(k string) string {
	k = strings.ToLower(strings.TrimSpace(k))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(k)
}
