package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/pricewatch/pricewatch/models"
)

// ProductRepository defines the data access the pipelines need: paged reads
// over tracked products and append-only bulk writes of observations and
// predictions.
type ProductRepository interface {
	ListProductsPage(ctx context.Context, limit, offset int) ([]models.Product, error)
	ListProductIDsPage(ctx context.Context, limit, offset int) ([]uuid.UUID, error)
	FetchPriceHistory(ctx context.Context, productID uuid.UUID) ([]models.PricePoint, error)
	InsertPriceHistory(ctx context.Context, rows []models.PriceHistoryRow) error
	InsertPredictions(ctx context.Context, rows []models.PricePrediction) error
}

type productRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewProductRepository creates a Postgres-backed product repository.
func NewProductRepository(db *sqlx.DB, logger *zap.Logger) ProductRepository {
	return &productRepository{db: db, logger: logger}
}

// ListProductsPage retrieves one bounded page of tracked products, ordered by
// id so successive pages cover the table exactly once.
func (r *productRepository) ListProductsPage(ctx context.Context, limit, offset int) ([]models.Product, error) {
	query := `SELECT id, marketplace_key, url FROM products ORDER BY id LIMIT $1 OFFSET $2`

	var products []models.Product
	err := r.db.SelectContext(ctx, &products, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list products page", zap.Error(err), zap.Int("offset", offset))
		return nil, fmt.Errorf("failed to list products page: %w", err)
	}

	return products, nil
}

// ListProductIDsPage retrieves one bounded page of product ids.
func (r *productRepository) ListProductIDsPage(ctx context.Context, limit, offset int) ([]uuid.UUID, error) {
	query := `SELECT id FROM products ORDER BY id LIMIT $1 OFFSET $2`

	var ids []uuid.UUID
	err := r.db.SelectContext(ctx, &ids, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list product ids page", zap.Error(err), zap.Int("offset", offset))
		return nil, fmt.Errorf("failed to list product ids page: %w", err)
	}

	return ids, nil
}

// FetchPriceHistory retrieves a product's persisted price observations
// ordered by time, excluding rows whose price never normalized.
func (r *productRepository) FetchPriceHistory(ctx context.Context, productID uuid.UUID) ([]models.PricePoint, error) {
	query := `SELECT etl_date, price_proceeded
		FROM parsed_products
		WHERE product_id = $1 AND price_proceeded IS NOT NULL
		ORDER BY etl_date`

	var points []models.PricePoint
	err := r.db.SelectContext(ctx, &points, query, productID)
	if err != nil {
		r.logger.Error("Failed to fetch price history",
			zap.Error(err), zap.String("product_id", productID.String()))
		return nil, fmt.Errorf("failed to fetch price history: %w", err)
	}

	return points, nil
}

// InsertPriceHistory appends one page's observations in a single statement.
func (r *productRepository) InsertPriceHistory(ctx context.Context, rows []models.PriceHistoryRow) error {
	if len(rows) == 0 {
		return fmt.Errorf("refusing to insert an empty price history batch")
	}

	query := `INSERT INTO parsed_products (product_id, price_proceeded, etl_date)
		VALUES (:product_id, :price_proceeded, :etl_date)`

	if _, err := r.db.NamedExecContext(ctx, query, rows); err != nil {
		r.logger.Error("Failed to bulk insert price history", zap.Error(err), zap.Int("rows", len(rows)))
		return fmt.Errorf("failed to bulk insert price history: %w", err)
	}

	return nil
}

// InsertPredictions appends one page's predictions in a single statement.
func (r *productRepository) InsertPredictions(ctx context.Context, rows []models.PricePrediction) error {
	if len(rows) == 0 {
		return fmt.Errorf("refusing to insert an empty predictions batch")
	}

	query := `INSERT INTO product_price_predictions (product_id, predicted_price, change_index, etl_date)
		VALUES (:product_id, :predicted_price, :change_index, :etl_date)`

	if _, err := r.db.NamedExecContext(ctx, query, rows); err != nil {
		r.logger.Error("Failed to bulk insert predictions", zap.Error(err), zap.Int("rows", len(rows)))
		return fmt.Errorf("failed to bulk insert predictions: %w", err)
	}

	return nil
}
