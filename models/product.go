package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is one tracked product as maintained by the CRUD layer.
// The ETL pipeline only reads id, marketplace key and url.
type Product struct {
	ID             uuid.UUID `db:"id" json:"id"`
	MarketplaceKey string    `db:"marketplace_key" json:"marketplace_key"`
	URL            string    `db:"url" json:"url"`
}

// ProductObservation is one parsed snapshot of a product page at a point in
// time. Name, Price and Currency are nil when the corresponding field could
// not be extracted or normalized; a partially filled observation is still a
// successful parse.
type ProductObservation struct {
	MarketplaceKey string    `json:"marketplace_key"`
	SourceURL      string    `json:"source_url"`
	Name           *string   `json:"name,omitempty"`
	Price          *float64  `json:"price,omitempty"`
	Currency       *string   `json:"currency,omitempty"`
	ObservedAt     time.Time `json:"observed_at"`
}

// PriceHistoryRow is one row appended to the parsed_products table per ETL
// run per product. PriceProceeded is nil when price normalization failed;
// such rows are retained as observations of an unreadable price.
type PriceHistoryRow struct {
	ProductID      uuid.UUID `db:"product_id" json:"product_id"`
	PriceProceeded *float64  `db:"price_proceeded" json:"price_proceeded,omitempty"`
	ETLDate        time.Time `db:"etl_date" json:"etl_date"`
}

// PricePoint is one observation of a product's price time series, ordered by
// timestamp. Rows with a nil persisted price are excluded before this point.
type PricePoint struct {
	Timestamp time.Time `db:"etl_date" json:"timestamp"`
	Price     float64   `db:"price_proceeded" json:"price"`
}

// PricePrediction is one forecast produced for a product. Rows are append
// only; they are never mutated after insert.
type PricePrediction struct {
	ProductID      uuid.UUID `db:"product_id" json:"product_id"`
	PredictedPrice float64   `db:"predicted_price" json:"predicted_price"`
	ChangeIndex    float64   `db:"change_index" json:"change_index"`
	ETLDate        time.Time `db:"etl_date" json:"etl_date"`
}
