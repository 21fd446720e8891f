package forecast

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pricewatch/pricewatch/models"
	"github.com/pricewatch/pricewatch/pkg/metrics"
	"github.com/pricewatch/pricewatch/pkg/repository"
)

const (
	// MinHistoryPoints is the least price history a product needs before a
	// prediction is attempted.
	MinHistoryPoints = 5

	ridgeAlpha = 1.0
	cvSplits   = 3

	MetricProductsPredicted = "forecast_products_predicted"
	MetricProductsSkipped   = "forecast_products_skipped"
)

// Options configures one forecasting pipeline.
type Options struct {
	PageSize int
}

// Pipeline trains a per-product price regression over the persisted history
// and appends a one-step-ahead prediction with a percentage change index.
type Pipeline struct {
	repo      repository.ProductRepository
	pageSize  int
	collector metrics.Collector
	logger    *zap.Logger
}

func NewPipeline(repo repository.ProductRepository, opts Options,
	collector metrics.Collector, logger *zap.Logger) *Pipeline {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 1000
	}
	return &Pipeline{
		repo:      repo,
		pageSize:  pageSize,
		collector: collector,
		logger:    logger,
	}
}

// Run forecasts every product with sufficient history, horizonDays ahead of
// its last observation. Products with too little or degenerate history are
// skipped; only storage failures abort the run.
func (p *Pipeline) Run(ctx context.Context, horizonDays int) error {
	started := time.Now()
	p.collector.Reset()

	now := time.Now().UTC()

	for offset := 0; ; offset += p.pageSize {
		ids, err := p.repo.ListProductIDsPage(ctx, p.pageSize, offset)
		if err != nil {
			return fmt.Errorf("forecast: failed to read product ids at offset %d: %w", offset, err)
		}
		if len(ids) == 0 {
			break
		}

		predictions := make([]models.PricePrediction, 0, len(ids))
		for _, id := range ids {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			prediction, err := p.forecastProduct(ctx, id, horizonDays, now)
			if err != nil {
				return err
			}
			if prediction == nil {
				p.collector.IncrementCounter(MetricProductsSkipped, 1)
				continue
			}
			predictions = append(predictions, *prediction)
			p.collector.IncrementCounter(MetricProductsPredicted, 1)
		}

		if len(predictions) == 0 {
			p.logger.Warn("Page yielded no predictions, skipping insert", zap.Int("offset", offset))
		} else {
			if err := p.repo.InsertPredictions(ctx, predictions); err != nil {
				return fmt.Errorf("forecast: failed to insert predictions at offset %d: %w", offset, err)
			}
			p.logger.Info("Inserted predictions for batch",
				zap.Int("count", len(predictions)),
				zap.Time("etl_date", now))
		}

		if len(ids) < p.pageSize {
			break
		}
	}

	counters := p.collector.Counters()
	p.logger.Info("Forecast run finished",
		zap.Float64("predicted", counters[MetricProductsPredicted]),
		zap.Float64("skipped", counters[MetricProductsSkipped]),
		zap.Duration("took", time.Since(started)))

	return nil
}

// forecastProduct returns nil without error when the product should be
// skipped. Storage failures propagate; everything else is recoverable.
func (p *Pipeline) forecastProduct(ctx context.Context, id uuid.UUID,
	horizonDays int, runDate time.Time) (*models.PricePrediction, error) {
	history, err := p.repo.FetchPriceHistory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("forecast: failed to fetch history for product %s: %w", id, err)
	}
	if len(history) < MinHistoryPoints {
		return nil, nil
	}

	clean := removeOutliers(history)
	rows := engineerFeatures(clean)
	if len(rows) < cvSplits+1 {
		p.logger.Warn("Not enough usable history after cleaning, skipping product",
			zap.String("product_id", id.String()),
			zap.Int("rows", len(rows)))
		return nil, nil
	}

	p.evaluateModels(id, rows)

	// Cross-validation scores are diagnostic only; the ridge model is always
	// the one retrained on the full history and used for prediction.
	coef, err := fitLinear(rows, ridgeAlpha)
	if err != nil {
		p.logger.Warn("Failed to fit ridge model, skipping product",
			zap.String("product_id", id.String()),
			zap.Error(err))
		return nil, nil
	}

	last := clean[len(clean)-1]
	if last.Price == 0 {
		p.logger.Error("Last observed price is zero, change index undefined, skipping product",
			zap.String("product_id", id.String()))
		return nil, nil
	}

	future := last.Timestamp.AddDate(0, 0, horizonDays)
	futureRow := featureRow{
		T:    daysBetween(clean[0].Timestamp, future),
		DOW:  mondayIndexedWeekday(future),
		Lag1: last.Price,
		MA7:  trailingWeekMean(clean),
	}

	predicted := predict(coef, futureRow)
	changeIndex := (predicted - last.Price) / last.Price * 100

	return &models.PricePrediction{
		ProductID:      id,
		PredictedPrice: predicted,
		ChangeIndex:    changeIndex,
		ETLDate:        runDate,
	}, nil
}

// trailingWeekMean averages the prices observed within the seven days before
// (and including) the last observation.
func trailingWeekMean(points []models.PricePoint) float64 {
	last := points[len(points)-1].Timestamp
	cutoff := last.AddDate(0, 0, -7)
	var sum float64
	var count int
	for _, pt := range points {
		if pt.Timestamp.After(cutoff) {
			sum += pt.Price
			count++
		}
	}
	if count == 0 {
		return points[len(points)-1].Price
	}
	return sum / float64(count)
}

// evaluateModels scores OLS against ridge with forward-chaining cross
// validation and logs the averaged errors. The comparison does not influence
// which model serves the prediction.
func (p *Pipeline) evaluateModels(id uuid.UUID, rows []featureRow) {
	candidates := []struct {
		name  string
		alpha float64
	}{
		{"OLS", 0},
		{"Ridge", ridgeAlpha},
	}

	for _, candidate := range candidates {
		mae, rmse, folds := crossValidate(rows, candidate.alpha)
		if folds == 0 {
			p.logger.Debug("Cross-validation produced no scorable folds",
				zap.String("product_id", id.String()),
				zap.String("model", candidate.name))
			continue
		}
		p.logger.Info("Model evaluation",
			zap.String("product_id", id.String()),
			zap.String("model", candidate.name),
			zap.Float64("mae", mae),
			zap.Float64("rmse", rmse),
			zap.Int("folds", folds))
	}
}

// crossValidate averages MAE and RMSE over time-respecting folds: each test
// fold strictly follows its training data, never shuffled. Folds whose
// training slice cannot be fitted are skipped.
func crossValidate(rows []featureRow, alpha float64) (mae, rmse float64, folds int) {
	n := len(rows)
	testSize := n / (cvSplits + 1)
	if testSize == 0 {
		return 0, 0, 0
	}

	var maeSum, rmseSum float64
	for i := 0; i < cvSplits; i++ {
		trainEnd := n - (cvSplits-i)*testSize
		testEnd := trainEnd + testSize
		if trainEnd < 1 {
			continue
		}

		coef, err := fitLinear(rows[:trainEnd], alpha)
		if err != nil {
			continue
		}

		actual := make([]float64, 0, testSize)
		predicted := make([]float64, 0, testSize)
		for _, row := range rows[trainEnd:testEnd] {
			actual = append(actual, row.Price)
			predicted = append(predicted, predict(coef, row))
		}

		maeSum += meanAbsoluteError(actual, predicted)
		rmseSum += rootMeanSquaredError(actual, predicted)
		folds++
	}

	if folds == 0 {
		return 0, 0, 0
	}
	return maeSum / float64(folds), rmseSum / float64(folds), folds
}
