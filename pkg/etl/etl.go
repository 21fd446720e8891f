package etl

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pricewatch/pricewatch/models"
	"github.com/pricewatch/pricewatch/pkg/marketconfig"
	"github.com/pricewatch/pricewatch/pkg/metrics"
	"github.com/pricewatch/pricewatch/pkg/parser"
	"github.com/pricewatch/pricewatch/pkg/repository"
)

// Counter names recorded per run.
const (
	MetricProductsParsed = "etl_products_parsed"
	MetricProductsFailed = "etl_products_failed"
	MetricRowsInserted   = "etl_rows_inserted"
)

// ProductParser parses one product page into an observation.
type ProductParser interface {
	ParseProductByURL(ctx context.Context, url string) (models.ProductObservation, error)
}

// ParserFactory builds a parser over one loaded configuration snapshot.
type ParserFactory func(snapshot *marketconfig.Snapshot) ProductParser

// Options configures one ETL pipeline.
type Options struct {
	PageSize      int
	ParserOptions parser.Options
}

// Pipeline re-parses every tracked product in bounded pages and appends the
// resulting price observations. A product that fails to parse is logged and
// skipped; only configuration loading and storage failures abort a run.
type Pipeline struct {
	loader    *marketconfig.Loader
	repo      repository.ProductRepository
	newParser ParserFactory
	pageSize  int
	collector metrics.Collector
	logger    *zap.Logger
}

// NewPipeline creates an ETL pipeline using the production parser.
func NewPipeline(loader *marketconfig.Loader, repo repository.ProductRepository,
	opts Options, collector metrics.Collector, logger *zap.Logger) *Pipeline {
	factory := func(snapshot *marketconfig.Snapshot) ProductParser {
		return parser.New(snapshot, opts.ParserOptions, logger)
	}
	return NewPipelineWithParser(loader, repo, factory, opts, collector, logger)
}

// NewPipelineWithParser creates an ETL pipeline with a custom parser factory.
func NewPipelineWithParser(loader *marketconfig.Loader, repo repository.ProductRepository,
	factory ParserFactory, opts Options, collector metrics.Collector, logger *zap.Logger) *Pipeline {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 1000
	}
	return &Pipeline{
		loader:    loader,
		repo:      repo,
		newParser: factory,
		pageSize:  pageSize,
		collector: collector,
		logger:    logger,
	}
}

// Run executes one full ETL pass over the products table. Every row appended
// during the run carries the same run timestamp.
func (p *Pipeline) Run(ctx context.Context) error {
	started := time.Now()
	p.collector.Reset()

	snapshot, err := p.loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("etl: failed to load configuration: %w", err)
	}
	productParser := p.newParser(snapshot)

	etlDate := time.Now().UTC()

	for offset := 0; ; offset += p.pageSize {
		products, err := p.repo.ListProductsPage(ctx, p.pageSize, offset)
		if err != nil {
			return fmt.Errorf("etl: failed to read products page at offset %d: %w", offset, err)
		}
		if len(products) == 0 {
			break
		}

		rows := make([]models.PriceHistoryRow, 0, len(products))
		for _, product := range products {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			observation, err := productParser.ParseProductByURL(ctx, product.URL)
			if err != nil {
				p.collector.IncrementCounter(MetricProductsFailed, 1)
				p.logger.Warn("Skipping product that failed to parse",
					zap.String("product_id", product.ID.String()),
					zap.String("url", product.URL),
					zap.Error(err))
				continue
			}

			p.collector.IncrementCounter(MetricProductsParsed, 1)
			rows = append(rows, models.PriceHistoryRow{
				ProductID:      product.ID,
				PriceProceeded: observation.Price,
				ETLDate:        etlDate,
			})
		}

		if len(rows) == 0 {
			p.logger.Warn("Page yielded no parsed products, skipping insert",
				zap.Int("offset", offset),
				zap.Int("page_products", len(products)))
		} else {
			if err := p.repo.InsertPriceHistory(ctx, rows); err != nil {
				return fmt.Errorf("etl: failed to insert price history page at offset %d: %w", offset, err)
			}
			p.collector.IncrementCounter(MetricRowsInserted, float64(len(rows)))
		}

		if len(products) < p.pageSize {
			break
		}
	}

	p.collector.RecordDuration("etl_run_duration", time.Since(started))
	counters := p.collector.Counters()
	p.logger.Info("ETL run finished",
		zap.Float64("parsed", counters[MetricProductsParsed]),
		zap.Float64("failed", counters[MetricProductsFailed]),
		zap.Float64("inserted", counters[MetricRowsInserted]),
		zap.Duration("took", time.Since(started)))

	return nil
}
