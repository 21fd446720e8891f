package etl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pricewatch/pricewatch/models"
	"github.com/pricewatch/pricewatch/pkg/marketconfig"
	"github.com/pricewatch/pricewatch/pkg/metrics"
	"github.com/pricewatch/pricewatch/pkg/parser"
	"github.com/pricewatch/pricewatch/pkg/repository"
)

type fakeRepo struct {
	repository.ProductRepository

	products        []models.Product
	insertedBatches [][]models.PriceHistoryRow
	listErr         error
	insertErr       error
}

func (f *fakeRepo) ListProductsPage(_ context.Context, limit, offset int) ([]models.Product, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if offset >= len(f.products) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.products) {
		end = len(f.products)
	}
	return f.products[offset:end], nil
}

func (f *fakeRepo) InsertPriceHistory(_ context.Context, rows []models.PriceHistoryRow) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.insertedBatches = append(f.insertedBatches, rows)
	return nil
}

type stubParser struct {
	prices  map[string]float64
	failing map[string]bool
}

func (s *stubParser) ParseProductByURL(_ context.Context, url string) (models.ProductObservation, error) {
	if s.failing[url] {
		return models.ProductObservation{}, errors.New("boom")
	}
	obs := models.ProductObservation{SourceURL: url, ObservedAt: time.Now().UTC()}
	if price, ok := s.prices[url]; ok {
		obs.Price = &price
	}
	return obs, nil
}

func fileLoader(t *testing.T) *marketconfig.Loader {
	t.Helper()

	dir := t.TempDir()
	confPath := filepath.Join(dir, "config.json")
	requiredPath := filepath.Join(dir, "required_fields.json")

	config := `{
	  "marketplace_configurations": [
	    {
	      "name": "teststore",
	      "fields": [
	        {
	          "name": "price",
	          "html_div_class": "price-box",
	          "html_element_in_div_type": "span",
	          "html_element_in_div_class": ["price-current"]
	        }
	      ],
	      "marketplace_url": ["teststore.example.com"]
	    }
	  ]
	}`
	required := `{
	  "required_fields": [
	    {
	      "field_name": "price",
	      "field_params": ["html_div_class", "html_element_in_div_type", "html_element_in_div_class"]
	    }
	  ]
	}`

	require.NoError(t, os.WriteFile(confPath, []byte(config), 0o644))
	require.NoError(t, os.WriteFile(requiredPath, []byte(required), 0o644))

	return marketconfig.NewLoader(nil, confPath, requiredPath, zap.NewNop())
}

func newTestPipeline(t *testing.T, repo *fakeRepo, stub *stubParser, pageSize int) (*Pipeline, *metrics.SimpleCollector) {
	t.Helper()

	collector := metrics.NewSimpleCollector(zap.NewNop())
	factory := func(_ *marketconfig.Snapshot) ProductParser { return stub }
	pipeline := NewPipelineWithParser(fileLoader(t), repo, factory,
		Options{PageSize: pageSize}, collector, zap.NewNop())
	return pipeline, collector
}

func someProducts(n int) []models.Product {
	products := make([]models.Product, n)
	for i := range products {
		products[i] = models.Product{
			ID:             uuid.New(),
			MarketplaceKey: "teststore",
			URL:            fmt.Sprintf("https://teststore.example.com/item/%d", i),
		}
	}
	return products
}

func TestRunInsertsObservations(t *testing.T) {
	products := someProducts(3)
	repo := &fakeRepo{products: products}
	stub := &stubParser{
		prices: map[string]float64{
			products[0].URL: 10.5,
			products[2].URL: 99,
		},
		failing: map[string]bool{products[1].URL: true},
	}

	pipeline, collector := newTestPipeline(t, repo, stub, 10)
	require.NoError(t, pipeline.Run(context.Background()))

	require.Len(t, repo.insertedBatches, 1)
	rows := repo.insertedBatches[0]
	require.Len(t, rows, 2)

	assert.Equal(t, products[0].ID, rows[0].ProductID)
	require.NotNil(t, rows[0].PriceProceeded)
	assert.InDelta(t, 10.5, *rows[0].PriceProceeded, 1e-9)

	// Every row of a run carries the same timestamp.
	assert.True(t, rows[0].ETLDate.Equal(rows[1].ETLDate))

	counters := collector.Counters()
	assert.Equal(t, float64(2), counters[MetricProductsParsed])
	assert.Equal(t, float64(1), counters[MetricProductsFailed])
	assert.Equal(t, float64(2), counters[MetricRowsInserted])
}

func TestRunKeepsUnparsedPriceAsNull(t *testing.T) {
	products := someProducts(1)
	repo := &fakeRepo{products: products}
	stub := &stubParser{} // parses fine but yields no price

	pipeline, _ := newTestPipeline(t, repo, stub, 10)
	require.NoError(t, pipeline.Run(context.Background()))

	require.Len(t, repo.insertedBatches, 1)
	require.Len(t, repo.insertedBatches[0], 1)
	assert.Nil(t, repo.insertedBatches[0][0].PriceProceeded)
}

func TestRunSkipsInsertWhenWholePageFails(t *testing.T) {
	products := someProducts(2)
	repo := &fakeRepo{products: products}
	stub := &stubParser{failing: map[string]bool{
		products[0].URL: true,
		products[1].URL: true,
	}}

	pipeline, collector := newTestPipeline(t, repo, stub, 10)
	require.NoError(t, pipeline.Run(context.Background()))

	assert.Empty(t, repo.insertedBatches)
	assert.Equal(t, float64(2), collector.Counters()[MetricProductsFailed])
}

func TestRunPaginates(t *testing.T) {
	products := someProducts(5)
	repo := &fakeRepo{products: products}
	stub := &stubParser{prices: map[string]float64{}}
	for _, product := range products {
		stub.prices[product.URL] = 1
	}

	pipeline, collector := newTestPipeline(t, repo, stub, 2)
	require.NoError(t, pipeline.Run(context.Background()))

	// 5 products at page size 2: two full pages plus a final short one.
	require.Len(t, repo.insertedBatches, 3)
	assert.Equal(t, float64(5), collector.Counters()[MetricRowsInserted])
}

func TestRunAbortsOnStorageFailure(t *testing.T) {
	repo := &fakeRepo{products: someProducts(1), insertErr: errors.New("db down")}
	stub := &stubParser{prices: map[string]float64{repo.products[0].URL: 1}}

	pipeline, _ := newTestPipeline(t, repo, stub, 10)
	err := pipeline.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestRunAbortsWhenConfigurationUnavailable(t *testing.T) {
	repo := &fakeRepo{products: someProducts(1)}
	collector := metrics.NewSimpleCollector(zap.NewNop())
	loader := marketconfig.NewLoader(nil, "", "", zap.NewNop())
	factory := func(_ *marketconfig.Snapshot) ProductParser { return &stubParser{} }

	pipeline := NewPipelineWithParser(loader, repo, factory,
		Options{PageSize: 10}, collector, zap.NewNop())

	err := pipeline.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, marketconfig.ErrUnavailable))
	assert.Empty(t, repo.insertedBatches)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	repo := &fakeRepo{products: someProducts(3)}
	stub := &stubParser{}

	pipeline, _ := newTestPipeline(t, repo, stub, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := pipeline.Run(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, repo.insertedBatches)
}

// The production factory must satisfy the pipeline's parser contract.
var _ ProductParser = (*parser.Parser)(nil)
