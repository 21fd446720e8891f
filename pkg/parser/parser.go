package parser

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/pricewatch/pricewatch/models"
	"github.com/pricewatch/pricewatch/pkg/marketconfig"
)

const (
	userAgent      = "Mozilla/5.0 (X11; Linux x86_64; rv:135.0) Gecko/20100101 Firefox/135.0"
	acceptLanguage = "en-US,en;q=0.5"
)

// Options configures the parser's HTTP fetch behavior. Retries default to
// zero: a failed fetch is reported, not retried.
type Options struct {
	FetchTimeout time.Duration
	FetchRetries int
}

// Parser resolves a URL to a marketplace configuration, fetches the page and
// extracts the configured fields into a ProductObservation.
type Parser struct {
	snapshot *marketconfig.Snapshot
	client   *resty.Client
	logger   *zap.Logger
}

func New(snapshot *marketconfig.Snapshot, opts Options, logger *zap.Logger) *Parser {
	client := resty.New().
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept-Language", acceptLanguage)
	if opts.FetchTimeout > 0 {
		client.SetTimeout(opts.FetchTimeout)
	}
	if opts.FetchRetries > 0 {
		client.SetRetryCount(opts.FetchRetries).
			SetRetryWaitTime(500 * time.Millisecond).
			SetRetryMaxWaitTime(10 * time.Second)
	}
	return &Parser{
		snapshot: snapshot,
		client:   client,
		logger:   logger,
	}
}

// ParseProductByURL fetches the product page at url and assembles an
// observation from the fields its marketplace configuration describes. The
// call fails only on configuration resolution, URL validation or fetch
// problems; a field that cannot be extracted is logged and left unset.
func (p *Parser) ParseProductByURL(ctx context.Context, rawURL string) (models.ProductObservation, error) {
	var observation models.ProductObservation

	config, key, ok := p.snapshot.Resolve(rawURL)
	if !ok {
		return observation, &NoConfigurationMatchError{URL: rawURL}
	}

	if err := validateURL(rawURL); err != nil {
		return observation, &InvalidURLError{URL: rawURL, Reason: err}
	}

	resp, err := p.client.R().SetContext(ctx).Get(rawURL)
	if err != nil {
		return observation, &FetchFailedError{URL: rawURL, Err: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return observation, &FetchFailedError{URL: rawURL, StatusCode: resp.StatusCode()}
	}

	observation = models.ProductObservation{
		MarketplaceKey: key,
		SourceURL:      rawURL,
		ObservedAt:     time.Now().UTC(),
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		// Unparseable markup degrades to an observation with no fields set.
		p.logger.Error("Failed to parse HTML document",
			zap.String("url", rawURL),
			zap.Error(err))
		return observation, nil
	}

	for _, field := range sortedFieldNames(config.Fields) {
		value, err := extractFieldValue(doc, config.Fields[field], field)
		if err != nil {
			p.logger.Warn("Failed to extract field, leaving it unset",
				zap.String("field", field),
				zap.String("url", rawURL),
				zap.Error(err))
			continue
		}

		switch field {
		case "price":
			observation.Price = NormalizePrice(value)
			observation.Currency = NormalizeCurrency(value)
		case "title":
			name := value
			observation.Name = &name
		default:
			// Extracted but not part of the observation.
		}
	}

	return observation, nil
}

func sortedFieldNames(fields map[string]marketconfig.FieldRule) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func validateURL(rawURL string) error {
	parsed, err := url.ParseRequestURI(rawURL)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("url has no host")
	}
	return nil
}
