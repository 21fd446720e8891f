package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricewatch/pricewatch/models"
	"github.com/pricewatch/pricewatch/pkg/endpoint"
	"github.com/pricewatch/pricewatch/pkg/parser"
	"github.com/pricewatch/pricewatch/pkg/service"
)

type stubService struct {
	parseErr error
	parsed   models.ProductObservation
	lastURL  string
}

func (s *stubService) ParseProduct(_ context.Context, url string) (models.ProductObservation, error) {
	s.lastURL = url
	if s.parseErr != nil {
		return models.ProductObservation{}, s.parseErr
	}
	return s.parsed, nil
}

func (s *stubService) CheckHealth(context.Context) (service.HealthResponse, error) {
	return service.HealthResponse{Status: "ok", Database: "ok", Timestamp: time.Now().UTC()}, nil
}

func newTestServer(svc service.Service) *httptest.Server {
	return httptest.NewServer(NewHTTPHandler(endpoint.MakeEndpoints(svc)))
}

func TestParseProductSuccess(t *testing.T) {
	name := "Vacuum Cleaner X200"
	price := 1234.56
	currency := "$"
	stub := &stubService{parsed: models.ProductObservation{
		MarketplaceKey: "teststore",
		SourceURL:      "https://teststore.example.com/item/1",
		Name:           &name,
		Price:          &price,
		Currency:       &currency,
		ObservedAt:     time.Now().UTC(),
	}}

	srv := newTestServer(stub)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/parse-product", "application/json",
		strings.NewReader(`{"url": "https://teststore.example.com/item/1"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "https://teststore.example.com/item/1", stub.lastURL)

	var body models.ProductObservation
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "teststore", body.MarketplaceKey)
	require.NotNil(t, body.Price)
	assert.InDelta(t, 1234.56, *body.Price, 1e-9)
}

func TestParseProductAcceptsQueryParameter(t *testing.T) {
	stub := &stubService{}
	srv := newTestServer(stub)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/parse-product?url=https://teststore.example.com/item/2")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "https://teststore.example.com/item/2", stub.lastURL)
}

func TestParseProductErrorStatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{
			"no configuration match",
			&parser.NoConfigurationMatchError{URL: "https://unknown.example.org"},
			http.StatusBadRequest,
		},
		{
			"invalid url",
			&parser.InvalidURLError{URL: "not-a-url", Reason: errors.New("no scheme")},
			http.StatusUnprocessableEntity,
		},
		{
			"fetch failed",
			&parser.FetchFailedError{URL: "https://teststore.example.com", StatusCode: 503},
			http.StatusBadGateway,
		},
		{
			"unexpected failure",
			errors.New("boom"),
			http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(&stubService{parseErr: tt.err})
			defer srv.Close()

			resp, err := http.Post(srv.URL+"/parse-product", "application/json",
				strings.NewReader(`{"url": "https://whatever.example.com"}`))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			var body map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(&stubService{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body service.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "ok", body.Database)
}
