package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	httptransport "github.com/go-kit/kit/transport/http"

	"github.com/pricewatch/pricewatch/pkg/endpoint"
	"github.com/pricewatch/pricewatch/pkg/parser"
)

// NewHTTPHandler sets up HTTP handlers for the endpoints.
func NewHTTPHandler(endpoints endpoint.Endpoints) http.Handler {
	options := []httptransport.ServerOption{
		httptransport.ServerErrorEncoder(encodeError),
	}

	mux := http.NewServeMux()

	mux.Handle("/parse-product", httptransport.NewServer(
		endpoints.ParseProduct,
		decodeParseProductRequest,
		encodeResponse,
		options...,
	))

	mux.Handle("/health", httptransport.NewServer(
		endpoints.CheckHealth,
		decodeHealthRequest,
		encodeResponse,
		options...,
	))

	return mux
}

// decodeParseProductRequest accepts either a JSON body {"url": ...} or a
// `url` query parameter.
func decodeParseProductRequest(_ context.Context, r *http.Request) (interface{}, error) {
	if url := r.URL.Query().Get("url"); url != "" {
		return endpoint.ParseProductRequest{URL: url}, nil
	}
	var req endpoint.ParseProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, err
	}
	return req, nil
}

func decodeHealthRequest(_ context.Context, _ *http.Request) (interface{}, error) {
	return nil, nil
}

func encodeResponse(_ context.Context, w http.ResponseWriter, response interface{}) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	return json.NewEncoder(w).Encode(response)
}

// encodeError maps parse failures to distinct status codes: unresolvable
// configuration to 400, syntactically invalid URLs to 422, upstream fetch
// failures to 502 and everything else to 500.
func encodeError(_ context.Context, err error, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusFromError(err))
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func statusFromError(err error) int {
	var noMatch *parser.NoConfigurationMatchError
	var invalidURL *parser.InvalidURLError
	var fetchFailed *parser.FetchFailedError

	switch {
	case errors.As(err, &noMatch):
		return http.StatusBadRequest
	case errors.As(err, &invalidURL):
		return http.StatusUnprocessableEntity
	case errors.As(err, &fetchFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
