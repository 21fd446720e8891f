package endpoint

import (
	"context"
	"errors"

	"github.com/go-kit/kit/endpoint"

	"github.com/pricewatch/pricewatch/pkg/service"
)

// Endpoints holds all Go-Kit endpoints.
type Endpoints struct {
	ParseProduct endpoint.Endpoint
	CheckHealth  endpoint.Endpoint
}

// ParseProductRequest carries the URL to parse on demand.
type ParseProductRequest struct {
	URL string `json:"url"`
}

// MakeEndpoints creates endpoints for the service.
func MakeEndpoints(s service.Service) Endpoints {
	return Endpoints{
		ParseProduct: makeParseProductEndpoint(s),
		CheckHealth:  makeCheckHealthEndpoint(s),
	}
}

func makeParseProductEndpoint(s service.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req, ok := request.(ParseProductRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}
		return s.ParseProduct(ctx, req.URL)
	}
}

func makeCheckHealthEndpoint(s service.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		return s.CheckHealth(ctx)
	}
}
