package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pricewatch/pricewatch/models"
	"github.com/pricewatch/pricewatch/pkg/database"
	"github.com/pricewatch/pricewatch/pkg/etl"
)

// Service exposes the on-demand parse entrypoint consumed by the API layer.
type Service interface {
	ParseProduct(ctx context.Context, url string) (models.ProductObservation, error)
	CheckHealth(ctx context.Context) (HealthResponse, error)
}

// HealthResponse is the health check result.
type HealthResponse struct {
	Status    string    `json:"status"`
	Database  string    `json:"database"`
	Timestamp time.Time `json:"timestamp"`
}

type service struct {
	parser etl.ProductParser
	db     *database.DB
	logger *zap.Logger
}

// NewService creates the parse service over an already constructed parser.
func NewService(parser etl.ProductParser, db *database.DB, logger *zap.Logger) Service {
	return &service{
		parser: parser,
		db:     db,
		logger: logger,
	}
}

// ParseProduct parses one product page on demand. Errors keep their parser
// types so the transport can map them to status codes.
func (s *service) ParseProduct(ctx context.Context, url string) (models.ProductObservation, error) {
	observation, err := s.parser.ParseProductByURL(ctx, url)
	if err != nil {
		s.logger.Warn("On-demand parse failed", zap.String("url", url), zap.Error(err))
		return models.ProductObservation{}, err
	}
	return observation, nil
}

// CheckHealth reports service and database health.
func (s *service) CheckHealth(ctx context.Context) (HealthResponse, error) {
	resp := HealthResponse{
		Status:    "ok",
		Database:  "ok",
		Timestamp: time.Now().UTC(),
	}
	if s.db != nil {
		if err := s.db.Health(ctx); err != nil {
			s.logger.Error("Database health check failed", zap.Error(err))
			resp.Status = "degraded"
			resp.Database = err.Error()
		}
	}
	return resp, nil
}
