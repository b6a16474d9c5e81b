// Package attribution reports how many analysis data points each AI provider
// contributed.
package attribution

import (
	"context"
	"strings"

	"github.com/turtacn/competeiq/internal/domain/competitor"
	"github.com/turtacn/competeiq/internal/domain/provider"
	"github.com/turtacn/competeiq/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/competeiq/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/competeiq/pkg/errors"
)

const (
	sourceStored = "stored"
	sourceInline = "inline"
)

// Service resolves provider counts for stored or inline analysis documents.
type Service interface {
	// ProviderCounts loads analysisID from the store. A missing analysis is an
	// ErrCodeAnalysisNotFound error.
	ProviderCounts(ctx context.Context, analysisID string) ([]provider.ProviderCount, error)

	ProviderCountsFromDocument(doc map[string]any) []provider.ProviderCount
}

type service struct {
	repo     competitor.AnalysisRepository
	resolver *provider.Resolver
	metrics  *prometheus.AppMetrics
	logger   logging.Logger
}

// NewService builds a Service. A nil resolver uses provider.NewResolver() and
// nil metrics record nothing.
func NewService(repo competitor.AnalysisRepository, resolver *provider.Resolver, metrics *prometheus.AppMetrics, log logging.Logger) Service {
	if resolver == nil {
		resolver = provider.NewResolver()
	}
	if metrics == nil {
		metrics = prometheus.NewNoopAppMetrics()
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &service{repo: repo, resolver: resolver, metrics: metrics, logger: log.Named("attribution")}
}

func (s *service) ProviderCounts(ctx context.Context, analysisID string) ([]provider.ProviderCount, error) {
	analysisID = strings.TrimSpace(analysisID)
	if analysisID == "" {
		return nil, errors.InvalidParam("analysis id cannot be empty")
	}
	if s.repo == nil {
		return nil, errors.New(errors.ErrCodeServiceUnavailable, "analysis store is not configured")
	}

	a, err := s.repo.GetAnalysisByID(ctx, analysisID)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, err
		}
		s.logger.Error("Failed to load analysis", logging.String("analysis_id", analysisID), logging.Err(err))
		return nil, errors.Wrap(err, errors.CodeUnknown, "load analysis")
	}
	if a == nil {
		return nil, errors.New(errors.ErrCodeAnalysisNotFound, "analysis not found").WithDetail("id=" + analysisID)
	}

	counts := s.resolver.ExtractProviderCounts(a.Document())
	s.metrics.ProviderCountsTotal.WithLabelValues(sourceStored).Inc()
	s.logger.Debug("Resolved provider counts",
		logging.String("analysis_id", analysisID),
		logging.Int("providers", len(counts)),
	)
	return counts, nil
}

func (s *service) ProviderCountsFromDocument(doc map[string]any) []provider.ProviderCount {
	s.metrics.ProviderCountsTotal.WithLabelValues(sourceInline).Inc()
	return s.resolver.ExtractProviderCounts(doc)
}
