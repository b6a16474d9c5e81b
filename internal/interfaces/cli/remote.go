package cli

import (
	"context"
	"fmt"

	"github.com/turtacn/competeiq/internal/application/attribution"
	"github.com/turtacn/competeiq/internal/application/threatassessment"
	"github.com/turtacn/competeiq/internal/domain/provider"
	"github.com/turtacn/competeiq/internal/domain/threat"
	"github.com/turtacn/competeiq/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/competeiq/internal/infrastructure/storage/minio"
	"github.com/turtacn/competeiq/pkg/client"
	"github.com/turtacn/competeiq/pkg/errors"
)

// remoteBackend serves commands through a CompeteIQ API server instead of
// the store.
type remoteBackend struct {
	api    *client.Client
	logger logging.Logger
}

func newRemoteBackend(serverURL string, log logging.Logger, opts ...client.Option) (*remoteBackend, error) {
	base := []client.Option{
		client.WithUserAgent("competeiq-cli/" + Version),
		client.WithLogger(sdkLogger{log.Named("client")}),
	}
	api, err := client.NewClient(serverURL, append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	return &remoteBackend{api: api, logger: log}, nil
}

// sdkLogger adapts logging.Logger to the SDK's printf-style Logger.
type sdkLogger struct{ l logging.Logger }

func (s sdkLogger) Debugf(format string, args ...interface{}) {
	s.l.Debug(fmt.Sprintf(format, args...))
}
func (s sdkLogger) Infof(format string, args ...interface{})  { s.l.Info(fmt.Sprintf(format, args...)) }
func (s sdkLogger) Errorf(format string, args ...interface{}) { s.l.Warn(fmt.Sprintf(format, args...)) }

func (b *remoteBackend) Threat() threatassessment.Service { return remoteThreat{b} }

func (b *remoteBackend) Attribution() attribution.Service { return remoteAttribution{b} }

func (b *remoteBackend) Migrator() (Migrator, error) {
	return nil, errors.New(errors.ErrCodeFeatureDisabled, "migrations cannot run through --server")
}

func (b *remoteBackend) Close() error { return nil }

type remoteThreat struct{ b *remoteBackend }

// AssessCompetitorThreat keeps the never-fail contract: transport errors
// yield the default assessment.
func (r remoteThreat) AssessCompetitorThreat(ctx context.Context, id string) *threat.Assessment {
	a, err := r.b.api.Threats().Competitor(ctx, id)
	if err != nil {
		r.b.logger.Warn("Remote competitor assessment failed", logging.String("competitor_id", id), logging.Err(err))
		return threat.DefaultAssessment()
	}
	return fromAPIAssessment(a)
}

func (r remoteThreat) AssessMarketThreat(ctx context.Context, industry string) *threat.Assessment {
	a, err := r.b.api.Threats().Market(ctx, industry)
	if err != nil {
		r.b.logger.Warn("Remote market assessment failed", logging.String("industry", industry), logging.Err(err))
		return threat.DefaultAssessment()
	}
	return fromAPIAssessment(a)
}

func (r remoteThreat) ArchiveMarketAssessment(ctx context.Context, industry string) (*threatassessment.ArchivedReport, error) {
	rep, err := r.b.api.Threats().ArchiveMarket(ctx, industry)
	if err != nil {
		return nil, err
	}
	out := &threatassessment.ArchivedReport{
		Industry:        rep.Industry,
		Assessment:      fromAPIAssessment(rep.Assessment),
		CompetitorCount: rep.CompetitorCount,
		ArchivedAt:      rep.ArchivedAt,
	}
	if o := rep.Object; o != nil {
		obj := fromAPIObject(*o)
		out.Object = &obj
	}
	return out, nil
}

func (r remoteThreat) ListMarketArchives(ctx context.Context, industry string) ([]minio.StoredObject, error) {
	objs, err := r.b.api.Threats().ListMarketArchives(ctx, industry)
	if err != nil {
		return nil, err
	}
	out := make([]minio.StoredObject, len(objs))
	for i, o := range objs {
		out[i] = fromAPIObject(o)
	}
	return out, nil
}

func fromAPIObject(o client.ArchivedObject) minio.StoredObject {
	return minio.StoredObject{
		Bucket:       o.Bucket,
		Key:          o.Key,
		ETag:         o.ETag,
		Size:         o.Size,
		LastModified: o.LastModified,
		URL:          o.URL,
	}
}

type remoteAttribution struct{ b *remoteBackend }

func (r remoteAttribution) ProviderCounts(ctx context.Context, analysisID string) ([]provider.ProviderCount, error) {
	counts, err := r.b.api.Providers().ForAnalysis(ctx, analysisID)
	if err != nil {
		return nil, err
	}
	return fromAPICounts(counts), nil
}

func (r remoteAttribution) ProviderCountsFromDocument(doc map[string]any) []provider.ProviderCount {
	counts, err := r.b.api.Providers().CountDocument(context.Background(), doc)
	if err != nil {
		r.b.logger.Warn("Remote provider count failed", logging.Err(err))
		return nil
	}
	return fromAPICounts(counts)
}

func fromAPIAssessment(a *client.Assessment) *threat.Assessment {
	if a == nil {
		return threat.DefaultAssessment()
	}
	return &threat.Assessment{
		ThreatLevel: threat.Level(a.ThreatLevel),
		Score:       a.Score,
		Factors: threat.Factors{
			MarketSize:         a.Factors.MarketSize,
			CompetitorStrength: a.Factors.CompetitorStrength,
			MarketPosition:     a.Factors.MarketPosition,
			GrowthRate:         a.Factors.GrowthRate,
			ResourceStrength:   a.Factors.ResourceStrength,
		},
		Recommendations: a.Recommendations,
	}
}

func fromAPICounts(in []client.ProviderCount) []provider.ProviderCount {
	out := make([]provider.ProviderCount, len(in))
	for i, pc := range in {
		out[i] = provider.ProviderCount{Provider: pc.Provider, Count: pc.Count}
	}
	return out
}
