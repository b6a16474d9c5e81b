// Package threatassessment orchestrates threat scoring over the competitor
// store. Assessments are fail-open: callers always receive an assessment, and
// any lookup failure is replaced by threat.DefaultAssessment.
package threatassessment

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/competeiq/internal/domain/competitor"
	"github.com/turtacn/competeiq/internal/domain/threat"
	redisinfra "github.com/turtacn/competeiq/internal/infrastructure/database/redis"
	"github.com/turtacn/competeiq/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/competeiq/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/competeiq/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/competeiq/internal/infrastructure/storage/minio"
	"github.com/turtacn/competeiq/pkg/errors"
)

const (
	KindCompetitor = "competitor"
	KindMarket     = "market"

	eventSource = "competeiq.threatassessment"
	cacheName   = "threat"
)

// Fallback reasons recorded on threat_fallbacks_total.
const (
	ReasonInvalidID       = "invalid_id"
	ReasonInvalidIndustry = "invalid_industry"
	ReasonNotFound        = "not_found"
	ReasonStoreError      = "store_error"
	ReasonNoCompetitors   = "no_competitors"
)

// CompetitorCacheKey is the cache key of a competitor assessment.
func CompetitorCacheKey(id string) string {
	return "threat:competitor:" + strings.TrimSpace(id)
}

// MarketCacheKey is the cache key of an industry assessment. Industries are
// compared case-insensitively.
func MarketCacheKey(industry string) string {
	return "threat:market:" + normalizeIndustry(industry)
}

func normalizeIndustry(industry string) string {
	return strings.ToLower(strings.TrimSpace(industry))
}

// Service computes threat assessments.
type Service interface {
	// AssessCompetitorThreat never fails; unknown or unreadable competitors
	// yield the default assessment.
	AssessCompetitorThreat(ctx context.Context, id string) *threat.Assessment

	// AssessMarketThreat aggregates the completed competitors of industry.
	AssessMarketThreat(ctx context.Context, industry string) *threat.Assessment

	// ArchiveMarketAssessment stores the current market assessment in the
	// report archive. Unlike the assessments it reports failures.
	ArchiveMarketAssessment(ctx context.Context, industry string) (*ArchivedReport, error)

	// ListMarketArchives returns the archived reports of industry, newest
	// first.
	ListMarketArchives(ctx context.Context, industry string) ([]minio.StoredObject, error)
}

// Config tunes the service. Zero values fall back to the package defaults.
type Config struct {
	MarketCompetitorLimit int
	MaxConcurrency        int
	CacheTTL              time.Duration
	EventsTopic           string
}

const defaultMaxConcurrency = 8

func (c *Config) applyDefaults() {
	if c.MarketCompetitorLimit <= 0 {
		c.MarketCompetitorLimit = competitor.DefaultMarketLimit
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = defaultMaxConcurrency
	}
	if c.EventsTopic == "" {
		c.EventsTopic = kafka.TopicThreatAssessed
	}
}

// Cache is the subset of redis.Cache the service uses. Concurrent misses on
// one key share a single loader call.
type Cache interface {
	GetOrSet(ctx context.Context, key string, dest any, ttl time.Duration, loader func(ctx context.Context) (any, error)) error
}

// ArchivedReport is the result of ArchiveMarketAssessment.
type ArchivedReport struct {
	Industry        string              `json:"industry"`
	Assessment      *threat.Assessment  `json:"assessment"`
	CompetitorCount int                 `json:"competitorCount"`
	Object          *minio.StoredObject `json:"object"`
	ArchivedAt      time.Time           `json:"archivedAt"`
}

// marketReport is the archived document body.
type marketReport struct {
	Industry        string             `json:"industry"`
	CompetitorCount int                `json:"competitorCount"`
	Assessment      *threat.Assessment `json:"assessment"`
	GeneratedAt     time.Time          `json:"generatedAt"`
}

type Option func(*service)

func WithCache(c Cache) Option {
	return func(s *service) { s.cache = c }
}

func WithPublisher(p kafka.Publisher) Option {
	return func(s *service) { s.publisher = p }
}

func WithReportStore(r minio.ReportStore) Option {
	return func(s *service) { s.reports = r }
}

func WithMetrics(m *prometheus.AppMetrics) Option {
	return func(s *service) {
		if m != nil {
			s.metrics = m
		}
	}
}

func WithCalculator(c *threat.Calculator) Option {
	return func(s *service) {
		if c != nil {
			s.calc = c
		}
	}
}

// WithClock overrides the clock used for event and archive timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

type service struct {
	repo      competitor.Repository
	cfg       Config
	calc      *threat.Calculator
	cache     Cache
	publisher kafka.Publisher
	reports   minio.ReportStore
	metrics   *prometheus.AppMetrics
	logger    logging.Logger
	now       func() time.Time
}

// NewService builds a Service over repo. Cache, publisher and report store are
// optional and enabled through options.
func NewService(repo competitor.Repository, cfg Config, log logging.Logger, opts ...Option) Service {
	if log == nil {
		log = logging.NewNopLogger()
	}
	cfg.applyDefaults()
	s := &service{
		repo:    repo,
		cfg:     cfg,
		calc:    threat.NewCalculator(),
		metrics: prometheus.NewNoopAppMetrics(),
		logger:  log.Named("threatassessment"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ----------------------------------------------------------------------------
// Competitor
// ----------------------------------------------------------------------------

func (s *service) AssessCompetitorThreat(ctx context.Context, id string) *threat.Assessment {
	a, _ := s.assessCompetitor(ctx, id)
	return a
}

// assessCompetitor also reports whether a is a real assessment rather than a
// fallback.
func (s *service) assessCompetitor(ctx context.Context, id string) (*threat.Assessment, bool) {
	id = strings.TrimSpace(id)
	if _, err := uuid.Parse(id); err != nil {
		return s.fallback(KindCompetitor, ReasonInvalidID, logging.String("competitor_id", id)), false
	}
	return loadThrough(ctx, s, CompetitorCacheKey(id), func(ctx context.Context) (*threat.Assessment, bool) {
		return s.computeCompetitor(ctx, id)
	})
}

func (s *service) computeCompetitor(ctx context.Context, id string) (*threat.Assessment, bool) {
	start := s.now()
	comp, err := s.repo.GetByID(ctx, id)
	if err != nil {
		reason := ReasonStoreError
		if errors.IsNotFound(err) {
			reason = ReasonNotFound
		}
		return s.fallback(KindCompetitor, reason, logging.String("competitor_id", id), logging.Err(err)), false
	}
	if comp == nil {
		return s.fallback(KindCompetitor, ReasonNotFound, logging.String("competitor_id", id)), false
	}

	a := s.calc.Assess(comp)
	prometheus.RecordAssessment(s.metrics, KindCompetitor, string(a.ThreatLevel), s.now().Sub(start))
	s.publish(ctx, kafka.EventCompetitorThreatAssessed, id, kafka.ThreatAssessedPayload{
		CompetitorID: id,
		ThreatLevel:  string(a.ThreatLevel),
		Score:        a.Score,
		Factors:      factorMap(a.Factors),
		AssessedAt:   s.now().UTC(),
	})
	return a, true
}

// ----------------------------------------------------------------------------
// Market
// ----------------------------------------------------------------------------

func (s *service) AssessMarketThreat(ctx context.Context, industry string) *threat.Assessment {
	a, _ := s.assessMarket(ctx, industry)
	return a
}

// assessMarket also returns how many competitors contributed.
func (s *service) assessMarket(ctx context.Context, industry string) (*threat.Assessment, int) {
	industry = strings.TrimSpace(industry)
	if industry == "" {
		return s.fallback(KindMarket, ReasonInvalidIndustry), 0
	}
	m, _ := loadThrough(ctx, s, MarketCacheKey(industry), func(ctx context.Context) (cachedMarket, bool) {
		return s.computeMarket(ctx, industry)
	})
	return m.Assessment, m.CompetitorCount
}

// computeMarket reports false when the store failed or any competitor fell
// back, so a partial aggregate is never cached or published.
func (s *service) computeMarket(ctx context.Context, industry string) (cachedMarket, bool) {
	start := s.now()
	competitors, err := s.repo.ListByIndustry(ctx, industry, s.cfg.MarketCompetitorLimit)
	if err != nil {
		a := s.fallback(KindMarket, ReasonStoreError, logging.String("industry", industry), logging.Err(err))
		return cachedMarket{Assessment: a}, false
	}
	if len(competitors) == 0 {
		return cachedMarket{Assessment: s.fallback(KindMarket, ReasonNoCompetitors, logging.String("industry", industry))}, false
	}

	assessments := make([]*threat.Assessment, len(competitors))
	var fellBack atomic.Int32
	var g errgroup.Group
	g.SetLimit(s.cfg.MaxConcurrency)
	for i, comp := range competitors {
		if comp == nil {
			continue
		}
		g.Go(func() error {
			a, ok := s.assessCompetitor(ctx, comp.ID)
			assessments[i] = a
			if !ok {
				fellBack.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	a := s.calc.AggregateMarket(competitors, assessments)
	result := cachedMarket{Assessment: a, CompetitorCount: len(competitors)}
	prometheus.RecordAssessment(s.metrics, KindMarket, string(a.ThreatLevel), s.now().Sub(start))
	s.logger.Debug("Assessed market threat",
		logging.String("industry", industry),
		logging.Int("competitors", len(competitors)),
		logging.Int("score", a.Score),
	)

	if n := int(fellBack.Load()); n > 0 {
		s.logger.Warn("Market assessment includes fallback competitors, not caching",
			logging.String("industry", industry),
			logging.Int("fallbacks", n),
		)
		return result, false
	}

	s.publish(ctx, kafka.EventMarketThreatAssessed, normalizeIndustry(industry), kafka.ThreatAssessedPayload{
		Industry:        industry,
		ThreatLevel:     string(a.ThreatLevel),
		Score:           a.Score,
		Factors:         factorMap(a.Factors),
		CompetitorCount: len(competitors),
		AssessedAt:      s.now().UTC(),
	})
	return result, true
}

type cachedMarket struct {
	Assessment      *threat.Assessment `json:"assessment"`
	CompetitorCount int                `json:"competitorCount"`
}

// ----------------------------------------------------------------------------
// Archive
// ----------------------------------------------------------------------------

func (s *service) ArchiveMarketAssessment(ctx context.Context, industry string) (*ArchivedReport, error) {
	if s.reports == nil {
		return nil, errors.New(errors.ErrCodeFeatureDisabled, "report archive is not configured")
	}
	industry = strings.TrimSpace(industry)
	if industry == "" {
		return nil, errors.InvalidParam("industry cannot be empty")
	}

	a, count := s.assessMarket(ctx, industry)
	now := s.now().UTC()
	body, err := json.Marshal(marketReport{
		Industry:        industry,
		CompetitorCount: count,
		Assessment:      a,
		GeneratedAt:     now,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "marshal market report")
	}

	key := ArchiveKey(industry, now)
	obj, err := s.reports.PutReport(ctx, key, body, map[string]string{
		"industry":     industry,
		"threat-level": string(a.ThreatLevel),
		"score":        fmt.Sprintf("%d", a.Score),
	})
	prometheus.RecordArchive(s.metrics, err)
	if err != nil {
		s.logger.Error("Failed to archive market report", logging.String("industry", industry), logging.String("key", key), logging.Err(err))
		return nil, errors.Wrap(err, errors.ErrCodeReportArchive, "archive market report").WithDetail("key=" + key)
	}

	s.logger.Info("Archived market report", logging.String("industry", industry), logging.String("key", obj.Key))
	return &ArchivedReport{
		Industry:        industry,
		Assessment:      a,
		CompetitorCount: count,
		Object:          obj,
		ArchivedAt:      now,
	}, nil
}

func (s *service) ListMarketArchives(ctx context.Context, industry string) ([]minio.StoredObject, error) {
	if s.reports == nil {
		return nil, errors.New(errors.ErrCodeFeatureDisabled, "report archive is not configured")
	}
	if strings.TrimSpace(industry) == "" {
		return nil, errors.InvalidParam("industry cannot be empty")
	}
	prefix := ArchivePrefix(industry)
	objs, err := s.reports.ListReports(ctx, prefix)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeReportArchive, "list market archives").WithDetail("prefix=" + prefix)
	}
	if objs == nil {
		objs = []minio.StoredObject{}
	}
	return objs, nil
}

// ArchivePrefix is reports/market/<industry>/ with the industry lower-cased
// and path separators and whitespace replaced by '-'.
func ArchivePrefix(industry string) string {
	slug := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ' ', '\t', '\n':
			return '-'
		}
		return r
	}, normalizeIndustry(industry))
	return "reports/market/" + slug + "/"
}

// ArchiveKey is ArchivePrefix followed by <unix>.json.
func ArchiveKey(industry string, at time.Time) string {
	return fmt.Sprintf("%s%d.json", ArchivePrefix(industry), at.Unix())
}

// ----------------------------------------------------------------------------
// Side effects
// ----------------------------------------------------------------------------

func (s *service) fallback(kind, reason string, fields ...logging.Field) *threat.Assessment {
	prometheus.RecordFallback(s.metrics, kind, reason)
	s.logger.Warn("Falling back to default threat assessment",
		append([]logging.Field{logging.String("kind", kind), logging.String("reason", reason)}, fields...)...)
	return threat.DefaultAssessment()
}

// incompleteResult carries a loader result out of Cache.GetOrSet without
// caching it.
type incompleteResult struct{ value any }

func (r *incompleteResult) Error() string { return "incomplete threat assessment" }

// loadThrough returns the value cached under key or computes it. compute
// reports whether its result is complete; incomplete results are returned to
// every waiting caller but never cached.
func loadThrough[T any](ctx context.Context, s *service, key string, compute func(context.Context) (T, bool)) (T, bool) {
	if s.cache == nil {
		return compute(ctx)
	}

	var (
		out      T
		loaded   bool
		computed T
		complete bool
	)
	err := s.cache.GetOrSet(ctx, key, &out, s.cfg.CacheTTL, func(ctx context.Context) (any, error) {
		loaded = true
		computed, complete = compute(ctx)
		if !complete {
			return nil, &incompleteResult{value: computed}
		}
		return computed, nil
	})
	if loaded {
		prometheus.RecordCacheAccess(s.metrics, cacheName, false)
		return computed, complete
	}

	prometheus.RecordCacheAccess(s.metrics, cacheName, err == nil)
	if err == nil {
		return out, true
	}

	// Another caller computed an incomplete result for the same key.
	var inc *incompleteResult
	if stderrors.As(err, &inc) {
		if b, mErr := json.Marshal(inc.value); mErr == nil && json.Unmarshal(b, &out) == nil {
			return out, false
		}
	} else if !redisinfra.IsCacheMiss(err) {
		s.logger.Warn("Threat cache unavailable", logging.String("key", key), logging.Err(err))
	}
	return compute(ctx)
}

func (s *service) publish(ctx context.Context, eventType, key string, payload kafka.ThreatAssessedPayload) {
	if s.publisher == nil {
		return
	}
	err := s.send(ctx, eventType, key, payload)
	prometheus.RecordEvent(s.metrics, eventType, err)
	if err != nil {
		s.logger.Warn("Failed to publish threat event", logging.String("event_type", eventType), logging.String("key", key), logging.Err(err))
	}
}

func (s *service) send(ctx context.Context, eventType, key string, payload any) error {
	env, err := kafka.NewEventEnvelope(eventType, eventSource, payload)
	if err != nil {
		return err
	}
	msg, err := env.ToMessage(s.cfg.EventsTopic, key)
	if err != nil {
		return err
	}
	return s.publisher.Publish(ctx, msg)
}

func factorMap(f threat.Factors) map[string]int {
	return map[string]int{
		"marketSize":         f.MarketSize,
		"competitorStrength": f.CompetitorStrength,
		"marketPosition":     f.MarketPosition,
		"growthRate":         f.GrowthRate,
		"resourceStrength":   f.ResourceStrength,
	}
}
