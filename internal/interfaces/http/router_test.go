package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/competeiq/internal/application/threatassessment"
	"github.com/turtacn/competeiq/internal/domain/competitor"
	"github.com/turtacn/competeiq/internal/domain/provider"
	"github.com/turtacn/competeiq/internal/domain/threat"
	"github.com/turtacn/competeiq/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/competeiq/internal/infrastructure/storage/minio"
	"github.com/turtacn/competeiq/internal/interfaces/http/handlers"
	"github.com/turtacn/competeiq/pkg/errors"
)

type stubThreatService struct {
	archiveErr error
	listErr    error
}

func (s *stubThreatService) AssessCompetitorThreat(_ context.Context, id string) *threat.Assessment {
	if id == "known" {
		return &threat.Assessment{ThreatLevel: threat.LevelHigh, Score: 70, Recommendations: []string{}}
	}
	return threat.DefaultAssessment()
}

func (s *stubThreatService) AssessMarketThreat(_ context.Context, industry string) *threat.Assessment {
	a := threat.DefaultAssessment()
	a.Recommendations = []string{industry}
	return a
}

func (s *stubThreatService) ArchiveMarketAssessment(_ context.Context, industry string) (*threatassessment.ArchivedReport, error) {
	if s.archiveErr != nil {
		return nil, s.archiveErr
	}
	return &threatassessment.ArchivedReport{
		Industry:   industry,
		Assessment: threat.DefaultAssessment(),
		Object:     &minio.StoredObject{Key: "reports/market/" + industry + "/1.json"},
	}, nil
}

func (s *stubThreatService) ListMarketArchives(_ context.Context, industry string) ([]minio.StoredObject, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return []minio.StoredObject{{Bucket: "competeiq-reports", Key: "reports/market/" + industry + "/1.json", Size: 42}}, nil
}

type stubAttribution struct{}

func (stubAttribution) ProviderCounts(_ context.Context, id string) ([]provider.ProviderCount, error) {
	if id != "a-1" {
		return nil, errors.New(errors.ErrCodeAnalysisNotFound, "analysis not found")
	}
	return []provider.ProviderCount{{Provider: "openai", Count: 3}}, nil
}

func (stubAttribution) ProviderCountsFromDocument(doc map[string]any) []provider.ProviderCount {
	return provider.ExtractProviderCounts(doc)
}

type memRepo struct {
	saved    []*competitor.Competitor
	analyses []*competitor.Analysis
}

func (m *memRepo) GetByID(_ context.Context, id string) (*competitor.Competitor, error) {
	for i := len(m.saved) - 1; i >= 0; i-- {
		if m.saved[i].ID == id {
			return m.saved[i], nil
		}
	}
	return nil, errors.New(errors.ErrCodeCompetitorNotFound, "competitor not found")
}
func (m *memRepo) ListByIndustry(context.Context, string, int) ([]*competitor.Competitor, error) {
	return nil, nil
}
func (m *memRepo) Save(_ context.Context, c *competitor.Competitor) error {
	m.saved = append(m.saved, c)
	return nil
}
func (m *memRepo) GetAnalysisByID(context.Context, string) (*competitor.Analysis, error) {
	return nil, nil
}
func (m *memRepo) SaveAnalysis(_ context.Context, a *competitor.Analysis) error {
	m.analyses = append(m.analyses, a)
	return nil
}

type recordingNotifier struct {
	ids      []string
	previous []string
}

func (n *recordingNotifier) CompetitorUpdated(_ context.Context, c *competitor.Competitor, previousIndustry string) error {
	n.ids = append(n.ids, c.ID)
	n.previous = append(n.previous, previousIndustry)
	return nil
}

type routerFixture struct {
	handler  http.Handler
	threat   *stubThreatService
	repo     *memRepo
	notifier *recordingNotifier
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "competeiq"}, nil)
	require.NoError(t, err)
	metrics := prometheus.NewAppMetrics(collector)

	f := &routerFixture{threat: &stubThreatService{}, repo: &memRepo{}, notifier: &recordingNotifier{}}
	f.handler = NewRouter(RouterConfig{
		ThreatHandler:    handlers.NewThreatHandler(f.threat),
		ProviderHandler:  handlers.NewProviderHandler(stubAttribution{}, 0),
		ImportHandler:    handlers.NewImportHandler(f.repo, f.repo, f.notifier, nil, 0),
		HealthHandler:    handlers.NewHealthHandler("test", metrics),
		Metrics:          metrics,
		MetricsCollector: collector,
	})
	return f
}

func (f *routerFixture) do(method, path, body string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Health(t *testing.T) {
	f := newRouterFixture(t)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/readyz", "").Code)
}

func TestRouter_Metrics(t *testing.T) {
	f := newRouterFixture(t)
	f.do(http.MethodGet, "/api/v1/competitors/known/threat", "")
	rec := f.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "competeiq_http_requests_total")
}

func TestRouter_CompetitorThreat_AlwaysOK(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(http.MethodGet, "/api/v1/competitors/known/threat", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var a threat.Assessment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
	assert.Equal(t, threat.LevelHigh, a.ThreatLevel)

	rec = f.do(http.MethodGet, "/api/v1/competitors/unknown/threat", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
	assert.True(t, a.IsDefault())
}

func TestRouter_MarketThreat(t *testing.T) {
	f := newRouterFixture(t)
	rec := f.do(http.MethodGet, "/api/v1/markets/technology/threat", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"threatLevel":"medium"`)
	assert.Contains(t, rec.Body.String(), "technology")
}

func TestRouter_ArchiveMarket(t *testing.T) {
	f := newRouterFixture(t)
	rec := f.do(http.MethodPost, "/api/v1/markets/technology/archive", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "reports/market/technology/1.json")

	f.threat.archiveErr = errors.New(errors.ErrCodeFeatureDisabled, "report archive is not configured")
	rec = f.do(http.MethodPost, "/api/v1/markets/technology/archive", "")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
	assert.Contains(t, rec.Body.String(), string(errors.ErrCodeFeatureDisabled))

	f.threat.archiveErr = errors.New(errors.ErrCodeReportArchive, "archive market report")
	rec = f.do(http.MethodPost, "/api/v1/markets/technology/archive", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal server error")
}

func TestRouter_MarketArchives(t *testing.T) {
	f := newRouterFixture(t)
	rec := f.do(http.MethodGet, "/api/v1/markets/technology/reports", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var objs []minio.StoredObject
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &objs))
	require.Len(t, objs, 1)
	assert.Equal(t, "reports/market/technology/1.json", objs[0].Key)

	f.threat.listErr = errors.New(errors.ErrCodeFeatureDisabled, "report archive is not configured")
	rec = f.do(http.MethodGet, "/api/v1/markets/technology/reports", "")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestRouter_Providers(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(http.MethodGet, "/api/v1/analyses/a-1/providers", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"provider":"openai","count":3}]`, rec.Body.String())

	rec = f.do(http.MethodGet, "/api/v1/analyses/missing/providers", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), string(errors.ErrCodeAnalysisNotFound))
}

func TestRouter_CountDocument(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(http.MethodPost, "/api/v1/providers/count", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = f.do(http.MethodPost, "/api/v1/providers/count", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/api/v1/providers/count", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_ImportCompetitor(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(http.MethodPost, "/api/v1/competitors", `{"name":"Acme","industry":"technology","employee_count":120}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, f.repo.saved, 1)
	saved := f.repo.saved[0]
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, competitor.StatusCompleted, saved.Status)
	assert.Equal(t, []string{saved.ID}, f.notifier.ids)

	rec = f.do(http.MethodPost, "/api/v1/competitors", `{"name":"   "}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = f.do(http.MethodPost, "/api/v1/competitors", `{"id":"nope","name":"Acme"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/api/v1/competitors", `{"name":"Acme","employee_count":2147483648}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	rec = f.do(http.MethodPost, "/api/v1/competitors", `{"name":"Acme","founded_year":-2147483649}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Len(t, f.repo.saved, 1)
	assert.Len(t, f.notifier.ids, 1)
}

func TestRouter_ImportCompetitor_ReportsPreviousIndustry(t *testing.T) {
	f := newRouterFixture(t)
	const id = "7f3c2a9e-4b1d-4c8e-9a6f-2d5e8b1c0a47"

	rec := f.do(http.MethodPost, "/api/v1/competitors", `{"id":"`+id+`","name":"Acme","industry":"technology"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = f.do(http.MethodPost, "/api/v1/competitors", `{"id":"`+id+`","name":"Acme","industry":"finance"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	assert.Equal(t, []string{id, id}, f.notifier.ids)
	assert.Equal(t, []string{"", "technology"}, f.notifier.previous)
}

func TestRouter_ImportAnalysis(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(http.MethodPost, "/api/v1/analyses", `{"providers_used":["openai"],"analysis_data":{"openai":{"summary":"x"}}}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, f.repo.analyses, 1)
	assert.NotEmpty(t, f.repo.analyses[0].ID)

	rec = f.do(http.MethodPost, "/api/v1/analyses", `{"competitor_id":"bad"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_NilHandlers_NoPanic(t *testing.T) {
	h := NewRouter(RouterConfig{})
	rec := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/competitors/x/threat", nil))
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_RequestIDHeaderPropagates(t *testing.T) {
	f := newRouterFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", strings.NewReader(""))
	req.Header.Set("X-Request-Id", "req-123")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
