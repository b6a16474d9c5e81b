package attribution

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/competeiq/internal/domain/competitor"
	"github.com/turtacn/competeiq/internal/domain/provider"
	"github.com/turtacn/competeiq/pkg/errors"
)

type mockAnalysisRepo struct {
	mock.Mock
}

func (m *mockAnalysisRepo) GetAnalysisByID(ctx context.Context, id string) (*competitor.Analysis, error) {
	args := m.Called(ctx, id)
	a, _ := args.Get(0).(*competitor.Analysis)
	return a, args.Error(1)
}

func (m *mockAnalysisRepo) SaveAnalysis(ctx context.Context, a *competitor.Analysis) error {
	return m.Called(ctx, a).Error(0)
}

func TestProviderCounts_StoredAnalysis(t *testing.T) {
	repo := &mockAnalysisRepo{}
	repo.On("GetAnalysisByID", mock.Anything, "a-1").Return(&competitor.Analysis{
		ID:            "a-1",
		ProvidersUsed: []string{"openai", "anthropic"},
		AnalysisData: map[string]any{
			"openai":    map[string]any{"summary": "x", "strengths": []any{"a", "b"}},
			"anthropic": map[string]any{"summary": "y"},
		},
	}, nil)

	svc := NewService(repo, nil, nil, nil)
	counts, err := svc.ProviderCounts(context.Background(), " a-1 ")
	require.NoError(t, err)

	want := provider.ExtractProviderCounts((&competitor.Analysis{
		ProvidersUsed: []string{"openai", "anthropic"},
		AnalysisData: map[string]any{
			"openai":    map[string]any{"summary": "x", "strengths": []any{"a", "b"}},
			"anthropic": map[string]any{"summary": "y"},
		},
	}).Document())
	assert.Equal(t, want, counts)
	assert.NotEmpty(t, counts)
	repo.AssertExpectations(t)
}

func TestProviderCounts_NotFound(t *testing.T) {
	repo := &mockAnalysisRepo{}
	repo.On("GetAnalysisByID", mock.Anything, "missing").
		Return(nil, errors.New(errors.ErrCodeAnalysisNotFound, "analysis not found"))

	_, err := NewService(repo, nil, nil, nil).ProviderCounts(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestProviderCounts_NilAnalysisIsNotFound(t *testing.T) {
	repo := &mockAnalysisRepo{}
	repo.On("GetAnalysisByID", mock.Anything, "ghost").Return(nil, nil)

	_, err := NewService(repo, nil, nil, nil).ProviderCounts(context.Background(), "ghost")
	assert.True(t, errors.IsCode(err, errors.ErrCodeAnalysisNotFound))
}

func TestProviderCounts_StoreErrorKeepsCode(t *testing.T) {
	repo := &mockAnalysisRepo{}
	repo.On("GetAnalysisByID", mock.Anything, "a-2").
		Return(nil, errors.Wrap(stderrors.New("conn refused"), errors.ErrCodeDatabaseError, "get analysis"))

	_, err := NewService(repo, nil, nil, nil).ProviderCounts(context.Background(), "a-2")
	assert.Equal(t, errors.ErrCodeDatabaseError, errors.GetCode(err))
}

func TestProviderCounts_EmptyID(t *testing.T) {
	_, err := NewService(&mockAnalysisRepo{}, nil, nil, nil).ProviderCounts(context.Background(), "")
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))
}

func TestProviderCountsFromDocument(t *testing.T) {
	doc := map[string]any{
		"source_citations": []any{
			map[string]any{"source": "Perplexity search"},
			map[string]any{"source": "perplexity"},
		},
	}
	svc := NewService(nil, provider.NewResolver(provider.WithKnownProviders("perplexity")), nil, nil)
	assert.Equal(t, provider.ExtractProviderCounts(doc), svc.ProviderCountsFromDocument(doc))
	assert.Empty(t, svc.ProviderCountsFromDocument(map[string]any{}))
}
