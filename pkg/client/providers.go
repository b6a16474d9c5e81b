package client

import (
	"context"
	"net/url"
	"strings"

	"github.com/turtacn/competeiq/pkg/errors"
)

// ProvidersClient attributes analysis data points to providers.
type ProvidersClient struct {
	client *Client
}

// ForAnalysis counts providers of a stored analysis.
func (p *ProvidersClient) ForAnalysis(ctx context.Context, analysisID string) ([]ProviderCount, error) {
	if strings.TrimSpace(analysisID) == "" {
		return nil, errors.InvalidParam("analysis id is required")
	}
	var out []ProviderCount
	if err := p.client.get(ctx, "/api/v1/analyses/"+url.PathEscape(analysisID)+"/providers", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountDocument counts providers of an analysis document that is not stored.
func (p *ProvidersClient) CountDocument(ctx context.Context, doc map[string]any) ([]ProviderCount, error) {
	if doc == nil {
		doc = map[string]any{}
	}
	var out []ProviderCount
	if err := p.client.post(ctx, "/api/v1/providers/count", doc, &out); err != nil {
		return nil, err
	}
	return out, nil
}
