package client

import (
	"context"
	"net/url"
	"strings"

	"github.com/turtacn/competeiq/pkg/errors"
)

// ThreatsClient reads threat assessments.
type ThreatsClient struct {
	client *Client
}

// Competitor assesses one competitor. Unknown ids still yield an assessment
// (the neutral default), never a 404.
func (t *ThreatsClient) Competitor(ctx context.Context, id string) (*Assessment, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.InvalidParam("competitor id is required")
	}
	var out Assessment
	if err := t.client.get(ctx, "/api/v1/competitors/"+url.PathEscape(id)+"/threat", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Market assesses every completed competitor of industry.
func (t *ThreatsClient) Market(ctx context.Context, industry string) (*Assessment, error) {
	if strings.TrimSpace(industry) == "" {
		return nil, errors.InvalidParam("industry is required")
	}
	var out Assessment
	if err := t.client.get(ctx, "/api/v1/markets/"+url.PathEscape(industry)+"/threat", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ArchiveMarket assesses industry and stores the report on the server.
func (t *ThreatsClient) ArchiveMarket(ctx context.Context, industry string) (*ArchivedReport, error) {
	if strings.TrimSpace(industry) == "" {
		return nil, errors.InvalidParam("industry is required")
	}
	var out ArchivedReport
	if err := t.client.post(ctx, "/api/v1/markets/"+url.PathEscape(industry)+"/archive", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListMarketArchives lists the reports archived for industry, newest first.
func (t *ThreatsClient) ListMarketArchives(ctx context.Context, industry string) ([]ArchivedObject, error) {
	if strings.TrimSpace(industry) == "" {
		return nil, errors.InvalidParam("industry is required")
	}
	out := []ArchivedObject{}
	if err := t.client.get(ctx, "/api/v1/markets/"+url.PathEscape(industry)+"/reports", &out); err != nil {
		return nil, err
	}
	return out, nil
}
