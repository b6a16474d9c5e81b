package client

import (
	"context"
	"strings"

	"github.com/turtacn/competeiq/pkg/errors"
)

// ImportsClient writes competitors and analyses.
type ImportsClient struct {
	client *Client
}

func (i *ImportsClient) CreateCompetitor(ctx context.Context, c *Competitor) (*Competitor, error) {
	if c == nil || strings.TrimSpace(c.Name) == "" {
		return nil, errors.InvalidParam("competitor name is required")
	}
	var out Competitor
	if err := i.client.post(ctx, "/api/v1/competitors", c, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (i *ImportsClient) CreateAnalysis(ctx context.Context, a *Analysis) (*Analysis, error) {
	if a == nil {
		return nil, errors.InvalidParam("analysis is required")
	}
	var out Analysis
	if err := i.client.post(ctx, "/api/v1/analyses", a, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
