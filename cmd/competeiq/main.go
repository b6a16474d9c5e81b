// Command competeiq is the CompeteIQ command-line client.
package main

import (
	"context"
	"os"

	"github.com/turtacn/competeiq/internal/application/attribution"
	"github.com/turtacn/competeiq/internal/application/threatassessment"
	"github.com/turtacn/competeiq/internal/bootstrap"
	"github.com/turtacn/competeiq/internal/config"
	"github.com/turtacn/competeiq/internal/infrastructure/database/postgres"
	"github.com/turtacn/competeiq/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/competeiq/internal/interfaces/cli"
)

// Build-time variables injected via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func init() {
	cli.Version = version
	cli.GitCommit = commit
	cli.BuildDate = buildDate
}

// backend adapts the bootstrapped infrastructure to the CLI.
type backend struct {
	infra     *bootstrap.Infrastructure
	threat    threatassessment.Service
	migrators []*postgres.Migrator
}

func openBackend(ctx context.Context, cfg *config.Config, log logging.Logger) (cli.Backend, error) {
	infra, err := bootstrap.Open(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	svc, err := infra.ThreatService()
	if err != nil {
		_ = infra.Close()
		return nil, err
	}
	return &backend{infra: infra, threat: svc}, nil
}

func (b *backend) Threat() threatassessment.Service { return b.threat }

func (b *backend) Attribution() attribution.Service { return b.infra.AttributionService() }

func (b *backend) Migrator() (cli.Migrator, error) {
	m, err := b.infra.Migrator()
	if err != nil {
		return nil, err
	}
	b.migrators = append(b.migrators, m)
	return m, nil
}

func (b *backend) Close() error {
	for _, m := range b.migrators {
		_ = m.Close()
	}
	return b.infra.Close()
}

func main() {
	if err := cli.Execute(openBackend); err != nil {
		os.Exit(1)
	}
}
