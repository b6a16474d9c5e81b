package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/turtacn/competeiq/internal/application/threatassessment"
	"github.com/turtacn/competeiq/internal/domain/provider"
	"github.com/turtacn/competeiq/internal/domain/threat"
	"github.com/turtacn/competeiq/internal/infrastructure/storage/minio"
)

// assessmentView renders a threat assessment in every output format.
type assessmentView struct {
	*threat.Assessment
}

func (v assessmentView) factorRows() [][]string {
	f := v.Factors
	return [][]string{
		{"market_size", strconv.Itoa(f.MarketSize)},
		{"competitor_strength", strconv.Itoa(f.CompetitorStrength)},
		{"market_position", strconv.Itoa(f.MarketPosition)},
		{"growth_rate", strconv.Itoa(f.GrowthRate)},
		{"resource_strength", strconv.Itoa(f.ResourceStrength)},
	}
}

func (v assessmentView) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Threat level: %s (score %d)\n", v.ThreatLevel, v.Score)
	sb.WriteString("Factors:\n")
	for _, row := range v.factorRows() {
		fmt.Fprintf(&sb, "  %-20s %s\n", row[0], row[1])
	}
	if len(v.Recommendations) > 0 {
		sb.WriteString("Recommendations:\n")
		for _, r := range v.Recommendations {
			fmt.Fprintf(&sb, "  - %s\n", r)
		}
	}
	return sb.String()
}

func (v assessmentView) TableHeaders() []string { return []string{"FACTOR", "SCORE"} }

func (v assessmentView) TableRows() [][]string {
	rows := v.factorRows()
	return append(rows, []string{"overall", fmt.Sprintf("%d (%s)", v.Score, v.ThreatLevel)})
}

// MarshalJSON emits the bare assessment.
func (v assessmentView) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Assessment)
}

type providerCountsView []provider.ProviderCount

func (v providerCountsView) String() string {
	if len(v) == 0 {
		return "No provider data points found\n"
	}
	var sb strings.Builder
	for _, pc := range v {
		fmt.Fprintf(&sb, "%s: %d\n", pc.Provider, pc.Count)
	}
	return sb.String()
}

func (v providerCountsView) TableHeaders() []string { return []string{"PROVIDER", "COUNT"} }

func (v providerCountsView) TableRows() [][]string {
	rows := make([][]string, len(v))
	for i, pc := range v {
		rows[i] = []string{pc.Provider, strconv.Itoa(pc.Count)}
	}
	return rows
}

func (v providerCountsView) MarshalJSON() ([]byte, error) {
	if v == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]provider.ProviderCount(v))
}

type archiveView struct {
	*threatassessment.ArchivedReport
}

func (v archiveView) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Archived %s market report (%d competitors)\n", v.Industry, v.CompetitorCount)
	if v.Object != nil {
		fmt.Fprintf(&sb, "  object: %s/%s (%d bytes)\n", v.Object.Bucket, v.Object.Key, v.Object.Size)
		if v.Object.URL != "" {
			fmt.Fprintf(&sb, "  url:    %s\n", v.Object.URL)
		}
	}
	sb.WriteString(assessmentView{v.Assessment}.String())
	return sb.String()
}

func (v archiveView) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.ArchivedReport)
}

type archiveListView []minio.StoredObject

func (v archiveListView) String() string {
	if len(v) == 0 {
		return "No archived reports\n"
	}
	var sb strings.Builder
	for _, o := range v {
		fmt.Fprintf(&sb, "%s  %s/%s (%d bytes)\n", o.LastModified.UTC().Format(time.RFC3339), o.Bucket, o.Key, o.Size)
	}
	return sb.String()
}

func (v archiveListView) TableHeaders() []string { return []string{"KEY", "SIZE", "LAST MODIFIED"} }

func (v archiveListView) TableRows() [][]string {
	rows := make([][]string, len(v))
	for i, o := range v {
		rows[i] = []string{o.Key, strconv.FormatInt(o.Size, 10), o.LastModified.UTC().Format(time.RFC3339)}
	}
	return rows
}

func (v archiveListView) MarshalJSON() ([]byte, error) {
	if v == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]minio.StoredObject(v))
}
