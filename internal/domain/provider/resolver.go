package provider

import (
	"sort"
	"strings"
)

// UnknownProvider is attributed keyed-map data when no provider signal exists.
const UnknownProvider = "unknown"

// DefaultKnownProviders are matched, in order, against citation sources.
var DefaultKnownProviders = []string{"openai", "anthropic", "perplexity", "gemini", "groq", "cohere"}

// ProviderCount is the number of data points attributed to one provider.
type ProviderCount struct {
	Provider string `json:"provider"`
	Count    int    `json:"count"`
}

// Resolver extracts provider counts from heterogeneous analysis records.
// A Resolver is immutable after construction.
type Resolver struct {
	knownProviders []string
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithKnownProviders replaces the provider names matched in source citations.
func WithKnownProviders(names ...string) ResolverOption {
	return func(r *Resolver) {
		r.knownProviders = make([]string, 0, len(names))
		for _, n := range names {
			if n = strings.ToLower(strings.TrimSpace(n)); n != "" {
				r.knownProviders = append(r.knownProviders, n)
			}
		}
	}
}

// NewResolver returns a Resolver using DefaultKnownProviders unless overridden.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{knownProviders: append([]string(nil), DefaultKnownProviders...)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var defaultResolver = NewResolver()

// ExtractProviderCounts resolves record with the default Resolver.
func ExtractProviderCounts(record map[string]any) []ProviderCount {
	return defaultResolver.ExtractProviderCounts(record)
}

// ExtractProviderCounts attributes the data points in record to providers.
// Evidence is gathered in additive passes so every historical layout of the
// record contributes what it can; unrecognised layouts contribute nothing.
// The result is sorted by count, descending. Zero-count providers are dropped
// unless every provider has zero.
func (r *Resolver) ExtractProviderCounts(record map[string]any) []ProviderCount {
	t := newTally()
	if record == nil {
		return t.result()
	}
	analysisData, _ := record["analysis_data"].(map[string]any)

	// Declared providers.
	var declared []string
	declared = append(declared, stringList(record["providers_used"])...)
	declared = append(declared, stringList(analysisData["providers_used"])...)
	for _, p := range declared {
		t.ensure(p)
	}

	overall := overallScores(record)
	shapes := DetectShapes(analysisData)
	for _, shape := range shapes.Shapes() {
		switch shape {
		case ShapeResultsArray:
			addResults(t, analysisData)
		case ShapeKeyedMap:
			addKeyed(t, analysisData, inferKeyedProvider(overall, declared))
		case ShapeProvenanceMap:
			addProvenance(t, analysisData)
		case ShapeProviderResultsMap:
			addProviderResults(t, analysisData)
		}
	}

	for _, k := range sortedKeys(overall) {
		t.ensure(k)
	}

	r.addCitations(t, record["source_citations"])

	return t.result()
}

func addResults(t *tally, analysisData map[string]any) {
	results, _ := analysisData["results"].([]any)
	for _, el := range results {
		row, ok := el.(map[string]any)
		if !ok {
			continue
		}
		name := firstString(row, "api_provider", "provider", "source_provider", "source")
		if name == "" {
			continue
		}
		t.add(name, CountDataPoints(row))
	}
}

func inferKeyedProvider(overall map[string]any, declared []string) string {
	if len(overall) == 1 {
		for k := range overall {
			if k = strings.TrimSpace(k); k != "" {
				return k
			}
		}
	}
	for _, p := range declared {
		if p != "" {
			return p
		}
	}
	return UnknownProvider
}

func addKeyed(t *tally, analysisData map[string]any, name string) {
	for _, entry := range keyedEntries(analysisData) {
		payload := any(entry)
		if data, ok := entry["data"]; ok {
			payload = data
		}
		if n := CountDataPoints(payload); n > 0 {
			t.add(name, n)
		}
	}
}

func addProvenance(t *tally, analysisData map[string]any) {
	provenance, _ := analysisData["provenance_map"].(map[string]any)
	for _, field := range sortedKeys(provenance) {
		ref, ok := provenance[field].(map[string]any)
		if !ok {
			continue
		}
		if name := firstString(ref, "provider"); name != "" {
			t.add(name, 1)
		}
	}
}

func addProviderResults(t *tally, analysisData map[string]any) {
	results, _ := analysisData["provider_results"].(map[string]any)
	for _, name := range sortedKeys(results) {
		switch v := results[name].(type) {
		case []any:
			sum := 0
			for _, el := range v {
				sum += CountDataPoints(el)
			}
			t.add(name, sum)
		case map[string]any:
			t.add(name, CountDataPoints(v))
		}
	}
}

func (r *Resolver) addCitations(t *tally, citations any) {
	list, _ := citations.([]any)
	for _, el := range list {
		c, ok := el.(map[string]any)
		if !ok {
			continue
		}
		src, _ := c["source"].(string)
		src = strings.ToLower(src)
		if src == "" {
			continue
		}
		for _, known := range r.knownProviders {
			if strings.Contains(src, known) {
				t.add(known, 1)
				break
			}
		}
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// tally
// ─────────────────────────────────────────────────────────────────────────────

// tally keeps counts in first-seen order so equal counts sort stably.
type tally struct {
	order  []string
	counts map[string]int
}

func newTally() *tally {
	return &tally{counts: make(map[string]int)}
}

func (t *tally) ensure(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	if _, ok := t.counts[name]; !ok {
		t.counts[name] = 0
		t.order = append(t.order, name)
	}
}

func (t *tally) add(name string, n int) {
	name = strings.TrimSpace(name)
	if name == "" || n < 0 {
		return
	}
	t.ensure(name)
	t.counts[name] += n
}

func (t *tally) result() []ProviderCount {
	out := make([]ProviderCount, 0, len(t.order))
	anyPositive := false
	for _, name := range t.order {
		if t.counts[name] > 0 {
			anyPositive = true
			break
		}
	}
	for _, name := range t.order {
		c := t.counts[name]
		if anyPositive && c == 0 {
			continue
		}
		out = append(out, ProviderCount{Provider: name, Count: c})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// helpers
// ─────────────────────────────────────────────────────────────────────────────

func overallScores(record map[string]any) map[string]any {
	scores, _ := record["confidence_scores"].(map[string]any)
	overall, _ := scores["overall"].(map[string]any)
	return overall
}

func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, el := range list {
			if s, ok := el.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	}
	return nil
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
