package provider

// Shape names one historical layout of an analysis_data blob.
type Shape uint8

const (
	// ShapeUnknown matches nothing and contributes no counts.
	ShapeUnknown Shape = 0

	// ShapeResultsArray: analysis_data.results is a list of per-provider rows.
	ShapeResultsArray Shape = 1 << iota

	// ShapeKeyedMap: company name → {data, success, analysis_id}. Legacy.
	ShapeKeyedMap

	// ShapeProvenanceMap: analysis_data.provenance_map is field → {provider}.
	ShapeProvenanceMap

	// ShapeProviderResultsMap: analysis_data.provider_results is provider → rows.
	ShapeProviderResultsMap
)

// Shapes in dispatch order.
var orderedShapes = []Shape{
	ShapeResultsArray,
	ShapeKeyedMap,
	ShapeProvenanceMap,
	ShapeProviderResultsMap,
}

func (s Shape) String() string {
	switch s {
	case ShapeResultsArray:
		return "results_array"
	case ShapeKeyedMap:
		return "keyed_map"
	case ShapeProvenanceMap:
		return "provenance_map"
	case ShapeProviderResultsMap:
		return "provider_results_map"
	case ShapeUnknown:
		return "unknown"
	}
	return "mixed"
}

// ShapeSet is the set of shapes detected in one blob. Newer pipelines write
// results and provenance side by side, so shapes are not exclusive.
type ShapeSet Shape

// Has reports whether shape s was detected.
func (ss ShapeSet) Has(s Shape) bool {
	return s != ShapeUnknown && Shape(ss)&s == s
}

// IsUnknown reports whether no shape was detected.
func (ss ShapeSet) IsUnknown() bool {
	return ss == 0
}

// Shapes lists the detected shapes in dispatch order.
func (ss ShapeSet) Shapes() []Shape {
	var out []Shape
	for _, s := range orderedShapes {
		if ss.Has(s) {
			out = append(out, s)
		}
	}
	return out
}

// DetectShapes inspects analysisData and returns every layout it matches.
// The keyed map is only considered when there is no results array.
func DetectShapes(analysisData map[string]any) ShapeSet {
	var ss ShapeSet
	if analysisData == nil {
		return ss
	}
	if _, ok := analysisData["results"].([]any); ok {
		ss |= ShapeSet(ShapeResultsArray)
	} else if len(keyedEntries(analysisData)) > 0 {
		ss |= ShapeSet(ShapeKeyedMap)
	}
	if _, ok := analysisData["provenance_map"].(map[string]any); ok {
		ss |= ShapeSet(ShapeProvenanceMap)
	}
	if _, ok := analysisData["provider_results"].(map[string]any); ok {
		ss |= ShapeSet(ShapeProviderResultsMap)
	}
	return ss
}

// keyedEntries returns the values of analysisData that look like keyed
// company entries, in key order.
func keyedEntries(analysisData map[string]any) []map[string]any {
	keys := sortedKeys(analysisData)
	var out []map[string]any
	for _, k := range keys {
		if _, reserved := structuralKeys[k]; reserved {
			continue
		}
		entry, ok := analysisData[k].(map[string]any)
		if !ok {
			continue
		}
		if isKeyedEntry(entry) {
			out = append(out, entry)
		}
	}
	return out
}

// structuralKeys belong to the other layouts and are never company entries.
var structuralKeys = map[string]struct{}{
	"results":           {},
	"provenance_map":    {},
	"provider_results":  {},
	"providers_used":    {},
	"confidence_scores": {},
}

func isKeyedEntry(entry map[string]any) bool {
	for _, k := range []string{"data", "success", "analysis_id"} {
		if _, ok := entry[k]; ok {
			return true
		}
	}
	return false
}
