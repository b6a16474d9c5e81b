// Package provider attributes analysis volume to the AI providers that
// produced it. Everything here is pure and safe for concurrent use.
package provider

import (
	"encoding/json"
	"reflect"
	"strings"
)

// metadataKeys are bookkeeping fields that never count as data evidence.
var metadataKeys = map[string]struct{}{
	"api_provider":      {},
	"provider":          {},
	"source":            {},
	"source_provider":   {},
	"status":            {},
	"error":             {},
	"session_id":        {},
	"analyzed_at":       {},
	"analysis_method":   {},
	"confidence_scores": {},
	"providers_used":    {},
	"providers_skipped": {},
}

// IsMetadataKey reports whether key is excluded from data point counting.
func IsMetadataKey(key string) bool {
	_, ok := metadataKeys[key]
	return ok
}

// CountDataPoints counts the meaningful primitive leaves of a JSON-like value.
//
//	nil                      0
//	string                   1 when non-blank after trimming
//	number, bool             1, zero and false included
//	array                    sum over primitive elements, or 1 when that sum
//	                         is 0 for a non-empty array
//	object                   recursive sum over non-metadata keys
//
// Values of any other kind count as 0.
func CountDataPoints(value any) int {
	switch v := value.(type) {
	case nil:
		return 0
	case string:
		return countString(v)
	case bool, json.Number,
		float64, float32,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return 1
	case []any:
		sum := 0
		for _, el := range v {
			sum += countPrimitive(el)
		}
		return arrayCount(sum, len(v))
	case map[string]any:
		sum := 0
		for k, el := range v {
			if IsMetadataKey(k) {
				continue
			}
			sum += CountDataPoints(el)
		}
		return sum
	}
	return countReflect(reflect.ValueOf(value))
}

func countString(s string) int {
	if strings.TrimSpace(s) == "" {
		return 0
	}
	return 1
}

func arrayCount(sum, n int) int {
	if sum == 0 && n > 0 {
		return 1
	}
	return sum
}

// countPrimitive counts an array element. Nested arrays and objects count 0.
func countPrimitive(value any) int {
	if value == nil {
		return 0
	}
	switch v := value.(type) {
	case string:
		return countString(v)
	case json.Number:
		return 1
	}
	switch kindOf(reflect.ValueOf(value)) {
	case kindString:
		return countString(reflect.ValueOf(value).String())
	case kindScalar:
		return 1
	}
	return 0
}

type valueKind int

const (
	kindOther valueKind = iota
	kindString
	kindScalar
	kindList
	kindObject
)

func kindOf(rv reflect.Value) valueKind {
	switch rv.Kind() {
	case reflect.String:
		return kindString
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return kindScalar
	case reflect.Slice, reflect.Array:
		return kindList
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			return kindObject
		}
	}
	return kindOther
}

// countReflect covers typed Go values ([]string, map[string]int, named
// string types) that did not come from encoding/json.
func countReflect(rv reflect.Value) int {
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return 0
		}
		rv = rv.Elem()
	}
	switch kindOf(rv) {
	case kindString:
		return countString(rv.String())
	case kindScalar:
		return 1
	case kindList:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return 0
		}
		sum := 0
		for i := 0; i < rv.Len(); i++ {
			sum += countPrimitive(rv.Index(i).Interface())
		}
		return arrayCount(sum, rv.Len())
	case kindObject:
		sum := 0
		iter := rv.MapRange()
		for iter.Next() {
			if IsMetadataKey(iter.Key().String()) {
				continue
			}
			sum += CountDataPoints(iter.Value().Interface())
		}
		return sum
	}
	return 0
}
