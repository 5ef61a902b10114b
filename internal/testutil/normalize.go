package testutil

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
)

// FixturePlaceholder replaces the absolute fixture root in golden data.
const FixturePlaceholder = "<fixture>"

// Normalizer defines the interface for normalizing golden test data.
type Normalizer interface {
	// Normalize processes the data for stable comparison.
	Normalize(t *testing.T, fixture *FixtureContext, data any) any
}

// DefaultNormalizer rewrites fixture paths and drops volatile fields.
// Slice order is kept: listings and trees are ordered by contract.
type DefaultNormalizer struct{}

// Normalize applies all normalization rules for stable golden comparison.
// This is called before both compare AND update operations.
func (n *DefaultNormalizer) Normalize(t *testing.T, fixture *FixtureContext, data any) any {
	t.Helper()

	// Deep copy via JSON round-trip to avoid modifying original
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("Failed to marshal data for normalization: %v", err)
	}

	var normalized any
	if err := json.Unmarshal(jsonBytes, &normalized); err != nil {
		t.Fatalf("Failed to unmarshal data for normalization: %v", err)
	}

	return n.normalizeValue(normalized, fixture.Root)
}

func (n *DefaultNormalizer) normalizeValue(v any, fixtureRoot string) any {
	switch val := v.(type) {
	case map[string]any:
		result := make(map[string]any, len(val))
		for k, item := range val {
			if isVolatileField(k) {
				continue
			}
			result[k] = n.normalizeValue(item, fixtureRoot)
		}
		return result
	case []any:
		result := make([]any, len(val))
		for i, item := range val {
			result[i] = n.normalizeValue(item, fixtureRoot)
		}
		return result
	case string:
		return NormalizePath(val, fixtureRoot)
	default:
		return v
	}
}

// NormalizePath replaces the fixture root with FixturePlaceholder and uses
// forward slashes.
func NormalizePath(s, fixtureRoot string) string {
	if fixtureRoot != "" {
		s = strings.ReplaceAll(s, fixtureRoot, FixturePlaceholder)
		s = strings.ReplaceAll(s, filepath.ToSlash(fixtureRoot), FixturePlaceholder)
	}
	return strings.ReplaceAll(s, "\\", "/")
}

func isVolatileField(name string) bool {
	switch name {
	case "timestamp", "loadedAt", "durationMs", "requestID":
		return true
	}
	return false
}

// MarshalNormalized normalizes data and marshals it to stable JSON bytes:
// sorted object keys, 2-space indentation, trailing newline.
func MarshalNormalized(t *testing.T, fixture *FixtureContext, data any) []byte {
	t.Helper()

	normalizer := &DefaultNormalizer{}
	normalized := normalizer.Normalize(t, fixture, data)

	// encoding/json sorts map keys, which the round trip produced everywhere.
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(normalized); err != nil {
		t.Fatalf("Failed to marshal normalized data: %v", err)
	}
	return buf.Bytes()
}
