package matcher

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"smartdoc/internal/model"
)

func testCatalog() []model.CatalogEntity {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	return []model.CatalogEntity{
		{ID: "C001", EntityType: "customer", Name: "上海华宇贸易有限公司",
			Aliases: []string{"华宇贸易", "华宇"}, UpdatedAt: base},
		{ID: "C002", EntityType: "customer", Name: "北京盛达科技有限公司",
			Aliases: []string{"盛达科技"}, UpdatedAt: base.Add(time.Hour)},
		{ID: "C003", EntityType: "customer", Name: "Acme Corporation",
			UpdatedAt: base.Add(2 * time.Hour)},
	}
}

func matchConfig() model.MatchConfig {
	return model.MatchConfig{EntityType: "customer", MatchFields: []string{"name", "alias"}}
}

func TestMatchBatch_Exact(t *testing.T) {
	t.Parallel()

	m := NewMatcher(DefaultMatcherConfig())
	results, stats, err := m.MatchBatch([]string{"acme corporation"}, matchConfig(), testCatalog())
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	r := results[0]
	if r.MatchType != model.MatchExact || r.Confidence != 1.0 {
		t.Fatalf("exact match wrong: %+v", r)
	}
	if r.MatchedEntityID != "C003" {
		t.Fatalf("entity id = %s", r.MatchedEntityID)
	}
	if stats.Matched != 1 || stats.MatchRate != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestMatchBatch_Alias(t *testing.T) {
	t.Parallel()

	m := NewMatcher(DefaultMatcherConfig())
	results, _, err := m.MatchBatch([]string{"华宇贸易"}, matchConfig(), testCatalog())
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	r := results[0]
	if r.MatchType != model.MatchAlias || r.Confidence != 0.95 {
		t.Fatalf("alias match wrong: %+v", r)
	}
	if r.MatchedEntityID != "C001" {
		t.Fatalf("entity id = %s", r.MatchedEntityID)
	}
}

func TestMatchBatch_Fuzzy(t *testing.T) {
	t.Parallel()

	m := NewMatcher(DefaultMatcherConfig())
	// 一字之差：上海华宇贸易有限公司 vs 上海华宇商贸有限公司
	results, _, err := m.MatchBatch([]string{"上海华宇商贸有限公司"}, matchConfig(), testCatalog())
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	r := results[0]
	if r.MatchType != model.MatchFuzzy {
		t.Fatalf("fuzzy match wrong: %+v", r)
	}
	if r.Confidence < 0.8 || r.Confidence >= 1.0 {
		t.Fatalf("fuzzy confidence out of band: %v", r.Confidence)
	}
	if r.MatchedEntityID != "C001" {
		t.Fatalf("entity id = %s", r.MatchedEntityID)
	}
}

func TestMatchBatch_None(t *testing.T) {
	t.Parallel()

	m := NewMatcher(DefaultMatcherConfig())
	results, stats, err := m.MatchBatch([]string{"完全无关的名称XYZ"}, matchConfig(), testCatalog())
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	r := results[0]
	if r.MatchType != model.MatchNone {
		t.Fatalf("want none, got %+v", r)
	}
	if r.MatchedEntityID != "" {
		t.Fatalf("entity id must be empty on no-match")
	}
	if stats.Unmatched != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestMatchBatch_PreservesInputOrder(t *testing.T) {
	t.Parallel()

	values := []string{"acme corporation", "没有这个客户", "华宇"}
	m := NewMatcher(DefaultMatcherConfig())
	results, _, err := m.MatchBatch(values, matchConfig(), testCatalog())
	if err != nil {
		t.Fatalf("match: %v", err)
	}

	got := make([]string, len(results))
	for i, r := range results {
		got[i] = r.SourceValue
	}
	if !reflect.DeepEqual(got, values) {
		t.Fatalf("order changed: %v", got)
	}
}

func TestMatchBatch_Idempotent(t *testing.T) {
	t.Parallel()

	values := []string{"acme corporation", "上海华宇商贸有限公司", "没有这个客户"}
	m := NewMatcher(DefaultMatcherConfig())

	first, _, err := m.MatchBatch(values, matchConfig(), testCatalog())
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, _, err := m.MatchBatch(values, matchConfig(), testCatalog())
		if err != nil {
			t.Fatalf("match #%d: %v", i, err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("nondeterministic batch: %+v vs %+v", first, again)
		}
	}
}

func TestMatchBatch_InvalidConfig(t *testing.T) {
	t.Parallel()

	m := NewMatcher(DefaultMatcherConfig())

	_, _, err := m.MatchBatch([]string{"x"}, model.MatchConfig{}, testCatalog())
	var invalid *model.InvalidMatchConfigError
	if !errors.As(err, &invalid) {
		t.Fatalf("want InvalidMatchConfigError, got %v", err)
	}

	_, _, err = m.MatchBatch([]string{"x"},
		model.MatchConfig{EntityType: "customer"}, testCatalog())
	if !errors.As(err, &invalid) {
		t.Fatalf("want InvalidMatchConfigError for empty matchFields, got %v", err)
	}
}

func TestUniqueValues(t *testing.T) {
	t.Parallel()

	records := []*model.CanonicalRecord{
		{Counterparty: "客户A"},
		{Counterparty: "客户B"},
		{Counterparty: "客户A"},
		{Counterparty: " "},
	}
	got := UniqueValues(records, func(r *model.CanonicalRecord) string { return r.Counterparty })
	want := []string{"客户A", "客户B"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unique values = %v", got)
	}
}
