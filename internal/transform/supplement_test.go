package transform

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"smartdoc/internal/model"
)

func pendingDetails() []*model.CanonicalRecord {
	return []*model.CanonicalRecord{
		{RowIndex: 0, DocumentID: "DOC001", ItemName: "产品1", Quantity: 2, Amount: 200,
			RecordType: model.RecordTypeSeparatedPending, NeedsHeaderTable: true, HasDetails: true},
		{RowIndex: 1, DocumentID: "DOC002", ItemName: "产品2", Quantity: 1, Amount: 100,
			RecordType: model.RecordTypeSeparatedPending, NeedsHeaderTable: true, HasDetails: true},
		{RowIndex: 2, DocumentID: "DOC999", ItemName: "产品3", Quantity: 5, Amount: 500,
			RecordType: model.RecordTypeSeparatedPending, NeedsHeaderTable: true, HasDetails: true},
	}
}

func TestJoinWithHeaderTable_LeftJoin(t *testing.T) {
	t.Parallel()

	details := pendingDetails()
	headerRows := rawRows(
		[]string{"单据号", "单据日期", "客户名称", "总金额"},
		[][]string{
			{"DOC001", "2025-01-02", "客户A", "1000"},
			{"DOC002", "2025-01-03", "客户B", "2000"},
		},
	)

	result, err := NewSupplementManager().JoinWithHeaderTable(details, headerRows)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if result.Enriched != 2 || result.Unmatched != 1 {
		t.Fatalf("result = %+v, want 2 enriched / 1 unmatched", result)
	}

	if details[0].Counterparty != "客户A" || details[0].DocumentDate != "2025-01-02" {
		t.Fatalf("DOC001 not enriched: %+v", details[0])
	}
	if details[0].RecordType != model.RecordTypeDetailWithHeader || details[0].NeedsHeaderTable {
		t.Fatalf("DOC001 stamps wrong: %+v", details[0])
	}

	// 未匹配的明细原样通过，不得捏造头数据
	if details[2].Counterparty != "" || !details[2].NeedsHeaderTable {
		t.Fatalf("unmatched detail must pass through untouched: %+v", details[2])
	}
	if details[2].ItemName != "产品3" || details[2].Amount != 500 {
		t.Fatalf("unmatched detail mutated: %+v", details[2])
	}
}

func TestJoinWithHeaderTable_MissingHeaderKey(t *testing.T) {
	t.Parallel()

	headerRows := rawRows(
		[]string{"备注", "客户名称"},
		[][]string{
			{"x", "客户A"},
		},
	)

	_, err := NewSupplementManager().JoinWithHeaderTable(pendingDetails(), headerRows)

	var missing *model.MissingJoinKeyError
	if !errors.As(err, &missing) {
		t.Fatalf("want MissingJoinKeyError, got %v", err)
	}
	if missing.Side != "header" {
		t.Fatalf("side = %s, want header", missing.Side)
	}
}

func TestJoinWithHeaderTable_MissingDetailKey(t *testing.T) {
	t.Parallel()

	details := []*model.CanonicalRecord{
		{RowIndex: 0, DocumentID: "GEN-abc12345", IsSynthesized: true, NeedsHeaderTable: true},
	}
	headerRows := rawRows(
		[]string{"单据号", "客户名称"},
		[][]string{{"DOC001", "客户A"}},
	)

	_, err := NewSupplementManager().JoinWithHeaderTable(details, headerRows)

	var missing *model.MissingJoinKeyError
	if !errors.As(err, &missing) {
		t.Fatalf("want MissingJoinKeyError, got %v", err)
	}
	if missing.Side != "detail" {
		t.Fatalf("side = %s, want detail", missing.Side)
	}
}

func TestApplyRules_FixedOrder(t *testing.T) {
	t.Parallel()

	records := []*model.CanonicalRecord{
		{
			DocumentID: "DOC001",
			Quantity:   3,
			Extras:     map[string]string{"unit_price": "5"},
		},
	}

	// 规则顺序故意倒置：lookup 引用 calculated 写入的金额档位，
	// calculated 又依赖 default_value 补出的数量
	rules := []SupplementRule{
		{Field: "category", Kind: RuleLookup, SourceField: "counterparty", Lookup: map[string]string{"默认客户": "常规"}},
		{Field: "amount", Kind: RuleCalculated, Expression: "quantity*unit_price"},
		{Field: "counterparty", Kind: RuleDefaultValue, Value: "默认客户"},
	}

	if err := NewSupplementManager().ApplyRules(records, rules); err != nil {
		t.Fatalf("apply rules: %v", err)
	}

	r := records[0]
	if r.Counterparty != "默认客户" {
		t.Fatalf("default_value not applied: %+v", r)
	}
	if r.Amount != 15 {
		t.Fatalf("calculated amount = %v, want 15", r.Amount)
	}
	if r.Category != "常规" {
		t.Fatalf("lookup should see fields set by earlier rules, got %q", r.Category)
	}
}

func TestApplyRules_DefaultDoesNotOverwrite(t *testing.T) {
	t.Parallel()

	records := []*model.CanonicalRecord{{Counterparty: "既有客户"}}
	rules := []SupplementRule{
		{Field: "counterparty", Kind: RuleDefaultValue, Value: "默认客户"},
	}

	if err := NewSupplementManager().ApplyRules(records, rules); err != nil {
		t.Fatalf("apply rules: %v", err)
	}
	if records[0].Counterparty != "既有客户" {
		t.Fatalf("default_value must not overwrite: %q", records[0].Counterparty)
	}
}

func TestApplyRules_UnknownKind(t *testing.T) {
	t.Parallel()

	err := NewSupplementManager().ApplyRules(nil, []SupplementRule{{Field: "amount", Kind: "magic"}})
	if err == nil {
		t.Fatalf("unknown rule kind should fail")
	}
}

func TestLoadRules(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `rules:
  - field: counterparty
    kind: default_value
    value: 默认客户
  - field: amount
    kind: calculated
    expression: quantity*unit_price
  - field: category
    kind: lookup
    sourceField: counterparty
    lookup:
      默认客户: 常规
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write rules: %v", err)
	}

	rules, err := LoadRules(path)
	if err != nil {
		t.Fatalf("load rules: %v", err)
	}
	if len(rules) != 3 {
		t.Fatalf("rule count = %d, want 3", len(rules))
	}
	if rules[1].Expression != "quantity*unit_price" {
		t.Fatalf("expression = %q", rules[1].Expression)
	}
	if rules[2].Lookup["默认客户"] != "常规" {
		t.Fatalf("lookup table not parsed: %+v", rules[2].Lookup)
	}
}
