package parser

import "testing"

func TestResolveField(t *testing.T) {
	t.Parallel()

	cases := map[string]CanonicalField{
		"单据号":         FieldDocumentID,
		"订单编号":        FieldDocumentID,
		"Document_No": FieldDocumentID,
		"客户名称":        FieldCounterparty,
		"客户":          FieldCounterparty,
		"供应商名称":       FieldCounterparty,
		"单据日期":        FieldDocumentDate,
		"总金额":         FieldTotalAmount,
		"金额合计(元)":     FieldTotalAmount,
		"金额":          FieldAmount,
		"产品名称":        FieldItemName,
		"商品名称":        FieldItemName,
		"数量":          FieldQuantity,
		"单价":          FieldUnitPrice,
		"类别":          FieldCategory,
		"业务类型":        FieldDocumentType,
	}

	for col, want := range cases {
		got, ok := ResolveField(col)
		if !ok {
			t.Fatalf("column %q not resolved", col)
		}
		if got != want {
			t.Fatalf("column %q resolved to %s, want %s", col, got, want)
		}
	}

	if _, ok := ResolveField("备注"); ok {
		t.Fatalf("unrelated column should not resolve")
	}
	if _, ok := ResolveField("  "); ok {
		t.Fatalf("blank column should not resolve")
	}
}

func TestBuildFieldIndex_FirstMatchWins(t *testing.T) {
	t.Parallel()

	index := BuildFieldIndex([]string{"单据号", "发票号", "客户名称", "金额"})

	if col, _ := index.Column(FieldDocumentID); col != "单据号" {
		t.Fatalf("document_id should bind the first matching column, got %q", col)
	}
	if index.HeaderFieldCount() != 2 {
		t.Fatalf("header field count = %d, want 2", index.HeaderFieldCount())
	}
	if index.DetailFieldCount() != 1 {
		t.Fatalf("detail field count = %d, want 1", index.DetailFieldCount())
	}
}

func TestFindJoinKey(t *testing.T) {
	t.Parallel()

	if key, ok := FindJoinKey([]string{"产品名称", "数量", "订单号"}); !ok || key != "订单号" {
		t.Fatalf("join key = %q ok=%v", key, ok)
	}
	if _, ok := FindJoinKey([]string{"产品名称", "数量"}); ok {
		t.Fatalf("join key should be absent")
	}
}

func TestNormalizeColumnName(t *testing.T) {
	t.Parallel()

	if got := NormalizeColumnName(" 单据号\n"); got != "单据号" {
		t.Fatalf("normalize: %q", got)
	}
	if got := NormalizeColumnName("金额（元）"); got != "金额(元)" {
		t.Fatalf("normalize fullwidth: %q", got)
	}
	if got := NormalizeColumnName("Total Amount"); got != "totalamount" {
		t.Fatalf("normalize lower: %q", got)
	}
}
