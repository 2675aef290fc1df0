package parser

import (
	"errors"
	"testing"

	"smartdoc/internal/model"
)

func TestParseRows_CSV(t *testing.T) {
	t.Parallel()

	data := []byte("单据号,客户,金额\nDOC001,客户A,1000\nDOC002,客户B,500\n")
	records, err := ParseRows(data, "csv")
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("row count = %d, want 2", len(records))
	}
	if records[0].RowIndex != 0 || records[1].RowIndex != 1 {
		t.Fatalf("row index not zero-based: %+v", records)
	}
	if got := records[1].Get("客户"); got != "客户B" {
		t.Fatalf("value mismatch: %q", got)
	}
	if len(records[0].Columns) != 3 {
		t.Fatalf("column count = %d, want 3", len(records[0].Columns))
	}
}

func TestParseRows_CSV_RaggedRow(t *testing.T) {
	t.Parallel()

	data := []byte("单据号,客户,金额\nDOC001,客户A\n")
	records, err := ParseRows(data, "csv")
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if got := records[0].Get("金额"); got != "" {
		t.Fatalf("missing cell should be empty, got %q", got)
	}
}

func TestParseRows_JSON(t *testing.T) {
	t.Parallel()

	data := []byte(`[{"单据号":"DOC001","金额":1000},{"单据号":"DOC002","金额":500.5}]`)
	records, err := ParseRows(data, "json")
	if err != nil {
		t.Fatalf("parse json: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("row count = %d, want 2", len(records))
	}
	if got := records[0].Get("金额"); got != "1000" {
		t.Fatalf("integer-valued amount rendered as %q", got)
	}
	if got := records[1].Get("金额"); got != "500.5" {
		t.Fatalf("amount rendered as %q", got)
	}
}

func TestParseRows_XML(t *testing.T) {
	t.Parallel()

	data := []byte(`<rows><row><单据号>DOC001</单据号><金额>1000</金额></row><row><单据号>DOC002</单据号><金额>500</金额></row></rows>`)
	records, err := ParseRows(data, "xml")
	if err != nil {
		t.Fatalf("parse xml: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("row count = %d, want 2", len(records))
	}
	if got := records[1].Get("单据号"); got != "DOC002" {
		t.Fatalf("value mismatch: %q", got)
	}
}

func TestParseRows_EmptyCSV(t *testing.T) {
	t.Parallel()

	_, err := ParseRows([]byte("单据号,金额\n"), "csv")
	var emptyErr *model.DataEmptyError
	if !errors.As(err, &emptyErr) {
		t.Fatalf("want DataEmptyError, got %v", err)
	}
}

func TestParseRows_UnknownFormat(t *testing.T) {
	t.Parallel()

	if _, err := ParseRows([]byte("x"), "parquet"); err == nil {
		t.Fatalf("unknown format should fail")
	}
}
