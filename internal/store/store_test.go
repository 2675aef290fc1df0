package store

import (
	"path/filepath"
	"testing"
	"time"

	"smartdoc/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "smartdoc.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUploadLogLifecycle(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	if err := s.CreateUploadLog("up-1", "sales.csv", "csv", 2048, "abc123", "erp", "sales_order"); err != nil {
		t.Fatalf("CreateUploadLog() error = %v", err)
	}

	log, err := s.GetUploadLog("up-1")
	if err != nil {
		t.Fatalf("GetUploadLog() error = %v", err)
	}
	if log.Status != "processing" {
		t.Errorf("status = %q, want processing", log.Status)
	}
	if log.Filename != "sales.csv" || log.FileSize != 2048 {
		t.Errorf("unexpected log: %+v", log)
	}

	detection := model.FormatDetection{FormatType: model.FormatFirstRowHeader, Confidence: 0.92}
	if err := s.CompleteUploadLog("up-1", 120, 8, detection, model.PathFast); err != nil {
		t.Fatalf("CompleteUploadLog() error = %v", err)
	}

	log, err = s.GetUploadLog("up-1")
	if err != nil {
		t.Fatalf("GetUploadLog() after complete error = %v", err)
	}
	if log.Status != "completed" {
		t.Errorf("status = %q, want completed", log.Status)
	}
	if log.FormatType != string(model.FormatFirstRowHeader) || log.RoutingPath != string(model.PathFast) {
		t.Errorf("unexpected completed log: %+v", log)
	}
	if log.CompletedAt == nil {
		t.Error("CompletedAt should be set after completion")
	}
}

func TestFailUploadLog(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	if err := s.CreateUploadLog("up-2", "bad.xml", "xml", 10, "loc", "", ""); err != nil {
		t.Fatalf("CreateUploadLog() error = %v", err)
	}
	if err := s.FailUploadLog("up-2", "解析失败"); err != nil {
		t.Fatalf("FailUploadLog() error = %v", err)
	}

	log, err := s.GetUploadLog("up-2")
	if err != nil {
		t.Fatalf("GetUploadLog() error = %v", err)
	}
	if log.Status != "failed" || log.ErrorMessage != "解析失败" {
		t.Errorf("unexpected failed log: %+v", log)
	}
}

func TestQualityReportRoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	report := &model.QualityReport{
		CompletenessScore: 0.9,
		AccuracyScore:     1.0,
		ConsistencyScore:  0.8,
		OverallScore:      0.91,
		QualityLevel:      model.QualityExcellent,
		RecordCount:       50,
		Issues: []model.QualityIssue{
			{Type: model.IssueMissingField, Field: "counterparty", AffectedRows: []int{3, 7}, Severity: model.SeverityMedium, Suggestion: "补充往来单位"},
		},
	}
	if _, err := s.SaveQualityReport("up-1", report); err != nil {
		t.Fatalf("SaveQualityReport() error = %v", err)
	}

	got, err := s.GetQualityReport("up-1")
	if err != nil {
		t.Fatalf("GetQualityReport() error = %v", err)
	}
	if got.OverallScore != 0.91 || got.QualityLevel != model.QualityExcellent {
		t.Errorf("unexpected report: %+v", got)
	}
	if len(got.Issues) != 1 || got.Issues[0].Type != model.IssueMissingField {
		t.Errorf("issues not preserved: %+v", got.Issues)
	}
	if len(got.Issues[0].AffectedRows) != 2 || got.Issues[0].AffectedRows[1] != 7 {
		t.Errorf("affected rows not preserved: %+v", got.Issues[0].AffectedRows)
	}
}

func TestQualityReportLatestWins(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	first := &model.QualityReport{OverallScore: 0.5, QualityLevel: model.QualityFair, Issues: []model.QualityIssue{}}
	second := &model.QualityReport{OverallScore: 0.95, QualityLevel: model.QualityExcellent, Issues: []model.QualityIssue{}}
	if _, err := s.SaveQualityReport("up-x", first); err != nil {
		t.Fatalf("SaveQualityReport() first error = %v", err)
	}
	if _, err := s.SaveQualityReport("up-x", second); err != nil {
		t.Fatalf("SaveQualityReport() second error = %v", err)
	}

	got, err := s.GetQualityReport("up-x")
	if err != nil {
		t.Fatalf("GetQualityReport() error = %v", err)
	}
	if got.OverallScore != 0.95 {
		t.Errorf("OverallScore = %v, want latest 0.95", got.OverallScore)
	}
}

func TestMatchHistoryRoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	candidates := []model.MatchCandidate{
		{SourceValue: "上海华宇商贸", MatchedEntityID: "C001", MatchedName: "上海华宇商贸有限公司", Confidence: 0.95, MatchType: model.MatchAlias},
		{SourceValue: "未知客户", Confidence: 0, MatchType: model.MatchNone},
	}
	if err := s.SaveMatchHistory("batch-1", "customer", candidates); err != nil {
		t.Fatalf("SaveMatchHistory() error = %v", err)
	}

	got, err := s.GetMatchHistory("batch-1")
	if err != nil {
		t.Fatalf("GetMatchHistory() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].MatchType != model.MatchAlias || got[0].MatchedEntityID != "C001" {
		t.Errorf("unexpected first candidate: %+v", got[0])
	}
	if got[1].MatchType != model.MatchNone || got[1].MatchedEntityID != "" {
		t.Errorf("unexpected second candidate: %+v", got[1])
	}
}

func TestCatalogSnapshot(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	entities := []model.CatalogEntity{
		{ID: "C001", EntityType: "customer", Name: "上海华宇商贸有限公司", Aliases: []string{"华宇商贸", "华宇"}, UpdatedAt: time.Now()},
		{ID: "C002", EntityType: "customer", Name: "北京恒信科技", UpdatedAt: time.Now()},
		{ID: "P001", EntityType: "product", Name: "激光打印机", UpdatedAt: time.Now()},
	}
	for _, e := range entities {
		if err := s.UpsertCatalogEntity(e); err != nil {
			t.Fatalf("UpsertCatalogEntity(%s) error = %v", e.ID, err)
		}
	}

	got, err := s.CatalogSnapshot("customer")
	if err != nil {
		t.Fatalf("CatalogSnapshot() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2 (product should be excluded)", len(got))
	}
	if got[0].ID != "C001" || len(got[0].Aliases) != 2 {
		t.Errorf("unexpected first entity: %+v", got[0])
	}

	// 更新应替换别名而不是累加
	if err := s.UpsertCatalogEntity(model.CatalogEntity{ID: "C001", EntityType: "customer", Name: "上海华宇商贸有限公司", Aliases: []string{"华宇"}}); err != nil {
		t.Fatalf("UpsertCatalogEntity() update error = %v", err)
	}
	got, err = s.CatalogSnapshot("customer")
	if err != nil {
		t.Fatalf("CatalogSnapshot() after update error = %v", err)
	}
	if len(got[0].Aliases) != 1 || got[0].Aliases[0] != "华宇" {
		t.Errorf("aliases not replaced: %+v", got[0].Aliases)
	}
}

func TestPendingDetailsLifecycle(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	records := []model.CanonicalRecord{
		{RowIndex: 1, DocumentID: "SO001", ItemName: "打印机", Quantity: 2, Amount: 300, RecordType: model.RecordTypeSeparatedPending, NeedsHeaderTable: true},
		{RowIndex: 2, DocumentID: "SO002", ItemName: "墨盒", Quantity: 5, Amount: 150, RecordType: model.RecordTypeSeparatedPending, NeedsHeaderTable: true},
	}
	if err := s.SavePendingDetails("up-9", records); err != nil {
		t.Fatalf("SavePendingDetails() error = %v", err)
	}

	got, err := s.LoadPendingDetails("up-9")
	if err != nil {
		t.Fatalf("LoadPendingDetails() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].DocumentID != "SO001" || !got[0].NeedsHeaderTable {
		t.Errorf("unexpected first record: %+v", got[0])
	}

	if err := s.DeletePendingDetails("up-9"); err != nil {
		t.Fatalf("DeletePendingDetails() error = %v", err)
	}
	got, err = s.LoadPendingDetails("up-9")
	if err != nil {
		t.Fatalf("LoadPendingDetails() after delete error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len = %d after delete, want 0", len(got))
	}
}

func TestExpirePendingBefore(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	records := []model.CanonicalRecord{{RowIndex: 1, DocumentID: "SO001", RecordType: model.RecordTypeSeparatedPending}}
	if err := s.SavePendingDetails("up-old", records); err != nil {
		t.Fatalf("SavePendingDetails() error = %v", err)
	}

	// 截止时间在写入之前，不应删除任何记录
	n, err := s.ExpirePendingBefore(time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("ExpirePendingBefore() error = %v", err)
	}
	if n != 0 {
		t.Errorf("expired %d rows, want 0", n)
	}

	// 截止时间在未来，全部过期
	n, err = s.ExpirePendingBefore(time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("ExpirePendingBefore() error = %v", err)
	}
	if n != 1 {
		t.Errorf("expired %d rows, want 1", n)
	}
}

func TestFileStoreSaveLoad(t *testing.T) {
	t.Parallel()
	fs, err := NewFileStore(filepath.Join(t.TempDir(), "files"))
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	data := []byte("document_id,amount\nSO001,100.5\n")
	locator, err := fs.Save(data)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if len(locator) != 64 {
		t.Errorf("locator length = %d, want 64 hex chars", len(locator))
	}

	// 重复保存应返回相同定位符
	again, err := fs.Save(data)
	if err != nil {
		t.Fatalf("Save() again error = %v", err)
	}
	if again != locator {
		t.Errorf("locator not idempotent: %s vs %s", again, locator)
	}

	got, err := fs.Load(locator)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("Load() = %q, want %q", got, data)
	}

	if _, err := fs.Load("deadbeef"); err == nil {
		t.Error("Load() of unknown locator should fail")
	}
}
