package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"smartdoc/internal/model"
)

// SaveQualityReport 保存质量报告，返回报告 id
func (s *Store) SaveQualityReport(uploadID string, report *model.QualityReport) (int64, error) {
	issuesJSON, err := json.Marshal(report.Issues)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal issues: %w", err)
	}

	res, err := s.db.Exec(`
		INSERT INTO quality_reports
			(upload_id, completeness_score, accuracy_score, consistency_score,
			 overall_score, quality_level, record_count, issues_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, uploadID, report.CompletenessScore, report.AccuracyScore, report.ConsistencyScore,
		report.OverallScore, string(report.QualityLevel), report.RecordCount, string(issuesJSON))
	if err != nil {
		return 0, fmt.Errorf("failed to save quality report: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get quality report id: %w", err)
	}
	return id, nil
}

// GetQualityReport 读取指定上传的最新质量报告
func (s *Store) GetQualityReport(uploadID string) (*model.QualityReport, error) {
	row := s.db.QueryRow(`
		SELECT completeness_score, accuracy_score, consistency_score,
		       overall_score, quality_level, record_count, issues_json
		FROM quality_reports
		WHERE upload_id = ?
		ORDER BY id DESC LIMIT 1
	`, uploadID)

	var report model.QualityReport
	var level, issuesJSON string
	err := row.Scan(&report.CompletenessScore, &report.AccuracyScore, &report.ConsistencyScore,
		&report.OverallScore, &level, &report.RecordCount, &issuesJSON)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("quality report not found for upload %s", uploadID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quality report: %w", err)
	}

	report.QualityLevel = model.QualityLevel(level)
	if err := json.Unmarshal([]byte(issuesJSON), &report.Issues); err != nil {
		return nil, fmt.Errorf("failed to unmarshal issues: %w", err)
	}
	return &report, nil
}
