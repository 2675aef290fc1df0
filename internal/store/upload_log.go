package store

import (
	"database/sql"
	"fmt"
	"time"

	"smartdoc/internal/model"
)

// UploadLog 上传处理日志
type UploadLog struct {
	ID           string     `json:"id"`
	Filename     string     `json:"filename"`
	FileFormat   string     `json:"fileFormat"`
	FileSize     int64      `json:"fileSize"`
	Locator      string     `json:"locator"`
	SourceSystem string     `json:"sourceSystem,omitempty"`
	DocumentType string     `json:"documentType,omitempty"`
	RowCount     int        `json:"rowCount"`
	ColumnCount  int        `json:"columnCount"`
	FormatType   string     `json:"formatType,omitempty"`
	Confidence   float64    `json:"confidence"`
	RoutingPath  string     `json:"routingPath,omitempty"`
	Status       string     `json:"status"` // processing/completed/failed
	ErrorMessage string     `json:"errorMessage,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}

// CreateUploadLog 创建上传日志
func (s *Store) CreateUploadLog(id, filename, fileFormat string, fileSize int64, locator, sourceSystem, documentType string) error {
	_, err := s.db.Exec(`
		INSERT INTO upload_logs (id, filename, file_format, file_size, locator, source_system, document_type, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, 'processing')
	`, id, filename, fileFormat, fileSize, locator, sourceSystem, documentType)
	if err != nil {
		return fmt.Errorf("failed to create upload log: %w", err)
	}
	return nil
}

// CompleteUploadLog 标记上传处理完成
func (s *Store) CompleteUploadLog(id string, rowCount, columnCount int, detection model.FormatDetection, path model.RoutingPath) error {
	_, err := s.db.Exec(`
		UPDATE upload_logs SET
			row_count = ?,
			column_count = ?,
			format_type = ?,
			confidence = ?,
			routing_path = ?,
			status = 'completed',
			completed_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, rowCount, columnCount, string(detection.FormatType), detection.Confidence, string(path), id)
	if err != nil {
		return fmt.Errorf("failed to complete upload log: %w", err)
	}
	return nil
}

// FailUploadLog 标记上传处理失败
func (s *Store) FailUploadLog(id, errorMessage string) error {
	_, err := s.db.Exec(`
		UPDATE upload_logs SET
			status = 'failed',
			error_message = ?,
			completed_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, errorMessage, id)
	if err != nil {
		return fmt.Errorf("failed to fail upload log: %w", err)
	}
	return nil
}

// GetUploadLog 查询单条上传日志
func (s *Store) GetUploadLog(id string) (*UploadLog, error) {
	row := s.db.QueryRow(`
		SELECT id, filename, file_format, file_size, locator,
		       COALESCE(source_system, ''), COALESCE(document_type, ''),
		       row_count, column_count, COALESCE(format_type, ''), confidence,
		       COALESCE(routing_path, ''), status, COALESCE(error_message, ''),
		       created_at, completed_at
		FROM upload_logs WHERE id = ?
	`, id)

	var log UploadLog
	var completedAt sql.NullTime
	err := row.Scan(&log.ID, &log.Filename, &log.FileFormat, &log.FileSize, &log.Locator,
		&log.SourceSystem, &log.DocumentType,
		&log.RowCount, &log.ColumnCount, &log.FormatType, &log.Confidence,
		&log.RoutingPath, &log.Status, &log.ErrorMessage,
		&log.CreatedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("upload log not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get upload log: %w", err)
	}
	if completedAt.Valid {
		log.CompletedAt = &completedAt.Time
	}
	return &log, nil
}
