package store

import (
	"encoding/json"
	"fmt"
	"time"

	"smartdoc/internal/model"
)

// SavePendingDetails 暂存等待头表补全的明细记录
func (s *Store) SavePendingDetails(uploadID string, records []model.CanonicalRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO pending_details (upload_id, record_json) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal pending record: %w", err)
		}
		if _, err := stmt.Exec(uploadID, string(data)); err != nil {
			return fmt.Errorf("failed to insert pending record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit pending details: %w", err)
	}
	return nil
}

// LoadPendingDetails 读取某次上传暂存的明细
func (s *Store) LoadPendingDetails(uploadID string) ([]model.CanonicalRecord, error) {
	rows, err := s.db.Query(`
		SELECT record_json FROM pending_details WHERE upload_id = ? ORDER BY id
	`, uploadID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending details: %w", err)
	}
	defer rows.Close()

	records := []model.CanonicalRecord{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan pending record: %w", err)
		}
		var rec model.CanonicalRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal pending record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// DeletePendingDetails 补全完成后清除暂存明细
func (s *Store) DeletePendingDetails(uploadID string) error {
	if _, err := s.db.Exec(`DELETE FROM pending_details WHERE upload_id = ?`, uploadID); err != nil {
		return fmt.Errorf("failed to delete pending details: %w", err)
	}
	return nil
}

// ExpirePendingBefore 清理超过保留期的暂存明细，返回删除行数
func (s *Store) ExpirePendingBefore(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM pending_details WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to expire pending details: %w", err)
	}
	return res.RowsAffected()
}
