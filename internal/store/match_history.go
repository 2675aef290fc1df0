package store

import (
	"fmt"

	"smartdoc/internal/model"
)

// SaveMatchHistory 批量保存匹配历史
func (s *Store) SaveMatchHistory(batchID, entityType string, candidates []model.MatchCandidate) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO match_history (batch_id, entity_type, source_value, entity_id, matched_name, confidence, match_type)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range candidates {
		if _, err := stmt.Exec(batchID, entityType, c.SourceValue, c.MatchedEntityID,
			c.MatchedName, c.Confidence, string(c.MatchType)); err != nil {
			return fmt.Errorf("failed to insert match history: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit match history: %w", err)
	}
	return nil
}

// GetMatchHistory 按批次读取匹配历史，保持插入顺序
func (s *Store) GetMatchHistory(batchID string) ([]model.MatchCandidate, error) {
	rows, err := s.db.Query(`
		SELECT source_value, COALESCE(entity_id, ''), COALESCE(matched_name, ''), confidence, match_type
		FROM match_history
		WHERE batch_id = ?
		ORDER BY id
	`, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query match history: %w", err)
	}
	defer rows.Close()

	out := []model.MatchCandidate{}
	for rows.Next() {
		var c model.MatchCandidate
		var matchType string
		if err := rows.Scan(&c.SourceValue, &c.MatchedEntityID, &c.MatchedName, &c.Confidence, &matchType); err != nil {
			return nil, fmt.Errorf("failed to scan match history: %w", err)
		}
		c.MatchType = model.MatchType(matchType)
		out = append(out, c)
	}
	return out, rows.Err()
}
