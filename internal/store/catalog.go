package store

import (
	"fmt"
	"time"

	"smartdoc/internal/model"
)

// UpsertCatalogEntity 写入或更新主数据条目及其别名
func (s *Store) UpsertCatalogEntity(entity model.CatalogEntity) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	updatedAt := entity.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	_, err = tx.Exec(`
		INSERT INTO catalog_entities (id, entity_type, name, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET entity_type = excluded.entity_type,
			name = excluded.name, updated_at = excluded.updated_at
	`, entity.ID, entity.EntityType, entity.Name, updatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert catalog entity: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM catalog_aliases WHERE entity_id = ?`, entity.ID); err != nil {
		return fmt.Errorf("failed to clear aliases: %w", err)
	}
	for _, alias := range entity.Aliases {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO catalog_aliases (entity_id, alias) VALUES (?, ?)`,
			entity.ID, alias); err != nil {
			return fmt.Errorf("failed to insert alias: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit catalog entity: %w", err)
	}
	return nil
}

// CatalogSnapshot 读取某实体类型的全量只读快照，含别名，按 id 稳定排序
func (s *Store) CatalogSnapshot(entityType string) ([]model.CatalogEntity, error) {
	rows, err := s.db.Query(`
		SELECT id, entity_type, name, updated_at
		FROM catalog_entities
		WHERE entity_type = ?
		ORDER BY id
	`, entityType)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}
	defer rows.Close()

	entities := []model.CatalogEntity{}
	index := map[string]int{}
	for rows.Next() {
		var e model.CatalogEntity
		if err := rows.Scan(&e.ID, &e.EntityType, &e.Name, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan catalog entity: %w", err)
		}
		index[e.ID] = len(entities)
		entities = append(entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	aliasRows, err := s.db.Query(`SELECT entity_id, alias FROM catalog_aliases ORDER BY entity_id, alias`)
	if err != nil {
		return nil, fmt.Errorf("failed to query aliases: %w", err)
	}
	defer aliasRows.Close()

	for aliasRows.Next() {
		var entityID, alias string
		if err := aliasRows.Scan(&entityID, &alias); err != nil {
			return nil, fmt.Errorf("failed to scan alias: %w", err)
		}
		if i, ok := index[entityID]; ok {
			entities[i].Aliases = append(entities[i].Aliases, alias)
		}
	}
	return entities, aliasRows.Err()
}
