// database/tracking.go
package database

import (
	"context"
	"fmt"

	"github.com/LilVoxy/virality_metrics/ETL/models"
)

// EnsureTable создает таблицу отслеживаемых пользователем сущностей
func (s *Store) EnsureTable(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS user_tracked_entities (
		user_id VARCHAR(64) NOT NULL,
		entity_id BIGINT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, entity_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ошибка создания таблицы user_tracked_entities: %w", err)
	}
	return nil
}

// TrackEntity добавляет сущность в отслеживаемые. Повтор не считается ошибкой.
func (s *Store) TrackEntity(ctx context.Context, userID string, entityID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_tracked_entities (user_id, entity_id) VALUES (?, ?)`, userID, entityID)
	if err != nil && !IsDuplicateKey(err) {
		return fmt.Errorf("ошибка при добавлении отслеживания: %w", err)
	}
	return nil
}

// UntrackEntity убирает сущность из отслеживаемых
func (s *Store) UntrackEntity(ctx context.Context, userID string, entityID int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM user_tracked_entities WHERE user_id = ? AND entity_id = ?`, userID, entityID)
	if err != nil {
		return fmt.Errorf("ошибка при удалении отслеживания: %w", err)
	}
	return nil
}

// ListTracked возвращает сущности, отслеживаемые пользователем
func (s *Store) ListTracked(ctx context.Context, userID string) ([]models.Entity, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT e.id, e.name, IFNULL(e.category, ''), IFNULL(e.website_url, ''), IFNULL(e.youtube_url, ''), IFNULL(e.x_url, ''), e.created_at
	FROM user_tracked_entities t
	JOIN entities e ON e.id = t.entity_id
	WHERE t.user_id = ?
	ORDER BY t.created_at, e.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка при запросе отслеживаемых сущностей: %w", err)
	}
	defer rows.Close()

	var entities []models.Entity
	for rows.Next() {
		var (
			e          models.Entity
			categories string
		)
		if err := rows.Scan(&e.ID, &e.Name, &categories, &e.WebsiteURL, &e.VideoURL, &e.SocialURL, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка при сканировании сущности: %w", err)
		}
		e.Categories = models.ParseCategories(categories)
		entities = append(entities, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при итерации по сущностям: %w", err)
	}
	return entities, nil
}
