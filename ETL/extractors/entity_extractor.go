package extractors

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/LilVoxy/virality_metrics/ETL/models"
)

// EntityStore хранилище сущностей (только чтение)
type EntityStore interface {
	ListEntities(ctx context.Context) ([]models.Entity, error)
}

// MySQLEntityRepository читает сущности из таблицы entities
type MySQLEntityRepository struct {
	db *sql.DB
}

// NewMySQLEntityRepository создает новый экземпляр MySQLEntityRepository
func NewMySQLEntityRepository(db *sql.DB) *MySQLEntityRepository {
	return &MySQLEntityRepository{db: db}
}

// ListEntities получает все сущности
func (r *MySQLEntityRepository) ListEntities(ctx context.Context) ([]models.Entity, error) {
	query := `
	SELECT
		id,
		name,
		IFNULL(category, ''),
		IFNULL(website_url, ''),
		IFNULL(youtube_url, ''),
		IFNULL(x_url, ''),
		created_at
	FROM entities
	ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка при запросе сущностей: %w", err)
	}
	defer rows.Close()

	var entities []models.Entity
	for rows.Next() {
		var e models.Entity
		var categories string
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

// StaticEntityStore хранилище сущностей в памяти (тестовый двойник)
type StaticEntityStore struct {
	Entities []models.Entity
	Err      error
}

// ListEntities возвращает заданные сущности
func (s *StaticEntityStore) ListEntities(context.Context) ([]models.Entity, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Entities, nil
}
