// database/db.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/LilVoxy/virality_metrics/ETL/config"
	"github.com/LilVoxy/virality_metrics/ETL/extractors"
	"github.com/LilVoxy/virality_metrics/ETL/models"
)

// ErrNotFound запрошенная запись не существует
var ErrNotFound = errors.New("запись не найдена")

// mysqlDuplicateEntry код ошибки MySQL для нарушения уникального ключа
const mysqlDuplicateEntry = 1062

// IsDuplicateKey сообщает, что ошибка вызвана повторной вставкой
func IsDuplicateKey(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}

// Store запросы API дашборда к хранилищу
type Store struct {
	db       *sql.DB
	entities *extractors.MySQLEntityRepository
}

// InitDB открывает соединение и создает таблицы, которыми владеет API
func InitDB(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		return nil, err
	}

	store := NewStore(db)
	if err := store.EnsureTable(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewStore оборачивает существующее соединение
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:       db,
		entities: extractors.NewMySQLEntityRepository(db),
	}
}

// DB возвращает соединение для репозиториев пайплайна
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close закрывает соединение
func (s *Store) Close() error {
	return config.CloseDatabase(s.db)
}

// ListEntities возвращает все сущности
func (s *Store) ListEntities(ctx context.Context) ([]models.Entity, error) {
	return s.entities.ListEntities(ctx)
}

// GetEntity возвращает сущность по ID или ErrNotFound
func (s *Store) GetEntity(ctx context.Context, id int64) (*models.Entity, error) {
	var (
		e          models.Entity
		categories string
	)
	err := s.db.QueryRowContext(ctx, `
	SELECT id, name, IFNULL(category, ''), IFNULL(website_url, ''), IFNULL(youtube_url, ''), IFNULL(x_url, ''), created_at
	FROM entities
	WHERE id = ?`, id).Scan(&e.ID, &e.Name, &categories, &e.WebsiteURL, &e.VideoURL, &e.SocialURL, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении сущности %d: %w", id, err)
	}

	e.Categories = models.ParseCategories(categories)
	return &e, nil
}
