package config

import (
	"database/sql"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// DSN формирует строку подключения к MySQL
func (c DatabaseConfig) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", c.Host, c.Port)
	cfg.DBName = c.DBName
	cfg.ParseTime = true
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

// ConnectDatabase устанавливает подключение к хранилищу метрик
func ConnectDatabase(c DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open(c.Driver, c.DSN())
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к базе данных %s: %w", c.DBName, err)
	}

	// Настройка параметров пула соединений
	db.SetMaxOpenConns(c.MaxOpenConns)
	db.SetMaxIdleConns(c.MaxIdleConns)
	db.SetConnMaxLifetime(c.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось установить соединение с базой данных %s: %w", c.DBName, err)
	}

	return db, nil
}

// CloseDatabase закрывает подключение, возвращая ошибку закрытия
func CloseDatabase(db *sql.DB) error {
	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		return fmt.Errorf("ошибка при закрытии соединения с базой данных: %w", err)
	}
	return nil
}
