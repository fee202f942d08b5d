package repo

import (
	"TgDrive/internal/model"
	"fmt"
	"strings"

	gormpostgres "gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

// InitDB открывает соединение с БД по DSN и применяет миграции.
// postgres:// и postgresql:// — PostgreSQL, иначе SQLite (modernc, без CGO).
func InitDB(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database DSN is required")
	}

	var dial gorm.Dialector
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		dial = gormpostgres.Open(dsn)
	} else {
		dial = gormsqlite.Dialector{DriverName: "sqlite", DSN: dsn}
	}

	db, err := gorm.Open(dial, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate применяет автомиграции и частичные уникальные индексы,
// которые AutoMigrate выразить не может.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.User{},
		&model.TelegramSession{},
		&model.ChannelBinding{},
		&model.Node{},
	); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}

	// Одно живое имя на (владелец, родитель) без учёта регистра.
	// COALESCE сводит NULL-родителя (корень) к сравнимому значению.
	if err := db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_nodes_live_name
		 ON nodes (user_id, COALESCE(parent_id, ''), LOWER(name))
		 WHERE deleted_at IS NULL`,
	).Error; err != nil {
		return fmt.Errorf("create live-name index: %w", err)
	}
	return nil
}
