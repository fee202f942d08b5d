package model

import "time"

// User — владелец дерева узлов. Сервис работает в однопользовательском
// режиме: первая строка создаётся автоматически и обновляется после логина.
type User struct {
	ID       int64  `gorm:"primaryKey;autoIncrement"`
	Username string `gorm:"size:255"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}
