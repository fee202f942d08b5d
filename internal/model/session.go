package model

import "time"

// TelegramSession — сессия привилегированного клиента.
// Строка сессии хранится только в зашифрованном виде (AES-GCM).
// Активной считается последняя; старые удаляются при перезаписи.
type TelegramSession struct {
	ID     int64 `gorm:"primaryKey;autoIncrement"`
	UserID int64 `gorm:"not null;index"`

	User *User `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`

	SessionEncrypted []byte `gorm:"not null"`
	Nonce            []byte `gorm:"not null"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	ExpiresAt *time.Time
}
