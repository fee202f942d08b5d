package model

import "time"

// ChannelBinding — привязка владельца к каналу-хранилищу бэкенда.
// Уникальна по (user_id, channel_id); актуальной считается последняя.
type ChannelBinding struct {
	ID     int64 `gorm:"primaryKey;autoIncrement"`
	UserID int64 `gorm:"not null;uniqueIndex:uq_user_channel"`

	User *User `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`

	ChannelID int64  `gorm:"not null;uniqueIndex:uq_user_channel"` // например -100xxxxxxxxxx
	Username  string `gorm:"size:255"`                             // алиас вида @channelname, может быть пуст
	Title     string `gorm:"size:255"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}
