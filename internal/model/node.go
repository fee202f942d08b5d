package model

import "time"

// Виды узлов дерева.
const (
	KindFolder = "folder"
	KindFile   = "file"
)

// Node — файл или папка виртуальной иерархии.
//
// Инварианты:
//   - среди живых (deleted_at IS NULL) узлов имя уникально в рамках
//     (user_id, parent_id) без учёта регистра — обеспечивается частичным
//     уникальным индексом в repo.InitDB;
//   - path всегда согласован с цепочкой родителей, depth — число сегментов;
//   - у файла с содержимым в бэкенде ChannelID и MessageID заданы парой;
//   - папка не несёт checksum/mime/channel/message.
type Node struct {
	ID     string `gorm:"primaryKey;type:uuid"`
	UserID int64  `gorm:"not null;index"`

	User *User `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`

	ParentID *string `gorm:"type:uuid;index"` // nil — корень
	Name     string  `gorm:"not null;size:255"`
	Kind     string  `gorm:"not null;size:16"` // folder | file
	Path     string  `gorm:"not null;size:1024;index"`
	Depth    int     `gorm:"not null"`
	SortKey  int     `gorm:"not null;default:0"`

	SizeBytes int64   `gorm:"not null;default:0"`
	MimeType  *string `gorm:"size:255"`
	Checksum  *string `gorm:"size:64;index"`

	// Ссылка на сообщение бэкенда: канал + message id, всегда парой.
	ChannelID *int64
	MessageID *int64

	CreatedAt time.Time  `gorm:"autoCreateTime"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
	DeletedAt *time.Time `gorm:"index"`
}

// IsFolder сообщает, является ли узел папкой.
func (n *Node) IsFolder() bool { return n.Kind == KindFolder }

// HasContent сообщает, имеет ли файловый узел содержимое в бэкенде.
func (n *Node) HasContent() bool { return n.ChannelID != nil && n.MessageID != nil }
