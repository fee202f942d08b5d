// Package telegram содержит транспорт блобов поверх клиентской способности
// мессенджера. Сама клиентская библиотека (рукопожатие, wire-протокол) в ядро
// не входит: она потребляется через интерфейс Client и внедряется фабрикой.
package telegram

import (
	"context"
	"errors"
	"strconv"
)

// Identity — одна из двух клиентских идентичностей бэкенда.
type Identity string

const (
	// IdentityBot — легковесная идентичность: минимальные права,
	// ограничение на размер передаваемого сообщения.
	IdentityBot Identity = "bot"
	// IdentityUser — привилегированная идентичность: большие файлы,
	// создание каналов, разрешение алиасов.
	IdentityUser Identity = "user"
)

// ErrPasswordNeeded возвращается SignIn, когда включена двухэтапная
// проверка и требуется пароль.
var ErrPasswordNeeded = errors.New("two-step verification password required")

// Chat — метаданные чата/канала бэкенда.
type Chat struct {
	ID       int64
	Title    string
	Username string // алиас вида @name, может быть пуст
}

// Me — сведения о текущем аккаунте.
type Me struct {
	ID       int64
	Username string
	Phone    string
}

// ChatRef — один из адресов канала: численный id либо алиас.
type ChatRef struct {
	ID       int64
	Username string
}

// IsAlias сообщает, адресуется ли канал алиасом.
func (r ChatRef) IsAlias() bool { return r.Username != "" }

// String возвращает человекочитаемую форму адреса.
func (r ChatRef) String() string {
	if r.IsAlias() {
		return r.Username
	}
	return formatChannelID(r.ID)
}

// MemberRights — минимальные права, выдаваемые боту в канале-хранилище.
type MemberRights struct {
	CanManageChat     bool
	CanPostMessages   bool
	CanEditMessages   bool
	CanDeleteMessages bool
}

// Client — контракт одной клиентской идентичности мессенджера.
// Реализация предоставляется извне через Factory.
type Client interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error

	// Логин привилегированной идентичности.
	SendCode(ctx context.Context, phone string) (phoneCodeHash string, err error)
	SignIn(ctx context.Context, phone, code, phoneCodeHash string) error
	CheckPassword(ctx context.Context, password string) error
	ExportSession(ctx context.Context) (string, error)
	Me(ctx context.Context) (*Me, error)

	// Работа с каналами и сообщениями.
	GetChat(ctx context.Context, ref ChatRef) (*Chat, error)
	SendMedia(ctx context.Context, ref ChatRef, media Media) (messageID int64, err error)
	DownloadMessage(ctx context.Context, ref ChatRef, messageID int64) ([]byte, error)

	CreateChannel(ctx context.Context, title, about string) (*Chat, error)
	AddChatMember(ctx context.Context, ref ChatRef, username string) error
	PromoteChatMember(ctx context.Context, ref ChatRef, username string, rights MemberRights) error
}

// Options — параметры создания клиента.
type Options struct {
	APIID    int
	APIHash  string
	BotToken string // только для IdentityBot
	// SessionString — экспортированная сессия привилегированной
	// идентичности; клиент держит её в памяти, не на диске.
	SessionString string
}

// Factory создаёт неподключённый клиент заданной идентичности.
type Factory func(identity Identity, opts Options) (Client, error)

func formatChannelID(id int64) string {
	// численный id канала сериализуем как есть: -100xxxxxxxxxx
	return "channel:" + strconv.FormatInt(id, 10)
}
