package telegram

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
)

// UploadThreshold — граница выбора идентичности: полезная нагрузка до
// 50 MiB включительно идёт через легковесную идентичность, выше —
// только через привилегированную.
const UploadThreshold = 50 * 1024 * 1024

// ErrExhausted означает, что все комбинации адрес x идентичность
// исчерпаны; исходная причина сохраняется в цепочке ошибок.
var ErrExhausted = errors.New("all channel identifiers exhausted")

// MessageRef — адрес блоба в бэкенде: канал + сообщение.
type MessageRef struct {
	ChannelID int64
	MessageID int64
}

// ChannelTarget — разрешённый канал-хранилище со всеми известными адресами.
type ChannelTarget struct {
	ID       int64
	Username string // алиас, может быть пуст
}

// Identifiers возвращает адреса канала в порядке надёжности:
// алиас устойчивее к миграциям канала, численный id — вторым.
func (t ChannelTarget) Identifiers() []ChatRef {
	refs := make([]ChatRef, 0, 2)
	if t.Username != "" {
		refs = append(refs, ChatRef{Username: t.Username})
	}
	refs = append(refs, ChatRef{ID: t.ID})
	return refs
}

// PickIdentity выбирает идентичность по размеру до каких-либо сетевых
// вызовов: свойство операции, а не попытки.
func PickIdentity(size int64) Identity {
	if size > UploadThreshold {
		return IdentityUser
	}
	return IdentityBot
}

// Transport кладёт и забирает блобы из канала-хранилища.
// Повтор внутри транспорта — только альтернативная адресация;
// повторов по тому же адресу нет.
type Transport struct {
	manager *Manager
	prober  *Prober
	log     *zap.SugaredLogger
}

// NewTransport создаёт транспорт поверх менеджера идентичностей.
func NewTransport(manager *Manager, prober *Prober, log *zap.SugaredLogger) *Transport {
	return &Transport{manager: manager, prober: prober, log: log}
}

// Upload отправляет полезную нагрузку в канал и возвращает ссылку на
// сообщение. Узел дерева создаётся вызывающим только после успеха.
func (t *Transport) Upload(ctx context.Context, target ChannelTarget, payload []byte, filename, mimeType, caption string) (MessageRef, Identity, error) {
	identity := PickIdentity(int64(len(payload)))
	client, err := t.manager.Client(ctx, identity)
	if err != nil {
		return MessageRef{}, identity, fmt.Errorf("acquire %s client: %w", identity, err)
	}

	media := t.buildMedia(ctx, payload, filename, mimeType, caption)
	msgID, err := client.SendMedia(ctx, ChatRef{ID: target.ID}, media)
	if err != nil {
		return MessageRef{}, identity, fmt.Errorf("send media via %s: %w", identity, err)
	}
	return MessageRef{ChannelID: target.ID, MessageID: msgID}, identity, nil
}

// Download получает байты сообщения, перебирая адреса канала (алиас,
// затем численный id) сначала под размерно-подходящей идентичностью,
// затем под второй. Ошибка терминальна только после полного перебора.
func (t *Transport) Download(ctx context.Context, target ChannelTarget, messageID int64, sizeHint int64) ([]byte, error) {
	primary := PickIdentity(sizeHint)
	order := []Identity{primary, other(primary)}

	var lastErr error
	for _, identity := range order {
		client, err := t.manager.Client(ctx, identity)
		if err != nil {
			// идентичность недоступна (например, нет сессии) — пробуем вторую;
			// уже полученная ошибка скачивания важнее и не затирается
			t.log.Debugw("identity unavailable for download", "identity", identity, "error", err)
			if lastErr == nil {
				lastErr = err
			}
			continue
		}
		for _, ref := range target.Identifiers() {
			data, err := client.DownloadMessage(ctx, ref, messageID)
			if err == nil {
				return data, nil
			}
			t.log.Debugw("download attempt failed",
				"identity", identity, "identifier", ref.String(), "message_id", messageID, "error", err)
			lastErr = err
		}
	}
	if lastErr == nil {
		lastErr = errors.New("no identifiers to try")
	}
	return nil, fmt.Errorf("%w: %w", ErrExhausted, lastErr)
}

// buildMedia выбирает форму отправки по MIME-типу. Для видео проба
// метаданных и постера best-effort: любой сбой тихо деградирует.
func (t *Transport) buildMedia(ctx context.Context, payload []byte, filename, mimeType, caption string) Media {
	switch DetectKind(mimeType) {
	case KindImage:
		return Photo{Data: payload, Caption: caption}
	case KindVideo:
		v := Video{Data: payload, Caption: caption}
		if t.prober != nil {
			if meta, err := t.prober.VideoMeta(ctx, payload); err == nil {
				v.Duration = meta.Duration
				v.Width = meta.Width
				v.Height = meta.Height
			} else {
				t.log.Debugw("video metadata probe failed", "file", filename, "error", err)
			}
			if thumb, err := t.prober.Thumbnail(ctx, payload); err == nil {
				v.Thumb = thumb
			} else {
				t.log.Debugw("video thumbnail failed", "file", filename, "error", err)
			}
		}
		return v
	case KindAudio:
		return Audio{Data: payload, FileName: filename, Caption: caption}
	default:
		return Document{Data: payload, FileName: filename, Caption: caption}
	}
}

func other(id Identity) Identity {
	if id == IdentityBot {
		return IdentityUser
	}
	return IdentityBot
}

// Checksum считает SHA-256 потока и возвращает hex-строку.
// Служит идентичностью содержимого независимо от имени файла.
func Checksum(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
