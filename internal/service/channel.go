package service

import (
	"TgDrive/internal/model"
	"TgDrive/internal/repo"
	"TgDrive/internal/telegram"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ChannelConfig — предварительно сконфигурированный канал-хранилище.
type ChannelConfig struct {
	ChannelID int64  // численный id, 0 — не задан
	Username  string // алиас, пусто — не задан
	Title     string // заголовок при динамическом создании
}

// ChannelService — реестр каналов-хранилищ: разрешает логический канал
// владельца в конкретную цель бэкенда и сохраняет привязку один раз.
type ChannelService struct {
	channels repo.ChannelRepository
	manager  *telegram.Manager
	cfg      ChannelConfig
	log      *zap.SugaredLogger
}

// NewChannelService создаёт реестр каналов.
func NewChannelService(channels repo.ChannelRepository, manager *telegram.Manager, cfg ChannelConfig, log *zap.SugaredLogger) *ChannelService {
	if cfg.Title == "" {
		cfg.Title = "TgDrive Storage"
	}
	return &ChannelService{channels: channels, manager: manager, cfg: cfg, log: log}
}

// EnsureForOwner возвращает цель канала-хранилища владельца, разрешая её
// в порядке приоритета: существующая привязка > сконфигурированный алиас >
// сконфигурированный id > динамическое создание привилегированной
// идентичностью.
func (s *ChannelService) EnsureForOwner(ctx context.Context, userID int64) (telegram.ChannelTarget, error) {
	if b, err := s.channels.Latest(ctx, userID); err == nil {
		return telegram.ChannelTarget{ID: b.ChannelID, Username: b.Username}, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return telegram.ChannelTarget{}, err
	}

	if alias := normalizeAlias(s.cfg.Username); alias != "" {
		return s.bindByAlias(ctx, userID, alias, "")
	}

	if s.cfg.ChannelID != 0 {
		b, err := s.channels.Create(ctx, &model.ChannelBinding{
			UserID: userID, ChannelID: s.cfg.ChannelID, Title: "Preconfigured",
		})
		if err != nil {
			return telegram.ChannelTarget{}, err
		}
		return telegram.ChannelTarget{ID: b.ChannelID, Username: b.Username}, nil
	}

	return s.createChannel(ctx, userID)
}

// AddChannel — явная регистрация канала по численному id или алиасу.
// Для уже известной пары (владелец, канал) возвращает существующую
// привязку (идемпотентно).
func (s *ChannelService) AddChannel(ctx context.Context, userID int64, identifier, title string) (*model.ChannelBinding, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, validationf("channel identifier is required")
	}

	if id, err := strconv.ParseInt(identifier, 10, 64); err == nil {
		if existing, err := s.channels.FindByChannelID(ctx, userID, id); err == nil {
			return existing, nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return s.channels.Create(ctx, &model.ChannelBinding{
			UserID: userID, ChannelID: id, Title: title,
		})
	}

	alias := normalizeAlias(identifier)
	target, err := s.bindByAlias(ctx, userID, alias, title)
	if err != nil {
		return nil, err
	}
	return s.channels.FindByChannelID(ctx, userID, target.ID)
}

// List возвращает привязки владельца, новые первыми.
func (s *ChannelService) List(ctx context.Context, userID int64) ([]model.ChannelBinding, error) {
	return s.channels.List(ctx, userID)
}

// RemoveChannel удаляет привязку канала. Сам канал и его сообщения в
// бэкенде не трогаются: уже загруженные файлы остаются доступными по
// сохранённым в узлах ссылкам.
func (s *ChannelService) RemoveChannel(ctx context.Context, userID int64, channelID int64) error {
	deleted, err := s.channels.DeleteByChannelID(ctx, userID, channelID)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("%w: channel %d is not bound", ErrNotFound, channelID)
	}
	s.log.Infow("channel binding removed", "channel_id", channelID)
	return nil
}

// TargetFor строит цель для известного канала узла, подбирая алиас из
// привязки, если он сохранён.
func (s *ChannelService) TargetFor(ctx context.Context, userID int64, channelID int64) telegram.ChannelTarget {
	target := telegram.ChannelTarget{ID: channelID, Username: normalizeAlias(s.cfg.Username)}
	if b, err := s.channels.FindByChannelID(ctx, userID, channelID); err == nil && b.Username != "" {
		target.Username = b.Username
	}
	return target
}

// bindByAlias разрешает алиас в численный id через легковесную
// идентичность и сохраняет привязку.
func (s *ChannelService) bindByAlias(ctx context.Context, userID int64, alias, title string) (telegram.ChannelTarget, error) {
	bot, err := s.manager.Bot(ctx)
	if err != nil {
		return telegram.ChannelTarget{}, err
	}
	chat, err := bot.GetChat(ctx, telegram.ChatRef{Username: alias})
	if err != nil {
		return telegram.ChannelTarget{}, validationf("cannot resolve channel alias %s: %v", alias, err)
	}
	if title == "" {
		title = chat.Title
	}
	b, err := s.channels.Create(ctx, &model.ChannelBinding{
		UserID: userID, ChannelID: chat.ID, Username: alias, Title: title,
	})
	if err != nil {
		return telegram.ChannelTarget{}, err
	}
	s.log.Infow("channel alias resolved", "alias", alias, "channel_id", chat.ID)
	return telegram.ChannelTarget{ID: b.ChannelID, Username: b.Username}, nil
}

// createChannel создаёт канал привилегированной идентичностью и выдаёт
// легковесной минимально необходимые права.
func (s *ChannelService) createChannel(ctx context.Context, userID int64) (telegram.ChannelTarget, error) {
	user, err := s.manager.User(ctx)
	if err != nil {
		if errors.Is(err, telegram.ErrNoSession) {
			return telegram.ChannelTarget{}, fmt.Errorf("%w: no storage channel configured and no session to create one", ErrValidation)
		}
		return telegram.ChannelTarget{}, err
	}

	chat, err := user.CreateChannel(ctx, s.cfg.Title, "Storage for TgDrive")
	if err != nil {
		return telegram.ChannelTarget{}, fmt.Errorf("create storage channel: %w", err)
	}

	bot, err := s.manager.Bot(ctx)
	if err != nil {
		return telegram.ChannelTarget{}, err
	}
	me, err := bot.Me(ctx)
	if err != nil {
		return telegram.ChannelTarget{}, err
	}
	if me.Username == "" {
		return telegram.ChannelTarget{}, fmt.Errorf("bot username not available")
	}

	ref := telegram.ChatRef{ID: chat.ID}
	if err := user.AddChatMember(ctx, ref, me.Username); err != nil {
		return telegram.ChannelTarget{}, fmt.Errorf("add bot to channel: %w", err)
	}
	rights := telegram.MemberRights{
		CanManageChat:     true,
		CanPostMessages:   true,
		CanEditMessages:   true,
		CanDeleteMessages: true,
	}
	if err := user.PromoteChatMember(ctx, ref, me.Username, rights); err != nil {
		return telegram.ChannelTarget{}, fmt.Errorf("promote bot in channel: %w", err)
	}

	b, err := s.channels.Create(ctx, &model.ChannelBinding{
		UserID: userID, ChannelID: chat.ID, Title: s.cfg.Title,
	})
	if err != nil {
		return telegram.ChannelTarget{}, err
	}
	s.log.Infow("storage channel created", "channel_id", chat.ID)
	return telegram.ChannelTarget{ID: b.ChannelID, Username: b.Username}, nil
}

func normalizeAlias(alias string) string {
	alias = strings.TrimSpace(alias)
	if alias == "" {
		return ""
	}
	if !strings.HasPrefix(alias, "@") {
		alias = "@" + alias
	}
	return alias
}
