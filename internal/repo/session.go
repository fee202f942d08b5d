package repo

import (
	"TgDrive/internal/model"
	"context"

	"gorm.io/gorm"
)

// SessionRepository — хранение зашифрованной сессии привилегированного клиента.
type SessionRepository interface {
	// Replace удаляет старые сессии пользователя и сохраняет новую
	// (активной всегда считается единственная последняя).
	Replace(ctx context.Context, s *model.TelegramSession) error

	// Latest возвращает последнюю сессию пользователя.
	Latest(ctx context.Context, userID int64) (*model.TelegramSession, error)
}

type sessionRepo struct {
	db *gorm.DB
}

// NewSessionRepository создаёт реализацию репозитория сессий.
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) Replace(ctx context.Context, s *model.TelegramSession) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", s.UserID).
			Delete(&model.TelegramSession{}).Error; err != nil {
			return err
		}
		return tx.Create(s).Error
	})
}

func (r *sessionRepo) Latest(ctx context.Context, userID int64) (*model.TelegramSession, error) {
	var s model.TelegramSession
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}
