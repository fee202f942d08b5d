package repo

import (
	"TgDrive/internal/model"
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChannelRepository — доступ к привязкам каналов-хранилищ.
type ChannelRepository interface {
	// Latest возвращает последнюю привязку владельца.
	Latest(ctx context.Context, userID int64) (*model.ChannelBinding, error)

	// FindByChannelID ищет привязку по численному id канала.
	FindByChannelID(ctx context.Context, userID int64, channelID int64) (*model.ChannelBinding, error)

	// List возвращает все привязки владельца, новые первыми.
	List(ctx context.Context, userID int64) ([]model.ChannelBinding, error)

	// Create вставляет привязку; при гонке по (user_id, channel_id)
	// возвращает уже существующую строку-победителя.
	Create(ctx context.Context, b *model.ChannelBinding) (*model.ChannelBinding, error)

	// DeleteByChannelID удаляет привязку; false — привязки не было.
	DeleteByChannelID(ctx context.Context, userID int64, channelID int64) (bool, error)
}

type channelRepo struct {
	db *gorm.DB
}

// NewChannelRepository создаёт реализацию репозитория каналов.
func NewChannelRepository(db *gorm.DB) ChannelRepository {
	return &channelRepo{db: db}
}

func (r *channelRepo) Latest(ctx context.Context, userID int64) (*model.ChannelBinding, error) {
	var b model.ChannelBinding
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		First(&b).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *channelRepo) FindByChannelID(ctx context.Context, userID int64, channelID int64) (*model.ChannelBinding, error) {
	var b model.ChannelBinding
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND channel_id = ?", userID, channelID).
		First(&b).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *channelRepo) List(ctx context.Context, userID int64) ([]model.ChannelBinding, error) {
	var list []model.ChannelBinding
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (r *channelRepo) Create(ctx context.Context, b *model.ChannelBinding) (*model.ChannelBinding, error) {
	// вставка-или-пропуск: нарушение уникальности на SQLite (modernc)
	// не транслируется в gorm.ErrDuplicatedKey, поэтому гонку выдаёт
	// RowsAffected, а не ошибка
	tx := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(b)
	if tx.Error != nil {
		return nil, tx.Error
	}
	if tx.RowsAffected == 0 {
		// конкурирующая вставка — читаем победителя
		return r.FindByChannelID(ctx, b.UserID, b.ChannelID)
	}
	return b, nil
}

func (r *channelRepo) DeleteByChannelID(ctx context.Context, userID int64, channelID int64) (bool, error) {
	tx := r.db.WithContext(ctx).
		Where("user_id = ? AND channel_id = ?", userID, channelID).
		Delete(&model.ChannelBinding{})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}
