package repo

import (
	"TgDrive/internal/model"
	"context"
	"errors"

	"gorm.io/gorm"
)

// UserRepository — доступ к единственному пользователю системы.
type UserRepository interface {
	// GetOrCreateSingle возвращает первого пользователя, создавая его
	// при необходимости (однопользовательский режим).
	GetOrCreateSingle(ctx context.Context) (*model.User, error)

	// UpdateUsername обновляет имя после успешного логина.
	UpdateUsername(ctx context.Context, userID int64, username string) error
}

type userRepo struct {
	db *gorm.DB
}

// NewUserRepository создаёт реализацию репозитория пользователей.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) GetOrCreateSingle(ctx context.Context) (*model.User, error) {
	var u model.User
	err := r.db.WithContext(ctx).Order("id ASC").First(&u).Error
	if err == nil {
		return &u, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	u = model.User{Username: "default_user"}
	if err := r.db.WithContext(ctx).Create(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) UpdateUsername(ctx context.Context, userID int64, username string) error {
	return r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Update("username", username).Error
}
