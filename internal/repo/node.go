package repo

import (
	"TgDrive/internal/model"
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NodeRepository — доступ к узлам дерева. Все выборки, кроме GetByIDAny,
// видят только живые узлы (deleted_at IS NULL).
type NodeRepository interface {
	// GetByID возвращает живой узел владельца по id.
	GetByID(ctx context.Context, userID int64, id string) (*model.Node, error)

	// GetByIDAny возвращает узел включая мягко удалённые (восстановление).
	GetByIDAny(ctx context.Context, userID int64, id string) (*model.Node, error)

	// GetByPath ищет живой узел по точному нормализованному пути.
	// kind == "" — любой вид.
	GetByPath(ctx context.Context, userID int64, path, kind string) (*model.Node, error)

	// GetChildren возвращает живых детей узла: папки раньше файлов,
	// далее sort_key, далее имя. parentID == nil — корень.
	GetChildren(ctx context.Context, userID int64, parentID *string) ([]model.Node, error)

	// FindLiveChild ищет живого ребёнка по имени без учёта регистра.
	FindLiveChild(ctx context.Context, userID int64, parentID *string, name string) (*model.Node, error)

	// Create вставляет узел. Нарушение уникальности живого имени
	// транслируется в gorm.ErrDuplicatedKey.
	Create(ctx context.Context, n *model.Node) error

	// Update обновляет перечисленные поля живого узла и updated_at.
	Update(ctx context.Context, userID int64, id string, updates map[string]any) error

	// RewriteSubtreePaths переписывает префикс path и сдвигает depth
	// у живых потомков каталога oldPrefix (сам каталог не трогает).
	RewriteSubtreePaths(ctx context.Context, userID int64, oldPrefix, newPrefix string, depthDelta int) error

	// Move атомарно обновляет узел и, при наличии rewrite, переписывает
	// пути его живых потомков в одной транзакции.
	Move(ctx context.Context, userID int64, id string, updates map[string]any, rewrite *SubtreeRewrite) error

	// FindByChecksum возвращает живой файловый узел с данным checksum
	// и содержимым в бэкенде (индекс дедупликации).
	FindByChecksum(ctx context.Context, userID int64, checksum string) (*model.Node, error)

	// SoftDelete помечает узел удалённым; возвращает false, если узел
	// уже был удалён. Restore — обратная операция.
	SoftDelete(ctx context.Context, userID int64, id string) (bool, error)
	Restore(ctx context.Context, userID int64, id string) (bool, error)

	// HardDelete физически удаляет узел (административный путь).
	HardDelete(ctx context.Context, userID int64, id string) error
}

type nodeRepo struct {
	db *gorm.DB
}

// NewNodeRepository создаёт реализацию репозитория узлов.
func NewNodeRepository(db *gorm.DB) NodeRepository {
	return &nodeRepo{db: db}
}

func (r *nodeRepo) live(ctx context.Context, userID int64) *gorm.DB {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND deleted_at IS NULL", userID)
}

func (r *nodeRepo) GetByID(ctx context.Context, userID int64, id string) (*model.Node, error) {
	var n model.Node
	if err := r.live(ctx, userID).Where("id = ?", id).First(&n).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *nodeRepo) GetByIDAny(ctx context.Context, userID int64, id string) (*model.Node, error) {
	var n model.Node
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, id).
		First(&n).Error
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *nodeRepo) GetByPath(ctx context.Context, userID int64, path, kind string) (*model.Node, error) {
	q := r.live(ctx, userID).Where("path = ?", path)
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	var n model.Node
	if err := q.First(&n).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *nodeRepo) GetChildren(ctx context.Context, userID int64, parentID *string) ([]model.Node, error) {
	q := r.live(ctx, userID)
	if parentID == nil {
		q = q.Where("parent_id IS NULL")
	} else {
		q = q.Where("parent_id = ?", *parentID)
	}
	var nodes []model.Node
	// 'folder' > 'file' лексикографически, поэтому kind DESC даёт папки первыми
	err := q.Order("kind DESC").Order("sort_key ASC").Order("name ASC").Find(&nodes).Error
	if err != nil {
		return nil, err
	}
	return nodes, nil
}

func (r *nodeRepo) FindLiveChild(ctx context.Context, userID int64, parentID *string, name string) (*model.Node, error) {
	q := r.live(ctx, userID).Where("LOWER(name) = LOWER(?)", name)
	if parentID == nil {
		q = q.Where("parent_id IS NULL")
	} else {
		q = q.Where("parent_id = ?", *parentID)
	}
	var n model.Node
	if err := q.First(&n).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *nodeRepo) Create(ctx context.Context, n *model.Node) error {
	// DO NOTHING + RowsAffected вместо разбора ошибки драйвера:
	// modernc не отдаёт расширенный код нарушения уникальности,
	// и TranslateError на пути SQLite его не распознаёт.
	tx := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(n)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrDuplicatedKey
	}
	return nil
}

func (r *nodeRepo) Update(ctx context.Context, userID int64, id string, updates map[string]any) error {
	tx := r.db.WithContext(ctx).Model(&model.Node{}).
		Where("user_id = ? AND id = ? AND deleted_at IS NULL", userID, id).
		Updates(updates)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// escapeLike экранирует метасимволы LIKE в литеральном префиксе пути.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *nodeRepo) RewriteSubtreePaths(ctx context.Context, userID int64, oldPrefix, newPrefix string, depthDelta int) error {
	// SUBSTR, LENGTH и || работают одинаково в SQLite и PostgreSQL.
	// Смещение считается в символах через LENGTH(?): байтовая длина из Go
	// ломает пути с не-ASCII именами. Префикс в LIKE экранируется, иначе
	// '_' и '%' в имени каталога захватывают чужие поддеревья.
	return r.db.WithContext(ctx).Exec(
		`UPDATE nodes
		 SET path = ? || SUBSTR(path, LENGTH(?) + 1),
		     depth = depth + ?,
		     updated_at = ?
		 WHERE user_id = ? AND deleted_at IS NULL AND path LIKE ? ESCAPE '\'`,
		newPrefix, oldPrefix, depthDelta, time.Now().UTC(),
		userID, escapeLike(oldPrefix)+"/%",
	).Error
}

// SubtreeRewrite описывает каскадное переписывание путей потомков
// при переносе/переименовании каталога.
type SubtreeRewrite struct {
	OldPrefix  string
	NewPrefix  string
	DepthDelta int
}

func (r *nodeRepo) Move(ctx context.Context, userID int64, id string, updates map[string]any, rewrite *SubtreeRewrite) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := &nodeRepo{db: tx}
		if err := inner.Update(ctx, userID, id, updates); err != nil {
			return err
		}
		if rewrite != nil {
			return inner.RewriteSubtreePaths(ctx, userID,
				rewrite.OldPrefix, rewrite.NewPrefix, rewrite.DepthDelta)
		}
		return nil
	})
}

func (r *nodeRepo) FindByChecksum(ctx context.Context, userID int64, checksum string) (*model.Node, error) {
	var n model.Node
	err := r.live(ctx, userID).
		Where("kind = ? AND checksum = ? AND channel_id IS NOT NULL AND message_id IS NOT NULL",
			model.KindFile, checksum).
		First(&n).Error
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *nodeRepo) SoftDelete(ctx context.Context, userID int64, id string) (bool, error) {
	now := time.Now().UTC()
	tx := r.db.WithContext(ctx).Model(&model.Node{}).
		Where("user_id = ? AND id = ? AND deleted_at IS NULL", userID, id).
		Updates(map[string]any{"deleted_at": &now, "updated_at": now})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *nodeRepo) Restore(ctx context.Context, userID int64, id string) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&model.Node{}).
		Where("user_id = ? AND id = ? AND deleted_at IS NOT NULL", userID, id).
		Updates(map[string]any{"deleted_at": nil, "updated_at": time.Now().UTC()})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *nodeRepo) HardDelete(ctx context.Context, userID int64, id string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, id).
		Delete(&model.Node{}).Error
}
