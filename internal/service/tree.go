package service

import (
	"TgDrive/internal/model"
	"TgDrive/internal/pathutil"
	"TgDrive/internal/repo"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TreeService владеет иерархией узлов: листинги, идемпотентное создание
// каталогов, перенос/переименование с каскадом путей, мягкое удаление.
type TreeService struct {
	nodes repo.NodeRepository
	log   *zap.SugaredLogger
}

// NewTreeService создаёт сервис дерева.
func NewTreeService(nodes repo.NodeRepository, log *zap.SugaredLogger) *TreeService {
	return &TreeService{nodes: nodes, log: log}
}

// DirEntry — каталог в листинге.
type DirEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
}

// FileEntry — файл в листинге.
type FileEntry struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	MimeType  string    `json:"mime_type,omitempty"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
}

// Listing — содержимое каталога: папки раньше файлов.
type Listing struct {
	Directories []DirEntry  `json:"directories"`
	Files       []FileEntry `json:"files"`
}

// GetByID возвращает живой узел владельца.
func (s *TreeService) GetByID(ctx context.Context, userID int64, id string) (*model.Node, error) {
	n, err := s.nodes.GetByID(ctx, userID, id)
	if err != nil {
		return nil, fromDB(err)
	}
	return n, nil
}

// GetByPath возвращает живой узел по нормализованному пути.
func (s *TreeService) GetByPath(ctx context.Context, userID int64, path, kind string) (*model.Node, error) {
	n, err := s.nodes.GetByPath(ctx, userID, pathutil.Normalize(path), kind)
	if err != nil {
		return nil, fromDB(err)
	}
	return n, nil
}

// ListDirectory возвращает прямых детей каталога path.
func (s *TreeService) ListDirectory(ctx context.Context, userID int64, path string) (*Listing, error) {
	path = pathutil.Normalize(path)

	var parentID *string
	if path != "/" {
		parent, err := s.nodes.GetByPath(ctx, userID, path, model.KindFolder)
		if err != nil {
			return nil, fromDB(err)
		}
		parentID = &parent.ID
	}

	children, err := s.nodes.GetChildren(ctx, userID, parentID)
	if err != nil {
		return nil, err
	}

	listing := &Listing{Directories: []DirEntry{}, Files: []FileEntry{}}
	for _, n := range children {
		if n.IsFolder() {
			listing.Directories = append(listing.Directories, DirEntry{
				ID: n.ID, Name: n.Name, Path: n.Path,
			})
			continue
		}
		f := FileEntry{
			ID: n.ID, Name: n.Name, Size: n.SizeBytes,
			Path: n.Path, CreatedAt: n.CreatedAt,
		}
		if n.MimeType != nil {
			f.MimeType = *n.MimeType
		}
		listing.Files = append(listing.Files, f)
	}
	return listing, nil
}

// EnsureDirectoryPath идемпотентно создаёт недостающие сегменты каталога
// и возвращает id самого глубокого; для корня — nil.
//
// Безопасен при конкурентных вызовах с пересекающимися префиксами:
// существование сегмента перепроверяется перед вставкой, а нарушение
// уникальности разрешается повторным чтением победителя, не ошибкой.
func (s *TreeService) EnsureDirectoryPath(ctx context.Context, userID int64, path string) (*string, error) {
	path = pathutil.Normalize(path)
	if path == "/" {
		return nil, nil
	}

	var parentID *string
	current := ""
	for i, part := range pathutil.Split(path) {
		current += "/" + part

		node, err := s.nodes.FindLiveChild(ctx, userID, parentID, part)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			candidate := model.Node{
				ID:       uuid.NewString(),
				UserID:   userID,
				ParentID: parentID,
				Name:     part,
				Kind:     model.KindFolder,
				Path:     current,
				Depth:    i + 1,
			}
			switch createErr := s.nodes.Create(ctx, &candidate); {
			case createErr == nil:
				node = &candidate
			case errors.Is(createErr, gorm.ErrDuplicatedKey):
				// гонка на вставке: читаем выигравшего соседа
				node, err = s.nodes.FindLiveChild(ctx, userID, parentID, part)
				if err != nil {
					return nil, fromDB(err)
				}
			default:
				return nil, createErr
			}
		} else if err != nil {
			return nil, err
		}

		if !node.IsFolder() {
			return nil, conflictf("path segment %q is occupied by a file", current)
		}
		parentID = &node.ID
	}
	return parentID, nil
}

// Create вставляет узел, проверяя инварианты модели.
func (s *TreeService) Create(ctx context.Context, n *model.Node) error {
	if err := pathutil.ValidateName(n.Name); err != nil {
		return validationf("%v", err)
	}
	if n.Kind != model.KindFolder && n.Kind != model.KindFile {
		return validationf("unknown node kind %q", n.Kind)
	}
	if n.IsFolder() && (n.Checksum != nil || n.MimeType != nil || n.ChannelID != nil || n.MessageID != nil) {
		return validationf("folder must not carry content attributes")
	}
	if (n.ChannelID == nil) != (n.MessageID == nil) {
		return validationf("channel and message references must be set together")
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if err := s.nodes.Create(ctx, n); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return conflictf("name %q already exists in %q", n.Name, pathutil.Parent(n.Path))
		}
		return err
	}
	return nil
}

// MoveRename переименовывает и/или переносит узел. Путь и глубина
// пересчитываются; для каталога пути живых потомков переписываются
// каскадно в той же транзакции.
func (s *TreeService) MoveRename(ctx context.Context, userID int64, id string, newName, newDirPath *string) (*model.Node, error) {
	node, err := s.nodes.GetByID(ctx, userID, id)
	if err != nil {
		return nil, fromDB(err)
	}

	name := node.Name
	if newName != nil {
		if err := pathutil.ValidateName(*newName); err != nil {
			return nil, validationf("%v", err)
		}
		name = *newName
	}

	dir := pathutil.Parent(node.Path)
	parentID := node.ParentID
	if newDirPath != nil {
		dir = pathutil.Normalize(*newDirPath)
		if node.IsFolder() && (dir == node.Path || strings.HasPrefix(dir, node.Path+"/")) {
			return nil, validationf("cannot move folder %q into itself", node.Path)
		}
		parentID, err = s.EnsureDirectoryPath(ctx, userID, dir)
		if err != nil {
			return nil, err
		}
	}

	newPath := pathutil.Join(dir, name)
	if newPath == node.Path && newName == nil && newDirPath == nil {
		return node, nil
	}

	// место назначения не должно быть занято другим живым узлом
	if occupant, err := s.nodes.FindLiveChild(ctx, userID, parentID, name); err == nil {
		if occupant.ID != node.ID {
			return nil, conflictf("destination %q is occupied", newPath)
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	updates := map[string]any{
		"name":      name,
		"parent_id": parentID,
		"path":      newPath,
		"depth":     pathutil.Depth(newPath),
	}
	var rewrite *repo.SubtreeRewrite
	if node.IsFolder() && newPath != node.Path {
		rewrite = &repo.SubtreeRewrite{
			OldPrefix:  node.Path,
			NewPrefix:  newPath,
			DepthDelta: pathutil.Depth(newPath) - node.Depth,
		}
	}
	if err := s.nodes.Move(ctx, userID, id, updates, rewrite); err != nil {
		return nil, fromDB(err)
	}

	moved, err := s.nodes.GetByID(ctx, userID, id)
	if err != nil {
		return nil, fromDB(err)
	}
	s.log.Infow("node moved", "id", id, "from", node.Path, "to", moved.Path)
	return moved, nil
}

// SoftDelete помечает узел удалённым. Повторное удаление — no-op успех.
func (s *TreeService) SoftDelete(ctx context.Context, userID int64, id string) error {
	changed, err := s.nodes.SoftDelete(ctx, userID, id)
	if err != nil {
		return err
	}
	if changed {
		return nil
	}
	// либо узел уже удалён (no-op), либо его нет вовсе
	if _, err := s.nodes.GetByIDAny(ctx, userID, id); err != nil {
		return fromDB(err)
	}
	return nil
}

// Restore снимает пометку удаления. Повторное восстановление — no-op успех.
func (s *TreeService) Restore(ctx context.Context, userID int64, id string) error {
	changed, err := s.nodes.Restore(ctx, userID, id)
	if err != nil {
		return err
	}
	if changed {
		return nil
	}
	if _, err := s.nodes.GetByIDAny(ctx, userID, id); err != nil {
		return fromDB(err)
	}
	return nil
}

// HardDelete физически удаляет узел. Административный путь; не защищён
// от висячих ссылок дедупликации на сообщение бэкенда.
func (s *TreeService) HardDelete(ctx context.Context, userID int64, id string) error {
	if _, err := s.nodes.GetByIDAny(ctx, userID, id); err != nil {
		return fromDB(err)
	}
	return s.nodes.HardDelete(ctx, userID, id)
}
