package service

import (
	"TgDrive/internal/model"
	"TgDrive/internal/pathutil"
	"TgDrive/internal/repo"
	"TgDrive/internal/telegram"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Исходы загрузки (wire-значения поля via).
const (
	ViaBot     = "bot"     // загружено легковесной идентичностью
	ViaUser    = "user"    // загружено привилегированной идентичностью
	ViaInstant = "instant" // дедупликация: байты не передавались
	ViaExists  = "exists"  // тот же путь и то же содержимое уже есть
)

// BlobTransport — контракт транспорта блобов (telegram.Transport).
type BlobTransport interface {
	Upload(ctx context.Context, target telegram.ChannelTarget, payload []byte, filename, mimeType, caption string) (telegram.MessageRef, telegram.Identity, error)
	Download(ctx context.Context, target telegram.ChannelTarget, messageID int64, sizeHint int64) ([]byte, error)
}

// UploadResult — итог загрузки.
type UploadResult struct {
	Node *model.Node
	Via  string
}

// FileService связывает дерево, индекс дедупликации, реестр каналов и
// транспорт в операции загрузки/выгрузки файлов.
type FileService struct {
	nodes     repo.NodeRepository
	tree      *TreeService
	channels  *ChannelService
	transport BlobTransport
	log       *zap.SugaredLogger
}

// NewFileService создаёт файловый сервис.
func NewFileService(nodes repo.NodeRepository, tree *TreeService, channels *ChannelService, transport BlobTransport, log *zap.SugaredLogger) *FileService {
	return &FileService{nodes: nodes, tree: tree, channels: channels, transport: transport, log: log}
}

// Upload принимает байты в каталог dirPath под именем filename.
//
// Порядок: нормализация пути -> checksum -> политика того же пути ->
// дедупликация -> передача в бэкенд -> запись узла. Узел создаётся
// только после успешного ответа транспорта; частичных записей нет.
func (s *FileService) Upload(ctx context.Context, userID int64, dirPath, filename string, payload []byte, declaredMime string) (*UploadResult, error) {
	if err := pathutil.ValidateName(filename); err != nil {
		return nil, validationf("%v", err)
	}
	if len(payload) == 0 {
		return nil, validationf("empty payload")
	}

	base := pathutil.Normalize(dirPath)
	fullPath := pathutil.Join(base, filename)

	checksum, err := telegram.Checksum(bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	mimeType := detectMime(filename, declaredMime)
	size := int64(len(payload))

	// тот же путь: то же содержимое — успех-noop, иное — конфликт
	if existing, err := s.nodes.GetByPath(ctx, userID, fullPath, model.KindFile); err == nil {
		if existing.Checksum != nil && *existing.Checksum == checksum {
			return &UploadResult{Node: existing, Via: ViaExists}, nil
		}
		return nil, conflictf("path %q is occupied by different content", fullPath)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// дедупликация в пределах владельца: ссылка на уже лежащее сообщение
	if anchor, err := s.nodes.FindByChecksum(ctx, userID, checksum); err == nil {
		node, err := s.createFileNode(ctx, userID, base, fullPath, filename,
			anchor.SizeBytes, mimeType, checksum, *anchor.ChannelID, *anchor.MessageID)
		if err != nil {
			return nil, err
		}
		s.log.Infow("upload deduplicated", "path", fullPath, "checksum", checksum)
		return &UploadResult{Node: node, Via: ViaInstant}, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	target, err := s.channels.EnsureForOwner(ctx, userID)
	if err != nil {
		return nil, err
	}

	caption, _ := json.Marshal(map[string]any{
		"path": base, "name": filename, "size": size, "checksum": checksum,
	})
	ref, identity, err := s.transport.Upload(ctx, target, payload, filename, mimeType, string(caption))
	if err != nil {
		if errors.Is(err, telegram.ErrNoSession) {
			return nil, fmt.Errorf("%w: %v", ErrAuth, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	node, err := s.createFileNode(ctx, userID, base, fullPath, filename,
		size, mimeType, checksum, ref.ChannelID, ref.MessageID)
	if err != nil {
		return nil, err
	}

	via := ViaBot
	if identity == telegram.IdentityUser {
		via = ViaUser
	}
	s.log.Infow("upload complete", "path", fullPath, "size", size, "via", via)
	return &UploadResult{Node: node, Via: via}, nil
}

// Download возвращает байты файла, перебирая адреса канала и обе
// идентичности до первого успеха.
func (s *FileService) Download(ctx context.Context, userID int64, id string) ([]byte, *model.Node, error) {
	node, err := s.nodes.GetByID(ctx, userID, id)
	if err != nil {
		return nil, nil, fromDB(err)
	}
	if node.IsFolder() || !node.HasContent() {
		return nil, nil, fmt.Errorf("%w: node %s has no downloadable content", ErrNotFound, id)
	}

	target := s.channels.TargetFor(ctx, userID, *node.ChannelID)
	data, err := s.transport.Download(ctx, target, *node.MessageID, node.SizeBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return data, node, nil
}

func (s *FileService) createFileNode(ctx context.Context, userID int64, base, fullPath, filename string, size int64, mimeType, checksum string, channelID, messageID int64) (*model.Node, error) {
	dirID, err := s.tree.EnsureDirectoryPath(ctx, userID, base)
	if err != nil {
		return nil, err
	}
	node := &model.Node{
		ID:        uuid.NewString(),
		UserID:    userID,
		ParentID:  dirID,
		Name:      filename,
		Kind:      model.KindFile,
		Path:      fullPath,
		Depth:     pathutil.Depth(fullPath),
		SizeBytes: size,
		Checksum:  &checksum,
		ChannelID: &channelID,
		MessageID: &messageID,
	}
	if mimeType != "" {
		node.MimeType = &mimeType
	}
	if err := s.tree.Create(ctx, node); err != nil {
		return nil, err
	}
	return node, nil
}

func detectMime(filename, declared string) string {
	// application/octet-stream — заглушка multipart-клиентов,
	// а не объявленный тип: уточняем по расширению
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if byExt := mime.TypeByExtension(filepath.Ext(filename)); byExt != "" {
		return byExt
	}
	return declared
}
