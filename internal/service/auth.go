package service

import (
	"TgDrive/internal/crypto"
	"TgDrive/internal/model"
	"TgDrive/internal/repo"
	"TgDrive/internal/telegram"
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AuthService ведёт логин привилегированной идентичности: код по телефону,
// подтверждение (с опциональным паролем 2FA), шифрование и сохранение
// сессии, перезапуск привилегированного соединения на новой сессии.
// Также служит источником сессии для telegram.Manager.
type AuthService struct {
	users    repo.UserRepository
	sessions repo.SessionRepository
	pending  *telegram.PendingLogins
	factory  telegram.Factory
	opts     telegram.Options
	key      []byte
	log      *zap.SugaredLogger

	manager *telegram.Manager
}

// NewAuthService создаёт сервис логина. Менеджер идентичностей
// присоединяется позже (он сам зависит от этого сервиса как от
// источника сессии).
func NewAuthService(users repo.UserRepository, sessions repo.SessionRepository, pending *telegram.PendingLogins, factory telegram.Factory, opts telegram.Options, key []byte, log *zap.SugaredLogger) *AuthService {
	return &AuthService{
		users: users, sessions: sessions, pending: pending,
		factory: factory, opts: opts, key: key, log: log,
	}
}

// AttachManager связывает сервис с менеджером идентичностей.
func (s *AuthService) AttachManager(m *telegram.Manager) { s.manager = m }

var _ telegram.SessionSource = (*AuthService)(nil)

// SessionString возвращает расшифрованную строку сессии привилегированной
// идентичности; telegram.ErrNoSession — если логина ещё не было.
func (s *AuthService) SessionString(ctx context.Context) (string, error) {
	u, err := s.users.GetOrCreateSingle(ctx)
	if err != nil {
		return "", err
	}
	row, err := s.sessions.Latest(ctx, u.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", telegram.ErrNoSession
	}
	if err != nil {
		return "", err
	}
	plain, err := crypto.Decrypt(row.SessionEncrypted, row.Nonce, s.key)
	if err != nil {
		return "", fmt.Errorf("decrypt session: %w", err)
	}
	return string(plain), nil
}

// SendCode открывает временное соединение и запрашивает код подтверждения.
// Соединение остаётся полуоткрытым в реестре до Verify.
func (s *AuthService) SendCode(ctx context.Context, phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", validationf("phone is required")
	}

	client, err := s.factory(telegram.IdentityUser, s.opts)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuth, err)
	}
	if err := client.Connect(ctx); err != nil {
		return "", fmt.Errorf("%w: connect: %v", ErrAuth, err)
	}
	hash, err := client.SendCode(ctx, phone)
	if err != nil {
		_ = client.Disconnect(ctx)
		return "", fmt.Errorf("%w: send code: %v", ErrAuth, err)
	}

	s.pending.Put(ctx, phone, telegram.PendingLogin{Client: client, PhoneCodeHash: hash})
	return hash, nil
}

// Verify завершает логин. Запись реестра удаляется (и соединение
// закрывается) на любом выходе — успех, неверный код, ошибка пароля.
func (s *AuthService) Verify(ctx context.Context, phone, code, password string) (*model.User, error) {
	// атомарное изъятие: конкурирующий SendCode, вставший в реестр между
	// проверкой и очисткой, не должен лишиться своего свежего соединения
	p, ok := s.pending.Detach(phone)
	if !ok {
		return nil, validationf("no pending login for %s; send code first", phone)
	}
	defer func() { _ = p.Client.Disconnect(ctx) }()

	err := p.Client.SignIn(ctx, phone, code, p.PhoneCodeHash)
	if errors.Is(err, telegram.ErrPasswordNeeded) {
		if password == "" {
			return nil, fmt.Errorf("%w: two-step verification enabled, password required", ErrAuth)
		}
		err = p.Client.CheckPassword(ctx, password)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuth, err)
	}

	session, err := p.Client.ExportSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: export session: %v", ErrAuth, err)
	}
	me, err := p.Client.Me(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuth, err)
	}

	u, err := s.users.GetOrCreateSingle(ctx)
	if err != nil {
		return nil, err
	}
	if me.Username != "" {
		if err := s.users.UpdateUsername(ctx, u.ID, me.Username); err != nil {
			return nil, err
		}
		u.Username = me.Username
	}

	cipher, nonce, err := crypto.Encrypt([]byte(session), s.key)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Replace(ctx, &model.TelegramSession{
		UserID: u.ID, SessionEncrypted: cipher, Nonce: nonce,
	}); err != nil {
		return nil, err
	}

	// привилегированное соединение пересоздаётся на свежей сессии;
	// сбой здесь не отменяет уже состоявшийся логин
	if s.manager != nil {
		if err := s.manager.RestartUser(ctx, session); err != nil {
			s.log.Warnw("failed to restart user client after login", "error", err)
		}
	}

	s.log.Infow("login verified", "username", u.Username)
	return u, nil
}

// Shutdown закрывает все полуоткрытые логины (остановка процесса).
func (s *AuthService) Shutdown(ctx context.Context) {
	s.pending.CloseAll(ctx)
}
