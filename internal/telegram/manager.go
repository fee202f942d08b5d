package telegram

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// State — состояние соединения одной идентичности.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateReady
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateStopping:
		return "stopping"
	default:
		return "disconnected"
	}
}

// ErrNoSession возвращается, когда привилегированная идентичность
// запрошена, а сохранённой сессии нет — требуется логин.
var ErrNoSession = errors.New("no user session available; login required")

// SessionSource отдаёт строку сессии привилегированной идентичности
// (расшифрованную из хранилища). Возвращает ErrNoSession, если сессии нет.
type SessionSource interface {
	SessionString(ctx context.Context) (string, error)
}

type connection struct {
	client Client
	state  State
}

// Manager владеет двумя долгоживущими клиентами: не более одного живого
// соединения на идентичность; запуск идемпотентен и защищён мьютексом,
// чтобы конкурентные старты не плодили соединения.
// Привилегированный клиент стартует лениво, по первой необходимости.
type Manager struct {
	mu       sync.Mutex
	factory  Factory
	opts     Options
	sessions SessionSource

	bot  connection
	user connection
}

// NewManager создаёт менеджер клиентов.
func NewManager(factory Factory, opts Options, sessions SessionSource) *Manager {
	return &Manager{factory: factory, opts: opts, sessions: sessions}
}

// Bot возвращает подключённую легковесную идентичность, запуская её при
// первом обращении.
func (m *Manager) Bot(ctx context.Context) (Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startLocked(ctx, &m.bot, IdentityBot, m.opts)
}

// User возвращает подключённую привилегированную идентичность.
// Сессия берётся из SessionSource; без неё — ErrNoSession.
func (m *Manager) User(ctx context.Context) (Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user.state == StateReady {
		return m.user.client, nil
	}
	session, err := m.sessions.SessionString(ctx)
	if err != nil {
		return nil, err
	}
	opts := m.opts
	opts.SessionString = session
	return m.startLocked(ctx, &m.user, IdentityUser, opts)
}

// Client возвращает клиента по идентичности.
func (m *Manager) Client(ctx context.Context, id Identity) (Client, error) {
	if id == IdentityUser {
		return m.User(ctx)
	}
	return m.Bot(ctx)
}

// RestartUser полностью останавливает текущее привилегированное соединение
// и поднимает новое с указанной сессией (смена учётных данных).
func (m *Manager) RestartUser(ctx context.Context, session string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.stopLocked(ctx, &m.user); err != nil {
		return err
	}
	opts := m.opts
	opts.SessionString = session
	_, err := m.startLocked(ctx, &m.user, IdentityUser, opts)
	return err
}

// Stop останавливает оба соединения. Безопасен при повторных вызовах.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	uerr := m.stopLocked(ctx, &m.user)
	berr := m.stopLocked(ctx, &m.bot)
	if uerr != nil {
		return uerr
	}
	return berr
}

// UserState возвращает состояние привилегированного соединения.
func (m *Manager) UserState() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user.state
}

// BotState возвращает состояние легковесного соединения.
func (m *Manager) BotState() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bot.state
}

// startLocked выполняет переход Disconnected -> Connecting -> Ready.
// Вызывается строго под m.mu.
func (m *Manager) startLocked(ctx context.Context, c *connection, id Identity, opts Options) (Client, error) {
	switch c.state {
	case StateReady:
		return c.client, nil
	case StateConnecting, StateStopping:
		// недостижимо при удержании мьютекса на всё время перехода,
		// но состояние проверяем, чтобы не зависеть от этого неявно
		return nil, fmt.Errorf("%s client busy: %s", id, c.state)
	}

	c.state = StateConnecting
	client, err := m.factory(id, opts)
	if err != nil {
		c.state = StateDisconnected
		return nil, fmt.Errorf("create %s client: %w", id, err)
	}
	if err := client.Connect(ctx); err != nil {
		c.state = StateDisconnected
		return nil, fmt.Errorf("connect %s client: %w", id, err)
	}
	c.client = client
	c.state = StateReady
	return client, nil
}

// stopLocked выполняет переход Ready -> Stopping -> Disconnected.
func (m *Manager) stopLocked(ctx context.Context, c *connection) error {
	if c.state != StateReady {
		c.state = StateDisconnected
		c.client = nil
		return nil
	}
	c.state = StateStopping
	err := c.client.Disconnect(ctx)
	c.client = nil
	c.state = StateDisconnected
	return err
}
