package telegram

import (
	"context"
	"sync"
)

// PendingLogin — полуоткрытое соединение логина, ожидающее код подтверждения.
type PendingLogin struct {
	Client        Client
	PhoneCodeHash string
}

// PendingLogins — реестр незавершённых логинов с ключом по телефону.
// Записи обязаны удаляться (с закрытием соединения) при успехе, любой
// ошибке проверки и при остановке процесса — иначе текут соединения.
type PendingLogins struct {
	mu sync.Mutex
	m  map[string]PendingLogin
}

// NewPendingLogins создаёт пустой реестр.
func NewPendingLogins() *PendingLogins {
	return &PendingLogins{m: make(map[string]PendingLogin)}
}

// Put регистрирует новое полуоткрытое соединение, закрывая предыдущее
// для этого телефона, если оно осталось.
func (p *PendingLogins) Put(ctx context.Context, phone string, login PendingLogin) {
	p.mu.Lock()
	old, had := p.m[phone]
	p.m[phone] = login
	p.mu.Unlock()

	if had && old.Client != nil {
		_ = old.Client.Disconnect(ctx)
	}
}

// Get возвращает запись без удаления.
func (p *PendingLogins) Get(phone string) (PendingLogin, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.m[phone]
	return l, ok
}

// Remove удаляет запись и закрывает её соединение.
func (p *PendingLogins) Remove(ctx context.Context, phone string) {
	p.mu.Lock()
	l, ok := p.m[phone]
	delete(p.m, phone)
	p.mu.Unlock()

	if ok && l.Client != nil {
		_ = l.Client.Disconnect(ctx)
	}
}

// Detach удаляет запись, не закрывая соединение (когда клиент передан
// дальше, например стал привилегированной идентичностью).
func (p *PendingLogins) Detach(phone string) (PendingLogin, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.m[phone]
	delete(p.m, phone)
	return l, ok
}

// CloseAll закрывает все полуоткрытые соединения (остановка процесса).
func (p *PendingLogins) CloseAll(ctx context.Context) {
	p.mu.Lock()
	pending := p.m
	p.m = make(map[string]PendingLogin)
	p.mu.Unlock()

	for _, l := range pending {
		if l.Client != nil {
			_ = l.Client.Disconnect(ctx)
		}
	}
}

// Len возвращает число незавершённых логинов.
func (p *PendingLogins) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.m)
}
