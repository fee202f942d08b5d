package telegram

import (
	"fmt"
	"sync"
)

var (
	factoryMu      sync.RWMutex
	defaultFactory Factory
)

// SetDefaultFactory регистрирует реализацию клиента мессенджера.
// Вызывается из пакета-адаптера конкретной клиентской библиотеки
// (обычно в init), по образцу регистрации драйверов database/sql.
func SetDefaultFactory(f Factory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	defaultFactory = f
}

// NewClient создаёт клиента зарегистрированной реализацией.
func NewClient(identity Identity, opts Options) (Client, error) {
	factoryMu.RLock()
	f := defaultFactory
	factoryMu.RUnlock()
	if f == nil {
		return nil, fmt.Errorf("no telegram client implementation registered")
	}
	return f(identity, opts)
}
