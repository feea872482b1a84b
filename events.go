package dogehouse

import (
	"sync"

	"github.com/PiggyPlex/dogehouse/message"
)

// ReadyHandler fires once session bootstrap completes, with the
// authenticated session user.
type ReadyHandler func(*message.ClientUser)

// MessageHandler fires for every newly observed chat message.
type MessageHandler func(*message.Message)

// events is the subscriber registry. Handlers registered after an event
// fired do not see past events; registration order is delivery order.
type events struct {
	mu      sync.RWMutex
	ready   []ReadyHandler
	message []MessageHandler
}

func (e *events) onReady(h ReadyHandler) {
	e.mu.Lock()
	e.ready = append(e.ready, h)
	e.mu.Unlock()
}

func (e *events) onMessage(h MessageHandler) {
	e.mu.Lock()
	e.message = append(e.message, h)
	e.mu.Unlock()
}

func (e *events) emitReady(u *message.ClientUser) {
	e.mu.RLock()
	handlers := make([]ReadyHandler, len(e.ready))
	copy(handlers, e.ready)
	e.mu.RUnlock()

	for _, h := range handlers {
		h(u)
	}
}

func (e *events) emitMessage(m *message.Message) {
	e.mu.RLock()
	handlers := make([]MessageHandler, len(e.message))
	copy(handlers, e.message)
	e.mu.RUnlock()

	for _, h := range handlers {
		h(m)
	}
}
