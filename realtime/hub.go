// Package realtime distribui eventos de mudança de linha para assinantes
// dentro do processo, no modelo channel(nome).On(evento, tabela).Subscribe().
package realtime

import (
	"sync"

	"taskboard/models"
	"taskboard/utilities"
)

type Callback func(models.ChangeEvent)

type binding struct {
	event    string
	table    string
	callback Callback
}

func (b binding) matches(ev models.ChangeEvent) bool {
	return (b.event == models.EventAny || b.event == ev.Event) &&
		(b.table == models.EventAny || b.table == ev.Table)
}

// Channel agrupa assinaturas sob um nome. Só recebe eventos depois de Subscribe.
type Channel struct {
	hub      *Hub
	name     string
	bindings []binding
}

func (c *Channel) Name() string {
	return c.name
}

// On registra cb para event ("*" para qualquer) na tabela indicada.
func (c *Channel) On(event, table string, cb Callback) *Channel {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	c.bindings = append(c.bindings, binding{event: event, table: table, callback: cb})
	return c
}

// Subscribe ativa o canal no hub.
func (c *Channel) Subscribe() *Channel {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	c.hub.channels[c] = struct{}{}
	utilities.LogDebug("Canal %s assinado", c.name)
	return c
}

// Hub é o barramento de eventos. A entrega é best-effort: cada callback roda
// na sua própria goroutine e não há garantia de ordem entre eventos.
type Hub struct {
	mu       sync.RWMutex
	channels map[*Channel]struct{}
}

func NewHub() *Hub {
	return &Hub{channels: make(map[*Channel]struct{})}
}

// Channel cria um canal ainda não assinado.
func (h *Hub) Channel(name string) *Channel {
	return &Channel{hub: h, name: name}
}

// RemoveChannel cancela o canal; eventos posteriores não são entregues a ele.
func (h *Hub) RemoveChannel(c *Channel) {
	if c == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.channels, c)
	utilities.LogDebug("Canal %s removido", c.name)
}

// Publish entrega ev a todas as assinaturas compatíveis.
func (h *Hub) Publish(ev models.ChangeEvent) {
	h.mu.RLock()
	var targets []Callback
	for c := range h.channels {
		for _, b := range c.bindings {
			if b.matches(ev) {
				targets = append(targets, b.callback)
			}
		}
	}
	h.mu.RUnlock()

	for _, cb := range targets {
		go cb(ev)
	}
}

// Subscribers devolve o número de canais ativos.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels)
}
