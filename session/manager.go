package session

import (
	"context"
	"sync"
	"time"

	"taskboard/models"
	"taskboard/realtime"
	"taskboard/utilities"
)

// WatchChannel é o canal de tempo real que dispara o refetch das sessões.
const WatchChannel = "workspace-changes"

const refetchTimeout = 15 * time.Second

// Manager guarda uma Session por usuário. É criado uma vez no main e
// repassado aos handlers.
type Manager struct {
	mu       sync.Mutex
	backend  Backend
	pointers PointerStore
	sessions map[string]*Session

	hub     *realtime.Hub
	channel *realtime.Channel
}

func NewManager(backend Backend, pointers PointerStore) *Manager {
	return &Manager{
		backend:  backend,
		pointers: pointers,
		sessions: make(map[string]*Session),
	}
}

// Get devolve a sessão de identity, criando e iniciando na primeira chamada.
func (m *Manager) Get(ctx context.Context, identity models.Identity) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[identity.UID]
	if !ok {
		s = New(m.backend, m.pointers, identity)
		m.sessions[identity.UID] = s
	}
	m.mu.Unlock()

	if err := s.ensureStarted(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Lookup devolve a sessão existente sem criar uma nova.
func (m *Manager) Lookup(uid string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[uid]
	return s, ok
}

// End encerra e descarta a sessão de uid, se houver.
func (m *Manager) End(ctx context.Context, uid string) {
	m.mu.Lock()
	s, ok := m.sessions[uid]
	delete(m.sessions, uid)
	m.mu.Unlock()

	if ok {
		s.End(ctx)
	}
}

func (m *Manager) each(fn func(*Session)) {
	m.mu.Lock()
	list := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		list = append(list, s)
	}
	m.mu.Unlock()

	for _, s := range list {
		fn(s)
	}
}

// Watch assina o hub: mudanças em workspaces ou associações recarregam a
// lista de todas as sessões; mudanças em tarefas refazem a busca de tarefas.
// O refetch é sempre completo e pode rodar repetido sem prejuízo.
func (m *Manager) Watch(hub *realtime.Hub) {
	reload := func(ev models.ChangeEvent) {
		utilities.LogDebug("Mudança em %s (%s); recarregando workspaces", ev.Table, ev.Event)
		m.each(func(s *Session) {
			ctx, cancel := context.WithTimeout(context.Background(), refetchTimeout)
			defer cancel()
			s.ReloadWorkspaces(ctx)
		})
	}
	refresh := func(ev models.ChangeEvent) {
		m.each(func(s *Session) {
			ctx, cancel := context.WithTimeout(context.Background(), refetchTimeout)
			defer cancel()
			s.Refresh(ctx)
		})
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.hub = hub
	m.channel = hub.Channel(WatchChannel).
		On(models.EventAny, models.TableWorkspaces, reload).
		On(models.EventAny, models.TableWorkspaceMembers, reload).
		On(models.EventAny, models.TableTasks, refresh).
		Subscribe()
}

// Close cancela a assinatura do hub.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hub != nil {
		m.hub.RemoveChannel(m.channel)
		m.hub, m.channel = nil, nil
	}
}
