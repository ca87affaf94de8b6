// Package session mantém o estado de escopo de cada usuário autenticado:
// a lista de workspaces, o escopo selecionado (pessoal ou um workspace) e o
// último snapshot de tarefas desse escopo.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"taskboard/models"
	"taskboard/utilities"
)

type State int

const (
	NoWorkspacesLoaded State = iota
	PersonalScope
	WorkspaceScope
)

func (s State) String() string {
	switch s {
	case PersonalScope:
		return "personal"
	case WorkspaceScope:
		return "workspace"
	}
	return "not_loaded"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Backend é a parte do armazenamento usada pela sessão.
type Backend interface {
	ListWorkspaces(ctx context.Context, uid string) ([]models.Workspace, error)
	ListTasks(ctx context.Context, uid string, workspaceID *string) ([]models.Task, error)
}

// PointerStore persiste o último workspace selecionado por usuário.
type PointerStore interface {
	LastWorkspace(ctx context.Context, uid string) (string, error)
	SetLastWorkspace(ctx context.Context, uid, workspaceID string) error
	ClearLastWorkspace(ctx context.Context, uid string) error
}

// Snapshot é uma cópia imutável do estado entregue aos observadores.
type Snapshot struct {
	Identity      models.Identity    `json:"identity"`
	State         State              `json:"state"`
	WorkspaceID   *string            `json:"workspace_id"`
	Workspace     *models.Workspace  `json:"workspace,omitempty"`
	Workspaces    []models.Workspace `json:"workspaces"`
	Tasks         []models.Task      `json:"tasks"`
	SchemaMissing bool               `json:"schema_missing"`
	FetchError    string             `json:"fetch_error,omitempty"`
}

type Session struct {
	mu       sync.Mutex
	backend  Backend
	pointers PointerStore
	identity models.Identity

	state         State
	current       string
	workspaces    []models.Workspace
	tasks         []models.Task
	schemaMissing bool
	fetchError    string

	startOnce sync.Once
	startErr  error

	obsMu     sync.Mutex
	observers map[int]func(Snapshot)
	nextObs   int
}

func New(backend Backend, pointers PointerStore, identity models.Identity) *Session {
	return &Session{
		backend:   backend,
		pointers:  pointers,
		identity:  identity,
		state:     NoWorkspacesLoaded,
		tasks:     []models.Task{},
		observers: make(map[int]func(Snapshot)),
	}
}

// Subscribe registra fn para receber um snapshot após cada transição.
// A função devolvida cancela o registro.
func (s *Session) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.obsMu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.obsMu.Unlock()

	return func() {
		s.obsMu.Lock()
		delete(s.observers, id)
		s.obsMu.Unlock()
	}
}

func (s *Session) notify(snap Snapshot) {
	s.obsMu.Lock()
	fns := make([]func(Snapshot), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.obsMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// Snapshot devolve o estado atual.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		Identity:      s.identity,
		State:         s.state,
		Workspaces:    append([]models.Workspace{}, s.workspaces...),
		Tasks:         append([]models.Task{}, s.tasks...),
		SchemaMissing: s.schemaMissing,
		FetchError:    s.fetchError,
	}
	if s.state == WorkspaceScope {
		id := s.current
		snap.WorkspaceID = &id
		if ws := s.find(id); ws != nil {
			copied := *ws
			snap.Workspace = &copied
		}
	}
	return snap
}

// Scope devolve o workspace do escopo atual, ou nil no escopo pessoal.
func (s *Session) Scope() *string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != WorkspaceScope {
		return nil
	}
	id := s.current
	return &id
}

func (s *Session) find(id string) *models.Workspace {
	for i := range s.workspaces {
		if s.workspaces[i].ID == id {
			return &s.workspaces[i]
		}
	}
	return nil
}

// transition executa fn com a sessão travada, busca as tarefas do novo escopo
// e notifica os observadores depois de liberar a trava.
func (s *Session) transition(ctx context.Context, fn func() error) error {
	s.mu.Lock()
	if err := fn(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.refreshLocked(ctx)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

// loadWorkspacesLocked recarrega a lista. Uma falha deixa a lista vazia.
func (s *Session) loadWorkspacesLocked(ctx context.Context) {
	list, err := s.backend.ListWorkspaces(ctx, s.identity.UID)
	if err != nil {
		utilities.LogError(err, fmt.Sprintf("Erro ao carregar workspaces de %s", s.identity.UID))
		list = []models.Workspace{}
	}
	s.workspaces = list
}

// refreshLocked busca o snapshot completo do escopo atual. Falhas degradam
// para lista vazia; esquema ausente é sinalizado à parte.
func (s *Session) refreshLocked(ctx context.Context) {
	var scope *string
	if s.state == WorkspaceScope {
		id := s.current
		scope = &id
	}

	tasks, err := s.backend.ListTasks(ctx, s.identity.UID, scope)
	s.schemaMissing = false
	s.fetchError = ""
	if err != nil {
		tasks = []models.Task{}
		if errors.Is(err, models.ErrSchemaMissing) {
			s.schemaMissing = true
			utilities.LogInfo("Tabela de tarefas ainda não existe; exibindo lista vazia")
		} else {
			s.fetchError = err.Error()
			utilities.LogError(err, "Erro ao buscar tarefas")
		}
	}
	s.tasks = tasks
}

// Start carrega os workspaces e restaura o último escopo salvo, se ele ainda
// existir na lista. Caso contrário a sessão começa no escopo pessoal.
func (s *Session) Start(ctx context.Context) error {
	return s.transition(ctx, func() error {
		s.loadWorkspacesLocked(ctx)
		s.state = PersonalScope
		s.current = ""

		saved, err := s.pointers.LastWorkspace(ctx, s.identity.UID)
		if err != nil {
			utilities.LogError(err, "Erro ao ler último workspace selecionado")
			return nil
		}
		if saved != "" && s.find(saved) != nil {
			s.state = WorkspaceScope
			s.current = saved
		} else if saved != "" {
			utilities.LogDebug("Workspace salvo %s não existe mais; usando escopo pessoal", saved)
		}
		return nil
	})
}

// ensureStarted roda Start uma única vez. Chamadas concorrentes esperam a
// primeira terminar, então ninguém vê a sessão antes do escopo restaurado.
func (s *Session) ensureStarted(ctx context.Context) error {
	s.startOnce.Do(func() {
		s.startErr = s.Start(ctx)
	})
	return s.startErr
}

// SelectPersonal muda para o escopo pessoal e limpa o ponteiro salvo.
func (s *Session) SelectPersonal(ctx context.Context) error {
	return s.transition(ctx, func() error {
		s.state = PersonalScope
		s.current = ""
		if err := s.pointers.ClearLastWorkspace(ctx, s.identity.UID); err != nil {
			utilities.LogError(err, "Erro ao limpar último workspace selecionado")
		}
		return nil
	})
}

// SelectWorkspace muda para um workspace da lista e persiste a escolha.
// Um id desconhecido não altera o estado.
func (s *Session) SelectWorkspace(ctx context.Context, id string) error {
	return s.transition(ctx, func() error {
		if s.find(id) == nil {
			return fmt.Errorf("%w: workspace %s", models.ErrNotFound, id)
		}
		s.state = WorkspaceScope
		s.current = id
		if err := s.pointers.SetLastWorkspace(ctx, s.identity.UID, id); err != nil {
			utilities.LogError(err, "Erro ao salvar último workspace selecionado")
		}
		return nil
	})
}

// WorkspaceCreated recarrega a lista e seleciona o workspace recém-criado.
func (s *Session) WorkspaceCreated(ctx context.Context, ws models.Workspace) error {
	return s.transition(ctx, func() error {
		s.loadWorkspacesLocked(ctx)
		if s.find(ws.ID) == nil {
			s.workspaces = append([]models.Workspace{ws}, s.workspaces...)
		}
		s.state = WorkspaceScope
		s.current = ws.ID
		if err := s.pointers.SetLastWorkspace(ctx, s.identity.UID, ws.ID); err != nil {
			utilities.LogError(err, "Erro ao salvar último workspace selecionado")
		}
		return nil
	})
}

// WorkspaceDeleted recarrega a lista; se o workspace removido era o atual,
// volta ao escopo pessoal.
func (s *Session) WorkspaceDeleted(ctx context.Context, id string) error {
	return s.transition(ctx, func() error {
		s.loadWorkspacesLocked(ctx)
		if s.state == WorkspaceScope && s.current == id {
			s.fallbackLocked(ctx)
		}
		return nil
	})
}

// ReloadWorkspaces é chamado quando workspaces ou associações mudam. Se o
// workspace atual saiu da lista, a sessão volta ao escopo pessoal.
func (s *Session) ReloadWorkspaces(ctx context.Context) error {
	return s.transition(ctx, func() error {
		s.loadWorkspacesLocked(ctx)
		if s.state == WorkspaceScope && s.find(s.current) == nil {
			s.fallbackLocked(ctx)
		}
		return nil
	})
}

func (s *Session) fallbackLocked(ctx context.Context) {
	utilities.LogInfo("Workspace %s indisponível para %s; voltando ao escopo pessoal", s.current, s.identity.UID)
	s.state = PersonalScope
	s.current = ""
	if err := s.pointers.ClearLastWorkspace(ctx, s.identity.UID); err != nil {
		utilities.LogError(err, "Erro ao limpar último workspace selecionado")
	}
}

// Refresh busca de novo as tarefas do escopo atual.
func (s *Session) Refresh(ctx context.Context) error {
	return s.transition(ctx, func() error {
		if s.state == NoWorkspacesLoaded {
			s.loadWorkspacesLocked(ctx)
			s.state = PersonalScope
		}
		return nil
	})
}

// End encerra a sessão: limpa o ponteiro salvo e o estado local. Nunca falha.
func (s *Session) End(ctx context.Context) {
	s.mu.Lock()
	if err := s.pointers.ClearLastWorkspace(ctx, s.identity.UID); err != nil {
		utilities.LogError(err, "Erro ao limpar último workspace selecionado")
	}
	s.state = NoWorkspacesLoaded
	s.current = ""
	s.workspaces = nil
	s.tasks = []models.Task{}
	s.schemaMissing = false
	s.fetchError = ""
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
}
