package handlers

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"taskboard/dashboard"
	"taskboard/models"
	"taskboard/realtime"
	"taskboard/utilities"
)

const membershipTimeout = 5 * time.Second

// SelectScopeHandler troca o escopo da sessão. Um workspace_id vazio ou
// ausente volta ao escopo pessoal.
func (a *App) SelectScopeHandler(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())

	var input struct {
		WorkspaceID *string `json:"workspace_id"`
	}
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err, "SelectScopeHandler: corpo inválido")
		return
	}

	s, err := a.Sessions.Get(r.Context(), identity)
	if err != nil {
		writeError(w, err, "SelectScopeHandler: erro ao iniciar sessão")
		return
	}

	if input.WorkspaceID == nil || strings.TrimSpace(*input.WorkspaceID) == "" {
		err = s.SelectPersonal(r.Context())
	} else {
		err = s.SelectWorkspace(r.Context(), strings.TrimSpace(*input.WorkspaceID))
	}
	if err != nil {
		writeError(w, err, "SelectScopeHandler: erro ao trocar escopo")
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// DashboardHandler resume as tarefas do escopo atual, sem filtros.
func (a *App) DashboardHandler(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())

	s, err := a.Sessions.Get(r.Context(), identity)
	if err != nil {
		writeError(w, err, "DashboardHandler: erro ao iniciar sessão")
		return
	}
	s.Refresh(r.Context())
	snap := s.Snapshot()

	writeJSON(w, http.StatusOK, map[string]any{
		"scope":          snap.State,
		"workspace_id":   snap.WorkspaceID,
		"schema_missing": snap.SchemaMissing,
		"summary":        dashboard.Summarize(snap.Tasks),
	})
}

var realtimeTables = []string{
	models.TableTasks,
	models.TableWorkspaces,
	models.TableWorkspaceMembers,
	models.TableAuth,
}

// RealtimeHandler abre o websocket de notificações do usuário.
func (a *App) RealtimeHandler(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())
	filter := newNoticeFilter(r.Context(), a.Store, identity.UID)
	realtime.Serve(a.Hub, w, r, "client-"+identity.UID, realtimeTables, filter.accept)
}

type membership interface {
	ListWorkspaces(ctx context.Context, uid string) ([]models.Workspace, error)
	IsMember(ctx context.Context, uid, workspaceID string) (bool, error)
}

// noticeFilter decide quais mudanças chegam a um cliente: as próprias tarefas
// e eventos de autenticação, e mudanças de workspaces dos quais ele é ou foi
// membro durante a conexão.
type noticeFilter struct {
	store membership
	uid   string

	mu    sync.Mutex
	known map[string]bool
}

func newNoticeFilter(ctx context.Context, store membership, uid string) *noticeFilter {
	f := &noticeFilter{store: store, uid: uid, known: make(map[string]bool)}
	list, err := store.ListWorkspaces(ctx, uid)
	if err != nil {
		utilities.LogError(err, "Erro ao carregar workspaces para o filtro de notificações")
	}
	for _, ws := range list {
		f.known[ws.ID] = true
	}
	return f
}

func (f *noticeFilter) accept(ev models.ChangeEvent) bool {
	switch ev.Table {
	case models.TableAuth, models.TableTasks:
		return recordString(ev, "user_id") == f.uid
	case models.TableWorkspaces:
		id := recordString(ev, "id")
		if recordString(ev, "owner_id") == f.uid {
			f.remember(id)
			return true
		}
		return f.memberOf(id)
	case models.TableWorkspaceMembers:
		id := recordString(ev, "workspace_id")
		if recordString(ev, "user_id") == f.uid {
			f.remember(id)
			return true
		}
		return f.memberOf(id)
	}
	return false
}

func (f *noticeFilter) remember(workspaceID string) {
	if workspaceID == "" {
		return
	}
	f.mu.Lock()
	f.known[workspaceID] = true
	f.mu.Unlock()
}

// memberOf consulta o banco só para workspaces ainda não vistos. Workspaces
// já conhecidos continuam aceitos depois de deletados, para o cliente saber.
func (f *noticeFilter) memberOf(workspaceID string) bool {
	if workspaceID == "" {
		return false
	}
	f.mu.Lock()
	known := f.known[workspaceID]
	f.mu.Unlock()
	if known {
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), membershipTimeout)
	defer cancel()
	member, err := f.store.IsMember(ctx, f.uid, workspaceID)
	if err != nil {
		utilities.LogError(err, "Erro ao verificar membresia para notificação")
		return false
	}
	if member {
		f.remember(workspaceID)
	}
	return member
}

func recordString(ev models.ChangeEvent, key string) string {
	v, _ := ev.Record[key].(string)
	return v
}

// HealthHandler verifica a conexão com o banco.
func (a *App) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if err := a.Store.PingContext(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"database":    a.Store.Dialect(),
		"subscribers": a.Hub.Subscribers(),
	})
}
