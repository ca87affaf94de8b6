package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"taskboard/models"
	"taskboard/utilities"
)

const defaultActivityLimit = 50

// ListWorkspacesHandler lista os workspaces do usuário com seus membros.
func (a *App) ListWorkspacesHandler(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())

	list, err := a.Store.ListWorkspaces(r.Context(), identity.UID)
	if errors.Is(err, models.ErrSchemaMissing) {
		writeJSON(w, http.StatusOK, map[string]any{"workspaces": []models.Workspace{}, "schema_missing": true})
		return
	}
	if err != nil {
		writeError(w, err, "ListWorkspacesHandler: erro ao buscar workspaces")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"workspaces": list, "schema_missing": false})
}

// CreateWorkspaceHandler cria o workspace e passa a sessão para ele.
func (a *App) CreateWorkspaceHandler(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())

	var input models.WorkspaceInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err, "CreateWorkspaceHandler: corpo inválido")
		return
	}

	ws, err := a.Store.CreateWorkspace(r.Context(), identity.UID, input)
	if err != nil {
		writeError(w, err, "CreateWorkspaceHandler: erro ao criar workspace")
		return
	}

	if s, err := a.Sessions.Get(r.Context(), identity); err == nil {
		s.WorkspaceCreated(r.Context(), *ws)
	}
	a.record(r.Context(), identity.UID, "workspace.created", "workspace", ws.ID, ws.Name, &ws.ID)

	writeJSON(w, http.StatusCreated, map[string]any{"message": "Workspace created", "workspace": ws})
}

// GetWorkspaceHandler busca um workspace do qual o usuário é membro.
func (a *App) GetWorkspaceHandler(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())

	ws, err := a.Store.GetWorkspace(r.Context(), identity.UID, mux.Vars(r)["workspace_id"])
	if err != nil {
		writeError(w, err, "GetWorkspaceHandler: erro ao buscar workspace")
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

// UpdateWorkspaceHandler altera nome e descrição (somente o dono).
func (a *App) UpdateWorkspaceHandler(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())
	workspaceID := mux.Vars(r)["workspace_id"]

	var input models.WorkspaceInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err, "UpdateWorkspaceHandler: corpo inválido")
		return
	}

	ws, err := a.Store.UpdateWorkspace(r.Context(), identity.UID, workspaceID, input)
	if err != nil {
		writeError(w, err, "UpdateWorkspaceHandler: erro ao atualizar workspace")
		return
	}

	if s, ok := a.Sessions.Lookup(identity.UID); ok {
		s.ReloadWorkspaces(r.Context())
	}
	a.record(r.Context(), identity.UID, "workspace.updated", "workspace", ws.ID, ws.Name, &ws.ID)

	writeJSON(w, http.StatusOK, map[string]any{"message": "Workspace updated", "workspace": ws})
}

// DeleteWorkspaceHandler remove o workspace com tarefas e membros (somente o dono).
func (a *App) DeleteWorkspaceHandler(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())
	workspaceID := mux.Vars(r)["workspace_id"]

	if err := a.Store.DeleteWorkspace(r.Context(), identity.UID, workspaceID); err != nil {
		writeError(w, err, "DeleteWorkspaceHandler: erro ao deletar workspace")
		return
	}

	if s, ok := a.Sessions.Lookup(identity.UID); ok {
		s.WorkspaceDeleted(r.Context(), workspaceID)
	}
	if a.Activity != nil {
		if err := a.Activity.PurgeWorkspace(r.Context(), workspaceID); err != nil {
			utilities.LogError(err, "DeleteWorkspaceHandler: erro ao limpar histórico do workspace "+workspaceID)
		}
	}

	utilities.LogInfo("DeleteWorkspaceHandler: workspace %s deletado por %s", workspaceID, identity.UID)
	writeMessage(w, http.StatusOK, "Workspace deleted")
}

// ListMembersHandler lista os membros do workspace.
func (a *App) ListMembersHandler(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())

	members, err := a.Store.ListMembers(r.Context(), identity.UID, mux.Vars(r)["workspace_id"])
	if err != nil {
		writeError(w, err, "ListMembersHandler: erro ao buscar membros")
		return
	}
	writeJSON(w, http.StatusOK, members)
}

// InviteMemberHandler adiciona um usuário cadastrado pelo e-mail.
func (a *App) InviteMemberHandler(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())
	workspaceID := mux.Vars(r)["workspace_id"]

	var invite models.Invite
	if err := decodeJSON(r, &invite); err != nil {
		writeError(w, err, "InviteMemberHandler: corpo inválido")
		return
	}

	member, err := a.Store.AddMember(r.Context(), identity.UID, workspaceID, invite)
	if err != nil {
		writeError(w, err, "InviteMemberHandler: erro ao convidar membro")
		return
	}

	a.record(r.Context(), identity.UID, "member.added", "member", member.UserID, member.Email, &workspaceID)
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Member invited", "member": member})
}

// RemoveMemberHandler remove um membro, ou o próprio usuário sai do workspace.
func (a *App) RemoveMemberHandler(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())
	vars := mux.Vars(r)
	workspaceID, userID := vars["workspace_id"], vars["user_id"]

	if err := a.Store.RemoveMember(r.Context(), identity.UID, workspaceID, userID); err != nil {
		writeError(w, err, "RemoveMemberHandler: erro ao remover membro")
		return
	}

	if s, ok := a.Sessions.Lookup(identity.UID); ok {
		s.ReloadWorkspaces(r.Context())
	}
	a.record(r.Context(), identity.UID, "member.removed", "member", userID, "", &workspaceID)
	writeMessage(w, http.StatusOK, "Member removed")
}

// ActivityHandler devolve o histórico recente do workspace.
func (a *App) ActivityHandler(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())
	workspaceID := mux.Vars(r)["workspace_id"]

	limit := defaultActivityLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be between 1 and 500"})
			return
		}
		limit = n
	}

	member, err := a.Store.IsMember(r.Context(), identity.UID, workspaceID)
	if err != nil {
		writeError(w, err, "ActivityHandler: erro ao verificar membresia")
		return
	}
	if !member {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not a member of this workspace"})
		return
	}

	if a.Activity == nil {
		writeJSON(w, http.StatusOK, []models.Activity{})
		return
	}
	entries, err := a.Activity.Recent(r.Context(), identity.UID, workspaceID, limit)
	if err != nil {
		writeError(w, err, "ActivityHandler: erro ao buscar histórico")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
