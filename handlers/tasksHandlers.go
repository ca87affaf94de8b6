package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"taskboard/filters"
	"taskboard/models"
)

// ListTasksHandler devolve as tarefas do escopo atual da sessão, já filtradas
// e ordenadas pelos critérios da query string.
func (a *App) ListTasksHandler(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())

	criteria, err := filters.ParseCriteria(r.URL.Query())
	if err != nil {
		writeError(w, err, "ListTasksHandler: critérios inválidos")
		return
	}

	s, err := a.Sessions.Get(r.Context(), identity)
	if err != nil {
		writeError(w, err, "ListTasksHandler: erro ao iniciar sessão")
		return
	}
	s.Refresh(r.Context())
	snap := s.Snapshot()

	writeJSON(w, http.StatusOK, map[string]any{
		"tasks":          filters.DeriveView(snap.Tasks, criteria),
		"total":          len(snap.Tasks),
		"scope":          snap.State,
		"workspace_id":   snap.WorkspaceID,
		"schema_missing": snap.SchemaMissing,
		"filters":        criteria,
		"filters_active": criteria.Active(),
	})
}

// CreateTaskHandler cria uma tarefa. Sem workspace_id no corpo, a tarefa vai
// para o escopo atual da sessão.
func (a *App) CreateTaskHandler(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())

	var input models.TaskInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err, "CreateTaskHandler: corpo inválido")
		return
	}

	s, err := a.Sessions.Get(r.Context(), identity)
	if err != nil {
		writeError(w, err, "CreateTaskHandler: erro ao iniciar sessão")
		return
	}
	if input.WorkspaceID == nil {
		input.WorkspaceID = s.Scope()
	}

	task, err := a.Store.CreateTask(r.Context(), identity.UID, input)
	if err != nil {
		writeError(w, err, "CreateTaskHandler: erro ao criar tarefa")
		return
	}

	s.Refresh(r.Context())
	a.record(r.Context(), identity.UID, "task.created", "task", task.ID, task.Title, task.WorkspaceID)
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Task created", "task": task})
}

// GetTaskHandler busca uma tarefa visível ao usuário.
func (a *App) GetTaskHandler(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())

	task, err := a.Store.GetTask(r.Context(), identity.UID, mux.Vars(r)["task_id"])
	if err != nil {
		writeError(w, err, "GetTaskHandler: erro ao buscar tarefa")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// UpdateTaskHandler aplica uma alteração parcial.
func (a *App) UpdateTaskHandler(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())

	var patch models.TaskPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, err, "UpdateTaskHandler: corpo inválido")
		return
	}

	task, err := a.Store.UpdateTask(r.Context(), identity.UID, mux.Vars(r)["task_id"], patch)
	if err != nil {
		writeError(w, err, "UpdateTaskHandler: erro ao atualizar tarefa")
		return
	}

	a.refreshSession(r, identity.UID)
	a.record(r.Context(), identity.UID, "task.updated", "task", task.ID, task.Title, task.WorkspaceID)
	writeJSON(w, http.StatusOK, map[string]any{"message": "Task updated", "task": task})
}

// ToggleTaskHandler inverte o campo completed.
func (a *App) ToggleTaskHandler(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())

	task, err := a.Store.ToggleComplete(r.Context(), identity.UID, mux.Vars(r)["task_id"])
	if err != nil {
		writeError(w, err, "ToggleTaskHandler: erro ao alternar tarefa")
		return
	}

	action := "task.reopened"
	if task.Completed {
		action = "task.completed"
	}
	a.refreshSession(r, identity.UID)
	a.record(r.Context(), identity.UID, action, "task", task.ID, task.Title, task.WorkspaceID)
	writeJSON(w, http.StatusOK, map[string]any{"message": "Task updated", "task": task})
}

// DeleteTaskHandler remove uma tarefa.
func (a *App) DeleteTaskHandler(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())

	task, err := a.Store.DeleteTask(r.Context(), identity.UID, mux.Vars(r)["task_id"])
	if err != nil {
		writeError(w, err, "DeleteTaskHandler: erro ao deletar tarefa")
		return
	}

	a.refreshSession(r, identity.UID)
	a.record(r.Context(), identity.UID, "task.deleted", "task", task.ID, task.Title, task.WorkspaceID)
	writeMessage(w, http.StatusOK, "Task deleted")
}

func (a *App) refreshSession(r *http.Request, uid string) {
	if s, ok := a.Sessions.Lookup(uid); ok {
		s.Refresh(r.Context())
	}
}
