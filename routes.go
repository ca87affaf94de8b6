package main

import (
	"net/http"

	gorillahandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"taskboard/handlers"
	"taskboard/utilities"
)

// NewRouter monta as rotas da API com logging, CORS e recuperação de panics.
func NewRouter(app *handlers.App, allowedOrigins []string) http.Handler {
	r := mux.NewRouter()

	// Aplicar o middleware de logging global em todas as rotas
	r.Use(handlers.LoggingMiddleware)

	r.HandleFunc("/healthz", app.HealthHandler).Methods("GET")

	// --- Rotas de Autenticação ---
	r.HandleFunc("/auth/signup", app.SignUpHandler).Methods("POST")
	r.HandleFunc("/auth/signin", app.SignInHandler).Methods("POST")
	r.HandleFunc("/auth/signout", app.SignOutHandler).Methods("POST")
	r.HandleFunc("/auth/session", app.AuthMiddleware(app.SessionHandler)).Methods("GET")
	r.HandleFunc("/user", app.AuthMiddleware(app.UpdateUserHandler)).Methods("PUT")

	// --- Rotas de Workspace ---
	r.HandleFunc("/workspaces", app.AuthMiddleware(app.ListWorkspacesHandler)).Methods("GET")
	r.HandleFunc("/workspaces", app.AuthMiddleware(app.CreateWorkspaceHandler)).Methods("POST")
	r.HandleFunc("/workspaces/{workspace_id}", app.AuthMiddleware(app.GetWorkspaceHandler)).Methods("GET")
	r.HandleFunc("/workspaces/{workspace_id}", app.AuthMiddleware(app.UpdateWorkspaceHandler)).Methods("PUT")
	r.HandleFunc("/workspaces/{workspace_id}", app.AuthMiddleware(app.DeleteWorkspaceHandler)).Methods("DELETE")
	r.HandleFunc("/workspaces/{workspace_id}/members", app.AuthMiddleware(app.ListMembersHandler)).Methods("GET")
	r.HandleFunc("/workspaces/{workspace_id}/members", app.AuthMiddleware(app.InviteMemberHandler)).Methods("POST")
	r.HandleFunc("/workspaces/{workspace_id}/members/{user_id}", app.AuthMiddleware(app.RemoveMemberHandler)).Methods("DELETE")
	r.HandleFunc("/workspaces/{workspace_id}/activity", app.AuthMiddleware(app.ActivityHandler)).Methods("GET")

	// --- Rotas de Sessão ---
	r.HandleFunc("/session/scope", app.AuthMiddleware(app.SelectScopeHandler)).Methods("PUT")
	r.HandleFunc("/dashboard", app.AuthMiddleware(app.DashboardHandler)).Methods("GET")
	r.HandleFunc("/realtime", app.AuthMiddleware(app.RealtimeHandler)).Methods("GET")

	// --- Rotas de Tarefas (escopo vem da sessão ou do corpo) ---
	r.HandleFunc("/tasks", app.AuthMiddleware(app.ListTasksHandler)).Methods("GET")
	r.HandleFunc("/tasks", app.AuthMiddleware(app.CreateTaskHandler)).Methods("POST")
	r.HandleFunc("/tasks/{task_id}", app.AuthMiddleware(app.GetTaskHandler)).Methods("GET")
	r.HandleFunc("/tasks/{task_id}", app.AuthMiddleware(app.UpdateTaskHandler)).Methods("PUT")
	r.HandleFunc("/tasks/{task_id}", app.AuthMiddleware(app.DeleteTaskHandler)).Methods("DELETE")
	r.HandleFunc("/tasks/{task_id}/toggle", app.AuthMiddleware(app.ToggleTaskHandler)).Methods("POST")

	// Configuração do CORS
	headers := gorillahandlers.AllowedHeaders([]string{"X-Requested-With", "Content-Type", "Authorization"})
	methods := gorillahandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	origins := gorillahandlers.AllowedOrigins(allowedOrigins)
	utilities.LogInfo("Configurando CORS com origens permitidas: %v", allowedOrigins)

	recovery := gorillahandlers.RecoveryHandler(gorillahandlers.RecoveryLogger(utilities.ErrorLogger), gorillahandlers.PrintRecoveryStack(true))
	return recovery(gorillahandlers.CORS(headers, methods, origins)(r))
}
