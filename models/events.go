package models

import "time"

// Eventos de mudança de linha, no formato do canal de tempo real.
const (
	EventInsert = "INSERT"
	EventUpdate = "UPDATE"
	EventDelete = "DELETE"
	EventAny    = "*"
)

// Eventos de estado de autenticação, publicados na tabela "auth".
const (
	AuthSignedIn       = "SIGNED_IN"
	AuthSignedOut      = "SIGNED_OUT"
	AuthTokenRefreshed = "TOKEN_REFRESHED"
	AuthUserUpdated    = "USER_UPDATED"
)

const (
	TableTasks            = "tasks"
	TableWorkspaces       = "workspaces"
	TableWorkspaceMembers = "workspace_members"
	TableAuth             = "auth"
)

type ChangeEvent struct {
	Table  string         `json:"table"`
	Event  string         `json:"event"`
	Record map[string]any `json:"record,omitempty"`
	At     time.Time      `json:"at"`
}

// Activity é uma entrada do histórico de alterações de um escopo.
type Activity struct {
	ID          string    `json:"id" firestore:"-"`
	ActorID     string    `json:"actor_id" firestore:"actor_id"`
	Action      string    `json:"action" firestore:"action"`
	Target      string    `json:"target" firestore:"target"`
	TargetID    string    `json:"target_id" firestore:"target_id"`
	Summary     string    `json:"summary" firestore:"summary"`
	WorkspaceID string    `json:"workspace_id,omitempty" firestore:"workspace_id,omitempty"`
	Timestamp   time.Time `json:"timestamp" firestore:"timestamp"`
}
