package models

import "time"

type Role string

const (
	RoleOwner  Role = "owner"
	RoleMember Role = "member"
)

func (r Role) Valid() bool {
	return r == RoleOwner || r == RoleMember
}

type Workspace struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	OwnerID     string            `json:"owner_id"`
	CreatedAt   time.Time         `json:"created_at"`
	Members     []WorkspaceMember `json:"workspace_members,omitempty"`
}

// IsOwner indica se uid é o dono do workspace.
func (w Workspace) IsOwner(uid string) bool {
	return w.OwnerID == uid
}

type WorkspaceMember struct {
	WorkspaceID string    `json:"workspace_id"`
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	Role        Role      `json:"role"`
	JoinedAt    time.Time `json:"joined_at"`
}

// WorkspaceInput é o corpo aceito na criação e atualização de workspaces.
type WorkspaceInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Invite é o corpo do convite de um membro por e-mail.
type Invite struct {
	Email string `json:"email"`
	Role  Role   `json:"role"`
}
