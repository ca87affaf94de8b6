package handlers

import (
	"context"
	"sync"

	"taskboard/database"
	"taskboard/models"
	"taskboard/realtime"
	"taskboard/session"
)

// Authenticator é a fronteira com o provedor de autenticação.
type Authenticator interface {
	SignUp(ctx context.Context, c models.Credentials) (*models.Identity, error)
	SignIn(ctx context.Context, c models.Credentials) (*models.AuthTokens, error)
	SignOut(ctx context.Context, uid string) error
	Verify(ctx context.Context, idToken string) (*models.Identity, error)
	UpdateProfile(ctx context.Context, uid, displayName string) error
}

// ActivityLog registra o histórico de alterações de cada escopo.
type ActivityLog interface {
	Record(ctx context.Context, a models.Activity) error
	Recent(ctx context.Context, uid, workspaceID string, limit int) ([]models.Activity, error)
	PurgeWorkspace(ctx context.Context, workspaceID string) error
}

// App reúne as dependências dos handlers. É montado uma vez no main.
type App struct {
	Store    *database.DB
	Auth     Authenticator
	Sessions *session.Manager
	Hub      *realtime.Hub
	Activity ActivityLog

	// uid -> iat do último token visto
	seen sync.Map
}

func NewApp(store *database.DB, auth Authenticator, sessions *session.Manager, hub *realtime.Hub, activity ActivityLog) *App {
	return &App{
		Store:    store,
		Auth:     auth,
		Sessions: sessions,
		Hub:      hub,
		Activity: activity,
	}
}
