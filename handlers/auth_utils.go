package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"taskboard/models"
	"taskboard/utilities"
)

type contextKey string

const identityKey contextKey = "identity"

// IdentityFrom devolve o usuário autenticado colocado no contexto pelo AuthMiddleware.
func IdentityFrom(ctx context.Context) (models.Identity, bool) {
	id, ok := ctx.Value(identityKey).(models.Identity)
	return id, ok
}

func withIdentity(ctx context.Context, id models.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// bearerToken extrai o token do header Authorization. Conexões websocket
// não enviam headers, então o parâmetro access_token também é aceito.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return r.URL.Query().Get("access_token")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		utilities.LogError(err, "Erro ao codificar resposta JSON")
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// statusFor traduz os erros de domínio para status HTTP.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrSchemaMissing):
		return http.StatusServiceUnavailable
	case errors.Is(err, models.ErrNetwork):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeError registra o erro e responde {"error": ...}. Erros internos não
// expõem detalhes ao cliente.
func writeError(w http.ResponseWriter, err error, context string) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	if status >= 500 {
		utilities.LogError(err, context)
	} else {
		utilities.LogDebug("%s: %v", context, err)
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON payload: %v", models.ErrValidation, err)
	}
	return nil
}

// publishAuth emite um evento de estado de autenticação no hub.
func (a *App) publishAuth(event, uid string) {
	if a.Hub == nil {
		return
	}
	a.Hub.Publish(models.ChangeEvent{
		Table:  models.TableAuth,
		Event:  event,
		Record: map[string]any{"user_id": uid},
		At:     time.Now().UTC(),
	})
}

// record grava uma entrada no histórico. Falhas só são registradas no log.
func (a *App) record(ctx context.Context, actor, action, target, targetID, summary string, workspaceID *string) {
	if a.Activity == nil {
		return
	}
	entry := models.Activity{
		ActorID:   actor,
		Action:    action,
		Target:    target,
		TargetID:  targetID,
		Summary:   summary,
		Timestamp: time.Now().UTC(),
	}
	if workspaceID != nil {
		entry.WorkspaceID = *workspaceID
	}
	if err := a.Activity.Record(ctx, entry); err != nil {
		utilities.LogError(err, "Erro ao registrar atividade "+action)
	}
}
