package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"taskboard/models"
	"taskboard/utilities"
)

// SignUpHandler cria o usuário no Firebase e a linha local correspondente.
func (a *App) SignUpHandler(w http.ResponseWriter, r *http.Request) {
	var creds models.Credentials
	if err := decodeJSON(r, &creds); err != nil {
		writeError(w, err, "SignUpHandler: corpo inválido")
		return
	}

	identity, err := a.Auth.SignUp(r.Context(), creds)
	if err != nil {
		writeError(w, err, "SignUpHandler: erro ao criar usuário")
		return
	}

	u := models.User{ID: identity.UID, Email: identity.Email, DisplayName: identity.DisplayName}
	if err := a.Store.UpsertUser(r.Context(), u); err != nil {
		writeError(w, err, "SignUpHandler: erro ao gravar usuário no banco")
		return
	}

	utilities.LogInfo("SignUpHandler: usuário %s registrado", identity.UID)
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Account created. You can sign in now.",
		"user":    identity,
	})
}

// SignInHandler troca e-mail e senha por tokens.
func (a *App) SignInHandler(w http.ResponseWriter, r *http.Request) {
	var creds models.Credentials
	if err := decodeJSON(r, &creds); err != nil {
		writeError(w, err, "SignInHandler: corpo inválido")
		return
	}

	tokens, err := a.Auth.SignIn(r.Context(), creds)
	if err != nil {
		writeError(w, err, "SignInHandler: login falhou")
		return
	}

	a.publishAuth(models.AuthSignedIn, tokens.UID)
	utilities.LogInfo("SignInHandler: usuário %s autenticado", tokens.UID)
	writeJSON(w, http.StatusOK, tokens)
}

// SignOutHandler revoga os tokens e limpa a sessão. Do ponto de vista do
// usuário o logout sempre funciona: token expirado ou rejeitado conta como
// logout local, e falhas remotas só vão para o log. A rota não passa pelo
// AuthMiddleware; o estado no servidor só é limpo com um uid verificado.
func (a *App) SignOutHandler(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeMessage(w, http.StatusOK, "Signed out")
		return
	}

	identity, err := a.Auth.Verify(r.Context(), token)
	if err != nil {
		utilities.LogDebug("SignOutHandler: token rejeitado (%v); logout apenas local", err)
		writeMessage(w, http.StatusOK, "Signed out")
		return
	}

	if err := a.Auth.SignOut(r.Context(), identity.UID); err != nil {
		utilities.LogError(err, "SignOutHandler: erro ao revogar tokens; limpando sessão local")
	}
	if err := a.Store.ClearLastWorkspace(r.Context(), identity.UID); err != nil {
		utilities.LogError(err, "SignOutHandler: erro ao limpar último workspace de "+identity.UID)
	}

	a.Sessions.End(r.Context(), identity.UID)
	a.seen.Delete(identity.UID)
	a.publishAuth(models.AuthSignedOut, identity.UID)

	writeMessage(w, http.StatusOK, "Signed out")
}

// SessionHandler devolve o estado da sessão: escopo, workspaces e tarefas.
func (a *App) SessionHandler(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())

	s, err := a.Sessions.Get(r.Context(), identity)
	if err != nil {
		writeError(w, err, "SessionHandler: erro ao iniciar sessão")
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// UpdateUserHandler altera o nome de exibição do usuário logado.
func (a *App) UpdateUserHandler(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())

	var input struct {
		DisplayName string `json:"display_name"`
	}
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err, "UpdateUserHandler: corpo inválido")
		return
	}
	input.DisplayName = strings.TrimSpace(input.DisplayName)
	if input.DisplayName == "" {
		writeError(w, fmt.Errorf("%w: display_name is required", models.ErrValidation), "UpdateUserHandler: validação falhou")
		return
	}

	if err := a.Auth.UpdateProfile(r.Context(), identity.UID, input.DisplayName); err != nil {
		writeError(w, err, "UpdateUserHandler: erro ao atualizar no Firebase")
		return
	}
	u := models.User{ID: identity.UID, Email: identity.Email, DisplayName: input.DisplayName}
	if u.Email != "" {
		if err := a.Store.UpsertUser(r.Context(), u); err != nil {
			writeError(w, err, "UpdateUserHandler: erro ao atualizar usuário no banco")
			return
		}
	}

	a.publishAuth(models.AuthUserUpdated, identity.UID)
	writeMessage(w, http.StatusOK, "Profile updated")
}
