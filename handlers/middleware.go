package handlers

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"time"

	"taskboard/models"
	"taskboard/utilities"
)

// LoggingMiddleware registra informações sobre cada requisição HTTP
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		utilities.LogRequest(r.Method, r.URL.Path, r.RemoteAddr, rw.statusCode, time.Since(start))
	})
}

// responseWriter é um wrapper para http.ResponseWriter que captura o status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader captura o status code antes de escrevê-lo
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack repassa a conexão para o upgrade do websocket.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer não suporta hijack")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}

// AuthMiddleware verifica o token e coloca a identidade no contexto. Na
// primeira requisição de um usuário a linha local dele é gravada, para que
// convites por e-mail o encontrem.
func (a *App) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, fmt.Errorf("%w: authorization header missing", models.ErrAuth), "Autenticação falhou")
			return
		}

		identity, err := a.Auth.Verify(r.Context(), token)
		if err != nil {
			writeError(w, fmt.Errorf("%w: invalid token", models.ErrAuth), "Token inválido")
			utilities.LogDebug("Falha na verificação do token: %v", err)
			return
		}

		a.trackIdentity(r, *identity)
		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), *identity)))
	}
}

func (a *App) trackIdentity(r *http.Request, identity models.Identity) {
	prev, loaded := a.seen.Load(identity.UID)
	if !loaded {
		if identity.Email != "" {
			u := models.User{ID: identity.UID, Email: identity.Email, DisplayName: identity.DisplayName}
			if err := a.Store.UpsertUser(r.Context(), u); err != nil {
				utilities.LogError(err, "Erro ao sincronizar usuário "+identity.UID)
				return
			}
		}
		a.seen.Store(identity.UID, identity.IssuedAt)
		return
	}
	if identity.IssuedAt > prev.(int64) {
		a.seen.Store(identity.UID, identity.IssuedAt)
		a.publishAuth(models.AuthTokenRefreshed, identity.UID)
	}
}
