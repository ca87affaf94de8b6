package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"taskboard/database"
	"taskboard/firebase"
	"taskboard/handlers"
	"taskboard/models"
	"taskboard/realtime"
	"taskboard/session"
)

// fakeAuth aceita tokens no formato "tok-<uid>".
type fakeAuth struct {
	mu      sync.Mutex
	revoked []string
}

func (f *fakeAuth) SignUp(ctx context.Context, c models.Credentials) (*models.Identity, error) {
	if !strings.Contains(c.Email, "@") || len(c.Password) < 6 {
		return nil, fmt.Errorf("%w: invalid credentials", models.ErrValidation)
	}
	uid := strings.Split(c.Email, "@")[0]
	return &models.Identity{UID: uid, Email: c.Email, DisplayName: c.DisplayName}, nil
}

func (f *fakeAuth) SignIn(ctx context.Context, c models.Credentials) (*models.AuthTokens, error) {
	if c.Password != "secret123" {
		return nil, fmt.Errorf("%w: invalid email or password", models.ErrAuth)
	}
	uid := strings.Split(c.Email, "@")[0]
	return &models.AuthTokens{IDToken: "tok-" + uid, UID: uid, Email: c.Email}, nil
}

func (f *fakeAuth) SignOut(ctx context.Context, uid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, uid)
	return nil
}

func (f *fakeAuth) Verify(ctx context.Context, token string) (*models.Identity, error) {
	uid, ok := strings.CutPrefix(token, "tok-")
	if !ok || uid == "" {
		return nil, fmt.Errorf("%w: bad token", models.ErrAuth)
	}
	return &models.Identity{UID: uid, Email: uid + "@example.com", IssuedAt: 1}, nil
}

func (f *fakeAuth) UpdateProfile(ctx context.Context, uid, displayName string) error {
	return nil
}

type testServer struct {
	t    *testing.T
	srv  *httptest.Server
	db   *database.DB
	auth *fakeAuth
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	auth := &fakeAuth{}
	hub := realtime.NewHub()
	app := handlers.NewApp(db, auth, session.NewManager(db, db), hub, firebase.NoopActivityLog{})
	srv := httptest.NewServer(NewRouter(app, []string{"*"}))

	t.Cleanup(func() {
		srv.Close()
		db.Close()
	})
	return &testServer{t: t, srv: srv, db: db, auth: auth}
}

// do envia a requisição como uid ("" para anônimo) e decodifica a resposta em out.
func (ts *testServer) do(uid, method, path string, body any, out any) int {
	ts.t.Helper()
	token := ""
	if uid != "" {
		token = "tok-" + uid
	}
	return ts.doToken(token, method, path, body, out)
}

func (ts *testServer) doToken(token, method, path string, body any, out any) int {
	ts.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			ts.t.Fatalf("Failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, ts.srv.URL+path, reader)
	if err != nil {
		ts.t.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		ts.t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			ts.t.Fatalf("Failed to decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

type taskResponse struct {
	Task models.Task `json:"task"`
}

type listResponse struct {
	Tasks         []models.Task `json:"tasks"`
	Total         int           `json:"total"`
	Scope         string        `json:"scope"`
	WorkspaceID   *string       `json:"workspace_id"`
	FiltersActive bool          `json:"filters_active"`
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)

	var got map[string]any
	if status := ts.do("", "GET", "/healthz", nil, &got); status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	if got["database"] != "sqlite" {
		t.Errorf("Expected sqlite database, got %v", got["database"])
	}
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t)

	var got map[string]string
	if status := ts.do("", "GET", "/tasks", nil, &got); status != http.StatusUnauthorized {
		t.Fatalf("Expected 401, got %d", status)
	}
	if got["error"] == "" {
		t.Error("Expected error message in body")
	}
}

func TestSignUpAndSignIn(t *testing.T) {
	ts := newTestServer(t)

	creds := models.Credentials{Email: "ana@example.com", Password: "secret123", DisplayName: "Ana"}
	if status := ts.do("", "POST", "/auth/signup", creds, nil); status != http.StatusCreated {
		t.Fatalf("Expected 201 on signup, got %d", status)
	}
	u, err := ts.db.GetUserByEmail(context.Background(), "ana@example.com")
	if err != nil {
		t.Fatalf("Expected local user row: %v", err)
	}
	if u.ID != "ana" || u.DisplayName != "Ana" {
		t.Errorf("Unexpected user %+v", u)
	}

	bad := models.Credentials{Email: "not-an-email", Password: "x"}
	if status := ts.do("", "POST", "/auth/signup", bad, nil); status != http.StatusBadRequest {
		t.Errorf("Expected 400 on invalid signup, got %d", status)
	}

	var tokens models.AuthTokens
	if status := ts.do("", "POST", "/auth/signin", creds, &tokens); status != http.StatusOK {
		t.Fatalf("Expected 200 on signin, got %d", status)
	}
	if tokens.IDToken != "tok-ana" {
		t.Errorf("Expected token tok-ana, got %q", tokens.IDToken)
	}

	wrong := models.Credentials{Email: "ana@example.com", Password: "nope"}
	if status := ts.do("", "POST", "/auth/signin", wrong, nil); status != http.StatusUnauthorized {
		t.Errorf("Expected 401 on wrong password, got %d", status)
	}
}

func TestPersonalTaskFlow(t *testing.T) {
	ts := newTestServer(t)

	var created taskResponse
	body := map[string]any{"title": "Write report", "priority": "high", "category": "work", "due_date": "2020-01-01"}
	if status := ts.do("ana", "POST", "/tasks", body, &created); status != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", status)
	}
	if created.Task.WorkspaceID != nil {
		t.Errorf("Expected personal task, got workspace %v", *created.Task.WorkspaceID)
	}
	if created.Task.OwnerID != "ana" {
		t.Errorf("Expected owner ana, got %q", created.Task.OwnerID)
	}

	ts.do("ana", "POST", "/tasks", map[string]any{"title": "Buy milk"}, nil)

	if status := ts.do("ana", "POST", "/tasks", map[string]any{"title": "   "}, nil); status != http.StatusBadRequest {
		t.Errorf("Expected 400 for blank title, got %d", status)
	}

	t.Run("filters", func(t *testing.T) {
		var list listResponse
		if status := ts.do("ana", "GET", "/tasks?priority=high", nil, &list); status != http.StatusOK {
			t.Fatalf("Expected 200, got %d", status)
		}
		if len(list.Tasks) != 1 || list.Tasks[0].Title != "Write report" {
			t.Errorf("Expected only the high priority task, got %+v", list.Tasks)
		}
		if list.Total != 2 || !list.FiltersActive || list.Scope != "personal" {
			t.Errorf("Unexpected list metadata %+v", list)
		}

		if status := ts.do("ana", "GET", "/tasks?status=overdue", nil, &list); status != http.StatusOK {
			t.Fatalf("Expected 200, got %d", status)
		}
		if len(list.Tasks) != 1 {
			t.Errorf("Expected 1 overdue task, got %d", len(list.Tasks))
		}

		if status := ts.do("ana", "GET", "/tasks?status=bogus", nil, nil); status != http.StatusBadRequest {
			t.Errorf("Expected 400 for unknown status, got %d", status)
		}
	})

	t.Run("toggle and dashboard", func(t *testing.T) {
		var toggled taskResponse
		path := "/tasks/" + created.Task.ID + "/toggle"
		if status := ts.do("ana", "POST", path, nil, &toggled); status != http.StatusOK {
			t.Fatalf("Expected 200, got %d", status)
		}
		if !toggled.Task.Completed {
			t.Error("Expected task completed after toggle")
		}

		var dash struct {
			Summary struct {
				Total          int     `json:"total"`
				Completed      int     `json:"completed"`
				CompletionRate float64 `json:"completion_rate_percent"`
				OverdueCount   int     `json:"overdue_count"`
			} `json:"summary"`
		}
		if status := ts.do("ana", "GET", "/dashboard", nil, &dash); status != http.StatusOK {
			t.Fatalf("Expected 200, got %d", status)
		}
		if dash.Summary.Total != 2 || dash.Summary.Completed != 1 || dash.Summary.CompletionRate != 50 {
			t.Errorf("Unexpected summary %+v", dash.Summary)
		}
		if dash.Summary.OverdueCount != 0 {
			t.Errorf("Expected completed task not overdue, got %d", dash.Summary.OverdueCount)
		}
	})

	t.Run("update", func(t *testing.T) {
		var updated taskResponse
		patch := map[string]any{"title": "Write final report", "clear_due_date": true}
		if status := ts.do("ana", "PUT", "/tasks/"+created.Task.ID, patch, &updated); status != http.StatusOK {
			t.Fatalf("Expected 200, got %d", status)
		}
		if updated.Task.Title != "Write final report" || updated.Task.DueDate != nil {
			t.Errorf("Unexpected task after update %+v", updated.Task)
		}
	})

	t.Run("other users cannot see it", func(t *testing.T) {
		if status := ts.do("bob", "GET", "/tasks/"+created.Task.ID, nil, nil); status == http.StatusOK {
			t.Error("Expected bob to be denied")
		}
		var list listResponse
		ts.do("bob", "GET", "/tasks", nil, &list)
		if len(list.Tasks) != 0 {
			t.Errorf("Expected empty list for bob, got %d", len(list.Tasks))
		}
	})

	t.Run("delete", func(t *testing.T) {
		if status := ts.do("ana", "DELETE", "/tasks/"+created.Task.ID, nil, nil); status != http.StatusOK {
			t.Fatalf("Expected 200, got %d", status)
		}
		if status := ts.do("ana", "GET", "/tasks/"+created.Task.ID, nil, nil); status != http.StatusNotFound {
			t.Errorf("Expected 404 after delete, got %d", status)
		}
	})
}

func TestWorkspaceFlow(t *testing.T) {
	ts := newTestServer(t)

	// primeira requisição registra bob na tabela de usuários
	ts.do("bob", "GET", "/workspaces", nil, nil)

	var created struct {
		Workspace models.Workspace `json:"workspace"`
	}
	if status := ts.do("ana", "POST", "/workspaces", models.WorkspaceInput{Name: "Team"}, &created); status != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", status)
	}
	wsID := created.Workspace.ID

	if status := ts.do("ana", "POST", "/workspaces", models.WorkspaceInput{Name: " "}, nil); status != http.StatusBadRequest {
		t.Errorf("Expected 400 for blank name, got %d", status)
	}

	var snap struct {
		State       string  `json:"state"`
		WorkspaceID *string `json:"workspace_id"`
	}
	ts.do("ana", "GET", "/auth/session", nil, &snap)
	if snap.State != "workspace" || snap.WorkspaceID == nil || *snap.WorkspaceID != wsID {
		t.Fatalf("Expected session switched to new workspace, got %+v", snap)
	}

	var task taskResponse
	ts.do("ana", "POST", "/tasks", map[string]any{"title": "Shared"}, &task)
	if task.Task.WorkspaceID == nil || *task.Task.WorkspaceID != wsID {
		t.Fatalf("Expected task in current workspace, got %+v", task.Task)
	}

	t.Run("invite", func(t *testing.T) {
		invite := models.Invite{Email: "bob@example.com"}
		if status := ts.do("bob", "POST", "/workspaces/"+wsID+"/members", invite, nil); status != http.StatusForbidden {
			t.Errorf("Expected 403 for non-owner invite, got %d", status)
		}
		if status := ts.do("ana", "POST", "/workspaces/"+wsID+"/members", invite, nil); status != http.StatusCreated {
			t.Fatalf("Expected 201, got %d", status)
		}
		if status := ts.do("ana", "POST", "/workspaces/"+wsID+"/members", invite, nil); status != http.StatusBadRequest {
			t.Errorf("Expected 400 for duplicate member, got %d", status)
		}
		unknown := models.Invite{Email: "nobody@example.com"}
		if status := ts.do("ana", "POST", "/workspaces/"+wsID+"/members", unknown, nil); status != http.StatusNotFound {
			t.Errorf("Expected 404 for unknown user, got %d", status)
		}

		var members []models.WorkspaceMember
		ts.do("bob", "GET", "/workspaces/"+wsID+"/members", nil, &members)
		if len(members) != 2 {
			t.Errorf("Expected 2 members, got %d", len(members))
		}
	})

	t.Run("members see only their own tasks", func(t *testing.T) {
		scope := map[string]any{"workspace_id": wsID}
		if status := ts.do("bob", "PUT", "/session/scope", scope, nil); status != http.StatusOK {
			t.Fatalf("Expected 200, got %d", status)
		}

		var list listResponse
		ts.do("bob", "GET", "/tasks", nil, &list)
		if len(list.Tasks) != 0 {
			t.Errorf("Expected no tasks for bob yet, got %+v", list.Tasks)
		}
		if list.Scope != "workspace" {
			t.Errorf("Expected workspace scope, got %q", list.Scope)
		}

		var own taskResponse
		ts.do("bob", "POST", "/tasks", map[string]any{"title": "Bob's part"}, &own)
		if own.Task.WorkspaceID == nil || *own.Task.WorkspaceID != wsID {
			t.Fatalf("Expected bob's task in the workspace, got %+v", own.Task)
		}

		ts.do("bob", "GET", "/tasks", nil, &list)
		if len(list.Tasks) != 1 || list.Tasks[0].Title != "Bob's part" {
			t.Errorf("Expected only bob's task, got %+v", list.Tasks)
		}
		ts.do("ana", "GET", "/tasks", nil, &list)
		if len(list.Tasks) != 1 || list.Tasks[0].Title != "Shared" {
			t.Errorf("Expected only ana's task, got %+v", list.Tasks)
		}

		if status := ts.do("bob", "POST", "/tasks/"+task.Task.ID+"/toggle", nil, nil); status != http.StatusForbidden {
			t.Errorf("Expected 403 toggling ana's task, got %d", status)
		}
	})

	t.Run("outsider is forbidden", func(t *testing.T) {
		body := map[string]any{"title": "Sneaky", "workspace_id": wsID}
		if status := ts.do("carol", "POST", "/tasks", body, nil); status != http.StatusForbidden {
			t.Errorf("Expected 403, got %d", status)
		}
		scope := map[string]any{"workspace_id": wsID}
		if status := ts.do("carol", "PUT", "/session/scope", scope, nil); status != http.StatusNotFound {
			t.Errorf("Expected 404 selecting unknown workspace, got %d", status)
		}
		if status := ts.do("carol", "GET", "/workspaces/"+wsID+"/activity", nil, nil); status != http.StatusForbidden {
			t.Errorf("Expected 403 on activity, got %d", status)
		}
	})

	t.Run("only owner deletes", func(t *testing.T) {
		if status := ts.do("bob", "DELETE", "/workspaces/"+wsID, nil, nil); status != http.StatusForbidden {
			t.Errorf("Expected 403, got %d", status)
		}
		if status := ts.do("ana", "DELETE", "/workspaces/"+wsID, nil, nil); status != http.StatusOK {
			t.Fatalf("Expected 200, got %d", status)
		}

		ts.do("ana", "GET", "/auth/session", nil, &snap)
		if snap.State != "personal" || snap.WorkspaceID != nil {
			t.Errorf("Expected fallback to personal scope, got %+v", snap)
		}
		if status := ts.do("ana", "GET", "/tasks/"+task.Task.ID, nil, nil); status != http.StatusNotFound {
			t.Errorf("Expected task removed with workspace, got %d", status)
		}
	})
}

func TestSignOutClearsSession(t *testing.T) {
	ts := newTestServer(t)

	var created struct {
		Workspace models.Workspace `json:"workspace"`
	}
	ts.do("ana", "POST", "/workspaces", models.WorkspaceInput{Name: "Team"}, &created)

	if status := ts.do("ana", "POST", "/auth/signout", nil, nil); status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	ts.auth.mu.Lock()
	revoked := append([]string(nil), ts.auth.revoked...)
	ts.auth.mu.Unlock()
	if len(revoked) != 1 || revoked[0] != "ana" {
		t.Errorf("Expected tokens revoked for ana, got %v", revoked)
	}

	saved, err := ts.db.LastWorkspace(context.Background(), "ana")
	if err != nil {
		t.Fatalf("Failed to read pointer: %v", err)
	}
	if saved != "" {
		t.Errorf("Expected saved workspace cleared, got %q", saved)
	}

	var snap struct {
		State string `json:"state"`
	}
	ts.do("ana", "GET", "/auth/session", nil, &snap)
	if snap.State != "personal" {
		t.Errorf("Expected fresh session in personal scope, got %q", snap.State)
	}
}

func TestSignOutClearsPointerWithoutLiveSession(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	if err := ts.db.SetLastWorkspace(ctx, "ana", "ws-saved"); err != nil {
		t.Fatalf("Failed to save pointer: %v", err)
	}

	if status := ts.do("ana", "POST", "/auth/signout", nil, nil); status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}

	saved, err := ts.db.LastWorkspace(ctx, "ana")
	if err != nil {
		t.Fatalf("Failed to read pointer: %v", err)
	}
	if saved != "" {
		t.Errorf("Expected pointer cleared on sign-out, got %q", saved)
	}
}

func TestSignOutWithRejectedTokenIsLocalLogout(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	if err := ts.db.SetLastWorkspace(ctx, "ana", "ws-saved"); err != nil {
		t.Fatalf("Failed to save pointer: %v", err)
	}

	var got map[string]string
	if status := ts.doToken("expired-ana", "POST", "/auth/signout", nil, &got); status != http.StatusOK {
		t.Fatalf("Expected 200 for rejected token, got %d", status)
	}
	if got["message"] != "Signed out" {
		t.Errorf("Expected sign-out message, got %v", got)
	}
	if status := ts.do("", "POST", "/auth/signout", nil, nil); status != http.StatusOK {
		t.Errorf("Expected 200 without token, got %d", status)
	}

	ts.auth.mu.Lock()
	revoked := len(ts.auth.revoked)
	ts.auth.mu.Unlock()
	if revoked != 0 {
		t.Errorf("Expected no remote revoke without a verified uid, got %d", revoked)
	}

	// sem uid verificado nada no servidor é alterado
	saved, _ := ts.db.LastWorkspace(ctx, "ana")
	if saved != "ws-saved" {
		t.Errorf("Expected pointer untouched, got %q", saved)
	}
}
