package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"taskboard/models"
	"taskboard/utilities"

	"github.com/google/uuid"
)

func scanWorkspace(row rowScanner) (*models.Workspace, error) {
	var (
		ws      models.Workspace
		created timestamp
	)
	if err := row.Scan(&ws.ID, &ws.Name, &ws.Description, &ws.OwnerID, &created); err != nil {
		return nil, err
	}
	ws.CreatedAt = created.Time
	return &ws, nil
}

// CreateWorkspace insere o workspace e a associação do dono na mesma transação.
func (db *DB) CreateWorkspace(ctx context.Context, uid string, in models.WorkspaceInput) (*models.Workspace, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: workspace name is required", models.ErrValidation)
	}

	now := db.now().UTC()
	ws := &models.Workspace{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		OwnerID:     uid,
		CreatedAt:   now,
	}
	owner := models.WorkspaceMember{WorkspaceID: ws.ID, UserID: uid, Role: models.RoleOwner, JoinedAt: now}

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, db.rebind(`
			INSERT INTO workspaces (id, name, description, owner_id, created_at)
			VALUES (?, ?, ?, ?, ?)`),
			ws.ID, ws.Name, ws.Description, ws.OwnerID, db.timeArg(ws.CreatedAt),
		)
		if err != nil {
			return mapError(err, "erro ao criar workspace")
		}

		_, err = tx.ExecContext(ctx, db.rebind(`
			INSERT INTO workspace_members (workspace_id, user_id, role, joined_at)
			VALUES (?, ?, ?, ?)`),
			owner.WorkspaceID, owner.UserID, string(owner.Role), db.timeArg(owner.JoinedAt),
		)
		if err != nil {
			return mapError(err, "erro ao adicionar dono ao workspace")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ws.Members = []models.WorkspaceMember{owner}
	utilities.LogInfo("Workspace criado com sucesso: %s (ID: %s)", ws.Name, ws.ID)
	db.triggerChange(models.TableWorkspaces, models.EventInsert, map[string]any{"id": ws.ID, "owner_id": uid})
	db.triggerChange(models.TableWorkspaceMembers, models.EventInsert, map[string]any{"workspace_id": ws.ID, "user_id": uid})
	return ws, nil
}

// ListWorkspaces devolve os workspaces dos quais uid é membro, mais novos
// primeiro, cada um com a sua lista de membros.
func (db *DB) ListWorkspaces(ctx context.Context, uid string) ([]models.Workspace, error) {
	rows, err := db.QueryContext(ctx, db.rebind(`
		SELECT w.id, w.name, w.description, w.owner_id, w.created_at
		FROM workspaces w
		JOIN workspace_members wm ON wm.workspace_id = w.id
		WHERE wm.user_id = ?
		ORDER BY w.created_at DESC`), uid)
	if err != nil {
		return nil, mapError(err, "falha ao buscar workspaces")
	}

	workspaces := []models.Workspace{}
	for rows.Next() {
		ws, err := scanWorkspace(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("falha ao ler workspace: %w", err)
		}
		workspaces = append(workspaces, *ws)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, mapError(err, "falha ao percorrer workspaces")
	}

	for i := range workspaces {
		members, err := db.listMembers(ctx, workspaces[i].ID)
		if err != nil {
			return nil, err
		}
		workspaces[i].Members = members
	}
	return workspaces, nil
}

func (db *DB) getWorkspace(ctx context.Context, ex executor, id string) (*models.Workspace, error) {
	row := ex.QueryRowContext(ctx, db.rebind(`
		SELECT id, name, description, owner_id, created_at FROM workspaces WHERE id = ?`), id)
	ws, err := scanWorkspace(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: workspace %s", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, mapError(err, "falha ao buscar workspace")
	}
	return ws, nil
}

// GetWorkspace busca um workspace do qual uid é membro.
func (db *DB) GetWorkspace(ctx context.Context, uid, id string) (*models.Workspace, error) {
	ws, err := db.getWorkspace(ctx, db, id)
	if err != nil {
		return nil, err
	}
	member, err := db.IsMember(ctx, uid, id)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, fmt.Errorf("%w: workspace %s", models.ErrForbidden, id)
	}
	ws.Members, err = db.listMembers(ctx, id)
	if err != nil {
		return nil, err
	}
	return ws, nil
}

// UpdateWorkspace altera nome e descrição. Somente o dono pode alterar.
func (db *DB) UpdateWorkspace(ctx context.Context, uid, id string, in models.WorkspaceInput) (*models.Workspace, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: workspace name cannot be empty", models.ErrValidation)
	}

	var ws *models.Workspace
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		ws, err = db.getWorkspace(ctx, tx, id)
		if err != nil {
			return err
		}
		if !ws.IsOwner(uid) {
			return fmt.Errorf("%w: apenas o dono pode alterar o workspace %s", models.ErrForbidden, id)
		}
		ws.Name = name
		ws.Description = strings.TrimSpace(in.Description)
		_, err = tx.ExecContext(ctx, db.rebind(`UPDATE workspaces SET name = ?, description = ? WHERE id = ?`),
			ws.Name, ws.Description, id)
		return mapError(err, "falha ao atualizar workspace")
	})
	if err != nil {
		return nil, err
	}

	db.triggerChange(models.TableWorkspaces, models.EventUpdate, map[string]any{"id": id, "owner_id": ws.OwnerID})
	return ws, nil
}

// DeleteWorkspace remove tarefas, associações e o workspace, nessa ordem,
// dentro de uma única transação. Somente o dono pode deletar.
func (db *DB) DeleteWorkspace(ctx context.Context, uid, id string) error {
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		ws, err := db.getWorkspace(ctx, tx, id)
		if err != nil {
			return err
		}
		if !ws.IsOwner(uid) {
			return fmt.Errorf("%w: apenas o dono pode deletar o workspace %s", models.ErrForbidden, id)
		}

		steps := []struct {
			query string
			what  string
		}{
			{`DELETE FROM tasks WHERE workspace_id = ?`, "tarefas"},
			{`DELETE FROM workspace_members WHERE workspace_id = ?`, "membros"},
			{`DELETE FROM workspaces WHERE id = ?`, "workspace"},
		}
		for _, step := range steps {
			if _, err := tx.ExecContext(ctx, db.rebind(step.query), id); err != nil {
				return mapError(err, "falha ao deletar "+step.what+" do workspace")
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	utilities.LogInfo("Workspace %s deletado com sucesso", id)
	db.triggerChange(models.TableTasks, models.EventDelete, map[string]any{"workspace_id": id})
	db.triggerChange(models.TableWorkspaceMembers, models.EventDelete, map[string]any{"workspace_id": id})
	db.triggerChange(models.TableWorkspaces, models.EventDelete, map[string]any{"id": id})
	return nil
}

func (db *DB) listMembers(ctx context.Context, workspaceID string) ([]models.WorkspaceMember, error) {
	rows, err := db.QueryContext(ctx, db.rebind(`
		SELECT wm.workspace_id, wm.user_id, COALESCE(u.email, ''), wm.role, wm.joined_at
		FROM workspace_members wm
		LEFT JOIN users u ON u.id = wm.user_id
		WHERE wm.workspace_id = ?
		ORDER BY wm.joined_at`), workspaceID)
	if err != nil {
		return nil, mapError(err, "falha ao buscar membros do workspace")
	}
	defer rows.Close()

	members := []models.WorkspaceMember{}
	for rows.Next() {
		var (
			m      models.WorkspaceMember
			role   string
			joined timestamp
		)
		if err := rows.Scan(&m.WorkspaceID, &m.UserID, &m.Email, &role, &joined); err != nil {
			return nil, fmt.Errorf("falha ao ler membro: %w", err)
		}
		m.Role = models.Role(role)
		m.JoinedAt = joined.Time
		members = append(members, m)
	}
	return members, mapError(rows.Err(), "falha ao percorrer membros")
}

// ListMembers devolve os membros de um workspace do qual uid faz parte.
func (db *DB) ListMembers(ctx context.Context, uid, workspaceID string) ([]models.WorkspaceMember, error) {
	if _, err := db.getWorkspace(ctx, db, workspaceID); err != nil {
		return nil, err
	}
	member, err := db.IsMember(ctx, uid, workspaceID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, fmt.Errorf("%w: workspace %s", models.ErrForbidden, workspaceID)
	}
	return db.listMembers(ctx, workspaceID)
}

// AddMember convida um usuário já cadastrado, localizado pelo e-mail.
// Somente o dono pode convidar; o papel padrão é member.
func (db *DB) AddMember(ctx context.Context, uid, workspaceID string, invite models.Invite) (*models.WorkspaceMember, error) {
	email := strings.TrimSpace(invite.Email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", models.ErrValidation)
	}
	role := invite.Role
	if role == "" {
		role = models.RoleMember
	}
	if role != models.RoleMember {
		return nil, fmt.Errorf("%w: invited members must have role %q", models.ErrValidation, models.RoleMember)
	}

	var member *models.WorkspaceMember
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		ws, err := db.getWorkspace(ctx, tx, workspaceID)
		if err != nil {
			return err
		}
		if !ws.IsOwner(uid) {
			return fmt.Errorf("%w: apenas o dono pode convidar membros", models.ErrForbidden)
		}

		user, err := db.getUserByEmail(ctx, tx, email)
		if err != nil {
			return err
		}

		already, err := db.isMember(ctx, tx, user.ID, workspaceID)
		if err != nil {
			return err
		}
		if already {
			return fmt.Errorf("%w: usuário (email: %s) já é membro do workspace", models.ErrValidation, email)
		}

		member = &models.WorkspaceMember{
			WorkspaceID: workspaceID,
			UserID:      user.ID,
			Email:       user.Email,
			Role:        role,
			JoinedAt:    db.now().UTC(),
		}
		_, err = tx.ExecContext(ctx, db.rebind(`
			INSERT INTO workspace_members (workspace_id, user_id, role, joined_at)
			VALUES (?, ?, ?, ?)`),
			member.WorkspaceID, member.UserID, string(member.Role), db.timeArg(member.JoinedAt))
		return mapError(err, "falha ao adicionar usuário ao workspace")
	})
	if err != nil {
		return nil, err
	}

	db.triggerChange(models.TableWorkspaceMembers, models.EventInsert,
		map[string]any{"workspace_id": workspaceID, "user_id": member.UserID})
	return member, nil
}

// RemoveMember remove userID do workspace. O dono remove qualquer membro e um
// membro pode sair por conta própria; o dono não pode ser removido.
func (db *DB) RemoveMember(ctx context.Context, uid, workspaceID, userID string) error {
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		ws, err := db.getWorkspace(ctx, tx, workspaceID)
		if err != nil {
			return err
		}
		if userID == ws.OwnerID {
			return fmt.Errorf("%w: o dono não pode ser removido do workspace", models.ErrValidation)
		}
		if !ws.IsOwner(uid) && uid != userID {
			return fmt.Errorf("%w: apenas o dono pode remover outros membros", models.ErrForbidden)
		}

		res, err := tx.ExecContext(ctx, db.rebind(`
			DELETE FROM workspace_members WHERE workspace_id = ? AND user_id = ?`), workspaceID, userID)
		if err != nil {
			return mapError(err, "falha ao remover usuário do workspace")
		}
		n, err := res.RowsAffected()
		if err != nil {
			return mapError(err, "falha ao remover usuário do workspace")
		}
		if n == 0 {
			return fmt.Errorf("%w: usuário não encontrado no workspace ou já removido", models.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}

	db.triggerChange(models.TableWorkspaceMembers, models.EventDelete,
		map[string]any{"workspace_id": workspaceID, "user_id": userID})
	return nil
}

// IsMember verifica se uid é membro do workspace.
func (db *DB) IsMember(ctx context.Context, uid, workspaceID string) (bool, error) {
	return db.isMember(ctx, db, uid, workspaceID)
}

func (db *DB) isMember(ctx context.Context, ex executor, uid, workspaceID string) (bool, error) {
	var exists bool
	err := ex.QueryRowContext(ctx, db.rebind(`
		SELECT EXISTS (
			SELECT 1 FROM workspace_members WHERE user_id = ? AND workspace_id = ?
		)`), uid, workspaceID).Scan(&exists)
	if err != nil {
		return false, mapError(err, "falha ao checar se usuário é membro do workspace")
	}
	return exists, nil
}
