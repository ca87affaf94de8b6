package database

import (
	"context"
	"database/sql"
	"errors"
)

const lastWorkspaceKey = "current_workspace_id"

// LastWorkspace devolve o último workspace selecionado por uid, ou "" se não houver.
func (db *DB) LastWorkspace(ctx context.Context, uid string) (string, error) {
	var value string
	err := db.QueryRowContext(ctx, db.rebind(`
		SELECT value FROM user_preferences WHERE user_id = ? AND key = ?`), uid, lastWorkspaceKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", mapError(err, "erro ao ler preferência")
	}
	return value, nil
}

func (db *DB) SetLastWorkspace(ctx context.Context, uid, workspaceID string) error {
	_, err := db.ExecContext(ctx, db.rebind(`
		INSERT INTO user_preferences (user_id, key, value) VALUES (?, ?, ?)
		ON CONFLICT (user_id, key) DO UPDATE SET value = excluded.value`), uid, lastWorkspaceKey, workspaceID)
	return mapError(err, "erro ao gravar preferência")
}

func (db *DB) ClearLastWorkspace(ctx context.Context, uid string) error {
	_, err := db.ExecContext(ctx, db.rebind(`
		DELETE FROM user_preferences WHERE user_id = ? AND key = ?`), uid, lastWorkspaceKey)
	return mapError(err, "erro ao limpar preferência")
}
