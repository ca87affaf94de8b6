package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"taskboard/models"
)

// UpsertUser grava ou atualiza a linha local de um usuário do Firebase.
// Os convites localizam membros por essa tabela.
func (db *DB) UpsertUser(ctx context.Context, u models.User) error {
	if u.ID == "" || strings.TrimSpace(u.Email) == "" {
		return fmt.Errorf("%w: user id and email are required", models.ErrValidation)
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = db.now().UTC()
	}
	_, err := db.ExecContext(ctx, db.rebind(`
		INSERT INTO users (id, email, display_name, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			email = excluded.email,
			display_name = CASE WHEN excluded.display_name = '' THEN users.display_name ELSE excluded.display_name END`),
		u.ID, strings.ToLower(strings.TrimSpace(u.Email)), u.DisplayName, db.timeArg(u.CreatedAt))
	return mapError(err, "erro ao gravar usuário")
}

func (db *DB) GetUser(ctx context.Context, id string) (*models.User, error) {
	return db.scanUser(db.QueryRowContext(ctx, db.rebind(`
		SELECT id, email, display_name, created_at FROM users WHERE id = ?`), id), id)
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return db.getUserByEmail(ctx, db, email)
}

func (db *DB) getUserByEmail(ctx context.Context, ex executor, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return db.scanUser(ex.QueryRowContext(ctx, db.rebind(`
		SELECT id, email, display_name, created_at FROM users WHERE email = ?`), email), email)
}

func (db *DB) scanUser(row *sql.Row, key string) (*models.User, error) {
	var (
		u       models.User
		created timestamp
	)
	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: usuário %s", models.ErrNotFound, key)
	}
	if err != nil {
		return nil, mapError(err, "erro ao buscar usuário")
	}
	u.CreatedAt = created.Time
	return &u, nil
}
