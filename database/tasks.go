package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"taskboard/models"
	"taskboard/utilities"

	"github.com/google/uuid"
)

const taskColumns = `id, title, description, completed, due_date, category, priority, tags, user_id, workspace_id, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	var (
		t         models.Task
		due       nullDate
		tags      tagList
		workspace sql.NullString
		created   timestamp
		category  string
		priority  string
	)
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Completed, &due, &category, &priority,
		&tags, &t.OwnerID, &workspace, &created)
	if err != nil {
		return nil, err
	}
	t.DueDate = due.ptr()
	t.Category = models.Category(category)
	t.Priority = models.Priority(priority)
	t.Tags = []string(tags)
	if t.Tags == nil {
		t.Tags = []string{}
	}
	if workspace.Valid {
		id := workspace.String
		t.WorkspaceID = &id
	}
	t.CreatedAt = created.Time
	return &t, nil
}

func taskRecord(t *models.Task) map[string]any {
	record := map[string]any{"id": t.ID, "user_id": t.OwnerID}
	if t.WorkspaceID != nil {
		record["workspace_id"] = *t.WorkspaceID
	}
	return record
}

// ListTasks devolve as tarefas de uid no escopo, das mais novas para as mais
// antigas. Sem workspace, o escopo é pessoal: tarefas sem workspace. Com
// workspace, o chamador precisa ser membro e vê as próprias tarefas dele.
func (db *DB) ListTasks(ctx context.Context, uid string, workspaceID *string) ([]models.Task, error) {
	var (
		query string
		args  []any
	)
	if workspaceID == nil {
		query = `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = ? AND workspace_id IS NULL ORDER BY created_at DESC`
		args = []any{uid}
	} else {
		member, err := db.IsMember(ctx, uid, *workspaceID)
		if err != nil {
			return nil, err
		}
		if !member {
			return nil, fmt.Errorf("%w: usuário %s não é membro do workspace %s", models.ErrForbidden, uid, *workspaceID)
		}
		query = `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = ? AND workspace_id = ? ORDER BY created_at DESC`
		args = []any{uid, *workspaceID}
	}

	rows, err := db.QueryContext(ctx, db.rebind(query), args...)
	if err != nil {
		return nil, mapError(err, "falha ao buscar tarefas")
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("falha ao ler tarefa: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "falha ao percorrer tarefas")
	}
	return tasks, nil
}

func (db *DB) getTask(ctx context.Context, ex executor, id string) (*models.Task, error) {
	row := ex.QueryRowContext(ctx, db.rebind(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`), id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: tarefa %s", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, mapError(err, "falha ao buscar tarefa")
	}
	return t, nil
}

// canWrite informa se uid pode ler ou alterar a tarefa. Só o dono pode,
// também dentro de um workspace.
func canWrite(uid string, t *models.Task) bool {
	return t.OwnerID == uid
}

// GetTask busca uma tarefa visível para uid.
func (db *DB) GetTask(ctx context.Context, uid, id string) (*models.Task, error) {
	t, err := db.getTask(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if !canWrite(uid, t) {
		return nil, fmt.Errorf("%w: tarefa %s", models.ErrForbidden, id)
	}
	return t, nil
}

// CreateTask valida a entrada e insere a tarefa. A validação do título
// acontece antes de qualquer comando no banco.
func (db *DB) CreateTask(ctx context.Context, uid string, in models.TaskInput) (*models.Task, error) {
	if err := in.Normalize(); err != nil {
		return nil, err
	}

	if in.WorkspaceID != nil {
		member, err := db.IsMember(ctx, uid, *in.WorkspaceID)
		if err != nil {
			return nil, err
		}
		if !member {
			return nil, fmt.Errorf("%w: usuário %s não é membro do workspace %s", models.ErrForbidden, uid, *in.WorkspaceID)
		}
	}

	t := &models.Task{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		DueDate:     in.DueDate,
		Category:    in.Category,
		Priority:    in.Priority,
		Tags:        in.Tags,
		OwnerID:     uid,
		WorkspaceID: in.WorkspaceID,
		CreatedAt:   db.now().UTC(),
	}

	var workspace any
	if t.WorkspaceID != nil {
		workspace = *t.WorkspaceID
	}

	_, err := db.ExecContext(ctx, db.rebind(`
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		t.ID, t.Title, t.Description, t.Completed, dateArg(t.DueDate), string(t.Category), string(t.Priority),
		db.tagsArg(t.Tags), t.OwnerID, workspace, db.timeArg(t.CreatedAt),
	)
	if err != nil {
		return nil, mapError(err, "erro ao inserir tarefa")
	}

	utilities.LogDebug("Tarefa criada: %s (ID: %s)", t.Title, t.ID)
	db.triggerChange(models.TableTasks, models.EventInsert, taskRecord(t))
	return t, nil
}

// UpdateTask aplica uma atualização parcial.
func (db *DB) UpdateTask(ctx context.Context, uid, id string, patch models.TaskPatch) (*models.Task, error) {
	var updated models.Task
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		current, err := db.getTask(ctx, tx, id)
		if err != nil {
			return err
		}
		if !canWrite(uid, current) {
			return fmt.Errorf("%w: tarefa %s", models.ErrForbidden, id)
		}

		updated, err = patch.Apply(*current)
		if err != nil {
			return err
		}
		return db.writeTask(ctx, tx, &updated)
	})
	if err != nil {
		return nil, err
	}

	db.triggerChange(models.TableTasks, models.EventUpdate, taskRecord(&updated))
	return &updated, nil
}

func (db *DB) writeTask(ctx context.Context, ex executor, t *models.Task) error {
	res, err := ex.ExecContext(ctx, db.rebind(`
		UPDATE tasks
		SET title = ?, description = ?, completed = ?, due_date = ?, category = ?, priority = ?, tags = ?
		WHERE id = ?`),
		t.Title, t.Description, t.Completed, dateArg(t.DueDate), string(t.Category), string(t.Priority),
		db.tagsArg(t.Tags), t.ID,
	)
	if err != nil {
		return mapError(err, "erro ao atualizar tarefa")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapError(err, "erro ao atualizar tarefa")
	}
	if n == 0 {
		return fmt.Errorf("%w: tarefa %s", models.ErrNotFound, t.ID)
	}
	return nil
}

// ToggleComplete inverte o campo completed (leitura seguida de escrita).
func (db *DB) ToggleComplete(ctx context.Context, uid, id string) (*models.Task, error) {
	var t *models.Task
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		t, err = db.getTask(ctx, tx, id)
		if err != nil {
			return err
		}
		if !canWrite(uid, t) {
			return fmt.Errorf("%w: tarefa %s", models.ErrForbidden, id)
		}
		t.Completed = !t.Completed
		return db.writeTask(ctx, tx, t)
	})
	if err != nil {
		return nil, err
	}

	db.triggerChange(models.TableTasks, models.EventUpdate, taskRecord(t))
	return t, nil
}

// DeleteTask remove a tarefa definitivamente.
func (db *DB) DeleteTask(ctx context.Context, uid, id string) (*models.Task, error) {
	var t *models.Task
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		t, err = db.getTask(ctx, tx, id)
		if err != nil {
			return err
		}
		if !canWrite(uid, t) {
			return fmt.Errorf("%w: tarefa %s", models.ErrForbidden, id)
		}
		if _, err := tx.ExecContext(ctx, db.rebind(`DELETE FROM tasks WHERE id = ?`), id); err != nil {
			return mapError(err, "erro ao deletar tarefa")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	db.triggerChange(models.TableTasks, models.EventDelete, taskRecord(t))
	return t, nil
}
