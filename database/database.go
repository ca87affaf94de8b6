package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	_ "embed"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"taskboard/models"
	"taskboard/utilities"

	"github.com/lib/pq"
	_ "modernc.org/sqlite"
)

type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

//go:embed schema_postgres.sql
var postgresSchema string

//go:embed schema_sqlite.sql
var sqliteSchema string

// DB é o cliente do armazenamento de tarefas. As consultas são escritas com
// "?" e reescritas para "$n" quando o dialeto é Postgres.
type DB struct {
	*sql.DB
	dialect    Dialect
	now        func() time.Time
	onChange   func(models.ChangeEvent)
	onChangeMu sync.RWMutex
}

type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresDSN monta a string de conexão a partir dos parâmetros do ambiente.
func PostgresDSN(host, port, user, password, dbname, sslmode string) string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode)
}

// ConnectPostgres abre e testa a conexão com o PostgreSQL.
func ConnectPostgres(ctx context.Context, dsn string) (*DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("erro ao abrir conexão com o banco de dados: %w", err)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, mapError(err, "erro ao conectar ao banco de dados")
	}

	utilities.LogInfo("Conectado ao PostgreSQL com sucesso!")
	return &DB{DB: conn, dialect: Postgres, now: time.Now}, nil
}

// Open abre um banco SQLite no caminho indicado (":memory:" para testes).
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("erro ao abrir banco SQLite: %w", err)
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			conn.Close()
			return nil, fmt.Errorf("erro ao criar diretório do banco: %w", err)
		}
		if _, err := conn.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("erro ao habilitar WAL: %w", err)
		}
	}

	if _, err := conn.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("erro ao habilitar chaves estrangeiras: %w", err)
	}

	// SQLite trabalha melhor com um único escritor
	conn.SetMaxOpenConns(1)

	utilities.LogInfo("Banco SQLite aberto em %s", path)
	return &DB{DB: conn, dialect: SQLite, now: time.Now}, nil
}

func (db *DB) Dialect() Dialect {
	return db.dialect
}

// Migrate aplica o esquema embutido do dialeto atual. Os comandos são idempotentes.
func (db *DB) Migrate(ctx context.Context) error {
	schema := sqliteSchema
	if db.dialect == Postgres {
		schema = postgresSchema
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("falha na migração: %w", err)
	}
	utilities.LogInfo("Esquema do banco (%s) aplicado", db.dialect)
	return nil
}

// SetOnChange registra o callback chamado após cada escrita bem-sucedida.
// Com Postgres as mudanças chegam pelo LISTEN/NOTIFY, então o callback
// normalmente só é usado com SQLite.
func (db *DB) SetOnChange(fn func(models.ChangeEvent)) {
	db.onChangeMu.Lock()
	defer db.onChangeMu.Unlock()
	db.onChange = fn
}

func (db *DB) triggerChange(table, event string, record map[string]any) {
	db.onChangeMu.RLock()
	fn := db.onChange
	db.onChangeMu.RUnlock()

	if fn != nil {
		fn(models.ChangeEvent{Table: table, Event: event, Record: record, At: db.now().UTC()})
	}
}

// rebind troca os marcadores "?" por "$1", "$2"... no Postgres.
func (db *DB) rebind(query string) string {
	if db.dialect != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// withTx executa fn dentro de uma transação, com rollback em caso de erro ou panic.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return mapError(err, "erro ao iniciar transação")
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	return fn(tx)
}

// mapError traduz erros do driver para os erros de domínio.
func mapError(err error, msg string) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code == "42P01":
			return fmt.Errorf("%w: %s: %w", models.ErrSchemaMissing, msg, err)
		case pqErr.Code == "23505":
			return fmt.Errorf("%w: %s: registro duplicado", models.ErrValidation, msg)
		case pqErr.Code.Class() == "08":
			return fmt.Errorf("%w: %s: %w", models.ErrNetwork, msg, err)
		}
	}

	text := err.Error()
	switch {
	case strings.Contains(text, "no such table"):
		return fmt.Errorf("%w: %s: %w", models.ErrSchemaMissing, msg, err)
	case strings.Contains(text, "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %s: registro duplicado", models.ErrValidation, msg)
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, driver.ErrBadConn) || strings.Contains(text, "connection refused") {
		return fmt.Errorf("%w: %s: %w", models.ErrNetwork, msg, err)
	}

	return fmt.Errorf("%s: %w", msg, err)
}
