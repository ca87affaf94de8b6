// Package config carrega a configuração do servidor: primeiro o arquivo .env
// (opcional), depois variáveis de ambiente e, se TODO_CONFIG apontar para um
// arquivo, os valores dele.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"taskboard/database"
	"taskboard/utilities"
)

type Config struct {
	ServerPort              string
	DBDriver                string
	DBHost                  string
	DBPort                  string
	DBUser                  string
	DBPassword              string
	DBName                  string
	DBSSLMode               string
	SQLitePath              string
	CORSAllowedOrigins      []string
	FirebaseCredentialsPath string
	FirebaseAPIKey          string
	FirestoreEnabled        bool
	LogDebug                bool
	ShutdownTimeout         time.Duration
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("DB_DRIVER", string(database.Postgres))
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("SQLITE_PATH", "data/tasks.db")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "")
	v.SetDefault("FIRESTORE_ENABLED", false)
	v.SetDefault("LOG_DEBUG", false)
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
	v.AutomaticEnv()
	return v
}

// Load lê .env (se existir), o ambiente e o arquivo opcional em TODO_CONFIG.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("erro ao carregar o arquivo .env: %w", err)
	}

	v := newViper()
	if path := os.Getenv("TODO_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("erro ao ler arquivo de configuração %s: %w", path, err)
		}
		utilities.LogInfo("Configuração lida de %s", path)
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		ServerPort:              v.GetString("SERVER_PORT"),
		DBDriver:                strings.ToLower(v.GetString("DB_DRIVER")),
		DBHost:                  v.GetString("DB_HOST"),
		DBPort:                  v.GetString("DB_PORT"),
		DBUser:                  v.GetString("DB_USER"),
		DBPassword:              v.GetString("DB_PASSWORD"),
		DBName:                  v.GetString("DB_NAME"),
		DBSSLMode:               v.GetString("DB_SSLMODE"),
		SQLitePath:              v.GetString("SQLITE_PATH"),
		CORSAllowedOrigins:      splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		FirebaseCredentialsPath: v.GetString("FIREBASE_CREDENTIALS_PATH"),
		FirebaseAPIKey:          v.GetString("FIREBASE_API_KEY"),
		FirestoreEnabled:        v.GetBool("FIRESTORE_ENABLED"),
		LogDebug:                v.GetBool("LOG_DEBUG"),
		ShutdownTimeout:         v.GetDuration("SHUTDOWN_TIMEOUT"),
	}

	switch database.Dialect(cfg.DBDriver) {
	case database.Postgres:
		if cfg.DBName == "" || cfg.DBUser == "" {
			return nil, fmt.Errorf("DB_NAME e DB_USER são obrigatórios para o driver postgres")
		}
	case database.SQLite:
	default:
		return nil, fmt.Errorf("DB_DRIVER inválido: %q (use postgres ou sqlite)", cfg.DBDriver)
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	return cfg, nil
}

// PostgresDSN monta a string de conexão do Postgres.
func (c *Config) PostgresDSN() string {
	return database.PostgresDSN(c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

// AllowedOrigins devolve as origens do CORS, ou "*" quando nenhuma foi definida.
func (c *Config) AllowedOrigins() []string {
	if len(c.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return c.CORSAllowedOrigins
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
