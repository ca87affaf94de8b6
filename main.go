package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"taskboard/config"
	"taskboard/database"
	"taskboard/firebase"
	"taskboard/handlers"
	"taskboard/realtime"
	"taskboard/session"
	"taskboard/utilities"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Erro ao carregar configuração: %v", err)
	}
	utilities.InitLogger(cfg.LogDebug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		utilities.LogError(err, "Servidor encerrado com erro")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return err
	}

	app, err := firebase.InitializeFirebase(ctx, cfg.FirebaseCredentialsPath)
	if err != nil {
		return err
	}
	auth, err := firebase.NewAuthService(ctx, app, cfg.FirebaseAPIKey)
	if err != nil {
		return err
	}

	var activity interface {
		handlers.ActivityLog
		Close() error
	} = firebase.NoopActivityLog{}
	if cfg.FirestoreEnabled {
		logStore, err := firebase.NewActivityLog(ctx, app)
		if err != nil {
			return err
		}
		activity = logStore
	}
	defer activity.Close()

	hub := realtime.NewHub()
	if db.Dialect() == database.Postgres {
		listener, err := database.NewListener(cfg.PostgresDSN())
		if err != nil {
			return err
		}
		defer listener.Close()
		go listener.Run(ctx, hub.Publish)
	} else {
		db.SetOnChange(hub.Publish)
	}

	sessions := session.NewManager(db, db)
	sessions.Watch(hub)
	defer sessions.Close()

	api := handlers.NewApp(db, auth, sessions, hub, activity)
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: NewRouter(api, cfg.AllowedOrigins()),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		utilities.LogInfo("Encerrando servidor...")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			utilities.LogError(err, "Erro ao encerrar servidor")
		}
	}()

	utilities.LogInfo("Servidor iniciado na porta %s", cfg.ServerPort)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func openDatabase(ctx context.Context, cfg *config.Config) (*database.DB, error) {
	if cfg.DBDriver == string(database.SQLite) {
		return database.Open(cfg.SQLitePath)
	}
	return database.ConnectPostgres(ctx, cfg.PostgresDSN())
}
