package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"taskboard/models"
	"taskboard/utilities"

	"github.com/lib/pq"
)

// ChangeChannel é o canal do NOTIFY usado pelos gatilhos do esquema Postgres.
const ChangeChannel = "row_changes"

// Listener repassa as notificações de mudança de linha do Postgres.
type Listener struct {
	listener     *pq.Listener
	pingInterval time.Duration
}

// NewListener abre uma conexão dedicada ao LISTEN no canal de mudanças.
func NewListener(dsn string) (*Listener, error) {
	reportProblem := func(ev pq.ListenerEventType, err error) {
		if err != nil {
			utilities.LogError(err, "Listener do Postgres")
		}
		if ev == pq.ListenerEventReconnected {
			utilities.LogInfo("Listener do Postgres reconectado")
		}
	}

	l := pq.NewListener(dsn, 10*time.Second, time.Minute, reportProblem)
	if err := l.Listen(ChangeChannel); err != nil {
		l.Close()
		return nil, mapError(err, "erro ao escutar canal "+ChangeChannel)
	}
	return &Listener{listener: l, pingInterval: 90 * time.Second}, nil
}

// Run entrega cada mudança para publish até ctx ser cancelado.
func (l *Listener) Run(ctx context.Context, publish func(models.ChangeEvent)) {
	utilities.LogInfo("Escutando mudanças no canal %s", ChangeChannel)
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-l.listener.Notify:
			// nil indica reconexão; eventos podem ter sido perdidos.
			if n == nil {
				continue
			}
			ev, err := decodeNotification(n.Extra)
			if err != nil {
				utilities.LogError(err, "Notificação inválida")
				continue
			}
			publish(ev)
		case <-time.After(l.pingInterval):
			go func() {
				if err := l.listener.Ping(); err != nil {
					utilities.LogError(err, "Ping do listener falhou")
				}
			}()
		}
	}
}

func (l *Listener) Close() error {
	return l.listener.Close()
}

func decodeNotification(payload string) (models.ChangeEvent, error) {
	var ev models.ChangeEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return ev, fmt.Errorf("payload de notificação inválido: %w", err)
	}
	if ev.Table == "" || ev.Event == "" {
		return ev, fmt.Errorf("notificação sem tabela ou evento: %q", payload)
	}
	ev.At = time.Now().UTC()
	return ev, nil
}
