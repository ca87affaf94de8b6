package realtime

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"taskboard/models"
	"taskboard/utilities"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// A origem já é filtrada pelo middleware de CORS.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// notice é o que o cliente recebe: apenas tabela e evento, sem o registro,
// para que ele refaça a busca pelo caminho autorizado.
type notice struct {
	Table string    `json:"table"`
	Event string    `json:"event"`
	At    time.Time `json:"at"`
}

// Serve promove a requisição a websocket e encaminha os eventos das tabelas
// indicadas até o cliente desconectar. Se accept não for nil, só os eventos
// aceitos por ele são enviados.
func Serve(hub *Hub, w http.ResponseWriter, r *http.Request, name string, tables []string, accept func(models.ChangeEvent) bool) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		utilities.LogError(err, "Falha ao promover conexão websocket")
		return
	}
	defer conn.Close()

	send := make(chan notice, sendBuffer)
	forward := func(ev models.ChangeEvent) {
		if accept != nil && !accept(ev) {
			return
		}
		select {
		case send <- notice{Table: ev.Table, Event: ev.Event, At: ev.At}:
		default:
			// cliente lento: descarta, o próximo evento dispara o refetch do mesmo jeito
		}
	}

	ch := hub.Channel(name)
	for _, table := range tables {
		ch.On(models.EventAny, table, forward)
	}
	ch.Subscribe()
	defer hub.RemoveChannel(ch)

	done := make(chan struct{})
	go readLoop(conn, done)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	utilities.LogDebug("Websocket %s conectado", name)
	for {
		select {
		case <-done:
			utilities.LogDebug("Websocket %s desconectado", name)
			return
		case n := <-send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(n); err != nil {
				utilities.LogError(err, "Erro ao enviar evento pelo websocket")
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop descarta mensagens do cliente e fecha done quando a conexão cai.
func readLoop(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
