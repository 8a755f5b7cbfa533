package bridge

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/ehr/auxcare/internal/platform/resource"
)

var upgrader = gorillawebsocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The bridge listens on a local port for a co-located UI.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// CurrentFunc returns the current state of a topic, if the topic names a
// known resource.
type CurrentFunc func(topic string) (resource.Snapshot, bool)

// WebSocketHandler upgrades connections and routes client messages.
type WebSocketHandler struct {
	hub     *Hub
	current CurrentFunc
}

// NewWebSocketHandler binds a handler to hub. When current is non-nil a
// client receives the present state of each topic right after subscribing.
func NewWebSocketHandler(hub *Hub, current CurrentFunc) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, current: current}
}

func (wsh *WebSocketHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/ws", wsh.HandleConnect)
}

func (wsh *WebSocketHandler) HandleConnect(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := &Client{
		ID:     uuid.NewString(),
		Topics: []string{},
		Send:   make(chan []byte, 256),
		hub:    wsh.hub,
		conn:   &gorillaConnAdapter{ws},
	}
	wsh.hub.Register(client)
	wsh.hub.logger.Debug().Str("client", client.ID).Msg("client connected")

	go wsh.writePump(client)
	go wsh.readPump(client)
	return nil
}

func (wsh *WebSocketHandler) readPump(client *Client) {
	defer func() {
		wsh.hub.Unregister(client)
		client.conn.Close()
		wsh.hub.logger.Debug().Str("client", client.ID).Msg("client disconnected")
	}()

	for {
		_, message, err := client.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		wsh.handleMessage(client, msg)
	}
}

func (wsh *WebSocketHandler) handleMessage(client *Client, msg ClientMessage) {
	wsh.hub.ProcessMessage(client, msg)
	if msg.Action != "subscribe" || wsh.current == nil {
		return
	}
	for _, topic := range msg.Topics {
		if snap, ok := wsh.current(topic); ok {
			wsh.hub.sendSnapshot(client, snap)
		}
	}
}

func (wsh *WebSocketHandler) writePump(client *Client) {
	defer client.conn.Close()

	for message := range client.Send {
		if err := client.conn.WriteMessage(gorillawebsocket.TextMessage, message); err != nil {
			return
		}
	}
}

type gorillaConnAdapter struct {
	conn *gorillawebsocket.Conn
}

func (a *gorillaConnAdapter) ReadMessage() (int, []byte, error) {
	return a.conn.ReadMessage()
}

func (a *gorillaConnAdapter) WriteMessage(messageType int, data []byte) error {
	return a.conn.WriteMessage(messageType, data)
}

func (a *gorillaConnAdapter) Close() error {
	return a.conn.Close()
}
