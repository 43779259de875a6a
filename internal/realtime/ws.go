package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/phrazzld/taskflow-api/internal/api/shared"
	"github.com/phrazzld/taskflow-api/internal/config"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/service/auth"
)

// Client protocol events.
const (
	EventConnected    = "connected"
	EventJoinUserRoom = "joinUserRoom"
	EventJoined       = "joined"
	EventError        = "error"
)

const maxInboundMessageSize = 4096

// TokenValidator verifies the bearer token presented on upgrade.
type TokenValidator interface {
	ValidateToken(ctx context.Context, tokenString string) (*auth.Claims, error)
}

// inboundMessage is a client-to-server frame.
type inboundMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Handler upgrades authenticated requests to websocket connections and
// attaches them to a Gateway.
type Handler struct {
	gateway      *Gateway
	tokens       TokenValidator
	upgrader     websocket.Upgrader
	sendBuffer   int
	writeTimeout time.Duration
	pongTimeout  time.Duration
	logger       *slog.Logger
}

// NewHandler creates a websocket Handler.
func NewHandler(gateway *Gateway, tokens TokenValidator, cfg config.RealtimeConfig, logger *slog.Logger) *Handler {
	if gateway == nil || tokens == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("gateway and token validator cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	h := &Handler{
		gateway:      gateway,
		tokens:       tokens,
		sendBuffer:   max(cfg.SendBufferSize, 1),
		writeTimeout: time.Duration(max(cfg.WriteTimeoutSeconds, 1)) * time.Second,
		pongTimeout:  time.Duration(max(cfg.PongTimeoutSeconds, 1)) * time.Second,
		logger:       logger.With(slog.String("component", "websocket")),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(cfg.AllowedOrigins),
	}
	return h
}

// originChecker returns nil (gorilla's same-origin check) when no origins are
// configured, and accepts any origin when the list contains "*".
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[strings.TrimRight(o, "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		_, ok := set[r.Header.Get("Origin")]
		return ok
	}
}

// ServeHTTP authenticates the request and runs the connection until it closes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	token := r.URL.Query().Get("token")
	if token == "" {
		if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
			token = strings.TrimPrefix(header, "Bearer ")
		}
	}
	claims, err := h.tokens.ValidateToken(r.Context(), token)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid token")
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error.
		log.Debug("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	conn := &wsConn{
		id:           uuid.NewString(),
		userID:       claims.UserID,
		ws:           ws,
		send:         make(chan Event, h.sendBuffer),
		done:         make(chan struct{}),
		writeTimeout: h.writeTimeout,
		pongTimeout:  h.pongTimeout,
	}
	log = log.With(slog.String("conn_id", conn.id), slog.String("user_id", claims.UserID.String()))
	log.Info("websocket connected")

	go conn.writePump(log)
	_ = conn.Send(Event{Type: EventConnected, Payload: map[string]string{"user_id": claims.UserID.String()}})
	h.readPump(conn, log)
}

// readPump processes client frames until the connection fails, then leaves
// the gateway.
func (h *Handler) readPump(c *wsConn, log *slog.Logger) {
	defer func() {
		h.gateway.Leave(c)
		_ = c.Close()
		log.Info("websocket disconnected")
	}()

	c.ws.SetReadLimit(maxInboundMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.pongTimeout))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.pongTimeout))
	})

	for {
		var msg inboundMessage
		if err := c.ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("websocket read failed", slog.String("error", err.Error()))
			}
			return
		}
		h.handleMessage(c, msg, log)
	}
}

func (h *Handler) handleMessage(c *wsConn, msg inboundMessage, log *slog.Logger) {
	switch msg.Event {
	case EventJoinUserRoom:
		var raw string
		if err := json.Unmarshal(msg.Data, &raw); err != nil {
			_ = c.Send(Event{Type: EventError, Payload: "user id required"})
			return
		}
		requested, err := uuid.Parse(raw)
		if err != nil || requested != c.userID {
			log.Warn("rejected join for foreign channel", slog.String("requested", raw))
			_ = c.Send(Event{Type: EventError, Payload: "forbidden"})
			return
		}
		h.gateway.Join(c, c.userID)
		_ = c.Send(Event{Type: EventJoined, Payload: c.userID.String()})
	default:
		_ = c.Send(Event{Type: EventError, Payload: "unknown event"})
	}
}

// wsConn adapts a gorilla connection to Conn. Only writePump writes data frames.
type wsConn struct {
	id           string
	userID       uuid.UUID
	ws           *websocket.Conn
	send         chan Event
	done         chan struct{}
	closeOnce    sync.Once
	writeTimeout time.Duration
	pongTimeout  time.Duration
}

// ID implements Conn.
func (c *wsConn) ID() string { return c.id }

// Send implements Conn.
func (c *wsConn) Send(ev Event) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}
	select {
	case c.send <- ev:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close implements Conn.
func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(c.writeTimeout))
		err = c.ws.Close()
	})
	return err
}

func (c *wsConn) writePump(log *slog.Logger) {
	pingInterval := c.pongTimeout * 9 / 10
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case ev := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.ws.WriteJSON(ev); err != nil {
				log.Debug("websocket write failed", slog.String("error", err.Error()))
				_ = c.Close()
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeTimeout)); err != nil {
				_ = c.Close()
				return
			}
		}
	}
}
