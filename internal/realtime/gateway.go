// Package realtime fans events out to the live connections of each user.
package realtime

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Event names pushed to clients.
const (
	EventNotificationNew  = "notification:new"
	EventNotificationRead = "notification:read"
)

var (
	// ErrSendBufferFull is returned by Conn.Send when the outbound buffer is exhausted.
	ErrSendBufferFull = errors.New("send buffer full")

	// ErrConnClosed is returned by Conn.Send after the connection has closed.
	ErrConnClosed = errors.New("connection closed")
)

// Event is a named payload delivered to a client.
type Event struct {
	Type    string `json:"event"`
	Payload any    `json:"data,omitempty"`
}

// Conn is one live client connection.
type Conn interface {
	// ID identifies the connection uniquely within the process.
	ID() string

	// Send queues ev for delivery without blocking.
	Send(ev Event) error

	// Close tears down the connection.
	Close() error
}

// channel is one user's set of connections. A dead channel is empty and
// being unlinked; it must not gain members.
type channel struct {
	mu    sync.Mutex
	conns map[string]Conn
	dead  bool
}

// Gateway keeps one channel per user. g.mu guards only the lookup maps and
// is never held while a channel lock is, so sends and membership changes on
// one user's channel never wait on another user's.
type Gateway struct {
	mu       sync.RWMutex
	channels map[uuid.UUID]*channel
	members  map[string]uuid.UUID
	logger   *slog.Logger
}

// NewGateway creates an empty Gateway.
func NewGateway(logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		channels: make(map[uuid.UUID]*channel),
		members:  make(map[string]uuid.UUID),
		logger:   logger.With(slog.String("component", "realtime_gateway")),
	}
}

// Join subscribes conn to userID's channel. A connection belongs to at most
// one channel; joining another channel moves it.
func (g *Gateway) Join(conn Conn, userID uuid.UUID) {
	g.mu.Lock()
	previous, moved := g.members[conn.ID()]
	if moved && previous == userID {
		g.mu.Unlock()
		return
	}
	g.members[conn.ID()] = userID
	g.mu.Unlock()

	var size int
	for {
		ch := g.channelFor(userID)
		ch.mu.Lock()
		if ch.dead {
			ch.mu.Unlock()
			g.unlink(userID, ch)
			continue
		}
		ch.conns[conn.ID()] = conn
		size = len(ch.conns)
		ch.mu.Unlock()
		break
	}

	if moved {
		g.detach(conn.ID(), previous)
	}
	g.logger.Debug("connection joined",
		slog.String("conn_id", conn.ID()),
		slog.String("user_id", userID.String()),
		slog.Int("channel_size", size))
}

// Leave unsubscribes conn. Unknown connections are ignored.
func (g *Gateway) Leave(conn Conn) {
	g.mu.Lock()
	userID, ok := g.members[conn.ID()]
	delete(g.members, conn.ID())
	g.mu.Unlock()
	if !ok {
		return
	}

	g.detach(conn.ID(), userID)
	g.logger.Debug("connection left",
		slog.String("conn_id", conn.ID()),
		slog.String("user_id", userID.String()))
}

// channelFor returns userID's channel, creating it if needed.
func (g *Gateway) channelFor(userID uuid.UUID) *channel {
	g.mu.Lock()
	defer g.mu.Unlock()

	ch, ok := g.channels[userID]
	if !ok {
		ch = &channel{conns: make(map[string]Conn)}
		g.channels[userID] = ch
	}
	return ch
}

func (g *Gateway) lookup(userID uuid.UUID) *channel {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.channels[userID]
}

// detach drops connID from userID's channel and unlinks the channel once it
// is empty.
func (g *Gateway) detach(connID string, userID uuid.UUID) {
	ch := g.lookup(userID)
	if ch == nil {
		return
	}

	ch.mu.Lock()
	delete(ch.conns, connID)
	empty := len(ch.conns) == 0
	if empty {
		ch.dead = true
	}
	ch.mu.Unlock()

	if empty {
		g.unlink(userID, ch)
	}
}

// unlink removes ch from the map unless a fresh channel already replaced it.
func (g *Gateway) unlink(userID uuid.UUID, ch *channel) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.channels[userID] == ch {
		delete(g.channels, userID)
	}
}

// Publish sends ev to every connection in userID's channel and returns how
// many accepted it. A channel with no connections is a silent no-op.
// Connections that cannot accept the event are evicted and closed.
func (g *Gateway) Publish(userID uuid.UUID, ev Event) int {
	ch := g.lookup(userID)
	if ch == nil {
		return 0
	}

	var lost []Conn
	delivered := 0

	ch.mu.Lock()
	for _, conn := range ch.conns {
		if err := conn.Send(ev); err != nil {
			lost = append(lost, conn)
			continue
		}
		delivered++
	}
	ch.mu.Unlock()

	for _, conn := range lost {
		g.logger.Warn("evicting unresponsive connection",
			slog.String("conn_id", conn.ID()),
			slog.String("user_id", userID.String()),
			slog.String("event", ev.Type))
		g.Leave(conn)
		_ = conn.Close()
	}

	return delivered
}

// ConnectionCount returns how many connections userID currently has.
func (g *Gateway) ConnectionCount(userID uuid.UUID) int {
	ch := g.lookup(userID)
	if ch == nil {
		return 0
	}
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return len(ch.conns)
}

// Close disconnects every connection and empties the gateway.
func (g *Gateway) Close() {
	g.mu.Lock()
	channels := g.channels
	g.channels = make(map[uuid.UUID]*channel)
	g.members = make(map[string]uuid.UUID)
	g.mu.Unlock()

	var all []Conn
	for _, ch := range channels {
		ch.mu.Lock()
		ch.dead = true
		for _, conn := range ch.conns {
			all = append(all, conn)
		}
		ch.mu.Unlock()
	}

	for _, conn := range all {
		_ = conn.Close()
	}
	g.logger.Info("gateway closed", slog.Int("connections", len(all)))
}
