package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/tatianab/gtfoklahoma/internal/content"
	"github.com/tatianab/gtfoklahoma/internal/dispatch"
	"github.com/tatianab/gtfoklahoma/internal/engine"
	"github.com/tatianab/gtfoklahoma/internal/models"
	"github.com/tatianab/gtfoklahoma/internal/stats"
)

var (
	ErrNothingPending = errors.New("nothing is waiting for that answer")
	ErrUnknownMessage = errors.New("unknown message type")
)

const (
	clientQueue  = 32
	writeTimeout = 5 * time.Second
	maxMessage   = 4 << 10
)

type client struct {
	conn *websocket.Conn
	out  chan []byte
}

// Hub is an engine observer that mirrors the journey to every connected
// websocket client. Any client may answer a pending decision or store
// visit; the first valid answer wins.
type Hub struct {
	logger   *log.Logger
	upgrader websocket.Upgrader

	mu       sync.Mutex
	clients  map[*client]struct{}
	closed   bool
	session  string
	hour     int
	mile     int
	stats    stats.Vector
	decision *dispatch.Decision
	visit    *dispatch.StoreVisit
	over     bool
}

// NewHub snapshots the session so clients that connect before the first
// tick still see where the rider is. Call it before starting the engine.
func NewHub(session *models.GameSession, logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 << 10,
			WriteBufferSize: 16 << 10,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: map[*client]struct{}{},
		session: session.ID,
		hour:    session.State.Hour,
		mile:    session.State.Mile,
		stats:   session.State.Stats,
		over:    session.Over,
	}
}

func (h *Hub) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			h.logger.Debug("upgrade failed", "err", err)
			return
		}
		defer conn.Close()
		conn.SetReadLimit(maxMessage)

		c, err := h.join(conn)
		if err != nil {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, err.Error()),
				time.Now().Add(time.Second))
			return
		}
		h.logger.Info("client connected", "remote", r.RemoteAddr)

		// Writer goroutine.
		writerDone := make(chan struct{})
		go func() {
			defer close(writerDone)
			for b := range c.out {
				_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					h.logger.Debug("write failed", "remote", r.RemoteAddr, "err", err)
					// Unblock the reader.
					conn.Close()
					return
				}
			}
		}()

		// Reader loop.
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			h.handle(c, msg)
		}

		// Closing the queue stops the writer.
		h.leave(c)
		<-writerDone
		h.logger.Info("client disconnected", "remote", r.RemoteAddr)
	}
}

// join registers a client and queues its hello frame.
func (h *Hub) join(conn *websocket.Conn) (*client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, errors.New("server shutting down")
	}

	hello := HelloView{
		Session: h.session,
		Hour:    h.hour,
		Mile:    h.mile,
		Stats:   statsView(h.stats),
		Over:    h.over,
	}
	if h.decision != nil {
		if _, done := h.decision.Value(); !done {
			hello.Decision = decisionView(h.decision)
		}
	}
	if h.visit != nil {
		hello.Store = storeView(h.visit)
	}
	b, err := encode(TypeHello, hello)
	if err != nil {
		return nil, err
	}

	c := &client{conn: conn, out: make(chan []byte, clientQueue)}
	c.out <- b
	h.clients[c] = struct{}{}
	return c, nil
}

func (h *Hub) leave(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(c)
}

func (h *Hub) dropLocked(c *client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.out)
	}
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c.conn)
		h.dropLocked(c)
	}
	h.mu.Unlock()

	deadline := time.Now().Add(time.Second)
	for _, conn := range conns {
		// The close frame is best effort; closing the conn unblocks the reader.
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), deadline)
		conn.Close()
	}
}

// Clients reports how many clients are connected.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) handle(c *client, raw []byte) {
	var msg ClientMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		h.reply(c, TypeError, ErrorView{Message: fmt.Sprintf("bad message: %v", err)})
		return
	}

	var (
		ack any
		err error
	)
	switch msg.Type {
	case TypeChoose:
		err = h.choose(msg.ActionID)
	case TypeBuy:
		ack, err = h.buy(msg.ItemID)
	case TypeLeave:
		err = h.leaveStore()
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type)
	}
	if err != nil {
		h.reply(c, TypeError, ErrorView{Message: err.Error()})
		return
	}
	h.reply(c, TypeAck, ack)
}

func (h *Hub) choose(actionID int) error {
	h.mu.Lock()
	d := h.decision
	h.mu.Unlock()
	if d == nil {
		return ErrNothingPending
	}
	return d.Resolve(actionID)
}

func (h *Hub) buy(itemID int) (*StoreView, error) {
	h.mu.Lock()
	v := h.visit
	h.mu.Unlock()
	if v == nil {
		return nil, ErrNothingPending
	}
	if err := v.Purchase(itemID); err != nil {
		return nil, err
	}
	return storeView(v), nil
}

func (h *Hub) leaveStore() error {
	h.mu.Lock()
	v := h.visit
	h.mu.Unlock()
	if v == nil {
		return ErrNothingPending
	}
	return v.Complete()
}

func (h *Hub) reply(c *client, typ string, data any) {
	b, err := encode(typ, data)
	if err != nil {
		h.logger.Error("encode frame", "type", typ, "err", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.out <- b:
	default:
		h.logger.Warn("client queue full, dropping reply", "type", typ)
	}
}

// broadcast runs update under the lock, then fans the frame out. Slow
// clients lose frames rather than stall the engine.
func (h *Hub) broadcast(typ string, data any, update func()) {
	b, err := encode(typ, data)
	if err != nil {
		h.logger.Error("encode frame", "type", typ, "err", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if update != nil {
		update()
	}
	for c := range h.clients {
		select {
		case c.out <- b:
		default:
			h.logger.Warn("client queue full, dropping frame", "type", typ)
		}
	}
}

func (h *Hub) OnHourChanged(hour int) {
	h.broadcast(TypeHour, map[string]int{"hour": hour}, func() { h.hour = hour })
}

func (h *Hub) OnMileChanged(mile int) {
	h.broadcast(TypeMile, map[string]int{"mile": mile}, func() { h.mile = mile })
}

func (h *Hub) OnEvent(d *dispatch.Decision) {
	h.broadcast(TypeDecision, decisionView(d), func() { h.decision = d })
}

func (h *Hub) OnIssueOccurred(d *dispatch.Decision) {
	h.broadcast(TypeDecision, decisionView(d), func() { h.decision = d })
}

func (h *Hub) OnStoreEntered(v *dispatch.StoreVisit) {
	h.broadcast(TypeStore, storeView(v), func() { h.visit = v })
}

func (h *Hub) OnStatsChanged(s stats.Vector) {
	h.broadcast(TypeStats, statsView(s), func() { h.stats = s })
}

func (h *Hub) OnActionResolved(r engine.ActionResult) {
	h.broadcast(TypeResult, resultView(r), func() {
		h.decision = nil
		h.visit = nil
		h.stats = r.Stats
	})
}

func (h *Hub) OnGameOver(e content.Ending) {
	h.broadcast(TypeGameOver, endingView(e), func() {
		h.decision = nil
		h.visit = nil
		h.over = true
	})
}
