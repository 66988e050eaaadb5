// Package ipc is the inter-process protocol layer between the long-lived
// bridge and short-lived workflow processes. Frames are JSON objects with a
// named operation type, served over WebSocket on loopback; the client half
// lives in client.go.
package ipc

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vanlueckn/n8n-nodes-discord/pkg/logger"
)

// Frame is one protocol message in either direction.
type Frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// HandlerFunc processes one inbound frame. Replies go back through
// conn.Emit under the same operation type; push operations simply don't
// reply.
type HandlerFunc func(conn *Conn, data json.RawMessage)

// Conn is one connected workflow process. The send channel is never
// closed: handlers reply from their own goroutines and may outlive the
// peer, so shutdown is signalled through done instead.
type Conn struct {
	ws   *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

// Emit queues a frame to this connection. A slow peer drops the frame
// rather than blocking the server; a disconnected peer drops it silently.
func (c *Conn) Emit(op string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(Frame{Type: op, Data: payload})
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		logger.DebugCF("ipc", "Dropping frame to disconnected peer", map[string]interface{}{"op": op})
		return nil
	default:
	}
	select {
	case c.send <- frame:
	case <-c.done:
		logger.DebugCF("ipc", "Dropping frame to disconnected peer", map[string]interface{}{"op": op})
	default:
		logger.WarnCF("ipc", "Dropping frame to slow peer", map[string]interface{}{"op": op})
	}
	return nil
}

func (c *Conn) close() {
	c.once.Do(func() { close(c.done) })
}

// Server multiplexes named operations from workflow processes.
type Server struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc

	listener   net.Listener
	httpServer *http.Server
}

// NewServer creates a protocol server with no operations registered.
func NewServer() *Server {
	return &Server{handlers: make(map[string]HandlerFunc)}
}

// Handle registers the handler for an operation type.
func (s *Server) Handle(op string, fn HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[op] = fn
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Peers are local workflow processes, not browsers.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Start listens on addr and serves connections until Stop.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.HandleFunc("/ipc", s.handleUpgrade)
	s.httpServer = &http.Server{Handler: mux}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.ErrorCF("ipc", "Server error", map[string]interface{}{"error": err.Error()})
		}
	}()

	logger.InfoCF("ipc", "Protocol server started", map[string]interface{}{
		"addr": listener.Addr().String(),
	})
	return nil
}

// Addr returns the bound listen address.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down.
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Close()
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.ErrorCF("ipc", "Upgrade failed", map[string]interface{}{"error": err.Error()})
		return
	}
	conn := &Conn{ws: ws, send: make(chan []byte, 64), done: make(chan struct{})}
	go conn.writePump()
	go s.readLoop(conn)
}

func (s *Server) readLoop(conn *Conn) {
	defer func() {
		conn.close()
		conn.ws.Close()
	}()

	for {
		_, raw, err := conn.ws.ReadMessage()
		if err != nil {
			return
		}
		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			logger.WarnCF("ipc", "Discarding malformed frame", map[string]interface{}{
				"error": err.Error(),
			})
			continue
		}
		s.dispatch(conn, frame)
	}
}

// dispatch runs the operation handler inside its own failure boundary: a
// panic is logged and the connection keeps serving.
func (s *Server) dispatch(conn *Conn, frame Frame) {
	s.mu.RLock()
	fn, ok := s.handlers[frame.Type]
	s.mu.RUnlock()
	if !ok {
		logger.WarnCF("ipc", "Unknown operation", map[string]interface{}{"op": frame.Type})
		return
	}

	defer func() {
		if r := recover(); r != nil {
			logger.ErrorCF("ipc", "Operation handler panicked", map[string]interface{}{
				"op": frame.Type, "panic": r,
			})
		}
	}()
	fn(conn, frame.Data)
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case <-c.done:
			c.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
			c.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case frame := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
