package ipc

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vanlueckn/n8n-nodes-discord/pkg/logger"
)

// Client is the workflow-process side of the protocol. Replies are
// correlated by operation type, matching how the server answers: one
// outstanding request per operation per client.
type Client struct {
	ws      *websocket.Conn
	writeMu sync.Mutex

	mu       sync.Mutex
	waiters  map[string][]chan json.RawMessage
	handlers map[string]func(json.RawMessage)
	closed   chan struct{}
}

// Dial connects to a bridge at addr (host:port).
func Dial(addr string) (*Client, error) {
	ws, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("ws://%s/ipc", addr), nil)
	if err != nil {
		return nil, fmt.Errorf("dial bridge: %w", err)
	}
	c := &Client{
		ws:       ws,
		waiters:  make(map[string][]chan json.RawMessage),
		handlers: make(map[string]func(json.RawMessage)),
		closed:   make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// On registers a handler for server-initiated frames of an operation type.
func (c *Client) On(op string, fn func(json.RawMessage)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[op] = fn
}

// Emit sends a frame without waiting for a reply.
func (c *Client) Emit(op string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(Frame{Type: op, Data: payload})
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, frame)
}

// Request sends a frame and waits for the server's reply under the same
// operation type. A request that gives up removes its waiter so a stale
// slot never swallows the reply meant for a later request.
func (c *Client) Request(op string, data interface{}, timeout time.Duration) (json.RawMessage, error) {
	ch := make(chan json.RawMessage, 1)
	c.mu.Lock()
	c.waiters[op] = append(c.waiters[op], ch)
	c.mu.Unlock()

	if err := c.Emit(op, data); err != nil {
		c.removeWaiter(op, ch)
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case reply := <-ch:
		return reply, nil
	case <-timer.C:
		c.removeWaiter(op, ch)
		return nil, fmt.Errorf("%s: reply timeout", op)
	case <-c.closed:
		c.removeWaiter(op, ch)
		return nil, fmt.Errorf("%s: connection closed", op)
	}
}

func (c *Client) removeWaiter(op string, ch chan json.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	queue := c.waiters[op]
	for i, w := range queue {
		if w == ch {
			c.waiters[op] = append(queue[:i], queue[i+1:]...)
			return
		}
	}
}

// Close tears the connection down.
func (c *Client) Close() error {
	return c.ws.Close()
}

func (c *Client) readLoop() {
	defer close(c.closed)
	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			logger.WarnCF("ipc", "Client discarding malformed frame", map[string]interface{}{
				"error": err.Error(),
			})
			continue
		}

		c.mu.Lock()
		if queue := c.waiters[frame.Type]; len(queue) > 0 {
			ch := queue[0]
			c.waiters[frame.Type] = queue[1:]
			c.mu.Unlock()
			ch <- frame.Data
			continue
		}
		fn := c.handlers[frame.Type]
		c.mu.Unlock()

		if fn != nil {
			fn(frame.Data)
		}
	}
}
