package mpv

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
)

// SocketPath returns the default mpv IPC socket path.
func SocketPath() string {
	return filepath.Join(os.TempDir(), fmt.Sprintf("sideline-mpv-%d.sock", os.Getpid()))
}

// Client communicates with mpv over a Unix socket.
type Client struct {
	conn    net.Conn
	scanner *bufio.Scanner
	mu      sync.Mutex
	nextID  int
}

// Connect dials the mpv IPC socket.
func Connect(socketPath string) (*Client, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("connect to mpv: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024) // 1MB buffer

	return &Client{conn: conn, scanner: scanner}, nil
}

// Close shuts down the connection.
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// SendCommand sends a command and reads lines until its response arrives.
// Events interleaved on the same connection are discarded; subscribe on a
// separate client to receive them.
func (c *Client) SendCommand(args ...any) (Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	cmd := Command{Command: args, RequestID: c.nextID}

	data, err := json.Marshal(cmd)
	if err != nil {
		return Response{}, fmt.Errorf("marshal command: %w", err)
	}

	data = append(data, '\n')
	if _, err := c.conn.Write(data); err != nil {
		return Response{}, fmt.Errorf("write command: %w", err)
	}

	for {
		if !c.scanner.Scan() {
			if err := c.scanner.Err(); err != nil {
				return Response{}, fmt.Errorf("read response: %w", err)
			}
			return Response{}, fmt.Errorf("connection closed")
		}

		var msg message
		if err := json.Unmarshal(c.scanner.Bytes(), &msg); err != nil {
			return Response{}, fmt.Errorf("unmarshal response: %w", err)
		}
		if msg.Event.Event != "" || msg.RequestID != cmd.RequestID {
			continue
		}
		return Response{Error: msg.Error, Data: msg.Data, RequestID: msg.RequestID}, nil
	}
}

// Run sends a command and converts an mpv-level failure into an error.
func (c *Client) Run(args ...any) error {
	resp, err := c.SendCommand(args...)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return fmt.Errorf("mpv %v: %s", args[0], resp.Error)
	}
	return nil
}

// Observe asks mpv to push property-change events for props on this
// connection. Observer ids are the 1-based positions in props.
func (c *Client) Observe(props ...string) error {
	for i, p := range props {
		if err := c.Run("observe_property", i+1, p); err != nil {
			return fmt.Errorf("observe %s: %w", p, err)
		}
	}
	return nil
}

// ReadEvent reads the next event line, skipping command responses. Blocks
// until data arrives. After calling Observe, use this in a loop.
func (c *Client) ReadEvent() (Event, error) {
	for {
		if !c.scanner.Scan() {
			if err := c.scanner.Err(); err != nil {
				return Event{}, fmt.Errorf("read event: %w", err)
			}
			return Event{}, fmt.Errorf("connection closed")
		}

		var msg message
		if err := json.Unmarshal(c.scanner.Bytes(), &msg); err != nil {
			return Event{}, fmt.Errorf("unmarshal event: %w", err)
		}
		if msg.Event.Event == "" {
			continue
		}
		return msg.Event, nil
	}
}
