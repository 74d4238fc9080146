package tail

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"nuxthub/shared"
)

var logger = shared.PackageLogger("tail", "📜 TAIL")

// Subprotocol must be offered or the edge rejects the tail connection.
const Subprotocol = "trace-v1"

const (
	writeWait  = 10 * time.Second
	pingPeriod = 15 * time.Second
)

type filters struct {
	Debug bool `json:"debug"`
}

// Session is a live connection to a tail URL.
type Session struct {
	conn *websocket.Conn
	mu   sync.Mutex
	once sync.Once
	done chan struct{}
}

// Connect dials url and sends the initial filter message.
func Connect(ctx context.Context, url string, debug bool) (*Session, error) {
	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: 30 * time.Second,
		Subprotocols:     []string{Subprotocol},
	}
	header := http.Header{"User-Agent": []string{shared.UserAgent()}}

	conn, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("connect to tail (%s): %w", resp.Status, err)
		}
		return nil, fmt.Errorf("connect to tail: %w", err)
	}

	s := &Session{conn: conn, done: make(chan struct{})}
	if err := s.writeJSON(filters{Debug: debug}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("send tail filters: %w", err)
	}
	go s.pingLoop()
	return s, nil
}

func (s *Session) writeJSON(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(v)
}

func (s *Session) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			s.mu.Unlock()
			if err != nil {
				logger.Debug("Ping failed: %v", err)
				return
			}
		}
	}
}

// Stream delivers events to fn until the server closes the connection or ctx is done.
// Undecodable messages are logged and skipped.
func (s *Session) Stream(ctx context.Context, fn func(*Event)) error {
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.done:
		}
	}()

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			select {
			case <-s.done:
				return nil
			default:
			}
			return fmt.Errorf("tail connection closed unexpectedly: %w", err)
		}
		ev, err := ParseEvent(data)
		if err != nil {
			logger.Warn("%v", err)
			continue
		}
		fn(ev)
	}
}

// Close sends a close frame and releases the connection. It is safe to call more than once.
func (s *Session) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		s.mu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		s.mu.Unlock()
		err = s.conn.Close()
		if errors.Is(err, websocket.ErrCloseSent) {
			err = nil
		}
	})
	return err
}
