package hub

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxInboundSize = 4096
)

// wsSession is a Session over a gorilla websocket connection. Outbound messages are
// queued and written by a single goroutine.
type wsSession struct {
	id     string
	conn   *websocket.Conn
	queue  chan []byte
	done   chan struct{}
	once   sync.Once
	logger *zap.Logger
}

func newWSSession(conn *websocket.Conn, queueSize int, logger *zap.Logger) *wsSession {
	if queueSize <= 0 {
		queueSize = 64
	}
	id := uuid.NewString()
	return &wsSession{
		id:     id,
		conn:   conn,
		queue:  make(chan []byte, queueSize),
		done:   make(chan struct{}),
		logger: logger.With(zap.String("session", id)),
	}
}

func (s *wsSession) ID() string { return s.id }

func (s *wsSession) Writable() bool {
	select {
	case <-s.done:
		return false
	default:
		return len(s.queue) < cap(s.queue)
	}
}

func (s *wsSession) Send(msg []byte) error {
	select {
	case <-s.done:
		return ErrNotWritable
	default:
	}
	select {
	case s.queue <- msg:
		return nil
	default:
		return ErrNotWritable
	}
}

func (s *wsSession) close() {
	s.once.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

func (s *wsSession) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.close()
	}()

	for {
		select {
		case <-s.done:
			return
		case msg := <-s.queue:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				s.logger.Debug("write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				s.logger.Debug("ping failed", zap.Error(err))
				return
			}
		}
	}
}

// readLoop discards inbound frames and returns when the peer goes away.
func (s *wsSession) readLoop() {
	defer s.close()

	s.conn.SetReadLimit(maxInboundSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("read failed", zap.Error(err))
			}
			return
		}
	}
}
