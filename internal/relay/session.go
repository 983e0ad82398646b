package relay

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/cardbazaar/ledger/internal/event"
)

// session is one client connection. Reads happen on the HTTP handler
// goroutine, writes on a dedicated write loop; the outbound channel is
// the only hand-off between the dispatch goroutine and the socket, and
// pushes to it never block.
type session struct {
	id     string
	cfg    Config
	conn   *websocket.Conn
	logger *slog.Logger

	outbound chan []byte
	done     chan struct{}
	once     sync.Once
}

func newSession(conn *websocket.Conn, cfg Config, logger *slog.Logger) *session {
	id := uuid.NewString()
	return &session{
		id:       id,
		cfg:      cfg,
		conn:     conn,
		logger:   logger.With("session", id),
		outbound: make(chan []byte, cfg.OutboundBufferSize),
		done:     make(chan struct{}),
	}
}

// readLoop parses inbound frames and forwards them to the dispatch
// goroutine. Returns when the client goes away.
func (s *session) readLoop(srv *Server) {
	s.conn.SetReadLimit(s.cfg.MaxMessageBytes)
	s.conn.SetPongHandler(func(string) error {
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
			default:
				s.logger.Debug("client disconnected", "error", err)
			}
			return
		}

		var frame []json.RawMessage
		if err := json.Unmarshal(data, &frame); err != nil {
			s.notice("could not parse message")
			continue
		}
		if !srv.submit(command{op: opFrame, sess: s, frame: frame}) {
			return
		}
	}
}

// writeLoop drains the outbound channel onto the socket and keeps the
// connection alive with pings.
func (s *session) writeLoop() {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case data := <-s.outbound:
			s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.logger.Debug("write failed", "error", err)
				s.close()
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(s.cfg.WriteTimeout)
			if err := s.conn.WriteControl(websocket.PingMessage, []byte("keepalive"), deadline); err != nil {
				s.logger.Debug("ping failed", "error", err)
				s.close()
				return
			}
		}
	}
}

// send marshals a frame and pushes it to the outbound buffer. Best
// effort: a full buffer drops the frame rather than blocking the caller.
func (s *session) send(items ...any) {
	data, err := json.Marshal(items)
	if err != nil {
		s.logger.Error("marshal outbound frame", "error", err)
		return
	}
	select {
	case s.outbound <- data:
	case <-s.done:
	default:
		s.logger.Warn("outbound buffer full, dropping frame")
	}
}

func (s *session) sendOK(eventID string, accepted bool, reason string) {
	s.send(VerbOK, eventID, accepted, reason)
}

func (s *session) sendEvent(subID string, ev *event.Event) {
	s.send(VerbEvent, subID, ev)
}

func (s *session) notice(message string) {
	s.send(VerbNotice, message)
}

func (s *session) close() {
	s.once.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}
