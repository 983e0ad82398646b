package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cardbazaar/ledger/internal/event"
	"github.com/cardbazaar/ledger/internal/metrics"
	"github.com/cardbazaar/ledger/internal/schema"
	"github.com/cardbazaar/ledger/internal/store"
)

// Rejection reason classes for metrics.
const (
	reasonStructural = "structural"
	reasonKind       = "kind"
	reasonSchema     = "schema"
	reasonSignature  = "signature"
	reasonRateLimit  = "rate_limit"
	reasonStorage    = "storage"
)

type opKind int

const (
	opRegister opKind = iota
	opUnregister
	opFrame
)

// command is one unit of work for the dispatch goroutine.
type command struct {
	op    opKind
	sess  *session
	frame []json.RawMessage
}

// Server terminates client connections and owns all protocol state.
type Server struct {
	cfg     Config
	logger  *slog.Logger
	store   store.Store
	sink    EventSink
	metrics *metrics.Metrics

	upgrader websocket.Upgrader
	limiter  *slidingLimiter

	// subs maps session -> subscription id -> filters. Owned by the
	// dispatch goroutine; nothing else touches it.
	subs map[*session]map[string][]event.Filter

	commands chan command
	done     chan struct{}
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewServer creates a relay over the given event log and sink. The sink
// and metrics may be nil.
func NewServer(cfg Config, st store.Store, sink EventSink, m *metrics.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:     cfg,
		logger:  logger,
		store:   st,
		sink:    sink,
		metrics: m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The browser clients come from the marketplace UI on other
			// origins; event signatures are the authentication.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		limiter:  newSlidingLimiter(cfg.RateWindow, cfg.RateCap),
		subs:     make(map[*session]map[string][]event.Filter),
		commands: make(chan command, 256),
		done:     make(chan struct{}),
	}
}

// Start launches the dispatch goroutine.
func (s *Server) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.dispatchLoop()
	s.logger.Info("relay started",
		"kind_range", fmt.Sprintf("%d-%d", s.cfg.MinKind, s.cfg.MaxKind),
		"rate_cap", s.cfg.RateCap,
		"rate_window", s.cfg.RateWindow,
	)
	return nil
}

// Stop shuts down the dispatch goroutine and closes every session.
func (s *Server) Stop(ctx context.Context) error {
	close(s.done)
	if s.cancel != nil {
		s.cancel()
	}

	stopped := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(stopped)
	}()

	select {
	case <-stopped:
		s.logger.Info("relay stopped")
	case <-ctx.Done():
		s.logger.Warn("relay stop timed out")
	}
	return nil
}

// Handler upgrades HTTP requests to relay sessions.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.logger.Debug("upgrade failed", "error", err)
			return
		}

		sess := newSession(conn, s.cfg, s.logger)
		if !s.submit(command{op: opRegister, sess: sess}) {
			conn.Close()
			return
		}
		go sess.writeLoop()
		sess.readLoop(s)
		s.submit(command{op: opUnregister, sess: sess})
		sess.close()
	})
}

// submit hands a command to the dispatch goroutine. Returns false after
// shutdown.
func (s *Server) submit(cmd command) bool {
	select {
	case s.commands <- cmd:
		return true
	case <-s.done:
		return false
	}
}

func (s *Server) dispatchLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			for sess := range s.subs {
				sess.close()
			}
			return
		case cmd := <-s.commands:
			switch cmd.op {
			case opRegister:
				s.subs[cmd.sess] = make(map[string][]event.Filter)
				s.logger.Debug("session connected", "session", cmd.sess.id)
			case opUnregister:
				for range s.subs[cmd.sess] {
					s.metrics.SubscriptionClosed()
				}
				delete(s.subs, cmd.sess)
				s.logger.Debug("session gone", "session", cmd.sess.id)
			case opFrame:
				s.handleFrame(cmd.sess, cmd.frame)
			}
		}
	}
}

func (s *Server) handleFrame(sess *session, frame []json.RawMessage) {
	if len(frame) == 0 {
		sess.notice("empty message")
		return
	}

	var verb string
	if err := json.Unmarshal(frame[0], &verb); err != nil {
		sess.notice("could not parse message")
		return
	}

	switch verb {
	case VerbEvent:
		s.handleEvent(sess, frame)
	case VerbReq:
		s.handleReq(sess, frame)
	case VerbClose:
		s.handleClose(sess, frame)
	case VerbCount:
		s.handleCount(sess, frame)
	default:
		sess.notice("unrecognized message type: " + verb)
	}
}

func (s *Server) handleEvent(sess *session, frame []json.RawMessage) {
	if len(frame) < 2 {
		sess.notice("EVENT requires an event object")
		return
	}

	var ev event.Event
	if err := json.Unmarshal(frame[1], &ev); err != nil {
		sess.sendOK("unknown", false, "invalid: could not parse event")
		s.metrics.EventRejected(reasonStructural)
		return
	}

	id := ev.ID
	if id == "" {
		id = "unknown"
	}

	if ev.ID == "" || ev.PubKey == "" || ev.Sig == "" {
		sess.sendOK(id, false, "invalid: missing required fields")
		s.metrics.EventRejected(reasonStructural)
		return
	}

	if ev.Kind < s.cfg.MinKind || ev.Kind > s.cfg.MaxKind {
		sess.sendOK(id, false, "invalid: kind not accepted")
		s.metrics.EventRejected(reasonKind)
		return
	}

	if err := schema.Validate(&ev); err != nil {
		sess.sendOK(id, false, err.Error())
		s.metrics.EventRejected(reasonSchema)
		return
	}

	valid, err := ev.Verify()
	if err != nil {
		sess.sendOK(id, false, "invalid: "+err.Error())
		s.metrics.EventRejected(reasonSignature)
		return
	}
	if !valid {
		sess.sendOK(id, false, "invalid: bad signature or id")
		s.metrics.EventRejected(reasonSignature)
		return
	}

	if !s.limiter.Allow(ev.PubKey, time.Now()) {
		sess.sendOK(id, false, "rate-limited: too many events")
		s.metrics.EventRejected(reasonRateLimit)
		return
	}

	if err := s.store.Save(s.ctx, &ev); err != nil {
		s.logger.Error("store event", "id", ev.ID, "error", err)
		sess.sendOK(id, false, "error: could not store event")
		s.metrics.EventRejected(reasonStorage)
		return
	}

	s.broadcast(&ev)
	if s.sink != nil {
		s.sink.Submit(&ev)
	}
	s.metrics.EventAccepted()
	sess.sendOK(id, true, "")

	s.logger.Debug("event accepted",
		"id", ev.ID,
		"kind", event.KindName(ev.Kind),
		"pubkey", ev.PubKey,
	)
}

func (s *Server) handleReq(sess *session, frame []json.RawMessage) {
	subID, filters, ok := parseSubFrame(sess, frame)
	if !ok {
		return
	}

	if _, exists := s.subs[sess][subID]; !exists {
		s.metrics.SubscriptionOpened()
	}
	s.subs[sess][subID] = filters

	stored, err := s.store.Query(s.ctx, filters)
	if err != nil {
		s.logger.Error("query stored events", "error", err)
		sess.notice("error: could not query stored events")
		return
	}
	for _, ev := range stored {
		sess.sendEvent(subID, ev)
	}
	sess.send(VerbEOSE, subID)
}

func (s *Server) handleClose(sess *session, frame []json.RawMessage) {
	if len(frame) < 2 {
		sess.notice("CLOSE requires a subscription id")
		return
	}
	var subID string
	if err := json.Unmarshal(frame[1], &subID); err != nil {
		sess.notice("could not parse subscription id")
		return
	}

	if _, exists := s.subs[sess][subID]; exists {
		delete(s.subs[sess], subID)
		s.metrics.SubscriptionClosed()
	}
	sess.send(VerbClosed, subID)
}

func (s *Server) handleCount(sess *session, frame []json.RawMessage) {
	subID, filters, ok := parseSubFrame(sess, frame)
	if !ok {
		return
	}

	n, err := s.store.Count(s.ctx, filters)
	if err != nil {
		s.logger.Error("count stored events", "error", err)
		sess.notice("error: could not count stored events")
		return
	}
	sess.send(VerbCount, subID, map[string]int{"count": n})
}

// parseSubFrame parses the shared [<verb>, subId, filter...] shape of
// REQ and COUNT.
func parseSubFrame(sess *session, frame []json.RawMessage) (string, []event.Filter, bool) {
	if len(frame) < 2 {
		sess.notice("message requires a subscription id")
		return "", nil, false
	}
	var subID string
	if err := json.Unmarshal(frame[1], &subID); err != nil {
		sess.notice("could not parse subscription id")
		return "", nil, false
	}

	filters := make([]event.Filter, 0, len(frame)-2)
	for _, raw := range frame[2:] {
		var f event.Filter
		if err := json.Unmarshal(raw, &f); err != nil {
			sess.notice("could not parse filter")
			return "", nil, false
		}
		filters = append(filters, f)
	}
	return subID, filters, true
}

// broadcast pushes the accepted event to every matching subscription.
func (s *Server) broadcast(ev *event.Event) {
	for sess, subs := range s.subs {
		for subID, filters := range subs {
			if event.MatchesAny(filters, ev) {
				sess.sendEvent(subID, ev)
				s.metrics.Broadcast()
			}
		}
	}
}
