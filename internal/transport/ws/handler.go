// Package ws hosts verification views over WebSocket. One connection is one
// view: it owns a verification.Flow for as long as the page stays open.
package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/crm-web/internal/application/verification"
	"github.com/crm-web/internal/domain"
	"github.com/crm-web/internal/pkg/id"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Recorder observes view lifetimes and the outcomes they display.
type Recorder interface {
	ViewOpened()
	ViewClosed()
	Outcome(o domain.Outcome)
}

type nopRecorder struct{}

func (nopRecorder) ViewOpened()            {}
func (nopRecorder) ViewClosed()            {}
func (nopRecorder) Outcome(domain.Outcome) {}

// Handler upgrades verification page sockets and runs one flow per socket.
type Handler struct {
	verifier   verification.Verifier
	flowOpts   []verification.Option
	upgrader   websocket.Upgrader
	sendBuffer int
	log        *zap.Logger
	rec        Recorder

	mu       sync.Mutex
	closing  bool
	shutdown chan struct{}
	active   sync.WaitGroup
}

func NewHandler(
	verifier verification.Verifier,
	allowedOrigins []string,
	sendBuffer int,
	log *zap.Logger,
	flowOpts ...verification.Option,
) *Handler {
	if sendBuffer < 1 {
		sendBuffer = 1
	}
	return &Handler{
		verifier: verifier,
		flowOpts: flowOpts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		sendBuffer: sendBuffer,
		log:        log,
		rec:        nopRecorder{},
		shutdown:   make(chan struct{}),
	}
}

// WithRecorder sets the recorder for views opened afterwards.
func (h *Handler) WithRecorder(rec Recorder) *Handler {
	h.rec = rec
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.enter() {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	defer h.active.Done()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		h.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	viewID := id.New()
	log := h.log.With(zap.String("view_id", viewID))
	view := newView(viewID, h.sendBuffer, log, h.rec)
	opts := append(append([]verification.Option(nil), h.flowOpts...), verification.WithLogger(log))
	flow := verification.New(h.verifier, view, view, opts...)
	h.rec.ViewOpened()
	log.Debug("verification view opened")

	defer func() {
		flow.Dispose()
		view.close()
		_ = conn.Close()
		h.rec.ViewClosed()
		log.Debug("verification view closed")
	}()

	gone := make(chan struct{})
	go readPump(conn, gone)

	flow.Evaluate(r.URL.Query())
	h.writePump(conn, view, gone, log)
}

// readPump discards client frames and closes gone when the peer leaves.
func readPump(conn *websocket.Conn, gone chan<- struct{}) {
	defer close(gone)
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Handler) writePump(conn *websocket.Conn, view *View, gone <-chan struct{}, log *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case m, ok := <-view.send:
			if !ok {
				writeClose(conn, websocket.CloseNormalClosure, "")
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(m); err != nil {
				log.Debug("write to view failed", zap.Error(err))
				return
			}
			if m.Type == MessageNavigate {
				// The page leaves; this view ends here.
				writeClose(conn, websocket.CloseNormalClosure, "navigate")
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-gone:
			return
		case <-h.shutdown:
			writeClose(conn, websocket.CloseGoingAway, "server shutting down")
			return
		}
	}
}

func writeClose(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(writeWait))
}

func (h *Handler) enter() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closing {
		return false
	}
	h.active.Add(1)
	return true
}

// Close ends every open view and waits for them to be torn down or for ctx.
func (h *Handler) Close(ctx context.Context) error {
	h.mu.Lock()
	if !h.closing {
		h.closing = true
		close(h.shutdown)
	}
	h.mu.Unlock()
	done := make(chan struct{})
	go func() {
		h.active.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := set[origin]; ok {
			return true
		}
		// Same-origin pages are always allowed.
		return origin == "http://"+r.Host || origin == "https://"+r.Host
	}
}
