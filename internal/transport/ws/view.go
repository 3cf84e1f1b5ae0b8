package ws

import (
	"sync"

	"github.com/crm-web/internal/domain"
	"go.uber.org/zap"
)

const (
	MessageStatus   = "status"
	MessageNavigate = "navigate"
)

// Message is what a view pushes to the browser.
type Message struct {
	Type    string              `json:"type"`
	State   domain.OutcomeState `json:"state,omitempty"`
	Kind    domain.FailureKind  `json:"kind,omitempty"`
	Message string              `json:"message,omitempty"`
	To      string              `json:"to,omitempty"`
}

// View is one open verification page. It is the flow's Display and
// Navigator; both only enqueue, the socket writer drains the queue.
type View struct {
	ID   string
	send chan Message
	log  *zap.Logger
	rec  Recorder

	mu     sync.Mutex
	closed bool
}

func newView(id string, buffer int, log *zap.Logger, rec Recorder) *View {
	return &View{ID: id, send: make(chan Message, buffer), log: log, rec: rec}
}

func (v *View) Show(o domain.Outcome) {
	if v.enqueue(Message{Type: MessageStatus, State: o.State, Kind: o.Kind, Message: o.Message}) {
		v.rec.Outcome(o)
	}
}

func (v *View) Navigate(route string) {
	v.enqueue(Message{Type: MessageNavigate, To: route})
}

// enqueue reports whether m was queued.
func (v *View) enqueue(m Message) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return false
	}
	select {
	case v.send <- m:
		return true
	default:
		v.log.Warn("view send buffer full, dropping message", zap.String("type", m.Type))
		return false
	}
}

// close stops accepting messages. Queued ones can still be drained.
func (v *View) close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.closed {
		v.closed = true
		close(v.send)
	}
}
