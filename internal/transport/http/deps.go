package http

import (
	"net/http"

	"github.com/crm-web/internal/application/account"
	"github.com/crm-web/internal/transport/http/handler"
	appmiddleware "github.com/crm-web/internal/transport/http/middleware"
	"go.uber.org/zap"
)

// Deps holds everything the router wires into handlers.
type Deps struct {
	Account account.Service
	Backend handler.BackendPinger
	// Views hosts verification views; it is mounted at SocketPath.
	Views Socket
	// Counter backs a limiter shared across instances. Nil keeps limits per process.
	Counter appmiddleware.Counter
	// Metrics serves the prometheus scrape endpoint. Nil leaves /metrics unmounted.
	Metrics http.Handler
	Logger  *zap.Logger
}
