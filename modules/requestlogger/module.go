// Package requestlogger is the built-in module binding internal/requestlogger's
// Store to the kernel's service/HTTP surface: plugins and the admin UI read
// it exclusively through ServiceRegistry and HttpRegistry, never by
// importing internal/requestlogger directly (spec §4.13's "kernel exposes
// itself the same way plugins expose themselves" rule).
//
// The admin live-tail endpoint is a supplemented feature grounded in
// infrastructure's gorilla/websocket usage, generalized here into a poll-
// and-push loop over Store.ListRequests rather than a genuine event feed,
// since Store has no internal pub/sub of its own.
package requestlogger

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/homecore/kernel/internal/httpregistry"
	internalhttputil "github.com/homecore/kernel/internal/httputil"
	"github.com/homecore/kernel/internal/kernelerr"
	"github.com/homecore/kernel/internal/logging"
	"github.com/homecore/kernel/internal/registry"
	"github.com/homecore/kernel/internal/requestlogger"
)

const pollInterval = time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Module binds a *requestlogger.Store into ServiceRegistry, HttpRegistry,
// and (via router) an admin live-tail websocket.
type Module struct {
	store    *requestlogger.Store
	services *registry.Registry
	http     *httpregistry.Registry
	router   *mux.Router
	log      *logging.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs the requestlogger module. router may be nil, in which
// case the live-tail endpoint is not mounted (e.g. in tests that have no
// gateway router).
func New(store *requestlogger.Store, services *registry.Registry, httpReg *httpregistry.Registry, router *mux.Router, log *logging.Logger) *Module {
	return &Module{store: store, services: services, http: httpReg, router: router, log: log}
}

func (m *Module) Name() string { return "requestlogger" }

func (m *Module) Start(ctx context.Context) error {
	m.services.Register("requestlogger.list_requests", m.listRequests, "")
	m.services.Register("requestlogger.get_logs", m.getLogs, "")

	if err := m.http.Register(httpregistry.Endpoint{Method: http.MethodGet, Path: "/admin/requests", Service: "requestlogger.list_requests", Description: "list recent operations"}); err != nil {
		return err
	}
	if err := m.http.Register(httpregistry.Endpoint{Method: http.MethodGet, Path: "/admin/requests/{id}/logs", Service: "requestlogger.get_logs", Description: "read one operation's log lines"}); err != nil {
		return err
	}

	if m.router != nil {
		runCtx, cancel := context.WithCancel(context.Background())
		m.cancel = cancel
		m.router.HandleFunc("/admin/requests/tail", m.handleLiveTail(runCtx))
	}
	return nil
}

func (m *Module) Stop(ctx context.Context) error {
	m.services.Unregister("requestlogger.list_requests")
	m.services.Unregister("requestlogger.get_logs")
	m.http.Clear("requestlogger")
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	return nil
}

func (m *Module) listRequests(ctx context.Context, args registry.Args) (any, error) {
	limit := 50
	offset := 0
	if v, ok := args.Get("limit"); ok {
		if n, ok := toInt(v); ok {
			limit = n
		}
	}
	if v, ok := args.Get("offset"); ok {
		if n, ok := toInt(v); ok {
			offset = n
		}
	}
	return m.store.ListRequests(limit, offset), nil
}

func (m *Module) getLogs(ctx context.Context, args registry.Args) (any, error) {
	id, _ := args.Get("id")
	opID, _ := id.(string)
	logs, found := m.store.GetRequestLogs(opID)
	if !found {
		return nil, kernelerr.NewNotFound("operation", opID)
	}
	return logs, nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case string:
		if n == "" {
			return 0, false
		}
		var out int
		for _, r := range n {
			if r < '0' || r > '9' {
				return 0, false
			}
			out = out*10 + int(r-'0')
		}
		return out, true
	default:
		return 0, false
	}
}

// handleLiveTail upgrades to a websocket and pushes the latest request
// summaries to the client every pollInterval until the connection closes
// or the module stops.
func (m *Module) handleLiveTail(runCtx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			internalhttputil.WriteErrorResponse(w, r, http.StatusBadRequest, "UPGRADE_FAILED", err.Error(), nil)
			return
		}
		m.wg.Add(1)
		go m.tailLoop(runCtx, conn)
	}
}

func (m *Module) tailLoop(ctx context.Context, conn *websocket.Conn) {
	defer m.wg.Done()
	defer conn.Close()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteJSON(m.store.ListRequests(20, 0)); err != nil {
				return
			}
		}
	}
}
