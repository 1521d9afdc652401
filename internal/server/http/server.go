package httpserver

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/brandon-schabel/Promptliano-sub009/internal/runtime"
	flowsvc "github.com/brandon-schabel/Promptliano-sub009/internal/services/flow"
	logpkg "github.com/brandon-schabel/Promptliano-sub009/pkg/log"
)

type Server struct {
	rt     *runtime.Runtime
	svc    *flowsvc.Service
	srv    *http.Server
	lis    net.Listener
	logger logpkg.Logger
}

func New(rt *runtime.Runtime, logger logpkg.Logger) *Server {
	if logger == nil {
		logger = logpkg.NewLogger()
	}
	mux := http.NewServeMux()
	s := &Server{
		rt:     rt,
		svc:    flowsvc.NewWithLogger(rt, logger),
		srv:    &http.Server{Handler: cors(mux)},
		logger: logger.With(logpkg.Component("http")),
	}

	mux.HandleFunc("/v1/healthz", s.handleHealth)

	mux.HandleFunc("/v1/projects/ensure", s.handleProjectEnsure)
	mux.HandleFunc("/v1/projects", s.handleProjectList)

	mux.HandleFunc("/v1/tickets/create", s.handleTicketCreate)
	mux.HandleFunc("/v1/tickets/get", s.handleTicketGet)
	mux.HandleFunc("/v1/tickets/delete", s.handleTicketDelete)
	mux.HandleFunc("/v1/tasks/create", s.handleTaskCreate)
	mux.HandleFunc("/v1/tasks/get", s.handleTaskGet)
	mux.HandleFunc("/v1/tasks/done", s.handleTaskDone)
	mux.HandleFunc("/v1/tasks/delete", s.handleTaskDelete)

	mux.HandleFunc("/v1/queues/create", s.handleQueueCreate)
	mux.HandleFunc("/v1/queues/update", s.handleQueueUpdate)
	mux.HandleFunc("/v1/queues/delete", s.handleQueueDelete)
	mux.HandleFunc("/v1/queues", s.handleQueueList)

	mux.HandleFunc("/v1/flow/enqueue", s.handleEnqueue)
	mux.HandleFunc("/v1/flow/dequeue", s.handleDequeue)
	mux.HandleFunc("/v1/flow/move", s.handleMove)
	mux.HandleFunc("/v1/flow/bulk-move", s.handleBulkMove)
	mux.HandleFunc("/v1/flow/reorder", s.handleReorder)
	mux.HandleFunc("/v1/flow/claim-next", s.handleClaimNext)
	mux.HandleFunc("/v1/flow/claim", s.handleClaimSpecific)
	mux.HandleFunc("/v1/flow/complete", s.handleComplete)
	mux.HandleFunc("/v1/flow/fail", s.handleFail)
	mux.HandleFunc("/v1/flow/retry-advice", s.handleRetryAdvice)
	mux.HandleFunc("/v1/flow/membership", s.handleMembership)
	mux.HandleFunc("/v1/flow/members", s.handleMembers)
	mux.HandleFunc("/v1/flow/unqueued", s.handleUnqueued)
	mux.HandleFunc("/v1/flow/stats", s.handleQueueStats)
	mux.HandleFunc("/v1/flow/project-stats", s.handleProjectStats)
	mux.HandleFunc("/v1/flow/events", s.handleEvents)
	mux.HandleFunc("/v1/flow/events/trim", s.handleEventsTrim)

	return s
}

// Handler returns the root handler, for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	s.logger.Info("http server listening", logpkg.Str("addr", l.Addr().String()))
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(cctx)
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) Close() {
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.rt.CheckHealth(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_serving"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad request body"})
		return false
	}
	return true
}
