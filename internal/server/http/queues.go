package httpserver

import (
	"net/http"

	"github.com/brandon-schabel/Promptliano-sub009/internal/flow"
)

type queueCreateReq struct {
	Project        string            `json:"project"`
	Name           string            `json:"name"`
	Description    string            `json:"description"`
	MaxConcurrency int               `json:"maxConcurrency"`
	RetryPolicy    *flow.RetryPolicy `json:"retryPolicy"`
	Metadata       map[string]string `json:"metadata"`
}

func (s *Server) handleQueueCreate(w http.ResponseWriter, r *http.Request) {
	var req queueCreateReq
	if !decode(w, r, &req) {
		return
	}
	q, err := s.svc.CreateQueue(r.Context(), req.Project, flow.QueueSpec{
		Name:           req.Name,
		Description:    req.Description,
		MaxConcurrency: req.MaxConcurrency,
		RetryPolicy:    req.RetryPolicy,
		Metadata:       req.Metadata,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

type queueUpdateReq struct {
	QueueID string `json:"queueId"`
	flow.QueuePatch
}

func (s *Server) handleQueueUpdate(w http.ResponseWriter, r *http.Request) {
	var req queueUpdateReq
	if !decode(w, r, &req) {
		return
	}
	q, err := s.svc.UpdateQueue(r.Context(), req.QueueID, req.QueuePatch)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

type queueDeleteReq struct {
	QueueID string `json:"queueId"`
}

func (s *Server) handleQueueDelete(w http.ResponseWriter, r *http.Request) {
	var req queueDeleteReq
	if !decode(w, r, &req) {
		return
	}
	if err := s.svc.DeleteQueue(r.Context(), req.QueueID); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleQueueList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	queues, err := s.svc.ListQueues(r.URL.Query().Get("project"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"queues": queues})
}
