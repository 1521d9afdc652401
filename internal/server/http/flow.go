package httpserver

import (
	"net/http"
	"strconv"

	"github.com/brandon-schabel/Promptliano-sub009/internal/flow"
)

func refFromQuery(r *http.Request) flow.Ref {
	q := r.URL.Query()
	return flow.Ref{Type: flow.ItemType(q.Get("itemType")), ID: q.Get("itemId")}
}

type enqueueReq struct {
	QueueID               string   `json:"queueId"`
	Ref                   flow.Ref `json:"ref"`
	Priority              int      `json:"priority"`
	EstimatedProcessingMs int64    `json:"estimatedProcessingMs"`
}

func (s *Server) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	var req enqueueReq
	if !decode(w, r, &req) {
		return
	}
	m, err := s.svc.Enqueue(r.Context(), req.QueueID, req.Ref, flow.EnqueueOptions{
		Priority:              req.Priority,
		EstimatedProcessingMs: req.EstimatedProcessingMs,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

type dequeueReq struct {
	Ref             flow.Ref `json:"ref"`
	IncludeChildren bool     `json:"includeChildren"`
}

func (s *Server) handleDequeue(w http.ResponseWriter, r *http.Request) {
	var req dequeueReq
	if !decode(w, r, &req) {
		return
	}
	n, err := s.svc.Dequeue(r.Context(), req.Ref, req.IncludeChildren)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": n})
}

type moveReq struct {
	Ref           flow.Ref `json:"ref"`
	TargetQueueID string   `json:"targetQueueId"`
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req moveReq
	if !decode(w, r, &req) {
		return
	}
	m, err := s.svc.Move(r.Context(), req.Ref, req.TargetQueueID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"membership": m})
}

type bulkMoveReq struct {
	Refs          []flow.Ref `json:"refs"`
	TargetQueueID string     `json:"targetQueueId"`
}

func (s *Server) handleBulkMove(w http.ResponseWriter, r *http.Request) {
	var req bulkMoveReq
	if !decode(w, r, &req) {
		return
	}
	out, err := s.svc.BulkMove(r.Context(), req.Refs, req.TargetQueueID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"memberships": out})
}

type reorderReq struct {
	QueueID string     `json:"queueId"`
	Refs    []flow.Ref `json:"refs"`
}

func (s *Server) handleReorder(w http.ResponseWriter, r *http.Request) {
	var req reorderReq
	if !decode(w, r, &req) {
		return
	}
	out, err := s.svc.Reorder(r.Context(), req.QueueID, req.Refs)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"memberships": out})
}

type claimNextReq struct {
	QueueID string `json:"queueId"`
	AgentID string `json:"agentId"`
}

func (s *Server) handleClaimNext(w http.ResponseWriter, r *http.Request) {
	var req claimNextReq
	if !decode(w, r, &req) {
		return
	}
	m, err := s.svc.ClaimNext(r.Context(), req.QueueID, req.AgentID)
	if err != nil {
		writeErr(w, err)
		return
	}
	// m is null when nothing is eligible; polling agents treat that as
	// "nothing to do".
	writeJSON(w, http.StatusOK, map[string]any{"membership": m})
}

type claimReq struct {
	Ref     flow.Ref `json:"ref"`
	AgentID string   `json:"agentId"`
}

func (s *Server) handleClaimSpecific(w http.ResponseWriter, r *http.Request) {
	var req claimReq
	if !decode(w, r, &req) {
		return
	}
	m, err := s.svc.ClaimSpecific(r.Context(), req.Ref, req.AgentID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"membership": m})
}

type completeReq struct {
	Ref    flow.Ref `json:"ref"`
	Result string   `json:"result"`
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	var req completeReq
	if !decode(w, r, &req) {
		return
	}
	m, err := s.svc.Complete(r.Context(), req.Ref, req.Result)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

type failReq struct {
	Ref          flow.Ref `json:"ref"`
	ErrorMessage string   `json:"errorMessage"`
}

func (s *Server) handleFail(w http.ResponseWriter, r *http.Request) {
	var req failReq
	if !decode(w, r, &req) {
		return
	}
	m, err := s.svc.Fail(r.Context(), req.Ref, req.ErrorMessage)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleRetryAdvice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	advice, err := s.svc.RetryAdvice(refFromQuery(r))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, advice)
}

func (s *Server) handleMembership(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	live, hist, err := s.svc.Membership(refFromQuery(r))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"membership": live, "history": hist})
}

func (s *Server) handleMembers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	members, err := s.svc.ListMembers(q.Get("queueId"), q.Get("filter"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"members": members})
}

func (s *Server) handleUnqueued(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	refs, err := s.svc.ListUnqueued(r.URL.Query().Get("project"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"refs": refs})
}

func (s *Server) handleQueueStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	stats, err := s.svc.QueueStats(r.URL.Query().Get("queueId"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleProjectStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	stats, err := s.svc.ProjectStats(r.URL.Query().Get("project"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	events, err := s.svc.Events(q.Get("project"), limit)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

type eventsTrimReq struct {
	Project  string `json:"project"`
	KeepLast int    `json:"keepLast"`
}

func (s *Server) handleEventsTrim(w http.ResponseWriter, r *http.Request) {
	var req eventsTrimReq
	if !decode(w, r, &req) {
		return
	}
	deleted, err := s.svc.TrimEvents(r.Context(), req.Project, req.KeepLast)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}
