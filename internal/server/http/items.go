package httpserver

import "net/http"

type ticketCreateReq struct {
	Project  string `json:"project"`
	Title    string `json:"title"`
	Overview string `json:"overview"`
}

func (s *Server) handleTicketCreate(w http.ResponseWriter, r *http.Request) {
	var req ticketCreateReq
	if !decode(w, r, &req) {
		return
	}
	t, err := s.svc.CreateTicket(r.Context(), req.Project, req.Title, req.Overview)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleTicketGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	t, err := s.svc.GetTicket(r.URL.Query().Get("id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type idReq struct {
	ID string `json:"id"`
}

func (s *Server) handleTicketDelete(w http.ResponseWriter, r *http.Request) {
	var req idReq
	if !decode(w, r, &req) {
		return
	}
	if err := s.svc.DeleteTicket(r.Context(), req.ID); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type taskCreateReq struct {
	TicketID string `json:"ticketId"`
	Title    string `json:"title"`
}

func (s *Server) handleTaskCreate(w http.ResponseWriter, r *http.Request) {
	var req taskCreateReq
	if !decode(w, r, &req) {
		return
	}
	t, err := s.svc.CreateTask(r.Context(), req.TicketID, req.Title)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleTaskGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	t, err := s.svc.GetTask(r.URL.Query().Get("id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type taskDoneReq struct {
	TaskID string `json:"taskId"`
	Done   bool   `json:"done"`
}

func (s *Server) handleTaskDone(w http.ResponseWriter, r *http.Request) {
	var req taskDoneReq
	if !decode(w, r, &req) {
		return
	}
	t, err := s.svc.SetTaskDone(r.Context(), req.TaskID, req.Done)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleTaskDelete(w http.ResponseWriter, r *http.Request) {
	var req idReq
	if !decode(w, r, &req) {
		return
	}
	if err := s.svc.DeleteTask(r.Context(), req.ID); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
