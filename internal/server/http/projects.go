package httpserver

import "net/http"

type projectEnsureReq struct {
	Name string `json:"name"`
}

func (s *Server) handleProjectEnsure(w http.ResponseWriter, r *http.Request) {
	var req projectEnsureReq
	if !decode(w, r, &req) {
		return
	}
	meta, err := s.svc.EnsureProject(req.Name)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

func (s *Server) handleProjectList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	metas, err := s.svc.ListProjects()
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": metas})
}
