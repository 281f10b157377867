package api

import "net/http"

// handleListReferences handles GET /references.
func (s *Server) handleListReferences(w http.ResponseWriter, r *http.Request) {
	refs := s.deps.References(r.Context())
	if refs == nil {
		refs = []string{}
	}
	writeJSON(w, http.StatusOK, referencesResponse{References: refs})
}
