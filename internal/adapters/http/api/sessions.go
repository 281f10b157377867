package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// maxBodyBytes bounds JSON request bodies other than frames.
const maxBodyBytes = 16 << 10

// handleCreateSession handles POST /sessions. An empty body selects the
// default reference.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeBody(r, maxBodyBytes, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	id, snap, err := s.deps.CreateSession(r.Context(), req.ReferenceID)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	w.Header().Set("Location", "/sessions/"+id)
	writeJSON(w, http.StatusCreated, newSnapshotResponse(id, snap))
}

// handleGetSession handles GET /sessions/{id}.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	snap, err := s.deps.Snapshot(r.Context(), id)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSnapshotResponse(id, snap))
}

// handleDeleteSession handles DELETE /sessions/{id}.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.EndSession(r.Context(), r.PathValue("id")); err != nil {
		writeUpstreamError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSelectReference handles PUT /sessions/{id}/reference.
func (s *Server) handleSelectReference(w http.ResponseWriter, r *http.Request) {
	var req selectReferenceRequest
	if err := decodeBody(r, maxBodyBytes, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if req.ReferenceID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind("select reference", ErrBadRequest))
		return
	}
	if err := s.deps.SelectReference(r.Context(), r.PathValue("id"), req.ReferenceID); err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// decodeBody reads a single JSON object. allowEmpty accepts an empty body.
func decodeBody(r *http.Request, limit int64, v any, allowEmpty bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, limit))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) && allowEmpty {
			return nil
		}
		return WrapKind("decode body", ErrBadRequest, err)
	}
	return nil
}
