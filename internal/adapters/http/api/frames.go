package api

import (
	"net/http"
)

// bytesPerKeypoint is a generous upper bound on one encoded keypoint.
const bytesPerKeypoint = 256

// handlePostFrame handles POST /sessions/{id}/frames. Frames are scored
// asynchronously; results arrive on the session stream.
func (s *Server) handlePostFrame(w http.ResponseWriter, r *http.Request) {
	var req frameRequest
	limit := int64(s.maxFrameKeypoints*bytesPerKeypoint + maxBodyBytes)
	if err := decodeBody(r, limit, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	p, err := req.toPose(s.maxFrameKeypoints)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	dup, err := s.deps.SubmitFrame(r.Context(), r.PathValue("id"), req.FrameID, p)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, frameAck{Status: "accepted", Duplicate: dup})
}
