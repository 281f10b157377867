package api

import (
	"fmt"
	"strings"

	"github.com/okian/poseparty/internal/domain/engine"
	"github.com/okian/poseparty/internal/domain/pose"
	"github.com/okian/poseparty/internal/domain/session"
)

// snapshotResponse is the read-only view returned to clients. Nullable
// fields are null until the session has scored a frame.
type snapshotResponse struct {
	SessionID      string   `json:"session_id"`
	ReferenceID    string   `json:"reference_id"`
	Similarity     *float64 `json:"similarity"`
	Tier           string   `json:"tier,omitempty"`
	Label          string   `json:"label,omitempty"`
	DisplayScore   *int     `json:"display_score"`
	SessionPercent *int     `json:"session_percent"`
	Ready          bool     `json:"ready"`
	TotalFrames    int      `json:"total_frames"`
	CorrectFrames  float64  `json:"correct_frames"`
	SkippedFrames  int      `json:"skipped_frames"`
}

func newSnapshotResponse(sessionID string, s engine.Snapshot) snapshotResponse { //nolint:gocritic // hugeParam: snapshot copied by design
	out := snapshotResponse{
		SessionID:     sessionID,
		ReferenceID:   s.ReferenceID,
		Ready:         s.Ready,
		TotalFrames:   s.State.TotalFrames,
		CorrectFrames: s.State.CorrectFrames,
		SkippedFrames: s.Skipped,
	}
	if s.Scored {
		sim := float64(s.Similarity)
		out.Similarity = &sim
		out.Tier = s.Tier.String()
		out.Label = s.Tier.Label()
	}
	if v, ok := s.DisplayScore(); ok {
		out.DisplayScore = &v
	}
	if v, ok := s.SessionPercent(); ok {
		out.SessionPercent = &v
	}
	return out
}

// updateMessage is pushed over the stream after every processed event.
type updateMessage struct {
	Type    string `json:"type"`
	Seq     uint64 `json:"seq"`
	EventID string `json:"event_id,omitempty"`
	Kind    string `json:"kind"`
	Error   string `json:"error,omitempty"`
	snapshotResponse
}

func newUpdateMessage(u session.Update) updateMessage { //nolint:gocritic // hugeParam: update copied by design
	m := updateMessage{
		Type:             "update",
		Seq:              u.Seq,
		EventID:          u.EventID,
		Kind:             u.Kind.String(),
		snapshotResponse: newSnapshotResponse(u.SessionID, u.Snapshot),
	}
	if u.Err != nil {
		m.Error = u.Err.Error()
	}
	return m
}

type createSessionRequest struct {
	ReferenceID string `json:"reference_id"`
}

type selectReferenceRequest struct {
	ReferenceID string `json:"reference_id"`
}

type position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// keypointRequest accepts both the flat {name,x,y,score} shape and the
// PoseNet {part,position:{x,y},score} shape.
type keypointRequest struct {
	Name     string    `json:"name"`
	Part     string    `json:"part"`
	X        float64   `json:"x"`
	Y        float64   `json:"y"`
	Position *position `json:"position"`
	Score    float64   `json:"score"`
}

type frameRequest struct {
	FrameID   string            `json:"frame_id"`
	Keypoints []keypointRequest `json:"keypoints"`
}

func (f frameRequest) toPose(maxKeypoints int) (pose.Pose, error) {
	if len(f.Keypoints) == 0 {
		return nil, fmt.Errorf("%w: no keypoints", ErrBadRequest)
	}
	if len(f.Keypoints) > maxKeypoints {
		return nil, fmt.Errorf("%w: %d keypoints exceeds limit %d", ErrBadRequest, len(f.Keypoints), maxKeypoints)
	}
	kps := make([]pose.Keypoint, len(f.Keypoints))
	for i, k := range f.Keypoints {
		name := strings.TrimSpace(k.Name)
		if name == "" {
			name = strings.TrimSpace(k.Part)
		}
		x, y := k.X, k.Y
		if k.Position != nil {
			x, y = k.Position.X, k.Position.Y
		}
		if k.Score < 0 || k.Score > 1 {
			return nil, fmt.Errorf("%w: keypoint %q score %.4g not in [0,1]", ErrBadRequest, name, k.Score)
		}
		kps[i] = pose.Keypoint{Name: name, X: x, Y: y, Confidence: k.Score}
	}
	return pose.FromKeypoints(kps)
}

type frameAck struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type referencesResponse struct {
	References []string `json:"references"`
}
