// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/okian/poseparty/internal/domain/pose"
)

// Kind distinguishes the events a session processes in order.
type Kind int

const (
	// KindPose carries one observed frame.
	KindPose Kind = iota
	// KindReference switches the session to a new reference pose.
	KindReference
)

func (k Kind) String() string {
	switch k {
	case KindPose:
		return "pose"
	case KindReference:
		return "reference"
	default:
		return "unknown"
	}
}

// Event is the unit of work routed to a session's queue shard.
type Event struct {
	ID          string    // client frame id for idempotency, optional
	SessionID   string    // owning session
	Kind        Kind      // pose or reference switch
	ReferenceID string    // catalog key, set for KindReference
	Pose        pose.Pose // observed frame or resolved reference pose
	ReceivedAt  time.Time // ingest time
}
