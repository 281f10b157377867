// Package session wraps an engine as a live session: it applies queued events
// in order and fans snapshots out to observers.
package session

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/poseparty/internal/domain/engine"
	"github.com/okian/poseparty/internal/domain/model"
)

// ErrClosed is returned when applying events to an ended session.
var ErrClosed = errors.New("session closed")

// Update is pushed to subscribers after each applied event.
type Update struct {
	SessionID string
	Seq       uint64
	EventID   string
	Kind      model.Kind
	Snapshot  engine.Snapshot
	// Err is set when the event was skipped.
	Err error
}

// Session owns one engine. Apply is called by exactly one worker; readers
// only ever see copies.
type Session struct {
	id        string
	createdAt time.Time

	mu     sync.RWMutex
	engine *engine.Engine
	snap   engine.Snapshot
	seq    uint64
	closed bool

	subsMu  sync.Mutex
	subs    map[uint64]chan Update
	nextSub uint64

	dropped atomic.Int64
}

// New creates a session around a configured engine.
func New(id string, eng *engine.Engine) *Session {
	return &Session{
		id:        id,
		createdAt: time.Now(),
		engine:    eng,
		snap:      eng.Snapshot(),
		subs:      make(map[uint64]chan Update),
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// CreatedAt returns when the session was created.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Snapshot returns the latest engine snapshot.
func (s *Session) Snapshot() engine.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Seq returns how many events have been applied.
func (s *Session) Seq() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seq
}

// Dropped counts updates discarded because a subscriber was not keeping up.
func (s *Session) Dropped() int64 { return s.dropped.Load() }

// Apply runs one event through the engine and publishes the result.
// Scoring errors are returned and also carried on the published update.
func (s *Session) Apply(ev model.Event) (Update, error) { //nolint:gocritic // hugeParam: Event is passed by value through queues
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Update{}, ErrClosed
	}

	var (
		snap engine.Snapshot
		err  error
	)
	switch ev.Kind {
	case model.KindPose:
		snap, err = s.engine.OnPose(ev.Pose)
	case model.KindReference:
		err = s.engine.SelectReference(ev.ReferenceID, ev.Pose)
		snap = s.engine.Snapshot()
	default:
		err = fmt.Errorf("unknown event kind %d", ev.Kind)
		snap = s.engine.Snapshot()
	}
	s.seq++
	s.snap = snap
	u := Update{
		SessionID: s.id,
		Seq:       s.seq,
		EventID:   ev.ID,
		Kind:      ev.Kind,
		Snapshot:  snap,
		Err:       err,
	}
	s.mu.Unlock()

	s.publish(u)
	return u, err
}

// Subscribe registers an observer. The returned cancel func must be called
// once the observer is done; the channel is closed by cancel or Close.
func (s *Session) Subscribe(buffer int) (<-chan Update, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Update, buffer)

	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subsMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.subsMu.Lock()
			defer s.subsMu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
	return ch, cancel
}

// Subscribers returns the number of attached observers.
func (s *Session) Subscribers() int {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	return len(s.subs)
}

// Close ends the session and detaches all observers.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}

// publish never blocks the worker; slow observers lose updates.
func (s *Session) publish(u Update) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- u:
		default:
			s.dropped.Add(1)
		}
	}
}
