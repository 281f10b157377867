package session_test

import (
	"errors"
	"testing"

	"github.com/okian/poseparty/internal/domain/engine"
	"github.com/okian/poseparty/internal/domain/model"
	"github.com/okian/poseparty/internal/domain/pose"
	"github.com/okian/poseparty/internal/domain/pose/posetest"
	"github.com/okian/poseparty/internal/domain/session"
	"github.com/okian/poseparty/internal/domain/tier"
	. "github.com/smartystreets/goconvey/convey"
)

func newSession() *session.Session {
	eng, err := engine.New(engine.DefaultConfig())
	if err != nil {
		panic(err)
	}
	if err := eng.SelectReference("standing", posetest.Standing()); err != nil {
		panic(err)
	}
	return session.New("s-1", eng)
}

func frame(id string, p pose.Pose) model.Event {
	return model.Event{ID: id, SessionID: "s-1", Kind: model.KindPose, Pose: p}
}

func TestSessionApply(t *testing.T) {
	Convey("Given a live session", t, func() {
		s := newSession()
		So(s.ID(), ShouldEqual, "s-1")
		So(s.CreatedAt().IsZero(), ShouldBeFalse)
		So(s.Seq(), ShouldEqual, 0)

		Convey("When a matching frame is applied", func() {
			u, err := s.Apply(frame("f-1", posetest.Standing()))

			Convey("Then the update carries the new snapshot", func() {
				So(err, ShouldBeNil)
				So(u.Seq, ShouldEqual, 1)
				So(u.EventID, ShouldEqual, "f-1")
				So(u.Kind, ShouldEqual, model.KindPose)
				So(u.Snapshot.Tier, ShouldEqual, tier.Excellent)
				So(s.Snapshot(), ShouldResemble, u.Snapshot)
			})
		})

		Convey("When a frame is skipped", func() {
			u, err := s.Apply(frame("f-1", posetest.Sparse(posetest.Standing(), 3)))

			Convey("Then the error is returned and carried on the update", func() {
				So(errors.Is(err, pose.ErrInsufficientKeypoints), ShouldBeTrue)
				So(errors.Is(u.Err, pose.ErrInsufficientKeypoints), ShouldBeTrue)
				So(u.Snapshot.Skipped, ShouldEqual, 1)
				So(s.Seq(), ShouldEqual, 1)
			})
		})

		Convey("When a reference event is applied", func() {
			_, _ = s.Apply(frame("f-1", posetest.Standing()))
			u, err := s.Apply(model.Event{
				SessionID:   "s-1",
				Kind:        model.KindReference,
				ReferenceID: "sideways",
				Pose:        posetest.Sideways(posetest.Standing()),
			})

			Convey("Then the session restarts on the new reference", func() {
				So(err, ShouldBeNil)
				So(u.Snapshot.ReferenceID, ShouldEqual, "sideways")
				So(u.Snapshot.State.TotalFrames, ShouldEqual, 0)
				So(u.Snapshot.Ready, ShouldBeFalse)
			})
		})

		Convey("When the session is closed", func() {
			s.Close()
			_, err := s.Apply(frame("f-1", posetest.Standing()))
			So(errors.Is(err, session.ErrClosed), ShouldBeTrue)
		})
	})
}

func TestSessionSubscribe(t *testing.T) {
	Convey("Given a session with an observer", t, func() {
		s := newSession()
		updates, cancel := s.Subscribe(4)
		So(s.Subscribers(), ShouldEqual, 1)

		Convey("When frames are applied", func() {
			_, _ = s.Apply(frame("f-1", posetest.Standing()))
			_, _ = s.Apply(frame("f-2", posetest.Sideways(posetest.Standing())))

			Convey("Then updates arrive in order", func() {
				first := <-updates
				second := <-updates
				So(first.Seq, ShouldEqual, 1)
				So(first.EventID, ShouldEqual, "f-1")
				So(second.Seq, ShouldEqual, 2)
				So(second.Snapshot.Tier, ShouldEqual, tier.Poor)
				So(second.Snapshot.Ready, ShouldBeTrue)
			})
		})

		Convey("When the observer falls behind", func() {
			for i := range 10 {
				_, _ = s.Apply(frame(string(rune('a'+i)), posetest.Standing()))
			}

			Convey("Then extra updates are dropped without blocking", func() {
				So(s.Dropped(), ShouldEqual, 6)
				So(len(updates), ShouldEqual, 4)
				So(s.Seq(), ShouldEqual, 10)
			})
		})

		Convey("When the observer cancels", func() {
			cancel()
			cancel()
			_, ok := <-updates

			Convey("Then its channel is closed and it is detached", func() {
				So(ok, ShouldBeFalse)
				So(s.Subscribers(), ShouldEqual, 0)
			})
		})

		Convey("When the session closes", func() {
			s.Close()
			_, ok := <-updates

			Convey("Then observers are released", func() {
				So(ok, ShouldBeFalse)
				So(s.Subscribers(), ShouldEqual, 0)
				So(cancel, ShouldNotPanic)
			})
		})
	})
}
