package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/okian/poseparty/internal/adapters/catalog"
	"github.com/okian/poseparty/internal/adapters/mq/queue"
	"github.com/okian/poseparty/internal/adapters/repository"
	"github.com/okian/poseparty/internal/domain/pose"
	. "github.com/smartystreets/goconvey/convey"
)

func TestStatusFor(t *testing.T) {
	Convey("Given upstream errors", t, func() {
		cases := []struct {
			err    error
			status int
			code   string
		}{
			{fmt.Errorf("get: %w", repository.ErrNotFound), http.StatusNotFound, "session_not_found"},
			{catalog.ErrNotFound, http.StatusNotFound, "reference_not_found"},
			{queue.ErrFull, http.StatusTooManyRequests, "backpressure"},
			{NewKind("submit", ErrBackpressure), http.StatusTooManyRequests, "backpressure"},
			{WrapKind("decode body", ErrBadRequest, errors.New("eof")), http.StatusBadRequest, "bad_request"},
			{pose.ErrInvalidPose, http.StatusBadRequest, "bad_request"},
			{fmt.Errorf("reference %q: %w", "x", pose.ErrInsufficientKeypoints), http.StatusUnprocessableEntity, "invalid_reference"},
			{queue.ErrClosed, http.StatusServiceUnavailable, "shutting_down"},
			{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
		}

		Convey("Then each maps to its status and code", func() {
			for _, tc := range cases {
				status, code := statusFor(tc.err)
				So(status, ShouldEqual, tc.status)
				So(code, ShouldEqual, tc.code)
			}
		})
	})

	Convey("Given a kinded error", t, func() {
		err := WrapKind("decode body", ErrBadRequest, errors.New("unexpected EOF"))

		Convey("Then it matches both the kind and the cause", func() {
			So(errors.Is(err, ErrBadRequest), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "decode body: bad request: unexpected EOF")
			So(NewKind("select reference", ErrBadRequest).Error(), ShouldEqual, "select reference: bad request")
		})
	})
}

func TestFrameRequestToPose(t *testing.T) {
	Convey("Given frame payloads", t, func() {
		Convey("When both keypoint shapes are mixed", func() {
			req := frameRequest{Keypoints: []keypointRequest{
				{Name: "nose", X: 1, Y: 2, Score: 0.9},
				{Part: "leftEye", Position: &position{X: 3, Y: 4}, Score: 0.8},
			}}
			p, err := req.toPose(64)

			Convey("Then both are accepted", func() {
				So(err, ShouldBeNil)
				So(p["nose"], ShouldResemble, pose.Keypoint{Name: "nose", X: 1, Y: 2, Confidence: 0.9})
				So(p["leftEye"], ShouldResemble, pose.Keypoint{Name: "leftEye", X: 3, Y: 4, Confidence: 0.8})
			})
		})

		Convey("When the payload is malformed", func() {
			empty := frameRequest{}
			tooMany := frameRequest{Keypoints: make([]keypointRequest, 3)}
			badScore := frameRequest{Keypoints: []keypointRequest{{Name: "nose", Score: 1.5}}}
			dup := frameRequest{Keypoints: []keypointRequest{{Name: "nose"}, {Part: "nose"}}}

			Convey("Then it is rejected as a bad request", func() {
				for _, req := range []frameRequest{empty, tooMany, badScore, dup} {
					_, err := req.toPose(2)
					status, _ := statusFor(err)
					So(status, ShouldEqual, http.StatusBadRequest)
				}
			})
		})
	})
}
