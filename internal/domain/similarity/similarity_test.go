package similarity_test

import (
	"errors"
	"testing"

	"github.com/okian/poseparty/internal/domain/pose"
	"github.com/okian/poseparty/internal/domain/similarity"
	. "github.com/smartystreets/goconvey/convey"
)

func grid(n int, dx float64, conf float64) pose.Normalized {
	out := make(pose.Normalized, n)
	for i := range n {
		out[pose.Landmarks[i]] = pose.Landmark{X: float64(i) + dx, Y: float64(i % 3), Confidence: conf}
	}
	return out
}

func TestEuclidean(t *testing.T) {
	Convey("Given a default Euclidean scorer", t, func() {
		s := similarity.NewEuclidean()
		So(s.MinShared(), ShouldEqual, similarity.DefaultMinShared)

		Convey("When a pose is compared with itself", func() {
			p := grid(17, 0, 0.9)
			score, err := s.Score(p, p)

			Convey("Then the distance is zero", func() {
				So(err, ShouldBeNil)
				So(float64(score), ShouldEqual, 0)
			})
		})

		Convey("When every landmark is shifted by the same amount", func() {
			score, err := s.Score(grid(17, 0, 0.9), grid(17, 0.5, 0.9))
			So(err, ShouldBeNil)
			So(float64(score), ShouldAlmostEqual, 0.5, 1e-12)
		})

		Convey("When the same inputs are scored twice", func() {
			a, b := grid(17, 0, 0.7), grid(17, 0.3, 0.8)
			first, _ := s.Score(a, b)
			second, _ := s.Score(a, b)
			So(first, ShouldEqual, second)
		})

		Convey("When one pose has extra landmarks", func() {
			ref := grid(17, 0, 0.9)
			obs := grid(8, 0, 0.9)
			score, err := s.Score(ref, obs)

			Convey("Then only shared landmarks count", func() {
				So(err, ShouldBeNil)
				So(float64(score), ShouldEqual, 0)
			})

			Convey("Then swapping the arguments compares the same names", func() {
				rev, err := s.Score(obs, ref)
				So(err, ShouldBeNil)
				So(rev, ShouldEqual, score)
			})
		})

		Convey("When the poses share too few landmarks", func() {
			_, err := s.Score(grid(17, 0, 0.9), grid(4, 0, 0.9))
			So(errors.Is(err, similarity.ErrIncomparablePoses), ShouldBeTrue)
		})

		Convey("When the poses share nothing", func() {
			lenient := similarity.NewEuclidean(similarity.WithMinShared(1))
			a := pose.Normalized{"a": {X: 1}}
			b := pose.Normalized{"b": {X: 1}}
			_, err := lenient.Score(a, b)
			So(errors.Is(err, similarity.ErrIncomparablePoses), ShouldBeTrue)
		})

		Convey("When landmark confidences differ", func() {
			ref := pose.Normalized{}
			obs := pose.Normalized{}
			for i, name := range pose.Landmarks[:6] {
				ref[name] = pose.Landmark{X: 0, Y: 0, Confidence: 1}
				conf := 1.0
				x := 0.0
				if i == 0 {
					conf, x = 0.1, 1
				}
				obs[name] = pose.Landmark{X: x, Y: 0, Confidence: conf}
			}

			Convey("Then low-confidence landmarks count for less", func() {
				weighted, err := s.Score(ref, obs)
				So(err, ShouldBeNil)
				So(float64(weighted), ShouldAlmostEqual, 0.1/5.1, 1e-12)
			})

			Convey("Then weighting can be disabled", func() {
				plain := similarity.NewEuclidean(similarity.WithConfidenceWeighting(false))
				score, err := plain.Score(ref, obs)
				So(err, ShouldBeNil)
				So(float64(score), ShouldAlmostEqual, 1.0/6, 1e-12)
			})
		})
	})
}
