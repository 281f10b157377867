package pose_test

import (
	"errors"
	"math"
	"testing"

	"github.com/okian/poseparty/internal/domain/pose"
	. "github.com/smartystreets/goconvey/convey"
)

// standing is a simple upright figure in pixel coordinates.
func standing() pose.Pose {
	kps := []pose.Keypoint{
		{Name: pose.Nose, X: 320, Y: 80, Confidence: 0.99},
		{Name: pose.LeftEye, X: 330, Y: 70, Confidence: 0.98},
		{Name: pose.RightEye, X: 310, Y: 70, Confidence: 0.98},
		{Name: pose.LeftEar, X: 340, Y: 75, Confidence: 0.9},
		{Name: pose.RightEar, X: 300, Y: 75, Confidence: 0.9},
		{Name: pose.LeftShoulder, X: 360, Y: 140, Confidence: 0.97},
		{Name: pose.RightShoulder, X: 280, Y: 140, Confidence: 0.97},
		{Name: pose.LeftElbow, X: 370, Y: 200, Confidence: 0.95},
		{Name: pose.RightElbow, X: 270, Y: 200, Confidence: 0.95},
		{Name: pose.LeftWrist, X: 375, Y: 260, Confidence: 0.9},
		{Name: pose.RightWrist, X: 265, Y: 260, Confidence: 0.9},
		{Name: pose.LeftHip, X: 345, Y: 260, Confidence: 0.96},
		{Name: pose.RightHip, X: 295, Y: 260, Confidence: 0.96},
		{Name: pose.LeftKnee, X: 345, Y: 350, Confidence: 0.93},
		{Name: pose.RightKnee, X: 295, Y: 350, Confidence: 0.93},
		{Name: pose.LeftAnkle, X: 345, Y: 440, Confidence: 0.9},
		{Name: pose.RightAnkle, X: 295, Y: 440, Confidence: 0.9},
	}
	p, err := pose.FromKeypoints(kps)
	if err != nil {
		panic(err)
	}
	return p
}

func transform(p pose.Pose, dx, dy, scale float64) pose.Pose {
	out := make(pose.Pose, len(p))
	for name, kp := range p {
		kp.X = kp.X*scale + dx
		kp.Y = kp.Y*scale + dy
		out[name] = kp
	}
	return out
}

func TestFromKeypoints(t *testing.T) {
	Convey("Given raw keypoints", t, func() {
		Convey("When names are unique", func() {
			p, err := pose.FromKeypoints([]pose.Keypoint{
				{Name: " nose ", X: 1, Y: 2, Confidence: 0.9},
				{Name: "leftEye", X: 3, Y: 4, Confidence: 0.8},
			})

			Convey("Then the pose is keyed by trimmed name", func() {
				So(err, ShouldBeNil)
				So(p, ShouldHaveLength, 2)
				So(p["nose"].X, ShouldEqual, 1)
				So(p.Keypoints()[0].Name, ShouldEqual, "nose")
			})
		})

		Convey("When a name repeats", func() {
			_, err := pose.FromKeypoints([]pose.Keypoint{{Name: "nose"}, {Name: "nose"}})
			So(errors.Is(err, pose.ErrInvalidPose), ShouldBeTrue)
		})

		Convey("When a name is empty", func() {
			_, err := pose.FromKeypoints([]pose.Keypoint{{Name: "  "}})
			So(errors.Is(err, pose.ErrInvalidPose), ShouldBeTrue)
		})
	})
}

func TestNormalize(t *testing.T) {
	Convey("Given a default normalizer", t, func() {
		n := pose.NewNormalizer()
		So(n.MinConfidence(), ShouldEqual, pose.DefaultMinConfidence)
		So(n.MinKeypoints(), ShouldEqual, pose.DefaultMinKeypoints)

		Convey("When a full pose is normalized", func() {
			out, err := n.Normalize(standing())
			So(err, ShouldBeNil)

			Convey("Then the hip midpoint is the origin", func() {
				l, r := out[pose.LeftHip], out[pose.RightHip]
				So((l.X+r.X)/2, ShouldAlmostEqual, 0, 1e-12)
				So((l.Y+r.Y)/2, ShouldAlmostEqual, 0, 1e-12)
			})

			Convey("Then the torso has unit length", func() {
				ls, rs := out[pose.LeftShoulder], out[pose.RightShoulder]
				So(math.Hypot((ls.X+rs.X)/2, (ls.Y+rs.Y)/2), ShouldAlmostEqual, 1, 1e-12)
			})

			Convey("Then confidences are carried through", func() {
				So(out[pose.Nose].Confidence, ShouldEqual, 0.99)
			})
		})

		Convey("When the same pose is shifted and scaled", func() {
			a, err := n.Normalize(standing())
			So(err, ShouldBeNil)
			b, err := n.Normalize(transform(standing(), -150, 75, 0.4))
			So(err, ShouldBeNil)

			Convey("Then the normalized landmarks match", func() {
				So(b, ShouldHaveLength, len(a))
				for name, la := range a {
					So(b[name].X, ShouldAlmostEqual, la.X, 1e-9)
					So(b[name].Y, ShouldAlmostEqual, la.Y, 1e-9)
				}
			})
		})

		Convey("When normalizing twice", func() {
			a, _ := n.Normalize(standing())
			b, _ := n.Normalize(standing())
			So(a, ShouldResemble, b)
		})

		Convey("When too few keypoints are confident", func() {
			p := standing()
			for _, name := range []string{pose.Nose, pose.LeftEye, pose.RightEye, pose.LeftEar, pose.RightEar,
				pose.LeftWrist, pose.RightWrist, pose.LeftAnkle, pose.RightAnkle} {
				kp := p[name]
				kp.Confidence = 0.2
				p[name] = kp
			}
			_, err := n.Normalize(p)
			So(errors.Is(err, pose.ErrInsufficientKeypoints), ShouldBeTrue)
		})

		Convey("When a keypoint sits exactly on the confidence threshold", func() {
			strict := pose.NewNormalizer(pose.WithMinKeypoints(17))
			p := standing()
			kp := p[pose.Nose]
			kp.Confidence = pose.DefaultMinConfidence
			p[pose.Nose] = kp
			_, err := strict.Normalize(p)
			So(err, ShouldBeNil)
		})

		Convey("When coordinates are not finite", func() {
			strict := pose.NewNormalizer(pose.WithMinKeypoints(17))
			p := standing()
			kp := p[pose.Nose]
			kp.X = math.NaN()
			p[pose.Nose] = kp
			_, err := strict.Normalize(p)
			So(errors.Is(err, pose.ErrInsufficientKeypoints), ShouldBeTrue)
		})

		Convey("When every keypoint is at the same place", func() {
			p := standing()
			for name, kp := range p {
				kp.X, kp.Y = 100, 100
				p[name] = kp
			}
			_, err := n.Normalize(p)
			So(errors.Is(err, pose.ErrInsufficientKeypoints), ShouldBeTrue)
		})

		Convey("When the hips are missing", func() {
			p := standing()
			delete(p, pose.LeftHip)
			delete(p, pose.RightHip)
			out, err := n.Normalize(p)
			So(err, ShouldBeNil)

			Convey("Then the shoulders anchor and scale the pose", func() {
				ls, rs := out[pose.LeftShoulder], out[pose.RightShoulder]
				So((ls.X+rs.X)/2, ShouldAlmostEqual, 0, 1e-12)
				So(math.Hypot(ls.X-rs.X, ls.Y-rs.Y), ShouldAlmostEqual, 1, 1e-12)
			})
		})

		Convey("When neither hips nor shoulders are present", func() {
			p := standing()
			for _, name := range []string{pose.LeftHip, pose.RightHip, pose.LeftShoulder, pose.RightShoulder} {
				delete(p, name)
			}
			out, err := n.Normalize(p)
			So(err, ShouldBeNil)

			Convey("Then the centroid is the origin", func() {
				var sx, sy float64
				for _, l := range out {
					sx += l.X
					sy += l.Y
				}
				So(sx/float64(len(out)), ShouldAlmostEqual, 0, 1e-9)
				So(sy/float64(len(out)), ShouldAlmostEqual, 0, 1e-9)
			})
		})
	})
}
