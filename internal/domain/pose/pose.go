// Package pose defines body keypoints and the normalisation that makes two
// poses comparable regardless of where the subject stands in the frame.
package pose

import (
	"fmt"
	"strings"
)

// PoseNet landmark names. Catalog files and estimator output use these keys.
const (
	Nose          = "nose"
	LeftEye       = "leftEye"
	RightEye      = "rightEye"
	LeftEar       = "leftEar"
	RightEar      = "rightEar"
	LeftShoulder  = "leftShoulder"
	RightShoulder = "rightShoulder"
	LeftElbow     = "leftElbow"
	RightElbow    = "rightElbow"
	LeftWrist     = "leftWrist"
	RightWrist    = "rightWrist"
	LeftHip       = "leftHip"
	RightHip      = "rightHip"
	LeftKnee      = "leftKnee"
	RightKnee     = "rightKnee"
	LeftAnkle     = "leftAnkle"
	RightAnkle    = "rightAnkle"
)

// Landmarks lists the full PoseNet landmark set in estimator order.
var Landmarks = []string{ //nolint:gochecknoglobals // read-only landmark table
	Nose, LeftEye, RightEye, LeftEar, RightEar,
	LeftShoulder, RightShoulder, LeftElbow, RightElbow, LeftWrist, RightWrist,
	LeftHip, RightHip, LeftKnee, RightKnee, LeftAnkle, RightAnkle,
}

// Keypoint is a single tracked landmark.
type Keypoint struct {
	Name       string  `json:"name" yaml:"name"`
	X          float64 `json:"x" yaml:"x"`
	Y          float64 `json:"y" yaml:"y"`
	Confidence float64 `json:"score" yaml:"score"`
}

// Pose maps landmark name to keypoint for one observation instant.
type Pose map[string]Keypoint

// FromKeypoints builds a Pose, rejecting unnamed and repeated landmarks.
func FromKeypoints(kps []Keypoint) (Pose, error) {
	p := make(Pose, len(kps))
	for i, kp := range kps {
		name := strings.TrimSpace(kp.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: keypoint %d has no name", ErrInvalidPose, i)
		}
		if _, dup := p[name]; dup {
			return nil, fmt.Errorf("%w: duplicate keypoint %q", ErrInvalidPose, name)
		}
		kp.Name = name
		p[name] = kp
	}
	return p, nil
}

// Keypoints returns the pose as a slice ordered by the PoseNet landmark table,
// followed by any custom names in map order.
func (p Pose) Keypoints() []Keypoint {
	out := make([]Keypoint, 0, len(p))
	known := make(map[string]struct{}, len(Landmarks))
	for _, name := range Landmarks {
		known[name] = struct{}{}
		if kp, ok := p[name]; ok {
			out = append(out, kp)
		}
	}
	for name, kp := range p {
		if _, ok := known[name]; !ok {
			out = append(out, kp)
		}
	}
	return out
}
