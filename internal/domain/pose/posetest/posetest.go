// Package posetest provides pose fixtures for tests.
package posetest

import "github.com/okian/poseparty/internal/domain/pose"

var standing = map[string][2]float64{ //nolint:gochecknoglobals // read-only fixture
	pose.Nose: {320, 80}, pose.LeftEye: {330, 70}, pose.RightEye: {310, 70},
	pose.LeftEar: {340, 75}, pose.RightEar: {300, 75},
	pose.LeftShoulder: {360, 140}, pose.RightShoulder: {280, 140},
	pose.LeftElbow: {370, 200}, pose.RightElbow: {270, 200},
	pose.LeftWrist: {375, 260}, pose.RightWrist: {265, 260},
	pose.LeftHip: {345, 260}, pose.RightHip: {295, 260},
	pose.LeftKnee: {345, 350}, pose.RightKnee: {295, 350},
	pose.LeftAnkle: {345, 440}, pose.RightAnkle: {295, 440},
}

// Standing returns an upright figure with all 17 landmarks at confidence 0.95.
func Standing() pose.Pose {
	p := make(pose.Pose, len(standing))
	for name, c := range standing {
		p[name] = pose.Keypoint{Name: name, X: c[0], Y: c[1], Confidence: 0.95}
	}
	return p
}

// Sideways swaps the axes of p, which scores Poor against p.
func Sideways(p pose.Pose) pose.Pose {
	out := make(pose.Pose, len(p))
	for name, kp := range p {
		kp.X, kp.Y = kp.Y, kp.X
		out[name] = kp
	}
	return out
}

// Sparse keeps the first n PoseNet landmarks of p.
func Sparse(p pose.Pose, n int) pose.Pose {
	out := make(pose.Pose, n)
	for _, name := range pose.Landmarks[:n] {
		if kp, ok := p[name]; ok {
			out[name] = kp
		}
	}
	return out
}
