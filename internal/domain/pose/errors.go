package pose

import "errors"

// Sentinel error kinds for this package.
var (
	ErrInvalidPose           = errors.New("invalid pose")
	ErrInsufficientKeypoints = errors.New("insufficient keypoints")
)
