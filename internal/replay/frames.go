// Package replay drives recorded or synthetic pose frames through the
// scoring engine, either in-process or against a running service.
package replay

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/okian/poseparty/internal/domain/pose"
	"gopkg.in/yaml.v3"
)

// Sentinel errors for this package.
var (
	ErrNoFrames = errors.New("no frames to replay")
)

// Frame is one recorded estimator output.
type Frame struct {
	FrameID   string          `yaml:"frame_id" json:"frame_id"`
	Keypoints []pose.Keypoint `yaml:"keypoints" json:"keypoints"`
}

// Recording is the on-disk frame file format.
type Recording struct {
	Reference string  `yaml:"reference,omitempty"`
	FPS       float64 `yaml:"fps,omitempty"`
	Frames    []Frame `yaml:"frames"`
}

// ReadRecording decodes a YAML (or JSON) frame file.
func ReadRecording(r io.Reader) (*Recording, error) {
	var rec Recording
	if err := yaml.NewDecoder(r).Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode recording: %w", err)
	}
	if len(rec.Frames) == 0 {
		return nil, ErrNoFrames
	}
	return &rec, nil
}

// LoadRecording reads a frame file from disk.
func LoadRecording(path string) (*Recording, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open recording: %w", err)
	}
	defer f.Close()
	return ReadRecording(f)
}

// WriteRecording encodes rec as YAML.
func WriteRecording(w io.Writer, rec *Recording) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(rec); err != nil {
		return fmt.Errorf("encode recording: %w", err)
	}
	return enc.Close()
}
