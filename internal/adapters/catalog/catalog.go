// Package catalog resolves reference poses by move identifier.
package catalog

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/okian/poseparty/internal/domain/pose"
	"gopkg.in/yaml.v3"
)

// Sentinel errors for this package.
var (
	ErrNotFound = errors.New("reference pose not found")
	ErrInvalid  = errors.New("invalid catalog")
)

// DefaultMove is the reference selected when none is given.
const DefaultMove = "tadasana.png"

//go:embed data/moves.yaml
var defaultMoves []byte

// Catalog supplies target poses by identifier.
type Catalog interface {
	Lookup(ctx context.Context, id string) (pose.Pose, error)
	IDs(ctx context.Context) []string
}

// InMemory is a read-only Catalog built once at startup.
type InMemory struct {
	poses map[string]pose.Pose
}

// file is the on-disk layout. JSON works too since it is valid YAML.
type file struct {
	Moves map[string][]pose.Keypoint `yaml:"moves"`
}

// New builds a catalog from already parsed poses.
func New(poses map[string]pose.Pose) *InMemory {
	return &InMemory{poses: maps.Clone(poses)}
}

// Parse decodes a YAML or JSON catalog document.
func Parse(data []byte) (*InMemory, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if len(f.Moves) == 0 {
		return nil, fmt.Errorf("%w: no moves defined", ErrInvalid)
	}
	poses := make(map[string]pose.Pose, len(f.Moves))
	for id, kps := range f.Moves {
		p, err := pose.FromKeypoints(kps)
		if err != nil {
			return nil, fmt.Errorf("%w: move %q: %w", ErrInvalid, id, err)
		}
		poses[id] = p
	}
	return &InMemory{poses: poses}, nil
}

// Load reads a catalog file from disk.
func Load(path string) (*InMemory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Default returns the catalog bundled with the binary.
func Default() (*InMemory, error) {
	return Parse(defaultMoves)
}

// Lookup returns a copy of the pose registered under id.
func (c *InMemory) Lookup(_ context.Context, id string) (pose.Pose, error) {
	p, ok := c.poses[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return maps.Clone(p), nil
}

// IDs lists the move identifiers in sorted order.
func (c *InMemory) IDs(_ context.Context) []string {
	return slices.Sorted(maps.Keys(c.poses))
}
