package catalog_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/poseparty/internal/adapters/catalog"
	"github.com/okian/poseparty/internal/domain/engine"
	"github.com/okian/poseparty/internal/domain/pose"
	"github.com/okian/poseparty/internal/domain/tier"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDefaultCatalog(t *testing.T) {
	Convey("Given the embedded catalog", t, func() {
		ctx := context.Background()
		c, err := catalog.Default()
		So(err, ShouldBeNil)

		Convey("Then it lists the bundled moves in order", func() {
			So(c.IDs(ctx), ShouldResemble, []string{"tadasana.png", "virabhadrasana2.png", "vrksasana.png"})
		})

		Convey("Then every move has the full landmark set", func() {
			for _, id := range c.IDs(ctx) {
				p, err := c.Lookup(ctx, id)
				So(err, ShouldBeNil)
				So(p, ShouldHaveLength, len(pose.Landmarks))
			}
		})

		Convey("Then every move is a usable reference", func() {
			eng, err := engine.New(engine.DefaultConfig())
			So(err, ShouldBeNil)
			for _, id := range c.IDs(ctx) {
				p, _ := c.Lookup(ctx, id)
				So(eng.SelectReference(id, p), ShouldBeNil)
				s, err := eng.OnPose(p)
				So(err, ShouldBeNil)
				So(s.Tier, ShouldEqual, tier.Excellent)
			}
		})

		Convey("Then different moves do not score as excellent", func() {
			eng, _ := engine.New(engine.DefaultConfig())
			ref, _ := c.Lookup(ctx, "tadasana.png")
			obs, _ := c.Lookup(ctx, "vrksasana.png")
			So(eng.SelectReference("tadasana.png", ref), ShouldBeNil)
			s, err := eng.OnPose(obs)
			So(err, ShouldBeNil)
			So(s.Tier, ShouldNotEqual, tier.Excellent)
		})

		Convey("When a lookup result is modified", func() {
			p, _ := c.Lookup(ctx, catalog.DefaultMove)
			delete(p, pose.Nose)

			Convey("Then the catalog is unaffected", func() {
				again, _ := c.Lookup(ctx, catalog.DefaultMove)
				So(again, ShouldContainKey, pose.Nose)
			})
		})

		Convey("When the move is unknown", func() {
			_, err := c.Lookup(ctx, "handstand.png")
			So(errors.Is(err, catalog.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestParse(t *testing.T) {
	Convey("Given catalog documents", t, func() {
		ctx := context.Background()

		Convey("When the document is JSON", func() {
			c, err := catalog.Parse([]byte(`{"moves":{"a":[{"name":"nose","x":1,"y":2,"score":0.9}]}}`))
			So(err, ShouldBeNil)
			p, err := c.Lookup(ctx, "a")
			So(err, ShouldBeNil)
			So(p[pose.Nose].Confidence, ShouldEqual, 0.9)
		})

		Convey("When the document has no moves", func() {
			_, err := catalog.Parse([]byte("moves: {}\n"))
			So(errors.Is(err, catalog.ErrInvalid), ShouldBeTrue)
		})

		Convey("When a move repeats a landmark", func() {
			_, err := catalog.Parse([]byte("moves:\n  a:\n    - {name: nose, x: 1, y: 1, score: 1}\n    - {name: nose, x: 2, y: 2, score: 1}\n"))
			So(errors.Is(err, catalog.ErrInvalid), ShouldBeTrue)
			So(errors.Is(err, pose.ErrInvalidPose), ShouldBeTrue)
		})

		Convey("When the document is not YAML", func() {
			_, err := catalog.Parse([]byte("moves: [unclosed"))
			So(errors.Is(err, catalog.ErrInvalid), ShouldBeTrue)
		})

		Convey("When loading from disk", func() {
			path := filepath.Join(t.TempDir(), "moves.yaml")
			So(os.WriteFile(path, []byte("moves:\n  b:\n    - {name: nose, x: 1, y: 1, score: 1}\n"), 0o600), ShouldBeNil)

			c, err := catalog.Load(path)
			So(err, ShouldBeNil)
			So(c.IDs(ctx), ShouldResemble, []string{"b"})

			_, err = catalog.Load(path + ".missing")
			So(err, ShouldNotBeNil)
		})

		Convey("When built from parsed poses", func() {
			c := catalog.New(map[string]pose.Pose{"x": {pose.Nose: {Name: pose.Nose}}})
			So(c.IDs(ctx), ShouldResemble, []string{"x"})
		})
	})
}
