package replay_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/poseparty/internal/adapters/catalog"
	"github.com/okian/poseparty/internal/adapters/http/api"
	service "github.com/okian/poseparty/internal/app"
	"github.com/okian/poseparty/internal/domain/engine"
	"github.com/okian/poseparty/internal/domain/pose"
	"github.com/okian/poseparty/internal/domain/pose/posetest"
	"github.com/okian/poseparty/internal/replay"
	"github.com/okian/poseparty/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestRecording(t *testing.T) {
	Convey("Given a recording", t, func() {
		rec := &replay.Recording{
			Reference: "tadasana.png",
			FPS:       15,
			Frames:    replay.Synthesize(posetest.Standing(), replay.SynthOptions{Count: 3, Jitter: 0.01, Seed: 7}),
		}

		Convey("When it is written and read back", func() {
			var buf bytes.Buffer
			So(replay.WriteRecording(&buf, rec), ShouldBeNil)
			got, err := replay.ReadRecording(&buf)

			Convey("Then the frames survive", func() {
				So(err, ShouldBeNil)
				So(got.Reference, ShouldEqual, "tadasana.png")
				So(got.FPS, ShouldEqual, 15)
				So(got.Frames, ShouldResemble, rec.Frames)
			})
		})
	})

	Convey("Given a JSON frame file without frames", t, func() {
		_, err := replay.ReadRecording(strings.NewReader(`{"reference": "x", "frames": []}`))

		Convey("Then ErrNoFrames is returned", func() {
			So(errors.Is(err, replay.ErrNoFrames), ShouldBeTrue)
		})
	})

	Convey("Given a missing frame file", t, func() {
		_, err := replay.LoadRecording(t.TempDir() + "/missing.yaml")

		Convey("Then loading fails", func() {
			So(err, ShouldNotBeNil)
		})
	})
}

func TestSynthesize(t *testing.T) {
	Convey("Given a reference pose", t, func() {
		ref := posetest.Standing()

		Convey("When synthesizing with the same seed twice", func() {
			opts := replay.SynthOptions{Count: 5, Jitter: 0.02, DropRate: 0.2, Seed: 42}
			a := replay.Synthesize(ref, opts)
			b := replay.Synthesize(ref, opts)

			Convey("Then the keypoints match and frame ids are unique", func() {
				So(len(a), ShouldEqual, 5)
				ids := map[string]bool{}
				for i := range a {
					So(a[i].Keypoints, ShouldResemble, b[i].Keypoints)
					So(len(a[i].Keypoints), ShouldEqual, len(ref))
					ids[a[i].FrameID] = true
					ids[b[i].FrameID] = true
				}
				So(len(ids), ShouldEqual, 10)
			})
		})

		Convey("When synthesizing without jitter", func() {
			frames := replay.Synthesize(ref, replay.SynthOptions{Count: 1})

			Convey("Then the frame is the reference", func() {
				p, err := pose.FromKeypoints(frames[0].Keypoints)
				So(err, ShouldBeNil)
				So(p, ShouldResemble, ref)
			})
		})
	})
}

func TestRunLocal(t *testing.T) {
	Convey("Given an engine on the standing reference", t, func() {
		ctx := context.Background()
		eng, err := engine.New(engine.DefaultConfig())
		So(err, ShouldBeNil)
		So(eng.SelectReference("standing", posetest.Standing()), ShouldBeNil)

		frames := replay.Synthesize(posetest.Standing(), replay.SynthOptions{Count: 2, Seed: 1})
		frames = append(frames,
			replay.Frame{FrameID: "sideways", Keypoints: posetest.Sideways(posetest.Standing()).Keypoints()},
			replay.Frame{FrameID: "sparse", Keypoints: posetest.Sparse(posetest.Standing(), 3).Keypoints()},
			replay.Frame{FrameID: "unnamed", Keypoints: []pose.Keypoint{{X: 1}}},
		)

		Convey("When the frames are replayed", func() {
			var out bytes.Buffer
			sum, err := replay.RunLocal(ctx, eng, frames, replay.Pacer(0), &out)

			Convey("Then the summary tallies tiers and skips", func() {
				So(err, ShouldBeNil)
				So(sum.Frames, ShouldEqual, 5)
				So(sum.Scored, ShouldEqual, 3)
				So(sum.Skipped, ShouldEqual, 2)
				So(sum.Tiers["EXCELLENT"], ShouldEqual, 2)
				So(sum.Tiers["POOR"], ShouldEqual, 1)
				So(sum.HasScore, ShouldBeTrue)
				// (1 + 1 + 0.1) / 3
				So(sum.Percent, ShouldEqual, 70)
				So(sum.Ready, ShouldBeTrue)
				So(out.String(), ShouldContainSubstring, "skipped")
			})

			Convey("Then the written summary lists every tier", func() {
				var buf bytes.Buffer
				replay.WriteSummary(&buf, sum)
				So(buf.String(), ShouldEqual, "frames=5 scored=3 skipped=2 EXCELLENT=2 GOOD=0 OKAY=0 POOR=1 percent=70 ready=true\n")
			})
		})

		Convey("When there is nothing to replay", func() {
			_, err := replay.RunLocal(ctx, eng, nil, replay.Pacer(0), io.Discard)

			Convey("Then ErrNoFrames is returned", func() {
				So(errors.Is(err, replay.ErrNoFrames), ShouldBeTrue)
			})
		})

		Convey("When the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := replay.RunLocal(cctx, eng, frames, replay.Pacer(1), io.Discard)

			Convey("Then the run stops", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestClient(t *testing.T) {
	Convey("Given a running scoring service", t, func() {
		ctx := context.Background()
		svc := service.New(
			service.WithCatalog(catalog.New(map[string]pose.Pose{"standing": posetest.Standing()})),
			service.WithDefaultReference("standing"),
			service.WithShardCount(1),
		)
		So(svc.Start(ctx), ShouldBeNil)
		mux := http.NewServeMux()
		api.NewServer(svc, svc).Register(ctx, mux)
		srv := httptest.NewServer(mux)
		Reset(func() {
			srv.Close()
			svc.Stop(ctx)
		})

		client := replay.NewClient(srv.URL+"/", 2*time.Second, replay.WithIdleWait(200*time.Millisecond))

		Convey("When frames are streamed to a new session", func() {
			id, err := client.CreateSession(ctx, "standing")
			So(err, ShouldBeNil)

			frames := replay.Synthesize(posetest.Standing(), replay.SynthOptions{Count: 4, Seed: 3})
			sum, err := client.Stream(ctx, id, frames, replay.Pacer(0), io.Discard)

			Convey("Then every frame is scored remotely", func() {
				So(err, ShouldBeNil)
				So(sum.Frames, ShouldEqual, 4)
				So(sum.Tiers["EXCELLENT"], ShouldEqual, 4)
				So(sum.Percent, ShouldEqual, 100)
				So(sum.Ready, ShouldBeTrue)
			})

			Convey("Then the session can be ended once", func() {
				So(client.EndSession(ctx, id), ShouldBeNil)
				err := client.EndSession(ctx, id)
				So(errors.Is(err, replay.ErrUnexpectedStatus), ShouldBeTrue)
			})
		})

		Convey("When the reference is unknown", func() {
			_, err := client.CreateSession(ctx, "warrior")

			Convey("Then the status error is returned", func() {
				So(errors.Is(err, replay.ErrUnexpectedStatus), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "404")
			})
		})
	})
}
