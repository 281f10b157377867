package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/poseparty/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

var configEnvVars = []string{
	"POSE_CONFIG",
	"POSE_ADDR",
	"POSE_QUEUE_SIZE",
	"POSE_SHARD_COUNT",
	"POSE_DEDUPE_SIZE",
	"POSE_LOG_FORMAT",
	"POSE_EXCELLENT_MAX",
	"POSE_CREDIT_GOOD",
	"POSE_MIN_KEYPOINTS",
	"POSE_DEFAULT_REFERENCE",
}

func clearConfigEnvVars() {
	for _, k := range configEnvVars {
		_ = os.Unsetenv(k)
	}
}

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pose.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		convey.Reset(clearConfigEnvVars)

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldResemble, config.New())
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("POSE_ADDR", ":8080")
			_ = os.Setenv("POSE_QUEUE_SIZE", "512")
			_ = os.Setenv("POSE_SHARD_COUNT", "3")
			_ = os.Setenv("POSE_EXCELLENT_MAX", "0.2")
			_ = os.Setenv("POSE_CREDIT_GOOD", "0.5")
			_ = os.Setenv("POSE_LOG_FORMAT", "json")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 512)
				convey.So(cfg.ShardCount, convey.ShouldEqual, 3)
				convey.So(cfg.ExcellentMax, convey.ShouldEqual, 0.2)
				convey.So(cfg.CreditGood, convey.ShouldEqual, 0.5)
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			path := writeConfigFile(t, `
# local tuning
addr: ":7000"
dedupe_size: 10
default_reference: vrksasana.png
good_max: 0.5
min_shared_keypoints: 6
`)
			_ = os.Setenv("POSE_CONFIG", path)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file and keep other defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7000")
				convey.So(cfg.DedupeSize, convey.ShouldEqual, 10)
				convey.So(cfg.DefaultReference, convey.ShouldEqual, "vrksasana.png")
				convey.So(cfg.GoodMax, convey.ShouldEqual, 0.5)
				convey.So(cfg.MinSharedKeypoints, convey.ShouldEqual, 6)
				convey.So(cfg.QueueSize, convey.ShouldEqual, config.New().QueueSize)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			path := writeConfigFile(t, "addr: \":7000\"\nmin_keypoints: 8\n")
			_ = os.Setenv("POSE_CONFIG", path)
			_ = os.Setenv("POSE_ADDR", ":7001")

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7001")
				convey.So(cfg.MinKeypoints, convey.ShouldEqual, 8)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			path := writeConfigFile(t, "addr: [unterminated\n")
			_ = os.Setenv("POSE_CONFIG", path)

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("POSE_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("POSE_MIN_KEYPOINTS", "many")

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("POSE_ADDR", "")
			path := writeConfigFile(t, "addr: \"\"\n")
			_ = os.Setenv("POSE_CONFIG", path)

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with unordered thresholds", func() {
			_ = os.Setenv("POSE_EXCELLENT_MAX", "0.9")

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}
