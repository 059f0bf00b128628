package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/topboard/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.StoreBackend, convey.ShouldEqual, "memory")
				convey.So(cfg.BoardSize, convey.ShouldEqual, 50)
				convey.So(cfg.Modes, convey.ShouldHaveLength, 5)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("TOPBOARD_ADDR", ":8080")
			_ = os.Setenv("TOPBOARD_STORE_BACKEND", "REST")
			_ = os.Setenv("TOPBOARD_REST_URL", "https://kv.example.com")
			_ = os.Setenv("TOPBOARD_REST_TOKEN", "tok")
			_ = os.Setenv("TOPBOARD_STORE_TIMEOUT_MS", "1500")
			_ = os.Setenv("TOPBOARD_MODES", "grid, flick ,tracking")
			_ = os.Setenv("TOPBOARD_SUBMIT_RATE_PER_SEC", "2.5")
			_ = os.Setenv("TOPBOARD_METRICS_ENABLED", "false")
			_ = os.Setenv("TOPBOARD_METRICS_REFRESH_MS", "2500")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.StoreBackend, convey.ShouldEqual, config.BackendREST)
				convey.So(cfg.RESTURL, convey.ShouldEqual, "https://kv.example.com")
				convey.So(cfg.RESTToken, convey.ShouldEqual, "tok")
				convey.So(cfg.StoreTimeoutMS, convey.ShouldEqual, 1500)
				convey.So(cfg.Modes, convey.ShouldResemble, []string{"grid", "flick", "tracking"})
				convey.So(cfg.SubmitRatePerSec, convey.ShouldEqual, 2.5)
				convey.So(cfg.MetricsEnabled, convey.ShouldBeFalse)
				convey.So(cfg.MetricsRefreshMS, convey.ShouldEqual, 2500)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":9090"
store_backend: redis
redis_addr: "cache:6379"
redis_db: 2
board_size: 10
admin_secret: s3cret
modes:
  - grid
  - flick
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("TOPBOARD_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.StoreBackend, convey.ShouldEqual, config.BackendRedis)
				convey.So(cfg.RedisAddr, convey.ShouldEqual, "cache:6379")
				convey.So(cfg.RedisDB, convey.ShouldEqual, 2)
				convey.So(cfg.BoardSize, convey.ShouldEqual, 10)
				convey.So(cfg.AdminSecret, convey.ShouldEqual, "s3cret")
				convey.So(cfg.Modes, convey.ShouldResemble, []string{"grid", "flick"})
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
addr: ":9090"
board_size: 10
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("TOPBOARD_CONFIG", tmpFile)
			_ = os.Setenv("TOPBOARD_ADDR", ":8080")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")   // Overridden by env
				convey.So(cfg.BoardSize, convey.ShouldEqual, 10)   // From file
				convey.So(cfg.SubmitBurst, convey.ShouldEqual, 40) // From defaults
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("TOPBOARD_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("TOPBOARD_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("TOPBOARD_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("TOPBOARD_BOARD_SIZE", "fifty")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the rest backend lacks a url", func() {
			_ = os.Setenv("TOPBOARD_STORE_BACKEND", "rest")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

// clearConfigEnvVars clears all config-related environment variables.
func clearConfigEnvVars() {
	envVars := []string{
		"TOPBOARD_CONFIG",
		"TOPBOARD_ADDR",
		"TOPBOARD_STORE_BACKEND",
		"TOPBOARD_REST_URL",
		"TOPBOARD_REST_TOKEN",
		"TOPBOARD_STORE_TIMEOUT_MS",
		"TOPBOARD_MODES",
		"TOPBOARD_SUBMIT_RATE_PER_SEC",
		"TOPBOARD_BOARD_SIZE",
		"TOPBOARD_METRICS_ENABLED",
		"TOPBOARD_METRICS_REFRESH_MS",
	}

	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

// createTempConfigFile creates a temporary config file with the given content.
func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "topboard-config-*.yaml")
	if err != nil {
		panic(err)
	}
	defer func() { _ = tmpFile.Close() }()

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
