package loadgen

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/topboard/internal/adapters/http/api"
	"github.com/okian/topboard/internal/adapters/repository"
	"github.com/okian/topboard/internal/domain/ranking"
	"github.com/okian/topboard/pkg/logger"
)

const testSecret = "s3cret"

func TestMain(m *testing.M) {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// newService serves the real API over an in-memory store.
func newService(t *testing.T, boardSize int, opts ...api.Option) *httptest.Server {
	t.Helper()
	store := repository.NewTreapStore(context.Background(), repository.WithMetricsUpdateInterval(time.Hour))
	engine := ranking.NewEngine(store, ranking.WithBoardSize(boardSize), ranking.WithModes([]string{"grid", "flick"}))
	opts = append([]api.Option{api.WithAdminSecret(testSecret)}, opts...)
	mux := http.NewServeMux()
	api.NewServer(engine, statsFunc(func() map[string]interface{} { return nil }), opts...).
		Register(context.Background(), mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		_ = store.Close()
	})
	return srv
}

type statsFunc func() map[string]interface{}

func (f statsFunc) GetStats() map[string]interface{} { return f() }

func testConfig(baseURL string) *Config {
	return &Config{
		BaseURL:     baseURL,
		Players:     30,
		Submissions: 300,
		Modes:       []string{"grid", "flick"},
		BoardSize:   10,
		Workers:     4,
		Timeout:     5 * time.Second,
		AdminSecret: testSecret,
		Reset:       true,
	}
}

func TestGenerate(t *testing.T) {
	Convey("Given a generator configuration", t, func() {
		cfg := testConfig("http://unused")

		Convey("When submissions are generated", func() {
			subs := Generate(cfg)

			Convey("Then the count and spread should match the configuration", func() {
				So(subs, ShouldHaveLength, cfg.Submissions)
				names := map[string]bool{}
				for _, s := range subs {
					names[s.Name] = true
					So(cfg.Modes, ShouldContain, s.Mode)
					So(s.Efficiency, ShouldBeBetweenOrEqual, casualMin, eliteMin+eliteRange)
					So(s.Score, ShouldBeGreaterThanOrEqualTo, s.Efficiency)
					So(s.Accuracy, ShouldEndWith, "%")
				}
				So(names, ShouldHaveLength, cfg.Players)
			})
		})
	})
}

func TestExpectedBests(t *testing.T) {
	Convey("Given submissions for the same player", t, func() {
		subs := []Submission{
			{Mode: "grid", Name: "a", Efficiency: 10},
			{Mode: "grid", Name: "a", Efficiency: 30},
			{Mode: "grid", Name: "a", Efficiency: 20},
			{Mode: "flick", Name: "a", Efficiency: 5},
		}

		Convey("Then the best per mode should be kept", func() {
			best := ExpectedBests(subs)
			So(best["grid"]["a"], ShouldEqual, 30)
			So(best["flick"]["a"], ShouldEqual, 5)
		})
	})
}

func TestVerifyBoard(t *testing.T) {
	Convey("Given a well-formed board", t, func() {
		rows := []Row{
			{Rank: 1, Name: "a", Efficiency: 30},
			{Rank: 2, Name: "b", Efficiency: 20},
			{Rank: 3, Name: "c", Efficiency: 20},
		}

		Convey("Then no violations should be reported", func() {
			So(VerifyBoard("grid", rows, 3, nil), ShouldBeEmpty)
			So(VerifyBoard("grid", rows, 3, map[string]int64{"a": 30, "b": 20, "c": 20, "d": 1}), ShouldBeEmpty)
		})

		Convey("Then an oversized board should be reported", func() {
			So(VerifyBoard("grid", rows, 2, nil), ShouldNotBeEmpty)
		})

		Convey("Then a missing top score should be reported", func() {
			v := VerifyBoard("grid", rows, 3, map[string]int64{"a": 30, "b": 20, "c": 20, "d": 25})
			So(v, ShouldNotBeEmpty)
		})

		Convey("Then a stale best should be reported", func() {
			v := VerifyBoard("grid", rows, 3, map[string]int64{"a": 40, "b": 20, "c": 20})
			So(strings.Join(v, "\n"), ShouldContainSubstring, "best was 40")
		})
	})

	Convey("Given a malformed board", t, func() {
		rows := []Row{
			{Rank: 1, Name: "a", Efficiency: 10},
			{Rank: 3, Name: "a", Efficiency: 20},
		}

		Convey("Then ordering, rank and duplicate problems should all be reported", func() {
			v := strings.Join(VerifyBoard("grid", rows, 50, nil), "\n")
			So(v, ShouldContainSubstring, "outranks")
			So(v, ShouldContainSubstring, "has rank 3")
			So(v, ShouldContainSubstring, "more than once")
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	Convey("Given a valid configuration", t, func() {
		cfg := testConfig("http://localhost")
		So(cfg.Validate(), ShouldBeNil)

		Convey("Then missing modes should be rejected", func() {
			cfg.Modes = nil
			So(cfg.Validate(), ShouldNotBeNil)
		})

		Convey("Then a reset without a secret should be rejected", func() {
			cfg.AdminSecret = ""
			So(cfg.Validate(), ShouldNotBeNil)
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a running service", t, func() {
		srv := newService(t, 10)
		cfg := testConfig(srv.URL)
		cfg.OutputFile = filepath.Join(t.TempDir(), "out", "subs.json")

		Convey("When a load run completes", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			stats, err := Run(ctx, cfg)

			Convey("Then every board should satisfy its invariants", func() {
				So(err, ShouldBeNil)
				So(stats.Violations, ShouldBeEmpty)
				So(stats.Submitted, ShouldEqual, cfg.Submissions)
				So(stats.Failed, ShouldEqual, 0)
				So(stats.Accepted+stats.Rejected, ShouldEqual, cfg.Submissions)
				So(stats.Boards, ShouldEqual, 2)
			})

			Convey("And the submissions should be saved", func() {
				data, err := os.ReadFile(cfg.OutputFile)
				So(err, ShouldBeNil)
				var subs []Submission
				So(json.Unmarshal(data, &subs), ShouldBeNil)
				So(subs, ShouldHaveLength, cfg.Submissions)
			})
		})
	})

	Convey("Given a service that rate limits submissions", t, func() {
		srv := newService(t, 10, api.WithSubmitRate(500, 5))
		cfg := testConfig(srv.URL)
		cfg.Submissions = 60

		Convey("Then the run should retry and still verify", func() {
			stats, err := Run(context.Background(), cfg)
			So(err, ShouldBeNil)
			So(stats.Failed, ShouldEqual, 0)
			So(stats.Submitted, ShouldEqual, 60)
		})
	})

	Convey("Given a service that is not ready", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		Convey("Then the run should fail before submitting", func() {
			stats, err := Run(context.Background(), testConfig(srv.URL))
			So(err, ShouldNotBeNil)
			So(stats, ShouldBeNil)
			var se *StatusError
			So(errors.As(err, &se), ShouldBeTrue)
			So(se.Status, ShouldEqual, http.StatusServiceUnavailable)
		})
	})

	Convey("Given a wrong admin secret", t, func() {
		srv := newService(t, 10)
		cfg := testConfig(srv.URL)
		cfg.AdminSecret = "wrong"

		Convey("Then the reset step should fail", func() {
			_, err := Run(context.Background(), cfg)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "reset failed")
		})
	})
}
