package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it uses the service namespace", func() {
				So(manager, ShouldNotBeNil)
				So(manager.Enabled(), ShouldBeTrue)
				So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)

				manager.submissions.WithLabelValues("grid", "accepted").Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "topboard_ranking_submissions_total")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test_namespace"),
				WithSubsystem("test_subsystem"),
				WithMetricsEnabled(false),
				WithRefreshInterval(5*time.Second),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the options are applied", func() {
				So(manager.Enabled(), ShouldBeFalse)
				So(manager.RefreshInterval(), ShouldEqual, 5*time.Second)

				manager.boardSize.WithLabelValues("grid").Set(3)
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "test_namespace_test_subsystem_board_entries")
			})
		})

		Convey("When options carry zero values", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithRefreshInterval(0),
				WithPrometheusRegistry(nil),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the defaults survive", func() {
				So(manager.namespace, ShouldEqual, "topboard")
				So(manager.subsystem, ShouldEqual, "ranking")
				So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})
		})
	})
}

func TestConfigure(t *testing.T) {
	Convey("Given the startup configuration hook", t, func() {
		savedManager, savedRegistry := globalManager, customRegistry
		Reset(func() { globalManager, customRegistry = savedManager, savedRegistry })

		Convey("When metrics are configured off with a slower refresh", func() {
			Configure(WithMetricsEnabled(false), WithRefreshInterval(time.Minute))
			RecordSubmission("grid", "accepted")
			UpdateSystemGoroutineCount(7)

			Convey("Then the global manager and registry are replaced", func() {
				So(GetRegistry(), ShouldNotEqual, savedRegistry)
				So(RefreshInterval(), ShouldEqual, time.Minute)
				So(globalManager.Enabled(), ShouldBeFalse)
				So(testutil.ToFloat64(globalManager.submissions.WithLabelValues("grid", "accepted")), ShouldEqual, 0)
				So(testutil.ToFloat64(globalManager.systemGoroutineCount), ShouldEqual, 0)
			})
		})

		Convey("When configured with defaults", func() {
			Configure()
			RecordSubmission("flick", "accepted")

			Convey("Then recording lands in the new registry", func() {
				families, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
				So(families, ShouldNotBeEmpty)
				So(testutil.ToFloat64(globalManager.submissions.WithLabelValues("flick", "accepted")), ShouldEqual, 1)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics", t, func() {
		Convey("When a submission outcome is recorded", func() {
			c := globalManager.submissions.WithLabelValues("flick", "accepted")
			before := testutil.ToFloat64(c)
			RecordSubmission("flick", "accepted")
			RecordSubmission("flick", "accepted")

			Convey("Then the counter advances", func() {
				So(testutil.ToFloat64(c)-before, ShouldEqual, 2)
			})
		})

		Convey("When board size and evictions are recorded", func() {
			UpdateBoardSize("tracking", 50)
			ev := globalManager.evictions.WithLabelValues("tracking")
			before := testutil.ToFloat64(ev)
			RecordEvictions("tracking", 1)
			RecordEvictions("tracking", 0)

			Convey("Then gauges and counters reflect them", func() {
				So(testutil.ToFloat64(globalManager.boardSize.WithLabelValues("tracking")), ShouldEqual, 50)
				So(testutil.ToFloat64(ev)-before, ShouldEqual, 1)
			})
		})

		Convey("When store commands are recorded", func() {
			c := globalManager.storeCommands.WithLabelValues("memory", "ZADD", "ok")
			before := testutil.ToFloat64(c)
			RecordStoreCommand("memory", "ZADD", "ok", 0.2)
			UpdateStoreKeys("memory", 7)

			Convey("Then the command is counted", func() {
				So(testutil.ToFloat64(c)-before, ShouldEqual, 1)
				So(testutil.ToFloat64(globalManager.storeKeys.WithLabelValues("memory")), ShouldEqual, 7)
			})
		})

		Convey("When HTTP and error metrics are recorded", func() {
			So(func() {
				RecordHTTPRequest("/rankings", "GET", "200")
				RecordHTTPRequestDuration("/rankings", "GET", "200", 1.5)
				RecordRateLimited("/scores")
				RecordAdminOperation("reset")
				RecordErrorByComponent("store", "unavailable")
				RecordErrorByType("store_unavailable", "error")
				RecordErrorByEndpoint("/scores", "POST", "rate_limited")
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.3)
			}, ShouldNotPanic)
		})
	})
}

func TestMetricsDisabled(t *testing.T) {
	Convey("Given recording is disabled", t, func() {
		saved := globalManager
		globalManager = NewManager(WithPrometheusRegistry(prometheus.NewRegistry()), WithMetricsEnabled(false))
		Reset(func() { globalManager = saved })

		RecordSubmission("grid", "accepted")

		Convey("Then nothing is counted", func() {
			So(testutil.ToFloat64(globalManager.submissions.WithLabelValues("grid", "accepted")), ShouldEqual, 0)
		})
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given concurrent recorders", t, func() {
		c := globalManager.submissions.WithLabelValues("switching", "rejected")
		before := testutil.ToFloat64(c)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					RecordSubmission("switching", "rejected")
					RecordStoreCommand("redis", "GET", "ok", float64(j))
					RecordHTTPRequest("/scores", "POST", "200")
				}
			}()
		}
		wg.Wait()

		Convey("Then every increment lands", func() {
			So(testutil.ToFloat64(c)-before, ShouldEqual, 1000)
		})
	})
}
