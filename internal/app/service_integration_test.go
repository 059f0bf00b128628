package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/topboard/internal/app"
	"github.com/okian/topboard/internal/adapters/repository"
	"github.com/okian/topboard/internal/domain/entry"
	"github.com/okian/topboard/internal/domain/ranking"
)

func TestServiceIntegration(t *testing.T) {
	Convey("Given a started in-memory service", t, func() {
		svc := service.New(service.WithBoardSize(5), service.WithModes([]string{"grid", "flick"}))
		defer svc.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)

		Convey("When more players submit than the board holds", func() {
			for i := 1; i <= 7; i++ {
				res, err := svc.Submit(ctx, "grid", fmt.Sprintf("player-%d", i), i*10, 90, i*100)
				So(err, ShouldBeNil)
				So(res.Accepted, ShouldBeTrue)
			}

			Convey("Then the board should keep only the best five", func() {
				rows, err := svc.Rankings(ctx, "grid")
				So(err, ShouldBeNil)
				So(rows, ShouldHaveLength, 5)
				So(rows[0].Player(), ShouldEqual, "player-7")
				So(rows[4].Player(), ShouldEqual, "player-3")
			})

			Convey("And stats should report the trimmed size", func() {
				stats := svc.GetStats()
				boards := stats["boards"].(map[string]int64)
				So(boards["grid"], ShouldEqual, 5)
				So(boards["flick"], ShouldEqual, 0)
			})

			Convey("And a score below the board should be accepted off-board", func() {
				res, err := svc.Submit(ctx, "grid", "newcomer", 1, 1, 5)
				So(err, ShouldBeNil)
				So(res.Accepted, ShouldBeTrue)
				So(res.Rank, ShouldEqual, 6)
			})

			Convey("And a reset should clear only boards that exist", func() {
				cleared, err := svc.ResetAll(ctx)
				So(err, ShouldBeNil)
				So(cleared, ShouldResemble, []string{ranking.LeaderboardKey("grid")})
			})
		})
	})
}

func TestServiceIntegration_Redis(t *testing.T) {
	Convey("Given a service backed by Redis", t, func() {
		mr := miniredis.RunT(t)
		svc := service.New(
			service.WithBackend(service.BackendRedis),
			service.WithRedis(mr.Addr(), "", 0),
			service.WithStoreTimeout(2*time.Second),
		)
		defer svc.Stop()

		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)

		Convey("When a score is submitted", func() {
			res, err := svc.Submit(ctx, "flick", "Alice", "100", "75%", "640")
			So(err, ShouldBeNil)
			So(res, ShouldResemble, ranking.SubmitResult{Accepted: true, Rank: 1})

			Convey("Then Redis should hold the board and the player's best", func() {
				members, err := mr.ZMembers(ranking.LeaderboardKey("flick"))
				So(err, ShouldBeNil)
				So(members, ShouldHaveLength, 1)

				best, err := mr.Get(ranking.PlayerBestKey("flick", "Alice"))
				So(err, ShouldBeNil)
				So(best, ShouldEqual, members[0])

				s, ok := entry.ParseStructured(best)
				So(ok, ShouldBeTrue)
				So(s.Efficiency, ShouldEqual, 640)
			})
		})

		Convey("When Redis starts failing commands", func() {
			mr.SetError("LOADING Redis is loading the dataset in memory")

			Convey("Then readiness should fail as a store error", func() {
				err := svc.Ping(ctx)
				So(ranking.IsStoreError(err), ShouldBeTrue)
			})
		})
	})

	Convey("Given a Redis backend nobody listens on", t, func() {
		svc := service.New(
			service.WithBackend(service.BackendRedis),
			service.WithRedis("127.0.0.1:1", "", 0),
		)

		Convey("Then Start should fail", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			So(svc.Start(ctx), ShouldNotBeNil)
		})
	})
}

func TestServiceIntegration_InjectedStore(t *testing.T) {
	Convey("Given a service using a caller-owned store", t, func() {
		store := repository.NewTreapStore(context.Background())
		defer store.Close()

		svc := service.New(service.WithStore(store))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)

		Convey("When the service stops", func() {
			_, err := svc.Submit(ctx, "grid", "Bob", 1, 1, 10)
			So(err, ShouldBeNil)
			svc.Stop()

			Convey("Then the store should still be usable", func() {
				n, err := store.ZCard(ctx, ranking.LeaderboardKey("grid"))
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
			})
		})
	})
}
