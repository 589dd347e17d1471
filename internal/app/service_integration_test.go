package service_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/generosity/internal/adapters/repository"
	"github.com/okian/generosity/internal/adapters/storage/sqlite"
	service "github.com/okian/generosity/internal/app"
	. "github.com/smartystreets/goconvey/convey"
)

// gatedBoard blocks every Add until the gate is closed.
type gatedBoard struct {
	*repository.TreapStore
	gate chan struct{}
}

func (g *gatedBoard) Add(ctx context.Context, actorID string, delta float64) (float64, error) {
	<-g.gate
	return g.TreapStore.Add(ctx, actorID, delta)
}

func TestServiceIntegration_SQLitePersistence(t *testing.T) {
	Convey("Given a service backed by a SQLite file", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "generosity.db")

		store, err := sqlite.Open(ctx, path)
		So(err, ShouldBeNil)
		svc := startService(service.WithWorkerCount(2), service.WithStore(store))

		for i := 0; i < 10; i++ {
			actionType := "mentoring"
			if i%2 == 1 {
				actionType = "encouragement"
			}
			_, dup, err := svc.Record(ctx, service.ActionRequest{
				ActionID:   fmt.Sprintf("a-%d", i),
				ActorID:    fmt.Sprintf("actor-%d", i%3),
				ActionType: actionType,
				Context:    "github",
			})
			So(err, ShouldBeNil)
			So(dup, ShouldBeFalse)
		}
		So(waitProcessed(svc, 10), ShouldBeTrue)
		stopService(svc)

		Convey("When a new service opens the same file", func() {
			reopened, err := sqlite.Open(ctx, path)
			So(err, ShouldBeNil)
			svc2 := startService(service.WithStore(reopened))
			defer stopService(svc2)

			out, err := svc2.Evaluate(ctx, service.EvaluationRequest{Context: "github"})
			So(err, ShouldBeNil)
			values := map[string]float64{}
			for _, m := range out {
				values[m.ID] = m.Value
			}

			Convey("Then the recorded history is evaluated", func() {
				So(values["total_generous_actions"], ShouldEqual, 10)
				So(values["mentoring_sessions"], ShouldEqual, 5)
				So(values["unique_helpers"], ShouldEqual, 3)
				So(svc2.GetStats(ctx).ActionsStored, ShouldEqual, 10)
			})
		})
	})
}

func TestServiceIntegration_Backpressure(t *testing.T) {
	Convey("Given a service whose workers are stalled", t, func() {
		ctx := context.Background()
		board := &gatedBoard{TreapStore: repository.NewTreapStore(), gate: make(chan struct{})}
		svc := startService(
			service.WithWorkerCount(1),
			service.WithQueueSize(1),
			service.WithLeaderboard(board),
		)

		Convey("When more actions arrive than the queue holds", func() {
			var rejected string
			for i := 0; i < 10 && rejected == ""; i++ {
				id := fmt.Sprintf("bp-%d", i)
				_, _, err := svc.Record(ctx, service.ActionRequest{
					ActionID: id, ActorID: "alice", ActionType: "mentoring", Context: "web",
				})
				if errors.Is(err, service.ErrBackpressure) {
					rejected = id
				}
			}

			Convey("Then one is refused and can be retried once the queue drains", func() {
				So(rejected, ShouldNotBeEmpty)
				close(board.gate)

				deadline := time.Now().Add(5 * time.Second)
				var err error
				for time.Now().Before(deadline) {
					if _, _, err = svc.Record(ctx, service.ActionRequest{
						ActionID: rejected, ActorID: "alice", ActionType: "mentoring", Context: "web",
					}); err == nil {
						break
					}
					time.Sleep(5 * time.Millisecond)
				}
				So(err, ShouldBeNil)
				stopService(svc)
			})
		})
	})
}
