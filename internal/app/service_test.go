package service_test

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/generosity/internal/adapters/storage"
	service "github.com/okian/generosity/internal/app"
	"github.com/okian/generosity/internal/domain/model"
	"github.com/okian/generosity/internal/domain/engine"
	"github.com/okian/generosity/internal/domain/registry"
	"github.com/okian/generosity/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

// waitProcessed polls until the workers have handled n actions.
func waitProcessed(svc *service.Service, n int64) bool {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		st := svc.GetStats(context.Background())
		if st.Processed+st.Duplicates+st.Failed >= n {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func startService(opts ...service.Option) *service.Service {
	svc := service.New(opts...)
	So(svc.Start(context.Background()), ShouldBeNil)
	return svc
}

func stopService(svc *service.Service) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	So(svc.Stop(ctx), ShouldBeNil)
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(service.WithWorkerCount(2), service.WithQueueSize(16))
		ctx := context.Background()

		Convey("Before Start, operations report it is not started", func() {
			_, _, err := svc.Record(ctx, service.ActionRequest{ActorID: "a", ActionType: "mentoring", Context: "web"})
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, err = svc.Evaluate(ctx, service.EvaluationRequest{})
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(svc.GetStats(ctx).Started, ShouldBeFalse)
		})

		Convey("When started", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)

			Convey("Then it reports its configuration", func() {
				st := svc.GetStats(ctx)
				So(st.Started, ShouldBeTrue)
				So(st.Workers, ShouldEqual, 2)
				So(st.QueueCapacity, ShouldEqual, 16)
				So(st.RegisteredTypes, ShouldEqual, 11)
				So(st.MetricDefinitions, ShouldEqual, len(engine.DefaultDefinitions()))
				stopService(svc)
			})

			Convey("Then the default catalogs are available", func() {
				So(svc.ActionTypes(""), ShouldHaveLength, 11)
				for _, e := range svc.ActionTypes(registry.CategoryMentorship) {
					So(e.Category, ShouldEqual, registry.CategoryMentorship)
				}
				stopService(svc)
			})

			Convey("And stopped twice", func() {
				stopService(svc)
				stopService(svc)
				So(svc.GetStats(ctx).Started, ShouldBeFalse)
			})
		})
	})
}

func TestService_Record(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		fixed := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
		svc := startService(service.WithWorkerCount(2), service.WithClock(func() time.Time { return fixed }))
		defer stopService(svc)

		Convey("When an action without id or timestamp is recorded", func() {
			id, dup, err := svc.Record(ctx, service.ActionRequest{
				ActorID: "alice", ActionType: "mentoring", Context: "github",
			})

			Convey("Then it gets a generated id and is scored", func() {
				So(err, ShouldBeNil)
				So(dup, ShouldBeFalse)
				So(id, ShouldNotBeEmpty)
				So(waitProcessed(svc, 1), ShouldBeTrue)

				entry, err := svc.Rank(ctx, "alice")
				So(err, ShouldBeNil)
				So(entry.Rank, ShouldEqual, 1)
				So(entry.Score, ShouldBeGreaterThan, 0)
			})
		})

		Convey("When the same id is recorded twice", func() {
			req := service.ActionRequest{ActionID: "fixed-1", ActorID: "alice", ActionType: "mentoring", Context: "github"}
			_, dup1, err1 := svc.Record(ctx, req)
			id2, dup2, err2 := svc.Record(ctx, req)

			Convey("Then the second is reported as a duplicate", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(dup1, ShouldBeFalse)
				So(dup2, ShouldBeTrue)
				So(id2, ShouldEqual, "fixed-1")
			})
		})

		Convey("When required fields are missing", func() {
			_, _, err := svc.Record(ctx, service.ActionRequest{ActionType: "mentoring"})

			Convey("Then it is rejected as invalid", func() {
				So(errors.Is(err, service.ErrInvalidAction), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "actor_id")
				So(err.Error(), ShouldContainSubstring, "context")
			})
		})
	})
}

func TestService_Evaluate(t *testing.T) {
	Convey("Given a service with custom metrics and context defaults", t, func() {
		ctx := context.Background()
		svc := startService(
			service.WithWorkerCount(1),
			service.WithDefinitions(map[string]engine.Definition{
				"mentoring": {Calculation: engine.KindCount, Filter: map[string]any{"action_type": "mentoring"}},
				"rate": {
					Calculation:       engine.KindRatio,
					NumeratorFilter:   map[string]any{"action_type": "mentoring"},
					DenominatorSource: "requests",
				},
				"broken": {Calculation: "median"},
			}),
			service.WithContextDefaults(map[string]any{"requests": 4}),
		)
		defer stopService(svc)

		base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
		for i, r := range []struct{ typ, ctx string }{
			{"mentoring", "github"}, {"mentoring", "slack"}, {"encouragement", "slack"},
		} {
			ts := base.Add(time.Duration(i) * time.Hour)
			_, _, err := svc.Record(ctx, service.ActionRequest{
				ActorID: "alice", ActionType: r.typ, Context: r.ctx, Timestamp: &ts,
			})
			So(err, ShouldBeNil)
		}
		So(waitProcessed(svc, 3), ShouldBeTrue)

		Convey("When evaluating everything", func() {
			out, err := svc.Evaluate(ctx, service.EvaluationRequest{})

			Convey("Then the broken metric is skipped and defaults are applied", func() {
				So(err, ShouldBeNil)
				So(out, ShouldHaveLength, 2)
				So(out[0].ID, ShouldEqual, "mentoring")
				So(out[0].Value, ShouldEqual, 2)
				So(out[1].ID, ShouldEqual, "rate")
				So(out[1].Value, ShouldEqual, 50)
			})
		})

		Convey("When evaluating one context with an overridden denominator", func() {
			out, err := svc.Evaluate(ctx, service.EvaluationRequest{
				Context: "slack",
				Values:  map[string]any{"requests": 1},
			})

			Convey("Then only that context counts", func() {
				So(err, ShouldBeNil)
				So(out[0].Value, ShouldEqual, 1)
				So(out[1].Value, ShouldEqual, 100)
			})
		})

		Convey("When evaluating a time window", func() {
			out, err := svc.Evaluate(ctx, service.EvaluationRequest{Since: base.Add(time.Hour)})

			Convey("Then earlier actions are excluded", func() {
				So(err, ShouldBeNil)
				So(out[0].Value, ShouldEqual, 1)
			})
		})
	})
}

// gatedStore holds every Append until gate is closed.
type gatedStore struct {
	*storage.MemoryStore
	gate   chan struct{}
	closed atomic.Bool
}

func (g *gatedStore) Append(ctx context.Context, a model.Action) error { //nolint:gocritic // hugeParam: matches storage.Store
	<-g.gate
	return g.MemoryStore.Append(ctx, a)
}

func (g *gatedStore) Close() error {
	g.closed.Store(true)
	return g.MemoryStore.Close()
}

func TestService_StopTimeout(t *testing.T) {
	Convey("Given a service whose store is still busy", t, func() {
		st := &gatedStore{MemoryStore: storage.NewMemoryStore(), gate: make(chan struct{})}
		svc := startService(service.WithStore(st), service.WithWorkerCount(1), service.WithQueueSize(8))
		ctx := context.Background()
		for _, actor := range []string{"alice", "bob"} {
			_, _, err := svc.Record(ctx, service.ActionRequest{ActorID: actor, ActionType: "mentoring", Context: "web"})
			So(err, ShouldBeNil)
		}

		Convey("When Stop runs out of time", func() {
			stopCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
			defer cancel()
			err := svc.Stop(stopCtx)

			Convey("Then the backends stay open and queued actions still land", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
				So(st.closed.Load(), ShouldBeFalse)

				close(st.gate)
				deadline := time.Now().Add(5 * time.Second)
				n, _ := st.Count(ctx)
				for n < 2 && time.Now().Before(deadline) {
					time.Sleep(5 * time.Millisecond)
					n, _ = st.Count(ctx)
				}
				So(n, ShouldEqual, 2)
				So(st.closed.Load(), ShouldBeFalse)
			})
		})
	})
}
