package queue_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/okian/generosity/internal/adapters/mq/queue"
	"github.com/okian/generosity/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func action(id string) model.Action {
	return model.Action{ActionID: id, ActorID: "alice", ActionType: "mentoring", Context: "web"}
}

func TestInMemoryQueue(t *testing.T) {
	Convey("Given a queue with capacity 2", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(2))

		So(q.Cap(), ShouldEqual, 2)
		So(q.Len(), ShouldEqual, 0)

		Convey("When actions are enqueued up to capacity", func() {
			So(q.Enqueue(ctx, action("a1")), ShouldBeNil)
			So(q.Enqueue(ctx, action("a2")), ShouldBeNil)

			Convey("Then the next enqueue is rejected as full", func() {
				err := q.Enqueue(ctx, action("a3"))
				So(errors.Is(err, queue.ErrFull), ShouldBeTrue)
				So(q.Len(), ShouldEqual, 2)
			})

			Convey("Then they are dequeued in order", func() {
				ch := q.Dequeue()
				So((<-ch).ActionID, ShouldEqual, "a1")
				So((<-ch).ActionID, ShouldEqual, "a2")
				So(q.Len(), ShouldEqual, 0)
			})

			Convey("And the queue is closed", func() {
				So(q.Close(), ShouldBeNil)
				So(q.Close(), ShouldBeNil)
				So(q.IsClosed(), ShouldBeTrue)

				Convey("Then new actions are refused", func() {
					So(errors.Is(q.Enqueue(ctx, action("a3")), queue.ErrClosed), ShouldBeTrue)
				})

				Convey("Then queued actions still drain before the channel closes", func() {
					var got []string
					for a := range q.Dequeue() {
						got = append(got, a.ActionID)
					}
					So(got, ShouldResemble, []string{"a1", "a2"})
				})
			})
		})

		Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()

			Convey("Then enqueue fails with the context error", func() {
				err := q.Enqueue(cctx, action("a1"))
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})

	Convey("Given a default queue", t, func() {
		q := queue.NewInMemoryQueue()

		Convey("Then concurrent producers do not lose actions", func() {
			ctx := context.Background()
			var wg sync.WaitGroup
			for p := 0; p < 4; p++ {
				wg.Add(1)
				go func(p int) {
					defer wg.Done()
					for i := 0; i < 100; i++ {
						_ = q.Enqueue(ctx, action(fmt.Sprintf("p%d-%d", p, i)))
					}
				}(p)
			}
			wg.Wait()
			So(q.Len(), ShouldEqual, 400)
		})
	})
}
