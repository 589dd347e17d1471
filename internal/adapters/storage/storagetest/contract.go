// Package storagetest holds behaviour shared by every storage.Store backend.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/generosity/internal/adapters/storage"
	"github.com/okian/generosity/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// Base is the reference time used by contract fixtures. It is millisecond aligned.
var Base = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC) //nolint:gochecknoglobals // fixture

// Action builds a fixture action offset minutes after Base.
func Action(id, actor, ctxName string, minutes int) model.Action {
	return model.Action{
		ActionID:    id,
		ActorID:     actor,
		ActionType:  "mentoring",
		Context:     ctxName,
		Timestamp:   Base.Add(time.Duration(minutes) * time.Minute),
		ImpactScore: 4.5,
		Metadata:    map[string]any{"urgency": 2.0, "topic": "go"},
	}
}

// Run exercises open() against the storage.Store contract.
func Run(t *testing.T, open func(t *testing.T) storage.Store) {
	t.Helper()

	Convey("Given an empty store", t, func() {
		ctx := context.Background()
		s := open(t)

		n, err := s.Count(ctx)
		So(err, ShouldBeNil)
		So(n, ShouldEqual, 0)

		Convey("When actions are appended out of order", func() {
			bob := "bob"
			a2 := Action("a2", "alice", "github", 20)
			a2.RecipientID = &bob
			So(s.Append(ctx, a2), ShouldBeNil)
			So(s.Append(ctx, Action("a1", "alice", "slack", 10)), ShouldBeNil)
			So(s.Append(ctx, Action("a3", "carol", "github", 30)), ShouldBeNil)

			Convey("Then List returns them oldest first with fields intact", func() {
				got, err := s.List(ctx, storage.Query{})
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 3)
				So(got[0].ActionID, ShouldEqual, "a1")
				So(got[1].ActionID, ShouldEqual, "a2")
				So(got[2].ActionID, ShouldEqual, "a3")

				So(got[1].RecipientID, ShouldNotBeNil)
				So(*got[1].RecipientID, ShouldEqual, "bob")
				So(got[0].RecipientID, ShouldBeNil)
				So(got[1].Timestamp.Equal(Base.Add(20*time.Minute)), ShouldBeTrue)
				So(got[1].ImpactScore, ShouldEqual, 4.5)
				So(got[1].Metadata["topic"], ShouldEqual, "go")
				So(got[1].Metadata["urgency"], ShouldEqual, 2.0)

				n, err := s.Count(ctx)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 3)
			})

			Convey("Then a repeated id is rejected as a duplicate", func() {
				err := s.Append(ctx, Action("a1", "someone", "web", 99))
				So(errors.Is(err, storage.ErrDuplicate), ShouldBeTrue)

				n, err := s.Count(ctx)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 3)
			})

			Convey("Then queries filter by context, actor and time window", func() {
				got, err := s.List(ctx, storage.Query{Context: "github"})
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 2)

				got, err = s.List(ctx, storage.Query{ActorID: "carol"})
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 1)
				So(got[0].ActionID, ShouldEqual, "a3")

				got, err = s.List(ctx, storage.Query{
					Since: Base.Add(10 * time.Minute),
					Until: Base.Add(30 * time.Minute),
				})
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 2)
				So(got[0].ActionID, ShouldEqual, "a1")
				So(got[1].ActionID, ShouldEqual, "a2")

				got, err = s.List(ctx, storage.Query{Limit: 1})
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 1)
				So(got[0].ActionID, ShouldEqual, "a1")
			})
		})

		Convey("When an action has no id", func() {
			err := s.Append(ctx, Action("", "alice", "web", 0))

			Convey("Then it is rejected as invalid", func() {
				So(errors.Is(err, storage.ErrInvalidAction), ShouldBeTrue)
			})
		})
	})
}
