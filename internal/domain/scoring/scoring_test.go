package scoring_test

import (
	"context"
	"testing"

	"github.com/okian/generosity/internal/domain/registry"
	"github.com/okian/generosity/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRegistryScorer_Score(t *testing.T) {
	Convey("Given a scorer backed by a registry", t, func() {
		reg := registry.New()
		reg.Register("mentoring", "Mentoring", "", 8, "mentorship", nil)
		reg.Register("encouragement", "Encouragement", "", 2, "recognition", nil)
		scorer := scoring.NewRegistryScorer(reg)
		ctx := context.Background()

		Convey("When scoring a registered type without multipliers", func() {
			res, err := scorer.Score(ctx, scoring.Input{ActionType: "mentoring"})

			Convey("Then the impact equals the base score", func() {
				So(err, ShouldBeNil)
				So(res.Registered, ShouldBeTrue)
				So(res.Category, ShouldEqual, "mentorship")
				So(res.BaseScore, ShouldEqual, 8)
				So(res.ImpactScore, ShouldEqual, 8)
			})
		})

		Convey("When scoring with multipliers", func() {
			res, err := scorer.Score(ctx, scoring.Input{
				ActionType: "encouragement",
				Metadata:   map[string]any{"urgency": 3, "reach": 3},
			})

			Convey("Then the impact applies their mean", func() {
				So(err, ShouldBeNil)
				// 2 * mean(3, 1, 3, 1) = 4
				So(res.ImpactScore, ShouldEqual, 4)
			})
		})

		Convey("When multipliers push the score past ten", func() {
			res, err := scorer.Score(ctx, scoring.Input{
				ActionType: "mentoring",
				Metadata:   map[string]any{"urgency": 2, "complexity": 2, "reach": 2, "effort": 2},
			})

			Convey("Then the impact is clamped", func() {
				So(err, ShouldBeNil)
				So(res.ImpactScore, ShouldEqual, 10)
			})
		})

		Convey("When scoring an unregistered type", func() {
			res, err := scorer.Score(ctx, scoring.Input{ActionType: "baking_cookies"})

			Convey("Then it is valid and uses the default base score", func() {
				So(err, ShouldBeNil)
				So(res.Registered, ShouldBeFalse)
				So(res.Category, ShouldBeEmpty)
				So(res.ImpactScore, ShouldEqual, 1)
			})
		})

		Convey("When the default base score is configured", func() {
			custom := scoring.NewRegistryScorer(reg, scoring.WithDefaultBaseScore(2.5))
			res, err := custom.Score(ctx, scoring.Input{ActionType: "baking_cookies"})

			Convey("Then unregistered types use it", func() {
				So(err, ShouldBeNil)
				So(res.ImpactScore, ShouldEqual, 2.5)
			})
		})

		Convey("When the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := scorer.Score(cctx, scoring.Input{ActionType: "mentoring"})

			Convey("Then it returns an error", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "context cancelled")
			})
		})
	})

	Convey("Given a scorer without a registry", t, func() {
		scorer := scoring.NewRegistryScorer(nil)

		Convey("Then every type scores from the default base", func() {
			res, err := scorer.Score(context.Background(), scoring.Input{ActionType: "mentoring"})
			So(err, ShouldBeNil)
			So(res.ImpactScore, ShouldEqual, 1)
		})
	})
}
