package registry_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/generosity/internal/domain/registry"
	. "github.com/smartystreets/goconvey/convey"
)

func fixedClock(ts ...time.Time) func() time.Time {
	var mu sync.Mutex
	i := 0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := ts[i%len(ts)]
		i++
		return t
	}
}

func TestRegistry(t *testing.T) {
	t1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	Convey("Given an empty registry", t, func() {
		r := registry.New(registry.WithClock(fixedClock(t1, t2, t2, t2, t2)))

		Convey("When getting an unknown action type", func() {
			_, ok := r.Get("mentoring")

			Convey("Then it reports not found without failing", func() {
				So(ok, ShouldBeFalse)
				So(r.Len(), ShouldEqual, 0)
			})
		})

		Convey("When registering an action type", func() {
			r.Register("mentoring", "Mentoring", "Guided someone", 8, "mentorship", map[string]any{"min_minutes": 15})
			e, ok := r.Get("mentoring")

			Convey("Then the entry carries its metadata", func() {
				So(ok, ShouldBeTrue)
				So(e.ActionType, ShouldEqual, "mentoring")
				So(e.Name, ShouldEqual, "Mentoring")
				So(e.Description, ShouldEqual, "Guided someone")
				So(e.BaseScore, ShouldEqual, 8)
				So(e.Category, ShouldEqual, "mentorship")
				So(e.ValidationRules["min_minutes"], ShouldEqual, 15)
				So(e.CreatedAt, ShouldEqual, t1)
			})

			Convey("And registering it again", func() {
				r.Register("mentoring", "Mentoring v2", "Ran a session", 9, "community", nil)
				e, ok := r.Get("mentoring")

				Convey("Then the last write wins without error", func() {
					So(ok, ShouldBeTrue)
					So(e.Name, ShouldEqual, "Mentoring v2")
					So(e.BaseScore, ShouldEqual, 9)
					So(e.Category, ShouldEqual, "community")
					So(e.ValidationRules, ShouldBeNil)
					So(e.CreatedAt, ShouldEqual, t2)
					So(r.Len(), ShouldEqual, 1)
				})
			})
		})

		Convey("When registering several types across categories", func() {
			r.Register("code_review", "Code Review", "", 5, "collaboration", nil)
			r.Register("mentoring", "Mentoring", "", 8, "mentorship", nil)
			r.Register("pairing", "Pairing", "", 6, "collaboration", nil)
			r.Register("onboarding_help", "Onboarding", "", 6, "mentorship", nil)

			Convey("Then ListByCategory returns matches in registration order", func() {
				got := r.ListByCategory("collaboration")
				So(len(got), ShouldEqual, 2)
				So(got[0].ActionType, ShouldEqual, "code_review")
				So(got[1].ActionType, ShouldEqual, "pairing")
			})

			Convey("Then an overwrite keeps the original position", func() {
				r.Register("code_review", "Code Review", "", 5.5, "collaboration", nil)
				got := r.ListByCategory("collaboration")
				So(got[0].ActionType, ShouldEqual, "code_review")
				So(got[0].BaseScore, ShouldEqual, 5.5)
			})

			Convey("Then an overwrite into another category moves it out of the old listing", func() {
				r.Register("pairing", "Pairing", "", 6, "mentorship", nil)
				So(len(r.ListByCategory("collaboration")), ShouldEqual, 1)
				mentorship := r.ListByCategory("mentorship")
				So(len(mentorship), ShouldEqual, 3)
				So(mentorship[1].ActionType, ShouldEqual, "pairing")
			})

			Convey("Then an unknown category lists nothing", func() {
				So(r.ListByCategory("nope"), ShouldBeEmpty)
			})

			Convey("Then All lists every entry in order", func() {
				all := r.All()
				So(len(all), ShouldEqual, 4)
				So(all[3].ActionType, ShouldEqual, "onboarding_help")
			})
		})

		Convey("When the caller mutates the rules map after registering", func() {
			rules := map[string]any{"k": 1}
			r.Register("x", "X", "", 1, "c", rules)
			rules["k"] = 2

			Convey("Then the stored entry is unaffected", func() {
				e, _ := r.Get("x")
				So(e.ValidationRules["k"], ShouldEqual, 1)
			})
		})
	})
}

func TestRegisterDefaults(t *testing.T) {
	Convey("Given an empty registry", t, func() {
		r := registry.New()

		Convey("When registering every default catalog", func() {
			err := registry.RegisterDefaults(r)

			Convey("Then the platform types are present", func() {
				So(err, ShouldBeNil)
				for _, at := range []string{"code_review", "helping_others", "volunteering", "mentoring"} {
					_, ok := r.Get(at)
					So(ok, ShouldBeTrue)
				}
			})

			Convey("Then the shared mentoring type is registered once", func() {
				n := 0
				for _, e := range r.All() {
					if e.ActionType == "mentoring" {
						n++
					}
				}
				So(n, ShouldEqual, 1)
			})
		})

		Convey("When registering a single catalog", func() {
			So(registry.RegisterDefaults(r, "Slack"), ShouldBeNil)

			Convey("Then only that platform's types are present", func() {
				_, ok := r.Get("code_review")
				So(ok, ShouldBeFalse)
				_, ok = r.Get("encouragement")
				So(ok, ShouldBeTrue)
			})
		})

		Convey("When registering an unknown catalog", func() {
			err := registry.RegisterDefaults(r, "myspace")

			Convey("Then it returns ErrUnknownPlatform", func() {
				So(errors.Is(err, registry.ErrUnknownPlatform), ShouldBeTrue)
			})
		})
	})
}
