package loadgen

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
)

// actionTypesByContext mirrors the built-in catalogs.
//
//nolint:gochecknoglobals // static table
var actionTypesByContext = map[string][]string{
	"github": {"code_review", "issue_triage", "documentation", "mentoring", "first_timer_help"},
	"slack":  {"helping_others", "knowledge_sharing", "encouragement", "mentoring"},
	"web":    {"volunteering", "resource_sharing", "onboarding_help"},
}

//nolint:gochecknoglobals // static table
var contexts = []string{"github", "slack", "web"}

// Generator produces random but reproducible actions.
type Generator struct {
	rng    *rand.Rand
	actors []string
	start  time.Time
}

// NewGenerator creates a Generator over numActors uuid-named actors.
func NewGenerator(seed uint64, numActors int) *Generator {
	if numActors < 1 {
		numActors = 1
	}
	actors := make([]string, numActors)
	for i := range actors {
		actors[i] = uuid.NewString()
	}
	return &Generator{
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		actors: actors,
		start:  time.Now().UTC().Add(-24 * time.Hour),
	}
}

// Actors returns the actor pool.
func (g *Generator) Actors() []string { return g.actors }

// Generate returns n actions. dupPct percent of them reuse an earlier
// action id so the service's dedupe path is exercised.
func (g *Generator) Generate(n, dupPct int) []Action {
	out := make([]Action, 0, n)
	for i := 0; i < n; i++ {
		if len(out) > 0 && g.rng.IntN(100) < dupPct {
			out = append(out, out[g.rng.IntN(len(out))])
			continue
		}
		out = append(out, g.next(i))
	}
	return out
}

func (g *Generator) next(i int) Action {
	ctx := contexts[g.rng.IntN(len(contexts))]
	types := actionTypesByContext[ctx]

	a := Action{
		ActionID:   fmt.Sprintf("load-%d-%s", i, uuid.NewString()[:8]),
		ActorID:    g.actors[g.rng.IntN(len(g.actors))],
		ActionType: types[g.rng.IntN(len(types))],
		Context:    ctx,
		Timestamp:  g.start.Add(time.Duration(g.rng.IntN(24*60)) * time.Minute),
		Metadata:   map[string]any{"hours": 1 + g.rng.IntN(4)},
	}
	if len(g.actors) > 1 && g.rng.IntN(4) > 0 {
		r := g.actors[g.rng.IntN(len(g.actors))]
		if r != a.ActorID {
			a.RecipientID = &r
		}
	}
	return a
}

// distinctIDs counts unique action ids.
func distinctIDs(actions []Action) int {
	seen := make(map[string]struct{}, len(actions))
	for _, a := range actions {
		seen[a.ActionID] = struct{}{}
	}
	return len(seen)
}
