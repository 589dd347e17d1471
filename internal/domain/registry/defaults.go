package registry

import (
	"fmt"
	"strings"
)

// Supported default catalogs.
const (
	PlatformGitHub = "github"
	PlatformSlack  = "slack"
	PlatformWeb    = "web"
)

// Categories used by the default catalogs.
const (
	CategoryCollaboration    = "collaboration"
	CategoryKnowledgeSharing = "knowledge_sharing"
	CategoryMentorship       = "mentorship"
	CategorySupport          = "support"
	CategoryRecognition      = "recognition"
	CategoryCommunity        = "community"
)

type catalogEntry struct {
	actionType  string
	name        string
	description string
	baseScore   float64
	category    string
}

//nolint:gochecknoglobals // static catalogs
var catalogs = map[string][]catalogEntry{
	PlatformGitHub: {
		{"code_review", "Code Review", "Reviewed another contributor's pull request", 5.0, CategoryCollaboration},
		{"issue_triage", "Issue Triage", "Reproduced, labeled or answered someone else's issue", 3.0, CategorySupport},
		{"documentation", "Documentation", "Wrote or improved documentation for others", 4.0, CategoryKnowledgeSharing},
		{"mentoring", "Mentoring", "Guided a contributor through a change", 8.0, CategoryMentorship},
		{"first_timer_help", "First-Timer Help", "Helped a first-time contributor land a change", 6.0, CategoryMentorship},
	},
	PlatformSlack: {
		{"helping_others", "Helping Others", "Answered a colleague's question", 4.0, CategorySupport},
		{"knowledge_sharing", "Knowledge Sharing", "Shared a useful resource or explanation", 5.0, CategoryKnowledgeSharing},
		{"encouragement", "Encouragement", "Recognized or encouraged a colleague", 2.0, CategoryRecognition},
		{"mentoring", "Mentoring", "Ran a mentoring session", 8.0, CategoryMentorship},
	},
	PlatformWeb: {
		{"volunteering", "Volunteering", "Volunteered time for a community effort", 7.0, CategoryCommunity},
		{"resource_sharing", "Resource Sharing", "Shared tools, templates or material", 3.0, CategoryKnowledgeSharing},
		{"onboarding_help", "Onboarding Help", "Helped a newcomer get started", 6.0, CategoryMentorship},
	},
}

// Platforms lists the names accepted by RegisterDefaults.
func Platforms() []string {
	return []string{PlatformGitHub, PlatformSlack, PlatformWeb}
}

// RegisterDefaults registers the built-in catalogs of the given platforms, in order.
// With no platforms every catalog is registered.
func RegisterDefaults(r *Registry, platforms ...string) error {
	if len(platforms) == 0 {
		platforms = Platforms()
	}
	for _, p := range platforms {
		entries, ok := catalogs[strings.ToLower(strings.TrimSpace(p))]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownPlatform, p)
		}
		for _, e := range entries {
			r.Register(e.actionType, e.name, e.description, e.baseScore, e.category, nil)
		}
	}
	return nil
}
