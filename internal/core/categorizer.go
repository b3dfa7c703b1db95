package core

import (
	"fmt"
	"strings"

	"github.com/grovekit/grove/pkg/models"
)

// slugMaxLength caps the slug portion of a suggested branch name so the
// final name stays well under the branch length limit after prefixing.
const slugMaxLength = 40

// CategoryRule maps a keyword set to the team that owns matching work and
// the branch prefix convention that team uses. Rules are evaluated in table
// order; the first rule with any keyword match wins.
type CategoryRule struct {
	Keywords []string
	Category models.Category
}

// DefaultCategoryRules is the static routing table used when a work item
// does not request an explicit branch. It is read-only reference data.
var DefaultCategoryRules = []CategoryRule{
	{
		Keywords: []string{"crash", "panic", "broken", "regression", "error", "bug", "fails", "failure"},
		Category: models.Category{Team: "quality", Label: "Bug Fix", Prefix: "fix-"},
	},
	{
		Keywords: []string{"login", "auth", "oauth", "password", "session", "permission", "token"},
		Category: models.Category{Team: "identity", Label: "Authentication & Access", Prefix: "fix-"},
	},
	{
		Keywords: []string{"payment", "billing", "invoice", "checkout", "subscription", "refund"},
		Category: models.Category{Team: "payments", Label: "Payments", Prefix: "feat-"},
	},
	{
		Keywords: []string{"ui", "layout", "style", "css", "design", "frontend", "page", "button"},
		Category: models.Category{Team: "frontend", Label: "Frontend", Prefix: "feat-"},
	},
	{
		Keywords: []string{"api", "endpoint", "database", "migration", "query", "backend", "schema"},
		Category: models.Category{Team: "backend", Label: "Backend", Prefix: "feat-"},
	},
	{
		Keywords: []string{"deploy", "pipeline", "docker", "infra", "monitoring", "ci", "build"},
		Category: models.Category{Team: "platform", Label: "Infrastructure", Prefix: "task-"},
	},
	{
		Keywords: []string{"docs", "documentation", "readme", "changelog", "guide"},
		Category: models.Category{Team: "docs", Label: "Documentation", Prefix: "task-"},
	},
}

// SuggestInput carries the free-text fields of a work item used for
// categorization.
type SuggestInput struct {
	Title          string
	Description    string
	Type           models.TaskType
	FunctionalArea string
}

// Categorizer turns a work item's free text into a suggested branch name
// and owning category using an ordered rule table. It is pure: callers
// persist the chosen name.
type Categorizer struct {
	rules []CategoryRule
}

// NewCategorizer creates a Categorizer with the given rule table. A nil
// table selects DefaultCategoryRules.
func NewCategorizer(rules []CategoryRule) *Categorizer {
	if rules == nil {
		rules = DefaultCategoryRules
	}
	return &Categorizer{rules: rules}
}

// Suggest matches the concatenated, lowercased free-text fields against the
// rule table; the first rule with any keyword hit wins. When no rule
// matches, the category falls back to the work item's type. The branch name
// is <prefix><slugified-title>, made unique against existing by appending a
// numeric suffix.
func (c *Categorizer) Suggest(input SuggestInput, existing []string) models.Suggestion {
	haystack := strings.ToLower(strings.Join([]string{
		input.Title, input.Description, input.FunctionalArea,
	}, " "))

	category := c.match(haystack)
	if category == nil {
		fallback := fallbackCategory(input.Type)
		category = &fallback
	}

	slug := Slugify(input.Title, slugMaxLength)
	if slug == "" {
		slug = "work-item"
	}

	return models.Suggestion{
		BranchName: uniqueName(category.Prefix+slug, existing),
		Category:   *category,
	}
}

// match returns the category of the first rule with any keyword present in
// haystack, or nil when no rule matches.
func (c *Categorizer) match(haystack string) *models.Category {
	for _, rule := range c.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(haystack, kw) {
				cat := rule.Category
				return &cat
			}
		}
	}
	return nil
}

// fallbackCategory derives a category from the task type when no rule
// matched: bugs get fix-, features get feat-, everything else task-.
func fallbackCategory(t models.TaskType) models.Category {
	switch t {
	case models.TaskTypeBug:
		return models.Category{Team: "general", Label: "Bug Fix", Prefix: "fix-"}
	case models.TaskTypeFeature:
		return models.Category{Team: "general", Label: "Feature", Prefix: "feat-"}
	default:
		return models.Category{Team: "general", Label: "Task", Prefix: "task-"}
	}
}

// uniqueName appends -2, -3, ... to name until it does not collide with any
// entry in existing.
func uniqueName(name string, existing []string) string {
	taken := make(map[string]struct{}, len(existing))
	for _, e := range existing {
		taken[e] = struct{}{}
	}
	if _, ok := taken[name]; !ok {
		return name
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s-%d", name, i)
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}
