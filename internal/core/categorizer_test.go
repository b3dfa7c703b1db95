package core

import (
	"strings"
	"testing"

	"github.com/grovekit/grove/pkg/models"
)

func TestSuggest_KeywordRouting(t *testing.T) {
	c := NewCategorizer(nil)

	tests := []struct {
		name       string
		input      SuggestInput
		wantTeam   string
		wantPrefix string
	}{
		{
			name:       "crash routes to quality",
			input:      SuggestInput{Title: "App crash on startup", Type: models.TaskTypeBug},
			wantTeam:   "quality",
			wantPrefix: "fix-",
		},
		{
			name:       "auth keyword in description",
			input:      SuggestInput{Title: "Users locked out", Description: "oauth token refresh fails", Type: models.TaskTypeBug},
			wantTeam:   "identity",
			wantPrefix: "fix-",
		},
		{
			name:       "billing routes to payments",
			input:      SuggestInput{Title: "Add invoice export", Type: models.TaskTypeFeature},
			wantTeam:   "payments",
			wantPrefix: "feat-",
		},
		{
			name:       "css routes to frontend",
			input:      SuggestInput{Title: "Tweak css spacing", Type: models.TaskTypeFeature},
			wantTeam:   "frontend",
			wantPrefix: "feat-",
		},
		{
			name:       "migration routes to backend",
			input:      SuggestInput{Title: "Add user table migration", Type: models.TaskTypeFeature},
			wantTeam:   "backend",
			wantPrefix: "feat-",
		},
		{
			name:       "docker routes to platform",
			input:      SuggestInput{Title: "Shrink docker image", Type: models.TaskTypeChore},
			wantTeam:   "platform",
			wantPrefix: "task-",
		},
		{
			name:       "functional area counts as text",
			input:      SuggestInput{Title: "Update overview", FunctionalArea: "documentation", Type: models.TaskTypeChore},
			wantTeam:   "docs",
			wantPrefix: "task-",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Suggest(tt.input, nil)
			if got.Category.Team != tt.wantTeam {
				t.Errorf("team = %q, want %q", got.Category.Team, tt.wantTeam)
			}
			if !strings.HasPrefix(got.BranchName, tt.wantPrefix) {
				t.Errorf("branch %q missing prefix %q", got.BranchName, tt.wantPrefix)
			}
		})
	}
}

func TestSuggest_FirstMatchWins(t *testing.T) {
	c := NewCategorizer(nil)

	// "crash" (quality) appears before "login" (identity) in the rule table,
	// so a title mentioning both routes to quality.
	got := c.Suggest(SuggestInput{Title: "crash on login page", Type: models.TaskTypeBug}, nil)
	if got.Category.Team != "quality" {
		t.Errorf("team = %q, want quality (first matching rule)", got.Category.Team)
	}
}

func TestSuggest_FallbackByType(t *testing.T) {
	c := NewCategorizer(nil)

	tests := []struct {
		taskType   models.TaskType
		wantPrefix string
	}{
		{models.TaskTypeBug, "fix-"},
		{models.TaskTypeFeature, "feat-"},
		{models.TaskTypeChore, "task-"},
	}

	for _, tt := range tests {
		got := c.Suggest(SuggestInput{Title: "something nondescript", Type: tt.taskType}, nil)
		if got.Category.Team != "general" {
			t.Errorf("type %s: team = %q, want general", tt.taskType, got.Category.Team)
		}
		if !strings.HasPrefix(got.BranchName, tt.wantPrefix) {
			t.Errorf("type %s: branch %q missing prefix %q", tt.taskType, got.BranchName, tt.wantPrefix)
		}
	}
}

func TestSuggest_UniqueAgainstExisting(t *testing.T) {
	c := NewCategorizer(nil)
	input := SuggestInput{Title: "App crash on startup", Type: models.TaskTypeBug}

	base := c.Suggest(input, nil).BranchName

	got := c.Suggest(input, []string{base}).BranchName
	if got != base+"-2" {
		t.Errorf("first collision = %q, want %q", got, base+"-2")
	}

	got = c.Suggest(input, []string{base, base + "-2"}).BranchName
	if got != base+"-3" {
		t.Errorf("second collision = %q, want %q", got, base+"-3")
	}
}

func TestSuggest_EmptyTitleGetsPlaceholderSlug(t *testing.T) {
	c := NewCategorizer(nil)

	got := c.Suggest(SuggestInput{Title: "!!!", Type: models.TaskTypeChore}, nil)
	if got.BranchName != "task-work-item" {
		t.Errorf("branch = %q, want task-work-item", got.BranchName)
	}
}

func TestSuggest_BranchNameValidates(t *testing.T) {
	c := NewCategorizer(nil)
	r := NewPathResolver("/data", 0)

	inputs := []SuggestInput{
		{Title: "Fix OAuth2 Token Refresh (Prod!)", Type: models.TaskTypeBug},
		{Title: strings.Repeat("very long title ", 10), Type: models.TaskTypeFeature},
		{Title: "Crash --- everywhere", Type: models.TaskTypeBug},
	}
	for _, in := range inputs {
		got := c.Suggest(in, nil)
		if v := r.ValidateBranchName(got.BranchName); !v.Valid {
			t.Errorf("Suggest(%q) branch %q invalid: %v", in.Title, got.BranchName, v.Errors)
		}
	}
}
