// Package core contains the business logic for Grove: checkout path
// resolution, branch name validation, work-item categorization, the
// per-checkout task queue, and project-level sync aggregation.
package core

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// DefaultBranchMaxLength is the branch name length limit applied when the
// configuration does not override it.
const DefaultBranchMaxLength = 50

// validBranchName matches fully normalized branch names.
var validBranchName = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// unsafeBranchChars matches characters outside the accepted branch alphabet.
var unsafeBranchChars = regexp.MustCompile(`[^a-z0-9-]+`)

// collapseHyphens collapses consecutive hyphens into a single hyphen.
var collapseHyphens = regexp.MustCompile(`-{2,}`)

// BranchValidation reports the outcome of validating a branch name. Invalid
// input yields actionable suggestions; the input itself is never silently
// rewritten. Callers must re-validate a suggestion before using it.
type BranchValidation struct {
	Valid       bool
	Normalized  string
	Errors      []string
	Suggestions []string
}

// PathResolver maps (project, branch) pairs to canonical checkout paths
// under a hierarchical root and validates branch names. It never consults
// the filesystem.
type PathResolver struct {
	root      string
	maxLength int
}

// NewPathResolver creates a PathResolver rooted at root. maxLength bounds
// accepted branch names; values <= 0 fall back to DefaultBranchMaxLength.
func NewPathResolver(root string, maxLength int) *PathResolver {
	if maxLength <= 0 {
		maxLength = DefaultBranchMaxLength
	}
	return &PathResolver{root: root, maxLength: maxLength}
}

// Root returns the checkout root directory.
func (r *PathResolver) Root() string { return r.root }

// ResolvePath returns the canonical checkout path for (project, branch):
// <root>/<project>/<branch>. The mapping is deterministic and pure.
func (r *PathResolver) ResolvePath(project, branch string) string {
	return filepath.Join(r.root, project, branch)
}

// ProjectDir returns the directory holding all checkouts of a project.
func (r *PathResolver) ProjectDir(project string) string {
	return filepath.Join(r.root, project)
}

// ValidateBranchName checks name against the branch naming rules: lowercase,
// only [a-z0-9-], no leading/trailing/consecutive hyphens, and at most the
// configured maximum length. For invalid input the result carries one error
// per violated rule and, when a usable candidate can be derived, a suggestion.
func (r *PathResolver) ValidateBranchName(name string) BranchValidation {
	v := BranchValidation{}

	if name == "" {
		v.Errors = append(v.Errors, "branch name must not be empty")
		return v
	}
	if strings.ToLower(name) != name {
		v.Errors = append(v.Errors, "branch name must be lowercase")
	}
	if unsafeBranchChars.MatchString(strings.ToLower(name)) {
		v.Errors = append(v.Errors, "branch name may only contain a-z, 0-9, and hyphens")
	}
	if strings.HasPrefix(name, "-") || strings.HasSuffix(name, "-") {
		v.Errors = append(v.Errors, "branch name must not start or end with a hyphen")
	}
	if strings.Contains(name, "--") {
		v.Errors = append(v.Errors, "branch name must not contain consecutive hyphens")
	}
	if len(name) > r.maxLength {
		v.Errors = append(v.Errors, fmt.Sprintf("branch name exceeds %d characters", r.maxLength))
	}

	if len(v.Errors) == 0 {
		v.Valid = true
		v.Normalized = name
		return v
	}

	if suggestion := Slugify(name, r.maxLength); suggestion != "" && suggestion != name {
		v.Suggestions = append(v.Suggestions, suggestion)
	}
	return v
}

// Slugify converts free text into a branch-safe slug: lowercased, unsafe
// characters replaced with hyphens, hyphens collapsed and trimmed, and the
// result truncated to maxLength without leaving a trailing hyphen.
func Slugify(s string, maxLength int) string {
	s = strings.ToLower(s)
	s = unsafeBranchChars.ReplaceAllString(s, "-")
	s = collapseHyphens.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if maxLength > 0 && len(s) > maxLength {
		s = strings.TrimRight(s[:maxLength], "-")
	}
	return s
}
