package models

// WorkItem is the read-only view of an incoming work item: a markdown file
// whose YAML front matter supplies the routing fields. The engine never
// edits work-item content.
type WorkItem struct {
	ID             string   `yaml:"id"`
	Title          string   `yaml:"title"`
	Type           TaskType `yaml:"type"`
	Priority       Priority `yaml:"priority"`
	Project        string   `yaml:"project"`
	Branch         string   `yaml:"branch,omitempty"` // explicit branch request, optional
	FunctionalArea string   `yaml:"area,omitempty"`
	Description    string   `yaml:"-"` // markdown body below the front matter
}
