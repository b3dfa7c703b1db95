package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/grovekit/grove/internal/core"
	"github.com/grovekit/grove/pkg/models"
)

// Dashboard panel indices.
const (
	panelProjects = iota
	panelQueues
	dashPanelCount
)

type dashboardModel struct {
	activePanel int
	width       int
	height      int

	// Data.
	projects []projectSnapshot
	queues   []queueSnapshot

	// State.
	loading bool
	err     error
}

type projectSnapshot struct {
	name    string
	status  models.ProjectSyncStatus
	records []models.SyncRecord
}

type queueSnapshot struct {
	project string
	branch  string
	stats   models.QueueStats
}

// dashDataMsg carries loaded data back to the model.
type dashDataMsg struct {
	projects []projectSnapshot
	queues   []queueSnapshot
	err      error
}

// Style definitions.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("28")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2)

	activePanelStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("28")).
				Padding(1, 2)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("28")).
			MarginBottom(1)

	statusSynced   = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	statusPending  = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	statusConflict = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	statusErrored  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	statusOther    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func newDashboardModel() dashboardModel {
	return dashboardModel{
		activePanel: panelProjects,
		loading:     true,
	}
}

func (m dashboardModel) Init() tea.Cmd {
	return loadDashData
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.activePanel = (m.activePanel + 1) % dashPanelCount
			return m, nil
		case "r":
			m.loading = true
			return m, loadDashData
		case "s":
			m.loading = true
			return m, runSyncAndReload
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case dashDataMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.projects = msg.projects
		m.queues = msg.queues
		m.err = nil
		return m, nil
	}

	return m, nil
}

func (m dashboardModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := titleStyle.Render(" Grove Dashboard ")
	help := helpStyle.Render("tab: switch panel | s: sync now | r: refresh | q: quit")

	if m.loading {
		return fmt.Sprintf("%s\n\n  Loading data...\n\n%s", title, help)
	}
	if m.err != nil {
		return fmt.Sprintf("%s\n\n  Error: %s\n\n%s", title, m.err, help)
	}

	projectsPanel := m.renderProjectsPanel()
	queuesPanel := m.renderQueuesPanel()

	availableWidth := m.width - 2
	var body string
	if availableWidth > 100 {
		colWidth := availableWidth / 2
		projectsPanel = m.applyPanelStyle(panelProjects, projectsPanel, colWidth-4)
		queuesPanel = m.applyPanelStyle(panelQueues, queuesPanel, colWidth-4)
		body = lipgloss.JoinHorizontal(lipgloss.Top, projectsPanel, queuesPanel)
	} else {
		panelWidth := availableWidth - 4
		if panelWidth < 20 {
			panelWidth = 20
		}
		projectsPanel = m.applyPanelStyle(panelProjects, projectsPanel, panelWidth)
		queuesPanel = m.applyPanelStyle(panelQueues, queuesPanel, panelWidth)
		body = lipgloss.JoinVertical(lipgloss.Left, projectsPanel, queuesPanel)
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, body, help)
}

func (m dashboardModel) applyPanelStyle(panel int, content string, width int) string {
	style := panelStyle
	if m.activePanel == panel {
		style = activePanelStyle
	}
	return style.Width(width).Render(content)
}

func (m dashboardModel) renderProjectsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Sync"))
	b.WriteString("\n")

	if len(m.projects) == 0 {
		b.WriteString("  No projects found.")
		return b.String()
	}

	for _, p := range m.projects {
		label := fmt.Sprintf("  %-18s %s", p.name, strings.ToUpper(string(p.status)))
		b.WriteString(styleForSyncStatus(string(p.status)).Render(label))
		b.WriteString("\n")
		for _, r := range p.records {
			if !r.NeedsAttention {
				continue
			}
			line := fmt.Sprintf("    %s: %s", r.Branch, r.Message)
			b.WriteString(styleForSyncStatus(string(r.Status)).Render(line))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m dashboardModel) renderQueuesPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Queues"))
	b.WriteString("\n")

	if len(m.queues) == 0 {
		b.WriteString("  No queued work.")
		return b.String()
	}

	b.WriteString(fmt.Sprintf("  %-28s %7s %6s\n", "CHECKOUT", "PENDING", "ACTIVE"))
	for _, q := range m.queues {
		b.WriteString(fmt.Sprintf("  %-28s %7d %6d\n",
			core.QueueKey(q.project, q.branch), q.stats.PendingCount, q.stats.ActiveCount))
	}
	return b.String()
}

func styleForSyncStatus(status string) lipgloss.Style {
	switch status {
	case string(models.SyncSynced):
		return statusSynced
	case string(models.SyncPending):
		return statusPending
	case string(models.SyncConflict), string(models.ProjectAttention):
		return statusConflict
	case string(models.SyncError):
		return statusErrored
	default:
		return statusOther
	}
}

func loadDashData() tea.Msg {
	result := dashDataMsg{}

	projects, err := Checkouts.ListProjects()
	if err != nil {
		result.err = fmt.Errorf("loading projects: %w", err)
		return result
	}
	sort.Strings(projects)

	byProject := make(map[string][]models.SyncRecord)
	for _, r := range SyncEng.AllRecords() {
		byProject[r.Project] = append(byProject[r.Project], r)
	}

	ctx := context.Background()
	for _, p := range projects {
		records := byProject[p]
		result.projects = append(result.projects, projectSnapshot{
			name:    p,
			status:  core.AggregateProjectStatus(records),
			records: records,
		})

		checkouts, listErr := Checkouts.ListCheckouts(ctx, p)
		if listErr != nil {
			continue
		}
		for _, c := range checkouts {
			stats, statsErr := Queue.Stats(c.Project, c.Branch)
			if statsErr != nil || (stats.PendingCount == 0 && stats.ActiveCount == 0) {
				continue
			}
			result.queues = append(result.queues, queueSnapshot{
				project: c.Project, branch: c.Branch, stats: stats,
			})
		}
	}

	return result
}

func runSyncAndReload() tea.Msg {
	if _, err := SyncEng.SyncAll(context.Background()); err != nil {
		return dashDataMsg{err: fmt.Errorf("syncing: %w", err)}
	}
	return loadDashData()
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive TUI dashboard for sync health and queues",
	Long: `Launch an interactive terminal dashboard showing per-project sync
status and queue depth in a live view.

Navigate between panels with Tab, trigger a sync with s, refresh with r,
quit with q.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if SyncEng == nil || Checkouts == nil || Queue == nil {
			return fmt.Errorf("services not initialized")
		}
		p := tea.NewProgram(newDashboardModel(), tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}
