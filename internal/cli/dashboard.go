package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/valter-silva-au/projitive/pkg/models"
)

// Dashboard panel indices.
const (
	panelQueue = iota
	panelProjects
	panelLint
	panelCount
)

// dashboardQueueSize is how many ranked candidates the queue panel shows.
const dashboardQueueSize = 10

type dashboardModel struct {
	activePanel int
	width       int
	height      int

	// Data.
	queue    []queueEntry
	projects []projectEntry
	lint     []lintEntry

	// State.
	loading bool
	err     error
}

type queueEntry struct {
	project string
	id      string
	title   string
	status  models.TaskStatus
	score   int
}

type projectEntry struct {
	dir    string
	counts map[string]int
	score  int
}

type lintEntry struct {
	project  string
	problems int
	codes    []string
}

// dataLoadedMsg carries loaded data back to the model.
type dataLoadedMsg struct {
	queue    []queueEntry
	projects []projectEntry
	lint     []lintEntry
	err      error
}

// Style definitions.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2)

	activePanelStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62")).
				Padding(1, 2)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			MarginBottom(1)

	lintCleanStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	lintDirtyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func newDashboardModel() dashboardModel {
	return dashboardModel{
		activePanel: panelQueue,
		loading:     true,
	}
}

func (m dashboardModel) Init() tea.Cmd {
	return loadData
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.activePanel = (m.activePanel + 1) % panelCount
			return m, nil
		case "shift+tab":
			m.activePanel = (m.activePanel - 1 + panelCount) % panelCount
			return m, nil
		case "r":
			m.loading = true
			return m, loadData
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case dataLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.queue = msg.queue
		m.projects = msg.projects
		m.lint = msg.lint
		m.err = nil
		return m, nil
	}

	return m, nil
}

func (m dashboardModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := titleStyle.Render(" projitive ")
	help := helpStyle.Render("tab: switch panel | r: refresh | q: quit")

	if m.loading {
		return fmt.Sprintf("%s\n\n  Loading data...\n\n%s", title, help)
	}

	if m.err != nil {
		return fmt.Sprintf("%s\n\n  Error: %s\n\n%s", title, m.err, help)
	}

	queuePanel := m.renderQueuePanel()
	projectsPanel := m.renderProjectsPanel()
	lintPanel := m.renderLintPanel()

	// Available width for panels after accounting for margins.
	availableWidth := m.width - 2

	var body string
	if availableWidth > 120 {
		colWidth := availableWidth / 3
		queuePanel = m.applyPanelStyle(panelQueue, queuePanel, colWidth-4)
		projectsPanel = m.applyPanelStyle(panelProjects, projectsPanel, colWidth-4)
		lintPanel = m.applyPanelStyle(panelLint, lintPanel, colWidth-4)
		body = lipgloss.JoinHorizontal(lipgloss.Top, queuePanel, projectsPanel, lintPanel)
	} else {
		panelWidth := availableWidth - 4
		if panelWidth < 20 {
			panelWidth = 20
		}
		queuePanel = m.applyPanelStyle(panelQueue, queuePanel, panelWidth)
		projectsPanel = m.applyPanelStyle(panelProjects, projectsPanel, panelWidth)
		lintPanel = m.applyPanelStyle(panelLint, lintPanel, panelWidth)
		body = lipgloss.JoinVertical(lipgloss.Left, queuePanel, projectsPanel, lintPanel)
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

func (m dashboardModel) renderQueuePanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Next up"))
	b.WriteString("\n")

	if len(m.queue) == 0 {
		b.WriteString("  Nothing actionable.")
		return b.String()
	}

	for i, e := range m.queue {
		label := fmt.Sprintf("%2d. %s %s", i+1, e.id, e.title)
		b.WriteString(styleForStatus(e.status).Render(label))
		b.WriteString(helpStyle.Render(fmt.Sprintf("  %s", e.project)))
		b.WriteString("\n")
	}

	return b.String()
}

func (m dashboardModel) renderProjectsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Projects"))
	b.WriteString("\n")

	if len(m.projects) == 0 {
		b.WriteString("  No governance roots found.")
		return b.String()
	}

	for _, p := range m.projects {
		b.WriteString(fmt.Sprintf("  %s (score %d)\n", p.dir, p.score))
		parts := make([]string, 0, len(models.AllStatuses()))
		for _, st := range models.AllStatuses() {
			parts = append(parts, styleForStatus(st).Render(fmt.Sprintf("%s %d", st, p.counts[string(st)])))
		}
		b.WriteString("    " + strings.Join(parts, "  ") + "\n")
	}

	return b.String()
}

func (m dashboardModel) renderLintPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Lint"))
	b.WriteString("\n")

	if len(m.lint) == 0 {
		b.WriteString("  No ledgers to lint.")
		return b.String()
	}

	total := 0
	for _, l := range m.lint {
		total += l.problems
		if l.problems == 0 {
			b.WriteString(lintCleanStyle.Render(fmt.Sprintf("  %s clean", l.project)))
			b.WriteString("\n")
			continue
		}
		b.WriteString(lintDirtyStyle.Render(fmt.Sprintf("  %s %d problem(s)", l.project, l.problems)))
		b.WriteString("\n")
		for _, code := range l.codes {
			b.WriteString(fmt.Sprintf("    %s\n", code))
		}
	}
	b.WriteString(fmt.Sprintf("\n  Total: %d", total))

	return b.String()
}

func loadData() tea.Msg {
	result := dataLoadedMsg{}
	if ProjectSvc == nil {
		return result
	}
	ctx := context.Background()

	candidates, err := ProjectSvc.NextTasks(ctx, dashboardQueueSize)
	if err != nil {
		result.err = fmt.Errorf("ranking tasks: %w", err)
		return result
	}
	for _, c := range candidates {
		result.queue = append(result.queue, queueEntry{
			project: filepath.Base(c.GovernanceDir),
			id:      c.Task.ID,
			title:   c.Task.Title,
			status:  c.Task.Status,
			score:   c.ProjectScore,
		})
	}

	projects, err := ProjectSvc.ScanProjects(ctx)
	if err != nil {
		result.err = fmt.Errorf("scanning projects: %w", err)
		return result
	}
	for _, p := range projects {
		result.projects = append(result.projects, projectEntry{dir: p.GovernanceDir, counts: p.Counts, score: p.Score})

		report, err := ProjectSvc.LintProject(ctx, p.GovernanceDir)
		if err != nil {
			result.err = fmt.Errorf("linting %s: %w", p.GovernanceDir, err)
			return result
		}
		entry := lintEntry{project: filepath.Base(p.GovernanceDir), problems: len(report.Suggestions) + len(report.SchemaIssues)}
		for _, s := range report.Suggestions {
			entry.codes = append(entry.codes, s.Code)
		}
		result.lint = append(result.lint, entry)
	}

	return result
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive TUI of the ranked queue, project counts and lint",
	Long: `Launch an interactive terminal dashboard showing what to work on next,
per-project task counts and lint problems across every governance root.

Navigate between panels with Tab, refresh with r, quit with q.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if ProjectSvc == nil {
			return fmt.Errorf("project service not initialized")
		}
		p := tea.NewProgram(newDashboardModel(), tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}
