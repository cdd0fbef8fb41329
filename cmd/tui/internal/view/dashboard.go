package view

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/tally/internal/billing"
	"github.com/MrJamesThe3rd/tally/internal/tracker"
)

type DashboardModel struct {
	CommonModel
	tracker *tracker.Service

	stats tracker.WeekStats
	table table.Model
}

func NewDashboardModel(t *tracker.Service) DashboardModel {
	columns := []table.Column{
		{Title: "Client", Width: 20},
		{Title: "Sub-Client", Width: 20},
		{Title: "Hours", Width: 10},
		{Title: "Billed", Width: 14},
	}

	return DashboardModel{
		tracker: t,
		table:   newTable(columns),
	}
}

// newTable builds a focused table with the shared styling.
func newTable(columns []table.Column) table.Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return t
}

func (m DashboardModel) Title() string     { return "Dashboard" }
func (m DashboardModel) ShortHelp() string { return "Esc: back | r: refresh" }

func (m DashboardModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case dashboardMsg:
		m.stats = msg.stats

		rows := make([]table.Row, 0, len(msg.summaries))
		for _, s := range msg.summaries {
			rows = append(rows, table.Row{
				s.ClientName,
				s.SubClientName,
				billing.FormatHours(s.TotalHours),
				billing.FormatCurrency(s.TotalBill),
			})
		}

		m.table.SetRows(rows)

		return m, nil

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 14)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, Back
		case "r":
			return m, m.loadCmd()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m DashboardModel) View() string {
	s := m.stats
	week := fmt.Sprintf("Last week (%s - %s)", FormatDate(s.Window.Start), FormatDate(s.Window.End))

	cards := lipgloss.JoinHorizontal(lipgloss.Top,
		card("Entries", fmt.Sprint(s.Entries)),
		card("Hours", billing.FormatHours(s.Hours)),
		card("Earned", billing.FormatCurrency(s.Earned)),
		card("Invoiced", billing.FormatCurrency(s.Invoiced)),
		card("Uninvoiced", billing.FormatCurrency(s.Uninvoiced)),
	)

	tableView := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View())

	return lipgloss.NewStyle().Padding(1).Render(lipgloss.JoinVertical(lipgloss.Left,
		activeStyle(week),
		cards,
		"",
		"Totals by sub-client",
		tableView,
	))
}

func card(label, value string) string {
	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("63")).
		Padding(0, 1).
		Width(16).
		Render(faint(label) + "\n" + lipgloss.NewStyle().Bold(true).Render(value))
}

type dashboardMsg struct {
	stats     tracker.WeekStats
	summaries []tracker.SubClientSummary
}

func (m DashboardModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		return dashboardMsg{
			stats:     m.tracker.LastWeekStats(),
			summaries: m.tracker.SubClientSummaries(),
		}
	}
}
