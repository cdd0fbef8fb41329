package view

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/billing"
	"github.com/MrJamesThe3rd/tally/internal/export"
	"github.com/MrJamesThe3rd/tally/internal/tracker"
)

const exportTimeout = 2 * time.Minute

type invoicesState int

const (
	invoicesStateList invoicesState = iota
	invoicesStateDetail
	invoicesStateWorking
)

type InvoicesModel struct {
	CommonModel
	tracker       *tracker.Service
	exportService *export.Service

	state    invoicesState
	table    table.Model
	invoices []tracker.Invoice
	detail   viewport.Model
	spinner  spinner.Model
	working  string
	status   string
}

func NewInvoicesModel(t *tracker.Service, exp *export.Service) InvoicesModel {
	columns := []table.Column{
		{Title: "Number", Width: 18},
		{Title: "Period", Width: 25},
		{Title: "Entries", Width: 8},
		{Title: "Total", Width: 14},
		{Title: "Created", Width: 12},
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	m := InvoicesModel{
		tracker:       t,
		exportService: exp,
		table:         newTable(columns),
		detail:        viewport.New(80, 20),
		spinner:       s,
	}
	m.refresh()

	return m
}

func (m InvoicesModel) Title() string { return "Invoices" }

func (m InvoicesModel) ShortHelp() string {
	switch m.state {
	case invoicesStateDetail:
		return "Esc: back | e: export PDF | ↑/↓: scroll"
	case invoicesStateWorking:
		return "Working..."
	}

	return "Esc: back | g: generate last week | Enter: view | e: export PDF"
}

func (m InvoicesModel) Init() tea.Cmd {
	return nil
}

func (m InvoicesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case invoiceResultMsg:
		m.state = invoicesStateList
		m.table.Focus()

		switch {
		case errors.Is(msg.err, tracker.ErrNoEntries):
			m.status = faint("Nothing to invoice: no uninvoiced entries last week.")
		case msg.err != nil:
			m.status = errorText(msg.err)
		default:
			m.status = successText(msg.status)
		}

		m.refresh()

		return m, nil

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		m.detail.Width = msg.Width - 4
		m.detail.Height = msg.Height - 8

		return m, nil
	}

	switch m.state {
	case invoicesStateWorking:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd
	case invoicesStateDetail:
		return m.updateDetail(msg)
	}

	return m.updateList(msg)
}

func (m InvoicesModel) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "g":
			return m.startWork("Generating invoice...", m.generateCmd())
		case "enter":
			if inv := m.selected(); inv != nil {
				m.state = invoicesStateDetail
				m.detail.SetContent(m.exportService.Summary(*inv))
				m.detail.GotoTop()
				m.table.Blur()
			}

			return m, nil
		case "e":
			if inv := m.selected(); inv != nil {
				return m.startWork("Exporting "+inv.InvoiceNumber+"...", m.exportCmd(inv.ID))
			}
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m InvoicesModel) updateDetail(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			m.state = invoicesStateList
			m.table.Focus()

			return m, nil
		case "e":
			if inv := m.selected(); inv != nil {
				return m.startWork("Exporting "+inv.InvoiceNumber+"...", m.exportCmd(inv.ID))
			}
		}
	}

	var cmd tea.Cmd
	m.detail, cmd = m.detail.Update(msg)

	return m, cmd
}

func (m InvoicesModel) startWork(label string, cmd tea.Cmd) (tea.Model, tea.Cmd) {
	m.state = invoicesStateWorking
	m.working = label
	m.status = ""
	m.table.Blur()

	return m, tea.Batch(m.spinner.Tick, cmd)
}

func (m InvoicesModel) selected() *tracker.Invoice {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.invoices) {
		return nil
	}

	inv := m.invoices[idx]

	return &inv
}

func (m InvoicesModel) View() string {
	switch m.state {
	case invoicesStateWorking:
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("%s %s", m.spinner.View(), m.working))
	case invoicesStateDetail:
		return lipgloss.NewStyle().Padding(1).Render(m.detail.View())
	}

	var body string
	if len(m.invoices) == 0 {
		body = "No invoices yet. Press g to invoice last week's work."
	} else {
		body = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			Render(m.table.View())
	}

	if m.status != "" {
		body = m.status + "\n\n" + body
	}

	return lipgloss.NewStyle().Padding(1).Render(body)
}

func (m *InvoicesModel) refresh() {
	m.invoices = m.tracker.Invoices()

	slices.SortStableFunc(m.invoices, func(a, b tracker.Invoice) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	rows := make([]table.Row, 0, len(m.invoices))
	for _, inv := range m.invoices {
		rows = append(rows, table.Row{
			inv.InvoiceNumber,
			FormatDate(inv.StartDate) + " - " + FormatDate(inv.EndDate),
			fmt.Sprint(len(inv.Entries)),
			billing.FormatCurrency(inv.TotalAmount),
			FormatDate(inv.CreatedAt),
		})
	}

	m.table.SetRows(rows)
}

// Messages

type invoiceResultMsg struct {
	status string
	err    error
}

func (m InvoicesModel) generateCmd() tea.Cmd {
	svc := m.tracker

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		inv, err := svc.GenerateWeeklyInvoice(ctx)
		if err != nil {
			return invoiceResultMsg{err: err}
		}

		return invoiceResultMsg{status: fmt.Sprintf(
			"Created %s: %d entries, %s.", inv.InvoiceNumber, len(inv.Entries), billing.FormatCurrency(inv.TotalAmount),
		)}
	}
}

func (m InvoicesModel) exportCmd(id uuid.UUID) tea.Cmd {
	svc := m.exportService

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), exportTimeout)
		defer cancel()

		path, err := svc.Export(ctx, id)
		if err != nil {
			return invoiceResultMsg{err: err}
		}

		return invoiceResultMsg{status: "Saved " + path}
	}
}
