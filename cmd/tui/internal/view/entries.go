package view

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/billing"
	"github.com/MrJamesThe3rd/tally/internal/tracker"
)

type entriesState int

const (
	entriesStateBrowse entriesState = iota
	entriesStateTimeframe
	entriesStateForm
)

type entriesForm int

const (
	formEntry entriesForm = iota
	formDeleteEntry
	formDetach
)

type EntriesModel struct {
	CommonModel
	tracker *tracker.Service

	state   entriesState
	table   table.Model
	entries []tracker.WorkEntry
	picker  TimeframePicker
	form    *huh.Form
	kind    entriesForm
	editing *tracker.WorkEntry

	timeframe Timeframe
	window    billing.Window
	status    string

	// Form field bindings
	fields *entryFields
}

type entryFields struct {
	date        string
	subClientID uuid.UUID
	project     string
	description string
	hours       string
	rate        string
	confirm     bool
	attachment  int
}

func NewEntriesModel(t *tracker.Service) EntriesModel {
	columns := []table.Column{
		{Title: "Date", Width: 12},
		{Title: "Client", Width: 14},
		{Title: "Sub-Client", Width: 14},
		{Title: "Project", Width: 14},
		{Title: "Description", Width: 24},
		{Title: "Hours", Width: 6},
		{Title: "Rate", Width: 10},
		{Title: "Bill", Width: 11},
		{Title: "Invoiced", Width: 8},
		{Title: "Paid", Width: 5},
		{Title: "Files", Width: 5},
	}

	m := EntriesModel{
		tracker:   t,
		table:     newTable(columns),
		picker:    NewTimeframePicker(TimeframeThisWeek),
		timeframe: TimeframeThisWeek,
		window:    TimeframeWindow(TimeframeThisWeek, time.Now()),
	}
	m.refresh()

	return m
}

func (m EntriesModel) Title() string { return "Work Entries" }

func (m EntriesModel) ShortHelp() string {
	switch m.state {
	case entriesStateForm:
		return "Esc: cancel | Enter/Tab: navigate form"
	case entriesStateTimeframe:
		return "Esc: back | Enter: select"
	}

	return "Esc: back | n: new | e: edit | d: delete | p: paid | a: attach | x: detach | t: timeframe"
}

func (m EntriesModel) Init() tea.Cmd {
	return nil
}

func (m EntriesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case TimeframeSelectedMsg:
		m.timeframe = msg.Timeframe
		m.window = msg.Window
		m.state = entriesStateBrowse
		m.picker.Reset()
		m.table.Focus()
		m.refresh()

		return m, nil

	case entrySaveMsg:
		if msg.err != nil {
			m.status = errorText(msg.err)
		} else {
			m.status = successText(msg.status)
		}

		m.refresh()

		return m, nil

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil
	}

	switch m.state {
	case entriesStateTimeframe:
		return m.updateTimeframe(msg)
	case entriesStateForm:
		return m.updateForm(msg)
	}

	return m.updateBrowse(msg)
}

func (m EntriesModel) updateTimeframe(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if keyMsg.Type == tea.KeyEsc && m.picker.IsSelecting() {
			m.state = entriesStateBrowse
			m.table.Focus()

			return m, nil
		}
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)

	return m, cmd
}

func (m EntriesModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "t":
			m.state = entriesStateTimeframe
			m.table.Blur()

			return m, nil
		case "n":
			return m.openEntryForm(nil)
		case "e", "enter":
			if e := m.selected(); e != nil {
				return m.openEntryForm(e)
			}
		case "d":
			if e := m.selected(); e != nil {
				return m.openDeleteForm(e)
			}
		case "p":
			if e := m.selected(); e != nil {
				return m, m.setPaidCmd(e.ID, !e.Paid)
			}
		case "a":
			if e := m.selected(); e != nil {
				return m, m.attachCmd(e.ID)
			}
		case "x":
			if e := m.selected(); e != nil {
				return m.openDetachForm(e)
			}
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m EntriesModel) selected() *tracker.WorkEntry {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.entries) {
		return nil
	}

	e := m.entries[idx]

	return &e
}

func (m EntriesModel) openEntryForm(e *tracker.WorkEntry) (tea.Model, tea.Cmd) {
	subs := m.tracker.SubClients()
	if len(subs) == 0 {
		m.status = errorText(errors.New("add a client and sub-client first"))
		return m, nil
	}

	options := make([]huh.Option[uuid.UUID], len(subs))
	for i, sc := range subs {
		client, _ := m.tracker.Names(sc.ClientID, sc.ID)
		options[i] = huh.NewOption(client+" / "+sc.Name, sc.ID)
	}

	m.kind = formEntry
	m.editing = e
	m.fields = &entryFields{
		date:        FormatDate(time.Now()),
		subClientID: subs[0].ID,
	}

	title := "New Work Entry"
	description := "Leave the rate blank to use the client's rate"

	if e != nil {
		title = "Edit Work Entry"
		m.fields.date = FormatDate(e.Date)
		m.fields.subClientID = e.SubClientID
		m.fields.project = e.Project
		m.fields.description = e.TaskDescription
		m.fields.hours = e.Hours.String()
		m.fields.rate = e.Rate.String()

		if e.Invoiced {
			description = "Invoiced: hours, rate and sub-client are locked"
		}
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewNote().Title(title).Description(description),

			huh.NewInput().
				Key("date").
				Title("Date").
				Placeholder("YYYY-MM-DD").
				Value(&m.fields.date).
				Validate(func(s string) error {
					if _, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(s), time.Local); err != nil {
						return fmt.Errorf("use YYYY-MM-DD")
					}

					return nil
				}),

			huh.NewSelect[uuid.UUID]().
				Key("sub_client").
				Title("Client / Sub-client").
				Options(options...).
				Value(&m.fields.subClientID),

			huh.NewInput().
				Key("project").
				Title("Project").
				Value(&m.fields.project),

			huh.NewText().
				Key("description").
				Title("Task description").
				Lines(3).
				Value(&m.fields.description),

			huh.NewInput().
				Key("hours").
				Title("Hours").
				Value(&m.fields.hours).
				Validate(positiveDecimal),

			huh.NewInput().
				Key("rate").
				Title("Rate").
				Value(&m.fields.rate).
				Validate(nonNegativeDecimal),
		),
	).WithWidth(60).WithShowHelp(false)

	m.state = entriesStateForm
	m.table.Blur()

	return m, m.form.Init()
}

func (m EntriesModel) openDeleteForm(e *tracker.WorkEntry) (tea.Model, tea.Cmd) {
	m.kind = formDeleteEntry
	m.editing = e
	m.fields = &entryFields{}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Key("confirm").
				Title(fmt.Sprintf("Delete the %s entry for %s?", FormatDate(e.Date), e.TaskDescription)).
				Affirmative("Delete").
				Negative("Cancel").
				Value(&m.fields.confirm),
		),
	).WithWidth(50).WithShowHelp(false)

	m.state = entriesStateForm
	m.table.Blur()

	return m, m.form.Init()
}

func (m EntriesModel) openDetachForm(e *tracker.WorkEntry) (tea.Model, tea.Cmd) {
	if len(e.FileAttachments) == 0 {
		m.status = faint("No files attached.")
		return m, nil
	}

	options := make([]huh.Option[int], len(e.FileAttachments))
	for i, name := range e.FileAttachments {
		options[i] = huh.NewOption(name, i)
	}

	m.kind = formDetach
	m.editing = e
	m.fields = &entryFields{}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().
				Key("attachment").
				Title("Remove attachment").
				Options(options...).
				Value(&m.fields.attachment),
		),
	).WithWidth(50).WithShowHelp(false)

	m.state = entriesStateForm
	m.table.Blur()

	return m, m.form.Init()
}

func (m EntriesModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = entriesStateBrowse
		m.form = nil
		m.table.Focus()

		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	save := m.saveCmd()
	m.state = entriesStateBrowse
	m.form = nil
	m.table.Focus()

	return m, save
}

func (m EntriesModel) View() string {
	if m.state == entriesStateTimeframe {
		return lipgloss.NewStyle().Padding(1).Render(m.picker.View())
	}

	header := fmt.Sprintf("[t] Timeframe: %s", activeStyle(m.timeframe.String()))
	if m.timeframe != TimeframeAll {
		header += faint(fmt.Sprintf("  %s - %s", FormatDate(m.window.Start), FormatDate(m.window.End)))
	}

	total := decimal.Zero
	for _, e := range m.entries {
		total = total.Add(e.Bill)
	}

	header += fmt.Sprintf("  |  %d entries, %s", len(m.entries), billing.FormatCurrency(total))

	tableView := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View())

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		tableView,
	)

	if m.state == entriesStateForm && m.form != nil {
		panel := lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Width(64).
			Render(m.form.View())

		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
	}

	if m.status != "" {
		content = m.status + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m *EntriesModel) refresh() {
	all := m.tracker.WorkEntries()

	m.entries = nil

	for _, e := range all {
		if m.timeframe == TimeframeAll || m.window.Contains(e.Date) {
			m.entries = append(m.entries, e)
		}
	}

	slices.SortStableFunc(m.entries, func(a, b tracker.WorkEntry) int {
		return b.Date.Compare(a.Date)
	})

	rows := make([]table.Row, 0, len(m.entries))
	for _, e := range m.entries {
		client, sub := m.tracker.Names(e.ClientID, e.SubClientID)
		rows = append(rows, table.Row{
			FormatDate(e.Date),
			client,
			sub,
			e.Project,
			e.TaskDescription,
			billing.FormatHours(e.Hours),
			billing.FormatCurrency(e.Rate),
			billing.FormatCurrency(e.Bill),
			FormatFlag(e.Invoiced),
			FormatFlag(e.Paid),
			fmt.Sprint(len(e.FileAttachments)),
		})
	}

	m.table.SetRows(rows)

	if m.table.Cursor() >= len(rows) && len(rows) > 0 {
		m.table.SetCursor(len(rows) - 1)
	}
}

func positiveDecimal(s string) error {
	d, err := parseAmount(s)
	if err != nil {
		return err
	}

	if !d.IsPositive() {
		return fmt.Errorf("hours must be greater than zero")
	}

	return nil
}

// Messages

type entrySaveMsg struct {
	status string
	err    error
}

func (m EntriesModel) saveCmd() tea.Cmd {
	svc := m.tracker
	kind := m.kind
	editing := m.editing
	fields := *m.fields

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		switch kind {
		case formDeleteEntry:
			if !fields.confirm {
				return entrySaveMsg{status: "Nothing deleted."}
			}

			return entrySaveMsg{status: "Entry deleted.", err: svc.DeleteWorkEntry(ctx, editing.ID)}

		case formDetach:
			return entrySaveMsg{status: "Attachment removed.", err: svc.DetachFile(ctx, editing.ID, fields.attachment)}
		}

		params, err := entryParams(svc, editing, fields)
		if err != nil {
			return entrySaveMsg{err: err}
		}

		if editing == nil {
			_, err = svc.AddWorkEntry(ctx, params)
			return entrySaveMsg{status: "Entry added.", err: err}
		}

		_, err = svc.UpdateWorkEntry(ctx, editing.ID, params)

		return entrySaveMsg{status: "Entry updated.", err: err}
	}
}

// entryParams builds the request from the form. A blank rate takes the client's rate.
func entryParams(svc *tracker.Service, editing *tracker.WorkEntry, f entryFields) (tracker.WorkEntryParams, error) {
	var params tracker.WorkEntryParams
	if editing != nil {
		params = tracker.ParamsFrom(*editing)
	}

	date, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(f.date), time.Local)
	if err != nil {
		return params, fmt.Errorf("invalid date %q", f.date)
	}

	sub, err := svc.SubClient(f.subClientID)
	if err != nil {
		return params, err
	}

	hours, err := parseAmount(f.hours)
	if err != nil {
		return params, err
	}

	rate, err := parseAmount(f.rate)
	if err != nil {
		return params, err
	}

	if strings.TrimSpace(f.rate) == "" {
		client, err := svc.Client(sub.ClientID)
		if err != nil {
			return params, err
		}

		rate = client.Rate
	}

	params.Date = date
	params.ClientID = sub.ClientID
	params.SubClientID = sub.ID
	params.Project = f.project
	params.TaskDescription = f.description
	params.Hours = hours
	params.Rate = rate

	return params, nil
}

func (m EntriesModel) setPaidCmd(id uuid.UUID, paid bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		status := "Marked unpaid."
		if paid {
			status = "Marked paid."
		}

		return entrySaveMsg{status: status, err: m.tracker.SetPaid(ctx, id, paid)}
	}
}

func (m EntriesModel) attachCmd(id uuid.UUID) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		name, err := m.tracker.AttachFile(ctx, id)

		return entrySaveMsg{status: fmt.Sprintf("Attached %s.", name), err: err}
	}
}
