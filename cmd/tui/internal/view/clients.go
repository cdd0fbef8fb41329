package view

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/billing"
	"github.com/MrJamesThe3rd/tally/internal/tracker"
)

type clientsState int

const (
	clientsStateList clientsState = iota
	clientsStateForm
)

type clientsForm int

const (
	formClient clientsForm = iota
	formSubClient
	formDelete
)

// clientItem is a client row, or a sub-client row when sub is set.
type clientItem struct {
	client tracker.Client
	sub    *tracker.SubClient
}

func (i clientItem) Title() string {
	if i.sub != nil {
		return "    " + i.sub.Name
	}

	return fmt.Sprintf("%s  %s", i.client.Name, faint(billing.FormatCurrency(i.client.Rate)+"/h"))
}

func (i clientItem) Description() string { return "" }

func (i clientItem) FilterValue() string {
	if i.sub != nil {
		return i.client.Name + " " + i.sub.Name
	}

	return i.client.Name
}

type ClientsModel struct {
	CommonModel
	tracker *tracker.Service

	state   clientsState
	list    list.Model
	form    *huh.Form
	kind    clientsForm
	editing clientItem
	isNew   bool
	status  string

	// Form field bindings
	fields *clientFields
}

type clientFields struct {
	name     string
	rate     string
	clientID uuid.UUID
	confirm  bool
}

func NewClientsModel(t *tracker.Service) ClientsModel {
	l := list.New([]list.Item{}, clientDelegate{}, 0, 0)
	l.Title = "Clients"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)

	m := ClientsModel{tracker: t, list: l}
	m.refresh()

	return m
}

func (m ClientsModel) Title() string { return "Clients" }

func (m ClientsModel) ShortHelp() string {
	if m.state == clientsStateForm {
		return "Esc: cancel | Enter/Tab: navigate form"
	}

	return "Esc: back | n: new client | s: new sub-client | Enter: edit | d: delete | /: filter"
}

func (m ClientsModel) Init() tea.Cmd {
	return nil
}

func (m ClientsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case clientSaveMsg:
		m.state = clientsStateList
		m.form = nil

		if msg.err != nil {
			m.status = errorText(msg.err)
		} else {
			m.status = successText(msg.status)
		}

		m.refresh()

		return m, nil

	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width-4, msg.Height-8)
		return m, nil
	}

	if m.state == clientsStateForm {
		return m.updateForm(msg)
	}

	return m.updateList(msg)
}

func (m ClientsModel) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && m.list.FilterState() != list.Filtering {
		switch keyMsg.String() {
		case "esc":
			if m.list.FilterState() == list.FilterApplied {
				break // let the list clear the filter
			}

			return m, Back
		case "n":
			return m.openClientForm(clientItem{}, true)
		case "s":
			item, _ := m.list.SelectedItem().(clientItem)
			return m.openSubClientForm(item, true)
		case "enter":
			item, ok := m.list.SelectedItem().(clientItem)
			if !ok {
				return m, nil
			}

			if item.sub != nil {
				return m.openSubClientForm(item, false)
			}

			return m.openClientForm(item, false)
		case "d":
			item, ok := m.list.SelectedItem().(clientItem)
			if !ok {
				return m, nil
			}

			return m.openDeleteForm(item)
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)

	return m, cmd
}

func (m ClientsModel) openClientForm(item clientItem, isNew bool) (tea.Model, tea.Cmd) {
	m.kind = formClient
	m.isNew = isNew
	m.editing = item
	m.fields = &clientFields{}

	if !isNew {
		m.fields.name = item.client.Name
		m.fields.rate = item.client.Rate.String()
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("name").
				Title("Client name").
				Value(&m.fields.name).
				Validate(notBlank("name")),

			huh.NewInput().
				Key("rate").
				Title("Hourly rate").
				Description("Changing the rate updates entries that are not invoiced yet").
				Placeholder("0.00").
				Value(&m.fields.rate).
				Validate(nonNegativeDecimal),
		),
	).WithWidth(50).WithShowHelp(false)

	m.state = clientsStateForm

	return m, m.form.Init()
}

func (m ClientsModel) openSubClientForm(item clientItem, isNew bool) (tea.Model, tea.Cmd) {
	clients := m.tracker.Clients()
	if len(clients) == 0 {
		m.status = errorText(errors.New("add a client first"))
		return m, nil
	}

	m.kind = formSubClient
	m.isNew = isNew
	m.editing = item
	m.fields = &clientFields{clientID: item.client.ID}

	if m.fields.clientID == uuid.Nil {
		m.fields.clientID = clients[0].ID
	}

	if !isNew && item.sub != nil {
		m.fields.name = item.sub.Name
	}

	options := make([]huh.Option[uuid.UUID], len(clients))
	for i, c := range clients {
		options[i] = huh.NewOption(c.Name, c.ID)
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[uuid.UUID]().
				Key("client").
				Title("Client").
				Options(options...).
				Value(&m.fields.clientID),

			huh.NewInput().
				Key("name").
				Title("Sub-client name").
				Value(&m.fields.name).
				Validate(notBlank("name")),
		),
	).WithWidth(50).WithShowHelp(false)

	m.state = clientsStateForm

	return m, m.form.Init()
}

func (m ClientsModel) openDeleteForm(item clientItem) (tea.Model, tea.Cmd) {
	m.kind = formDelete
	m.editing = item
	m.fields = &clientFields{}

	name := item.client.Name
	if item.sub != nil {
		name = item.sub.Name
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Key("confirm").
				Title(fmt.Sprintf("Delete %q?", name)).
				Affirmative("Delete").
				Negative("Cancel").
				Value(&m.fields.confirm),
		),
	).WithWidth(50).WithShowHelp(false)

	m.state = clientsStateForm

	return m, m.form.Init()
}

func (m ClientsModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = clientsStateList
		m.form = nil

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
	m.state = clientsStateList
	m.form = nil

	return m, save
}

func (m ClientsModel) View() string {
	if m.state == clientsStateForm && m.form != nil {
		return lipgloss.NewStyle().Padding(1).Render(m.form.View())
	}

	statusLine := ""
	if m.status != "" {
		statusLine = m.status + "\n"
	}

	if len(m.list.Items()) == 0 {
		return lipgloss.NewStyle().Padding(2).Render(statusLine + "No clients yet. Press n to add one, or import them.")
	}

	return lipgloss.NewStyle().Padding(1).Render(statusLine + m.list.View())
}

func (m *ClientsModel) refresh() {
	var items []list.Item

	for _, c := range m.tracker.Clients() {
		items = append(items, clientItem{client: c})

		for _, sc := range m.tracker.SubClientsOf(c.ID) {
			items = append(items, clientItem{client: c, sub: &sc})
		}
	}

	m.list.SetItems(items)
}

// Messages

type clientSaveMsg struct {
	status string
	err    error
}

func (m ClientsModel) saveCmd() tea.Cmd {
	svc := m.tracker
	kind := m.kind
	isNew := m.isNew
	item := m.editing
	fields := *m.fields
	name := fields.name

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		switch kind {
		case formClient:
			rate, err := parseAmount(fields.rate)
			if err != nil {
				return clientSaveMsg{err: err}
			}

			params := tracker.ClientParams{Name: name, Rate: rate}
			if isNew {
				_, err = svc.AddClient(ctx, params)
			} else {
				_, err = svc.UpdateClient(ctx, item.client.ID, params)
			}

			return clientSaveMsg{status: fmt.Sprintf("Saved client %q.", strings.TrimSpace(name)), err: err}

		case formSubClient:
			params := tracker.SubClientParams{ClientID: fields.clientID, Name: name}

			var err error
			if isNew {
				_, err = svc.AddSubClient(ctx, params)
			} else {
				_, err = svc.UpdateSubClient(ctx, item.sub.ID, params)
			}

			return clientSaveMsg{status: fmt.Sprintf("Saved sub-client %q.", strings.TrimSpace(name)), err: err}

		case formDelete:
			if !fields.confirm {
				return clientSaveMsg{status: "Nothing deleted."}
			}

			if item.sub != nil {
				return clientSaveMsg{status: "Sub-client deleted.", err: svc.DeleteSubClient(ctx, item.sub.ID)}
			}

			return clientSaveMsg{status: "Client deleted.", err: svc.DeleteClient(ctx, item.client.ID)}
		}

		return nil
	}
}

func notBlank(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s cannot be empty", field)
		}

		return nil
	}
}

// parseAmount reads a non-negative decimal; blank is zero.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}

	d, err := decimal.NewFromString(strings.Replace(s, ",", ".", 1))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%q is not a number", s)
	}

	if d.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("amount cannot be negative")
	}

	return d, nil
}

func nonNegativeDecimal(s string) error {
	_, err := parseAmount(s)
	return err
}

// clientDelegate renders clients with their sub-clients indented below.
type clientDelegate struct{}

func (d clientDelegate) Height() int                             { return 1 }
func (d clientDelegate) Spacing() int                            { return 0 }
func (d clientDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d clientDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	i, ok := item.(clientItem)
	if !ok {
		return
	}

	title := i.Title()
	if i.sub == nil {
		title = lipgloss.NewStyle().Bold(true).Render(title)
	}

	if index == m.Index() {
		title = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true).Render("> " + i.Title())
	}

	fmt.Fprintf(w, "  %s", title)
}
