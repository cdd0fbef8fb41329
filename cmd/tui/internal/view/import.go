package view

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/tally/internal/importer"
)

const importTimeout = 2 * time.Minute

type importState int

const (
	importStateSelect importState = iota
	importStateFilePick
	importStatePaste
	importStateImporting
	importStateResult
)

type ImportModel struct {
	CommonModel
	importService *importer.Service

	state      importState
	form       *huh.Form
	filePicker filepicker.Model
	spinner    spinner.Model

	// Form field bindings
	fields *importFields

	report *importer.Report
	err    error
}

type importFields struct {
	target importer.Target
	source importer.Source
	text   string
}

func NewImportModel(svc *importer.Service) ImportModel {
	fp := filepicker.New()
	fp.CurrentDirectory, _ = os.Getwd()
	fp.AllowedTypes = []string{".csv", ".txt", ".tsv"}
	fp.ShowHidden = false
	fp.DirAllowed = false
	fp.FileAllowed = true
	fp.SetHeight(15)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	m := ImportModel{
		importService: svc,
		filePicker:    fp,
		spinner:       s,
	}
	m.form = m.buildSelectForm()

	return m
}

func (m ImportModel) Title() string { return "Import" }

func (m ImportModel) ShortHelp() string {
	switch m.state {
	case importStateImporting:
		return "Importing..."
	case importStatePaste:
		return "Esc: back | Tab: next | Enter: submit"
	}

	return "Esc: back | Enter: select"
}

func (m ImportModel) Init() tea.Cmd {
	return m.form.Init()
}

func (m ImportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			return m.handleEsc()
		}

	case importResultMsg:
		m.state = importStateResult
		m.report = msg.report
		m.err = msg.err

		return m, nil
	}

	switch m.state {
	case importStateSelect:
		return m.updateSelect(msg)
	case importStateFilePick:
		return m.updateFilePick(msg)
	case importStatePaste:
		return m.updatePaste(msg)
	case importStateImporting:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd
	}

	return m, nil
}

func (m ImportModel) handleEsc() (tea.Model, tea.Cmd) {
	switch m.state {
	case importStateFilePick, importStatePaste, importStateResult:
		m.state = importStateSelect
		m.report = nil
		m.err = nil
		m.form = m.buildSelectForm()

		return m, m.form.Init()
	case importStateImporting:
		return m, nil
	}

	return m, Back
}

func (m *ImportModel) buildSelectForm() *huh.Form {
	m.fields = &importFields{target: importer.TargetWorkEntries, source: importer.SourceCSV}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[importer.Target]().
				Key("target").
				Title("What are you importing?").
				Options(
					huh.NewOption("Work entries", importer.TargetWorkEntries),
					huh.NewOption("Clients", importer.TargetClients),
					huh.NewOption("Sub-clients", importer.TargetSubClients),
				).
				Value(&m.fields.target),

			huh.NewSelect[importer.Source]().
				Key("source").
				Title("From").
				Options(
					huh.NewOption("CSV file with headers", importer.SourceCSV),
					huh.NewOption("Spreadsheet CSV export", importer.SourceSpreadsheet),
					huh.NewOption("Pasted text", importer.SourcePaste),
				).
				Value(&m.fields.source),
		),
	).WithWidth(50).WithShowHelp(false)
}

func (m ImportModel) buildPasteForm() *huh.Form {
	description := "Columns: Client, Sub-Client, Rate"
	switch m.fields.target {
	case importer.TargetWorkEntries:
		description = "Columns: Date, Client, Sub-Client, Project, Description, Hours, Rate, Bill"
	case importer.TargetSubClients:
		description = "Columns: Client, Sub-Client"
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Key("text").
				Title("Paste rows, one per line").
				Description(description).
				Lines(12).
				Value(&m.fields.text).
				Validate(notBlank("paste")),
		),
	).WithWidth(90).WithShowHelp(false)
}

func (m ImportModel) updateSelect(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	if m.fields.source == importer.SourcePaste {
		m.state = importStatePaste
		m.form = m.buildPasteForm()

		return m, m.form.Init()
	}

	m.state = importStateFilePick
	m.form = nil

	return m, m.filePicker.Init()
}

func (m ImportModel) updatePaste(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	m.state = importStateImporting
	m.form = nil

	return m, tea.Batch(m.spinner.Tick, m.importCmd(func() (*os.File, string, error) {
		return nil, m.fields.text, nil
	}))
}

func (m ImportModel) updateFilePick(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.filePicker, cmd = m.filePicker.Update(msg)

	if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
		m.state = importStateImporting

		return m, tea.Batch(m.spinner.Tick, m.importCmd(func() (*os.File, string, error) {
			f, err := os.Open(path)
			return f, "", err
		}))
	}

	return m, cmd
}

func (m ImportModel) View() string {
	switch m.state {
	case importStateSelect, importStatePaste:
		return lipgloss.NewStyle().Padding(1).Render(m.form.View())
	case importStateFilePick:
		return lipgloss.NewStyle().Padding(1).Render(
			fmt.Sprintf("Select file to import (%s):\n\n%s", m.fields.target, m.filePicker.View()),
		)
	case importStateImporting:
		return lipgloss.NewStyle().Padding(2).Render(
			fmt.Sprintf("%s Importing %s...", m.spinner.View(), m.fields.target),
		)
	case importStateResult:
		return m.viewResult()
	}

	return ""
}

func (m ImportModel) viewResult() string {
	var lines []string

	if m.err != nil {
		lines = append(lines, errorText(m.err))
	}

	if m.report != nil {
		msgs := m.report.Messages()
		if m.err == nil {
			lines = append(lines, successText(msgs[0]))
		}

		for _, msg := range msgs[1:] {
			lines = append(lines, faint(msg))
		}

		if m.err != nil {
			for _, rej := range m.report.Rejected {
				lines = append(lines, faint("  "+rej.String()))
			}
		}
	}

	lines = append(lines, "", "(Esc to go back)")

	return lipgloss.NewStyle().Padding(2).Render(strings.Join(lines, "\n"))
}

// Messages

type importResultMsg struct {
	report *importer.Report
	err    error
}

// importCmd runs the import on either an opened file or pasted text, whichever open yields.
func (m ImportModel) importCmd(open func() (*os.File, string, error)) tea.Cmd {
	svc := m.importService
	target := m.fields.target
	source := m.fields.source

	return func() tea.Msg {
		f, text, err := open()
		if err != nil {
			return importResultMsg{err: err}
		}

		ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
		defer cancel()

		if f == nil {
			report, err := svc.Import(ctx, target, source, strings.NewReader(text))
			return importResultMsg{report: report, err: err}
		}
		defer f.Close()

		report, err := svc.Import(ctx, target, source, f)

		return importResultMsg{report: report, err: err}
	}
}
