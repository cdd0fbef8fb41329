package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/tally/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/tally/internal/config"
	"github.com/MrJamesThe3rd/tally/internal/database"
	"github.com/MrJamesThe3rd/tally/internal/export"
	"github.com/MrJamesThe3rd/tally/internal/importer"
	"github.com/MrJamesThe3rd/tally/internal/tracker"
	"github.com/MrJamesThe3rd/tally/internal/tracker/store"
)

type model struct {
	name string

	tracker       *tracker.Service
	importService *importer.Service
	exportService *export.Service

	currentView View
	width       int
	height      int

	dashboardView view.DashboardModel
	clientsView   view.ClientsModel
	entriesView   view.EntriesModel
	importView    view.ImportModel
	invoicesView  view.InvoicesModel
}

type View int

const (
	ViewMenu      View = 0
	ViewDashboard View = 1
	ViewClients   View = 2
	ViewEntries   View = 3
	ViewImport    View = 4
	ViewInvoices  View = 5
)

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.currentView == ViewMenu {
			switch msg.String() {
			case "q":
				return m, tea.Quit
			case "1":
				m.currentView = ViewDashboard
				m.dashboardView = view.NewDashboardModel(m.tracker)

				return m, tea.Batch(m.dashboardView.Init(), m.resize())
			case "2":
				m.currentView = ViewClients
				m.clientsView = view.NewClientsModel(m.tracker)

				return m, tea.Batch(m.clientsView.Init(), m.resize())
			case "3":
				m.currentView = ViewEntries
				m.entriesView = view.NewEntriesModel(m.tracker)

				return m, tea.Batch(m.entriesView.Init(), m.resize())
			case "4":
				m.currentView = ViewImport
				m.importView = view.NewImportModel(m.importService)

				return m, tea.Batch(m.importView.Init(), m.resize())
			case "5":
				m.currentView = ViewInvoices
				m.invoicesView = view.NewInvoicesModel(m.tracker, m.exportService)

				return m, tea.Batch(m.invoicesView.Init(), m.resize())
			}
		}
	case view.BackMsg:
		m.currentView = ViewMenu
		return m, nil
	}

	switch m.currentView {
	case ViewDashboard:
		var newModel tea.Model
		newModel, cmd = m.dashboardView.Update(msg)
		m.dashboardView = newModel.(view.DashboardModel)
	case ViewClients:
		var newModel tea.Model
		newModel, cmd = m.clientsView.Update(msg)
		m.clientsView = newModel.(view.ClientsModel)
	case ViewEntries:
		var newModel tea.Model
		newModel, cmd = m.entriesView.Update(msg)
		m.entriesView = newModel.(view.EntriesModel)
	case ViewImport:
		var newModel tea.Model
		newModel, cmd = m.importView.Update(msg)
		m.importView = newModel.(view.ImportModel)
	case ViewInvoices:
		var newModel tea.Model
		newModel, cmd = m.invoicesView.Update(msg)
		m.invoicesView = newModel.(view.InvoicesModel)
	}

	return m, cmd
}

// resize replays the last window size to a freshly opened view.
func (m model) resize() tea.Cmd {
	if m.width == 0 {
		return nil
	}

	size := tea.WindowSizeMsg{Width: m.width, Height: m.height}

	return func() tea.Msg { return size }
}

func (m model) View() string {
	var current view.View

	switch m.currentView {
	case ViewMenu:
		return lipgloss.NewStyle().Padding(2).Render(
			m.name + "\n\n" +
				"1. Dashboard\n" +
				"2. Clients\n" +
				"3. Work Entries\n" +
				"4. Import\n" +
				"5. Invoices\n\n" +
				"q. Quit",
		)
	case ViewDashboard:
		current = m.dashboardView
	case ViewClients:
		current = m.clientsView
	case ViewEntries:
		current = m.entriesView
	case ViewImport:
		current = m.importView
	case ViewInvoices:
		current = m.invoicesView
	default:
		return "Unknown View"
	}

	title := lipgloss.NewStyle().Bold(true).Padding(0, 1).Render(m.name + " / " + current.Title())
	help := lipgloss.NewStyle().Faint(true).Padding(0, 1).Render(current.ShortHelp())

	return lipgloss.JoinVertical(lipgloss.Left, title, current.View(), help)
}

// openStore returns the configured store and a func that releases it.
func openStore(ctx context.Context, cfg *config.Config) (tracker.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Store.Driver {
	case config.StoreFile:
		st, err := store.NewDir(cfg.StorePath())
		return st, noop, err
	case config.StoreMemory:
		return store.NewMemory(), noop, nil
	}

	dsn := cfg.StorePath()
	if cfg.Store.Driver == config.StorePostgres {
		dsn = cfg.ConnectionString()
	}

	db, err := database.New(cfg.Store.Driver, dsn)
	if err != nil {
		return nil, nil, err
	}

	if err := database.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}

	return store.NewSQL(db), db.Close, nil
}

func newLogger(cfg *config.Config) (*slog.Logger, io.Closer, error) {
	if err := os.MkdirAll(cfg.App.DataDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating data directory: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(cfg.App.DataDir, "tally.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	return slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: cfg.App.LogLevel})), f, nil
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, closer, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening %s store: %w", cfg.Store.Driver, err)
	}
	defer closeStore()

	tr := tracker.NewService(st, tracker.WithLogger(log))
	if err := tr.Load(ctx); err != nil {
		return err
	}

	log.Info("starting", "store", cfg.Store.Driver, "clients", len(tr.Clients()), "entries", len(tr.WorkEntries()))

	m := model{
		name:          cfg.App.Name,
		tracker:       tr,
		importService: importer.NewService(tr, log, importer.WithLocation(loc)),
		exportService: export.NewService(tr, cfg.ExportDir(), log),
		currentView:   ViewMenu,
	}

	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}

	return nil
}

func main() {
	if err := run(); err != nil {
		slog.Error("tally failed", "error", err)
		os.Exit(1)
	}
}
