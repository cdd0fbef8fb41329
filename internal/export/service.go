package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/MrJamesThe3rd/tally/internal/billing"
	"github.com/MrJamesThe3rd/tally/internal/tracker"
)

const dateLayout = "Jan 2, 2006"

// Service renders stored invoices as PDF documents and plain text summaries.
type Service struct {
	tracker *tracker.Service
	dir     string
	log     *slog.Logger
}

// NewService creates a Service that writes documents into dir.
func NewService(t *tracker.Service, dir string, log *slog.Logger) *Service {
	return &Service{tracker: t, dir: dir, log: log}
}

// Export writes the invoice with the given id as <invoice number>.pdf and returns the file path.
func (s *Service) Export(ctx context.Context, id uuid.UUID) (string, error) {
	inv, err := s.tracker.Invoice(id)
	if err != nil {
		return "", fmt.Errorf("loading invoice: %w", err)
	}

	pdf, err := s.Render(*inv)
	if err != nil {
		return "", err
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	path := filepath.Join(s.dir, inv.InvoiceNumber+".pdf")
	if err := os.WriteFile(path, pdf, 0o644); err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}

	s.log.Info("invoice exported", "number", inv.InvoiceNumber, "path", path)

	return path, nil
}

// Render lays out the invoice with its entries grouped by sub-client.
func (s *Service) Render(inv tracker.Invoice) ([]byte, error) {
	m := maroto.New(config.NewBuilder().Build())

	m.AddRow(12,
		col.New(8).Add(text.New("INVOICE", props.Text{Size: 20, Style: fontstyle.Bold})),
		col.New(4).Add(text.New(inv.InvoiceNumber, props.Text{Size: 11, Style: fontstyle.Bold, Align: align.Right})),
	)
	m.AddRow(6,
		col.New(8).Add(text.New(
			fmt.Sprintf("Period: %s - %s", inv.StartDate.Format(dateLayout), inv.EndDate.Format(dateLayout)),
			props.Text{Size: 10},
		)),
		col.New(4).Add(text.New(
			"Issued: "+inv.CreatedAt.Format(dateLayout),
			props.Text{Size: 10, Align: align.Right},
		)),
	)
	m.AddRow(8)

	header := props.Text{Size: 9, Style: fontstyle.Bold}
	right := props.Text{Size: 9, Align: align.Right}

	for _, g := range s.tracker.GroupInvoice(inv) {
		m.AddRow(8,
			col.New(12).Add(text.New(fmt.Sprintf("%s / %s", g.ClientName, g.SubClientName), props.Text{
				Size:  11,
				Style: fontstyle.Bold,
			})),
		)
		m.AddRow(6,
			col.New(2).Add(text.New("Date", header)),
			col.New(2).Add(text.New("Project", header)),
			col.New(4).Add(text.New("Description", header)),
			col.New(1).Add(text.New("Hours", props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right})),
			col.New(1).Add(text.New("Rate", props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right})),
			col.New(2).Add(text.New("Amount", props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right})),
		)

		for _, e := range g.Entries {
			m.AddRow(6,
				col.New(2).Add(text.New(e.Date.Format(dateLayout), props.Text{Size: 9})),
				col.New(2).Add(text.New(e.Project, props.Text{Size: 9})),
				col.New(4).Add(text.New(e.TaskDescription, props.Text{Size: 9})),
				col.New(1).Add(text.New(billing.FormatHours(e.Hours), right)),
				col.New(1).Add(text.New(billing.FormatCurrency(e.Rate), right)),
				col.New(2).Add(text.New(billing.FormatCurrency(e.Bill), right)),
			)
		}

		m.AddRow(7,
			col.New(8).Add(text.New("Subtotal", props.Text{Size: 9, Style: fontstyle.Italic})),
			col.New(1).Add(text.New(billing.FormatHours(g.Hours), right)),
			col.New(1),
			col.New(2).Add(text.New(billing.FormatCurrency(g.Amount), props.Text{
				Size:  9,
				Style: fontstyle.Bold,
				Align: align.Right,
			})),
		)
		m.AddRow(4)
	}

	m.AddRow(2, col.New(12).Add(line.New()))
	m.AddRow(10,
		col.New(8).Add(text.New("Total", props.Text{Size: 12, Style: fontstyle.Bold})),
		col.New(4).Add(text.New(billing.FormatCurrency(inv.TotalAmount), props.Text{
			Size:  12,
			Style: fontstyle.Bold,
			Align: align.Right,
		})),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generating pdf: %w", err)
	}

	return doc.GetBytes(), nil
}

// Summary formats the invoice as plain text, one section per sub-client.
func (s *Service) Summary(inv tracker.Invoice) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s (%s - %s)\n", inv.InvoiceNumber, inv.StartDate.Format(dateLayout), inv.EndDate.Format(dateLayout))

	for _, g := range s.tracker.GroupInvoice(inv) {
		fmt.Fprintf(&sb, "\n%s / %s: %s h, %s\n", g.ClientName, g.SubClientName,
			billing.FormatHours(g.Hours), billing.FormatCurrency(g.Amount))

		for _, e := range g.Entries {
			files := "No files"
			if len(e.FileAttachments) > 0 {
				files = strings.Join(e.FileAttachments, ", ")
			}

			fmt.Fprintf(&sb, "* %s | %s | %s | %s h | %s | %s\n",
				e.Date.Format("2006-01-02"), e.Project, e.TaskDescription,
				billing.FormatHours(e.Hours), billing.FormatCurrency(e.Bill), files)
		}
	}

	fmt.Fprintf(&sb, "\nTotal: %s\n", billing.FormatCurrency(inv.TotalAmount))

	return sb.String()
}
