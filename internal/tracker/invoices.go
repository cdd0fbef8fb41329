package tracker

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/billing"
)

// GenerateWeeklyInvoice bills every uninvoiced entry dated within last week (Monday..Sunday)
// and marks those entries invoiced. Returns ErrNoEntries when nothing is eligible.
func (s *Service) GenerateWeeklyInvoice(ctx context.Context) (*Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	window := billing.LastWeek(now)

	next := s.snapshot()

	var selected []int

	total := decimal.Zero

	for i, e := range next.entries {
		if e.Invoiced || !window.Contains(e.Date) {
			continue
		}

		selected = append(selected, i)
		total = total.Add(e.Bill)
	}

	if len(selected) == 0 {
		return nil, ErrNoEntries
	}

	inv := Invoice{
		ID:            uuid.New(),
		InvoiceNumber: billing.InvoiceNumber(now, s.sequence()),
		StartDate:     window.Start,
		EndDate:       window.End,
		Entries:       make([]WorkEntry, 0, len(selected)),
		TotalAmount:   total,
		CreatedAt:     now,
	}

	for _, i := range selected {
		inv.Entries = append(inv.Entries, next.entries[i].clone())
		next.entries[i].Invoiced = true
	}

	next.invoices = append(next.invoices, inv)

	if err := s.commit(ctx, next, KeyWorkEntries, KeyInvoices); err != nil {
		return nil, fmt.Errorf("generating invoice: %w", err)
	}

	s.log.Info("invoice generated",
		"number", inv.InvoiceNumber,
		"entries", len(inv.Entries),
		"total", inv.TotalAmount.String(),
	)

	out := inv.clone()

	return &out, nil
}
