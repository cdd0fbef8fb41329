package tracker

import (
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/billing"
)

// WeekStats summarizes the work entries of one week.
type WeekStats struct {
	Window     billing.Window
	Entries    int
	Hours      decimal.Decimal
	Earned     decimal.Decimal
	Invoiced   decimal.Decimal
	Uninvoiced decimal.Decimal
}

// LastWeekStats reports hours and amounts for last week's entries.
func (s *Service) LastWeekStats() WeekStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := WeekStats{
		Window:     billing.LastWeek(s.now()),
		Hours:      decimal.Zero,
		Earned:     decimal.Zero,
		Invoiced:   decimal.Zero,
		Uninvoiced: decimal.Zero,
	}

	for _, e := range s.state.entries {
		if !stats.Window.Contains(e.Date) {
			continue
		}

		stats.Entries++
		stats.Hours = stats.Hours.Add(e.Hours)
		stats.Earned = stats.Earned.Add(e.Bill)

		if e.Invoiced {
			stats.Invoiced = stats.Invoiced.Add(e.Bill)
		}
	}

	stats.Uninvoiced = stats.Earned.Sub(stats.Invoiced)

	return stats
}

// SubClientSummary totals all work billed against one sub-client.
type SubClientSummary struct {
	SubClientID   uuid.UUID
	SubClientName string
	ClientName    string
	TotalHours    decimal.Decimal
	TotalBill     decimal.Decimal
}

// SubClientSummaries totals every work entry per sub-client, ordered by client then sub-client name.
// Sub-clients without entries are omitted.
func (s *Service) SubClientSummaries() []SubClientSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID := make(map[uuid.UUID]*SubClientSummary)

	for _, e := range s.state.entries {
		sum, ok := byID[e.SubClientID]
		if !ok {
			sum = &SubClientSummary{
				SubClientID:   e.SubClientID,
				SubClientName: s.subClientName(e.SubClientID),
				ClientName:    s.clientName(e.ClientID),
				TotalHours:    decimal.Zero,
				TotalBill:     decimal.Zero,
			}
			byID[e.SubClientID] = sum
		}

		sum.TotalHours = sum.TotalHours.Add(e.Hours)
		sum.TotalBill = sum.TotalBill.Add(e.Bill)
	}

	out := make([]SubClientSummary, 0, len(byID))
	for _, sum := range byID {
		out = append(out, *sum)
	}

	sort.Slice(out, func(i, j int) bool {
		ci, cj := strings.ToLower(out[i].ClientName), strings.ToLower(out[j].ClientName)
		if ci != cj {
			return ci < cj
		}

		return strings.ToLower(out[i].SubClientName) < strings.ToLower(out[j].SubClientName)
	})

	return out
}

// EntryGroup is a set of invoice entries billed against the same sub-client.
type EntryGroup struct {
	SubClientID   uuid.UUID
	SubClientName string
	ClientName    string
	Entries       []WorkEntry
	Hours         decimal.Decimal
	Amount        decimal.Decimal
}

// GroupInvoice splits an invoice's entries by sub-client, keeping first-seen order.
// Names are resolved against current records; deleted ones show as "Unknown".
func (s *Service) GroupInvoice(inv Invoice) []EntryGroup {
	s.mu.Lock()
	defer s.mu.Unlock()

	var groups []EntryGroup

	index := make(map[uuid.UUID]int)

	for _, e := range inv.Entries {
		gi, ok := index[e.SubClientID]
		if !ok {
			groups = append(groups, EntryGroup{
				SubClientID:   e.SubClientID,
				SubClientName: s.subClientName(e.SubClientID),
				ClientName:    s.clientName(e.ClientID),
				Hours:         decimal.Zero,
				Amount:        decimal.Zero,
			})
			gi = len(groups) - 1
			index[e.SubClientID] = gi
		}

		g := &groups[gi]
		g.Entries = append(g.Entries, e.clone())
		g.Hours = g.Hours.Add(e.Hours)
		g.Amount = g.Amount.Add(e.Bill)
	}

	return groups
}

// Names resolves the display names of a client and sub-client.
func (s *Service) Names(clientID, subClientID uuid.UUID) (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.clientName(clientID), s.subClientName(subClientID)
}

func (s *Service) clientName(id uuid.UUID) string {
	if i := indexOf(s.state.clients, func(c Client) bool { return c.ID == id }); i >= 0 {
		return s.state.clients[i].Name
	}

	return "Unknown"
}

func (s *Service) subClientName(id uuid.UUID) string {
	if i := indexOf(s.state.subClients, func(sc SubClient) bool { return sc.ID == id }); i >= 0 {
		return s.state.subClients[i].Name
	}

	return "Unknown"
}
