package tracker

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/billing"
)

type WorkEntryParams struct {
	Date            time.Time `validate:"required"`
	ClientID        uuid.UUID `validate:"required"`
	SubClientID     uuid.UUID `validate:"required"`
	Project         string
	TaskDescription string
	FileAttachments []string
	Hours           decimal.Decimal `validate:"gt=0"`
	Rate            decimal.Decimal `validate:"gte=0"`
	// Bill overrides Hours * Rate when valid.
	Bill     decimal.NullDecimal
	Invoiced bool
	Paid     bool
}

func (s *Service) AddWorkEntry(ctx context.Context, params WorkEntryParams) (*WorkEntry, error) {
	if err := s.validateParams(params); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkReferences(params.ClientID, params.SubClientID); err != nil {
		return nil, err
	}

	e := newWorkEntry(params)

	next := s.snapshot()
	next.entries = append(next.entries, e)

	if err := s.commit(ctx, next, KeyWorkEntries); err != nil {
		return nil, fmt.Errorf("adding work entry: %w", err)
	}

	out := e.clone()

	return &out, nil
}

// UpdateWorkEntry replaces the editable fields of an entry. Hours, rate, client and
// sub-client of an invoiced entry cannot change.
func (s *Service) UpdateWorkEntry(ctx context.Context, id uuid.UUID, params WorkEntryParams) (*WorkEntry, error) {
	if err := s.validateParams(params); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.snapshot()

	i := indexOf(next.entries, func(e WorkEntry) bool { return e.ID == id })
	if i < 0 {
		return nil, fmt.Errorf("work entry %s: %w", id, ErrNotFound)
	}

	cur := next.entries[i]

	if cur.Invoiced {
		locked := !cur.Hours.Equal(params.Hours) ||
			!cur.Rate.Equal(params.Rate) ||
			cur.ClientID != params.ClientID ||
			cur.SubClientID != params.SubClientID
		if locked {
			return nil, fmt.Errorf("changing hours, rate, client or sub-client: %w", ErrInvoiced)
		}
	}

	if err := s.checkReferences(params.ClientID, params.SubClientID); err != nil {
		return nil, err
	}

	e := newWorkEntry(params)
	e.ID = cur.ID

	// The stored bill, which may be an imported override, stands while hours and rate are unchanged.
	if !params.Bill.Valid && cur.Hours.Equal(params.Hours) && cur.Rate.Equal(params.Rate) {
		e.Bill = cur.Bill
	}

	next.entries[i] = e

	if err := s.commit(ctx, next, KeyWorkEntries); err != nil {
		return nil, fmt.Errorf("updating work entry: %w", err)
	}

	out := e.clone()

	return &out, nil
}

// DeleteWorkEntry removes a work entry that has not been invoiced.
func (s *Service) DeleteWorkEntry(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOf(s.state.entries, func(e WorkEntry) bool { return e.ID == id })
	if i < 0 {
		return fmt.Errorf("work entry %s: %w", id, ErrNotFound)
	}

	if s.state.entries[i].Invoiced {
		return fmt.Errorf("deleting work entry: %w", ErrInvoiced)
	}

	next := s.snapshot()
	next.entries = append(next.entries[:i], next.entries[i+1:]...)

	if err := s.commit(ctx, next, KeyWorkEntries); err != nil {
		return fmt.Errorf("deleting work entry: %w", err)
	}

	return nil
}

// SetPaid marks an entry paid or unpaid. Allowed on invoiced entries.
func (s *Service) SetPaid(ctx context.Context, id uuid.UUID, paid bool) error {
	return s.modifyEntry(ctx, id, func(e *WorkEntry) error {
		e.Paid = paid
		return nil
	})
}

// AttachFile adds a placeholder attachment name to the entry and returns it.
func (s *Service) AttachFile(ctx context.Context, id uuid.UUID) (string, error) {
	name := fmt.Sprintf("File-%d.pdf", rand.IntN(10000))

	err := s.modifyEntry(ctx, id, func(e *WorkEntry) error {
		e.FileAttachments = append(e.FileAttachments, name)
		return nil
	})
	if err != nil {
		return "", err
	}

	return name, nil
}

// DetachFile removes the attachment at index from the entry.
func (s *Service) DetachFile(ctx context.Context, id uuid.UUID, index int) error {
	return s.modifyEntry(ctx, id, func(e *WorkEntry) error {
		if index < 0 || index >= len(e.FileAttachments) {
			return fmt.Errorf("attachment %d: %w", index, ErrNotFound)
		}

		e.FileAttachments = append(e.FileAttachments[:index], e.FileAttachments[index+1:]...)

		return nil
	})
}

func (s *Service) modifyEntry(ctx context.Context, id uuid.UUID, fn func(*WorkEntry) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.snapshot()

	i := indexOf(next.entries, func(e WorkEntry) bool { return e.ID == id })
	if i < 0 {
		return fmt.Errorf("work entry %s: %w", id, ErrNotFound)
	}

	if err := fn(&next.entries[i]); err != nil {
		return err
	}

	if err := s.commit(ctx, next, KeyWorkEntries); err != nil {
		return fmt.Errorf("updating work entry: %w", err)
	}

	return nil
}

// ImportWorkEntries adds a batch of entries in a single write.
// The batch is rejected as a whole if any entry is invalid.
func (s *Service) ImportWorkEntries(ctx context.Context, params []WorkEntryParams) ([]WorkEntry, error) {
	if len(params) == 0 {
		return nil, nil
	}

	for i, p := range params {
		if err := s.validateParams(p); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i+1, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	created := make([]WorkEntry, 0, len(params))

	for i, p := range params {
		if err := s.checkReferences(p.ClientID, p.SubClientID); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i+1, err)
		}

		created = append(created, newWorkEntry(p))
	}

	next := s.snapshot()
	next.entries = append(next.entries, created...)

	if err := s.commit(ctx, next, KeyWorkEntries); err != nil {
		return nil, fmt.Errorf("importing work entries: %w", err)
	}

	s.log.Debug("work entries imported", "count", len(created))

	out := make([]WorkEntry, len(created))
	for i, e := range created {
		out[i] = e.clone()
	}

	return out, nil
}

// checkReferences verifies that the client exists and the sub-client belongs to it.
// Callers must hold s.mu.
func (s *Service) checkReferences(clientID, subClientID uuid.UUID) error {
	if indexOf(s.state.clients, func(c Client) bool { return c.ID == clientID }) < 0 {
		return fmt.Errorf("client %s: %w", clientID, ErrNotFound)
	}

	i := indexOf(s.state.subClients, func(sc SubClient) bool { return sc.ID == subClientID })
	if i < 0 {
		return fmt.Errorf("sub-client %s: %w", subClientID, ErrNotFound)
	}

	if s.state.subClients[i].ClientID != clientID {
		return fmt.Errorf("%w: sub-client %q belongs to another client", ErrValidation, s.state.subClients[i].Name)
	}

	return nil
}

func newWorkEntry(p WorkEntryParams) WorkEntry {
	bill := billing.CalculateBill(p.Hours, p.Rate)
	if p.Bill.Valid {
		bill = p.Bill.Decimal
	}

	attachments := []string{}
	if len(p.FileAttachments) > 0 {
		attachments = append(attachments, p.FileAttachments...)
	}

	return WorkEntry{
		ID:              uuid.New(),
		Date:            p.Date,
		ClientID:        p.ClientID,
		SubClientID:     p.SubClientID,
		Project:         strings.TrimSpace(p.Project),
		TaskDescription: strings.TrimSpace(p.TaskDescription),
		FileAttachments: attachments,
		Hours:           p.Hours,
		Rate:            p.Rate,
		Bill:            bill,
		Invoiced:        p.Invoiced,
		Paid:            p.Paid,
	}
}

// ParamsFrom returns params that reproduce e, for editing. Bill is left unset so that
// UpdateWorkEntry keeps the stored bill unless hours or rate change.
func ParamsFrom(e WorkEntry) WorkEntryParams {
	return WorkEntryParams{
		Date:            e.Date,
		ClientID:        e.ClientID,
		SubClientID:     e.SubClientID,
		Project:         e.Project,
		TaskDescription: e.TaskDescription,
		FileAttachments: append([]string(nil), e.FileAttachments...),
		Hours:           e.Hours,
		Rate:            e.Rate,
		Invoiced:        e.Invoiced,
		Paid:            e.Paid,
	}
}
