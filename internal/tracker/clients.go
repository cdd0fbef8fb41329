package tracker

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/billing"
)

type ClientParams struct {
	Name string          `validate:"required"`
	Rate decimal.Decimal `validate:"gte=0"`
}

type SubClientParams struct {
	ClientID uuid.UUID `validate:"required"`
	Name     string    `validate:"required"`
}

// ClientImport describes a client and the sub-clients to ensure under it.
type ClientImport struct {
	Name       string
	Rate       decimal.Decimal
	SubClients []string
}

// ImportSummary counts the records created by a bulk import.
type ImportSummary struct {
	Clients    int
	SubClients int
}

func (s *Service) AddClient(ctx context.Context, params ClientParams) (*Client, error) {
	params.Name = strings.TrimSpace(params.Name)
	if err := s.validateParams(params); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := Client{ID: uuid.New(), Name: params.Name, Rate: params.Rate}

	next := s.snapshot()
	next.clients = append(next.clients, c)

	if err := s.commit(ctx, next, KeyClients); err != nil {
		return nil, fmt.Errorf("adding client: %w", err)
	}

	s.log.Debug("client added", "id", c.ID, "name", c.Name)

	return &c, nil
}

// UpdateClient renames a client and changes its rate. A rate change is applied to every
// non-invoiced work entry of the client, recomputing its bill; invoiced entries keep their rate.
func (s *Service) UpdateClient(ctx context.Context, id uuid.UUID, params ClientParams) (*Client, error) {
	params.Name = strings.TrimSpace(params.Name)
	if err := s.validateParams(params); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.snapshot()

	i := indexOf(next.clients, func(c Client) bool { return c.ID == id })
	if i < 0 {
		return nil, fmt.Errorf("client %s: %w", id, ErrNotFound)
	}

	rateChanged := !next.clients[i].Rate.Equal(params.Rate)
	next.clients[i].Name = params.Name
	next.clients[i].Rate = params.Rate

	keys := []string{KeyClients}

	if rateChanged {
		updated := 0

		for j := range next.entries {
			e := &next.entries[j]
			if e.ClientID != id || e.Invoiced {
				continue
			}

			e.Rate = params.Rate
			e.Bill = billing.CalculateBill(e.Hours, e.Rate)
			updated++
		}

		if updated > 0 {
			keys = append(keys, KeyWorkEntries)
		}

		s.log.Debug("client rate changed", "id", id, "rate", params.Rate, "entries_updated", updated)
	}

	if err := s.commit(ctx, next, keys...); err != nil {
		return nil, fmt.Errorf("updating client: %w", err)
	}

	c := next.clients[i]

	return &c, nil
}

// DeleteClient removes a client that no sub-client or work entry references.
func (s *Service) DeleteClient(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOf(s.state.clients, func(c Client) bool { return c.ID == id })
	if i < 0 {
		return fmt.Errorf("client %s: %w", id, ErrNotFound)
	}

	if indexOf(s.state.subClients, func(sc SubClient) bool { return sc.ClientID == id }) >= 0 {
		return fmt.Errorf("client %q has sub-clients: %w", s.state.clients[i].Name, ErrHasDependents)
	}

	if indexOf(s.state.entries, func(e WorkEntry) bool { return e.ClientID == id }) >= 0 {
		return fmt.Errorf("client %q has work entries: %w", s.state.clients[i].Name, ErrHasDependents)
	}

	next := s.snapshot()
	next.clients = append(next.clients[:i], next.clients[i+1:]...)

	if err := s.commit(ctx, next, KeyClients); err != nil {
		return fmt.Errorf("deleting client: %w", err)
	}

	return nil
}

func (s *Service) AddSubClient(ctx context.Context, params SubClientParams) (*SubClient, error) {
	params.Name = strings.TrimSpace(params.Name)
	if err := s.validateParams(params); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if indexOf(s.state.clients, func(c Client) bool { return c.ID == params.ClientID }) < 0 {
		return nil, fmt.Errorf("client %s: %w", params.ClientID, ErrNotFound)
	}

	sc := SubClient{ID: uuid.New(), Name: params.Name, ClientID: params.ClientID}

	next := s.snapshot()
	next.subClients = append(next.subClients, sc)

	if err := s.commit(ctx, next, KeySubClients); err != nil {
		return nil, fmt.Errorf("adding sub-client: %w", err)
	}

	return &sc, nil
}

// UpdateSubClient renames a sub-client or moves it to another client.
// Moving is refused while work entries reference the sub-client.
func (s *Service) UpdateSubClient(ctx context.Context, id uuid.UUID, params SubClientParams) (*SubClient, error) {
	params.Name = strings.TrimSpace(params.Name)
	if err := s.validateParams(params); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.snapshot()

	i := indexOf(next.subClients, func(sc SubClient) bool { return sc.ID == id })
	if i < 0 {
		return nil, fmt.Errorf("sub-client %s: %w", id, ErrNotFound)
	}

	if indexOf(next.clients, func(c Client) bool { return c.ID == params.ClientID }) < 0 {
		return nil, fmt.Errorf("client %s: %w", params.ClientID, ErrNotFound)
	}

	if next.subClients[i].ClientID != params.ClientID &&
		indexOf(next.entries, func(e WorkEntry) bool { return e.SubClientID == id }) >= 0 {
		return nil, fmt.Errorf("moving sub-client %q with work entries: %w", next.subClients[i].Name, ErrHasDependents)
	}

	next.subClients[i].Name = params.Name
	next.subClients[i].ClientID = params.ClientID

	if err := s.commit(ctx, next, KeySubClients); err != nil {
		return nil, fmt.Errorf("updating sub-client: %w", err)
	}

	sc := next.subClients[i]

	return &sc, nil
}

// DeleteSubClient removes a sub-client that no work entry references.
func (s *Service) DeleteSubClient(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOf(s.state.subClients, func(sc SubClient) bool { return sc.ID == id })
	if i < 0 {
		return fmt.Errorf("sub-client %s: %w", id, ErrNotFound)
	}

	if indexOf(s.state.entries, func(e WorkEntry) bool { return e.SubClientID == id }) >= 0 {
		return fmt.Errorf("sub-client %q has work entries: %w", s.state.subClients[i].Name, ErrHasDependents)
	}

	next := s.snapshot()
	next.subClients = append(next.subClients[:i], next.subClients[i+1:]...)

	if err := s.commit(ctx, next, KeySubClients); err != nil {
		return fmt.Errorf("deleting sub-client: %w", err)
	}

	return nil
}

// ImportClients creates the clients and sub-clients that do not exist yet.
// Existing clients are matched by case-insensitive name and keep their rate;
// sub-clients are matched by case-insensitive name within their client.
func (s *Service) ImportClients(ctx context.Context, imports []ClientImport) (ImportSummary, error) {
	for i, imp := range imports {
		params := ClientParams{Name: strings.TrimSpace(imp.Name), Rate: imp.Rate}
		if err := s.validateParams(params); err != nil {
			return ImportSummary{}, fmt.Errorf("client %d: %w", i+1, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.snapshot()

	var summary ImportSummary

	for _, imp := range imports {
		ci := indexOf(next.clients, func(c Client) bool { return sameName(c.Name, imp.Name) })
		if ci < 0 {
			next.clients = append(next.clients, Client{
				ID:   uuid.New(),
				Name: strings.TrimSpace(imp.Name),
				Rate: imp.Rate,
			})
			ci = len(next.clients) - 1
			summary.Clients++
		}

		clientID := next.clients[ci].ID

		for _, name := range imp.SubClients {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}

			exists := indexOf(next.subClients, func(sc SubClient) bool {
				return sc.ClientID == clientID && sameName(sc.Name, name)
			}) >= 0
			if exists {
				continue
			}

			next.subClients = append(next.subClients, SubClient{ID: uuid.New(), Name: name, ClientID: clientID})
			summary.SubClients++
		}
	}

	if summary.Clients == 0 && summary.SubClients == 0 {
		return summary, nil
	}

	if err := s.commit(ctx, next, KeyClients, KeySubClients); err != nil {
		return ImportSummary{}, fmt.Errorf("importing clients: %w", err)
	}

	s.log.Debug("clients imported", "clients", summary.Clients, "sub_clients", summary.SubClients)

	return summary, nil
}

// ImportSubClients creates sub-clients under existing clients, skipping ones that already exist.
func (s *Service) ImportSubClients(ctx context.Context, params []SubClientParams) (int, error) {
	params = append([]SubClientParams(nil), params...)

	for i := range params {
		params[i].Name = strings.TrimSpace(params[i].Name)
		if err := s.validateParams(params[i]); err != nil {
			return 0, fmt.Errorf("sub-client %d: %w", i+1, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.snapshot()
	created := 0

	for _, p := range params {
		if indexOf(next.clients, func(c Client) bool { return c.ID == p.ClientID }) < 0 {
			return 0, fmt.Errorf("client %s: %w", p.ClientID, ErrNotFound)
		}

		exists := indexOf(next.subClients, func(sc SubClient) bool {
			return sc.ClientID == p.ClientID && sameName(sc.Name, p.Name)
		}) >= 0
		if exists {
			continue
		}

		next.subClients = append(next.subClients, SubClient{ID: uuid.New(), Name: p.Name, ClientID: p.ClientID})
		created++
	}

	if created == 0 {
		return 0, nil
	}

	if err := s.commit(ctx, next, KeySubClients); err != nil {
		return 0, fmt.Errorf("importing sub-clients: %w", err)
	}

	return created, nil
}
