package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Keys under which each collection is persisted.
const (
	KeyClients     = "tally.clients"
	KeySubClients  = "tally.sub-clients"
	KeyWorkEntries = "tally.work-entries"
	KeyInvoices    = "tally.invoices"
)

// Store is a synchronous key/value blob store. Get returns ErrNotFound for unknown keys.
//
//go:generate mockgen -source=service.go -destination=store_mock.go -package=tracker
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Service owns all tracker state. Every mutation is persisted before it becomes visible.
type Service struct {
	store    Store
	log      *slog.Logger
	validate *validator.Validate
	now      func() time.Time
	sequence func() int

	mu    sync.Mutex
	state state
}

type state struct {
	clients    []Client
	subClients []SubClient
	entries    []WorkEntry
	invoices   []Invoice
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithClock overrides the time source used for invoice windows and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithInvoiceSequence overrides the source of the numeric invoice number suffix.
func WithInvoiceSequence(seq func() int) Option {
	return func(s *Service) { s.sequence = seq }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:    store,
		log:      slog.Default(),
		validate: newValidator(),
		now:      time.Now,
		sequence: func() int { return rand.IntN(1000) },
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}

		return nil
	}, decimal.Decimal{})

	return v
}

// Load replaces the in-memory state with the persisted collections. Missing keys load as empty.
func (s *Service) Load(ctx context.Context) error {
	var next state

	if err := s.load(ctx, KeyClients, &next.clients); err != nil {
		return err
	}

	if err := s.load(ctx, KeySubClients, &next.subClients); err != nil {
		return err
	}

	if err := s.load(ctx, KeyWorkEntries, &next.entries); err != nil {
		return err
	}

	if err := s.load(ctx, KeyInvoices, &next.invoices); err != nil {
		return err
	}

	s.mu.Lock()
	s.state = next
	s.mu.Unlock()

	s.log.Debug("state loaded",
		"clients", len(next.clients),
		"sub_clients", len(next.subClients),
		"work_entries", len(next.entries),
		"invoices", len(next.invoices),
	)

	return nil
}

func (s *Service) load(ctx context.Context, key string, dst any) error {
	raw, err := s.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("reading %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decoding %s: %w", key, err)
	}

	return nil
}

// commit persists the given collections of next and, only if every write succeeds, makes next current.
// When a write fails, keys already written are restored from the current state.
// Callers must hold s.mu.
func (s *Service) commit(ctx context.Context, next state, keys ...string) error {
	written := make([]string, 0, len(keys))

	for _, key := range keys {
		raw, err := encode(next, key)
		if err != nil {
			return err
		}

		if err := s.store.Set(ctx, key, raw); err != nil {
			s.log.Error("persisting state failed", "key", key, "error", err)
			s.rollback(ctx, written)

			return fmt.Errorf("writing %s: %w", key, err)
		}

		written = append(written, key)
	}

	s.state = next

	return nil
}

func (s *Service) rollback(ctx context.Context, keys []string) {
	ctx = context.WithoutCancel(ctx)

	for _, key := range keys {
		raw, err := encode(s.state, key)
		if err == nil {
			err = s.store.Set(ctx, key, raw)
		}

		if err != nil {
			s.log.Error("restoring state failed", "key", key, "error", err)
		}
	}
}

func encode(st state, key string) ([]byte, error) {
	var v any

	switch key {
	case KeyClients:
		v = nonNil(st.clients)
	case KeySubClients:
		v = nonNil(st.subClients)
	case KeyWorkEntries:
		v = nonNil(st.entries)
	case KeyInvoices:
		v = nonNil(st.invoices)
	default:
		return nil, fmt.Errorf("unknown key %q", key)
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", key, err)
	}

	return raw, nil
}

func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}

	return v
}

// snapshot returns a deep copy of the current state that can be mutated freely.
func (s *Service) snapshot() state {
	next := state{
		clients:    append([]Client(nil), s.state.clients...),
		subClients: append([]SubClient(nil), s.state.subClients...),
		entries:    make([]WorkEntry, len(s.state.entries)),
		invoices:   append([]Invoice(nil), s.state.invoices...),
	}

	for i, e := range s.state.entries {
		next.entries[i] = e.clone()
	}

	return next
}

func (s *Service) validateParams(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	fe := verrs[0]
	field := strings.ToLower(fe.Field())

	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%w: %s is required", ErrValidation, field)
	case "gt":
		return fmt.Errorf("%w: %s must be greater than %s", ErrValidation, field, fe.Param())
	case "gte":
		return fmt.Errorf("%w: %s must be at least %s", ErrValidation, field, fe.Param())
	}

	return fmt.Errorf("%w: %s failed %s", ErrValidation, field, fe.Tag())
}

// Clients returns all clients in insertion order.
func (s *Service) Clients() []Client {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Client(nil), s.state.clients...)
}

func (s *Service) Client(id uuid.UUID) (*Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOf(s.state.clients, func(c Client) bool { return c.ID == id })
	if i < 0 {
		return nil, fmt.Errorf("client %s: %w", id, ErrNotFound)
	}

	c := s.state.clients[i]

	return &c, nil
}

func (s *Service) SubClients() []SubClient {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]SubClient(nil), s.state.subClients...)
}

// SubClientsOf returns the sub-clients belonging to clientID.
func (s *Service) SubClientsOf(clientID uuid.UUID) []SubClient {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []SubClient

	for _, sc := range s.state.subClients {
		if sc.ClientID == clientID {
			out = append(out, sc)
		}
	}

	return out
}

func (s *Service) SubClient(id uuid.UUID) (*SubClient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOf(s.state.subClients, func(sc SubClient) bool { return sc.ID == id })
	if i < 0 {
		return nil, fmt.Errorf("sub-client %s: %w", id, ErrNotFound)
	}

	sc := s.state.subClients[i]

	return &sc, nil
}

func (s *Service) WorkEntries() []WorkEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]WorkEntry, len(s.state.entries))
	for i, e := range s.state.entries {
		out[i] = e.clone()
	}

	return out
}

func (s *Service) WorkEntry(id uuid.UUID) (*WorkEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOf(s.state.entries, func(e WorkEntry) bool { return e.ID == id })
	if i < 0 {
		return nil, fmt.Errorf("work entry %s: %w", id, ErrNotFound)
	}

	e := s.state.entries[i].clone()

	return &e, nil
}

func (s *Service) Invoices() []Invoice {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Invoice, len(s.state.invoices))
	for i, inv := range s.state.invoices {
		out[i] = inv.clone()
	}

	return out
}

func (s *Service) Invoice(id uuid.UUID) (*Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOf(s.state.invoices, func(inv Invoice) bool { return inv.ID == id })
	if i < 0 {
		return nil, fmt.Errorf("invoice %s: %w", id, ErrNotFound)
	}

	inv := s.state.invoices[i].clone()

	return &inv, nil
}

func indexOf[T any](items []T, match func(T) bool) int {
	for i, item := range items {
		if match(item) {
			return i
		}
	}

	return -1
}

func sameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
