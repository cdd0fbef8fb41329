package importer

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/billing"
	"github.com/MrJamesThe3rd/tally/internal/tracker"
)

// Resolver turns tables into creation requests against a snapshot of known clients and sub-clients.
// It never creates clients or sub-clients.
type Resolver struct {
	clients    map[string]tracker.Client
	subClients map[subClientKey]tracker.SubClient
	now        func() time.Time
	loc        *time.Location
}

// subClientKey is the case-insensitive (client name, sub-client name) pair.
type subClientKey struct {
	client string
	name   string
}

func newSubClientKey(client, name string) subClientKey {
	return subClientKey{client: foldName(client), name: foldName(name)}
}

func foldName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

type Option func(*Resolver)

// WithClock sets the time used when a date cannot be parsed.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// WithLocation sets the zone for dates that carry none.
func WithLocation(loc *time.Location) Option {
	return func(r *Resolver) { r.loc = loc }
}

func NewResolver(clients []tracker.Client, subClients []tracker.SubClient, opts ...Option) *Resolver {
	r := &Resolver{
		clients:    make(map[string]tracker.Client, len(clients)),
		subClients: make(map[subClientKey]tracker.SubClient, len(subClients)),
		now:        time.Now,
		loc:        time.Local,
	}

	for _, opt := range opts {
		opt(r)
	}

	byID := make(map[string]tracker.Client, len(clients))

	for _, c := range clients {
		byID[c.ID.String()] = c

		if _, dup := r.clients[foldName(c.Name)]; !dup {
			r.clients[foldName(c.Name)] = c
		}
	}

	for _, sc := range subClients {
		c, ok := byID[sc.ClientID.String()]
		if !ok {
			continue
		}

		key := newSubClientKey(c.Name, sc.Name)
		if _, dup := r.subClients[key]; !dup {
			r.subClients[key] = sc
		}
	}

	return r
}

// WorkEntries resolves every row of t into a work entry request or a rejection.
func (r *Resolver) WorkEntries(t Table, layout Layout) Result[tracker.WorkEntryParams] {
	cols := resolveColumns(workEntryRules, t.Header, layout)

	var res Result[tracker.WorkEntryParams]

	for i, row := range t.Rows {
		rowNum := t.RowNumber(i)

		var p tracker.WorkEntryParams

		err := isolate(func() error {
			var err error
			p, err = r.workEntry(cols, row, rowNum, &res)

			return err
		})
		if err != nil {
			res.reject(rowNum, err)
			continue
		}

		res.Accepted = append(res.Accepted, p)
	}

	return res
}

func (r *Resolver) workEntry(
	cols columns,
	row []Cell,
	rowNum int,
	res *Result[tracker.WorkEntryParams],
) (tracker.WorkEntryParams, error) {
	if f, ok := missing(workEntryRules, cols, row); ok {
		return tracker.WorkEntryParams{}, fmt.Errorf("%w: %s", ErrMissingField, f)
	}

	clientName := cols.cell(row, FieldClient).String()

	client, ok := r.clients[foldName(clientName)]
	if !ok {
		return tracker.WorkEntryParams{}, fmt.Errorf("%w %q", ErrUnknownClient, clientName)
	}

	subName := cols.cell(row, FieldSubClient).String()

	sub, ok := r.subClients[newSubClientKey(clientName, subName)]
	if !ok {
		return tracker.WorkEntryParams{}, fmt.Errorf("%w %q for client %q", ErrUnknownSubClient, subName, clientName)
	}

	hoursCell := cols.cell(row, FieldHours)

	hours, ok := parsePositive(hoursCell)
	if !ok {
		return tracker.WorkEntryParams{}, fmt.Errorf("%w %q", ErrInvalidHours, hoursCell.String())
	}

	rate, ok := parseNonNegative(cols.cell(row, FieldRate))
	if !ok {
		rate = client.Rate
	}

	bill, ok := parseNonNegative(cols.cell(row, FieldBill))
	if !ok {
		bill = billing.CalculateBill(hours, rate)
	}

	dateCell := cols.cell(row, FieldDate)

	date, ok := parseDate(dateCell, r.loc)
	if !ok {
		date = r.now()
		res.warn("row %d: unrecognized date %q, using %s", rowNum, dateCell.String(), date.Format(time.DateOnly))
	}

	return tracker.WorkEntryParams{
		Date:            date,
		ClientID:        client.ID,
		SubClientID:     sub.ID,
		Project:         cols.cell(row, FieldProject).String(),
		TaskDescription: cols.cell(row, FieldDescription).String(),
		FileAttachments: []string{},
		Hours:           hours,
		Rate:            rate,
		Bill:            decimal.NewNullDecimal(bill),
		Invoiced:        parseBool(cols.cell(row, FieldInvoiced)),
		Paid:            parseBool(cols.cell(row, FieldPaid)),
	}, nil
}

// SubClients resolves client/sub-client rows against existing clients. Pairs that
// already exist or repeat an earlier row are dropped without a rejection.
func (r *Resolver) SubClients(t Table, layout Layout) Result[tracker.SubClientParams] {
	cols := resolveColumns(subClientRules, t.Header, layout)
	seen := make(map[subClientKey]bool)

	var res Result[tracker.SubClientParams]

	for i, row := range t.Rows {
		rowNum := t.RowNumber(i)

		err := isolate(func() error {
			if f, ok := missing(subClientRules, cols, row); ok {
				return fmt.Errorf("%w: %s", ErrMissingField, f)
			}

			clientName := cols.cell(row, FieldClient).String()
			name := cols.cell(row, FieldSubClient).String()

			client, ok := r.clients[foldName(clientName)]
			if !ok {
				return fmt.Errorf("%w %q", ErrUnknownClient, clientName)
			}

			key := newSubClientKey(client.Name, name)
			if _, exists := r.subClients[key]; exists || seen[key] {
				return nil
			}

			seen[key] = true

			res.Accepted = append(res.Accepted, tracker.SubClientParams{ClientID: client.ID, Name: name})

			return nil
		})
		if err != nil {
			res.reject(rowNum, err)
		}
	}

	return res
}

// ExtractClients collects clients, their rates and sub-clients from t. Clients are
// de-duplicated by case-insensitive name, keeping the first rate seen; sub-clients
// by case-insensitive name within their client.
func ExtractClients(t Table, layout Layout) Result[tracker.ClientImport] {
	cols := resolveColumns(clientRules, t.Header, layout)
	index := make(map[string]int)
	seenSub := make(map[subClientKey]bool)

	var res Result[tracker.ClientImport]

	for i, row := range t.Rows {
		rowNum := t.RowNumber(i)

		err := isolate(func() error {
			if f, ok := missing(clientRules, cols, row); ok {
				return fmt.Errorf("%w: %s", ErrMissingField, f)
			}

			name := cols.cell(row, FieldClient).String()

			rate := decimal.Zero

			if rc := cols.cell(row, FieldRate); !rc.IsEmpty() {
				var ok bool
				if rate, ok = parseNonNegative(rc); !ok {
					return fmt.Errorf("%w %q", ErrInvalidRate, rc.String())
				}
			}

			ci, ok := index[foldName(name)]
			if !ok {
				res.Accepted = append(res.Accepted, tracker.ClientImport{Name: name, Rate: rate})
				ci = len(res.Accepted) - 1
				index[foldName(name)] = ci
			}

			sub := cols.cell(row, FieldSubClient).String()
			if sub == "" {
				return nil
			}

			key := newSubClientKey(name, sub)
			if seenSub[key] {
				return nil
			}

			seenSub[key] = true
			res.Accepted[ci].SubClients = append(res.Accepted[ci].SubClients, sub)

			return nil
		})
		if err != nil {
			res.reject(rowNum, err)
		}
	}

	return res
}

// isolate runs one row, turning a panic into that row's error.
func isolate(fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("unexpected failure: %v", p)
		}
	}()

	return fn()
}
