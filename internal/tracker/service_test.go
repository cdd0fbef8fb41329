package tracker_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/tally/internal/tracker"
	"github.com/MrJamesThe3rd/tally/internal/tracker/store"
)

// wednesday falls in the week of 2024-03-18; last week is 2024-03-11..2024-03-17.
var wednesday = time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC)

func day(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTracker(t *testing.T, s tracker.Store) *tracker.Service {
	t.Helper()

	svc := tracker.NewService(s,
		tracker.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		tracker.WithClock(func() time.Time { return wednesday }),
		tracker.WithInvoiceSequence(func() int { return 7 }),
	)
	require.NoError(t, svc.Load(context.Background()))

	return svc
}

type fixture struct {
	svc        *tracker.Service
	acme       *tracker.Client
	globex     *tracker.Client
	west, east *tracker.SubClient
	branch     *tracker.SubClient
}

func newFixture(t *testing.T, s tracker.Store) fixture {
	t.Helper()

	ctx := context.Background()
	f := fixture{svc: newTracker(t, s)}

	var err error

	f.acme, err = f.svc.AddClient(ctx, tracker.ClientParams{Name: "Acme", Rate: dec("50")})
	require.NoError(t, err)

	f.globex, err = f.svc.AddClient(ctx, tracker.ClientParams{Name: "Globex", Rate: dec("80")})
	require.NoError(t, err)

	f.west, err = f.svc.AddSubClient(ctx, tracker.SubClientParams{ClientID: f.acme.ID, Name: "West"})
	require.NoError(t, err)

	f.east, err = f.svc.AddSubClient(ctx, tracker.SubClientParams{ClientID: f.acme.ID, Name: "East"})
	require.NoError(t, err)

	f.branch, err = f.svc.AddSubClient(ctx, tracker.SubClientParams{ClientID: f.globex.ID, Name: "Branch"})
	require.NoError(t, err)

	return f
}

func (f fixture) entry(t *testing.T, date time.Time, sub *tracker.SubClient, hours, rate string) *tracker.WorkEntry {
	t.Helper()

	e, err := f.svc.AddWorkEntry(context.Background(), tracker.WorkEntryParams{
		Date:        date,
		ClientID:    sub.ClientID,
		SubClientID: sub.ID,
		Hours:       dec(hours),
		Rate:        dec(rate),
	})
	require.NoError(t, err)

	return e
}

func TestService_AddClient_Validation(t *testing.T) {
	type testCase struct {
		name   string
		params tracker.ClientParams
	}

	tests := []testCase{
		{name: "EmptyName", params: tracker.ClientParams{Name: "  ", Rate: dec("10")}},
		{name: "NegativeRate", params: tracker.ClientParams{Name: "Acme", Rate: dec("-1")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTracker(t, store.NewMemory())

			_, err := svc.AddClient(context.Background(), tt.params)

			assert.ErrorIs(t, err, tracker.ErrValidation)
			assert.Empty(t, svc.Clients())
		})
	}
}

func TestService_AddClient_ZeroRate(t *testing.T) {
	svc := newTracker(t, store.NewMemory())

	c, err := svc.AddClient(context.Background(), tracker.ClientParams{Name: " Pro Bono ", Rate: decimal.Zero})

	require.NoError(t, err)
	assert.Equal(t, "Pro Bono", c.Name)
	assert.NotEqual(t, uuid.Nil, c.ID)
}

func TestService_UpdateClient_PropagatesRate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, store.NewMemory())

	open := f.entry(t, day(12), f.west, "2", "50")
	billed := f.entry(t, day(13), f.east, "1", "50")
	other := f.entry(t, day(13), f.branch, "1", "80")

	_, err := f.svc.GenerateWeeklyInvoice(ctx)
	require.NoError(t, err)

	open2 := f.entry(t, day(19), f.west, "3", "50")

	updated, err := f.svc.UpdateClient(ctx, f.acme.ID, tracker.ClientParams{Name: "Acme Corp", Rate: dec("60")})
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", updated.Name)

	got, err := f.svc.WorkEntry(open2.ID)
	require.NoError(t, err)
	assert.True(t, dec("60").Equal(got.Rate))
	assert.True(t, dec("180").Equal(got.Bill))

	for _, id := range []uuid.UUID{open.ID, billed.ID} {
		got, err := f.svc.WorkEntry(id)
		require.NoError(t, err)
		assert.True(t, got.Invoiced)
		assert.True(t, dec("50").Equal(got.Rate))
	}

	got, err = f.svc.WorkEntry(other.ID)
	require.NoError(t, err)
	assert.True(t, dec("80").Equal(got.Bill))
}

func TestService_DeleteGuards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, store.NewMemory())

	err := f.svc.DeleteClient(ctx, f.acme.ID)
	assert.ErrorIs(t, err, tracker.ErrHasDependents)

	e := f.entry(t, day(19), f.west, "1", "50")

	err = f.svc.DeleteSubClient(ctx, f.west.ID)
	assert.ErrorIs(t, err, tracker.ErrHasDependents)

	_, err = f.svc.UpdateSubClient(ctx, f.west.ID, tracker.SubClientParams{ClientID: f.globex.ID, Name: "West"})
	assert.ErrorIs(t, err, tracker.ErrHasDependents)

	renamed, err := f.svc.UpdateSubClient(ctx, f.west.ID, tracker.SubClientParams{ClientID: f.acme.ID, Name: "West Coast"})
	require.NoError(t, err)
	assert.Equal(t, "West Coast", renamed.Name)

	require.NoError(t, f.svc.DeleteWorkEntry(ctx, e.ID))
	require.NoError(t, f.svc.DeleteSubClient(ctx, f.west.ID))
	require.NoError(t, f.svc.DeleteSubClient(ctx, f.east.ID))
	require.NoError(t, f.svc.DeleteClient(ctx, f.acme.ID))

	_, err = f.svc.Client(f.acme.ID)
	assert.ErrorIs(t, err, tracker.ErrNotFound)

	err = f.svc.DeleteClient(ctx, uuid.New())
	assert.ErrorIs(t, err, tracker.ErrNotFound)
}

func TestService_AddWorkEntry(t *testing.T) {
	type testCase struct {
		name     string
		params   func(f fixture) tracker.WorkEntryParams
		wantErr  error
		wantBill string
	}

	tests := []testCase{
		{
			name: "ComputesBill",
			params: func(f fixture) tracker.WorkEntryParams {
				return tracker.WorkEntryParams{Date: day(19), ClientID: f.acme.ID, SubClientID: f.west.ID, Hours: dec("0.1"), Rate: dec("3")}
			},
			wantBill: "0.3",
		},
		{
			name: "ExplicitBill",
			params: func(f fixture) tracker.WorkEntryParams {
				return tracker.WorkEntryParams{
					Date: day(19), ClientID: f.acme.ID, SubClientID: f.west.ID,
					Hours: dec("2"), Rate: dec("50"), Bill: decimal.NewNullDecimal(dec("75")),
				}
			},
			wantBill: "75",
		},
		{
			name: "ZeroHours",
			params: func(f fixture) tracker.WorkEntryParams {
				return tracker.WorkEntryParams{Date: day(19), ClientID: f.acme.ID, SubClientID: f.west.ID, Hours: decimal.Zero, Rate: dec("50")}
			},
			wantErr: tracker.ErrValidation,
		},
		{
			name: "MissingDate",
			params: func(f fixture) tracker.WorkEntryParams {
				return tracker.WorkEntryParams{ClientID: f.acme.ID, SubClientID: f.west.ID, Hours: dec("1"), Rate: dec("50")}
			},
			wantErr: tracker.ErrValidation,
		},
		{
			name: "SubClientOfAnotherClient",
			params: func(f fixture) tracker.WorkEntryParams {
				return tracker.WorkEntryParams{Date: day(19), ClientID: f.acme.ID, SubClientID: f.branch.ID, Hours: dec("1"), Rate: dec("50")}
			},
			wantErr: tracker.ErrValidation,
		},
		{
			name: "UnknownClient",
			params: func(f fixture) tracker.WorkEntryParams {
				return tracker.WorkEntryParams{Date: day(19), ClientID: uuid.New(), SubClientID: f.west.ID, Hours: dec("1"), Rate: dec("50")}
			},
			wantErr: tracker.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, store.NewMemory())

			e, err := f.svc.AddWorkEntry(context.Background(), tt.params(f))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, f.svc.WorkEntries())

				return
			}

			require.NoError(t, err)
			assert.True(t, dec(tt.wantBill).Equal(e.Bill), "bill %s", e.Bill)
			assert.NotNil(t, e.FileAttachments)
			assert.False(t, e.Invoiced)
		})
	}
}

func TestService_UpdateWorkEntry_Bill(t *testing.T) {
	type testCase struct {
		name     string
		edit     func(p *tracker.WorkEntryParams)
		wantBill string
	}

	tests := []testCase{
		{
			name:     "unrelated edit keeps explicit bill",
			edit:     func(p *tracker.WorkEntryParams) { p.Project = "Renamed" },
			wantBill: "75",
		},
		{
			name:     "hours change recomputes",
			edit:     func(p *tracker.WorkEntryParams) { p.Hours = dec("3") },
			wantBill: "150",
		},
		{
			name:     "rate change recomputes",
			edit:     func(p *tracker.WorkEntryParams) { p.Rate = dec("40") },
			wantBill: "80",
		},
		{
			name: "explicit bill wins",
			edit: func(p *tracker.WorkEntryParams) {
				p.Bill = decimal.NewNullDecimal(dec("90"))
			},
			wantBill: "90",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, store.NewMemory())

			created, err := f.svc.ImportWorkEntries(ctx, []tracker.WorkEntryParams{{
				Date:        day(19),
				ClientID:    f.acme.ID,
				SubClientID: f.west.ID,
				Hours:       dec("2"),
				Rate:        dec("50"),
				Bill:        decimal.NewNullDecimal(dec("75")),
			}})
			require.NoError(t, err)
			require.Len(t, created, 1)

			params := tracker.ParamsFrom(created[0])
			tt.edit(&params)

			got, err := f.svc.UpdateWorkEntry(ctx, created[0].ID, params)
			require.NoError(t, err)
			assert.True(t, dec(tt.wantBill).Equal(got.Bill), "bill %s", got.Bill)
		})
	}
}

func TestService_InvoicedEntryIsLocked(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, store.NewMemory())

	e := f.entry(t, day(12), f.west, "2", "50")

	_, err := f.svc.GenerateWeeklyInvoice(ctx)
	require.NoError(t, err)

	err = f.svc.DeleteWorkEntry(ctx, e.ID)
	assert.ErrorIs(t, err, tracker.ErrInvoiced)

	locked, err := f.svc.WorkEntry(e.ID)
	require.NoError(t, err)

	params := tracker.ParamsFrom(*locked)
	params.Hours = dec("3")

	_, err = f.svc.UpdateWorkEntry(ctx, e.ID, params)
	assert.ErrorIs(t, err, tracker.ErrInvoiced)

	params = tracker.ParamsFrom(*locked)
	params.TaskDescription = "Revised notes"

	updated, err := f.svc.UpdateWorkEntry(ctx, e.ID, params)
	require.NoError(t, err)
	assert.Equal(t, "Revised notes", updated.TaskDescription)
	assert.True(t, updated.Invoiced)
	assert.True(t, dec("100").Equal(updated.Bill))

	require.NoError(t, f.svc.SetPaid(ctx, e.ID, true))

	got, err := f.svc.WorkEntry(e.ID)
	require.NoError(t, err)
	assert.True(t, got.Paid)
}

func TestService_Attachments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, store.NewMemory())

	e := f.entry(t, day(19), f.west, "1", "50")

	first, err := f.svc.AttachFile(ctx, e.ID)
	require.NoError(t, err)
	assert.Regexp(t, `^File-\d+\.pdf$`, first)

	second, err := f.svc.AttachFile(ctx, e.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.DetachFile(ctx, e.ID, 0))

	got, err := f.svc.WorkEntry(e.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{second}, got.FileAttachments)

	err = f.svc.DetachFile(ctx, e.ID, 5)
	assert.ErrorIs(t, err, tracker.ErrNotFound)

	_, err = f.svc.AttachFile(ctx, uuid.New())
	assert.ErrorIs(t, err, tracker.ErrNotFound)
}

func TestService_GenerateWeeklyInvoice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, store.NewMemory())

	monday := f.entry(t, day(11), f.west, "2", "50")
	wed := f.entry(t, day(13), f.east, "1", "50")
	current := f.entry(t, day(18), f.west, "4", "50")
	older := f.entry(t, day(10), f.west, "4", "50")

	inv, err := f.svc.GenerateWeeklyInvoice(ctx)
	require.NoError(t, err)

	assert.Equal(t, "INV-20240320-007", inv.InvoiceNumber)
	assert.True(t, dec("150").Equal(inv.TotalAmount))
	assert.True(t, day(11).Equal(inv.StartDate))
	assert.True(t, time.Date(2024, 3, 17, 23, 59, 59, int(999*time.Millisecond), time.UTC).Equal(inv.EndDate))
	assert.True(t, wednesday.Equal(inv.CreatedAt))
	require.Len(t, inv.Entries, 2)
	assert.Equal(t, monday.ID, inv.Entries[0].ID)
	assert.Equal(t, wed.ID, inv.Entries[1].ID)
	assert.False(t, inv.Entries[0].Invoiced)

	for _, id := range []uuid.UUID{monday.ID, wed.ID} {
		got, err := f.svc.WorkEntry(id)
		require.NoError(t, err)
		assert.True(t, got.Invoiced)
	}

	for _, id := range []uuid.UUID{current.ID, older.ID} {
		got, err := f.svc.WorkEntry(id)
		require.NoError(t, err)
		assert.False(t, got.Invoiced)
	}

	_, err = f.svc.GenerateWeeklyInvoice(ctx)
	assert.ErrorIs(t, err, tracker.ErrNoEntries)
	assert.Len(t, f.svc.Invoices(), 1)

	stored, err := f.svc.Invoice(inv.ID)
	require.NoError(t, err)
	assert.Equal(t, inv.InvoiceNumber, stored.InvoiceNumber)
}

func TestService_GenerateWeeklyInvoice_NoEntries(t *testing.T) {
	f := newFixture(t, store.NewMemory())

	e := f.entry(t, day(19), f.west, "1", "50")

	inv, err := f.svc.GenerateWeeklyInvoice(context.Background())

	assert.ErrorIs(t, err, tracker.ErrNoEntries)
	assert.Nil(t, inv)
	assert.Empty(t, f.svc.Invoices())

	got, err := f.svc.WorkEntry(e.ID)
	require.NoError(t, err)
	assert.False(t, got.Invoiced)
}

func TestService_PersistsAcrossLoad(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	f := newFixture(t, mem)

	e := f.entry(t, day(12), f.west, "1.25", "50")

	_, err := f.svc.AttachFile(ctx, e.ID)
	require.NoError(t, err)

	inv, err := f.svc.GenerateWeeklyInvoice(ctx)
	require.NoError(t, err)

	reloaded := newTracker(t, mem)

	assert.Len(t, reloaded.Clients(), 2)
	assert.Len(t, reloaded.SubClients(), 3)

	got, err := reloaded.WorkEntry(e.ID)
	require.NoError(t, err)
	assert.True(t, day(12).Equal(got.Date))
	assert.True(t, dec("62.5").Equal(got.Bill))
	assert.Len(t, got.FileAttachments, 1)
	assert.True(t, got.Invoiced)

	storedInv, err := reloaded.Invoice(inv.ID)
	require.NoError(t, err)
	assert.True(t, inv.EndDate.Equal(storedInv.EndDate))
	assert.True(t, inv.TotalAmount.Equal(storedInv.TotalAmount))
	require.Len(t, storedInv.Entries, 1)
	assert.Equal(t, e.ID, storedInv.Entries[0].ID)
}

func TestService_Load_Empty(t *testing.T) {
	svc := newTracker(t, store.NewMemory())

	assert.Empty(t, svc.Clients())
	assert.Empty(t, svc.WorkEntries())
	assert.Empty(t, svc.Invoices())
}

func TestService_Load_CorruptBlob(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.Set(ctx, tracker.KeyClients, []byte("{not json")))

	svc := tracker.NewService(mem)

	assert.Error(t, svc.Load(ctx))
}

func TestService_FailedWriteLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	mem := store.NewMemory()
	mock := tracker.NewMockStore(ctrl)
	errDisk := errors.New("disk full")

	var failKey string

	mock.EXPECT().Get(gomock.Any(), gomock.Any()).DoAndReturn(mem.Get).AnyTimes()
	mock.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, key string, value []byte) error {
			if key == failKey {
				return errDisk
			}

			return mem.Set(ctx, key, value)
		}).AnyTimes()

	f := newFixture(t, mock)
	e := f.entry(t, day(19), f.west, "2", "50")

	failKey = tracker.KeyWorkEntries

	_, err := f.svc.UpdateClient(ctx, f.acme.ID, tracker.ClientParams{Name: "Acme", Rate: dec("70")})
	assert.ErrorIs(t, err, errDisk)

	c, err := f.svc.Client(f.acme.ID)
	require.NoError(t, err)
	assert.True(t, dec("50").Equal(c.Rate))

	got, err := f.svc.WorkEntry(e.ID)
	require.NoError(t, err)
	assert.True(t, dec("100").Equal(got.Bill))

	_, err = f.svc.GenerateWeeklyInvoice(ctx)
	assert.ErrorIs(t, err, tracker.ErrNoEntries)

	reloaded := newTracker(t, mem)

	c, err = reloaded.Client(f.acme.ID)
	require.NoError(t, err)
	assert.True(t, dec("50").Equal(c.Rate))

	got, err = reloaded.WorkEntry(e.ID)
	require.NoError(t, err)
	assert.True(t, dec("50").Equal(got.Rate))
	assert.True(t, dec("100").Equal(got.Bill))

	failKey = tracker.KeyClients

	_, err = f.svc.AddClient(ctx, tracker.ClientParams{Name: "Initech", Rate: dec("10")})
	assert.ErrorIs(t, err, errDisk)
	assert.Len(t, f.svc.Clients(), 2)
}

func TestService_GenerateWeeklyInvoice_WriteFailure(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	mem := store.NewMemory()
	mock := tracker.NewMockStore(ctrl)

	var fail bool

	mock.EXPECT().Get(gomock.Any(), gomock.Any()).DoAndReturn(mem.Get).AnyTimes()
	mock.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, key string, value []byte) error {
			if fail && key == tracker.KeyInvoices {
				return errors.New("write failed")
			}

			return mem.Set(ctx, key, value)
		}).AnyTimes()

	f := newFixture(t, mock)
	e := f.entry(t, day(12), f.west, "2", "50")

	fail = true

	_, err := f.svc.GenerateWeeklyInvoice(ctx)
	require.Error(t, err)

	assert.Empty(t, f.svc.Invoices())

	got, err := f.svc.WorkEntry(e.ID)
	require.NoError(t, err)
	assert.False(t, got.Invoiced)

	reloaded := newTracker(t, mem)
	assert.Empty(t, reloaded.Invoices())

	got, err = reloaded.WorkEntry(e.ID)
	require.NoError(t, err)
	assert.False(t, got.Invoiced)

	inv, err := reloaded.GenerateWeeklyInvoice(ctx)
	require.NoError(t, err)
	require.Len(t, inv.Entries, 1)
	assert.Equal(t, e.ID, inv.Entries[0].ID)
}
