package export_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/tally/internal/export"
	"github.com/MrJamesThe3rd/tally/internal/tracker"
	"github.com/MrJamesThe3rd/tally/internal/tracker/store"
)

func setup(t *testing.T) (*tracker.Service, *tracker.Invoice) {
	t.Helper()

	ctx := context.Background()
	now := time.Date(2024, 3, 20, 9, 0, 0, 0, time.UTC)

	tr := tracker.NewService(store.NewMemory(),
		tracker.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		tracker.WithClock(func() time.Time { return now }),
		tracker.WithInvoiceSequence(func() int { return 42 }),
	)
	require.NoError(t, tr.Load(ctx))

	acme, err := tr.AddClient(ctx, tracker.ClientParams{Name: "Acme", Rate: decimal.NewFromInt(50)})
	require.NoError(t, err)

	west, err := tr.AddSubClient(ctx, tracker.SubClientParams{ClientID: acme.ID, Name: "West"})
	require.NoError(t, err)

	east, err := tr.AddSubClient(ctx, tracker.SubClientParams{ClientID: acme.ID, Name: "East"})
	require.NoError(t, err)

	add := func(day int, sub *tracker.SubClient, project, desc string, hours int64) *tracker.WorkEntry {
		e, err := tr.AddWorkEntry(ctx, tracker.WorkEntryParams{
			Date:            time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC),
			ClientID:        acme.ID,
			SubClientID:     sub.ID,
			Project:         project,
			TaskDescription: desc,
			Hours:           decimal.NewFromInt(hours),
			Rate:            decimal.NewFromInt(50),
		})
		require.NoError(t, err)

		return e
	}

	first := add(11, west, "Site", "Survey", 2)
	add(12, east, "Logo", "Sketches", 1)
	add(13, west, "Site", "Report", 1)

	require.NoError(t, tr.SetPaid(ctx, first.ID, true))

	_, err = tr.AttachFile(ctx, first.ID)
	require.NoError(t, err)

	inv, err := tr.GenerateWeeklyInvoice(ctx)
	require.NoError(t, err)

	return tr, inv
}

func TestService_Summary(t *testing.T) {
	tr, inv := setup(t)
	svc := export.NewService(tr, t.TempDir(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	got := svc.Summary(*inv)

	attached := inv.Entries[0].FileAttachments
	require.Len(t, attached, 1)

	want := "INV-20240320-042 (Mar 11, 2024 - Mar 17, 2024)\n" +
		"\nAcme / West: 3 h, $150.00\n" +
		"* 2024-03-11 | Site | Survey | 2 h | $100.00 | " + attached[0] + "\n" +
		"* 2024-03-13 | Site | Report | 1 h | $50.00 | No files\n" +
		"\nAcme / East: 1 h, $50.00\n" +
		"* 2024-03-12 | Logo | Sketches | 1 h | $50.00 | No files\n" +
		"\nTotal: $200.00\n"

	assert.Equal(t, want, got)
}

func TestService_Export(t *testing.T) {
	tr, inv := setup(t)
	dir := filepath.Join(t.TempDir(), "invoices")
	svc := export.NewService(tr, dir, slog.New(slog.NewTextHandler(io.Discard, nil)))

	path, err := svc.Export(context.Background(), inv.ID)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "INV-20240320-042.pdf"), path)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("%PDF")))
}

func TestService_Export_UnknownInvoice(t *testing.T) {
	tr, _ := setup(t)
	svc := export.NewService(tr, t.TempDir(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := svc.Export(context.Background(), uuid.New())

	assert.ErrorIs(t, err, tracker.ErrNotFound)
}
