package importer_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/tally/internal/importer"
	"github.com/MrJamesThe3rd/tally/internal/tracker"
	"github.com/MrJamesThe3rd/tally/internal/tracker/store"
)

func newServices(t *testing.T) (*tracker.Service, *importer.Service) {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	tr := tracker.NewService(store.NewMemory(), tracker.WithLogger(log))
	require.NoError(t, tr.Load(context.Background()))

	imp := importer.NewService(tr, log,
		importer.WithClock(func() time.Time { return fixedNow }),
		importer.WithLocation(time.UTC),
	)

	return tr, imp
}

func TestService_Import_ClientsThenEntries(t *testing.T) {
	ctx := context.Background()
	tr, imp := newServices(t)

	clients := "Client,Sub Client,Rate\nAcme,West,120\nAcme,West,120\nAcme,East,\nGlobex,Branch,80\n"

	report, err := imp.Import(ctx, importer.TargetClients, importer.SourceCSV, strings.NewReader(clients))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Imported)
	assert.Equal(t, 3, report.SubClients)
	assert.Equal(t, []string{"Imported 2 clients and 3 sub-clients"}, report.Messages())
	assert.Len(t, tr.Clients(), 2)
	assert.Len(t, tr.SubClients(), 3)

	entries := "Date,Client,Sub Client,Project,Description,Hours,Bill,Invoiced,Rate,Paid\n" +
		`"3/15/2024","Acme","West",,"Design",5,,"","120","No"` + "\n" +
		"3/15/2024,Nobody,West,,x,1,,,,\n" +
		"someday,Globex,Branch,,y,2,,,,\n"

	report, err = imp.Import(ctx, importer.TargetWorkEntries, importer.SourceCSV, strings.NewReader(entries))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Imported)
	require.Len(t, report.Rejected, 1)
	assert.Equal(t, 3, report.Rejected[0].Row)
	assert.ErrorIs(t, report.Rejected[0].Err, importer.ErrUnknownClient)
	require.Len(t, report.Warnings, 1)

	msgs := report.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "Successfully imported 2 work entries", msgs[0])
	assert.Equal(t, "Skipped 1 invalid rows (e.g., rows: 3)", msgs[1])

	stored := tr.WorkEntries()
	require.Len(t, stored, 2)
	assert.True(t, decimal.NewFromInt(600).Equal(stored[0].Bill))
	assert.True(t, decimal.NewFromInt(160).Equal(stored[1].Bill))
	assert.True(t, fixedNow.Equal(stored[1].Date))
}

func TestService_Import_NoValidRows(t *testing.T) {
	ctx := context.Background()
	tr, imp := newServices(t)

	report, err := imp.Import(ctx, importer.TargetWorkEntries, importer.SourcePaste,
		strings.NewReader("3/15/2024\tNobody\tWest\t\t\t1\n"))

	assert.ErrorIs(t, err, importer.ErrNoValidRows)
	require.NotNil(t, report)
	assert.Equal(t, []int{1}, rows(report.Rejected))
	assert.Empty(t, tr.WorkEntries())
}

func TestService_Import_SubClients(t *testing.T) {
	ctx := context.Background()
	tr, imp := newServices(t)

	acme, err := tr.AddClient(ctx, tracker.ClientParams{Name: "Acme", Rate: decimal.NewFromInt(100)})
	require.NoError(t, err)

	_, err = tr.AddSubClient(ctx, tracker.SubClientParams{ClientID: acme.ID, Name: "West"})
	require.NoError(t, err)

	report, err := imp.Import(ctx, importer.TargetSubClients, importer.SourcePaste,
		strings.NewReader("Acme\tWest\nAcme  North\nInitech\tHQ\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Imported)
	assert.Equal(t, []int{3}, rows(report.Rejected))
	assert.Len(t, tr.SubClientsOf(acme.ID), 2)

	report, err = imp.Import(ctx, importer.TargetSubClients, importer.SourcePaste,
		strings.NewReader("Acme\tWest\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, report.Imported)
}

func TestService_Import_UnreadableInput(t *testing.T) {
	_, imp := newServices(t)

	report, err := imp.Import(context.Background(), importer.TargetClients, importer.SourceCSV, strings.NewReader(""))

	assert.ErrorIs(t, err, importer.ErrEmptyInput)
	assert.Nil(t, report)
}

func rows(rejected []importer.Rejection) []int {
	out := make([]int, len(rejected))
	for i, r := range rejected {
		out[i] = r.Row
	}

	return out
}
