package billing_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/MrJamesThe3rd/tally/internal/billing"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCalculateBill(t *testing.T) {
	type args struct {
		hours string
		rate  string
	}

	type testCase struct {
		name string
		args args
		want string
	}

	tests := []testCase{
		{name: "Whole", args: args{hours: "5", rate: "120"}, want: "600"},
		{name: "Fractional", args: args{hours: "1.25", rate: "80.5"}, want: "100.625"},
		{name: "ZeroRate", args: args{hours: "3", rate: "0"}, want: "0"},
		{name: "NoFloatDrift", args: args{hours: "0.1", rate: "3"}, want: "0.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := billing.CalculateBill(dec(tt.args.hours), dec(tt.args.rate))
			assert.True(t, dec(tt.want).Equal(got), "got %s, want %s", got, tt.want)
		})
	}
}

func TestLastWeek(t *testing.T) {
	wantStart := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2024, 3, 17, 23, 59, 59, int(999*time.Millisecond), time.UTC)

	tests := []struct {
		name string
		now  time.Time
	}{
		{name: "Monday", now: time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC)},
		{name: "Wednesday", now: time.Date(2024, 3, 20, 15, 30, 0, 0, time.UTC)},
		{name: "Sunday", now: time.Date(2024, 3, 24, 23, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := billing.LastWeek(tt.now)
			assert.True(t, wantStart.Equal(w.Start), "start %s", w.Start)
			assert.True(t, wantEnd.Equal(w.End), "end %s", w.End)
		})
	}
}

func TestThisWeek_SundayBelongsToPrecedingMonday(t *testing.T) {
	w := billing.ThisWeek(time.Date(2024, 3, 24, 12, 0, 0, 0, time.UTC))

	assert.True(t, time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC).Equal(w.Start), "start %s", w.Start)
	assert.True(t, time.Date(2024, 3, 24, 23, 59, 59, int(999*time.Millisecond), time.UTC).Equal(w.End), "end %s", w.End)
}

func TestWindow_Contains(t *testing.T) {
	w := billing.LastWeek(time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC))

	assert.True(t, w.Contains(w.Start))
	assert.True(t, w.Contains(w.End))
	assert.True(t, w.Contains(time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC)))
	assert.False(t, w.Contains(w.Start.Add(-time.Millisecond)))
	assert.False(t, w.Contains(time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC)))
}

func TestInvoiceNumber(t *testing.T) {
	date := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, "INV-20240305-007", billing.InvoiceNumber(date, 7))
	assert.Equal(t, "INV-20240305-999", billing.InvoiceNumber(date, 999))
	assert.Equal(t, "INV-20240305-000", billing.InvoiceNumber(date, 1000))
}

func TestFormatCurrency(t *testing.T) {
	assert.Equal(t, "$600.00", billing.FormatCurrency(dec("600")))
	assert.Equal(t, "$1,234.50", billing.FormatCurrency(dec("1234.5")))
	assert.Equal(t, "-$12.35", billing.FormatCurrency(dec("-12.345")))
	assert.Equal(t, "$0.00", billing.FormatCurrency(decimal.Zero))
}

func TestFormatHours(t *testing.T) {
	assert.Equal(t, "7.5", billing.FormatHours(dec("7.50")))
	assert.Equal(t, "2", billing.FormatHours(dec("2")))
}
