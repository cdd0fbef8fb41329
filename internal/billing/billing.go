package billing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CalculateBill returns the amount owed for the given hours at the given hourly rate.
func CalculateBill(hours, rate decimal.Decimal) decimal.Decimal {
	return hours.Mul(rate)
}

// Window is an inclusive time range.
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// ThisWeek returns the Monday 00:00:00.000 .. Sunday 23:59:59.999 window containing now.
// Weeks start on Monday, so a Sunday belongs to the week of the preceding Monday.
func ThisWeek(now time.Time) Window {
	offset := int(now.Weekday())
	if offset == 0 {
		offset = 7
	}

	start := time.Date(now.Year(), now.Month(), now.Day()-offset+1, 0, 0, 0, 0, now.Location())
	next := time.Date(start.Year(), start.Month(), start.Day()+7, 0, 0, 0, 0, now.Location())

	return Window{Start: start, End: next.Add(-time.Millisecond)}
}

// LastWeek returns the completed Monday..Sunday window immediately preceding the week containing now.
func LastWeek(now time.Time) Window {
	thisWeek := ThisWeek(now)
	start := thisWeek.Start

	return Window{
		Start: time.Date(start.Year(), start.Month(), start.Day()-7, 0, 0, 0, 0, start.Location()),
		End:   start.Add(-time.Millisecond),
	}
}

// InvoiceNumber formats an invoice number as INV-YYYYMMDD-NNN.
// seq is reduced modulo 1000 and zero padded.
func InvoiceNumber(date time.Time, seq int) string {
	if seq < 0 {
		seq = -seq
	}

	return fmt.Sprintf("INV-%s-%03d", date.Format("20060102"), seq%1000)
}
