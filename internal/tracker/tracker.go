package tracker

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("validation failed")
	ErrHasDependents = errors.New("record is still referenced")
	ErrInvoiced      = errors.New("work entry is invoiced")
	ErrNoEntries     = errors.New("no uninvoiced entries for last week")
)

// Client is a billable customer with a default hourly rate.
type Client struct {
	ID   uuid.UUID       `json:"id"`
	Name string          `json:"name"`
	Rate decimal.Decimal `json:"rate"`
}

// SubClient is a named division of a Client that work is billed against.
type SubClient struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	ClientID uuid.UUID `json:"clientId"`
}

// WorkEntry is a single billable unit of work.
type WorkEntry struct {
	ID              uuid.UUID       `json:"id"`
	Date            time.Time       `json:"date"`
	ClientID        uuid.UUID       `json:"clientId"`
	SubClientID     uuid.UUID       `json:"subClientId"`
	Project         string          `json:"project"`
	TaskDescription string          `json:"taskDescription"`
	FileAttachments []string        `json:"fileAttachments"`
	Hours           decimal.Decimal `json:"hours"`
	Rate            decimal.Decimal `json:"rate"`
	Bill            decimal.Decimal `json:"bill"` // Hours * Rate unless imported with an explicit bill
	Invoiced        bool            `json:"invoiced"`
	Paid            bool            `json:"paid"`
}

// Invoice is an immutable snapshot of work entries billed together.
type Invoice struct {
	ID            uuid.UUID       `json:"id"`
	InvoiceNumber string          `json:"invoiceNumber"`
	StartDate     time.Time       `json:"startDate"`
	EndDate       time.Time       `json:"endDate"`
	Entries       []WorkEntry     `json:"entries"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	CreatedAt     time.Time       `json:"createdAt"`
}

func (e WorkEntry) clone() WorkEntry {
	if e.FileAttachments != nil {
		e.FileAttachments = append([]string{}, e.FileAttachments...)
	}

	return e
}

func (inv Invoice) clone() Invoice {
	entries := make([]WorkEntry, len(inv.Entries))
	for i, e := range inv.Entries {
		entries[i] = e.clone()
	}

	inv.Entries = entries

	return inv
}
