package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Frequency is the payment cadence of a credit. Values are the lowercase
// labels the spreadsheets use in the "Tipo de pago" column.
type Frequency string

const (
	FrequencyDaily    Frequency = "diario"
	FrequencyWeekly   Frequency = "semanal"
	FrequencyBiweekly Frequency = "quincenal"
	FrequencyMonthly  Frequency = "mensual"
)

// IntervalDays returns the number of days between expected payments.
// Unrecognized frequencies fall back to the daily interval so a bad cell
// never blocks a row from loading.
func (f Frequency) IntervalDays() int {
	switch f {
	case FrequencyWeekly:
		return 7
	case FrequencyBiweekly:
		return 15
	case FrequencyMonthly:
		return 30
	default:
		return 1
	}
}

// Status classifies a credit's payment timeliness. It is derived by the
// engine and never assigned anywhere else.
type Status string

const (
	StatusPaid     Status = "Pagado"
	StatusOverdue  Status = "Vencido"
	StatusDueToday Status = "Pagan hoy"
	StatusDueSoon  Status = "Próximo a vencer"
	StatusCurrent  Status = "Al día"
	StatusNoDate   Status = "Sin fecha"
)

// FillColor returns the RGB hex fill used for a row of this status in the
// exported spreadsheet. An empty string means the row is left unfilled.
func (s Status) FillColor() string {
	switch s {
	case StatusOverdue:
		return "FFC7CE"
	case StatusDueToday:
		return "ADD8E6"
	case StatusDueSoon:
		return "FFEB9C"
	case StatusCurrent:
		return "C6EFCE"
	case StatusPaid:
		return "DDBEA9"
	default:
		return ""
	}
}

// Credit is one installment credit owed by a client. Balance, NextDueDate
// and Status are derived fields; the engine recomputes them after every
// mutation.
type Credit struct {
	ID          uuid.UUID       `json:"id"`
	Client      string          `json:"client"`
	Principal   decimal.Decimal `json:"principal"`
	Frequency   Frequency       `json:"frequency"`
	OriginDate  *time.Time      `json:"origin_date,omitempty"`
	PaidToDate  decimal.Decimal `json:"paid_to_date"`
	NextDueDate *time.Time      `json:"next_due_date,omitempty"`
	Balance     decimal.Decimal `json:"balance"`
	Status      Status          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Clone returns a deep copy of the credit.
func (c *Credit) Clone() *Credit {
	cp := *c
	if c.OriginDate != nil {
		d := *c.OriginDate
		cp.OriginDate = &d
	}
	if c.NextDueDate != nil {
		d := *c.NextDueDate
		cp.NextDueDate = &d
	}
	return &cp
}

// NormalizeFrequency lowercases and trims a raw "Tipo de pago" value,
// defaulting to daily when the cell is empty.
func NormalizeFrequency(s string) Frequency {
	f := Frequency(strings.ToLower(strings.TrimSpace(s)))
	if f == "" {
		return FrequencyDaily
	}
	return f
}

// ValidationError reports a field value that cannot form a well-formed
// credit or payment.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
