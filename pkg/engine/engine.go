// Package engine derives the balance, next due date and status of a credit
// from its principal, payments to date and payment frequency. Every mutation
// of a credit (payment recorded, field edited, row imported) runs through a
// recompute so the derived fields never drift from their inputs.
package engine

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mcclellann/creditos/pkg/models"
)

// dueSoonWindowDays is the classification window between "due today" and
// "current": a due date within this many days reads as due soon.
const dueSoonWindowDays = 2

// Recompute refreshes a credit's derived fields as of today.
//
// Classification order matters: a zero or negative balance always wins and
// clears the due date, a credit with no resolvable due date reads as
// "Sin fecha", and everything else is classified by the day difference
// between the due date and today. An already-lapsed due date is left where
// it is so the credit reads as overdue; the date only moves when a payment
// is applied.
//
// Recompute is idempotent: running it twice with the same today yields an
// identical credit.
func Recompute(c *models.Credit, today time.Time) {
	c.Balance = c.Principal.Sub(c.PaidToDate)
	if c.Balance.LessThanOrEqual(decimal.Zero) {
		c.Balance = decimal.Zero
		c.NextDueDate = nil
		c.Status = models.StatusPaid
		return
	}

	if c.NextDueDate == nil {
		if c.OriginDate == nil {
			c.Status = models.StatusNoDate
			return
		}
		due := addDays(*c.OriginDate, c.Frequency.IntervalDays())
		c.NextDueDate = &due
	}

	switch diff := daysUntil(*c.NextDueDate, today); {
	case diff < 0:
		c.Status = models.StatusOverdue
	case diff == 0:
		c.Status = models.StatusDueToday
	case diff <= dueSoonWindowDays:
		c.Status = models.StatusDueSoon
	default:
		c.Status = models.StatusCurrent
	}
}

// ApplyPayment adds amount to the credit's payments and advances the due
// date one interval, then recomputes. The due date advances from its prior
// value, not from today; a due date already in the past re-anchors to
// today + interval so it always lands on the next upcoming date. Paying
// more than the balance is allowed and simply settles the credit.
func ApplyPayment(c *models.Credit, amount decimal.Decimal, today time.Time) error {
	if amount.IsNegative() {
		return models.ValidationError{Field: "amount", Reason: "must be non-negative"}
	}

	c.PaidToDate = c.PaidToDate.Add(amount)

	stillOwing := c.Principal.Sub(c.PaidToDate).GreaterThan(decimal.Zero)
	if stillOwing && c.NextDueDate != nil {
		interval := c.Frequency.IntervalDays()
		var due time.Time
		if daysUntil(*c.NextDueDate, today) < 0 {
			due = addDays(today, interval)
		} else {
			due = addDays(*c.NextDueDate, interval)
		}
		c.NextDueDate = &due
	}

	Recompute(c, today)
	c.UpdatedAt = time.Now()
	return nil
}

// CreditInput carries the operator- or import-supplied fields of a new
// credit. Derived fields are not accepted; the engine computes them.
type CreditInput struct {
	Client      string
	Principal   decimal.Decimal
	Frequency   models.Frequency
	OriginDate  *time.Time
	PaidToDate  decimal.Decimal
	NextDueDate *time.Time
}

// NewCredit validates the input, fills defaults and returns a recomputed
// credit with a fresh identity. A nil origin date is kept as-is: a credit
// without any dates legitimately classifies as "Sin fecha".
func NewCredit(in CreditInput, today time.Time) (*models.Credit, error) {
	client := strings.TrimSpace(in.Client)
	if client == "" {
		return nil, models.ValidationError{Field: "client", Reason: "must not be empty"}
	}
	if in.Principal.IsNegative() {
		return nil, models.ValidationError{Field: "principal", Reason: "must be non-negative"}
	}
	if in.PaidToDate.IsNegative() {
		return nil, models.ValidationError{Field: "paid_to_date", Reason: "must be non-negative"}
	}

	freq := in.Frequency
	if freq == "" {
		freq = models.FrequencyDaily
	}

	now := time.Now()
	c := &models.Credit{
		ID:          uuid.New(),
		Client:      client,
		Principal:   in.Principal,
		Frequency:   freq,
		OriginDate:  in.OriginDate,
		PaidToDate:  in.PaidToDate,
		NextDueDate: in.NextDueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	Recompute(c, today)
	return c, nil
}

// dateOf strips the time-of-day component, pinning the calendar date to UTC
// so day arithmetic is immune to DST.
func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func addDays(t time.Time, days int) time.Time {
	return dateOf(t).AddDate(0, 0, days)
}

// daysUntil returns the whole-day difference between a due date and today,
// comparing date components only.
func daysUntil(due, today time.Time) int {
	return int(dateOf(due).Sub(dateOf(today)).Hours() / 24)
}
