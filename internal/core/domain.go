package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Daily     Frequency = "daily"
	Weekly    Frequency = "weekly"
	Biweekly  Frequency = "biweekly"
	Monthly   Frequency = "monthly"
	Bimonthly Frequency = "bimonthly"
	Quarterly Frequency = "quarterly"
	Annual    Frequency = "annual"
)

const (
	KindIncome   TransactionKind = "income"
	KindExpense  TransactionKind = "expense"
	KindTransfer TransactionKind = "transfer"
)

// Template states are derived from stored fields, never persisted.
const (
	StateActive  TemplateState = "active"
	StatePaused  TemplateState = "paused"
	StateExpired TemplateState = "expired"
)

type (
	Frequency       string
	TransactionKind string
	TemplateState   string

	// Date is a calendar date with no meaningful time component.
	// All dates are normalized to midnight UTC.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Template is a recurring-transaction definition. It is not itself a
	// financial transaction; occurrences of it are materialized into
	// Transaction records by the scheduling engine.
	Template struct {
		ID          string
		OwnerID     string
		AccountID   string
		CategoryID  string
		Amount      Money // always positive; sign is derived from Kind
		Kind        TransactionKind
		Description string
		Frequency   Frequency
		StartDate   Date
		EndDate     Date // zero = open-ended, inclusive when set
		Active      bool
	}

	// Transaction is a concrete posted transaction. Materialized
	// transactions carry a back-reference to the template and the
	// occurrence date they represent; manual transactions leave both empty.
	Transaction struct {
		ID             string
		TemplateID     string
		OccurrenceDate Date
		OwnerID        string
		AccountID      string
		CategoryID     string
		Kind           TransactionKind
		Amount         Money // signed cents; expenses are negative
		Description    string
		Date           Date // posting date
		Deleted        bool
	}

	// CategoryBudget is an allocated amount for a category within a
	// period. Spent is derived from stored transactions and maintained by
	// the reconciler.
	CategoryBudget struct {
		ID          string
		OwnerID     string
		CategoryID  string
		PeriodStart Date
		PeriodEnd   Date // inclusive
		Allocated   Money
		Spent       Money // never negative
	}
)

var (
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrInvalidKind      = errors.New("invalid transaction kind")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("empty category")
	ErrEmptyAccount     = errors.New("empty account")
	ErrEndBeforeStart   = errors.New("end date before start date")
)

// NewDate creates a Date from year, month, day at midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a timestamp to its calendar date in UTC.
func DateOf(t time.Time) Date {
	u := t.UTC()
	return NewDate(u.Year(), int(u.Month()), u.Day())
}

// ParseDate parses a date in YYYY-MM-DD form.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format("2006-01-02")
}

// IsEmpty returns true for the zero date (used for optional end dates).
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// ParseFrequency validates a raw frequency string against the closed
// enumeration. Unrecognized values are a construction-time error, never a
// silent no-op.
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(strings.ToLower(strings.TrimSpace(s)))
	if !f.Valid() {
		return "", ErrInvalidFrequency
	}
	return f, nil
}

func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Biweekly, Monthly, Bimonthly, Quarterly, Annual:
		return true
	default:
		return false
	}
}

func (k TransactionKind) Valid() bool {
	switch k {
	case KindIncome, KindExpense, KindTransfer:
		return true
	default:
		return false
	}
}

// Sign returns +1 for income and -1 for expenses and transfers, the
// direction a transaction of this kind moves an account balance.
func (k TransactionKind) Sign() int64 {
	if k == KindIncome {
		return 1
	}
	return -1
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t Template) Validate() error {
	if err := t.StartDate.Validate(); err != nil {
		return errors.New("invalid start date: " + err.Error())
	}
	if !t.EndDate.IsEmpty() {
		if err := t.EndDate.Validate(); err != nil {
			return errors.New("invalid end date: " + err.Error())
		}
		if t.EndDate.Before(t.StartDate.Time) {
			return ErrEndBeforeStart
		}
	}
	if !t.Frequency.Valid() {
		return ErrInvalidFrequency
	}
	if !t.Kind.Valid() {
		return ErrInvalidKind
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if strings.TrimSpace(t.CategoryID) == "" {
		return ErrEmptyCategory
	}
	if strings.TrimSpace(t.AccountID) == "" {
		return ErrEmptyAccount
	}
	return nil
}

// StateAt derives the template's scheduling state as of a date. A paused
// template never fires; an expired one has an end date in the past. There
// is no stored state flag, callers always derive.
func (t Template) StateAt(asOf Date) TemplateState {
	if !t.Active {
		return StatePaused
	}
	if !t.EndDate.IsEmpty() && asOf.After(t.EndDate.Time) {
		return StateExpired
	}
	return StateActive
}

func (tx Transaction) Validate() error {
	if err := tx.Date.Validate(); err != nil {
		return errors.New("invalid transaction date: " + err.Error())
	}
	if tx.Amount.Cents == 0 {
		return ErrInvalidAmount
	}
	if !tx.Kind.Valid() {
		return ErrInvalidKind
	}
	if len(strings.TrimSpace(tx.Description)) == 0 {
		return ErrEmptyDescription
	}
	if strings.TrimSpace(tx.CategoryID) == "" {
		return ErrEmptyCategory
	}
	if strings.TrimSpace(tx.AccountID) == "" {
		return ErrEmptyAccount
	}
	return nil
}

func (b CategoryBudget) Validate() error {
	if strings.TrimSpace(b.CategoryID) == "" {
		return ErrEmptyCategory
	}
	if err := b.PeriodStart.Validate(); err != nil {
		return errors.New("invalid period start: " + err.Error())
	}
	if err := b.PeriodEnd.Validate(); err != nil {
		return errors.New("invalid period end: " + err.Error())
	}
	if b.PeriodEnd.Before(b.PeriodStart.Time) {
		return ErrEndBeforeStart
	}
	if b.Allocated.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Contains reports whether a date falls inside the budget period, both
// boundaries inclusive.
func (b CategoryBudget) Contains(d Date) bool {
	return !d.Before(b.PeriodStart.Time) && !d.After(b.PeriodEnd.Time)
}

// Remaining returns allocated minus spent; may be negative when the
// category is over budget.
func (b CategoryBudget) Remaining() Money {
	return Money{Cents: b.Allocated.Cents - b.Spent.Cents}
}
