// Package ledger holds the authoritative in-memory collection of expenses.
//
// The ledger is explicitly constructed by the application and passed to
// whoever needs it. Every mutation updates memory synchronously and hands a
// full snapshot to a Persister without waiting for it to be written.
package ledger

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"agrocost/internal/core"
	applog "agrocost/internal/log"
)

// Persister receives a full snapshot after every mutation. Enqueue must not
// block; the snapshot is owned by the persister afterwards.
type Persister interface {
	Enqueue(expenses []core.Expense)
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithExpenses hydrates the ledger from a previously stored collection.
// Nothing is persisted as a result.
func WithExpenses(expenses []core.Expense) Option {
	return func(l *Ledger) {
		l.items = append([]core.Expense(nil), expenses...)
	}
}

// WithIDGenerator replaces the default UUID generator.
func WithIDGenerator(next func() string) Option {
	return func(l *Ledger) { l.newID = next }
}

// WithLocation sets the calendar used to decide the month of an expense.
// Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(l *Ledger) { l.loc = loc }
}

// WithLogger sets the ledger logger.
func WithLogger(logger *applog.Logger) Option {
	return func(l *Ledger) { l.logger = logger.WithComponent(applog.ComponentLedger) }
}

type Ledger struct {
	mu     sync.RWMutex
	items  []core.Expense
	sink   Persister
	newID  func() string
	loc    *time.Location
	logger *applog.Logger
}

// New creates a ledger that reports snapshots to sink. A nil sink keeps the
// ledger purely in memory.
func New(sink Persister, opts ...Option) *Ledger {
	l := &Ledger{
		sink:   sink,
		newID:  newUUID,
		loc:    time.Local,
		logger: applog.Discard(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.loc == nil {
		l.loc = time.Local
	}
	return l
}

// newUUID returns a time-ordered UUID, falling back to a random one if the
// v7 generator fails.
func newUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Add records a new expense and returns it with its id and derived fields.
// The only error is core.ErrDegenerateVATRate.
func (l *Ledger) Add(d core.Draft) (core.Expense, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, err := d.Expense(l.newID())
	if err != nil {
		l.logger.Warn("Rejected expense", applog.NewFields().
			WithOperation(applog.OpCreate).WithExpense("", d.Name).WithError(err).ToSlice()...)
		return core.Expense{}, err
	}

	l.items = append(l.items, e)
	l.persistLocked()

	l.logger.Debug("Expense added", applog.NewFields().
		WithOperation(applog.OpCreate).WithExpense(e.ID, e.Name).ToSlice()...)
	return e, nil
}

// Update replaces the record with the same id entirely, recomputing the
// derived fields from the supplied price and vat rate. An unknown id is a
// no-op.
func (l *Ledger) Update(e core.Expense) error {
	updated, err := e.Draft().Expense(e.ID)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexLocked(e.ID)
	if i < 0 {
		l.logger.Debug("Update of unknown expense ignored", applog.FieldExpenseID, e.ID)
		return nil
	}

	next := make([]core.Expense, len(l.items))
	copy(next, l.items)
	next[i] = updated
	l.items = next
	l.persistLocked()

	l.logger.Debug("Expense updated", applog.NewFields().
		WithOperation(applog.OpUpdate).WithExpense(updated.ID, updated.Name).ToSlice()...)
	return nil
}

// Delete removes the record with the given id. An unknown id is a no-op.
func (l *Ledger) Delete(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexLocked(id)
	if i < 0 {
		return
	}

	next := make([]core.Expense, 0, len(l.items)-1)
	next = append(next, l.items[:i]...)
	next = append(next, l.items[i+1:]...)
	l.items = next
	l.persistLocked()

	l.logger.Debug("Expense deleted", applog.FieldOperation, applog.OpDelete, applog.FieldExpenseID, id)
}

// Get returns the record with the given id.
func (l *Ledger) Get(id string) (core.Expense, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if i := l.indexLocked(id); i >= 0 {
		return l.items[i], true
	}
	return core.Expense{}, false
}

// List returns a copy of all records in insertion order.
func (l *Ledger) List() []core.Expense {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]core.Expense(nil), l.items...)
}

// Len returns the number of records.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Location returns the calendar used for month extraction.
func (l *Ledger) Location() *time.Location { return l.loc }

// TotalExpensePrice sums the net price of every record.
func (l *Ledger) TotalExpensePrice() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var sum float64
	for _, e := range l.items {
		sum += e.ExpensePrice
	}
	return sum
}

// TotalReturnedVAT sums the returned VAT of every record.
func (l *Ledger) TotalReturnedVAT() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var sum float64
	for _, e := range l.items {
		sum += e.ReturnedVAT
	}
	return sum
}

// MonthlyTotals sums the records dated in month m of any year.
func (l *Ledger) MonthlyTotals(m time.Month) core.MonthTotals {
	l.mu.RLock()
	defer l.mu.RUnlock()

	totals := core.MonthTotals{Month: m}
	for _, e := range l.items {
		if e.Month(l.loc) != m {
			continue
		}
		totals.ExpenseTotal += e.ExpensePrice
		totals.VATTotal += e.ReturnedVAT
	}
	return totals
}

// InMonth returns the records dated in month m of any year, in insertion
// order.
func (l *Ledger) InMonth(m time.Month) []core.Expense {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []core.Expense
	for _, e := range l.items {
		if e.Month(l.loc) == m {
			out = append(out, e)
		}
	}
	return out
}

func (l *Ledger) indexLocked(id string) int {
	for i := range l.items {
		if l.items[i].ID == id {
			return i
		}
	}
	return -1
}

// persistLocked hands the current snapshot to the sink. Callers hold the
// write lock so snapshots are enqueued in mutation order.
func (l *Ledger) persistLocked() {
	if l.sink == nil {
		return
	}
	l.sink.Enqueue(append([]core.Expense(nil), l.items...))
}
