package core

import (
	"errors"
	"math"
	"strings"
	"time"
)

type (
	// Draft is an expense as entered by the user, before the ledger assigns
	// an id and derives the net price and returned VAT.
	Draft struct {
		Name    string
		Price   float64 // Gross, VAT included
		VATRate float64 // Fraction, 0.24 for 24%
		Date    time.Time
		Details string
	}

	// Expense is a stored record. ExpensePrice and ReturnedVAT are always
	// derived from Price and VATRate.
	Expense struct {
		ID           string    `json:"id"`
		Name         string    `json:"name"`
		Price        float64   `json:"price"`
		VATRate      float64   `json:"vatRate"`
		Date         time.Time `json:"date"`
		Details      string    `json:"details"`
		ExpensePrice float64   `json:"expensePrice"`
		ReturnedVAT  float64   `json:"returnedVat"`
	}

	// MonthTotals sums the derived amounts of one calendar month.
	MonthTotals struct {
		Month        time.Month
		ExpenseTotal float64
		VATTotal     float64
	}
)

var (
	ErrDegenerateVATRate = errors.New("vat rate of -1 makes the net price undefined")
	ErrEmptyName         = errors.New("empty name")
	ErrInvalidPrice      = errors.New("invalid price")
	ErrInvalidVATRate    = errors.New("invalid vat rate")
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidMonth      = errors.New("invalid month")
)

// Derive computes the net price and the reclaimable VAT of a gross price.
// NaN and infinite inputs are not rejected and propagate to the results.
func Derive(price, vatRate float64) (expensePrice, returnedVAT float64, err error) {
	if vatRate == -1 {
		return 0, 0, ErrDegenerateVATRate
	}
	expensePrice = price / (1 + vatRate)
	returnedVAT = price - expensePrice
	return expensePrice, returnedVAT, nil
}

// Expense builds a record from the draft with the given id.
func (d Draft) Expense(id string) (Expense, error) {
	net, vat, err := Derive(d.Price, d.VATRate)
	if err != nil {
		return Expense{}, err
	}
	return Expense{
		ID:           id,
		Name:         d.Name,
		Price:        d.Price,
		VATRate:      d.VATRate,
		Date:         d.Date,
		Details:      d.Details,
		ExpensePrice: net,
		ReturnedVAT:  vat,
	}, nil
}

// Validate checks what the input form requires. The ledger itself accepts
// anything but a -1 vat rate.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return ErrEmptyName
	}
	if math.IsNaN(d.Price) || math.IsInf(d.Price, 0) || d.Price < 0 {
		return ErrInvalidPrice
	}
	if math.IsNaN(d.VATRate) || math.IsInf(d.VATRate, 0) {
		return ErrInvalidVATRate
	}
	if d.VATRate == -1 {
		return ErrDegenerateVATRate
	}
	if d.Date.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Draft returns the editable part of the record.
func (e Expense) Draft() Draft {
	return Draft{
		Name:    e.Name,
		Price:   e.Price,
		VATRate: e.VATRate,
		Date:    e.Date,
		Details: e.Details,
	}
}

// Month returns the calendar month of the expense date in loc.
func (e Expense) Month(loc *time.Location) time.Month {
	if loc == nil {
		loc = time.Local
	}
	return e.Date.In(loc).Month()
}
