package storage

import (
	"encoding/json"
	"math"
	"time"

	"agrocost/internal/core"
)

// record is the stored form of an expense. Field names match the blob the
// mobile app writes.
type record struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Price        amount    `json:"price"`
	VATRate      amount    `json:"vatRate"`
	Date         time.Time `json:"date"`
	Details      string    `json:"details"`
	ExpensePrice amount    `json:"expensePrice"`
	ReturnedVAT  amount    `json:"returnedVat"`
}

// amount is a number that stores NaN and ±Inf as null and loads null as 0.
type amount float64

func (a amount) MarshalJSON() ([]byte, error) {
	f := float64(a)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

func (a *amount) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*a = 0
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*a = amount(f)
	return nil
}

func toRecords(expenses []core.Expense) []record {
	out := make([]record, len(expenses))
	for i, e := range expenses {
		out[i] = record{
			ID:           e.ID,
			Name:         e.Name,
			Price:        amount(e.Price),
			VATRate:      amount(e.VATRate),
			Date:         e.Date,
			Details:      e.Details,
			ExpensePrice: amount(e.ExpensePrice),
			ReturnedVAT:  amount(e.ReturnedVAT),
		}
	}
	return out
}

func fromRecords(records []record) []core.Expense {
	out := make([]core.Expense, len(records))
	for i, r := range records {
		out[i] = core.Expense{
			ID:           r.ID,
			Name:         r.Name,
			Price:        float64(r.Price),
			VATRate:      float64(r.VATRate),
			Date:         r.Date,
			Details:      r.Details,
			ExpensePrice: float64(r.ExpensePrice),
			ReturnedVAT:  float64(r.ReturnedVAT),
		}
	}
	return out
}
