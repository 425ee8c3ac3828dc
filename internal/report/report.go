// Package report builds the views of the expense collection: the yearly
// overview of month cards and the per-month detail grouped by day.
package report

import (
	"sort"
	"time"

	"agrocost/internal/core"
)

// Source is the read side of the ledger.
type Source interface {
	List() []core.Expense
	InMonth(m time.Month) []core.Expense
	TotalExpensePrice() float64
	TotalReturnedVAT() float64
	MonthlyTotals(m time.Month) core.MonthTotals
	Location() *time.Location
}

// Overview is the home screen: grand totals and one card per month.
type Overview struct {
	TotalExpense float64
	TotalVAT     float64
	Months       []core.MonthTotals
}

// DayGroup holds the expenses of one calendar day.
type DayGroup struct {
	Day      time.Time // Midnight in the ledger location
	Title    string
	Expenses []core.Expense
}

// MonthDetail is one month across all years, grouped by day.
type MonthDetail struct {
	Month  time.Month
	Totals core.MonthTotals
	Groups []DayGroup
}

// BuildOverview collects the totals shown on the home screen.
func BuildOverview(src Source) Overview {
	o := Overview{
		TotalExpense: src.TotalExpensePrice(),
		TotalVAT:     src.TotalReturnedVAT(),
		Months:       make([]core.MonthTotals, 0, len(core.Months)),
	}
	for _, m := range core.Months {
		o.Months = append(o.Months, src.MonthlyTotals(m))
	}
	return o
}

// BuildMonthDetail groups the expenses of month m by calendar day, days in
// ascending order and expenses of a day in insertion order.
func BuildMonthDetail(src Source, m time.Month) MonthDetail {
	loc := src.Location()
	groups := map[time.Time]*DayGroup{}
	for _, e := range src.InMonth(m) {
		local := e.Date.In(loc)
		day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
		g, ok := groups[day]
		if !ok {
			g = &DayGroup{Day: day, Title: day.Format(DayLayout)}
			groups[day] = g
		}
		g.Expenses = append(g.Expenses, e)
	}

	d := MonthDetail{Month: m, Totals: src.MonthlyTotals(m)}
	for _, g := range groups {
		d.Groups = append(d.Groups, *g)
	}
	sort.Slice(d.Groups, func(i, j int) bool {
		return d.Groups[i].Day.Before(d.Groups[j].Day)
	})
	return d
}

// DayLayout formats group titles and list dates.
const DayLayout = "2006-01-02"
