package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"

	"agrocost/internal/core"
)

// OverviewMarkdown renders the month cards as a table.
func OverviewMarkdown(o Overview, currency string) string {
	var sb strings.Builder
	sb.WriteString("# AgroCost\n\n")
	fmt.Fprintf(&sb, "**Exp:** %s · **VAT:** %s\n\n",
		core.FormatMoney(o.TotalExpense, currency), core.FormatMoney(o.TotalVAT, currency))

	sb.WriteString("| # | Month | Exp | VAT |\n")
	sb.WriteString("|---|-------|----:|----:|\n")
	for _, m := range o.Months {
		fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n",
			core.MonthID(m.Month), m.Month,
			core.FormatMoney(m.ExpenseTotal, currency), core.FormatMoney(m.VATTotal, currency))
	}
	return sb.String()
}

// MonthMarkdown renders the expenses of one month, one section per day.
func MonthMarkdown(d MonthDetail, currency string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s Expenses\n\n", d.Month)

	if len(d.Groups) == 0 {
		sb.WriteString("No expenses for this month.\n")
		return sb.String()
	}

	fmt.Fprintf(&sb, "**Exp:** %s · **VAT:** %s\n\n",
		core.FormatMoney(d.Totals.ExpenseTotal, currency), core.FormatMoney(d.Totals.VATTotal, currency))

	for _, g := range d.Groups {
		fmt.Fprintf(&sb, "## %s\n\n", g.Title)
		for _, e := range g.Expenses {
			fmt.Fprintf(&sb, "- **%s** %s `%s`\n", escape(e.Name), core.FormatMoney(e.Price, currency), e.ID)
			if e.Details != "" {
				fmt.Fprintf(&sb, "  %s\n", escape(e.Details))
			}
			fmt.Fprintf(&sb, "  Net: %s · VAT (%s): %s\n",
				core.FormatMoney(e.ExpensePrice, currency), core.FormatPercent(e.VATRate),
				core.FormatMoney(e.ReturnedVAT, currency))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// ListMarkdown renders every expense as a table row, in the given order.
func ListMarkdown(expenses []core.Expense, currency string, loc *time.Location) string {
	var sb strings.Builder
	sb.WriteString("| ID | Date | Name | Price | VAT % | Net | VAT |\n")
	sb.WriteString("|----|------|------|------:|------:|----:|----:|\n")
	for _, e := range expenses {
		fmt.Fprintf(&sb, "| %s | %s | %s | %s | %s | %s | %s |\n",
			e.ID, e.Date.In(loc).Format(DayLayout), escape(e.Name),
			core.FormatMoney(e.Price, currency), core.FormatPercent(e.VATRate),
			core.FormatMoney(e.ExpensePrice, currency), core.FormatMoney(e.ReturnedVAT, currency))
	}
	if len(expenses) == 0 {
		sb.WriteString("\nNo expenses yet.\n")
	}
	return sb.String()
}

// Render styles markdown for the terminal. raw returns md untouched.
func Render(md string, raw bool) (string, error) {
	if raw {
		return md, nil
	}
	return glamour.Render(md, "auto")
}

var mdEscaper = strings.NewReplacer("|", `\|`, "*", `\*`, "_", `\_`, "`", "\\`", "\n", " ")

func escape(s string) string { return mdEscaper.Replace(s) }
