package cli

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"agrocost/internal/core"
	"agrocost/internal/report"
)

// Messages shown to the user when the form is rejected.
var (
	ErrMissingFields = errors.New("Please fill in Name and Price")
	ErrPriceFormat   = errors.New("Invalid Price")
	ErrVATConflict   = errors.New("use either -vat or -custom-vat, not both")
)

// expenseForm holds the raw values of the add and edit flags.
type expenseForm struct {
	name      string
	price     string
	vat       string
	customVAT string
	date      string
	details   string
}

func (f *expenseForm) setFlags(fs *flag.FlagSet) {
	fs.StringVar(&f.name, "name", "", "Expense name (required).")
	fs.StringVar(&f.price, "price", "", "Total price, VAT included (required). Accepts 12.34 or 12,34.")
	fs.StringVar(&f.vat, "vat", "", "VAT preset in percent: 6, 13 or 24 (default 24).")
	fs.StringVar(&f.customVAT, "custom-vat", "", "Custom VAT rate in percent, e.g. 10.")
	fs.StringVar(&f.date, "date", "", "Expense date as YYYY-MM-DD (default today).")
	fs.StringVar(&f.details, "details", "", "Free text details.")
}

// draft merges the given flags over base. Only flags present in set
// replace base values, so an edit keeps what is not mentioned. prefilled
// marks base as an existing record whose name and price already count.
func (f *expenseForm) draft(base core.Draft, prefilled bool, set map[string]bool, loc *time.Location) (core.Draft, error) {
	d := base
	if set["name"] {
		d.Name = strings.TrimSpace(f.name)
	}
	if set["details"] {
		d.Details = f.details
	}

	price := strings.TrimSpace(f.price)
	hasPrice := price != "" || (prefilled && !set["price"])
	if strings.TrimSpace(d.Name) == "" || !hasPrice {
		return core.Draft{}, ErrMissingFields
	}
	if price != "" {
		p, err := core.ParseAmount(price)
		if err != nil {
			return core.Draft{}, ErrPriceFormat
		}
		d.Price = p
	}

	if set["vat"] && set["custom-vat"] {
		return core.Draft{}, ErrVATConflict
	}
	switch {
	case set["vat"]:
		rate, err := presetRate(f.vat)
		if err != nil {
			return core.Draft{}, err
		}
		d.VATRate = rate
	case set["custom-vat"]:
		rate, err := core.ParseVATPercent(f.customVAT)
		if err != nil {
			return core.Draft{}, fmt.Errorf("%w: %q", core.ErrInvalidVATRate, f.customVAT)
		}
		d.VATRate = rate
	}

	if set["date"] {
		t, err := time.ParseInLocation(report.DayLayout, strings.TrimSpace(f.date), loc)
		if err != nil {
			return core.Draft{}, fmt.Errorf("%w: %q, expected YYYY-MM-DD", core.ErrInvalidDate, f.date)
		}
		d.Date = t
	}

	if err := d.Validate(); err != nil {
		return core.Draft{}, err
	}
	return d, nil
}

// newDraft is the empty form: default VAT preset, dated now.
func newDraft(now time.Time) core.Draft {
	return core.Draft{VATRate: core.DefaultVATRate, Date: now}
}

func presetRate(s string) (float64, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	for _, p := range core.Presets {
		if core.FormatPercent(p) == s+"%" {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: preset must be 6, 13 or 24, got %q", core.ErrInvalidVATRate, s)
}

// visited returns the names of the flags given on the command line.
func visited(fs *flag.FlagSet) map[string]bool {
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}
