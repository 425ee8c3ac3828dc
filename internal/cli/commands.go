package cli

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/subcommands"

	"agrocost/internal/core"
	applog "agrocost/internal/log"
	"agrocost/internal/report"
)

// Register adds every command to c. Commands expect the *App as the first
// Execute argument.
func Register(c *subcommands.Commander) {
	for _, cmd := range Commands() {
		group := "expenses"
		switch cmd.(type) {
		case *overviewCmd, *monthCmd:
			group = "reports"
		}
		c.Register(cmd, group)
	}
}

func appFrom(args []interface{}) *App {
	if len(args) == 0 {
		return nil
	}
	app, _ := args[0].(*App)
	return app
}

func fail(app *App, op string, err error) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	if app != nil {
		app.logger().Debug("Command failed", applog.FieldOperation, op, applog.FieldError, err)
	}
	return subcommands.ExitFailure
}

type addCmd struct {
	form expenseForm
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "record a new expense" }
func (*addCmd) Usage() string {
	return `agrocost add -name <name> -price <total> [-vat 6|13|24 | -custom-vat <percent>] [-date YYYY-MM-DD] [-details <text>]

  Records an expense. The price is the total paid, VAT included; the net
  price and the reclaimable VAT are derived from it.
`
}

func (c *addCmd) SetFlags(f *flag.FlagSet) { c.form.setFlags(f) }

func (c *addCmd) Execute(_ context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	app := appFrom(args)
	if app == nil {
		return subcommands.ExitFailure
	}
	loc := app.Ledger.Location()

	d, err := c.form.draft(newDraft(app.now().In(loc)), false, visited(f), loc)
	if err != nil {
		return fail(app, applog.OpValidate, err)
	}
	e, err := app.Ledger.Add(d)
	if err != nil {
		return fail(app, applog.OpCreate, err)
	}

	fmt.Fprintf(app.Out, "Added %s: %s, net %s, VAT %s\n", e.ID, e.Name,
		core.FormatMoney(e.ExpensePrice, app.currency()),
		core.FormatMoney(e.ReturnedVAT, app.currency()))
	return subcommands.ExitSuccess
}

type editCmd struct {
	id   string
	form expenseForm
}

func (*editCmd) Name() string     { return "edit" }
func (*editCmd) Synopsis() string { return "change an existing expense" }
func (*editCmd) Usage() string {
	return `agrocost edit -id <id> [-name <name>] [-price <total>] [-vat 6|13|24 | -custom-vat <percent>] [-date YYYY-MM-DD] [-details <text>]

  Replaces an expense. Fields that are not given keep their current value;
  the net price and VAT are recomputed.
`
}

func (c *editCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "ID of the expense to edit (required).")
	c.form.setFlags(f)
}

func (c *editCmd) Execute(_ context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	app := appFrom(args)
	if app == nil {
		return subcommands.ExitFailure
	}
	if c.id == "" {
		fmt.Fprintln(os.Stderr, "Error: -id is required")
		return subcommands.ExitUsageError
	}

	existing, ok := app.Ledger.Get(c.id)
	if !ok {
		return fail(app, applog.OpUpdate, fmt.Errorf("no expense with id %q", c.id))
	}

	d, err := c.form.draft(existing.Draft(), true, visited(f), app.Ledger.Location())
	if err != nil {
		return fail(app, applog.OpValidate, err)
	}

	updated := core.Expense{
		ID:      existing.ID,
		Name:    d.Name,
		Price:   d.Price,
		VATRate: d.VATRate,
		Date:    d.Date,
		Details: d.Details,
	}
	if err := app.Ledger.Update(updated); err != nil {
		return fail(app, applog.OpUpdate, err)
	}

	fmt.Fprintf(app.Out, "Updated %s\n", existing.ID)
	return subcommands.ExitSuccess
}

type deleteCmd struct {
	id  string
	yes bool
}

func (*deleteCmd) Name() string     { return "delete" }
func (*deleteCmd) Synopsis() string { return "remove an expense" }
func (*deleteCmd) Usage() string {
	return `agrocost delete -id <id> [-y]

  Removes an expense after confirmation.
`
}

func (c *deleteCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "ID of the expense to delete (required).")
	f.BoolVar(&c.yes, "y", false, "Do not ask for confirmation.")
}

func (c *deleteCmd) Execute(_ context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	app := appFrom(args)
	if app == nil {
		return subcommands.ExitFailure
	}
	if c.id == "" {
		fmt.Fprintln(os.Stderr, "Error: -id is required")
		return subcommands.ExitUsageError
	}

	e, ok := app.Ledger.Get(c.id)
	if !ok {
		return fail(app, applog.OpDelete, fmt.Errorf("no expense with id %q", c.id))
	}

	if !c.yes && !app.confirm(fmt.Sprintf("Are you sure you want to delete %q?", e.Name)) {
		fmt.Fprintln(app.Out, "Cancelled")
		return subcommands.ExitSuccess
	}

	app.Ledger.Delete(e.ID)
	fmt.Fprintf(app.Out, "Deleted %s\n", e.ID)
	return subcommands.ExitSuccess
}

// confirm asks a yes/no question on Out and reads the answer from In.
func (a *App) confirm(question string) bool {
	fmt.Fprintf(a.Out, "%s [y/N] ", question)
	if a.In == nil {
		return false
	}
	answer, err := bufio.NewReader(a.In).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

type listCmd struct{}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "list every expense with its id" }
func (*listCmd) Usage() string {
	return `agrocost list

  Lists all expenses in the order they were recorded.
`
}

func (*listCmd) SetFlags(*flag.FlagSet) {}

func (*listCmd) Execute(_ context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	app := appFrom(args)
	if app == nil {
		return subcommands.ExitFailure
	}
	md := report.ListMarkdown(app.Ledger.List(), app.currency(), app.Ledger.Location())
	if err := app.printMarkdown(md); err != nil {
		return fail(app, applog.OpRender, err)
	}
	return subcommands.ExitSuccess
}

type overviewCmd struct{}

func (*overviewCmd) Name() string     { return "overview" }
func (*overviewCmd) Synopsis() string { return "show totals for every month" }
func (*overviewCmd) Usage() string {
	return `agrocost overview

  Shows the overall net and VAT totals and one line per calendar month,
  summing every year.
`
}

func (*overviewCmd) SetFlags(*flag.FlagSet) {}

func (*overviewCmd) Execute(_ context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	app := appFrom(args)
	if app == nil {
		return subcommands.ExitFailure
	}
	md := report.OverviewMarkdown(report.BuildOverview(app.Ledger), app.currency())
	if err := app.printMarkdown(md); err != nil {
		return fail(app, applog.OpRender, err)
	}
	return subcommands.ExitSuccess
}

type monthCmd struct{}

func (*monthCmd) Name() string     { return "month" }
func (*monthCmd) Synopsis() string { return "show the expenses of one month, grouped by day" }
func (*monthCmd) Usage() string {
	return `agrocost month [<month>]

  Shows the expenses of a calendar month across all years. The month is
  a number (3), a name (march) or an abbreviation (mar); it defaults to the
  current month.
`
}

func (*monthCmd) SetFlags(*flag.FlagSet) {}

func (*monthCmd) Execute(_ context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	app := appFrom(args)
	if app == nil {
		return subcommands.ExitFailure
	}

	var m time.Month
	switch f.NArg() {
	case 0:
		m = app.now().In(app.Ledger.Location()).Month()
	case 1:
		parsed, err := core.ParseMonthID(f.Arg(0))
		if err != nil {
			return fail(app, applog.OpParse, err)
		}
		m = parsed
	default:
		fmt.Fprintln(os.Stderr, "Error: expected at most one month")
		return subcommands.ExitUsageError
	}

	md := report.MonthMarkdown(report.BuildMonthDetail(app.Ledger, m), app.currency())
	if err := app.printMarkdown(md); err != nil {
		return fail(app, applog.OpRender, err)
	}
	return subcommands.ExitSuccess
}
