package cli

import (
	"bytes"
	"context"
	"flag"
	"io"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/subcommands"

	"agrocost/internal/config"
	"agrocost/internal/core"
	"agrocost/internal/ledger"
	applog "agrocost/internal/log"
)

var fixedNow = time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC)

func newTestApp(in string) (*App, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return &App{
		Config: &config.Config{Currency: core.DefaultCurrency},
		Logger: applog.Discard(),
		Ledger: ledger.New(nil, ledger.WithLocation(time.UTC)),
		Out:    out,
		In:     strings.NewReader(in),
		Now:    func() time.Time { return fixedNow },
		Raw:    true,
	}, out
}

func run(t *testing.T, app *App, cmd subcommands.Command, args ...string) subcommands.ExitStatus {
	t.Helper()
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	cmd.SetFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse %v: %v", args, err)
	}
	return cmd.Execute(context.Background(), fs, app)
}

func TestAddCommand(t *testing.T) {
	app, out := newTestApp("")

	status := run(t, app, &addCmd{}, "-name", "Seed", "-price", "124", "-date", "2024-03-15")
	if status != subcommands.ExitSuccess {
		t.Fatalf("expected success, got %v", status)
	}

	list := app.Ledger.List()
	if len(list) != 1 || list[0].Name != "Seed" || list[0].VATRate != core.DefaultVATRate {
		t.Fatalf("unexpected ledger: %+v", list)
	}
	if !strings.Contains(out.String(), "net €100.00, VAT €24.00") {
		t.Fatalf("unexpected output: %q", out.String())
	}
}

func TestAddCommandRejectsIncompleteForm(t *testing.T) {
	app, _ := newTestApp("")
	if status := run(t, app, &addCmd{}, "-name", "Seed"); status != subcommands.ExitFailure {
		t.Fatalf("expected failure, got %v", status)
	}
	if app.Ledger.Len() != 0 {
		t.Fatalf("rejected form must not be stored")
	}
}

func TestEditCommand(t *testing.T) {
	app, _ := newTestApp("")
	e, _ := app.Ledger.Add(core.Draft{Name: "Seed", Price: 124, VATRate: 0.24, Date: fixedNow})

	if status := run(t, app, &editCmd{}, "-id", e.ID, "-price", "248", "-vat", "13"); status != subcommands.ExitSuccess {
		t.Fatalf("expected success, got %v", status)
	}

	got, _ := app.Ledger.Get(e.ID)
	if got.Name != "Seed" || got.Price != 248 || got.VATRate != 0.13 {
		t.Fatalf("unexpected record: %+v", got)
	}
	if math.Abs(got.ExpensePrice-248/1.13) > 1e-9 || math.Abs(got.ReturnedVAT-(248-248/1.13)) > 1e-9 {
		t.Fatalf("derived fields not recomputed: %+v", got)
	}
}

func TestEditCommandUnknownID(t *testing.T) {
	app, _ := newTestApp("")
	if status := run(t, app, &editCmd{}, "-id", "missing", "-price", "1"); status != subcommands.ExitFailure {
		t.Fatalf("expected failure, got %v", status)
	}
	if status := run(t, app, &editCmd{}); status != subcommands.ExitUsageError {
		t.Fatalf("expected usage error without -id, got %v", status)
	}
}

func TestDeleteCommandConfirms(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		args   []string
		kept   bool
	}{
		{name: "confirmed", answer: "y\n", kept: false},
		{name: "declined", answer: "n\n", kept: true},
		{name: "no answer", answer: "", kept: true},
		{name: "skip prompt", answer: "", args: []string{"-y"}, kept: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, _ := newTestApp(tt.answer)
			e, _ := app.Ledger.Add(core.Draft{Name: "Seed", Price: 1, Date: fixedNow})

			args := append([]string{"-id", e.ID}, tt.args...)
			if status := run(t, app, &deleteCmd{}, args...); status != subcommands.ExitSuccess {
				t.Fatalf("expected success, got %v", status)
			}
			if _, ok := app.Ledger.Get(e.ID); ok != tt.kept {
				t.Fatalf("expected kept=%v, got %v", tt.kept, ok)
			}
		})
	}
}

func TestReportCommands(t *testing.T) {
	app, out := newTestApp("")
	app.Ledger.Add(core.Draft{Name: "Seed", Price: 124, VATRate: 0.24, Date: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)})

	if status := run(t, app, &overviewCmd{}); status != subcommands.ExitSuccess {
		t.Fatalf("overview: %v", status)
	}
	if !strings.Contains(out.String(), "| 03 | March | €100.00 | €24.00 |") {
		t.Fatalf("unexpected overview:\n%s", out.String())
	}

	out.Reset()
	if status := run(t, app, &monthCmd{}, "mar"); status != subcommands.ExitSuccess {
		t.Fatalf("month: %v", status)
	}
	if !strings.Contains(out.String(), "## 2024-03-15") {
		t.Fatalf("unexpected month detail:\n%s", out.String())
	}

	out.Reset()
	if status := run(t, app, &monthCmd{}, "april"); status != subcommands.ExitSuccess {
		t.Fatalf("month: %v", status)
	}
	if !strings.Contains(out.String(), "No expenses for this month.") {
		t.Fatalf("expected empty month:\n%s", out.String())
	}

	out.Reset()
	if status := run(t, app, &monthCmd{}); status != subcommands.ExitSuccess {
		t.Fatalf("month default: %v", status)
	}
	if !strings.Contains(out.String(), "# March Expenses") {
		t.Fatalf("expected current month:\n%s", out.String())
	}

	if status := run(t, app, &monthCmd{}, "smarch"); status != subcommands.ExitFailure {
		t.Fatalf("expected failure for unknown month, got %v", status)
	}

	out.Reset()
	if status := run(t, app, &listCmd{}); status != subcommands.ExitSuccess {
		t.Fatalf("list: %v", status)
	}
	if !strings.Contains(out.String(), "| Seed |") {
		t.Fatalf("unexpected list:\n%s", out.String())
	}
}

func TestOpenAndClosePersists(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{
		DataBackend:     "file",
		DataFile:        t.TempDir() + "/agrocost.json",
		StoreKey:        "@expenses",
		ShutdownTimeout: 5 * time.Second,
		Currency:        core.DefaultCurrency,
	}

	app, err := Open(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := app.Ledger.Add(core.Draft{Name: "Seed", Price: 124, VATRate: 0.24, Date: fixedNow}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := app.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close(ctx)
	if got := reopened.Ledger.List(); len(got) != 1 || got[0].Name != "Seed" {
		t.Fatalf("expected the saved expense after reopening, got %+v", got)
	}
}

func TestCompletionCoversCommands(t *testing.T) {
	global := flag.NewFlagSet("agrocost", flag.ContinueOnError)
	global.Bool("raw", false, "")

	root := Completion(global)
	if _, ok := root.Flags["raw"]; !ok {
		t.Fatalf("global flag missing from completion")
	}
	for _, c := range Commands() {
		sub, ok := root.Sub[c.Name()]
		if !ok {
			t.Fatalf("command %q missing from completion", c.Name())
		}
		fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
		c.SetFlags(fs)
		fs.VisitAll(func(f *flag.Flag) {
			if _, ok := sub.Flags[f.Name]; !ok {
				t.Fatalf("flag -%s of %q missing from completion", f.Name, c.Name())
			}
		})
	}

	got := root.Sub["add"].Flags["vat"].Predict("")
	if strings.Join(got, ",") != "6,13,24" {
		t.Fatalf("unexpected vat presets: %v", got)
	}
}
