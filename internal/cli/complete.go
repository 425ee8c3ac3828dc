package cli

import (
	"flag"
	"io"
	"strings"

	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"

	"agrocost/internal/core"
)

// Commands lists the expense and report commands in registration order.
func Commands() []subcommands.Command {
	return []subcommands.Command{
		&addCmd{},
		&editCmd{},
		&deleteCmd{},
		&listCmd{},
		&overviewCmd{},
		&monthCmd{},
	}
}

// Completion describes the command line for shell completion. Flags are
// read from each command so the two cannot drift apart.
func Completion(global *flag.FlagSet) *complete.Command {
	root := &complete.Command{
		Sub:   map[string]*complete.Command{},
		Flags: flagPredictors(global),
	}
	for _, c := range Commands() {
		fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		c.SetFlags(fs)
		root.Sub[c.Name()] = &complete.Command{Flags: flagPredictors(fs)}
	}
	root.Sub["month"].Args = monthNames()
	for _, name := range []string{"help", "flags", "commands"} {
		root.Sub[name] = &complete.Command{}
	}
	return root
}

func flagPredictors(fs *flag.FlagSet) map[string]complete.Predictor {
	preds := map[string]complete.Predictor{}
	if fs == nil {
		return preds
	}
	fs.VisitAll(func(f *flag.Flag) {
		switch f.Name {
		case "vat":
			preds[f.Name] = presetNames()
		case "env-file":
			preds[f.Name] = predict.Files("*")
		default:
			preds[f.Name] = predict.Set{}
		}
	})
	return preds
}

func presetNames() predict.Set {
	var names predict.Set
	for _, p := range core.Presets {
		names = append(names, strings.TrimSuffix(core.FormatPercent(p), "%"))
	}
	return names
}

func monthNames() predict.Set {
	var names predict.Set
	for _, m := range core.Months {
		names = append(names, strings.ToLower(m.String()))
	}
	return names
}
