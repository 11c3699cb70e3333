// The pipeline command drives the batch stages one at a time: acquire a
// quarter of 13F filings, resolve security identities, refresh shares
// figures, run the reconciliation engine, and print reports.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))

	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	commander.Register(&ingestCmd{}, "acquisition")

	commander.Register(&tickersCmd{}, "identity")
	commander.Register(&mapCUSIPsCmd{}, "identity")
	commander.Register(&sharesCmd{}, "identity")
	commander.Register(&manualCmd{}, "identity")
	commander.Register(&etfCmd{}, "identity")

	commander.Register(&runCmd{}, "analysis")
	commander.Register(&reportCmd{}, "analysis")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
