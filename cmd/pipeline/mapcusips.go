package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

type mapCUSIPsCmd struct {
	quarter string
}

func (*mapCUSIPsCmd) Name() string { return "mapcusips" }
func (*mapCUSIPsCmd) Synopsis() string {
	return "resolve unmapped CUSIPs held in a quarter via the lookup service"
}
func (*mapCUSIPsCmd) Usage() string {
	return `pipeline mapcusips [-quarter Qn-YYYY]

  Collects every CUSIP held in the quarter that has no identity row and
  batch-maps it to a ticker and issuer name through OpenFIGI. Unresolvable
  CUSIPs are recorded as unresolved so later passes skip them.
`
}

func (c *mapCUSIPsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.quarter, "quarter", "", "analysis quarter, Qn-YYYY (defaults to the configured target)")
}

func (c *mapCUSIPsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	quarter, err := a.resolveQuarter(c.quarter)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	stats, err := a.identityService.MapQuarterCUSIPs(ctx, quarter)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Printf("Mapped CUSIPs for %s: %d requested, %d mapped, %d unresolved\n",
		quarter, stats.Requested, stats.Mapped, stats.Unresolved)
	return subcommands.ExitSuccess
}
