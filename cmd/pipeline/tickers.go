package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

type tickersCmd struct{}

func (*tickersCmd) Name() string { return "tickers" }
func (*tickersCmd) Synopsis() string {
	return "reconcile resolved identities against the SEC ticker directory"
}
func (*tickersCmd) Usage() string {
	return `pipeline tickers

  Fetches the SEC company-tickers directory and walks every resolved
  identity: a directory hit refreshes the issuer name and upgrades
  lookup-service mappings to directory provenance. Cheaper than a full
  shares refresh; run it after mapcusips.
`
}

func (c *tickersCmd) SetFlags(f *flag.FlagSet) {}

func (c *tickersCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	if err := a.requireEDGAR(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	stats, err := a.identityService.RefreshTickers(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Printf("Checked %d resolved identities against %d directory entries:\n",
		stats.Checked, stats.DirectoryEntries)
	fmt.Printf("  %d upgraded to directory provenance, %d not listed\n",
		stats.Upgraded, stats.Misses)
	return subcommands.ExitSuccess
}
