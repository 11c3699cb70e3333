package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

type sharesCmd struct{}

func (*sharesCmd) Name() string { return "shares" }
func (*sharesCmd) Synopsis() string {
	return "refresh shares-outstanding figures from SEC company facts"
}
func (*sharesCmd) Usage() string {
	return `pipeline shares

  For every identity with a ticker, joins the SEC ticker directory to a
  CIK and pulls the latest shares-outstanding figure from the XBRL
  company-facts endpoint. Placeholder, implausibly small, and stale
  figures are rejected rather than stored.
`
}

func (c *sharesCmd) SetFlags(f *flag.FlagSet) {}

func (c *sharesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	stats, err := a.identityService.RefreshShares(ctx, a.params.MaxDataAge())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Printf("Checked %d tickers:\n", stats.TickersChecked)
	fmt.Printf("  %d shares figures stored, %d rejected\n", stats.SharesStored, stats.RejectedFigures)
	fmt.Printf("  %d directory misses, %d directory upgrades, %d facts errors\n",
		stats.DirectoryMisses, stats.DirectoryUpgrades, stats.FactsErrors)
	return subcommands.ExitSuccess
}
