package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/tvandenberg/thirteenf/internal/model"
)

type runCmd struct {
	quarter string
}

func (*runCmd) Name() string { return "run" }
func (*runCmd) Synopsis() string {
	return "execute one reconciliation run and persist its reports"
}
func (*runCmd) Usage() string {
	return `pipeline run [-quarter Qn-YYYY]

  Snapshots the quarter and its predecessor, reconciles them, ranks
  ownership and net additions, and writes the report artifacts. The
  quarter's filings must already be ingested.
`
}

func (c *runCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.quarter, "quarter", "", "analysis quarter, Qn-YYYY (defaults to the configured target)")
}

func (c *runCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	params := a.params
	if c.quarter != "" {
		if _, err := model.ParseQuarter(c.quarter); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitUsageError
		}
		params.Quarter = c.quarter
	}

	run, err := a.runService.Run(params)
	if err != nil {
		if run.ID != "" {
			fmt.Fprintf(os.Stderr, "Run %s failed: %v\n", run.ID, err)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return subcommands.ExitFailure
	}

	fmt.Printf("Run %s completed: %s against %s\n", run.ID, run.RequestedQuarter, run.PriorQuarter)
	if run.Coverage != nil {
		fmt.Printf("  %d securities, ticker coverage %.1f%% of filed value, shares coverage %.1f%%\n",
			run.Coverage.TotalSecurities,
			run.Coverage.TickerResolvedValuePct,
			run.Coverage.SharesResolvedValuePct)
	}
	d := run.Diagnostics
	fmt.Printf("  diagnostics: %d malformed, %d amendments excluded, %d duplicates resolved, %d cap exceedances\n",
		d.MalformedRecords, d.AmendmentsExcluded, d.DuplicatesResolved, d.OwnershipCapExceedances)
	return subcommands.ExitSuccess
}
