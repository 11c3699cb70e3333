package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

type ingestCmd struct {
	quarter string
}

func (*ingestCmd) Name() string { return "ingest" }
func (*ingestCmd) Synopsis() string {
	return "acquire and normalize one quarter of 13F filings from EDGAR"
}
func (*ingestCmd) Usage() string {
	return `pipeline ingest [-quarter Qn-YYYY]

  Scans the following quarter's form index (the 13F filing window),
  downloads every 13F document not already cached, and replaces the
  quarter's holding records with the normalized result.
`
}

func (c *ingestCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.quarter, "quarter", "", "analysis quarter, Qn-YYYY (defaults to the configured target)")
}

func (c *ingestCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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
	quarter, err := a.resolveQuarter(c.quarter)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	result, err := a.ingestService.IngestQuarter(ctx, quarter)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Printf("Ingested %s from the %s form index:\n", result.Quarter, result.FilingQuarter)
	fmt.Printf("  %d index entries (%d downloaded, %d cached)\n",
		result.IndexEntries, result.Downloads, result.CacheHits)
	fmt.Printf("  %d filings, %d amendments (metadata only), %d other periods, %d parse failures\n",
		result.Filings, result.Amendments, result.OtherPeriods, result.ParseFailures)
	fmt.Printf("  %d holding records (%d malformed skipped, %d duplicates resolved)\n",
		result.Records, result.MalformedRecords, result.DuplicatesResolved)
	return subcommands.ExitSuccess
}
