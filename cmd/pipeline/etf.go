package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

type etfCmd struct {
	file string
}

func (*etfCmd) Name() string { return "etf" }
func (*etfCmd) Synopsis() string {
	return "flag securities as ETFs from a JSON list of CUSIPs"
}
func (*etfCmd) Usage() string {
	return `pipeline etf -file etfs.json

  Flags every CUSIP in the JSON array as an ETF. Flagged securities are
  dropped from rankings when the exclusion filter is on. CUSIPs with no
  identity row yet get an unresolved one so the flag survives loading
  the list before the first mapping pass.
`
}

func (c *etfCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.file, "file", "", "path to the JSON CUSIP list")
}

func (c *etfCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.file == "" {
		fmt.Fprintln(os.Stderr, "Error: -file is required")
		return subcommands.ExitUsageError
	}

	a, err := openApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	flagged, err := a.identityService.ImportETFList(c.file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Printf("Flagged %d securities as ETFs from %s\n", flagged, c.file)
	return subcommands.ExitSuccess
}
