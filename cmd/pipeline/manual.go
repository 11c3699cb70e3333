package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

type manualCmd struct {
	file string
}

func (*manualCmd) Name() string { return "manual" }
func (*manualCmd) Synopsis() string {
	return "import operator-curated CUSIP-to-ticker mappings"
}
func (*manualCmd) Usage() string {
	return `pipeline manual -file mappings.json

  Imports a JSON object of the form {"cusip": "ticker", ...}. Manual
  mappings take precedence over every automated source and are never
  overwritten by one.
`
}

func (c *manualCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.file, "file", "", "path to the JSON mapping file")
}

func (c *manualCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	imported, err := a.identityService.ImportManualMappings(c.file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Printf("Imported %d manual mappings from %s\n", imported, c.file)
	return subcommands.ExitSuccess
}
