package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/tvandenberg/thirteenf/internal/service"
)

type reportCmd struct {
	kind string
}

func (*reportCmd) Name() string { return "report" }
func (*reportCmd) Synopsis() string {
	return "print the latest report of a kind as Markdown"
}
func (*reportCmd) Usage() string {
	return `pipeline report [-kind ownership|net_additions]

  Renders the newest stored report artifact of the kind to stdout.
`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.kind, "kind", "ownership", `report kind: "ownership" or "net_additions"`)
}

func (c *reportCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	kind, err := service.ParseReportKind(c.kind)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	a, err := openApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	artifact, _, err := a.reportService.LatestReport(kind)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	_, markdown, err := a.reportService.ReportMarkdown(artifact.ID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	os.Stdout.Write(markdown)
	return subcommands.ExitSuccess
}
