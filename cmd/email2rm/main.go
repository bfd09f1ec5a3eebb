package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/shano/email-to-remarkable-sync/internal/cli"
)

func main() {
	var c cli.CLI

	parser := kong.Must(&c,
		kong.Name("email2rm"),
		kong.Description("Sync PDF email attachments to reMarkable cloud storage"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	ctx, err := parser.Parse(os.Args[1:])
	if err != nil {
		parser.FatalIfErrorf(err)
	}

	execCtx := cli.NewContext(&c.Globals)

	if err := ctx.Run(execCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
