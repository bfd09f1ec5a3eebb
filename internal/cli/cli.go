package cli

import (
	"log/slog"

	"github.com/shano/email-to-remarkable-sync/internal/log"
)

var Version = "0.1.0"

type Globals struct {
	Config  string `help:"Path to optional config file" short:"c" type:"path"`
	JSON    bool   `help:"Log as JSON" name:"json"`
	Verbose bool   `help:"Verbose output" short:"v"`
	Quiet   bool   `help:"Suppress non-essential output" short:"q"`
}

type CLI struct {
	Globals

	Run     RunCmd     `cmd:"" default:"1" help:"Run one synchronization pass"`
	Auth    AuthCmd    `cmd:"" help:"Manage the stored mail password"`
	Version VersionCmd `cmd:"" help:"Show version information"`
}

type Context struct {
	Globals *Globals
	Logger  *slog.Logger
}

func NewContext(globals *Globals) *Context {
	logger := log.New(log.Options{
		JSON:    globals.JSON,
		Verbose: globals.Verbose,
		Quiet:   globals.Quiet,
	})

	return &Context{
		Globals: globals,
		Logger:  logger,
	}
}
