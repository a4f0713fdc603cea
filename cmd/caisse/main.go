// Command caisse runs and operates the small-business ledger.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"

	"caisse/internal/cli"
)

func main() {
	cli.LoadEnvFile()

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	register(commander)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

func register(c *subcommands.Commander) {
	c.Register(&serveCmd{}, "")
	c.Register(&dashboardCmd{}, "")

	c.Register(&addClientCmd{}, "records")
	c.Register(&addTargetCmd{}, "records")
	c.Register(&addPaymentCmd{}, "records")
	c.Register(&addExpenseCmd{}, "records")
	c.Register(&addIncomeCmd{}, "records")

	c.Register(&feedbackCmd{}, "clients")

	c.Register(&ratiosCmd{}, "settings")
}
