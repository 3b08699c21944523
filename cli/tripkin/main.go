// Package main is the tripkin command itself.
package main

import (
	"os"

	"go.viam.com/tripkin/cli"
)

func main() {
	app := cli.NewApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		cli.PrintError(app.ErrWriter, err)
		os.Exit(1)
	}
}
