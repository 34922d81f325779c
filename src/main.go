package main

import (
	"context"
	"os"

	"monzo-manager/src/commands"
)

func main() {
	if err := commands.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
