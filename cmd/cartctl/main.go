package main

import (
	"fmt"
	"os"

	"github.com/angelmondragon/storefront-backend/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		code := cli.ExitCode(err)
		if code == cli.ExitCommandError {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(code)
	}
}
