package main

import (
	"fmt"
	"os"

	"github.com/roach88/walletstore/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "walletstore:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
