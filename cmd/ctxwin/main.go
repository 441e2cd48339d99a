// Command ctxwin inspects and compresses LLM conversation histories.
package main

import (
	"fmt"
	"os"

	"ctxwin/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
